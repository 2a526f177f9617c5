package opencv

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// DebugFrame ist ein annotiertes Kamerabild
type DebugFrame struct {
	ID        string    // Eindeutige ID für das Bild
	Timestamp time.Time // Zeitstempel des Bildes
	ImageData []byte    // JPEG mit eingezeichneten Gesichtern
	Faces     int       // Anzahl erkannter Gesichter
	Greeted   int       // Anzahl Begrüßungen in diesem Frame
}

// DebugService speichert die letzten annotierten Frames im Speicher
type DebugService struct {
	frames     map[string]*DebugFrame // Map von Debug-Frames, indiziert nach ID
	framesList []*DebugFrame          // Liste für zeitliche Sortierung
	maxFrames  int                    // Maximale Anzahl zu speichernder Frames
	seq        uint64
	mutex      sync.RWMutex
}

// NewDebugService erstellt einen neuen Debug-Service
func NewDebugService(maxFrames int) *DebugService {
	if maxFrames <= 0 {
		maxFrames = 20
	}

	return &DebugService{
		frames:     make(map[string]*DebugFrame),
		framesList: make([]*DebugFrame, 0, maxFrames),
		maxFrames:  maxFrames,
	}
}

// AddMat kodiert img als JPEG und legt es ab
func (s *DebugService) AddMat(img gocv.Mat, faces, greeted int) error {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return fmt.Errorf("encode debug frame: %w", err)
	}
	defer buf.Close()

	// GetBytes verweist auf nativen Speicher
	data := append([]byte(nil), buf.GetBytes()...)
	s.AddDebugFrame(time.Now(), data, faces, greeted)
	return nil
}

// AddDebugFrame fügt ein JPEG hinzu und verdrängt bei Bedarf das älteste
func (s *DebugService) AddDebugFrame(at time.Time, data []byte, faces, greeted int) string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.seq++
	frame := &DebugFrame{
		ID:        fmt.Sprintf("frame-%d", s.seq),
		Timestamp: at,
		ImageData: data,
		Faces:     faces,
		Greeted:   greeted,
	}

	s.frames[frame.ID] = frame
	s.framesList = append(s.framesList, frame)

	if len(s.framesList) > s.maxFrames {
		oldest := s.framesList[0]
		delete(s.frames, oldest.ID)
		s.framesList = s.framesList[1:]
	}

	log.Debugf("Debug frame %s added with %d faces", frame.ID, faces)
	return frame.ID
}

// GetLatestFrames gibt die neuesten Debug-Frames zurück, das neueste zuletzt
func (s *DebugService) GetLatestFrames(count int) []*DebugFrame {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if count <= 0 || count > len(s.framesList) {
		count = len(s.framesList)
	}

	result := make([]*DebugFrame, count)
	copy(result, s.framesList[len(s.framesList)-count:])
	return result
}

// GetFrame gibt einen Frame anhand seiner ID zurück
func (s *DebugService) GetFrame(id string) *DebugFrame {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.frames[id]
}

// RegisterRoutes registriert die API-Routen für den Debug-Service
func (s *DebugService) RegisterRoutes(router gin.IRoutes) {
	router.GET("/api/debug/frames", s.handleGetLatestFrames)
	router.GET("/api/debug/frames/:id", s.handleGetFrame)
	router.GET("/debug/frames", s.handleDebugPage)

	log.Debug("Debug routes registered: /api/debug/frames, /api/debug/frames/:id, /debug/frames")
}

// handleGetLatestFrames gibt die Metadaten der neuesten Frames als JSON zurück
func (s *DebugService) handleGetLatestFrames(c *gin.Context) {
	count, err := strconv.Atoi(c.DefaultQuery("count", "10"))
	if err != nil {
		count = 10
	}

	type frameMetadata struct {
		ID        string    `json:"id"`
		Timestamp time.Time `json:"timestamp"`
		Faces     int       `json:"faces"`
		Greeted   int       `json:"greeted"`
		URL       string    `json:"url"`
	}

	frames := s.GetLatestFrames(count)
	metadata := make([]frameMetadata, len(frames))
	for i, f := range frames {
		metadata[i] = frameMetadata{
			ID:        f.ID,
			Timestamp: f.Timestamp,
			Faces:     f.Faces,
			Greeted:   f.Greeted,
			URL:       "/api/debug/frames/" + f.ID,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(metadata),
		"frames": metadata,
	})
}

// handleGetFrame gibt einen Frame als JPEG zurück
func (s *DebugService) handleGetFrame(c *gin.Context) {
	frame := s.GetFrame(c.Param("id"))
	if frame == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "frame not found", "requested_id": c.Param("id")})
		return
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Data(http.StatusOK, "image/jpeg", frame.ImageData)
}

// handleDebugPage zeigt die zuletzt annotierten Frames an
func (s *DebugService) handleDebugPage(c *gin.Context) {
	html := `<!DOCTYPE html>
<html>
<head>
    <title>Face Greeter Debug</title>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f0f0f0; }
        .frames { display: flex; flex-wrap: wrap; gap: 10px; }
        .card { background: white; border-radius: 5px; box-shadow: 0 2px 5px rgba(0,0,0,0.1); width: 320px; }
        .card img { width: 100%; }
        .info { padding: 8px; font-size: 14px; }
    </style>
</head>
<body>
    <h1>Face Greeter Debug</h1>
    <div class="frames" id="frames"><p>Lade Bilder...</p></div>
    <script>
        function fetchFrames() {
            fetch('/api/debug/frames?count=20')
                .then(function(response) { return response.json(); })
                .then(function(data) {
                    const container = document.getElementById('frames');
                    if (data.count === 0) {
                        container.innerHTML = '<p>Keine Bilder vorhanden.</p>';
                        return;
                    }
                    container.innerHTML = '';
                    data.frames.reverse().forEach(function(frame) {
                        const card = document.createElement('div');
                        card.className = 'card';
                        card.innerHTML = '<img src="' + frame.url + '?t=' + Date.now() + '">' +
                            '<div class="info"><b>Gesichter:</b> ' + frame.faces +
                            ' <b>Begrüßt:</b> ' + frame.greeted +
                            ' <b>Zeit:</b> ' + new Date(frame.timestamp).toLocaleTimeString() + '</div>';
                        container.appendChild(card);
                    });
                });
        }
        fetchFrames();
        setInterval(fetchFrames, 5000);
    </script>
</body>
</html>`

	c.Header("Content-Type", "text/html")
	c.String(http.StatusOK, html)
}
