package opencv

import (
	"fmt"
	"image"
	"sync"

	"face-greeter-go/config"
	"face-greeter-go/internal/core/greeting"
	"face-greeter-go/internal/core/tracking"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// debugInterval: ohne Ereignis wird jeder n-te Frame im Debug-Service abgelegt
const debugInterval = 30

// Service verbindet Kamera, Detektor und Anzeigefenster der Frame-Schleife
type Service struct {
	cfg      *config.Config
	camera   *Camera
	detector FaceDetector
	window   *gocv.Window
	DebugSvc *DebugService // Debug-Service für die Visualisierung
	frame    gocv.Mat
	frames   int
	mutex    sync.Mutex
}

// NewService öffnet Kamera und Detektor. Das Fenster wird nur bei showWindow erstellt.
func NewService(cfg *config.Config, showWindow bool) (*Service, error) {
	detector, err := NewFaceDetector(cfg.Detector)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize face detector: %w", err)
	}

	camera, err := OpenCamera(cfg.Camera)
	if err != nil {
		detector.Close()
		return nil, err
	}

	s := &Service{
		cfg:      cfg,
		camera:   camera,
		detector: detector,
		DebugSvc: NewDebugService(30),
		frame:    gocv.NewMat(),
	}
	if showWindow {
		s.window = gocv.NewWindow(cfg.Camera.WindowName)
	}
	return s, nil
}

// Next liest das nächste Bild und erkennt die Gesichter darin.
// Der Frame bleibt bis zum nächsten Aufruf gültig.
func (s *Service) Next() (MatFrame, []image.Rectangle, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.camera.Read(&s.frame); err != nil {
		return MatFrame{}, nil, err
	}
	s.frames++

	faces, err := s.detector.Detect(s.frame)
	if err != nil {
		return MatFrame{}, nil, fmt.Errorf("face detection failed: %w", err)
	}
	return NewMatFrame(&s.frame), faces, nil
}

// Render zeichnet die Identitäten ein, legt ggf. ein Debug-Bild ab und zeigt das Fenster.
// Liefert true, wenn im Fenster 'q' gedrückt wurde.
func (s *Service) Render(identities []*tracking.Identity, outcomes []greeting.Outcome, lines []string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.frame.Empty() {
		return false
	}
	Annotate(&s.frame, identities, outcomes, lines)

	greeted := 0
	for _, o := range outcomes {
		if o.Fired() {
			greeted++
		}
	}
	if greeted > 0 || s.frames%debugInterval == 0 {
		if err := s.DebugSvc.AddMat(s.frame, len(identities), greeted); err != nil {
			log.WithError(err).Debug("Failed to store debug frame")
		}
	}

	if s.window == nil {
		return false
	}
	s.window.IMShow(s.frame)
	return s.window.WaitKey(1)&0xFF == 'q'
}

// CameraSource liefert die tatsächlich geöffnete Videoquelle
func (s *Service) CameraSource() string {
	return s.camera.Source()
}

// Close gibt Fenster, Kamera und Detektor frei
func (s *Service) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.window != nil {
		s.window.Close()
	}
	s.frame.Close()
	s.detector.Close()
	return s.camera.Close()
}
