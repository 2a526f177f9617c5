package opencv

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"face-greeter-go/config"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// ErrCameraUnavailable wird zurückgegeben, wenn keine Videoquelle geöffnet werden konnte
var ErrCameraUnavailable = errors.New("could not open camera, please check your camera connection")

// Gerätepfade, die nach den Indizes probiert werden
var fallbackDevicePaths = []string{
	"/dev/video0",
	"/dev/video1",
	"/dev/video2",
	"/dev/avfoundation",
	"/dev/facetime",
	"/dev/facetimehd",
}

// Camera kapselt eine geöffnete Videoquelle
type Camera struct {
	cfg     config.CameraConfig
	capture *gocv.VideoCapture
	source  string
}

// OpenCamera öffnet die konfigurierte Quelle. Schlägt das fehl, werden die Indizes
// 0..MaxIndex-1 und danach bekannte Gerätepfade probiert.
func OpenCamera(cfg config.CameraConfig) (*Camera, error) {
	c := &Camera{cfg: cfg}
	if err := c.open(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Camera) open() error {
	if c.cfg.Source != "" {
		// eine explizit angegebene Quelle wird ohne Testbild übernommen
		if capture := openSource(c.cfg.Source, false); capture != nil {
			c.use(capture, c.cfg.Source)
			return nil
		}
		log.Warnf("Could not open camera source %s, trying fallbacks", c.cfg.Source)
	}

	maxIndex := c.cfg.MaxIndex
	if maxIndex <= 0 {
		maxIndex = 10
	}
	for idx := 0; idx < maxIndex; idx++ {
		source := strconv.Itoa(idx)
		log.Debugf("Trying to open camera with index %d", idx)
		if capture := openSource(source, true); capture != nil {
			c.use(capture, source)
			return nil
		}
	}

	for _, path := range fallbackDevicePaths {
		log.Debugf("Trying to open camera with device path %s", path)
		if capture := openSource(path, true); capture != nil {
			c.use(capture, path)
			return nil
		}
	}

	log.Error("Failed to open any camera")
	return ErrCameraUnavailable
}

func (c *Camera) use(capture *gocv.VideoCapture, source string) {
	if c.cfg.Width > 0 && c.cfg.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	}
	c.capture = capture
	c.source = source
	log.Infof("Camera opened successfully using %s", source)
}

// openSource öffnet einen Index ("0") oder Pfad. Mit probe muss ein Testbild lesbar sein.
func openSource(source string, probe bool) *gocv.VideoCapture {
	var device interface{} = source
	if idx, err := strconv.Atoi(source); err == nil {
		device = idx
	}

	capture, err := gocv.OpenVideoCapture(device)
	if err != nil || capture == nil || !capture.IsOpened() {
		if capture != nil {
			capture.Close()
		}
		return nil
	}
	if probe && !canRead(capture) {
		log.Debugf("Camera %s opened but failed to read frame", source)
		capture.Close()
		return nil
	}
	return capture
}

func canRead(capture *gocv.VideoCapture) bool {
	frame := gocv.NewMat()
	defer frame.Close()
	return capture.Read(&frame) && !frame.Empty()
}

// Source liefert die tatsächlich geöffnete Quelle
func (c *Camera) Source() string {
	return c.source
}

// Read liest das nächste Bild. Bei einem Lesefehler wird die Kamera einmal neu geöffnet.
func (c *Camera) Read(frame *gocv.Mat) error {
	if c.capture.Read(frame) && !frame.Empty() {
		return nil
	}

	log.Error("Failed to capture frame from camera, attempting to reinitialize")
	c.capture.Close()
	if err := c.open(); err != nil {
		return err
	}
	if !c.capture.Read(frame) || frame.Empty() {
		return fmt.Errorf("failed to capture frame from %s", c.source)
	}
	return nil
}

// Close gibt die Kamera frei
func (c *Camera) Close() error {
	if c.capture == nil {
		return nil
	}
	return c.capture.Close()
}

// CameraStatus beschreibt die Verfügbarkeit eines Kameraindex
type CameraStatus struct {
	Index  int
	Status string
}

// Verfügbarkeit eines Kameraindex
const (
	CameraAvailable    = "Available"
	CameraUnreadable   = "Opens but can't read frames"
	CameraNotAvailable = "Not available"
)

// ListCameras prüft die Indizes 0..maxIndex-1
func ListCameras(maxIndex int) []CameraStatus {
	if maxIndex <= 0 {
		maxIndex = 10
	}
	result := make([]CameraStatus, 0, maxIndex)
	for idx := 0; idx < maxIndex; idx++ {
		status := CameraNotAvailable
		if capture := openSource(strconv.Itoa(idx), false); capture != nil {
			status = CameraUnreadable
			if canRead(capture) {
				status = CameraAvailable
			}
			capture.Close()
		}
		result = append(result, CameraStatus{Index: idx, Status: status})
	}
	return result
}

// DevicePaths listet die Videogeräte unter /dev
func DevicePaths() []string {
	paths, _ := filepath.Glob("/dev/video*")
	return paths
}
