package opencv

import (
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	"face-greeter-go/config"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// Erkennungsverfahren
const (
	MethodHaar  = "haar"
	MethodYuNet = "yunet"
)

// FaceDetector findet Gesichter in einem BGR-Bild
type FaceDetector interface {
	Detect(img gocv.Mat) ([]image.Rectangle, error)
	Close() error
}

// NewFaceDetector erstellt den konfigurierten Detektor
func NewFaceDetector(cfg config.DetectorConfig) (FaceDetector, error) {
	switch strings.ToLower(cfg.Method) {
	case "", MethodHaar:
		return NewHaarDetector(cfg)
	case MethodYuNet:
		return NewYuNetDetector(cfg)
	default:
		return nil, fmt.Errorf("unknown detector method %q", cfg.Method)
	}
}

// HaarDetector verwendet eine Haar-Kaskade für frontale Gesichter
type HaarDetector struct {
	classifier   gocv.CascadeClassifier
	scaleFactor  float64
	minNeighbors int
	minSize      image.Point
}

// NewHaarDetector lädt die Kaskade aus cfg.CascadeFile
func NewHaarDetector(cfg config.DetectorConfig) (*HaarDetector, error) {
	if _, err := os.Stat(cfg.CascadeFile); err != nil {
		return nil, fmt.Errorf("cascade file not found: %s", cfg.CascadeFile)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cfg.CascadeFile) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load cascade file %s", cfg.CascadeFile)
	}

	d := &HaarDetector{
		classifier:   classifier,
		scaleFactor:  cfg.ScaleFactor,
		minNeighbors: cfg.MinNeighbors,
		minSize:      image.Pt(cfg.MinSizeWidth, cfg.MinSizeHeight),
	}
	if d.scaleFactor <= 1 {
		d.scaleFactor = 1.1
	}
	if d.minNeighbors <= 0 {
		d.minNeighbors = 5
	}
	log.Infof("Haar cascade face detector loaded from %s", cfg.CascadeFile)
	return d, nil
}

// Detect wandelt das Bild in Graustufen um und sucht Gesichter
func (d *HaarDetector) Detect(img gocv.Mat) ([]image.Rectangle, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	return d.classifier.DetectMultiScaleWithParams(gray, d.scaleFactor, d.minNeighbors, 0, d.minSize, image.Point{}), nil
}

// Close gibt die Kaskade frei
func (d *HaarDetector) Close() error {
	d.classifier.Close()
	return nil
}

// YuNetDetector verwendet OpenCVs FaceDetectorYN (ONNX-Modell)
type YuNetDetector struct {
	detector  gocv.FaceDetectorYN
	threshold float32
	mu        sync.Mutex
}

// NewYuNetDetector lädt das Modell aus cfg.ModelPath
func NewYuNetDetector(cfg config.DetectorConfig) (*YuNetDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	threshold := float32(cfg.ConfidenceThresh)
	if threshold <= 0 {
		threshold = 0.6
	}

	// Eingabegröße wird pro Bild angepasst
	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",
		image.Pt(320, 320),
		threshold,
		0.3,
		5000,
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)
	log.Infof("YuNet face detector loaded from %s", cfg.ModelPath)
	return &YuNetDetector{detector: detector, threshold: threshold}, nil
}

// Detect liefert die Gesichter als Pixel-Rechtecke innerhalb des Bildes
func (d *YuNetDetector) Detect(img gocv.Mat) ([]image.Rectangle, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	bounds := image.Rect(0, 0, img.Cols(), img.Rows())
	d.detector.SetInputSize(bounds.Max)

	faces := gocv.NewMat()
	defer faces.Close()
	d.detector.Detect(img, &faces)

	// Spalten 0-3: Box in Pixeln, 4-13: Landmarken, 14: Score
	var rects []image.Rectangle
	for r := 0; r < faces.Rows(); r++ {
		if faces.GetFloatAt(r, 14) < d.threshold {
			continue
		}
		rect := BoxRect(faces.GetFloatAt(r, 0), faces.GetFloatAt(r, 1), faces.GetFloatAt(r, 2), faces.GetFloatAt(r, 3), bounds)
		if !rect.Empty() {
			rects = append(rects, rect)
		}
	}
	return rects, nil
}

// Close gibt das Modell frei
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}

// BoxRect wandelt x, y, Breite und Höhe in ein auf bounds begrenztes Rechteck um
func BoxRect(x, y, w, h float32, bounds image.Rectangle) image.Rectangle {
	r := image.Rect(int(x), int(y), int(x+w), int(y+h))
	return r.Intersect(bounds)
}

// ExpandRect vergrößert r um margin Pixel und begrenzt das Ergebnis auf bounds
func ExpandRect(r image.Rectangle, margin int, bounds image.Rectangle) image.Rectangle {
	if margin > 0 {
		r = image.Rect(r.Min.X-margin, r.Min.Y-margin, r.Max.X+margin, r.Max.Y+margin)
	}
	return r.Intersect(bounds)
}
