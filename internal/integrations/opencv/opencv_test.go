package opencv

import (
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"face-greeter-go/config"

	"github.com/gin-gonic/gin"
	"gocv.io/x/gocv"
)

func TestExpandRect(t *testing.T) {
	bounds := image.Rect(0, 0, 640, 480)
	tests := []struct {
		name   string
		rect   image.Rectangle
		margin int
		want   image.Rectangle
	}{
		{"inside", image.Rect(100, 100, 150, 150), 20, image.Rect(80, 80, 170, 170)},
		{"clamped at corner", image.Rect(600, 440, 660, 500), 10, image.Rect(590, 430, 640, 480)},
		{"no margin", image.Rect(10, 10, 20, 20), 0, image.Rect(10, 10, 20, 20)},
		{"outside", image.Rect(700, 500, 720, 520), 5, image.Rectangle{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandRect(tt.rect, tt.margin, bounds)
			if got.Empty() && tt.want.Empty() {
				return
			}
			if got != tt.want {
				t.Errorf("ExpandRect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoxRect(t *testing.T) {
	bounds := image.Rect(0, 0, 640, 480)
	if got := BoxRect(10.6, 20.2, 50, 60, bounds); got != image.Rect(10, 20, 60, 80) {
		t.Errorf("BoxRect() = %v", got)
	}
	if got := BoxRect(-5, -5, 20, 20, bounds); got != image.Rect(0, 0, 15, 15) {
		t.Errorf("BoxRect() negative origin = %v", got)
	}
}

func TestMatFrameCrop(t *testing.T) {
	mat := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer mat.Close()

	img, err := NewMatFrame(&mat).Crop(image.Rect(600, 440, 660, 500), 10)
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}
	if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 50 {
		t.Errorf("crop size = %v, want 50x50", img.Bounds())
	}

	if _, err := NewMatFrame(&mat).Crop(image.Rect(700, 500, 720, 520), 0); err == nil {
		t.Error("expected error for face outside of frame")
	}
	if _, err := (MatFrame{}).Crop(image.Rect(0, 0, 10, 10), 0); err == nil {
		t.Error("expected error for empty frame")
	}
}

func TestHaarDetectorMissingCascade(t *testing.T) {
	_, err := NewFaceDetector(config.DetectorConfig{Method: MethodHaar, CascadeFile: "does/not/exist.xml"})
	if err == nil {
		t.Fatal("expected error for missing cascade file")
	}
	if _, err := NewFaceDetector(config.DetectorConfig{Method: "hog"}); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestHaarDetectorOnBlankImage(t *testing.T) {
	cascade := os.Getenv("GREETER_TEST_CASCADE")
	if cascade == "" {
		cascade = "../../../data/haarcascade_frontalface_default.xml"
	}
	if _, err := os.Stat(cascade); err != nil {
		t.Skipf("cascade file not available: %s", cascade)
	}

	detector, err := NewFaceDetector(config.DetectorConfig{Method: MethodHaar, CascadeFile: cascade, ScaleFactor: 1.1, MinNeighbors: 5, MinSizeWidth: 30, MinSizeHeight: 30})
	if err != nil {
		t.Fatal(err)
	}
	defer detector.Close()

	mat := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer mat.Close()
	faces, err := detector.Detect(mat)
	if err != nil {
		t.Fatal(err)
	}
	if len(faces) != 0 {
		t.Errorf("found %d faces in blank image", len(faces))
	}
}

func TestDebugServiceEvictsOldest(t *testing.T) {
	svc := NewDebugService(2)
	now := time.Now()
	first := svc.AddDebugFrame(now, []byte{1}, 1, 0)
	svc.AddDebugFrame(now, []byte{2}, 2, 1)
	last := svc.AddDebugFrame(now, []byte{3}, 3, 0)

	if svc.GetFrame(first) != nil {
		t.Error("oldest frame not evicted")
	}
	frames := svc.GetLatestFrames(0)
	if len(frames) != 2 || frames[1].ID != last {
		t.Errorf("frames = %+v", frames)
	}
	if got := svc.GetLatestFrames(1); len(got) != 1 || got[0].Faces != 3 {
		t.Errorf("latest = %+v", got)
	}
}

func TestDebugServiceRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewDebugService(5)
	id := svc.AddDebugFrame(time.Now(), []byte{0xff, 0xd8}, 2, 1)

	router := gin.New()
	svc.RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/debug/frames?count=5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var body struct {
		Count  int `json:"count"`
		Frames []struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		} `json:"frames"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 1 || body.Frames[0].URL != "/api/debug/frames/"+id {
		t.Errorf("body = %+v", body)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/debug/frames/"+id, nil))
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/jpeg" {
		t.Errorf("frame status = %d, type = %s", w.Code, w.Header().Get("Content-Type"))
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/debug/frames/frame-99", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing frame status = %d", w.Code)
	}
}
