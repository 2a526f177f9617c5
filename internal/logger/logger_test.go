package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"face-greeter-go/config"
	"face-greeter-go/internal/util/timezone"

	log "github.com/sirupsen/logrus"
)

func TestFilePath(t *testing.T) {
	timezone.Initialize("UTC")
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	if got := FilePath("logs/face_detection_{date}.log", now); got != "logs/face_detection_20261017.log" {
		t.Errorf("FilePath = %s", got)
	}
	if got := FilePath("logs/greeter.log", now); got != "logs/greeter.log" {
		t.Errorf("FilePath without placeholder = %s", got)
	}
}

func TestInitWritesFile(t *testing.T) {
	timezone.Initialize("UTC")
	dir := t.TempDir()
	pattern := filepath.Join(dir, "nested", "greeter_{date}.log")

	closer, err := Init(config.LogConfig{Level: "nonsense", File: pattern})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if closer == nil {
		t.Fatal("expected a log file")
	}
	defer func() {
		log.SetOutput(os.Stdout)
		closer.Close()
	}()

	if log.GetLevel() != log.InfoLevel {
		t.Errorf("level = %v, want info fallback", log.GetLevel())
	}

	path := FilePath(pattern, timezone.Now())
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected log output in file")
	}
}
