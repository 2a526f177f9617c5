package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"face-greeter-go/config"
	"face-greeter-go/internal/util/timezone"

	log "github.com/sirupsen/logrus"
)

// datePlaceholder wird im Dateinamen durch den aktuellen Tagesstempel ersetzt
const datePlaceholder = "{date}"

// Init initializes the global logger based on the provided configuration.
// It returns the log file (if any) so the caller can close it on shutdown.
func Init(cfg config.LogConfig) (io.Closer, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("Invalid log level '%s', defaulting to 'info': %v", cfg.Level, err)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	writers := []io.Writer{os.Stdout}
	var file *os.File

	if cfg.File != "" {
		path := FilePath(cfg.File, timezone.Now())
		logDir := filepath.Dir(path)
		if err := os.MkdirAll(logDir, 0750); err != nil {
			log.Errorf("Failed to create log directory '%s': %v", logDir, err)
		} else {
			file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0660)
			if err != nil {
				log.Errorf("Failed to open log file '%s': %v", path, err)
				file = nil
			} else {
				writers = append(writers, file)
				log.Infof("Logging additionally to file: %s", path)
			}
		}
	}

	log.SetOutput(io.MultiWriter(writers...))

	log.Info("Logger initialized")
	if file == nil {
		return nil, nil
	}
	return file, nil
}

// FilePath expandiert den {date}-Platzhalter im Log-Dateinamen
func FilePath(pattern string, now time.Time) string {
	return strings.ReplaceAll(pattern, datePlaceholder, timezone.DayStamp(now))
}
