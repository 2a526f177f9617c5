package processor

import (
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	"face-greeter-go/internal/core/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// Frame liefert Ausschnitte des aktuellen Kamerabilds.
// Ein Frame ist nur während des Process-Aufrufs gültig.
type Frame interface {
	Crop(r image.Rectangle, margin int) (image.Image, error)
}

// SnapshotRecorder speichert die Metadaten eines Snapshots
type SnapshotRecorder interface {
	SaveSnapshot(snapshot *models.Snapshot) error
}

// SnapshotRequest beschreibt ein Identifikationsfoto
type SnapshotRequest struct {
	SessionID  string
	IdentityID int
	Day        string
	Rect       image.Rectangle
	At         time.Time
}

// SnapshotWriter speichert Identifikationsfotos neuer Identitäten als JPEG
type SnapshotWriter struct {
	dir     string
	margin  int
	quality int
	pool    *WorkerPool
	repo    SnapshotRecorder
	onSaved func(req SnapshotRequest, relPath string)
}

// NewSnapshotWriter erstellt einen Writer; repo darf nil sein
func NewSnapshotWriter(dir string, margin, quality, workers int, repo SnapshotRecorder) *SnapshotWriter {
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	return &SnapshotWriter{
		dir:     dir,
		margin:  margin,
		quality: quality,
		pool:    NewWorkerPool("snapshot", workers, workers*4),
		repo:    repo,
	}
}

// OnSaved registriert einen Callback nach erfolgreichem Speichern
func (w *SnapshotWriter) OnSaved(fn func(req SnapshotRequest, relPath string)) {
	w.onSaved = fn
}

// RelPath liefert den Pfad eines Snapshots relativ zum Snapshot-Verzeichnis
func RelPath(req SnapshotRequest) string {
	return filepath.Join(req.Day, fmt.Sprintf("%s_%d.jpg", req.SessionID, req.IdentityID))
}

// Request schneidet das Gesicht sofort aus und übergibt das Speichern dem Worker-Pool.
// Es gibt keine Wiederholung: schlägt ein Schritt fehl oder ist die Queue voll, entfällt das Foto.
func (w *SnapshotWriter) Request(frame Frame, req SnapshotRequest) bool {
	if frame == nil {
		return false
	}
	crop, err := frame.Crop(req.Rect, w.margin)
	if err != nil {
		log.WithError(err).WithField("identity", req.IdentityID).Warn("Failed to crop identification photo")
		return false
	}
	return w.pool.Submit(func() {
		if err := w.write(crop, req); err != nil {
			log.WithError(err).WithField("identity", req.IdentityID).Error("Failed to save identification photo")
		}
	})
}

func (w *SnapshotWriter) write(img image.Image, req SnapshotRequest) error {
	rel := RelPath(req)
	path := filepath.Join(w.dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: w.quality}); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close snapshot file: %w", err)
	}
	log.Infof("Saved identification photo %s", path)

	if w.repo != nil {
		box, _ := json.Marshal(models.BoundingBox{
			XMin: req.Rect.Min.X,
			YMin: req.Rect.Min.Y,
			XMax: req.Rect.Max.X,
			YMax: req.Rect.Max.Y,
		})
		if err := w.repo.SaveSnapshot(&models.Snapshot{
			SessionID:  req.SessionID,
			IdentityID: req.IdentityID,
			Day:        req.Day,
			FilePath:   filepath.ToSlash(rel),
			Box:        datatypes.JSON(box),
			TakenAt:    req.At,
		}); err != nil {
			log.WithError(err).Warn("Failed to record snapshot in database")
		}
	}

	if w.onSaved != nil {
		w.onSaved(req, filepath.ToSlash(rel))
	}
	return nil
}

// Pool liefert den Worker-Pool (für Statistiken)
func (w *SnapshotWriter) Pool() *WorkerPool {
	return w.pool
}

// Close wartet auf ausstehende Fotos
func (w *SnapshotWriter) Close() {
	w.pool.Shutdown()
}
