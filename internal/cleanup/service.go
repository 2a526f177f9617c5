package cleanup

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"face-greeter-go/internal/core/models"
	"face-greeter-go/internal/util/timezone"

	log "github.com/sirupsen/logrus"
)

// DataStore enthält die Datenbankzugriffe der Bereinigung
type DataStore interface {
	GetSnapshotsBefore(t time.Time) ([]models.Snapshot, error)
	DeleteSnapshot(id uint) error
	DeleteGreetingEventsBefore(t time.Time) (int64, error)
}

// LedgerPruner löscht Ledger-Tage vor einem Tag (SQLite oder JSON)
type LedgerPruner interface {
	DeleteBefore(day string) (int, error)
}

// Result fasst einen Bereinigungslauf zusammen
type Result struct {
	Snapshots      int
	SnapshotDirs   int
	GreetingEvents int64
	LedgerDays     int
	Failed         int
}

// Service handles the automatic cleanup of old data.
type Service struct {
	store         DataStore
	ledger        LedgerPruner
	retentionDays int
	snapshotDir   string
	checkInterval time.Duration
	stopChan      chan struct{}
}

// NewService creates a new cleanup service. Returns nil if cleanup is disabled.
func NewService(store DataStore, ledger LedgerPruner, retentionDays int, snapshotDir string, checkInterval time.Duration) *Service {
	if retentionDays <= 0 {
		log.Info("Automatic cleanup disabled (retention_days <= 0).")
		return nil
	}
	if store == nil {
		log.Error("Cannot initialize cleanup service: data store is nil")
		return nil
	}
	if checkInterval <= 0 {
		checkInterval = 24 * time.Hour
	}
	log.Infof("Initializing cleanup service: RetentionDays=%d, SnapshotDir='%s', CheckInterval=%s", retentionDays, snapshotDir, checkInterval)
	return &Service{
		store:         store,
		ledger:        ledger,
		retentionDays: retentionDays,
		snapshotDir:   snapshotDir,
		checkInterval: checkInterval,
		stopChan:      make(chan struct{}),
	}
}

// StartBackgroundCleanup starts a goroutine that periodically runs the cleanup cycle.
func (s *Service) StartBackgroundCleanup() {
	if s == nil {
		return
	}
	log.Info("Starting background cleanup routine...")

	ticker := time.NewTicker(s.checkInterval)

	go func() {
		defer ticker.Stop()
		s.RunCleanupCycle(timezone.Now())
		for {
			select {
			case <-ticker.C:
				log.Info("Running scheduled cleanup cycle...")
				s.RunCleanupCycle(timezone.Now())
			case <-s.stopChan:
				log.Info("Stopping background cleanup routine.")
				return
			}
		}
	}()
}

// StopBackgroundCleanup signals the background cleanup routine to stop.
func (s *Service) StopBackgroundCleanup() {
	if s == nil || s.stopChan == nil {
		return
	}
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
}

// RunCleanupCycle deletes snapshots, greeting events and ledger days older than the retention period.
func (s *Service) RunCleanupCycle(now time.Time) Result {
	var result Result
	if s == nil || s.retentionDays <= 0 {
		return result
	}

	cutoffTime := now.AddDate(0, 0, -s.retentionDays)
	cutoffDay := timezone.DayStamp(cutoffTime)
	log.Infof("Cleanup: Deleting data older than %s", cutoffTime.Format(time.RFC3339))

	snapshots, err := s.store.GetSnapshotsBefore(cutoffTime)
	if err != nil {
		log.Errorf("Cleanup: Error finding old snapshots: %v", err)
	}
	for _, snap := range snapshots {
		if err := s.deleteSnapshot(snap); err != nil {
			log.Errorf("Cleanup: Failed to delete snapshot ID %d (Path: %s): %v", snap.ID, snap.FilePath, err)
			result.Failed++
			continue
		}
		result.Snapshots++
	}
	result.SnapshotDirs = s.removeDayDirs(cutoffDay)

	if result.GreetingEvents, err = s.store.DeleteGreetingEventsBefore(cutoffTime); err != nil {
		log.Errorf("Cleanup: Error deleting greeting events: %v", err)
		result.Failed++
	}

	if s.ledger != nil {
		if result.LedgerDays, err = s.ledger.DeleteBefore(cutoffDay); err != nil {
			log.Errorf("Cleanup: Error deleting ledger days: %v", err)
			result.Failed++
		}
	}

	log.Infof("Cleanup cycle finished. Snapshots: %d, greeting events: %d, ledger days: %d, failed: %d",
		result.Snapshots, result.GreetingEvents, result.LedgerDays, result.Failed)
	return result
}

// deleteSnapshot löscht erst den Datensatz, dann die Datei
func (s *Service) deleteSnapshot(snap models.Snapshot) error {
	if err := s.store.DeleteSnapshot(snap.ID); err != nil {
		return err
	}
	if s.snapshotDir == "" {
		return nil
	}

	snapshotPath := filepath.Join(s.snapshotDir, filepath.FromSlash(snap.FilePath))
	if err := os.Remove(snapshotPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		// Datensatz ist gelöscht, die Datei bleibt liegen
		log.Warnf("Cleanup: Failed to delete snapshot file '%s' for snapshot ID %d: %v", snapshotPath, snap.ID, err)
	}
	return nil
}

// removeDayDirs entfernt Tagesverzeichnisse (YYYYMMDD) vor cutoffDay samt verwaister Dateien
func (s *Service) removeDayDirs(cutoffDay string) int {
	if s.snapshotDir == "" {
		return 0
	}
	entries, err := os.ReadDir(s.snapshotDir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warnf("Cleanup: Cannot read snapshot directory: %v", err)
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := timezone.ParseDay(entry.Name()); err != nil || entry.Name() >= cutoffDay {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.snapshotDir, entry.Name())); err != nil {
			log.Warnf("Cleanup: Failed to remove snapshot directory %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	return removed
}
