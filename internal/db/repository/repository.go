package repository

import (
	"errors"
	"fmt"
	"time"

	"face-greeter-go/internal/core/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository definiert die Schnittstelle für die Datenbank-Operationen
type Repository interface {
	// Ledger-Methoden (erfüllen ledger.Store)
	Load(day string) (map[string]int, error)
	Save(day string, counts map[string]int, total int) error
	GetEncounterDay(day string) (*models.EncounterDay, error)
	GetEncounterDays() ([]models.EncounterDay, error)

	// Snapshot-Methoden
	SaveSnapshot(snapshot *models.Snapshot) error
	GetSnapshots(limit, offset int) ([]models.Snapshot, int64, error)
	GetSnapshotsBefore(t time.Time) ([]models.Snapshot, error)
	DeleteSnapshot(id uint) error

	// Begrüßungsprotokoll
	SaveGreetingEvent(event *models.GreetingEvent) error
	GetGreetingEvents(day string, limit int) ([]models.GreetingEvent, error)

	// Bereinigung
	DeleteGreetingEventsBefore(t time.Time) (int64, error)
	DeleteEncounterDaysBefore(day string) (int64, error)

	// Statistik-Methoden
	GetStatistics(today string) (models.Statistics, error)
}

// SQLiteRepository implementiert die Repository-Schnittstelle für SQLite
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository erstellt eine neue SQLite-Repository-Instanz
func NewSQLiteRepository(db *gorm.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Ledger-Methoden

// Load liest die Zählerstände eines Tages; ein unbekannter Tag ergibt eine leere Map
func (r *SQLiteRepository) Load(day string) (map[string]int, error) {
	var rows []models.EncounterCount
	if err := r.db.Where("day = ?", day).Find(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Key] = row.Count
	}
	return counts, nil
}

// Save ersetzt den Stand eines Tages in einer Transaktion
func (r *SQLiteRepository) Save(day string, counts map[string]int, total int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		header := models.EncounterDay{Day: day, TotalCount: total}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "day"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_count", "updated_at"}),
		}).Create(&header).Error; err != nil {
			return fmt.Errorf("upsert encounter day: %w", err)
		}

		if err := tx.Where("day = ?", day).Delete(&models.EncounterCount{}).Error; err != nil {
			return fmt.Errorf("clear encounter counts: %w", err)
		}
		if len(counts) == 0 {
			return nil
		}

		rows := make([]models.EncounterCount, 0, len(counts))
		for key, count := range counts {
			rows = append(rows, models.EncounterCount{Day: day, Key: key, Count: count})
		}
		if err := tx.CreateInBatches(rows, 100).Error; err != nil {
			return fmt.Errorf("insert encounter counts: %w", err)
		}
		return nil
	})
}

// GetEncounterDay holt den Kopfsatz eines Tages
func (r *SQLiteRepository) GetEncounterDay(day string) (*models.EncounterDay, error) {
	var d models.EncounterDay
	result := r.db.Where("day = ?", day).First(&d)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &d, nil
}

// GetEncounterDays holt alle gespeicherten Tage, neueste zuerst
func (r *SQLiteRepository) GetEncounterDays() ([]models.EncounterDay, error) {
	var days []models.EncounterDay
	if err := r.db.Order("day DESC").Find(&days).Error; err != nil {
		return nil, err
	}
	return days, nil
}

// Snapshot-Methoden

// SaveSnapshot speichert einen Snapshot
func (r *SQLiteRepository) SaveSnapshot(snapshot *models.Snapshot) error {
	return r.db.Save(snapshot).Error
}

// GetSnapshots holt Snapshots mit Pagination
func (r *SQLiteRepository) GetSnapshots(limit, offset int) ([]models.Snapshot, int64, error) {
	var snapshots []models.Snapshot
	var total int64

	r.db.Model(&models.Snapshot{}).Count(&total)
	result := r.db.Order("taken_at DESC").Limit(limit).Offset(offset).Find(&snapshots)
	if result.Error != nil {
		return nil, 0, result.Error
	}
	return snapshots, total, nil
}

// GetSnapshotsBefore holt alle Snapshots, die vor t aufgenommen wurden
func (r *SQLiteRepository) GetSnapshotsBefore(t time.Time) ([]models.Snapshot, error) {
	var snapshots []models.Snapshot
	if err := r.db.Where("taken_at < ?", t).Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

// DeleteSnapshot löscht einen Snapshot endgültig
func (r *SQLiteRepository) DeleteSnapshot(id uint) error {
	return r.db.Unscoped().Delete(&models.Snapshot{}, id).Error
}

// Begrüßungsprotokoll

// SaveGreetingEvent speichert eine ausgelöste Begrüßung
func (r *SQLiteRepository) SaveGreetingEvent(event *models.GreetingEvent) error {
	return r.db.Create(event).Error
}

// GetGreetingEvents holt die Begrüßungen eines Tages, neueste zuerst
func (r *SQLiteRepository) GetGreetingEvents(day string, limit int) ([]models.GreetingEvent, error) {
	var events []models.GreetingEvent
	query := r.db.Order("timestamp DESC")
	if day != "" {
		query = query.Where("day = ?", day)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// Bereinigung

// DeleteGreetingEventsBefore löscht Begrüßungen vor t
func (r *SQLiteRepository) DeleteGreetingEventsBefore(t time.Time) (int64, error) {
	result := r.db.Unscoped().Where("timestamp < ?", t).Delete(&models.GreetingEvent{})
	return result.RowsAffected, result.Error
}

// DeleteEncounterDaysBefore löscht Ledger-Tage vor day samt ihrer Zählerstände
func (r *SQLiteRepository) DeleteEncounterDaysBefore(day string) (int64, error) {
	var removed int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("day < ?", day).Delete(&models.EncounterCount{}).Error; err != nil {
			return err
		}
		result := tx.Where("day < ?", day).Delete(&models.EncounterDay{})
		removed = result.RowsAffected
		return result.Error
	})
	return removed, err
}

// Statistik-Methoden

// GetStatistics gibt Statistiken über die gespeicherten Daten zurück
func (r *SQLiteRepository) GetStatistics(today string) (models.Statistics, error) {
	var stats models.Statistics

	if err := r.db.Model(&models.GreetingEvent{}).Count(&stats.TotalGreetings).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.GreetingEvent{}).Where("day = ?", today).Count(&stats.GreetingsToday).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.Snapshot{}).Count(&stats.TotalSnapshots).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.EncounterDay{}).Count(&stats.LedgerDays).Error; err != nil {
		return stats, err
	}

	// Die letzten 5 Begrüßungen
	if err := r.db.Order("timestamp DESC").Limit(5).Find(&stats.RecentGreetings).Error; err != nil {
		return stats, err
	}
	if len(stats.RecentGreetings) > 0 {
		stats.LatestGreeting = stats.RecentGreetings[0].Timestamp
	}

	return stats, nil
}

// DeleteBefore löscht Ledger-Tage vor day (gleiche Signatur wie ledger.JSONStore)
func (r *SQLiteRepository) DeleteBefore(day string) (int, error) {
	n, err := r.DeleteEncounterDaysBefore(day)
	return int(n), err
}

// Days liefert alle Ledger-Tage aufsteigend (gleiche Signatur wie ledger.JSONStore)
func (r *SQLiteRepository) Days() ([]string, error) {
	var days []string
	if err := r.db.Model(&models.EncounterDay{}).Order("day ASC").Pluck("day", &days).Error; err != nil {
		return nil, err
	}
	return days, nil
}
