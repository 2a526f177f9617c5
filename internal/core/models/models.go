package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EncounterDay ist der Kopfsatz des Begegnungszählers eines Kalendertags
type EncounterDay struct {
	ID         uint      `gorm:"primaryKey"`
	Day        string    `gorm:"uniqueIndex;size:8;not null"` // YYYYMMDD
	TotalCount int       `gorm:"not null;default:0"`          // immer Summe der EncounterCounts
	UpdatedAt  time.Time
}

// EncounterCount ist der Zählerstand eines Ledger-Schlüssels an einem Tag
type EncounterCount struct {
	ID    uint   `gorm:"primaryKey"`
	Day   string `gorm:"uniqueIndex:idx_day_key;size:8;not null"`
	Key   string `gorm:"uniqueIndex:idx_day_key;not null"` // <session>/<identity>
	Count int    `gorm:"not null;default:0"`
}

// Snapshot ist ein gespeichertes Identifikationsfoto einer neuen Identität
type Snapshot struct {
	gorm.Model
	SessionID  string         `gorm:"index;not null"`
	IdentityID int            `gorm:"index;not null"`
	Day        string         `gorm:"index;size:8"`
	FilePath   string         `gorm:"not null"` // relativ zum Snapshot-Verzeichnis
	Box        datatypes.JSON `gorm:"type:json"` // x_min, y_min, x_max, y_max im Frame
	TakenAt    time.Time      `gorm:"index"`
}

// GreetingEvent protokolliert jede ausgelöste Begrüßung
type GreetingEvent struct {
	gorm.Model
	SessionID      string    `gorm:"index;not null"`
	IdentityID     int       `gorm:"index"`
	Key            string    `gorm:"index"`
	Day            string    `gorm:"index;size:8"`
	Variant        string
	Clip           string
	EncounterCount int
	LedgerTotal    int
	Timestamp      time.Time `gorm:"index"`
}

// BoundingBox ist die JSON-Form eines Rechtecks in Snapshot.Box
type BoundingBox struct {
	XMin int `json:"x_min"`
	YMin int `json:"y_min"`
	XMax int `json:"x_max"`
	YMax int `json:"y_max"`
}

// Statistics fasst die gespeicherten Daten für die Status-API zusammen
type Statistics struct {
	GreetingsToday  int64           `json:"greetings_today"`
	TotalGreetings  int64           `json:"total_greetings"`
	TotalSnapshots  int64           `json:"total_snapshots"`
	LedgerDays      int64           `json:"ledger_days"`
	LatestGreeting  time.Time       `json:"latest_greeting"`
	RecentGreetings []GreetingEvent `json:"recent_greetings"`
}
