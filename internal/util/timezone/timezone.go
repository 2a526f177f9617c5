package timezone

import (
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DayLayout ist das Format der Tagesstempel (Dateinamen, Ledger-Schlüssel)
const DayLayout = "20060102"

var (
	currentLocation *time.Location
	mu              sync.RWMutex
)

// Initialize setzt die Zeitzone. Ein leerer Name liest die TZ-Umgebungsvariable,
// ohne TZ wird die lokale Zeitzone des Systems verwendet.
func Initialize(name string) {
	if name == "" {
		name = os.Getenv("TZ")
	}

	loc := time.Local
	if name != "" {
		l, err := time.LoadLocation(name)
		if err != nil {
			log.Warnf("Failed to load timezone %s: %v. Falling back to local time.", name, err)
		} else {
			loc = l
			log.Infof("Successfully initialized timezone to %s", name)
		}
	}

	mu.Lock()
	currentLocation = loc
	mu.Unlock()
}

func location() *time.Location {
	mu.RLock()
	loc := currentLocation
	mu.RUnlock()
	if loc == nil {
		Initialize("")
		mu.RLock()
		loc = currentLocation
		mu.RUnlock()
	}
	return loc
}

// Now gibt die aktuelle Zeit in der konfigurierten Zeitzone zurück
func Now() time.Time {
	return time.Now().In(location())
}

// Format formatiert ein time.Time-Objekt mit der konfigurierten Zeitzone
func Format(t time.Time, layout string) string {
	return t.In(location()).Format(layout)
}

// DayStamp liefert den Kalendertag von t als YYYYMMDD
func DayStamp(t time.Time) string {
	return Format(t, DayLayout)
}

// ParseDay wandelt einen Tagesstempel in den Tagesbeginn in der konfigurierten Zeitzone um
func ParseDay(day string) (time.Time, error) {
	return time.ParseInLocation(DayLayout, day, location())
}

// ISO8601 formatiert ein time.Time-Objekt im ISO 8601-Format mit der konfigurierten Zeitzone
func ISO8601(t time.Time) string {
	return Format(t, time.RFC3339)
}
