package repository

import (
	"face-greeter-go/internal/core/models"
	"face-greeter-go/internal/core/processor"

	log "github.com/sirupsen/logrus"
)

// GreetingRecorder speichert ausgelöste Begrüßungen
type GreetingRecorder interface {
	SaveGreetingEvent(event *models.GreetingEvent) error
}

// EventLog protokolliert jede ausgelöste Begrüßung in der Datenbank
type EventLog struct {
	repo GreetingRecorder
}

// NewEventLog erstellt den Sink
func NewEventLog(repo GreetingRecorder) *EventLog {
	return &EventLog{repo: repo}
}

// Handle implementiert processor.Sink
func (l *EventLog) Handle(event processor.Event) {
	if event.Type != processor.EventGreeting || event.Outcome == nil {
		return
	}
	o := event.Outcome
	if err := l.repo.SaveGreetingEvent(&models.GreetingEvent{
		SessionID:      event.SessionID,
		IdentityID:     o.IdentityID,
		Key:            o.Key,
		Day:            event.Day,
		Variant:        o.Variant,
		Clip:           o.Clip.Name,
		EncounterCount: o.EncounterCount,
		LedgerTotal:    o.LedgerTotal,
		Timestamp:      event.Timestamp,
	}); err != nil {
		log.WithError(err).Warn("Failed to record greeting event")
	}
}
