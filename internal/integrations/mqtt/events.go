package mqtt

import (
	"time"

	"face-greeter-go/internal/core/processor"

	log "github.com/sirupsen/logrus"
)

// GreetingMessage wird nach jeder Begrüßung auf <prefix>/greeting veröffentlicht
type GreetingMessage struct {
	SessionID      string    `json:"session_id"`
	IdentityID     int       `json:"identity_id"`
	Variant        string    `json:"variant"`
	Clip           string    `json:"clip"`
	EncounterCount int       `json:"encounter_count"`
	GreetingsToday int       `json:"greetings_today"`
	Day            string    `json:"day"`
	Timestamp      time.Time `json:"timestamp"`
}

// IdentityMessage wird bei neuen und verlorenen Identitäten veröffentlicht
type IdentityMessage struct {
	SessionID  string    `json:"session_id"`
	IdentityID int       `json:"identity_id"`
	Snapshot   string    `json:"snapshot,omitempty"`
	Present    int       `json:"present"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventPublisher leitet Ereignisse des Frame-Prozessors an MQTT weiter
type EventPublisher struct {
	client Publisher
}

// NewEventPublisher erstellt den Sink
func NewEventPublisher(client Publisher) *EventPublisher {
	return &EventPublisher{client: client}
}

// Handle implementiert processor.Sink
func (p *EventPublisher) Handle(event processor.Event) {
	var err error
	switch event.Type {
	case processor.EventGreeting:
		o := event.Outcome
		err = p.client.PublishMessage(p.client.Topic("greeting"), GreetingMessage{
			SessionID:      event.SessionID,
			IdentityID:     o.IdentityID,
			Variant:        o.Variant,
			Clip:           o.Clip.Name,
			EncounterCount: o.EncounterCount,
			GreetingsToday: o.LedgerTotal,
			Day:            event.Day,
			Timestamp:      event.Timestamp,
		}, false)
		if err == nil {
			err = p.client.PublishMessage(p.client.Topic("ledger", "total"), o.LedgerTotal, true)
		}
	case processor.EventIdentityCreated, processor.EventIdentityRemoved:
		topic := p.client.Topic("identity", "new")
		if event.Type == processor.EventIdentityRemoved {
			topic = p.client.Topic("identity", "lost")
		}
		err = p.client.PublishMessage(topic, IdentityMessage{
			SessionID:  event.SessionID,
			IdentityID: event.Identity.ID,
			Snapshot:   event.Snapshot,
			Present:    event.Present,
			Timestamp:  event.Timestamp,
		}, false)
		if err == nil {
			err = p.client.PublishMessage(p.client.Topic("present"), event.Present, true)
		}
	case processor.EventRollover:
		err = p.client.PublishMessage(p.client.Topic("ledger", "total"), event.Total, true)
	default:
		return
	}

	if err != nil {
		log.WithError(err).Debugf("Failed to publish %s event to MQTT", event.Type)
	}
}
