package homeassistant

import (
	"sync"
	"time"

	"face-greeter-go/internal/core/processor"
	"face-greeter-go/internal/integrations/mqtt"

	log "github.com/sirupsen/logrus"
)

// State ist die Payload des State-Topics beider Sensoren
type State struct {
	GreetingsToday    int       `json:"greetings_today"`
	IdentitiesPresent int       `json:"identities_present"`
	Day               string    `json:"day"`
	SessionID         string    `json:"session_id"`
	LastGreeting      time.Time `json:"last_greeting,omitempty"`
}

// StatePublisher aktualisiert den Sensorzustand nach Begrüßungen und Änderungen der Anwesenheit.
// Veröffentlicht wird nur, wenn sich ein Sensorwert geändert hat.
type StatePublisher struct {
	client    mqtt.Publisher
	mutex     sync.Mutex
	state     State
	published bool
}

// NewPublisher erstellt einen neuen State-Publisher für Home Assistant
func NewPublisher(client mqtt.Publisher) *StatePublisher {
	return &StatePublisher{client: client}
}

// Handle implementiert processor.Sink
func (p *StatePublisher) Handle(event processor.Event) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	next := p.state
	next.Day = event.Day
	next.SessionID = event.SessionID

	switch event.Type {
	case processor.EventGreeting:
		next.GreetingsToday = event.Total
		next.IdentitiesPresent = event.Present
		next.LastGreeting = event.Timestamp
	case processor.EventIdentityCreated, processor.EventIdentityRemoved:
		next.GreetingsToday = event.Total
		next.IdentitiesPresent = event.Present
	case processor.EventRollover:
		next.GreetingsToday = event.Total
		next.IdentitiesPresent = 0
	default:
		return
	}

	if p.published && next.GreetingsToday == p.state.GreetingsToday && next.IdentitiesPresent == p.state.IdentitiesPresent {
		p.state = next
		return
	}
	if err := p.client.PublishMessage(StateTopic(p.client), next, true); err != nil {
		log.WithError(err).Debug("Failed to publish Home Assistant state")
		return
	}
	p.state = next
	p.published = true
}

// Current liefert den zuletzt veröffentlichten Zustand
func (p *StatePublisher) Current() State {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.state
}
