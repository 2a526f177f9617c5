package processor

import (
	"sync"
	"time"

	"face-greeter-go/internal/core/greeting"
	"face-greeter-go/internal/core/tracking"

	log "github.com/sirupsen/logrus"
)

// EventType bezeichnet die Art eines Ereignisses
type EventType string

const (
	EventIdentityCreated EventType = "identity_created"
	EventIdentityRemoved EventType = "identity_removed"
	EventGreeting        EventType = "greeting"
	EventRollover        EventType = "rollover"
	EventSnapshotSaved   EventType = "snapshot_saved"
)

// Event wird an alle Sinks verteilt
type Event struct {
	Type      EventType          `json:"type"`
	SessionID string             `json:"session_id"`
	Day       string             `json:"day"`
	Timestamp time.Time          `json:"timestamp"`
	Identity  *tracking.Identity `json:"identity,omitempty"`
	Outcome   *greeting.Outcome  `json:"outcome,omitempty"`
	Snapshot  string             `json:"snapshot,omitempty"`
	Present   int                `json:"present"`
	Total     int                `json:"ledger_total"`
}

// Sink empfängt Ereignisse außerhalb der Frame-Schleife (MQTT, SSE, Datenbank)
type Sink interface {
	Handle(event Event)
}

// SinkFunc erlaubt Funktionen als Sink
type SinkFunc func(event Event)

func (f SinkFunc) Handle(event Event) { f(event) }

// EventBus verteilt Ereignisse asynchron an die Sinks.
// Emit blockiert nie; bei voller Queue wird das Ereignis verworfen.
type EventBus struct {
	events chan Event
	sinks  []Sink
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewEventBus erstellt einen Bus und startet die Verteilung
func NewEventBus(buffer int, sinks ...Sink) *EventBus {
	if buffer < 1 {
		buffer = 64
	}
	b := &EventBus{
		events: make(chan Event, buffer),
		sinks:  sinks,
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *EventBus) run() {
	defer close(b.done)
	for event := range b.events {
		for _, sink := range b.sinks {
			b.dispatch(sink, event)
		}
	}
}

func (b *EventBus) dispatch(sink Sink, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Event sink panicked on %s: %v", event.Type, r)
		}
	}()
	sink.Handle(event)
}

// Emit stellt ein Ereignis in die Queue
func (b *EventBus) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.events <- event:
	default:
		log.Warnf("Event queue full, %s event dropped", event.Type)
	}
}

// Close verteilt die restlichen Ereignisse und beendet den Bus
func (b *EventBus) Close() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.events)
	}
	b.mu.Unlock()
	<-b.done
}
