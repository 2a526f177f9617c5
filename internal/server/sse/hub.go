package sse

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"time"

	"face-greeter-go/internal/core/processor"

	log "github.com/sirupsen/logrus"
)

// Client repräsentiert einen einzelnen verbundenen SSE-Client
type Client chan []byte

// Hub verwaltet die Menge der aktiven Clients und sendet Broadcasts an sie
type Hub struct {
	// Registrierte Clients
	clients map[Client]bool

	// Eingehende Nachrichten von der Anwendung
	broadcast chan []byte

	// Registrierungsanfragen von Clients
	register chan Client

	// Abmeldeanfragen von Clients
	unregister chan Client

	// Basis-URL für Identifikationsfotos
	snapshotURL string

	mu sync.Mutex
}

// EventData definiert die Struktur der Daten, die über SSE gesendet werden
type EventData struct {
	Type           string    `json:"type"`
	SessionID      string    `json:"session_id"`
	Day            string    `json:"day"`
	Timestamp      time.Time `json:"timestamp"`
	IdentityID     int       `json:"identity_id,omitempty"`
	Variant        string    `json:"variant,omitempty"`
	Clip           string    `json:"clip,omitempty"`
	EncounterCount int       `json:"encounter_count,omitempty"`
	SnapshotURL    string    `json:"snapshot_url,omitempty"`
	Present        int       `json:"present"`
	GreetingsToday int       `json:"greetings_today"`
}

// NewHub erstellt eine neue Hub-Instanz
func NewHub(snapshotURL string) *Hub {
	return &Hub{
		broadcast:   make(chan []byte, 100),
		register:    make(chan Client),
		unregister:  make(chan Client),
		clients:     make(map[Client]bool),
		snapshotURL: snapshotURL,
	}
}

// Run startet die Verarbeitungsschleife des Hubs bis ctx beendet wird.
// Dies sollte in einer separaten Goroutine ausgeführt werden.
func (h *Hub) Run(ctx context.Context) {
	log.Debug("SSE hub started")

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client)
			}
			h.mu.Unlock()
			log.Debug("SSE hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			log.Infof("SSE client registered. Total clients: %d", clientCount)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client)
				log.Infof("SSE client unregistered. Total clients: %d", len(h.clients))
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			log.Debugf("Broadcasting message to %d SSE clients", len(h.clients))

			for client := range h.clients {
				select {
				case client <- message:
				default:
					// Client-Kanal ist voll
					log.Warn("SSE client channel full, removing client")
					delete(h.clients, client)
					close(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register registriert einen neuen Client am Hub
func (h *Hub) Register(client Client) {
	h.register <- client
}

// Unregister meldet einen Client vom Hub ab
func (h *Hub) Unregister(client Client) {
	h.unregister <- client
}

// ClientCount liefert die Anzahl verbundener Clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sendet eine Nachricht an alle registrierten Clients
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		log.Warn("SSE broadcast channel full, message dropped")
	}
}

// Handle implementiert processor.Sink
func (h *Hub) Handle(event processor.Event) {
	data := EventData{
		Type:           string(event.Type),
		SessionID:      event.SessionID,
		Day:            event.Day,
		Timestamp:      event.Timestamp,
		Present:        event.Present,
		GreetingsToday: event.Total,
	}
	if event.Identity != nil {
		data.IdentityID = event.Identity.ID
	}
	if event.Outcome != nil {
		data.IdentityID = event.Outcome.IdentityID
		data.Variant = event.Outcome.Variant
		data.Clip = event.Outcome.Clip.Name
		data.EncounterCount = event.Outcome.EncounterCount
	}
	if event.Snapshot != "" {
		data.SnapshotURL = path.Join(h.snapshotURL, event.Snapshot)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Errorf("Failed to marshal event for SSE: %v", err)
		return
	}
	h.Broadcast(jsonData)
}
