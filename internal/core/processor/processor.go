// Package processor verarbeitet die Detektionen eines Frames: Tracking, Begrüßung, Ledger, Ereignisse.
package processor

import (
	"fmt"
	"image"
	"sync"
	"time"

	"face-greeter-go/internal/core/greeting"
	"face-greeter-go/internal/core/ledger"
	"face-greeter-go/internal/core/tracking"
	"face-greeter-go/internal/util/timezone"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Options enthält die Bestandteile eines FrameProcessors. Snapshots und Events dürfen nil sein.
type Options struct {
	Mode      string
	Tracker   *tracking.Tracker
	Scheduler *greeting.Scheduler
	Ledger    *ledger.Ledger
	Snapshots *SnapshotWriter
	Events    *EventBus
	// NewSessionID erzeugt die ID einer Kamerasitzung; Standard ist eine UUID
	NewSessionID func() string
}

// Result beschreibt die Änderungen eines Frames
type Result struct {
	Live     []*tracking.Identity
	Created  []*tracking.Identity
	Removed  []*tracking.Identity
	Outcomes []greeting.Outcome
	Rollover bool
}

// State ist eine Kopie des Zustands für die Status-API
type State struct {
	SessionID      string              `json:"session_id"`
	Day            string              `json:"day"`
	Mode           string              `json:"mode"`
	Frames         uint64              `json:"frames"`
	Identities     []tracking.Identity `json:"identities"`
	Present        int                 `json:"present"`
	LedgerTotal    int                 `json:"ledger_total"`
	LastGreetingAt time.Time           `json:"last_greeting_at"`
	CurrentVariant string              `json:"current_variant"`
	StartedAt      time.Time           `json:"started_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// FrameProcessor führt Tracker, Scheduler und Ledger einer Kamerasitzung zusammen.
// Process wird nur aus der Frame-Schleife aufgerufen; State ist threadsicher.
type FrameProcessor struct {
	opts      Options
	sessionID string
	frames    uint64

	stateMu sync.RWMutex
	state   State
}

// New erstellt einen FrameProcessor und lädt den Ledger des aktuellen Tages
func New(opts Options, now time.Time) *FrameProcessor {
	if opts.NewSessionID == nil {
		opts.NewSessionID = uuid.NewString
	}

	p := &FrameProcessor{opts: opts}
	day := timezone.DayStamp(now)
	if err := opts.Ledger.Load(day); err != nil {
		log.WithError(err).Warn("Failed to load encounter ledger, starting with empty counts")
		opts.Ledger.Rollover(day)
	}
	p.startSession()

	p.state = State{
		SessionID:   p.sessionID,
		Day:         day,
		Mode:        opts.Mode,
		LedgerTotal: opts.Ledger.Total(),
		StartedAt:   now,
		UpdatedAt:   now,
	}
	log.Infof("Camera session %s started for day %s (%d greetings so far)", p.sessionID, day, opts.Ledger.Total())
	return p
}

func (p *FrameProcessor) startSession() {
	p.sessionID = p.opts.NewSessionID()
	session := p.sessionID
	p.opts.Scheduler.SetKeyFunc(func(identity *tracking.Identity) string {
		return LedgerKey(session, identity.ID)
	})
}

// LedgerKey bildet den Ledger-Schlüssel einer Identität innerhalb einer Sitzung
func LedgerKey(sessionID string, identityID int) string {
	return fmt.Sprintf("%s/%d", sessionID, identityID)
}

// SessionID liefert die ID der laufenden Kamerasitzung
func (p *FrameProcessor) SessionID() string {
	return p.sessionID
}

// Process verarbeitet die Detektionen eines Frames. frame darf nil sein (keine Snapshots).
func (p *FrameProcessor) Process(now time.Time, detections []image.Rectangle, frame Frame) Result {
	var result Result
	p.frames++

	day := timezone.DayStamp(now)
	if day != p.opts.Ledger.Day() {
		result.Rollover = true
		p.rollover(day, now)
	}

	for _, det := range detections {
		log.Debugf("Face detected at x=%d y=%d w=%d h=%d", det.Min.X, det.Min.Y, det.Dx(), det.Dy())
	}

	update := p.opts.Tracker.Update(detections, now)
	result.Created = update.Created
	result.Removed = update.Removed

	for _, identity := range update.Created {
		log.Infof("New identity %d at (%.0f, %.0f)", identity.ID, identity.Center.X, identity.Center.Y)
		if p.opts.Snapshots != nil {
			p.opts.Snapshots.Request(frame, SnapshotRequest{
				SessionID:  p.sessionID,
				IdentityID: identity.ID,
				Day:        day,
				Rect:       identity.Rect,
				At:         now,
			})
		}
	}
	for _, identity := range update.Removed {
		log.Debugf("Identity %d lost after %d frames", identity.ID, identity.FramesSinceSeen)
	}

	identities := p.opts.Tracker.Identities()
	result.Outcomes = p.opts.Scheduler.Evaluate(identities, now)
	result.Live = p.opts.Tracker.Live()

	p.publish(now, day, update, result)
	p.updateState(now, day, identities, len(result.Live))
	return result
}

func (p *FrameProcessor) rollover(day string, now time.Time) {
	l := p.opts.Ledger
	if l.Dirty() {
		_ = l.Save()
	}
	previous := l.Day()
	l.Rollover(day)
	if err := l.Load(day); err != nil {
		log.WithError(err).Warn("Failed to load encounter ledger after rollover")
	}
	p.opts.Tracker.Reset()
	p.startSession()
	log.Infof("Day changed %s -> %s, new camera session %s", previous, day, p.sessionID)

	p.emit(Event{Type: EventRollover, Timestamp: now, Day: day, Total: l.Total()})
}

func (p *FrameProcessor) publish(now time.Time, day string, update tracking.UpdateResult, result Result) {
	if p.opts.Events == nil {
		return
	}
	present := len(result.Live)
	total := p.opts.Ledger.Total()

	for _, identity := range update.Created {
		snapshot := ""
		if p.opts.Snapshots != nil {
			snapshot = RelPath(SnapshotRequest{SessionID: p.sessionID, IdentityID: identity.ID, Day: day})
		}
		copied := *identity
		p.emit(Event{Type: EventIdentityCreated, Timestamp: now, Day: day, Identity: &copied, Snapshot: snapshot, Present: present, Total: total})
	}
	for _, identity := range update.Removed {
		copied := *identity
		p.emit(Event{Type: EventIdentityRemoved, Timestamp: now, Day: day, Identity: &copied, Present: present, Total: total})
	}
	for i := range result.Outcomes {
		outcome := result.Outcomes[i]
		if !outcome.Fired() {
			continue
		}
		p.emit(Event{Type: EventGreeting, Timestamp: now, Day: day, Outcome: &outcome, Present: present, Total: outcome.LedgerTotal})
	}
}

func (p *FrameProcessor) emit(event Event) {
	if p.opts.Events == nil {
		return
	}
	event.SessionID = p.sessionID
	p.opts.Events.Emit(event)
}

// EmitSnapshotSaved meldet ein gespeichertes Identifikationsfoto
func (p *FrameProcessor) EmitSnapshotSaved(req SnapshotRequest, relPath string) {
	if p.opts.Events == nil {
		return
	}
	p.opts.Events.Emit(Event{
		Type:      EventSnapshotSaved,
		SessionID: req.SessionID,
		Day:       req.Day,
		Timestamp: req.At,
		Identity:  &tracking.Identity{ID: req.IdentityID, Rect: req.Rect, Center: tracking.Center(req.Rect)},
		Snapshot:  relPath,
	})
}

func (p *FrameProcessor) updateState(now time.Time, day string, identities []*tracking.Identity, present int) {
	copies := make([]tracking.Identity, 0, len(identities))
	for _, identity := range identities {
		copies = append(copies, *identity)
	}

	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	p.state.SessionID = p.sessionID
	p.state.Day = day
	p.state.Frames = p.frames
	p.state.Identities = copies
	p.state.Present = present
	p.state.LedgerTotal = p.opts.Ledger.Total()
	p.state.LastGreetingAt = p.opts.Scheduler.LastGlobalGreetingAt()
	p.state.CurrentVariant = p.opts.Scheduler.CurrentVariant()
	p.state.UpdatedAt = now
}

// State liefert eine Kopie des zuletzt verarbeiteten Zustands
func (p *FrameProcessor) State() State {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	s := p.state
	s.Identities = append([]tracking.Identity(nil), p.state.Identities...)
	return s
}

// Close schreibt den Ledger und wartet auf ausstehende Snapshots und Ereignisse
func (p *FrameProcessor) Close() error {
	err := p.opts.Ledger.Save()
	if p.opts.Snapshots != nil {
		p.opts.Snapshots.Close()
	}
	if p.opts.Events != nil {
		p.opts.Events.Close()
	}
	log.Infof("Camera session %s closed (%d frames, %d greetings today)", p.sessionID, p.frames, p.opts.Ledger.Total())
	return err
}
