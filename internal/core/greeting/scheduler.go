// Package greeting entscheidet pro Frame, welche Identität begrüßt wird und mit welchem Clip.
package greeting

import (
	"errors"
	"time"

	"face-greeter-go/internal/core/ledger"
	"face-greeter-go/internal/core/tracking"
	"face-greeter-go/internal/integrations/audio"

	log "github.com/sirupsen/logrus"
)

// Status beschreibt das Ergebnis einer Begrüßungsentscheidung
type Status string

const (
	StatusFired          Status = "fired"
	StatusCooldown       Status = "cooldown"
	StatusGlobalCooldown Status = "global-cooldown"
	StatusBusy           Status = "busy"
	StatusNoClip         Status = "no-clip"
	StatusPlayFailed     Status = "play-failed"
)

// Config enthält die Begrüßungsrichtlinie
type Config struct {
	Mode                string
	PerIdentityCooldown time.Duration
	GlobalCooldown      time.Duration
}

// Outcome ist das Ergebnis für eine Identität in einem Frame
type Outcome struct {
	IdentityID     int        `json:"identity_id"`
	Key            string     `json:"key,omitempty"`
	Status         Status     `json:"status"`
	Variant        string     `json:"variant,omitempty"`
	Clip           audio.Clip `json:"clip,omitempty"`
	EncounterCount int        `json:"encounter_count"`
	LedgerTotal    int        `json:"ledger_total"`
	At             time.Time  `json:"at"`
	Err            error      `json:"-"`
}

// Fired meldet, ob die Begrüßung abgespielt wurde
func (o Outcome) Fired() bool {
	return o.Status == StatusFired
}

// KeyFunc bildet eine Identität auf ihren Ledger-Schlüssel ab
type KeyFunc func(identity *tracking.Identity) string

// Scheduler hält den Zustand der Begrüßungsrichtlinie einer Kamerasitzung.
// Er wird ausschließlich aus der Frame-Schleife aufgerufen.
type Scheduler struct {
	cfg    Config
	player audio.Player
	chain  Chain
	ledger *ledger.Ledger
	key    KeyFunc

	lastGlobalGreetingAt time.Time
	currentVariant       string
}

// NewScheduler erstellt einen neuen Scheduler
func NewScheduler(cfg Config, player audio.Player, chain Chain, l *ledger.Ledger, key KeyFunc) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		player: player,
		chain:  chain,
		ledger: l,
		key:    key,
	}
}

// SetKeyFunc ersetzt die Schlüsselbildung, z.B. nach einem Sitzungswechsel
func (s *Scheduler) SetKeyFunc(key KeyFunc) {
	s.key = key
}

// LastGlobalGreetingAt liefert den Zeitpunkt der letzten Begrüßung
func (s *Scheduler) LastGlobalGreetingAt() time.Time {
	return s.lastGlobalGreetingAt
}

// CurrentVariant liefert die zuletzt gewählte Variante
func (s *Scheduler) CurrentVariant() string {
	return s.currentVariant
}

// Evaluate entscheidet für alle im Frame sichtbaren Identitäten in Tracker-Reihenfolge.
// Nicht sichtbare Identitäten werden übersprungen.
func (s *Scheduler) Evaluate(identities []*tracking.Identity, now time.Time) []Outcome {
	var outcomes []Outcome
	globalBlocked := false

	for _, identity := range identities {
		if !identity.Live() {
			continue
		}

		outcome := Outcome{
			IdentityID:     identity.ID,
			EncounterCount: identity.EncounterCount,
			At:             now,
		}

		// Die globale Sperre gilt für den Rest des Frames
		if globalBlocked || cooling(s.lastGlobalGreetingAt, now, s.cfg.GlobalCooldown) {
			globalBlocked = true
			outcome.Status = StatusGlobalCooldown
			outcomes = append(outcomes, outcome)
			continue
		}

		if cooling(identity.LastGreetedAt, now, s.cfg.PerIdentityCooldown) {
			outcome.Status = StatusCooldown
			outcomes = append(outcomes, outcome)
			continue
		}

		outcomes = append(outcomes, s.attempt(identity, now, outcome))
	}

	return outcomes
}

func (s *Scheduler) attempt(identity *tracking.Identity, now time.Time, outcome Outcome) Outcome {
	if s.player.IsPlaying() {
		outcome.Status = StatusBusy
		return outcome
	}

	identity.EncounterCount++
	rollback := func() { identity.EncounterCount-- }

	clip, variant, err := s.chain.Resolve(Request{IdentityID: identity.ID, EncounterCount: identity.EncounterCount})
	if err != nil {
		rollback()
		log.WithField("identity", identity.ID).Warn("No greeting clip available")
		outcome.Status = StatusNoClip
		outcome.Err = err
		return outcome
	}

	if err := s.player.Play(clip); err != nil {
		rollback()
		outcome.Err = err
		if errors.Is(err, audio.ErrPlayerBusy) {
			outcome.Status = StatusBusy
			return outcome
		}
		log.WithError(err).WithFields(log.Fields{
			"identity": identity.ID,
			"clip":     clip.Path,
		}).Error("Failed to play greeting")
		outcome.Status = StatusPlayFailed
		return outcome
	}

	identity.LastGreetedAt = now
	s.lastGlobalGreetingAt = now
	s.currentVariant = variant

	outcome.Status = StatusFired
	outcome.Variant = variant
	outcome.Clip = clip
	outcome.EncounterCount = identity.EncounterCount

	if s.ledger != nil && s.key != nil {
		outcome.Key = s.key(identity)
		s.ledger.Increment(outcome.Key)
		// ein Fehler ist bereits protokolliert, der Speicherzustand bleibt maßgeblich
		_ = s.ledger.Save()
		outcome.LedgerTotal = s.ledger.Total()
	}

	log.WithFields(log.Fields{
		"identity":  identity.ID,
		"variant":   variant,
		"encounter": identity.EncounterCount,
		"total":     outcome.LedgerTotal,
	}).Info("Greeting played")

	return outcome
}

// cooling meldet, ob seit last weniger als cooldown vergangen ist.
// Ein nie gesetzter Zeitpunkt sperrt nicht.
func cooling(last, now time.Time, cooldown time.Duration) bool {
	if last.IsZero() {
		return false
	}
	return now.Sub(last) < cooldown
}
