package greeting

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"face-greeter-go/config"
	"face-greeter-go/internal/core/ledger"
	"face-greeter-go/internal/core/tracking"
	"face-greeter-go/internal/integrations/audio"
)

type fakePlayer struct {
	busy   bool
	err    error
	played []audio.Clip
}

func (p *fakePlayer) IsPlaying() bool { return p.busy }

func (p *fakePlayer) Play(clip audio.Clip) error {
	if p.err != nil {
		return p.err
	}
	p.played = append(p.played, clip)
	return nil
}

// fakeSource kennt nur die Clips, die in available eingetragen sind
type fakeSource struct {
	available map[string]bool
	langs     []string
}

func (s *fakeSource) get(name string) (audio.Clip, error) {
	if !s.available[name] {
		return audio.Clip{}, audio.ErrNoClip
	}
	return audio.Clip{Name: name, Path: "/clips/" + name + ".wav"}, nil
}

func (s *fakeSource) Default() (audio.Clip, error) { return s.get("default") }
func (s *fakeSource) Language(lang string) (audio.Clip, error) { return s.get("greeting_" + lang) }
func (s *fakeSource) Languages() []string { return s.langs }
func (s *fakeSource) Custom(name string) (audio.Clip, error) { return s.get("custom_" + name) }
func (s *fakeSource) Encounter(n int) (audio.Clip, error) { return s.get(fmt.Sprintf("encounter_%d", n)) }

type memStore struct{}

func (memStore) Load(string) (map[string]int, error) { return nil, nil }
func (memStore) Save(string, map[string]int, int) error { return nil }

var t0 = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func at(seconds float64) time.Time {
	return t0.Add(time.Duration(seconds * float64(time.Second)))
}

func live(id int) *tracking.Identity {
	return &tracking.Identity{ID: id}
}

func keyByID(identity *tracking.Identity) string {
	return fmt.Sprintf("s/%d", identity.ID)
}

func newTestScheduler(t *testing.T, mode string, player *fakePlayer, src *fakeSource) (*Scheduler, *ledger.Ledger) {
	t.Helper()
	chain, err := NewChain(mode, src, "me", rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatal(err)
	}
	l := ledger.New(memStore{}, "20261017")
	s := NewScheduler(Config{
		Mode:                mode,
		PerIdentityCooldown: 10 * time.Second,
		GlobalCooldown:      3 * time.Second,
	}, player, chain, l, keyByID)
	return s, l
}

func allClips() *fakeSource {
	return &fakeSource{
		available: map[string]bool{
			"default":     true,
			"greeting_en": true,
			"greeting_de": true,
			"custom_me":   true,
			"encounter_1": true,
			"encounter_2": true,
		},
		langs: []string{"en", "de"},
	}
}

func TestPerIdentityCooldown(t *testing.T) {
	player := &fakePlayer{}
	s, _ := newTestScheduler(t, config.ModeRandomLanguage, player, allClips())
	a := live(1)

	if out := s.Evaluate([]*tracking.Identity{a}, at(0)); !out[0].Fired() {
		t.Fatalf("first greeting should fire, got %s", out[0].Status)
	}

	if out := s.Evaluate([]*tracking.Identity{a}, at(9.999)); out[0].Status != StatusCooldown {
		t.Errorf("at t=9.999 status = %s, want cooldown", out[0].Status)
	}
	if out := s.Evaluate([]*tracking.Identity{a}, at(10.0001)); !out[0].Fired() {
		t.Errorf("at t=10.0001 status = %s, want fired", out[0].Status)
	}
	if len(player.played) != 2 {
		t.Errorf("played %d clips, want 2", len(player.played))
	}
}

func TestGlobalCooldownDominance(t *testing.T) {
	player := &fakePlayer{}
	s, _ := newTestScheduler(t, config.ModeRandomLanguage, player, allClips())
	a, b := live(1), live(2)

	out := s.Evaluate([]*tracking.Identity{a, b}, at(0))
	if !out[0].Fired() || out[1].Status != StatusGlobalCooldown {
		t.Fatalf("t=0: got %s/%s, want fired/global-cooldown", out[0].Status, out[1].Status)
	}

	out = s.Evaluate([]*tracking.Identity{a, b}, at(2))
	if out[1].Status != StatusGlobalCooldown {
		t.Errorf("t=2: B status = %s, want global-cooldown", out[1].Status)
	}

	out = s.Evaluate([]*tracking.Identity{a, b}, at(3))
	if out[0].Status != StatusCooldown {
		t.Errorf("t=3: A status = %s, want cooldown", out[0].Status)
	}
	if !out[1].Fired() {
		t.Errorf("t=3: B status = %s, want fired", out[1].Status)
	}
	if !s.LastGlobalGreetingAt().Equal(at(3)) {
		t.Errorf("LastGlobalGreetingAt = %v", s.LastGlobalGreetingAt())
	}
}

func TestBusyAudioNoPenalty(t *testing.T) {
	player := &fakePlayer{busy: true}
	s, l := newTestScheduler(t, config.ModeSequentialByEncounter, player, allClips())
	a := live(1)

	out := s.Evaluate([]*tracking.Identity{a}, at(0))
	if out[0].Status != StatusBusy {
		t.Fatalf("status = %s, want busy", out[0].Status)
	}
	if !a.LastGreetedAt.IsZero() || !s.LastGlobalGreetingAt().IsZero() {
		t.Error("busy attempt must not touch cooldown timestamps")
	}
	if l.Total() != 0 || a.EncounterCount != 0 {
		t.Errorf("busy attempt changed state: total=%d encounters=%d", l.Total(), a.EncounterCount)
	}

	// nächster Frame, Audio frei: sofort erneut versucht
	player.busy = false
	if out := s.Evaluate([]*tracking.Identity{a}, at(0.1)); !out[0].Fired() {
		t.Errorf("retry status = %s, want fired", out[0].Status)
	}
}

func TestPlayerBusyErrorIsNotAFailure(t *testing.T) {
	player := &fakePlayer{err: audio.ErrPlayerBusy}
	s, l := newTestScheduler(t, config.ModeRandomLanguage, player, allClips())

	out := s.Evaluate([]*tracking.Identity{live(1)}, at(0))
	if out[0].Status != StatusBusy || l.Total() != 0 {
		t.Errorf("status=%s total=%d", out[0].Status, l.Total())
	}
}

func TestPlayFailureLeavesCooldownsUntouched(t *testing.T) {
	player := &fakePlayer{err: errors.New("device gone")}
	s, l := newTestScheduler(t, config.ModeSequentialByEncounter, player, allClips())
	a := live(1)

	out := s.Evaluate([]*tracking.Identity{a}, at(0))
	if out[0].Status != StatusPlayFailed || out[0].Err == nil {
		t.Fatalf("status = %s, want play-failed", out[0].Status)
	}
	if !a.LastGreetedAt.IsZero() || a.EncounterCount != 0 || l.Total() != 0 {
		t.Errorf("failed play mutated state: %+v total=%d", a, l.Total())
	}
}

func TestSequentialFallbackChain(t *testing.T) {
	src := allClips()
	player := &fakePlayer{}
	s, _ := newTestScheduler(t, config.ModeSequentialByEncounter, player, src)
	a := live(1)

	want := []string{"encounter_1", "encounter_2", "default"}
	for i, name := range want {
		out := s.Evaluate([]*tracking.Identity{a}, at(float64(i*20)))
		if !out[0].Fired() {
			t.Fatalf("greeting %d: status %s", i+1, out[0].Status)
		}
		if out[0].Clip.Name != name {
			t.Errorf("greeting %d: clip %s, want %s", i+1, out[0].Clip.Name, name)
		}
		if out[0].EncounterCount != i+1 {
			t.Errorf("greeting %d: encounter count %d", i+1, out[0].EncounterCount)
		}
	}

	// ohne Standardclip greift die Zufallssprache
	src.available["default"] = false
	out := s.Evaluate([]*tracking.Identity{a}, at(100))
	if !out[0].Fired() || (out[0].Clip.Name != "greeting_en" && out[0].Clip.Name != "greeting_de") {
		t.Errorf("expected random-language fallback, got %+v", out[0])
	}
}

func TestNoClipAvailable(t *testing.T) {
	player := &fakePlayer{}
	s, l := newTestScheduler(t, config.ModeSequentialByEncounter, player, &fakeSource{available: map[string]bool{}})
	a := live(1)

	out := s.Evaluate([]*tracking.Identity{a}, at(0))
	if out[0].Status != StatusNoClip {
		t.Fatalf("status = %s, want no-clip", out[0].Status)
	}
	if a.EncounterCount != 0 || l.Total() != 0 || len(player.played) != 0 {
		t.Error("missing clip must not change state")
	}
}

func TestCustomRecordingMode(t *testing.T) {
	src := allClips()
	player := &fakePlayer{}
	s, _ := newTestScheduler(t, config.ModeCustomRecording, player, src)

	out := s.Evaluate([]*tracking.Identity{live(1)}, at(0))
	if out[0].Clip.Name != "custom_me" || out[0].Variant != "custom:me" {
		t.Errorf("got clip %s variant %s", out[0].Clip.Name, out[0].Variant)
	}
	if s.CurrentVariant() != "custom:me" {
		t.Errorf("CurrentVariant = %s", s.CurrentVariant())
	}

	src.available["custom_me"] = false
	out = s.Evaluate([]*tracking.Identity{live(2)}, at(5))
	if out[0].Clip.Name != "default" {
		t.Errorf("fallback clip = %s, want default", out[0].Clip.Name)
	}
}

func TestLedgerSumInvariantAcrossGreetings(t *testing.T) {
	player := &fakePlayer{}
	s, l := newTestScheduler(t, config.ModeRandomLanguage, player, allClips())
	ids := []*tracking.Identity{live(1), live(2), live(3)}

	for step := 0; step < 20; step++ {
		out := s.Evaluate(ids, at(float64(step*4)))
		for _, o := range out {
			if o.Fired() && o.LedgerTotal != l.Total() {
				t.Fatalf("outcome total %d != ledger total %d", o.LedgerTotal, l.Total())
			}
		}
		snap := l.Snapshot()
		sum := 0
		for _, c := range snap.PerKeyCounts {
			sum += c
		}
		if sum != snap.TotalCount {
			t.Fatalf("sum %d != total %d", sum, snap.TotalCount)
		}
	}
	if l.Total() != len(player.played) {
		t.Errorf("ledger total %d, played %d", l.Total(), len(player.played))
	}
}

func TestStaleIdentitiesAreSkipped(t *testing.T) {
	player := &fakePlayer{}
	s, _ := newTestScheduler(t, config.ModeRandomLanguage, player, allClips())
	stale := &tracking.Identity{ID: 1, FramesSinceSeen: 2}

	if out := s.Evaluate([]*tracking.Identity{stale}, at(0)); len(out) != 0 {
		t.Errorf("stale identity produced outcomes: %+v", out)
	}
}

func TestNewChainRejectsUnknownMode(t *testing.T) {
	if _, err := NewChain("shout", allClips(), "", nil); err == nil {
		t.Error("expected error for unknown mode")
	}
}
