package processor

import (
	"image"
	"image/color"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"face-greeter-go/config"
	"face-greeter-go/internal/core/greeting"
	"face-greeter-go/internal/core/ledger"
	"face-greeter-go/internal/core/models"
	"face-greeter-go/internal/core/tracking"
	"face-greeter-go/internal/integrations/audio"
	"face-greeter-go/internal/util/timezone"
)

type countingPlayer struct {
	played int
}

func (p *countingPlayer) IsPlaying() bool { return false }

func (p *countingPlayer) Play(audio.Clip) error {
	p.played++
	return nil
}

type solidFrame struct{}

func (solidFrame) Crop(r image.Rectangle, margin int) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, r.Dx()+2*margin, r.Dy()+2*margin))
	for y := 0; y < img.Bounds().Dy(); y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	return img, nil
}

type collectingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *collectingSink) Handle(e Event) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *collectingSink) types() []EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type memSnapshots struct {
	mu   sync.Mutex
	rows []models.Snapshot
}

func (m *memSnapshots) SaveSnapshot(s *models.Snapshot) error {
	m.mu.Lock()
	m.rows = append(m.rows, *s)
	m.mu.Unlock()
	return nil
}

type fixture struct {
	proc      *FrameProcessor
	ledger    *ledger.Ledger
	store     *ledger.JSONStore
	player    *countingPlayer
	sink      *collectingSink
	snapshots *memSnapshots
	snapDir   string
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	timezone.Initialize("UTC")

	audioDir := t.TempDir()
	for _, name := range []string{"hello.wav", "greeting_en.wav"} {
		if err := os.WriteFile(filepath.Join(audioDir, name), []byte("RIFF"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	lib, err := audio.NewLibrary(config.AudioConfig{Dir: audioDir, DefaultClip: "hello.wav", Languages: []string{"en"}})
	if err != nil {
		t.Fatal(err)
	}
	chain, err := greeting.NewChain(config.ModeSequentialByEncounter, lib, "", rand.New(rand.NewPCG(7, 7)))
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		store:     ledger.NewJSONStore(t.TempDir()),
		player:    &countingPlayer{},
		sink:      &collectingSink{},
		snapshots: &memSnapshots{},
		snapDir:   t.TempDir(),
	}
	f.ledger = ledger.New(f.store, "")

	scheduler := greeting.NewScheduler(greeting.Config{
		Mode:                config.ModeSequentialByEncounter,
		PerIdentityCooldown: 10 * time.Second,
		GlobalCooldown:      3 * time.Second,
	}, f.player, chain, f.ledger, nil)

	sessions := 0
	f.proc = New(Options{
		Mode:      config.ModeSequentialByEncounter,
		Tracker:   tracking.New(tracking.DefaultConfig()),
		Scheduler: scheduler,
		Ledger:    f.ledger,
		Snapshots: NewSnapshotWriter(f.snapDir, 10, 80, 1, f.snapshots),
		Events:    NewEventBus(64, f.sink),
		NewSessionID: func() string {
			sessions++
			return "session" + string(rune('0'+sessions))
		},
	}, now)
	return f
}

func face(cx, cy int) image.Rectangle {
	return image.Rect(cx-25, cy-25, cx+25, cy+25)
}

func TestProcessGreetsNewIdentity(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	res := f.proc.Process(now, []image.Rectangle{face(100, 100)}, solidFrame{})
	if len(res.Created) != 1 || len(res.Outcomes) != 1 || !res.Outcomes[0].Fired() {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Outcomes[0].Key != "session1/1" {
		t.Errorf("ledger key = %q, want session1/1", res.Outcomes[0].Key)
	}
	// kein Begegnungsclip vorhanden: Standardclip
	if res.Outcomes[0].Variant != greeting.VariantDefault {
		t.Errorf("variant = %s, want default", res.Outcomes[0].Variant)
	}

	// gleiches Gesicht vier Sekunden später: globaler Cooldown vorbei, eigener nicht
	res = f.proc.Process(now.Add(4*time.Second), []image.Rectangle{face(104, 101)}, solidFrame{})
	if len(res.Created) != 0 || res.Outcomes[0].Status != greeting.StatusCooldown {
		t.Errorf("second frame result %+v", res)
	}

	state := f.proc.State()
	if state.Frames != 2 || state.Present != 1 || state.LedgerTotal != 1 || state.SessionID != "session1" {
		t.Errorf("state = %+v", state)
	}

	if err := f.proc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := os.Stat(filepath.Join(f.snapDir, "20261017", "session1_1.jpg")); err != nil {
		t.Errorf("identification photo missing: %v", err)
	}
	if len(f.snapshots.rows) != 1 || !strings.Contains(string(f.snapshots.rows[0].Box), `"x_min":75`) {
		t.Errorf("snapshot rows = %+v", f.snapshots.rows)
	}

	counts, err := f.store.Load("20261017")
	if err != nil || counts["session1/1"] != 1 {
		t.Errorf("persisted counts = %v, err=%v", counts, err)
	}

	types := f.sink.types()
	if len(types) < 2 || types[0] != EventIdentityCreated || types[1] != EventGreeting {
		t.Errorf("events = %v", types)
	}
	if f.player.played != 1 {
		t.Errorf("played = %d, want 1", f.player.played)
	}
}

func TestProcessDayRollover(t *testing.T) {
	day1 := time.Date(2026, 10, 17, 23, 59, 0, 0, time.UTC)
	f := newFixture(t, day1)

	f.proc.Process(day1, []image.Rectangle{face(100, 100)}, nil)
	if f.ledger.Total() != 1 {
		t.Fatalf("total = %d, want 1", f.ledger.Total())
	}

	day2 := day1.Add(2 * time.Minute)
	res := f.proc.Process(day2, []image.Rectangle{face(100, 100)}, nil)
	if !res.Rollover {
		t.Fatal("expected rollover")
	}
	if f.ledger.Day() != "20261018" {
		t.Errorf("ledger day = %s", f.ledger.Day())
	}
	if f.proc.SessionID() != "session2" {
		t.Errorf("session = %s, want session2", f.proc.SessionID())
	}
	// Tracker geleert: dasselbe Gesicht ist eine neue Identität mit neuer ID
	if len(res.Created) != 1 || res.Created[0].ID != 2 {
		t.Errorf("created = %+v", res.Created)
	}
	if !res.Outcomes[0].Fired() || res.Outcomes[0].Key != "session2/2" || f.ledger.Total() != 1 {
		t.Errorf("outcome %+v total %d", res.Outcomes[0], f.ledger.Total())
	}

	if err := f.proc.Close(); err != nil {
		t.Fatal(err)
	}
	old, _ := f.store.Load("20261017")
	if old["session1/1"] != 1 {
		t.Errorf("previous day counts lost: %v", old)
	}

	found := false
	for _, typ := range f.sink.types() {
		if typ == EventRollover {
			found = true
		}
	}
	if !found {
		t.Error("rollover event missing")
	}
}

func TestProcessorResumesPersistedTotal(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	timezone.Initialize("UTC")
	store := ledger.NewJSONStore(t.TempDir())
	if err := store.Save("20261017", map[string]int{"old/1": 4}, 4); err != nil {
		t.Fatal(err)
	}

	l := ledger.New(store, "")
	scheduler := greeting.NewScheduler(greeting.Config{}, audio.NullPlayer{}, greeting.Chain{}, l, nil)
	proc := New(Options{Tracker: tracking.New(tracking.DefaultConfig()), Scheduler: scheduler, Ledger: l}, now)

	if proc.State().LedgerTotal != 4 {
		t.Errorf("LedgerTotal = %d, want 4", proc.State().LedgerTotal)
	}
	if len(proc.SessionID()) != 36 {
		t.Errorf("session id %q is not a UUID", proc.SessionID())
	}
	if err := proc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestWorkerPoolDropsWhenFull(t *testing.T) {
	pool := NewWorkerPool("test", 1, 1)
	block := make(chan struct{})
	started := make(chan struct{})

	if !pool.Submit(func() { close(started); <-block }) {
		t.Fatal("first job rejected")
	}
	<-started
	if !pool.Submit(func() {}) {
		t.Fatal("queued job rejected")
	}
	if pool.Submit(func() {}) {
		t.Error("job accepted although queue is full")
	}
	if pool.DroppedJobCount() != 1 {
		t.Errorf("dropped = %d, want 1", pool.DroppedJobCount())
	}

	close(block)
	pool.Shutdown()
	if pool.Submit(func() {}) {
		t.Error("job accepted after shutdown")
	}
}

func TestEventBusDeliversInOrder(t *testing.T) {
	sink := &collectingSink{}
	bus := NewEventBus(8, sink, SinkFunc(func(Event) { panic("broken sink") }))
	bus.Emit(Event{Type: EventIdentityCreated})
	bus.Emit(Event{Type: EventGreeting})
	bus.Close()
	bus.Emit(Event{Type: EventRollover})

	types := sink.types()
	if len(types) != 2 || types[0] != EventIdentityCreated || types[1] != EventGreeting {
		t.Errorf("events = %v", types)
	}
}
