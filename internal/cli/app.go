package cli

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"face-greeter-go/config"
	"face-greeter-go/internal/api"
	"face-greeter-go/internal/api/handlers"
	"face-greeter-go/internal/cleanup"
	"face-greeter-go/internal/core/greeting"
	"face-greeter-go/internal/core/ledger"
	"face-greeter-go/internal/core/processor"
	"face-greeter-go/internal/core/tracking"
	"face-greeter-go/internal/db"
	"face-greeter-go/internal/db/repository"
	"face-greeter-go/internal/integrations/audio"
	"face-greeter-go/internal/integrations/homeassistant"
	"face-greeter-go/internal/integrations/mqtt"
	"face-greeter-go/internal/server/sse"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ledgerStore ist ein Ledger-Backend, das auch Tage auflisten und löschen kann
type ledgerStore interface {
	ledger.Store
	Days() ([]string, error)
	DeleteBefore(day string) (int, error)
}

// greeter bündelt alle Komponenten eines Laufs außer der Kamera
type greeter struct {
	cfg       *config.Config
	conn      *gorm.DB
	repo      *repository.SQLiteRepository
	store     ledgerStore
	ledger    *ledger.Ledger
	library   *audio.Library
	phrases   *audio.Phrases
	player    audio.Player
	snapshots *processor.SnapshotWriter
	proc      *processor.FrameProcessor
	hub       *sse.Hub
	mqtt      *mqtt.Client
	cleanup   *cleanup.Service
	server    *api.Server
	cancel    context.CancelFunc
}

// openLedgerStore wählt das Ledger-Backend aus der Konfiguration
func openLedgerStore(cfg *config.Config, repo *repository.SQLiteRepository) ledgerStore {
	if cfg.Ledger.Backend == config.LedgerBackendJSON {
		log.Infof("Using JSON encounter ledger in %s", cfg.Ledger.Dir)
		return ledger.NewJSONStore(cfg.Ledger.Dir)
	}
	log.Info("Using SQLite encounter ledger")
	return repo
}

// newPlayer liefert den Audio-Player; ohne Audio werden Begrüßungen nur protokolliert
func newPlayer(cfg config.AudioConfig) (audio.Player, error) {
	if !cfg.Enabled {
		log.Info("Audio output disabled, greetings are only logged")
		return audio.NullPlayer{}, nil
	}
	return audio.NewExecPlayer(cfg.PlayerCommand)
}

// seconds wandelt Sekunden aus der Konfiguration in eine Dauer
func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// newGreeter baut Datenbank, Ledger, Audio, Scheduler, Prozessor und Ereignis-Sinks auf
func newGreeter(ctx context.Context, cfg *config.Config, now time.Time) (*greeter, error) {
	if err := config.EnsureDirectories(cfg); err != nil {
		return nil, err
	}

	g := &greeter{cfg: cfg}
	ctx, g.cancel = context.WithCancel(ctx)

	conn, err := db.Open(cfg.DB.File)
	if err != nil {
		g.cancel()
		return nil, err
	}
	g.conn = conn
	g.repo = repository.NewSQLiteRepository(conn)
	g.store = openLedgerStore(cfg, g.repo)
	g.ledger = ledger.New(g.store, "")

	if g.library, err = audio.NewLibrary(cfg.Audio); err != nil {
		g.close()
		return nil, err
	}
	if g.phrases, err = audio.NewPhrases(cfg.Server.Language); err != nil {
		g.close()
		return nil, err
	}
	if g.player, err = newPlayer(cfg.Audio); err != nil {
		g.close()
		return nil, err
	}

	chain, err := greeting.NewChain(cfg.Greeting.Mode, g.library, cfg.Greeting.CustomVoice,
		rand.New(rand.NewPCG(uint64(now.UnixNano()), uint64(now.Unix()))))
	if err != nil {
		g.close()
		return nil, err
	}
	if missing := g.checkClips(); len(missing) > 0 {
		log.Warnf("Missing greeting clips: %v (run \"greeter clips generate\")", missing)
	}

	scheduler := greeting.NewScheduler(greeting.Config{
		Mode:                cfg.Greeting.Mode,
		PerIdentityCooldown: seconds(cfg.Greeting.PerIdentityCooldownSeconds),
		GlobalCooldown:      seconds(cfg.Greeting.GlobalCooldownSeconds),
	}, g.player, chain, g.ledger, nil)

	tracker := tracking.New(tracking.Config{
		MatchThreshold:   cfg.Tracker.MatchThreshold,
		SizeWeight:       cfg.Tracker.SizeWeight,
		MaxFramesMissing: cfg.Tracker.MaxFramesMissing,
		Assignment:       cfg.Tracker.Assignment,
	})

	if cfg.Snapshots.Enabled {
		g.snapshots = processor.NewSnapshotWriter(cfg.Snapshots.Dir, cfg.Snapshots.Margin, cfg.Snapshots.Quality, cfg.Snapshots.Workers, g.repo)
	}

	events := processor.NewEventBus(256, g.sinks(ctx)...)

	g.proc = processor.New(processor.Options{
		Mode:      cfg.Greeting.Mode,
		Tracker:   tracker,
		Scheduler: scheduler,
		Ledger:    g.ledger,
		Snapshots: g.snapshots,
		Events:    events,
	}, now)
	if g.snapshots != nil {
		g.snapshots.OnSaved(g.proc.EmitSnapshotSaved)
	}

	g.cleanup = cleanup.NewService(g.repo, g.store, cfg.Cleanup.RetentionDays, cfg.Snapshots.Dir, 24*time.Hour)
	if g.cleanup != nil {
		g.cleanup.StartBackgroundCleanup()
	}
	return g, nil
}

// sinks erstellt die Empfänger des Ereignisbusses
func (g *greeter) sinks(ctx context.Context) []processor.Sink {
	sinks := []processor.Sink{repository.NewEventLog(g.repo)}

	if g.cfg.Server.Enabled {
		g.hub = sse.NewHub(g.cfg.Server.SnapshotURL)
		go g.hub.Run(ctx)
		sinks = append(sinks, g.hub)
	}

	if !g.cfg.MQTT.Enabled {
		log.Info("MQTT is disabled in config.")
		return sinks
	}
	client := mqtt.NewClient(g.cfg.MQTT)
	if err := client.Start(); err != nil {
		log.Warnf("Failed to initialize MQTT client: %v. Continuing without MQTT.", err)
		return sinks
	}
	g.mqtt = client
	sinks = append(sinks, mqtt.NewEventPublisher(client))

	if g.cfg.MQTT.HomeAssistant.Enabled {
		discovery := homeassistant.NewDiscoveryManager(client, g.cfg.MQTT.HomeAssistant, Version)
		if err := discovery.RegisterSensors(); err != nil {
			log.WithError(err).Error("Failed to register Home Assistant sensors")
		}
		sinks = append(sinks, homeassistant.NewPublisher(client))
	}
	return sinks
}

// checkClips liefert die Clips, die der gewählte Modus braucht, aber nicht vorhanden sind
func (g *greeter) checkClips() []string {
	var missing []string
	if _, err := g.library.Default(); err != nil {
		missing = append(missing, g.library.DefaultPath())
	}
	switch g.cfg.Greeting.Mode {
	case config.ModeCustomRecording:
		if _, err := g.library.Custom(g.cfg.Greeting.CustomVoice); err != nil {
			missing = append(missing, g.library.CustomPath(g.cfg.Greeting.CustomVoice))
		}
	case config.ModeRandomLanguage:
		if len(g.library.Languages()) == 0 {
			missing = append(missing, g.library.LanguagePath("<lang>"))
		}
	}
	return missing
}

// startServer startet die Status-API, wenn sie aktiviert ist. extra sind zusätzliche Routen.
func (g *greeter) startServer(extra ...api.RouteRegistrar) {
	if !g.cfg.Server.Enabled {
		return
	}
	var pool *processor.WorkerPool
	if g.snapshots != nil {
		pool = g.snapshots.Pool()
	}
	router := api.NewRouter(handlers.Dependencies{
		Config:  g.cfg,
		State:   g.proc,
		Ledger:  g.ledger,
		Store:   g.store,
		Days:    g.store,
		Repo:    g.repo,
		Phrases: g.phrases,
		Library: g.library,
		Pool:    pool,
		Hub:     g.hub,
		Version: Version,
	}, extra...)
	g.server = api.NewServer(g.cfg.Server, router)
	g.server.Start()
}

// Close schreibt den Ledger und gibt alle Ressourcen frei
func (g *greeter) Close(ctx context.Context) error {
	var err error
	if g.proc != nil {
		if err = g.proc.Close(); err != nil {
			log.WithError(err).Error("Failed to flush encounter ledger")
		}
	}
	if p, ok := g.player.(*audio.ExecPlayer); ok {
		p.Stop()
	}
	if g.server != nil {
		if shutdownErr := g.server.Shutdown(ctx); shutdownErr != nil {
			log.WithError(shutdownErr).Warn("Status API shutdown failed")
		}
	}
	g.close()
	return err
}

func (g *greeter) close() {
	if g.cleanup != nil {
		g.cleanup.StopBackgroundCleanup()
	}
	if g.mqtt != nil {
		g.mqtt.Stop()
	}
	g.cancel()
	if g.conn != nil {
		if sqlDB, err := g.conn.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

// statusLines liefert die Textzeilen für das Vorschaufenster
func statusLines(state processor.State) []string {
	return []string{
		fmt.Sprintf("Faces: %d", state.Present),
		fmt.Sprintf("Greetings today: %d", state.LedgerTotal),
		fmt.Sprintf("Mode: %s", state.Mode),
	}
}
