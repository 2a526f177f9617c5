package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Begrüßungsmodi
const (
	ModeRandomLanguage        = "random-language"
	ModeCustomRecording       = "custom-recording"
	ModeSequentialByEncounter = "sequential-by-encounter"
)

// Ledger-Backends
const (
	LedgerBackendSQLite = "sqlite"
	LedgerBackendJSON   = "json"
)

// Config repräsentiert die Hauptkonfiguration der Anwendung
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Camera    CameraConfig    `mapstructure:"camera"`
	Detector  DetectorConfig  `mapstructure:"detector"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
	Greeting  GreetingConfig  `mapstructure:"greeting"`
	Audio     AudioConfig     `mapstructure:"audio"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Snapshots SnapshotsConfig `mapstructure:"snapshots"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Cleanup   CleanupConfig   `mapstructure:"cleanup"`
}

// ServerConfig enthält die Einstellungen der Status-API
type ServerConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	DataDir     string `mapstructure:"data_dir"`
	SnapshotURL string `mapstructure:"snapshot_url"`
	Timezone    string `mapstructure:"timezone"`
	Language    string `mapstructure:"language"`
	SessionKey  string `mapstructure:"session_key"`
}

// LogConfig enthält Log-Einstellungen
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"` // darf den Platzhalter {date} enthalten
}

// DBConfig enthält Datenbankeinstellungen
type DBConfig struct {
	File string `mapstructure:"file"`
}

// CameraConfig beschreibt die Videoquelle
type CameraConfig struct {
	Source     string `mapstructure:"source"` // Gerätepfad (/dev/video0) oder Index ("0")
	Width      int    `mapstructure:"width"`
	Height     int    `mapstructure:"height"`
	MaxIndex   int    `mapstructure:"max_index"`
	ShowWindow bool   `mapstructure:"show_window"`
	WindowName string `mapstructure:"window_name"`
}

// DetectorConfig enthält Einstellungen für die Gesichtserkennung
type DetectorConfig struct {
	Method           string  `mapstructure:"method"` // "haar" oder "yunet"
	CascadeFile      string  `mapstructure:"cascade_file"`
	ModelPath        string  `mapstructure:"model_path"`
	ScaleFactor      float64 `mapstructure:"scale_factor"`
	MinNeighbors     int     `mapstructure:"min_neighbors"`
	MinSizeWidth     int     `mapstructure:"min_size_width"`
	MinSizeHeight    int     `mapstructure:"min_size_height"`
	ConfidenceThresh float64 `mapstructure:"confidence_threshold"`
}

// TrackerConfig enthält die Parameter der Identitätsverfolgung
type TrackerConfig struct {
	MatchThreshold   float64 `mapstructure:"match_threshold"`
	SizeWeight       float64 `mapstructure:"size_weight"`
	MaxFramesMissing int     `mapstructure:"max_frames_missing"`
	Assignment       string  `mapstructure:"assignment"` // "first" (Standard) oder "nearest"
}

// GreetingConfig enthält die Begrüßungsrichtlinie
type GreetingConfig struct {
	Mode                       string  `mapstructure:"mode"`
	PerIdentityCooldownSeconds float64 `mapstructure:"per_identity_cooldown_seconds"`
	GlobalCooldownSeconds      float64 `mapstructure:"global_cooldown_seconds"`
	CustomVoice                string  `mapstructure:"custom_voice"`
}

// AudioConfig enthält die Einstellungen für Wiedergabe und Clip-Erzeugung
type AudioConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Dir           string   `mapstructure:"dir"`
	PlayerCommand string   `mapstructure:"player_command"` // {file} wird durch den Clip-Pfad ersetzt
	SynthCommand  string   `mapstructure:"synth_command"`
	RecordCommand string   `mapstructure:"record_command"`
	Languages     []string `mapstructure:"languages"`
	DefaultClip   string   `mapstructure:"default_clip"`
	Manifest      string   `mapstructure:"manifest"`
}

// LedgerConfig enthält die Einstellungen des Begegnungszählers
type LedgerConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"` // nur für das JSON-Backend
}

// SnapshotsConfig enthält die Einstellungen für Identifikationsfotos
type SnapshotsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
	Margin  int    `mapstructure:"margin"`
	Workers int    `mapstructure:"workers"`
	Quality int    `mapstructure:"quality"`
}

// MQTTConfig enthält die Konfiguration für den MQTT-Client
type MQTTConfig struct {
	Enabled       bool                `mapstructure:"enabled"`
	Broker        string              `mapstructure:"broker"`
	Port          int                 `mapstructure:"port"`
	Username      string              `mapstructure:"username"`
	Password      string              `mapstructure:"password"`
	ClientID      string              `mapstructure:"client_id"`
	TopicPrefix   string              `mapstructure:"topic_prefix"`
	HomeAssistant HomeAssistantConfig `mapstructure:"homeassistant"`
}

// HomeAssistantConfig enthält die Konfiguration für die Home Assistant Integration
type HomeAssistantConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	DiscoveryPrefix string `mapstructure:"discovery_prefix"`
	DeviceName      string `mapstructure:"device_name"`
}

// CleanupConfig enthält Bereinigungseinstellungen
type CleanupConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

// Load lädt die Konfiguration aus Datei, Umgebungsvariablen und Standardwerten
func Load(configPath string) (*Config, error) {
	// .env ist optional
	_ = godotenv.Load()

	v := viper.New()

	// Standardwerte festlegen
	setDefaults(v)

	// Konfigurationsdatei laden, wenn vorhanden
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Warnf("Config file %s does not exist, using defaults", configPath)
		} else {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Infof("Config loaded from %s", configPath)
		}
	}

	// Umgebungsvariablen überlagern die Konfiguration
	v.SetEnvPrefix("GREETER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate prüft die Werte, die nicht sinnvoll auf Standardwerte zurückfallen können
func (c *Config) Validate() error {
	switch c.Greeting.Mode {
	case ModeRandomLanguage, ModeCustomRecording, ModeSequentialByEncounter:
	default:
		return fmt.Errorf("invalid greeting mode %q", c.Greeting.Mode)
	}
	if c.Greeting.Mode == ModeCustomRecording && c.Greeting.CustomVoice == "" {
		return fmt.Errorf("greeting mode %s requires greeting.custom_voice", ModeCustomRecording)
	}
	if c.Greeting.PerIdentityCooldownSeconds < 0 || c.Greeting.GlobalCooldownSeconds < 0 {
		return fmt.Errorf("greeting cooldowns must not be negative")
	}
	switch c.Ledger.Backend {
	case LedgerBackendSQLite, LedgerBackendJSON:
	default:
		return fmt.Errorf("invalid ledger backend %q", c.Ledger.Backend)
	}
	if c.Tracker.MaxFramesMissing < 0 {
		return fmt.Errorf("tracker.max_frames_missing must not be negative")
	}
	return nil
}

// setDefaults legt Standardwerte für die Konfiguration fest
func setDefaults(v *viper.Viper) {
	// Server-Standardwerte
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.data_dir", "data")
	v.SetDefault("server.snapshot_url", "/snapshots")
	v.SetDefault("server.timezone", "")
	v.SetDefault("server.language", "en")
	v.SetDefault("server.session_key", "face-greeter")

	// Log-Standardwerte
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/face_detection_{date}.log")

	// DB-Standardwerte
	v.SetDefault("db.file", "data/greeter.db")

	// Kamera
	v.SetDefault("camera.source", "")
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)
	v.SetDefault("camera.max_index", 10)
	v.SetDefault("camera.show_window", true)
	v.SetDefault("camera.window_name", "Face Detection")

	// Detektor
	v.SetDefault("detector.method", "haar")
	v.SetDefault("detector.cascade_file", "data/haarcascade_frontalface_default.xml")
	v.SetDefault("detector.model_path", "models/face_detection_yunet.onnx")
	v.SetDefault("detector.scale_factor", 1.1)
	v.SetDefault("detector.min_neighbors", 5)
	v.SetDefault("detector.min_size_width", 30)
	v.SetDefault("detector.min_size_height", 30)
	v.SetDefault("detector.confidence_threshold", 0.6)

	// Tracker
	v.SetDefault("tracker.match_threshold", 100.0)
	v.SetDefault("tracker.size_weight", 100.0)
	v.SetDefault("tracker.max_frames_missing", 10)
	v.SetDefault("tracker.assignment", "first")

	// Begrüßung
	v.SetDefault("greeting.mode", ModeRandomLanguage)
	v.SetDefault("greeting.per_identity_cooldown_seconds", 10.0)
	v.SetDefault("greeting.global_cooldown_seconds", 3.0)
	v.SetDefault("greeting.custom_voice", "")

	// Audio
	v.SetDefault("audio.enabled", true)
	v.SetDefault("audio.dir", "data/audio")
	v.SetDefault("audio.player_command", "aplay -q {file}")
	v.SetDefault("audio.synth_command", "espeak -v {lang} -w {file} {text}")
	v.SetDefault("audio.record_command", "arecord -q -f S16_LE -r 44100 -c 1 -d {duration} {file}")
	v.SetDefault("audio.languages", []string{"en", "de", "es", "fr", "it", "pt"})
	v.SetDefault("audio.default_clip", "hello.wav")
	v.SetDefault("audio.manifest", "encounters.yaml")

	// Ledger
	v.SetDefault("ledger.backend", LedgerBackendSQLite)
	v.SetDefault("ledger.dir", "data/encounters")

	// Snapshots
	v.SetDefault("snapshots.enabled", true)
	v.SetDefault("snapshots.dir", "data/snapshots")
	v.SetDefault("snapshots.margin", 20)
	v.SetDefault("snapshots.workers", 2)
	v.SetDefault("snapshots.quality", 90)

	// MQTT-Standardwerte
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.client_id", "face-greeter")
	v.SetDefault("mqtt.topic_prefix", "face-greeter")
	v.SetDefault("mqtt.homeassistant.enabled", false)
	v.SetDefault("mqtt.homeassistant.discovery_prefix", "homeassistant")
	v.SetDefault("mqtt.homeassistant.device_name", "Face Greeter")

	// Cleanup-Standardwerte
	v.SetDefault("cleanup.retention_days", 30)
}

// EnsureDirectories stellt sicher, dass alle erforderlichen Verzeichnisse existieren
func EnsureDirectories(cfg *Config) error {
	dirs := []string{cfg.Server.DataDir, cfg.Audio.Dir}
	if cfg.Snapshots.Enabled {
		dirs = append(dirs, cfg.Snapshots.Dir)
	}
	if cfg.Ledger.Backend == LedgerBackendJSON {
		dirs = append(dirs, cfg.Ledger.Dir)
	}
	if cfg.Log.File != "" {
		dirs = append(dirs, filepath.Dir(cfg.Log.File))
	}
	if cfg.DB.File != "" {
		dirs = append(dirs, filepath.Dir(cfg.DB.File))
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
