package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Greeting.Mode != ModeRandomLanguage {
		t.Errorf("Mode = %q, want %q", cfg.Greeting.Mode, ModeRandomLanguage)
	}
	if cfg.Greeting.PerIdentityCooldownSeconds != 10 {
		t.Errorf("PerIdentityCooldownSeconds = %v, want 10", cfg.Greeting.PerIdentityCooldownSeconds)
	}
	if cfg.Greeting.GlobalCooldownSeconds != 3 {
		t.Errorf("GlobalCooldownSeconds = %v, want 3", cfg.Greeting.GlobalCooldownSeconds)
	}
	if cfg.Tracker.MatchThreshold != 100 || cfg.Tracker.SizeWeight != 100 {
		t.Errorf("tracker defaults = %+v", cfg.Tracker)
	}
	if cfg.Tracker.MaxFramesMissing != 10 {
		t.Errorf("MaxFramesMissing = %d, want 10", cfg.Tracker.MaxFramesMissing)
	}
	if len(cfg.Audio.Languages) == 0 {
		t.Error("expected default languages")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
greeting:
  mode: sequential-by-encounter
  per_identity_cooldown_seconds: 20
ledger:
  backend: json
  dir: ` + filepath.Join(dir, "ledger") + `
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Greeting.Mode != ModeSequentialByEncounter {
		t.Errorf("Mode = %q", cfg.Greeting.Mode)
	}
	if cfg.Greeting.PerIdentityCooldownSeconds != 20 {
		t.Errorf("PerIdentityCooldownSeconds = %v, want 20", cfg.Greeting.PerIdentityCooldownSeconds)
	}
	// nicht gesetzte Werte behalten ihren Standard
	if cfg.Greeting.GlobalCooldownSeconds != 3 {
		t.Errorf("GlobalCooldownSeconds = %v, want 3", cfg.Greeting.GlobalCooldownSeconds)
	}
	if cfg.Ledger.Backend != LedgerBackendJSON {
		t.Errorf("Backend = %q", cfg.Ledger.Backend)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GREETER_GREETING_MODE", ModeCustomRecording)
	t.Setenv("GREETER_GREETING_CUSTOM_VOICE", "grandma")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Greeting.Mode != ModeCustomRecording {
		t.Errorf("Mode = %q", cfg.Greeting.Mode)
	}
	if cfg.Greeting.CustomVoice != "grandma" {
		t.Errorf("CustomVoice = %q", cfg.Greeting.CustomVoice)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Greeting: GreetingConfig{Mode: ModeRandomLanguage},
			Ledger:   LedgerConfig{Backend: LedgerBackendSQLite},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown mode", func(c *Config) { c.Greeting.Mode = "shout" }, true},
		{"custom without voice", func(c *Config) { c.Greeting.Mode = ModeCustomRecording }, true},
		{"custom with voice", func(c *Config) {
			c.Greeting.Mode = ModeCustomRecording
			c.Greeting.CustomVoice = "me"
		}, false},
		{"negative cooldown", func(c *Config) { c.Greeting.GlobalCooldownSeconds = -1 }, true},
		{"unknown backend", func(c *Config) { c.Ledger.Backend = "redis" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
