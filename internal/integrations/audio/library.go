package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"face-greeter-go/config"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	languagePrefix  = "greeting_"
	customPrefix    = "custom_"
	encounterPrefix = "encounter_"
	clipExt         = ".wav"
)

// Manifest ordnet Begegnungsnummern Clip-Dateien zu (encounters.yaml)
type Manifest struct {
	Encounters map[int]string `yaml:"encounters"`
}

// Library findet Clips im Audio-Verzeichnis
type Library struct {
	dir         string
	defaultClip string
	languages   []string
	manifest    Manifest
}

// NewLibrary erstellt die Clip-Bibliothek und liest das Manifest, falls vorhanden
func NewLibrary(cfg config.AudioConfig) (*Library, error) {
	lib := &Library{
		dir:         cfg.Dir,
		defaultClip: cfg.DefaultClip,
		languages:   cfg.Languages,
	}
	if cfg.Manifest == "" {
		return lib, nil
	}

	path := cfg.Manifest
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.Dir, path)
	}
	m, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	lib.manifest = m
	return lib, nil
}

// LoadManifest liest ein Begegnungs-Manifest; eine fehlende Datei ergibt ein leeres Manifest
func LoadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return m, fmt.Errorf("read manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	log.Infof("Loaded %d encounter clips from %s", len(m.Encounters), path)
	return m, nil
}

// Dir liefert das Audio-Verzeichnis
func (l *Library) Dir() string {
	return l.dir
}

// DefaultPath liefert den Pfad des Standardclips
func (l *Library) DefaultPath() string {
	return filepath.Join(l.dir, l.defaultClip)
}

// LanguagePath liefert den Pfad des Clips für lang
func (l *Library) LanguagePath(lang string) string {
	return filepath.Join(l.dir, languagePrefix+lang+clipExt)
}

// CustomPath liefert den Pfad einer eigenen Aufnahme
func (l *Library) CustomPath(name string) string {
	return filepath.Join(l.dir, customPrefix+SanitizeName(name)+clipExt)
}

// EncounterPath liefert den Pfad des Clips für die n-te Begegnung
func (l *Library) EncounterPath(count int) string {
	if file, ok := l.manifest.Encounters[count]; ok {
		if filepath.IsAbs(file) {
			return file
		}
		return filepath.Join(l.dir, file)
	}
	return filepath.Join(l.dir, fmt.Sprintf("%s%d%s", encounterPrefix, count, clipExt))
}

func (l *Library) clip(name, path, lang string) (Clip, error) {
	if !usable(path) {
		return Clip{}, fmt.Errorf("%s: %w", path, ErrNoClip)
	}
	return Clip{Name: name, Path: path, Language: lang}, nil
}

// Default liefert den Standardclip
func (l *Library) Default() (Clip, error) {
	return l.clip("default", l.DefaultPath(), "")
}

// Language liefert den Begrüßungsclip einer Sprache
func (l *Library) Language(lang string) (Clip, error) {
	return l.clip(languagePrefix+lang, l.LanguagePath(lang), lang)
}

// Languages liefert die konfigurierten Sprachen, für die ein Clip vorhanden ist
func (l *Library) Languages() []string {
	var out []string
	for _, lang := range l.languages {
		if usable(l.LanguagePath(lang)) {
			out = append(out, lang)
		}
	}
	return out
}

// ConfiguredLanguages liefert alle konfigurierten Sprachen
func (l *Library) ConfiguredLanguages() []string {
	return append([]string(nil), l.languages...)
}

// Custom liefert eine eigene Aufnahme
func (l *Library) Custom(name string) (Clip, error) {
	return l.clip(customPrefix+SanitizeName(name), l.CustomPath(name), "")
}

// Encounter liefert den Clip für die n-te Begegnung
func (l *Library) Encounter(count int) (Clip, error) {
	return l.clip(fmt.Sprintf("%s%d", encounterPrefix, count), l.EncounterPath(count), "")
}

// CustomRecordings listet die Namen aller eigenen Aufnahmen
func (l *Library) CustomRecordings() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(l.dir, customPrefix+"*"+clipExt))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		base := filepath.Base(m)
		names = append(names, strings.TrimSuffix(strings.TrimPrefix(base, customPrefix), clipExt))
	}
	sort.Strings(names)
	return names, nil
}
