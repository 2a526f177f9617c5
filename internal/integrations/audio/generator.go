package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// Job beschreibt einen zu erzeugenden Clip
type Job struct {
	Path     string
	Language string
	Text     string
}

// Generator erzeugt Begrüßungsclips per Sprachsynthese (Standard: espeak)
type Generator struct {
	lib     *Library
	phrases *Phrases
	command string
	lang    string
}

// NewGenerator erstellt einen Generator; lang ist die Sprache für Standard- und Begegnungsclips
func NewGenerator(lib *Library, phrases *Phrases, synthCommand, lang string) *Generator {
	return &Generator{lib: lib, phrases: phrases, command: synthCommand, lang: lang}
}

// Plan listet alle Clips: Standardclip, ein Clip pro Sprache und encounters Begegnungsclips
func (g *Generator) Plan(encounters int) []Job {
	jobs := []Job{{
		Path:     g.lib.DefaultPath(),
		Language: g.lang,
		Text:     g.phrases.Text(g.lang, MessageHello, nil),
	}}
	for _, lang := range g.lib.ConfiguredLanguages() {
		jobs = append(jobs, Job{
			Path:     g.lib.LanguagePath(lang),
			Language: lang,
			Text:     g.phrases.Greeting(lang),
		})
	}
	for n := 1; n <= encounters; n++ {
		jobs = append(jobs, Job{
			Path:     g.lib.EncounterPath(n),
			Language: g.lang,
			Text:     g.phrases.Encounter(g.lang, n),
		})
	}
	return jobs
}

// Generate erzeugt einen Clip. Vorhandene Dateien werden übersprungen, außer force ist gesetzt.
// Schlägt die Synthese fehl, bleibt eine leere Datei zurück, damit der Clip nicht bei jedem
// Start erneut erzeugt wird; leere Dateien gelten beim Abspielen als fehlend.
func (g *Generator) Generate(ctx context.Context, job Job, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(job.Path); err == nil {
			return false, nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(job.Path), 0755); err != nil {
		return false, fmt.Errorf("create audio directory: %w", err)
	}

	args := expand(g.command, map[string]string{
		"lang": job.Language,
		"file": job.Path,
		"text": job.Text,
	})
	if len(args) == 0 {
		return false, fmt.Errorf("empty synth command")
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if out, err := cmd.CombinedOutput(); err != nil {
		log.WithError(err).WithField("file", job.Path).Errorf("Failed to create greeting sound: %s", out)
		if touchErr := os.WriteFile(job.Path, nil, 0644); touchErr != nil {
			log.WithError(touchErr).Warn("Failed to create placeholder clip")
		}
		return false, fmt.Errorf("synthesize %s: %w", job.Path, err)
	}

	log.Infof("Created greeting sound file: %s", job.Path)
	return true, nil
}

// Record nimmt eine eigene Begrüßung auf (Standard: arecord) und liefert den Dateipfad
func Record(ctx context.Context, lib *Library, recordCommand, name string, seconds int) (string, error) {
	if SanitizeName(name) == "" {
		return "", fmt.Errorf("recording name must not be empty")
	}
	if seconds <= 0 {
		return "", fmt.Errorf("recording duration must be positive")
	}
	path := lib.CustomPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create audio directory: %w", err)
	}

	args := expand(recordCommand, map[string]string{
		"file":     path,
		"duration": strconv.Itoa(seconds),
	})
	if len(args) == 0 {
		return "", fmt.Errorf("empty record command")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("record %s: %w", path, err)
	}
	if !usable(path) {
		return "", fmt.Errorf("recording %s is empty", path)
	}
	log.Infof("Audio saved to %s", path)
	return path, nil
}
