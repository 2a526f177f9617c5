// Package audio stellt Begrüßungsclips bereit und spielt sie ab.
package audio

import (
	"errors"
	"os"
	"strings"
)

var (
	// ErrNoClip wird gemeldet, wenn ein angeforderter Clip fehlt oder leer ist
	ErrNoClip = errors.New("audio clip not available")
	// ErrPlayerBusy wird gemeldet, wenn bereits ein Clip läuft
	ErrPlayerBusy = errors.New("audio player busy")
)

// Clip ist eine abspielbare Audiodatei
type Clip struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Language string `json:"language,omitempty"`
}

// Player spielt Clips asynchron ab. Es läuft höchstens ein Clip gleichzeitig.
type Player interface {
	// IsPlaying meldet, ob gerade ein Clip läuft; blockiert nie
	IsPlaying() bool
	// Play startet die Wiedergabe und kehrt sofort zurück
	Play(clip Clip) error
}

// NullPlayer verwirft alle Clips; wird bei deaktivierter Audioausgabe verwendet
type NullPlayer struct{}

func (NullPlayer) IsPlaying() bool { return false }

func (NullPlayer) Play(Clip) error { return nil }

// usable meldet, ob path existiert und nicht leer ist.
// Leere Dateien entstehen, wenn die Erzeugung eines Clips fehlgeschlagen ist.
func usable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

// SanitizeName macht aus einem beliebigen Namen einen Dateinamen-Bestandteil
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// expand ersetzt {key}-Platzhalter in den Argumenten eines Befehls.
// Die Ersetzung erfolgt pro Argument, damit Pfade und Texte mit Leerzeichen erhalten bleiben.
func expand(command string, values map[string]string) []string {
	fields := strings.Fields(command)
	for i, f := range fields {
		for k, v := range values {
			f = strings.ReplaceAll(f, "{"+k+"}", v)
		}
		fields[i] = f
	}
	return fields
}
