package greeting

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"face-greeter-go/config"
	"face-greeter-go/internal/integrations/audio"

	log "github.com/sirupsen/logrus"
)

// Variantennamen für Outcome.Variant und Scheduler.CurrentVariant
const (
	VariantDefault   = "default"
	VariantCustom    = "custom"
	VariantEncounter = "encounter"
	VariantLanguage  = "language"
)

// ClipSource stellt die verfügbaren Begrüßungsclips bereit.
// Fehlende Clips werden mit audio.ErrNoClip gemeldet.
type ClipSource interface {
	Default() (audio.Clip, error)
	Language(lang string) (audio.Clip, error)
	Languages() []string
	Custom(name string) (audio.Clip, error)
	Encounter(count int) (audio.Clip, error)
}

// Request enthält die Angaben, nach denen ein Clip ausgewählt wird
type Request struct {
	IdentityID     int
	EncounterCount int
}

// Resolver liefert einen Clip oder audio.ErrNoClip
type Resolver interface {
	Name() string
	Resolve(req Request) (audio.Clip, string, error)
}

// Chain ist eine geordnete Liste von Resolvern; der erste verfügbare Clip gewinnt
type Chain []Resolver

// Resolve probiert die Resolver der Reihe nach durch
func (c Chain) Resolve(req Request) (audio.Clip, string, error) {
	for _, r := range c {
		clip, variant, err := r.Resolve(req)
		if err == nil {
			return clip, variant, nil
		}
		if !errors.Is(err, audio.ErrNoClip) {
			log.WithError(err).WithField("resolver", r.Name()).Warn("Greeting resolver failed")
			continue
		}
		log.Debugf("Resolver %s has no clip for identity %d (encounter %d)", r.Name(), req.IdentityID, req.EncounterCount)
	}
	return audio.Clip{}, "", audio.ErrNoClip
}

// NewChain baut die Fallback-Kette für einen Begrüßungsmodus
func NewChain(mode string, src ClipSource, customVoice string, rng *rand.Rand) (Chain, error) {
	random := &RandomLanguageResolver{Source: src, Rand: rng}
	switch mode {
	case config.ModeRandomLanguage:
		return Chain{random}, nil
	case config.ModeCustomRecording:
		return Chain{&CustomResolver{Source: src, Voice: customVoice}, &DefaultResolver{Source: src}, random}, nil
	case config.ModeSequentialByEncounter:
		return Chain{&EncounterResolver{Source: src}, &DefaultResolver{Source: src}, random}, nil
	default:
		return nil, fmt.Errorf("unknown greeting mode %q", mode)
	}
}

// RandomLanguageResolver wählt gleichverteilt eine der verfügbaren Sprachen
type RandomLanguageResolver struct {
	Source ClipSource
	Rand   *rand.Rand
}

func (r *RandomLanguageResolver) Name() string { return "random-language" }

func (r *RandomLanguageResolver) Resolve(Request) (audio.Clip, string, error) {
	langs := r.Source.Languages()
	if len(langs) == 0 {
		return audio.Clip{}, "", audio.ErrNoClip
	}
	var idx int
	if r.Rand != nil {
		idx = r.Rand.IntN(len(langs))
	} else {
		idx = rand.IntN(len(langs))
	}
	clip, err := r.Source.Language(langs[idx])
	if err != nil {
		return audio.Clip{}, "", err
	}
	return clip, VariantLanguage + ":" + langs[idx], nil
}

// CustomResolver liefert immer dieselbe eigene Aufnahme
type CustomResolver struct {
	Source ClipSource
	Voice  string
}

func (r *CustomResolver) Name() string { return "custom" }

func (r *CustomResolver) Resolve(Request) (audio.Clip, string, error) {
	if r.Voice == "" {
		return audio.Clip{}, "", audio.ErrNoClip
	}
	clip, err := r.Source.Custom(r.Voice)
	if err != nil {
		return audio.Clip{}, "", err
	}
	return clip, VariantCustom + ":" + r.Voice, nil
}

// EncounterResolver liefert den Clip für die n-te Begegnung
type EncounterResolver struct {
	Source ClipSource
}

func (r *EncounterResolver) Name() string { return "encounter" }

func (r *EncounterResolver) Resolve(req Request) (audio.Clip, string, error) {
	clip, err := r.Source.Encounter(req.EncounterCount)
	if err != nil {
		return audio.Clip{}, "", err
	}
	return clip, fmt.Sprintf("%s:%d", VariantEncounter, req.EncounterCount), nil
}

// DefaultResolver liefert den Standardclip
type DefaultResolver struct {
	Source ClipSource
}

func (r *DefaultResolver) Name() string { return "default" }

func (r *DefaultResolver) Resolve(Request) (audio.Clip, string, error) {
	clip, err := r.Source.Default()
	if err != nil {
		return audio.Clip{}, "", err
	}
	return clip, VariantDefault, nil
}
