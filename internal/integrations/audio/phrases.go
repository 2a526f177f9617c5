package audio

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Nachrichten-IDs der Begrüßungstexte
const (
	MessageHello          = "hello"
	MessageGreeting       = "greeting"
	MessageEncounterFirst = "encounter_first"
	MessageEncounterAgain = "encounter_again"
)

// Phrases liefert die Begrüßungstexte pro Sprache für die Sprachsynthese und die API
type Phrases struct {
	bundle  *i18n.Bundle
	matcher language.Matcher
}

// NewPhrases lädt die eingebetteten Übersetzungen; defaultLang ist die Rückfallsprache
func NewPhrases(defaultLang string) (*Phrases, error) {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("invalid default language %q: %w", defaultLang, err)
	}

	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if _, err := bundle.LoadMessageFileFS(localeFS, path.Join("locales", e.Name())); err != nil {
			return nil, fmt.Errorf("load %s: %w", e.Name(), err)
		}
	}

	return &Phrases{
		bundle:  bundle,
		matcher: language.NewMatcher(bundle.LanguageTags()),
	}, nil
}

// Languages liefert die Sprachcodes aller verfügbaren Übersetzungen
func (p *Phrases) Languages() []string {
	tags := p.bundle.LanguageTags()
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.String())
	}
	return out
}

// Match wählt die beste verfügbare Sprache für einen Accept-Language-Wert oder Sprachcode
func (p *Phrases) Match(accept string) string {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return p.bundle.LanguageTags()[0].String()
	}
	_, idx, _ := p.matcher.Match(tags...)
	return p.bundle.LanguageTags()[idx].String()
}

// Text liefert die Nachricht id in lang; data füllt Platzhalter wie {{.Count}}
func (p *Phrases) Text(lang, id string, data map[string]interface{}) string {
	loc := i18n.NewLocalizer(p.bundle, lang)
	msg, err := loc.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil {
		return id
	}
	return strings.TrimSpace(msg)
}

// Greeting liefert den Begrüßungstext einer Sprache
func (p *Phrases) Greeting(lang string) string {
	return p.Text(lang, MessageGreeting, nil)
}

// Encounter liefert den Text für die n-te Begegnung
func (p *Phrases) Encounter(lang string, count int) string {
	if count <= 1 {
		return p.Text(lang, MessageEncounterFirst, nil)
	}
	return p.Text(lang, MessageEncounterAgain, map[string]interface{}{"Count": count})
}
