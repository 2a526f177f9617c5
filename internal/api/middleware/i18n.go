package middleware

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// ContextLanguage ist der Gin-Kontextschlüssel der gewählten Sprache
const ContextLanguage = "language"

const sessionLanguageKey = "language"

// LanguageMatcher wählt die beste verfügbare Sprache; wird von audio.Phrases implementiert
type LanguageMatcher interface {
	Match(accept string) string
}

// I18n erstellt eine Middleware für die Sprachauswahl.
// Reihenfolge: ?lang= (wird in der Session gespeichert), Session, Accept-Language, Standardsprache.
func I18n(matcher LanguageMatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		var lang string

		if q := c.Query("lang"); q != "" {
			lang = matcher.Match(q)
			session.Set(sessionLanguageKey, lang)
			if err := session.Save(); err != nil {
				log.WithError(err).Debug("Failed to store language in session")
			}
		} else if stored, ok := session.Get(sessionLanguageKey).(string); ok && stored != "" {
			lang = stored
		} else {
			lang = matcher.Match(c.GetHeader("Accept-Language"))
		}

		c.Set(ContextLanguage, lang)
		c.Next()
	}
}

// Language liefert die von I18n gewählte Sprache
func Language(c *gin.Context) string {
	return c.GetString(ContextLanguage)
}
