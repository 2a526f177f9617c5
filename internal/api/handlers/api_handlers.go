package handlers

import (
	"net/http"
	"strconv"

	"face-greeter-go/config"
	"face-greeter-go/internal/api/middleware"
	"face-greeter-go/internal/core/ledger"
	"face-greeter-go/internal/core/processor"
	"face-greeter-go/internal/db/repository"
	"face-greeter-go/internal/integrations/audio"
	"face-greeter-go/internal/server/sse"
	"face-greeter-go/internal/util/timezone"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// StateProvider liefert den Zustand des Frame-Prozessors
type StateProvider interface {
	State() processor.State
}

// DayLister listet die gespeicherten Ledger-Tage
type DayLister interface {
	Days() ([]string, error)
}

// Dependencies bündelt alles, was die API-Handler lesen. Repo, Pool, Hub und Library dürfen nil sein.
type Dependencies struct {
	Config  *config.Config
	State   StateProvider
	Ledger  *ledger.Ledger
	Store   ledger.Store
	Days    DayLister
	Repo    repository.Repository
	Phrases *audio.Phrases
	Library *audio.Library
	Pool    *processor.WorkerPool
	Hub     *sse.Hub
	Version string
}

// APIHandler verarbeitet die Anfragen der Status-API
type APIHandler struct {
	deps Dependencies
}

// NewAPIHandler erstellt einen neuen API-Handler
func NewAPIHandler(deps Dependencies) *APIHandler {
	return &APIHandler{deps: deps}
}

// RegisterRoutes registriert die API-Routen
func (h *APIHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/status", h.GetStatus)
	router.GET("/identities", h.ListIdentities)
	router.GET("/ledger", h.GetLedger)
	router.GET("/ledger/:day", h.GetLedgerDay)
	router.GET("/greetings", h.ListGreetings)
	router.GET("/greetings/history", h.GreetingHistory)
	router.GET("/snapshots", h.ListSnapshots)
	router.GET("/events", h.StreamEvents)
}

// ListIdentities gibt die aktuell verfolgten Identitäten zurück
func (h *APIHandler) ListIdentities(c *gin.Context) {
	state := h.deps.State.State()
	c.JSON(http.StatusOK, gin.H{
		"session_id": state.SessionID,
		"present":    state.Present,
		"identities": state.Identities,
	})
}

// GetLedger gibt den Ledger des laufenden Tages und alle gespeicherten Tage zurück
func (h *APIHandler) GetLedger(c *gin.Context) {
	snapshot := h.deps.Ledger.Snapshot()

	var days []string
	if h.deps.Days != nil {
		var err error
		if days, err = h.deps.Days.Days(); err != nil {
			log.WithError(err).Warn("Failed to list ledger days")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"day":            snapshot.Day,
		"total_count":    snapshot.TotalCount,
		"per_key_counts": snapshot.PerKeyCounts,
		"dirty":          h.deps.Ledger.Dirty(),
		"days":           days,
	})
}

// GetLedgerDay gibt den Ledger eines Tages (YYYYMMDD) zurück
func (h *APIHandler) GetLedgerDay(c *gin.Context) {
	day := c.Param("day")
	if _, err := timezone.ParseDay(day); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "day must have the format YYYYMMDD"})
		return
	}

	// der laufende Tag kommt aus dem Speicher, da er noch ungespeicherte Zähler enthalten kann
	if day == h.deps.Ledger.Day() {
		c.JSON(http.StatusOK, h.deps.Ledger.Snapshot())
		return
	}

	snapshot, err := ledger.LoadSnapshot(h.deps.Store, day)
	if err != nil {
		log.WithError(err).Errorf("Failed to load ledger for %s", day)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load ledger"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// ListGreetings gibt die Begrüßungstexte in der gewählten Sprache zurück
func (h *APIHandler) ListGreetings(c *gin.Context) {
	lang := middleware.Language(c)
	p := h.deps.Phrases

	var clips []string
	if h.deps.Library != nil {
		clips = h.deps.Library.Languages()
	}

	phrases := gin.H{
		audio.MessageHello:          p.Text(lang, audio.MessageHello, nil),
		audio.MessageGreeting:       p.Greeting(lang),
		audio.MessageEncounterFirst: p.Encounter(lang, 1),
		audio.MessageEncounterAgain: p.Encounter(lang, 2),
	}

	c.JSON(http.StatusOK, gin.H{
		"language":       lang,
		"languages":      p.Languages(),
		"phrases":        phrases,
		"clip_languages": clips,
	})
}

// GreetingHistory gibt die protokollierten Begrüßungen eines Tages zurück (Standard: heute)
func (h *APIHandler) GreetingHistory(c *gin.Context) {
	if h.deps.Repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not available"})
		return
	}

	day := c.DefaultQuery("day", timezone.DayStamp(timezone.Now()))
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		limit = 50
	}

	events, err := h.deps.Repo.GetGreetingEvents(day, limit)
	if err != nil {
		log.WithError(err).Error("Failed to load greeting events")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load greeting events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "count": len(events), "events": events})
}

// ListSnapshots gibt die Identifikationsfotos mit Pagination zurück
func (h *APIHandler) ListSnapshots(c *gin.Context) {
	if h.deps.Repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not available"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	snapshots, total, err := h.deps.Repo.GetSnapshots(limit, offset)
	if err != nil {
		log.WithError(err).Error("Failed to load snapshots")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load snapshots"})
		return
	}

	baseURL := h.deps.Config.Server.SnapshotURL
	items := make([]gin.H, 0, len(snapshots))
	for _, s := range snapshots {
		items = append(items, gin.H{
			"id":          s.ID,
			"session_id":  s.SessionID,
			"identity_id": s.IdentityID,
			"day":         s.Day,
			"url":         baseURL + "/" + s.FilePath,
			"box":         s.Box,
			"taken_at":    s.TakenAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "limit": limit, "offset": offset, "snapshots": items})
}
