package handlers

import (
	"net/http"

	"face-greeter-go/internal/utils"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// GetStatus gibt den Zustand der Kamerasitzung, Statistiken und Systemwerte zurück
func (h *APIHandler) GetStatus(c *gin.Context) {
	state := h.deps.State.State()

	response := gin.H{
		"version":       h.deps.Version,
		"session_id":    state.SessionID,
		"day":           state.Day,
		"mode":          state.Mode,
		"frames":        state.Frames,
		"present":       state.Present,
		"ledger_total":  state.LedgerTotal,
		"last_greeting": state.LastGreetingAt,
		"variant":       state.CurrentVariant,
		"started_at":    state.StartedAt,
		"updated_at":    state.UpdatedAt,
		"system":        utils.GetSystemStats(h.deps.Pool, h.deps.Config.Server.DataDir),
	}

	if h.deps.Hub != nil {
		response["sse_clients"] = h.deps.Hub.ClientCount()
	}

	if h.deps.Repo != nil {
		stats, err := h.deps.Repo.GetStatistics(state.Day)
		if err != nil {
			log.WithError(err).Warn("Failed to load statistics")
		} else {
			response["statistics"] = stats
		}
	}

	c.JSON(http.StatusOK, response)
}
