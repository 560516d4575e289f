package handlers

import (
	"net/http"

	"github.com/mstrack/mstrack/internal/common"
	"github.com/mstrack/mstrack/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// StatusHandler handles HTTP requests for application status
type StatusHandler struct {
	queue    interfaces.JobQueue
	sessions interfaces.SessionManager
	logger   arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(queue interfaces.JobQueue, sessions interfaces.SessionManager, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		queue:    queue,
		sessions: sessions,
		logger:   logger,
	}
}

// GetStatusHandler handles GET /api/status
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":  common.GetVersion(),
		"queue":    h.queue.Stats(),
		"sessions": h.sessions.Count(),
	})
}

// GetVersionHandler handles GET /api/version
func (h *StatusHandler) GetVersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetFullVersion(),
	})
}

// HealthHandler handles GET /api/health
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
