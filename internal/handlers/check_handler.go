package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mstrack/mstrack/internal/services/dispatch"
	"github.com/ternarybob/arbor"
)

// CheckHandler handles direct status-check triggers.
type CheckHandler struct {
	dispatch *dispatch.Service
	logger   arbor.ILogger
}

// NewCheckHandler creates a new CheckHandler
func NewCheckHandler(dispatchService *dispatch.Service, logger arbor.ILogger) *CheckHandler {
	return &CheckHandler{
		dispatch: dispatchService,
		logger:   logger,
	}
}

type checkRequest struct {
	Alias       string `json:"alias"`
	Destination string `json:"destination,omitempty"`
}

// TriggerCheckHandler handles POST /api/check
func (h *CheckHandler) TriggerCheckHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Alias == "" {
		WriteError(w, http.StatusBadRequest, "alias is required")
		return
	}
	if req.Destination == "" {
		req.Destination = req.Alias
	}

	submission, err := h.dispatch.Trigger(r.Context(), req.Alias, req.Destination)
	if err != nil {
		if errors.Is(err, dispatch.ErrNoCredentials) {
			WriteJSON(w, http.StatusOK, map[string]string{
				"status": "no_credentials",
			})
			return
		}
		h.logger.Error().Err(err).Msg("Trigger failed")
		WriteError(w, http.StatusInternalServerError, "Failed to enqueue status check")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":   "queued",
		"job_id":   submission.Job.ID,
		"position": submission.Position,
	})
}
