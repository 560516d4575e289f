package handlers

import (
	"net/http"
	"strconv"

	"github.com/mstrack/mstrack/internal/interfaces"
	"github.com/ternarybob/arbor"
)

const defaultJobListLimit = 50

// JobsHandler serves the job history endpoint.
type JobsHandler struct {
	storage interfaces.JobStorage
	logger  arbor.ILogger
}

// NewJobsHandler creates a new JobsHandler
func NewJobsHandler(storage interfaces.JobStorage, logger arbor.ILogger) *JobsHandler {
	return &JobsHandler{
		storage: storage,
		logger:  logger,
	}
}

// ListJobsHandler handles GET /api/jobs
func (h *JobsHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	limit := defaultJobListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	records, err := h.storage.ListJobRecords(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list job records")
		WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  records,
		"count": len(records),
	})
}
