package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Status checks
	mux.HandleFunc("/api/check", s.app.CheckHandler.TriggerCheckHandler) // POST - direct trigger
	mux.HandleFunc("/api/webhook", s.app.WebhookHandler.WebhookHandler)  // GET verify, POST message

	// Observability
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)   // GET - queue/session stats
	mux.HandleFunc("/api/jobs", s.app.JobsHandler.ListJobsHandler)        // GET - job history
	mux.HandleFunc("/api/version", s.app.StatusHandler.GetVersionHandler) // GET
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)      // GET

	return mux
}
