package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mstrack/mstrack/internal/services/dispatch"
	"github.com/ternarybob/arbor"
)

// WebhookHandler receives messaging-channel pushes: the GET verification
// handshake and POSTed user messages. Any free-text message from a user
// triggers a status check for that user.
type WebhookHandler struct {
	dispatch *dispatch.Service
	token    string
	logger   arbor.ILogger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(dispatchService *dispatch.Service, token string, logger arbor.ILogger) *WebhookHandler {
	return &WebhookHandler{
		dispatch: dispatchService,
		token:    token,
		logger:   logger,
	}
}

type webhookMessage struct {
	FromUser string `json:"from_user"`
	Content  string `json:"content"`
}

// WebhookHandler handles GET and POST /api/webhook
func (h *WebhookHandler) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.verify(w, r)
	case http.MethodPost:
		h.receive(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// verify answers the channel's URL-ownership handshake by echoing the
// challenge string.
func (h *WebhookHandler) verify(w http.ResponseWriter, r *http.Request) {
	if h.token != "" && r.URL.Query().Get("token") != h.token {
		WriteError(w, http.StatusForbidden, "Invalid verification token")
		return
	}

	echo := r.URL.Query().Get("echostr")
	if echo == "" {
		WriteError(w, http.StatusBadRequest, "Missing echostr")
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(echo))
}

func (h *WebhookHandler) receive(w http.ResponseWriter, r *http.Request) {
	var msg webhookMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid message body")
		return
	}
	if msg.FromUser == "" {
		WriteError(w, http.StatusBadRequest, "Missing sender")
		return
	}

	h.logger.Info().
		Str("from", msg.FromUser).
		Str("content", strings.TrimSpace(msg.Content)).
		Msg("Webhook message received")

	// the sender's channel ID doubles as credential alias and reply address
	submission, err := h.dispatch.Trigger(r.Context(), msg.FromUser, msg.FromUser)
	if err != nil {
		if errors.Is(err, dispatch.ErrNoCredentials) {
			// the requester was already notified over the channel
			WriteSuccess(w, "No credentials for sender")
			return
		}
		h.logger.Error().Err(err).Msg("Webhook trigger failed")
		WriteError(w, http.StatusInternalServerError, "Failed to enqueue status check")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "queued",
		"job_id":   submission.Job.ID,
		"position": submission.Position,
	})
}
