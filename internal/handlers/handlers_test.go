package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mstrack/mstrack/internal/interfaces"
	"github.com/mstrack/mstrack/internal/models"
	"github.com/mstrack/mstrack/internal/services/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

type fakeCredentials struct {
	matches []models.PortalCredential
}

func (f *fakeCredentials) MatchesForAlias(context.Context, string) ([]models.PortalCredential, error) {
	return f.matches, nil
}

type fakeQueue struct {
	submitted []*models.AutomationJob
}

func (f *fakeQueue) Submit(job *models.AutomationJob) (*interfaces.JobSubmission, error) {
	f.submitted = append(f.submitted, job)
	done := make(chan error, 1)
	done <- nil
	close(done)
	return &interfaces.JobSubmission{Job: job, Position: len(f.submitted), Done: done}, nil
}

func (f *fakeQueue) Stats() interfaces.QueueStats {
	return interfaces.QueueStats{Enqueued: 3, Completed: 2, InFlight: 1}
}

type fakeMessenger struct {
	texts []string
}

func (m *fakeMessenger) SendText(_ context.Context, _, body string) error {
	m.texts = append(m.texts, body)
	return nil
}

func (m *fakeMessenger) SendImage(context.Context, string, string, string) error { return nil }

type fakeSessions struct{}

func (fakeSessions) Acquire(context.Context, string) (*models.Session, interfaces.UIDriver, error) {
	return nil, nil, nil
}
func (fakeSessions) Capture(context.Context, string, string) (string, error)  { return "", nil }
func (fakeSessions) DeliverAndClear(context.Context, string, string) error    { return nil }
func (fakeSessions) Release(string)                                           {}
func (fakeSessions) SweepExpired(time.Duration) int                           { return 0 }
func (fakeSessions) Count() int                                               { return 2 }
func (fakeSessions) CloseAll()                                                {}

type fakeJobStorage struct {
	records []*models.JobRecord
}

func (f *fakeJobStorage) SaveJobRecord(context.Context, *models.JobRecord) error { return nil }
func (f *fakeJobStorage) GetJobRecord(context.Context, string) (*models.JobRecord, error) {
	return nil, nil
}
func (f *fakeJobStorage) ListJobRecords(_ context.Context, limit int) ([]*models.JobRecord, error) {
	if limit < len(f.records) {
		return f.records[:limit], nil
	}
	return f.records, nil
}

func newDispatch(creds *fakeCredentials, queue *fakeQueue, messenger *fakeMessenger) *dispatch.Service {
	return dispatch.NewService(creds, queue, messenger, arbor.NewLogger())
}

func TestTriggerCheck_Queued(t *testing.T) {
	queue := &fakeQueue{}
	creds := &fakeCredentials{matches: []models.PortalCredential{{URL: "u", Username: "n", Password: "p"}}}
	h := NewCheckHandler(newDispatch(creds, queue, &fakeMessenger{}), arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/check", strings.NewReader(`{"alias":"alice"}`))
	rec := httptest.NewRecorder()
	h.TriggerCheckHandler(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "queued", body["status"])
	require.Len(t, queue.submitted, 1)
	// destination defaults to the alias
	assert.Equal(t, "alice", queue.submitted[0].Destination)
}

func TestTriggerCheck_NoCredentials(t *testing.T) {
	queue := &fakeQueue{}
	messenger := &fakeMessenger{}
	h := NewCheckHandler(newDispatch(&fakeCredentials{}, queue, messenger), arbor.NewLogger())

	req := httptest.NewRequest("POST", "/api/check", strings.NewReader(`{"alias":"ghost"}`))
	rec := httptest.NewRecorder()
	h.TriggerCheckHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "no_credentials")
	assert.Empty(t, queue.submitted)
	require.Len(t, messenger.texts, 1)
}

func TestTriggerCheck_BadRequests(t *testing.T) {
	h := NewCheckHandler(newDispatch(&fakeCredentials{}, &fakeQueue{}, &fakeMessenger{}), arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.TriggerCheckHandler(rec, httptest.NewRequest("POST", "/api/check", strings.NewReader("{not json")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.TriggerCheckHandler(rec, httptest.NewRequest("POST", "/api/check", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.TriggerCheckHandler(rec, httptest.NewRequest("GET", "/api/check", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWebhook_VerificationEcho(t *testing.T) {
	h := NewWebhookHandler(newDispatch(&fakeCredentials{}, &fakeQueue{}, &fakeMessenger{}), "secret", arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.WebhookHandler(rec, httptest.NewRequest("GET", "/api/webhook?token=secret&echostr=challenge-42", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "challenge-42", rec.Body.String())

	rec = httptest.NewRecorder()
	h.WebhookHandler(rec, httptest.NewRequest("GET", "/api/webhook?token=wrong&echostr=x", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWebhook_MessageTriggersCheck(t *testing.T) {
	queue := &fakeQueue{}
	creds := &fakeCredentials{matches: []models.PortalCredential{{URL: "u", Username: "n", Password: "p"}}}
	h := NewWebhookHandler(newDispatch(creds, queue, &fakeMessenger{}), "", arbor.NewLogger())

	body := `{"from_user":"alice","content":"check my papers"}`
	rec := httptest.NewRecorder()
	h.WebhookHandler(rec, httptest.NewRequest("POST", "/api/webhook", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, queue.submitted, 1)
	assert.Equal(t, "alice", queue.submitted[0].RequesterID)
	assert.Equal(t, "alice", queue.submitted[0].Destination)
}

func TestWebhook_NoCredentialsStill200(t *testing.T) {
	h := NewWebhookHandler(newDispatch(&fakeCredentials{}, &fakeQueue{}, &fakeMessenger{}), "", arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.WebhookHandler(rec, httptest.NewRequest("POST", "/api/webhook", strings.NewReader(`{"from_user":"ghost"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusEndpoints(t *testing.T) {
	queue := &fakeQueue{}
	h := NewStatusHandler(queue, fakeSessions{}, arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.GetStatusHandler(rec, httptest.NewRequest("GET", "/api/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 2, body["sessions"])

	rec = httptest.NewRecorder()
	h.HealthHandler(rec, httptest.NewRequest("GET", "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestListJobs(t *testing.T) {
	storage := &fakeJobStorage{records: []*models.JobRecord{
		{ID: "job-1", Status: "completed"},
		{ID: "job-2", Status: "failed"},
	}}
	h := NewJobsHandler(storage, arbor.NewLogger())

	rec := httptest.NewRecorder()
	h.ListJobsHandler(rec, httptest.NewRequest("GET", "/api/jobs?limit=1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["count"])

	rec = httptest.NewRecorder()
	h.ListJobsHandler(rec, httptest.NewRequest("GET", "/api/jobs?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
