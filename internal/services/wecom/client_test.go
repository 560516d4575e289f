package wecom

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestServer(t *testing.T) (*httptest.Server, *atomic.Int32, *atomic.Int32) {
	t.Helper()
	var tokenCalls, sendCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/cgi-bin/gettoken", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"errcode": 0, "access_token": "tok-1", "expires_in": 7200,
		})
	})
	mux.HandleFunc("/cgi-bin/message/send", func(w http.ResponseWriter, r *http.Request) {
		sendCalls.Add(1)
		if r.URL.Query().Get("access_token") == "" {
			json.NewEncoder(w).Encode(map[string]any{"errcode": 40014, "errmsg": "invalid token"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"errcode": 0})
	})
	mux.HandleFunc("/cgi-bin/media/upload", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("media")
		require.NoError(t, err)
		json.NewEncoder(w).Encode(map[string]any{"errcode": 0, "media_id": "media-42"})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &tokenCalls, &sendCalls
}

func newTestClient(server *httptest.Server) *Client {
	return NewClient(Config{
		APIBase:     server.URL,
		CorpID:      "corp",
		CorpSecret:  "secret",
		AgentID:     7,
		SendTimeout: 5 * time.Second,
	}, arbor.NewLogger())
}

func TestSendText_FetchesTokenOnce(t *testing.T) {
	server, tokenCalls, sendCalls := newTestServer(t)
	c := newTestClient(server)

	require.NoError(t, c.SendText(context.Background(), "alice", "hello"))
	require.NoError(t, c.SendText(context.Background(), "alice", "again"))

	assert.Equal(t, int32(1), tokenCalls.Load())
	assert.Equal(t, int32(2), sendCalls.Load())
}

func TestSendImage_UploadThenReference(t *testing.T) {
	server, _, sendCalls := newTestServer(t)
	c := newTestClient(server)

	path := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0644))

	require.NoError(t, c.SendImage(context.Background(), "alice", path, "Submissions Being Processed"))
	// one image message plus one caption text
	assert.Equal(t, int32(2), sendCalls.Load())
}

func TestSendImage_MissingFile(t *testing.T) {
	server, _, _ := newTestServer(t)
	c := newTestClient(server)

	err := c.SendImage(context.Background(), "alice", "/nonexistent/shot.png", "")
	require.Error(t, err)
}

func TestSendText_RejectedByAPI(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cgi-bin/gettoken", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"errcode": 0, "access_token": "tok", "expires_in": 7200})
	})
	mux.HandleFunc("/cgi-bin/message/send", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"errcode": 81013, "errmsg": "user not found"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(server)
	err := c.SendText(context.Background(), "ghost", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "81013")
}

func TestSendText_RetriesOnExpiredToken(t *testing.T) {
	var sends atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/cgi-bin/gettoken", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"errcode": 0, "access_token": "tok", "expires_in": 7200})
	})
	mux.HandleFunc("/cgi-bin/message/send", func(w http.ResponseWriter, r *http.Request) {
		if sends.Add(1) == 1 {
			json.NewEncoder(w).Encode(map[string]any{"errcode": 42001, "errmsg": "token expired"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"errcode": 0})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(server)
	require.NoError(t, c.SendText(context.Background(), "alice", "hello"))
	assert.Equal(t, int32(2), sends.Load())
}
