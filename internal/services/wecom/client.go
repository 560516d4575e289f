package wecom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
)

// Config holds the messaging-channel credentials.
type Config struct {
	APIBase     string
	CorpID      string
	CorpSecret  string
	AgentID     int
	SendTimeout time.Duration
}

// Client is a thin WeChat Work messaging client: cached access token,
// text messages, and two-step upload-then-reference image delivery. It
// implements interfaces.Messenger.
type Client struct {
	config Config
	http   *http.Client
	logger arbor.ILogger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a messenger client.
func NewClient(config Config, logger arbor.ILogger) *Client {
	timeout := config.SendTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type apiResponse struct {
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	MediaID     string `json:"media_id"`
}

// SendText delivers a plain text message to the destination user.
func (c *Client) SendText(ctx context.Context, destination, body string) error {
	payload := map[string]any{
		"touser":  destination,
		"msgtype": "text",
		"agentid": c.config.AgentID,
		"text":    map[string]string{"content": body},
	}
	return c.sendMessage(ctx, payload)
}

// SendImage uploads the image as temporary media, then sends a message
// referencing the returned media ID. The caption travels as a follow-up
// text because the image message type carries none.
func (c *Client) SendImage(ctx context.Context, destination, path, caption string) error {
	mediaID, err := c.uploadImage(ctx, path)
	if err != nil {
		return fmt.Errorf("image upload failed: %w", err)
	}

	payload := map[string]any{
		"touser":  destination,
		"msgtype": "image",
		"agentid": c.config.AgentID,
		"image":   map[string]string{"media_id": mediaID},
	}
	if err := c.sendMessage(ctx, payload); err != nil {
		return err
	}

	if caption != "" {
		if err := c.SendText(ctx, destination, caption); err != nil {
			c.logger.Warn().
				Str("caption", caption).
				Err(err).
				Msg("Caption delivery failed")
		}
	}
	return nil
}

func (c *Client) sendMessage(ctx context.Context, payload map[string]any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	url := fmt.Sprintf("%s/cgi-bin/message/send?access_token=%s", c.config.APIBase, token)
	resp, err := c.postJSON(ctx, url, body)
	if err != nil {
		return err
	}
	if resp.ErrCode != 0 {
		// expired or invalidated token: refresh once and retry
		if resp.ErrCode == 40014 || resp.ErrCode == 42001 {
			c.invalidateToken()
			token, err = c.accessToken(ctx)
			if err != nil {
				return err
			}
			url = fmt.Sprintf("%s/cgi-bin/message/send?access_token=%s", c.config.APIBase, token)
			resp, err = c.postJSON(ctx, url, body)
			if err != nil {
				return err
			}
			if resp.ErrCode == 0 {
				return nil
			}
		}
		return fmt.Errorf("message send rejected: %d %s", resp.ErrCode, resp.ErrMsg)
	}
	return nil
}

// uploadImage pushes the file as temporary media and returns its media ID.
func (c *Client) uploadImage(ctx context.Context, path string) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("media", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finish upload body: %w", err)
	}

	url := fmt.Sprintf("%s/cgi-bin/media/upload?access_token=%s&type=image", c.config.APIBase, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	httpResp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer httpResp.Body.Close()

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if resp.ErrCode != 0 {
		return "", fmt.Errorf("upload rejected: %d %s", resp.ErrCode, resp.ErrMsg)
	}
	if resp.MediaID == "" {
		return "", fmt.Errorf("upload response missing media id")
	}
	return resp.MediaID, nil
}

// accessToken returns the cached token, fetching a fresh one when the
// cache is empty or within a minute of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Add(time.Minute).Before(c.tokenExpiry) {
		return c.token, nil
	}

	url := fmt.Sprintf("%s/cgi-bin/gettoken?corpid=%s&corpsecret=%s",
		c.config.APIBase, c.config.CorpID, c.config.CorpSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer httpResp.Body.Close()

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if resp.ErrCode != 0 || resp.AccessToken == "" {
		return "", fmt.Errorf("token refresh rejected: %d %s", resp.ErrCode, resp.ErrMsg)
	}

	c.token = resp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	c.logger.Debug().Msg("Refreshed messaging access token")
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

func (c *Client) postJSON(ctx context.Context, url string, body []byte) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}
