// Package playback forwards produced turns to an external playback server
// (text to speech frontend) over HTTP.
package playback

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/hupe1980/banter/core"
	"github.com/hupe1980/banter/logging"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SpeakPath is appended to the server base URL.
const SpeakPath = "/api/speak"

// DefaultTimeout bounds one playback request.
const DefaultTimeout = 120 * time.Second

// Options configure a Client.
type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     logging.Logger
}

// Client posts turns to <base>/api/speak.
type Client struct {
	endpoint string
	http     *http.Client
	logger   logging.Logger
}

type speakRequest struct {
	AgentID string `json:"agent_id"`
	Text    string `json:"text"`
}

// New creates a playback client for baseURL.
func New(baseURL string, optFns ...func(o *Options)) *Client {
	opts := Options{Timeout: DefaultTimeout}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Client{
		endpoint: strings.TrimRight(baseURL, "/") + SpeakPath,
		http:     opts.HTTPClient,
		logger:   opts.Logger,
	}
}

// Endpoint returns the URL turns are posted to.
func (c *Client) Endpoint() string { return c.endpoint }

// Speak posts one turn. Turns without a speaker are skipped.
func (c *Client) Speak(ctx context.Context, t core.Turn) error {
	agentID := strings.TrimSpace(t.Speaker)
	if agentID == "" {
		return nil
	}

	body, err := json.Marshal(speakRequest{AgentID: agentID, Text: t.Text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("playback %s: %w", agentID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("playback %s: unexpected status %s", agentID, resp.Status)
	}
	return nil
}

// Hook is a best-effort post-turn hook: failures are logged and never
// returned, so playback problems do not end a conversation.
func (c *Client) Hook(ctx context.Context, t core.Turn, round int) error {
	if err := c.Speak(ctx, t); err != nil {
		c.logger.Warn("playback.failed", "speaker", t.Speaker, "round", round, "endpoint", c.endpoint, "error", err)
		return nil
	}
	c.logger.Debug("playback.sent", "speaker", t.Speaker, "round", round)
	return nil
}
