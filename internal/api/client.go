// Package api calls the user's personal HTTP API with a single query field.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single call when the caller does not set one.
const DefaultTimeout = 8 * time.Second

var ErrNotConfigured = errors.New("personal API URL not configured")

// Result is the decoded reply. Failures are carried in an "error" field
// instead of being returned, so a Result is always renderable.
type Result map[string]any

type Config struct {
	URL     string
	Key     string
	Timeout time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient uses hc for transport; nil means http.DefaultClient.
func NewClient(cfg Config, hc *http.Client) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{cfg: cfg, http: hc}
}

type request struct {
	Query string `json:"query"`
}

func (c *Client) Call(ctx context.Context, text string) Result {
	if c.cfg.URL == "" {
		return Result{"error": ErrNotConfigured.Error()}
	}

	res, err := c.call(ctx, text)
	if err != nil {
		log.Warn("Personal API call failed", "url", c.cfg.URL, "err", err)
		return Result{"error": err.Error()}
	}
	return res
}

func (c *Client) call(ctx context.Context, text string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(request{Query: text})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Key != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}

	log.Debug("Personal API replied", "status", resp.StatusCode, "bytes", len(body))

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return Result{"result_text": string(body)}, nil
	}
	if obj, ok := v.(map[string]any); ok {
		return Result(obj), nil
	}
	return Result{"result": v}, nil
}
