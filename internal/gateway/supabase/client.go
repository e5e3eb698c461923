// Package supabase implements the gateway interfaces against a
// Supabase-compatible backend: GoTrue password auth, PostgREST row
// operations, and the storage API with public URL issuance.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"inkwell/internal/models"
)

// Client talks to one Supabase project. It carries the current session and
// emits a change event on every auth transition; consumers read those from
// SessionChanges.
type Client struct {
	baseURL string
	anonKey string
	httpc   *http.Client
	log     *slog.Logger

	mu      sync.Mutex
	session *models.Session

	changes chan *models.Session
}

// New creates a client for the project at baseURL using the given anon key.
func New(baseURL, anonKey string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		log:     log,
		changes: make(chan *models.Session, 16),
	}
}

// SessionChanges delivers a session snapshot on every auth transition.
func (c *Client) SessionChanges() <-chan *models.Session {
	return c.changes
}

// setSession stores the session and emits a change event. The emit never
// blocks the auth operation; if no consumer keeps up the oldest event is
// dropped, last write wins anyway.
func (c *Client) setSession(s *models.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	select {
	case c.changes <- s:
	default:
		select {
		case <-c.changes:
		default:
		}
		select {
		case c.changes <- s:
		default:
		}
	}
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil && c.session.AccessToken != "" {
		return c.session.AccessToken
	}
	return c.anonKey
}

// do issues one request with the project headers applied.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, headers map[string]string, body io.Reader) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.currentToken())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.httpc.Do(req)
}

// apiError decodes the backend's error body into a gateway error.
func apiError(op string, resp *http.Response) error {
	defer resp.Body.Close()
	var payload struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Error   string `json:"error_description"`
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(b, &payload)
	msg := payload.Message
	if msg == "" {
		msg = payload.Msg
	}
	if msg == "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = resp.Status
	}
	return models.NewGatewayError(op, fmt.Errorf("%s", msg))
}
