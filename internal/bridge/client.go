package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Ensure Client implements Bridge at compile time.
var _ Bridge = (*Client)(nil)

const (
	defaultBackendURL = "127.0.0.1:7488"
	defaultUserAgent  = "mediagrab/0.1"
	defaultPollWait   = 25 * time.Second
	pollSlack         = 5 * time.Second
)

// Client talks to the MediaGrab backend over HTTP. Commands are POSTed to
// /api/invoke/{command}; events are long-polled from /api/events.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	pollWait  time.Duration
	log       zerolog.Logger

	mu       sync.Mutex
	handlers map[string]map[uint64]Handler
	nextID   uint64
	stop     context.CancelFunc
	done     chan struct{}
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used by the event loop.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithPollWait sets how long the backend may hold an event poll open.
func WithPollWait(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollWait = d
		}
	}
}

// NewClient builds a Client for the backend at backendURL (host:port or URL).
func NewClient(backendURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(backendURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{},
		userAgent: defaultUserAgent,
		pollWait:  defaultPollWait,
		log:       zerolog.Nop(),
		handlers:  make(map[string]map[uint64]Handler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Invoke implements Invoker.
func (c *Client) Invoke(ctx context.Context, command string, args any, out any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("command name required")
	}
	if args == nil {
		args = struct{}{}
	}
	body, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode %s args: %w", command, err)
	}

	rel := &url.URL{Path: "/api/invoke/" + url.PathEscape(command)}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.ResolveReference(rel).String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute %s: %w", command, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", command, err)
	}
	if resp.StatusCode >= 400 {
		return &CommandError{Command: command, Message: errorMessage(payload, resp.StatusCode), Status: resp.StatusCode}
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s response: %w", command, err)
	}
	return nil
}

// Listen implements Listener. Handlers run on the event loop goroutine in
// arrival order; they must not block for long.
func (c *Client) Listen(event string, handler Handler) (Unlisten, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[uint64]Handler)
	}
	c.handlers[event][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.handlers[event], id)
		})
	}, nil
}

// EventEnvelope is one entry of an /api/events batch.
type EventEnvelope struct {
	Seq     uint64          `json:"seq"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// EventBatch is the /api/events response with the next cursor.
type EventBatch struct {
	Events []EventEnvelope `json:"events"`
	Next   uint64          `json:"next"`
}

// FetchEvents performs one long poll for events after since.
func (c *Client) FetchEvents(ctx context.Context, since uint64) (EventBatch, error) {
	values := url.Values{}
	values.Set("since", strconv.FormatUint(since, 10))
	values.Set("wait_ms", strconv.FormatInt(c.pollWait.Milliseconds(), 10))
	rel := &url.URL{Path: "/api/events", RawQuery: values.Encode()}

	ctx, cancel := context.WithTimeout(ctx, c.pollWait+pollSlack)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.ResolveReference(rel).String(), nil)
	if err != nil {
		return EventBatch{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return EventBatch{}, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return EventBatch{}, fmt.Errorf("api %s returned status %d", rel.Path, resp.StatusCode)
	}
	var batch EventBatch
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return EventBatch{}, fmt.Errorf("decode response: %w", err)
	}
	return batch, nil
}

func (c *Client) dispatch(ev EventEnvelope) {
	c.mu.Lock()
	handlers := make([]Handler, 0, len(c.handlers[ev.Event]))
	for _, h := range c.handlers[ev.Event] {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(ev.Payload)
	}
}

func errorMessage(payload []byte, status int) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	if text := strings.TrimSpace(string(payload)); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}

func parseBaseURL(backendURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(backendURL)
	if trimmed == "" {
		trimmed = defaultBackendURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse backend_url %q: %w", backendURL, err)
	}
	if u.Host == "" {
		return nil, errors.New("backend_url has no host")
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
