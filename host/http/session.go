package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Namespace is the name the module is bound to in scripts.
const Namespace = "http"

// DefaultLimit is the concurrency of a session created with a limit below 1.
const DefaultLimit = 10

// Module creates sessions sharing one client.
type Module struct {
	client *http.Client
	log    *zap.Logger
}

// NewModule creates the module. A nil client gets a client with a 30 second
// timeout.
func NewModule(client *http.Client, log *zap.Logger) *Module {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Module{client: client, log: log}
}

func (m *Module) Namespace() string {
	return Namespace
}

// Session creates a session allowing limit concurrent requests.
func (m *Module) Session(limit int) *Session {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Session{client: m.client, log: m.log, slots: make(chan struct{}, limit)}
}

// Session issues requests with bounded concurrency.
type Session struct {
	client *http.Client
	log    *zap.Logger
	slots  chan struct{}
}

// Response is a fully read HTTP response. Headers keep the first value of
// each field.
type Response struct {
	Headers    map[string]string
	URL        string
	Text       string
	StatusCode int
}

// Ok reports a 2xx status.
func (r *Response) Ok() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (s *Session) AsyncFunctions() []string {
	return []string{"Get", "Head", "Post", "Request"}
}

// Limit is the session's concurrency.
func (s *Session) Limit() int {
	return cap(s.slots)
}

func (s *Session) Get(ctx context.Context, url string) (*Response, error) {
	return s.Request(ctx, http.MethodGet, url, "")
}

func (s *Session) Head(ctx context.Context, url string) (*Response, error) {
	return s.Request(ctx, http.MethodHead, url, "")
}

func (s *Session) Post(ctx context.Context, url, body string) (*Response, error) {
	return s.Request(ctx, http.MethodPost, url, body)
}

// Request sends one request, waiting for a free slot first.
func (s *Session) Request(ctx context.Context, method, url, body string) (*Response, error) {
	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%s %s: %w", method, url, ctx.Err())
	}
	defer func() { <-s.slots }()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, reader)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	data, readErr := io.ReadAll(resp.Body)
	// Close error is ignored after a full read
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, readErr)
	}

	s.log.Debug("http request",
		zap.String("method", req.Method),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	headers := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Text:       string(data),
		Headers:    headers,
		URL:        url,
	}, nil
}
