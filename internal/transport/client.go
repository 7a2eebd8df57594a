// Package transport dispatches facility API requests over HTTP.
//
// A Client is bound to one base URL and one session. Before each request it
// reads the session token and passes the request through Authorize. It never
// retries and never interprets error statuses: non-2xx responses come back as
// *TransportError, send failures as *NetworkError.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"facility/internal/logging"
	"facility/internal/session"
	"facility/internal/wire"
)

const RequestIDHeader = "X-Request-ID"

// Observer receives one call per completed exchange. status is 0 when no
// response was received.
type Observer interface {
	Observe(op, method string, status int, elapsed time.Duration)
}

// Request is one logical API call.
type Request struct {
	Op      string
	Method  string
	Path    string
	Query   url.Values
	Payload *wire.Payload
	Header  http.Header
}

// Response is a 2xx reply with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client sends requests to a single base endpoint.
type Client struct {
	baseURL    string
	session    *session.Session
	httpClient *http.Client
	log        logging.Logger
	observer   Observer
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets a whole-request timeout. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New creates a client for baseURL. A nil session sends every request anonymously.
func New(baseURL string, sess *session.Session, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		session:    sess,
		httpClient: &http.Client{},
		log:        logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Session() *session.Session { return c.session }

// Build turns req into an unauthenticated *http.Request.
func (c *Client) Build(ctx context.Context, req Request) (*http.Request, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Payload != nil {
		body = req.Payload.Reader()
	}
	hr, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hr.Header.Add(k, v)
		}
	}
	if req.Payload != nil {
		hr.Header.Set("Content-Type", req.Payload.ContentType)
	}
	if hr.Header.Get("Accept") == "" {
		hr.Header.Set("Accept", "application/json")
	}
	if hr.Header.Get(RequestIDHeader) == "" {
		hr.Header.Set(RequestIDHeader, uuid.NewString())
	}
	return hr, nil
}

// Do sends req and returns the 2xx response or a typed error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	hr, err := c.Build(ctx, req)
	if err != nil {
		return nil, err
	}
	token, err := c.session.Token(ctx)
	if err != nil {
		return nil, err
	}
	hr = Authorize(hr, token)

	start := time.Now()
	resp, err := c.httpClient.Do(hr)
	if err != nil {
		c.finish(ctx, req, hr, 0, start)
		return nil, &NetworkError{Op: req.Op, Method: req.Method, URL: hr.URL.String(), Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	data, err := io.ReadAll(resp.Body)
	c.finish(ctx, req, hr, resp.StatusCode, start)
	if err != nil {
		return nil, &NetworkError{Op: req.Op, Method: req.Method, URL: hr.URL.String(), Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: data}
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (c *Client) finish(ctx context.Context, req Request, hr *http.Request, status int, start time.Time) {
	elapsed := time.Since(start)
	if c.observer != nil {
		c.observer.Observe(req.Op, req.Method, status, elapsed)
	}
	c.log.Debug(ctx, "facility request",
		"op", req.Op,
		"method", req.Method,
		"path", req.Path,
		"status", status,
		"elapsed", elapsed,
		"request_id", hr.Header.Get(RequestIDHeader),
	)
}
