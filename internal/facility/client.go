// Package facility is the typed client for the facility inmate-management and
// face-recognition API.
//
// Each facade maps its operations onto one HTTP verb, path and body encoding
// and hands the request to a transport.Client, which attaches the session's
// bearer token. Errors from the transport are wrapped with the operation name
// and otherwise returned unchanged; use errors.As to reach
// *transport.TransportError or *transport.NetworkError.
package facility

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"facility/internal/config"
	"facility/internal/session"
	"facility/internal/transport"
)

// DefaultDeletePrefix is the path under which inmates are deleted by their
// external identifier.
const DefaultDeletePrefix = "/inmates/by-inmate-id"

// Client groups the facades over one transport.
type Client struct {
	Auth        *AuthService
	Inmates     *InmatesService
	Recognition *RecognitionService
	Logs        *LogsService
	Officers    *OfficersService
	Activity    *ActivityService

	transport *transport.Client
}

type options struct {
	deletePrefix string
	logsPrefix   string
}

type Option func(*options)

// WithDeletePrefix changes the path prefix of Inmates.DeleteByInmateID.
func WithDeletePrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.deletePrefix = prefix
		}
	}
}

// WithLogsPrefix changes the path prefix of the raw log operations
// (Logs.All, Recent, DailyLogs, LogsByOfficer).
func WithLogsPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.logsPrefix = prefix
		}
	}
}

// New builds the facades over t.
func New(t *transport.Client, opts ...Option) *Client {
	o := options{deletePrefix: DefaultDeletePrefix, logsPrefix: DefaultLogsPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{
		Auth:        &AuthService{t: t},
		Inmates:     &InmatesService{t: t, deletePrefix: strings.TrimRight(o.deletePrefix, "/")},
		Recognition: &RecognitionService{t: t},
		Logs:        &LogsService{t: t, prefix: strings.TrimRight(o.logsPrefix, "/")},
		Officers:    &OfficersService{t: t},
		Activity:    &ActivityService{t: t, dialer: websocket.DefaultDialer},
		transport:   t,
	}
}

// Open wires a client from configuration: the configured session store, the
// API base URL, the optional HTTP timeout and the delete and logs prefixes.
// The closer releases the session store.
func Open(ctx context.Context, cfg config.App, opts ...transport.Option) (*Client, io.Closer, error) {
	sess, closer, err := session.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	opts = append([]transport.Option{transport.WithTimeout(cfg.HTTPTimeout)}, opts...)
	t := transport.New(cfg.APIURL, sess, opts...)
	return New(t, WithDeletePrefix(cfg.InmateDeletePrefix), WithLogsPrefix(cfg.LogsPrefix)), closer, nil
}

// Session returns the session the transport reads its token from.
func (c *Client) Session() *session.Session { return c.transport.Session() }

// send issues req and decodes a JSON response into T.
func send[T any](ctx context.Context, t *transport.Client, req transport.Request) (T, error) {
	var out T
	resp, err := t.Do(ctx, req)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, fmt.Errorf("decode %s response: %w", req.Op, err)
	}
	return out, nil
}

// pathID escapes one identifier as a single path segment.
func pathID(id string) string {
	return "/" + url.PathEscape(id)
}

func withDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
