package facility

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/websocket"

	"facility/internal/transport"
)

// DefaultActivityPath is the live recognition feed.
const DefaultActivityPath = "/activity/ws/activity"

// ActivityEvent is pushed to feed subscribers for every logged recognition.
type ActivityEvent struct {
	InmateID     string  `json:"inmate_id"`
	InmateName   string  `json:"inmate_name"`
	PrisonName   string  `json:"prison_name,omitempty"`
	OfficerName  string  `json:"officer_name"`
	Score        float64 `json:"score"`
	Method       string  `json:"method"`
	RecognizedAt string  `json:"recognized_at"`
}

// ActivityService reads the live activity feed over a WebSocket.
type ActivityService struct {
	t      *transport.Client
	dialer *websocket.Dialer
}

// Watch subscribes to the feed and calls handle for each event, in order,
// until ctx ends (nil is returned) or the server closes the connection. A
// rejected handshake is a *transport.TransportError; a broken connection is
// a *transport.NetworkError.
func (s *ActivityService) Watch(ctx context.Context, handle func(ActivityEvent)) error {
	const op = "activity.watch"
	hr, err := s.t.Build(ctx, transport.Request{Op: op, Method: http.MethodGet, Path: DefaultActivityPath})
	if err != nil {
		return fmt.Errorf("facility.Activity.Watch: %w", err)
	}
	token, err := s.t.Session().Token(ctx)
	if err != nil {
		return fmt.Errorf("facility.Activity.Watch: %w", err)
	}
	hr = transport.Authorize(hr, token)

	u := *hr.URL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	header := hr.Header.Clone()
	header.Del("Accept")

	conn, resp, err := s.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && errors.Is(err, websocket.ErrBadHandshake) {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("facility.Activity.Watch: %w", &transport.TransportError{StatusCode: resp.StatusCode, Body: body})
		}
		return fmt.Errorf("facility.Activity.Watch: %w", &transport.NetworkError{Op: op, Method: http.MethodGet, URL: u.String(), Err: err})
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var ev ActivityEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("facility.Activity.Watch: %w", &transport.NetworkError{Op: op, Method: http.MethodGet, URL: u.String(), Err: err})
		}
		handle(ev)
	}
}
