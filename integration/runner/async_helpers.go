package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jwebster45206/dilemma-engine/internal/services/events"
)

const (
	// EventTimeout is max time to wait for a published event
	EventTimeout = 15 * time.Second
	// DialTimeout bounds the websocket handshake
	DialTimeout = 5 * time.Second
)

// EventStream is an open subscription to a game's events.
type EventStream struct {
	conn *websocket.Conn
}

// eventsURL converts the API base URL to the websocket URL for a game.
func eventsURL(baseURL string, gameID uuid.UUID) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/events/" + gameID.String()
	return u.String(), nil
}

// OpenEventStream subscribes before the action that publishes, so the
// event cannot be missed.
func OpenEventStream(ctx context.Context, baseURL string, gameID uuid.UUID) (*EventStream, error) {
	wsURL, err := eventsURL(baseURL, gameID)
	if err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{HandshakeTimeout: DialTimeout}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("event stream handshake returned %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to open event stream: %w", err)
	}
	return &EventStream{conn: conn}, nil
}

// WaitFor reads events until one of the wanted type arrives or the timeout
// passes.
func (s *EventStream) WaitFor(want events.EventType, timeout time.Duration) (*events.Event, error) {
	deadline := time.Now().Add(timeout)
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for %s event", want)
			}
			return nil, fmt.Errorf("event stream closed: %w", err)
		}
		var e events.Event
		if err := json.Unmarshal(data, &e); err != nil {
			continue
		}
		if e.Type == want {
			return &e, nil
		}
	}
}

// Close ends the subscription.
func (s *EventStream) Close() error {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return s.conn.Close()
}
