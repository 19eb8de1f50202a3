package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	EventUserSettings   = "update/user-settings"
	EventDownloadPrefix = "download/"
)

// Event is one frame published by the backend.
type Event struct {
	Name    string
	Payload json.RawMessage
}

func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %s has no payload", e.Name)
	}
	return json.Unmarshal(e.Payload, v)
}

type Handler func(Event)

// Unlisten stops a listener. It is safe to call more than once and from
// inside the handler.
type Unlisten func()

// Matches reports whether name is selected by pattern. A trailing "*" matches
// any suffix, so "download/*" selects every download event.
func Matches(pattern, name string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(name, prefix)
	}
	return pattern == name
}

// Listen opens an event stream and calls handler for every frame whose event
// name matches pattern. Frames are delivered in order on a single goroutine.
// The stream ends when Unlisten is called or ctx is done.
func (c *Client) Listen(ctx context.Context, pattern string, handler Handler) (Unlisten, error) {
	url, err := c.eventsURL()
	if err != nil {
		return nil, err
	}

	conn, resp, err := c.dialer.DialContext(ctx, url, http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("connecting to events (%s): %w", resp.Status, err)
		}
		return nil, fmt.Errorf("connecting to events: %w", err)
	}

	var (
		once    sync.Once
		stopped = make(chan struct{})
	)
	unlisten := func() {
		once.Do(func() {
			close(stopped)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unlisten()
		case <-stopped:
		}
	}()

	go func() {
		defer unlisten()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-stopped:
				default:
					if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						c.logger.Warn("event stream closed", zap.String("pattern", pattern), zap.Error(err))
					}
				}
				return
			}

			name := gjson.GetBytes(msg, "event")
			if !name.Exists() || name.Type != gjson.String {
				c.logger.Warn("dropping event frame without a name", zap.ByteString("frame", msg))
				continue
			}
			if !Matches(pattern, name.Str) {
				continue
			}

			var payload json.RawMessage
			if p := gjson.GetBytes(msg, "payload"); p.Exists() {
				payload = json.RawMessage(p.Raw)
			}

			select {
			case <-stopped:
				return
			default:
			}
			handler(Event{Name: name.Str, Payload: payload})
		}
	}()

	return unlisten, nil
}

func (c *Client) eventsURL() (string, error) {
	switch {
	case strings.HasPrefix(c.baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(c.baseURL, "https://") + "/events", nil
	case strings.HasPrefix(c.baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(c.baseURL, "http://") + "/events", nil
	case strings.HasPrefix(c.baseURL, "ws://"), strings.HasPrefix(c.baseURL, "wss://"):
		return c.baseURL + "/events", nil
	}
	return "", fmt.Errorf("unsupported backend url: %q", c.baseURL)
}
