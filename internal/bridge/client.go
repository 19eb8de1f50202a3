// Package bridge is the channel to the native backend: request/response
// commands over HTTP and published events over a websocket.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"modman/internal/errors"
	"modman/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// readCommands have no side effects, so concurrent identical calls share one
// round trip.
var readCommands = map[string]bool{
	CmdGetState:          true,
	CmdCheckPathExists:   true,
	CmdGetSupportedGames: true,
	CmdGetGame:           true,
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
	logger     *zap.Logger
	group      singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: 5 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Invoke runs command with args on the backend and decodes the result into
// out. out may be nil when the result is not needed. Failed commands come
// back as *errors.Error.
func (c *Client) Invoke(ctx context.Context, command string, args any, out any) error {
	body, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encoding %s args: %w", command, err)
	}

	var raw []byte
	if readCommands[command] {
		// The shared call outlives any one caller; the HTTP client timeout
		// bounds it instead.
		shared := context.WithoutCancel(ctx)
		ch := c.group.DoChan(command+":"+string(body), func() (any, error) {
			return c.do(shared, command, body)
		})
		select {
		case <-ctx.Done():
			return fmt.Errorf("invoking %s: %w", command, ctx.Err())
		case res := <-ch:
			if res.Err != nil {
				return res.Err
			}
			if res.Shared {
				c.logger.Debug("coalesced backend call", zap.String("command", command))
			}
			raw = res.Val.([]byte)
		}
	} else {
		raw, err = c.do(ctx, command, body)
		if err != nil {
			return err
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s result: %w", command, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, command string, body []byte) ([]byte, error) {
	requestID := logging.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/invoke/%s", c.baseURL, command), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoking %s: %w", command, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", command, err)
	}

	c.logger.Debug("backend call",
		zap.String("command", command),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp.StatusCode, data)
	}
	return data, nil
}

func decodeError(status int, data []byte) error {
	var e errors.Error
	if err := json.Unmarshal(data, &e); err == nil && e.Type != "" {
		if e.Code == 0 {
			e.Code = status
		}
		return &e
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return errors.Backend(status, msg)
}

// FetchAsset downloads a static asset such as a game cover, addressed by its
// path on the backend ("/images/games/wh3.webp").
func (c *Client) FetchAsset(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+strings.TrimLeft(path, "/"), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp.StatusCode, data)
	}
	return data, nil
}
