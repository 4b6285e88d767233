package realtime

import (
	"chatlark/contract"
	"chatlark/domain"
	"chatlark/domain/event"
	"chatlark/errors"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 1 << 20
)

// Transport dials the chat server websocket endpoint.
type Transport struct {
	endpoint string
	dialer   *websocket.Dialer
	log      *slog.Logger
}

// NewTransport derives the websocket endpoint from the REST host
// (http -> ws, https -> wss) and the configured path.
func NewTransport(apiHost, path string, log *slog.Logger) (*Transport, error) {
	endpoint, err := Endpoint(apiHost, path)
	if err != nil {
		return nil, err
	}
	return &Transport{
		endpoint: endpoint,
		dialer:   &websocket.Dialer{HandshakeTimeout: writeWait},
		log:      log,
	}, nil
}

func Endpoint(apiHost, path string) (string, error) {
	u, err := url.Parse(apiHost)
	if err != nil {
		return "", fmt.Errorf("invalid api host %q: %w", apiHost, err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	return u.String(), nil
}

// Dial completes the websocket handshake, which is the transport-level
// connect acknowledgment.
func (t *Transport) Dial(ctx context.Context) (contract.RealtimeConn, error) {
	conn, resp, err := t.dialer.DialContext(ctx, t.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrChannelConnect, t.endpoint, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	conn.SetReadLimit(maxFrameSize)
	t.log.Debug("Realtime transport connected", "endpoint", t.endpoint)
	return &Conn{conn: conn, log: t.log}, nil
}

// Conn is one websocket connection. Writes are serialized, reads happen on a
// single goroutine owned by the caller.
type Conn struct {
	writeMu sync.Mutex
	conn    *websocket.Conn
	log     *slog.Logger
	once    sync.Once
	closed  bool
}

func (c *Conn) Emit(ctx context.Context, name string, room domain.RoomID) error {
	payload, err := EncodeRoomIntent(name, room)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return errors.ErrChannelClosed
	}
	_ = c.conn.SetWriteDeadline(deadline)
	if err = c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrChannelEmitFailure, name, err)
	}
	return nil
}

// Next skips frames the client does not understand.
func (c *Conn) Next() (event.DomainEvent, error) {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrChannelClosed, err)
		}
		evt, err := Decode(raw)
		if err != nil {
			c.log.Warn("Dropping malformed realtime frame", "error", err)
			continue
		}
		if evt == nil {
			c.log.Debug("Ignoring unknown realtime frame", "frame", string(raw))
			continue
		}
		return evt, nil
	}
}

// Close sends a close frame best-effort then tears the socket down.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		c.writeMu.Lock()
		c.closed = true
		_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
