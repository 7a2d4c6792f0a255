package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	messageBuffer  = 32
)

var errChannelClosed = errors.New("channel closed")

// Channel is the duplex handle the registry owns for one identity.
// Implementations must be comparable; the registry matches them by identity.
type Channel interface {
	Send(ctx context.Context, ev OutboundEvent) error
	Close() error
}

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 {
				return true
			}
			return slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
}

type wsChannel struct {
	ws      *websocket.Conn
	logger  *slog.Logger
	writeMu sync.Mutex

	messages  chan []byte
	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

func newWSChannel(ws *websocket.Conn, clientID string, logger *slog.Logger) *wsChannel {
	return &wsChannel{
		ws:       ws,
		logger:   logger.With("client_id", clientID),
		messages: make(chan []byte, messageBuffer),
		done:     make(chan struct{}),
	}
}

// Messages yields inbound frames in arrival order. It is closed when
// readPump returns.
func (c *wsChannel) Messages() <-chan []byte {
	return c.messages
}

func (c *wsChannel) Done() <-chan struct{} {
	return c.done
}

func (c *wsChannel) Send(ctx context.Context, ev OutboundEvent) error {
	select {
	case <-c.done:
		return errChannelClosed
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(deadline)
	return c.ws.WriteJSON(ev)
}

func (c *wsChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

func (c *wsChannel) keepalive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("ping failed", "error", err)
				return
			}
		}
	}
}

// readPump reads frames into Messages until the socket fails or the channel
// is closed. It keeps reading while frames are being processed so a close
// from the peer is seen at once.
func (c *wsChannel) readPump() {
	defer close(c.messages)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
					c.logger.Warn("websocket read error", "error", err)
				}
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		select {
		case c.messages <- message:
		case <-c.done:
			return
		}
	}
}
