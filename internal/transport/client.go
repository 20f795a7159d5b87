// Package transport is the websocket connection to the game server.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	pingInterval     = 30 * time.Second
	readDeadline     = 60 * time.Second
	writeDeadline    = 10 * time.Second
	handshakeTimeout = 10 * time.Second
	sendBufferSize   = 256
)

var (
	// ErrClosed is returned by Write once the client is closed.
	ErrClosed = errors.New("transport: closed")
	// ErrSendBufferFull is returned by Write when the write pump has
	// fallen behind.
	ErrSendBufferFull = errors.New("transport: send buffer full")
)

// Client is a single websocket session with the game server. Frames read
// from the server are handed to a sink; outbound messages go through one
// write pump.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	logger zerolog.Logger

	closing   atomic.Bool
	closeOnce sync.Once
}

// Dial connects to the server's websocket endpoint.
func Dial(ctx context.Context, url string, logger zerolog.Logger) (*Client, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return newClient(conn, logger.With().Str("component", "transport").Str("url", url).Logger()), nil
}

func newClient(conn *websocket.Conn, logger zerolog.Logger) *Client {
	return &Client{
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Run pumps frames until ctx is cancelled, Close is called or the
// connection fails. Every inbound text frame is passed to sink whole.
// It returns nil when the client was closed on purpose.
func (c *Client) Run(ctx context.Context, sink func(frame string)) error {
	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	readDone := make(chan struct{})
	writeErr := make(chan error, 1)
	go func() { writeErr <- c.writePump(readDone) }()

	err := c.readPump(sink)
	close(readDone)
	c.conn.Close()
	werr := <-writeErr

	if c.closing.Load() {
		return nil
	}
	if err == nil {
		err = werr
	}
	return err
}

// readPump reads frames from the connection.
func (c *Client) readPump(sink func(string)) error {
	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			switch {
			case c.closing.Load():
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				c.logger.Info().Msg("server closed the connection")
			default:
				c.logger.Error().Err(err).Msg("websocket read error")
			}
			return fmt.Errorf("read: %w", err)
		}
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		sink(string(message))
	}
}

// writePump writes queued messages and keeps the connection alive. It
// stops as soon as readDone is closed.
func (c *Client) writePump(readDone <-chan struct{}) error {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return nil

		case <-readDone:
			return nil

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return fmt.Errorf("write: %w", err)
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

// Write queues text for the global room. The server expects
// `<room>|<text>`, so the frame on the wire is `|<text>`. Write never
// blocks.
func (c *Client) Write(text string) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- []byte("|" + text):
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrSendBufferFull
	}
}

// Close sends a close frame and shuts the connection down. It is safe to
// call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeDeadline))
		err = c.conn.Close()
	})
	return err
}
