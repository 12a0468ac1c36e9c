package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4 * 1024
	sendBufferSize = 256
)

var (
	errClientClosed   = errors.New("client closed")
	errSendBufferFull = errors.New("send buffer full")
)

// Conn is the subset of *websocket.Conn the client needs. Tests substitute
// an in-memory implementation.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client represents a single transport session. Room and user association
// live in the Registry, not here; the client only moves bytes.
type Client struct {
	ID   string
	conn Conn

	send chan []byte
	ping chan struct{}
	done chan struct{}

	closeOnce sync.Once
}

func NewClient(conn Conn) *Client {
	return &Client{
		ID:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		ping: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// SendMessage enqueues an outbound frame without blocking. A full buffer is
// an error so the caller can schedule this connection for reclamation
// instead of stalling the fan-out.
func (c *Client) SendMessage(msg []byte) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

// Ping requests a ping control frame from the write loop.
func (c *Client) Ping() error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}
	select {
	case c.ping <- struct{}{}:
	default:
		// A ping is already pending; one is enough.
	}
	return nil
}

// WriteLoop serializes all writes to the underlying connection.
func (c *Client) WriteLoop() {
	defer c.Close()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.ping:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close shuts the transport down. Safe to call more than once and from any
// goroutine; the read loop unblocks with an error once the socket closes.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
