// Package ui is the WebSocket gateway projecting runtime UI messages to
// connected front-ends and routing their commands back into the runtime.
package ui

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Client represents one connected UI front-end.
type Client struct {
	ID   uint64
	Conn *websocket.Conn

	sendCh    chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// Dropped counts messages discarded because the send buffer was full.
	Dropped uint64
}

var clientIDCounter uint64

// NewClient wraps a WebSocket connection with a buffered send queue.
func NewClient(conn *websocket.Conn, bufferSize int) *Client {
	return &Client{
		ID:     atomic.AddUint64(&clientIDCounter, 1),
		Conn:   conn,
		sendCh: make(chan []byte, bufferSize),
		done:   make(chan struct{}),
	}
}

// Send enqueues data for the write pump. Returns false if the buffer is full
// (message dropped); the UI bus must never block on a slow front-end.
func (c *Client) Send(data []byte) bool {
	select {
	case c.sendCh <- data:
		return true
	default:
		atomic.AddUint64(&c.Dropped, 1)
		return false
	}
}

// SendCh returns the send channel for the write pump.
func (c *Client) SendCh() <-chan []byte {
	return c.sendCh
}

// Done returns a channel closed on disconnect.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close terminates the connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.Conn.Close()
	})
}
