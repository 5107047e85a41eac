package gateway

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrSendBufferFull = errors.New("send-buffer-full")
	ErrClientClosed   = errors.New("client-closed")
)

// Close codes sent to clients in the websocket close frame.
const (
	CloseReplaced     = "replaced"
	CloseSlowConsumer = "slow-consumer"
	CloseWriteFailed  = "write-failed"
	CloseShutdown     = "server-shutdown"
	CloseGone         = "gone"
)

const sendBufferSize = 256

// Client is one live connection. Only WritePump writes to the socket.
type Client struct {
	id          string
	socket      NetworkSession
	rateLimiter *rate.Limiter
	send        chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	closeCode   string
}

func NewClient(id string, socket NetworkSession, limiter *rate.Limiter) *Client {
	return &Client{
		id:          id,
		socket:      socket,
		rateLimiter: limiter,
		send:        make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Send queues data without blocking.
func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close makes WritePump flush what is queued, send a close frame carrying code and
// release the socket. Only the first call counts.
func (c *Client) Close(code string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		close(c.done)
	})
}

func (c *Client) ReadPump(handle func(data []byte)) {
	for {
		data, err := c.socket.Read()
		if err != nil {
			return
		}
		handle(data)
	}
}

func (c *Client) WritePump(pings <-chan time.Time) {
	for {
		select {
		case data := <-c.send:
			if err := c.socket.Write(data); err != nil {
				c.Close(CloseWriteFailed)
				c.socket.Close(CloseWriteFailed)
				return
			}
		case <-pings:
			if err := c.socket.Ping(); err != nil {
				c.Close(CloseWriteFailed)
				c.socket.Close(CloseWriteFailed)
				return
			}
		case <-c.done:
			c.flush()
			c.socket.Close(c.closeCode)
			return
		}
	}
}

func (c *Client) flush() {
	for {
		select {
		case data := <-c.send:
			if err := c.socket.Write(data); err != nil {
				return
			}
		default:
			return
		}
	}
}
