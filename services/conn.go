package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/contrib/websocket"
)

// ClientConn is a live handle capable of receiving a push. The gateway only
// ever sees this interface; tests substitute their own.
type ClientConn interface {
	Identity() string
	WriteJSON(v interface{}) error
	Close() error
}

var (
	ErrConnClosed   = errors.New("connection closed")
	ErrWriteTimeout = errors.New("write timed out")
)

const (
	connWriteBuffer  = 64
	connWriteTimeout = 5 * time.Second
)

// wsClient serializes all writes through a single goroutine so concurrent
// sends to one recipient never interleave frames on the socket.
type wsClient struct {
	identity string
	conn     *websocket.Conn

	writeCh   chan []byte
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func NewClientConn(identity string, conn *websocket.Conn) ClientConn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &wsClient{
		identity: identity,
		conn:     conn,
		writeCh:  make(chan []byte, connWriteBuffer),
		ctx:      ctx,
		cancel:   cancel,
	}

	go c.writeLoop()

	return c
}

func (c *wsClient) Identity() string {
	return c.identity
}

func (c *wsClient) writeLoop() {
	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(connWriteTimeout)); err != nil {
				c.cancel()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.cancel()
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// WriteJSON fails closed once the connection context is cancelled, so a send
// racing a disconnect reports connection loss instead of hanging.
func (c *wsClient) WriteJSON(v interface{}) error {
	select {
	case <-c.ctx.Done():
		return ErrConnClosed
	default:
	}

	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(connWriteTimeout):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnClosed
	}
}

func (c *wsClient) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.conn.Close()
	})
	return nil
}
