// AngelaMos | 2026
// rabbitmq.go

package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/carterperez-dev/uznavaykin/internal/config"
)

// Connection owns one AMQP connection and channel. Watch replaces both
// after the broker drops them.
type Connection struct {
	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel

	url   string
	delay time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

func Connect(cfg config.EventsConfig) (*Connection, error) {
	c := &Connection{
		url:   cfg.URL,
		delay: cfg.ReconnectDelay,
		done:  make(chan struct{}),
	}
	if err := c.dial(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) dial() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		//nolint:errcheck // already failing
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.mu.Lock()
	old := c.conn
	c.conn, c.channel = conn, ch
	c.mu.Unlock()

	if old != nil {
		//nolint:errcheck // replaced connection is already dead
		_ = old.Close()
	}
	return nil
}

func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Watch redials every delay after the connection closes and hands the new
// channel to onReconnect. It returns when ctx is done or Close is called.
func (c *Connection) Watch(ctx context.Context, onReconnect func(Channel) error) {
	for {
		c.mu.RLock()
		closed := c.conn.NotifyClose(make(chan *amqp.Error, 1))
		c.mu.RUnlock()

		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case amqpErr := <-closed:
			slog.Warn("rabbitmq connection lost", "error", amqpErr)
		}

		if !c.redial(ctx, onReconnect) {
			return
		}
	}
}

func (c *Connection) redial(ctx context.Context, onReconnect func(Channel) error) bool {
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-c.done:
			return false
		case <-time.After(c.delay):
		}

		err := c.dial()
		if err == nil && onReconnect != nil {
			err = onReconnect(c.Channel())
		}
		if err == nil {
			slog.Info("rabbitmq reconnected", "attempt", attempt)
			return true
		}

		slog.Warn("rabbitmq reconnect failed",
			"attempt", attempt,
			"error", err,
		)
	}
}

// Ping reports whether the broker connection is currently open.
func (c *Connection) Ping(_ context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conn == nil || c.conn.IsClosed() {
		return amqp.ErrClosed
	}
	return nil
}

func (c *Connection) Close() error {
	c.closeOnce.Do(func() { close(c.done) })

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			slog.Warn("rabbitmq channel close error", "error", err)
		}
	}
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq: %w", err)
		}
	}
	return nil
}
