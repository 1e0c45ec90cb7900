// Package tcp provides the reconnecting transport of stream cameras.
// Inbound bytes are framed as a sequence of JSON values.
package tcp

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nsyszr/flowcount/pkg/streamcam"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultConnectTimeout = 3 * time.Second
	DefaultReconnectDelay = 5 * time.Second
	DefaultIdleTimeout    = 15 * time.Second
)

// ErrNotConnected is returned by writes while no connection is up.
var ErrNotConnected = errors.New("not connected")

type Options struct {
	ConnectTimeout time.Duration
	ReconnectDelay time.Duration
	IdleTimeout    time.Duration
}

type Client struct {
	addr    string
	handler streamcam.Handler
	opts    Options

	mu      sync.Mutex
	conn    net.Conn
	writeMu sync.Mutex

	lastActivity atomic.Int64

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewClient(addr string, h streamcam.Handler, o Options) *Client {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = DefaultIdleTimeout
	}

	return &Client{
		addr:    addr,
		handler: h,
		opts:    o,
		stopCh:  make(chan struct{}),
	}
}

// Start connects in the background and keeps reconnecting until Stop is
// called or ctx is done.
func (c *Client) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.run(ctx)
}

// Stop ends the reconnect loop and the current connection and waits for
// the loop to exit.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	c.Close()
	c.wg.Wait()
}

// WriteAndFlush writes one message on the current connection.
func (c *Client) WriteAndFlush(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.opts.ConnectTimeout))
	if _, err := conn.Write(data); err != nil {
		return errors.Wrapf(err, "failed to write to %s", c.addr)
	}
	c.touch()

	return nil
}

// Close closes the current connection. The reconnect loop carries on.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *Client) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) logger() *log.Entry {
	return log.WithField("addr", c.addr)
}

func (c *Client) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

func (c *Client) idleFor() time.Duration {
	return time.Since(time.Unix(0, c.lastActivity.Load()))
}

func (c *Client) run(ctx context.Context) {
	defer c.wg.Done()

	dialer := &net.Dialer{Timeout: c.opts.ConnectTimeout}
	for {
		conn, err := dialer.DialContext(ctx, "tcp", c.addr)
		if err != nil {
			c.logger().Warnf("tcp client failed to connect: %v", err)
		} else {
			c.serve(conn)
		}

		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			c.Close()
			return
		case <-time.After(c.opts.ReconnectDelay):
			c.logger().Debug("tcp client reconnecting")
		}
	}
}

func (c *Client) serve(conn net.Conn) {
	c.mu.Lock()
	select {
	case <-c.stopCh:
		c.mu.Unlock()
		conn.Close()
		return
	default:
	}
	c.conn = conn
	c.mu.Unlock()

	c.touch()
	c.logger().Info("tcp client connected")
	c.handler.OnActive()

	done := make(chan struct{})
	go c.watchIdle(done)

	dec := json.NewDecoder(conn)
read:
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			switch {
			case errors.Is(err, net.ErrClosed):
				c.logger().Debug("tcp client connection closed locally")
			case errors.Is(err, io.EOF):
				c.logger().Info("tcp client connection closed by peer")
			default:
				c.handler.OnError(err)
			}
			break read
		}

		c.touch()
		c.handler.OnMessage(raw)
	}

	close(done)

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()

	c.handler.OnInactive()
}

// watchIdle fires OnIdle once neither reads nor writes happened for the
// idle timeout.
func (c *Client) watchIdle(done <-chan struct{}) {
	interval := c.opts.IdleTimeout / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if c.idleFor() >= c.opts.IdleTimeout {
				c.handler.OnIdle()
				return
			}
		}
	}
}
