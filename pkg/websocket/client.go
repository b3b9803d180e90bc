// Package websocket provides a duplex streaming client with bounded queues
// and automatic reconnection
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/metric"

	"qitrader/internal/core"
	"qitrader/pkg/telemetry"
)

// Config controls one streaming session
type Config struct {
	URL       string
	Header    http.Header
	QueueSize int // bounded inbound/outbound capacity

	PingInterval time.Duration
	PingWait     time.Duration
	PongWait     time.Duration

	ReconnectMin time.Duration // initial backoff
	ReconnectMax time.Duration // backoff cap
}

func (c *Config) applyDefaults() {
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.PingInterval == 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.PingWait == 0 {
		c.PingWait = 10 * time.Second
	}
	if c.PongWait == 0 {
		c.PongWait = 60 * time.Second
	}
	if c.ReconnectMin == 0 {
		c.ReconnectMin = time.Second
	}
	if c.ReconnectMax == 0 {
		c.ReconnectMax = 30 * time.Second
	}
}

// Client is a resilient duplex WebSocket session. Inbound frames are parked
// on a bounded channel drained by Read; Write enqueues onto a bounded
// outbound channel drained by the writer task. Both channels exert
// backpressure when full.
type Client struct {
	cfg    Config
	logger core.Logger

	inbound  chan []byte
	outbound chan []byte

	mu          sync.Mutex
	conn        *websocket.Conn
	onConnected func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	msgCounter  metric.Int64Counter
	connCounter metric.Int64Counter
}

// NewClient creates a streaming client; Connect starts the session
func NewClient(cfg Config, logger core.Logger) *Client {
	cfg.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	meter := telemetry.GetMeter("ws-client")
	msgCounter, _ := meter.Int64Counter("ws_messages_total",
		metric.WithDescription("Total number of WebSocket messages received"))
	connCounter, _ := meter.Int64Counter("ws_connections_total",
		metric.WithDescription("Total number of WebSocket connections initiated"))

	return &Client{
		cfg:         cfg,
		logger:      logger.WithField("ws", cfg.URL),
		inbound:     make(chan []byte, cfg.QueueSize),
		outbound:    make(chan []byte, cfg.QueueSize),
		ctx:         ctx,
		cancel:      cancel,
		msgCounter:  msgCounter,
		connCounter: connCounter,
	}
}

// SetOnConnected sets a hook invoked after every successful (re)connect,
// before the reader starts delivering frames. Used for login and
// subscription replay.
func (c *Client) SetOnConnected(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnected = cb
}

// Connect performs the initial handshake and spawns the reader and writer
// tasks. The first dial failure is returned to the caller; later failures
// are handled by the reconnect loop.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.dial(); err != nil {
		return fmt.Errorf("connect %s: %w", c.cfg.URL, err)
	}

	c.notifyConnected()

	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()
	return nil
}

// Read receives the next inbound frame, blocking until one arrives or the
// context is cancelled.
func (c *Client) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	case msg := <-c.inbound:
		return msg, nil
	}
}

// Write serializes v as JSON and enqueues it for the writer task, blocking
// while the outbound queue is full.
func (c *Client) Write(ctx context.Context, v interface{}) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return c.ctx.Err()
	case c.outbound <- msg:
		return nil
	}
}

// Stop tears the session down. Outbound frames still queued are discarded.
func (c *Client) Stop() {
	c.cancel()
	c.closeConn()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		c.logger.Warn("websocket stop: tasks did not exit within timeout")
	}
}

func (c *Client) dial() error {
	c.connCounter.Add(c.ctx, 1)

	conn, _, err := websocket.DefaultDialer.Dial(c.cfg.URL, c.cfg.Header)
	if err != nil {
		return err
	}

	conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

func (c *Client) notifyConnected() {
	c.mu.Lock()
	cb := c.onConnected
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (c *Client) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// readLoop reads frames into the inbound queue and drives reconnection with
// bounded exponential backoff when the socket fails.
func (c *Client) readLoop() {
	defer c.wg.Done()

	heartbeatStop := c.startHeartbeat()

	for {
		conn := c.current()
		if conn == nil {
			heartbeatStop()
			if !c.reconnect() {
				return
			}
			heartbeatStop = c.startHeartbeat()
			continue
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() != nil {
				heartbeatStop()
				return
			}
			c.logger.Error("websocket read failed", "error", err)
			c.closeConn()
			continue
		}

		c.msgCounter.Add(c.ctx, 1)
		select {
		case <-c.ctx.Done():
			heartbeatStop()
			return
		case c.inbound <- msg:
		}
	}
}

// reconnect dials until it succeeds or the client stops, doubling the wait
// from ReconnectMin up to ReconnectMax. Returns false when stopping.
func (c *Client) reconnect() bool {
	backoff := c.cfg.ReconnectMin
	for {
		select {
		case <-c.ctx.Done():
			return false
		case <-time.After(backoff):
		}

		if err := c.dial(); err != nil {
			c.logger.Error("websocket reconnect failed", "error", err, "backoff", backoff)
			backoff = min(backoff*2, c.cfg.ReconnectMax)
			continue
		}

		c.logger.Info("websocket reconnected")
		c.notifyConnected()
		return true
	}
}

func (c *Client) writeLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case msg := <-c.outbound:
			conn := c.current()
			if conn == nil {
				// Connection is down; the frame is dropped and the producer
				// is expected to replay state via the connect hook.
				c.logger.Warn("websocket write while disconnected, frame dropped")
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Error("websocket write failed", "error", err)
				c.closeConn()
			}
		}
	}
}

func (c *Client) startHeartbeat() context.CancelFunc {
	if c.cfg.PingInterval <= 0 {
		return func() {}
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				conn := c.current()
				if conn == nil {
					return
				}
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.cfg.PingWait)); err != nil {
					c.closeConn()
					return
				}
			}
		}
	}()
	return cancel
}
