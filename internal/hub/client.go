package hub

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Tyrowin/potatoserver/internal/metrics"
)

// State is the lifecycle position of a Client.
type State int32

const (
	// StateOpen means the receive loop is waiting for frames and the client
	// takes part in broadcasts.
	StateOpen State = iota
	// StateClosing means a close handshake is in progress.
	StateClosing
	// StateClosed means the transport is closed and the client is unregistered.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Disconnect reasons recorded in metrics.
const (
	reasonCloseFrame     = "close_frame"
	reasonTransportError = "transport_error"
	reasonSendFailure    = "send_failure"
	reasonShutdown       = "shutdown"
)

const closeAckText = "Closed"

// Client is an opaque handle to one upgraded WebSocket connection. Writes are
// serialized by the client; reads happen only on its receive loop.
type Client struct {
	id      uuid.UUID
	addr    string
	conn    Transport
	hub     *Hub
	log     *zap.Logger
	limiter *rate.Limiter

	state     atomic.Int32
	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func newClient(h *Hub, conn Transport, addr string) *Client {
	id := uuid.New()
	c := &Client{
		id:   id,
		addr: addr,
		conn: conn,
		hub:  h,
		log:  h.log.With(zap.String("client", id.String()), zap.String("addr", addr)),
		done: make(chan struct{}),
	}
	if burst := h.opts.RateLimitBurst; burst > 0 {
		interval := h.opts.RateLimitInterval
		if interval <= 0 {
			interval = time.Second
		}
		c.limiter = rate.NewLimiter(rate.Every(interval/time.Duration(burst)), burst)
	}
	return c
}

// ID returns the identifier used to correlate log lines for this client.
func (c *Client) ID() uuid.UUID { return c.id }

// Addr returns the remote address the client connected from.
func (c *Client) Addr() string { return c.addr }

// State returns the client's current lifecycle state.
func (c *Client) State() State { return State(c.state.Load()) }

func (c *Client) transition(from, to State) bool {
	return c.state.CompareAndSwap(int32(from), int32(to))
}

// Send writes message as a single text frame. It fails with ErrNotOpen once
// the client has left the Open state.
func (c *Client) Send(message []byte) error {
	if c.State() != StateOpen {
		return ErrNotOpen
	}
	return c.write(websocket.TextMessage, message)
}

func (c *Client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if timeout := c.hub.opts.WriteTimeout; timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	return c.conn.WriteMessage(messageType, data)
}

// finish marks the client Closed and releases the transport exactly once.
func (c *Client) finish() {
	c.state.Store(int32(StateClosed))
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn("error closing connection", zap.Error(err))
		}
	})
}

// abort drops the client after a transport failure: Closed, unregistered,
// transport released. No close frame is attempted.
func (c *Client) abort(reason string, err error) {
	c.state.Store(int32(StateClosed))
	c.hub.unregister(c, reason)
	c.finish()

	if isExpectedCloseError(err) {
		c.log.Info("client connection closed", zap.String("reason", reason), zap.Error(err))
	} else {
		c.log.Warn("client connection failed", zap.String("reason", reason), zap.Error(err))
	}
}

// closeHandshake answers a peer close frame: unregister, acknowledge, close.
func (c *Client) closeHandshake(code int) {
	c.transition(StateOpen, StateClosing)
	c.hub.unregister(c, reasonCloseFrame)

	ack := websocket.FormatCloseMessage(websocket.CloseNormalClosure, closeAckText)
	if err := c.write(websocket.CloseMessage, ack); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("error writing close acknowledgement", zap.Error(err))
	}
	c.finish()
	c.log.Info("client disconnected", zap.Int("code", code))
}

// shutdown closes an Open client on behalf of the hub with a going-away frame.
// Clients already closing are left to finish their own handshake.
func (c *Client) shutdown() {
	if !c.transition(StateOpen, StateClosing) {
		return
	}
	c.hub.unregister(c, reasonShutdown)

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	if err := c.write(websocket.CloseMessage, msg); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("error writing shutdown close frame", zap.Error(err))
	}
	c.finish()
}

func (c *Client) setupReadConnection() {
	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)

	// The default close handler acknowledges immediately; the ack is sent by
	// closeHandshake after the client is unregistered instead.
	c.conn.SetCloseHandler(func(int, string) error {
		c.transition(StateOpen, StateClosing)
		return nil
	})

	idle := c.hub.opts.IdleTimeout
	if idle <= 0 {
		return
	}
	c.extendReadDeadline(idle)
	c.conn.SetPongHandler(func(string) error {
		c.extendReadDeadline(idle)
		return nil
	})
	go c.keepalive(idle * 9 / 10)
}

func (c *Client) extendReadDeadline(idle time.Duration) {
	if err := c.conn.SetReadDeadline(time.Now().Add(idle)); err != nil {
		c.log.Warn("error setting read deadline", zap.Error(err))
	}
}

// keepalive pings the peer until the client is finished.
func (c *Client) keepalive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if c.State() != StateOpen {
				return
			}
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.abort(reasonTransportError, err)
				return
			}
		}
	}
}

// readLoop receives frames until the connection closes. It returns once the
// client is Closed.
func (c *Client) readLoop() {
	c.setupReadConnection()

	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}
		c.handleFrame(messageType, payload)
	}
}

func (c *Client) handleReadError(err error) {
	if c.State() == StateClosed {
		// Closed by the hub (shutdown or failed send); nothing left to do.
		return
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		c.closeHandshake(closeErr.Code)
		return
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		c.log.Warn("message exceeded maximum size", zap.Int64("limit", c.hub.opts.MaxMessageSize))
	}
	c.abort(reasonTransportError, err)
}

func (c *Client) handleFrame(messageType int, payload []byte) {
	if messageType != websocket.TextMessage {
		metrics.FramesReceivedTotal.WithLabelValues("binary").Inc()
		c.log.Debug("ignoring non-text frame", zap.Int("type", messageType))
		return
	}
	metrics.FramesReceivedTotal.WithLabelValues("text").Inc()

	if c.limiter != nil && !c.limiter.Allow() {
		metrics.FramesDroppedTotal.WithLabelValues("rate_limited").Inc()
		c.log.Info("rate limit exceeded; discarding message",
			zap.Int("burst", c.hub.opts.RateLimitBurst),
			zap.Duration("interval", c.hub.opts.RateLimitInterval))
		return
	}

	text := string(payload)
	c.log.Debug("received message", zap.String("message", text))

	if c.hub.handleCommand(c, text) {
		return
	}
	c.hub.broadcastFrom(c, c.hub.opts.Policy.Transform(text))
}
