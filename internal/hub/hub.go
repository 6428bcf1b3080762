package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Tyrowin/potatoserver/internal/metrics"
)

// DefaultEchoPrefix is prepended to every received text frame before it is
// broadcast.
const DefaultEchoPrefix = "Echo: "

// Policy decides what a received text frame turns into and who gets it.
type Policy struct {
	// EchoPrefix is prepended to the received text. Empty passes text through.
	EchoPrefix string
	// IncludeSender delivers a client's broadcast back to the client itself.
	IncludeSender bool
}

// DefaultPolicy echoes with DefaultEchoPrefix to every client, sender included.
func DefaultPolicy() Policy {
	return Policy{EchoPrefix: DefaultEchoPrefix, IncludeSender: true}
}

// Transform returns the message broadcast for a received text frame.
func (p Policy) Transform(text string) string {
	return p.EchoPrefix + text
}

// Options configures a Hub. Zero values disable the optional features.
type Options struct {
	Policy Policy

	// MaxMessageSize bounds a single received frame in bytes.
	MaxMessageSize int64
	// WriteTimeout bounds each individual send.
	WriteTimeout time.Duration
	// IdleTimeout enables read deadlines and keepalive pings when positive.
	IdleTimeout time.Duration

	// RateLimitBurst text frames are accepted per RateLimitInterval per client.
	RateLimitBurst    int
	RateLimitInterval time.Duration

	// Commands answers registered "/command" frames to the sender only.
	Commands *CommandTable
}

// DefaultOptions returns the options the server runs with when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Policy:         DefaultPolicy(),
		MaxMessageSize: 4096,
		WriteTimeout:   10 * time.Second,
	}
}

// BroadcastResult reports the per-recipient outcome of one broadcast.
type BroadcastResult struct {
	Attempted int
	Delivered int
	Failed    int
}

// Hub owns the connection registry, runs one receive loop per connection and
// fans text messages out to every open connection.
type Hub struct {
	registry *Registry
	opts     Options
	log      *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a Hub. A nil logger disables logging.
func New(opts Options, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = DefaultOptions().MaxMessageSize
	}
	return &Hub{
		registry: NewRegistry(),
		opts:     opts,
		log:      logger.Named("hub"),
	}
}

// Registry exposes the hub's connection registry.
func (h *Hub) Registry() *Registry { return h.registry }

// Len returns the number of registered connections.
func (h *Hub) Len() int { return h.registry.Len() }

// Closed reports whether Shutdown has been called.
func (h *Hub) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Serve registers an upgraded connection and runs its receive loop on the
// calling goroutine. It returns when the connection is Closed, or at once with
// ErrClosed (after closing conn) if the hub has been shut down.
func (h *Hub) Serve(conn Transport, addr string) error {
	c, err := h.attach(conn, addr)
	if err != nil {
		return err
	}
	defer h.wg.Done()

	c.readLoop()
	return nil
}

// attach creates and registers a client. On success the caller owns one
// h.wg slot and must release it.
func (h *Hub) attach(conn Transport, addr string) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		_ = conn.Close()
		return nil, ErrClosed
	}

	c := newClient(h, conn, addr)
	h.wg.Add(1)
	h.registry.Register(c)

	metrics.ConnectionsTotal.Inc()
	metrics.ConnectedClients.Inc()
	c.log.Info("client registered", zap.Int("clients", h.registry.Len()))
	return c, nil
}

func (h *Hub) unregister(c *Client, reason string) {
	if !h.registry.Unregister(c) {
		return
	}
	metrics.ConnectedClients.Dec()
	metrics.DisconnectsTotal.WithLabelValues(reason).Inc()
	c.log.Info("client unregistered", zap.String("reason", reason), zap.Int("clients", h.registry.Len()))
}

// Broadcast sends message to every open connection. A failed send closes and
// unregisters that recipient only; delivery to the others continues.
func (h *Hub) Broadcast(message string) BroadcastResult {
	return h.broadcastFrom(nil, message)
}

func (h *Hub) broadcastFrom(sender *Client, message string) BroadcastResult {
	payload := []byte(message)
	var result BroadcastResult

	for _, c := range h.registry.Snapshot() {
		if c == sender && !h.opts.Policy.IncludeSender {
			continue
		}
		if c.State() != StateOpen {
			continue
		}

		result.Attempted++
		if err := c.Send(payload); err != nil {
			result.Failed++
			metrics.BroadcastDeliveriesTotal.WithLabelValues("failed").Inc()
			if !errors.Is(err, ErrNotOpen) {
				c.abort(reasonSendFailure, err)
			}
			continue
		}
		result.Delivered++
		metrics.BroadcastDeliveriesTotal.WithLabelValues("delivered").Inc()
	}

	metrics.BroadcastsTotal.Inc()
	h.log.Debug("broadcast complete",
		zap.Int("attempted", result.Attempted),
		zap.Int("delivered", result.Delivered),
		zap.Int("failed", result.Failed))
	return result
}

// handleCommand answers a command frame to the sender only. It reports false
// when text is not a registered command or commands are disabled.
func (h *Hub) handleCommand(c *Client, text string) bool {
	if h.opts.Commands == nil {
		return false
	}
	reply, ok := h.opts.Commands.Dispatch(h, c, text)
	if !ok {
		return false
	}
	if err := c.Send([]byte(reply)); err != nil && !errors.Is(err, ErrNotOpen) {
		c.abort(reasonSendFailure, err)
	}
	return true
}

// Shutdown stops accepting connections, closes every open connection with a
// going-away frame and waits for all receive loops to return. It returns
// ctx.Err() if they have not finished when ctx is done.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	clients := h.registry.Snapshot()
	h.log.Info("shutting down client connections", zap.Int("clients", len(clients)))
	for _, c := range clients {
		c.shutdown()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-ctx.Done():
		h.log.Warn("hub shutdown timed out; some receive loops are still running")
		return ctx.Err()
	}
}
