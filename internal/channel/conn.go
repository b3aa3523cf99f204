package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/matheus3301/chatdock/internal/chat"
	"github.com/matheus3301/chatdock/internal/status"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrAuthRejected is recorded when the backend rejects the handshake with 401.
var ErrAuthRejected = errors.New("backend rejected credential (401)")

const (
	writeTimeout = 10 * time.Second
	readLimit    = 512 * 1024
	outboxSize   = 64
)

// Sink receives decoded inbound events from the read goroutine, one at a
// time, in the order the frames arrived.
type Sink func(kind chat.EventKind, payload any)

// Options configures a Conn. Zero durations take defaults.
type Options struct {
	URL            string
	Machine        *status.Machine
	Sink           Sink
	Logger         *zap.Logger
	MinBackoff     time.Duration
	MaxBackoff     time.Duration
	PingInterval   time.Duration
	TypingInterval time.Duration
}

// Conn owns the single authenticated push channel to the backend. It
// reconnects with capped backoff while a credential is set.
type Conn struct {
	url        string
	state      *status.Machine
	sink       Sink
	logger     *zap.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
	pingEvery  time.Duration
	typing     *rate.Limiter

	mu     sync.Mutex
	token  string
	cancel context.CancelFunc
	done   chan struct{}
	out    chan []byte
}

// New creates a disconnected Conn.
func New(opts Options) *Conn {
	c := &Conn{
		url:        opts.URL,
		state:      opts.Machine,
		sink:       opts.Sink,
		logger:     opts.Logger,
		minBackoff: opts.MinBackoff,
		maxBackoff: opts.MaxBackoff,
		pingEvery:  opts.PingInterval,
	}
	if c.state == nil {
		c.state = status.NewMachine(nil)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.minBackoff <= 0 {
		c.minBackoff = time.Second
	}
	if c.maxBackoff <= 0 {
		c.maxBackoff = 30 * time.Second
	}
	if c.pingEvery <= 0 {
		c.pingEvery = 30 * time.Second
	}
	every := opts.TypingInterval
	if every <= 0 {
		every = 2 * time.Second
	}
	c.typing = rate.NewLimiter(rate.Every(every), 1)
	return c
}

// State returns the current connectivity state.
func (c *Conn) State() status.State {
	return c.state.Current()
}

// Connect starts the channel for token. It is a no-op while a channel for
// the same token is running, and replaces the channel when the token
// differs. An empty token leaves the connection closed.
func (c *Conn) Connect(ctx context.Context, token string) {
	if token == "" {
		c.logger.Debug("no credential, channel stays closed")
		return
	}

	c.mu.Lock()
	if c.cancel != nil && c.token == token {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.Disconnect()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	c.mu.Lock()
	c.token = token
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		c.run(runCtx, token)
	}()
}

// Disconnect tears down the channel and stops reconnection. Idempotent.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done, c.token = nil, nil, ""
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	if err := c.state.Transition(status.Disconnected); err != nil {
		c.logger.Warn("state transition failed", zap.Error(err))
	}
}

// Emit queues an outbound frame. Frames are dropped when the channel is
// not connected or the outbound buffer is full. Typing-start frames are
// throttled.
func (c *Conn) Emit(typ string, payload any) {
	if typ == TypeTyping {
		if f, ok := payload.(TypingFrame); ok && f.IsTyping && !c.typing.Allow() {
			return
		}
	}

	c.mu.Lock()
	out := c.out
	c.mu.Unlock()
	if out == nil {
		c.logger.Debug("channel not connected, dropping frame", zap.String("type", typ))
		return
	}

	data, err := Encode(typ, payload)
	if err != nil {
		c.logger.Warn("encode frame failed", zap.String("type", typ), zap.Error(err))
		return
	}
	select {
	case out <- data:
	default:
		c.logger.Warn("outbound buffer full, dropping frame", zap.String("type", typ))
	}
}

func (c *Conn) run(ctx context.Context, token string) {
	bo := NewBackoff(c.minBackoff, c.maxBackoff)
	for {
		c.transition(status.Connecting)
		connected, err := c.connectAndServe(ctx, token)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, ErrAuthRejected) {
			c.logger.Warn("push channel authentication rejected", zap.Error(err))
			_ = c.state.Fail(err)
			return
		}
		if connected {
			bo.Reset()
		}
		delay := bo.Next()
		c.logger.Warn("push channel lost, reconnecting",
			zap.Error(err),
			zap.Duration("delay", delay),
		)
		_ = c.state.Fail(err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (c *Conn) transition(to status.State) {
	if err := c.state.Transition(to); err != nil {
		c.logger.Warn("state transition failed", zap.Error(err))
	}
}

func (c *Conn) connectAndServe(ctx context.Context, token string) (connected bool, err error) {
	opts := &websocket.DialOptions{HTTPHeader: make(http.Header)}
	opts.HTTPHeader.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.Dial(ctx, c.url, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return false, ErrAuthRejected
		}
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)

	out := make(chan []byte, outboxSize)
	c.mu.Lock()
	c.out = out
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.out = nil
		c.mu.Unlock()
	}()

	c.transition(status.Connected)
	c.logger.Info("push channel connected", zap.String("url", c.url))

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.writeLoop(serveCtx, conn, out)
	go c.heartbeatLoop(serveCtx, conn)

	for {
		_, data, err := conn.Read(serveCtx)
		if err != nil {
			return true, fmt.Errorf("read: %w", err)
		}
		kind, payload, err := Decode(data)
		if err != nil {
			c.logger.Debug("dropping inbound frame", zap.Error(err))
			continue
		}
		if c.sink != nil {
			c.sink(kind, payload)
		}
	}
}

func (c *Conn) writeLoop(ctx context.Context, conn *websocket.Conn, out <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-out:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.logger.Debug("write frame failed", zap.Error(err))
				conn.CloseNow()
				return
			}
		}
	}
}

func (c *Conn) heartbeatLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.logger.Debug("heartbeat failed", zap.Error(err))
				conn.CloseNow()
				return
			}
		}
	}
}
