package nexus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/momentics/nexus-quic/logging"
	"github.com/momentics/nexus-quic/quicstack"
	"github.com/momentics/nexus-quic/sendbuf"
)

// ClientCallbacks are the connection-lifecycle callbacks a Client
// invokes.
type ClientCallbacks struct {
	OnConnected    func(*Connection)
	OnDisconnected func(*Connection)
	// OnStreamStart fires for peer-initiated streams, which are only
	// permitted client-side.
	OnStreamStart func(*Stream)
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithClientCallbacks installs the connection lifecycle callbacks.
func WithClientCallbacks(cb ClientCallbacks) ClientOption {
	return func(c *Client) { c.cb = cb }
}

// WithClientReceiveRingSize overrides the per-stream receive ring size.
func WithClientReceiveRingSize(n int) ClientOption {
	return func(c *Client) { c.receiveRingSize = n }
}

// WithPeerStreamCallbacks installs the StreamCallbacks applied to every
// peer-initiated stream this Client accepts.
func WithPeerStreamCallbacks(cb StreamCallbacks) ClientOption {
	return func(c *Client) { c.peerStreamCB = cb }
}

// WithClientAsyncCallbacks runs OnConnected/OnDisconnected on a Dispatcher
// of workers goroutines instead of the caller's goroutine. See
// WithServerAsyncCallbacks for the rationale.
func WithClientAsyncCallbacks(workers, numaNode int) ClientOption {
	return func(c *Client) { c.dispatch = NewDispatcher(workers, numaNode) }
}

// clientState mirrors Client's lifecycle: idle -> connecting ->
// connected -> disconnected.
type clientState int

const (
	clientIdle clientState = iota
	clientConnecting
	clientConnected
	clientDisconnected
)

// Client owns a single optional connection.
type Client struct {
	app *Application
	log logging.Logger

	cb              ClientCallbacks
	peerStreamCB    StreamCallbacks
	receiveRingSize int
	dispatch        *Dispatcher

	mu    sync.Mutex
	state clientState
	conn  *Connection

	cancel context.CancelFunc
}

// NewClient constructs a Client anchored to app.
func NewClient(app *Application, opts...ClientOption) *Client {
	c := &Client{
		app:             app,
		log:             app.logger.Named("client"),
		receiveRingSize: defaultReceiveRingSize,
		state:           clientIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect creates a new connection to host:port. ErrClientAlreadyConnected if a connection is already
// established or in progress.
func (c *Client) Connect(ctx context.Context, host string, port uint16) *Error {
	c.mu.Lock()
	if c.state == clientConnecting || c.state == clientConnected {
		c.mu.Unlock()
		return newErr(ErrClientAlreadyConnected, nil)
	}
	c.state = clientConnecting
	c.mu.Unlock()

	tlsCfg, terr := buildTLSConfig(c.app.cfg)
	if terr != nil {
		c.setState(clientIdle)
		return terr
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	raw, err := c.app.stack.Dial(ctx, quicstack.DialConfig{
		Address: addr,
		TLS:     tlsCfg,
		QUIC:    c.app.cfg.quicStackConfig(),
	})
	if err != nil {
		c.setState(clientIdle)
		return newErr(ErrConnectionInitializationFailed, err)
	}

	conn := newConnection(raw, c.receiveRingSize, c.log)
	c.mu.Lock()
	c.conn = conn
	c.state = clientConnected
	c.mu.Unlock()

	if c.cb.OnConnected != nil {
		c.dispatch.Dispatch(func() { c.cb.OnConnected(conn) })
	}

	connCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go c.acceptPeerStreams(connCtx, conn)
	return nil
}

// ConnectWithRetry retries Connect with exponential backoff until it
// succeeds, ctx is cancelled, or maxElapsed has passed, driving a manual
// backoff.ExponentialBackOff/NextBackOff loop rather than failing the
// first dial attempt outright.
func (c *Client) ConnectWithRetry(ctx context.Context, host string, port uint16, maxElapsed time.Duration) *Error {
	bo := backoff.ExponentialBackOff{
		InitialInterval:     backoff.DefaultInitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         30 * time.Second,
	}
	bo.Reset()
	deadline := time.Now().Add(maxElapsed)

	for {
		err := c.Connect(ctx, host, port)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return err
		}
		select {
		case <-ctx.Done():
			return newErr(ErrConnectionStartFailed, ctx.Err())
		case <-time.After(bo.NextBackOff()):
		}
	}
}

func (c *Client) setState(st clientState) {
	c.mu.Lock()
	c.state = st
	c.mu.Unlock()
}

// acceptPeerStreams installs peer-initiated streams into conn's map and
// fires on_stream_start.
func (c *Client) acceptPeerStreams(ctx context.Context, conn *Connection) {
	for {
		raw, err := conn.raw.AcceptStream(ctx)
		if err != nil {
			c.disconnect(conn, "connection lost")
			return
		}
		s := newStream(conn, raw, c.receiveRingSize, c.peerStreamCB, c.log)
		if addErr := conn.Streams.Add(s.Handle, s); addErr != nil {
			_ = raw.Close()
			continue
		}
		c.app.noteStreamOpened()
		if streamCB, _ := s.cb.Get(); streamCB.OnStart != nil {
			streamCB.OnStart(s)
		}
		go s.readLoop()
		if c.cb.OnStreamStart != nil {
			c.cb.OnStreamStart(s)
		}
	}
}

// OpenStream opens a locally-initiated stream on the current connection.
// Returns ErrClientNotConnected if not connected.
func (c *Client) OpenStream(ctx context.Context, cb StreamCallbacks) (*Stream, *Error) {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == clientConnected
	c.mu.Unlock()
	if !connected || conn == nil {
		return nil, newErr(ErrClientNotConnected, nil)
	}
	st, openErr := conn.openStream(ctx, cb)
	if openErr == nil {
		c.app.noteStreamOpened()
	}
	return st, openErr
}

// CloseStream closes a stream on the current connection.
func (c *Client) CloseStream(stream *Stream) *Error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return newErr(ErrClientNotConnected, nil)
	}
	return conn.closeStream(stream)
}

// Send submits sb on stream.
func (c *Client) Send(stream *Stream, sb *sendbuf.Buffer) (int, *Error) {
	n, err := stream.Send(sb)
	if err == nil {
		c.app.noteBytesSent(n)
	}
	return n, err
}

// Disconnect requests a graceful shutdown of the current connection.
// Idempotent.
func (c *Client) Disconnect() *Error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return newErr(ErrClientNotConnected, nil)
	}
	c.disconnect(conn, "client disconnect requested")
	return nil
}

func (c *Client) disconnect(conn *Connection, reason string) {
	c.mu.Lock()
	if c.state == clientDisconnected || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.state = clientDisconnected
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	conn.Close(0, reason)
	if c.cb.OnDisconnected != nil {
		c.dispatch.Dispatch(func() { c.cb.OnDisconnected(conn) })
	}
	c.dispatch.Close()
}

// Connection returns the current connection, if any.
func (c *Client) Connection() *Connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}
