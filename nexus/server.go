package nexus

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/momentics/nexus-quic/handlemap"
	"github.com/momentics/nexus-quic/logging"
	"github.com/momentics/nexus-quic/quicstack"
	"github.com/momentics/nexus-quic/sendbuf"
)

// ServerCallbacks are the connection-lifecycle callbacks a Server
// invokes.
type ServerCallbacks struct {
	OnConnected    func(*Connection)
	OnDisconnected func(*Connection)
}

// ServerOption configures a Server at construction time.
type ServerOption func(*Server)

// WithServerCallbacks installs the connection lifecycle callbacks.
func WithServerCallbacks(cb ServerCallbacks) ServerOption {
	return func(s *Server) { s.cb = cb }
}

// WithServerReceiveRingSize overrides the per-stream receive ring size
// (default defaultReceiveRingSize) for every connection this Server
// accepts.
func WithServerReceiveRingSize(n int) ServerOption {
	return func(s *Server) { s.receiveRingSize = n }
}

// WithServerAsyncCallbacks runs OnConnected/OnDisconnected on a Dispatcher
// of workers goroutines instead of the accept loop's own goroutine, so a
// slow handler cannot stall acceptance of new connections. numaNode is
// advisory bookkeeping passed through to the underlying executor.
func WithServerAsyncCallbacks(workers, numaNode int) ServerOption {
	return func(s *Server) { s.dispatch = NewDispatcher(workers, numaNode) }
}

// Server owns zero or one listener and a concurrent
// HandleContextMap<ConnectionHandle, Connection>.
type Server struct {
	app *Application
	log logging.Logger

	cb              ServerCallbacks
	receiveRingSize int
	dispatch        *Dispatcher

	listener    quicstack.Listener
	connections *handlemap.Map[*Connection]

	listening atomic.Bool
	group     *errgroup.Group
	cancel    context.CancelFunc
}

// NewServer constructs a Server anchored to app.
func NewServer(app *Application, opts...ServerOption) *Server {
	s := &Server{
		app:             app,
		log:             app.logger.Named("server"),
		connections:     handlemap.New[*Connection](),
		receiveRingSize: defaultReceiveRingSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen transitions idle -> listening.
// Re-entry while already listening is ErrAlreadyListening.
func (s *Server) Listen(ctx context.Context, port uint16) *Error {
	if !s.listening.CompareAndSwap(false, true) {
		return newErr(ErrAlreadyListening, nil)
	}

	tlsCfg, terr := buildTLSConfig(s.app.cfg)
	if terr != nil {
		s.listening.Store(false)
		return terr
	}

	addr := fmt.Sprintf("[::]:%d", port)
	ln, err := s.app.stack.Listen(ctx, quicstack.ListenConfig{
		Address: addr,
		TLS:     tlsCfg,
		QUIC:    s.app.cfg.quicStackConfig(),
	})
	if err != nil {
		s.listening.Store(false)
		return newErr(ErrListenerInitializationFailed, err)
	}
	s.listener = ln

	acceptCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	group, gctx := errgroup.WithContext(acceptCtx)
	s.group = group

	group.Go(func() error {
		return s.acceptLoop(gctx, ln)
	})
	return nil
}

// acceptLoop accepts inbound connections until ctx is cancelled or ln is
// closed, registering each one and spawning its peer-stream-rejection
// loop.
func (s *Server) acceptLoop(ctx context.Context, ln quicstack.Listener) error {
	for {
		raw, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Log(logging.LevelWarn, "server.acceptLoop", err.Error())
			return nil
		}

		conn := newConnection(raw, s.receiveRingSize, s.log)
		if addErr := s.connections.Add(conn.Handle, conn); addErr != nil {
			conn.Close(uint64(ErrValueAlreadyExists), "duplicate connection handle")
			continue
		}
		s.app.noteConnectionAccepted()
		if s.cb.OnConnected != nil {
			s.dispatch.Dispatch(func() { s.cb.OnConnected(conn) })
		}

		go s.rejectPeerStreams(ctx, conn)
	}
}

// rejectPeerStreams enforces the server-side invariant that peer-initiated
// streams are forbidden: it closes any such stream immediately, before
// on_stream_start ever fires and without the stream entering the
// connection's map. quic-go surfaces the stack's connection shutdown as
// AcceptStream returning an error rather than a push callback, so that
// error is also this loop's signal to extract conn from the map and fire
// on_disconnected.
func (s *Server) rejectPeerStreams(ctx context.Context, conn *Connection) {
	for {
		st, err := conn.raw.AcceptStream(ctx)
		if err != nil {
			entry, eraseErr := s.connections.Erase(conn.Handle)
			if eraseErr != nil {
				return
			}
			entry.Value.Close(0, "connection lost")
			if s.cb.OnDisconnected != nil {
				s.dispatch.Dispatch(func() { s.cb.OnDisconnected(entry.Value) })
			}
			return
		}
		st.CancelRead(uint64(ErrStreamOpenFailed))
		st.CancelWrite(uint64(ErrStreamOpenFailed))
		_ = st.Close()
	}
}

// OpenStream opens a server-initiated stream on conn. on_stream_start is not invoked for this path.
func (s *Server) OpenStream(ctx context.Context, conn *Connection, cb StreamCallbacks) (*Stream, *Error) {
	st, err := conn.openStream(ctx, cb)
	if err == nil {
		s.app.noteStreamOpened()
	}
	return st, err
}

// CloseStream closes a stream previously opened on this Server.
func (s *Server) CloseStream(conn *Connection, stream *Stream) *Error {
	return conn.closeStream(stream)
}

// Send submits sb on stream.
func (s *Server) Send(conn *Connection, stream *Stream, sb *sendbuf.Buffer) (int, *Error) {
	n, err := conn.send(stream, sb)
	if err == nil {
		s.app.noteBytesSent(n)
	}
	return n, err
}

// Close stops accepting new connections and closes every live
// connection.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	if s.group != nil {
		_ = s.group.Wait()
	}
	for _, entry := range s.connections.EraseAll() {
		entry.Value.Close(0, "server shutting down")
	}
	s.dispatch.Close()
	s.listening.Store(false)
	return err
}
