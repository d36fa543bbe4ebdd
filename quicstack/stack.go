// Package quicstack defines Nexus's boundary with the underlying QUIC
// stack. Nexus's facade (package nexus) never imports
// github.com/quic-go/quic-go directly; it only depends on the
// Stack/Listener/Connection/Stream interfaces here, so the concrete
// binding can be swapped — production code uses QuicGoStack, tests use
// FakeStack — without touching facade logic. The wire protocol,
// congestion control and handshake machinery live entirely in quic-go;
// this package only adapts its API shape.
package quicstack

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"time"
)

// QUICConfig carries the subset of nexus.QuicConfiguration fields that
// map onto the underlying stack's own dial/listen options. QuicGoStack
// applies IdleTimeout, KeepAliveInterval and StreamReceiveWindow;
// StreamReceiveBuffer is carried but not applied by QuicGoStack.
type QUICConfig struct {
	IdleTimeout         time.Duration
	KeepAliveInterval   time.Duration
	StreamReceiveWindow uint32
	StreamReceiveBuffer uint32
}

// ListenConfig configures Stack.Listen.
type ListenConfig struct {
	Address string
	TLS     *tls.Config
	QUIC    QUICConfig
}

// DialConfig configures Stack.Dial.
type DialConfig struct {
	Address string
	TLS     *tls.Config
	QUIC    QUICConfig
}

// Stack is the implementation-agnostic underlying QUIC stack binding.
// quic-go via QuicGoStack is the one production implementation, plus
// FakeStack for tests — both satisfy this same interface, so
// ImplType's role becomes "which Stack value NewApplication is given"
// rather than a runtime-checked enum.
type Stack interface {
	// Listen starts accepting inbound connections, transitioning the
	// caller from idle to listening.
	Listen(ctx context.Context, cfg ListenConfig) (Listener, error)
	// Dial opens an outbound connection.
	Dial(ctx context.Context, cfg DialConfig) (Connection, error)
}

// Listener accepts inbound Connections. Closing it stops accepting new
// connections without affecting ones already accepted.
type Listener interface {
	Accept(ctx context.Context) (Connection, error)
	Addr() net.Addr
	Close() error
}

// Connection is one underlying QUIC connection, opaque beyond the
// primitives Nexus's CallbackDispatcher needs.
type Connection interface {
	// AcceptStream waits for a peer-initiated stream. Servers use this
	// to observe peer-initiated streams, then immediately close any such
	// stream since peer-initiated streams are forbidden server-side.
	AcceptStream(ctx context.Context) (Stream, error)
	// OpenStream opens a locally-initiated stream.
	OpenStream(ctx context.Context) (Stream, error)
	// CloseWithError requests a graceful shutdown; the stack's
	// SHUTDOWN_COMPLETE event is the confirmation point.
	CloseWithError(code uint64, reason string) error
	RemoteAddr() net.Addr
}

// Stream is one bidirectional QUIC stream.
type Stream interface {
	io.Reader
	io.Writer
	StreamID() int64
	Close() error
	// CancelRead/CancelWrite abort the stream in the given direction
	// with an application error code, used when a server rejects a
	// peer-initiated stream outright.
	CancelRead(code uint64)
	CancelWrite(code uint64)
}
