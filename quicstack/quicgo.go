package quicstack

import (
	"context"
	"net"

	"github.com/quic-go/quic-go"
)

// QuicGoStack binds Stack to github.com/quic-go/quic-go, the one
// production underlying implementation wired up in this tree.
type QuicGoStack struct{}

// NewQuicGoStack constructs the quic-go-backed Stack.
func NewQuicGoStack() *QuicGoStack { return &QuicGoStack{} }

func (s *QuicGoStack) Listen(ctx context.Context, cfg ListenConfig) (Listener, error) {
	ln, err := quic.ListenAddr(cfg.Address, cfg.TLS, toQuicConfig(cfg.QUIC))
	if err != nil {
		return nil, err
	}
	return &quicGoListener{ln: ln}, nil
}

func (s *QuicGoStack) Dial(ctx context.Context, cfg DialConfig) (Connection, error) {
	conn, err := quic.DialAddr(ctx, cfg.Address, cfg.TLS, toQuicConfig(cfg.QUIC))
	if err != nil {
		return nil, err
	}
	return &quicGoConnection{conn: conn}, nil
}

func toQuicConfig(c QUICConfig) *quic.Config {
	cfg := &quic.Config{}
	if c.IdleTimeout > 0 {
		cfg.MaxIdleTimeout = c.IdleTimeout
	}
	if c.KeepAliveInterval > 0 {
		cfg.KeepAlivePeriod = c.KeepAliveInterval
	}
	if c.StreamReceiveWindow > 0 {
		cfg.InitialStreamReceiveWindow = uint64(c.StreamReceiveWindow)
	}
	return cfg
}

type quicGoListener struct{ ln *quic.Listener }

func (l *quicGoListener) Accept(ctx context.Context) (Connection, error) {
	conn, err := l.ln.Accept(ctx)
	if err != nil {
		return nil, err
	}
	return &quicGoConnection{conn: conn}, nil
}

func (l *quicGoListener) Addr() net.Addr { return l.ln.Addr() }
func (l *quicGoListener) Close() error   { return l.ln.Close() }

type quicGoConnection struct{ conn *quic.Conn }

func (c *quicGoConnection) AcceptStream(ctx context.Context) (Stream, error) {
	st, err := c.conn.AcceptStream(ctx)
	if err != nil {
		return nil, err
	}
	return &quicGoStream{st: st}, nil
}

func (c *quicGoConnection) OpenStream(ctx context.Context) (Stream, error) {
	st, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return &quicGoStream{st: st}, nil
}

func (c *quicGoConnection) CloseWithError(code uint64, reason string) error {
	return c.conn.CloseWithError(quic.ApplicationErrorCode(code), reason)
}

func (c *quicGoConnection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

type quicGoStream struct{ st *quic.Stream }

func (s *quicGoStream) Read(p []byte) (int, error)  { return s.st.Read(p) }
func (s *quicGoStream) Write(p []byte) (int, error) { return s.st.Write(p) }
func (s *quicGoStream) StreamID() int64             { return int64(s.st.StreamID()) }
func (s *quicGoStream) Close() error                { return s.st.Close() }
func (s *quicGoStream) CancelRead(code uint64)      { s.st.CancelRead(quic.StreamErrorCode(code)) }
func (s *quicGoStream) CancelWrite(code uint64)     { s.st.CancelWrite(quic.StreamErrorCode(code)) }
