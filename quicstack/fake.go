package quicstack

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
)

// FakeStack is an in-memory Stack for tests: Dial pairs up with a
// Listen'd address's Accept without touching a socket, and every stream
// is a pair of in-memory pipes — a predictable, hook-free stand-in for a
// real transport.
type FakeStack struct {
	mu        sync.Mutex
	listeners map[string]*fakeListener
}

// NewFakeStack constructs an empty FakeStack.
func NewFakeStack() *FakeStack {
	return &FakeStack{listeners: make(map[string]*fakeListener)}
}

func (s *FakeStack) Listen(_ context.Context, cfg ListenConfig) (Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ln := &fakeListener{
		addr:     fakeAddr(cfg.Address),
		incoming: make(chan Connection, 16),
		closed:   make(chan struct{}),
	}
	s.listeners[cfg.Address] = ln
	return ln, nil
}

func (s *FakeStack) Dial(ctx context.Context, cfg DialConfig) (Connection, error) {
	s.mu.Lock()
	ln, ok := s.listeners[cfg.Address]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("quicstack: fake dial to unknown address %q", cfg.Address)
	}

	client, server := newFakeConnectionPair()
	select {
	case ln.incoming <- server:
	case <-ln.closed:
		return nil, fmt.Errorf("quicstack: fake listener %q is closed", cfg.Address)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return client, nil
}

type fakeAddr string

func (a fakeAddr) Network() string { return "fake" }
func (a fakeAddr) String() string  { return string(a) }

type fakeListener struct {
	addr      fakeAddr
	incoming  chan Connection
	closed    chan struct{}
	closeOnce sync.Once
}

func (l *fakeListener) Accept(ctx context.Context) (Connection, error) {
	select {
	case c := <-l.incoming:
		return c, nil
	case <-l.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *fakeListener) Addr() net.Addr { return l.addr }

func (l *fakeListener) Close() error {
	l.closeOnce.Do(func() { close(l.closed) })
	return nil
}

// fakeConnection is one endpoint of a connected pair. peerOutgoing is
// where this endpoint's OpenStream deposits the remote-visible half of a
// new stream; peerStreams is where AcceptStream reads streams the other
// endpoint opened.
type fakeConnection struct {
	peerStreams  chan Stream
	peerOutgoing chan Stream
	remote       net.Addr
	closed       chan struct{}
	closeOnce    sync.Once
}

func newFakeConnectionPair() (client, server *fakeConnection) {
	toClient := make(chan Stream, 16)
	toServer := make(chan Stream, 16)
	client = &fakeConnection{
		peerStreams:  toClient,
		peerOutgoing: toServer,
		remote:       fakeAddr("fake-server"),
		closed:       make(chan struct{}),
	}
	server = &fakeConnection{
		peerStreams:  toServer,
		peerOutgoing: toClient,
		remote:       fakeAddr("fake-client"),
		closed:       make(chan struct{}),
	}
	return client, server
}

func (c *fakeConnection) AcceptStream(ctx context.Context) (Stream, error) {
	select {
	case st := <-c.peerStreams:
		return st, nil
	case <-c.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConnection) OpenStream(ctx context.Context) (Stream, error) {
	local, remote := newFakeStreamPair()
	select {
	case c.peerOutgoing <- remote:
	case <-c.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return local, nil
}

func (c *fakeConnection) CloseWithError(code uint64, reason string) error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConnection) RemoteAddr() net.Addr { return c.remote }

var fakeStreamSeq int64

type fakeStream struct {
	id       int64
	readFrom *io.PipeReader
	writeTo  *io.PipeWriter
}

func newFakeStreamPair() (a, b *fakeStream) {
	id := atomic.AddInt64(&fakeStreamSeq, 1)
	r1, w1 := io.Pipe() // a reads what b writes
	r2, w2 := io.Pipe() // b reads what a writes
	a = &fakeStream{id: id, readFrom: r1, writeTo: w2}
	b = &fakeStream{id: id, readFrom: r2, writeTo: w1}
	return a, b
}

func (s *fakeStream) Read(p []byte) (int, error)  { return s.readFrom.Read(p) }
func (s *fakeStream) Write(p []byte) (int, error) { return s.writeTo.Write(p) }
func (s *fakeStream) StreamID() int64             { return s.id }

func (s *fakeStream) Close() error {
	return s.writeTo.Close()
}

func (s *fakeStream) CancelRead(code uint64) {
	_ = s.readFrom.CloseWithError(fmt.Errorf("quicstack: stream reset by peer, code %d", code))
}

func (s *fakeStream) CancelWrite(code uint64) {
	_ = s.writeTo.CloseWithError(fmt.Errorf("quicstack: stream canceled, code %d", code))
}

var (
	_ Stack      = (*FakeStack)(nil)
	_ Listener   = (*fakeListener)(nil)
	_ Connection = (*fakeConnection)(nil)
	_ Stream     = (*fakeStream)(nil)
)
