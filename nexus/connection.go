package nexus

import (
	"context"
	"sync"

	"github.com/momentics/nexus-quic/handlemap"
	"github.com/momentics/nexus-quic/logging"
	"github.com/momentics/nexus-quic/quicstack"
	"github.com/momentics/nexus-quic/sendbuf"
)

const defaultReceiveRingSize = 1 << 16

// Connection carries per-connection state: an opaque handle, a serial
// number, and a HandleContextMap<StreamHandle, Stream>. Invariant: every
// stream in Streams has stream.Conn == this — enforced here since
// Stream is only ever constructed via Connection.openStream/
// Client.acceptPeerStreams.
type Connection struct {
	Handle  handlemap.Handle
	Serial  uint64
	raw     quicstack.Connection
	Streams *handlemap.Map[*Stream]

	receiveRingSize int
	log             logging.Logger

	closeOnce sync.Once
}

func newConnection(raw quicstack.Connection, receiveRingSize int, log logging.Logger) *Connection {
	if receiveRingSize <= 0 {
		receiveRingSize = defaultReceiveRingSize
	}
	return &Connection{
		Handle:          handleOf(raw),
		Serial:          nextSerial(),
		raw:             raw,
		Streams:         handlemap.New[*Stream](),
		receiveRingSize: receiveRingSize,
		log:             log,
	}
}

// openStream opens a locally-initiated stream, inserts it into Streams,
// and starts its receive loop. on_stream_start is NOT invoked for
// locally-opened streams — that callback is reserved for peer-initiated
// streams.
func (c *Connection) openStream(ctx context.Context, cb StreamCallbacks) (*Stream, *Error) {
	raw, err := c.raw.OpenStream(ctx)
	if err != nil {
		return nil, newErr(ErrStreamOpenFailed, err)
	}
	s := newStream(c, raw, c.receiveRingSize, cb, c.log)
	if addErr := c.Streams.Add(s.Handle, s); addErr != nil {
		_ = raw.Close()
		return nil, newErr(ErrValueAlreadyExists, addErr)
	}
	go s.readLoop()
	return s, nil
}

// closeStream closes and removes a stream from Streams, invoking
// OnClose after extraction.
func (c *Connection) closeStream(s *Stream) *Error {
	entry, err := c.Streams.Erase(s.Handle)
	if err != nil {
		return newErr(ErrValueDoesNotExist, err)
	}
	entry.Value.Close()
	return nil
}

// send submits sb on the given stream.
func (c *Connection) send(s *Stream, sb *sendbuf.Buffer) (int, *Error) {
	return s.Send(sb)
}

// closeAllStreams drains and closes every live stream, used on
// disconnect.
func (c *Connection) closeAllStreams() {
	for _, entry := range c.Streams.EraseAll() {
		entry.Value.Close()
	}
}

// Close requests a graceful shutdown of the underlying connection and
// tears down every stream. Idempotent.
func (c *Connection) Close(code uint64, reason string) {
	c.closeOnce.Do(func() {
		c.closeAllStreams()
		_ = c.raw.CloseWithError(code, reason)
	})
}
