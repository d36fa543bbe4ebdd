package nexus

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/nexus-quic/callback"
	"github.com/momentics/nexus-quic/framing"
	"github.com/momentics/nexus-quic/handlemap"
	"github.com/momentics/nexus-quic/logging"
	"github.com/momentics/nexus-quic/quicstack"
	"github.com/momentics/nexus-quic/ring"
	"github.com/momentics/nexus-quic/sendbuf"
)

// StreamCallbacks is the callback record a Stream invokes: on_start,
// on_close, and on_data_received. on_data_received's return value is
// accepted but currently always treated as "frame consumed" (see
// framing.Deliver's documented contract).
type StreamCallbacks struct {
	OnStart        func(*Stream)
	OnClose        func(*Stream)
	OnDataReceived func(payload []byte) (consumed int)
}

// Stream carries per-stream state: handle, a non-owning back-reference
// to its connection, a serial number, a receive ring, and callbacks.
// The receive ring must only be touched from the goroutine running
// readLoop, which stands in for "the stack-selected callback thread for
// this stream" in a model where quic-go delivers bytes via blocking
// Read rather than push callbacks.
type Stream struct {
	Handle  handlemap.Handle
	Conn    *Connection
	Serial  uint64
	raw     quicstack.Stream
	framer  *framing.Framer
	ring    ring.Ring
	cb      callback.Func[StreamCallbacks]
	log     logging.Logger

	inflightMu    sync.Mutex
	inflight      map[uint64]*sendbuf.Buffer
	nextToken     uint64
	closeOnce     sync.Once
	closed        atomic.Bool
}

func newStream(conn *Connection, raw quicstack.Stream, receiveRingSize int, cb StreamCallbacks, log logging.Logger) *Stream {
	r := ring.NewPow2(receiveRingSize)
	s := &Stream{
		Handle:   handleOf(raw),
		Conn:     conn,
		Serial:   nextSerial(),
		raw:      raw,
		ring:     r,
		log:      log,
		inflight: make(map[uint64]*sendbuf.Buffer),
	}
	s.cb.Set(cb)
	s.framer = framing.New(r, func(payload []byte) int {
		current, _ := s.cb.Get()
		if current.OnDataReceived == nil {
			return len(payload)
		}
		return current.OnDataReceived(payload)
	})
	return s
}

// readLoop pumps raw.Read into the ReceiveFramer until the stream is
// closed or the underlying stream errors, standing in for the
// stack-pushed RECEIVE callback. One goroutine per
// stream; this is the "stack-selected callback thread for this stream"
// the ring's single-writer invariant depends on.
func (s *Stream) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := s.raw.Read(buf)
		if n > 0 {
			s.framer.Ingest([][]byte{buf[:n]})
		}
		if err != nil {
			return
		}
	}
}

// Send overwrites the sentinel with a transport descriptor and submits
// sb to the underlying stream. The SendBuffer is
// retained in the in-flight map until send completion bookkeeping
// releases it; quic-go's Write is
// synchronous, so completion is recognised immediately after Write
// returns rather than via a separate SEND_COMPLETE callback.
func (s *Stream) Send(sb *sendbuf.Buffer) (int, *Error) {
	if s.closed.Load() {
		return 0, newErr(ErrSendFailed, nil)
	}
	desc, err := sb.QuicBufferSpan()
	if err != nil {
		return 0, newErr(ErrSendFailed, err)
	}
	// Overwrite the sentinel with a transport descriptor: {offset, length}
	// of the payload within sb's own backing array.
	payload := sb.DataSpan()
	putUint64Pair(desc, uint64(len(payload)), 0)

	token := atomic.AddUint64(&s.nextToken, 1)
	s.inflightMu.Lock()
	s.inflight[token] = sb
	s.inflightMu.Unlock()

	_, werr := s.raw.Write(payload)
	s.releaseInflight(token)
	if werr != nil {
		return 0, newErr(ErrSendFailed, werr)
	}
	return len(payload), nil
}

func (s *Stream) releaseInflight(token uint64) {
	s.inflightMu.Lock()
	delete(s.inflight, token)
	s.inflightMu.Unlock()
}

// InflightCount reports how many SendBuffers are currently retained
// awaiting send-complete bookkeeping.
func (s *Stream) InflightCount() int {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	return len(s.inflight)
}

// Close closes the underlying stream handle exactly once and fires
// OnClose. Safe to call from either user code (close_stream) or the
// dispatcher (SHUTDOWN_COMPLETE).
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		_ = s.raw.Close()
		if cb, _ := s.cb.Get(); cb.OnClose != nil {
			cb.OnClose(s)
		}
	})
}

func putUint64Pair(dst []byte, length, offset uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(offset >> (8 * i))
	}
	for i := 0; i < 8; i++ {
		dst[8+i] = byte(length >> (8 * i))
	}
}
