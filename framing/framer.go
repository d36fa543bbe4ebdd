// Package framing implements the length-prefixed receive pipeline: it
// deposits raw stack-delivered buffers into a stream's receive ring,
// recognizes complete u32-little-endian-length-prefixed frames, and
// delivers each one as a single contiguous slice.
package framing

import (
	"encoding/binary"

	"github.com/momentics/nexus-quic/ring"
)

// LengthPrefixSize is the size in bytes of the little-endian frame
// length header.
const LengthPrefixSize = 4

// Deliver is invoked once per complete frame with a contiguous view of
// the payload backed by the ring. The slice is only valid until the
// next framer call; callers that need to retain it must copy.
//
// The return value mirrors StreamCallbacks.on_data_received: it reports
// how many leading bytes of the provided slice the application accepted.
// The current design always advances the ring by the full frame length
// regardless of this return value.
type Deliver func(payload []byte) (consumed int)

// Framer drains complete frames out of a ring.Ring as bytes are pushed
// into it by Ingest. One Framer exists per stream receive ring; it must
// only be driven by the callback thread selected for that stream.
type Framer struct {
	ring    ring.Ring
	deliver Deliver
}

// New constructs a Framer over the given ring, delivering complete
// frames to deliver.
func New(r ring.Ring, deliver Deliver) *Framer {
	return &Framer{ring: r, deliver: deliver}
}

// Ingest processes one RECEIVE event's worth of sub-buffers: it pushes
// as much of each buffer as fits into the ring, draining complete frames
// after each push.
//
// If the ring fills without a complete frame available to drain (an
// oversize frame that will never fit), Ingest stops pushing further
// bytes from the current sub-buffer and returns the number of
// sub-buffers it fully consumed; the caller (the dispatcher) may choose
// to close the stream, since it is now stalled.
func (f *Framer) Ingest(buffers [][]byte) (consumedBuffers int) {
	for i, buf := range buffers {
		offset := 0
		for offset < len(buf) {
			k := f.ring.EmptySpace()
			if remaining := len(buf) - offset; k > remaining {
				k = remaining
			}
			if k == 0 {
				// Ring is full and nothing can be drained: abort this
				// ingest event rather than spin.
				f.drain()
				if f.ring.EmptySpace() == 0 {
					return i
				}
				continue
			}
			if !f.ring.Put(buf[offset : offset+k]) {
				return i
			}
			offset += k
			f.drain()
		}
	}
	return len(buffers)
}

// drain delivers every complete frame currently buffered in the ring.
func (f *Framer) drain() {
	for {
		span := f.ring.AvailableSpan(LengthPrefixSize)
		if len(span) < LengthPrefixSize {
			// Ring storage variants (Naive, Pow2) may return a short
			// contiguous span even when ConsumedSpace() >= 4 bytes, if
			// those bytes straddle the wrap point. Fall back to a
			// temporary header read in that case.
			if f.ring.ConsumedSpace() < LengthPrefixSize {
				return
			}
			var hdr [LengthPrefixSize]byte
			f.ring.Peek(hdr[:])
			span = hdr[:]
		}
		length := int(binary.LittleEndian.Uint32(span[:LengthPrefixSize]))

		if f.ring.ConsumedSpace()-LengthPrefixSize < length {
			// Partial frame at end of event: retained for next Ingest.
			return
		}

		payload := f.payloadSlice(length)
		consumed := f.deliver(payload)
		_ = consumed // current design always advances by the full frame
		f.ring.MarkAsRead(LengthPrefixSize + length)
	}
}

// payloadSlice returns a contiguous view of the length bytes immediately
// following the 4-byte header. For the VM ring this is always a single
// memcpy-free slice; Naive/Pow2 may need a staging copy if the payload
// straddles the wrap point.
func (f *Framer) payloadSlice(length int) []byte {
	span := f.ring.AvailableSpan(LengthPrefixSize + length)
	if len(span) == LengthPrefixSize+length {
		return span[LengthPrefixSize:]
	}
	// Wrap-straddling payload on a non-VM ring: stage a contiguous copy.
	staged := make([]byte, LengthPrefixSize+length)
	f.ring.Peek(staged)
	return staged[LengthPrefixSize:]
}
