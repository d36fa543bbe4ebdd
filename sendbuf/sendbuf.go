// Package sendbuf implements the SendBuffer type: an owned heap region
// carrying a 4-byte length-prefixed payload and a reserved 16-byte
// transport-descriptor sentinel slot that Stream.Send overwrites with
// the real QUIC buffer span before handing the payload to the
// underlying stack.
package sendbuf

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// DescriptorSize is the size in bytes of the trailing transport
// descriptor sentinel slot.
const DescriptorSize = 16

// LengthPrefixSize is the size of the little-endian payload length
// field written immediately before the payload bytes.
const LengthPrefixSize = 4

// Sentinel is the literal placeholder written into the descriptor slot
// at construction time, later overwritten with a real {offset, length}
// transport descriptor at send time.
var Sentinel = [DescriptorSize]byte{
	0xDE, 0xAD, 0xBE, 0xEF,
	0xBA, 0xAD, 0xC0, 0xDE,
	0xCA, 0xFE, 0xBA, 0xBE,
	0xDE, 0xAD, 0xFA, 0xCE,
}

// ErrSentinelOverwritten is returned by QuicBufferSpan if the trailing
// 16 bytes no longer match Sentinel, meaning something has already
// written a transport descriptor (or corrupted the buffer).
var ErrSentinelOverwritten = errors.New("sendbuf: descriptor sentinel already overwritten")

// Buffer is an owned heap region laid out as:
//
//	[ offset filler/metadata | 4-byte length prefix | payload | 16-byte sentinel ]
//
// within [0, len(buf)). Offset marks where the message builder's
// reserved filler ends and the length prefix begins.
type Buffer struct {
	buf    []byte
	offset int
}

// Build allocates a new Buffer sized to hold reserve bytes of
// builder-reserved filler, a 4-byte length prefix, and the payload,
// plus the trailing 16-byte sentinel. The length prefix and sentinel
// are written immediately; the payload is copied in.
func Build(payload []byte, reserve int) *Buffer {
	if reserve < 0 {
		reserve = 0
	}
	total := reserve + LengthPrefixSize + len(payload) + DescriptorSize
	buf := make([]byte, total)
	binary.LittleEndian.PutUint32(buf[reserve:], uint32(len(payload)))
	copy(buf[reserve+LengthPrefixSize:], payload)
	copy(buf[total-DescriptorSize:], Sentinel[:])
	return &Buffer{buf: buf, offset: reserve}
}

// Size returns the space used from offset to the end of the buffer
// (payload + length prefix + sentinel).
func (b *Buffer) Size() int { return len(b.buf) - b.offset }

// EncodedDataSize reads the 4-byte little-endian length prefix.
func (b *Buffer) EncodedDataSize() uint32 {
	return binary.LittleEndian.Uint32(b.buf[b.offset:])
}

// DataSpan returns the sub-slice the application-layer reader receives:
// the length prefix followed by the payload, excluding the trailing
// sentinel/descriptor slot.
func (b *Buffer) DataSpan() []byte {
	end := len(b.buf) - DescriptorSize
	return b.buf[b.offset:end]
}

// QuicBufferSpan returns the trailing 16 bytes reserved for the
// transport descriptor. It is the caller's responsibility to overwrite
// this span with a real {ptr, length} descriptor at send time; Nexus's
// sender does this immediately before submitting to the underlying
// stack.
func (b *Buffer) QuicBufferSpan() ([]byte, error) {
	tail := b.buf[len(b.buf)-DescriptorSize:]
	if !bytes.Equal(tail, Sentinel[:]) {
		return nil, ErrSentinelOverwritten
	}
	return tail, nil
}

// PayloadBytes returns just the payload, excluding the length prefix
// and descriptor slot.
func (b *Buffer) PayloadBytes() []byte {
	span := b.DataSpan()
	return span[LengthPrefixSize:]
}

// reset clears a Buffer's backing array to zero length so it can be
// reused by a Pool; callers must rebuild it via Build-equivalent logic
// before reuse. Used by Pool.Release and NUMAPool.Build's release func.
func (b *Buffer) reset() {
	b.buf = b.buf[:0]
	b.offset = 0
}
