package framing

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/nexus-quic/ring"
)

func encodeFrame(payload []byte) []byte {
	out := make([]byte, LengthPrefixSize+len(payload))
	binary.LittleEndian.PutUint32(out, uint32(len(payload)))
	copy(out[LengthPrefixSize:], payload)
	return out
}

// S1 — single-frame single-buffer.
func TestSingleFrameSingleBuffer(t *testing.T) {
	r := ring.NewPow2(128)
	var got [][]byte
	f := New(r, func(p []byte) int {
		cp := append([]byte(nil), p...)
		got = append(got, cp)
		return len(p)
	})

	frame := encodeFrame([]byte("ABCD"))
	f.Ingest([][]byte{frame})

	require.Len(t, got, 1)
	require.Equal(t, "ABCD", string(got[0]))
	require.Equal(t, 0, r.ConsumedSpace())
}

// S2 — ten frames packed into one buffer.
func TestTenFramesPacked(t *testing.T) {
	r := ring.NewPow2(4096)
	var got [][]byte
	f := New(r, func(p []byte) int {
		got = append(got, append([]byte(nil), p...))
		return len(p)
	})

	var packed []byte
	var want [][]byte
	for i := 0; i < 10; i++ {
		payload := make([]byte, 32)
		for j := range payload {
			payload[j] = byte(i)
		}
		want = append(want, payload)
		packed = append(packed, encodeFrame(payload)...)
	}
	f.Ingest([][]byte{packed})

	require.Len(t, got, 10)
	for i := range want {
		require.Equal(t, want[i], got[i])
	}
	require.Equal(t, 0, r.ConsumedSpace())
}

// S3 — one byte per RECEIVE event delivering a 32-byte frame.
func TestOneBytePerEvent(t *testing.T) {
	r := ring.NewPow2(128)
	calls := 0
	f := New(r, func(p []byte) int {
		calls++
		require.Len(t, p, 32)
		return len(p)
	})

	payload := make([]byte, 32)
	frame := encodeFrame(payload)
	for i, b := range frame {
		f.Ingest([][]byte{{b}})
		if i < len(frame)-1 {
			require.Equal(t, 0, calls)
		}
	}
	require.Equal(t, 1, calls)
}

// S4 — oversize frame: header declares more than the ring can ever hold.
func TestOversizeFrame(t *testing.T) {
	r := ring.NewPow2(4096) // effective capacity 4095
	calls := 0
	f := New(r, func(p []byte) int {
		calls++
		return len(p)
	})

	hdr := make([]byte, LengthPrefixSize)
	binary.LittleEndian.PutUint32(hdr, 5000)
	filler := make([]byte, r.TotalSize()-LengthPrefixSize) // fills the ring exactly, frame still incomplete
	firstBuf := append(hdr, filler...)
	secondBuf := []byte{0xFF} // cannot possibly fit; ring is already full

	consumed := f.Ingest([][]byte{firstBuf, secondBuf})

	require.Equal(t, 0, calls)
	require.Equal(t, 1, consumed, "first buffer fully absorbed, second aborted because the ring is full with no frame to drain")
	require.Equal(t, 0, r.EmptySpace())
}

// Testable property 4/5: frame delivery idempotence across arbitrary
// interleavings, with no loss or duplication.
func TestFrameDeliveryOrder(t *testing.T) {
	r := ring.NewNaive(256)
	var got []string
	f := New(r, func(p []byte) int {
		got = append(got, string(p))
		return len(p)
	})

	messages := []string{"hello", "", "world!", "x"}
	var stream []byte
	for _, m := range messages {
		stream = append(stream, encodeFrame([]byte(m))...)
	}

	// Feed it in chunks of 3 bytes to force repeated partial frames.
	for i := 0; i < len(stream); i += 3 {
		end := i + 3
		if end > len(stream) {
			end = len(stream)
		}
		f.Ingest([][]byte{stream[i:end]})
	}

	require.Equal(t, messages, got)
}
