package sendbuf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Testable property 7: SendBuffer round trip.
func TestBuildRoundTrip(t *testing.T) {
	msg := []byte("the quick brown fox")
	sb := Build(msg, 8)

	require.EqualValues(t, len(msg), sb.EncodedDataSize())
	require.Equal(t, msg, sb.DataSpan()[LengthPrefixSize:])
	require.Equal(t, msg, sb.PayloadBytes())

	desc, err := sb.QuicBufferSpan()
	require.NoError(t, err)
	require.Equal(t, Sentinel[:], desc)
}

func TestQuicBufferSpanDetectsOverwrite(t *testing.T) {
	sb := Build([]byte("x"), 0)
	desc, err := sb.QuicBufferSpan()
	require.NoError(t, err)
	copy(desc, []byte{1, 2, 3, 4})

	_, err = sb.QuicBufferSpan()
	require.ErrorIs(t, err, ErrSentinelOverwritten)
}

func TestPoolReusesBackingArray(t *testing.T) {
	p := NewPool()
	first := p.BuildPooled([]byte("hello"), 0)
	firstPtr := &first.buf[0]
	p.Release(first)

	second := p.BuildPooled([]byte("world"), 0)
	require.Equal(t, "world", string(second.PayloadBytes()))
	require.Same(t, firstPtr, &second.buf[0], "backing array should be reused")
}
