package sendbuf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNUMAPoolBuildRoundTrip(t *testing.T) {
	np := NewNUMAPool(64, 8, -1)

	b, release := np.Build([]byte("hello"), 0)
	require.Equal(t, uint32(5), b.EncodedDataSize())
	require.Equal(t, []byte("hello"), b.PayloadBytes())

	desc, err := b.QuicBufferSpan()
	require.NoError(t, err)
	require.Len(t, desc, DescriptorSize)

	release()
	stats := np.Stats()
	require.Equal(t, int64(1), stats.TotalAlloc)
	require.Equal(t, int64(1), stats.TotalFree)
	require.Equal(t, int64(0), stats.InUse)
}

func TestNUMAPoolReusesBackingArrayWithinClass(t *testing.T) {
	np := NewNUMAPool(128, 4, -1)

	b1, release1 := np.Build([]byte("abc"), 0)
	ptr1 := &b1.buf[0]
	release1()

	b2, release2 := np.Build([]byte("xyz"), 0)
	defer release2()
	require.Same(t, ptr1, &b2.buf[0])
}
