package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func variants(t *testing.T, size int) map[string]Ring {
	vm, err := NewVM(size, AutoAlign)
	require.NoError(t, err)
	t.Cleanup(func() { _ = vm.Close() })
	return map[string]Ring{
		"naive": NewNaive(size),
		"pow2":  NewPow2(size),
		"vm":    vm,
	}
}

// Testable property 1: round trip.
func TestRoundTrip(t *testing.T) {
	for name, r := range variants(t, 4096) {
		t.Run(name, func(t *testing.T) {
			k := r.TotalSize()
			if k > 1024 {
				k = 1024
			}
			src := make([]byte, k)
			for i := range src {
				src[i] = byte(i)
			}
			require.True(t, r.Put(src))
			dst := make([]byte, k)
			require.True(t, r.Get(dst))
			require.Equal(t, src, dst)
			require.Equal(t, 0, r.ConsumedSpace())
		})
	}
}

// Testable property 2: monotone accounting.
func TestMonotoneAccounting(t *testing.T) {
	for name, r := range variants(t, 256) {
		t.Run(name, func(t *testing.T) {
			total := r.TotalSize()
			for i := 0; i < 50; i++ {
				n := (i % (total / 4)) + 1
				if r.EmptySpace() >= n {
					r.Put(make([]byte, n))
				}
				require.Equal(t, total, r.ConsumedSpace()+r.EmptySpace())
				if r.ConsumedSpace() > 0 {
					take := 1
					r.MarkAsRead(take)
				}
				require.Equal(t, total, r.ConsumedSpace()+r.EmptySpace())
			}
		})
	}
}

// Testable property 3: VM ring contiguity across the wrap point.
func TestVMContiguity(t *testing.T) {
	vm, err := NewVM(4096, AutoAlign)
	require.NoError(t, err)
	defer vm.Close()

	half := vm.TotalSize() / 2
	require.True(t, vm.Put(make([]byte, half)))
	vm.MarkAsRead(half)
	// Now put a chunk that straddles the wrap point.
	n := vm.TotalSize() - 10
	payload := make([]byte, n)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.True(t, vm.Put(payload))
	span := vm.AvailableSpan(n)
	require.Len(t, span, n)
	require.Equal(t, payload, span)
}

func TestNaiveWrapSplit(t *testing.T) {
	r := NewNaive(16)
	require.True(t, r.Put([]byte("0123456789012")))
	out := make([]byte, 10)
	require.True(t, r.Get(out))
	require.Equal(t, "0123456789", string(out))
	// Remaining 3 bytes, then put 10 more so it wraps.
	require.True(t, r.Put([]byte("abcdefghij")))
	rest := make([]byte, 13)
	require.True(t, r.Get(rest))
	require.Equal(t, "012abcdefghij", string(rest))
}

func TestPow2EffectiveCapacity(t *testing.T) {
	r := NewPow2(8) // rounds to 8, effective capacity 7
	require.Equal(t, 7, r.TotalSize())
	require.True(t, r.Put(make([]byte, 7)))
	require.False(t, r.Put([]byte{1}))
	require.Equal(t, 0, r.EmptySpace())
}

func TestTransferBetweenRings(t *testing.T) {
	src := NewNaive(64)
	dst := NewPow2(64)
	require.True(t, src.Put([]byte("hello world")))
	n := Transfer(dst, src)
	require.Equal(t, 11, n)
	out := make([]byte, 11)
	require.True(t, dst.Get(out))
	require.Equal(t, "hello world", string(out))
}
