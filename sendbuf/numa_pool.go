package sendbuf

import (
	"github.com/momentics/nexus-quic/api"
	"github.com/momentics/nexus-quic/pool"
)

// NUMAPool builds SendBuffers from a fixed-size-class api.BufferPool instead
// of Pool's unbounded sync.Pool. Unlike Pool, callers pick the size class up
// front (the pool only recycles backing arrays that are already >= that
// class), which suits servers that see a narrow range of message sizes and
// want allocation stats broken out by NUMA node (api.BufferPoolStats).
//
// This is additive: it does not replace Pool/BuildPooled, whose pointer-
// identity reuse semantics are load-bearing for existing callers.
type NUMAPool struct {
	class int
	numa  int
	bp    api.BufferPool
}

// NewNUMAPool returns a NUMAPool serving buffers of the given size class,
// backed by a slab pool of capacity slots (must be a power of two) on the
// given NUMA node. NUMA node -1 means "no preference".
func NewNUMAPool(class int, capacity uint64, numaNode int) *NUMAPool {
	bp := pool.NewSlabPool(class, capacity, allocClassBuffer, nil)
	return &NUMAPool{class: class, numa: numaNode, bp: bp}
}

func allocClassBuffer(size, numaNode int) api.Buffer {
	return api.Buffer{Data: make([]byte, size), NUMA: numaNode, Class: size}
}

// Build acquires a backing array from the slab pool, lays out the frame the
// same way Build does, and returns a Buffer plus a release func that returns
// the array to the pool. The returned Buffer ignores payloads that would
// overflow the pool's size class, falling back to a fresh heap buffer rather
// than truncating.
func (n *NUMAPool) Build(payload []byte, reserve int) (*Buffer, func()) {
	total := reserve + LengthPrefixSize + len(payload) + DescriptorSize
	raw := n.bp.Get(total, n.numa)
	if cap(raw.Data) < total {
		raw.Data = make([]byte, total)
	} else {
		raw.Data = raw.Data[:total]
	}
	b := &Buffer{buf: raw.Data, offset: reserve}
	writeLayout(b.buf, reserve, payload)
	return b, func() {
		b.reset()
		n.bp.Put(raw)
	}
}

// Stats reports the underlying slab pool's allocation counters.
func (n *NUMAPool) Stats() api.BufferPoolStats {
	return n.bp.Stats()
}
