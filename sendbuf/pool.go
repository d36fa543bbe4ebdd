package sendbuf

import (
	"encoding/binary"
	"sync"
)

// Pool recycles Buffer backing arrays across sends, avoiding one heap
// allocation per outbound message in the common case, like this tree's
// other pooled allocation path (NUMAPool over pool/slab_pool.go).
// BuildPooled keeps that idiom without changing any
// SendBuffer invariant — Release simply returns the backing array for
// reuse once the stack's send-complete bookkeeping fires.
type Pool struct {
	raw sync.Pool
}

// NewPool constructs an empty Pool.
func NewPool() *Pool {
	return &Pool{raw: sync.Pool{New: func() any { return &Buffer{} }}}
}

// BuildPooled is Build, but reuses a backing array from the pool when
// one of sufficient capacity is available.
func (p *Pool) BuildPooled(payload []byte, reserve int) *Buffer {
	total := reserve + LengthPrefixSize + len(payload) + DescriptorSize
	b := p.raw.Get().(*Buffer)
	if cap(b.buf) < total {
		b.buf = make([]byte, total)
	} else {
		b.buf = b.buf[:total]
	}
	b.offset = reserve
	writeLayout(b.buf, reserve, payload)
	return b
}

// Release returns b's backing array to the pool. b must not be used
// again after this call until reacquired via BuildPooled.
func (p *Pool) Release(b *Buffer) {
	b.reset()
	p.raw.Put(b)
}

func writeLayout(buf []byte, reserve int, payload []byte) {
	total := len(buf)
	binary.LittleEndian.PutUint32(buf[reserve:], uint32(len(payload)))
	copy(buf[reserve+LengthPrefixSize:], payload)
	copy(buf[total-DescriptorSize:], Sentinel[:])
}
