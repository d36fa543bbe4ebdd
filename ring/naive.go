package ring

// Naive is a split-copy SPSC byte ring of arbitrary size. put/peek split
// into at most two memcpys when the requested range straddles the
// wrap-point.
//
// AllowOverwrite is carried as a constructor flag but not exercised by
// any call site here; behavior under overwrite is intentionally left
// unspecified.
type Naive struct {
	buf            []byte
	head, tail     int
	size           int
	count          int
	AllowOverwrite bool
}

// NewNaive allocates a Naive ring of the given size in bytes.
func NewNaive(size int) *Naive {
	if size <= 0 {
		size = 1
	}
	return &Naive{buf: make([]byte, size), size: size}
}

func (r *Naive) TotalSize() int     { return r.size }
func (r *Naive) ConsumedSpace() int { return r.count }
func (r *Naive) EmptySpace() int    { return r.size - r.count }

func (r *Naive) Put(src []byte) bool {
	n := len(src)
	if r.EmptySpace() < n {
		return false
	}
	first := r.size - r.tail
	if first > n {
		first = n
	}
	copy(r.buf[r.tail:], src[:first])
	if n > first {
		copy(r.buf[0:], src[first:])
	}
	r.tail = (r.tail + n) % r.size
	r.count += n
	return true
}

func (r *Naive) Peek(dst []byte) bool {
	n := len(dst)
	if r.count < n {
		return false
	}
	first := r.size - r.head
	if first > n {
		first = n
	}
	copy(dst[:first], r.buf[r.head:])
	if n > first {
		copy(dst[first:], r.buf[0:n-first])
	}
	return true
}

func (r *Naive) Get(dst []byte) bool {
	if !r.Peek(dst) {
		return false
	}
	r.MarkAsRead(len(dst))
	return true
}

func (r *Naive) MarkAsRead(n int) {
	r.head = (r.head + n) % r.size
	r.count -= n
}

func (r *Naive) MarkAsWrite(n int) {
	r.tail = (r.tail + n) % r.size
	r.count += n
}

func (r *Naive) Clear() {
	r.head, r.tail, r.count = 0, 0, 0
}

// AvailableSpan returns a contiguous read-side slice. Because Naive
// storage can wrap, this may be shorter than n or than ConsumedSpace()
// when the data straddles the end of the backing array; callers (e.g.
// the framer) must cope with a short span by waiting for more bytes or
// falling back to Peek/Get for the full amount.
func (r *Naive) AvailableSpan(n int) []byte {
	if r.count == 0 || n <= 0 {
		return nil
	}
	avail := r.size - r.head
	if avail > r.count {
		avail = r.count
	}
	if avail > n {
		avail = n
	}
	return r.buf[r.head: r.head+avail]
}

func (r *Naive) Close() error { return nil }

var _ Ring = (*Naive)(nil)
