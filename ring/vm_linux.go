//go:build linux

package ring

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// vmRing is the Linux double-mapped implementation. Indices are
// monotonically increasing counters normalised modulo total size once
// both head and tail exceed it.
type vmRing struct {
	mem        []byte // 2*size bytes, two mappings of the same pages
	size       int
	head, tail int
	fd         int
}

func pageSize() int { return os.Getpagesize() }

// newVM is the Linux backend for ring.NewVM. It reserves 2*size bytes of
// address space, then maps the same memfd-backed pages at both halves so
// a write that straddles the wrap point lands in one contiguous region.
func newVM(size int, mode AlignMode) (Ring, error) {
	ps := pageSize()
	if size <= 0 {
		size = ps
	}
	if size%ps != 0 {
		if mode == StrictAlign {
			return nil, ErrSizeNotAligned
		}
		size += ps - (size % ps)
	}

	// Anonymous backing file: name only needs to be unique to avoid
	// collisions among concurrently-constructed rings.
	name := "nexus-ring-" + uuid.NewString()
	fd, err := unix.MemfdCreate(name, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: memfd_create: %v", ErrMappingFailed, err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: ftruncate: %v", ErrMappingFailed, err)
	}

	// Reserve 2*size of contiguous address space first, so the two
	// fixed-address mappings below are guaranteed not to collide with
	// anything else.
	reserved, err := unix.Mmap(-1, 0, 2*size, unix.PROT_NONE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: reserve: %v", ErrMappingFailed, err)
	}
	base := uintptr(unsafe.Pointer(&reserved[0]))

	if err := mmapFixed(base, uintptr(size), fd); err != nil {
		unix.Munmap(reserved)
		unix.Close(fd)
		return nil, fmt.Errorf("%w: map first half: %v", ErrMappingFailed, err)
	}
	if err := mmapFixed(base+uintptr(size), uintptr(size), fd); err != nil {
		unix.Munmap(reserved)
		unix.Close(fd)
		return nil, fmt.Errorf("%w: map second half: %v", ErrMappingFailed, err)
	}

	mem := unsafe.Slice((*byte)(unsafe.Pointer(base)), 2*size)
	return &vmRing{mem: mem, size: size, fd: fd}, nil
}

// mmapFixed remaps length bytes of fd's contents at the fixed virtual
// address addr, replacing whatever reservation mapping was there.
func mmapFixed(addr, length uintptr, fd int) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_MMAP,
		addr,
		length,
		uintptr(unix.PROT_READ|unix.PROT_WRITE),
		uintptr(unix.MAP_SHARED|unix.MAP_FIXED),
		uintptr(fd),
		0,
	)
	if errno != 0 {
		return errno
	}
	return nil
}

func (r *vmRing) TotalSize() int     { return r.size }
func (r *vmRing) ConsumedSpace() int { return r.tail - r.head }
func (r *vmRing) EmptySpace() int    { return r.size - r.ConsumedSpace() }

func (r *vmRing) Put(src []byte) bool {
	n := len(src)
	if r.EmptySpace() < n {
		return false
	}
	copy(r.mem[r.tail:], src)
	r.MarkAsWrite(n)
	return true
}

func (r *vmRing) Peek(dst []byte) bool {
	n := len(dst)
	if r.ConsumedSpace() < n {
		return false
	}
	copy(dst, r.mem[r.head:r.head+n])
	return true
}

func (r *vmRing) Get(dst []byte) bool {
	if !r.Peek(dst) {
		return false
	}
	r.MarkAsRead(len(dst))
	return true
}

// MarkAsRead advances head and, once both head and tail have passed the
// first mapping, subtracts size from both to keep the counters bounded
// by 2*size indefinitely.
func (r *vmRing) MarkAsRead(n int) {
	r.head += n
	if r.head >= r.size {
		r.head -= r.size
		r.tail -= r.size
	}
}

func (r *vmRing) MarkAsWrite(n int) {
	r.tail += n
}

func (r *vmRing) Clear() {
	if c := r.ConsumedSpace(); c > 0 {
		r.MarkAsRead(c)
	}
}

// AvailableSpan always returns a single contiguous slice covering up to
// n bytes (or ConsumedSpace() if smaller) — this is the entire reason
// the VM ring exists.
func (r *vmRing) AvailableSpan(n int) []byte {
	c := r.ConsumedSpace()
	if c == 0 || n <= 0 {
		return nil
	}
	if n > c {
		n = c
	}
	return r.mem[r.head : r.head+n]
}

func (r *vmRing) Close() error {
	if r.mem == nil {
		return nil
	}
	// Unmap second half first, then first half, then close the backing
	// descriptor.
	second := r.mem[r.size:]
	first := r.mem[:r.size]
	err1 := unix.Munmap(second)
	err2 := unix.Munmap(first)
	err3 := unix.Close(r.fd)
	r.mem = nil
	if err1 != nil {
		return err1
	}
	if err2 != nil {
		return err2
	}
	return err3
}

var _ Ring = (*vmRing)(nil)
