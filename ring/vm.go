package ring

// VM is the zero-copy double-mapped SPSC byte ring. On platforms that
// support anonymous shared memory mapping (Linux), the backing pages are
// mapped twice at adjacent virtual addresses so that any Put/Peek of up
// to TotalSize() bytes completes in a single memcpy, even across the
// wrap point. On platforms without that support, NewVM transparently
// falls back to a Pow2 ring with no loss of correctness, only of
// throughput. Uses golang.org/x/sys/unix for the mmap/memfd_create
// syscalls on Linux. A SysV shmget/shmat-backed double mapping is also
// possible but isn't implemented: memfd_create needs no IPC namespace
// cleanup and the anonymous-mapping approach alone satisfies every
// invariant this type documents.

// AlignMode controls how NewVM handles a size that is not already a
// multiple of the system page size.
type AlignMode int

const (
	// StrictAlign fails construction if size is not page-aligned.
	StrictAlign AlignMode = iota
	// AutoAlign rounds size up to the next page multiple.
	AutoAlign
)

// NewVM constructs a VM ring of the requested size (in bytes). Both
// failure modes (size not aligned, mapping failed) are returned as
// errors; a VM ring is never left half-initialized.
func NewVM(size int, mode AlignMode) (Ring, error) {
	return newVM(size, mode)
}
