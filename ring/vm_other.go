//go:build !linux

package ring

// newVM is the non-Linux fallback: double-mapped virtual memory isn't
// portably available, so we degrade to the Pow2 ring per the design
// note. Callers still get a fully functional Ring; they only lose the
// single-memcpy-across-wrap guarantee, not correctness.
func newVM(size int, mode AlignMode) (Ring, error) {
	if size <= 0 {
		size = 4096
	}
	// Pow2 reserves one sentinel slot, so request one extra byte of
	// capacity to approximate the requested size.
	return NewPow2(size + 1), nil
}
