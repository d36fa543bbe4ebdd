package nexus

import "sync/atomic"

// serialCounter is the process-global monotonically-increasing counter
// backing every Connection and Stream's Serial field. Shared across
// every Application, Server, and Client in the process so serial
// numbers stay unique process-wide.
var serialCounter uint64

// nextSerial returns the next serial number, starting at 1 so the zero
// value remains reserved for "no serial assigned".
func nextSerial() uint64 {
	return atomic.AddUint64(&serialCounter, 1)
}
