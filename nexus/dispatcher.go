package nexus

import (
	"github.com/momentics/nexus-quic/adapters"
)

// Dispatcher runs a Server's or Client's OnConnected/OnDisconnected
// callbacks off the accept/connect-loop goroutines so a slow handler
// cannot stall QUIC servicing for every other connection. Stream
// callbacks are not dispatched through it. Ordering within
// a single connection is preserved as long as the caller submits that
// connection's callbacks through the same Dispatcher one at a time (which
// Server and Client do) — Dispatch never reorders relative to itself, it
// only moves execution off the caller's goroutine.
type Dispatcher struct {
	exec *adapters.ExecutorAdapter
}

// NewDispatcher starts workers goroutines tagged for numaNode to run
// dispatched callbacks. numaNode is bookkeeping only (api.BufferPoolStats-
// style), not real placement — see concurrency.Executor's doc comment for
// why Go gives no such control.
func NewDispatcher(workers, numaNode int) *Dispatcher {
	return &Dispatcher{exec: adapters.NewExecutorAdapter(workers, numaNode)}
}

// Dispatch submits fn for asynchronous execution. If the dispatcher is nil
// (the default: no dispatcher configured) or already closed, fn runs
// synchronously on the caller's goroutine rather than being silently
// dropped — callers never lose a callback invocation.
func (d *Dispatcher) Dispatch(fn func()) {
	if fn == nil {
		return
	}
	if d == nil {
		fn()
		return
	}
	if err := d.exec.Submit(fn); err != nil {
		fn()
	}
}

// Close stops accepting new work. Already-submitted callbacks still run to
// completion; Close does not wait for them.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.exec.Close()
}
