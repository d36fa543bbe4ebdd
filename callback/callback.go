// Package callback implements the Callback<Sig> primitive: a
// function-pointer-plus-context pair that the CallbackDispatcher invokes
// on the underlying stack's worker threads. In Go this collapses to a
// plain closure, but the package still gives it a name and an explicit
// thread-safety contract because nexus.Stream stores its user
// StreamCallbacks this way, and the
// invariant — invocations are thread-safe, non-blocking, and must never
// re-enter the owning object's API — is load-bearing enough to document
// once centrally rather than at every call site.
package callback

import "sync/atomic"

// Func is a user-supplied callback of arbitrary signature Sig, stored
// behind an atomic.Value so Set/Get are safe to call from any
// goroutine without an explicit mutex — matching "invocations are
// thread-safe" without imposing lock-ordering on the dispatcher.
type Func[Sig any] struct {
	v atomic.Value // holds Sig
}

// Set installs fn as the callback, replacing any previous value. A zero
// Func with nothing set behaves as "no callback registered"; callers
// distinguish this via Get's ok return.
func (f *Func[Sig]) Set(fn Sig) {
	f.v.Store(box[Sig]{fn: fn})
}

// Get returns the currently installed callback, if any.
func (f *Func[Sig]) Get() (Sig, bool) {
	v := f.v.Load()
	if v == nil {
		var zero Sig
		return zero, false
	}
	return v.(box[Sig]).fn, true
}

// box wraps Sig so that a nil function value (which atomic.Value cannot
// directly store because successive Store calls must share a concrete
// type) still round-trips through Store/Load.
type box[Sig any] struct {
	fn Sig
}
