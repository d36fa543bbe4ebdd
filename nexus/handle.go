package nexus

import (
	"reflect"

	"github.com/momentics/nexus-quic/handlemap"
)

// handleOf derives a handlemap.Handle from a quicstack.Connection or
// quicstack.Stream value by reading the address of its underlying
// pointer. quicstack's concrete implementations (quicGoConnection,
// fakeConnection, quicGoStream, fakeStream) are always pointer types, so
// this gives every Connection/Stream a stable opaque identity without
// Nexus needing to know which concrete quicstack implementation produced
// the value, approximating an arena/index handle by keying directly off
// that address instead of introducing a second indirection layer.
func handleOf(v any) handlemap.Handle {
	rv := reflect.ValueOf(v)
	return handlemap.Handle(rv.Pointer())
}
