package mwfaas

import "encoding/gob"

func init() {
	// Metadata values travel as interface{}; gob requires every concrete
	// type stored behind one to be registered before it can cross the
	// wire. These cover the common scalar types callers reach for first;
	// a caller storing anything else (a custom struct, a slice of
	// structs) must call gob.Register for it themselves, same as any
	// other gob-encoded interface value.
	gob.Register(int(0))
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register(string(""))
	gob.Register(bool(false))
	gob.Register([]int(nil))
	gob.Register([]string(nil))
	gob.Register([]float64(nil))
}

// EndpointID names a reachable worker in the remote execution fabric. The
// set of endpoint ids may shrink or grow between Session.Run calls but is
// treated as stable for the duration of any one call.
type EndpointID string

// Metadata is the read-only, serializable mapping delivered unchanged to
// every worker invocation for a run. It is shared once per run, not
// replicated per element. Values must gob-encode; register concrete
// value types with encoding/gob if they're stored behind an interface.
type Metadata map[string]interface{}

// Chunk pairs a zero-based submission index with a non-empty ordered
// slice of elements from the input. The concatenation of every chunk's
// Payload, taken in ascending Index order, reconstructs the input
// element-for-element.
type Chunk[E any] struct {
	Index   int
	Payload []E
}
