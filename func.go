package mwfaas

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/viniolvs/mwfaas/codec"
)

// Func is a registered, named realization of a user function. Go has no
// portable way to serialize a closure, so the function definition does
// not literally travel with a submission; instead, every process capable
// of acting as a worker registers an identical set of Funcs at init time,
// and a submission carries Name() plus the encoded payload and metadata.
// The receiving side resolves the call by name via Invoke. This is what
// lets the runtime support heterogeneous user functions across concurrent
// submissions in the same session: distinct names, looked up
// independently, executed concurrently.
type Func[E, R any] struct {
	name string
}

// Name returns f's registered name.
func (f Func[E, R]) Name() string { return f.name }

type invoker func(ctx context.Context, payload, meta []byte) ([]byte, error)

var registry sync.Map // name (string) -> invoker

// Register binds name to fn in the process-wide function registry and
// returns a handle that can be submitted through a Session. Register
// panics if name is already registered; call it once per name, from
// package init, in every binary that can act as a worker for this
// function.
func Register[E, R any](name string, fn func(payload []E, meta Metadata) (R, error)) Func[E, R] {
	var inv invoker = func(ctx context.Context, payloadBytes, metaBytes []byte) (result []byte, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = NewRemoteException("", fmt.Sprint(p), string(debug.Stack()))
			}
		}()
		var payload []E
		if len(payloadBytes) > 0 {
			if derr := codec.Decode(payloadBytes, &payload); derr != nil {
				return nil, NewSerializationError("decode payload: " + derr.Error())
			}
		}
		var meta Metadata
		if len(metaBytes) > 0 {
			if derr := codec.Decode(metaBytes, &meta); derr != nil {
				return nil, NewSerializationError("decode metadata: " + derr.Error())
			}
		}
		value, ferr := fn(payload, meta)
		if ferr != nil {
			return nil, NewRemoteException("", ferr.Error(), "")
		}
		out, eerr := codec.Encode(value)
		if eerr != nil {
			return nil, NewSerializationError("encode result: " + eerr.Error())
		}
		return out, nil
	}
	if _, dup := registry.LoadOrStore(name, inv); dup {
		panic("mwfaas: func " + name + " already registered")
	}
	return Func[E, R]{name: name}
}

// Invoke runs the Func registered under name against encoded payload and
// metadata. Backend worker-side implementations (backend/memtest,
// backend/bigmachine's RPC service) call Invoke because they hold only a
// name and encoded bytes, never the static E/R types the caller used to
// register the function.
func Invoke(ctx context.Context, name string, payload, meta []byte) ([]byte, error) {
	v, ok := registry.Load(name)
	if !ok {
		return nil, NewSubmissionError("", fmt.Sprintf("func %q not registered on this worker", name))
	}
	return v.(invoker)(ctx, payload, meta)
}

// FuncNames returns the names of every Func registered in this process,
// sorted. A backend can use this to confirm a worker shares an identical
// registry with the driver before any chunk is dispatched to it.
func FuncNames() []string {
	var names []string
	registry.Range(func(k, _ interface{}) bool {
		names = append(names, k.(string))
		return true
	})
	sort.Strings(names)
	return names
}
