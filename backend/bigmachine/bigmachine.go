// Package bigmachine implements the production Endpoint Backend on top
// of github.com/grailbio/bigmachine: each bigmachine Machine is one
// remote compute endpoint, and a submission is dispatched to it as a
// gob-encoded RPC against a worker service every machine runs.
package bigmachine

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/sync/once"
	grailmachine "github.com/grailbio/bigmachine"

	"github.com/viniolvs/mwfaas"
	"github.com/viniolvs/mwfaas/backend"
)

// Backend dispatches submissions to workers running on machines started
// from system. Every machine runs the package's worker service, supplied
// as a bigmachine.Param alongside any caller-provided params.
type Backend struct {
	system grailmachine.System
	params []grailmachine.Param

	mu       sync.Mutex
	b        *grailmachine.B
	machines []*grailmachine.Machine

	// verified memoizes the FuncNames handshake so it runs at most once
	// per (machine, func) pair rather than once per submission.
	verified once.Map
}

// New returns a Backend that starts system (and the machines it
// allocates) when Start is called.
func New(system grailmachine.System, params ...grailmachine.Param) *Backend {
	all := append([]grailmachine.Param{grailmachine.Services{"Worker": &worker{}}}, params...)
	return &Backend{system: system, params: all}
}

// Start implements backend.Lifecycle: it starts the bigmachine system and
// a single machine on it, which becomes the backend's only endpoint.
// Start returns the machine B.Start hands back without itself waiting
// for it to reach the running state.
func (b *Backend) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.b = grailmachine.Start(b.system)
	machines, err := b.b.Start(ctx, 1, b.params...)
	if err != nil {
		return errors.E(errors.Fatal, fmt.Errorf("mwfaas/backend/bigmachine: start: %w", err))
	}
	b.machines = machines
	log.Printf("mwfaas/backend/bigmachine: started %d machine(s)", len(machines))
	return nil
}

// Shutdown implements backend.Lifecycle.
func (b *Backend) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	bb := b.b
	b.mu.Unlock()
	if bb == nil {
		return nil
	}
	bb.Shutdown()
	return nil
}

// HandleDebug implements backend.Debuggable, forwarding to the underlying
// bigmachine system.
func (b *Backend) HandleDebug(mux *http.ServeMux) {
	b.mu.Lock()
	bb := b.b
	b.mu.Unlock()
	if bb != nil {
		bb.HandleDebug(mux)
	}
}

func (b *Backend) machine(ep mwfaas.EndpointID) (*grailmachine.Machine, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.machines {
		if mwfaas.EndpointID(m.Addr) == ep {
			return m, nil
		}
	}
	return nil, fmt.Errorf("unknown endpoint %s", ep)
}

// ListEndpoints returns the address of every machine bigmachine started
// for this backend.
func (b *Backend) ListEndpoints(ctx context.Context) ([]mwfaas.EndpointID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	eps := make([]mwfaas.EndpointID, 0, len(b.machines))
	for _, m := range b.machines {
		eps = append(eps, mwfaas.EndpointID(m.Addr))
	}
	return eps, nil
}

// submitRequest is the gob-encoded RPC payload carrying a chunk dispatch.
// FuncName realizes "the function definition travels with the
// submission": it names a mwfaas.Func resolved independently on the
// worker, see worker.Run.
type submitRequest struct {
	FuncName string
	Payload  []byte
	Meta     []byte
}

type submitReply struct {
	Result []byte
}

// worker is the bigmachine service registered on every machine. It
// resolves FuncName through the same process-wide registry the driver
// populated via mwfaas.Register, so the worker binary must be built from
// the identical registration call sites as the driver.
type worker struct{}

func (w *worker) Run(ctx context.Context, req submitRequest, reply *submitReply) error {
	result, err := mwfaas.Invoke(ctx, req.FuncName, req.Payload, req.Meta)
	if err != nil {
		return err
	}
	reply.Result = result
	return nil
}

// Verify confirms FuncName is registered on this worker: it lets the
// driver fail fast with a clear SubmissionError when a worker binary was built
// from a different set of mwfaas.Register call sites, instead of
// discovering the mismatch as an opaque "func not registered" error deep
// inside the first real Run call.
func (w *worker) Verify(ctx context.Context, funcName string, ok *bool) error {
	for _, name := range mwfaas.FuncNames() {
		if name == funcName {
			*ok = true
			return nil
		}
	}
	*ok = false
	return nil
}

type future struct {
	id     string
	ep     mwfaas.EndpointID
	cancel context.CancelFunc
	done   chan struct{}
	result []byte
	err    error
}

func (f *future) ID() string                   { return f.id }
func (f *future) EndpointID() mwfaas.EndpointID { return f.ep }

// Submit dispatches a chunk to ep's Worker.Run RPC method. On the first
// submission of funcName to ep, it first confirms the worker has
// funcName registered (see worker.Verify); this handshake is memoized
// per (ep, funcName) so subsequent chunks pay no extra round trip.
func (b *Backend) Submit(ctx context.Context, ep mwfaas.EndpointID, funcName string, payload, meta []byte) (backend.Future, error) {
	m, err := b.machine(ep)
	if err != nil {
		return nil, mwfaas.NewSubmissionError(ep, err.Error())
	}
	verr := b.verified.Do(string(ep)+"/"+funcName, func() error {
		var ok bool
		if err := m.Call(ctx, "Worker.Verify", funcName, &ok); err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("func %q not registered on worker %s", funcName, ep)
		}
		return nil
	})
	if verr != nil {
		return nil, mwfaas.NewSubmissionError(ep, verr.Error())
	}
	runCtx, cancel := context.WithCancel(context.Background())
	fut := &future{id: uuid.NewString(), ep: ep, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(fut.done)
		var reply submitReply
		req := submitRequest{FuncName: funcName, Payload: payload, Meta: meta}
		err := m.RetryCall(runCtx, "Worker.Run", req, &reply)
		switch {
		case err == nil:
			fut.result = reply.Result
		case runCtx.Err() != nil:
			fut.err = mwfaas.NewCanceled(ep)
		case errors.Is(errors.Net, err), errors.Is(errors.Unavailable, err), errors.IsTemporary(err):
			fut.err = mwfaas.NewTransportError(ep, err.Error())
		default:
			if te, ok := mwfaas.AsTaskError(err); ok {
				fut.err = te
			} else {
				fut.err = mwfaas.NewRemoteException(ep, err.Error(), "")
			}
		}
	}()
	return fut, nil
}

// Await blocks until fut's RPC completes, is canceled, or timeout
// elapses.
func (b *Backend) Await(ctx context.Context, f backend.Future, timeout time.Duration) ([]byte, error) {
	fut, ok := f.(*future)
	if !ok {
		return nil, mwfaas.NewSubmissionError(f.EndpointID(), "foreign future")
	}
	var timeoutC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}
	select {
	case <-fut.done:
		return fut.result, fut.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeoutC:
		return nil, mwfaas.NewTimeout(fut.ep)
	}
}

// Cancel requests cancellation of fut's RPC context.
func (b *Backend) Cancel(ctx context.Context, f backend.Future) (bool, error) {
	fut, ok := f.(*future)
	if !ok {
		return false, nil
	}
	select {
	case <-fut.done:
		return false, nil
	default:
		fut.cancel()
		return true, nil
	}
}
