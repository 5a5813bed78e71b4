// Package memtest implements an in-memory Endpoint Backend used in place
// of a real remote execution fabric: deterministic, in-process,
// goroutine-driven, with injectable per-endpoint failure and latency, so
// the Master's concurrency and error-classification logic can be
// exercised without a network.
package memtest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viniolvs/mwfaas"
	"github.com/viniolvs/mwfaas/backend"
)

// Backend is an in-memory Backend exposing a fixed set of endpoints.
type Backend struct {
	mu        sync.Mutex
	endpoints []mwfaas.EndpointID
	latency   time.Duration
	fail      map[mwfaas.EndpointID]error
	started   bool
}

// New returns a Backend exposing the given endpoints.
func New(endpoints ...mwfaas.EndpointID) *Backend {
	return &Backend{
		endpoints: append([]mwfaas.EndpointID(nil), endpoints...),
		fail:      make(map[mwfaas.EndpointID]error),
	}
}

// Start implements backend.Lifecycle.
func (b *Backend) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = true
	return nil
}

// Shutdown implements backend.Lifecycle.
func (b *Backend) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = false
	return nil
}

// SetLatency injects a fixed delay before every future becomes terminal,
// useful for exercising timeouts and cancellation deterministically.
func (b *Backend) SetLatency(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latency = d
}

// FailEndpoint makes every Submit to ep fail with err until
// ClearFailures is called.
func (b *Backend) FailEndpoint(ep mwfaas.EndpointID, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail[ep] = err
}

// ClearFailures removes every injected submit-time failure.
func (b *Backend) ClearFailures() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail = make(map[mwfaas.EndpointID]error)
}

// ListEndpoints returns the backend's configured endpoints.
func (b *Backend) ListEndpoints(ctx context.Context) ([]mwfaas.EndpointID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]mwfaas.EndpointID(nil), b.endpoints...), nil
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

// Submit runs funcName against payload/meta on a dedicated goroutine,
// simulating a remote worker: it always goes through mwfaas.Invoke, the
// same registry lookup a real backend's worker-side RPC handler would
// use, so it exercises the exact serialization boundary being tested.
func (b *Backend) Submit(ctx context.Context, ep mwfaas.EndpointID, funcName string, payload, meta []byte) (backend.Future, error) {
	b.mu.Lock()
	failErr := b.fail[ep]
	latency := b.latency
	b.mu.Unlock()
	if failErr != nil {
		return nil, failErr
	}

	runCtx, cancel := context.WithCancel(context.Background())
	fut := &future{id: uuid.NewString(), ep: ep, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(fut.done)
		if latency > 0 {
			select {
			case <-time.After(latency):
			case <-runCtx.Done():
				fut.err = mwfaas.NewCanceled(ep)
				return
			}
		}
		select {
		case <-runCtx.Done():
			fut.err = mwfaas.NewCanceled(ep)
			return
		default:
		}
		result, err := mwfaas.Invoke(runCtx, funcName, payload, meta)
		fut.result, fut.err = result, err
	}()
	return fut, nil
}

// Await blocks until fut is terminal, ctx is done, or timeout elapses.
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

// Cancel requests cancellation of fut's goroutine.
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
