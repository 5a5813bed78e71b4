// Package backend defines the Endpoint Backend contract: the
// capability to submit a unit of work to a named remote endpoint and
// later retrieve its outcome, plus the capability to enumerate currently
// reachable endpoints. Concrete implementations live in backend/memtest
// (an in-memory backend for tests) and backend/bigmachine (a production
// backend built on github.com/grailbio/bigmachine).
package backend

import (
	"context"
	"net/http"
	"time"

	"github.com/viniolvs/mwfaas"
)

// Future is an opaque handle to an in-flight remote computation. A Future
// returns a single terminal outcome, retrieved via Backend.Await.
type Future interface {
	// ID is the identifier the backend assigned to this submission on
	// Submit.
	ID() string
	// EndpointID is the endpoint this Future was submitted to.
	EndpointID() mwfaas.EndpointID
}

// Backend is the Endpoint Backend contract. Implementations must
// serialize the function reference, payload, and metadata of a
// submission independently, must not assume the function is available at
// the endpoint by name alone (see mwfaas.Func and mwfaas.Invoke for how a
// name is resolved on the receiving side), and must support heterogeneous
// user functions across concurrent submissions within the same session.
//
// Transport errors are surfaced by Await, not retried, at this layer:
// retry is a Master policy.
type Backend interface {
	// ListEndpoints returns the currently reachable endpoints. An empty
	// result is not itself an error; the Master treats it as fatal for
	// the run.
	ListEndpoints(ctx context.Context) ([]mwfaas.EndpointID, error)

	// Submit transmits funcName/payload/meta to ep and returns
	// immediately with a Future. It fails with a mwfaas.KindSubmission
	// TaskError if ep rejects intake.
	Submit(ctx context.Context, ep mwfaas.EndpointID, funcName string, payload, meta []byte) (Future, error)

	// Await blocks until fut reaches a terminal state, bounded by
	// timeout if timeout > 0. It returns either the gob-encoded user
	// result or a classified mwfaas.TaskError.
	Await(ctx context.Context, fut Future, timeout time.Duration) ([]byte, error)

	// Cancel requests best-effort cancellation of fut, returning whether
	// the cancellation was accepted before fut reached a terminal state.
	Cancel(ctx context.Context, fut Future) (bool, error)
}

// Lifecycle is implemented by backends that hold long-lived resources —
// network credentials, executor handles — that must be acquired before
// the first Submit and released on every exit from a session scope,
// including an exceptional one. master.Open calls Start if the backend
// implements Lifecycle; Session.Close calls Shutdown.
type Lifecycle interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Debuggable is implemented by backends that can serve diagnostic
// information relating to their executor. Session.HandleDebug forwards to
// it when present.
type Debuggable interface {
	HandleDebug(mux *http.ServeMux)
}
