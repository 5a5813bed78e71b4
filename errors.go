// Package mwfaas implements a manager-worker task distribution runtime
// for bag-of-tasks computations dispatched to a pool of remote compute
// endpoints. It defines the data model shared by every component: chunks,
// metadata, the user-function registry, and the classified error taxonomy
// that task records carry in their terminal state.
package mwfaas

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// ErrNoEndpointsAvailable is returned by Session.Run when the backend
// reports zero reachable endpoints at the start of a run.
var ErrNoEndpointsAvailable = errors.E(errors.Precondition, "mwfaas: no endpoints available")

// ErrBackendNotActive is returned when Run is invoked on a Session that
// has not been opened, or has already been closed.
var ErrBackendNotActive = errors.E(errors.Precondition, "mwfaas: session not active")

// Kind classifies a per-chunk task outcome error. It is the Go realization
// of the error taxonomy: a sentinel at a failed chunk's position carries
// one of these kinds plus an endpoint id and message.
type Kind int

const (
	KindUnknown Kind = iota
	// KindSubmission means the backend refused to accept a chunk at
	// intake (unreachable endpoint, quota, serialization failure).
	KindSubmission
	// KindRemoteException means the user function raised at the worker.
	KindRemoteException
	// KindTransport means the network or endpoint failed while the
	// Master was awaiting a submitted chunk.
	KindTransport
	// KindTimeout means a per-task or overall deadline was exceeded.
	KindTimeout
	// KindCanceled means the task was canceled, cooperatively, before
	// reaching a terminal state on its own.
	KindCanceled
	// KindSerialization means a payload, metadata map, or result could
	// not be encoded or decoded.
	KindSerialization
)

func (k Kind) String() string {
	switch k {
	case KindSubmission:
		return "SubmissionError"
	case KindRemoteException:
		return "RemoteException"
	case KindTransport:
		return "TransportError"
	case KindTimeout:
		return "Timeout"
	case KindCanceled:
		return "Canceled"
	case KindSerialization:
		return "SerializationError"
	default:
		return "Unknown"
	}
}

// TaskError is the classified, structured outcome attached to a failed or
// canceled task record: a tagged record containing the chunk's endpoint
// id, the failure kind, and a message (and, for a remote exception, the
// worker-side stack trace).
type TaskError struct {
	Kind       Kind
	EndpointID EndpointID
	Message    string
	Trace      string
}

func (e *TaskError) Error() string {
	if e.Trace == "" {
		return fmt.Sprintf("mwfaas: %s from %q: %s", e.Kind, e.EndpointID, e.Message)
	}
	return fmt.Sprintf("mwfaas: %s from %q: %s\n%s", e.Kind, e.EndpointID, e.Message, e.Trace)
}

// Retryable reports whether a Master's optional retry policy may retry the
// task that produced e. Only submission and transport failures are
// candidates; a remote exception is assumed reproducible and a timeout or
// cancellation is assumed intentional.
func (e *TaskError) Retryable() bool {
	return e.Kind == KindSubmission || e.Kind == KindTransport
}

// NewRemoteException classifies err (or a recovered panic) as having
// originated from user code running at ep.
func NewRemoteException(ep EndpointID, message, trace string) error {
	return &TaskError{Kind: KindRemoteException, EndpointID: ep, Message: message, Trace: trace}
}

// NewSubmissionError classifies a backend's refusal to accept a chunk
// destined for ep.
func NewSubmissionError(ep EndpointID, reason string) error {
	return &TaskError{Kind: KindSubmission, EndpointID: ep, Message: reason}
}

// NewTransportError classifies a network or endpoint failure discovered
// while awaiting a chunk submitted to ep.
func NewTransportError(ep EndpointID, reason string) error {
	return &TaskError{Kind: KindTransport, EndpointID: ep, Message: reason}
}

// NewSerializationError classifies a payload, metadata, or result that
// could not be encoded or decoded.
func NewSerializationError(reason string) error {
	return &TaskError{Kind: KindSerialization, Message: reason}
}

// NewTimeout classifies a task at ep that exceeded its deadline.
func NewTimeout(ep EndpointID) error {
	return &TaskError{Kind: KindTimeout, EndpointID: ep, Message: "deadline exceeded"}
}

// NewCanceled classifies a task at ep canceled before it reached a
// terminal state on its own.
func NewCanceled(ep EndpointID) error {
	return &TaskError{Kind: KindCanceled, EndpointID: ep, Message: "canceled"}
}

// AsTaskError extracts the classified TaskError carried by err, if any.
func AsTaskError(err error) (*TaskError, bool) {
	te, ok := err.(*TaskError)
	return te, ok
}
