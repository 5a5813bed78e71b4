// Package master implements the Master orchestrator and the scoped
// backend session that hosts it: Session.Run drives a single run from
// endpoint discovery through chunking, round-robin submission,
// concurrent collection, and index-ordered aggregation.
package master

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/retry"
	"github.com/grailbio/base/status"
	"golang.org/x/sync/errgroup"

	"github.com/viniolvs/mwfaas"
	"github.com/viniolvs/mwfaas/backend"
	"github.com/viniolvs/mwfaas/codec"
	"github.com/viniolvs/mwfaas/store"
	"github.com/viniolvs/mwfaas/strategy"
)

// retryPolicy governs the backoff between Master-level retry attempts:
// it starts at one second and grows by a factor of 1.5, capped at five
// seconds.
var retryPolicy = retry.Backoff(time.Second, 5*time.Second, 1.5)

// Outcome is one entry of a run's aggregated result list: either the
// user's decoded result (Err == nil) or a sentinel marking a failed or
// canceled chunk at its original position, so a failure never displaces
// its siblings' positions.
type Outcome[R any] struct {
	ChunkIndex int
	EndpointID mwfaas.EndpointID
	Value      R
	Err        error
}

// Config holds Session-wide policy. Build one with Option funcs passed to
// Open.
type Config struct {
	// MaxRetries bounds the number of additional attempts a chunk gets
	// after a SubmissionError or TransportError. Zero (the default)
	// disables retry: failures are surfaced verbatim.
	MaxRetries int
	// PerTaskTimeout bounds each individual backend.Await call. Zero
	// means no per-task timeout.
	PerTaskTimeout time.Duration
	// SkipFailures, if set, omits failed/canceled chunks from the
	// returned result list instead of inserting a sentinel at their
	// position. This is a legacy compatibility mode; it silently breaks
	// positional aggregation for callers that assume result[i]
	// corresponds to chunk i, so it must be requested explicitly.
	SkipFailures bool
	// Status, if non-nil, receives a progress entry for the duration of
	// each Run call.
	Status *status.Group
}

// Option configures a Config.
type Option func(*Config)

// WithMaxRetries bounds the number of additional attempts a chunk gets
// after a retryable failure.
func WithMaxRetries(n int) Option { return func(c *Config) { c.MaxRetries = n } }

// WithPerTaskTimeout bounds each backend.Await call.
func WithPerTaskTimeout(d time.Duration) Option { return func(c *Config) { c.PerTaskTimeout = d } }

// WithStatus attaches a status.Group that receives a progress entry per
// Run call.
func WithStatus(g *status.Group) Option { return func(c *Config) { c.Status = g } }

// SkipFailures requests the legacy skip-failures aggregation mode. See
// Config.SkipFailures.
func SkipFailures() Option { return func(c *Config) { c.SkipFailures = true } }

// Session is an explicit lifetime envelope around a Backend. Open
// acquires backend resources, if the
// backend implements backend.Lifecycle; Close releases them on every
// exit path. Run may only be called between a successful Open and the
// matching Close.
type Session[E, R any] struct {
	b   backend.Backend
	cfg Config

	mu     sync.Mutex
	active bool
	store  *store.Store
}

// Open opens a session scope over b, starting it if it implements
// backend.Lifecycle. Callers must Close the returned Session on every
// exit path, typically via defer.
func Open[E, R any](ctx context.Context, b backend.Backend, opts ...Option) (*Session[E, R], error) {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	if lc, ok := b.(backend.Lifecycle); ok {
		if err := lc.Start(ctx); err != nil {
			return nil, err
		}
	}
	return &Session[E, R]{b: b, cfg: cfg, active: true, store: store.New()}, nil
}

// Close releases the session's backend resources. Close is idempotent.
func (s *Session[E, R]) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return nil
	}
	s.active = false
	if lc, ok := s.b.(backend.Lifecycle); ok {
		return lc.Shutdown(ctx)
	}
	return nil
}

// HandleDebug forwards to the backend's debug handler, if it implements
// backend.Debuggable.
func (s *Session[E, R]) HandleDebug(mux *http.ServeMux) {
	if d, ok := s.b.(backend.Debuggable); ok {
		d.HandleDebug(mux)
	}
}

// GetTaskStatuses returns a snapshot of every task record from the most
// recent Run call, ordered by chunk index. It returns an empty slice
// before the first Run.
func (s *Session[E, R]) GetTaskStatuses() []store.Record {
	s.mu.Lock()
	st := s.store
	s.mu.Unlock()
	if st == nil {
		return nil
	}
	return st.Snapshot()
}

// Run drives a single Master orchestration over data: it discovers
// endpoints, splits data via strat, dispatches chunks round-robin across
// the discovered endpoints, collects outcomes concurrently, and returns
// them ordered by chunk index. ctx's deadline, if any, bounds the whole
// run: on expiry the Master stops submitting further chunks and cancels
// every outstanding future.
//
// A chunk's failure never aborts collection of its siblings: Run always
// waits for every dispatched chunk to settle (or be canceled) before
// returning, so the returned slice always has one Outcome per chunk,
// unless SkipFailures was requested.
func (s *Session[E, R]) Run(ctx context.Context, fn mwfaas.Func[E, R], data []E, meta mwfaas.Metadata, strat strategy.Strategy[E]) ([]Outcome[R], error) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if !active {
		return nil, mwfaas.ErrBackendNotActive
	}

	endpoints, err := s.b.ListEndpoints(ctx)
	if err != nil {
		return nil, err
	}
	if len(endpoints) == 0 {
		return nil, mwfaas.ErrNoEndpointsAvailable
	}

	chunks := strat.Split(data, len(endpoints))
	if len(chunks) == 0 {
		return nil, nil
	}

	metaBytes, err := codec.Encode(meta)
	if err != nil {
		return nil, mwfaas.NewSerializationError("encode metadata: " + err.Error())
	}

	st := store.New()
	s.mu.Lock()
	s.store = st
	s.mu.Unlock()

	var progress *status.Task
	if s.cfg.Status != nil {
		progress = s.cfg.Status.Startf("run: %d chunks across %d endpoints", len(chunks), len(endpoints))
		defer progress.Done()
	}

	final := make([]*store.Record, len(chunks))
	var g errgroup.Group
	for i, chunk := range chunks {
		i, chunk := i, chunk
		ep := endpoints[chunk.Index%len(endpoints)]
		payloadBytes, perr := codec.Encode(chunk.Payload)
		if perr != nil {
			rec := st.Create(chunk.Index, ep)
			st.Transition(rec.ID, store.Failed, nil, mwfaas.NewSerializationError("encode payload: "+perr.Error()))
			final[i] = rec
			continue
		}
		g.Go(func() error {
			final[i] = s.runChunk(ctx, chunk.Index, ep, fn.Name(), payloadBytes, metaBytes, st)
			return nil
		})
	}
	_ = g.Wait()

	return aggregate[R](final, s.cfg.SkipFailures), nil
}

// runChunk submits one chunk, awaits its outcome, and retries it (per
// Config.MaxRetries) whenever the failure classifies as retryable,
// creating a new task record for each attempt while leaving prior
// attempts' records terminal for audit. It returns the record of the
// attempt that settled the chunk.
func (s *Session[E, R]) runChunk(ctx context.Context, chunkIndex int, ep mwfaas.EndpointID, funcName string, payloadBytes, metaBytes []byte, st *store.Store) *store.Record {
	var rec *store.Record
	for attempt := 0; ; attempt++ {
		rec = st.Create(chunkIndex, ep)

		if ctx.Err() != nil {
			st.Transition(rec.ID, store.Canceled, nil, mwfaas.NewCanceled(ep))
			return rec
		}

		fut, err := s.b.Submit(ctx, ep, funcName, payloadBytes, metaBytes)
		if err != nil {
			st.Transition(rec.ID, store.Failed, nil, err)
			if s.retryable(err, attempt) {
				if werr := retry.Wait(ctx, retryPolicy, attempt); werr == nil {
					continue
				}
			}
			return rec
		}
		st.Transition(rec.ID, store.Running, nil, nil)

		result, err := s.b.Await(ctx, fut, s.cfg.PerTaskTimeout)
		if err == nil {
			st.Transition(rec.ID, store.Succeeded, result, nil)
			return rec
		}

		if ctx.Err() != nil {
			s.b.Cancel(ctx, fut)
			st.Transition(rec.ID, store.Canceled, nil, mwfaas.NewCanceled(ep))
			return rec
		}

		st.Transition(rec.ID, store.Failed, nil, err)
		if s.retryable(err, attempt) {
			if werr := retry.Wait(ctx, retryPolicy, attempt); werr == nil {
				log.Printf("mwfaas/master: retrying chunk %d on %s after %v (attempt %d)", chunkIndex, ep, err, attempt+1)
				continue
			}
		}
		return rec
	}
}

// retryable reports whether err warrants another attempt given the
// session's MaxRetries policy and the number of attempts already made.
func (s *Session[E, R]) retryable(err error, attempt int) bool {
	if attempt >= s.cfg.MaxRetries {
		return false
	}
	te, ok := mwfaas.AsTaskError(err)
	return ok && te.Retryable()
}

// aggregate converts a run's settled task records into an ordered
// Outcome list, decoding each SUCCEEDED record's result. A record that
// never reached SUCCEEDED becomes a sentinel Outcome carrying its error,
// at its original chunk position, unless skipFailures omits it entirely.
func aggregate[R any](final []*store.Record, skipFailures bool) []Outcome[R] {
	out := make([]Outcome[R], 0, len(final))
	for _, rec := range final {
		if rec == nil {
			continue
		}
		if rec.State != store.Succeeded {
			if skipFailures {
				log.Error.Printf("mwfaas/master: skipping chunk %d (%s): %v", rec.ChunkIndex, rec.EndpointID, rec.Err)
				continue
			}
			out = append(out, Outcome[R]{ChunkIndex: rec.ChunkIndex, EndpointID: rec.EndpointID, Err: rec.Err})
			continue
		}
		var value R
		if derr := codec.Decode(rec.Result, &value); derr != nil {
			out = append(out, Outcome[R]{ChunkIndex: rec.ChunkIndex, EndpointID: rec.EndpointID, Err: mwfaas.NewSerializationError("decode result: " + derr.Error())})
			continue
		}
		out = append(out, Outcome[R]{ChunkIndex: rec.ChunkIndex, EndpointID: rec.EndpointID, Value: value})
	}
	return out
}
