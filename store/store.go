// Package store implements the in-memory task record store: a
// single-writer registry of every chunk dispatched during a run, keyed by
// task id, with a forward-only lifecycle state machine.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/viniolvs/mwfaas"
)

// State is a task record's position in its lifecycle:
//
//	PENDING -> RUNNING -> {SUCCEEDED | FAILED}
//	any non-terminal state -> CANCELED
type State int

const (
	Pending State = iota
	Running
	Succeeded
	Failed
	Canceled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Running:
		return "RUNNING"
	case Succeeded:
		return "SUCCEEDED"
	case Failed:
		return "FAILED"
	case Canceled:
		return "CANCELED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transition is permitted from s.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed || s == Canceled
}

// legalFrom enumerates the states reachable from each non-terminal state.
// Anything absent (including every entry for a terminal state) is an
// illegal transition.
var legalFrom = map[State]map[State]bool{
	Pending: {Running: true, Failed: true, Canceled: true},
	Running: {Succeeded: true, Failed: true, Canceled: true},
}

// Record is one task's bookkeeping entry.
type Record struct {
	ID          string
	ChunkIndex  int
	EndpointID  mwfaas.EndpointID
	State       State
	Result      []byte
	Err         error
	SubmittedAt time.Time
	CompletedAt time.Time
}

// Store is the in-memory, single-writer Task Record Store. The Master is
// the sole writer; Snapshot returns an immutable copy safe for concurrent
// readers without further synchronization.
type Store struct {
	mu      sync.Mutex
	records map[string]*Record
}

// New returns an empty Store.
func New() *Store {
	return &Store{records: make(map[string]*Record)}
}

// Create registers a new task record in state PENDING for chunkIndex,
// assigned to ep, and returns it.
func (s *Store) Create(chunkIndex int, ep mwfaas.EndpointID) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &Record{
		ID:          uuid.NewString(),
		ChunkIndex:  chunkIndex,
		EndpointID:  ep,
		State:       Pending,
		SubmittedAt: time.Now(),
	}
	s.records[rec.ID] = rec
	return rec
}

// Transition moves the record identified by id to newState, recording
// result and err if newState is terminal. It panics on an unknown id or
// an illegal transition: the Master is the only writer and is expected
// never to request one, so a violation here is a programming error, not
// a recoverable runtime condition.
func (s *Store) Transition(id string, newState State, result []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		panic(fmt.Sprintf("store: transition: unknown task %s", id))
	}
	if !legalFrom[rec.State][newState] {
		panic(fmt.Sprintf("store: illegal transition %s -> %s for task %s", rec.State, newState, id))
	}
	rec.State = newState
	if newState.Terminal() {
		rec.Result = result
		rec.Err = err
		rec.CompletedAt = time.Now()
	}
}

// Snapshot returns an immutable copy of every record currently held,
// ordered by ChunkIndex.
func (s *Store) Snapshot() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChunkIndex != out[j].ChunkIndex {
			return out[i].ChunkIndex < out[j].ChunkIndex
		}
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	return out
}
