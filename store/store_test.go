package store

import (
	"testing"

	"github.com/viniolvs/mwfaas"
)

func TestCreateSnapshotOrder(t *testing.T) {
	s := New()
	for i := 3; i >= 0; i-- {
		s.Create(i, mwfaas.EndpointID("A"))
	}
	snap := s.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("got %d records, want 4", len(snap))
	}
	for i, rec := range snap {
		if rec.ChunkIndex != i {
			t.Errorf("snapshot[%d].ChunkIndex = %d, want %d", i, rec.ChunkIndex, i)
		}
		if rec.State != Pending {
			t.Errorf("snapshot[%d].State = %v, want PENDING", i, rec.State)
		}
	}
}

func TestTransitionForwardOnly(t *testing.T) {
	s := New()
	rec := s.Create(0, mwfaas.EndpointID("A"))
	s.Transition(rec.ID, Running, nil, nil)
	s.Transition(rec.ID, Succeeded, []byte("ok"), nil)
	snap := s.Snapshot()
	if snap[0].State != Succeeded {
		t.Fatalf("got %v, want SUCCEEDED", snap[0].State)
	}
	if snap[0].CompletedAt.IsZero() {
		t.Error("CompletedAt not set on terminal transition")
	}
}

func TestTransitionIllegalPanics(t *testing.T) {
	s := New()
	rec := s.Create(0, mwfaas.EndpointID("A"))
	s.Transition(rec.ID, Running, nil, nil)
	s.Transition(rec.ID, Succeeded, nil, nil)
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on transition out of a terminal state")
		}
	}()
	s.Transition(rec.ID, Running, nil, nil)
}

func TestTransitionPendingDirectlyToFailed(t *testing.T) {
	s := New()
	rec := s.Create(0, mwfaas.EndpointID("A"))
	s.Transition(rec.ID, Failed, nil, mwfaas.NewSubmissionError("A", "rejected"))
	snap := s.Snapshot()
	if snap[0].State != Failed {
		t.Fatalf("got %v, want FAILED", snap[0].State)
	}
}

func TestCancelFromAnyNonTerminalState(t *testing.T) {
	for _, from := range []State{Pending, Running} {
		s := New()
		rec := s.Create(0, mwfaas.EndpointID("A"))
		if from == Running {
			s.Transition(rec.ID, Running, nil, nil)
		}
		s.Transition(rec.ID, Canceled, nil, mwfaas.NewCanceled("A"))
		if got := s.Snapshot()[0].State; got != Canceled {
			t.Errorf("from %v: got %v, want CANCELED", from, got)
		}
	}
}
