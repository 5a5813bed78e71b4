package mwfaas_test

import (
	"context"
	"strings"
	"testing"

	"github.com/viniolvs/mwfaas"
	"github.com/viniolvs/mwfaas/codec"
)

var sumFunc = mwfaas.Register("func_test.sum", func(payload []int, meta mwfaas.Metadata) (int, error) {
	var total int
	for _, v := range payload {
		total += v
	}
	return total, nil
})

var panicFunc = mwfaas.Register("func_test.panic", func(payload []int, meta mwfaas.Metadata) (int, error) {
	panic("boom")
})

func TestInvokeRoundTrip(t *testing.T) {
	ctx := context.Background()
	payload, err := codec.Encode([]int{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	out, err := mwfaas.Invoke(ctx, sumFunc.Name(), payload, nil)
	if err != nil {
		t.Fatal(err)
	}
	var got int
	if err := codec.Decode(out, &got); err != nil {
		t.Fatal(err)
	}
	if got != 6 {
		t.Errorf("got %d, want 6", got)
	}
}

func TestInvokeUnregistered(t *testing.T) {
	_, err := mwfaas.Invoke(context.Background(), "func_test.nonexistent", nil, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	te, ok := mwfaas.AsTaskError(err)
	if !ok || te.Kind != mwfaas.KindSubmission {
		t.Errorf("got %v, want a KindSubmission TaskError", err)
	}
}

func TestInvokeRecoversPanic(t *testing.T) {
	payload, err := codec.Encode([]int{1})
	if err != nil {
		t.Fatal(err)
	}
	_, err = mwfaas.Invoke(context.Background(), panicFunc.Name(), payload, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	te, ok := mwfaas.AsTaskError(err)
	if !ok || te.Kind != mwfaas.KindRemoteException {
		t.Fatalf("got %v, want a KindRemoteException TaskError", err)
	}
	if !strings.Contains(te.Message, "boom") {
		t.Errorf("message %q does not mention panic value", te.Message)
	}
}

func TestFuncNamesSorted(t *testing.T) {
	names := mwfaas.FuncNames()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("FuncNames not sorted: %v", names)
		}
	}
	var found bool
	for _, n := range names {
		if n == sumFunc.Name() {
			found = true
		}
	}
	if !found {
		t.Errorf("FuncNames() = %v, want to contain %q", names, sumFunc.Name())
	}
}
