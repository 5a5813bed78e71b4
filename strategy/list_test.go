package strategy

import (
	"testing"

	fuzz "github.com/google/gofuzz"

	"github.com/viniolvs/mwfaas"
	"github.com/viniolvs/mwfaas/codec"
)

func concat(chunks []mwfaas.Chunk[int]) []int {
	var out []int
	for _, c := range chunks {
		out = append(out, c.Payload...)
	}
	return out
}

func assertOrderedIndices[T any](t *testing.T, chunks []mwfaas.Chunk[T]) {
	t.Helper()
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has Index %d, want %d", i, c.Index, i)
		}
		if len(c.Payload) == 0 {
			t.Errorf("chunk %d is empty", i)
		}
	}
}

func TestListFixedSize(t *testing.T) {
	data := make([]int, 10)
	for i := range data {
		data[i] = i
	}
	chunks := List[int]{ItemsPerChunk: 3}.Split(data, 4)
	if len(chunks) != 4 {
		t.Fatalf("got %d chunks, want 4", len(chunks))
	}
	wantSizes := []int{3, 3, 3, 1}
	for i, c := range chunks {
		if len(c.Payload) != wantSizes[i] {
			t.Errorf("chunk %d: got size %d, want %d", i, len(c.Payload), wantSizes[i])
		}
	}
	assertOrderedIndices(t, chunks)
	if got := concat(chunks); !intsEqual(got, data) {
		t.Errorf("concatenation mismatch: got %v, want %v", got, data)
	}
}

func TestListAutoNearEqual(t *testing.T) {
	data := make([]int, 10)
	for i := range data {
		data[i] = i
	}
	chunks := List[int]{}.Split(data, 3)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	wantSizes := []int{4, 3, 3}
	for i, c := range chunks {
		if len(c.Payload) != wantSizes[i] {
			t.Errorf("chunk %d: got size %d, want %d", i, len(c.Payload), wantSizes[i])
		}
	}
	assertOrderedIndices(t, chunks)
	if got := concat(chunks); !intsEqual(got, data) {
		t.Errorf("concatenation mismatch: got %v, want %v", got, data)
	}
}

func TestListAutoMoreEndpointsThanItems(t *testing.T) {
	data := []int{10, 20, 30}
	chunks := List[int]{}.Split(data, 8)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	for _, c := range chunks {
		if len(c.Payload) != 1 {
			t.Errorf("chunk %d: got size %d, want 1", c.Index, len(c.Payload))
		}
	}
	assertOrderedIndices(t, chunks)
}

func TestListEmptyInput(t *testing.T) {
	if chunks := (List[int]{}).Split(nil, 4); len(chunks) != 0 {
		t.Errorf("got %d chunks for empty input, want 0", len(chunks))
	}
	if chunks := (List[int]{ItemsPerChunk: 2}).Split(nil, 4); len(chunks) != 0 {
		t.Errorf("got %d chunks for empty input, want 0", len(chunks))
	}
}

// TestListFuzzPreservesOrder exercises both fixed and auto modes against
// fuzzed input lengths and endpoint counts, checking the order-preserving
// concatenation invariant the Master relies on for aggregation.
func TestListFuzzPreservesOrder(t *testing.T) {
	fz := fuzz.NewWithSeed(4242)
	for i := 0; i < 200; i++ {
		var n, e, ipc uint16
		fz.Fuzz(&n)
		fz.Fuzz(&e)
		fz.Fuzz(&ipc)

		data := make([]int, int(n)%300)
		for j := range data {
			data[j] = j
		}
		endpointCount := int(e)%8 + 1

		strat := List[int]{ItemsPerChunk: int(ipc) % 10}
		chunks := strat.Split(data, endpointCount)
		assertOrderedIndices(t, chunks)
		if got := concat(chunks); !intsEqual(got, data) {
			t.Fatalf("n=%d endpointCount=%d itemsPerChunk=%d: concatenation mismatch: got %v, want %v",
				len(data), endpointCount, strat.ItemsPerChunk, got, data)
		}
	}
}

func TestByteSizeRespectsBound(t *testing.T) {
	data := make([]string, 50)
	for i := range data {
		data[i] = "payload-element"
	}
	strat := ByteSize[string]{MaxBytes: 200}
	chunks := strat.Split(data, 4)
	assertOrderedIndices(t, chunks)
	for _, c := range chunks {
		size, err := codec.EncodedLen(c.Payload)
		if err != nil {
			t.Fatal(err)
		}
		if size > strat.MaxBytes {
			t.Errorf("chunk %d encodes to %d bytes, want <= %d", c.Index, size, strat.MaxBytes)
		}
	}
	if got := concatStr(chunks); !stringsEqual(got, data) {
		t.Errorf("concatenation mismatch: got %v, want %v", got, data)
	}
}

func TestByteSizeOversizedElementGetsOwnChunk(t *testing.T) {
	big := make([]byte, 1000)
	data := [][]byte{big}
	strat := ByteSize[[]byte]{MaxBytes: 10}
	chunks := strat.Split(data, 2)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if len(chunks[0].Payload) != 1 {
		t.Errorf("got payload len %d, want 1", len(chunks[0].Payload))
	}
}

func TestByteSizeEmptyInput(t *testing.T) {
	if chunks := (ByteSize[string]{MaxBytes: 100}).Split(nil, 4); len(chunks) != 0 {
		t.Errorf("got %d chunks for empty input, want 0", len(chunks))
	}
}

func concatStr(chunks []mwfaas.Chunk[string]) []string {
	var out []string
	for _, c := range chunks {
		out = append(out, c.Payload...)
	}
	return out
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
