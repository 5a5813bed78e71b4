package strategy

import (
	"github.com/viniolvs/mwfaas"
	"github.com/viniolvs/mwfaas/codec"
)

// ByteSize is a size-aware Strategy: it grows each chunk element by
// element until adding the next one would push the chunk's gob-encoded
// size past MaxBytes, then starts a new chunk. It never splits so
// finely that an element is dropped, and a single element whose own
// encoded size exceeds MaxBytes still gets a chunk of its own.
//
// ByteSize ignores endpointCount: chunk count is driven entirely by the
// data's serialized size, not by how many endpoints happen to be
// reachable.
type ByteSize[E any] struct {
	MaxBytes int
}

// Split implements Strategy.
func (b ByteSize[E]) Split(data []E, endpointCount int) []mwfaas.Chunk[E] {
	if len(data) == 0 {
		return nil
	}
	var chunks []mwfaas.Chunk[E]
	start := 0
	for start < len(data) {
		end := start + 1
		for end < len(data) {
			nextSize, err := codec.EncodedLen(data[start : end+1])
			if err != nil || nextSize > b.MaxBytes {
				break
			}
			end++
		}
		chunks = append(chunks, mwfaas.Chunk[E]{Index: len(chunks), Payload: data[start:end]})
		start = end
	}
	return chunks
}
