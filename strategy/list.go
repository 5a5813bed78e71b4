package strategy

import "github.com/viniolvs/mwfaas"

// List is the default Strategy: fixed-size chunking when
// ItemsPerChunk > 0, or an auto near-equal split into exactly
// endpointCount chunks when ItemsPerChunk == 0.
type List[E any] struct {
	// ItemsPerChunk, if positive, fixes every chunk's size except
	// possibly the last, which may be shorter. Total chunk count is
	// ceil(len(data) / ItemsPerChunk).
	//
	// Zero requests auto mode: data is partitioned into exactly
	// endpointCount chunks of near-equal size, sized ceil(n/E) for the
	// first n mod E chunks and floor(n/E) for the rest. If
	// endpointCount > len(data), len(data) chunks of size 1 are
	// produced instead.
	ItemsPerChunk int
}

// Split implements Strategy.
func (l List[E]) Split(data []E, endpointCount int) []mwfaas.Chunk[E] {
	if len(data) == 0 {
		return nil
	}
	if l.ItemsPerChunk > 0 {
		return splitFixed(data, l.ItemsPerChunk)
	}
	return splitAuto(data, endpointCount)
}

// splitFixed partitions data into chunks of size itemsPerChunk, the
// final chunk possibly shorter.
func splitFixed[E any](data []E, itemsPerChunk int) []mwfaas.Chunk[E] {
	n := len(data)
	count := (n + itemsPerChunk - 1) / itemsPerChunk
	chunks := make([]mwfaas.Chunk[E], 0, count)
	for i, start := 0, 0; start < n; i, start = i+1, start+itemsPerChunk {
		end := start + itemsPerChunk
		if end > n {
			end = n
		}
		chunks = append(chunks, mwfaas.Chunk[E]{Index: i, Payload: data[start:end]})
	}
	return chunks
}

// splitAuto partitions data into exactly endpointCount near-equal chunks,
// the first n mod endpointCount sized ceil(n/E) and the rest
// floor(n/E). If endpointCount exceeds len(data), it degrades to
// len(data) chunks of size 1: there is no benefit to an empty chunk, and
// one-item-per-endpoint is the natural floor.
func splitAuto[E any](data []E, endpointCount int) []mwfaas.Chunk[E] {
	n := len(data)
	if endpointCount <= 0 || endpointCount > n {
		chunks := make([]mwfaas.Chunk[E], n)
		for i := range data {
			chunks[i] = mwfaas.Chunk[E]{Index: i, Payload: data[i : i+1]}
		}
		return chunks
	}
	base := n / endpointCount
	extra := n % endpointCount
	chunks := make([]mwfaas.Chunk[E], 0, endpointCount)
	start := 0
	for i := 0; i < endpointCount; i++ {
		size := base
		if i < extra {
			size++
		}
		chunks = append(chunks, mwfaas.Chunk[E]{Index: i, Payload: data[start : start+size]})
		start += size
	}
	return chunks
}
