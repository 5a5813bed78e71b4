// Package strategy implements the distribution strategy contract:
// pluggable policy for splitting a driver-side collection into the
// Chunks a Master dispatches across discovered endpoints.
package strategy

import "github.com/viniolvs/mwfaas"

// Strategy splits data into chunks to be distributed across
// endpointCount reachable endpoints. Implementations decide the number
// and size of chunks; the Master only guarantees it will round-robin the
// returned chunks across the endpoints it discovered, keyed by
// Chunk.Index modulo endpointCount.
//
// Split must return chunks with distinct, contiguous-from-zero Index
// values in the order the original data should be reassembled in.
type Strategy[E any] interface {
	Split(data []E, endpointCount int) []mwfaas.Chunk[E]
}
