// Package codec gob-encodes the values that cross the Endpoint Backend
// boundary: chunk payloads, metadata, and user results. encoding/gob is
// used throughout rather than introducing a second wire format, since
// every domain dependency this module wires in (github.com/grailbio/bigmachine
// chief among them) already assumes gob as its RPC codec.
package codec

import (
	"bytes"
	"encoding/gob"
)

// Encode gob-encodes v into a byte slice. A zero value, nil slice or nil
// map encodes to a non-empty byte slice (gob always frames its output),
// so Decode should be used as the test for "nothing was sent", not
// len(b) == 0. An untyped nil v is rejected by gob with an error.
func Encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode gob-decodes data into v, which must be a non-nil pointer.
func Decode(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// EncodedLen returns the size, in bytes, of v's gob encoding. It is used
// by size-aware distribution strategies to estimate a chunk's wire size
// without committing to an encoder's cumulative stream state.
func EncodedLen(v interface{}) (int, error) {
	b, err := Encode(v)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}
