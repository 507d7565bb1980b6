// Package vectorstore holds the raw vectors, per-vector metadata and,
// when scalar quantization is enabled and trained, the parallel array of
// encoded vectors that HNSW indexes over.
package vectorstore

import (
	"fmt"

	"github.com/lol-boi/lightweight-vector-database-showcase-applications/quantization"
)

// ErrDimensionMismatch is returned when an appended vector's length does
// not equal the store's configured dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vectorstore: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Store is the append-only vector and metadata storage backing an HNSW
// index. The i-th entries of vectors, metadata and (once populated)
// encoded all correspond to the same NodeId i.
type Store struct {
	dimension int
	vectors   [][]float32
	metadata  []map[string]string
	encoded   [][]byte
}

// New creates an empty store for vectors of the given dimension.
func New(dimension int) *Store {
	return &Store{dimension: dimension}
}

// Restore reconstructs a store from already-validated vectors and
// metadata, as produced by persistence.Read. Ownership of the slices
// transfers to the store.
func Restore(dimension int, vectors [][]float32, metadata []map[string]string) *Store {
	return &Store{dimension: dimension, vectors: vectors, metadata: metadata}
}

// Dimension returns the fixed vector dimension.
func (s *Store) Dimension() int { return s.dimension }

// Len returns the number of stored vectors.
func (s *Store) Len() int { return len(s.vectors) }

// Append copies v and meta into the store and returns the new id, equal to
// the store's length prior to the append. Fails if len(v) != Dimension().
func (s *Store) Append(v []float32, meta map[string]string) (uint32, error) {
	if len(v) != s.dimension {
		return 0, &ErrDimensionMismatch{Expected: s.dimension, Actual: len(v)}
	}

	id := uint32(len(s.vectors))

	vecCopy := make([]float32, len(v))
	copy(vecCopy, v)
	s.vectors = append(s.vectors, vecCopy)

	metaCopy := make(map[string]string, len(meta))
	for k, val := range meta {
		metaCopy[k] = val
	}
	s.metadata = append(s.metadata, metaCopy)

	if s.encoded != nil {
		s.encoded = append(s.encoded, nil)
	}

	return id, nil
}

// Vector returns the stored vector for id. The returned slice aliases
// internal memory and must not be mutated by the caller.
func (s *Store) Vector(id uint32) []float32 { return s.vectors[id] }

// Metadata returns the stored metadata for id. The returned map aliases
// internal memory and must not be mutated by the caller.
func (s *Store) Metadata(id uint32) map[string]string { return s.metadata[id] }

// Vectors returns every stored vector, live or tombstoned, in id order.
// Used by quantizer training, which the design intentionally runs over the
// whole store.
func (s *Store) Vectors() [][]float32 { return s.vectors }

// Encoded returns the quantized encoding for id, or nil if quantization is
// disabled or the store has not yet been encoded.
func (s *Store) Encoded(id uint32) []byte {
	if s.encoded == nil {
		return nil
	}
	return s.encoded[id]
}

// SetEncoded stores the quantized encoding for id, growing the encoded
// array on first use.
func (s *Store) SetEncoded(id uint32, enc []byte) {
	if s.encoded == nil {
		s.encoded = make([][]byte, len(s.vectors))
	}
	s.encoded[id] = enc
}

// EncodeAll re-encodes every stored vector with q, replacing any existing
// encodings. Fails if q is not trained.
func (s *Store) EncodeAll(q *quantization.ScalarQuantizer) error {
	if !q.IsTrained() {
		return quantization.ErrNotTrained
	}

	encoded := make([][]byte, len(s.vectors))
	for i, v := range s.vectors {
		enc, err := q.Encode(v)
		if err != nil {
			return err
		}
		encoded[i] = enc
	}
	s.encoded = encoded
	return nil
}
