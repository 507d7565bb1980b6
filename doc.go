// Package vecdb is an embeddable approximate-nearest-neighbor vector
// database: a hierarchical proximity-graph (HNSW) index over dense
// float32 vectors with attached string metadata, an optional 8-bit
// per-dimension scalar-quantization layer, and single-file persistence.
//
// A Database is not safe for concurrent use; the contract is
// single-owner, single-threaded, synchronous.
package vecdb
