// Package quantization implements per-dimension 8-bit scalar quantization
// for dense float32 vectors.
package quantization

import (
	"errors"
	"math"

	"github.com/lol-boi/lightweight-vector-database-showcase-applications/metric"
)

// ErrNotTrained is returned by Encode, Decode and Distance when called
// before Train has established non-empty bounds.
var ErrNotTrained = errors.New("scalar quantizer: not trained")

// ScalarQuantizer learns a per-dimension [min, max] range from a training
// set and encodes each dimension to a single byte within that range.
//
// The zero value is a valid, untrained quantizer.
type ScalarQuantizer struct {
	mins []float32
	maxs []float32
}

// New creates an untrained scalar quantizer.
func New() *ScalarQuantizer {
	return &ScalarQuantizer{}
}

// Restore reconstructs an already-trained quantizer from persisted bounds.
// Passing empty slices produces an untrained quantizer.
func Restore(mins, maxs []float32) *ScalarQuantizer {
	return &ScalarQuantizer{mins: mins, maxs: maxs}
}

// IsTrained reports whether Train has been called with a non-empty set.
func (q *ScalarQuantizer) IsTrained() bool {
	return len(q.mins) > 0
}

// Dimension returns the trained dimension, or 0 if untrained.
func (q *ScalarQuantizer) Dimension() int {
	return len(q.mins)
}

// Mins returns the trained per-dimension minimums. Callers must not mutate
// the returned slice.
func (q *ScalarQuantizer) Mins() []float32 {
	return q.mins
}

// Maxs returns the trained per-dimension maximums. Callers must not mutate
// the returned slice.
func (q *ScalarQuantizer) Maxs() []float32 {
	return q.maxs
}

// Train computes component-wise min/max bounds over vectors. An empty
// training set is a no-op: the quantizer (or its existing bounds) is left
// untouched.
func (q *ScalarQuantizer) Train(vectors [][]float32) {
	if len(vectors) == 0 {
		return
	}

	dim := len(vectors[0])
	mins := make([]float32, dim)
	maxs := make([]float32, dim)
	copy(mins, vectors[0])
	copy(maxs, vectors[0])

	for _, v := range vectors[1:] {
		for i, val := range v {
			if val < mins[i] {
				mins[i] = val
			}
			if val > maxs[i] {
				maxs[i] = val
			}
		}
	}

	q.mins = mins
	q.maxs = maxs
}

// Encode maps v to one byte per dimension within the trained [min, max]
// range. Rounding is half-away-from-zero. Dimensions with zero range encode
// to 0. Values outside the trained bounds are not clamped and wrap around
// via the uint8 cast.
func (q *ScalarQuantizer) Encode(v []float32) ([]byte, error) {
	if !q.IsTrained() {
		return nil, ErrNotTrained
	}

	out := make([]byte, len(q.mins))
	for i := range out {
		r := q.maxs[i] - q.mins[i]
		if r == 0 {
			out[i] = 0
			continue
		}
		scaled := (v[i] - q.mins[i]) / r * 255
		out[i] = byte(int32(roundAwayFromZero(scaled)))
	}
	return out, nil
}

// Decode reconstructs an approximate float32 vector from an encoded one.
func (q *ScalarQuantizer) Decode(b []byte) ([]float32, error) {
	if !q.IsTrained() {
		return nil, ErrNotTrained
	}

	out := make([]float32, len(q.mins))
	for i := range out {
		r := q.maxs[i] - q.mins[i]
		if r == 0 {
			out[i] = q.mins[i]
			continue
		}
		out[i] = q.mins[i] + (float32(b[i])/255)*r
	}
	return out, nil
}

// Distance computes the squared L2 distance between a float query and a
// stored encoded vector, decoding the latter first. This is the only metric
// supported through quantization; a quantized HNSW ignores its declared
// distance metric.
func (q *ScalarQuantizer) Distance(query []float32, encoded []byte) (float32, error) {
	decoded, err := q.Decode(encoded)
	if err != nil {
		return 0, err
	}
	return metric.SquaredL2(query, decoded), nil
}

func roundAwayFromZero(x float32) float32 {
	if x >= 0 {
		return float32(math.Floor(float64(x) + 0.5))
	}
	return float32(math.Ceil(float64(x) - 0.5))
}
