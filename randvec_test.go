package vecdb

import "math/rand"

// randomVectors generates n deterministic pseudo-random vectors of the
// given dimension, for property tests that don't care about specific
// coordinates.
func randomVectors(seed int64, n, dim int) [][]float32 {
	r := rand.New(rand.NewSource(seed))
	out := make([][]float32, n)
	for i := range out {
		v := make([]float32, dim)
		for j := range v {
			v[j] = r.Float32()*2 - 1
		}
		out[i] = v
	}
	return out
}
