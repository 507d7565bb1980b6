package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquaredL2(t *testing.T) {
	d := SquaredL2([]float32{0, 0}, []float32{3, 4})
	assert.Equal(t, float32(25), d)
}

func TestCosineDistanceDirections(t *testing.T) {
	assert.InDelta(t, 0, CosineDistance([]float32{1, 0}, []float32{1, 0}), 1e-6)
	assert.InDelta(t, 1, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, 2, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-6)
}

func TestCosineDistanceZeroNormIsOne(t *testing.T) {
	assert.Equal(t, float32(1), CosineDistance([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, float32(1), CosineDistance([]float32{1, 1}, []float32{0, 0}))
}

func TestNegatedInnerProduct(t *testing.T) {
	d := NegatedInnerProduct([]float32{1, 1}, []float32{1, 1})
	assert.Equal(t, float32(-2), d)
}

func TestProviderKnownMetrics(t *testing.T) {
	for _, m := range []Metric{L2, Cosine, IP} {
		fn, err := Provider(m)
		require.NoError(t, err)
		assert.NotNil(t, fn)
	}
}

func TestProviderUnknownMetric(t *testing.T) {
	_, err := Provider(Metric(99))
	var um *ErrUnknownMetric
	require.ErrorAs(t, err, &um)
	assert.Equal(t, Metric(99), um.Metric)
}

func TestMetricString(t *testing.T) {
	assert.Equal(t, "L2", L2.String())
	assert.Equal(t, "Cosine", Cosine.String())
	assert.Equal(t, "IP", IP.String())
	assert.Contains(t, Metric(42).String(), "Unknown")
}
