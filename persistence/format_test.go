package persistence

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lol-boi/lightweight-vector-database-showcase-applications/hnsw"
	"github.com/lol-boi/lightweight-vector-database-showcase-applications/metric"
	"github.com/lol-boi/lightweight-vector-database-showcase-applications/quantization"
)

func buildIndex(t *testing.T) *hnsw.HNSW {
	t.Helper()
	h, err := hnsw.New(2, hnsw.Options{M: 4, EFConstruction: 20, EFSearch: 10, Metric: metric.L2}, nil)
	require.NoError(t, err)

	for i, v := range [][]float32{{0, 0}, {1, 1}, {2, 2}, {3, 3}} {
		_, err := h.Insert(v, map[string]string{"idx": string(rune('a' + i))})
		require.NoError(t, err)
	}
	require.NoError(t, h.Delete(1))
	return h
}

func restore(t *testing.T, snap *Snapshot) *hnsw.HNSW {
	t.Helper()
	h, err := hnsw.Restore(snap.Dimension, snap.Options, snap.Nodes, snap.Deleted, snap.Vectors, snap.Metadata, snap.Quantizer)
	require.NoError(t, err)
	return h
}

// S5/round-trip - save then load preserves nodes, adjacency, vectors,
// metadata, deleted set and parameters.
func TestWriteReadRoundTrip(t *testing.T) {
	h := buildIndex(t)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, h))

	snap, err := Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, h.Options(), snap.Options)
	assert.Equal(t, h.Dimension(), snap.Dimension)
	assert.Equal(t, h.DeletedIDs(), sortedKeys(snap.Deleted))
	assert.Len(t, snap.Nodes, h.Len())
	assert.Len(t, snap.Vectors, h.Len())

	for id := 0; id < h.Len(); id++ {
		assert.Equal(t, h.Vector(uint32(id)), snap.Vectors[id])
		assert.Equal(t, h.Metadata(uint32(id)), snap.Metadata[id])
	}

	for i, n := range h.Nodes() {
		assert.Equal(t, n.ID, snap.Nodes[i].ID)
		assert.Equal(t, n.MaxLayer, snap.Nodes[i].MaxLayer)
		assert.Equal(t, n.Neighbors, snap.Nodes[i].Neighbors)
	}
}

func TestRoundTripPreservesQueryBehavior(t *testing.T) {
	h := buildIndex(t)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, h))
	snap, err := Read(&buf)
	require.NoError(t, err)

	loaded := restore(t, snap)

	res, err := loaded.Search([]float32{0.1, 0.1}, 3, nil)
	require.NoError(t, err)

	ids := map[uint32]bool{}
	for _, r := range res {
		ids[r.Node] = true
	}
	assert.False(t, ids[1]) // tombstoned, must stay hidden
}

func TestRoundTripWithQuantizer(t *testing.T) {
	q := quantization.New()
	h, err := hnsw.New(2, hnsw.Options{M: 4, EFConstruction: 20, EFSearch: 10, Metric: metric.L2}, q)
	require.NoError(t, err)

	for _, v := range [][]float32{{0, 0}, {10, 10}, {5, 5}} {
		_, err := h.Insert(v, nil)
		require.NoError(t, err)
	}
	q.Train(h.AllVectors())
	require.NoError(t, h.EncodeAllVectors())

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, h))

	snap, err := Read(&buf)
	require.NoError(t, err)
	require.NotNil(t, snap.Quantizer)
	assert.True(t, snap.Quantizer.IsTrained())
	assert.Equal(t, q.Mins(), snap.Quantizer.Mins())
	assert.Equal(t, q.Maxs(), snap.Quantizer.Maxs())

	loaded := restore(t, snap)
	// EncodeAll re-derives encodings on restore; never persisted directly.
	_, err = loaded.Search([]float32{5, 5}, 1, nil)
	require.NoError(t, err)
}

func TestMetadataRoundTripIsOrderIndependent(t *testing.T) {
	h, err := hnsw.New(1, hnsw.Options{M: 2, EFConstruction: 10, EFSearch: 5, Metric: metric.L2}, nil)
	require.NoError(t, err)
	_, err = h.Insert([]float32{0}, map[string]string{"b": "2", "a": "1", "c": "3"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, h))
	snap, err := Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": "3"}, snap.Metadata[0])
}

func sortedKeys(m map[uint32]struct{}) []uint32 {
	out := make([]uint32, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
