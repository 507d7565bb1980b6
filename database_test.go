package vecdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lol-boi/lightweight-vector-database-showcase-applications/metric"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "index.db")
}

func resultIDs(t *testing.T, res []QueryResult) map[uint32]bool {
	t.Helper()
	ids := make(map[uint32]bool, len(res))
	for _, r := range res {
		ids[r.ID] = true
	}
	return ids
}

// S1 - L2 nearest neighbor.
func TestScenarioL2NearestNeighbor(t *testing.T) {
	db, err := Open(tempDBPath(t), 2)
	require.NoError(t, err)

	_, err = db.Insert([]float32{0, 0}, nil)
	require.NoError(t, err)
	_, err = db.Insert([]float32{1, 0}, nil)
	require.NoError(t, err)
	_, err = db.Insert([]float32{0, 1}, nil)
	require.NoError(t, err)

	res, err := db.Query([]float32{0.1, 0.1}, 1, nil, DefaultInclude)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, uint32(0), res[0].ID)
}

// S2 - Cosine direction match.
func TestScenarioCosineDirectionMatch(t *testing.T) {
	db, err := Open(tempDBPath(t), 2, func(o *Options) { o.Metric = metric.Cosine })
	require.NoError(t, err)

	for _, v := range [][]float32{{1, 0}, {0, 1}, {1, 1}, {-1, 0}} {
		_, err := db.Insert(v, nil)
		require.NoError(t, err)
	}

	res, err := db.Query([]float32{1, 1}, 1, nil, DefaultInclude)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, uint32(2), res[0].ID)

	res, err = db.Query([]float32{1, 0.1}, 1, nil, DefaultInclude)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, uint32(0), res[0].ID)
}

// S3 - Inner product maximization.
func TestScenarioInnerProductMaximization(t *testing.T) {
	db, err := Open(tempDBPath(t), 2, func(o *Options) { o.Metric = metric.IP })
	require.NoError(t, err)

	for _, v := range [][]float32{{1, 1}, {1, 0}, {-1, -1}} {
		_, err := db.Insert(v, nil)
		require.NoError(t, err)
	}

	res, err := db.Query([]float32{1, 1}, 1, nil, DefaultInclude)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, uint32(0), res[0].ID)
}

// S4 - Metadata filter.
func TestScenarioMetadataFilter(t *testing.T) {
	db, err := Open(tempDBPath(t), 2)
	require.NoError(t, err)

	insert := func(v []float32, typ string) {
		_, err := db.Insert(v, map[string]string{"type": typ})
		require.NoError(t, err)
	}
	insert([]float32{0, 0}, "a")
	insert([]float32{0.1, 0.1}, "b")
	insert([]float32{0.2, 0.2}, "a")
	insert([]float32{0.3, 0.3}, "c")

	filter := func(meta map[string]string) bool { return meta["type"] == "a" }
	res, err := db.Query([]float32{0, 0}, 2, filter, DefaultInclude)
	require.NoError(t, err)

	ids := resultIDs(t, res)
	assert.Equal(t, map[uint32]bool{0: true, 2: true}, ids)
}

// S5 - soft delete + persistence.
func TestScenarioSoftDeleteAndPersistence(t *testing.T) {
	path := tempDBPath(t)

	db, err := Open(path, 2)
	require.NoError(t, err)

	for _, v := range [][]float32{{1, 1}, {2, 2}, {3, 3}} {
		_, err := db.Insert(v, nil)
		require.NoError(t, err)
	}
	require.NoError(t, db.Delete(1))
	require.NoError(t, db.Save(SyncFull))

	loaded, err := Open(path, 2, func(o *Options) { o.ReadOnly = true })
	require.NoError(t, err)

	res, err := loaded.Query([]float32{1.1, 1.1}, 3, nil, DefaultInclude)
	require.NoError(t, err)

	assert.Equal(t, map[uint32]bool{0: true, 2: true}, resultIDs(t, res))
}

// S6 - update yields a new id.
func TestScenarioUpdateYieldsNewID(t *testing.T) {
	db, err := Open(tempDBPath(t), 2)
	require.NoError(t, err)

	_, err = db.Insert([]float32{1, 1}, nil)
	require.NoError(t, err)
	_, err = db.Insert([]float32{2, 2}, nil)
	require.NoError(t, err)

	newID, err := db.Update(0, []float32{1.5, 1.5}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), newID)

	res, err := db.Query([]float32{1, 1}, 3, nil, DefaultInclude)
	require.NoError(t, err)

	ids := resultIDs(t, res)
	assert.True(t, ids[1])
	assert.True(t, ids[2])
	assert.False(t, ids[0])
}

// S7 - dimension enforcement.
func TestScenarioDimensionEnforcement(t *testing.T) {
	db, err := Open(tempDBPath(t), 2)
	require.NoError(t, err)

	_, err = db.Insert([]float32{1, 2, 3}, nil)
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 3, dm.Actual)
}

// S8 - rebuild compacts ids.
func TestScenarioRebuildCompactsIDs(t *testing.T) {
	db, err := Open(tempDBPath(t), 2)
	require.NoError(t, err)

	for _, v := range [][]float32{{1, 1}, {2, 2}, {3, 3}} {
		_, err := db.Insert(v, nil)
		require.NoError(t, err)
	}
	require.NoError(t, db.Delete(1))
	require.NoError(t, db.RebuildIndex())

	res, err := db.Query([]float32{1.1, 1.1}, 3, nil, DefaultInclude)
	require.NoError(t, err)

	assert.Equal(t, map[uint32]bool{0: true, 1: true}, resultIDs(t, res))
	assert.Equal(t, 2, db.Len())
}

func TestReadOnlyRejectsMutators(t *testing.T) {
	path := tempDBPath(t)

	seed, err := Open(path, 2)
	require.NoError(t, err)
	_, err = seed.Insert([]float32{1, 1}, nil)
	require.NoError(t, err)
	require.NoError(t, seed.Save(SyncFull))

	db, err := Open(path, 2, func(o *Options) { o.ReadOnly = true })
	require.NoError(t, err)

	_, err = db.Insert([]float32{2, 2}, nil)
	var rov *ErrReadOnlyViolation
	require.ErrorAs(t, err, &rov)

	err = db.Delete(0)
	require.ErrorAs(t, err, &rov)

	_, err = db.Update(0, []float32{3, 3}, nil)
	require.ErrorAs(t, err, &rov)

	err = db.RebuildIndex()
	require.ErrorAs(t, err, &rov)

	err = db.Save(SyncFull)
	require.ErrorAs(t, err, &rov)
}

func TestOpenReadOnlyMissingFileStartsEmpty(t *testing.T) {
	db, err := Open(tempDBPath(t), 3, func(o *Options) { o.ReadOnly = true })
	require.NoError(t, err)
	assert.Equal(t, 0, db.Len())
}

func TestTrainQuantizerNoopWhenDisabled(t *testing.T) {
	db, err := Open(tempDBPath(t), 2)
	require.NoError(t, err)
	require.NoError(t, db.TrainQuantizer())
}

func TestTrainQuantizerIncludesTombstonedVectors(t *testing.T) {
	db, err := Open(tempDBPath(t), 2, func(o *Options) { o.SQEnabled = true })
	require.NoError(t, err)

	_, err = db.Insert([]float32{0, 0}, nil)
	require.NoError(t, err)
	_, err = db.Insert([]float32{100, 100}, nil)
	require.NoError(t, err)
	require.NoError(t, db.Delete(1))

	require.NoError(t, db.TrainQuantizer())
	assert.Equal(t, []float32{100, 100}, db.quantizer.Maxs())

	res, err := db.Query([]float32{1, 1}, 1, nil, DefaultInclude)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, uint32(0), res[0].ID)
}

func TestQueryIncludeMaskPopulatesRequestedFields(t *testing.T) {
	db, err := Open(tempDBPath(t), 2)
	require.NoError(t, err)

	_, err = db.Insert([]float32{1, 2}, map[string]string{"k": "v"})
	require.NoError(t, err)

	res, err := db.Query([]float32{1, 2}, 1, nil, IncludeID|IncludeDistance|IncludeMetadata|IncludeVector)
	require.NoError(t, err)
	require.Len(t, res, 1)

	assert.Equal(t, uint32(0), res[0].ID)
	assert.Equal(t, float32(0), res[0].Distance)
	assert.Equal(t, "v", res[0].Metadata["k"])
	assert.Equal(t, []float32{1, 2}, res[0].Vector)

	bare, err := db.Query([]float32{1, 2}, 1, nil, DefaultInclude)
	require.NoError(t, err)
	require.Len(t, bare, 1)
	assert.Nil(t, bare[0].Metadata)
	assert.Nil(t, bare[0].Vector)
}

func TestInsertAssignsDenseIDsProperty(t *testing.T) {
	db, err := Open(tempDBPath(t), 4)
	require.NoError(t, err)

	vectors := randomVectors(1, 50, 4)
	for i, v := range vectors {
		id, err := db.Insert(v, nil)
		require.NoError(t, err)
		assert.Equal(t, uint32(i), id)
		assert.Equal(t, i+1, db.Len())
	}
}
