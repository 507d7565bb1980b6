package vecdb

import (
	"errors"
	"os"

	"github.com/lol-boi/lightweight-vector-database-showcase-applications/hnsw"
	"github.com/lol-boi/lightweight-vector-database-showcase-applications/metric"
	"github.com/lol-boi/lightweight-vector-database-showcase-applications/persistence"
	"github.com/lol-boi/lightweight-vector-database-showcase-applications/quantization"
)

// SyncMode controls how aggressively Save pushes data to durable storage.
type SyncMode int

const (
	// SyncFull flushes the write buffer and requests an OS-level sync
	// before Save returns.
	SyncFull SyncMode = iota
	// SyncNormal flushes the write buffer but does not request a sync.
	SyncNormal
	// SyncOff is handled like SyncNormal: the write buffer is flushed and
	// no sync is requested.
	SyncOff
)

// Options configures a Database's construction and runtime behavior.
type Options struct {
	// M is the maximum number of neighbors kept per layer per node.
	M int

	// EFConstruction is the candidate-list width used while inserting.
	EFConstruction int

	// EFSearch is the default candidate-list width used while querying.
	EFSearch int

	// Metric selects the distance function.
	Metric metric.Metric

	// ReadOnly, when set, loads the database from its path at Open and
	// rejects every mutating operation with ErrReadOnlyViolation.
	ReadOnly bool

	// SQEnabled attaches an (initially untrained) scalar quantizer to the
	// index. Distances route through it once TrainQuantizer has run.
	SQEnabled bool

	// CacheSizeMB is accepted for construction-parameter compatibility
	// with the original implementation but has no effect.
	CacheSizeMB int

	// Logger receives structured logs for every operation. Defaults to
	// NoopLogger.
	Logger *Logger
}

// DefaultOptions holds the specification's default parameters.
var DefaultOptions = Options{
	M:              16,
	EFConstruction: 200,
	EFSearch:       50,
	Metric:         metric.L2,
}

// Database is the façade over an HNSW index and its optional scalar
// quantizer: it enforces read-only mode, routes mutating and query
// operations, and drives persistence.
type Database struct {
	path      string
	dimension int
	opts      Options
	quantizer *quantization.ScalarQuantizer
	index     *hnsw.HNSW
	logger    *Logger
}

// Open constructs a Database backed by path. When opts.ReadOnly is set,
// it loads immediately; a missing file is treated as an empty database,
// matching the original implementation's silent-missing-file behavior.
// Otherwise the database starts empty — Open never auto-loads a
// pre-existing file unless ReadOnly is set.
func Open(path string, dimension int, optFns ...func(*Options)) (*Database, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}
	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}

	var q *quantization.ScalarQuantizer
	if opts.SQEnabled {
		q = quantization.New()
	}

	db := &Database{
		path:      path,
		dimension: dimension,
		opts:      opts,
		quantizer: q,
		logger:    opts.Logger,
	}

	if opts.ReadOnly {
		if err := db.load(); err != nil {
			return nil, err
		}
		return db, nil
	}

	idx, err := hnsw.New(dimension, db.hnswOptions(), q)
	if err != nil {
		return nil, translateError(err)
	}
	db.index = idx
	return db, nil
}

func (db *Database) hnswOptions() hnsw.Options {
	return hnsw.Options{
		M:              db.opts.M,
		EFConstruction: db.opts.EFConstruction,
		EFSearch:       db.opts.EFSearch,
		Metric:         db.opts.Metric,
	}
}

// Dimension returns the fixed vector dimension.
func (db *Database) Dimension() int { return db.dimension }

// Options returns a copy of the database's current parameters.
func (db *Database) Options() Options { return db.opts }

// Len returns the number of stored records, including tombstoned ones.
func (db *Database) Len() int { return db.index.Len() }

// Stats returns a diagnostic snapshot of the underlying graph's shape.
func (db *Database) Stats() hnsw.Stats { return db.index.Stats() }

// Insert appends v and meta, returning the new record's id. Fails with
// ErrReadOnlyViolation in read-only mode, or ErrDimensionMismatch if
// len(v) != Dimension().
func (db *Database) Insert(v []float32, meta map[string]string) (uint32, error) {
	if db.opts.ReadOnly {
		err := &ErrReadOnlyViolation{Op: "insert"}
		db.logger.LogInsert(0, len(v), err)
		return 0, err
	}

	id, err := db.index.Insert(v, meta)
	db.logger.LogInsert(id, len(v), err)
	if err != nil {
		return 0, translateError(err)
	}
	return id, nil
}

// Delete tombstones id. Fails with ErrReadOnlyViolation in read-only mode.
func (db *Database) Delete(id uint32) error {
	if db.opts.ReadOnly {
		err := &ErrReadOnlyViolation{Op: "delete"}
		db.logger.LogDelete(id, err)
		return err
	}

	err := db.index.Delete(id)
	db.logger.LogDelete(id, err)
	return translateError(err)
}

// Update deletes id and inserts newVec/newMeta as a fresh record. The
// returned id differs from id; callers must adopt it. Fails with
// ErrReadOnlyViolation in read-only mode.
func (db *Database) Update(id uint32, newVec []float32, newMeta map[string]string) (uint32, error) {
	if db.opts.ReadOnly {
		err := &ErrReadOnlyViolation{Op: "update"}
		db.logger.LogUpdate(id, 0, err)
		return 0, err
	}

	if err := db.index.Delete(id); err != nil {
		return 0, translateError(err)
	}

	newID, err := db.index.Insert(newVec, newMeta)
	db.logger.LogUpdate(id, newID, err)
	if err != nil {
		return 0, translateError(err)
	}
	return newID, nil
}

// Query returns up to k approximately-nearest, non-tombstoned records to
// query, optionally constrained by filter. include selects which
// QueryResult fields are populated.
func (db *Database) Query(query []float32, k int, filter Filter, include Include) ([]QueryResult, error) {
	items, err := db.index.Search(query, k, filter)
	db.logger.LogQuery(k, len(items), err)
	if err != nil {
		return nil, translateError(err)
	}

	out := make([]QueryResult, len(items))
	for i, item := range items {
		var r QueryResult
		if include.has(IncludeID) {
			r.ID = item.Node
		}
		if include.has(IncludeDistance) {
			r.Distance = item.Distance
		}
		if include.has(IncludeMetadata) {
			r.Metadata = db.index.Metadata(item.Node)
		}
		if include.has(IncludeVector) {
			r.Vector = db.index.Vector(item.Node)
		}
		out[i] = r
	}
	return out, nil
}

// TrainQuantizer gathers every vector in storage, including tombstoned
// ones, trains the quantizer on it, and re-encodes every vector. A no-op
// if quantization is disabled.
func (db *Database) TrainQuantizer() error {
	if db.quantizer == nil {
		return nil
	}

	vectors := db.index.AllVectors()
	db.quantizer.Train(vectors)
	err := db.index.EncodeAllVectors()
	db.logger.LogTrainQuantizer(len(vectors), err)
	return translateError(err)
}

// RebuildIndex retrains the quantizer (if any), then constructs a fresh
// HNSW index with the same parameters and re-inserts every non-deleted
// record in ascending original-id order. This is the only operation that
// reclaims space from tombstones: ids are densely recompacted. Fails with
// ErrReadOnlyViolation in read-only mode.
func (db *Database) RebuildIndex() error {
	if db.opts.ReadOnly {
		err := &ErrReadOnlyViolation{Op: "rebuild_index"}
		db.logger.LogRebuild(db.index.Len(), 0, err)
		return err
	}

	if err := db.TrainQuantizer(); err != nil {
		db.logger.LogRebuild(db.index.Len(), 0, err)
		return err
	}

	fresh, err := hnsw.New(db.dimension, db.hnswOptions(), db.quantizer)
	if err != nil {
		return translateError(err)
	}

	before := db.index.Len()
	for _, id := range db.index.LiveIDsAscending() {
		if _, err := fresh.Insert(db.index.Vector(id), db.index.Metadata(id)); err != nil {
			err = translateError(err)
			db.logger.LogRebuild(before, 0, err)
			return err
		}
	}

	db.index = fresh
	db.logger.LogRebuild(before, fresh.Len(), nil)
	return nil
}

// Save writes the database's full state to its path. Fails with
// ErrReadOnlyViolation in read-only mode, or ErrIO on an underlying file
// failure. SyncFull additionally requests an OS-level sync, beyond the
// userspace flush the original implementation performs, for a real
// durability guarantee.
func (db *Database) Save(mode SyncMode) error {
	if db.opts.ReadOnly {
		err := &ErrReadOnlyViolation{Op: "save"}
		db.logger.LogSave(db.path, err)
		return err
	}

	f, err := os.Create(db.path)
	if err != nil {
		ioErr := &ErrIO{Op: "save", Cause: err}
		db.logger.LogSave(db.path, ioErr)
		return ioErr
	}
	defer f.Close()

	if err := persistence.Write(f, db.index); err != nil {
		ioErr := &ErrIO{Op: "save", Cause: err}
		db.logger.LogSave(db.path, ioErr)
		return ioErr
	}

	if mode == SyncFull {
		if err := f.Sync(); err != nil {
			ioErr := &ErrIO{Op: "save", Cause: err}
			db.logger.LogSave(db.path, ioErr)
			return ioErr
		}
	}

	db.logger.LogSave(db.path, nil)
	return nil
}

// load reads the database's full state from its path, matching the
// original implementation's silent-no-op-on-missing-file behavior: a
// ReadOnly Database over a file that does not yet exist opens empty
// rather than failing.
func (db *Database) load() error {
	f, err := os.Open(db.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			idx, ierr := hnsw.New(db.dimension, db.hnswOptions(), db.quantizer)
			if ierr != nil {
				return translateError(ierr)
			}
			db.index = idx
			return nil
		}
		ioErr := &ErrIO{Op: "load", Cause: err}
		db.logger.LogLoad(db.path, ioErr)
		return ioErr
	}
	defer f.Close()

	snap, err := persistence.Read(f)
	if err != nil {
		ioErr := &ErrIO{Op: "load", Cause: err}
		db.logger.LogLoad(db.path, ioErr)
		return ioErr
	}

	db.dimension = snap.Dimension
	db.opts.M = snap.Options.M
	db.opts.EFConstruction = snap.Options.EFConstruction
	db.opts.EFSearch = snap.Options.EFSearch
	db.opts.Metric = snap.Options.Metric

	q := snap.Quantizer
	if q == nil && db.opts.SQEnabled {
		q = quantization.New()
	}
	db.quantizer = q

	idx, err := hnsw.Restore(snap.Dimension, snap.Options, snap.Nodes, snap.Deleted, snap.Vectors, snap.Metadata, q)
	if err != nil {
		ioErr := &ErrIO{Op: "load", Cause: err}
		db.logger.LogLoad(db.path, ioErr)
		return ioErr
	}

	db.index = idx
	db.logger.LogLoad(db.path, nil)
	return nil
}
