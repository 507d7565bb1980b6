package vecdb

import (
	"errors"
	"fmt"

	"github.com/lol-boi/lightweight-vector-database-showcase-applications/hnsw"
	"github.com/lol-boi/lightweight-vector-database-showcase-applications/metric"
	"github.com/lol-boi/lightweight-vector-database-showcase-applications/quantization"
	"github.com/lol-boi/lightweight-vector-database-showcase-applications/vectorstore"
)

// ErrDimensionMismatch is returned when a vector argument's length differs
// from the database's configured dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vecdb: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrReadOnlyViolation is returned when a mutating operation is attempted
// on a database opened in read-only mode.
type ErrReadOnlyViolation struct {
	Op string
}

func (e *ErrReadOnlyViolation) Error() string {
	return fmt.Sprintf("vecdb: %s: read-only violation", e.Op)
}

// ErrQuantizerNotTrained is returned when an operation that requires a
// trained scalar quantizer is attempted before training.
type ErrQuantizerNotTrained struct{}

func (e *ErrQuantizerNotTrained) Error() string {
	return "vecdb: quantizer not trained"
}

// ErrUnknownMetric is returned when a distance metric ordinal does not
// correspond to any known metric, for example when Open is given an
// Options.Metric outside the metric.Metric constants.
type ErrUnknownMetric struct {
	Metric metric.Metric
}

func (e *ErrUnknownMetric) Error() string {
	return fmt.Sprintf("vecdb: unknown metric: %d", e.Metric)
}

// ErrIO wraps an underlying I/O failure encountered during save or load.
//
// The original error can be accessed via errors.Unwrap.
type ErrIO struct {
	Op    string
	Cause error
}

func (e *ErrIO) Error() string {
	return fmt.Sprintf("vecdb: %s: %v", e.Op, e.Cause)
}

func (e *ErrIO) Unwrap() error { return e.Cause }

// translateError funnels sub-package error types into the vecdb error
// kinds named in the design, so callers only need to match against this
// package's errors.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var hdm *hnsw.ErrDimensionMismatch
	if errors.As(err, &hdm) {
		return &ErrDimensionMismatch{Expected: hdm.Expected, Actual: hdm.Actual}
	}

	var vdm *vectorstore.ErrDimensionMismatch
	if errors.As(err, &vdm) {
		return &ErrDimensionMismatch{Expected: vdm.Expected, Actual: vdm.Actual}
	}

	if errors.Is(err, quantization.ErrNotTrained) {
		return &ErrQuantizerNotTrained{}
	}

	var um *metric.ErrUnknownMetric
	if errors.As(err, &um) {
		return &ErrUnknownMetric{Metric: um.Metric}
	}

	return err
}
