package vecdb

import (
	"github.com/lol-boi/lightweight-vector-database-showcase-applications/hnsw"
)

// Include is a bitmask selecting which QueryResult fields a query
// populates. The search always computes distances, but Distance is copied
// only when requested; Metadata and Vector are looked up only when
// requested. A field not requested is left at its zero value.
type Include uint8

const (
	IncludeID Include = 1 << iota
	IncludeDistance
	IncludeMetadata
	IncludeVector
)

// DefaultInclude matches the original implementation's default of
// returning only ids.
const DefaultInclude = IncludeID

func (inc Include) has(flag Include) bool { return inc&flag != 0 }

// Filter is a caller-supplied predicate over a node's metadata, used to
// constrain which nodes a query admits into its result set.
type Filter = hnsw.Filter

// QueryResult is a single k-nearest-neighbors hit, with fields populated
// according to the Include mask passed to Query.
type QueryResult struct {
	ID       uint32
	Distance float32
	Metadata map[string]string
	Vector   []float32
}
