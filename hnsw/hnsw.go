// Package hnsw implements a Hierarchical Navigable Small World proximity
// graph over a vectorstore.Store, with an optional scalar-quantization
// distance path.
package hnsw

import (
	"fmt"
	"math"

	"github.com/lol-boi/lightweight-vector-database-showcase-applications/metric"
	"github.com/lol-boi/lightweight-vector-database-showcase-applications/quantization"
	"github.com/lol-boi/lightweight-vector-database-showcase-applications/queue"
	"github.com/lol-boi/lightweight-vector-database-showcase-applications/vectorstore"
)

// ErrDimensionMismatch is returned when an inserted vector's length does
// not equal the index's configured dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("hnsw: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Filter is a caller-supplied predicate over a node's metadata, used to
// constrain which nodes a search admits into its result set. Filtered-out
// nodes are still traversed for reachability.
type Filter func(metadata map[string]string) bool

// Options configures an HNSW index's construction and search behavior.
type Options struct {
	// M is the maximum number of neighbors kept per layer per node.
	M int

	// EFConstruction is the candidate-list width used while inserting.
	EFConstruction int

	// EFSearch is the default candidate-list width used while querying.
	EFSearch int

	// Metric selects the distance function. Ignored for distance
	// computations that go through an attached, trained quantizer, which
	// always uses squared L2.
	Metric metric.Metric
}

// DefaultOptions holds the specification's default parameters.
var DefaultOptions = Options{
	M:              16,
	EFConstruction: 200,
	EFSearch:       50,
	Metric:         metric.L2,
}

// Node is the per-vector graph record. Neighbors[l] holds the node's
// adjacency at layer l, for l in [0, MaxLayer].
type Node struct {
	ID        uint32
	MaxLayer  int
	Neighbors [][]uint32
}

// HNSW is the hierarchical proximity-graph index. It owns a vector store,
// the per-layer graph, the tombstone set, and the entry point.
type HNSW struct {
	dimension  int
	opts       Options
	metricFunc metric.Func
	quantizer  *quantization.ScalarQuantizer

	store      *vectorstore.Store
	nodes      []*Node
	deleted    map[uint32]struct{}
	entryPoint *uint32

	mL  float64
	rng *rng
}

// New creates an empty HNSW index. q may be nil to disable quantization;
// if non-nil and already trained, distances route through it regardless
// of opts.Metric.
func New(dimension int, opts Options, q *quantization.ScalarQuantizer) (*HNSW, error) {
	fn, err := metric.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	return &HNSW{
		dimension:  dimension,
		opts:       opts,
		metricFunc: fn,
		quantizer:  q,
		store:      vectorstore.New(dimension),
		deleted:    make(map[uint32]struct{}),
		mL:         mLFor(opts.M),
		rng:        newRNG(),
	}, nil
}

// Restore reconstructs an HNSW index from persisted components, as
// produced by the persistence package. The entry point is not itself
// persisted; following the original implementation, it is set to the
// last node's id (or none, if there are no nodes) rather than recomputed
// from max-layer/liveness.
func Restore(dimension int, opts Options, nodes []*Node, deleted map[uint32]struct{}, vectors [][]float32, metadata []map[string]string, q *quantization.ScalarQuantizer) (*HNSW, error) {
	fn, err := metric.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	if deleted == nil {
		deleted = make(map[uint32]struct{})
	}

	store := vectorstore.Restore(dimension, vectors, metadata)
	if q != nil && q.IsTrained() {
		if err := store.EncodeAll(q); err != nil {
			return nil, err
		}
	}

	var entryPoint *uint32
	if len(nodes) > 0 {
		id := nodes[len(nodes)-1].ID
		entryPoint = &id
	}

	return &HNSW{
		dimension:  dimension,
		opts:       opts,
		metricFunc: fn,
		quantizer:  q,
		store:      store,
		nodes:      nodes,
		deleted:    deleted,
		entryPoint: entryPoint,
		mL:         mLFor(opts.M),
		rng:        newRNG(),
	}, nil
}

func mLFor(m int) float64 {
	if m <= 1 {
		// 1/log(1) is a division by zero; the construction parameter is
		// nonsensical below 2 neighbors, so treat it as 2 for level spread.
		m = 2
	}
	return 1 / math.Log(float64(m))
}

// Len returns the number of nodes in the index, including tombstoned ones.
func (h *HNSW) Len() int { return len(h.nodes) }

// Dimension returns the fixed vector dimension.
func (h *HNSW) Dimension() int { return h.dimension }

// Options returns the index's construction/search parameters.
func (h *HNSW) Options() Options { return h.opts }

// Quantizer returns the attached scalar quantizer, or nil if disabled.
func (h *HNSW) Quantizer() *quantization.ScalarQuantizer { return h.quantizer }

// Nodes returns the graph nodes in id order. Callers must not mutate the
// returned slice or its elements.
func (h *HNSW) Nodes() []*Node { return h.nodes }

// EntryPoint returns the current entry point id and whether one exists.
func (h *HNSW) EntryPoint() (uint32, bool) {
	if h.entryPoint == nil {
		return 0, false
	}
	return *h.entryPoint, true
}

// DeletedIDs returns the tombstoned node ids in ascending order.
func (h *HNSW) DeletedIDs() []uint32 {
	ids := make([]uint32, 0, len(h.deleted))
	for id := range h.deleted {
		ids = append(ids, id)
	}
	sortUint32s(ids)
	return ids
}

// IsDeleted reports whether id is tombstoned.
func (h *HNSW) IsDeleted(id uint32) bool {
	_, ok := h.deleted[id]
	return ok
}

// Vector returns the stored vector for id.
func (h *HNSW) Vector(id uint32) []float32 { return h.store.Vector(id) }

// Metadata returns the stored metadata for id.
func (h *HNSW) Metadata(id uint32) map[string]string { return h.store.Metadata(id) }

// AllVectors returns every stored vector, live or tombstoned, in id order.
// Used by quantizer training, which the design intentionally runs over
// the whole store including tombstones.
func (h *HNSW) AllVectors() [][]float32 { return h.store.Vectors() }

// EncodeAllVectors re-encodes every stored vector with the attached
// quantizer. A no-op if quantization is disabled.
func (h *HNSW) EncodeAllVectors() error {
	if h.quantizer == nil {
		return nil
	}
	return h.store.EncodeAll(h.quantizer)
}

// LiveIDsAscending returns the ids of all non-tombstoned nodes in
// ascending order, for rebuild's re-insertion pass.
func (h *HNSW) LiveIDsAscending() []uint32 {
	ids := make([]uint32, 0, len(h.nodes))
	for _, n := range h.nodes {
		if !h.IsDeleted(n.ID) {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// distance computes the distance from a float query to a stored node,
// routing through the attached quantizer when trained.
func (h *HNSW) distance(query []float32, id uint32) (float32, error) {
	if h.quantizer != nil && h.quantizer.IsTrained() {
		return h.quantizer.Distance(query, h.store.Encoded(id))
	}
	return h.metricFunc(query, h.store.Vector(id)), nil
}

func (h *HNSW) randomLevel() int {
	u := 1 - h.rng.Float64() // map [0,1) to (0,1]
	return int(math.Floor(-math.Log(u) * h.mL))
}

// Insert appends v and meta to the index, draws a random level, and wires
// the new node into the graph per the construction algorithm. It returns
// the new node's id, equal to the index's size prior to insertion.
func (h *HNSW) Insert(v []float32, meta map[string]string) (uint32, error) {
	if len(v) != h.dimension {
		return 0, &ErrDimensionMismatch{Expected: h.dimension, Actual: len(v)}
	}

	id, err := h.store.Append(v, meta)
	if err != nil {
		return 0, err
	}

	if h.quantizer != nil && h.quantizer.IsTrained() {
		enc, err := h.quantizer.Encode(v)
		if err != nil {
			return 0, err
		}
		h.store.SetEncoded(id, enc)
	}

	newLayer := h.randomLevel()
	node := &Node{ID: id, MaxLayer: newLayer, Neighbors: make([][]uint32, newLayer+1)}
	h.nodes = append(h.nodes, node)

	if h.entryPoint == nil {
		h.entryPoint = &id
		return id, nil
	}

	ep := *h.entryPoint
	top := h.nodes[ep].MaxLayer

	for layer := top; layer > newLayer; layer-- {
		found, err := h.searchLayer(v, ep, 1, layer, nil)
		if err != nil {
			return 0, err
		}
		if found.Len() > 0 {
			ep = found.Top().Node
		}
	}

	for layer := min(newLayer, top); layer >= 0; layer-- {
		found, err := h.searchLayer(v, ep, h.opts.EFConstruction, layer, nil)
		if err != nil {
			return 0, err
		}

		ids := found.ToSortedIDs()
		if len(ids) == 0 {
			continue
		}

		m := min(h.opts.M, len(ids))
		node.Neighbors[layer] = append([]uint32{}, ids[:m]...)

		for _, nb := range ids[:m] {
			if err := h.addNeighbor(nb, id, layer); err != nil {
				return 0, err
			}
		}

		ep = ids[0]
	}

	if newLayer > top {
		h.entryPoint = &id
	}

	return id, nil
}

// addNeighbor symmetrically links newID into nodeID's adjacency at layer,
// pruning the single farthest-from-nodeID neighbor if that exceeds M.
func (h *HNSW) addNeighbor(nodeID, newID uint32, layer int) error {
	node := h.nodes[nodeID]
	node.Neighbors[layer] = append(node.Neighbors[layer], newID)

	if len(node.Neighbors[layer]) <= h.opts.M {
		return nil
	}

	nodeVec := h.store.Vector(nodeID)
	worstIdx := -1
	var worstDist float32
	for i, nb := range node.Neighbors[layer] {
		d, err := h.distance(nodeVec, nb)
		if err != nil {
			return err
		}
		if worstIdx == -1 || d > worstDist {
			worstDist = d
			worstIdx = i
		}
	}

	node.Neighbors[layer] = append(node.Neighbors[layer][:worstIdx], node.Neighbors[layer][worstIdx+1:]...)
	return nil
}

// Delete tombstones id. If id was the entry point, a replacement is
// chosen as the greatest-max-layer non-deleted node, or none if no live
// node remains. The rescan only runs when the current entry point is the
// one being deleted: a later-inserted node with a higher max layer never
// displaces it except through insertion.
func (h *HNSW) Delete(id uint32) error {
	h.deleted[id] = struct{}{}

	if h.entryPoint == nil || *h.entryPoint != id {
		return nil
	}

	var best *uint32
	bestLayer := -1
	for _, n := range h.nodes {
		if h.IsDeleted(n.ID) {
			continue
		}
		if n.MaxLayer > bestLayer {
			bestLayer = n.MaxLayer
			nid := n.ID
			best = &nid
		}
	}
	h.entryPoint = best
	return nil
}

// Search returns up to k approximately-nearest, non-tombstoned nodes to
// query, optionally constrained by filter.
func (h *HNSW) Search(query []float32, k int, filter Filter) ([]queue.Item, error) {
	if len(h.nodes) == 0 || h.entryPoint == nil {
		return nil, nil
	}

	ep := *h.entryPoint
	top := h.nodes[ep].MaxLayer

	for layer := top; layer >= 1; layer-- {
		found, err := h.searchLayer(query, ep, 1, layer, filter)
		if err != nil {
			return nil, err
		}
		if found.Len() > 0 {
			ep = found.Top().Node
		}
	}

	width := max(k, h.opts.EFSearch)
	found, err := h.searchLayer(query, ep, width, 0, filter)
	if err != nil {
		return nil, err
	}

	ids := found.ToSortedIDs()
	out := make([]queue.Item, 0, k)
	for _, id := range ids {
		if h.IsDeleted(id) {
			continue
		}
		d, err := h.distance(query, id)
		if err != nil {
			return nil, err
		}
		out = append(out, queue.Item{Node: id, Distance: d})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// searchLayer runs the candidate-bounded layer search described by the
// design: a min-heap exploration frontier and a bounded max-heap of the
// best ef candidates seen so far.
func (h *HNSW) searchLayer(query []float32, entry uint32, ef int, layer int, filter Filter) (*queue.PriorityQueue, error) {
	visited := newVisitedSet()
	candidates := queue.NewMin()
	results := queue.NewMax()

	d0, err := h.distance(query, entry)
	if err != nil {
		return nil, err
	}
	visited.set(entry)

	if !h.IsDeleted(entry) {
		candidates.PushItem(entry, d0)
		if filter == nil || filter(h.store.Metadata(entry)) {
			results.PushItem(entry, d0)
		}
	}

	for candidates.Len() > 0 {
		c := candidates.PopItem()
		if results.Len() == ef && c.Distance > results.Top().Distance {
			break
		}

		node := h.nodes[c.Node]
		if layer > node.MaxLayer {
			continue
		}

		for _, n := range node.Neighbors[layer] {
			if visited.test(n) {
				continue
			}
			visited.set(n)

			if h.IsDeleted(n) {
				continue
			}

			d, err := h.distance(query, n)
			if err != nil {
				return nil, err
			}

			if results.Len() < ef || d < results.Top().Distance {
				candidates.PushItem(n, d)
				if filter == nil || filter(h.store.Metadata(n)) {
					results.PushItem(n, d)
					for results.Len() > ef {
						results.PopItem()
					}
				}
			}
		}
	}

	return results, nil
}
