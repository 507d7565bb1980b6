// Package persistence implements the single-file binary layout described
// by the design: little-endian, unpadded, with size_t fields fixed at
// 64-bit (a deliberate format break from a host-width original — see
// DESIGN.md).
package persistence

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/lol-boi/lightweight-vector-database-showcase-applications/hnsw"
	"github.com/lol-boi/lightweight-vector-database-showcase-applications/metric"
	"github.com/lol-boi/lightweight-vector-database-showcase-applications/quantization"
)

// Snapshot holds every field read from a persisted index, ready to be
// handed to hnsw.Restore.
type Snapshot struct {
	Options   hnsw.Options
	Quantizer *quantization.ScalarQuantizer
	Nodes     []*hnsw.Node
	Deleted   map[uint32]struct{}
	Dimension int
	Vectors   [][]float32
	Metadata  []map[string]string
}

// Write serializes h's full state — quantizer bounds, parameters, graph,
// vectors, metadata and tombstones — to w in the order specified by the
// design. Encoded (quantized) vectors are never persisted; hnsw.Restore
// re-derives them.
func Write(w io.Writer, h *hnsw.HNSW) error {
	bw := bufio.NewWriter(w)

	q := h.Quantizer()
	sqEnabled := q != nil
	if err := writeBool(bw, sqEnabled); err != nil {
		return err
	}
	if sqEnabled {
		mins, maxs := q.Mins(), q.Maxs()
		if err := writeUint64(bw, uint64(len(mins))); err != nil {
			return err
		}
		if err := writeFloat32Slice(bw, mins); err != nil {
			return err
		}
		if err := writeFloat32Slice(bw, maxs); err != nil {
			return err
		}
	}

	opts := h.Options()
	for _, v := range []int32{int32(opts.M), int32(opts.EFConstruction), int32(opts.EFSearch), int32(opts.Metric)} {
		if err := writeInt32(bw, v); err != nil {
			return err
		}
	}

	nodes := h.Nodes()
	if err := writeUint64(bw, uint64(len(nodes))); err != nil {
		return err
	}
	for _, n := range nodes {
		if err := writeUint32(bw, n.ID); err != nil {
			return err
		}
		if err := writeInt32(bw, int32(n.MaxLayer)); err != nil {
			return err
		}
		for layer := 0; layer <= n.MaxLayer; layer++ {
			neighbors := n.Neighbors[layer]
			if err := writeUint64(bw, uint64(len(neighbors))); err != nil {
				return err
			}
			for _, nb := range neighbors {
				if err := writeInt32(bw, int32(nb)); err != nil {
					return err
				}
			}
		}
	}

	numVectors := h.Len()
	if err := writeUint64(bw, uint64(numVectors)); err != nil {
		return err
	}
	if err := writeUint64(bw, uint64(h.Dimension())); err != nil {
		return err
	}
	for id := uint32(0); id < uint32(numVectors); id++ {
		if err := writeFloat32Slice(bw, h.Vector(id)); err != nil {
			return err
		}
		if err := writeMetadata(bw, h.Metadata(id)); err != nil {
			return err
		}
	}

	deleted := h.DeletedIDs()
	if err := writeUint64(bw, uint64(len(deleted))); err != nil {
		return err
	}
	for _, id := range deleted {
		if err := writeUint32(bw, id); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Read parses a snapshot from r, in the exact layout Write produces.
func Read(r io.Reader) (*Snapshot, error) {
	br := bufio.NewReader(r)

	sqEnabled, err := readBool(br)
	if err != nil {
		return nil, fmt.Errorf("persistence: read sq_enabled: %w", err)
	}

	var q *quantization.ScalarQuantizer
	if sqEnabled {
		dim, err := readUint64(br)
		if err != nil {
			return nil, fmt.Errorf("persistence: read sq_dim: %w", err)
		}
		mins, err := readFloat32Slice(br, int(dim))
		if err != nil {
			return nil, fmt.Errorf("persistence: read sq mins: %w", err)
		}
		maxs, err := readFloat32Slice(br, int(dim))
		if err != nil {
			return nil, fmt.Errorf("persistence: read sq maxs: %w", err)
		}
		q = quantization.Restore(mins, maxs)
	}

	m, err := readInt32(br)
	if err != nil {
		return nil, fmt.Errorf("persistence: read M: %w", err)
	}
	efc, err := readInt32(br)
	if err != nil {
		return nil, fmt.Errorf("persistence: read efConstruction: %w", err)
	}
	efs, err := readInt32(br)
	if err != nil {
		return nil, fmt.Errorf("persistence: read efSearch: %w", err)
	}
	metricOrdinal, err := readInt32(br)
	if err != nil {
		return nil, fmt.Errorf("persistence: read metric: %w", err)
	}

	opts := hnsw.Options{
		M:              int(m),
		EFConstruction: int(efc),
		EFSearch:       int(efs),
		Metric:         metric.Metric(metricOrdinal),
	}

	numNodes, err := readUint64(br)
	if err != nil {
		return nil, fmt.Errorf("persistence: read num_nodes: %w", err)
	}

	nodes := make([]*hnsw.Node, numNodes)
	for i := range nodes {
		id, err := readUint32(br)
		if err != nil {
			return nil, fmt.Errorf("persistence: read node id: %w", err)
		}
		maxLayer, err := readInt32(br)
		if err != nil {
			return nil, fmt.Errorf("persistence: read node max_layer: %w", err)
		}

		neighbors := make([][]uint32, maxLayer+1)
		for layer := 0; layer <= int(maxLayer); layer++ {
			count, err := readUint64(br)
			if err != nil {
				return nil, fmt.Errorf("persistence: read num_neighbors: %w", err)
			}
			// An empty layer stays nil, as hnsw.Insert leaves it.
			var layerNeighbors []uint32
			if count > 0 {
				layerNeighbors = make([]uint32, count)
			}
			for j := range layerNeighbors {
				nb, err := readInt32(br)
				if err != nil {
					return nil, fmt.Errorf("persistence: read neighbor id: %w", err)
				}
				layerNeighbors[j] = uint32(nb)
			}
			neighbors[layer] = layerNeighbors
		}

		nodes[i] = &hnsw.Node{ID: id, MaxLayer: int(maxLayer), Neighbors: neighbors}
	}

	numVectors, err := readUint64(br)
	if err != nil {
		return nil, fmt.Errorf("persistence: read num_vectors: %w", err)
	}
	vectorDim, err := readUint64(br)
	if err != nil {
		return nil, fmt.Errorf("persistence: read vector_dim: %w", err)
	}

	vectors := make([][]float32, numVectors)
	metadatas := make([]map[string]string, numVectors)
	for i := range vectors {
		vec, err := readFloat32Slice(br, int(vectorDim))
		if err != nil {
			return nil, fmt.Errorf("persistence: read vector: %w", err)
		}
		meta, err := readMetadata(br)
		if err != nil {
			return nil, fmt.Errorf("persistence: read metadata: %w", err)
		}
		vectors[i] = vec
		metadatas[i] = meta
	}

	numDeleted, err := readUint64(br)
	if err != nil {
		return nil, fmt.Errorf("persistence: read num_deleted: %w", err)
	}
	deleted := make(map[uint32]struct{}, numDeleted)
	for i := uint64(0); i < numDeleted; i++ {
		id, err := readUint32(br)
		if err != nil {
			return nil, fmt.Errorf("persistence: read deleted id: %w", err)
		}
		deleted[id] = struct{}{}
	}

	return &Snapshot{
		Options:   opts,
		Quantizer: q,
		Nodes:     nodes,
		Deleted:   deleted,
		Dimension: int(vectorDim),
		Vectors:   vectors,
		Metadata:  metadatas,
	}, nil
}

func writeMetadata(w io.Writer, meta map[string]string) error {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys) // ordering is incidental semantically but stable on disk

	if err := writeUint64(w, uint64(len(keys))); err != nil {
		return err
	}
	for _, k := range keys {
		if err := writeString(w, k); err != nil {
			return err
		}
		if err := writeString(w, meta[k]); err != nil {
			return err
		}
	}
	return nil
}

func readMetadata(r io.Reader) (map[string]string, error) {
	n, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	meta := make(map[string]string, n)
	for i := uint64(0); i < n; i++ {
		k, err := readString(r)
		if err != nil {
			return nil, err
		}
		v, err := readString(r)
		if err != nil {
			return nil, err
		}
		meta[k] = v
	}
	return meta, nil
}

func writeBool(w io.Writer, b bool) error {
	var v byte
	if b {
		v = 1
	}
	_, err := w.Write([]byte{v})
	return err
}

func readBool(r io.Reader) (bool, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func writeInt32(w io.Writer, v int32) error {
	return writeUint32(w, uint32(v))
}

func readInt32(r io.Reader) (int32, error) {
	v, err := readUint32(r)
	return int32(v), err
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func writeFloat32Slice(w io.Writer, v []float32) error {
	for _, f := range v {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}
	return nil
}

func readFloat32Slice(r io.Reader, n int) ([]float32, error) {
	out := make([]float32, n)
	var b [4]byte
	for i := range out {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[:]))
	}
	return out, nil
}

func writeString(w io.Writer, s string) error {
	if err := writeUint64(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readUint64(r)
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
