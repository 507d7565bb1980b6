package hnsw

// LevelStat summarizes one graph layer's population and connectivity.
type LevelStat struct {
	Level              int
	Nodes              int
	Connections        int
	AverageConnections float64
}

// Stats summarizes the graph's shape. It is purely diagnostic: nothing in
// the index depends on it, and computing it never mutates state.
type Stats struct {
	Options    Options
	NumNodes   int
	MaxLayer   int
	EntryPoint uint32
	HasEntry   bool
	Levels     []LevelStat
}

// Stats computes a snapshot of the graph's current shape: per-level node
// counts and average out-degree, for a caller to log or format.
func (h *HNSW) Stats() Stats {
	maxLayer := 0
	for _, n := range h.nodes {
		if n.MaxLayer > maxLayer {
			maxLayer = n.MaxLayer
		}
	}

	levelNodes := make([]int, maxLayer+1)
	levelConns := make([]int, maxLayer+1)

	for _, n := range h.nodes {
		levelNodes[n.MaxLayer]++
		for layer := n.MaxLayer; layer >= 0; layer-- {
			levelConns[layer] += len(n.Neighbors[layer])
		}
	}

	levels := make([]LevelStat, maxLayer+1)
	for l := 0; l <= maxLayer; l++ {
		nodesAtOrAbove := 0
		for _, n := range h.nodes {
			if n.MaxLayer >= l {
				nodesAtOrAbove++
			}
		}
		avg := 0.0
		if nodesAtOrAbove > 0 {
			avg = float64(levelConns[l]) / float64(nodesAtOrAbove)
		}
		levels[l] = LevelStat{
			Level:              l,
			Nodes:              levelNodes[l],
			Connections:        levelConns[l],
			AverageConnections: avg,
		}
	}

	ep, hasEP := h.EntryPoint()

	return Stats{
		Options:    h.opts,
		NumNodes:   len(h.nodes),
		MaxLayer:   maxLayer,
		EntryPoint: ep,
		HasEntry:   hasEP,
		Levels:     levels,
	}
}
