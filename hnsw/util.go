package hnsw

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sort"
	"time"

	"github.com/bits-and-blooms/bitset"
)

// rng is the per-index random level generator. Go's math/rand is not a
// Mersenne Twister, but it is the idiomatic source for this kind of
// non-cryptographic level sampling; reproducibility across instances is
// not required by the design.
type rng struct {
	*rand.Rand
}

func newRNG() *rng {
	var seed int64
	var b [8]byte
	if _, err := crand.Read(b[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(b[:]))
	} else {
		seed = time.Now().UnixNano()
	}
	return &rng{rand.New(rand.NewSource(seed))}
}

// visitedSet tracks node ids seen during a single layer search.
type visitedSet struct {
	bits bitset.BitSet
}

func newVisitedSet() *visitedSet {
	return &visitedSet{}
}

func (v *visitedSet) set(id uint32) {
	v.bits.Set(uint(id))
}

func (v *visitedSet) test(id uint32) bool {
	return v.bits.Test(uint(id))
}

func sortUint32s(ids []uint32) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
