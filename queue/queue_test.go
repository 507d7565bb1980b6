package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var sample = []float32{0.4, 9, 0.001, 0.0534, 0.234, 2.03, 2.042, 2.532, 1.0009, 0.329}

func TestMaxHeapOrdering(t *testing.T) {
	pq := NewMax()
	for i, d := range sample {
		pq.PushItem(uint32(i), d)
	}

	assert.Equal(t, len(sample), pq.Len())
	assert.Equal(t, float32(9), pq.Top().Distance)

	top := pq.PopItem()
	assert.Equal(t, uint32(1), top.Node)
	assert.Equal(t, float32(2.532), pq.Top().Distance)
}

func TestMinHeapOrdering(t *testing.T) {
	pq := NewMin()
	for i, d := range sample {
		pq.PushItem(uint32(i), d)
	}

	assert.Equal(t, float32(0.001), pq.Top().Distance)

	top := pq.PopItem()
	assert.Equal(t, uint32(2), top.Node)
	assert.Equal(t, float32(0.0534), pq.Top().Distance)
}

func TestToSortedIDsAscending(t *testing.T) {
	pq := NewMax()
	for i, d := range sample {
		pq.PushItem(uint32(i), d)
	}

	ids := pq.ToSortedIDs()
	assert.Equal(t, len(sample), len(ids))
	assert.Equal(t, 0, pq.Len())

	// The ascending order of distances should put id 2 (0.001) first.
	assert.Equal(t, uint32(2), ids[0])
	assert.Equal(t, uint32(1), ids[len(ids)-1])
}

func TestEmpty(t *testing.T) {
	pq := NewMin()
	assert.True(t, pq.Empty())
	pq.PushItem(0, 1.0)
	assert.False(t, pq.Empty())
}
