// Package queue provides the min/max priority queue used by HNSW's
// layered search: a min-heap exploration frontier and a bounded max-heap
// of the best candidates seen so far.
package queue

import "container/heap"

// Compile time check to ensure PriorityQueue satisfies the heap interface.
var _ heap.Interface = (*PriorityQueue)(nil)

// Item is an entry in the priority queue: a node id ordered by distance.
type Item struct {
	Node     uint32
	Distance float32
	index    int // maintained by container/heap
}

// PriorityQueue implements heap.Interface over Items.
//
// Max reports whether the queue pops the largest distance first (used for
// the bounded "results" set, so the worst candidate is evictable in O(log n))
// or the smallest (used for the "candidates" exploration frontier).
type PriorityQueue struct {
	Max   bool
	Items []*Item
}

// NewMin returns an empty min-heap (smallest distance on top).
func NewMin() *PriorityQueue {
	pq := &PriorityQueue{Max: false}
	heap.Init(pq)
	return pq
}

// NewMax returns an empty max-heap (largest distance on top).
func NewMax() *PriorityQueue {
	pq := &PriorityQueue{Max: true}
	heap.Init(pq)
	return pq
}

// Len returns the number of elements in the priority queue.
func (pq *PriorityQueue) Len() int { return len(pq.Items) }

// Less reports whether the element with index i should sort before j.
func (pq *PriorityQueue) Less(i, j int) bool {
	if pq.Max {
		return pq.Items[i].Distance > pq.Items[j].Distance
	}
	return pq.Items[i].Distance < pq.Items[j].Distance
}

// Swap swaps the elements with indexes i and j.
func (pq *PriorityQueue) Swap(i, j int) {
	pq.Items[i], pq.Items[j] = pq.Items[j], pq.Items[i]
	pq.Items[i].index, pq.Items[j].index = i, j
}

// Push adds x (must be *Item) to the priority queue. Use heap.Push, not
// this method directly, so the heap invariant is maintained.
func (pq *PriorityQueue) Push(x any) {
	item, _ := x.(*Item)
	item.index = len(pq.Items)
	pq.Items = append(pq.Items, item)
}

// Pop removes and returns the top element. Use heap.Pop, not this method
// directly.
func (pq *PriorityQueue) Pop() any {
	old := pq.Items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	pq.Items = old[:n-1]
	return item
}

// Top returns the top element without removing it. Panics if empty.
func (pq *PriorityQueue) Top() *Item {
	return pq.Items[0]
}

// Empty reports whether the queue has no elements.
func (pq *PriorityQueue) Empty() bool {
	return len(pq.Items) == 0
}

// PushItem pushes a new (node, distance) pair, maintaining the heap invariant.
func (pq *PriorityQueue) PushItem(node uint32, distance float32) {
	heap.Push(pq, &Item{Node: node, Distance: distance})
}

// PopItem pops and returns the top element, maintaining the heap invariant.
func (pq *PriorityQueue) PopItem() *Item {
	return heap.Pop(pq).(*Item)
}

// ToSortedIDs drains the queue in ascending-distance order, returning node
// ids. The queue is empty afterward. Works regardless of Max/min ordering.
func (pq *PriorityQueue) ToSortedIDs() []uint32 {
	n := pq.Len()
	ids := make([]uint32, n)
	if pq.Max {
		// Max-heap pops largest first; fill back-to-front for ascending order.
		for i := n - 1; i >= 0; i-- {
			ids[i] = pq.PopItem().Node
		}
	} else {
		for i := 0; i < n; i++ {
			ids[i] = pq.PopItem().Node
		}
	}
	return ids
}
