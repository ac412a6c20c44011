package sim

import "container/heap"

// loadEntry is one (key, weight) pair tracked by a LoadHeap, along with its
// current slot in the backing slice so UpdateKey and PopMax can locate it
// for heap.Fix/heap.Remove.
type loadEntry struct {
	key    string
	weight float64
	index  int
}

type loadEntries []*loadEntry

func (h loadEntries) Len() int            { return len(h) }
func (h loadEntries) Less(i, j int) bool  { return h[i].weight < h[j].weight }
func (h loadEntries) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *loadEntries) Push(x interface{}) {
	e := x.(*loadEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *loadEntries) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// LoadHeap is a key-by-load ordered structure supporting insert, pop_min,
// pop_max, and update_key — the operations LoadBalanceConfig.Rebalance
// needs to greedily pack the hottest key onto the coolest node. Backed by
// a container/heap min-heap on weight; PopMax scans the (small) backing
// slice for the current maximum rather than maintaining a second heap,
// since rebalance runs only once per report interval.
type LoadHeap struct {
	entries loadEntries
	byKey   map[string]*loadEntry
}

// NewLoadHeap returns an empty LoadHeap.
func NewLoadHeap() *LoadHeap {
	return &LoadHeap{byKey: make(map[string]*loadEntry)}
}

// Len reports the number of keys currently tracked.
func (h *LoadHeap) Len() int { return len(h.entries) }

// Insert adds key with the given weight. Inserting an already-present key
// is equivalent to UpdateKey.
func (h *LoadHeap) Insert(key string, weight float64) {
	if e, ok := h.byKey[key]; ok {
		h.UpdateKey(key, weight)
		_ = e
		return
	}
	e := &loadEntry{key: key, weight: weight}
	heap.Push(&h.entries, e)
	h.byKey[key] = e
}

// UpdateKey changes key's weight, re-establishing heap order. Reports
// false if key is not present.
func (h *LoadHeap) UpdateKey(key string, weight float64) bool {
	e, ok := h.byKey[key]
	if !ok {
		return false
	}
	e.weight = weight
	heap.Fix(&h.entries, e.index)
	return true
}

// PopMin removes and returns the lowest-weight key.
func (h *LoadHeap) PopMin() (key string, weight float64, ok bool) {
	if len(h.entries) == 0 {
		return "", 0, false
	}
	e := heap.Pop(&h.entries).(*loadEntry)
	delete(h.byKey, e.key)
	return e.key, e.weight, true
}

// PopMax removes and returns the highest-weight key.
func (h *LoadHeap) PopMax() (key string, weight float64, ok bool) {
	if len(h.entries) == 0 {
		return "", 0, false
	}
	maxIdx := 0
	for i, e := range h.entries {
		if e.weight > h.entries[maxIdx].weight {
			maxIdx = i
		}
	}
	e := heap.Remove(&h.entries, maxIdx).(*loadEntry)
	delete(h.byKey, e.key)
	return e.key, e.weight, true
}

// Peek returns the lowest-weight key without removing it.
func (h *LoadHeap) Peek() (key string, weight float64, ok bool) {
	if len(h.entries) == 0 {
		return "", 0, false
	}
	return h.entries[0].key, h.entries[0].weight, true
}

// Weight returns key's current weight.
func (h *LoadHeap) Weight(key string) (float64, bool) {
	e, ok := h.byKey[key]
	if !ok {
		return 0, false
	}
	return e.weight, true
}
