// Package topk keeps the K highest-scoring candidates of a linear scan without
// sorting the full candidate set.
package topk

import "slices"

// Scored is a retained candidate and its similarity score.
type Scored[T any] struct {
	Item  T
	Score float32

	seq uint64
}

// Heap is a fixed-capacity min-heap ordered by (score, insertion sequence).
// The root is always the worst retained candidate: the lowest score, and for
// equal scores the one pushed last. Equal scores therefore occupy distinct
// slots and never evict each other.
//
// Heap is not safe for concurrent use.
type Heap[T any] struct {
	k     int
	next  uint64
	items []Scored[T]
}

// New returns a heap that retains at most k candidates. A non-positive k
// retains nothing.
func New[T any](k int) *Heap[T] {
	k = max(k, 0)
	return &Heap[T]{
		k:     k,
		items: make([]Scored[T], 0, min(k, 64)),
	}
}

// Push offers a candidate. While the heap holds fewer than k entries the
// candidate is always kept; afterwards it replaces the worst entry only when
// its score is strictly greater.
func (h *Heap[T]) Push(score float32, item T) {
	if h.k == 0 {
		return
	}

	s := Scored[T]{Item: item, Score: score, seq: h.next}
	h.next++

	if len(h.items) < h.k {
		h.items = append(h.items, s)
		h.siftUp(len(h.items) - 1)
		return
	}

	if score > h.items[0].Score {
		h.items[0] = s
		h.siftDown(0)
	}
}

// Len returns the number of retained candidates.
func (h *Heap[T]) Len() int {
	return len(h.items)
}

// Worst returns the lowest retained score.
func (h *Heap[T]) Worst() (float32, bool) {
	if len(h.items) == 0 {
		return 0, false
	}
	return h.items[0].Score, true
}

// Results returns the retained candidates ordered by descending score. Equal
// scores keep the order in which they were pushed. The heap is left intact.
func (h *Heap[T]) Results() []Scored[T] {
	out := slices.Clone(h.items)
	slices.SortFunc(out, func(a, b Scored[T]) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	return out
}

// Items is Results without the scores.
func (h *Heap[T]) Items() []T {
	results := h.Results()
	items := make([]T, len(results))
	for i, r := range results {
		items[i] = r.Item
	}
	return items
}

// worse reports whether the entry at i ranks below the entry at j.
func (h *Heap[T]) worse(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.seq > b.seq
}

func (h *Heap[T]) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.worse(i, parent) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *Heap[T]) siftDown(i int) {
	n := len(h.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		child := left
		if right := left + 1; right < n && h.worse(right, left) {
			child = right
		}
		if !h.worse(child, i) {
			break
		}
		h.items[i], h.items[child] = h.items[child], h.items[i]
		i = child
	}
}
