// Package merger selects the best K items from an unordered candidate set
// with a bounded min-heap.
package merger

import "container/heap"

// TopK returns at most limit items ordered best first. better(a, b) reports
// whether a ranks ahead of b and must be a strict total order for the result
// to be deterministic. A limit of zero or less returns nil.
func TopK[T any](items []T, limit int, better func(a, b T) bool) []T {
	if limit <= 0 {
		return nil
	}
	h := &boundedHeap[T]{better: better}
	for _, item := range items {
		if h.Len() < limit {
			heap.Push(h, item)
			continue
		}
		if better(item, h.items[0]) {
			h.items[0] = item
			heap.Fix(h, 0)
		}
	}
	result := make([]T, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(T)
	}
	return result
}

// boundedHeap keeps the worst retained item at the root.
type boundedHeap[T any] struct {
	items  []T
	better func(a, b T) bool
}

func (h *boundedHeap[T]) Len() int { return len(h.items) }

func (h *boundedHeap[T]) Less(i, j int) bool { return h.better(h.items[j], h.items[i]) }

func (h *boundedHeap[T]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *boundedHeap[T]) Push(x any) {
	h.items = append(h.items, x.(T))
}

func (h *boundedHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
