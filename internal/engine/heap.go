package engine

// fragmentHeap orders fragments by ascending on-disk data position, the
// priority queue defragmentation's plan phase walks the live tree with
// (spec.md §4.3). Tie-breaking on equal positions never matters because
// data positions are unique.
type fragmentHeap []*Fragment

func (h fragmentHeap) Len() int { return len(h) }
func (h fragmentHeap) Less(i, j int) bool {
	return h[i].Reference.DataPosition < h[j].Reference.DataPosition
}
func (h fragmentHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *fragmentHeap) Push(x any) {
	*h = append(*h, x.(*Fragment))
}

func (h *fragmentHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
