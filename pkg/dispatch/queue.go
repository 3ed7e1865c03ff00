package dispatch

import "container/heap"

// queueItem is one slot in the priority queue. Lower priority values are
// served first; submissionCounter breaks ties in arrival order.
type queueItem struct {
	req               *TranscriptionRequest
	priority          int
	submissionCounter uint64
	index             int
}

// priorityQueue implements container/heap.Interface, ordered by
// (priority ascending, submissionCounter ascending).
type priorityQueue []*queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	return pq[i].submissionCounter < pq[j].submissionCounter
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

var _ = heap.Interface(&priorityQueue{})
