// Package queue provides the thread-safe priority work queue backing a
// site crawl. Ordering is a min-heap on WorkItem.Priority, which equals
// discovery depth by default and therefore yields breadth-first
// traversal.
//
// Design decision: A plain channel cannot express priority ordering, so
// the queue is an explicit heap guarded by a mutex and condition
// variable, the same shape the pack's crawlers use for their
// cond-guarded work lists.
package queue

import (
	"container/heap"
	"sync"
	"time"

	"github.com/docscrape/docscrape/internal/model"
)

// Stats captures queue counters for observability and tests.
type Stats struct {
	// TotalPushed counts every item ever pushed.
	TotalPushed int64

	// TotalPopped counts every item ever delivered to a popper.
	TotalPopped int64

	// CurrentSize is the number of items waiting.
	CurrentSize int

	// MinDepth and MaxDepth track the extremes observed on push.
	// MinDepth is -1 until the first push.
	MinDepth int
	MaxDepth int
}

// PriorityQueue is a closable min-heap of work items.
//
// Invariants: each pushed item is delivered to at most one popper;
// closure is monotonic; Pop never reports "drained" before closure
// while items remain.
type PriorityQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  itemHeap
	closed bool

	totalPushed int64
	totalPopped int64
	minDepth    int
	maxDepth    int
}

// New creates an empty, open queue.
func New() *PriorityQueue {
	q := &PriorityQueue{minDepth: -1, maxDepth: -1}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push adds one item and wakes one waiter.
func (q *PriorityQueue) Push(item model.WorkItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	heap.Push(&q.items, item)
	q.recordPushLocked(item)
	q.cond.Signal()
}

// PushBatch adds several items and wakes all waiters.
func (q *PriorityQueue) PushBatch(items []model.WorkItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	for _, item := range items {
		heap.Push(&q.items, item)
		q.recordPushLocked(item)
	}
	q.cond.Broadcast()
}

// recordPushLocked updates push counters and depth extremes.
func (q *PriorityQueue) recordPushLocked(item model.WorkItem) {
	q.totalPushed++
	if q.minDepth < 0 || item.Depth < q.minDepth {
		q.minDepth = item.Depth
	}
	if item.Depth > q.maxDepth {
		q.maxDepth = item.Depth
	}
}

// Pop blocks until an item is available or the queue is closed. The
// second return is false only when the queue is closed and empty.
func (q *PriorityQueue) Pop() (model.WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	return q.popLocked()
}

// TryPop is Pop with a deadline. It returns false on timeout as well as
// on closed-and-empty; IsClosed disambiguates when callers care.
func (q *PriorityQueue) TryPop(timeout time.Duration) (model.WorkItem, bool) {
	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return model.WorkItem{}, false
		}
		q.waitLocked(remaining)
	}
	return q.popLocked()
}

// waitLocked waits on the condition variable for at most d.
//
// sync.Cond has no timed wait, so a helper goroutine broadcasts after
// the deadline. The extra wake-ups are harmless: every waiter loops on
// its predicate.
func (q *PriorityQueue) waitLocked(d time.Duration) {
	done := make(chan struct{})
	go func() {
		select {
		case <-time.After(d):
			q.mu.Lock()
			q.cond.Broadcast()
			q.mu.Unlock()
		case <-done:
		}
	}()
	q.cond.Wait()
	close(done)
}

// TryPopNonblocking never blocks.
func (q *PriorityQueue) TryPopNonblocking() (model.WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// popLocked removes the minimum item if any.
func (q *PriorityQueue) popLocked() (model.WorkItem, bool) {
	if len(q.items) == 0 {
		return model.WorkItem{}, false
	}
	item := heap.Pop(&q.items).(model.WorkItem)
	q.totalPopped++
	return item, true
}

// Close marks the queue closed and wakes all waiters. Idempotent.
// Items already queued remain poppable; Pop returns false once the
// queue drains.
func (q *PriorityQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// IsClosed reports whether Close has been called.
func (q *PriorityQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Empty reports whether no items are waiting.
func (q *PriorityQueue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Size returns the number of waiting items.
func (q *PriorityQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear discards all waiting items.
func (q *PriorityQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = q.items[:0]
}

// GetStats returns a snapshot of the queue counters.
func (q *PriorityQueue) GetStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		TotalPushed: q.totalPushed,
		TotalPopped: q.totalPopped,
		CurrentSize: len(q.items),
		MinDepth:    q.minDepth,
		MaxDepth:    q.maxDepth,
	}
}

// itemHeap implements heap.Interface ordered by priority ascending.
type itemHeap []model.WorkItem

func (h itemHeap) Len() int           { return len(h) }
func (h itemHeap) Less(i, j int) bool { return h[i].Less(h[j]) }
func (h itemHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)        { *h = append(*h, x.(model.WorkItem)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
