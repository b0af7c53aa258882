package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/docscrape/docscrape/internal/model"
)

func TestPopOrdersByPriority(t *testing.T) {
	t.Parallel()

	q := New()
	q.Push(model.NewWorkItem("https://ex.com/deep", 3))
	q.Push(model.NewWorkItem("https://ex.com/", 0))
	q.Push(model.NewWorkItem("https://ex.com/mid", 1))

	var depths []int
	for range 3 {
		item, ok := q.Pop()
		if !ok {
			t.Fatal("pop returned no item")
		}
		depths = append(depths, item.Depth)
	}

	for i := 1; i < len(depths); i++ {
		if depths[i-1] > depths[i] {
			t.Errorf("pop order not ascending: %v", depths)
		}
	}
}

func TestPopBlocksUntilPush(t *testing.T) {
	t.Parallel()

	q := New()

	go func() {
		time.Sleep(50 * time.Millisecond)
		q.Push(model.NewWorkItem("https://ex.com/", 0))
	}()

	start := time.Now()
	item, ok := q.Pop()
	if !ok {
		t.Fatal("pop returned no item")
	}
	if item.URL != "https://ex.com/" {
		t.Errorf("unexpected item %q", item.URL)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Error("pop should have blocked until the push")
	}
}

func TestTryPopTimesOut(t *testing.T) {
	t.Parallel()

	q := New()

	start := time.Now()
	if _, ok := q.TryPop(80 * time.Millisecond); ok {
		t.Fatal("expected timeout")
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("returned after %v, want ~80ms", elapsed)
	}
}

func TestTryPopNonblocking(t *testing.T) {
	t.Parallel()

	q := New()
	if _, ok := q.TryPopNonblocking(); ok {
		t.Fatal("empty queue should return nothing")
	}

	q.Push(model.NewWorkItem("https://ex.com/", 0))
	if _, ok := q.TryPopNonblocking(); !ok {
		t.Fatal("expected an item")
	}
}

func TestCloseWakesWaiters(t *testing.T) {
	t.Parallel()

	q := New()

	done := make(chan bool, 2)
	for range 2 {
		go func() {
			_, ok := q.Pop()
			done <- ok
		}()
	}

	time.Sleep(20 * time.Millisecond)
	q.Close()
	q.Close() // idempotent

	for range 2 {
		select {
		case ok := <-done:
			if ok {
				t.Error("pop on closed empty queue should return false")
			}
		case <-time.After(time.Second):
			t.Fatal("waiter not woken by close")
		}
	}

	if !q.IsClosed() {
		t.Error("queue should report closed")
	}
}

func TestCloseDrainsRemainingItems(t *testing.T) {
	t.Parallel()

	q := New()
	q.PushBatch([]model.WorkItem{
		model.NewWorkItem("https://ex.com/a", 1),
		model.NewWorkItem("https://ex.com/b", 2),
	})
	q.Close()

	if _, ok := q.Pop(); !ok {
		t.Fatal("closed queue should still yield queued items")
	}
	if _, ok := q.Pop(); !ok {
		t.Fatal("closed queue should still yield queued items")
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("drained closed queue should return false")
	}
}

func TestNoDuplicateDelivery(t *testing.T) {
	t.Parallel()

	const n = 200
	q := New()
	for i := range n {
		q.Push(model.NewWorkItem("https://ex.com/", i%5))
	}
	q.Close()

	var mu sync.Mutex
	total := 0

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if _, ok := q.Pop(); !ok {
					return
				}
				mu.Lock()
				total++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if total != n {
		t.Errorf("delivered %d items, want %d", total, n)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	q := New()
	q.Push(model.NewWorkItem("https://ex.com/", 0))
	q.Push(model.NewWorkItem("https://ex.com/deep", 4))
	q.Pop()

	stats := q.GetStats()
	if stats.TotalPushed != 2 {
		t.Errorf("TotalPushed = %d, want 2", stats.TotalPushed)
	}
	if stats.TotalPopped != 1 {
		t.Errorf("TotalPopped = %d, want 1", stats.TotalPopped)
	}
	if stats.CurrentSize != 1 {
		t.Errorf("CurrentSize = %d, want 1", stats.CurrentSize)
	}
	if stats.MinDepth != 0 || stats.MaxDepth != 4 {
		t.Errorf("depth extremes = (%d, %d), want (0, 4)", stats.MinDepth, stats.MaxDepth)
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	q := New()
	q.Push(model.NewWorkItem("https://ex.com/", 0))
	q.Clear()

	if !q.Empty() || q.Size() != 0 {
		t.Error("queue should be empty after clear")
	}
}
