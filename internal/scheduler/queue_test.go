package scheduler

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	for _, id := range []string{"a", "b", "c"} {
		q.Push(id)
	}
	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.Pop(time.Second)
		if !ok {
			t.Fatalf("pop %q: queue reported empty", want)
		}
		if got != want {
			t.Fatalf("pop = %q, want %q", got, want)
		}
	}
	if n := q.Len(); n != 0 {
		t.Fatalf("len = %d, want 0", n)
	}
}

func TestQueuePopTimeout(t *testing.T) {
	q := NewQueue()
	start := time.Now()
	if _, ok := q.Pop(20 * time.Millisecond); ok {
		t.Fatal("pop on empty queue should time out")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("pop returned after %v, should have waited the timeout", elapsed)
	}
}

func TestQueuePopWakesOnPush(t *testing.T) {
	q := NewQueue()
	got := make(chan string, 1)
	go func() {
		id, ok := q.Pop(5 * time.Second)
		if ok {
			got <- id
		}
		close(got)
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push("x")

	select {
	case id := <-got:
		if id != "x" {
			t.Fatalf("pop = %q, want %q", id, "x")
		}
	case <-time.After(time.Second):
		t.Fatal("pop did not wake on push")
	}
}

func TestQueueConcurrentProducersConsumers(t *testing.T) {
	q := NewQueue()
	const producers, perProducer, consumers = 4, 50, 3
	total := producers * perProducer

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(fmt.Sprintf("p%d-%d", p, i))
			}
		}(p)
	}

	var mu sync.Mutex
	seen := map[string]bool{}
	var cwg sync.WaitGroup
	for c := 0; c < consumers; c++ {
		cwg.Add(1)
		go func() {
			defer cwg.Done()
			for {
				id, ok := q.Pop(100 * time.Millisecond)
				if !ok {
					return
				}
				mu.Lock()
				if seen[id] {
					mu.Unlock()
					t.Errorf("id %q popped twice", id)
					return
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	cwg.Wait()

	if len(seen) != total {
		t.Fatalf("popped %d unique ids, want %d", len(seen), total)
	}
}
