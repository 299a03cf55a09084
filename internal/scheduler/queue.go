package scheduler

import (
	"sync"
	"time"
)

// Queue is an unbounded FIFO of job ids.
//
// Push never blocks and never fails: a monitor requeue must not be droppable,
// otherwise a job could sit in status "queued" with no queue entry to claim
// it. Pop blocks up to the given timeout and then reports empty, which lets
// worker loops re-check their stop signal instead of busy-polling.
type Queue struct {
	mu  sync.Mutex
	ids []string

	// wake is 1-buffered: set whenever ids may be non-empty.
	wake chan struct{}
}

func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

func (q *Queue) Push(id string) {
	q.mu.Lock()
	q.ids = append(q.ids, id)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Pop removes and returns the oldest id. If the queue stays empty for the
// whole timeout, it returns ok=false.
func (q *Queue) Pop(timeout time.Duration) (string, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		q.mu.Lock()
		if len(q.ids) > 0 {
			id := q.ids[0]
			q.ids = q.ids[1:]
			more := len(q.ids) > 0
			if !more {
				// Release the drained backing array.
				q.ids = nil
			}
			q.mu.Unlock()

			if more {
				// Re-arm the wake signal for other waiters; the token we may
				// have consumed covered more than one queued id.
				select {
				case q.wake <- struct{}{}:
				default:
				}
			}
			return id, true
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
			// May be spurious (another consumer won the race); loop and re-check.
		case <-deadline.C:
			return "", false
		}
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ids)
}
