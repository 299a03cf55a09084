package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Topic names a class of events on the bus. The scheduler publishes the
// job.* lifecycle topics below; subscribers pick the topics they care
// about at subscribe time.
type Topic string

const (
	JobSubmitted Topic = "job.submitted"
	JobClaimed   Topic = "job.claimed"
	JobCompleted Topic = "job.completed"
	JobRequeued  Topic = "job.requeued"
	JobAbandoned Topic = "job.abandoned"
)

// JobTopics returns every job lifecycle topic.
func JobTopics() []Topic {
	return []Topic{JobSubmitted, JobClaimed, JobCompleted, JobRequeued, JobAbandoned}
}

// Event is one delivery on the bus.
//
// Contract:
//   - Publish MUST be non-blocking.
//   - Slow subscribers may drop events (bounded backpressure).
//
// Data should be small and ideally JSON-serializable.
type Event struct {
	Topic Topic
	Time  time.Time
	Data  any
}

type Bus interface {
	Publish(e Event)

	// Subscribe registers a buffered subscription. With no topics the
	// subscriber receives everything; otherwise only the listed topics.
	Subscribe(buffer int, topics ...Topic) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fanout bus.
//
// It intentionally does not own any background goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]subscription{}}
}

type subscription struct {
	ch     chan Event
	topics map[Topic]struct{} // nil means all topics
}

func (s subscription) wants(t Topic) bool {
	if s.topics == nil {
		return true
	}
	_, ok := s.topics[t]
	return ok
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]subscription
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Snapshot the matching subscribers so Publish doesn't hold locks
	// while attempting sends.
	b.mu.RLock()
	chs := make([]chan Event, 0, len(b.subs))
	for _, s := range b.subs {
		if s.wants(e.Topic) {
			chs = append(chs, s.ch)
		}
	}
	b.mu.RUnlock()

	for _, ch := range chs {
		// Non-blocking delivery. If the subscriber is slow, drop. If it
		// unsubscribes concurrently and the channel closes, recover from
		// the send panic.
		func() {
			defer func() { _ = recover() }()
			select {
			case ch <- e:
			default:
			}
		}()
	}
}

func (b *memBus) Subscribe(buffer int, topics ...Topic) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	sub := subscription{ch: make(chan Event, buffer)}
	if len(topics) > 0 {
		sub.topics = make(map[Topic]struct{}, len(topics))
		for _, t := range topics {
			sub.topics[t] = struct{}{}
		}
	}
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			// Closing is safe because Publish recovers from send panics.
			close(sub.ch)
		})
	}
	return sub.ch, unsub
}
