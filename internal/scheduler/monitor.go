package scheduler

import (
	"context"
	"time"

	"github.com/Medhaswini118/DeepFake-Scheduler/internal/eventbus"
	logx "github.com/Medhaswini118/DeepFake-Scheduler/pkg/logx"
)

func (s *Scheduler) monitor(ctx context.Context, stopCh <-chan struct{}) {
	interval := s.monitorInterval()
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-s.reloadCh:
			// Re-arm immediately so an interval change does not have to
			// wait out the previously scheduled tick.
			if cur := s.monitorInterval(); cur != interval {
				interval = cur
				t.Reset(interval)
			}
		case <-t.C:
			s.sweep(time.Now())
		}
	}
}

// sweep requeues every job stuck in "processing" past the retry timeout.
// Requeue and push are split so that a job completed between the staleness
// snapshot and the requeue is simply skipped (Requeue reports false).
func (s *Scheduler) sweep(now time.Time) int {
	requeued := 0
	for _, id := range s.store.Stale(now, s.retryTimeout()) {
		if !s.store.Requeue(id) {
			s.metrics.ClaimsLost.Inc()
			continue
		}
		s.queue.Push(id)
		s.metrics.JobsRequeued.Inc()
		s.metrics.QueueDepth.Set(float64(s.queue.Len()))
		requeued++
		s.log.Warn("re-queuing stuck job", logx.String("job", id))
		s.publish(eventbus.JobRequeued, JobEvent{ID: id, Status: StatusQueued})
	}
	return requeued
}
