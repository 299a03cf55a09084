package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/Medhaswini118/DeepFake-Scheduler/internal/eventbus"
	logx "github.com/Medhaswini118/DeepFake-Scheduler/pkg/logx"
)

func (s *Scheduler) worker(ctx context.Context, stopCh <-chan struct{}, workerID int) {
	for {
		// Fast-exit check so a closed stopCh wins over queued work.
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		id, ok := s.queue.Pop(s.popWait())
		s.metrics.QueueDepth.Set(float64(s.queue.Len()))
		if !ok {
			// Queue starvation is not an error; loop and re-check stop.
			continue
		}

		job, claimed := s.store.TryClaim(id, workerID, time.Now())
		if !claimed {
			// Job vanished or its status already changed. Normal race loss.
			s.metrics.ClaimsLost.Inc()
			continue
		}
		s.publish(eventbus.JobClaimed, JobEvent{ID: id, Status: StatusProcessing, Worker: workerID, Attempts: job.Attempts})

		s.metrics.InFlight.Inc()
		s.execOne(id, workerID, job)
		s.metrics.InFlight.Dec()
	}
}

func (s *Scheduler) execOne(id string, workerID int, job Job) {
	start := time.Now()

	s.log.Debug("job started",
		logx.String("job", id),
		logx.Int("worker", workerID),
		logx.Int("attempt", job.Attempts),
	)

	// Guard against handler panics: one bad handler call must not kill the
	// worker loop. An error return or a panic leaves the job in "processing"
	// on purpose: completing it here would fabricate a false success, and the
	// monitor will requeue it after the retry timeout.
	result, err := func() (result map[string]any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				s.log.Error("handler panicked",
					logx.String("job", id),
					logx.Int("worker", workerID),
					logx.Any("panic", r),
					logx.Stack(string(debug.Stack())),
				)
			}
		}()
		// The handler context is deliberately not tied to Stop; in-flight
		// calls are never preempted (see Handler).
		return s.handler(context.Background(), job.Payload)
	}()

	dur := time.Since(start)
	if err != nil {
		s.metrics.JobsAbandoned.Inc()
		s.log.Error("handler fault; job left for monitor recovery",
			logx.String("job", id),
			logx.Int("worker", workerID),
			logx.Int("attempt", job.Attempts),
			logx.Duration("dur", dur),
			logx.Any("err", err),
		)
		s.publish(eventbus.JobAbandoned, JobEvent{ID: id, Status: StatusProcessing, Worker: workerID, Attempts: job.Attempts, Duration: dur, Error: err.Error()})
		return
	}

	if !s.store.Complete(id, workerID, job.Attempts, result, time.Now()) {
		// The monitor requeued this job (or another worker finished a later
		// attempt) while the handler was running. Whoever got there first wins.
		s.metrics.ClaimsLost.Inc()
		s.log.Debug("completion superseded",
			logx.String("job", id),
			logx.Int("worker", workerID),
			logx.Int("attempt", job.Attempts),
		)
		return
	}

	s.metrics.JobsCompleted.Inc()
	s.metrics.JobDuration.Observe(dur.Seconds())
	s.log.Debug("job completed",
		logx.String("job", id),
		logx.Int("worker", workerID),
		logx.Int("attempt", job.Attempts),
		logx.Duration("dur", dur),
	)
	s.publish(eventbus.JobCompleted, JobEvent{ID: id, Status: StatusDone, Worker: workerID, Attempts: job.Attempts, Duration: dur})
}

func (s *Scheduler) publish(topic eventbus.Topic, ev JobEvent) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Topic: topic, Time: time.Now(), Data: ev})
}
