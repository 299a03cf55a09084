package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Medhaswini118/DeepFake-Scheduler/internal/eventbus"
	rtsup "github.com/Medhaswini118/DeepFake-Scheduler/internal/runtime/supervisor"
	logx "github.com/Medhaswini118/DeepFake-Scheduler/pkg/logx"
)

// Config controls the scheduler core.
//
// All fields have working defaults (see withDefaults); the zero value is a
// valid configuration.
type Config struct {
	// Workers is the number of concurrent workers (default 3).
	Workers int

	// RetryTimeout is how long a job may sit in "processing" before the
	// monitor presumes its worker stuck and requeues it (default 10s).
	RetryTimeout time.Duration

	// MonitorInterval is the sweep period of the stuck-task monitor
	// (default 1s).
	MonitorInterval time.Duration

	// PopWait bounds how long a worker blocks waiting for work before
	// re-checking the stop signal (default 250ms).
	PopWait time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 3
	}
	if c.RetryTimeout <= 0 {
		c.RetryTimeout = 10 * time.Second
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = time.Second
	}
	if c.PopWait <= 0 {
		c.PopWait = 250 * time.Millisecond
	}
	return c
}

// Scheduler composes the store, queue, worker pool and monitor behind the
// submit/start/stop/read facade.
type Scheduler struct {
	mu  sync.Mutex
	cfg Config

	log     logx.Logger
	bus     eventbus.Bus
	metrics *Metrics

	handler Handler

	store *Store
	queue *Queue

	sup      *rtsup.Supervisor
	stopCh   chan struct{}
	stopDone chan struct{}

	// reloadCh wakes the monitor after Apply so interval changes take
	// effect without waiting out the old timer.
	reloadCh chan struct{}
}

// New builds a stopped scheduler. handler must not be nil. A nil metrics
// registry gets a private (unexported) one, which keeps tests independent.
func New(cfg Config, handler Handler, log logx.Logger, bus eventbus.Bus, m *Metrics) *Scheduler {
	if handler == nil {
		panic("scheduler: handler is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if m == nil {
		m = NewMetrics(prometheus.NewRegistry())
	}
	return &Scheduler{
		cfg:      cfg.withDefaults(),
		log:      log,
		bus:      bus,
		metrics:  m,
		handler:  handler,
		store:    NewStore(),
		queue:    NewQueue(),
		reloadCh: make(chan struct{}, 1),
	}
}

// Start spawns the workers and the monitor. It is idempotent; calling Start
// on a running scheduler is a no-op, and a Start racing a Stop waits for the
// stop to finish first.
func (s *Scheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.stopCh != nil {
		// If stopping, wait for it to finish before restarting.
		done := s.stopDone
		s.mu.Unlock()
		if done != nil {
			select {
			case <-done:
			case <-ctx.Done():
				return
			}
		} else {
			return
		}
		s.mu.Lock()
		// Re-check after wait.
		if s.stopCh != nil {
			s.mu.Unlock()
			return
		}
	}

	cfg := s.cfg
	s.stopCh = make(chan struct{})
	s.stopDone = nil
	stopCh := s.stopCh

	s.sup = rtsup.New(ctx,
		rtsup.WithLogger(s.log.With(logx.String("comp", "scheduler"))),
		// A crashing loop should self-heal, not take down the app.
		rtsup.WithCancelOnError(false),
	)
	sup := s.sup
	s.mu.Unlock()

	// Loop exits that are not part of a shutdown are treated as failures
	// and restarted with a short backoff window.
	restartOpts := []rtsup.RestartOption{
		rtsup.WithRestartBackoff(250*time.Millisecond, 5*time.Second),
		rtsup.WithStopOnCleanExit(false),
		rtsup.WithPublishFirstError(true),
	}

	for i := 0; i < cfg.Workers; i++ {
		workerID := i
		name := fmt.Sprintf("worker.%d", workerID)
		sup.GoRestart(name, func(c context.Context) error {
			s.worker(c, stopCh, workerID)
			// Clean exits happen only on shutdown.
			select {
			case <-stopCh:
				return context.Canceled
			default:
			}
			return c.Err()
		}, restartOpts...)
	}

	sup.GoRestart("monitor", func(c context.Context) error {
		s.monitor(c, stopCh)
		select {
		case <-stopCh:
			return context.Canceled
		default:
		}
		return c.Err()
	}, restartOpts...)

	s.log.Info("scheduler started",
		logx.Int("workers", cfg.Workers),
		logx.Duration("retry_timeout", cfg.RetryTimeout),
		logx.Duration("monitor_interval", cfg.MonitorInterval),
	)
}

// Stop signals all loops to exit at their next bounded-wait boundary and
// waits up to ctx for them. In-flight handler calls are never preempted; a
// worker stuck in one simply keeps its goroutine until the process exits,
// and its job stays visible in "processing".
func (s *Scheduler) Stop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	// If already stopping, wait.
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}

	done := make(chan struct{})
	s.stopDone = done
	close(s.stopCh)
	sup := s.sup
	s.mu.Unlock()

	if sup != nil {
		sup.Cancel()
	}

	go func() {
		// Wait unbounded in background; caller can still time out.
		if sup != nil {
			_ = sup.Wait(context.Background())
			c := sup.CountersSnapshot()
			s.log.Debug("scheduler loops drained",
				logx.Int64("active", c.Active),
				logx.Uint64("started", c.Started),
			)
		}
		s.mu.Lock()
		s.stopCh = nil
		s.stopDone = nil
		s.sup = nil
		s.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out", logx.Any("err", ctx.Err()))
	}
}

// Apply updates the configuration. If the worker count changed while
// running, the pool is restarted; queued and in-memory job state survives
// the restart (both live outside the worker goroutines).
func (s *Scheduler) Apply(ctx context.Context, cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	prev := s.cfg
	s.cfg = cfg
	running := s.stopCh != nil && s.stopDone == nil
	s.mu.Unlock()

	// Wake the monitor so MonitorInterval changes apply right away.
	select {
	case s.reloadCh <- struct{}{}:
	default:
	}

	if !running || prev.Workers == cfg.Workers {
		return
	}
	s.Stop(ctx)
	s.Start(ctx)
}

// Submit registers a new job and enqueues it for the next free worker.
// Safe to call concurrently with everything else, including before Start.
func (s *Scheduler) Submit(payload map[string]any) string {
	id := newJobID()
	for s.store.Create(id, payload) != nil {
		// 8-char ids can collide; ids are never reused, so just redraw.
		id = newJobID()
	}
	s.queue.Push(id)
	s.metrics.JobsSubmitted.Inc()
	s.metrics.QueueDepth.Set(float64(s.queue.Len()))
	s.log.Debug("job submitted", logx.String("job", id))
	s.publish(eventbus.JobSubmitted, JobEvent{ID: id, Status: StatusQueued})
	return id
}

// GetJob returns a snapshot of one job.
func (s *Scheduler) GetJob(id string) (Job, bool) { return s.store.Get(id) }

// ListJobs returns snapshots of all jobs.
func (s *Scheduler) ListJobs() []Job { return s.store.List() }

// Stats returns aggregate counts.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	workers := s.cfg.Workers
	s.mu.Unlock()
	return s.store.Stats(workers)
}

func (s *Scheduler) popWait() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.PopWait
}

func (s *Scheduler) retryTimeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.RetryTimeout
}

func (s *Scheduler) monitorInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.MonitorInterval
}

// newJobID returns a short, operator-friendly id (8-hex UUID prefix) of
// the shape the dashboard displays. Uniqueness is enforced at Create time.
func newJobID() string {
	return uuid.NewString()[:8]
}
