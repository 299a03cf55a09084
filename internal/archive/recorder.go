package archive

import (
	"context"

	"github.com/Medhaswini118/DeepFake-Scheduler/internal/eventbus"
	"github.com/Medhaswini118/DeepFake-Scheduler/internal/scheduler"
	logx "github.com/Medhaswini118/DeepFake-Scheduler/pkg/logx"
)

// Recorder subscribes to job lifecycle events and appends them to a Store.
// Bus delivery is lossy under backpressure, so the archive is an audit
// trail, not an exact ledger.
type Recorder struct {
	store Store
	bus   eventbus.Bus
	log   logx.Logger
}

func NewRecorder(store Store, bus eventbus.Bus, log logx.Logger) *Recorder {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Recorder{store: store, bus: bus, log: log}
}

// Run consumes events until ctx is canceled. Intended to be run under a
// supervisor; it returns nil on normal shutdown.
func (r *Recorder) Run(ctx context.Context) error {
	if r.store == nil || r.bus == nil {
		<-ctx.Done()
		return nil
	}
	ch, unsub := r.bus.Subscribe(64, eventbus.JobTopics()...)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			je, ok := ev.Data.(scheduler.JobEvent)
			if !ok {
				continue
			}
			e := Entry{
				At:       ev.Time,
				JobID:    je.ID,
				Event:    string(ev.Topic),
				Status:   string(je.Status),
				Worker:   je.Worker,
				Attempts: je.Attempts,
				TookMS:   je.Duration.Milliseconds(),
				Error:    je.Error,
			}
			if err := r.store.AppendJob(ctx, e); err != nil {
				r.log.Debug("archive append failed", logx.String("job", je.ID), logx.Any("err", err))
			}
		}
	}
}
