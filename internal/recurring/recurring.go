// Package recurring submits configured payloads on a cron schedule.
//
// It is trigger-only: each firing simply calls the scheduler's submit
// function, and the submitted job flows through the normal queue/worker
// lifecycle like any other.
package recurring

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "github.com/Medhaswini118/DeepFake-Scheduler/pkg/logx"
)

type Config struct {
	Enabled  bool
	Timezone string // IANA TZ, e.g. "Asia/Jakarta"; empty means local time
	Entries  []Entry
}

// Entry is one scheduled submission. Spec accepts 5- or 6-field cron
// expressions, descriptors ("@hourly") and intervals ("@every 55m").
type Entry struct {
	Name    string
	Spec    string
	Payload map[string]any
}

// SubmitFunc is the scheduler's submit boundary.
type SubmitFunc func(payload map[string]any) string

type Service struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger

	submit SubmitFunc
	parser cron.Parser
	c      *cron.Cron
}

func New(cfg Config, submit SubmitFunc, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg,
		log:    log,
		submit: submit,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Validate checks every entry's schedule and timezone without starting
// anything. Used as a config-reload gate.
func (s *Service) Validate(cfg Config) error {
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("recurring.timezone: %w", err)
		}
	}
	for i, e := range cfg.Entries {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("recurring.entries[%d]: name is required", i)
		}
		if _, err := s.parser.Parse(e.Spec); err != nil {
			return fmt.Errorf("recurring.entries[%d] (%s): invalid spec %q: %w", i, e.Name, e.Spec, err)
		}
	}
	return nil
}

func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startLocked()
}

func (s *Service) startLocked() {
	if s.c != nil || !s.cfg.Enabled {
		return
	}
	loc := s.loadLocationLocked()
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))

	registered := 0
	for _, e := range s.cfg.Entries {
		e := e
		_, err := s.c.AddFunc(e.Spec, func() {
			// Clone so repeated firings never share a payload map.
			id := s.submit(maps.Clone(e.Payload))
			s.log.Debug("recurring submission", logx.String("entry", e.Name), logx.String("job", id))
		})
		if err != nil {
			s.log.Warn("skipping recurring entry", logx.String("entry", e.Name), logx.String("spec", e.Spec), logx.Any("err", err))
			continue
		}
		registered++
	}
	s.c.Start()
	s.log.Info("recurring submissions started", logx.String("tz", loc.String()), logx.Int("entries", registered))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		// best-effort
	}
	s.log.Info("recurring submissions stopped")
}

// Apply swaps in a new configuration, restarting the cron runner when the
// schedule set actually changed.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	unchanged := reflect.DeepEqual(s.cfg, cfg)
	prev := s.c
	s.cfg = cfg
	if unchanged {
		s.mu.Unlock()
		return
	}
	s.c = nil
	s.mu.Unlock()

	if prev != nil {
		<-prev.Stop().Done()
	}

	s.mu.Lock()
	s.startLocked()
	s.mu.Unlock()
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to local", logx.String("tz", tz), logx.Any("err", err))
		return time.Local
	}
	return loc
}
