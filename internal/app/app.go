// Package app wires configuration, logging, the scheduler, the
// classifier and the HTTP API together and owns their lifecycles.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Medhaswini118/DeepFake-Scheduler/internal/archive"
	"github.com/Medhaswini118/DeepFake-Scheduler/internal/classify"
	"github.com/Medhaswini118/DeepFake-Scheduler/internal/config"
	"github.com/Medhaswini118/DeepFake-Scheduler/internal/eventbus"
	"github.com/Medhaswini118/DeepFake-Scheduler/internal/httpapi"
	"github.com/Medhaswini118/DeepFake-Scheduler/internal/recurring"
	rtsup "github.com/Medhaswini118/DeepFake-Scheduler/internal/runtime/supervisor"
	"github.com/Medhaswini118/DeepFake-Scheduler/internal/scheduler"
	logx "github.com/Medhaswini118/DeepFake-Scheduler/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	reg *prometheus.Registry

	classifier *classify.Service
	sched      *scheduler.Scheduler
	rec        *recurring.Service
	arch       archive.Store
	api        *httpapi.Server

	httpEnabled bool
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := scheduler.NewMetrics(reg)

	classifier := classify.New(classify.Config{ModelPath: cfg.Classifier.ModelPath},
		log.With(logx.String("comp", "classify")))

	schedCfg, err := mapSchedulerConfig(cfg)
	if err != nil {
		return nil, err
	}
	sched := scheduler.New(schedCfg, classifier.Handle,
		log.With(logx.String("comp", "scheduler")), bus, metrics)

	rec := recurring.New(mapRecurringConfig(cfg), sched.Submit,
		log.With(logx.String("comp", "recurring")))

	// Archive (optional)
	var arch archive.Store
	if ac, enabled, err := mapArchiveConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := archive.Open(ac, log.With(logx.String("comp", "archive")))
		if err != nil {
			return nil, err
		}
		arch = st
		log.Info("archive enabled", logx.String("driver", ac.Driver))
	}

	var api *httpapi.Server
	if cfg.HTTP.Enabled {
		api = httpapi.New(mapHTTPConfig(cfg), sched, reg,
			log.With(logx.String("comp", "http")))
	}

	return &App{
		cfgPath:     cfgPath,
		cfgm:        cfgm,
		log:         log,
		logs:        logSvc,
		bus:         bus,
		reg:         reg,
		classifier:  classifier,
		sched:       sched,
		rec:         rec,
		arch:        arch,
		api:         api,
		httpEnabled: cfg.HTTP.Enabled,
	}, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if cfg.Scheduler.Workers < 0 {
			return fmt.Errorf("scheduler.workers must be >= 0")
		}
		if _, err := mapSchedulerConfig(cfg); err != nil {
			return err
		}
		if _, _, err := mapArchiveConfig(cfg); err != nil {
			return err
		}
		if cfg.HTTP.SubmitRatePerSec < 0 {
			return fmt.Errorf("http.submit_rate_per_sec must be >= 0")
		}
		return a.rec.Validate(mapRecurringConfig(cfg))
	})

	a.sched.Start(a.sup.Context())
	a.rec.Start()

	if a.arch != nil {
		recorder := archive.NewRecorder(a.arch, a.bus, a.log.With(logx.String("comp", "archive")))
		a.sup.Go("archive.recorder", recorder.Run)
	}

	if a.api != nil {
		if err := a.api.Start(); err != nil {
			return err
		}
	}

	a.sup.Go0("config.reload", a.reloadLoop)
	a.sup.Go("config.watch", a.cfgm.Watch)

	a.log.Info("app started")
	return nil
}

func (a *App) reloadLoop(ctx context.Context) {
	sub := a.cfgm.Subscribe(8)
	defer a.cfgm.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config in the channel.
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					goto APPLY
				}
			}
		APPLY:
			a.applyConfig(ctx, newCfg)
		}
	}
}

func (a *App) applyConfig(ctx context.Context, cfg *config.Config) {
	a.logs.Apply(mapLoggingConfig(cfg))

	a.classifier.Apply(classify.Config{ModelPath: cfg.Classifier.ModelPath})

	if sc, err := mapSchedulerConfig(cfg); err != nil {
		a.log.Warn("invalid scheduler config; keeping previous", logx.Any("err", err))
	} else {
		a.sched.Apply(ctx, sc)
	}

	a.rec.Apply(mapRecurringConfig(cfg))

	if a.api != nil {
		a.api.Apply(mapHTTPConfig(cfg))
	}
	if cfg.HTTP.Enabled != a.httpEnabled {
		a.log.Warn("http.enabled changed; restart required for changes to take effect",
			logx.Bool("enabled", cfg.HTTP.Enabled))
	}
	if _, enabled, _ := mapArchiveConfig(cfg); enabled != (a.arch != nil) {
		a.log.Warn("archive config changed; restart required for changes to take effect")
	}

	a.log.Info("config reloaded")
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	// Cancel the run context first so background loops start unwinding.
	a.sup.Cancel()

	// Run each shutdown step with an upper bound so one component can't
	// stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			if dl, ok := ctx.Deadline(); ok {
				if rem := time.Until(dl); rem < max {
					max = rem
				}
			}
			if max > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, max)
				defer cancel()
			}
		}
		start := time.Now()
		if err := fn(stepCtx); err != nil {
			a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		}
		a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
	}

	step("http", 3*time.Second, func(c context.Context) error {
		if a.api != nil {
			return a.api.Stop(c)
		}
		return nil
	})
	step("recurring", 2*time.Second, func(c context.Context) error { a.rec.Stop(c); return nil })
	step("scheduler", 3*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("supervisor", 2*time.Second, a.sup.Wait)
	step("archive", 1*time.Second, func(context.Context) error {
		if a.arch != nil {
			return a.arch.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

func mapLoggingConfig(cfg *config.Config) logx.Config {
	console := true
	if cfg.Logging.Console != nil {
		console = *cfg.Logging.Console
	}
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapSchedulerConfig(cfg *config.Config) (scheduler.Config, error) {
	retry, err := cfg.Scheduler.RetryTimeout.OrDefault("scheduler.retry_timeout", 10*time.Second)
	if err != nil {
		return scheduler.Config{}, err
	}
	interval, err := cfg.Scheduler.MonitorInterval.OrDefault("scheduler.monitor_interval", time.Second)
	if err != nil {
		return scheduler.Config{}, err
	}
	popWait, err := cfg.Scheduler.PopWait.OrDefault("scheduler.pop_wait", 250*time.Millisecond)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{
		Workers:         cfg.Scheduler.Workers,
		RetryTimeout:    retry,
		MonitorInterval: interval,
		PopWait:         popWait,
	}, nil
}

func mapRecurringConfig(cfg *config.Config) recurring.Config {
	if cfg.Recurring == nil {
		return recurring.Config{}
	}
	entries := make([]recurring.Entry, 0, len(cfg.Recurring.Entries))
	for _, e := range cfg.Recurring.Entries {
		entries = append(entries, recurring.Entry{Name: e.Name, Spec: e.Spec, Payload: e.Payload})
	}
	return recurring.Config{
		Enabled:  cfg.Recurring.Enabled,
		Timezone: cfg.Recurring.Timezone,
		Entries:  entries,
	}
}

func mapArchiveConfig(cfg *config.Config) (archive.Config, bool, error) {
	if cfg.Archive == nil {
		return archive.Config{}, false, nil
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Archive.Driver))
	if driver == "" || driver == "none" {
		return archive.Config{}, false, nil
	}
	busy, err := cfg.Archive.BusyTimeout.OrDefault("archive.busy_timeout", 0)
	if err != nil {
		return archive.Config{}, false, err
	}
	return archive.Config{
		Driver:      driver,
		Path:        cfg.Archive.Path,
		BusyTimeout: busy,
	}, true, nil
}

func mapHTTPConfig(cfg *config.Config) httpapi.Config {
	return httpapi.Config{
		Addr:             cfg.HTTP.Addr,
		SubmitRatePerSec: float64(cfg.HTTP.SubmitRatePerSec),
		Debug:            cfg.HTTP.Debug,
	}
}
