// Package httpapi exposes the scheduler over HTTP: task submission and
// inspection endpoints, a small live dashboard, health and metrics.
package httpapi

import (
	"context"
	_ "embed"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/Medhaswini118/DeepFake-Scheduler/internal/scheduler"
	logx "github.com/Medhaswini118/DeepFake-Scheduler/pkg/logx"
)

//go:embed dashboard.html
var dashboardHTML []byte

// Config configures the HTTP server.
type Config struct {
	Addr             string
	SubmitRatePerSec float64 // <= 0 disables submit rate limiting
	Debug            bool    // mounts net/http/pprof under /debug
}

// Scheduler is the narrow surface the API needs.
type Scheduler interface {
	Submit(payload map[string]any) string
	GetJob(id string) (scheduler.Job, bool)
	ListJobs() []scheduler.Job
	Stats() scheduler.Stats
}

type Server struct {
	mu  sync.Mutex
	cfg Config
	log logx.Logger

	sched    Scheduler
	gatherer prometheus.Gatherer
	limiter  *rate.Limiter

	srv *http.Server
	ln  net.Listener
}

func New(cfg Config, sched Scheduler, gatherer prometheus.Gatherer, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{
		cfg:      cfg,
		log:      log,
		sched:    sched,
		gatherer: gatherer,
	}
	if cfg.SubmitRatePerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.SubmitRatePerSec), burstFor(cfg.SubmitRatePerSec))
	}
	return s
}

func burstFor(perSec float64) int {
	b := int(perSec)
	if b < 1 {
		b = 1
	}
	return b
}

// Start binds the listener and begins serving in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return errors.New("httpapi: already started")
	}

	addr := strings.TrimSpace(s.cfg.Addr)
	if addr == "" {
		addr = "127.0.0.1:8000"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.srv = srv
	s.ln = ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", logx.Err(err))
		}
	}()
	s.log.Info("http server listening", logx.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.ln = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Apply adjusts live settings. Address and debug changes require a
// restart, which the caller owns.
func (s *Server) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.SubmitRatePerSec != s.cfg.SubmitRatePerSec {
		s.log.Info("submit rate limit updated", logx.Float64("rate_per_sec", cfg.SubmitRatePerSec))
	}
	s.cfg.SubmitRatePerSec = cfg.SubmitRatePerSec
	switch {
	case cfg.SubmitRatePerSec <= 0:
		s.limiter = nil
	case s.limiter == nil:
		s.limiter = rate.NewLimiter(rate.Limit(cfg.SubmitRatePerSec), burstFor(cfg.SubmitRatePerSec))
	default:
		s.limiter.SetLimit(rate.Limit(cfg.SubmitRatePerSec))
		s.limiter.SetBurst(burstFor(cfg.SubmitRatePerSec))
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(limitBody)

	r.Get("/", s.handleDashboard)
	r.Post("/submit", s.handleSubmit)
	r.Get("/status/{task_id}", s.handleStatus)
	r.Get("/jobs", s.handleJobs)
	r.Get("/stats", s.handleStats)
	r.Get("/healthz", s.handleHealthz)

	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.cfg.Debug {
		r.Route("/debug/pprof", func(r chi.Router) {
			r.Get("/", pprof.Index)
			r.Get("/cmdline", pprof.Cmdline)
			r.Get("/profile", pprof.Profile)
			r.Get("/symbol", pprof.Symbol)
			r.Get("/trace", pprof.Trace)
			r.Get("/{name}", func(w http.ResponseWriter, req *http.Request) {
				pprof.Handler(chi.URLParam(req, "name")).ServeHTTP(w, req)
			})
		})
	}
	return r
}

func (s *Server) allowSubmit() bool {
	s.mu.Lock()
	l := s.limiter
	s.mu.Unlock()
	return l == nil || l.Allow()
}
