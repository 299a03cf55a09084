// Package classify is the reference job handler: a small text classifier
// that guesses whether a snippet looks machine-fabricated.
//
// The scheduler treats it as an opaque Handler; any other implementation
// can be wired in its place. Per the handler contract, every internal
// failure here is reported inside the result map, never as an error.
package classify

import (
	"context"
	"strings"
	"sync"

	logx "github.com/Medhaswini118/DeepFake-Scheduler/pkg/logx"
)

type Config struct {
	// ModelPath points at the JSON model artifact. An empty or unreadable
	// path leaves the service running; jobs then complete with an
	// "error: Model not loaded" result.
	ModelPath string
}

type Service struct {
	mu    sync.Mutex
	cfg   Config
	model *Model
	log   logx.Logger
}

func New(cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{cfg: cfg, log: log}
	s.reload(cfg)
	return s
}

// Apply swaps the model when the configured path changes (config hot reload).
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	changed := s.cfg.ModelPath != cfg.ModelPath
	s.cfg = cfg
	s.mu.Unlock()
	if changed {
		s.reload(cfg)
	}
}

func (s *Service) reload(cfg Config) {
	path := strings.TrimSpace(cfg.ModelPath)
	if path == "" {
		s.setModel(nil)
		s.log.Warn("no classifier model configured; jobs will complete with a model-not-loaded result")
		return
	}
	m, err := LoadModel(path)
	if err != nil {
		s.setModel(nil)
		s.log.Warn("could not load classifier model", logx.String("path", path), logx.Any("err", err))
		return
	}
	s.setModel(m)
	s.log.Info("classifier model loaded", logx.String("path", path), logx.Int("vocab", len(m.Weights)))
}

func (s *Service) setModel(m *Model) {
	s.mu.Lock()
	s.model = m
	s.mu.Unlock()
}

// Handle implements the scheduler's Handler boundary.
//
// Payloads without a "text" field are not an error: they complete with a
// "No text provided" result so junk submissions can't wedge the pipeline.
func (s *Service) Handle(ctx context.Context, payload map[string]any) (map[string]any, error) {
	_ = ctx

	raw, present := payload["text"]
	if !present {
		return map[string]any{"message": "No text provided"}, nil
	}
	text, ok := raw.(string)
	if !ok {
		return map[string]any{"error": "text must be a string"}, nil
	}

	s.mu.Lock()
	m := s.model
	s.mu.Unlock()
	if m == nil {
		return map[string]any{"error": "Model not loaded"}, nil
	}

	label, conf, err := m.Predict(text)
	if err != nil {
		return map[string]any{"error": err.Error()}, nil
	}
	return map[string]any{"prediction": label, "confidence": conf}, nil
}
