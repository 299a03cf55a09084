package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return NewManager(path)
}

func TestParseYAML(t *testing.T) {
	m := writeConfig(t, "config.yaml", `
logging:
  level: DEBUG
scheduler:
  workers: 5
  retry_timeout: 30s
http:
  enabled: true
  addr: 127.0.0.1:9000
classifier:
  model_path: ./model.json
recurring:
  enabled: true
  entries:
    - name: probe
      spec: "@every 1m"
      payload:
        text: hi
`)
	cfg, err := m.Parse()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
	if cfg.Scheduler.Workers != 5 || cfg.Scheduler.RetryTimeout != "30s" {
		t.Fatalf("scheduler = %+v", cfg.Scheduler)
	}
	if !cfg.HTTP.Enabled || cfg.HTTP.Addr != "127.0.0.1:9000" {
		t.Fatalf("http = %+v", cfg.HTTP)
	}
	if cfg.Recurring == nil || len(cfg.Recurring.Entries) != 1 {
		t.Fatalf("recurring = %+v", cfg.Recurring)
	}
	e := cfg.Recurring.Entries[0]
	if e.Name != "probe" || e.Spec != "@every 1m" || e.Payload["text"] != "hi" {
		t.Fatalf("entry = %+v", e)
	}
}

func TestParseJSON(t *testing.T) {
	m := writeConfig(t, "config.json", `{
  "logging": {"level": "INFO"},
  "scheduler": {"workers": 2},
  "http": {"enabled": false},
  "classifier": {}
}`)
	cfg, err := m.Parse()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scheduler.Workers != 2 {
		t.Fatalf("workers = %d", cfg.Scheduler.Workers)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	m := writeConfig(t, "config.yaml", `
scheduler:
  workres: 3
`)
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	m := writeConfig(t, "config.json", `{"logging":{"level":"INFO"}}{"extra":true}`)
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestDuration(t *testing.T) {
	d, err := Duration("1500ms").Parse("x")
	if err != nil {
		t.Fatal(err)
	}
	if d != 1500*time.Millisecond {
		t.Fatalf("d = %v", d)
	}

	if _, err := Duration("not-a-duration").Parse("x"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := Duration("-5s").Parse("x"); err == nil {
		t.Fatal("expected error for negative duration")
	}

	d, err = Duration("").OrDefault("x", 7*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if d != 7*time.Second {
		t.Fatalf("default = %v", d)
	}
}

func TestLoadCommitsAndGet(t *testing.T) {
	m := writeConfig(t, "config.yaml", `
logging:
  level: WARN
`)
	cfg, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get should return the committed config")
	}
}
