package recurring

import (
	"context"
	"sync"
	"testing"
	"time"

	logx "github.com/Medhaswini118/DeepFake-Scheduler/pkg/logx"
)

type submitRecorder struct {
	mu       sync.Mutex
	payloads []map[string]any
}

func (r *submitRecorder) submit(payload map[string]any) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
	return "id"
}

func (r *submitRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func TestValidate(t *testing.T) {
	s := New(Config{}, nil, logx.Nop())

	ok := Config{Enabled: true, Entries: []Entry{
		{Name: "five", Spec: "*/5 * * * *"},
		{Name: "six", Spec: "*/2 * * * * *"},
		{Name: "descriptor", Spec: "@hourly"},
		{Name: "every", Spec: "@every 90s"},
	}}
	if err := s.Validate(ok); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	bad := []Config{
		{Entries: []Entry{{Name: "x", Spec: "nope"}}},
		{Entries: []Entry{{Name: "", Spec: "@hourly"}}},
		{Timezone: "Not/AZone"},
	}
	for i, cfg := range bad {
		if err := s.Validate(cfg); err == nil {
			t.Fatalf("bad config %d accepted", i)
		}
	}
}

func TestEntriesFire(t *testing.T) {
	rec := &submitRecorder{}
	s := New(Config{
		Enabled: true,
		Entries: []Entry{{Name: "tick", Spec: "@every 50ms", Payload: map[string]any{"text": "probe"}}},
	}, rec.submit, logx.Nop())

	s.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	})

	deadline := time.Now().Add(2 * time.Second)
	for rec.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if rec.count() < 2 {
		t.Fatalf("fired %d times, want >= 2", rec.count())
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.payloads[0]["text"] != "probe" {
		t.Fatalf("payload = %v", rec.payloads[0])
	}
	rec.payloads[0]["mark"] = true
	if _, shared := rec.payloads[1]["mark"]; shared {
		t.Fatal("firings must not share a payload map")
	}
}

func TestDisabledDoesNotStart(t *testing.T) {
	rec := &submitRecorder{}
	s := New(Config{
		Enabled: false,
		Entries: []Entry{{Name: "tick", Spec: "@every 10ms"}},
	}, rec.submit, logx.Nop())

	s.Start()
	time.Sleep(50 * time.Millisecond)
	if rec.count() != 0 {
		t.Fatalf("disabled service fired %d times", rec.count())
	}
}

func TestApplyRestartsOnChange(t *testing.T) {
	rec := &submitRecorder{}
	s := New(Config{Enabled: false}, rec.submit, logx.Nop())
	s.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	})

	// Enabling via Apply starts the runner.
	s.Apply(Config{
		Enabled: true,
		Entries: []Entry{{Name: "tick", Spec: "@every 50ms"}},
	})

	deadline := time.Now().Add(2 * time.Second)
	for rec.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if rec.count() == 0 {
		t.Fatal("apply did not start the schedule")
	}

	// Disabling via Apply stops it.
	s.Apply(Config{Enabled: false})
	n := rec.count()
	time.Sleep(150 * time.Millisecond)
	if rec.count() > n+1 {
		t.Fatalf("schedule kept firing after disable (%d -> %d)", n, rec.count())
	}
}
