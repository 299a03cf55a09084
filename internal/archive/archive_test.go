package archive

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Medhaswini118/DeepFake-Scheduler/internal/eventbus"
	"github.com/Medhaswini118/DeepFake-Scheduler/internal/scheduler"
	logx "github.com/Medhaswini118/DeepFake-Scheduler/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none"} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("driver %q: %v", driver, err)
		}
		if st != nil {
			t.Fatalf("driver %q: expected nil store", driver)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestFileStoreAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}

	entries := []Entry{
		{At: time.Now(), JobID: "a1", Event: "job.completed", Status: "done", Worker: 1, Attempts: 1, TookMS: 12},
		{At: time.Now(), JobID: "b2", Event: "job.requeued", Status: "queued", Error: "stuck"},
	}
	for _, e := range entries {
		if err := st.AppendJob(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	// Writes after close must fail.
	if err := st.AppendJob(context.Background(), Entry{JobID: "c3"}); err == nil {
		t.Fatal("append after close should fail")
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var got []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		got = append(got, e)
	}
	if len(got) != 2 {
		t.Fatalf("lines = %d, want 2", len(got))
	}
	if got[0].JobID != "a1" || got[0].Event != "job.completed" || got[0].TookMS != 12 {
		t.Fatalf("entry 0 = %+v", got[0])
	}
	if got[1].Error != "stuck" {
		t.Fatalf("entry 1 = %+v", got[1])
	}
}

func TestFileStoreRequiresPath(t *testing.T) {
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestRecorderWritesJobEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	bus := eventbus.New()
	rec := NewRecorder(st, bus, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = rec.Run(ctx)
		close(done)
	}()

	// Give the recorder a moment to subscribe before publishing.
	time.Sleep(20 * time.Millisecond)
	bus.Publish(eventbus.Event{Topic: eventbus.JobCompleted, Data: scheduler.JobEvent{
		ID: "a1", Status: scheduler.StatusDone, Worker: 2, Attempts: 1, Duration: 30 * time.Millisecond,
	}})
	// Not a job topic: filtered out at subscribe time.
	bus.Publish(eventbus.Event{Topic: "config.reloaded", Data: "ignored"})
	// Job topic, but not a JobEvent payload: skipped by the recorder.
	bus.Publish(eventbus.Event{Topic: eventbus.JobClaimed, Data: "wrong type, ignored"})

	deadline := time.Now().Add(2 * time.Second)
	var lines int
	for time.Now().Before(deadline) {
		if b, err := os.ReadFile(path); err == nil {
			lines = 0
			for _, c := range b {
				if c == '\n' {
					lines++
				}
			}
			if lines >= 1 {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	if lines != 1 {
		t.Fatalf("archived lines = %d, want 1", lines)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var e Entry
	if err := json.Unmarshal(b[:len(b)-1], &e); err != nil {
		t.Fatal(err)
	}
	if e.JobID != "a1" || e.Event != "job.completed" || e.Worker != 2 || e.TookMS != 30 {
		t.Fatalf("entry = %+v", e)
	}
}
