package scheduler

import (
	"sync"
	"testing"
	"time"
)

func TestStoreCreateGet(t *testing.T) {
	s := NewStore()
	if err := s.Create("a1", map[string]any{"text": "hi"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	j, ok := s.Get("a1")
	if !ok {
		t.Fatal("job not found")
	}
	if j.Status != StatusQueued {
		t.Fatalf("status = %q, want %q", j.Status, StatusQueued)
	}
	if j.Attempts != 0 || j.WorkerID != nil || j.StartTime != nil || j.EndTime != nil || j.Result != nil {
		t.Fatalf("unexpected non-zero fields on fresh job: %+v", j)
	}

	if _, ok := s.Get("nope"); ok {
		t.Fatal("expected miss for unknown id")
	}
}

func TestStoreCreateDuplicateID(t *testing.T) {
	s := NewStore()
	if err := s.Create("a1", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Create("a1", nil); err == nil {
		t.Fatal("expected error on duplicate id")
	}
}

func TestStoreNilPayloadNormalized(t *testing.T) {
	s := NewStore()
	if err := s.Create("a1", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	j, _ := s.Get("a1")
	if j.Payload == nil {
		t.Fatal("payload should be an empty map, not nil")
	}
	if len(j.Payload) != 0 {
		t.Fatalf("payload = %v, want empty", j.Payload)
	}
}

func TestTryClaimSingleWinner(t *testing.T) {
	s := NewStore()
	if err := s.Create("a1", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	const racers = 16
	var wg sync.WaitGroup
	wins := make(chan int, racers)
	for w := 0; w < racers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			if _, ok := s.TryClaim("a1", worker, time.Now()); ok {
				wins <- worker
			}
		}(w)
	}
	wg.Wait()
	close(wins)

	var winners []int
	for w := range wins {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("winners = %v, want exactly one", winners)
	}

	j, _ := s.Get("a1")
	if j.Status != StatusProcessing {
		t.Fatalf("status = %q, want %q", j.Status, StatusProcessing)
	}
	if j.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", j.Attempts)
	}
	if j.WorkerID == nil || *j.WorkerID != winners[0] {
		t.Fatalf("worker_id = %v, want %d", j.WorkerID, winners[0])
	}
	if j.StartTime == nil {
		t.Fatal("start_time not set on claim")
	}
}

func TestCompleteRequiresMatchingClaim(t *testing.T) {
	s := NewStore()
	if err := s.Create("a1", nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Worker 0 claims (attempt 1), then the monitor requeues.
	if _, ok := s.TryClaim("a1", 0, time.Now()); !ok {
		t.Fatal("claim by worker 0 failed")
	}
	if !s.Requeue("a1") {
		t.Fatal("requeue failed")
	}

	// Worker 1 reclaims (attempt 2).
	if _, ok := s.TryClaim("a1", 1, time.Now()); !ok {
		t.Fatal("claim by worker 1 failed")
	}

	// Worker 0's late completion must lose.
	if s.Complete("a1", 0, 1, map[string]any{"stale": true}, time.Now()) {
		t.Fatal("stale completion should be rejected")
	}
	// So must a matching worker with the wrong attempt.
	if s.Complete("a1", 1, 1, nil, time.Now()) {
		t.Fatal("wrong-attempt completion should be rejected")
	}

	if !s.Complete("a1", 1, 2, map[string]any{"ok": true}, time.Now()) {
		t.Fatal("current claim's completion should win")
	}

	j, _ := s.Get("a1")
	if j.Status != StatusDone {
		t.Fatalf("status = %q, want %q", j.Status, StatusDone)
	}
	if j.Result == nil || j.Result["ok"] != true {
		t.Fatalf("result = %v, want the winner's result", j.Result)
	}
	if j.EndTime == nil {
		t.Fatal("end_time not set on completion")
	}

	// Done is terminal.
	if s.Requeue("a1") {
		t.Fatal("requeue of a done job should be a no-op")
	}
	if s.Complete("a1", 1, 2, nil, time.Now()) {
		t.Fatal("double completion should be rejected")
	}
}

func TestStale(t *testing.T) {
	s := NewStore()
	now := time.Now()

	for _, id := range []string{"fresh", "old", "queued"} {
		if err := s.Create(id, nil); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if _, ok := s.TryClaim("fresh", 0, now.Add(-time.Second)); !ok {
		t.Fatal("claim fresh failed")
	}
	if _, ok := s.TryClaim("old", 1, now.Add(-time.Minute)); !ok {
		t.Fatal("claim old failed")
	}

	stale := s.Stale(now, 10*time.Second)
	if len(stale) != 1 || stale[0] != "old" {
		t.Fatalf("stale = %v, want [old]", stale)
	}
}

func TestStatsIdentity(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"q1", "q2", "p1", "d1"} {
		if err := s.Create(id, nil); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if _, ok := s.TryClaim("p1", 0, time.Now()); !ok {
		t.Fatal("claim p1 failed")
	}
	if _, ok := s.TryClaim("d1", 1, time.Now()); !ok {
		t.Fatal("claim d1 failed")
	}
	if !s.Complete("d1", 1, 1, nil, time.Now()) {
		t.Fatal("complete d1 failed")
	}

	st := s.Stats(3)
	if st.Total != 4 || st.Queued != 2 || st.Processing != 1 || st.Done != 1 {
		t.Fatalf("stats = %+v", st)
	}
	if st.Total != st.Queued+st.Processing+st.Done {
		t.Fatalf("identity violated: %+v", st)
	}
	if st.Workers != 3 {
		t.Fatalf("workers = %d, want 3", st.Workers)
	}
}
