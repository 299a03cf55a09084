package scheduler

import (
	"errors"
	"sync"
	"time"
)

var errIDTaken = errors.New("job id already in use")

// Store owns the id → Job mapping. Every read and write goes through one
// mutex so that no caller ever observes a half-updated job and so that
// claim/complete/requeue are race-free check-and-set operations.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func NewStore() *Store {
	return &Store{jobs: map[string]*Job{}}
}

// Create inserts a new job in status "queued". A nil payload is normalized
// to an empty map so handlers never see nil.
func (s *Store) Create(id string, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[id]; exists {
		return errIDTaken
	}
	s.jobs[id] = &Job{ID: id, Status: StatusQueued, Payload: payload}
	return nil
}

// Get returns a snapshot of the job, or ok=false if the id is unknown.
func (s *Store) Get(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// List returns snapshots of all jobs in map order.
func (s *Store) List() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	return out
}

// Stats counts jobs per status in a single critical section, so the
// total == queued + processing + done identity holds for every observation.
// workers is passed through from the pool configuration.
func (s *Store) Stats(workers int) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{Total: len(s.jobs), Workers: workers}
	for _, j := range s.jobs {
		switch j.Status {
		case StatusQueued:
			st.Queued++
		case StatusProcessing:
			st.Processing++
		case StatusDone:
			st.Done++
		}
	}
	return st
}

// TryClaim transitions a queued job to processing on behalf of workerID,
// recording the start time and incrementing the attempt counter.
//
// It returns a post-claim snapshot. ok=false means the job vanished or is
// not queued (already claimed, or completed); callers treat that as a
// normal race loss, not an error.
func (s *Store) TryClaim(id string, workerID int, now time.Time) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.Status != StatusQueued {
		return Job{}, false
	}
	w := workerID
	t := now
	j.Status = StatusProcessing
	j.WorkerID = &w
	j.StartTime = &t
	j.EndTime = nil
	j.Attempts++
	return *j, true
}

// Complete transitions a processing job to done, recording result and end
// time. The (workerID, attempt) pair must still match the claim that this
// completion belongs to: a worker that returns after the monitor requeued
// (or another worker reclaimed) its job loses deterministically and the
// call is a no-op.
func (s *Store) Complete(id string, workerID, attempt int, result map[string]any, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.Status != StatusProcessing {
		return false
	}
	if j.WorkerID == nil || *j.WorkerID != workerID || j.Attempts != attempt {
		return false
	}
	t := now
	j.Status = StatusDone
	j.Result = result
	j.EndTime = &t
	return true
}

// Requeue returns a processing job to queued, clearing worker and start
// time. A job completed by a racing worker between snapshot and action is
// left alone (returns false).
func (s *Store) Requeue(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.Status != StatusProcessing {
		return false
	}
	j.Status = StatusQueued
	j.WorkerID = nil
	j.StartTime = nil
	return true
}

// Stale returns ids of jobs that have been processing longer than timeout,
// as observed at now.
func (s *Store) Stale(now time.Time, timeout time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, j := range s.jobs {
		if j.Status == StatusProcessing && j.StartTime != nil && now.Sub(*j.StartTime) > timeout {
			ids = append(ids, id)
		}
	}
	return ids
}
