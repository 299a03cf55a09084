package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	logx "github.com/Medhaswini118/DeepFake-Scheduler/pkg/logx"
)

type submitRequest struct {
	Payload map[string]any `json:"payload"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if !s.allowSubmit() {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"detail": "rate limit exceeded"})
		return
	}

	var req submitRequest
	if r.Body != nil {
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "invalid request body"})
			return
		}
	}

	id := s.sched.Submit(req.Payload)
	writeJSON(w, http.StatusOK, map[string]any{"task_id": id})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "task_id")
	job, ok := s.sched.GetJob(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "task not found"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sched.ListJobs())
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sched.Stats())
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(dashboardHTML); err != nil {
		s.log.Debug("dashboard write failed", logx.Err(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
