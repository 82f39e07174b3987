package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ldi/pwoa/internal/comms"
	"github.com/ldi/pwoa/internal/orchestrator"
	"github.com/ldi/pwoa/pkg/models"
)

type Server struct {
	orch   *orchestrator.Orchestrator
	server *http.Server
}

func NewServer(orch *orchestrator.Orchestrator) *Server {
	return &Server{orch: orch}
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler builds the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	mux.HandleFunc("POST /api/tasks", s.handleCreateTask)
	mux.HandleFunc("GET /api/tasks/{id}", s.handleGetTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.handleDeleteTask)
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.handleCompleteTask)
	mux.HandleFunc("POST /api/tasks/{id}/cancel", s.handleCancelTask)
	mux.HandleFunc("POST /api/tasks/{id}/draft", s.handleDraftEmail)
	mux.HandleFunc("POST /api/extract", s.handleExtract)
	mux.HandleFunc("POST /api/schedule", s.handleSchedule)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/insights", s.handleInsights)

	return mux
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	var status *models.TaskStatus
	if v := r.URL.Query().Get("status"); v != "" {
		st := models.TaskStatus(v)
		status = &st
	}

	tasks, err := s.orch.GetAllTasks(r.Context(), status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	s.respond(w, tasks)
}

type createTaskRequest struct {
	Description          string   `json:"description"`
	Notes                string   `json:"notes"`
	Category             string   `json:"category"`
	Deadline             string   `json:"deadline"`
	EstimatedTimeMinutes int      `json:"estimated_time_minutes"`
	Tags                 []string `json:"tags"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Description == "" {
		http.Error(w, "description is required", http.StatusBadRequest)
		return
	}

	task := models.NewTask(req.Description, models.TaskSourceManual)
	task.Notes = req.Notes
	if models.ValidCategory(models.TaskCategory(req.Category)) {
		task.Category = models.TaskCategory(req.Category)
	}
	if req.EstimatedTimeMinutes > 0 {
		task.EstimatedTimeMinutes = req.EstimatedTimeMinutes
	}
	if len(req.Tags) > 0 {
		task.Tags = req.Tags
	}
	if req.Deadline != "" {
		deadline, err := time.Parse(time.RFC3339, req.Deadline)
		if err != nil {
			http.Error(w, "deadline must be RFC3339", http.StatusBadRequest)
			return
		}
		task.Deadline = &deadline
	}

	if err := s.orch.AddTask(r.Context(), task); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.respondStatus(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.orch.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if task == nil {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	s.respond(w, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.DeleteTask(r.Context(), r.PathValue("id")); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActualTimeMinutes int `json:"actual_time_minutes"`
	}
	// Body is optional.
	_ = json.NewDecoder(r.Body).Decode(&req)

	task, err := s.orch.CompleteTask(r.Context(), r.PathValue("id"), req.ActualTimeMinutes)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.respond(w, task)
}

func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.orch.CancelTask(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.respond(w, task)
}

func (s *Server) handleDraftEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Action == "" {
		req.Action = string(comms.ActionFollowUp)
	}

	draft, err := s.orch.DraftEmail(r.Context(), r.PathValue("id"), comms.EmailAction(req.Action))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	s.respond(w, map[string]string{"draft": draft})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text    string   `json:"text"`
		Emails  []string `json:"emails"`
		Uploads []string `json:"uploads"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	tasks, err := s.orch.RunExtraction(r.Context(), orchestrator.ExtractionInput{
		Text:    req.Text,
		Emails:  req.Emails,
		Uploads: req.Uploads,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}

	s.respondStatus(w, http.StatusCreated, tasks)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	plan, err := s.orch.RunScheduling(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.respond(w, plan)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.orch.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.respond(w, stats)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	report, err := s.orch.CompletionReport(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.respond(w, report)
}

func (s *Server) respond(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
