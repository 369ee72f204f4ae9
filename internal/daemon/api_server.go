package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"revoice/internal/config"
	"revoice/internal/jobs"
	"revoice/internal/logging"
)

// maxUploadMemory bounds the multipart parser's in-memory buffer; larger
// uploads spill to temp files.
const maxUploadMemory = 32 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address required")
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.WithComponent(logger, "api"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/localize", srv.handleSubmit)
	mux.HandleFunc("/localize/status/", srv.handleStatus)
	mux.HandleFunc("/api/jobs", srv.handleJobs)
	mux.HandleFunc("/api/health", srv.handleHealth)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// handleSubmit accepts a multipart upload and target language, persists the
// file to the job workspace, and schedules the pipeline without waiting.
func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	targetLang := strings.TrimSpace(r.FormValue("target_lang"))
	if targetLang == "" {
		s.writeError(w, http.StatusBadRequest, "target_lang is required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	filename := filepath.Base(strings.TrimSpace(header.Filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		s.writeError(w, http.StatusBadRequest, "upload is missing a file name")
		return
	}

	job, err := s.daemon.Submit(r.Context(), filename, file, targetLang)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "submission failed")
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"message":    "Localization started",
		"video_id":   job.ID,
		"status_url": "/localize/status/" + job.ID,
	})
}

// handleStatus reports a job's externally visible state. The response shape
// depends on the lifecycle phase.
func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/localize/status/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "Job ID not found")
		return
	}

	job, err := s.daemon.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query job")
		return
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "Job ID not found")
		return
	}

	s.writeJSON(w, http.StatusOK, statusPayload(job))
}

func statusPayload(job *jobs.Job) map[string]any {
	switch job.Status {
	case jobs.StatusStarting:
		return map[string]any{"status": string(jobs.StatusStarting)}
	case jobs.StatusInProgress:
		return map[string]any{
			"status": string(jobs.StatusInProgress),
			"step":   job.Stage.Label(),
		}
	case jobs.StatusCompleted:
		return map[string]any{
			"status": string(jobs.StatusCompleted),
			"result": job.Result(),
		}
	default:
		return map[string]any{
			"status": string(jobs.StatusFailed),
			"error":  job.ErrorMessage,
		}
	}
}

type jobSummary struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	Step       string    `json:"step,omitempty"`
	Filename   string    `json:"filename"`
	TargetLang string    `json:"target_lang"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	statusFilter := jobs.Status(strings.TrimSpace(r.URL.Query().Get("status")))
	if statusFilter != "" && !statusFilter.IsValid() {
		s.writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	listed, err := s.daemon.store.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "list jobs")
		return
	}
	summaries := make([]jobSummary, 0, len(listed))
	for _, job := range listed {
		if statusFilter != "" && job.Status != statusFilter {
			continue
		}
		summary := jobSummary{
			ID:         job.ID,
			Status:     string(job.Status),
			Filename:   job.SourceFilename,
			TargetLang: job.TargetLang,
			CreatedAt:  job.CreatedAt,
			UpdatedAt:  job.UpdatedAt,
		}
		if job.Status == jobs.StatusInProgress {
			summary.Step = job.Stage.Label()
		}
		summaries = append(summaries, summary)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": summaries})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := s.daemon.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "query stats")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"dependencies": s.dependencyChecks(),
		"jobs": map[string]int{
			"total":       stats.Total,
			"starting":    stats.Starting,
			"in_progress": stats.InProgress,
			"completed":   stats.Completed,
			"failed":      stats.Failed,
		},
	})
}

// dependencyChecks reports configuration-level readiness of the services
// the pipeline needs. "ok" means the dependency is configured, not that the
// remote end is reachable.
func (s *apiServer) dependencyChecks() map[string]string {
	checks := map[string]string{
		"bucket":     "ok",
		"translator": "ok",
		"ffmpeg":     "ok",
	}
	cfg := s.daemon.cfg
	if strings.TrimSpace(cfg.S3.Bucket) == "" {
		checks["bucket"] = "bucket not configured"
	}
	if strings.TrimSpace(cfg.Translator.APIKey) == "" {
		checks["translator"] = "api key not configured"
	}
	if _, err := exec.LookPath(cfg.FFmpegBinary()); err != nil {
		checks["ffmpeg"] = "binary not found"
	}
	return checks
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
