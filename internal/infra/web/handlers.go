package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"face-insight-backend/internal/domain"
	"face-insight-backend/internal/domain/model"
	"face-insight-backend/internal/infra/storage"
)

type jobResponse struct {
	ID            string           `json:"id"`
	Status        string           `json:"status"`
	ImageCount    int              `json:"image_count"`
	Aggregate     *model.Aggregate `json:"aggregate"`
	FailureReason *string          `json:"failure_reason"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func toJobResponse(job *model.AnalysisJob) jobResponse {
	resp := jobResponse{
		ID:         job.ID,
		Status:     string(job.Status),
		ImageCount: len(job.ImagePaths),
		Aggregate:  job.Aggregate,
		CreatedAt:  job.CreatedAt,
		UpdatedAt:  job.UpdatedAt,
	}
	if job.FailureReason != "" {
		resp.FailureReason = &job.FailureReason
	}
	return resp
}

// handleUpload accepts multipart images, stores them and creates a pending
// job from the saved manifest.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}
	for _, fh := range files {
		if !storage.ValidName(fh.Filename) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid file type: %s", fh.Filename))
			return
		}
	}

	batchID := uuid.NewString()
	paths := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			_ = s.files.RemoveBatch(batchID)
			writeError(w, http.StatusInternalServerError, "could not read upload")
			return
		}
		path, err := s.files.Save(batchID, fh.Filename, f)
		_ = f.Close()
		if err != nil {
			_ = s.files.RemoveBatch(batchID)
			s.writeDomainError(w, err)
			return
		}
		paths = append(paths, path)
	}

	job, err := s.analysisUC.Create(r.Context(), paths)
	if err != nil {
		_ = s.files.RemoveBatch(batchID)
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"job_id":      job.ID,
		"image_count": len(paths),
		"message":     fmt.Sprintf("uploaded %d images; start analysis via POST /api/v1/jobs/%s/start", len(paths), job.ID),
	})
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ImagePaths []string `json:"image_paths"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	job, err := s.analysisUC.Create(r.Context(), req.ImagePaths)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toJobResponse(job))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := s.analysisUC.List(r.Context(), limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	type item struct {
		ID         string    `json:"id"`
		Status     string    `json:"status"`
		ImageCount int       `json:"image_count"`
		TotalFaces int       `json:"total_faces"`
		CreatedAt  time.Time `json:"created_at"`
	}
	out := make([]item, 0, len(jobs))
	for _, j := range jobs {
		it := item{
			ID:         j.ID,
			Status:     string(j.Status),
			ImageCount: len(j.ImagePaths),
			CreatedAt:  j.CreatedAt,
		}
		if j.Aggregate != nil {
			it.TotalFaces = j.Aggregate.TotalFaces
		}
		out = append(out, it)
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.analysisUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.analysisUC.Start(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	if job.Status == model.JobStatusCompleted {
		writeJSON(w, http.StatusOK, map[string]any{
			"id":      job.ID,
			"status":  string(job.Status),
			"message": "analysis already completed; fetch it via GET /api/v1/jobs/" + job.ID,
		})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":      job.ID,
		"status":  string(model.JobStatusProcessing),
		"message": fmt.Sprintf("analysis started for %d images; poll GET /api/v1/jobs/%s", len(job.ImagePaths), job.ID),
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID    string `json:"job_id"`
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	exch, err := s.chatUC.Ask(r.Context(), req.JobID, req.Question)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":     exch.JobID,
		"question":   exch.Question,
		"answer":     exch.Answer,
		"created_at": exch.CreatedAt,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	history, err := s.chatUC.History(r.Context(), jobID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	type item struct {
		Question  string    `json:"question"`
		Answer    string    `json:"answer"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := make([]item, 0, len(history))
	for _, e := range history {
		out = append(out, item{Question: e.Question, Answer: e.Answer, CreatedAt: e.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "history": out})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	summary, err := s.chatUC.Summary(r.Context(), jobID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	job, err := s.analysisUC.Get(r.Context(), jobID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":   jobID,
		"summary":  summary,
		"raw_data": job.Aggregate,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, domain.ErrJobInFlight):
		writeError(w, http.StatusConflict, "analysis is already in progress")
	case errors.Is(err, domain.ErrJobNotCompleted):
		writeError(w, http.StatusBadRequest, "analysis is not completed yet")
	case errors.Is(err, domain.ErrInvalidManifest),
		errors.Is(err, domain.ErrUnsupportedImage),
		errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
