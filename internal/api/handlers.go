package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finleyapp/finance-advisor/internal/advisor"
	"github.com/finleyapp/finance-advisor/internal/answer"
	"github.com/finleyapp/finance-advisor/internal/domain"
	"github.com/finleyapp/finance-advisor/internal/jobs"
	"github.com/finleyapp/finance-advisor/internal/source"
)

// QueryEngine answers questions; satisfied by advisor.Engine.
type QueryEngine interface {
	Ask(ctx context.Context, question string, history *answer.History) (advisor.Answer, error)
}

// ProfileStore is the slice of the profile store the handlers need.
type ProfileStore interface {
	Profile(ctx context.Context) (domain.Profile, error)
	SetMonthlyIncome(ctx context.Context, income decimal.Decimal) error
	TrackedFiles(ctx context.Context) ([]domain.TrackedFile, error)
	RemoveFile(ctx context.Context, fileID string) error
	IsTracked(ctx context.Context, fileID string) (bool, error)
}

// FileDeleter removes a file's transactions from the vector index.
type FileDeleter interface {
	DeleteByFileID(ctx context.Context, fileID string) error
}

// Handler carries the dependencies of all HTTP endpoints.
type Handler struct {
	Engine     QueryEngine
	Profiles   ProfileStore
	Index      FileDeleter
	Publisher  jobs.Publisher
	JobStore   jobs.JobStore
	Categories []domain.Category

	// UploadDir receives uploaded statement files until the worker picks
	// them up. Defaults to the OS temp dir.
	UploadDir string

	Log zerolog.Logger
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetProfile handles GET /api/profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.Profiles.Profile(r.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("load profile")
		WriteError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// UpdateProfile handles PUT /api/profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MonthlyIncome string `json:"monthly_income"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	income, err := decimal.NewFromString(req.MonthlyIncome)
	if err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid monthly_income %q", req.MonthlyIncome))
		return
	}
	if income.IsNegative() {
		WriteError(w, http.StatusBadRequest, "monthly_income must not be negative")
		return
	}
	if err := h.Profiles.SetMonthlyIncome(r.Context(), income); err != nil {
		h.Log.Error().Err(err).Msg("update income")
		WriteError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"monthly_income": income.String()})
}

// Ingest handles POST /api/ingest. The request body is the raw statement
// CSV; the filename comes from the query string. The CSV is validated up
// front so malformed uploads fail with a 400 instead of a failed job, then
// the file is handed to the job queue for asynchronous indexing.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		WriteError(w, http.StatusBadRequest, "filename query parameter is required")
		return
	}
	filename = filepath.Base(filename)

	fileID := uuid.New().String()

	dir := h.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, "upload-*.csv")
	if err != nil {
		h.Log.Error().Err(err).Msg("create upload file")
		WriteError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer f.Close()

	if _, err := f.ReadFrom(r.Body); err != nil {
		os.Remove(f.Name())
		WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if _, err := f.Seek(0, 0); err != nil {
		os.Remove(f.Name())
		h.Log.Error().Err(err).Msg("rewind upload file")
		WriteError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	records, err := source.ReadCSV(f)
	if err != nil {
		os.Remove(f.Name())
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(records) == 0 {
		os.Remove(f.Name())
		WriteError(w, http.StatusBadRequest, "no transactions in file")
		return
	}

	job := &jobs.IngestFileJob{
		FileID:    fileID,
		Filename:  filename,
		LocalPath: f.Name(),
	}
	if err := h.Publisher.PublishIngestFile(r.Context(), job); err != nil {
		os.Remove(f.Name())
		h.Log.Error().Err(err).Msg("publish ingest job")
		WriteError(w, http.StatusInternalServerError, "failed to queue ingestion")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":       job.JobID,
		"file_id":      fileID,
		"transactions": len(records),
	})
}

// GetJob handles GET /api/jobs/{jobID}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := h.JobStore.GetJob(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("job %s not found", jobID))
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// ListFiles handles GET /api/files.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.Profiles.TrackedFiles(r.Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("list files")
		WriteError(w, http.StatusInternalServerError, "failed to list files")
		return
	}
	if files == nil {
		files = []domain.TrackedFile{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"files": files,
		"count": len(files),
	})
}

// DeleteFile handles DELETE /api/files/{fileID}. Removes the file's
// transactions from the index first, then the tracking record, so a partial
// failure re-runs cleanly.
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	tracked, err := h.Profiles.IsTracked(r.Context(), fileID)
	if err != nil {
		h.Log.Error().Err(err).Msg("check file")
		WriteError(w, http.StatusInternalServerError, "failed to delete file")
		return
	}
	if !tracked {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("file %s not found", fileID))
		return
	}

	if err := h.Index.DeleteByFileID(r.Context(), fileID); err != nil {
		h.Log.Error().Err(err).Str("file_id", fileID).Msg("delete from index")
		WriteError(w, http.StatusInternalServerError, "failed to delete file transactions")
		return
	}
	if err := h.Profiles.RemoveFile(r.Context(), fileID); err != nil {
		h.Log.Error().Err(err).Str("file_id", fileID).Msg("untrack file")
		WriteError(w, http.StatusInternalServerError, "failed to delete file record")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"deleted": fileID})
}

// ListCategories handles GET /api/categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": h.Categories,
		"count":      len(h.Categories),
	})
}

type queryRequest struct {
	Question string `json:"question"`
	History  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"history,omitempty"`
}

type queryResponse struct {
	Answer   string                   `json:"answer"`
	Degraded bool                     `json:"degraded"`
	Report   domain.AggregationReport `json:"report"`
	Query    domain.Query             `json:"query"`
}

// Query handles POST /api/query. The client carries the conversation: prior
// turns ride along in the request and only the most recent ones are kept.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		WriteError(w, http.StatusBadRequest, "question is required")
		return
	}

	history := answer.NewHistory(answer.DefaultMaxHistoryTurns)
	for _, turn := range req.History {
		history.Add(turn.Role, turn.Content)
	}

	ans, err := h.Engine.Ask(r.Context(), req.Question, history)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.Log.Error().Err(err).Msg("query failed")
		WriteError(w, http.StatusInternalServerError, "failed to answer question")
		return
	}

	WriteJSON(w, http.StatusOK, queryResponse{
		Answer:   ans.Text,
		Degraded: ans.Degraded,
		Report:   ans.Report,
		Query:    ans.Query,
	})
}
