// Package handlers implements the HTTP endpoints for scoring and batch
// management.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/api/middleware"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/domain"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/jobs"
	"github.com/seregheik/Osasere-new-recur-scan-sub000/internal/pipeline"
)

// ScoreHandler handles synchronous scoring requests.
type ScoreHandler struct {
	svc *pipeline.Service
	log zerolog.Logger
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(svc *pipeline.Service, log zerolog.Logger) *ScoreHandler {
	return &ScoreHandler{svc: svc, log: log}
}

// maxScoreRequestTransactions bounds the synchronous path; larger sets go
// through the batch endpoints.
const maxScoreRequestTransactions = 10000

// Score handles POST /api/score. The body carries the transactions to score
// inline; the response pairs each transaction with its feature vector.
func (h *ScoreHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transactions []domain.Transaction `json:"transactions"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Transactions) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "transactions is required")
		return
	}
	if len(req.Transactions) > maxScoreRequestTransactions {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("too many transactions; limit is %d, use the batch endpoint", maxScoreRequestTransactions))
		return
	}

	scored := h.svc.ScoreTransactions(req.Transactions)

	h.log.Info().
		Int("transactions", len(req.Transactions)).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Msg("Synchronous scoring completed")

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": scored,
		"count":   len(scored),
	})
}

// BatchesHandler handles batch-related endpoints.
type BatchesHandler struct {
	publisher jobs.Publisher
	bucket    string
	log       zerolog.Logger
}

// NewBatchesHandler creates a new batches handler.
func NewBatchesHandler(publisher jobs.Publisher, bucket string, log zerolog.Logger) *BatchesHandler {
	return &BatchesHandler{
		publisher: publisher,
		bucket:    bucket,
		log:       log,
	}
}

// CreateUploadTarget handles POST /api/batches/upload-target. It reserves a
// GCS object name for the client to upload a CSV to; scoring is requested
// separately once the upload lands.
func (h *BatchesHandler) CreateUploadTarget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Filename string `json:"filename"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Filename == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Filename is required")
		return
	}

	objectName := fmt.Sprintf("batches/%s/%s", time.Now().Format("2006/01/02"), uuid.New().String()+"-"+req.Filename)
	gcsURI := fmt.Sprintf("gs://%s/%s", h.bucket, objectName)

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"gcs_uri":     gcsURI,
		"object_name": objectName,
		"bucket":      h.bucket,
	})
}

// EnqueueScoring handles POST /api/batches/score.
func (h *BatchesHandler) EnqueueScoring(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GCSURI  string `json:"gcs_uri"`
		Labeled bool   `json:"labeled"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.GCSURI == "" {
		middleware.WriteError(w, http.StatusBadRequest, "gcs_uri is required")
		return
	}

	ctx := r.Context()

	job := &jobs.ScoreBatchJob{
		GCSURI:  req.GCSURI,
		Labeled: req.Labeled,
	}

	if err := h.publisher.PublishScoreBatch(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue scoring job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue scoring job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("gcs_uri", req.GCSURI).Msg("Scoring job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":  job.JobID,
		"gcs_uri": req.GCSURI,
		"status":  string(job.Status),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		GCSURI: query.Get("gcs_uri"),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
