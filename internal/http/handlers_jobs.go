// Package httpx provides HTTP handlers and utilities for the verifyq job API.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/internet-id/verifyq/internal/domain/model"
	"github.com/internet-id/verifyq/internal/service"
)

// JobHandlers provides HTTP handlers for verification job operations.
type JobHandlers struct {
	Svc *service.QueueService
}

// enqueueResponse shapes the enqueue reply. PollURL is only present for async
// acceptance; Result only for sync execution.
type enqueueResponse struct {
	Mode    model.ExecutionMode `json:"mode"`
	JobID   string              `json:"job_id,omitempty"`
	Status  model.JobStatus     `json:"status,omitempty"`
	PollURL string              `json:"poll_url,omitempty"`
	Result  json.RawMessage     `json:"result,omitempty"`
}

// EnqueueVerify handles HTTP requests to submit a verification job.
func (h *JobHandlers) EnqueueVerify(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, h.Svc.EnqueueVerify)
}

// EnqueueProof handles HTTP requests to submit a proof-bundle job.
func (h *JobHandlers) EnqueueProof(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, h.Svc.EnqueueProof)
}

type enqueueFunc func(ctx context.Context, req model.EnqueueRequest) (*model.EnqueueResult, error)

func (h *JobHandlers) enqueue(w http.ResponseWriter, r *http.Request, submit enqueueFunc) {
	var req model.EnqueueRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation_failed", Err: err})
		return
	}

	res, err := submit(r.Context(), req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	if res.Mode == model.ExecutionModeSync {
		WriteJSON(w, http.StatusOK, enqueueResponse{
			Mode:   res.Mode,
			Result: res.Result,
		})
		return
	}

	pollURL := "/api/verification-jobs/" + res.JobID
	w.Header().Set("Location", pollURL)
	WriteJSON(w, http.StatusAccepted, enqueueResponse{
		Mode:    res.Mode,
		JobID:   res.JobID,
		Status:  res.Status,
		PollURL: pollURL,
	})
}

// GetStatus handles HTTP requests to fetch a single job record.
func (h *JobHandlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")},
		)
		return
	}

	job, err := h.Svc.GetJobStatus(r.Context(), jobID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// List handles HTTP requests to list job records with optional filters.
func (h *JobHandlers) List(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_query", Err: err})
		return
	}

	jobs, err := h.Svc.ListJobs(r.Context(), opts)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// Stats handles HTTP requests for aggregate queue statistics.
func (h *JobHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Svc.GetStats(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

func parseListOptions(r *http.Request) (model.JobListOptions, error) {
	var opts model.JobListOptions
	q := r.URL.Query()

	if v := q.Get("status"); v != "" {
		status := model.JobStatus(v)
		if !status.Valid() {
			return opts, errors.New("invalid status filter: " + v)
		}
		opts.Status = &status
	}
	if v := q.Get("kind"); v != "" {
		kind := model.JobKind(v)
		if !kind.Valid() {
			return opts, errors.New("invalid kind filter: " + v)
		}
		opts.Kind = &kind
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, errors.New("invalid since timestamp: " + v)
		}
		opts.Since = &t
	}
	if v := q.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return opts, errors.New("invalid until timestamp: " + v)
		}
		opts.Until = &t
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return opts, errors.New("invalid limit: " + v)
		}
		opts.Limit = limit
	}

	return opts, nil
}
