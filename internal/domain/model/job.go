// Package model defines the core data types shared across the verifyq service.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobKind selects which unit-of-work function a job executes.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobKind string

// JobStatus represents the lifecycle state of a verification job.
type JobStatus string

const (
	// JobKindVerify re-runs the full verification checks for a content hash.
	JobKindVerify JobKind = "verify"
	// JobKindProof assembles a portable proof bundle for a content hash.
	JobKindProof JobKind = "proof"

	// JobStatusQueued indicates a job is waiting to be picked up by a worker.
	JobStatusQueued JobStatus = "queued"
	// JobStatusProcessing indicates a worker is currently executing the job.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates the job finished and carries a result.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job exhausted its attempts.
	JobStatusFailed JobStatus = "failed"
)

// ErrJobNotFound is returned when a job lookup misses.
var ErrJobNotFound = errors.New("job not found")

// UnmarshalText implements encoding.TextUnmarshaler for JobKind to allow env parsing.
func (k *JobKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	jk := JobKind(v)
	if jk.Valid() {
		*k = jk
		return nil
	}
	return fmt.Errorf("invalid JobKind: %q", v)
}

// Valid returns true if the JobKind is valid.
func (k JobKind) Valid() bool {
	return k == JobKindVerify || k == JobKindProof
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusQueued || s == JobStatusProcessing ||
		s == JobStatusCompleted || s == JobStatusFailed
}

// Terminal returns true if no further transitions are allowed from the status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// VerificationJob is the persisted record for one verification or proof job.
//
// The (kind, content_hash, manifest_uri, registry_address) tuple is immutable
// after creation; retries re-run the same inputs. Result and ErrorMessage are
// mutually exclusive and both nil until a terminal state is reached.
type VerificationJob struct {
	ID              string          `json:"id"                         db:"id"`
	ExternalJobID   *string         `json:"external_job_id,omitempty"  db:"external_job_id"`
	Kind            JobKind         `json:"kind"                       db:"kind"`
	Status          JobStatus       `json:"status"                     db:"status"`
	Progress        int             `json:"progress"                   db:"progress"`
	ContentHash     string          `json:"content_hash"               db:"content_hash"`
	ManifestURI     string          `json:"manifest_uri"               db:"manifest_uri"`
	RegistryAddress *string         `json:"registry_address,omitempty" db:"registry_address"`
	Result          json.RawMessage `json:"result,omitempty"           db:"result"`
	ErrorMessage    *string         `json:"error_message,omitempty"    db:"error_message"`
	Attempt         int             `json:"attempt"                    db:"attempt"`
	MaxAttempts     int             `json:"max_attempts"               db:"max_attempts"`
	CreatedAt       time.Time       `json:"created_at"                 db:"created_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"       db:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"     db:"completed_at"`
	UpdatedAt       time.Time       `json:"updated_at"                 db:"updated_at"`
}

// EnqueueRequest carries the inputs for a verify or proof job.
//
// ContentHash and ManifestURI are expected to be validated and sanitized by
// the API layer; Validate only enforces presence.
type EnqueueRequest struct {
	ContentHash     string  `json:"content_hash"`
	ManifestURI     string  `json:"manifest_uri"`
	RegistryAddress *string `json:"registry_address,omitempty"`
}

// Validate checks that the required enqueue inputs are present.
func (r *EnqueueRequest) Validate() error {
	if strings.TrimSpace(r.ContentHash) == "" {
		return errors.New("content hash is required")
	}
	if strings.TrimSpace(r.ManifestURI) == "" {
		return errors.New("manifest uri is required")
	}
	return nil
}

// ExecutionMode distinguishes the two enqueue outcomes.
type ExecutionMode string

const (
	// ExecutionModeAsync means the job was queued and the caller must poll.
	ExecutionModeAsync ExecutionMode = "async"
	// ExecutionModeSync means the unit-of-work ran inline and the result is returned directly.
	ExecutionModeSync ExecutionMode = "sync"
)

// EnqueueResult is the response of enqueueVerify/enqueueProof.
//
// Exactly one of (JobID) or (Result) is set, matching Mode.
type EnqueueResult struct {
	Mode   ExecutionMode   `json:"mode"`
	JobID  string          `json:"job_id,omitempty"`
	Status JobStatus       `json:"status,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// JobListOptions filters and paginates job listings.
// Results are ordered by created_at descending.
type JobListOptions struct {
	Status *JobStatus
	Kind   *JobKind
	Since  *time.Time
	Until  *time.Time
	Limit  int
}

// StaleJobOptions selects processing jobs with no update since the cutoff.
type StaleJobOptions struct {
	Cutoff time.Time
	Limit  int
}

// QueueStats aggregates job counts per status plus backend-level depth when
// the queue backend is reachable.
type QueueStats struct {
	Queued     int  `json:"queued"`
	Processing int  `json:"processing"`
	Completed  int  `json:"completed"`
	Failed     int  `json:"failed"`
	QueueDepth *int `json:"queue_depth,omitempty"`
}
