// Package core defines the ports between the queue service and its
// collaborators. Service implementations depend on these interfaces, not on
// concrete adapters.
package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/internet-id/verifyq/internal/domain/model"
)

// ErrEntryNotFound is returned by ChainResolver when a content hash has no
// registry entry. Callers treat it as a logical outcome, not an execution
// failure.
var ErrEntryNotFound = errors.New("registry entry not found")

// CreateJobParams groups the inputs for creating a job record.
type CreateJobParams struct {
	Kind        model.JobKind
	Request     model.EnqueueRequest
	MaxAttempts int
}

// JobRepository defines the job record store operations.
//
// The record store is the single source of truth for job state. Claim is the
// only transition into processing and must be atomic: a second claim of the
// same id returns model.ErrJobNotFound.
type JobRepository interface {
	Create(ctx context.Context, params CreateJobParams) (*model.VerificationJob, error)
	GetByID(ctx context.Context, id string) (*model.VerificationJob, error)
	// Claim transitions a queued job to processing, increments its attempt
	// counter, and resets progress to zero.
	Claim(ctx context.Context, id string) (*model.VerificationJob, error)
	// SetProgress updates progress for a processing job. Writes are monotonic:
	// a value lower than the stored one is ignored.
	SetProgress(ctx context.Context, id string, progress int) error
	// SetExternalJobID records the identifier assigned by the queue backend.
	SetExternalJobID(ctx context.Context, id, externalID string) error
	// Complete stores the result payload and transitions to completed.
	Complete(ctx context.Context, id string, result []byte) (bool, error)
	// FailOrRequeue records an execution failure: the job transitions to
	// failed when its attempts are exhausted, otherwise back to queued.
	// The returned job reflects the post-transition state.
	FailOrRequeue(ctx context.Context, id, errMsg string) (*model.VerificationJob, error)
	// Delete removes a job record. Used to clean up an orphan row when the
	// queue push fails after creation.
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, opts model.JobListOptions) ([]*model.VerificationJob, error)
	Stats(ctx context.Context) (*model.QueueStats, error)
}

// JobEnvelope is the message pushed through the queue backend. The record
// store carries the job inputs; the envelope only identifies the work.
type JobEnvelope struct {
	ID      string        `json:"id"`
	JobID   string        `json:"job_id"`
	Kind    model.JobKind `json:"kind"`
	Attempt int           `json:"attempt"`
}

// StaleJobStore lists and recovers processing jobs whose worker stopped
// updating them, typically after a crash mid-execution.
type StaleJobStore interface {
	ListStale(ctx context.Context, opts model.StaleJobOptions) ([]*model.VerificationJob, error)
	// Requeue returns a stalled processing job to queued without consuming
	// an attempt. Reports whether the row transitioned.
	Requeue(ctx context.Context, id string) (bool, error)
	// FailStale transitions a stalled processing job with no attempts left
	// directly to failed. Reports whether the row transitioned.
	FailStale(ctx context.Context, id, errMsg string) (bool, error)
}

// NewEnvelope builds an envelope for a job record with a fresh message id.
func NewEnvelope(job *model.VerificationJob) JobEnvelope {
	return JobEnvelope{
		ID:      uuid.NewString(),
		JobID:   job.ID,
		Kind:    job.Kind,
		Attempt: job.Attempt,
	}
}

// QueueBackend is a durable FIFO job channel with delayed re-entry support.
// It may be entirely absent at runtime; the service degrades to synchronous
// execution in that case.
type QueueBackend interface {
	Enqueue(ctx context.Context, env JobEnvelope) error
	// EnqueueDelayed schedules an envelope to become ready after the delay.
	EnqueueDelayed(ctx context.Context, env JobEnvelope, delay time.Duration) error
	// Dequeue blocks up to wait for the next ready envelope and returns
	// (nil, nil) when the wait elapses without work.
	Dequeue(ctx context.Context, wait time.Duration) (*JobEnvelope, error)
	Depth(ctx context.Context) (int, error)
	Health(ctx context.Context) error
}

// ProgressFunc reports unit-of-work progress as a percentage in [0, 100].
type ProgressFunc func(progress int)

// UnitOfWork is the wrapped verify/proof logic. Implementations enforce their
// own timeouts on external calls; a returned error is an execution failure
// (retried), while a negative verification outcome is a successful result.
type UnitOfWork interface {
	Verify(ctx context.Context, req model.EnqueueRequest, progress ProgressFunc) ([]byte, error)
	BuildProof(ctx context.Context, req model.EnqueueRequest, progress ProgressFunc) ([]byte, error)
}

// ManifestFetcher retrieves a manifest document by URI (https or ipfs).
type ManifestFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// ChainResolver looks up registry entries from the on-chain verifier.
type ChainResolver interface {
	// EntryByHash returns the registry entry for a content hash, or
	// ErrEntryNotFound when the hash is not registered.
	EntryByHash(ctx context.Context, contentHash string, registryAddress *string) (*model.ChainEntry, error)
}
