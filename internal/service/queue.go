// Package service provides the business logic for the verification job queue.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/internet-id/verifyq/internal/core"
	domainjob "github.com/internet-id/verifyq/internal/domain/job"
	"github.com/internet-id/verifyq/internal/domain/model"
)

const (
	defaultHealthTTL   = 5 * time.Second
	healthProbeTimeout = 2 * time.Second
)

// QueueServiceOptions groups dependencies for QueueService.
type QueueServiceOptions struct {
	Repo        core.JobRepository    // Required: job record store
	Work        core.UnitOfWork       // Required: verify/proof unit-of-work
	Queue       core.QueueBackend     // Optional: nil means synchronous execution for every enqueue
	RetryPolicy domainjob.RetryPolicy // Optional: zero value gets defaults
	HealthTTL   time.Duration         // Optional: cache window for the backend health probe
	Logger      *slog.Logger          // Optional: structured logger
}

// QueueService orchestrates verification jobs: it enqueues work onto the
// queue backend when it is reachable and degrades to synchronous inline
// execution when it is not. Construct explicitly and manage with
// Start/Stop; there is no package-level instance.
type QueueService struct {
	repo      core.JobRepository
	work      core.UnitOfWork
	queue     core.QueueBackend
	policy    domainjob.RetryPolicy
	healthTTL time.Duration
	logger    *slog.Logger

	mu            sync.Mutex
	started       bool
	modeCheckedAt time.Time
	cachedMode    model.ExecutionMode
}

// NewQueueService constructs a new QueueService.
func NewQueueService(opts QueueServiceOptions) (*QueueService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Work == nil {
		return nil, errors.New("UnitOfWork is required")
	}

	policy := opts.RetryPolicy
	policy.Sanitize()

	healthTTL := opts.HealthTTL
	if healthTTL <= 0 {
		healthTTL = defaultHealthTTL
	}

	return &QueueService{
		repo:      opts.Repo,
		work:      opts.Work,
		queue:     opts.Queue,
		policy:    policy,
		healthTTL: healthTTL,
		logger:    opts.Logger,
	}, nil
}

// MustNewQueueService constructs a new QueueService and panics on error.
// Use this when the options are known to be valid (e.g., in main).
func MustNewQueueService(opts QueueServiceOptions) *QueueService {
	svc, err := NewQueueService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create QueueService: %v", err))
	}
	return svc
}

// Start marks the service ready and performs an initial backend probe so the
// first enqueue already knows its execution mode.
func (s *QueueService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("queue service already started")
	}
	s.started = true
	s.mu.Unlock()

	mode := s.resolveMode(ctx)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "queue service started", "mode", mode)
	}
	return nil
}

// Stop marks the service stopped. Subsequent enqueue calls fail.
func (s *QueueService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
}

// RetryPolicy exposes the effective retry tunables.
func (s *QueueService) RetryPolicy() domainjob.RetryPolicy {
	return s.policy
}

// EnqueueVerify submits a verification job. In async mode the caller receives
// a job id to poll; when the queue backend is unreachable the unit-of-work
// runs inline and the result (or its error) is returned directly.
func (s *QueueService) EnqueueVerify(ctx context.Context, req model.EnqueueRequest) (*model.EnqueueResult, error) {
	return s.enqueue(ctx, model.JobKindVerify, req)
}

// EnqueueProof submits a proof-bundle job with the same contract as EnqueueVerify.
func (s *QueueService) EnqueueProof(ctx context.Context, req model.EnqueueRequest) (*model.EnqueueResult, error) {
	return s.enqueue(ctx, model.JobKindProof, req)
}

func (s *QueueService) enqueue(ctx context.Context, kind model.JobKind, req model.EnqueueRequest) (*model.EnqueueResult, error) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil, errors.New("queue service is not started")
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	if s.resolveMode(ctx) == model.ExecutionModeSync {
		return s.runInline(ctx, kind, req)
	}

	job, err := s.repo.Create(ctx, core.CreateJobParams{
		Kind:        kind,
		Request:     req,
		MaxAttempts: s.policy.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("create job record: %w", err)
	}

	env := core.NewEnvelope(job)
	if pushErr := s.queue.Enqueue(ctx, env); pushErr != nil {
		// The backend went away between the health probe and the push.
		// Remove the orphan row and degrade to inline execution so the
		// caller never receives a job id that nothing will execute.
		s.dropOrphan(ctx, job.ID, pushErr)
		return s.runInline(ctx, kind, req)
	}

	if setErr := s.repo.SetExternalJobID(ctx, job.ID, env.ID); setErr != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "record external job id failed", "job_id", job.ID, "error", setErr)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job enqueued", "job_id", job.ID, "kind", kind)
	}

	return &model.EnqueueResult{
		Mode:   model.ExecutionModeAsync,
		JobID:  job.ID,
		Status: model.JobStatusQueued,
	}, nil
}

func (s *QueueService) dropOrphan(ctx context.Context, jobID string, pushErr error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, "queue push failed, falling back to sync execution",
			"job_id", jobID, "error", pushErr)
	}
	if delErr := s.repo.Delete(ctx, jobID); delErr != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "delete orphan job record failed", "job_id", jobID, "error", delErr)
	}
	s.invalidateMode()
}

// runInline executes the unit-of-work within the caller's request. No job
// record is written; errors propagate unchanged.
func (s *QueueService) runInline(ctx context.Context, kind model.JobKind, req model.EnqueueRequest) (*model.EnqueueResult, error) {
	noProgress := func(int) {}

	var (
		result []byte
		err    error
	)
	switch kind {
	case model.JobKindProof:
		result, err = s.work.BuildProof(ctx, req, noProgress)
	default:
		result, err = s.work.Verify(ctx, req, noProgress)
	}
	if err != nil {
		return nil, err
	}

	return &model.EnqueueResult{
		Mode:   model.ExecutionModeSync,
		Result: result,
	}, nil
}

// GetJobStatus returns the current record for a job. Reads have no side
// effects; repeated polls without worker activity return an unchanged record.
func (s *QueueService) GetJobStatus(ctx context.Context, id string) (*model.VerificationJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// ListJobs returns job records matching the filter, newest first.
func (s *QueueService) ListJobs(ctx context.Context, opts model.JobListOptions) ([]*model.VerificationJob, error) {
	jobs, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// GetStats returns aggregate per-status counts, plus the backend queue depth
// when the backend is reachable.
func (s *QueueService) GetStats(ctx context.Context) (*model.QueueStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get queue stats: %w", err)
	}

	if s.queue != nil && s.resolveMode(ctx) == model.ExecutionModeAsync {
		depth, depthErr := s.queue.Depth(ctx)
		if depthErr != nil {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "queue depth unavailable", "error", depthErr)
			}
		} else {
			stats.QueueDepth = &depth
		}
	}

	return stats, nil
}

// resolveMode decides between async and sync execution by probing backend
// health. The probe result is cached for a short TTL so every enqueue does
// not pay a round trip.
func (s *QueueService) resolveMode(ctx context.Context) model.ExecutionMode {
	if s.queue == nil {
		return model.ExecutionModeSync
	}

	s.mu.Lock()
	if !s.modeCheckedAt.IsZero() && time.Since(s.modeCheckedAt) < s.healthTTL {
		mode := s.cachedMode
		s.mu.Unlock()
		return mode
	}
	s.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	mode := model.ExecutionModeAsync
	if err := s.queue.Health(probeCtx); err != nil {
		mode = model.ExecutionModeSync
		if s.logger != nil {
			s.logger.WarnContext(ctx, "queue backend unreachable, using sync execution", "error", err)
		}
	}

	s.mu.Lock()
	s.cachedMode = mode
	s.modeCheckedAt = time.Now()
	s.mu.Unlock()

	return mode
}

// invalidateMode forces the next enqueue to re-probe backend health.
func (s *QueueService) invalidateMode() {
	s.mu.Lock()
	s.modeCheckedAt = time.Time{}
	s.mu.Unlock()
}
