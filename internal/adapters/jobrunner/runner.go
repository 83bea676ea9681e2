// Package jobrunner implements the worker pool that executes queued
// verification jobs.
package jobrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/internet-id/verifyq/internal/core"
	domainjob "github.com/internet-id/verifyq/internal/domain/job"
	"github.com/internet-id/verifyq/internal/domain/model"
	"github.com/internet-id/verifyq/internal/observability/metrics"
)

const (
	defaultWorkers      = 3
	defaultDequeueWait  = 5 * time.Second
	dequeueErrorBackoff = 2 * time.Second
	depthSampleInterval = 15 * time.Second
)

// RunnerOptions groups dependencies for the Runner.
type RunnerOptions struct {
	Repo        core.JobRepository    // Required: job record store
	Queue       core.QueueBackend     // Required: queue backend to consume
	Work        core.UnitOfWork       // Required: verify/proof unit-of-work
	RetryPolicy domainjob.RetryPolicy // Optional: zero value gets defaults
	Workers     int                   // Optional: worker goroutine count
	DequeueWait time.Duration         // Optional: per-iteration blocking pop timeout
	Logger      *slog.Logger          // Optional: structured logger
	Metrics     *metrics.JobMetrics   // Optional: Prometheus collectors
}

// Runner consumes job envelopes from the queue backend and drives them
// through the claim/execute/complete cycle. Each envelope delivery claims its
// job record first, so duplicate deliveries are dropped instead of executed
// twice.
type Runner struct {
	repo        core.JobRepository
	queue       core.QueueBackend
	work        core.UnitOfWork
	policy      domainjob.RetryPolicy
	workers     int
	dequeueWait time.Duration
	logger      *slog.Logger
	metrics     *metrics.JobMetrics
}

// NewRunner constructs a Runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("QueueBackend is required")
	}
	if opts.Work == nil {
		return nil, errors.New("UnitOfWork is required")
	}

	policy := opts.RetryPolicy
	policy.Sanitize()

	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	dequeueWait := opts.DequeueWait
	if dequeueWait <= 0 {
		dequeueWait = defaultDequeueWait
	}

	return &Runner{
		repo:        opts.Repo,
		queue:       opts.Queue,
		work:        opts.Work,
		policy:      policy,
		workers:     workers,
		dequeueWait: dequeueWait,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}, nil
}

// MustNewRunner constructs a Runner and panics on error.
func MustNewRunner(opts RunnerOptions) *Runner {
	r, err := NewRunner(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create Runner: %v", err))
	}
	return r
}

// Run starts the worker pool and blocks until ctx is canceled. Cancellation
// aborts in-flight work; the reaper later recovers any job left in processing.
func (r *Runner) Run(ctx context.Context) error {
	if r.logger != nil {
		r.logger.InfoContext(ctx, "job runner starting", "workers", r.workers)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.workers; i++ {
		worker := i
		g.Go(func() error {
			r.workerLoop(gctx, worker)
			return nil
		})
	}
	if r.metrics != nil {
		g.Go(func() error {
			r.sampleDepth(gctx)
			return nil
		})
	}

	err := g.Wait()
	if r.logger != nil {
		r.logger.Info("job runner stopped")
	}
	return err
}

func (r *Runner) workerLoop(ctx context.Context, worker int) {
	for {
		if ctx.Err() != nil {
			return
		}

		env, err := r.queue.Dequeue(ctx, r.dequeueWait)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if r.logger != nil {
				r.logger.ErrorContext(ctx, "dequeue failed", "worker", worker, "error", err)
			}
			sleepCtx(ctx, dequeueErrorBackoff)
			continue
		}
		if env == nil {
			continue
		}

		r.process(ctx, worker, env)
	}
}

func (r *Runner) process(ctx context.Context, worker int, env *core.JobEnvelope) {
	job, err := r.repo.Claim(ctx, env.JobID)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			// Duplicate delivery or a job already past queued. Drop it.
			if r.logger != nil {
				r.logger.DebugContext(ctx, "envelope skipped, job not claimable",
					"worker", worker, "job_id", env.JobID)
			}
			return
		}
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "claim failed", "worker", worker, "job_id", env.JobID, "error", err)
		}
		return
	}

	if r.logger != nil {
		r.logger.InfoContext(ctx, "job claimed",
			"worker", worker, "job_id", job.ID, "kind", job.Kind, "attempt", job.Attempt)
	}

	started := time.Now()
	result, execErr := r.execute(ctx, job)
	if r.metrics != nil {
		r.metrics.JobDuration.WithLabelValues(string(job.Kind)).Observe(time.Since(started).Seconds())
	}

	if execErr != nil {
		r.handleFailure(ctx, worker, job, execErr)
		return
	}

	ok, completeErr := r.repo.Complete(ctx, job.ID, result)
	if completeErr != nil {
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "complete failed", "worker", worker, "job_id", job.ID, "error", completeErr)
		}
		return
	}
	if !ok {
		// The reaper requeued the job mid-flight; its next run wins.
		if r.logger != nil {
			r.logger.WarnContext(ctx, "job no longer processing, result dropped",
				"worker", worker, "job_id", job.ID)
		}
		return
	}

	r.countOutcome(job.Kind, metrics.OutcomeCompleted)
	if r.logger != nil {
		r.logger.InfoContext(ctx, "job completed",
			"worker", worker, "job_id", job.ID, "duration", time.Since(started))
	}
}

// execute runs the unit-of-work with panic recovery so one bad job cannot
// take down a worker.
func (r *Runner) execute(ctx context.Context, job *model.VerificationJob) (result []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job panicked: %v", rec)
		}
	}()

	req := model.EnqueueRequest{
		ContentHash:     job.ContentHash,
		ManifestURI:     job.ManifestURI,
		RegistryAddress: job.RegistryAddress,
	}
	progress := func(p int) {
		if progressErr := r.repo.SetProgress(ctx, job.ID, p); progressErr != nil && r.logger != nil {
			r.logger.WarnContext(ctx, "progress update failed", "job_id", job.ID, "error", progressErr)
		}
	}

	if job.Kind == model.JobKindProof {
		return r.work.BuildProof(ctx, req, progress)
	}
	return r.work.Verify(ctx, req, progress)
}

func (r *Runner) handleFailure(ctx context.Context, worker int, job *model.VerificationJob, execErr error) {
	updated, failErr := r.repo.FailOrRequeue(ctx, job.ID, execErr.Error())
	if failErr != nil {
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "record job failure failed",
				"worker", worker, "job_id", job.ID, "error", failErr)
		}
		return
	}

	if updated.Status == model.JobStatusFailed {
		r.countOutcome(job.Kind, metrics.OutcomeFailed)
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "job failed permanently",
				"worker", worker, "job_id", job.ID, "attempt", updated.Attempt, "error", execErr)
		}
		return
	}

	delay := r.policy.Backoff(updated.Attempt)
	if pushErr := r.queue.EnqueueDelayed(ctx, core.NewEnvelope(updated), delay); pushErr != nil {
		// The row stays queued; a later enqueue or operator intervention
		// gets it moving again.
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "requeue push failed",
				"worker", worker, "job_id", job.ID, "error", pushErr)
		}
		return
	}

	r.countOutcome(job.Kind, metrics.OutcomeRetried)
	if r.logger != nil {
		r.logger.WarnContext(ctx, "job requeued for retry",
			"worker", worker, "job_id", job.ID, "attempt", updated.Attempt, "delay", delay, "error", execErr)
	}
}

func (r *Runner) countOutcome(kind model.JobKind, outcome string) {
	if r.metrics != nil {
		r.metrics.JobsTotal.WithLabelValues(string(kind), outcome).Inc()
	}
}

// sampleDepth periodically publishes the backend queue depth gauge.
func (r *Runner) sampleDepth(ctx context.Context) {
	ticker := time.NewTicker(depthSampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth, err := r.queue.Depth(ctx)
			if err != nil {
				continue
			}
			r.metrics.QueueDepth.Set(float64(depth))
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
