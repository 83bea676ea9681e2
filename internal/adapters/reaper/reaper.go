// Package reaper recovers jobs stranded in processing after a worker crash.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/internet-id/verifyq/internal/core"
	"github.com/internet-id/verifyq/internal/domain/model"
)

const (
	defaultInterval  = time.Minute
	defaultStaleAge  = 10 * time.Minute
	defaultBatchSize = 50

	staleFailureMessage = "worker stalled and attempts are exhausted"
)

// Options groups dependencies for the Reaper.
type Options struct {
	Store     core.StaleJobStore // Required: stale-job queries on the record store
	Queue     core.QueueBackend  // Required: backend to re-push recovered jobs onto
	Interval  time.Duration      // Optional: sweep interval
	StaleAge  time.Duration      // Optional: processing age before a job counts as stranded
	BatchSize int                // Optional: max jobs recovered per sweep
	Logger    *slog.Logger       // Optional: structured logger
}

// Reaper periodically scans for processing jobs that have not been updated
// within the stale window and returns them to the queue. Recovery does not
// consume an attempt; the job simply runs again. Jobs already on their final
// attempt are failed instead of requeued so the attempt ceiling holds.
type Reaper struct {
	store     core.StaleJobStore
	queue     core.QueueBackend
	interval  time.Duration
	staleAge  time.Duration
	batchSize int
	logger    *slog.Logger
}

// New constructs a Reaper.
func New(opts Options) (*Reaper, error) {
	if opts.Store == nil {
		return nil, errors.New("StaleJobStore is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("QueueBackend is required")
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	staleAge := opts.StaleAge
	if staleAge <= 0 {
		staleAge = defaultStaleAge
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	return &Reaper{
		store:     opts.Store,
		queue:     opts.Queue,
		interval:  interval,
		staleAge:  staleAge,
		batchSize: batchSize,
		logger:    opts.Logger,
	}, nil
}

// MustNew constructs a Reaper and panics on error.
func MustNew(opts Options) *Reaper {
	r, err := New(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create Reaper: %v", err))
	}
	return r
}

// Run sweeps on the configured interval until ctx is canceled.
func (r *Reaper) Run(ctx context.Context) error {
	if r.logger != nil {
		r.logger.InfoContext(ctx, "reaper starting",
			"interval", r.interval, "stale_age", r.staleAge)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if r.logger != nil {
				r.logger.Info("reaper stopped")
			}
			return nil
		case <-ticker.C:
			if err := r.Sweep(ctx); err != nil && r.logger != nil {
				r.logger.ErrorContext(ctx, "reaper sweep failed", "error", err)
			}
		}
	}
}

// Sweep performs a single recovery pass and returns the first error it hits.
func (r *Reaper) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-r.staleAge)
	stale, err := r.store.ListStale(ctx, model.StaleJobOptions{
		Cutoff: cutoff,
		Limit:  r.batchSize,
	})
	if err != nil {
		return fmt.Errorf("list stale jobs: %w", err)
	}

	for _, job := range stale {
		// A requeue would let the next claim push attempt past the ceiling,
		// so jobs with no attempts left fail here instead.
		if job.Attempt >= job.MaxAttempts {
			failed, failErr := r.store.FailStale(ctx, job.ID, staleFailureMessage)
			if failErr != nil {
				return fmt.Errorf("fail stale job %s: %w", job.ID, failErr)
			}
			if failed && r.logger != nil {
				r.logger.ErrorContext(ctx, "stranded job failed, attempts exhausted",
					"job_id", job.ID, "kind", job.Kind, "attempt", job.Attempt)
			}
			continue
		}

		requeued, reqErr := r.store.Requeue(ctx, job.ID)
		if reqErr != nil {
			return fmt.Errorf("requeue job %s: %w", job.ID, reqErr)
		}
		if !requeued {
			// The worker finished between our scan and the requeue.
			continue
		}

		if pushErr := r.queue.Enqueue(ctx, core.NewEnvelope(job)); pushErr != nil {
			return fmt.Errorf("push recovered job %s: %w", job.ID, pushErr)
		}

		if r.logger != nil {
			r.logger.WarnContext(ctx, "stranded job recovered",
				"job_id", job.ID, "kind", job.Kind, "last_update", job.UpdatedAt)
		}
	}

	return nil
}
