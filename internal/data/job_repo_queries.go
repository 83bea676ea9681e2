package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/internet-id/verifyq/internal/errors"

	"github.com/internet-id/verifyq/internal/domain/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// List returns job records matching the given filters, ordered by created_at
// descending.
func (r *JobRepo) List(
	ctx context.Context,
	opts model.JobListOptions,
) ([]*model.VerificationJob, error) {
	query, args := buildListQuery(opts)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	jobs := make([]*model.VerificationJob, 0)
	for rows.Next() {
		job, scanErr := scanJobFromRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan job row: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate job rows: %w", rowsErr)
	}

	return jobs, nil
}

func buildListQuery(opts model.JobListOptions) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT " + jobColumns + " FROM verification_jobs")

	var conditions []string
	var args []any

	appendCondition := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, clause+" $"+strconv.Itoa(len(args)))
	}

	if opts.Status != nil {
		appendCondition("status =", *opts.Status)
	}
	if opts.Kind != nil {
		appendCondition("kind =", *opts.Kind)
	}
	if opts.Since != nil {
		appendCondition("created_at >=", opts.Since.UTC())
	}
	if opts.Until != nil {
		appendCondition("created_at <=", opts.Until.UTC())
	}

	if len(conditions) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	args = append(args, limit)
	sb.WriteString(" ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args)))

	return sb.String(), args
}

// Stats returns aggregate job counts per status. Queue depth is filled in by
// the service layer when the queue backend is reachable.
func (r *JobRepo) Stats(ctx context.Context) (*model.QueueStats, error) {
	var s model.QueueStats
	err := r.DB.QueryRowContext(ctx, `
  SELECT
    count(*) FILTER (WHERE status = 'queued')     AS queued,
    count(*) FILTER (WHERE status = 'processing') AS processing,
    count(*) FILTER (WHERE status = 'completed')  AS completed,
    count(*) FILTER (WHERE status = 'failed')     AS failed
  FROM verification_jobs
  `).Scan(
		&s.Queued,
		&s.Processing,
		&s.Completed,
		&s.Failed,
	)
	if err != nil {
		return nil, fmt.Errorf("get job stats: %w", apperrors.MapDBError(err))
	}
	return &s, nil
}

// ListStale returns processing jobs whose last update is older than the
// cutoff. Used by the reaper to detect stuck jobs.
func (r *JobRepo) ListStale(ctx context.Context, opts model.StaleJobOptions) ([]*model.VerificationJob, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM verification_jobs
		WHERE status = 'processing' AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2
	`, opts.Cutoff.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list stale jobs: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	jobs := make([]*model.VerificationJob, 0)
	for rows.Next() {
		job, scanErr := scanJobFromRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan stale job row: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("iterate stale job rows: %w", rowsErr)
	}

	return jobs, nil
}

// Requeue returns a stalled processing job to queued without consuming an
// attempt. Only the reaper calls this; a worker that is actually still
// running the job will find its later Complete/FailOrRequeue a no-op.
func (r *JobRepo) Requeue(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE verification_jobs
		SET status = 'queued',
		    progress = 0,
		    updated_at = $2
		WHERE id = $1 AND status = 'processing'
	`, id, r.timeProvider.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("requeue job: %w", apperrors.MapDBError(err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("requeue rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// FailStale transitions a stalled processing job straight to failed. Used by
// the reaper for jobs that have no attempts left, since a requeue would let
// the next claim push attempt past max_attempts.
func (r *JobRepo) FailStale(ctx context.Context, id, errMsg string) (bool, error) {
	if errMsg == "" {
		return false, errors.New("error message required")
	}

	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE verification_jobs
		SET status = 'failed',
		    error_message = $2,
		    progress = 0,
		    completed_at = $3,
		    updated_at = $3
		WHERE id = $1 AND status = 'processing'
	`, id, errMsg, now)
	if err != nil {
		return false, fmt.Errorf("fail stale job: %w", apperrors.MapDBError(err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("fail stale rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}
