package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	apperrors "github.com/internet-id/verifyq/internal/errors"

	"github.com/internet-id/verifyq/internal/core"
	"github.com/internet-id/verifyq/internal/domain/model"
)

// Create inserts a new job record in state queued.
func (r *JobRepo) Create(
	ctx context.Context,
	params core.CreateJobParams,
) (*model.VerificationJob, error) {
	if !params.Kind.Valid() {
		return nil, fmt.Errorf("invalid job kind: %s", params.Kind)
	}
	if validateErr := params.Request.Validate(); validateErr != nil {
		return nil, validateErr
	}
	if params.MaxAttempts < 1 {
		return nil, errors.New("max attempts must be >= 1")
	}

	now := r.timeProvider.Now().UTC()
	row := r.DB.QueryRowContext(ctx, `
      INSERT INTO verification_jobs(id, kind, status, progress, content_hash, manifest_uri, registry_address, attempt, max_attempts, created_at, updated_at)
      VALUES ($1, $2, 'queued', 0, $3, $4, $5, 0, $6, $7, $7)
      RETURNING `+jobColumns,
		uuid.NewString(),
		params.Kind,
		params.Request.ContentHash,
		params.Request.ManifestURI,
		params.Request.RegistryAddress,
		params.MaxAttempts,
		now,
	)

	job, err := scanJobFromRow(row)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", apperrors.MapDBError(err))
	}
	return job, nil
}

// GetByID retrieves a job by its ID.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.VerificationJob, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM verification_jobs
		WHERE id = $1
	`, id)

	job, err := scanJobFromRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", apperrors.MapDBError(err))
	}
	return job, nil
}

// Claim atomically transitions a queued job to processing, incrementing its
// attempt counter and resetting progress. Only the claiming worker mutates
// the record afterwards; a concurrent claim of the same id finds no row.
func (r *JobRepo) Claim(ctx context.Context, id string) (*model.VerificationJob, error) {
	now := r.timeProvider.Now().UTC()
	row := r.DB.QueryRowContext(ctx, `
		UPDATE verification_jobs
		SET status = 'processing',
		    attempt = attempt + 1,
		    progress = 0,
		    started_at = COALESCE(started_at, $2),
		    updated_at = $2
		WHERE id = $1 AND status = 'queued'
		RETURNING `+jobColumns,
		id, now,
	)

	job, err := scanJobFromRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", apperrors.MapDBError(err))
	}
	return job, nil
}

// SetProgress updates the progress of a processing job. Writes are monotonic
// within an episode: a lower value than the stored one is ignored.
func (r *JobRepo) SetProgress(ctx context.Context, id string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	_, err := r.DB.ExecContext(ctx, `
		UPDATE verification_jobs
		SET progress = GREATEST(progress, $2),
		    updated_at = $3
		WHERE id = $1 AND status = 'processing'
	`, id, progress, r.timeProvider.Now().UTC())
	if err != nil {
		return fmt.Errorf("set progress: %w", apperrors.MapDBError(err))
	}
	return nil
}

// SetExternalJobID records the identifier assigned by the queue backend.
func (r *JobRepo) SetExternalJobID(ctx context.Context, id, externalID string) error {
	if strings.TrimSpace(externalID) == "" {
		return errors.New("external job id is required")
	}

	_, err := r.DB.ExecContext(ctx, `
		UPDATE verification_jobs
		SET external_job_id = $2,
		    updated_at = $3
		WHERE id = $1
	`, id, externalID, r.timeProvider.Now().UTC())
	if err != nil {
		return fmt.Errorf("set external job id: %w", apperrors.MapDBError(err))
	}
	return nil
}

// Complete stores the result payload and marks the job completed. Returns
// false when the job was not in processing state.
func (r *JobRepo) Complete(ctx context.Context, id string, result []byte) (bool, error) {
	if len(result) == 0 {
		return false, errors.New("result payload is required")
	}

	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE verification_jobs
		SET status = 'completed',
		    progress = 100,
		    result = $2,
		    error_message = NULL,
		    completed_at = $3,
		    updated_at = $3
		WHERE id = $1 AND status = 'processing'
	`, id, result, now)
	if err != nil {
		return false, fmt.Errorf("complete job: %w", apperrors.MapDBError(err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// FailOrRequeue records an execution failure on a processing job. When the
// attempt count has reached max_attempts the job transitions to failed with
// the error message stored; otherwise it returns to queued for a delayed
// re-entry. Returns the post-transition record.
func (r *JobRepo) FailOrRequeue(ctx context.Context, id, errMsg string) (*model.VerificationJob, error) {
	if errMsg == "" {
		return nil, errors.New("error message required")
	}

	now := r.timeProvider.Now().UTC()
	row := r.DB.QueryRowContext(ctx, `
		UPDATE verification_jobs
		SET status = CASE WHEN attempt >= max_attempts THEN 'failed' ELSE 'queued' END,
		    error_message = CASE WHEN attempt >= max_attempts THEN $2 ELSE NULL END,
		    progress = 0,
		    completed_at = CASE WHEN attempt >= max_attempts THEN $3::timestamptz ELSE NULL END,
		    updated_at = $3
		WHERE id = $1 AND status = 'processing'
		RETURNING `+jobColumns,
		id, errMsg, now,
	)

	job, err := scanJobFromRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fail job: %w", apperrors.MapDBError(err))
	}
	return job, nil
}

// Delete removes a job record unconditionally. Only used to clean up an
// orphan queued row after a failed queue push.
func (r *JobRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM verification_jobs
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", apperrors.MapDBError(err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.ErrJobNotFound
	}
	return nil
}
