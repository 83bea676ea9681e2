// Package data provides persistence and queue adapters backing the core ports.
package data

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/internet-id/verifyq/internal/domain/model"
)

// RepoConfig holds configuration options for the job repository.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo provides database operations for verification job records.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const jobColumns = `
  id,
  external_job_id,
  kind,
  status,
  progress,
  content_hash,
  manifest_uri,
  registry_address,
  result,
  error_message,
  attempt,
  max_attempts,
  created_at,
  started_at,
  completed_at,
  updated_at
`

type jobRowScanner interface {
	Scan(dest ...any) error
}

type jobRowData struct {
	externalJobID, registryAddress, errorMessage sql.NullString
	result                                       []byte
	startedAt, completedAt                       sql.NullTime
}

func (d *jobRowData) scanInto(scanner jobRowScanner, job *model.VerificationJob) error {
	return scanner.Scan(
		&job.ID,
		&d.externalJobID,
		&job.Kind,
		&job.Status,
		&job.Progress,
		&job.ContentHash,
		&job.ManifestURI,
		&d.registryAddress,
		&d.result,
		&d.errorMessage,
		&job.Attempt,
		&job.MaxAttempts,
		&job.CreatedAt,
		&d.startedAt,
		&d.completedAt,
		&job.UpdatedAt,
	)
}

func (d *jobRowData) apply(job *model.VerificationJob) {
	if len(d.result) > 0 {
		job.Result = append([]byte(nil), d.result...)
	}
	job.ExternalJobID = cloneNullableString(d.externalJobID)
	job.RegistryAddress = cloneNullableString(d.registryAddress)
	job.ErrorMessage = cloneNullableString(d.errorMessage)
	job.StartedAt = cloneNullableTime(d.startedAt)
	job.CompletedAt = cloneNullableTime(d.completedAt)
}

func scanJobFromRow(scanner jobRowScanner) (*model.VerificationJob, error) {
	job := &model.VerificationJob{}
	var data jobRowData
	if err := data.scanInto(scanner, job); err != nil {
		return nil, err
	}

	data.apply(job)
	return job, nil
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
