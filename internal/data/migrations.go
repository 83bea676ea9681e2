package data

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is the DDL for the job record store. Retention/cleanup of terminal
// rows is an operational concern handled outside the service.
const schema = `
CREATE TABLE IF NOT EXISTS verification_jobs (
    id               uuid PRIMARY KEY,
    external_job_id  text,
    kind             text NOT NULL CHECK (kind IN ('verify', 'proof')),
    status           text NOT NULL CHECK (status IN ('queued', 'processing', 'completed', 'failed')),
    progress         integer NOT NULL DEFAULT 0 CHECK (progress BETWEEN 0 AND 100),
    content_hash     text NOT NULL,
    manifest_uri     text NOT NULL,
    registry_address text,
    result           jsonb,
    error_message    text,
    attempt          integer NOT NULL DEFAULT 0,
    max_attempts     integer NOT NULL DEFAULT 3 CHECK (max_attempts >= 1),
    created_at       timestamptz NOT NULL DEFAULT now(),
    started_at       timestamptz,
    completed_at     timestamptz,
    updated_at       timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_verification_jobs_status_created
    ON verification_jobs (status, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_verification_jobs_kind_created
    ON verification_jobs (kind, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_verification_jobs_stale
    ON verification_jobs (updated_at) WHERE status = 'processing';
`

// RunMigrations applies the job record store schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply verification_jobs schema: %w", err)
	}
	return nil
}
