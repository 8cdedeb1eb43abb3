// internal/store/jobs.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	custom_errors "congress-data-sync/internal/errors"
	"congress-data-sync/internal/model"
)

const jobColumns = `id, resource_type, status, cursor_ts, records_fetched, records_created,
	records_updated, records_unchanged, errors, started_at, completed_at`

// CreateSyncJob opens a running job row for a resource. The partial unique
// index on running rows enforces one active run per resource; a violation
// surfaces as ErrSyncInProgress.
func (s *Postgres) CreateSyncJob(ctx context.Context, resource model.ResourceType) (model.SyncJob, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO sync_jobs (resource_type, status, started_at)
		VALUES ($1, $2, now())
		RETURNING `+jobColumns,
		string(resource), string(model.JobRunning))

	job, err := scanJob(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.SyncJob{}, &custom_errors.ErrSyncInProgress{Resource: string(resource)}
		}
		return model.SyncJob{}, fmt.Errorf("failed to create sync job: %w", err)
	}
	return job, nil
}

// FinalizeSyncJob writes the job's terminal state exactly once. The cursor
// never regresses: it only advances past the previously persisted value.
func (s *Postgres) FinalizeSyncJob(ctx context.Context, job model.SyncJob) error {
	errorsJSON, err := json.Marshal(job.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode job errors: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE sync_jobs SET
			status = $2,
			cursor_ts = GREATEST(cursor_ts, $3),
			records_fetched = $4,
			records_created = $5,
			records_updated = $6,
			records_unchanged = $7,
			errors = $8,
			completed_at = now()
		WHERE id = $1 AND status = $9`,
		job.ID, string(job.Status), nullableTime(job.Cursor),
		job.RecordsFetched, job.RecordsCreated, job.RecordsUpdated, job.RecordsUnchanged,
		errorsJSON, string(model.JobRunning))
	if err != nil {
		return fmt.Errorf("failed to finalize sync job %d: %w", job.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sync job %d is not running; already finalized?", job.ID)
	}
	return nil
}

// GetLastCompletedJob returns the most recent completed job for a resource,
// whose cursor is the resume point for incremental sync. pgx.ErrNoRows when
// the resource has never completed a run.
func (s *Postgres) GetLastCompletedJob(ctx context.Context, resource model.ResourceType) (model.SyncJob, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+jobColumns+` FROM sync_jobs
		WHERE resource_type = $1 AND status = $2
		ORDER BY completed_at DESC
		LIMIT 1`,
		string(resource), string(model.JobCompleted))
	return scanJob(row)
}

// ListRecentJobs returns all jobs started since the given instant, newest
// first. Used by the stats surface.
func (s *Postgres) ListRecentJobs(ctx context.Context, since time.Time) ([]model.SyncJob, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM sync_jobs
		WHERE started_at >= $1
		ORDER BY started_at DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.SyncJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ListJobs returns the most recently started jobs regardless of status,
// newest first. Backs the admin jobs listing.
func (s *Postgres) ListJobs(ctx context.Context, limit int) ([]model.SyncJob, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM sync_jobs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.SyncJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (model.SyncJob, error) {
	var (
		j                 model.SyncJob
		resource, status  string
		cursor, completed *time.Time
		errorsJSON        []byte
	)
	err := row.Scan(&j.ID, &resource, &status, &cursor, &j.RecordsFetched, &j.RecordsCreated,
		&j.RecordsUpdated, &j.RecordsUnchanged, &errorsJSON, &j.StartedAt, &completed)
	if err != nil {
		return model.SyncJob{}, err
	}
	j.ResourceType = model.ResourceType(resource)
	j.Status = model.JobStatus(status)
	j.Cursor = derefTime(cursor)
	j.CompletedAt = derefTime(completed)
	if len(errorsJSON) > 0 {
		if err := json.Unmarshal(errorsJSON, &j.Errors); err != nil {
			return model.SyncJob{}, fmt.Errorf("failed to decode job errors: %w", err)
		}
	}
	return j, nil
}
