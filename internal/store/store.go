// internal/store/store.go

// Package store is the record-store capability: upsert-by-natural-key,
// atomic replace-on-write for child collections, sync-job audit rows, and
// append-only change-log inserts, all on Postgres via pgx.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"congress-data-sync/internal/model"
)

// Store is the persistence surface the sync services depend on. Callers
// treat pgx.ErrNoRows as "record not seen yet".
type Store interface {
	GetBillBySlug(ctx context.Context, slug string) (model.Bill, error)
	SaveBill(ctx context.Context, bill model.Bill, children model.BillChildren) (model.Bill, error)
	ListStaleBills(ctx context.Context, olderThan time.Time, limit int) ([]model.Bill, error)
	ListActiveBills(ctx context.Context, limit int) ([]model.Bill, error)

	GetMemberByBioguide(ctx context.Context, bioguideID string) (model.Member, error)
	SaveMember(ctx context.Context, member model.Member, terms []model.MemberTerm) (model.Member, error)

	GetHearingByKey(ctx context.Context, congress int, chamber, eventID string) (model.Hearing, error)
	SaveHearing(ctx context.Context, hearing model.Hearing) (model.Hearing, error)

	CreateSyncJob(ctx context.Context, resource model.ResourceType) (model.SyncJob, error)
	FinalizeSyncJob(ctx context.Context, job model.SyncJob) error
	GetLastCompletedJob(ctx context.Context, resource model.ResourceType) (model.SyncJob, error)
	ListRecentJobs(ctx context.Context, since time.Time) ([]model.SyncJob, error)
	ListJobs(ctx context.Context, limit int) ([]model.SyncJob, error)

	InsertChangeEntries(ctx context.Context, entries []model.ChangeLogEntry) (int, error)
	ListUnnotifiedChanges(ctx context.Context, limit int) ([]model.ChangeLogEntry, error)
	MarkChangesNotified(ctx context.Context, ids []int64) error
}

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var _ Store = (*Postgres)(nil)
