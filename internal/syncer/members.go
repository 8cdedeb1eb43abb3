// internal/syncer/members.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"congress-data-sync/internal/congress"
	custom_errors "congress-data-sync/internal/errors"
	"congress-data-sync/internal/metrics"
	"congress-data-sync/internal/model"
	"congress-data-sync/internal/ratemon"
	"congress-data-sync/internal/store"
)

// MemberSyncer mirrors the member collection. Same loop shape as bills but
// a single detail fetch per record and terms as the only child collection.
type MemberSyncer struct {
	store   store.Store
	api     CongressAPI
	monitor *ratemon.Monitor
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewMemberSyncer wires a member syncer from its collaborators.
func NewMemberSyncer(st store.Store, api CongressAPI, monitor *ratemon.Monitor, cfg Config, logger *slog.Logger) *MemberSyncer {
	return &MemberSyncer{
		store:   st,
		api:     api,
		monitor: monitor,
		cfg:     cfg,
		logger:  logger.With("resource", model.ResourceMembers),
		now:     time.Now,
	}
}

func (s *MemberSyncer) ResourceType() model.ResourceType { return model.ResourceMembers }

// Sync runs one pass over members updated since the resolved fromDate. The
// stale and priority strategies have no member-specific working set and fall
// back to incremental.
func (s *MemberSyncer) Sync(ctx context.Context, opts Options) (model.SyncResult, error) {
	start := s.now()
	res := model.SyncResult{ResourceType: model.ResourceMembers}

	fromDate := opts.FromDate
	if fromDate.IsZero() && opts.Strategy != model.StrategyFull {
		job, err := s.store.GetLastCompletedJob(ctx, model.ResourceMembers)
		switch {
		case errors.Is(err, pgx.ErrNoRows) || (err == nil && job.Cursor.IsZero()):
			fromDate = s.now().Add(-s.cfg.LookbackWindow)
		case err != nil:
			return res, &custom_errors.FatalError{Resource: string(model.ResourceMembers), Err: err}
		default:
			fromDate = job.Cursor
		}
	}
	s.logger.Info("Starting member sync", "strategy", opts.Strategy, "from_date", fromDate)

	latest := fromDate
	offset := 0

pages:
	for {
		if !withinBudget(s.monitor, s.cfg, 1) {
			res.SafetyStopped = true
			break
		}
		if err := throttleIfNeeded(ctx, s.monitor, s.logger); err != nil {
			return res, err
		}

		page, err := s.api.ListMembers(ctx, congress.ListOptions{
			Offset:       offset,
			Limit:        s.cfg.PageSize,
			FromDateTime: fromDate,
		})
		if err != nil {
			return res, &custom_errors.FatalError{Resource: string(model.ResourceMembers), Err: err}
		}
		if len(page.Items) == 0 {
			break
		}

		for _, item := range page.Items {
			if opts.Limit > 0 && res.RecordsFetched >= opts.Limit {
				break pages
			}
			if !withinBudget(s.monitor, s.cfg, 1) {
				res.SafetyStopped = true
				break pages
			}

			res.RecordsFetched++
			if err := s.syncOne(ctx, item, &res); err != nil {
				res.Errors = appendError(res.Errors, item.BioguideID, err)
				metrics.IncRecordSynced(string(model.ResourceMembers), "error")
				s.logger.Error("Failed to sync member", "bioguide_id", item.BioguideID, "error", err)
				continue
			}
			if item.UpdateDate.After(latest) {
				latest = item.UpdateDate
			}
		}

		if !page.Pagination.HasNext {
			break
		}
		offset += len(page.Items)
	}

	res.Cursor = latest
	res.Duration = s.now().Sub(start)
	s.logger.Info("Member sync finished", "fetched", res.RecordsFetched, "errors", len(res.Errors))
	return res, nil
}

func (s *MemberSyncer) syncOne(ctx context.Context, item model.Member, res *model.SyncResult) error {
	prev, err := s.store.GetMemberByBioguide(ctx, item.BioguideID)
	isNew := errors.Is(err, pgx.ErrNoRows)
	if err != nil && !isNew {
		return fmt.Errorf("failed to load stored member: %w", err)
	}

	detail, terms, err := s.api.GetMember(ctx, item.BioguideID)
	if err != nil {
		return fmt.Errorf("failed to fetch member detail: %w", err)
	}

	if _, err := s.store.SaveMember(ctx, *detail, terms); err != nil {
		return fmt.Errorf("failed to save member: %w", err)
	}

	switch {
	case isNew:
		res.RecordsCreated++
		metrics.IncRecordSynced(string(model.ResourceMembers), "created")
	case detail.UpdateDate.After(prev.UpdateDate):
		res.RecordsUpdated++
		metrics.IncRecordSynced(string(model.ResourceMembers), "updated")
	default:
		res.RecordsUnchanged++
		metrics.IncRecordSynced(string(model.ResourceMembers), "unchanged")
	}
	return nil
}
