// internal/syncer/hearings.go
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

// HearingSyncer mirrors the hearing collection for the target congress.
// The upstream list has no fromDateTime filter, so items older than the
// resolved cursor are skipped client-side.
type HearingSyncer struct {
	store   store.Store
	api     CongressAPI
	monitor *ratemon.Monitor
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewHearingSyncer wires a hearing syncer from its collaborators.
func NewHearingSyncer(st store.Store, api CongressAPI, monitor *ratemon.Monitor, cfg Config, logger *slog.Logger) *HearingSyncer {
	return &HearingSyncer{
		store:   st,
		api:     api,
		monitor: monitor,
		cfg:     cfg,
		logger:  logger.With("resource", model.ResourceHearings),
		now:     time.Now,
	}
}

func (s *HearingSyncer) ResourceType() model.ResourceType { return model.ResourceHearings }

// Sync runs one pass over hearings, skipping items not updated since the
// resolved fromDate unless the strategy is full.
func (s *HearingSyncer) Sync(ctx context.Context, opts Options) (model.SyncResult, error) {
	start := s.now()
	res := model.SyncResult{ResourceType: model.ResourceHearings}

	fromDate := opts.FromDate
	if fromDate.IsZero() && opts.Strategy != model.StrategyFull {
		job, err := s.store.GetLastCompletedJob(ctx, model.ResourceHearings)
		switch {
		case errors.Is(err, pgx.ErrNoRows) || (err == nil && job.Cursor.IsZero()):
			fromDate = s.now().Add(-s.cfg.LookbackWindow)
		case err != nil:
			return res, &custom_errors.FatalError{Resource: string(model.ResourceHearings), Err: err}
		default:
			fromDate = job.Cursor
		}
	}
	s.logger.Info("Starting hearing sync", "strategy", opts.Strategy, "from_date", fromDate)

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

		page, err := s.api.ListHearings(ctx, congress.ListOptions{
			Congress: s.cfg.TargetCongress,
			Offset:   offset,
			Limit:    s.cfg.PageSize,
		})
		if err != nil {
			return res, &custom_errors.FatalError{Resource: string(model.ResourceHearings), Err: err}
		}
		if len(page.Items) == 0 {
			break
		}

		for _, item := range page.Items {
			if opts.Limit > 0 && res.RecordsFetched >= opts.Limit {
				break pages
			}
			if !fromDate.IsZero() && !item.UpdateDate.IsZero() && item.UpdateDate.Before(fromDate) {
				continue
			}
			if !withinBudget(s.monitor, s.cfg, 1) {
				res.SafetyStopped = true
				break pages
			}

			res.RecordsFetched++
			if err := s.syncOne(ctx, item, &res); err != nil {
				res.Errors = appendError(res.Errors, item.EventID, err)
				metrics.IncRecordSynced(string(model.ResourceHearings), "error")
				s.logger.Error("Failed to sync hearing", "event_id", item.EventID, "error", err)
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
	s.logger.Info("Hearing sync finished", "fetched", res.RecordsFetched, "errors", len(res.Errors))
	return res, nil
}

func (s *HearingSyncer) syncOne(ctx context.Context, item model.Hearing, res *model.SyncResult) error {
	prev, err := s.store.GetHearingByKey(ctx, item.Congress, item.Chamber, item.EventID)
	isNew := errors.Is(err, pgx.ErrNoRows)
	if err != nil && !isNew {
		return fmt.Errorf("failed to load stored hearing: %w", err)
	}

	detail, err := s.api.GetHearing(ctx, item.Congress, item.Chamber, item.EventID)
	if err != nil {
		return fmt.Errorf("failed to fetch hearing detail: %w", err)
	}

	if _, err := s.store.SaveHearing(ctx, *detail); err != nil {
		return fmt.Errorf("failed to save hearing: %w", err)
	}

	switch {
	case isNew:
		res.RecordsCreated++
		metrics.IncRecordSynced(string(model.ResourceHearings), "created")
	case detail.UpdateDate.After(prev.UpdateDate):
		res.RecordsUpdated++
		metrics.IncRecordSynced(string(model.ResourceHearings), "updated")
	default:
		res.RecordsUnchanged++
		metrics.IncRecordSynced(string(model.ResourceHearings), "unchanged")
	}
	return nil
}
