// internal/syncer/bills.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"congress-data-sync/internal/changes"
	"congress-data-sync/internal/congress"
	custom_errors "congress-data-sync/internal/errors"
	"congress-data-sync/internal/executor"
	"congress-data-sync/internal/metrics"
	"congress-data-sync/internal/model"
	"congress-data-sync/internal/ratemon"
	"congress-data-sync/internal/store"
)

// Event types recorded in the change log alongside field-level changes.
const (
	eventIntroduced    = "introduced"
	eventStatusChanged = "status_changed"
)

// requestsPerBill is the remote calls one bill reconciliation costs:
// detail plus five child collections.
const requestsPerBill = 6

// BillSyncer reconciles the bill collection: paginated list fetch, parallel
// per-record enrichment, upsert with replace-on-write children, and change
// detection.
type BillSyncer struct {
	store    store.Store
	api      CongressAPI
	monitor  *ratemon.Monitor
	detector *changes.Detector
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewBillSyncer wires a bill syncer from its collaborators.
func NewBillSyncer(st store.Store, api CongressAPI, monitor *ratemon.Monitor, detector *changes.Detector, cfg Config, logger *slog.Logger) *BillSyncer {
	return &BillSyncer{
		store:    st,
		api:      api,
		monitor:  monitor,
		detector: detector,
		cfg:      cfg,
		logger:   logger.With("resource", model.ResourceBills),
		now:      time.Now,
	}
}

func (s *BillSyncer) ResourceType() model.ResourceType { return model.ResourceBills }

// Sync runs one pass per the strategy in opts. Per-record failures are
// collected and skipped; only a failure to reach the remote list at all is
// returned as an error (and marks the run failed upstream).
func (s *BillSyncer) Sync(ctx context.Context, opts Options) (model.SyncResult, error) {
	switch opts.Strategy {
	case model.StrategyStale:
		return s.syncFromLocal(ctx, opts, s.listStale)
	case model.StrategyPriority:
		return s.syncFromLocal(ctx, opts, s.listActive)
	default:
		return s.syncFromRemote(ctx, opts)
	}
}

// syncFromRemote pages the remote collection filtered by fromDate. Used by
// the incremental and full strategies.
func (s *BillSyncer) syncFromRemote(ctx context.Context, opts Options) (model.SyncResult, error) {
	start := s.now()
	res := model.SyncResult{ResourceType: model.ResourceBills}

	fromDate := opts.FromDate
	if fromDate.IsZero() && opts.Strategy != model.StrategyFull {
		resolved, err := s.resolveFromDate(ctx)
		if err != nil {
			return res, &custom_errors.FatalError{Resource: string(model.ResourceBills), Err: err}
		}
		fromDate = resolved
	}
	s.logger.Info("Starting bill sync", "strategy", opts.Strategy, "from_date", fromDate, "limit", opts.Limit)

	latest := fromDate
	offset := 0

pages:
	for {
		if !withinBudget(s.monitor, s.cfg, 1) {
			res.SafetyStopped = true
			s.logger.Warn("Safety stop: hourly request budget nearly exhausted", "processed", res.RecordsFetched)
			break
		}
		if err := throttleIfNeeded(ctx, s.monitor, s.logger); err != nil {
			return res, err
		}

		page, err := s.api.ListBills(ctx, congress.ListOptions{
			Congress:     s.cfg.TargetCongress,
			Offset:       offset,
			Limit:        s.cfg.PageSize,
			FromDateTime: fromDate,
		})
		if err != nil {
			// Cannot reach the remote collection at all: run-level fatal.
			return res, &custom_errors.FatalError{Resource: string(model.ResourceBills), Err: err}
		}
		if len(page.Items) == 0 {
			break
		}

		for _, item := range page.Items {
			if opts.Limit > 0 && res.RecordsFetched >= opts.Limit {
				break pages
			}
			if !withinBudget(s.monitor, s.cfg, requestsPerBill) {
				res.SafetyStopped = true
				s.logger.Warn("Safety stop mid-page", "processed", res.RecordsFetched)
				break pages
			}

			res.RecordsFetched++
			if err := s.syncOne(ctx, item, &res); err != nil {
				res.Errors = appendError(res.Errors, item.Slug, err)
				metrics.IncRecordSynced(string(model.ResourceBills), "error")
				s.logger.Error("Failed to sync bill", "slug", item.Slug, "error", err)
				continue
			}
			// The cursor only ever covers fully processed items.
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
	s.logger.Info("Bill sync finished",
		"fetched", res.RecordsFetched, "created", res.RecordsCreated, "updated", res.RecordsUpdated,
		"unchanged", res.RecordsUnchanged, "changes", res.ChangesDetected, "errors", len(res.Errors),
		"safety_stopped", res.SafetyStopped)
	return res, nil
}

// syncFromLocal re-reconciles a working set chosen from the local store
// (stale or priority strategies). The cursor is not advanced.
func (s *BillSyncer) syncFromLocal(ctx context.Context, opts Options, list func(context.Context, Options) ([]model.Bill, error)) (model.SyncResult, error) {
	start := s.now()
	res := model.SyncResult{ResourceType: model.ResourceBills}

	bills, err := list(ctx, opts)
	if err != nil {
		return res, &custom_errors.FatalError{Resource: string(model.ResourceBills), Err: err}
	}
	s.logger.Info("Starting bill resync", "strategy", opts.Strategy, "candidates", len(bills))

	for _, b := range bills {
		if !withinBudget(s.monitor, s.cfg, requestsPerBill) {
			res.SafetyStopped = true
			break
		}
		if err := throttleIfNeeded(ctx, s.monitor, s.logger); err != nil {
			return res, err
		}

		res.RecordsFetched++
		if err := s.syncOne(ctx, b, &res); err != nil {
			res.Errors = appendError(res.Errors, b.Slug, err)
			metrics.IncRecordSynced(string(model.ResourceBills), "error")
			s.logger.Error("Failed to resync bill", "slug", b.Slug, "error", err)
		}
	}

	res.Duration = s.now().Sub(start)
	return res, nil
}

func (s *BillSyncer) listStale(ctx context.Context, opts Options) ([]model.Bill, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 200
	}
	return s.store.ListStaleBills(ctx, s.now().Add(-s.cfg.StaleThreshold), limit)
}

func (s *BillSyncer) listActive(ctx context.Context, opts Options) ([]model.Bill, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	return s.store.ListActiveBills(ctx, limit)
}

// syncOne reconciles a single bill: parallel detail + child fetches, upsert
// with atomic child replacement, then change detection and event emission.
func (s *BillSyncer) syncOne(ctx context.Context, item model.Bill, res *model.SyncResult) error {
	if item.BillType == "" || item.BillNumber == "" {
		return &custom_errors.ErrInvalidBillID{Congress: item.Congress, BillType: item.BillType, Number: item.BillNumber}
	}

	prev, err := s.store.GetBillBySlug(ctx, item.Slug)
	isNew := errors.Is(err, pgx.ErrNoRows)
	if err != nil && !isNew {
		return fmt.Errorf("failed to load stored bill: %w", err)
	}

	detail, children, err := s.fetchDetail(ctx, item)
	if err != nil {
		return err
	}

	saved, err := s.store.SaveBill(ctx, *detail, *children)
	if err != nil {
		return fmt.Errorf("failed to save bill: %w", err)
	}

	if isNew {
		res.RecordsCreated++
		metrics.IncRecordSynced(string(model.ResourceBills), "created")
		return s.recordEvent(ctx, saved, eventIntroduced, "", saved.Title,
			changes.ContentHash(eventIntroduced, saved.Slug))
	}

	detected := s.detector.Detect(changes.SnapshotOf(prev), changes.SnapshotOf(saved))
	if len(detected) == 0 {
		res.RecordsUnchanged++
		metrics.IncRecordSynced(string(model.ResourceBills), "unchanged")
		return nil
	}

	res.RecordsUpdated++
	res.ChangesDetected += len(detected)
	metrics.IncRecordSynced(string(model.ResourceBills), "updated")
	for _, c := range detected {
		metrics.IncChangeDetected(string(c.Significance))
	}

	if err := s.detector.Log(ctx, saved.ID, detected); err != nil {
		return err
	}

	for _, c := range detected {
		if c.ChangeType == changes.ChangeAction {
			hash := changes.ContentHash(eventStatusChanged, saved.Slug, saved.LatestActionDate.Format("2006-01-02"))
			if err := s.recordEvent(ctx, saved, eventStatusChanged, c.PreviousValue, c.NewValue, hash); err != nil {
				return err
			}
		}
	}
	return nil
}

// fetchDetail runs the six enrichment calls for one bill through the
// executor under the shared rate budget.
func (s *BillSyncer) fetchDetail(ctx context.Context, item model.Bill) (*model.Bill, *model.BillChildren, error) {
	ops := []executor.Operation[any]{
		func(ctx context.Context) (any, error) {
			return s.api.GetBill(ctx, item.Congress, item.BillType, item.BillNumber)
		},
		func(ctx context.Context) (any, error) {
			return s.api.GetBillActions(ctx, item.Congress, item.BillType, item.BillNumber)
		},
		func(ctx context.Context) (any, error) {
			return s.api.GetBillSubjects(ctx, item.Congress, item.BillType, item.BillNumber)
		},
		func(ctx context.Context) (any, error) {
			return s.api.GetBillSummaries(ctx, item.Congress, item.BillType, item.BillNumber)
		},
		func(ctx context.Context) (any, error) {
			return s.api.GetBillCosponsors(ctx, item.Congress, item.BillType, item.BillNumber)
		},
		func(ctx context.Context) (any, error) {
			return s.api.GetBillTextVersions(ctx, item.Congress, item.BillType, item.BillNumber)
		},
	}

	progress, wait := progressLogger(s.logger, len(ops))
	batch := executor.Execute(ctx, ops, s.cfg.executorConfig(progress))
	wait()

	if batch.Failed > 0 {
		// Replacing children from a partial fetch would erase good data, so
		// the whole record is treated as failed and retried next run.
		first := batch.Errors[0]
		return nil, nil, fmt.Errorf("enrichment fetch %d failed: %w", first.Index, first.Err)
	}

	detail := batch.Results[0].(*model.Bill)
	children := &model.BillChildren{
		Actions:      batch.Results[1].([]model.BillAction),
		Subjects:     batch.Results[2].([]model.BillSubject),
		Summaries:    batch.Results[3].([]model.BillSummary),
		Cosponsors:   batch.Results[4].([]model.BillCosponsor),
		TextVersions: batch.Results[5].([]model.BillTextVersion),
	}
	return detail, children, nil
}

// recordEvent appends a lifecycle event to the change log, deduplicated by
// its content hash so the same semantic event is never recorded twice.
func (s *BillSyncer) recordEvent(ctx context.Context, bill model.Bill, eventType, prev, cur, hash string) error {
	_, err := s.store.InsertChangeEntries(ctx, []model.ChangeLogEntry{{
		BillID:        bill.ID,
		ChangeType:    eventType,
		PreviousValue: prev,
		NewValue:      cur,
		Significance:  model.SignificanceHigh,
		ContentHash:   hash,
		DetectedAt:    s.now(),
	}})
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", eventType, err)
	}
	return nil
}

// resolveFromDate returns the cursor of the last completed run, else the
// configured lookback window.
func (s *BillSyncer) resolveFromDate(ctx context.Context) (time.Time, error) {
	job, err := s.store.GetLastCompletedJob(ctx, model.ResourceBills)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.now().Add(-s.cfg.LookbackWindow), nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to resolve cursor: %w", err)
	}
	if job.Cursor.IsZero() {
		return s.now().Add(-s.cfg.LookbackWindow), nil
	}
	return job.Cursor, nil
}
