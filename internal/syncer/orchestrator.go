// internal/syncer/orchestrator.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	custom_errors "congress-data-sync/internal/errors"
	"congress-data-sync/internal/metrics"
	"congress-data-sync/internal/model"
	"congress-data-sync/internal/store"
)

// Request selects what one orchestrated sync invocation covers.
type Request struct {
	Strategy  model.Strategy       `json:"strategy"`
	Resources []model.ResourceType `json:"resources"`
	Limit     int                  `json:"limit"`
}

// Default per-run record limits by strategy, used when the request does not
// set one. Full runs are unbounded; the rate budget is the real ceiling.
var defaultLimits = map[model.Strategy]int{
	model.StrategyIncremental: 500,
	model.StrategyStale:       200,
	model.StrategyPriority:    100,
}

// Orchestrator opens a job row per selected resource, delegates to that
// resource's sync routine, finalizes the row, and rolls up totals.
// Resources run sequentially so rate accounting stays attributable.
type Orchestrator struct {
	store   store.Store
	syncers []ResourceSyncer
	logger  *slog.Logger
	now     func() time.Time
}

// NewOrchestrator composes the orchestrator over an ordered syncer list.
func NewOrchestrator(st store.Store, syncers []ResourceSyncer, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:   st,
		syncers: syncers,
		logger:  logger.With("component", "orchestrator"),
		now:     time.Now,
	}
}

// Sync runs the requested strategy across the selected resources.
func (o *Orchestrator) Sync(ctx context.Context, req Request) (*model.OrchestratorResult, error) {
	start := o.now()
	if req.Strategy == "" {
		req.Strategy = model.StrategyIncremental
	}

	result := &model.OrchestratorResult{
		Success:  true,
		Strategy: req.Strategy,
		Results:  make(map[model.ResourceType]*model.SyncResult),
	}
	o.logger.Info("Starting orchestrated sync", "strategy", req.Strategy, "resources", req.Resources)

	var selectedCount, overlapped int
	var overlapErr error
	for _, s := range o.syncers {
		if !selected(req.Resources, s.ResourceType()) {
			continue
		}
		selectedCount++
		if err := o.syncResource(ctx, s, req, result); err != nil {
			overlapped++
			overlapErr = err
		}
	}

	result.Duration = o.now().Sub(start)
	if selectedCount > 0 && overlapped == selectedCount {
		// Every selected resource already had a running job: nothing was
		// done, and the caller should see the rejection rather than a
		// successful no-op.
		result.Success = false
		o.logger.Warn("Orchestrated sync rejected: all selected resources already running")
		return result, overlapErr
	}
	o.logger.Info("Orchestrated sync finished",
		"success", result.Success, "fetched", result.TotalFetched,
		"created", result.TotalCreated, "updated", result.TotalUpdated,
		"changes", result.TotalChanges, "duration", result.Duration.String())
	return result, nil
}

// syncResource runs one resource's routine inside a job row. A routine error
// marks the job failed; record errors or a safety stop mark it partial. The
// overlap error is returned when the resource was skipped because a job is
// already running, so Sync can tell a skipped run from a done one.
func (o *Orchestrator) syncResource(ctx context.Context, s ResourceSyncer, req Request, result *model.OrchestratorResult) error {
	resource := s.ResourceType()
	logger := o.logger.With("resource", resource)

	job, err := o.store.CreateSyncJob(ctx, resource)
	if err != nil {
		result.Errors = appendError(result.Errors, string(resource), err)
		var inProgress *custom_errors.ErrSyncInProgress
		if errors.As(err, &inProgress) {
			logger.Warn("Skipping resource: sync already running")
			return err
		}
		logger.Error("Failed to open sync job", "error", err)
		result.Success = false
		return nil
	}

	opts := o.optionsFor(req)
	res, syncErr := s.Sync(ctx, opts)

	job.RecordsFetched = res.RecordsFetched
	job.RecordsCreated = res.RecordsCreated
	job.RecordsUpdated = res.RecordsUpdated
	job.RecordsUnchanged = res.RecordsUnchanged
	job.Errors = res.Errors
	job.Cursor = res.Cursor
	job.Status = jobStatus(res, syncErr)
	if syncErr != nil {
		job.Errors = appendError(job.Errors, string(resource), syncErr)
		result.Errors = appendError(result.Errors, string(resource), syncErr)
		result.Success = false
		logger.Error("Resource sync failed", "error", syncErr)
	}

	if err := o.store.FinalizeSyncJob(ctx, job); err != nil {
		logger.Error("Failed to finalize sync job", "job_id", job.ID, "error", err)
		result.Errors = appendError(result.Errors, string(resource), err)
		result.Success = false
	}

	metrics.ObserveSyncRun(string(resource), string(job.Status), res.Duration)

	result.Results[resource] = &res
	result.TotalFetched += res.RecordsFetched
	result.TotalCreated += res.RecordsCreated
	result.TotalUpdated += res.RecordsUpdated
	result.TotalChanges += res.ChangesDetected
	return nil
}

// optionsFor maps the strategy to resource sync options. Incremental leaves
// FromDate zero so each syncer resolves its own cursor; full ignores the
// cursor entirely.
func (o *Orchestrator) optionsFor(req Request) Options {
	opts := Options{Strategy: req.Strategy, Limit: req.Limit}
	if opts.Limit == 0 {
		opts.Limit = defaultLimits[req.Strategy]
	}
	return opts
}

func jobStatus(res model.SyncResult, syncErr error) model.JobStatus {
	switch {
	case syncErr != nil:
		return model.JobFailed
	case len(res.Errors) > 0 || res.SafetyStopped:
		return model.JobPartial
	default:
		return model.JobCompleted
	}
}

func selected(resources []model.ResourceType, r model.ResourceType) bool {
	if len(resources) == 0 {
		return true
	}
	for _, candidate := range resources {
		if candidate == r {
			return true
		}
	}
	return false
}

// GetSyncStats summarizes runs started within the last `hours` hours for
// the admin surface.
func (o *Orchestrator) GetSyncStats(ctx context.Context, hours int) (*model.SyncStats, error) {
	if hours <= 0 {
		hours = 24
	}
	jobs, err := o.store.ListRecentJobs(ctx, o.now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to load recent jobs: %w", err)
	}

	stats := &model.SyncStats{ByResource: make(map[model.ResourceType]*model.ResourceStats)}
	var totalDuration time.Duration
	finished := 0
	succeeded := 0

	for _, job := range jobs {
		stats.RecentSyncs++
		rs := stats.ByResource[job.ResourceType]
		if rs == nil {
			rs = &model.ResourceStats{}
			stats.ByResource[job.ResourceType] = rs
		}
		rs.Runs++
		if job.StartedAt.After(rs.LastRunAt) {
			rs.LastRunAt = job.StartedAt
		}

		switch job.Status {
		case model.JobCompleted:
			rs.Completed++
		case model.JobPartial:
			rs.Partial++
		case model.JobFailed:
			rs.Failed++
		}

		if job.Status != model.JobRunning && !job.CompletedAt.IsZero() {
			d := job.CompletedAt.Sub(job.StartedAt)
			rs.AvgDuration += d
			totalDuration += d
			finished++
			if job.Status == model.JobCompleted || job.Status == model.JobPartial {
				succeeded++
			}
		}
	}

	for _, rs := range stats.ByResource {
		if done := rs.Completed + rs.Partial + rs.Failed; done > 0 {
			rs.AvgDuration /= time.Duration(done)
		}
	}
	if finished > 0 {
		stats.SuccessRate = float64(succeeded) / float64(finished)
		stats.AvgDuration = totalDuration / time.Duration(finished)
	}
	return stats, nil
}
