// internal/syncer/syncer.go

// Package syncer holds the per-resource incremental fetch-and-reconcile
// loops and the orchestrator that fans out across them.
package syncer

import (
	"context"
	"log/slog"
	"time"

	"congress-data-sync/internal/congress"
	"congress-data-sync/internal/executor"
	"congress-data-sync/internal/model"
	"congress-data-sync/internal/ratemon"
)

// CongressAPI is the remote collection capability the sync services consume.
// *congress.Client satisfies it; tests substitute a mock.
type CongressAPI interface {
	ListBills(ctx context.Context, opts congress.ListOptions) (*congress.BillsPage, error)
	GetBill(ctx context.Context, congressNum int, billType, number string) (*model.Bill, error)
	GetBillActions(ctx context.Context, congressNum int, billType, number string) ([]model.BillAction, error)
	GetBillSubjects(ctx context.Context, congressNum int, billType, number string) ([]model.BillSubject, error)
	GetBillSummaries(ctx context.Context, congressNum int, billType, number string) ([]model.BillSummary, error)
	GetBillCosponsors(ctx context.Context, congressNum int, billType, number string) ([]model.BillCosponsor, error)
	GetBillTextVersions(ctx context.Context, congressNum int, billType, number string) ([]model.BillTextVersion, error)
	ListMembers(ctx context.Context, opts congress.ListOptions) (*congress.MembersPage, error)
	GetMember(ctx context.Context, bioguideID string) (*model.Member, []model.MemberTerm, error)
	ListHearings(ctx context.Context, opts congress.ListOptions) (*congress.HearingsPage, error)
	GetHearing(ctx context.Context, congressNum int, chamber, eventID string) (*model.Hearing, error)
}

// Options parameterizes one resource sync run.
type Options struct {
	Strategy model.Strategy
	// FromDate overrides cursor resolution when set. Zero means "cursor of
	// the last completed run, else now minus the lookback window".
	FromDate time.Time
	// Limit caps records processed this run. Zero means unlimited.
	Limit int
}

// Config carries the sync tuning knobs shared by all resource syncers.
type Config struct {
	TargetCongress   int
	LookbackWindow   time.Duration
	PageSize         int
	HourlyRequestCap int
	SafetyStopMargin int
	Concurrency      int
	RequestDelay     time.Duration
	RetryEnabled     bool
	MaxRetries       int
	StaleThreshold   time.Duration
}

// ResourceSyncer is one resource's sync routine, driven by the orchestrator.
type ResourceSyncer interface {
	ResourceType() model.ResourceType
	Sync(ctx context.Context, opts Options) (model.SyncResult, error)
}

func (c Config) executorConfig(progress chan<- executor.Progress) executor.Config {
	return executor.Config{
		Concurrency:        c.Concurrency,
		DelayBetweenStarts: c.RequestDelay,
		Retry:              c.RetryEnabled,
		MaxRetries:         c.MaxRetries,
		Progress:           progress,
	}
}

// withinBudget reports whether issuing `upcoming` more requests would keep
// hourly usage outside the safety margin below the hard cap. The safety stop
// is triggered between batches, never mid-request.
func withinBudget(monitor *ratemon.Monitor, cfg Config, upcoming int) bool {
	stats := monitor.Stats()
	return stats.RequestsLastHour+upcoming <= cfg.HourlyRequestCap-cfg.SafetyStopMargin
}

// throttleIfNeeded sleeps for the monitor's advised wait when usage is
// projected to approach the cap. Cooperative; honors ctx cancellation.
func throttleIfNeeded(ctx context.Context, monitor *ratemon.Monitor, logger *slog.Logger) error {
	verdict := monitor.ShouldThrottle()
	if !verdict.Throttle {
		return nil
	}
	logger.Warn("Throttling sync", "wait", verdict.Wait.String(), "reason", verdict.Reason)
	timer := time.NewTimer(verdict.Wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// progressLogger drains executor progress events at debug level. Returns the
// channel to hand to the executor and a wait func to call once the batch is
// done being produced.
func progressLogger(logger *slog.Logger, total int) (chan executor.Progress, func()) {
	ch := make(chan executor.Progress, total)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range ch {
			logger.Debug("Enrichment progress", "completed", p.Completed, "total", p.Total)
		}
	}()
	return ch, func() {
		close(ch)
		<-done
	}
}

func appendError(errs []model.SyncError, context string, err error) []model.SyncError {
	return append(errs, model.SyncError{Context: context, Message: err.Error()})
}
