// internal/syncer/orchestrator_test.go
package syncer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	custom_errors "congress-data-sync/internal/errors"
	"congress-data-sync/internal/model"
)

// fakeSyncer returns a canned result and records the options it was given.
type fakeSyncer struct {
	resource model.ResourceType
	result   model.SyncResult
	err      error
	gotOpts  *Options
	calls    int
}

func (f *fakeSyncer) ResourceType() model.ResourceType { return f.resource }

func (f *fakeSyncer) Sync(ctx context.Context, opts Options) (model.SyncResult, error) {
	f.calls++
	f.gotOpts = &opts
	return f.result, f.err
}

func newOrchestrator(st *MockStore, syncers ...ResourceSyncer) *Orchestrator {
	o := NewOrchestrator(st, syncers, slog.New(slog.NewTextHandler(io.Discard, nil)))
	o.now = func() time.Time { return fixedNow }
	return o
}

func expectJob(st *MockStore, resource model.ResourceType) {
	st.On("CreateSyncJob", mock.Anything, resource).
		Return(model.SyncJob{ID: 1, ResourceType: resource, Status: model.JobRunning, StartedAt: fixedNow}, nil)
}

func TestOrchestrator_CompletedRun(t *testing.T) {
	st := new(MockStore)
	cursor := fixedNow.Add(-time.Hour)
	bills := &fakeSyncer{
		resource: model.ResourceBills,
		result: model.SyncResult{
			ResourceType:   model.ResourceBills,
			RecordsFetched: 10,
			RecordsCreated: 3,
			RecordsUpdated: 2,
			Cursor:         cursor,
		},
	}

	expectJob(st, model.ResourceBills)
	var finalized model.SyncJob
	st.On("FinalizeSyncJob", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { finalized = args.Get(1).(model.SyncJob) }).
		Return(nil)

	result, err := newOrchestrator(st, bills).Sync(context.Background(), Request{Strategy: model.StrategyIncremental})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 10, result.TotalFetched)
	assert.Equal(t, 3, result.TotalCreated)
	assert.Equal(t, 2, result.TotalUpdated)
	require.Contains(t, result.Results, model.ResourceBills)

	assert.Equal(t, model.JobCompleted, finalized.Status)
	assert.Equal(t, cursor, finalized.Cursor)
	assert.Equal(t, 10, finalized.RecordsFetched)
}

func TestOrchestrator_PartialOnRecordErrors(t *testing.T) {
	st := new(MockStore)
	bills := &fakeSyncer{
		resource: model.ResourceBills,
		result: model.SyncResult{
			ResourceType: model.ResourceBills,
			Errors:       []model.SyncError{{Context: "118-hr-9", Message: "upstream 500"}},
		},
	}

	expectJob(st, model.ResourceBills)
	var finalized model.SyncJob
	st.On("FinalizeSyncJob", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { finalized = args.Get(1).(model.SyncJob) }).
		Return(nil)

	result, err := newOrchestrator(st, bills).Sync(context.Background(), Request{})
	require.NoError(t, err)

	// Record-level errors degrade the job, not the whole invocation.
	assert.True(t, result.Success)
	assert.Equal(t, model.JobPartial, finalized.Status)
}

func TestOrchestrator_PartialOnSafetyStop(t *testing.T) {
	st := new(MockStore)
	bills := &fakeSyncer{
		resource: model.ResourceBills,
		result:   model.SyncResult{ResourceType: model.ResourceBills, SafetyStopped: true},
	}

	expectJob(st, model.ResourceBills)
	var finalized model.SyncJob
	st.On("FinalizeSyncJob", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { finalized = args.Get(1).(model.SyncJob) }).
		Return(nil)

	_, err := newOrchestrator(st, bills).Sync(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, model.JobPartial, finalized.Status)
}

func TestOrchestrator_FailedRun(t *testing.T) {
	st := new(MockStore)
	bills := &fakeSyncer{
		resource: model.ResourceBills,
		result:   model.SyncResult{ResourceType: model.ResourceBills},
		err:      &custom_errors.FatalError{Resource: "bills", Err: errors.New("connection refused")},
	}

	expectJob(st, model.ResourceBills)
	var finalized model.SyncJob
	st.On("FinalizeSyncJob", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { finalized = args.Get(1).(model.SyncJob) }).
		Return(nil)

	result, err := newOrchestrator(st, bills).Sync(context.Background(), Request{})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, model.JobFailed, finalized.Status)
	require.NotEmpty(t, finalized.Errors)
	assert.Contains(t, finalized.Errors[len(finalized.Errors)-1].Message, "connection refused")
}

func TestOrchestrator_RejectsWhenAllResourcesRunning(t *testing.T) {
	st := new(MockStore)
	bills := &fakeSyncer{resource: model.ResourceBills}

	st.On("CreateSyncJob", mock.Anything, model.ResourceBills).
		Return(model.SyncJob{}, &custom_errors.ErrSyncInProgress{Resource: "bills"})

	result, err := newOrchestrator(st, bills).Sync(context.Background(), Request{})

	// Nothing ran, so the invocation surfaces the rejection instead of
	// reporting a successful no-op.
	require.Error(t, err)
	var inProgress *custom_errors.ErrSyncInProgress
	assert.ErrorAs(t, err, &inProgress)
	assert.False(t, result.Success)
	assert.Zero(t, bills.calls)
	st.AssertNotCalled(t, "FinalizeSyncJob", mock.Anything, mock.Anything)
}

func TestOrchestrator_SkipsOneRunningResource(t *testing.T) {
	st := new(MockStore)
	bills := &fakeSyncer{resource: model.ResourceBills}
	members := &fakeSyncer{resource: model.ResourceMembers, result: model.SyncResult{ResourceType: model.ResourceMembers, RecordsFetched: 4}}

	st.On("CreateSyncJob", mock.Anything, model.ResourceBills).
		Return(model.SyncJob{}, &custom_errors.ErrSyncInProgress{Resource: "bills"})
	expectJob(st, model.ResourceMembers)
	st.On("FinalizeSyncJob", mock.Anything, mock.Anything).Return(nil)

	result, err := newOrchestrator(st, bills, members).Sync(context.Background(), Request{})
	require.NoError(t, err)

	// Overlap on one resource during a long run is expected; the rest of
	// the invocation proceeds and succeeds.
	assert.True(t, result.Success)
	assert.Zero(t, bills.calls)
	assert.Equal(t, 1, members.calls)
	assert.Equal(t, 4, result.TotalFetched)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "bills", result.Errors[0].Context)
}

func TestOrchestrator_ResourceSelection(t *testing.T) {
	st := new(MockStore)
	bills := &fakeSyncer{resource: model.ResourceBills, result: model.SyncResult{ResourceType: model.ResourceBills}}
	members := &fakeSyncer{resource: model.ResourceMembers, result: model.SyncResult{ResourceType: model.ResourceMembers}}

	expectJob(st, model.ResourceMembers)
	st.On("FinalizeSyncJob", mock.Anything, mock.Anything).Return(nil)

	result, err := newOrchestrator(st, bills, members).Sync(context.Background(), Request{
		Resources: []model.ResourceType{model.ResourceMembers},
	})
	require.NoError(t, err)

	assert.Zero(t, bills.calls)
	assert.Equal(t, 1, members.calls)
	assert.NotContains(t, result.Results, model.ResourceBills)
}

func TestOrchestrator_StrategyDefaults(t *testing.T) {
	cases := []struct {
		name      string
		req       Request
		wantStrat model.Strategy
		wantLimit int
	}{
		{"empty request defaults to incremental", Request{}, model.StrategyIncremental, 500},
		{"stale default limit", Request{Strategy: model.StrategyStale}, model.StrategyStale, 200},
		{"priority default limit", Request{Strategy: model.StrategyPriority}, model.StrategyPriority, 100},
		{"full is unbounded", Request{Strategy: model.StrategyFull}, model.StrategyFull, 0},
		{"explicit limit wins", Request{Strategy: model.StrategyIncremental, Limit: 25}, model.StrategyIncremental, 25},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := new(MockStore)
			bills := &fakeSyncer{resource: model.ResourceBills, result: model.SyncResult{ResourceType: model.ResourceBills}}
			expectJob(st, model.ResourceBills)
			st.On("FinalizeSyncJob", mock.Anything, mock.Anything).Return(nil)

			_, err := newOrchestrator(st, bills).Sync(context.Background(), tc.req)
			require.NoError(t, err)

			require.NotNil(t, bills.gotOpts)
			assert.Equal(t, tc.wantStrat, bills.gotOpts.Strategy)
			assert.Equal(t, tc.wantLimit, bills.gotOpts.Limit)
		})
	}
}

func TestOrchestrator_GetSyncStats(t *testing.T) {
	st := new(MockStore)
	o := newOrchestrator(st)

	started := fixedNow.Add(-6 * time.Hour)
	jobs := []model.SyncJob{
		{ResourceType: model.ResourceBills, Status: model.JobCompleted, StartedAt: started, CompletedAt: started.Add(2 * time.Minute)},
		{ResourceType: model.ResourceBills, Status: model.JobPartial, StartedAt: started.Add(time.Hour), CompletedAt: started.Add(time.Hour + 4*time.Minute)},
		{ResourceType: model.ResourceBills, Status: model.JobFailed, StartedAt: started.Add(2 * time.Hour), CompletedAt: started.Add(2*time.Hour + 3*time.Minute)},
		{ResourceType: model.ResourceMembers, Status: model.JobCompleted, StartedAt: started, CompletedAt: started.Add(time.Minute)},
		{ResourceType: model.ResourceHearings, Status: model.JobRunning, StartedAt: fixedNow.Add(-time.Minute)},
	}

	var since time.Time
	st.On("ListRecentJobs", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { since = args.Get(1).(time.Time) }).
		Return(jobs, nil)

	stats, err := o.GetSyncStats(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, fixedNow.Add(-24*time.Hour), since)
	assert.Equal(t, 5, stats.RecentSyncs)
	// 3 of 4 finished jobs ended completed or partial.
	assert.InDelta(t, 0.75, stats.SuccessRate, 1e-9)

	billStats := stats.ByResource[model.ResourceBills]
	require.NotNil(t, billStats)
	assert.Equal(t, 3, billStats.Runs)
	assert.Equal(t, 1, billStats.Completed)
	assert.Equal(t, 1, billStats.Partial)
	assert.Equal(t, 1, billStats.Failed)
	assert.Equal(t, 3*time.Minute, billStats.AvgDuration)
	assert.Equal(t, started.Add(2*time.Hour), billStats.LastRunAt)

	// A still-running job counts as a run but not toward durations.
	hearingStats := stats.ByResource[model.ResourceHearings]
	require.NotNil(t, hearingStats)
	assert.Equal(t, 1, hearingStats.Runs)
	assert.Zero(t, hearingStats.AvgDuration)
}

func TestOrchestrator_DefaultStatsWindow(t *testing.T) {
	st := new(MockStore)
	o := newOrchestrator(st)

	var since time.Time
	st.On("ListRecentJobs", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { since = args.Get(1).(time.Time) }).
		Return([]model.SyncJob{}, nil)

	_, err := o.GetSyncStats(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(-24*time.Hour), since)
}
