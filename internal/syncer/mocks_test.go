// internal/syncer/mocks_test.go
package syncer

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"congress-data-sync/internal/congress"
	"congress-data-sync/internal/model"
)

// MockStore is a testify mock of store.Store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetBillBySlug(ctx context.Context, slug string) (model.Bill, error) {
	args := m.Called(ctx, slug)
	return args.Get(0).(model.Bill), args.Error(1)
}

func (m *MockStore) SaveBill(ctx context.Context, bill model.Bill, children model.BillChildren) (model.Bill, error) {
	args := m.Called(ctx, bill, children)
	return args.Get(0).(model.Bill), args.Error(1)
}

func (m *MockStore) ListStaleBills(ctx context.Context, olderThan time.Time, limit int) ([]model.Bill, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Bill), args.Error(1)
}

func (m *MockStore) ListActiveBills(ctx context.Context, limit int) ([]model.Bill, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Bill), args.Error(1)
}

func (m *MockStore) GetMemberByBioguide(ctx context.Context, bioguideID string) (model.Member, error) {
	args := m.Called(ctx, bioguideID)
	return args.Get(0).(model.Member), args.Error(1)
}

func (m *MockStore) SaveMember(ctx context.Context, member model.Member, terms []model.MemberTerm) (model.Member, error) {
	args := m.Called(ctx, member, terms)
	return args.Get(0).(model.Member), args.Error(1)
}

func (m *MockStore) GetHearingByKey(ctx context.Context, congressNum int, chamber, eventID string) (model.Hearing, error) {
	args := m.Called(ctx, congressNum, chamber, eventID)
	return args.Get(0).(model.Hearing), args.Error(1)
}

func (m *MockStore) SaveHearing(ctx context.Context, hearing model.Hearing) (model.Hearing, error) {
	args := m.Called(ctx, hearing)
	return args.Get(0).(model.Hearing), args.Error(1)
}

func (m *MockStore) CreateSyncJob(ctx context.Context, resource model.ResourceType) (model.SyncJob, error) {
	args := m.Called(ctx, resource)
	return args.Get(0).(model.SyncJob), args.Error(1)
}

func (m *MockStore) FinalizeSyncJob(ctx context.Context, job model.SyncJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockStore) GetLastCompletedJob(ctx context.Context, resource model.ResourceType) (model.SyncJob, error) {
	args := m.Called(ctx, resource)
	return args.Get(0).(model.SyncJob), args.Error(1)
}

func (m *MockStore) ListRecentJobs(ctx context.Context, since time.Time) ([]model.SyncJob, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SyncJob), args.Error(1)
}

func (m *MockStore) ListJobs(ctx context.Context, limit int) ([]model.SyncJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SyncJob), args.Error(1)
}

func (m *MockStore) InsertChangeEntries(ctx context.Context, entries []model.ChangeLogEntry) (int, error) {
	args := m.Called(ctx, entries)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) ListUnnotifiedChanges(ctx context.Context, limit int) ([]model.ChangeLogEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ChangeLogEntry), args.Error(1)
}

func (m *MockStore) MarkChangesNotified(ctx context.Context, ids []int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

// MockAPI is a testify mock of CongressAPI.
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) ListBills(ctx context.Context, opts congress.ListOptions) (*congress.BillsPage, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*congress.BillsPage), args.Error(1)
}

func (m *MockAPI) GetBill(ctx context.Context, congressNum int, billType, number string) (*model.Bill, error) {
	args := m.Called(ctx, congressNum, billType, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bill), args.Error(1)
}

func (m *MockAPI) GetBillActions(ctx context.Context, congressNum int, billType, number string) ([]model.BillAction, error) {
	args := m.Called(ctx, congressNum, billType, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BillAction), args.Error(1)
}

func (m *MockAPI) GetBillSubjects(ctx context.Context, congressNum int, billType, number string) ([]model.BillSubject, error) {
	args := m.Called(ctx, congressNum, billType, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BillSubject), args.Error(1)
}

func (m *MockAPI) GetBillSummaries(ctx context.Context, congressNum int, billType, number string) ([]model.BillSummary, error) {
	args := m.Called(ctx, congressNum, billType, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BillSummary), args.Error(1)
}

func (m *MockAPI) GetBillCosponsors(ctx context.Context, congressNum int, billType, number string) ([]model.BillCosponsor, error) {
	args := m.Called(ctx, congressNum, billType, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BillCosponsor), args.Error(1)
}

func (m *MockAPI) GetBillTextVersions(ctx context.Context, congressNum int, billType, number string) ([]model.BillTextVersion, error) {
	args := m.Called(ctx, congressNum, billType, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BillTextVersion), args.Error(1)
}

func (m *MockAPI) ListMembers(ctx context.Context, opts congress.ListOptions) (*congress.MembersPage, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*congress.MembersPage), args.Error(1)
}

func (m *MockAPI) GetMember(ctx context.Context, bioguideID string) (*model.Member, []model.MemberTerm, error) {
	args := m.Called(ctx, bioguideID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Member), args.Get(1).([]model.MemberTerm), args.Error(2)
}

func (m *MockAPI) ListHearings(ctx context.Context, opts congress.ListOptions) (*congress.HearingsPage, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*congress.HearingsPage), args.Error(1)
}

func (m *MockAPI) GetHearing(ctx context.Context, congressNum int, chamber, eventID string) (*model.Hearing, error) {
	args := m.Called(ctx, congressNum, chamber, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Hearing), args.Error(1)
}
