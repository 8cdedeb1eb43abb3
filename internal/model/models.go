// internal/model/models.go
package model

import (
	"fmt"
	"strings"
	"time"
)

// ResourceType identifies a syncable upstream collection.
type ResourceType string

const (
	ResourceBills    ResourceType = "bills"
	ResourceMembers  ResourceType = "members"
	ResourceHearings ResourceType = "hearings"
)

// Strategy selects how a sync run chooses its working set.
type Strategy string

const (
	StrategyIncremental Strategy = "incremental"
	StrategyFull        Strategy = "full"
	StrategyStale       Strategy = "stale"
	StrategyPriority    Strategy = "priority"
)

// JobStatus is the lifecycle state of a SyncJob row.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobPartial   JobStatus = "partial"
	JobFailed    JobStatus = "failed"
)

// Bill is the mirrored top-level record for a piece of legislation.
// Natural key is (Congress, BillType, BillNumber); Slug is derived from it.
type Bill struct {
	ID               int64
	Slug             string
	Congress         int
	BillType         string
	BillNumber       string
	Title            string
	OriginChamber    string
	IntroducedDate   time.Time
	LatestActionText string
	LatestActionDate time.Time
	SponsorBioguide  string
	SponsorName      string
	IsLaw            bool
	LawNumber        string
	UpdateDate       time.Time
	LastSyncedAt     time.Time
	DBCreatedAt      time.Time
	DBUpdatedAt      time.Time
}

// BillSlug derives the stable slug for a bill's natural key, e.g. "118-hr-1234".
func BillSlug(congress int, billType, number string) string {
	return fmt.Sprintf("%d-%s-%s", congress, strings.ToLower(billType), strings.ToLower(number))
}

// BillAction is one entry in a bill's action history.
type BillAction struct {
	ID         int64
	BillID     int64
	ActionDate time.Time
	Text       string
	ActionType string
	Chamber    string
}

// BillSubject is a legislative subject attached to a bill.
type BillSubject struct {
	ID     int64
	BillID int64
	Name   string
}

// BillSummary is one CRS-written summary of a bill at a legislative stage.
type BillSummary struct {
	ID          int64
	BillID      int64
	VersionCode string
	ActionDesc  string
	ActionDate  time.Time
	Text        string
}

// BillCosponsor is a member cosponsoring a bill.
type BillCosponsor struct {
	ID              int64
	BillID          int64
	BioguideID      string
	FullName        string
	Party           string
	State           string
	SponsorshipDate time.Time
	IsOriginal      bool
}

// BillTextVersion is a published text version of a bill.
type BillTextVersion struct {
	ID     int64
	BillID int64
	Type   string
	Date   time.Time
	URL    string
}

// BillChildren bundles the replace-on-write child collections of a bill.
// On each sync pass they are replaced wholesale with the latest upstream state.
type BillChildren struct {
	Actions      []BillAction
	Subjects     []BillSubject
	Summaries    []BillSummary
	Cosponsors   []BillCosponsor
	TextVersions []BillTextVersion
}

// Member is a mirrored member of Congress, keyed by bioguide id.
type Member struct {
	ID           int64
	BioguideID   string
	FullName     string
	State        string
	Party        string
	Chamber      string
	Current      bool
	ImageURL     string
	UpdateDate   time.Time
	LastSyncedAt time.Time
	DBCreatedAt  time.Time
	DBUpdatedAt  time.Time
}

// MemberTerm is one term a member served; replace-on-write child of Member.
type MemberTerm struct {
	ID        int64
	MemberID  int64
	Congress  int
	Chamber   string
	StartYear int
	EndYear   int
	State     string
	District  int
}

// Hearing is a mirrored committee hearing, keyed by (Congress, Chamber, EventID).
type Hearing struct {
	ID           int64
	EventID      string
	Congress     int
	Chamber      string
	Title        string
	Committee    string
	HearingDate  time.Time
	Location     string
	UpdateDate   time.Time
	LastSyncedAt time.Time
	DBCreatedAt  time.Time
	DBUpdatedAt  time.Time
}

// SyncError records one per-record failure inside a run.
type SyncError struct {
	Context string `json:"context"`
	Message string `json:"message"`
}

// SyncJob is the audit row for one invocation of a resource sync routine.
// Exactly one row may be running per resource type at a time; the cursor on
// the most recent completed row is the resume point for the next run.
type SyncJob struct {
	ID               int64
	ResourceType     ResourceType
	Status           JobStatus
	Cursor           time.Time
	RecordsFetched   int
	RecordsCreated   int
	RecordsUpdated   int
	RecordsUnchanged int
	Errors           []SyncError
	StartedAt        time.Time
	CompletedAt      time.Time
}

// Significance ranks how much a detected change matters downstream.
type Significance string

const (
	SignificanceHigh   Significance = "high"
	SignificanceMedium Significance = "medium"
	SignificanceLow    Significance = "low"
)

// ChangeLogEntry is an append-only record of one field-level change detected
// during a sync pass. Only the Notified flag is ever mutated after insert.
type ChangeLogEntry struct {
	ID            int64
	BillID        int64
	ChangeType    string
	PreviousValue string
	NewValue      string
	Significance  Significance
	ContentHash   string
	DetectedAt    time.Time
	Notified      bool
}

// SyncResult aggregates one resource sync routine's outcome.
type SyncResult struct {
	ResourceType     ResourceType  `json:"resource_type"`
	RecordsFetched   int           `json:"records_fetched"`
	RecordsCreated   int           `json:"records_created"`
	RecordsUpdated   int           `json:"records_updated"`
	RecordsUnchanged int           `json:"records_unchanged"`
	ChangesDetected  int           `json:"changes_detected"`
	SafetyStopped    bool          `json:"safety_stopped"`
	Cursor           time.Time     `json:"cursor,omitempty"`
	Errors           []SyncError   `json:"errors"`
	Duration         time.Duration `json:"duration"`
}

// OrchestratorResult rolls up one Orchestrator.Sync invocation.
type OrchestratorResult struct {
	Success      bool                         `json:"success"`
	Strategy     Strategy                     `json:"strategy"`
	Results      map[ResourceType]*SyncResult `json:"results"`
	TotalFetched int                          `json:"total_fetched"`
	TotalCreated int                          `json:"total_created"`
	TotalUpdated int                          `json:"total_updated"`
	TotalChanges int                          `json:"total_changes"`
	Errors       []SyncError                  `json:"errors"`
	Duration     time.Duration                `json:"duration"`
}

// ResourceStats is the per-resource slice of SyncStats.
type ResourceStats struct {
	Runs        int           `json:"runs"`
	Completed   int           `json:"completed"`
	Partial     int           `json:"partial"`
	Failed      int           `json:"failed"`
	AvgDuration time.Duration `json:"avg_duration"`
	LastRunAt   time.Time     `json:"last_run_at"`
}

// SyncStats summarizes recent runs for the admin surface.
type SyncStats struct {
	RecentSyncs int                             `json:"recent_syncs"`
	SuccessRate float64                         `json:"success_rate"`
	AvgDuration time.Duration                   `json:"avg_duration"`
	ByResource  map[ResourceType]*ResourceStats `json:"by_resource"`
}
