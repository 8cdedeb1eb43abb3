// internal/errors/errors.go
package errors

import "fmt"

// ErrInvalidBillID is returned when an upstream bill item is missing part of
// its natural key (congress, type, number) and no slug can be derived.
type ErrInvalidBillID struct {
	Congress int
	BillType string
	Number   string
}

func (e *ErrInvalidBillID) Error() string {
	return fmt.Sprintf("invalid bill identity: congress=%d type=%q number=%q", e.Congress, e.BillType, e.Number)
}

// ErrSyncInProgress is returned when a sync is requested for a resource that
// already has a running job. Overlapping runs for one resource are rejected.
type ErrSyncInProgress struct {
	Resource string
}

func (e *ErrSyncInProgress) Error() string {
	return fmt.Sprintf("sync already in progress for resource %q", e.Resource)
}

// FatalError marks a run-level failure: the sync routine could not continue
// at all (as opposed to a per-record error, which is collected and skipped).
// The orchestrator marks the job failed when it unwraps one of these.
type FatalError struct {
	Resource string
	Err      error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal sync error for resource %q: %v", e.Resource, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
