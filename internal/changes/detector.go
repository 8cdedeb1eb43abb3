// internal/changes/detector.go

// Package changes compares stored bill snapshots against freshly fetched
// state and classifies the differences that matter downstream.
package changes

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"congress-data-sync/internal/model"
)

// Change types emitted by the detector. Each maps to one watched field.
const (
	ChangeAction  = "action"
	ChangeTitle   = "title"
	ChangeLaw     = "law"
	ChangeSponsor = "sponsor"
)

// Snapshot carries the watched fields of a bill. Volatile and cosmetic
// fields are deliberately absent so they can never produce change noise.
type Snapshot struct {
	Title            string
	LatestActionText string
	SponsorBioguide  string
	LawStatus        string
}

// Change is one detected field-level difference.
type Change struct {
	ChangeType    string
	PreviousValue string
	NewValue      string
	Significance  model.Significance
}

// significanceOf is the static importance table per watched field.
var significanceOf = map[string]model.Significance{
	ChangeAction:  model.SignificanceHigh,
	ChangeLaw:     model.SignificanceHigh,
	ChangeSponsor: model.SignificanceMedium,
	ChangeTitle:   model.SignificanceLow,
}

// EntryWriter is the slice of the record store the detector persists through.
type EntryWriter interface {
	InsertChangeEntries(ctx context.Context, entries []model.ChangeLogEntry) (int, error)
}

// Detector performs pure snapshot comparison; persistence is a separate
// explicit step so callers can inspect changes before committing them.
type Detector struct {
	store  EntryWriter
	logger *slog.Logger
	now    func() time.Time
}

// NewDetector creates a detector writing through the given store.
func NewDetector(store EntryWriter, logger *slog.Logger) *Detector {
	return &Detector{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Detect compares the watched fields of two snapshots and returns one change
// per differing field. Identical snapshots yield an empty list.
func (d *Detector) Detect(prev, cur Snapshot) []Change {
	var out []Change

	if !equalFolded(prev.Title, cur.Title) {
		out = append(out, newChange(ChangeTitle, prev.Title, cur.Title))
	}
	if strings.TrimSpace(prev.LatestActionText) != strings.TrimSpace(cur.LatestActionText) {
		out = append(out, newChange(ChangeAction, prev.LatestActionText, cur.LatestActionText))
	}
	if prev.SponsorBioguide != cur.SponsorBioguide {
		out = append(out, newChange(ChangeSponsor, prev.SponsorBioguide, cur.SponsorBioguide))
	}
	if prev.LawStatus != cur.LawStatus {
		out = append(out, newChange(ChangeLaw, prev.LawStatus, cur.LawStatus))
	}

	return out
}

// Log persists detected changes for a bill. Entries carry a content hash so
// re-running the same pass cannot record the same change twice.
func (d *Detector) Log(ctx context.Context, billID int64, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}

	entries := make([]model.ChangeLogEntry, len(changes))
	detectedAt := d.now()
	for i, c := range changes {
		entries[i] = model.ChangeLogEntry{
			BillID:        billID,
			ChangeType:    c.ChangeType,
			PreviousValue: c.PreviousValue,
			NewValue:      c.NewValue,
			Significance:  c.Significance,
			ContentHash:   ContentHash(c.ChangeType, fmt.Sprintf("%d", billID), c.PreviousValue, c.NewValue),
			DetectedAt:    detectedAt,
		}
	}

	n, err := d.store.InsertChangeEntries(ctx, entries)
	if err != nil {
		return fmt.Errorf("failed to log changes for bill %d: %w", billID, err)
	}
	if n < len(entries) {
		d.logger.Debug("Skipped duplicate change entries", "bill_id", billID, "skipped", len(entries)-n)
	}
	return nil
}

// SnapshotOf extracts the watched fields from a stored bill.
func SnapshotOf(b model.Bill) Snapshot {
	return Snapshot{
		Title:            b.Title,
		LatestActionText: b.LatestActionText,
		SponsorBioguide:  b.SponsorBioguide,
		LawStatus:        lawStatus(b),
	}
}

// ContentHash builds the stable dedup hash shared by change entries and
// sync events. The same semantic parts always hash to the same value.
func ContentHash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(sum[:])
}

func lawStatus(b model.Bill) string {
	if !b.IsLaw {
		return ""
	}
	return b.LawNumber
}

func newChange(changeType, prev, cur string) Change {
	return Change{
		ChangeType:    changeType,
		PreviousValue: prev,
		NewValue:      cur,
		Significance:  significanceOf[changeType],
	}
}

func equalFolded(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
