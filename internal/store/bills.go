// internal/store/bills.go
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"congress-data-sync/internal/model"
)

const billColumns = `id, slug, congress, bill_type, bill_number, title, origin_chamber,
	introduced_date, latest_action_text, latest_action_date, sponsor_bioguide, sponsor_name,
	is_law, law_number, update_date, last_synced_at, created_at, updated_at`

// GetBillBySlug returns the stored bill or pgx.ErrNoRows.
func (s *Postgres) GetBillBySlug(ctx context.Context, slug string) (model.Bill, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE slug = $1`, slug)
	return scanBill(row)
}

// SaveBill upserts the bill by slug and replaces its child collections, all
// inside one transaction so readers never observe an empty-children window.
func (s *Postgres) SaveBill(ctx context.Context, bill model.Bill, children model.BillChildren) (model.Bill, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Bill{}, fmt.Errorf("failed to begin bill save: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	row := tx.QueryRow(ctx, `
		INSERT INTO bills (slug, congress, bill_type, bill_number, title, origin_chamber,
			introduced_date, latest_action_text, latest_action_date, sponsor_bioguide, sponsor_name,
			is_law, law_number, update_date, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())
		ON CONFLICT (slug) DO UPDATE SET
			title = EXCLUDED.title,
			origin_chamber = EXCLUDED.origin_chamber,
			introduced_date = EXCLUDED.introduced_date,
			latest_action_text = EXCLUDED.latest_action_text,
			latest_action_date = EXCLUDED.latest_action_date,
			sponsor_bioguide = EXCLUDED.sponsor_bioguide,
			sponsor_name = EXCLUDED.sponsor_name,
			is_law = EXCLUDED.is_law,
			law_number = EXCLUDED.law_number,
			update_date = EXCLUDED.update_date,
			last_synced_at = now(),
			updated_at = now()
		RETURNING `+billColumns,
		bill.Slug, bill.Congress, bill.BillType, bill.BillNumber, bill.Title, bill.OriginChamber,
		nullableTime(bill.IntroducedDate), bill.LatestActionText, nullableTime(bill.LatestActionDate),
		bill.SponsorBioguide, bill.SponsorName, bill.IsLaw, bill.LawNumber, nullableTime(bill.UpdateDate),
	)
	saved, err := scanBill(row)
	if err != nil {
		return model.Bill{}, fmt.Errorf("failed to upsert bill %s: %w", bill.Slug, err)
	}

	if err := replaceBillChildren(ctx, tx, saved.ID, children); err != nil {
		return model.Bill{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Bill{}, fmt.Errorf("failed to commit bill save: %w", err)
	}
	return saved, nil
}

// replaceBillChildren deletes and recreates the child collections within the
// caller's transaction. They mirror current upstream state, not history.
func replaceBillChildren(ctx context.Context, tx pgx.Tx, billID int64, children model.BillChildren) error {
	for _, table := range []string{"bill_actions", "bill_subjects", "bill_summaries", "bill_cosponsors", "bill_text_versions"} {
		if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE bill_id = $1`, table), billID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, a := range children.Actions {
		_, err := tx.Exec(ctx, `
			INSERT INTO bill_actions (bill_id, action_date, text, action_type, chamber)
			VALUES ($1, $2, $3, $4, $5)`,
			billID, nullableTime(a.ActionDate), a.Text, a.ActionType, a.Chamber)
		if err != nil {
			return fmt.Errorf("failed to insert bill action: %w", err)
		}
	}
	for _, sub := range children.Subjects {
		_, err := tx.Exec(ctx, `INSERT INTO bill_subjects (bill_id, name) VALUES ($1, $2)`, billID, sub.Name)
		if err != nil {
			return fmt.Errorf("failed to insert bill subject: %w", err)
		}
	}
	for _, sv := range children.Summaries {
		_, err := tx.Exec(ctx, `
			INSERT INTO bill_summaries (bill_id, version_code, action_desc, action_date, text)
			VALUES ($1, $2, $3, $4, $5)`,
			billID, sv.VersionCode, sv.ActionDesc, nullableTime(sv.ActionDate), sv.Text)
		if err != nil {
			return fmt.Errorf("failed to insert bill summary: %w", err)
		}
	}
	for _, cs := range children.Cosponsors {
		_, err := tx.Exec(ctx, `
			INSERT INTO bill_cosponsors (bill_id, bioguide_id, full_name, party, state, sponsorship_date, is_original)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			billID, cs.BioguideID, cs.FullName, cs.Party, cs.State, nullableTime(cs.SponsorshipDate), cs.IsOriginal)
		if err != nil {
			return fmt.Errorf("failed to insert bill cosponsor: %w", err)
		}
	}
	for _, tv := range children.TextVersions {
		_, err := tx.Exec(ctx, `
			INSERT INTO bill_text_versions (bill_id, version_type, version_date, url)
			VALUES ($1, $2, $3, $4)`,
			billID, tv.Type, nullableTime(tv.Date), tv.URL)
		if err != nil {
			return fmt.Errorf("failed to insert bill text version: %w", err)
		}
	}
	return nil
}

// ListStaleBills returns bills not synced since olderThan, stalest first.
func (s *Postgres) ListStaleBills(ctx context.Context, olderThan time.Time, limit int) ([]model.Bill, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+billColumns+` FROM bills
		WHERE last_synced_at IS NULL OR last_synced_at < $1
		ORDER BY last_synced_at ASC NULLS FIRST
		LIMIT $2`, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale bills: %w", err)
	}
	defer rows.Close()
	return scanBills(rows)
}

// ListActiveBills returns bills ordered by most recent latest action; the
// priority strategy resyncs these first.
func (s *Postgres) ListActiveBills(ctx context.Context, limit int) ([]model.Bill, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+billColumns+` FROM bills
		WHERE latest_action_date IS NOT NULL
		ORDER BY latest_action_date DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list active bills: %w", err)
	}
	defer rows.Close()
	return scanBills(rows)
}

func scanBill(row pgx.Row) (model.Bill, error) {
	var (
		b                                          model.Bill
		introduced, latestAction, update, lastSync *time.Time
	)
	err := row.Scan(&b.ID, &b.Slug, &b.Congress, &b.BillType, &b.BillNumber, &b.Title, &b.OriginChamber,
		&introduced, &b.LatestActionText, &latestAction, &b.SponsorBioguide, &b.SponsorName,
		&b.IsLaw, &b.LawNumber, &update, &lastSync, &b.DBCreatedAt, &b.DBUpdatedAt)
	if err != nil {
		return model.Bill{}, err
	}
	b.IntroducedDate = derefTime(introduced)
	b.LatestActionDate = derefTime(latestAction)
	b.UpdateDate = derefTime(update)
	b.LastSyncedAt = derefTime(lastSync)
	return b, nil
}

func scanBills(rows pgx.Rows) ([]model.Bill, error) {
	var bills []model.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
