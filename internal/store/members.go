// internal/store/members.go
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"congress-data-sync/internal/model"
)

const memberColumns = `id, bioguide_id, full_name, state, party, chamber, current,
	image_url, update_date, last_synced_at, created_at, updated_at`

// GetMemberByBioguide returns the stored member or pgx.ErrNoRows.
func (s *Postgres) GetMemberByBioguide(ctx context.Context, bioguideID string) (model.Member, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE bioguide_id = $1`, bioguideID)
	return scanMember(row)
}

// SaveMember upserts the member and replaces their served terms in one
// transaction.
func (s *Postgres) SaveMember(ctx context.Context, member model.Member, terms []model.MemberTerm) (model.Member, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Member{}, fmt.Errorf("failed to begin member save: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO members (bioguide_id, full_name, state, party, chamber, current, image_url, update_date, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (bioguide_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			state = EXCLUDED.state,
			party = EXCLUDED.party,
			chamber = EXCLUDED.chamber,
			current = EXCLUDED.current,
			image_url = EXCLUDED.image_url,
			update_date = EXCLUDED.update_date,
			last_synced_at = now(),
			updated_at = now()
		RETURNING `+memberColumns,
		member.BioguideID, member.FullName, member.State, member.Party, member.Chamber,
		member.Current, member.ImageURL, nullableTime(member.UpdateDate),
	)
	saved, err := scanMember(row)
	if err != nil {
		return model.Member{}, fmt.Errorf("failed to upsert member %s: %w", member.BioguideID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM member_terms WHERE member_id = $1`, saved.ID); err != nil {
		return model.Member{}, fmt.Errorf("failed to clear member terms: %w", err)
	}
	for _, t := range terms {
		_, err := tx.Exec(ctx, `
			INSERT INTO member_terms (member_id, congress, chamber, start_year, end_year, state, district)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			saved.ID, t.Congress, t.Chamber, t.StartYear, t.EndYear, t.State, t.District)
		if err != nil {
			return model.Member{}, fmt.Errorf("failed to insert member term: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Member{}, fmt.Errorf("failed to commit member save: %w", err)
	}
	return saved, nil
}

// GetHearingByKey returns the stored hearing or pgx.ErrNoRows.
func (s *Postgres) GetHearingByKey(ctx context.Context, congress int, chamber, eventID string) (model.Hearing, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, event_id, congress, chamber, title, committee, hearing_date, location,
			update_date, last_synced_at, created_at, updated_at
		FROM hearings WHERE congress = $1 AND chamber = $2 AND event_id = $3`,
		congress, chamber, eventID)
	return scanHearing(row)
}

// SaveHearing upserts a hearing by its (congress, chamber, event) key.
func (s *Postgres) SaveHearing(ctx context.Context, hearing model.Hearing) (model.Hearing, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO hearings (event_id, congress, chamber, title, committee, hearing_date, location, update_date, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (congress, chamber, event_id) DO UPDATE SET
			title = EXCLUDED.title,
			committee = EXCLUDED.committee,
			hearing_date = EXCLUDED.hearing_date,
			location = EXCLUDED.location,
			update_date = EXCLUDED.update_date,
			last_synced_at = now(),
			updated_at = now()
		RETURNING id, event_id, congress, chamber, title, committee, hearing_date, location,
			update_date, last_synced_at, created_at, updated_at`,
		hearing.EventID, hearing.Congress, hearing.Chamber, hearing.Title, hearing.Committee,
		nullableTime(hearing.HearingDate), hearing.Location, nullableTime(hearing.UpdateDate),
	)
	saved, err := scanHearing(row)
	if err != nil {
		return model.Hearing{}, fmt.Errorf("failed to upsert hearing %s: %w", hearing.EventID, err)
	}
	return saved, nil
}

func scanMember(row pgx.Row) (model.Member, error) {
	var (
		m                model.Member
		update, lastSync *time.Time
	)
	err := row.Scan(&m.ID, &m.BioguideID, &m.FullName, &m.State, &m.Party, &m.Chamber, &m.Current,
		&m.ImageURL, &update, &lastSync, &m.DBCreatedAt, &m.DBUpdatedAt)
	if err != nil {
		return model.Member{}, err
	}
	m.UpdateDate = derefTime(update)
	m.LastSyncedAt = derefTime(lastSync)
	return m, nil
}

func scanHearing(row pgx.Row) (model.Hearing, error) {
	var (
		h                      model.Hearing
		date, update, lastSync *time.Time
	)
	err := row.Scan(&h.ID, &h.EventID, &h.Congress, &h.Chamber, &h.Title, &h.Committee, &date, &h.Location,
		&update, &lastSync, &h.DBCreatedAt, &h.DBUpdatedAt)
	if err != nil {
		return model.Hearing{}, err
	}
	h.HearingDate = derefTime(date)
	h.UpdateDate = derefTime(update)
	h.LastSyncedAt = derefTime(lastSync)
	return h, nil
}
