package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const startupColumns = `id, name, description, website, sector, business_model, city, state,
	ceo_name, ceo_email, ceo_phone, mrr, client_count, accumulated_revenue, total_revenue,
	tam, sam, som, founded_date, market_analysis, differentials, competitors, priority,
	pitch_deck_url, status_id, created_at, updated_at`

// startupColumnSet whitelists the columns dynamic writes (import,
// workflow attribute updates) may touch. Keys match field catalog keys.
var startupColumnSet = map[string]bool{
	"name": true, "description": true, "website": true, "sector": true,
	"business_model": true, "city": true, "state": true,
	"ceo_name": true, "ceo_email": true, "ceo_phone": true,
	"mrr": true, "client_count": true, "accumulated_revenue": true,
	"total_revenue": true, "tam": true, "sam": true, "som": true,
	"founded_date": true, "market_analysis": true, "differentials": true,
	"competitors": true, "priority": true, "pitch_deck_url": true,
}

func scanStartup(row pgx.Row) (*Startup, error) {
	var s Startup
	err := row.Scan(
		&s.ID, &s.Name, &s.Description, &s.Website, &s.Sector, &s.BusinessModel,
		&s.City, &s.State, &s.CEOName, &s.CEOEmail, &s.CEOPhone,
		&s.MRR, &s.ClientCount, &s.AccumulatedRevenue, &s.TotalRevenue,
		&s.TAM, &s.SAM, &s.SOM, &s.FoundedDate,
		&s.MarketAnalysis, &s.Differentials, &s.Competitors, &s.Priority,
		&s.PitchDeckURL, &s.StatusID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateStartup inserts a startup and, when a status is set, its
// initial status history entry. Returns the new ID.
func (db *DB) CreateStartup(ctx context.Context, s *Startup) (uuid.UUID, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO startups (name, description, website, sector, business_model, city, state,
			ceo_name, ceo_email, ceo_phone, mrr, client_count, accumulated_revenue, total_revenue,
			tam, sam, som, founded_date, market_analysis, differentials, competitors, priority,
			pitch_deck_url, status_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24)
		 RETURNING id`,
		s.Name, s.Description, s.Website, s.Sector, s.BusinessModel, s.City, s.State,
		s.CEOName, s.CEOEmail, s.CEOPhone, s.MRR, s.ClientCount, s.AccumulatedRevenue,
		s.TotalRevenue, s.TAM, s.SAM, s.SOM, s.FoundedDate, s.MarketAnalysis,
		s.Differentials, s.Competitors, s.Priority, s.PitchDeckURL, s.StatusID,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create startup: %w", err)
	}

	if s.StatusID != nil {
		_, err = tx.Exec(ctx,
			`INSERT INTO startup_status_history (startup_id, to_status) VALUES ($1, $2)`,
			id, *s.StatusID,
		)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to record initial status: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit startup: %w", err)
	}
	return id, nil
}

// InsertImported creates a startup from coerced import values and
// records its initial status assignment. Implements importer.Store.
func (db *DB) InsertImported(ctx context.Context, values map[string]any, statusID uuid.UUID) (uuid.UUID, error) {
	columns := []string{"status_id"}
	args := []any{statusID}
	for col, val := range values {
		if !startupColumnSet[col] {
			continue
		}
		columns = append(columns, col)
		args = append(args, val)
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id uuid.UUID
	query := fmt.Sprintf(
		`INSERT INTO startups (%s) VALUES (%s) RETURNING id`,
		strings.Join(columns, ", "), strings.Join(placeholders, ", "),
	)
	if err := tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert imported startup: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO startup_status_history (startup_id, to_status) VALUES ($1, $2)`,
		id, statusID,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record initial status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit imported startup: %w", err)
	}
	return id, nil
}

// GetStartup retrieves a startup by ID. Returns nil when missing.
func (db *DB) GetStartup(ctx context.Context, id uuid.UUID) (*Startup, error) {
	s, err := scanStartup(db.pool.QueryRow(ctx,
		`SELECT `+startupColumns+` FROM startups WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get startup: %w", err)
	}
	return s, nil
}

// ListStartups returns startups, optionally filtered to one pipeline
// stage, newest first, with the total count for pagination.
func (db *DB) ListStartups(ctx context.Context, statusID *uuid.UUID, limit, offset int) ([]*Startup, int, error) {
	where := ""
	args := []any{}
	if statusID != nil {
		where = "WHERE status_id = $1"
		args = append(args, *statusID)
	}

	var total int
	if err := db.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM startups %s`, where), args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count startups: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM startups %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		startupColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list startups: %w", err)
	}
	defer rows.Close()

	var startups []*Startup
	for rows.Next() {
		s, err := scanStartup(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan startup: %w", err)
		}
		startups = append(startups, s)
	}
	return startups, total, rows.Err()
}

// UpdateStartup rewrites a startup's editable fields.
func (db *DB) UpdateStartup(ctx context.Context, s *Startup) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE startups SET name = $1, description = $2, website = $3, sector = $4,
			business_model = $5, city = $6, state = $7, ceo_name = $8, ceo_email = $9,
			ceo_phone = $10, mrr = $11, client_count = $12, accumulated_revenue = $13,
			total_revenue = $14, tam = $15, sam = $16, som = $17, founded_date = $18,
			market_analysis = $19, differentials = $20, competitors = $21, priority = $22,
			pitch_deck_url = $23, updated_at = NOW()
		 WHERE id = $24`,
		s.Name, s.Description, s.Website, s.Sector, s.BusinessModel, s.City, s.State,
		s.CEOName, s.CEOEmail, s.CEOPhone, s.MRR, s.ClientCount, s.AccumulatedRevenue,
		s.TotalRevenue, s.TAM, s.SAM, s.SOM, s.FoundedDate, s.MarketAnalysis,
		s.Differentials, s.Competitors, s.Priority, s.PitchDeckURL, s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update startup: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("startup not found: %s", s.ID)
	}
	return nil
}

// UpdateStartupColumn writes one whitelisted column on a startup.
func (db *DB) UpdateStartupColumn(ctx context.Context, id uuid.UUID, column string, value any) error {
	if !startupColumnSet[column] {
		return fmt.Errorf("column not updatable: %s", column)
	}
	query := fmt.Sprintf(`UPDATE startups SET %s = $1, updated_at = NOW() WHERE id = $2`, column)
	tag, err := db.pool.Exec(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("failed to update startup %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("startup not found: %s", id)
	}
	return nil
}

// MoveStartup changes a startup's pipeline stage and appends the
// transition to its status history. Returns the previous stage.
func (db *DB) MoveStartup(ctx context.Context, id, toStatus uuid.UUID, changedBy *uuid.UUID) (*uuid.UUID, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var fromStatus *uuid.UUID
	err = tx.QueryRow(ctx, `SELECT status_id FROM startups WHERE id = $1 FOR UPDATE`, id).Scan(&fromStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("startup not found: %s", id)
		}
		return nil, fmt.Errorf("failed to load startup status: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE startups SET status_id = $1, updated_at = NOW() WHERE id = $2`,
		toStatus, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to move startup: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO startup_status_history (startup_id, from_status, to_status, changed_by)
		 VALUES ($1, $2, $3, $4)`,
		id, fromStatus, toStatus, changedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record status change: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit status change: %w", err)
	}
	return fromStatus, nil
}

// DeleteStartup removes a startup (history cascades).
func (db *DB) DeleteStartup(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM startups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete startup: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("startup not found: %s", id)
	}
	return nil
}

// AppendFieldHistory records one field edit in the append-only log.
func (db *DB) AppendFieldHistory(ctx context.Context, startupID uuid.UUID, field string, oldValue, newValue *string, changedBy *uuid.UUID) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO startup_field_history (startup_id, field_name, old_value, new_value, changed_by)
		 VALUES ($1, $2, $3, $4, $5)`,
		startupID, field, oldValue, newValue, changedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to append field history: %w", err)
	}
	return nil
}

// ListStatusHistory returns a startup's stage transitions, oldest
// first.
func (db *DB) ListStatusHistory(ctx context.Context, startupID uuid.UUID) ([]StatusHistoryEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, startup_id, from_status, to_status, changed_by, created_at
		 FROM startup_status_history WHERE startup_id = $1 ORDER BY created_at`,
		startupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	defer rows.Close()

	var entries []StatusHistoryEntry
	for rows.Next() {
		var e StatusHistoryEntry
		if err := rows.Scan(&e.ID, &e.StartupID, &e.FromStatus, &e.ToStatus, &e.ChangedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListFieldHistory returns a startup's field edits, oldest first.
func (db *DB) ListFieldHistory(ctx context.Context, startupID uuid.UUID) ([]FieldHistoryEntry, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, startup_id, field_name, old_value, new_value, changed_by, created_at
		 FROM startup_field_history WHERE startup_id = $1 ORDER BY created_at`,
		startupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list field history: %w", err)
	}
	defer rows.Close()

	var entries []FieldHistoryEntry
	for rows.Next() {
		var e FieldHistoryEntry
		if err := rows.Scan(&e.ID, &e.StartupID, &e.FieldName, &e.OldValue, &e.NewValue, &e.ChangedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan field history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
