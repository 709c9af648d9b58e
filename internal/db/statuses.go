package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DefaultStatuses are the pipeline stages seeded into an empty
// deployment, in board order.
var DefaultStatuses = []Status{
	{Name: "Registered", Color: "#6b7280", Position: 1},
	{Name: "Screening", Color: "#3b82f6", Position: 2},
	{Name: "Due Diligence", Color: "#f59e0b", Position: 3},
	{Name: "Negotiation", Color: "#8b5cf6", Position: 4},
	{Name: "Invested", Color: "#22c55e", Position: 5},
	{Name: "Declined", Color: "#ef4444", Position: 6},
}

// SeedStatuses inserts the default pipeline stages when the table is
// empty. Safe to call on every startup.
func (db *DB) SeedStatuses(ctx context.Context) error {
	var count int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM statuses`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count statuses: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, s := range DefaultStatuses {
		_, err := db.pool.Exec(ctx,
			`INSERT INTO statuses (name, color, position) VALUES ($1, $2, $3)`,
			s.Name, s.Color, s.Position,
		)
		if err != nil {
			return fmt.Errorf("failed to seed status %s: %w", s.Name, err)
		}
	}
	return nil
}

// CreateStatus adds a new pipeline stage and returns its ID.
func (db *DB) CreateStatus(ctx context.Context, name, color string, position int) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO statuses (name, color, position) VALUES ($1, $2, $3) RETURNING id`,
		name, color, position,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create status: %w", err)
	}
	return id, nil
}

// GetStatus retrieves one pipeline stage. Returns nil when missing.
func (db *DB) GetStatus(ctx context.Context, id uuid.UUID) (*Status, error) {
	var s Status
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, color, position, created_at FROM statuses WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Name, &s.Color, &s.Position, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return &s, nil
}

// GetStatusByName retrieves a stage by its unique name. Returns nil
// when missing.
func (db *DB) GetStatusByName(ctx context.Context, name string) (*Status, error) {
	var s Status
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, color, position, created_at FROM statuses WHERE name = $1`,
		name,
	).Scan(&s.ID, &s.Name, &s.Color, &s.Position, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get status by name: %w", err)
	}
	return &s, nil
}

// ListStatuses returns all pipeline stages in board order.
func (db *DB) ListStatuses(ctx context.Context) ([]Status, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, color, position, created_at FROM statuses ORDER BY position, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}
	defer rows.Close()

	var statuses []Status
	for rows.Next() {
		var s Status
		if err := rows.Scan(&s.ID, &s.Name, &s.Color, &s.Position, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// UpdateStatus modifies a pipeline stage.
func (db *DB) UpdateStatus(ctx context.Context, id uuid.UUID, name, color string, position int) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE statuses SET name = $1, color = $2, position = $3 WHERE id = $4`,
		name, color, position, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("status not found: %s", id)
	}
	return nil
}

// DeleteStatus removes a pipeline stage. Fails while startups still
// reference it (foreign key).
func (db *DB) DeleteStatus(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM statuses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("status not found: %s", id)
	}
	return nil
}
