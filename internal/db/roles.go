package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateRole adds a named role and returns its ID.
func (db *DB) CreateRole(ctx context.Context, name, description string) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO user_roles (name, description) VALUES ($1, $2) RETURNING id`,
		name, description,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create role: %w", err)
	}
	return id, nil
}

// GetRole retrieves a role by ID. Returns nil when missing.
func (db *DB) GetRole(ctx context.Context, id uuid.UUID) (*Role, error) {
	var r Role
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at FROM user_roles WHERE id = $1`, id,
	).Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &r, nil
}

// ListRoles returns all roles.
func (db *DB) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, description, created_at FROM user_roles ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// UpdateRole modifies a role.
func (db *DB) UpdateRole(ctx context.Context, id uuid.UUID, name, description string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE user_roles SET name = $1, description = $2 WHERE id = $3`,
		name, description, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("role not found: %s", id)
	}
	return nil
}

// DeleteRole removes a role (assignments and permissions cascade).
func (db *DB) DeleteRole(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM user_roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("role not found: %s", id)
	}
	return nil
}

// GetUserRoles returns the roles assigned to a user.
func (db *DB) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]Role, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT r.id, r.name, r.description, r.created_at
		 FROM user_roles r
		 JOIN role_assignments a ON a.role_id = r.id
		 WHERE a.user_id = $1
		 ORDER BY r.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// SetUserRoles replaces a user's role assignments.
func (db *DB) SetUserRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM role_assignments WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear role assignments: %w", err)
	}
	for _, roleID := range roleIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO role_assignments (user_id, role_id) VALUES ($1, $2)`,
			userID, roleID,
		)
		if err != nil {
			return fmt.Errorf("failed to assign role %s: %w", roleID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit role assignments: %w", err)
	}
	return nil
}

// GetRolePermissions returns the page keys a role may access.
func (db *DB) GetRolePermissions(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT page_key FROM role_page_permissions WHERE role_id = $1 ORDER BY page_key`,
		roleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
	}
	defer rows.Close()

	var pages []string
	for rows.Next() {
		var page string
		if err := rows.Scan(&page); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

// SetRolePermissions replaces the page permission matrix row for one
// role.
func (db *DB) SetRolePermissions(ctx context.Context, roleID uuid.UUID, pageKeys []string) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM role_page_permissions WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("failed to clear role permissions: %w", err)
	}
	for _, page := range pageKeys {
		_, err := tx.Exec(ctx,
			`INSERT INTO role_page_permissions (role_id, page_key) VALUES ($1, $2)`,
			roleID, page,
		)
		if err != nil {
			return fmt.Errorf("failed to grant page %s: %w", page, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit role permissions: %w", err)
	}
	return nil
}

// UserCanAccessPage reports whether any of the user's roles grants the
// page. Accounts with no roles at all keep full access: they predate
// the permission matrix or are the bootstrap admin.
func (db *DB) UserCanAccessPage(ctx context.Context, userID uuid.UUID, pageKey string) (bool, error) {
	var allowed bool
	err := db.pool.QueryRow(ctx,
		`SELECT NOT EXISTS(
			SELECT 1 FROM role_assignments a WHERE a.user_id = $1
		) OR EXISTS(
			SELECT 1 FROM role_assignments a
			JOIN role_page_permissions p ON p.role_id = a.role_id
			WHERE a.user_id = $1 AND p.page_key = $2
		)`,
		userID, pageKey,
	).Scan(&allowed)
	if err != nil {
		return false, fmt.Errorf("failed to check page access: %w", err)
	}
	return allowed, nil
}
