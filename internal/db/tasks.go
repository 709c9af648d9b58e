package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const taskColumns = `id, title, description, startup_id, assignee_id, priority, status,
	due_date, created_by, created_at, updated_at`

// taskColumnSet whitelists the task columns workflow attribute updates
// may touch.
var taskColumnSet = map[string]bool{
	"title": true, "description": true, "priority": true, "status": true,
}

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.StartupID, &t.AssigneeID,
		&t.Priority, &t.Status, &t.DueDate, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask inserts a task and returns its ID.
func (db *DB) CreateTask(ctx context.Context, t *Task) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO tasks (title, description, startup_id, assignee_id, priority, status, due_date, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		t.Title, t.Description, t.StartupID, t.AssigneeID, t.Priority, t.Status, t.DueDate, t.CreatedBy,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create task: %w", err)
	}
	return id, nil
}

// GetTask retrieves a task by ID. Returns nil when missing.
func (db *DB) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	t, err := scanTask(db.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// ListTasks returns tasks, optionally filtered by startup and/or
// assignee, newest first.
func (db *DB) ListTasks(ctx context.Context, startupID, assigneeID *uuid.UUID, limit, offset int) ([]*Task, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	if startupID != nil {
		args = append(args, *startupID)
		where += fmt.Sprintf(" AND startup_id = $%d", len(args))
	}
	if assigneeID != nil {
		args = append(args, *assigneeID)
		where += fmt.Sprintf(" AND assignee_id = $%d", len(args))
	}

	var total int
	if err := db.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM tasks %s`, where), args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM tasks %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		taskColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, total, rows.Err()
}

// UpdateTask rewrites a task's editable fields.
func (db *DB) UpdateTask(ctx context.Context, t *Task) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE tasks SET title = $1, description = $2, startup_id = $3, assignee_id = $4,
			priority = $5, status = $6, due_date = $7, updated_at = NOW()
		 WHERE id = $8`,
		t.Title, t.Description, t.StartupID, t.AssigneeID, t.Priority, t.Status, t.DueDate, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task not found: %s", t.ID)
	}
	return nil
}

// UpdateTaskColumn writes one whitelisted column on a task.
func (db *DB) UpdateTaskColumn(ctx context.Context, id uuid.UUID, column string, value any) error {
	if !taskColumnSet[column] {
		return fmt.Errorf("column not updatable: %s", column)
	}
	query := fmt.Sprintf(`UPDATE tasks SET %s = $1, updated_at = NOW() WHERE id = $2`, column)
	tag, err := db.pool.Exec(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task not found: %s", id)
	}
	return nil
}

// DeleteTask removes a task.
func (db *DB) DeleteTask(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("task not found: %s", id)
	}
	return nil
}
