package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/venturedesk/pipeline/internal/workflow"
)

// AppendLog writes one immutable audit record. Logs are never updated
// or deleted by the application.
func (db *DB) AppendLog(ctx context.Context, entry *workflow.Log) error {
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode log details: %w", err)
	}

	err = db.pool.QueryRow(ctx,
		`INSERT INTO workflow_logs (workflow_id, action_id, startup_id, action_type, status, message, details)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		nullableUUID(entry.WorkflowID), entry.ActionID, entry.StartupID,
		string(entry.ActionType), entry.Status, entry.Message, payload,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append workflow log: %w", err)
	}
	return nil
}

// LogFilter narrows a workflow log listing. Zero values mean "no
// filter".
type LogFilter struct {
	WorkflowID *uuid.UUID
	StartupID  *uuid.UUID
	Status     string
	ActionType string
}

// ListWorkflowLogs returns audit records newest first, with the total
// count for pagination.
func (db *DB) ListWorkflowLogs(ctx context.Context, filter LogFilter, limit, offset int) ([]*workflow.Log, int, error) {
	where := "WHERE 1=1"
	args := []any{}
	if filter.WorkflowID != nil {
		args = append(args, *filter.WorkflowID)
		where += fmt.Sprintf(" AND workflow_id = $%d", len(args))
	}
	if filter.StartupID != nil {
		args = append(args, *filter.StartupID)
		where += fmt.Sprintf(" AND startup_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.ActionType != "" {
		args = append(args, filter.ActionType)
		where += fmt.Sprintf(" AND action_type = $%d", len(args))
	}

	var total int
	if err := db.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM workflow_logs %s`, where), args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count workflow logs: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, workflow_id, action_id, startup_id, action_type, status, message, details, created_at
		 FROM workflow_logs %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list workflow logs: %w", err)
	}
	defer rows.Close()

	var logs []*workflow.Log
	for rows.Next() {
		var (
			entry      workflow.Log
			workflowID *uuid.UUID
			actionType string
			details    []byte
		)
		err := rows.Scan(&entry.ID, &workflowID, &entry.ActionID, &entry.StartupID,
			&actionType, &entry.Status, &entry.Message, &details, &entry.CreatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan workflow log: %w", err)
		}
		if workflowID != nil {
			entry.WorkflowID = *workflowID
		}
		entry.ActionType = workflow.ActionType(actionType)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, 0, fmt.Errorf("failed to decode log details: %w", err)
			}
		}
		logs = append(logs, &entry)
	}
	return logs, total, rows.Err()
}

// nullableUUID maps the zero UUID to NULL for nullable FK columns.
func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
