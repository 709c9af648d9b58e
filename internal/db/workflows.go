package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/venturedesk/pipeline/internal/workflow"
)

// CreateWorkflow inserts an automation rule and returns its ID.
func (db *DB) CreateWorkflow(ctx context.Context, wf *workflow.Workflow) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO workflows (name, description, trigger_type, trigger_details, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		wf.Name, wf.Description, wf.TriggerType, wf.TriggerDetails, wf.IsActive,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create workflow: %w", err)
	}
	return id, nil
}

// GetWorkflow loads a workflow with its conditions and actions, actions
// ordered by execution_order. Returns nil when missing.
func (db *DB) GetWorkflow(ctx context.Context, id uuid.UUID) (*workflow.Workflow, error) {
	var wf workflow.Workflow
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, description, trigger_type, trigger_details, is_active, created_at, updated_at
		 FROM workflows WHERE id = $1`,
		id,
	).Scan(&wf.ID, &wf.Name, &wf.Description, &wf.TriggerType, &wf.TriggerDetails,
		&wf.IsActive, &wf.CreatedAt, &wf.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if err := db.loadWorkflowChildren(ctx, &wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

// ListWorkflows returns all workflows with conditions and actions
// loaded, newest first.
func (db *DB) ListWorkflows(ctx context.Context) ([]*workflow.Workflow, error) {
	return db.queryWorkflows(ctx,
		`SELECT id, name, description, trigger_type, trigger_details, is_active, created_at, updated_at
		 FROM workflows ORDER BY created_at DESC`,
	)
}

// ListActiveWorkflows returns active workflows for one trigger type,
// conditions and actions loaded.
func (db *DB) ListActiveWorkflows(ctx context.Context, trigger workflow.TriggerType) ([]*workflow.Workflow, error) {
	return db.queryWorkflows(ctx,
		`SELECT id, name, description, trigger_type, trigger_details, is_active, created_at, updated_at
		 FROM workflows WHERE is_active AND trigger_type = $1 ORDER BY created_at`,
		trigger,
	)
}

func (db *DB) queryWorkflows(ctx context.Context, query string, args ...any) ([]*workflow.Workflow, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []*workflow.Workflow
	for rows.Next() {
		var wf workflow.Workflow
		err := rows.Scan(&wf.ID, &wf.Name, &wf.Description, &wf.TriggerType,
			&wf.TriggerDetails, &wf.IsActive, &wf.CreatedAt, &wf.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		workflows = append(workflows, &wf)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, wf := range workflows {
		if err := db.loadWorkflowChildren(ctx, wf); err != nil {
			return nil, err
		}
	}
	return workflows, nil
}

func (db *DB) loadWorkflowChildren(ctx context.Context, wf *workflow.Workflow) error {
	conditions, err := db.ListConditions(ctx, wf.ID)
	if err != nil {
		return err
	}
	actions, err := db.ListActions(ctx, wf.ID)
	if err != nil {
		return err
	}
	wf.Conditions = conditions
	wf.Actions = actions
	return nil
}

// UpdateWorkflow rewrites a workflow's own fields. Conditions and
// actions are managed through their own endpoints.
func (db *DB) UpdateWorkflow(ctx context.Context, wf *workflow.Workflow) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE workflows SET name = $1, description = $2, trigger_type = $3,
			trigger_details = $4, is_active = $5, updated_at = NOW()
		 WHERE id = $6`,
		wf.Name, wf.Description, wf.TriggerType, wf.TriggerDetails, wf.IsActive, wf.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workflow not found: %s", wf.ID)
	}
	return nil
}

// SetWorkflowActive toggles a workflow without touching its other
// fields.
func (db *DB) SetWorkflowActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE workflows SET is_active = $1, updated_at = NOW() WHERE id = $2`,
		active, id,
	)
	if err != nil {
		return fmt.Errorf("failed to toggle workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workflow not found: %s", id)
	}
	return nil
}

// DeleteWorkflow removes a workflow; its conditions and actions cascade
// and its logs keep a NULL workflow reference.
func (db *DB) DeleteWorkflow(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("workflow not found: %s", id)
	}
	return nil
}

// ListConditions returns a workflow's conditions.
func (db *DB) ListConditions(ctx context.Context, workflowID uuid.UUID) ([]workflow.Condition, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, workflow_id, field_name, operator, value, created_at
		 FROM workflow_conditions WHERE workflow_id = $1 ORDER BY created_at`,
		workflowID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conditions: %w", err)
	}
	defer rows.Close()

	var conditions []workflow.Condition
	for rows.Next() {
		var c workflow.Condition
		if err := rows.Scan(&c.ID, &c.WorkflowID, &c.FieldName, &c.Operator, &c.Value, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan condition: %w", err)
		}
		conditions = append(conditions, c)
	}
	return conditions, rows.Err()
}

// AddCondition appends a condition to a workflow and returns its ID.
func (db *DB) AddCondition(ctx context.Context, c *workflow.Condition) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO workflow_conditions (workflow_id, field_name, operator, value)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		c.WorkflowID, c.FieldName, c.Operator, c.Value,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to add condition: %w", err)
	}
	return id, nil
}

// DeleteCondition removes one condition.
func (db *DB) DeleteCondition(ctx context.Context, conditionID uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM workflow_conditions WHERE id = $1`,
		conditionID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete condition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("condition not found: %s", conditionID)
	}
	return nil
}

// ListActions returns a workflow's actions in execution order.
func (db *DB) ListActions(ctx context.Context, workflowID uuid.UUID) ([]workflow.Action, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, workflow_id, action_type, action_details, execution_order, created_at
		 FROM workflow_actions WHERE workflow_id = $1 ORDER BY execution_order, created_at`,
		workflowID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer rows.Close()

	var actions []workflow.Action
	for rows.Next() {
		var a workflow.Action
		if err := rows.Scan(&a.ID, &a.WorkflowID, &a.ActionType, &a.ActionDetails, &a.ExecutionOrder, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// AddAction appends an action to a workflow. When the caller does not
// set an execution order it lands after the workflow's current last
// action.
func (db *DB) AddAction(ctx context.Context, a *workflow.Action) (uuid.UUID, error) {
	order := a.ExecutionOrder
	if order <= 0 {
		if err := db.pool.QueryRow(ctx,
			`SELECT COALESCE(MAX(execution_order), 0) + 1 FROM workflow_actions WHERE workflow_id = $1`,
			a.WorkflowID,
		).Scan(&order); err != nil {
			return uuid.Nil, fmt.Errorf("failed to determine execution order: %w", err)
		}
	}

	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO workflow_actions (workflow_id, action_type, action_details, execution_order)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		a.WorkflowID, a.ActionType, a.ActionDetails, order,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to add action: %w", err)
	}
	return id, nil
}

// DeleteAction removes one action.
func (db *DB) DeleteAction(ctx context.Context, actionID uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM workflow_actions WHERE id = $1`,
		actionID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete action: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("action not found: %s", actionID)
	}
	return nil
}
