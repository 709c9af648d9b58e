// Package workflow implements the rule-based automation engine:
// workflows react to entity state changes by evaluating conditions and
// executing ordered actions (send email, update attribute, create
// task, query status), logging every action execution.
package workflow

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TriggerType is the event class that causes a workflow to be
// considered for execution.
type TriggerType string

const (
	TriggerStatusChange    TriggerType = "status_change"
	TriggerAttributeChange TriggerType = "attribute_change"
	TriggerTaskCreation    TriggerType = "task_creation"
)

// ActionType identifies one kind of workflow action.
type ActionType string

const (
	ActionSendEmail       ActionType = "send_email"
	ActionUpdateAttribute ActionType = "update_attribute"
	ActionCreateTask      ActionType = "create_task"
	ActionStatusQuery     ActionType = "status_query"
)

// Operator is a condition comparison operator.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
)

// LogStatus is the outcome class of one action execution.
type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogError   LogStatus = "error"
	LogInfo    LogStatus = "info"
	LogWarning LogStatus = "warning"
)

// Workflow is one automation rule with its conditions and ordered
// actions.
type Workflow struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	TriggerType    TriggerType     `json:"trigger_type"`
	TriggerDetails json.RawMessage `json:"trigger_details"`
	IsActive       bool            `json:"is_active"`
	Conditions     []Condition     `json:"conditions,omitempty"`
	Actions        []Action        `json:"actions,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Condition is a single field/operator/value test. All of a workflow's
// conditions must pass before any action runs.
type Condition struct {
	ID         uuid.UUID `json:"id"`
	WorkflowID uuid.UUID `json:"workflow_id"`
	FieldName  string    `json:"field_name"`
	Operator   Operator  `json:"operator"`
	Value      string    `json:"value"`
	CreatedAt  time.Time `json:"created_at"`
}

// Action is one unit of work a workflow performs. Actions execute in
// ascending ExecutionOrder.
type Action struct {
	ID             uuid.UUID       `json:"id"`
	WorkflowID     uuid.UUID       `json:"workflow_id"`
	ActionType     ActionType      `json:"action_type"`
	ActionDetails  json.RawMessage `json:"action_details"`
	ExecutionOrder int             `json:"execution_order"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Log is one immutable audit record of an action execution (or of an
// engine-level failure before any action ran).
type Log struct {
	ID         uuid.UUID      `json:"id"`
	WorkflowID uuid.UUID      `json:"workflow_id"`
	ActionID   *uuid.UUID     `json:"action_id,omitempty"`
	StartupID  *uuid.UUID     `json:"startup_id,omitempty"`
	ActionType ActionType     `json:"action_type,omitempty"`
	Status     LogStatus      `json:"status"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// EntityType identifies the kind of entity a workflow execution
// targets.
type EntityType string

const (
	EntityStartup EntityType = "startup"
	EntityTask    EntityType = "task"
)

// EntityRef points at the entity whose state change triggered (or was
// manually chosen for) an execution.
type EntityRef struct {
	Type EntityType `json:"entity_type"`
	ID   uuid.UUID  `json:"entity_id"`
}

// Snapshot is a flat string view of an entity's attributes at
// execution time. Conditions and template placeholders both read from
// it; numeric fields are rendered in their canonical string form.
type Snapshot map[string]string
