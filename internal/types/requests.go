// Package types provides request/response definitions shared by the
// pipeline server handlers.
package types

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// StatusRequest creates or updates a pipeline stage.
type StatusRequest struct {
	Name     string `json:"name" validate:"required,min=1"`
	Color    string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Position int    `json:"position" validate:"gte=0"`
}

// StartupRequest creates or fully updates a startup. Only name is
// required; everything else mirrors the field catalog.
type StartupRequest struct {
	Name               string     `json:"name" validate:"required,min=1"`
	Description        string     `json:"description,omitempty"`
	Website            *string    `json:"website,omitempty"`
	Sector             *string    `json:"sector,omitempty"`
	BusinessModel      *string    `json:"business_model,omitempty"`
	City               *string    `json:"city,omitempty"`
	State              *string    `json:"state,omitempty"`
	CEOName            *string    `json:"ceo_name,omitempty"`
	CEOEmail           *string    `json:"ceo_email,omitempty" validate:"omitempty,email"`
	CEOPhone           *string    `json:"ceo_phone,omitempty"`
	MRR                *float64   `json:"mrr,omitempty"`
	ClientCount        *float64   `json:"client_count,omitempty"`
	AccumulatedRevenue *float64   `json:"accumulated_revenue,omitempty"`
	TotalRevenue       *float64   `json:"total_revenue,omitempty"`
	TAM                *float64   `json:"tam,omitempty"`
	SAM                *float64   `json:"sam,omitempty"`
	SOM                *float64   `json:"som,omitempty"`
	FoundedDate        *time.Time `json:"founded_date,omitempty"`
	MarketAnalysis     *string    `json:"market_analysis,omitempty"`
	Differentials      *string    `json:"differentials,omitempty"`
	Competitors        *string    `json:"competitors,omitempty"`
	Priority           string     `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	PitchDeckURL       *string    `json:"pitch_deck_url,omitempty"`
	StatusID           *uuid.UUID `json:"status_id,omitempty"`
}

// MoveStartupRequest changes a startup's pipeline stage.
type MoveStartupRequest struct {
	StatusID uuid.UUID `json:"status_id" validate:"required"`
}

// UpdateFieldRequest edits one startup attribute. The value arrives as
// the spreadsheet-style string form and goes through the field catalog
// coercion rules.
type UpdateFieldRequest struct {
	Field string `json:"field" validate:"required"`
	Value string `json:"value"`
}

// TaskRequest creates or updates a task.
type TaskRequest struct {
	Title       string     `json:"title" validate:"required,min=1"`
	Description string     `json:"description,omitempty"`
	StartupID   *uuid.UUID `json:"startup_id,omitempty"`
	AssigneeID  *uuid.UUID `json:"assignee_id,omitempty"`
	Priority    string     `json:"priority,omitempty" validate:"omitempty,oneof=low medium high"`
	Status      string     `json:"status,omitempty" validate:"omitempty,oneof=todo in_progress done cancelled"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// WorkflowRequest creates or updates an automation rule.
type WorkflowRequest struct {
	Name           string          `json:"name" validate:"required,min=1"`
	Description    string          `json:"description,omitempty"`
	TriggerType    string          `json:"trigger_type" validate:"required,oneof=status_change attribute_change task_creation"`
	TriggerDetails json.RawMessage `json:"trigger_details,omitempty"`
	IsActive       *bool           `json:"is_active,omitempty"`
}

// ConditionRequest appends a condition to a workflow.
type ConditionRequest struct {
	FieldName string `json:"field_name" validate:"required,min=1"`
	Operator  string `json:"operator" validate:"required,oneof=equals not_equals contains greater_than less_than"`
	Value     string `json:"value"`
}

// ActionRequest appends an action to a workflow. ExecutionOrder zero
// means "after the current last action".
type ActionRequest struct {
	ActionType     string          `json:"action_type" validate:"required,oneof=send_email update_attribute create_task status_query"`
	ActionDetails  json.RawMessage `json:"action_details" validate:"required"`
	ExecutionOrder int             `json:"execution_order,omitempty" validate:"gte=0"`
}

// ExecuteWorkflowRequest runs one workflow against one entity.
type ExecuteWorkflowRequest struct {
	EntityType string    `json:"entity_type" validate:"required,oneof=startup task"`
	EntityID   uuid.UUID `json:"entity_id" validate:"required"`
}

// RoleRequest creates or updates a role.
type RoleRequest struct {
	Name        string `json:"name" validate:"required,min=1"`
	Description string `json:"description,omitempty"`
}

// SetRolesRequest replaces a user's role assignments.
type SetRolesRequest struct {
	RoleIDs []uuid.UUID `json:"role_ids" validate:"required"`
}

// SetPermissionsRequest replaces a role's page permission set.
type SetPermissionsRequest struct {
	PageKeys []string `json:"page_keys" validate:"required,dive,min=1"`
}

// ImportRunRequest is the JSON part accompanying the spreadsheet file
// on an import run: spreadsheet column header to field catalog key.
type ImportRunRequest struct {
	Mapping map[string]string `json:"mapping" validate:"required,min=1"`
}

// Validate validates the StatusRequest using the validator.
func (r *StatusRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the StartupRequest using the validator.
func (r *StartupRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the MoveStartupRequest using the validator.
func (r *MoveStartupRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the UpdateFieldRequest using the validator.
func (r *UpdateFieldRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the TaskRequest using the validator.
func (r *TaskRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the WorkflowRequest using the validator.
func (r *WorkflowRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the ConditionRequest using the validator.
func (r *ConditionRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the ActionRequest using the validator.
func (r *ActionRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the ExecuteWorkflowRequest using the validator.
func (r *ExecuteWorkflowRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the RoleRequest using the validator.
func (r *RoleRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the SetRolesRequest using the validator.
func (r *SetRolesRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the SetPermissionsRequest using the validator.
func (r *SetPermissionsRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the ImportRunRequest using the validator.
func (r *ImportRunRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
