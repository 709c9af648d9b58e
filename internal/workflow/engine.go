package workflow

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/venturedesk/pipeline/internal/fields"
)

// Store is the persistence surface the engine needs. Implemented by
// internal/db.
type Store interface {
	// GetWorkflow loads a workflow with its conditions and actions
	// (actions ordered by execution_order). Returns nil when missing.
	GetWorkflow(ctx context.Context, id uuid.UUID) (*Workflow, error)
	// ListActiveWorkflows returns active workflows for a trigger type,
	// conditions and actions loaded.
	ListActiveWorkflows(ctx context.Context, trigger TriggerType) ([]*Workflow, error)
	// AppendLog writes one immutable audit record.
	AppendLog(ctx context.Context, entry *Log) error
	// Snapshot returns the entity's attributes as flat strings
	// (including status_id and status_name for startups). Returns nil
	// when the entity does not exist.
	Snapshot(ctx context.Context, ref EntityRef) (Snapshot, error)
	// UpdateEntityField writes one field on the target entity.
	UpdateEntityField(ctx context.Context, ref EntityRef, field string, value any) error
	// CreateTask persists a task created by a workflow action.
	CreateTask(ctx context.Context, spec TaskSpec) (uuid.UUID, error)
}

// TaskSpec is the engine's request to create a task.
type TaskSpec struct {
	Title       string
	Description string
	StartupID   *uuid.UUID
	AssigneeID  *uuid.UUID
	Priority    string
	DueDate     *time.Time
	CreatedBy   *uuid.UUID
}

// Email is an outbound message from a send_email action.
type Email struct {
	To      string
	Subject string
	Body    string
}

// SendReceipt reports where a message actually went. In test mode
// DeliveredTo differs from the intended recipient.
type SendReceipt struct {
	DeliveredTo string
	TestMode    bool
}

// Mailer dispatches workflow emails. Implemented by internal/mail.
type Mailer interface {
	Send(ctx context.Context, msg Email) (SendReceipt, error)
}

// ErrWorkflowNotFound indicates an execution request for an unknown
// workflow.
type ErrWorkflowNotFound struct {
	ID uuid.UUID
}

func (e *ErrWorkflowNotFound) Error() string {
	return fmt.Sprintf("workflow not found: %s", e.ID)
}

// ErrEntityNotFound indicates the triggering entity does not exist.
type ErrEntityNotFound struct {
	Ref EntityRef
}

func (e *ErrEntityNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Ref.Type, e.Ref.ID)
}

// Engine evaluates workflow conditions against entity snapshots and
// executes matching actions. Action failures are recovered and logged;
// they never propagate to the triggering operation.
type Engine struct {
	store  Store
	mailer Mailer
	now    func() time.Time
}

// NewEngine creates an engine over the given store and mailer.
func NewEngine(store Store, mailer Mailer) *Engine {
	return &Engine{store: store, mailer: mailer, now: time.Now}
}

// Execute runs one workflow against one entity: load, match
// conditions, run actions in order. A non-matching condition set is a
// normal outcome (nil error, no actions). Configuration errors
// (unknown workflow or entity) are returned to the caller after a
// single error log entry.
func (e *Engine) Execute(ctx context.Context, workflowID uuid.UUID, ref EntityRef, actor uuid.UUID) error {
	wf, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to load workflow: %w", err)
	}
	if wf == nil {
		e.logEngineFailure(ctx, workflowID, ref, fmt.Sprintf("workflow not found: %s", workflowID))
		return &ErrWorkflowNotFound{ID: workflowID}
	}

	snap, err := e.store.Snapshot(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to load %s snapshot: %w", ref.Type, err)
	}
	if snap == nil {
		e.logEngineFailure(ctx, workflowID, ref, fmt.Sprintf("%s not found: %s", ref.Type, ref.ID))
		return &ErrEntityNotFound{Ref: ref}
	}

	if !Matches(wf.Conditions, snap) {
		log.Printf("[workflow] %s: conditions not met for %s %s, no actions run", wf.Name, ref.Type, ref.ID)
		return nil
	}

	e.runActions(ctx, wf, ref, snap, actor)
	return nil
}

// OnStatusChange fires status_change workflows after a startup moved
// between pipeline stages. Engine problems are logged, never returned:
// the status change itself has already succeeded.
func (e *Engine) OnStatusChange(ctx context.Context, startupID, fromStatus, toStatus uuid.UUID, actor uuid.UUID) {
	workflows, err := e.store.ListActiveWorkflows(ctx, TriggerStatusChange)
	if err != nil {
		log.Printf("[workflow] failed to list status_change workflows: %v", err)
		return
	}

	ref := EntityRef{Type: EntityStartup, ID: startupID}
	for _, wf := range workflows {
		details, err := ParseTriggerDetails(wf.TriggerType, wf.TriggerDetails)
		if err != nil {
			log.Printf("[workflow] %s: bad trigger details: %v", wf.Name, err)
			continue
		}
		t := details.StatusChange
		if t.ToStatusID != "" && t.ToStatusID != toStatus.String() {
			continue
		}
		if t.FromStatusID != "" && t.FromStatusID != fromStatus.String() {
			continue
		}
		e.dispatch(ctx, wf, ref, actor)
	}
}

// OnAttributeChange fires attribute_change workflows after a startup
// field edit.
func (e *Engine) OnAttributeChange(ctx context.Context, startupID uuid.UUID, field string, actor uuid.UUID) {
	workflows, err := e.store.ListActiveWorkflows(ctx, TriggerAttributeChange)
	if err != nil {
		log.Printf("[workflow] failed to list attribute_change workflows: %v", err)
		return
	}

	ref := EntityRef{Type: EntityStartup, ID: startupID}
	for _, wf := range workflows {
		details, err := ParseTriggerDetails(wf.TriggerType, wf.TriggerDetails)
		if err != nil {
			log.Printf("[workflow] %s: bad trigger details: %v", wf.Name, err)
			continue
		}
		if t := details.AttributeChange; t.Field != "" && t.Field != field {
			continue
		}
		e.dispatch(ctx, wf, ref, actor)
	}
}

// OnTaskCreated fires task_creation workflows after a task was
// created manually. Tasks created by workflow actions do not re-fire
// the trigger, which would loop.
func (e *Engine) OnTaskCreated(ctx context.Context, taskID uuid.UUID, actor uuid.UUID) {
	workflows, err := e.store.ListActiveWorkflows(ctx, TriggerTaskCreation)
	if err != nil {
		log.Printf("[workflow] failed to list task_creation workflows: %v", err)
		return
	}

	ref := EntityRef{Type: EntityTask, ID: taskID}
	for _, wf := range workflows {
		e.dispatch(ctx, wf, ref, actor)
	}
}

// dispatch runs one already-loaded workflow on the automatic trigger
// path: snapshot, match, execute, with all failures recovered.
func (e *Engine) dispatch(ctx context.Context, wf *Workflow, ref EntityRef, actor uuid.UUID) {
	snap, err := e.store.Snapshot(ctx, ref)
	if err != nil || snap == nil {
		log.Printf("[workflow] %s: could not snapshot %s %s: %v", wf.Name, ref.Type, ref.ID, err)
		return
	}
	if !Matches(wf.Conditions, snap) {
		return
	}
	e.runActions(ctx, wf, ref, snap, actor)
}

// runActions executes the workflow's actions in ascending execution
// order, writing exactly one log entry per action. One action's
// failure never halts the remaining actions.
func (e *Engine) runActions(ctx context.Context, wf *Workflow, ref EntityRef, snap Snapshot, actor uuid.UUID) {
	actions := make([]Action, len(wf.Actions))
	copy(actions, wf.Actions)
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].ExecutionOrder < actions[j].ExecutionOrder
	})

	for i := range actions {
		action := actions[i]
		status, message, details := e.runAction(ctx, action, ref, snap, actor)

		entry := &Log{
			WorkflowID: wf.ID,
			ActionID:   &action.ID,
			StartupID:  startupIDFor(ref, snap),
			ActionType: action.ActionType,
			Status:     status,
			Message:    message,
			Details:    details,
			CreatedAt:  e.now(),
		}
		if err := e.store.AppendLog(ctx, entry); err != nil {
			log.Printf("[workflow] %s: failed to append log for action %s: %v", wf.Name, action.ID, err)
		}
	}
}

// runAction executes a single action and reports its outcome. It never
// returns an error: failures become error-status log entries.
func (e *Engine) runAction(ctx context.Context, action Action, ref EntityRef, snap Snapshot, actor uuid.UUID) (LogStatus, string, map[string]any) {
	details, err := ParseActionDetails(action.ActionType, action.ActionDetails)
	if err != nil {
		return LogError, err.Error(), nil
	}

	switch action.ActionType {
	case ActionSendEmail:
		return e.runSendEmail(ctx, details.Email, snap)
	case ActionUpdateAttribute:
		return e.runUpdateAttribute(ctx, details.UpdateAttribute, ref, snap)
	case ActionCreateTask:
		return e.runCreateTask(ctx, details.CreateTask, ref, snap, actor)
	case ActionStatusQuery:
		return e.runStatusQuery(details.StatusQuery, snap)
	default:
		return LogError, fmt.Sprintf("unknown action type: %s", action.ActionType), nil
	}
}

func (e *Engine) runSendEmail(ctx context.Context, d *EmailDetails, snap Snapshot) (LogStatus, string, map[string]any) {
	recipient := d.Recipient
	if recipient == "" {
		recipient = snap[d.RecipientField]
	}
	if recipient == "" {
		return LogError, fmt.Sprintf("no recipient: field %q is empty on the entity", d.RecipientField), nil
	}

	msg := Email{
		To:      recipient,
		Subject: Render(d.Subject, snap),
		Body:    Render(d.Body, snap),
	}

	receipt, err := e.mailer.Send(ctx, msg)
	logDetails := map[string]any{
		"recipient":    recipient,
		"delivered_to": receipt.DeliveredTo,
		"subject":      msg.Subject,
		"test_mode":    receipt.TestMode,
	}
	if err != nil {
		return LogError, fmt.Sprintf("failed to send email to %s: %v", recipient, err), logDetails
	}
	if receipt.TestMode {
		return LogSuccess, fmt.Sprintf("test mode: email for %s delivered to %s", recipient, receipt.DeliveredTo), logDetails
	}
	return LogSuccess, fmt.Sprintf("email sent to %s", recipient), logDetails
}

func (e *Engine) runUpdateAttribute(ctx context.Context, d *UpdateAttributeDetails, ref EntityRef, snap Snapshot) (LogStatus, string, map[string]any) {
	rendered := Render(d.Value, snap)
	logDetails := map[string]any{"field": d.Field, "value": rendered}

	var value any = rendered
	if ref.Type == EntityStartup {
		// Startup attribute writes go through the same typing rules as
		// import.
		coerced, warning, err := fields.Coerce(d.Field, rendered)
		if err != nil {
			return LogError, fmt.Sprintf("invalid value for %s: %v", d.Field, err), logDetails
		}
		if warning != "" {
			return LogWarning, fmt.Sprintf("skipped update of %s: %s", d.Field, warning), logDetails
		}
		value = coerced
	}

	if err := e.store.UpdateEntityField(ctx, ref, d.Field, value); err != nil {
		return LogError, fmt.Sprintf("failed to update %s: %v", d.Field, err), logDetails
	}
	return LogSuccess, fmt.Sprintf("updated %s on %s %s", d.Field, ref.Type, ref.ID), logDetails
}

func (e *Engine) runCreateTask(ctx context.Context, d *CreateTaskDetails, ref EntityRef, snap Snapshot, actor uuid.UUID) (LogStatus, string, map[string]any) {
	spec := TaskSpec{
		Title:       Render(d.Title, snap),
		Description: Render(d.Description, snap),
		Priority:    d.Priority,
		StartupID:   startupIDFor(ref, snap),
	}
	if actor != uuid.Nil {
		a := actor
		spec.CreatedBy = &a
	}

	switch d.Assignee {
	case "":
		// Unassigned.
	case "current_user", "triggering_user":
		if actor != uuid.Nil {
			a := actor
			spec.AssigneeID = &a
		}
	default:
		id, err := uuid.Parse(d.Assignee)
		if err != nil {
			return LogError, fmt.Sprintf("invalid assignee %q", d.Assignee), nil
		}
		spec.AssigneeID = &id
	}

	if d.DueInDays > 0 {
		due := e.now().AddDate(0, 0, d.DueInDays)
		spec.DueDate = &due
	}

	taskID, err := e.store.CreateTask(ctx, spec)
	if err != nil {
		return LogError, fmt.Sprintf("failed to create task: %v", err), map[string]any{"title": spec.Title}
	}
	return LogSuccess, fmt.Sprintf("created task %q", spec.Title), map[string]any{
		"task_id": taskID.String(),
		"title":   spec.Title,
	}
}

// runStatusQuery is read-only: it reports whether the entity's current
// status matches the configured target. Matches log as info,
// mismatches as warning.
func (e *Engine) runStatusQuery(d *StatusQueryDetails, snap Snapshot) (LogStatus, string, map[string]any) {
	current := snap["status_id"]
	logDetails := map[string]any{
		"target_status_id":  d.TargetStatusID,
		"current_status_id": current,
		"matched":           current == d.TargetStatusID,
	}
	if current == d.TargetStatusID {
		return LogInfo, "status matches target", logDetails
	}
	return LogWarning, fmt.Sprintf("status %s does not match target %s", current, d.TargetStatusID), logDetails
}

// logEngineFailure writes the single error entry for failures that
// happen before any action runs.
func (e *Engine) logEngineFailure(ctx context.Context, workflowID uuid.UUID, ref EntityRef, message string) {
	entry := &Log{
		WorkflowID: workflowID,
		StartupID:  startupIDFor(ref, nil),
		Status:     LogError,
		Message:    message,
		CreatedAt:  e.now(),
	}
	if err := e.store.AppendLog(ctx, entry); err != nil {
		log.Printf("[workflow] failed to append engine failure log: %v", err)
	}
}

// startupIDFor resolves the startup back-reference for a log entry:
// the entity itself for startups, the linked startup (if any) for
// tasks.
func startupIDFor(ref EntityRef, snap Snapshot) *uuid.UUID {
	if ref.Type == EntityStartup {
		id := ref.ID
		return &id
	}
	if snap != nil {
		if linked, err := uuid.Parse(snap["startup_id"]); err == nil {
			return &linked
		}
	}
	return nil
}
