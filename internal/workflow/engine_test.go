package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngineStore struct {
	workflows map[uuid.UUID]*Workflow
	active    []*Workflow
	snapshots map[uuid.UUID]Snapshot
	logs      []*Log
	updates   []string // "field=value" in call order
	tasks     []TaskSpec
	taskErr   error
	updateErr error
}

func newFakeEngineStore() *fakeEngineStore {
	return &fakeEngineStore{
		workflows: map[uuid.UUID]*Workflow{},
		snapshots: map[uuid.UUID]Snapshot{},
	}
}

func (f *fakeEngineStore) GetWorkflow(_ context.Context, id uuid.UUID) (*Workflow, error) {
	return f.workflows[id], nil
}

func (f *fakeEngineStore) ListActiveWorkflows(_ context.Context, trigger TriggerType) ([]*Workflow, error) {
	var out []*Workflow
	for _, wf := range f.active {
		if wf.TriggerType == trigger && wf.IsActive {
			out = append(out, wf)
		}
	}
	return out, nil
}

func (f *fakeEngineStore) AppendLog(_ context.Context, entry *Log) error {
	f.logs = append(f.logs, entry)
	return nil
}

func (f *fakeEngineStore) Snapshot(_ context.Context, ref EntityRef) (Snapshot, error) {
	return f.snapshots[ref.ID], nil
}

func (f *fakeEngineStore) UpdateEntityField(_ context.Context, _ EntityRef, field string, value any) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, fmt.Sprintf("%s=%v", field, value))
	return nil
}

func (f *fakeEngineStore) CreateTask(_ context.Context, spec TaskSpec) (uuid.UUID, error) {
	if f.taskErr != nil {
		return uuid.Nil, f.taskErr
	}
	f.tasks = append(f.tasks, spec)
	return uuid.New(), nil
}

type fakeMailer struct {
	sent     []Email
	testMode bool
	err      error
}

func (f *fakeMailer) Send(_ context.Context, msg Email) (SendReceipt, error) {
	if f.err != nil {
		return SendReceipt{}, f.err
	}
	f.sent = append(f.sent, msg)
	if f.testMode {
		return SendReceipt{DeliveredTo: "sandbox@test.local", TestMode: true}, nil
	}
	return SendReceipt{DeliveredTo: msg.To}, nil
}

func action(actionType ActionType, order int, details string) Action {
	return Action{
		ID:             uuid.New(),
		ActionType:     actionType,
		ActionDetails:  json.RawMessage(details),
		ExecutionOrder: order,
	}
}

func testWorkflow(store *fakeEngineStore, conditions []Condition, actions ...Action) *Workflow {
	wf := &Workflow{
		ID:          uuid.New(),
		Name:        "test workflow",
		TriggerType: TriggerStatusChange,
		IsActive:    true,
		Conditions:  conditions,
		Actions:     actions,
	}
	store.workflows[wf.ID] = wf
	return wf
}

func TestExecuteRunsActionsInOrder(t *testing.T) {
	store := newFakeEngineStore()
	mailer := &fakeMailer{}
	engine := NewEngine(store, mailer)

	// Declared out of order on purpose: execution must follow
	// execution_order, not declaration order.
	wf := testWorkflow(store, nil,
		action(ActionUpdateAttribute, 3, `{"field":"priority","value":"low"}`),
		action(ActionUpdateAttribute, 1, `{"field":"priority","value":"high"}`),
		action(ActionUpdateAttribute, 2, `{"field":"priority","value":"medium"}`),
	)

	startupID := uuid.New()
	store.snapshots[startupID] = Snapshot{"name": "Acme"}

	err := engine.Execute(context.Background(), wf.ID, EntityRef{Type: EntityStartup, ID: startupID}, uuid.Nil)
	require.NoError(t, err)

	require.Equal(t, []string{"priority=high", "priority=medium", "priority=low"}, store.updates)
	require.Len(t, store.logs, 3)
	for _, entry := range store.logs {
		assert.Equal(t, LogSuccess, entry.Status)
		assert.Equal(t, wf.ID, entry.WorkflowID)
		require.NotNil(t, entry.StartupID)
		assert.Equal(t, startupID, *entry.StartupID)
	}
}

func TestExecuteConditionGating(t *testing.T) {
	store := newFakeEngineStore()
	engine := NewEngine(store, &fakeMailer{})

	wf := testWorkflow(store,
		[]Condition{cond("status_name", OpEquals, "Closed")},
		action(ActionUpdateAttribute, 1, `{"field":"priority","value":"high"}`),
		action(ActionUpdateAttribute, 2, `{"field":"sector","value":"FinTech"}`),
	)

	startupID := uuid.New()
	ref := EntityRef{Type: EntityStartup, ID: startupID}

	// Open: no actions, no logs, no error.
	store.snapshots[startupID] = Snapshot{"status_name": "Open"}
	require.NoError(t, engine.Execute(context.Background(), wf.ID, ref, uuid.Nil))
	assert.Empty(t, store.logs)
	assert.Empty(t, store.updates)

	// Closed: every action runs.
	store.snapshots[startupID] = Snapshot{"status_name": "Closed"}
	require.NoError(t, engine.Execute(context.Background(), wf.ID, ref, uuid.Nil))
	assert.Len(t, store.logs, 2)
	assert.Len(t, store.updates, 2)
}

func TestExecuteContinuesAfterActionFailure(t *testing.T) {
	store := newFakeEngineStore()
	mailer := &fakeMailer{err: fmt.Errorf("smtp: connection refused")}
	engine := NewEngine(store, mailer)

	wf := testWorkflow(store, nil,
		action(ActionSendEmail, 1, `{"recipient":"x@y.com","subject":"Hi"}`),
		action(ActionUpdateAttribute, 2, `{"field":"priority","value":"high"}`),
	)

	startupID := uuid.New()
	store.snapshots[startupID] = Snapshot{}

	err := engine.Execute(context.Background(), wf.ID, EntityRef{Type: EntityStartup, ID: startupID}, uuid.Nil)
	require.NoError(t, err)

	require.Len(t, store.logs, 2)
	assert.Equal(t, LogError, store.logs[0].Status)
	assert.Contains(t, store.logs[0].Message, "failed to send email")
	assert.Equal(t, LogSuccess, store.logs[1].Status)
	assert.Equal(t, []string{"priority=high"}, store.updates)
}

func TestExecuteEmailRendering(t *testing.T) {
	store := newFakeEngineStore()
	mailer := &fakeMailer{}
	engine := NewEngine(store, mailer)

	wf := testWorkflow(store, nil,
		action(ActionSendEmail, 1, `{"recipient_field":"ceo_email","subject":"Update on {{name}}","body":"Hello {{ceo_name}}"}`),
	)

	startupID := uuid.New()
	store.snapshots[startupID] = Snapshot{
		"name":      "Acme",
		"ceo_name":  "Maria",
		"ceo_email": "maria@acme.com",
	}

	require.NoError(t, engine.Execute(context.Background(), wf.ID, EntityRef{Type: EntityStartup, ID: startupID}, uuid.Nil))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "maria@acme.com", mailer.sent[0].To)
	assert.Equal(t, "Update on Acme", mailer.sent[0].Subject)
	assert.Equal(t, "Hello Maria", mailer.sent[0].Body)
}

func TestExecuteEmailTestModeLogsIntendedRecipient(t *testing.T) {
	store := newFakeEngineStore()
	mailer := &fakeMailer{testMode: true}
	engine := NewEngine(store, mailer)

	wf := testWorkflow(store, nil,
		action(ActionSendEmail, 1, `{"recipient":"maria@acme.com","subject":"Hi"}`),
	)

	startupID := uuid.New()
	store.snapshots[startupID] = Snapshot{}

	require.NoError(t, engine.Execute(context.Background(), wf.ID, EntityRef{Type: EntityStartup, ID: startupID}, uuid.Nil))

	require.Len(t, store.logs, 1)
	entry := store.logs[0]
	assert.Equal(t, LogSuccess, entry.Status)
	assert.Equal(t, "maria@acme.com", entry.Details["recipient"])
	assert.Equal(t, "sandbox@test.local", entry.Details["delivered_to"])
	assert.Equal(t, true, entry.Details["test_mode"])
}

func TestExecuteUpdateAttributeCoercion(t *testing.T) {
	store := newFakeEngineStore()
	engine := NewEngine(store, &fakeMailer{})

	wf := testWorkflow(store, nil,
		action(ActionUpdateAttribute, 1, `{"field":"ceo_email","value":"not-an-email"}`),
		action(ActionUpdateAttribute, 2, `{"field":"mrr","value":"garbage"}`),
		action(ActionUpdateAttribute, 3, `{"field":"mrr","value":"1500"}`),
	)

	startupID := uuid.New()
	store.snapshots[startupID] = Snapshot{}

	require.NoError(t, engine.Execute(context.Background(), wf.ID, EntityRef{Type: EntityStartup, ID: startupID}, uuid.Nil))

	require.Len(t, store.logs, 3)
	assert.Equal(t, LogError, store.logs[0].Status)   // invalid email rejected
	assert.Equal(t, LogWarning, store.logs[1].Status) // unparseable number skipped
	assert.Equal(t, LogSuccess, store.logs[2].Status)
	assert.Equal(t, []string{"mrr=1500"}, store.updates)
}

func TestExecuteCreateTask(t *testing.T) {
	store := newFakeEngineStore()
	engine := NewEngine(store, &fakeMailer{})
	engine.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }

	wf := testWorkflow(store, nil,
		action(ActionCreateTask, 1, `{"title":"Call {{ceo_name}}","assignee":"triggering_user","priority":"high","due_in_days":5}`),
	)

	startupID := uuid.New()
	actor := uuid.New()
	store.snapshots[startupID] = Snapshot{"ceo_name": "Maria"}

	require.NoError(t, engine.Execute(context.Background(), wf.ID, EntityRef{Type: EntityStartup, ID: startupID}, actor))

	require.Len(t, store.tasks, 1)
	task := store.tasks[0]
	assert.Equal(t, "Call Maria", task.Title)
	assert.Equal(t, "high", task.Priority)
	require.NotNil(t, task.AssigneeID)
	assert.Equal(t, actor, *task.AssigneeID)
	require.NotNil(t, task.StartupID)
	assert.Equal(t, startupID, *task.StartupID)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, time.Date(2026, 8, 6, 12, 0, 0, 0, time.UTC), *task.DueDate)

	require.Len(t, store.logs, 1)
	assert.Equal(t, LogSuccess, store.logs[0].Status)
	assert.NotEmpty(t, store.logs[0].Details["task_id"])
}

func TestExecuteStatusQuery(t *testing.T) {
	store := newFakeEngineStore()
	engine := NewEngine(store, &fakeMailer{})

	target := uuid.New()
	wf := testWorkflow(store, nil,
		action(ActionStatusQuery, 1, fmt.Sprintf(`{"target_status_id":"%s"}`, target)),
	)

	startupID := uuid.New()
	ref := EntityRef{Type: EntityStartup, ID: startupID}

	store.snapshots[startupID] = Snapshot{"status_id": target.String()}
	require.NoError(t, engine.Execute(context.Background(), wf.ID, ref, uuid.Nil))
	require.Len(t, store.logs, 1)
	assert.Equal(t, LogInfo, store.logs[0].Status)

	store.logs = nil
	store.snapshots[startupID] = Snapshot{"status_id": uuid.New().String()}
	require.NoError(t, engine.Execute(context.Background(), wf.ID, ref, uuid.Nil))
	require.Len(t, store.logs, 1)
	assert.Equal(t, LogWarning, store.logs[0].Status)
}

func TestExecuteWorkflowNotFound(t *testing.T) {
	store := newFakeEngineStore()
	engine := NewEngine(store, &fakeMailer{})

	err := engine.Execute(context.Background(), uuid.New(), EntityRef{Type: EntityStartup, ID: uuid.New()}, uuid.Nil)

	var notFound *ErrWorkflowNotFound
	require.ErrorAs(t, err, &notFound)
	// Engine-level failure writes a single error log before any action.
	require.Len(t, store.logs, 1)
	assert.Equal(t, LogError, store.logs[0].Status)
}

func TestExecuteEntityNotFound(t *testing.T) {
	store := newFakeEngineStore()
	engine := NewEngine(store, &fakeMailer{})

	wf := testWorkflow(store, nil, action(ActionStatusQuery, 1, `{"target_status_id":"x"}`))

	err := engine.Execute(context.Background(), wf.ID, EntityRef{Type: EntityStartup, ID: uuid.New()}, uuid.Nil)

	var notFound *ErrEntityNotFound
	require.ErrorAs(t, err, &notFound)
	require.Len(t, store.logs, 1)
	assert.Equal(t, LogError, store.logs[0].Status)
}

func TestOnStatusChangeFiltersByTriggerDetails(t *testing.T) {
	store := newFakeEngineStore()
	engine := NewEngine(store, &fakeMailer{})

	closedID := uuid.New()
	otherID := uuid.New()

	matching := &Workflow{
		ID:             uuid.New(),
		Name:           "on closed",
		TriggerType:    TriggerStatusChange,
		TriggerDetails: json.RawMessage(fmt.Sprintf(`{"to_status_id":"%s"}`, closedID)),
		IsActive:       true,
		Actions:        []Action{action(ActionUpdateAttribute, 1, `{"field":"priority","value":"low"}`)},
	}
	nonMatching := &Workflow{
		ID:             uuid.New(),
		Name:           "on other",
		TriggerType:    TriggerStatusChange,
		TriggerDetails: json.RawMessage(fmt.Sprintf(`{"to_status_id":"%s"}`, otherID)),
		IsActive:       true,
		Actions:        []Action{action(ActionUpdateAttribute, 1, `{"field":"priority","value":"high"}`)},
	}
	inactive := &Workflow{
		ID:          uuid.New(),
		Name:        "inactive",
		TriggerType: TriggerStatusChange,
		IsActive:    false,
		Actions:     []Action{action(ActionUpdateAttribute, 1, `{"field":"priority","value":"urgent"}`)},
	}
	store.active = []*Workflow{matching, nonMatching, inactive}

	startupID := uuid.New()
	store.snapshots[startupID] = Snapshot{}

	engine.OnStatusChange(context.Background(), startupID, uuid.New(), closedID, uuid.Nil)

	assert.Equal(t, []string{"priority=low"}, store.updates)
}

func TestOnAttributeChangeFiltersByField(t *testing.T) {
	store := newFakeEngineStore()
	engine := NewEngine(store, &fakeMailer{})

	onMRR := &Workflow{
		ID:             uuid.New(),
		Name:           "on mrr",
		TriggerType:    TriggerAttributeChange,
		TriggerDetails: json.RawMessage(`{"field":"mrr"}`),
		IsActive:       true,
		Actions:        []Action{action(ActionUpdateAttribute, 1, `{"field":"priority","value":"high"}`)},
	}
	anyField := &Workflow{
		ID:          uuid.New(),
		Name:        "on anything",
		TriggerType: TriggerAttributeChange,
		IsActive:    true,
		Actions:     []Action{action(ActionUpdateAttribute, 1, `{"field":"sector","value":"X"}`)},
	}
	store.active = []*Workflow{onMRR, anyField}

	startupID := uuid.New()
	store.snapshots[startupID] = Snapshot{}

	engine.OnAttributeChange(context.Background(), startupID, "sector", uuid.Nil)

	// Only the field-agnostic workflow fires for a sector change.
	assert.Equal(t, []string{"sector=X"}, store.updates)
}

func TestOnTaskCreatedLinksStartupFromSnapshot(t *testing.T) {
	store := newFakeEngineStore()
	engine := NewEngine(store, &fakeMailer{})

	wf := &Workflow{
		ID:          uuid.New(),
		Name:        "on task",
		TriggerType: TriggerTaskCreation,
		IsActive:    true,
		Actions:     []Action{action(ActionStatusQuery, 1, `{"target_status_id":"none"}`)},
	}
	store.active = []*Workflow{wf}

	taskID := uuid.New()
	linkedStartup := uuid.New()
	store.snapshots[taskID] = Snapshot{"startup_id": linkedStartup.String()}

	engine.OnTaskCreated(context.Background(), taskID, uuid.Nil)

	require.Len(t, store.logs, 1)
	require.NotNil(t, store.logs[0].StartupID)
	assert.Equal(t, linkedStartup, *store.logs[0].StartupID)
}
