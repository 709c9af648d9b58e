package workflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionDetails(t *testing.T) {
	tests := []struct {
		name       string
		actionType ActionType
		raw        string
		wantErr    string
	}{
		{
			name:       "email with fixed recipient",
			actionType: ActionSendEmail,
			raw:        `{"recipient":"x@y.com","subject":"Hi","body":"..."}`,
		},
		{
			name:       "email with recipient field",
			actionType: ActionSendEmail,
			raw:        `{"recipient_field":"ceo_email","subject":"Hi"}`,
		},
		{
			name:       "email without recipient",
			actionType: ActionSendEmail,
			raw:        `{"subject":"Hi"}`,
			wantErr:    "recipient",
		},
		{
			name:       "email without subject",
			actionType: ActionSendEmail,
			raw:        `{"recipient":"x@y.com"}`,
			wantErr:    "subject",
		},
		{
			name:       "update attribute",
			actionType: ActionUpdateAttribute,
			raw:        `{"field":"priority","value":"high"}`,
		},
		{
			name:       "update attribute missing field",
			actionType: ActionUpdateAttribute,
			raw:        `{"value":"high"}`,
			wantErr:    "field",
		},
		{
			name:       "create task",
			actionType: ActionCreateTask,
			raw:        `{"title":"Follow up {{name}}","assignee":"current_user","due_in_days":3}`,
		},
		{
			name:       "create task missing title",
			actionType: ActionCreateTask,
			raw:        `{"priority":"high"}`,
			wantErr:    "title",
		},
		{
			name:       "status query",
			actionType: ActionStatusQuery,
			raw:        `{"target_status_id":"11111111-1111-1111-1111-111111111111"}`,
		},
		{
			name:       "status query missing target",
			actionType: ActionStatusQuery,
			raw:        `{}`,
			wantErr:    "target_status_id",
		},
		{
			name:       "malformed json",
			actionType: ActionSendEmail,
			raw:        `{not json`,
			wantErr:    "malformed",
		},
		{
			name:       "unknown action type",
			actionType: ActionType("explode"),
			raw:        `{}`,
			wantErr:    "unknown action type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseActionDetails(tt.actionType, json.RawMessage(tt.raw))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, d)
		})
	}
}

func TestParseActionDetailsVariantSelection(t *testing.T) {
	d, err := ParseActionDetails(ActionCreateTask, json.RawMessage(`{"title":"t"}`))
	require.NoError(t, err)
	assert.NotNil(t, d.CreateTask)
	assert.Nil(t, d.Email)
	assert.Nil(t, d.UpdateAttribute)
	assert.Nil(t, d.StatusQuery)
}

func TestParseTriggerDetails(t *testing.T) {
	d, err := ParseTriggerDetails(TriggerStatusChange, json.RawMessage(`{"to_status_id":"abc"}`))
	require.NoError(t, err)
	require.NotNil(t, d.StatusChange)
	assert.Equal(t, "abc", d.StatusChange.ToStatusID)

	d, err = ParseTriggerDetails(TriggerAttributeChange, json.RawMessage(`{"field":"mrr"}`))
	require.NoError(t, err)
	require.NotNil(t, d.AttributeChange)
	assert.Equal(t, "mrr", d.AttributeChange.Field)

	// task_creation carries no payload; empty details are fine.
	_, err = ParseTriggerDetails(TriggerTaskCreation, nil)
	require.NoError(t, err)

	_, err = ParseTriggerDetails(TriggerType("cron"), json.RawMessage(`{}`))
	require.Error(t, err)
}
