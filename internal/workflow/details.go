package workflow

import (
	"encoding/json"
	"fmt"
)

// Detail payloads are stored as JSONB but handled in code as one
// statically typed variant per action/trigger type, resolved by the
// type discriminator on the owning row.

// EmailDetails configures a send_email action. Exactly one of
// Recipient (a fixed address) or RecipientField (an entity field
// holding the address, e.g. ceo_email) must be set. Subject and Body
// support {{field}} placeholders.
type EmailDetails struct {
	Recipient      string `json:"recipient,omitempty"`
	RecipientField string `json:"recipient_field,omitempty"`
	Subject        string `json:"subject"`
	Body           string `json:"body"`
}

// UpdateAttributeDetails configures an update_attribute action. The
// value goes through field catalog coercion for startup entities.
type UpdateAttributeDetails struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// CreateTaskDetails configures a create_task action. Title and
// Description support {{field}} placeholders. Assignee may be a user
// UUID or one of the sentinels "current_user" / "triggering_user",
// resolved at execution time. DueInDays offsets the due date from the
// execution time.
type CreateTaskDetails struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
	Priority    string `json:"priority,omitempty"`
	DueInDays   int    `json:"due_in_days,omitempty"`
}

// StatusQueryDetails configures a status_query action: a read-only
// comparison of the entity's current status against a target.
type StatusQueryDetails struct {
	TargetStatusID string `json:"target_status_id"`
}

// ActionDetails is the sum of all action payload variants; exactly one
// field is non-nil after parsing.
type ActionDetails struct {
	Email           *EmailDetails
	UpdateAttribute *UpdateAttributeDetails
	CreateTask      *CreateTaskDetails
	StatusQuery     *StatusQueryDetails
}

// ParseActionDetails decodes raw action_details JSON into the variant
// matching the action type.
func ParseActionDetails(actionType ActionType, raw json.RawMessage) (*ActionDetails, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	details := &ActionDetails{}
	switch actionType {
	case ActionSendEmail:
		var d EmailDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("malformed send_email details: %w", err)
		}
		if d.Recipient == "" && d.RecipientField == "" {
			return nil, fmt.Errorf("send_email requires recipient or recipient_field")
		}
		if d.Subject == "" {
			return nil, fmt.Errorf("send_email requires a subject")
		}
		details.Email = &d

	case ActionUpdateAttribute:
		var d UpdateAttributeDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("malformed update_attribute details: %w", err)
		}
		if d.Field == "" {
			return nil, fmt.Errorf("update_attribute requires a field")
		}
		details.UpdateAttribute = &d

	case ActionCreateTask:
		var d CreateTaskDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("malformed create_task details: %w", err)
		}
		if d.Title == "" {
			return nil, fmt.Errorf("create_task requires a title")
		}
		details.CreateTask = &d

	case ActionStatusQuery:
		var d StatusQueryDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("malformed status_query details: %w", err)
		}
		if d.TargetStatusID == "" {
			return nil, fmt.Errorf("status_query requires target_status_id")
		}
		details.StatusQuery = &d

	default:
		return nil, fmt.Errorf("unknown action type: %s", actionType)
	}

	return details, nil
}

// StatusChangeTrigger narrows a status_change workflow to transitions
// into (and optionally out of) specific stages. Empty fields match any
// stage.
type StatusChangeTrigger struct {
	FromStatusID string `json:"from_status_id,omitempty"`
	ToStatusID   string `json:"to_status_id,omitempty"`
}

// AttributeChangeTrigger narrows an attribute_change workflow to a
// specific field. Empty matches any field.
type AttributeChangeTrigger struct {
	Field string `json:"field,omitempty"`
}

// TriggerDetails is the sum of all trigger payload variants.
// task_creation carries no payload.
type TriggerDetails struct {
	StatusChange    *StatusChangeTrigger
	AttributeChange *AttributeChangeTrigger
}

// ParseTriggerDetails decodes raw trigger_details JSON into the
// variant matching the trigger type.
func ParseTriggerDetails(triggerType TriggerType, raw json.RawMessage) (*TriggerDetails, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	details := &TriggerDetails{}
	switch triggerType {
	case TriggerStatusChange:
		var d StatusChangeTrigger
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("malformed status_change trigger details: %w", err)
		}
		details.StatusChange = &d

	case TriggerAttributeChange:
		var d AttributeChangeTrigger
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("malformed attribute_change trigger details: %w", err)
		}
		details.AttributeChange = &d

	case TriggerTaskCreation:
		// No payload.

	default:
		return nil, fmt.Errorf("unknown trigger type: %s", triggerType)
	}

	return details, nil
}
