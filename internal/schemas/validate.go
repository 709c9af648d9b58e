// Package schemas provides JSON Schema validation for workflow trigger
// and action detail payloads before they are persisted as JSONB.
package schemas

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Name    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Name, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Name, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

const uuidPattern = `^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`

// actionSchemas maps action types to the JSON Schema for their
// action_details payload. Cross-field rules (e.g. send_email needing a
// recipient or a recipient_field) stay in the workflow package; the
// schemas catch structural mistakes like misspelled keys early.
var actionSchemas = map[string]string{
	"send_email": `{
		"type": "object",
		"properties": {
			"recipient": {"type": "string"},
			"recipient_field": {"type": "string"},
			"subject": {"type": "string", "minLength": 1},
			"body": {"type": "string"}
		},
		"required": ["subject"],
		"additionalProperties": false
	}`,
	"update_attribute": `{
		"type": "object",
		"properties": {
			"field": {"type": "string", "minLength": 1},
			"value": {"type": "string"}
		},
		"required": ["field"],
		"additionalProperties": false
	}`,
	"create_task": `{
		"type": "object",
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"description": {"type": "string"},
			"assignee": {"type": "string"},
			"priority": {"type": "string", "enum": ["low", "medium", "high"]},
			"due_in_days": {"type": "integer", "minimum": 0}
		},
		"required": ["title"],
		"additionalProperties": false
	}`,
	"status_query": `{
		"type": "object",
		"properties": {
			"target_status_id": {"type": "string", "pattern": "` + uuidPattern + `"}
		},
		"required": ["target_status_id"],
		"additionalProperties": false
	}`,
}

// triggerSchemas maps trigger types to the JSON Schema for their
// trigger_details payload. task_creation carries no payload.
var triggerSchemas = map[string]string{
	"status_change": `{
		"type": "object",
		"properties": {
			"from_status_id": {"type": "string", "pattern": "` + uuidPattern + `"},
			"to_status_id": {"type": "string", "pattern": "` + uuidPattern + `"}
		},
		"additionalProperties": false
	}`,
	"attribute_change": `{
		"type": "object",
		"properties": {
			"field": {"type": "string"}
		},
		"additionalProperties": false
	}`,
	"task_creation": `{
		"type": "object",
		"additionalProperties": false
	}`,
}

var (
	compileOnce     sync.Once
	compiledActions map[string]*gojsonschema.Schema
	compiledTrigs   map[string]*gojsonschema.Schema
	compileErr      error
)

func compile() {
	compiledActions = make(map[string]*gojsonschema.Schema, len(actionSchemas))
	compiledTrigs = make(map[string]*gojsonschema.Schema, len(triggerSchemas))

	for name, raw := range actionSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			compileErr = &SchemaLoadError{Name: "action/" + name, Message: "invalid schema", Cause: err}
			return
		}
		compiledActions[name] = schema
	}
	for name, raw := range triggerSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			compileErr = &SchemaLoadError{Name: "trigger/" + name, Message: "invalid schema", Cause: err}
			return
		}
		compiledTrigs[name] = schema
	}
}

// ValidateActionDetails validates an action_details payload against the
// schema for the given action type.
func ValidateActionDetails(actionType string, details []byte) error {
	compileOnce.Do(compile)
	if compileErr != nil {
		return compileErr
	}

	schema, ok := compiledActions[actionType]
	if !ok {
		return fmt.Errorf("unknown action type: %s", actionType)
	}
	return validate(schema, details)
}

// ValidateTriggerDetails validates a trigger_details payload against
// the schema for the given trigger type.
func ValidateTriggerDetails(triggerType string, details []byte) error {
	compileOnce.Do(compile)
	if compileErr != nil {
		return compileErr
	}

	schema, ok := compiledTrigs[triggerType]
	if !ok {
		return fmt.Errorf("unknown trigger type: %s", triggerType)
	}
	return validate(schema, details)
}

func validate(schema *gojsonschema.Schema, details []byte) error {
	if len(details) == 0 {
		details = []byte("{}")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(details))
	if err != nil {
		// Document failed to load, e.g. malformed JSON.
		return &ValidationError{Errors: []FieldError{
			{Field: "(root)", Message: err.Error()},
		}}
	}

	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
