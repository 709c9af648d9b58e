package db

import (
	"time"

	"github.com/google/uuid"
)

// Status is one ordered pipeline stage.
type Status struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// Startup is a tracked business entity on the pipeline board.
type Startup struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	Website            *string    `json:"website,omitempty"`
	Sector             *string    `json:"sector,omitempty"`
	BusinessModel      *string    `json:"business_model,omitempty"`
	City               *string    `json:"city,omitempty"`
	State              *string    `json:"state,omitempty"`
	CEOName            *string    `json:"ceo_name,omitempty"`
	CEOEmail           *string    `json:"ceo_email,omitempty"`
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
	Priority           string     `json:"priority"`
	PitchDeckURL       *string    `json:"pitch_deck_url,omitempty"`
	StatusID           *uuid.UUID `json:"status_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// StatusHistoryEntry is one append-only pipeline stage transition.
type StatusHistoryEntry struct {
	ID         uuid.UUID  `json:"id"`
	StartupID  uuid.UUID  `json:"startup_id"`
	FromStatus *uuid.UUID `json:"from_status,omitempty"`
	ToStatus   uuid.UUID  `json:"to_status"`
	ChangedBy  *uuid.UUID `json:"changed_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// FieldHistoryEntry is one append-only record of a field edit.
type FieldHistoryEntry struct {
	ID        uuid.UUID  `json:"id"`
	StartupID uuid.UUID  `json:"startup_id"`
	FieldName string     `json:"field_name"`
	OldValue  *string    `json:"old_value,omitempty"`
	NewValue  *string    `json:"new_value,omitempty"`
	ChangedBy *uuid.UUID `json:"changed_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Task is a unit of work, optionally linked to a startup.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartupID   *uuid.UUID `json:"startup_id,omitempty"`
	AssigneeID  *uuid.UUID `json:"assignee_id,omitempty"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
