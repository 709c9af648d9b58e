package db

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/venturedesk/pipeline/internal/workflow"
)

// Snapshot builds the flat attribute view the workflow engine reads
// for condition evaluation and template placeholders. Returns nil when
// the entity does not exist. Implements workflow.Store.
func (db *DB) Snapshot(ctx context.Context, ref workflow.EntityRef) (workflow.Snapshot, error) {
	switch ref.Type {
	case workflow.EntityStartup:
		return db.startupSnapshot(ctx, ref)
	case workflow.EntityTask:
		return db.taskSnapshot(ctx, ref)
	default:
		return nil, fmt.Errorf("unknown entity type: %s", ref.Type)
	}
}

func (db *DB) startupSnapshot(ctx context.Context, ref workflow.EntityRef) (workflow.Snapshot, error) {
	s, err := db.GetStartup(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}

	snap := workflow.Snapshot{
		"id":          s.ID.String(),
		"name":        s.Name,
		"description": s.Description,
		"priority":    s.Priority,
	}
	putString(snap, "website", s.Website)
	putString(snap, "sector", s.Sector)
	putString(snap, "business_model", s.BusinessModel)
	putString(snap, "city", s.City)
	putString(snap, "state", s.State)
	putString(snap, "ceo_name", s.CEOName)
	putString(snap, "ceo_email", s.CEOEmail)
	putString(snap, "ceo_phone", s.CEOPhone)
	putString(snap, "market_analysis", s.MarketAnalysis)
	putString(snap, "differentials", s.Differentials)
	putString(snap, "competitors", s.Competitors)
	putString(snap, "pitch_deck_url", s.PitchDeckURL)
	putFloat(snap, "mrr", s.MRR)
	putFloat(snap, "client_count", s.ClientCount)
	putFloat(snap, "accumulated_revenue", s.AccumulatedRevenue)
	putFloat(snap, "total_revenue", s.TotalRevenue)
	putFloat(snap, "tam", s.TAM)
	putFloat(snap, "sam", s.SAM)
	putFloat(snap, "som", s.SOM)
	putDate(snap, "founded_date", s.FoundedDate)

	if s.StatusID != nil {
		snap["status_id"] = s.StatusID.String()
		status, err := db.GetStatus(ctx, *s.StatusID)
		if err != nil {
			return nil, err
		}
		if status != nil {
			snap["status_name"] = status.Name
		}
	}
	return snap, nil
}

func (db *DB) taskSnapshot(ctx context.Context, ref workflow.EntityRef) (workflow.Snapshot, error) {
	t, err := db.GetTask(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}

	snap := workflow.Snapshot{
		"id":          t.ID.String(),
		"title":       t.Title,
		"description": t.Description,
		"priority":    t.Priority,
		"status":      t.Status,
	}
	if t.StartupID != nil {
		snap["startup_id"] = t.StartupID.String()
	}
	if t.AssigneeID != nil {
		snap["assignee_id"] = t.AssigneeID.String()
	}
	putDate(snap, "due_date", t.DueDate)
	return snap, nil
}

// UpdateEntityField writes one field on the target entity through the
// per-table column whitelists. Implements workflow.Store.
func (db *DB) UpdateEntityField(ctx context.Context, ref workflow.EntityRef, field string, value any) error {
	switch ref.Type {
	case workflow.EntityStartup:
		return db.UpdateStartupColumn(ctx, ref.ID, field, value)
	case workflow.EntityTask:
		return db.UpdateTaskColumn(ctx, ref.ID, field, value)
	default:
		return fmt.Errorf("unknown entity type: %s", ref.Type)
	}
}

// EngineStore adapts the DB to the workflow engine's persistence
// surface. The only indirection is CreateTask, whose engine-facing
// signature differs from the db-level one.
type EngineStore struct {
	*DB
}

// NewEngineStore wraps the DB for the workflow engine.
func NewEngineStore(db *DB) EngineStore {
	return EngineStore{DB: db}
}

// CreateTask persists a task created by a workflow action. Implements
// workflow.Store.
func (s EngineStore) CreateTask(ctx context.Context, spec workflow.TaskSpec) (uuid.UUID, error) {
	priority := spec.Priority
	if priority == "" {
		priority = "medium"
	}
	t := &Task{
		Title:       spec.Title,
		Description: spec.Description,
		StartupID:   spec.StartupID,
		AssigneeID:  spec.AssigneeID,
		Priority:    priority,
		Status:      "todo",
		DueDate:     spec.DueDate,
		CreatedBy:   spec.CreatedBy,
	}
	return s.DB.CreateTask(ctx, t)
}

func putString(snap workflow.Snapshot, key string, v *string) {
	if v != nil {
		snap[key] = *v
	}
}

func putFloat(snap workflow.Snapshot, key string, v *float64) {
	if v != nil {
		snap[key] = strconv.FormatFloat(*v, 'f', -1, 64)
	}
}

func putDate(snap workflow.Snapshot, key string, v *time.Time) {
	if v != nil {
		snap[key] = v.Format("2006-01-02")
	}
}
