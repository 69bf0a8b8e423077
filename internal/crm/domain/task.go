package domain

import (
	"time"

	"github.com/google/uuid"
)

// Task status values.
const (
	TaskStatusPending   = "pending"
	TaskStatusDone      = "done"
	TaskStatusCancelled = "cancelled"
)

// Task is a follow-up action for an agent, created by visit scheduling and
// by automation rules.
type Task struct {
	ID        uuid.UUID  `db:"id"`
	TenantID  uuid.UUID  `db:"tenant_id"`
	DealID    *uuid.UUID `db:"deal_id"`
	ContactID *uuid.UUID `db:"contact_id"`
	Title     string     `db:"title"`
	DueAt     time.Time  `db:"due_at"`
	Status    string     `db:"status"`
	CreatedAt time.Time  `db:"created_at"`
}

// AutomationExecution is the audit record of one automation rule firing.
type AutomationExecution struct {
	ID          uuid.UUID  `db:"id"`
	TenantID    uuid.UUID  `db:"tenant_id"`
	RuleName    string     `db:"rule_name"`
	DealID      uuid.UUID  `db:"deal_id"`
	FromStageID *uuid.UUID `db:"from_stage_id"`
	ToStageID   *uuid.UUID `db:"to_stage_id"`
	Details     []byte     `db:"details"`
	ExecutedAt  time.Time  `db:"executed_at"`
}
