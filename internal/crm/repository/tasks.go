package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scimoveis_backend/internal/crm/domain"
	"scimoveis_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateTask inserts a follow-up task for an agent.
func (r *Repository) CreateTask(ctx context.Context, task *domain.Task) error {
	query := `
		INSERT INTO tasks (tenant_id, deal_id, contact_id, title, due_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at`

	err := r.db.QueryRow(ctx, query,
		task.TenantID, task.DealID, task.ContactID, task.Title, task.DueAt,
	).Scan(&task.ID, &task.Status, &task.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// GetTaskByID retrieves one task.
func (r *Repository) GetTaskByID(ctx context.Context, tenantID, taskID uuid.UUID) (*domain.Task, error) {
	query := `
		SELECT id, tenant_id, deal_id, contact_id, title, due_at, status, created_at
		FROM tasks
		WHERE tenant_id = $1 AND id = $2`

	var t domain.Task
	err := r.db.QueryRow(ctx, query, tenantID, taskID).Scan(
		&t.ID, &t.TenantID, &t.DealID, &t.ContactID, &t.Title, &t.DueAt, &t.Status, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("task not found")
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &t, nil
}

// HasPendingTaskForDeal reports whether a deal already has an open task, so
// automation rules do not pile duplicates on the agent.
func (r *Repository) HasPendingTaskForDeal(ctx context.Context, tenantID, dealID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM tasks WHERE tenant_id = $1 AND deal_id = $2 AND status = $3
	)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, tenantID, dealID, domain.TaskStatusPending).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check pending task: %w", err)
	}
	return exists, nil
}

// RecordAutomationExecution writes the audit trail for one rule firing.
func (r *Repository) RecordAutomationExecution(ctx context.Context, exec *domain.AutomationExecution) error {
	details := exec.Details
	if len(details) == 0 {
		details = []byte(`{}`)
	}

	query := `
		INSERT INTO automation_executions (tenant_id, rule_name, deal_id, from_stage_id, to_stage_id, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, executed_at`

	err := r.db.QueryRow(ctx, query,
		exec.TenantID, exec.RuleName, exec.DealID, exec.FromStageID, exec.ToStageID, details,
	).Scan(&exec.ID, &exec.ExecutedAt)
	if err != nil {
		return fmt.Errorf("failed to record automation execution: %w", err)
	}
	return nil
}

// HasExecutionSince reports whether a rule already fired for a deal after
// the given moment.
func (r *Repository) HasExecutionSince(ctx context.Context, tenantID, dealID uuid.UUID, ruleName string, since time.Time) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM automation_executions
		WHERE tenant_id = $1 AND deal_id = $2 AND rule_name = $3 AND executed_at >= $4
	)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, tenantID, dealID, ruleName, since).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check automation execution: %w", err)
	}
	return exists, nil
}

// ListRecentExecutions returns the newest automation audit records for a
// tenant, for the control API.
func (r *Repository) ListRecentExecutions(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.AutomationExecution, error) {
	query := `
		SELECT id, tenant_id, rule_name, deal_id, from_stage_id, to_stage_id, details, executed_at
		FROM automation_executions
		WHERE tenant_id = $1
		ORDER BY executed_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list automation executions: %w", err)
	}
	defer rows.Close()

	var execs []domain.AutomationExecution
	for rows.Next() {
		var e domain.AutomationExecution
		if err := rows.Scan(
			&e.ID, &e.TenantID, &e.RuleName, &e.DealID,
			&e.FromStageID, &e.ToStageID, &e.Details, &e.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan automation execution: %w", err)
		}
		execs = append(execs, e)
	}
	return execs, rows.Err()
}
