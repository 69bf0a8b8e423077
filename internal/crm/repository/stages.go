package repository

import (
	"context"
	"errors"
	"fmt"

	"scimoveis_backend/internal/crm/domain"
	"scimoveis_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const stageNotFoundMsg = "pipeline stage not found"

// ListStages returns a tenant's funnel ordered by stage_order.
func (r *Repository) ListStages(ctx context.Context, tenantID uuid.UUID) ([]domain.PipelineStage, error) {
	query := `
		SELECT id, tenant_id, name, stage_order, stage_type, created_at
		FROM pipeline_stages
		WHERE tenant_id = $1
		ORDER BY stage_order ASC`

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	defer rows.Close()

	var stages []domain.PipelineStage
	for rows.Next() {
		var s domain.PipelineStage
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Name, &s.Order, &s.StageType, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

// GetStageByOrder retrieves one stage by its ladder position.
func (r *Repository) GetStageByOrder(ctx context.Context, tenantID uuid.UUID, order int) (*domain.PipelineStage, error) {
	query := `
		SELECT id, tenant_id, name, stage_order, stage_type, created_at
		FROM pipeline_stages
		WHERE tenant_id = $1 AND stage_order = $2`

	var s domain.PipelineStage
	err := r.db.QueryRow(ctx, query, tenantID, order).Scan(
		&s.ID, &s.TenantID, &s.Name, &s.Order, &s.StageType, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(stageNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get stage by order: %w", err)
	}
	return &s, nil
}

// GetStageByType retrieves the first stage with the given type. Used to find
// the won and lost columns without depending on display names.
func (r *Repository) GetStageByType(ctx context.Context, tenantID uuid.UUID, stageType string) (*domain.PipelineStage, error) {
	query := `
		SELECT id, tenant_id, name, stage_order, stage_type, created_at
		FROM pipeline_stages
		WHERE tenant_id = $1 AND stage_type = $2
		ORDER BY stage_order ASC LIMIT 1`

	var s domain.PipelineStage
	err := r.db.QueryRow(ctx, query, tenantID, stageType).Scan(
		&s.ID, &s.TenantID, &s.Name, &s.Order, &s.StageType, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(stageNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get stage by type: %w", err)
	}
	return &s, nil
}

// NextStage returns the stage directly after the given order among normal
// stages, or nil when the deal already sits at the last normal stage.
func (r *Repository) NextStage(ctx context.Context, tenantID uuid.UUID, currentOrder int) (*domain.PipelineStage, error) {
	query := `
		SELECT id, tenant_id, name, stage_order, stage_type, created_at
		FROM pipeline_stages
		WHERE tenant_id = $1 AND stage_order > $2 AND stage_type = $3
		ORDER BY stage_order ASC LIMIT 1`

	var s domain.PipelineStage
	err := r.db.QueryRow(ctx, query, tenantID, currentOrder, domain.StageTypeNormal).Scan(
		&s.ID, &s.TenantID, &s.Name, &s.Order, &s.StageType, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get next stage: %w", err)
	}
	return &s, nil
}

// EnsureStageByName returns the named stage, creating it at the end of the
// tenant's normal stage ordering when absent.
func (r *Repository) EnsureStageByName(ctx context.Context, tenantID uuid.UUID, name string) (*domain.PipelineStage, error) {
	query := `
		SELECT id, tenant_id, name, stage_order, stage_type, created_at
		FROM pipeline_stages
		WHERE tenant_id = $1 AND name = $2`

	var s domain.PipelineStage
	err := r.db.QueryRow(ctx, query, tenantID, name).Scan(
		&s.ID, &s.TenantID, &s.Name, &s.Order, &s.StageType, &s.CreatedAt,
	)
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to get stage by name: %w", err)
	}

	insert := `
		INSERT INTO pipeline_stages (tenant_id, name, stage_order, stage_type)
		SELECT $1, $2, COALESCE(MAX(stage_order), 0) + 1, $3
		FROM pipeline_stages WHERE tenant_id = $1
		RETURNING id, tenant_id, name, stage_order, stage_type, created_at`

	err = r.db.QueryRow(ctx, insert, tenantID, name, domain.StageTypeNormal).Scan(
		&s.ID, &s.TenantID, &s.Name, &s.Order, &s.StageType, &s.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stage %s: %w", name, err)
	}
	return &s, nil
}

// ListTenantIDs returns every tenant for the automation sweep.
func (r *Repository) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM tenants ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tenant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
