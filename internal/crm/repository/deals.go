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

const dealNotFoundMsg = "deal not found"

// AutomationDeal joins the state the pipeline engine needs to evaluate one
// open deal.
type AutomationDeal struct {
	domain.Deal
	Stage             domain.PipelineStage
	ContactScore      int
	LastInteractionAt *time.Time
	ConversationCount int
}

// CreateDeal inserts a new deal at the given stage.
func (r *Repository) CreateDeal(ctx context.Context, deal *domain.Deal) error {
	query := `
		INSERT INTO deals (tenant_id, contact_id, stage_id, title, value, probability)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, last_stage_changed_at, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		deal.TenantID, deal.ContactID, deal.StageID, deal.Title, deal.Value, deal.Probability,
	).Scan(&deal.ID, &deal.LastStageChangedAt, &deal.CreatedAt, &deal.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}
	return nil
}

// GetOpenDealByContact returns the contact's open deal with its current
// stage. Deals in won or lost stages are not open.
func (r *Repository) GetOpenDealByContact(ctx context.Context, tenantID, contactID uuid.UUID) (*domain.DealWithStage, error) {
	query := `
		SELECT d.id, d.tenant_id, d.contact_id, d.stage_id, d.title, d.value, d.probability,
		       d.won, d.lost_reason, d.last_stage_changed_at, d.created_at, d.updated_at,
		       s.id, s.tenant_id, s.name, s.stage_order, s.stage_type, s.created_at
		FROM deals d
		JOIN pipeline_stages s ON s.id = d.stage_id
		WHERE d.tenant_id = $1 AND d.contact_id = $2 AND s.stage_type = $3
		ORDER BY d.created_at DESC LIMIT 1`

	var dws domain.DealWithStage
	err := r.db.QueryRow(ctx, query, tenantID, contactID, domain.StageTypeNormal).Scan(
		&dws.ID, &dws.TenantID, &dws.ContactID, &dws.StageID, &dws.Title, &dws.Value,
		&dws.Probability, &dws.Won, &dws.LostReason, &dws.LastStageChangedAt,
		&dws.CreatedAt, &dws.UpdatedAt,
		&dws.Stage.ID, &dws.Stage.TenantID, &dws.Stage.Name, &dws.Stage.Order,
		&dws.Stage.StageType, &dws.Stage.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(dealNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get open deal: %w", err)
	}
	return &dws, nil
}

// MoveDealStage moves a deal to another stage and resets the stage clock.
func (r *Repository) MoveDealStage(ctx context.Context, tenantID, dealID, toStageID uuid.UUID) error {
	query := `
		UPDATE deals
		SET stage_id = $3, last_stage_changed_at = now(), updated_at = now()
		WHERE tenant_id = $1 AND id = $2`

	result, err := r.db.Exec(ctx, query, tenantID, dealID, toStageID)
	if err != nil {
		return fmt.Errorf("failed to move deal stage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(dealNotFoundMsg)
	}
	return nil
}

// SetDealProbability sets the probability, clamped to [0, 100].
func (r *Repository) SetDealProbability(ctx context.Context, tenantID, dealID uuid.UUID, probability int) error {
	query := `
		UPDATE deals
		SET probability = LEAST($4, GREATEST($5, $3)), updated_at = now()
		WHERE tenant_id = $1 AND id = $2`

	result, err := r.db.Exec(ctx, query, tenantID, dealID, probability,
		domain.ProbabilityMax, domain.ProbabilityMin)
	if err != nil {
		return fmt.Errorf("failed to set deal probability: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(dealNotFoundMsg)
	}
	return nil
}

// CloseDealLost moves a deal to the lost stage, recording the reason.
func (r *Repository) CloseDealLost(ctx context.Context, tenantID, dealID, lostStageID uuid.UUID, reason string) error {
	query := `
		UPDATE deals
		SET stage_id = $3, won = false, lost_reason = $4, probability = 0,
		    last_stage_changed_at = now(), updated_at = now()
		WHERE tenant_id = $1 AND id = $2`

	result, err := r.db.Exec(ctx, query, tenantID, dealID, lostStageID, reason)
	if err != nil {
		return fmt.Errorf("failed to close deal as lost: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound(dealNotFoundMsg)
	}
	return nil
}

// ListDealsForAutomation returns every open deal of a tenant joined with the
// contact engagement state the rules evaluate.
func (r *Repository) ListDealsForAutomation(ctx context.Context, tenantID uuid.UUID) ([]AutomationDeal, error) {
	query := `
		SELECT d.id, d.tenant_id, d.contact_id, d.stage_id, d.title, d.value, d.probability,
		       d.won, d.lost_reason, d.last_stage_changed_at, d.created_at, d.updated_at,
		       s.id, s.tenant_id, s.name, s.stage_order, s.stage_type, s.created_at,
		       c.score, c.last_interaction_at,
		       (SELECT COUNT(*) FROM conversations cv
		        WHERE cv.tenant_id = d.tenant_id AND cv.contact_id = d.contact_id)
		FROM deals d
		JOIN pipeline_stages s ON s.id = d.stage_id
		JOIN contacts c ON c.id = d.contact_id
		WHERE d.tenant_id = $1 AND s.stage_type = $2
		ORDER BY d.created_at ASC`

	rows, err := r.db.Query(ctx, query, tenantID, domain.StageTypeNormal)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals for automation: %w", err)
	}
	defer rows.Close()

	var deals []AutomationDeal
	for rows.Next() {
		var ad AutomationDeal
		if err := rows.Scan(
			&ad.ID, &ad.TenantID, &ad.ContactID, &ad.StageID, &ad.Title, &ad.Value,
			&ad.Probability, &ad.Won, &ad.LostReason, &ad.LastStageChangedAt,
			&ad.CreatedAt, &ad.UpdatedAt,
			&ad.Stage.ID, &ad.Stage.TenantID, &ad.Stage.Name, &ad.Stage.Order,
			&ad.Stage.StageType, &ad.Stage.CreatedAt,
			&ad.ContactScore, &ad.LastInteractionAt, &ad.ConversationCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan automation deal: %w", err)
		}
		deals = append(deals, ad)
	}
	return deals, rows.Err()
}
