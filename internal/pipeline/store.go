package pipeline

import (
	"context"

	"github.com/google/uuid"

	"scimoveis_backend/internal/crm/domain"
	"scimoveis_backend/internal/crm/repository"
)

// Store is the slice of the CRM repository the automation rules read and
// mutate. *repository.Repository satisfies it directly.
type Store interface {
	ListDealsForAutomation(ctx context.Context, tenantID uuid.UUID) ([]repository.AutomationDeal, error)
	GetStageByOrder(ctx context.Context, tenantID uuid.UUID, order int) (*domain.PipelineStage, error)
	GetStageByType(ctx context.Context, tenantID uuid.UUID, stageType string) (*domain.PipelineStage, error)
	EnsureStageByName(ctx context.Context, tenantID uuid.UUID, name string) (*domain.PipelineStage, error)
	MoveDealStage(ctx context.Context, tenantID, dealID, toStageID uuid.UUID) error
	SetDealProbability(ctx context.Context, tenantID, dealID uuid.UUID, probability int) error
	CloseDealLost(ctx context.Context, tenantID, dealID, lostStageID uuid.UUID, reason string) error
	HasPendingTaskForDeal(ctx context.Context, tenantID, dealID uuid.UUID) (bool, error)
	CreateTask(ctx context.Context, task *domain.Task) error
	RecordAutomationExecution(ctx context.Context, exec *domain.AutomationExecution) error
}

// Transactor enumerates tenants and runs one tenant's rule pass inside a
// transaction. fn sees a Store bound to that transaction.
type Transactor interface {
	ListTenantIDs(ctx context.Context) ([]uuid.UUID, error)
	WithinTx(ctx context.Context, fn func(Store) error) error
}

type repoTransactor struct {
	repo *repository.Repository
}

// NewStore adapts the CRM repository to the engine's Transactor.
func NewStore(repo *repository.Repository) Transactor {
	return repoTransactor{repo: repo}
}

func (t repoTransactor) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	return t.repo.ListTenantIDs(ctx)
}

func (t repoTransactor) WithinTx(ctx context.Context, fn func(Store) error) error {
	tx, err := t.repo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(t.repo.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

var _ Store = (*repository.Repository)(nil)
