package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stage types classify how a pipeline stage participates in automation.
// Rules target stages by type and order, never by display name, so tenants
// can rename stages freely.
const (
	StageTypeNormal = "normal"
	StageTypeWon    = "won"
	StageTypeLost   = "lost"
)

// Default stage orders for the seeded ladder.
const (
	StageOrderNewLeads    = 1
	StageOrderQualified   = 2
	StageOrderNegotiation = 3
	StageOrderProposal    = 4
	StageOrderCadence     = 5
	StageOrderWon         = 6
	StageOrderLost        = 7
)

// PipelineStage is one column of a tenant's sales funnel.
type PipelineStage struct {
	ID        uuid.UUID `db:"id"`
	TenantID  uuid.UUID `db:"tenant_id"`
	Name      string    `db:"name"`
	Order     int       `db:"stage_order"`
	StageType string    `db:"stage_type"`
	CreatedAt time.Time `db:"created_at"`
}

// IsTerminal reports whether deals in this stage are settled.
func (s PipelineStage) IsTerminal() bool {
	return s.StageType == StageTypeWon || s.StageType == StageTypeLost
}
