package domain

import (
	"time"

	"github.com/google/uuid"
)

// Probability bounds and defaults applied by conversational signals and
// automation rules.
const (
	ProbabilityInitial = 25
	ProbabilityMin     = 0
	ProbabilityMax     = 100
)

// Deal is one sales opportunity for a contact.
type Deal struct {
	ID                 uuid.UUID `db:"id"`
	TenantID           uuid.UUID `db:"tenant_id"`
	ContactID          uuid.UUID `db:"contact_id"`
	StageID            uuid.UUID `db:"stage_id"`
	Title              string    `db:"title"`
	Value              float64   `db:"value"`
	Probability        int       `db:"probability"`
	Won                *bool     `db:"won"`
	LostReason         *string   `db:"lost_reason"`
	LastStageChangedAt time.Time `db:"last_stage_changed_at"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// DealWithStage joins a deal with its current stage for automation decisions.
type DealWithStage struct {
	Deal
	Stage PipelineStage
}

// ClampProbability bounds a probability to the valid range.
func ClampProbability(probability int) int {
	if probability < ProbabilityMin {
		return ProbabilityMin
	}
	if probability > ProbabilityMax {
		return ProbabilityMax
	}
	return probability
}
