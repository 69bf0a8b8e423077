package domain

import (
	"time"

	"github.com/google/uuid"
)

// Engagement score deltas. Scores always stay within [0, 100].
const (
	ScoreInitial           = 50
	ScoreMessageSent       = 5
	ScorePropertyViewed    = 10
	ScoreScheduleRequested = 20
	ScoreVisitScheduled    = 30

	ScoreMin = 0
	ScoreMax = 100
)

// Contact is a WhatsApp lead tracked per tenant, keyed by E.164 phone.
type Contact struct {
	ID                uuid.UUID  `db:"id"`
	TenantID          uuid.UUID  `db:"tenant_id"`
	Phone             string     `db:"phone"`
	Name              string     `db:"name"`
	Score             int        `db:"score"`
	LastInteractionAt *time.Time `db:"last_interaction_at"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

// ClampScore bounds a score to the valid range.
func ClampScore(score int) int {
	if score < ScoreMin {
		return ScoreMin
	}
	if score > ScoreMax {
		return ScoreMax
	}
	return score
}
