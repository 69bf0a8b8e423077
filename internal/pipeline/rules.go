package pipeline

import (
	"time"

	"scimoveis_backend/internal/crm/domain"
	"scimoveis_backend/internal/crm/repository"
)

// Rule names recorded in the audit trail.
const (
	RuleHotLeadPromotion = "hot-lead-promotion"
	RuleStaleLeadCadence = "stale-lead-cadence"
	RuleScoreQualify     = "score-qualification"
	RuleLostClosure      = "lost-closure"
)

// lostReasonAbandoned is the fixed reason stamped on deals closed by the
// lost-closure rule.
const lostReasonAbandoned = "abandoned"

// touchedWithin reports whether the lead had a conversation touch inside
// the window ending now. Leads with no touch at all report false.
func touchedWithin(deal repository.AutomationDeal, window time.Duration, now time.Time) bool {
	if deal.LastInteractionAt == nil {
		return false
	}
	return now.Sub(*deal.LastInteractionAt) < window
}

// hotLeadEligible matches qualification-stage deals with an engaged lead:
// probability and score over their thresholds and a recent touch.
func hotLeadEligible(deal repository.AutomationDeal, now time.Time, t Thresholds) bool {
	return deal.Stage.Order == domain.StageOrderQualified &&
		deal.Probability >= t.HotLeadProbability &&
		deal.ContactScore >= t.HotLeadScore &&
		touchedWithin(deal, t.HotLeadRecentContact, now)
}

// cadenceEligible matches first-stage deals old enough to have gone stale
// with no conversation touch inside the idle window.
func cadenceEligible(deal repository.AutomationDeal, now time.Time, t Thresholds) bool {
	return deal.Stage.Order == domain.StageOrderNewLeads &&
		now.Sub(deal.CreatedAt) >= t.CadenceIdle &&
		!touchedWithin(deal, t.CadenceIdle, now)
}

// qualifyEligible matches first-stage deals whose lead earned a high score
// and has at least one conversation on record.
func qualifyEligible(deal repository.AutomationDeal, t Thresholds) bool {
	return deal.Stage.Order == domain.StageOrderNewLeads &&
		deal.ContactScore >= t.QualifyScore &&
		deal.ConversationCount >= 1
}

// lostEligible matches deals abandoned for the full closure window: old
// enough and with no touch inside it.
func lostEligible(deal repository.AutomationDeal, now time.Time, t Thresholds) bool {
	return now.Sub(deal.CreatedAt) >= t.AbandonedAfter &&
		!touchedWithin(deal, t.AbandonedAfter, now)
}

func dropProbability(current, drop, floor int) int {
	next := current - drop
	if next < floor {
		return floor
	}
	return next
}

func boostProbability(current, boost, ceiling int) int {
	if current >= ceiling {
		return current
	}
	next := current + boost
	if next > ceiling {
		return ceiling
	}
	return next
}
