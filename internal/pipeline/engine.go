// Package pipeline runs the periodic automation rules that move deals
// through the sales funnel based on lead engagement.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"scimoveis_backend/internal/crm/domain"
	"scimoveis_backend/internal/crm/repository"
	"scimoveis_backend/internal/events"
	"scimoveis_backend/platform/logger"
)

const (
	defaultSweepInterval = 5 * time.Minute
	maxConcurrentTenants = 4
)

// Engine evaluates the automation rules on a fixed interval. Each tenant is
// processed in its own transaction; a failed tenant rolls back alone and is
// retried on the next tick.
type Engine struct {
	store      Transactor
	bus        events.Bus
	log        *logger.Logger
	thresholds Thresholds
	interval   time.Duration

	enabled  atomic.Bool
	sweeping atomic.Bool

	lastSweepAt    atomic.Int64
	lastSweepFired atomic.Int64

	now func() time.Time
}

// stageMove is a committed mutation queued for event publication.
type stageMove struct {
	tenantID  uuid.UUID
	dealID    uuid.UUID
	contactID uuid.UUID
	fromStage string
	toStage   string
	rule      string
}

func NewEngine(store Transactor, bus events.Bus, thresholds Thresholds, interval time.Duration, log *logger.Logger) *Engine {
	e := &Engine{
		store:      store,
		bus:        bus,
		log:        log,
		thresholds: thresholds,
		interval:   interval,
		now:        time.Now,
	}
	if e.interval <= 0 {
		e.interval = defaultSweepInterval
	}
	e.enabled.Store(true)
	return e
}

// Run sweeps once immediately and then on every tick until ctx is done.
// A tick is skipped while the previous sweep is still running.
func (e *Engine) Run(ctx context.Context) {
	e.log.Info("pipeline automation started", "interval", e.interval.String())

	e.sweepIfIdle(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("pipeline automation stopped")
			return
		case <-ticker.C:
			e.sweepIfIdle(ctx)
		}
	}
}

func (e *Engine) sweepIfIdle(ctx context.Context) {
	if !e.enabled.Load() {
		return
	}
	if !e.sweeping.CompareAndSwap(false, true) {
		e.log.Warn("previous automation sweep still running, skipping tick")
		return
	}
	defer e.sweeping.Store(false)

	fired, err := e.Sweep(ctx)
	if err != nil {
		e.log.Error("automation sweep failed", "error", err)
		return
	}
	e.lastSweepAt.Store(e.now().Unix())
	e.lastSweepFired.Store(int64(fired))
}

// Sweep runs the full rule set across every tenant. Tenants are processed
// concurrently, each inside its own transaction. Returns the number of rule
// firings across all tenants.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	tenantIDs, err := e.store.ListTenantIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tenants for sweep: %w", err)
	}

	var fired atomic.Int64
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentTenants)

	for _, tenantID := range tenantIDs {
		group.Go(func() error {
			count, err := e.sweepTenant(groupCtx, tenantID)
			if err != nil {
				// One tenant failing must not abort the others.
				e.log.Error("tenant automation pass failed", "tenant_id", tenantID.String(), "error", err)
				return nil
			}
			fired.Add(int64(count))
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return int(fired.Load()), err
	}
	return int(fired.Load()), nil
}

// sweepTenant applies the four rules in order inside one transaction. Each
// rule's candidate set is computed before its mutations are applied.
func (e *Engine) sweepTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var moves []stageMove
	count := 0

	err := e.store.WithinTx(ctx, func(store Store) error {
		for _, rule := range []func(context.Context, Store, uuid.UUID, *[]stageMove) (int, error){
			e.runHotLeadPromotion,
			e.runStaleLeadCadence,
			e.runScoreQualification,
			e.runLostClosure,
		} {
			fired, err := rule(ctx, store, tenantID, &moves)
			if err != nil {
				return err
			}
			count += fired
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("automation pass failed: %w", err)
	}

	// Events go out only after commit so subscribers never observe a
	// rolled-back move.
	for _, move := range moves {
		e.bus.Publish(ctx, events.DealStageChanged{
			BaseEvent: events.NewBaseEvent(),
			TenantID:  move.tenantID,
			DealID:    move.dealID,
			ContactID: move.contactID,
			FromStage: move.fromStage,
			ToStage:   move.toStage,
			Rule:      move.rule,
		})
	}
	return count, nil
}

func (e *Engine) runHotLeadPromotion(ctx context.Context, store Store, tenantID uuid.UUID, moves *[]stageMove) (int, error) {
	deals, err := store.ListDealsForAutomation(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	now := e.now()
	fired := 0
	for _, deal := range deals {
		if !hotLeadEligible(deal, now, e.thresholds) {
			continue
		}

		target, err := store.GetStageByOrder(ctx, tenantID, domain.StageOrderNegotiation)
		if err != nil {
			e.log.Warn("negotiation stage missing, skipping hot-lead promotion", "tenant_id", tenantID.String())
			return fired, nil
		}

		if err := store.MoveDealStage(ctx, tenantID, deal.ID, target.ID); err != nil {
			return fired, err
		}
		if err := store.SetDealProbability(ctx, tenantID, deal.ID, e.thresholds.HotLeadSetProbability); err != nil {
			return fired, err
		}
		if err := e.audit(ctx, store, RuleHotLeadPromotion, deal, target.ID, map[string]any{
			"score":       deal.ContactScore,
			"probability": e.thresholds.HotLeadSetProbability,
		}); err != nil {
			return fired, err
		}

		e.log.AutomationRule(RuleHotLeadPromotion, tenantID.String(), deal.ID.String(), deal.Stage.Name, target.Name)
		*moves = append(*moves, stageMove{tenantID, deal.ID, deal.ContactID, deal.Stage.Name, target.Name, RuleHotLeadPromotion})
		fired++
	}
	return fired, nil
}

func (e *Engine) runStaleLeadCadence(ctx context.Context, store Store, tenantID uuid.UUID, moves *[]stageMove) (int, error) {
	deals, err := store.ListDealsForAutomation(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	now := e.now()
	fired := 0
	for _, deal := range deals {
		if !cadenceEligible(deal, now, e.thresholds) {
			continue
		}

		target, err := store.EnsureStageByName(ctx, tenantID, e.thresholds.CadenceStageName)
		if err != nil {
			return fired, err
		}

		if err := store.MoveDealStage(ctx, tenantID, deal.ID, target.ID); err != nil {
			return fired, err
		}
		probability := dropProbability(deal.Probability, e.thresholds.CadenceProbabilityDrop, e.thresholds.CadenceProbabilityFloor)
		if err := store.SetDealProbability(ctx, tenantID, deal.ID, probability); err != nil {
			return fired, err
		}

		details := map[string]any{"probability": probability}
		hasTask, err := store.HasPendingTaskForDeal(ctx, tenantID, deal.ID)
		if err != nil {
			return fired, err
		}
		if !hasTask {
			task := &domain.Task{
				TenantID:  tenantID,
				DealID:    &deal.ID,
				ContactID: &deal.ContactID,
				Title:     "Retomar contato: " + deal.Title,
				DueAt:     now.Add(24 * time.Hour),
			}
			if err := store.CreateTask(ctx, task); err != nil {
				return fired, err
			}
			details["task_id"] = task.ID.String()
		}

		if err := e.audit(ctx, store, RuleStaleLeadCadence, deal, target.ID, details); err != nil {
			return fired, err
		}

		e.log.AutomationRule(RuleStaleLeadCadence, tenantID.String(), deal.ID.String(), deal.Stage.Name, target.Name)
		*moves = append(*moves, stageMove{tenantID, deal.ID, deal.ContactID, deal.Stage.Name, target.Name, RuleStaleLeadCadence})
		fired++
	}
	return fired, nil
}

func (e *Engine) runScoreQualification(ctx context.Context, store Store, tenantID uuid.UUID, moves *[]stageMove) (int, error) {
	deals, err := store.ListDealsForAutomation(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	fired := 0
	for _, deal := range deals {
		if !qualifyEligible(deal, e.thresholds) {
			continue
		}

		target, err := store.GetStageByOrder(ctx, tenantID, domain.StageOrderQualified)
		if err != nil {
			e.log.Warn("qualification stage missing, skipping score qualification", "tenant_id", tenantID.String())
			return fired, nil
		}

		if err := store.MoveDealStage(ctx, tenantID, deal.ID, target.ID); err != nil {
			return fired, err
		}
		probability := boostProbability(deal.Probability, e.thresholds.QualifyProbabilityBoost, e.thresholds.QualifyProbabilityCeiling)
		if err := store.SetDealProbability(ctx, tenantID, deal.ID, probability); err != nil {
			return fired, err
		}

		if err := e.audit(ctx, store, RuleScoreQualify, deal, target.ID, map[string]any{
			"score":       deal.ContactScore,
			"probability": probability,
		}); err != nil {
			return fired, err
		}

		e.log.AutomationRule(RuleScoreQualify, tenantID.String(), deal.ID.String(), deal.Stage.Name, target.Name)
		*moves = append(*moves, stageMove{tenantID, deal.ID, deal.ContactID, deal.Stage.Name, target.Name, RuleScoreQualify})
		fired++
	}
	return fired, nil
}

func (e *Engine) runLostClosure(ctx context.Context, store Store, tenantID uuid.UUID, moves *[]stageMove) (int, error) {
	deals, err := store.ListDealsForAutomation(ctx, tenantID)
	if err != nil {
		return 0, err
	}

	now := e.now()
	fired := 0
	for _, deal := range deals {
		if !lostEligible(deal, now, e.thresholds) {
			continue
		}

		lostStage, err := store.GetStageByType(ctx, tenantID, domain.StageTypeLost)
		if err != nil {
			e.log.Warn("lost stage missing, skipping lost closure", "tenant_id", tenantID.String())
			return fired, nil
		}

		if err := store.CloseDealLost(ctx, tenantID, deal.ID, lostStage.ID, lostReasonAbandoned); err != nil {
			return fired, err
		}

		if err := e.audit(ctx, store, RuleLostClosure, deal, lostStage.ID, map[string]any{
			"reason":    lostReasonAbandoned,
			"idle_days": int(now.Sub(deal.CreatedAt).Hours() / 24),
		}); err != nil {
			return fired, err
		}

		e.log.AutomationRule(RuleLostClosure, tenantID.String(), deal.ID.String(), deal.Stage.Name, lostStage.Name)
		*moves = append(*moves, stageMove{tenantID, deal.ID, deal.ContactID, deal.Stage.Name, lostStage.Name, RuleLostClosure})
		fired++
	}
	return fired, nil
}

// audit records the rule firing inside the owning transaction so the trail
// commits or rolls back together with the business mutation.
func (e *Engine) audit(ctx context.Context, store Store, rule string, deal repository.AutomationDeal, toStageID uuid.UUID, details map[string]any) error {
	payload, err := json.Marshal(details)
	if err != nil {
		payload = []byte(`{}`)
	}

	fromStageID := deal.Stage.ID
	return store.RecordAutomationExecution(ctx, &domain.AutomationExecution{
		TenantID:    deal.TenantID,
		RuleName:    rule,
		DealID:      deal.ID,
		FromStageID: &fromStageID,
		ToStageID:   &toStageID,
		Details:     payload,
	})
}

// Enabled reports whether the periodic sweep is active.
func (e *Engine) Enabled() bool { return e.enabled.Load() }

// SetEnabled toggles the periodic sweep without stopping the ticker.
func (e *Engine) SetEnabled(on bool) { e.enabled.Store(on) }

// Status describes the engine for the control API.
type Status struct {
	Enabled        bool       `json:"enabled"`
	Sweeping       bool       `json:"sweeping"`
	Interval       string     `json:"interval"`
	LastSweepAt    *time.Time `json:"lastSweepAt,omitempty"`
	LastSweepFired int        `json:"lastSweepFired"`
}

func (e *Engine) Status() Status {
	status := Status{
		Enabled:        e.enabled.Load(),
		Sweeping:       e.sweeping.Load(),
		Interval:       e.interval.String(),
		LastSweepFired: int(e.lastSweepFired.Load()),
	}
	if unix := e.lastSweepAt.Load(); unix > 0 {
		at := time.Unix(unix, 0)
		status.LastSweepAt = &at
	}
	return status
}

// RuleThresholds returns the active rule parameters for the control API.
func (e *Engine) RuleThresholds() Thresholds { return e.thresholds }
