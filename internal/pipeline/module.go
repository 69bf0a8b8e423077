package pipeline

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"scimoveis_backend/internal/crm/repository"
	apphttp "scimoveis_backend/internal/http"
	"scimoveis_backend/platform/httpkit"
	"scimoveis_backend/platform/logger"
)

// Module exposes the automation control surface over HTTP.
type Module struct {
	engine          *Engine
	repo            *repository.Repository
	defaultTenantID uuid.UUID
	log             *logger.Logger
}

func NewModule(engine *Engine, repo *repository.Repository, defaultTenantID uuid.UUID, log *logger.Logger) *Module {
	return &Module{
		engine:          engine,
		repo:            repo,
		defaultTenantID: defaultTenantID,
		log:             log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "pipeline"
}

// RegisterRoutes mounts the automation control endpoints. All of them
// require an authenticated operator.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/automation")
	group.GET("/status", m.handleStatus)
	group.GET("/flows", m.handleFlows)
	group.GET("/history", m.handleHistory)
	group.POST("/start", m.handleStart)
	group.POST("/stop", m.handleStop)
	group.POST("/run-now", m.handleRunNow)
}

func (m *Module) handleStatus(c *gin.Context) {
	httpkit.OK(c, m.engine.Status())
}

// handleFlows lists the active rule set with its thresholds, so operators
// can see exactly what the sweep will do.
func (m *Module) handleFlows(c *gin.Context) {
	t := m.engine.RuleThresholds()
	httpkit.OK(c, gin.H{
		"rules": []gin.H{
			{
				"name":           RuleHotLeadPromotion,
				"minScore":       t.HotLeadScore,
				"minProbability": t.HotLeadProbability,
				"recentContact":  t.HotLeadRecentContact.String(),
				"setProbability": t.HotLeadSetProbability,
			},
			{
				"name":             RuleStaleLeadCadence,
				"idleAfter":        t.CadenceIdle.String(),
				"probabilityDrop":  t.CadenceProbabilityDrop,
				"probabilityFloor": t.CadenceProbabilityFloor,
				"targetStage":      t.CadenceStageName,
			},
			{
				"name":               RuleScoreQualify,
				"minScore":           t.QualifyScore,
				"probabilityBoost":   t.QualifyProbabilityBoost,
				"probabilityCeiling": t.QualifyProbabilityCeiling,
			},
			{
				"name":           RuleLostClosure,
				"abandonedAfter": t.AbandonedAfter.String(),
			},
		},
	})
}

func (m *Module) handleHistory(c *gin.Context) {
	tenantID := m.defaultTenantID
	if raw := c.Query("tenant_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid tenant_id", nil)
			return
		}
		tenantID = parsed
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			httpkit.Error(c, http.StatusBadRequest, "invalid limit", nil)
			return
		}
		limit = parsed
	}

	executions, err := m.repo.ListRecentExecutions(c.Request.Context(), tenantID, limit)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"executions": executions})
}

func (m *Module) handleStart(c *gin.Context) {
	m.engine.SetEnabled(true)
	m.log.Info("pipeline automation enabled via API")
	httpkit.OK(c, m.engine.Status())
}

func (m *Module) handleStop(c *gin.Context) {
	m.engine.SetEnabled(false)
	m.log.Info("pipeline automation disabled via API")
	httpkit.OK(c, m.engine.Status())
}

// handleRunNow triggers one sweep synchronously, regardless of the enabled
// flag. Overlap with a running periodic sweep is still rejected.
func (m *Module) handleRunNow(c *gin.Context) {
	if !m.engine.sweeping.CompareAndSwap(false, true) {
		httpkit.Error(c, http.StatusConflict, "a sweep is already running", nil)
		return
	}
	defer m.engine.sweeping.Store(false)

	fired, err := m.engine.Sweep(c.Request.Context())
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}
	httpkit.OK(c, gin.H{"fired": fired})
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
