package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"scimoveis_backend/internal/assistant"
	"scimoveis_backend/internal/conversation"
	"scimoveis_backend/internal/crm/repository"
	"scimoveis_backend/internal/events"
	"scimoveis_backend/internal/followup"
	apphttp "scimoveis_backend/internal/http"
	"scimoveis_backend/internal/http/router"
	"scimoveis_backend/internal/notification"
	"scimoveis_backend/internal/pipeline"
	"scimoveis_backend/internal/properties"
	"scimoveis_backend/internal/scheduler"
	"scimoveis_backend/internal/session"
	"scimoveis_backend/internal/transcribe"
	"scimoveis_backend/internal/visits"
	"scimoveis_backend/internal/whatsapp"
	"scimoveis_backend/platform/config"
	"scimoveis_backend/platform/db"
	"scimoveis_backend/platform/logger"
	"scimoveis_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting bot", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.Migrate(ctx, pool)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	tenantID, err := uuid.Parse(cfg.GetDefaultTenantID())
	if err != nil {
		panic("invalid DEFAULT_TENANT_ID: " + err.Error())
	}

	eventBus := events.NewInMemoryBus(log)
	repo := repository.New(pool)
	propsRepo := properties.NewRepository(pool)
	val := validator.New()

	// ========================================================================
	// Collaborators
	// ========================================================================

	whatsappClient := whatsapp.NewClient(cfg, log)
	if whatsappClient == nil {
		log.Warn("WHATSAPP_URL not configured; outbound messages disabled")
	}

	var archiver transcribe.Archiver
	if archive, err := transcribe.NewVoiceArchive(ctx, cfg, log); err != nil {
		log.Error("failed to initialize voice archive", "error", err)
		panic("failed to initialize voice archive: " + err.Error())
	} else if archive != nil {
		archiver = archive
		log.Info("voice archive initialized", "bucket", cfg.GetMinioBucketVoiceMessages())
	}
	transcriber := transcribe.NewClient(cfg, archiver, log)

	provider, err := assistant.NewGeminiProvider(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize assistant provider", "error", err)
		panic("failed to initialize assistant provider: " + err.Error())
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	visitsSvc := visits.NewService(repo, propsRepo, eventBus, log)
	toolBridge := conversation.NewToolBridge(propsRepo, visitsSvc)
	orchestrator := assistant.NewOrchestrator(provider, toolBridge, log)

	followupMgr := followup.NewManager(whatsappClient, eventBus, log, cfg.GetFollowUpInterval())

	store := session.NewStore()
	reaper := session.NewReaper(store, log, cfg.GetSessionReaperInterval(), cfg.GetSessionIdleTimeout())

	conversationSvc := conversation.NewService(
		store, repo, orchestrator, whatsappClient, transcriber, followupMgr, eventBus, log,
		conversation.Config{
			TenantID:         tenantID,
			OfficeHoursStart: cfg.GetOfficeHoursStart(),
			OfficeHoursEnd:   cfg.GetOfficeHoursEnd(),
		},
	)

	thresholds, err := pipeline.LoadThresholds(cfg.GetAutomationRulesFile())
	if err != nil {
		log.Error("failed to load automation thresholds", "error", err)
		panic("failed to load automation thresholds: " + err.Error())
	}
	automation := pipeline.NewEngine(pipeline.NewStore(repo), eventBus, thresholds, cfg.GetAutomationInterval(), log)
	automation.SetEnabled(cfg.IsAutomationEnabled())

	notificationModule := notification.NewModule(notification.NewSMTPSender(cfg), cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	var schedulerWorker *scheduler.Worker
	if cfg.GetRedisURL() != "" {
		reminderClient, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize reminder scheduler", "error", err)
			panic("failed to initialize reminder scheduler: " + err.Error())
		}
		defer func() {
			_ = reminderClient.Close()
		}()
		scheduler.NewReminderSubscriber(reminderClient, log).RegisterHandlers(eventBus)

		schedulerWorker, err = scheduler.NewWorker(cfg, pool, whatsappClient, log)
		if err != nil {
			log.Error("failed to initialize scheduler worker", "error", err)
			panic("failed to initialize scheduler worker: " + err.Error())
		}
	} else {
		log.Warn("REDIS_URL not configured; visit reminders disabled")
	}

	// ========================================================================
	// Background Tasks
	// ========================================================================

	go reaper.Run(ctx)
	go followupMgr.Run(ctx)
	go automation.Run(ctx)
	if schedulerWorker != nil {
		go schedulerWorker.Run(ctx)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			whatsapp.NewModule(conversationSvc, val, cfg.GetWhatsAppKey(), log),
			pipeline.NewModule(automation, repo, tenantID, log),
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
