package scheduler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"scimoveis_backend/internal/crm/domain"
	"scimoveis_backend/internal/crm/repository"
	"scimoveis_backend/platform/config"
	"scimoveis_backend/platform/logger"
)

// Sender delivers the reminder text to the contact's chat.
type Sender interface {
	SendText(ctx context.Context, chatID, text, quoted string) error
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	repo   *repository.Repository
	sender Sender
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, pool *pgxpool.Pool, sender Sender, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		repo:   repository.New(pool),
		sender: sender,
		log:    log,
	}

	mux.HandleFunc(TaskVisitReminder, w.handleVisitReminder)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleVisitReminder sends the contact a reminder shortly before the
// visit. Cancelled or completed tasks are skipped silently.
func (w *Worker) handleVisitReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseVisitReminderPayload(task)
	if err != nil {
		return err
	}

	taskID, err := uuid.Parse(payload.TaskID)
	if err != nil {
		return err
	}
	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return err
	}

	record, err := w.repo.GetTaskByID(ctx, tenantID, taskID)
	if err != nil {
		return err
	}
	if record.Status != domain.TaskStatusPending {
		return nil
	}
	if payload.ChatID == "" || w.sender == nil {
		return nil
	}

	message := fmt.Sprintf(
		"Olá, %s! 😊 Passando para lembrar da sua visita ao imóvel %s hoje às %s. Até já! 🏡",
		payload.ContactName, payload.PropertyCode, payload.VisitAt.Format("15:04"),
	)
	if err := w.sender.SendText(ctx, payload.ChatID, message, ""); err != nil {
		return fmt.Errorf("failed to send visit reminder: %w", err)
	}

	w.log.WithChatID(payload.ChatID).Info("visit reminder sent", "task_id", payload.TaskID)
	return nil
}
