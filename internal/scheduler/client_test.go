package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type schedulerConfig struct {
	redisURL string
	queue    string
}

func (c schedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c schedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c schedulerConfig) GetAsynqQueueName() string { return c.queue }
func (c schedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(schedulerConfig{}); err == nil {
		t.Fatalf("expected error without a redis url")
	}
}

func TestScheduleVisitReminderEnqueues(t *testing.T) {
	srv := miniredis.RunT(t)

	cfg := schedulerConfig{redisURL: "redis://" + srv.Addr(), queue: "reminders"}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	visitAt := time.Now().Add(3 * time.Hour).UTC().Truncate(time.Second)
	payload := VisitReminderPayload{
		TaskID:       "task-1",
		TenantID:     "tenant-1",
		ChatID:       "5547999887766@s.whatsapp.net",
		ContactName:  "Maria",
		PropertyCode: "AP001",
		VisitAt:      visitAt,
	}

	runAt := visitAt.Add(-time.Hour)
	if err := client.ScheduleVisitReminder(context.Background(), payload, runAt); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	opt, err := redisClientOpt(cfg.redisURL, false)
	if err != nil {
		t.Fatalf("redis opt: %v", err)
	}
	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	tasks, err := inspector.ListScheduledTasks("reminders")
	if err != nil {
		t.Fatalf("list scheduled: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 scheduled task, got %d", len(tasks))
	}
	if tasks[0].Type != TaskVisitReminder {
		t.Fatalf("task type = %q, want %q", tasks[0].Type, TaskVisitReminder)
	}

	got, err := ParseVisitReminderPayload(asynq.NewTask(tasks[0].Type, tasks[0].Payload))
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if got.ChatID != payload.ChatID || got.PropertyCode != "AP001" || !got.VisitAt.Equal(visitAt) {
		t.Fatalf("payload round trip mismatch: %+v", got)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var client *Client
	if err := client.ScheduleVisitReminder(context.Background(), VisitReminderPayload{}, time.Now()); err != nil {
		t.Fatalf("nil client should be a no-op, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("nil close should be a no-op, got %v", err)
	}
}
