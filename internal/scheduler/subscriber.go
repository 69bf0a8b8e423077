package scheduler

import (
	"context"
	"time"

	"scimoveis_backend/internal/events"
	"scimoveis_backend/platform/logger"
	"scimoveis_backend/platform/phone"
)

// reminderLeadTime is how long before the visit the contact gets reminded.
const reminderLeadTime = time.Hour

// ReminderSubscriber enqueues a visit reminder whenever a visit is booked.
type ReminderSubscriber struct {
	client ReminderScheduler
	log    *logger.Logger
}

func NewReminderSubscriber(client ReminderScheduler, log *logger.Logger) *ReminderSubscriber {
	return &ReminderSubscriber{client: client, log: log}
}

// RegisterHandlers subscribes to the visit events on the bus.
func (s *ReminderSubscriber) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.VisitScheduled{}.EventName(), s)
}

func (s *ReminderSubscriber) Handle(ctx context.Context, event events.Event) error {
	visit, ok := event.(events.VisitScheduled)
	if !ok {
		return nil
	}
	if s.client == nil {
		return nil
	}

	runAt := visit.VisitAt.Add(-reminderLeadTime)
	if runAt.Before(time.Now()) {
		return nil
	}

	payload := VisitReminderPayload{
		TaskID:       visit.TaskID.String(),
		TenantID:     visit.TenantID.String(),
		ChatID:       phone.ToJID(visit.ContactPhone),
		ContactName:  visit.ContactName,
		PropertyCode: visit.PropertyCode,
		VisitAt:      visit.VisitAt,
	}
	if err := s.client.ScheduleVisitReminder(ctx, payload, runAt); err != nil {
		s.log.Error("failed to enqueue visit reminder", "task_id", payload.TaskID, "error", err)
		return err
	}

	s.log.Info("visit reminder enqueued", "task_id", payload.TaskID, "run_at", runAt.Format(time.RFC3339))
	return nil
}
