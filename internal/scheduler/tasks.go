package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskVisitReminder = "visits.reminder"

type VisitReminderPayload struct {
	TaskID       string    `json:"taskId"`
	TenantID     string    `json:"tenantId"`
	ChatID       string    `json:"chatId"`
	ContactName  string    `json:"contactName"`
	PropertyCode string    `json:"propertyCode"`
	VisitAt      time.Time `json:"visitAt"`
}

func NewVisitReminderTask(payload VisitReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskVisitReminder, data), nil
}

func ParseVisitReminderPayload(task *asynq.Task) (VisitReminderPayload, error) {
	var payload VisitReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return VisitReminderPayload{}, err
	}
	return payload, nil
}
