// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"scimoveis_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Conversation Domain Events
// =============================================================================

// MessageReceived is published after an inbound WhatsApp message is persisted.
type MessageReceived struct {
	BaseEvent
	TenantID       uuid.UUID `json:"tenantId"`
	ContactID      uuid.UUID `json:"contactId"`
	ConversationID uuid.UUID `json:"conversationId"`
	ChatID         string    `json:"chatId"`
	MediaType      string    `json:"mediaType"` // "text" or "audio"
}

func (e MessageReceived) EventName() string { return "conversation.message.received" }

// ContactScoreChanged is published when an engagement event mutates a
// contact's score.
type ContactScoreChanged struct {
	BaseEvent
	TenantID  uuid.UUID `json:"tenantId"`
	ContactID uuid.UUID `json:"contactId"`
	Delta     int       `json:"delta"`
	NewScore  int       `json:"newScore"`
	Reason    string    `json:"reason"` // "message_sent", "property_viewed", "schedule_requested", "visit_scheduled"
}

func (e ContactScoreChanged) EventName() string { return "crm.contact.score_changed" }

// PropertiesPresented is published when the assistant shows listings to a contact.
type PropertiesPresented struct {
	BaseEvent
	TenantID       uuid.UUID `json:"tenantId"`
	ContactID      uuid.UUID `json:"contactId"`
	ConversationID uuid.UUID `json:"conversationId"`
	PropertyCodes  []string  `json:"propertyCodes"`
}

func (e PropertiesPresented) EventName() string { return "conversation.properties.presented" }

// =============================================================================
// Visits Domain Events
// =============================================================================

// VisitScheduled is published when a property visit is booked through the
// assistant. Subscribers send the agent handoff email and enqueue the
// contact reminder.
type VisitScheduled struct {
	BaseEvent
	TenantID     uuid.UUID `json:"tenantId"`
	ContactID    uuid.UUID `json:"contactId"`
	DealID       uuid.UUID `json:"dealId"`
	TaskID       uuid.UUID `json:"taskId"`
	ContactName  string    `json:"contactName"`
	ContactPhone string    `json:"contactPhone"`
	PropertyCode string    `json:"propertyCode"`
	VisitAt      time.Time `json:"visitAt"`
}

func (e VisitScheduled) EventName() string { return "visits.visit.scheduled" }

// =============================================================================
// Pipeline Domain Events
// =============================================================================

// DealStageChanged is published when a deal moves between pipeline stages,
// whether by conversational signal or by the automation engine.
type DealStageChanged struct {
	BaseEvent
	TenantID  uuid.UUID `json:"tenantId"`
	DealID    uuid.UUID `json:"dealId"`
	ContactID uuid.UUID `json:"contactId"`
	FromStage string    `json:"fromStage"`
	ToStage   string    `json:"toStage"`
	Rule      string    `json:"rule,omitempty"` // set when the automation engine moved the deal
}

func (e DealStageChanged) EventName() string { return "pipeline.deal.stage_changed" }

// =============================================================================
// Follow-up Domain Events
// =============================================================================

// FollowUpSent is published when a re-engagement message goes out.
type FollowUpSent struct {
	BaseEvent
	TenantID  uuid.UUID `json:"tenantId"`
	ContactID uuid.UUID `json:"contactId"`
	ChatID    string    `json:"chatId"`
	DaysIdle  int       `json:"daysIdle"`
}

func (e FollowUpSent) EventName() string { return "followup.message.sent" }
