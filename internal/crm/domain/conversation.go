package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message direction and role values.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"

	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"

	MediaTypeText  = "text"
	MediaTypeAudio = "audio"
)

// Conversation is a persisted WhatsApp thread with one contact.
type Conversation struct {
	ID            uuid.UUID  `db:"id"`
	TenantID      uuid.UUID  `db:"tenant_id"`
	ContactID     uuid.UUID  `db:"contact_id"`
	Channel       string     `db:"channel"`
	Status        string     `db:"status"`
	LastMessageAt *time.Time `db:"last_message_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// Message is one turn in a conversation.
type Message struct {
	ID             uuid.UUID `db:"id"`
	ConversationID uuid.UUID `db:"conversation_id"`
	TenantID       uuid.UUID `db:"tenant_id"`
	Direction      string    `db:"direction"`
	Role           string    `db:"role"`
	Content        string    `db:"content"`
	MediaType      string    `db:"media_type"`
	CreatedAt      time.Time `db:"created_at"`
}
