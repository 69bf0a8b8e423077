// Package session keeps the in-memory state of active WhatsApp chats:
// rolling history, qualification progress and the per-chat processing gate.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Qualification stages a chat moves through before scheduling.
const (
	StageGreeting           = "greeting"
	StageQualifyingPurpose  = "qualifying_purpose"
	StageQualifyingType     = "qualifying_type"
	StageQualifyingCity     = "qualifying_city"
	StageQualifyingBedrooms = "qualifying_bedrooms"
	StagePresenting         = "presenting"
	StageScheduling         = "scheduling"
	StageScheduled          = "scheduled"
)

// HistoryLimit caps how many turns are kept per chat. Older turns are
// dropped from the front.
const HistoryLimit = 20

// Turn is one exchange in the rolling conversation history.
type Turn struct {
	Role    string
	Content string
}

// Qualification tracks the answers collected while profiling a lead.
type Qualification struct {
	Purpose      string // "morar" or "investir"
	PropertyType string // "casa" or "apartamento"
	City         string
	Bedrooms     int
}

// Session is the live state of one WhatsApp chat.
type Session struct {
	ChatID         string
	TenantID       uuid.UUID
	ContactID      uuid.UUID
	ConversationID uuid.UUID
	ContactName    string
	ContactPhone   string
	ContactScore   int

	Stage               string
	Qualification       Qualification
	History             []Turn
	PresentedProperties []string
	InteractionCount    int

	LastActivity time.Time

	busy bool
}

// AppendTurn adds a turn to the history, truncating from the front once the
// cap is exceeded.
func (s *Session) AppendTurn(role, content string) {
	s.History = append(s.History, Turn{Role: role, Content: content})
	if len(s.History) > HistoryLimit {
		s.History = s.History[len(s.History)-HistoryLimit:]
	}
}

// RecordPresented remembers listing codes shown to the contact, most recent
// last, without duplicates.
func (s *Session) RecordPresented(codes []string) {
	for _, code := range codes {
		seen := false
		for _, existing := range s.PresentedProperties {
			if existing == code {
				seen = true
				break
			}
		}
		if !seen {
			s.PresentedProperties = append(s.PresentedProperties, code)
		}
	}
}

// FirstPresented returns the first listing shown to the contact, used by
// follow-up templates.
func (s *Session) FirstPresented() string {
	if len(s.PresentedProperties) == 0 {
		return ""
	}
	return s.PresentedProperties[0]
}
