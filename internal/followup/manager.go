// Package followup runs the re-engagement ladder for contacts who saw
// listings but went quiet.
package followup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"scimoveis_backend/internal/events"
	"scimoveis_backend/platform/logger"

	"github.com/google/uuid"
)

// Ladder thresholds in days. A rung fires when the contact has been quiet
// exactly that many days and the entry has not passed that rung yet.
var ladderDays = []int{1, 3, 7, 14}

// maxTrackedDays evicts entries unconditionally once elapsed.
const maxTrackedDays = 14

// Sender delivers the reminder messages.
type Sender interface {
	SendText(ctx context.Context, chatID, text, quotedID string) error
}

type entry struct {
	tenantID      uuid.UUID
	contactID     uuid.UUID
	lastContact   time.Time
	rung          int // next ladder index to fire
	propertyCodes []string
}

// Manager tracks chats eligible for follow-up and fires the ladder on a
// periodic sweep.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry

	sender   Sender
	bus      events.Bus
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time
}

// NewManager creates the follow-up manager.
func NewManager(sender Sender, bus events.Bus, log *logger.Logger, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Manager{
		entries:  make(map[string]*entry),
		sender:   sender,
		bus:      bus,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

// Track registers a chat after listings were presented. Re-presenting
// restarts the ladder with the new codes.
func (m *Manager) Track(chatID string, tenantID, contactID uuid.UUID, propertyCodes []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[chatID] = &entry{
		tenantID:      tenantID,
		contactID:     contactID,
		lastContact:   m.now(),
		propertyCodes: propertyCodes,
	}
}

// Touch resets the quiet clock when the contact writes in, so reminders
// never interrupt an active conversation.
func (m *Manager) Touch(chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[chatID]; ok {
		e.lastContact = m.now()
	}
}

// Forget drops a chat from the ladder, e.g. on session reset.
func (m *Manager) Forget(chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, chatID)
}

// Run sweeps the ladder until the context ends.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// dueReminder is one rung collected under the lock, delivered after it is
// released.
type dueReminder struct {
	chatID    string
	tenantID  uuid.UUID
	contactID uuid.UUID
	day       int
	text      string
}

// Sweep fires every due rung and evicts exhausted entries. Rung state is
// advanced under the lock, but delivery happens after release so a slow send
// never blocks Touch on the inbound path.
func (m *Manager) Sweep(ctx context.Context) {
	m.mu.Lock()
	now := m.now()
	var due []dueReminder
	for chatID, e := range m.entries {
		daysSince := int(now.Sub(e.lastContact).Hours() / 24)

		for rungIndex, threshold := range ladderDays {
			if daysSince == threshold && e.rung <= rungIndex {
				due = append(due, dueReminder{
					chatID:    chatID,
					tenantID:  e.tenantID,
					contactID: e.contactID,
					day:       threshold,
					text:      messageForDay(threshold, e.propertyCodes),
				})
				e.rung = rungIndex + 1
				e.lastContact = now
				break
			}
		}

		if daysSince > maxTrackedDays {
			delete(m.entries, chatID)
		}
	}
	m.mu.Unlock()

	for _, reminder := range due {
		m.fire(ctx, reminder)
	}
}

func (m *Manager) fire(ctx context.Context, reminder dueReminder) {
	if err := m.sender.SendText(ctx, reminder.chatID, reminder.text, ""); err != nil {
		m.log.WithChatID(reminder.chatID).Error("follow-up delivery failed", "day", reminder.day, "error", err)
		return
	}

	m.log.WithChatID(reminder.chatID).Info("follow-up sent", "day", reminder.day)
	m.bus.Publish(ctx, events.FollowUpSent{
		BaseEvent: events.NewBaseEvent(),
		TenantID:  reminder.tenantID,
		ContactID: reminder.contactID,
		ChatID:    reminder.chatID,
		DaysIdle:  reminder.day,
	})
}

func messageForDay(day int, propertyCodes []string) string {
	switch day {
	case 1:
		return "Oi! 👋 Ontem você demonstrou interesse em alguns imóveis. Conseguiu pensar melhor sobre qual mais combina com você? Posso agendar uma visita ainda esta semana!"
	case 3:
		ref := "que você gostou"
		if len(propertyCodes) > 0 {
			ref = propertyCodes[0]
		}
		return fmt.Sprintf("Olá! 😊 Passando para saber se você teve a chance de conversar com a família sobre os imóveis que vimos. Aquele %s continua disponível, mas tem bastante procura!", ref)
	case 7:
		return "Oi! Tudo bem? 🏠 Faz uma semana que conversamos sobre sua busca por imóvel. Surgiram algumas novidades que podem te interessar! Quer que eu te mostre?"
	default:
		return "Olá! ✨ Última mensagem, prometo! Só queria te avisar que tivemos uma redução de preço em alguns imóveis. Vale a pena dar uma olhada! Me avisa se ainda tiver interesse."
	}
}

// Len returns how many chats are tracked.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
