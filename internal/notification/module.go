// Package notification sends agent handoff notifications in response to
// domain events, keeping email concerns out of the conversation flow.
package notification

import (
	"context"
	"fmt"
	"html"

	"scimoveis_backend/internal/events"
	"scimoveis_backend/platform/config"
	"scimoveis_backend/platform/logger"
)

// EmailSender delivers one HTML email.
type EmailSender interface {
	Send(ctx context.Context, toEmail, subject, htmlContent string) error
}

// Module subscribes to domain events and notifies the responsible agent.
type Module struct {
	sender     EmailSender
	agentEmail string
	enabled    bool
	log        *logger.Logger
}

func NewModule(sender EmailSender, cfg config.EmailConfig, log *logger.Logger) *Module {
	return &Module{
		sender:     sender,
		agentEmail: cfg.GetAgentEmail(),
		enabled:    cfg.GetEmailEnabled() && cfg.GetAgentEmail() != "",
		log:        log,
	}
}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.VisitScheduled{}.EventName(), m)
	bus.Subscribe(events.DealStageChanged{}.EventName(), m)
}

func (m *Module) Handle(ctx context.Context, event events.Event) error {
	if !m.enabled || m.sender == nil {
		return nil
	}

	switch e := event.(type) {
	case events.VisitScheduled:
		return m.handleVisitScheduled(ctx, e)
	case events.DealStageChanged:
		return m.handleDealStageChanged(ctx, e)
	default:
		return nil
	}
}

// handleVisitScheduled mails the agent so a human confirms the visit the
// assistant booked.
func (m *Module) handleVisitScheduled(ctx context.Context, e events.VisitScheduled) error {
	subject := fmt.Sprintf("Nova visita agendada: %s", e.PropertyCode)
	body := fmt.Sprintf(
		`<h2>Visita agendada pelo assistente</h2>
<p><strong>Cliente:</strong> %s</p>
<p><strong>Telefone:</strong> %s</p>
<p><strong>Imóvel:</strong> %s</p>
<p><strong>Data:</strong> %s</p>
<p>Entre em contato com o cliente para confirmar.</p>`,
		html.EscapeString(e.ContactName),
		html.EscapeString(e.ContactPhone),
		html.EscapeString(e.PropertyCode),
		e.VisitAt.Format("02/01/2006 15:04"),
	)

	if err := m.sender.Send(ctx, m.agentEmail, subject, body); err != nil {
		m.log.Error("failed to send visit notification", "task_id", e.TaskID.String(), "error", err)
		return err
	}
	m.log.Info("visit notification sent", "agent", m.agentEmail, "property", e.PropertyCode)
	return nil
}

// handleDealStageChanged mails the agent only for automation moves, which
// happen outside any conversation a human might be watching.
func (m *Module) handleDealStageChanged(ctx context.Context, e events.DealStageChanged) error {
	if e.Rule == "" {
		return nil
	}

	subject := fmt.Sprintf("Negócio movido para %s", e.ToStage)
	body := fmt.Sprintf(
		`<h2>Automação do funil</h2>
<p><strong>Regra:</strong> %s</p>
<p><strong>De:</strong> %s</p>
<p><strong>Para:</strong> %s</p>
<p><strong>Negócio:</strong> %s</p>`,
		html.EscapeString(e.Rule),
		html.EscapeString(e.FromStage),
		html.EscapeString(e.ToStage),
		e.DealID.String(),
	)

	if err := m.sender.Send(ctx, m.agentEmail, subject, body); err != nil {
		m.log.Error("failed to send stage change notification", "deal_id", e.DealID.String(), "error", err)
		return err
	}
	return nil
}
