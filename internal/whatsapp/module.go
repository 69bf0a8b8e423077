// Package whatsapp integrates with the gowa-compatible WhatsApp gateway:
// an outbound send client and the inbound webhook endpoint.
package whatsapp

import (
	"scimoveis_backend/internal/conversation"
	apphttp "scimoveis_backend/internal/http"
	"scimoveis_backend/platform/httpkit"
	"scimoveis_backend/platform/logger"
	"scimoveis_backend/platform/validator"
)

// Module is the WhatsApp gateway module implementing http.Module.
type Module struct {
	handler    *WebhookHandler
	webhookKey string
}

// NewModule wires the inbound webhook to the conversation service.
// webhookKey guards the endpoint; an empty key leaves it open.
func NewModule(conversations *conversation.Service, val *validator.Validator, webhookKey string, log *logger.Logger) *Module {
	return &Module{
		handler:    NewWebhookHandler(conversations, val, log),
		webhookKey: webhookKey,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "whatsapp"
}

// RegisterRoutes mounts the gateway webhook endpoint.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	webhookGroup := ctx.V1.Group("/webhook")
	webhookGroup.Use(httpkit.WebhookKeyAuth(m.webhookKey))
	webhookGroup.POST("/whatsapp", m.handler.HandleInbound)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
