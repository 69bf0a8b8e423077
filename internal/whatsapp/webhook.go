package whatsapp

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"scimoveis_backend/internal/conversation"
	"scimoveis_backend/platform/httpkit"
	"scimoveis_backend/platform/logger"
	"scimoveis_backend/platform/phone"
	"scimoveis_backend/platform/validator"
)

// processTimeout bounds one inbound message end to end, including the
// assistant round-trip and block delivery delays.
const processTimeout = 5 * time.Minute

// inboundPayload is the gateway's webhook body for a received message.
type inboundPayload struct {
	ChatID    string `json:"chat_id" binding:"required"`
	MessageID string `json:"message_id"`
	PushName  string `json:"push_name"`
	FromMe    bool   `json:"from_me"`
	Timestamp int64  `json:"timestamp"`
	Message   struct {
		Text string `json:"text"`
	} `json:"message"`
	Audio struct {
		Data     string `json:"data"`
		MimeType string `json:"mime_type"`
	} `json:"audio"`
}

// WebhookHandler receives gateway callbacks and feeds them to the
// conversation service. Processing happens off the request goroutine so the
// gateway gets an immediate acknowledgment.
type WebhookHandler struct {
	conversations *conversation.Service
	val           *validator.Validator
	log           *logger.Logger
}

func NewWebhookHandler(conversations *conversation.Service, val *validator.Validator, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{conversations: conversations, val: val, log: log}
}

func (h *WebhookHandler) HandleInbound(c *gin.Context) {
	var payload inboundPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid webhook payload", nil)
		return
	}

	// Group chats and non-phone JIDs are acknowledged and dropped.
	number := phone.FromJID(payload.ChatID)
	if number == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if err := h.val.Var(number, "brphone"); err != nil {
		h.log.WithChatID(payload.ChatID).Warn("inbound message from non-BR number ignored")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	in := conversation.Inbound{
		ChatID:    payload.ChatID,
		MessageID: payload.MessageID,
		PushName:  payload.PushName,
		FromMe:    payload.FromMe,
		Text:      payload.Message.Text,
	}
	if payload.Timestamp > 0 {
		in.Timestamp = time.Unix(payload.Timestamp, 0)
	} else {
		in.Timestamp = time.Now()
	}

	if payload.Audio.Data != "" {
		audio, err := base64.StdEncoding.DecodeString(payload.Audio.Data)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid audio encoding", nil)
			return
		}
		in.Audio = audio
		in.AudioMime = payload.Audio.MimeType
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
		defer cancel()
		ctx = context.WithValue(ctx, logger.ChatIDKey, in.ChatID)

		if err := h.conversations.HandleInbound(ctx, in); err != nil {
			h.log.WithChatID(in.ChatID).Error("failed to process inbound message", "error", err)
		}
	}()

	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}
