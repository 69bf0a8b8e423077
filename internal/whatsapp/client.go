package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"scimoveis_backend/platform/config"
	"scimoveis_backend/platform/logger"
	"scimoveis_backend/platform/phone"
)

// Client delivers outbound messages through a gowa-compatible gateway.
// All sends share one rate limiter so bursty block delivery stays within
// the gateway's pacing expectations.
type Client struct {
	baseURL  string
	apiKey   string
	deviceID string
	http     *http.Client
	limiter  *rate.Limiter
	log      *logger.Logger
}

type sendMessageRequest struct {
	Phone          string `json:"phone"`
	Message        string `json:"message"`
	ReplyMessageID string `json:"reply_message_id,omitempty"`
}

type sendImageRequest struct {
	Phone    string `json:"phone"`
	ImageURL string `json:"image_url"`
	Caption  string `json:"caption,omitempty"`
}

func NewClient(cfg config.WhatsAppConfig, log *logger.Logger) *Client {
	if cfg.GetWhatsAppURL() == "" {
		return nil
	}

	perSecond := cfg.GetOutboundMessagesPerSecond()
	if perSecond <= 0 {
		perSecond = 1
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.GetWhatsAppURL(), "/"),
		apiKey:   cfg.GetWhatsAppKey(),
		deviceID: cfg.GetWhatsAppDeviceID(),
		http:     &http.Client{Timeout: 15 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
		log:      log,
	}
}

// SendText delivers a text message to a chat. When quoted is non-empty the
// message is sent as a reply to that message id.
func (c *Client) SendText(ctx context.Context, chatID, text, quoted string) error {
	if c == nil {
		return nil
	}

	payload := sendMessageRequest{
		Phone:          recipientPhone(chatID),
		Message:        text,
		ReplyMessageID: quoted,
	}
	if err := c.post(ctx, "/send/message", payload); err != nil {
		return err
	}

	c.log.WithChatID(chatID).Debug("whatsapp text sent", "chars", len(text))
	return nil
}

// SendImage delivers an image by URL with an optional caption.
func (c *Client) SendImage(ctx context.Context, chatID, imageURL, caption string) error {
	if c == nil {
		return nil
	}

	payload := sendImageRequest{
		Phone:    recipientPhone(chatID),
		ImageURL: imageURL,
		Caption:  caption,
	}
	if err := c.post(ctx, "/send/image", payload); err != nil {
		return err
	}

	c.log.WithChatID(chatID).Debug("whatsapp image sent")
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal whatsapp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", formatAuthHeader(c.apiKey))
	}
	if c.deviceID != "" {
		req.Header.Set("X-Device-Id", c.deviceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("whatsapp service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}

// recipientPhone maps a chat JID back to the bare number the gateway expects.
func recipientPhone(chatID string) string {
	if number := phone.FromJID(chatID); number != "" {
		return strings.TrimPrefix(number, "+")
	}
	return strings.TrimPrefix(phone.NormalizeE164(chatID), "+")
}

func formatAuthHeader(apiKey string) string {
	if strings.HasPrefix(strings.ToLower(apiKey), "basic ") {
		return apiKey
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(apiKey))
	return "Basic " + encoded
}
