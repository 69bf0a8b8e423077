package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"scimoveis_backend/platform/apperr"
	"scimoveis_backend/platform/config"
	"scimoveis_backend/platform/logger"
)

// ErrAudioTooLarge is returned when a voice message exceeds the configured
// byte ceiling. The check runs before any bytes are sent to the server.
var ErrAudioTooLarge = errors.New("audio exceeds maximum allowed size")

const defaultLanguage = "pt"

// Archiver stores raw voice messages for later review. Implementations must
// tolerate failures silently since archiving is best-effort.
type Archiver interface {
	Archive(ctx context.Context, audio []byte, mimeType string)
}

// Client transcribes voice messages via a whisper.cpp server instance.
type Client struct {
	baseURL  string
	maxBytes int64
	http     *http.Client
	archiver Archiver
	log      *logger.Logger
}

// NewClient creates a transcription client. The archiver may be nil.
func NewClient(cfg config.TranscriberConfig, archiver Archiver, log *logger.Logger) *Client {
	timeout := cfg.GetWhisperTimeout()
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.GetWhisperURL(), "/"),
		maxBytes: cfg.GetMaxAudioBytes(),
		http:     &http.Client{Timeout: timeout},
		archiver: archiver,
		log:      log,
	}
}

type inferenceResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// Transcribe converts a voice message to Portuguese text. Oversized inputs
// are rejected with ErrAudioTooLarge before the upload happens.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if c.maxBytes > 0 && int64(len(audio)) > c.maxBytes {
		return "", fmt.Errorf("%w: %d bytes (limit %d)", ErrAudioTooLarge, len(audio), c.maxBytes)
	}
	if c.baseURL == "" {
		return "", apperr.Unavailable("transcription service is not configured")
	}

	if c.archiver != nil {
		c.archiver.Archive(ctx, audio, mimeType)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", fileNameForMime(mimeType))
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio payload: %w", err)
	}
	if err := writer.WriteField("language", defaultLanguage); err != nil {
		return "", fmt.Errorf("failed to write language field: %w", err)
	}
	if err := writer.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("failed to write format field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/transcriptions", body)
	if err != nil {
		return "", fmt.Errorf("failed to create transcription request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUnavailable, "transcription request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", apperr.Unavailable(fmt.Sprintf("transcription server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))))
	}

	var result inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode transcription response: %w", err)
	}
	if result.Error != "" {
		return "", apperr.Unavailable("transcription failed: " + result.Error)
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", apperr.Unavailable("transcription produced no text")
	}
	return text, nil
}

func fileNameForMime(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "ogg"), strings.Contains(mimeType, "opus"):
		return "audio.ogg"
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return "audio.mp3"
	case strings.Contains(mimeType, "wav"):
		return "audio.wav"
	default:
		return "audio.bin"
	}
}
