package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"scimoveis_backend/platform/config"
	"scimoveis_backend/platform/logger"
)

// VoiceArchive stores incoming voice messages in object storage so agents
// can review the original audio behind a transcription.
type VoiceArchive struct {
	client *minio.Client
	bucket string
	log    *logger.Logger
}

// NewVoiceArchive creates the archive and ensures its bucket exists.
// Returns nil without error when MinIO is not configured.
func NewVoiceArchive(ctx context.Context, cfg config.MinIOConfig, log *logger.Logger) (*VoiceArchive, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, nil
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	bucket := cfg.GetMinioBucketVoiceMessages()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	return &VoiceArchive{client: client, bucket: bucket, log: log}, nil
}

// Archive uploads the audio asynchronously. Upload failures are logged and
// otherwise ignored so they never delay message processing.
func (a *VoiceArchive) Archive(ctx context.Context, audio []byte, mimeType string) {
	payload := make([]byte, len(audio))
	copy(payload, audio)

	go func() {
		uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()

		key := fmt.Sprintf("%s/%s%s", time.Now().UTC().Format("2006/01/02"), uuid.New().String(), extensionForMime(mimeType))
		_, err := a.client.PutObject(uploadCtx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
			ContentType: mimeType,
		})
		if err != nil {
			a.log.Warn("failed to archive voice message", "bucket", a.bucket, "key", key, "error", err)
			return
		}
		a.log.Debug("voice message archived", "bucket", a.bucket, "key", key, "bytes", len(payload))
	}()
}

func extensionForMime(mimeType string) string {
	switch fileNameForMime(mimeType) {
	case "audio.ogg":
		return ".ogg"
	case "audio.mp3":
		return ".mp3"
	case "audio.wav":
		return ".wav"
	default:
		return ".bin"
	}
}
