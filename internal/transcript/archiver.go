package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fieldline/voice-agent-platform/pkg/logging"
)

// S3API is the subset of the S3 client the archiver uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver writes a JSON copy of each transcript to S3. With no bucket
// configured, every operation is a no-op.
type Archiver struct {
	bucket string
	client S3API
	logger *logging.Logger
}

func NewArchiver(client S3API, bucket string, logger *logging.Logger) *Archiver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Archiver{bucket: bucket, client: client, logger: logger}
}

// Enabled reports whether archival is configured.
func (a *Archiver) Enabled() bool {
	return a != nil && a.bucket != "" && a.client != nil
}

// Archive writes the record under a by-date key.
func (a *Archiver) Archive(ctx context.Context, rec Record) error {
	if !a.Enabled() {
		return nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("transcript: failed to marshal record: %w", err)
	}

	key := fmt.Sprintf("calls/v1/by-date/%d/%02d/%02d/%s.json",
		rec.CreatedAt.Year(), rec.CreatedAt.Month(), rec.CreatedAt.Day(), rec.CallID)

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("transcript: s3 put %s: %w", key, err)
	}

	a.logger.Info("archived call transcript", "call_id", rec.CallID, "s3_key", key, "turns", len(rec.Turns))
	return nil
}
