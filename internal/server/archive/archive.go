// Package archive keeps a copy of every committed sync batch in an
// S3-compatible bucket for audit and replay.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/lexisync/internal/models"
	sc "github.com/dmitrijs2005/lexisync/internal/server/config"
	"github.com/google/uuid"
)

// Archiver stores the raw body of a committed batch.
type Archiver interface {
	Archive(ctx context.Context, accountID models.ID, batch []byte) error
}

// Nop discards batches. Used when no bucket is configured.
type Nop struct{}

func (Nop) Archive(context.Context, models.ID, []byte) error { return nil }

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) putObjectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Archiver writes batches to batches/<account>/<yyyy>/<mm>/<dd>/<uuid>.json.
type S3Archiver struct {
	client putObjectAPI
	bucket string
	now    func() time.Time
}

// New returns an S3Archiver when a bucket is configured and Nop otherwise.
func New(ctx context.Context, c *sc.Config) (Archiver, error) {
	if c.S3Bucket == "" {
		return Nop{}, nil
	}
	return NewS3Archiver(ctx, c)
}

// NewS3Archiver builds a client with static credentials against the
// configured endpoint, as used with MinIO.
func NewS3Archiver(ctx context.Context, c *sc.Config) (*S3Archiver, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Archiver{client: client, bucket: c.S3Bucket, now: time.Now}, nil
}

// Key returns the object key of a batch archived at t.
func Key(accountID models.ID, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("batches/%s/%04d/%02d/%02d/%s.json", accountID, t.Year(), t.Month(), t.Day(), uuid.New())
}

func (a *S3Archiver) Archive(ctx context.Context, accountID models.ID, batch []byte) error {
	key := Key(accountID, a.now())
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(batch),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
