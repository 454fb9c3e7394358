package exportsink

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/attendkeeper/internal/export"
	"github.com/dmitrijs2005/attendkeeper/internal/logging"
)

type S3Config struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// S3Sink uploads blobs under exports/<year>/<month>/<day>/.
type S3Sink struct {
	client putObjectAPI
	bucket string
	now    func() time.Time
	logger logging.Logger
}

// NewS3Sink builds a client with static credentials. BaseEndpoint, when
// set, points the client at an S3-compatible server such as MinIO.
func NewS3Sink(ctx context.Context, c S3Config, logger logging.Logger) (*S3Sink, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Sink(client, c.Bucket, logger), nil
}

func newS3Sink(client putObjectAPI, bucket string, logger logging.Logger) *S3Sink {
	return &S3Sink{
		client: client,
		bucket: bucket,
		now:    time.Now,
		logger: logger.With("module", "exportsink"),
	}
}

func (s *S3Sink) Deliver(ctx context.Context, b export.Blob) (string, error) {
	key := s.objectKey(b.Name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(b.Content),
		ContentType: aws.String(b.MimeType),
	})
	if err != nil {
		s.logger.Error(ctx, "export upload failed", "key", key, "error", err)
		return "", fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}

	loc := fmt.Sprintf("s3://%s/%s", s.bucket, key)
	s.logger.Info(ctx, "export uploaded", "location", loc, "bytes", len(b.Content))
	return loc, nil
}

func (s *S3Sink) objectKey(name string) string {
	d := s.now()
	return fmt.Sprintf("exports/%d/%02d/%02d/%s", d.Year(), d.Month(), d.Day(), name)
}
