package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
)

// Delivery is one raw webhook body to archive.
type Delivery struct {
	WebhookID   string    `json:"webhook_id"`
	Provider    string    `json:"provider"`
	ContentType string    `json:"content_type"`
	ReceivedAt  time.Time `json:"received_at"`
	RawBody     string    `json:"raw_body"`
}

// UploadResult describes a stored object.
type UploadResult struct {
	BucketName string
	ObjectKey  string
	Size       int64
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client wraps the S3 client with archive-specific functionality
type Client struct {
	s3Client objectPutter
	config   *Config
}

// NewClient creates a new S3 archive client
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	if !cfg.IsEnabled() {
		return nil, fmt.Errorf("S3 archiving is disabled")
	}

	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	if _, err := s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.BucketName)}); err != nil {
		return nil, fmt.Errorf("bucket %s not accessible: %w", cfg.BucketName, err)
	}

	log.Infof("[Archive] Successfully initialized S3 client for bucket: %s", cfg.BucketName)
	return &Client{s3Client: s3Client, config: cfg}, nil
}

// Archive stores d as a JSON document.
func (c *Client) Archive(ctx context.Context, d Delivery) (*UploadResult, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode archived webhook: %w", err)
	}

	key := ObjectKey(d.WebhookID, d.ReceivedAt)
	_, err = c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.config.BucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata: map[string]string{
			"provider":      d.Provider,
			"upload-source": "payfox-webhook-archive",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.Infof("[Archive] Stored webhook %s at s3://%s/%s", d.WebhookID, c.config.BucketName, key)
	return &UploadResult{BucketName: c.config.BucketName, ObjectKey: key, Size: int64(len(data))}, nil
}
