package s3

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"

	"github.com/FeliksML/web-cellar-sub000/internal/storage"
)

// Config holds the bucket and connection settings. Endpoint is set for
// S3-compatible services such as MinIO, which also need path-style URLs.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
}

// ObjectAPI is the part of the S3 client the storage uses.
type ObjectAPI interface {
	PutObjectWithContext(ctx aws.Context, input *awss3.PutObjectInput, opts ...request.Option) (*awss3.PutObjectOutput, error)
	DeleteObjectWithContext(ctx aws.Context, input *awss3.DeleteObjectInput, opts ...request.Option) (*awss3.DeleteObjectOutput, error)
}

// Storage implements storage.Storage on an S3 bucket.
type Storage struct {
	client    ObjectAPI
	bucket    string
	publicURL string
	logger    *slog.Logger
}

// New opens an S3 session from cfg.
func New(cfg Config, logger *slog.Logger) (*Storage, error) {
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create s3 session: %w", err)
	}
	return NewWithClient(awss3.New(sess), cfg, logger), nil
}

// NewWithClient wraps an existing client. Without a PublicURL, object URLs
// are built from the endpoint or the regional bucket host.
func NewWithClient(client ObjectAPI, cfg Config, logger *slog.Logger) *Storage {
	publicURL := cfg.PublicURL
	if publicURL == "" {
		if cfg.Endpoint != "" {
			publicURL = storage.PublicURL(cfg.Endpoint, cfg.Bucket)
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	return &Storage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
		logger:    logger,
	}
}

// Upload puts the object with a public-read ACL.
func (s *Storage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	body, ok := input.Data.(io.ReadSeeker)
	if !ok {
		body = aws.ReadSeekCloser(input.Data)
	}

	put := &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(input.Key),
		Body:        body,
		ContentType: aws.String(input.ContentType),
		ACL:         aws.String(awss3.ObjectCannedACLPublicRead),
	}
	if input.Size > 0 {
		put.ContentLength = aws.Int64(input.Size)
	}

	if _, err := s.client.PutObjectWithContext(ctx, put); err != nil {
		return nil, fmt.Errorf("put object %s: %w", input.Key, err)
	}

	s.logger.InfoContext(ctx, "image uploaded",
		slog.String("bucket", s.bucket),
		slog.String("key", input.Key),
	)
	return &storage.UploadResult{
		Key: input.Key,
		URL: storage.PublicURL(s.publicURL, input.Key),
	}, nil
}

// Delete removes the object. S3 reports success for missing keys.
func (s *Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
