// Package storage provides the S3-compatible object store gateway the
// service hands uploads through (DigitalOcean Spaces, MinIO, AWS S3).
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/luisedmundo354/latex-render-api/internal/observability"
)

// Client wraps an S3 client and presigner bound to one bucket.
type Client struct {
	logger    *observability.Logger
	s3        *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

// Config holds object store connection settings.
type Config struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	UsePathStyle bool
}

// New creates a storage client for an S3-compatible endpoint.
func New(ctx context.Context, logger *observability.Logger, cfg Config) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = cfg.UsePathStyle
	})

	logger.Debug().
		Str("endpoint", cfg.Endpoint).
		Str("region", cfg.Region).
		Str("bucket", cfg.Bucket).
		Msg("Storage client initialised")

	return &Client{
		logger:    logger,
		s3:        client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
	}, nil
}

// PresignPut returns a time-limited URL that uploads one object. The
// signature pins the Content-Type header, so the uploader must send the
// same value.
func (c *Client) PresignPut(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	req, err := c.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}

	c.logger.Debug().
		Str("key", key).
		Dur("expires", expires).
		Msg("Presigned upload URL")

	return req.URL, nil
}

// Fetch downloads an object's bytes.
func (c *Client) Fetch(ctx context.Context, key string) ([]byte, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch object %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}

	c.logger.Debug().
		Str("key", key).
		Int("bytes", len(data)).
		Msg("Fetched object")

	return data, nil
}

// Delete removes an object. Callers treat failures as advisory; uploads are
// cleaned up opportunistically.
func (c *Client) Delete(ctx context.Context, key string) error {
	if _, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}

	c.logger.Debug().Str("key", key).Msg("Deleted object")
	return nil
}
