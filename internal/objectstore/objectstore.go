// Package objectstore uploads reel media to an S3-compatible bucket and
// derives the public URLs handed back to clients.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader stores a media object under a bucket key.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
}

// S3API is the subset of the S3 client used by the store.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Config describes the destination bucket and the public base URL that
// serves its contents (a CDN distribution or the bucket website endpoint).
type Config struct {
	Bucket        string
	PublicBaseURL string
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Bucket) == "" {
		return fmt.Errorf("objectstore: bucket is required")
	}
	if strings.TrimSpace(c.PublicBaseURL) == "" {
		return fmt.Errorf("objectstore: public base URL is required")
	}
	return nil
}

// Store uploads reel media via the AWS S3 client.
type Store struct {
	client S3API
	cfg    Config
}

// New wraps the provided S3 client for the configured bucket.
func New(client S3API, cfg Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("objectstore: s3 client is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	return &Store{client: client, cfg: cfg}, nil
}

// Upload streams the object body to the bucket under key.
func (s *Store) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("objectstore: object key is required")
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("upload %s to s3://%s: %w", key, s.cfg.Bucket, err)
	}
	return nil
}

// PublicURL returns the URL that serves the object at key directly.
func (s *Store) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", s.cfg.PublicBaseURL, strings.TrimLeft(key, "/"))
}

// Bucket reports the destination bucket name.
func (s *Store) Bucket() string { return s.cfg.Bucket }
