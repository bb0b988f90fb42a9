// Package objectstore puts uploaded files into S3-compatible buckets and resolves their public URLs.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// cacheControl matches the browser cache lifetime the portal serves evidence with.
const cacheControl = "max-age=3600"

// Putter is the subset of the S3 client used for uploads.
type Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures bucket naming and URL resolution.
type Options struct {
	Region        string
	Endpoint      string // e.g. http://localstack:4566; enables path-style addressing
	BucketPrefix  string
	PublicBaseURL string
}

// S3 stores objects with the AWS SDK.
type S3 struct {
	client Putter
	opts   Options
}

// New loads the default AWS configuration and builds an S3-backed store.
func New(ctx context.Context, opts Options) (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true // localstack/minio friendliness
		}
	})
	return NewWithClient(client, opts), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client Putter, opts Options) *S3 {
	opts.Endpoint = strings.TrimRight(opts.Endpoint, "/")
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	return &S3{client: client, opts: opts}
}

// Put uploads body under bucket/key without overwriting an existing object and returns the stored path.
func (s *S3) Put(ctx context.Context, bucket, key, contentType string, body io.Reader, size int64) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName(bucket)),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		CacheControl:  aws.String(cacheControl),
		IfNoneMatch:   aws.String("*"),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}
	return key, nil
}

// PublicURL returns the publicly reachable URL for an object path.
func (s *S3) PublicURL(bucket, path string) string {
	name := s.bucketName(bucket)
	escaped := (&url.URL{Path: path}).EscapedPath()
	switch {
	case s.opts.PublicBaseURL != "":
		return fmt.Sprintf("%s/%s/%s", s.opts.PublicBaseURL, name, escaped)
	case s.opts.Endpoint != "":
		return fmt.Sprintf("%s/%s/%s", s.opts.Endpoint, name, escaped)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", name, s.opts.Region, escaped)
	}
}

func (s *S3) bucketName(bucket string) string {
	return s.opts.BucketPrefix + bucket
}
