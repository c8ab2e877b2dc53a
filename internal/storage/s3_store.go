package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// s3API is the subset of *s3.Client used by S3Store.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store implements ObjectStore on AWS S3 or an S3 compatible endpoint.
type S3Store struct {
	client        s3API
	bucket        string
	region        string
	endpoint      string
	publicBaseURL string
}

// S3StoreConfig holds configuration for S3Store.
type S3StoreConfig struct {
	Bucket        string
	Region        string
	Endpoint      string // Optional custom endpoint (MinIO, LocalStack, ...)
	PublicBaseURL string // Optional CDN or website endpoint
}

// NewS3Store creates a new S3-backed object store.
func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Store(client, cfg), nil
}

func newS3Store(client s3API, cfg S3StoreConfig) *S3Store {
	return &S3Store{
		client:        client,
		bucket:        cfg.Bucket,
		region:        cfg.Region,
		endpoint:      strings.TrimSuffix(cfg.Endpoint, "/"),
		publicBaseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}
}

// Put uploads with If-None-Match so an existing key is never overwritten.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=3600"),
		IfNoneMatch:  aws.String("*"),
	})
	if err != nil {
		return classifyS3Error(s.bucket, key, err)
	}
	return nil
}

func (s *S3Store) PublicURL(key string) string {
	switch {
	case s.publicBaseURL != "":
		return s.publicBaseURL + "/" + key
	case s.endpoint != "":
		return s.endpoint + "/" + s.bucket + "/" + key
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
	}
}

func classifyS3Error(bucket, key string, err error) error {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return fmt.Errorf("s3 put failed: %w", err)
	}
	switch ae.ErrorCode() {
	case "NoSuchBucket":
		return newError(CodeBucketNotFound, err, "Bucket not found: %s", bucket)
	case "EntityTooLarge":
		return newError(CodeTooLarge, err, "The object exceeded the maximum allowed size")
	case "PreconditionFailed", "ConditionalRequestConflict":
		return newError(CodeDuplicate, err, "The resource already exists (duplicate): %s", key)
	case "InvalidArgument":
		if mentionsContentType(ae.ErrorMessage()) {
			return newError(CodeUnsupportedType, err, "Unsupported content type for %s", key)
		}
		return fmt.Errorf("s3 put failed: %w", err)
	default:
		return fmt.Errorf("s3 put failed: %w", err)
	}
}
