package assets

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config describes an S3-compatible object store (AWS S3, MinIO, R2).
type S3Config struct {
	Bucket       string
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string

	// PublicBaseURL is prepended to object keys to form the public URL.
	// When empty the virtual-hosted AWS URL is derived from bucket+region.
	PublicBaseURL string
}

// S3Host implements Host over an S3-compatible bucket.
type S3Host struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewS3Host builds the client with static credentials. A custom BaseEndpoint
// points it at non-AWS stores such as MinIO.
func NewS3Host(ctx context.Context, cfg S3Config) (*S3Host, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("assets: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("assets: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if publicURL == "" {
		if cfg.BaseEndpoint != "" {
			publicURL = strings.TrimRight(cfg.BaseEndpoint, "/") + "/" + cfg.Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}

	return &S3Host{client: client, bucket: cfg.Bucket, publicURL: publicURL}, nil
}

// storageKey buckets objects by upload date so host-side listings stay usable.
func storageKey(now time.Time) string {
	return fmt.Sprintf("profiles/%04d/%02d/%02d/%s", now.Year(), now.Month(), now.Day(), uuid.New())
}

var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
}

// AllowedContentType reports whether ct is an accepted picture type.
func AllowedContentType(ct string) bool {
	_, ok := allowedContentTypes[strings.ToLower(strings.TrimSpace(ct))]
	return ok
}

func (h *S3Host) Upload(ctx context.Context, r io.Reader, contentType string) (Stored, error) {
	ext, ok := allowedContentTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return Stored{}, ErrUnsupportedType
	}

	key := storageKey(time.Now().UTC()) + ext

	_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Stored{}, fmt.Errorf("assets: put object: %w", err)
	}

	return Stored{URL: h.publicURL + "/" + key, ID: key}, nil
}

func (h *S3Host) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("assets: delete object: %w", err)
	}
	return nil
}
