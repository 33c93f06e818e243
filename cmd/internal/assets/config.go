package assets

import (
	"context"
	"os"
	"strings"
)

// LoadS3ConfigFromEnv reads the object-store settings. The host is optional;
// an empty bucket means uploads are disabled.
//
// Variables:
//   - NOTENEST_S3_BUCKET
//   - NOTENEST_S3_REGION
//   - NOTENEST_S3_ACCESS_KEY
//   - NOTENEST_S3_SECRET_KEY
//   - NOTENEST_S3_BASE_ENDPOINT (MinIO and friends)
//   - NOTENEST_S3_PUBLIC_BASE_URL
func LoadS3ConfigFromEnv() S3Config {
	return S3Config{
		Bucket:        strings.TrimSpace(os.Getenv("NOTENEST_S3_BUCKET")),
		Region:        strings.TrimSpace(os.Getenv("NOTENEST_S3_REGION")),
		AccessKey:     os.Getenv("NOTENEST_S3_ACCESS_KEY"),
		SecretKey:     os.Getenv("NOTENEST_S3_SECRET_KEY"),
		BaseEndpoint:  strings.TrimSpace(os.Getenv("NOTENEST_S3_BASE_ENDPOINT")),
		PublicBaseURL: strings.TrimSpace(os.Getenv("NOTENEST_S3_PUBLIC_BASE_URL")),
	}
}

// HostFromEnv returns an S3Host when a bucket is configured, NoopHost otherwise.
func HostFromEnv(ctx context.Context) (Host, error) {
	cfg := LoadS3ConfigFromEnv()
	if cfg.Bucket == "" {
		return NoopHost{}, nil
	}
	return NewS3Host(ctx, cfg)
}
