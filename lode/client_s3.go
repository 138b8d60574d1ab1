package lode

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"
)

// S3Config locates a lode dataset in S3 or an S3-compatible store.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. Cloudflare R2, MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not subdomain).
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("S3 endpoint %q must be an absolute URL", c.Endpoint)
		}
	}
	return nil
}

// URI is the s3:// location of the configured prefix.
func (c *S3Config) URI() string {
	return "s3://" + path.Join(c.Bucket, c.Prefix)
}

// ParseS3Path splits "bucket/prefix" or "bucket". Leading "s3://" and
// trailing slashes are ignored.
func ParseS3Path(p string) (bucket, prefix string) {
	p = strings.Trim(strings.TrimPrefix(p, "s3://"), "/")
	bucket, prefix, _ = strings.Cut(p, "/")
	return bucket, prefix
}

func (c *S3Config) loadOptions() []func(*config.LoadOptions) error {
	if c.Region == "" {
		return nil
	}
	return []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
}

func (c *S3Config) clientOptions(o *s3.Options) {
	if c.Endpoint != "" {
		o.BaseEndpoint = aws.String(c.Endpoint)
	}
	o.UsePathStyle = c.UsePathStyle
}

// NewS3Factory builds a Lode store factory over S3 using the AWS default
// credential chain.
func NewS3Factory(ctx context.Context, s3cfg S3Config) (lode.StoreFactory, error) {
	if err := s3cfg.Validate(); err != nil {
		return nil, err
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, s3cfg.loadOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	client := s3.NewFromConfig(awsConfig, s3cfg.clientOptions)
	storeCfg := lodes3.Config{Bucket: s3cfg.Bucket, Prefix: s3cfg.Prefix}

	return func() (lode.Store, error) {
		return lodes3.New(client, storeCfg)
	}, nil
}

// NewLodeS3Client creates a new Lode client with S3 storage backend.
func NewLodeS3Client(ctx context.Context, cfg Config, s3cfg S3Config) (*LodeClient, error) {
	factory, err := NewS3Factory(ctx, s3cfg)
	if err != nil {
		return nil, WrapInitError(err, cfg.Dataset)
	}
	return NewLodeClientWithFactory(cfg, factory)
}
