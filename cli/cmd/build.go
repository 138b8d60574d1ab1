package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	lodelibrary "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/sluice/adapter"
	redisadapter "github.com/justapithecus/sluice/adapter/redis"
	"github.com/justapithecus/sluice/adapter/webhook"
	sluiceconfig "github.com/justapithecus/sluice/cli/config"
	"github.com/justapithecus/sluice/lode"
)

// storageChoice holds resolved lode storage configuration.
type storageChoice struct {
	dataset     string
	backend     string // "fs" or "s3"
	path        string // fs: directory, s3: bucket/prefix
	region      string
	endpoint    string
	s3PathStyle bool
}

func resolveStorage(c *cli.Context, cfg *sluiceconfig.Config) storageChoice {
	return storageChoice{
		dataset:     resolveString(c, "storage-dataset", configVal(cfg, func(x *sluiceconfig.Config) string { return x.Storage.Dataset })),
		backend:     resolveString(c, "storage-backend", configVal(cfg, func(x *sluiceconfig.Config) string { return x.Storage.Backend })),
		path:        resolveString(c, "storage-path", configVal(cfg, func(x *sluiceconfig.Config) string { return x.Storage.Path })),
		region:      resolveString(c, "storage-region", configVal(cfg, func(x *sluiceconfig.Config) string { return x.Storage.Region })),
		endpoint:    resolveString(c, "storage-endpoint", configVal(cfg, func(x *sluiceconfig.Config) string { return x.Storage.Endpoint })),
		s3PathStyle: resolveBool(c, "storage-s3-path-style", configVal(cfg, func(x *sluiceconfig.Config) bool { return x.Storage.S3PathStyle })),
	}
}

func (s storageChoice) validate() error {
	if s.path == "" {
		return fmt.Errorf("--storage-path is required for lode storage")
	}
	switch s.backend {
	case "fs", "s3":
		return nil
	default:
		return fmt.Errorf("unknown --storage-backend: %s (must be fs or s3)", s.backend)
	}
}

func (s storageChoice) s3Config() lode.S3Config {
	bucket, prefix := lode.ParseS3Path(s.path)
	return lode.S3Config{
		Bucket:       bucket,
		Prefix:       prefix,
		Region:       s.region,
		Endpoint:     s.endpoint,
		UsePathStyle: s.s3PathStyle,
	}
}

// storagePath is the location reported in notifications.
func (s storageChoice) storagePath() string {
	if s.backend == "s3" {
		cfg := s.s3Config()
		return cfg.URI()
	}
	if abs, err := filepath.Abs(s.path); err == nil {
		return abs
	}
	return s.path
}

// buildStorageClient creates the lode client for one render.
func buildStorageClient(ctx context.Context, s storageChoice, cfg lode.Config) (lode.Client, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	cfg.Dataset = s.dataset

	var (
		client *lode.LodeClient
		err    error
	)
	if s.backend == "s3" {
		client, err = lode.NewLodeS3Client(ctx, cfg, s.s3Config())
	} else {
		client, err = lode.NewLodeClient(cfg, s.path)
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

// buildReadDataset creates a Lode Dataset for reading.
func buildReadDataset(ctx context.Context, s storageChoice) (lodelibrary.Dataset, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	if s.backend == "s3" {
		return lode.NewReadDatasetS3(ctx, s.dataset, s.s3Config())
	}
	return lode.NewReadDatasetFS(s.dataset, s.path)
}

// adapterChoice holds resolved notification configuration.
type adapterChoice struct {
	kind      string
	url       string
	channel   string
	latestKey string
	headers   map[string]string
	secret    string
	timeout   time.Duration
	retries   *int
}

func resolveAdapter(c *cli.Context, cfg *sluiceconfig.Config) (adapterChoice, error) {
	var ac sluiceconfig.AdapterConfig
	if cfg != nil {
		ac = cfg.Adapter
	}
	headers, err := resolveHeaders(c, "adapter-header", ac.Headers)
	if err != nil {
		return adapterChoice{}, err
	}
	choice := adapterChoice{
		kind:      resolveString(c, "adapter", ac.Type),
		url:       resolveString(c, "adapter-url", ac.URL),
		channel:   resolveString(c, "adapter-channel", ac.Channel),
		latestKey: resolveString(c, "adapter-latest-key", ac.LatestKey),
		headers:   headers,
		secret:    resolveString(c, "adapter-secret", ac.Secret),
		timeout:   resolveDuration(c, "adapter-timeout", ac.Timeout.Duration),
		retries:   ac.Retries,
	}
	if c.IsSet("adapter-retries") {
		n := c.Int("adapter-retries")
		choice.retries = &n
	}
	return choice, nil
}

// retriesOr returns the configured retries or def.
func (a adapterChoice) retriesOr(def int) int {
	if a.retries == nil {
		return def
	}
	return *a.retries
}

// buildAdapter creates the notification adapter. It returns nil when no
// adapter is configured.
func buildAdapter(a adapterChoice) (adapter.Adapter, error) {
	switch a.kind {
	case "":
		if a.url != "" {
			return nil, fmt.Errorf("--adapter-url requires --adapter (webhook or redis)")
		}
		return nil, nil
	case "webhook":
		wh, err := webhook.New(webhook.Config{
			URL:     a.url,
			Headers: a.headers,
			Secret:  a.secret,
			Timeout: a.timeout,
			Retries: a.retriesOr(webhook.DefaultRetries),
		})
		if err != nil {
			return nil, err
		}
		return wh, nil
	case "redis":
		rd, err := redisadapter.New(redisadapter.Config{
			URL:       a.url,
			Channel:   a.channel,
			LatestKey: a.latestKey,
			Timeout:   a.timeout,
			Retries:   a.retriesOr(redisadapter.DefaultRetries),
		})
		if err != nil {
			return nil, err
		}
		return rd, nil
	default:
		return nil, fmt.Errorf("unknown --adapter: %s (must be webhook or redis)", a.kind)
	}
}
