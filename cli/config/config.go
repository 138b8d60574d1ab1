package config

import (
	"errors"
	"fmt"
	"time"
)

// Output kinds.
const (
	OutputStdout = "stdout"
	OutputFile   = "file"
	OutputFrames = "frames"
	OutputLode   = "lode"
)

// Config represents a sluice.yaml configuration file.
// All values are optional and act as defaults for sluice flags.
// CLI flags always override config values.
type Config struct {
	Render  RenderConfig  `yaml:"render"`
	Output  OutputConfig  `yaml:"output"`
	Storage StorageConfig `yaml:"storage"`
	Adapter AdapterConfig `yaml:"adapter"`
	Server  ServerConfig  `yaml:"server"`
}

// RenderConfig holds engine defaults.
type RenderConfig struct {
	ProgressiveChunkSize int      `yaml:"progressive_chunk_size"`
	IDPrefix             string   `yaml:"id_prefix"`
	HighWaterMark        int      `yaml:"high_water_mark"`
	AbortAfter           Duration `yaml:"abort_after"`
}

// OutputConfig selects where rendered bytes go.
type OutputConfig struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
}

// StorageConfig holds lode storage defaults from the config file.
type StorageConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds render-completed notification defaults.
type AdapterConfig struct {
	Type      string            `yaml:"type"`
	URL       string            `yaml:"url"`
	Channel   string            `yaml:"channel,omitempty"`
	LatestKey string            `yaml:"latest_key,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty"`
	Secret    string            `yaml:"secret,omitempty"`
	Timeout   Duration          `yaml:"timeout,omitempty"`
	Retries   *int              `yaml:"retries,omitempty"`
}

// ServerConfig holds sluice serve defaults.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	Root string `yaml:"root"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks enumerations and ranges. Empty values are valid; they
// defer to flag defaults.
func (c *Config) Validate() error {
	var errs []error

	if c.Render.ProgressiveChunkSize < 0 {
		errs = append(errs, fmt.Errorf("render.progressive_chunk_size must be >= 0, got %d", c.Render.ProgressiveChunkSize))
	}
	if c.Render.HighWaterMark < 0 {
		errs = append(errs, fmt.Errorf("render.high_water_mark must be >= 0, got %d", c.Render.HighWaterMark))
	}
	if c.Render.AbortAfter.Duration < 0 {
		errs = append(errs, fmt.Errorf("render.abort_after must be >= 0, got %s", c.Render.AbortAfter.Duration))
	}

	switch c.Output.Kind {
	case "", OutputStdout, OutputLode:
	case OutputFile, OutputFrames:
		if c.Output.Path == "" {
			errs = append(errs, fmt.Errorf("output.path is required for output kind %q", c.Output.Kind))
		}
	default:
		errs = append(errs, fmt.Errorf("output.kind must be one of stdout, file, frames, lode; got %q", c.Output.Kind))
	}

	switch c.Storage.Backend {
	case "", "fs", "s3":
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be fs or s3, got %q", c.Storage.Backend))
	}
	if c.Output.Kind == OutputLode && c.Storage.Path == "" {
		errs = append(errs, errors.New("storage.path is required for lode output"))
	}

	switch c.Adapter.Type {
	case "":
	case "webhook", "redis":
		if c.Adapter.URL == "" {
			errs = append(errs, fmt.Errorf("adapter.url is required for adapter type %q", c.Adapter.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("adapter.type must be webhook or redis, got %q", c.Adapter.Type))
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, fmt.Errorf("adapter.retries must be >= 0, got %d", *c.Adapter.Retries))
	}

	return errors.Join(errs...)
}
