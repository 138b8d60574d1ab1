// Package cmd provides CLI commands for the sluice binary.
package cmd

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/sluice/lode"
)

// Shared flags for read-only commands.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	// Only valid for commands with a TUI view (render, inspect).
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (render, inspect only)",
	}

	// ConfigFlag points at a sluice.yaml whose values act as flag defaults.
	ConfigFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to sluice.yaml; flags override its values",
	}
)

// ReadOnlyFlags returns the shared flags for all read-only commands.
// Includes --tui so that unsupported commands can provide explicit error messages
// instead of generic "flag not defined" errors.
func ReadOnlyFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// storageFlags are the lode storage flags shared by render and inspect.
func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "storage-dataset", Usage: "Lode dataset ID", Value: lode.DefaultDataset},
		&cli.StringFlag{Name: "storage-backend", Usage: "Storage backend: fs or s3", Value: "fs"},
		&cli.StringFlag{Name: "storage-path", Usage: "Storage path (fs: directory, s3: bucket/prefix)"},
		&cli.StringFlag{Name: "storage-region", Usage: "AWS region for S3 backend"},
		&cli.StringFlag{Name: "storage-endpoint", Usage: "Custom S3 endpoint URL (R2, MinIO)"},
		&cli.BoolFlag{Name: "storage-s3-path-style", Usage: "Force path-style S3 addressing"},
	}
}

// renderFlags are the engine flags shared by render and serve.
func renderFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "id-prefix", Usage: "Prefix for generated element ids"},
		&cli.IntFlag{Name: "progressive-chunk-size", Usage: "Bytes after which completed boundaries stream separately"},
		&cli.IntFlag{Name: "high-water-mark", Usage: "Bytes per flush batch before backpressure (0 disables)"},
		&cli.DurationFlag{Name: "abort-after", Usage: "Abort renders still open after this long (0 disables)"},
	}
}

// adapterFlags are the notification flags shared by render and serve.
func adapterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "adapter", Usage: "Completion notification adapter: webhook or redis"},
		&cli.StringFlag{Name: "adapter-url", Usage: "Webhook endpoint or Redis URL"},
		&cli.StringFlag{Name: "adapter-channel", Usage: "Redis pub/sub channel"},
		&cli.StringFlag{Name: "adapter-latest-key", Usage: "Redis hash recording the latest event per document"},
		&cli.StringSliceFlag{Name: "adapter-header", Usage: "Webhook header as key=value (repeatable)"},
		&cli.StringFlag{Name: "adapter-secret", Usage: "Sign webhook bodies with HMAC-SHA256 using this secret", EnvVars: []string{"SLUICE_WEBHOOK_SECRET"}},
		&cli.DurationFlag{Name: "adapter-timeout", Usage: "Per-attempt publish timeout"},
		&cli.IntFlag{Name: "adapter-retries", Usage: "Publish retry attempts"},
	}
}

// isStderrTTY returns true if stderr is a TTY.
func isStderrTTY() bool {
	return isTTY(os.Stderr)
}

func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
