package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/sluice/adapter"
	sluiceconfig "github.com/justapithecus/sluice/cli/config"
	"github.com/justapithecus/sluice/iox"
	"github.com/justapithecus/sluice/log"
	"github.com/justapithecus/sluice/server"
	"github.com/justapithecus/sluice/types"
)

// DefaultAddr is the listen address of sluice serve.
const DefaultAddr = ":8080"

// ServeCommand returns the serve command.
func ServeCommand() *cli.Command {
	flags := []cli.Flag{
		ConfigFlag,
		&cli.StringFlag{Name: "addr", Usage: "Listen address", Value: DefaultAddr},
		&cli.StringFlag{Name: "root", Usage: "Document root directory"},
		&cli.BoolFlag{Name: "debug", Usage: "Log engine debug events"},
	}
	flags = append(flags, renderFlags()...)
	flags = append(flags, adapterFlags()...)

	return &cli.Command{
		Name:   "serve",
		Usage:  "Stream documents under a root directory over HTTP",
		Flags:  flags,
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	var rc sluiceconfig.RenderConfig
	var sc sluiceconfig.ServerConfig
	if cfg != nil {
		rc, sc = cfg.Render, cfg.Server
	}
	addr := resolveString(c, "addr", sc.Addr)
	root := resolveString(c, "root", sc.Root)
	if root == "" {
		return cli.Exit("--root is required", exitConfigError)
	}

	adapterCfg, err := resolveAdapter(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	pub, err := buildAdapter(adapterCfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create adapter: %v", err), exitConfigError)
	}
	if pub != nil {
		defer iox.DiscardClose(pub)
	}

	meta := &types.RequestMeta{RequestID: "server", Attempt: 1}
	logger := log.NewLogger(meta)
	if c.Bool("debug") {
		logger = log.NewDebugLogger(meta)
	}
	defer func() { _ = logger.Sync() }()

	srv, err := server.New(server.Config{
		Root:                 root,
		ProgressiveChunkSize: resolveInt(c, "progressive-chunk-size", rc.ProgressiveChunkSize),
		IDPrefix:             resolveString(c, "id-prefix", rc.IDPrefix),
		HighWaterMark:        resolveInt(c, "high-water-mark", rc.HighWaterMark),
		AbortAfter:           resolveDuration(c, "abort-after", rc.AbortAfter.Duration),
		Logger:               logger,
		OnComplete:           notifyOnComplete(pub, logger),
	})
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	defer iox.DiscardClose(srv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// notifyOnComplete publishes a render-completed event for every finished
// request. It returns nil when there is no adapter.
func notifyOnComplete(pub adapter.Adapter, logger *log.Logger) func(context.Context, *server.Result) {
	if pub == nil {
		return nil
	}
	return func(ctx context.Context, res *server.Result) {
		event := adapter.NewRenderCompletedEvent(res.Meta, res.Outcome, res.Metrics.BytesWritten, "", res.Started, res.Finished)
		if err := pub.Publish(ctx, event); err != nil {
			logger.Warn("notification publish failed", map[string]any{
				"request_id": res.Meta.RequestID,
				"error":      err.Error(),
			})
		}
	}
}
