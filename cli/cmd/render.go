package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	sluiceconfig "github.com/justapithecus/sluice/cli/config"
	"github.com/justapithecus/sluice/cli/reader"
	"github.com/justapithecus/sluice/cli/render"
	"github.com/justapithecus/sluice/cli/tui"
	"github.com/justapithecus/sluice/destination"
	"github.com/justapithecus/sluice/engine"
	"github.com/justapithecus/sluice/format/html"
	"github.com/justapithecus/sluice/ipc"
	"github.com/justapithecus/sluice/iox"
	"github.com/justapithecus/sluice/lode"
	"github.com/justapithecus/sluice/log"
	"github.com/justapithecus/sluice/metrics"
	"github.com/justapithecus/sluice/runtime"
	"github.com/justapithecus/sluice/tree"
	"github.com/justapithecus/sluice/types"
)

// Exit codes of sluice render.
const (
	exitSuccess     = runtime.ExitCodeSuccess
	exitRenderError = runtime.ExitCodeRenderError
	exitAborted     = runtime.ExitCodeAborted
	exitConfigError = runtime.ExitCodeConfigError
)

// RenderCommand returns the render command.
func RenderCommand() *cli.Command {
	flags := []cli.Flag{
		ConfigFlag,
		&cli.StringFlag{Name: "request-id", Usage: "Request ID (default: generated UUIDv7)"},
		&cli.IntFlag{Name: "attempt", Usage: "Attempt number (starts at 1)", Value: 1},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output: stdout, file, frames, lode", Value: sluiceconfig.OutputStdout},
		&cli.StringFlag{Name: "output-path", Usage: "Output file for file and frames output (\"-\" for stdout)"},
		&cli.StringFlag{Name: "report", Usage: "Write a JSON render report to this path (\"-\" for stderr)"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Suppress the render summary"},
		&cli.BoolFlag{Name: "debug", Usage: "Log engine debug events"},
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
	flags = append(flags, renderFlags()...)
	flags = append(flags, storageFlags()...)
	flags = append(flags, adapterFlags()...)

	return &cli.Command{
		Name:      "render",
		Usage:     "Render a document through the streaming engine",
		ArgsUsage: "<document.yaml>",
		Flags:     flags,
		Action:    renderAction,
	}
}

// renderChoice holds the resolved render configuration.
type renderChoice struct {
	document             string
	output               string
	outputPath           string
	idPrefix             string
	progressiveChunkSize int
	highWaterMark        int
	abortAfter           time.Duration
}

func resolveRender(c *cli.Context, cfg *sluiceconfig.Config) renderChoice {
	var rc sluiceconfig.RenderConfig
	var oc sluiceconfig.OutputConfig
	if cfg != nil {
		rc, oc = cfg.Render, cfg.Output
	}
	return renderChoice{
		document:             c.Args().First(),
		output:               resolveString(c, "output", oc.Kind),
		outputPath:           resolveString(c, "output-path", oc.Path),
		idPrefix:             resolveString(c, "id-prefix", rc.IDPrefix),
		progressiveChunkSize: resolveInt(c, "progressive-chunk-size", rc.ProgressiveChunkSize),
		highWaterMark:        resolveInt(c, "high-water-mark", rc.HighWaterMark),
		abortAfter:           resolveDuration(c, "abort-after", rc.AbortAfter.Duration),
	}
}

func (r renderChoice) validate() error {
	if r.document == "" {
		return fmt.Errorf("document path required")
	}
	switch r.output {
	case sluiceconfig.OutputStdout, sluiceconfig.OutputLode:
	case sluiceconfig.OutputFile, sluiceconfig.OutputFrames:
		if r.outputPath == "" {
			return fmt.Errorf("--output-path is required for %s output", r.output)
		}
	default:
		return fmt.Errorf("unknown --output: %s (must be stdout, file, frames or lode)", r.output)
	}
	if r.progressiveChunkSize < 0 || r.highWaterMark < 0 || r.abortAfter < 0 {
		return fmt.Errorf("--progressive-chunk-size, --high-water-mark and --abort-after must be >= 0")
	}
	return nil
}

// htmlOnStdout reports whether rendered bytes go to stdout, in which case
// the summary moves to stderr.
func (r renderChoice) htmlOnStdout() bool {
	switch r.output {
	case sluiceconfig.OutputStdout:
		return true
	case sluiceconfig.OutputFile, sluiceconfig.OutputFrames:
		return r.outputPath == "-"
	default:
		return false
	}
}

func renderAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	choice := resolveRender(c, cfg)
	if err := choice.validate(); err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	storage := resolveStorage(c, cfg)
	adapterCfg, err := resolveAdapter(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	if c.Bool("tui") && !tui.IsTUISupported(tui.ViewRender) {
		return cli.Exit("--tui is not supported for render", exitConfigError)
	}

	doc, err := tree.Load(choice.document, nil)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	root, err := doc.Build()
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	meta := &types.RequestMeta{
		RequestID: c.String("request-id"),
		Document:  choice.document,
		Attempt:   c.Int("attempt"),
	}
	if meta.RequestID == "" {
		meta.RequestID = engine.NewRequestID()
	}
	if err := meta.Validate(); err != nil {
		return cli.Exit(fmt.Sprintf("invalid request: %v", err), exitConfigError)
	}

	// Signal handling: SIGINT/SIGTERM abort the render.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startTime := time.Now()
	storageBackend := ""
	if choice.output == sluiceconfig.OutputLode {
		storageBackend = storage.backend
	}
	collector := metrics.NewCollector("html", choice.output, storageBackend, meta.RequestID)
	logger := log.NewLogger(meta)
	if c.Bool("debug") {
		logger = log.NewDebugLogger(meta)
	}
	defer func() { _ = logger.Sync() }()

	lodeCfg := lode.Config{
		Dataset:   storage.dataset,
		Document:  choice.document,
		Day:       lode.DeriveDay(startTime),
		RequestID: meta.RequestID,
	}

	var (
		dest        engine.Destination
		client      lode.Client
		storagePath string
	)
	switch choice.output {
	case sluiceconfig.OutputLode:
		client, err = buildStorageClient(ctx, storage, lodeCfg)
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to create storage client: %v", err), exitConfigError)
		}
		defer iox.DiscardClose(client)
		dest = lode.NewDestination(ctx, client, lodeCfg, collector)
		storagePath = storage.storagePath()
	default:
		w, closer, err := openOutput(choice)
		if err != nil {
			return cli.Exit(err.Error(), exitConfigError)
		}
		if choice.output == sluiceconfig.OutputFrames {
			frames := ipc.NewFrameWriter(w, meta.RequestID, collector)
			if closer != nil {
				defer iox.DiscardClose(closer)
			}
			dest = frames
		} else {
			dest = destination.NewWriter(w, destination.WriterOptions{
				HighWaterMark: choice.highWaterMark,
				Collector:     collector,
				Closer:        closer,
			})
		}
	}

	pub, err := buildAdapter(adapterCfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create adapter: %v", err), exitConfigError)
	}
	if pub != nil {
		defer iox.DiscardClose(pub)
	}

	orchestrator, err := runtime.NewRenderOrchestrator(&runtime.RenderConfig{
		Root:                 root,
		Meta:                 meta,
		Destination:          dest,
		Format:               html.New(html.Options{IDPrefix: choice.idPrefix}),
		ProgressiveChunkSize: choice.progressiveChunkSize,
		AbortAfter:           choice.abortAfter,
		Storage:              client,
		StorageConfig:        lodeCfg,
		StoragePath:          storagePath,
		Adapter:              pub,
		Collector:            collector,
		Logger:               logger,
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create orchestrator: %v", err), exitConfigError)
	}

	result, err := orchestrator.Execute(ctx)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	exitCode := runtime.ResultExitCode(result)

	if path := c.String("report"); path != "" {
		report := runtime.BuildRenderReport(result, choice.output, exitCode)
		if err := runtime.WriteRenderReport(report, path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	if !c.Bool("quiet") {
		if err := printRenderResult(c, choice, result); err != nil {
			return err
		}
	}

	return cli.Exit("", exitCode)
}

// openOutput opens the file or stdout for file and frames output. The
// returned closer is nil for stdout.
func openOutput(choice renderChoice) (io.Writer, io.Closer, error) {
	if choice.output == sluiceconfig.OutputStdout || choice.outputPath == "-" {
		return os.Stdout, nil, nil
	}
	f, err := os.Create(choice.outputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot create output %s: %w", choice.outputPath, err)
	}
	return f, f, nil
}

func printRenderResult(c *cli.Context, choice renderChoice, result *runtime.RenderResult) error {
	summary := renderSummary(choice, result)

	out := os.Stdout
	if choice.htmlOnStdout() {
		out = os.Stderr
	}
	r, err := render.NewRendererTo(c, out)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return r.RenderTUI(tui.ViewRender, summary)
	}
	if choice.htmlOnStdout() {
		// Separate the summary from rendered output on a shared terminal.
		if isStderrTTY() {
			fmt.Fprintln(os.Stderr)
		}
	}
	return r.Render(summary)
}

func renderSummary(choice renderChoice, result *runtime.RenderResult) *reader.RenderSummary {
	output := choice.output
	if choice.outputPath != "" && choice.outputPath != "-" {
		output += ":" + choice.outputPath
	}
	return &reader.RenderSummary{
		RequestID:      result.Meta.RequestID,
		Document:       result.Meta.Document,
		Status:         string(result.Outcome.Status),
		Message:        result.Outcome.Message,
		ClientRendered: int64(result.Outcome.ClientRendered),
		ReportedErrors: int64(result.Outcome.ReportedErrors),
		Chunks:         result.Chunks,
		BytesWritten:   result.Metrics.BytesWritten,
		TasksCreated:   result.Metrics.TasksCreated,
		TasksAborted:   result.Metrics.TasksAborted,
		Output:         output,
		Duration:       result.Duration.Round(time.Millisecond).String(),
		CompletedAt:    result.Finished.UTC(),
	}
}
