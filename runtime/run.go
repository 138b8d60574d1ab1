// Package runtime drives one render end to end: it runs an engine request
// into its destination, then persists the outcome and publishes the
// render-completed notification.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justapithecus/sluice/adapter"
	"github.com/justapithecus/sluice/engine"
	"github.com/justapithecus/sluice/format/html"
	"github.com/justapithecus/sluice/lode"
	"github.com/justapithecus/sluice/log"
	"github.com/justapithecus/sluice/metrics"
	"github.com/justapithecus/sluice/types"
)

// Timeouts applied after the request has closed. Both use a context
// detached from the caller's cancellation.
const (
	// DefaultAbortGrace bounds the wait for a close after an abort.
	DefaultAbortGrace = 5 * time.Second
	// PersistTimeout bounds the outcome record write.
	PersistTimeout = 30 * time.Second
	// PublishTimeout bounds the adapter publish, retries included.
	PublishTimeout = 60 * time.Second
)

// RenderConfig configures a single render.
type RenderConfig struct {
	// Root is the node tree to render.
	Root types.Node
	// Meta is the request identity.
	Meta *types.RequestMeta
	// Destination receives the rendered bytes.
	Destination engine.Destination
	// Format defaults to HTML with no id prefix.
	Format engine.Format
	// ProgressiveChunkSize is passed to the engine. Zero uses its default.
	ProgressiveChunkSize int
	// AbortAfter aborts the request if it is still open after this long.
	// Zero disables the timer.
	AbortAfter time.Duration
	// AbortGrace defaults to DefaultAbortGrace.
	AbortGrace time.Duration
	// Storage receives the outcome record. Optional.
	Storage lode.Client
	// StorageConfig is the partition identity of the outcome record.
	StorageConfig lode.Config
	// StoragePath is reported in the notification. Optional.
	StoragePath string
	// Adapter publishes the render-completed event. Optional.
	Adapter adapter.Adapter
	// Collector is the metrics collector for this render.
	// If nil, no metrics are recorded (all Collector methods are nil-safe).
	Collector *metrics.Collector
	// Logger defaults to a request logger on stderr.
	Logger *log.Logger
}

// RenderResult represents the result of a render.
type RenderResult struct {
	// Meta is the request identity.
	Meta *types.RequestMeta
	// Outcome is the outcome reported by the engine.
	Outcome types.RenderOutcome
	// Started and Finished bracket the render, excluding persistence.
	Started  time.Time
	Finished time.Time
	// Duration is Finished minus Started.
	Duration time.Duration
	// Metrics is the collector snapshot taken once the request closed.
	Metrics metrics.Snapshot
	// Chunks is the number of chunks the destination stored, when it
	// counts them.
	Chunks int64
	// DestinationErr is the first write error of the destination.
	DestinationErr error
	// StorageErr is the outcome record write error.
	StorageErr error
	// PublishErr is the adapter publish error.
	PublishErr error
}

// chunkCounter is implemented by destinations that store discrete chunks.
type chunkCounter interface {
	Chunks() int64
}

// errReporter is implemented by destinations that remember write errors.
type errReporter interface {
	Err() error
}

// RenderOrchestrator orchestrates a single render.
type RenderOrchestrator struct {
	config *RenderConfig
	logger *log.Logger
}

// NewRenderOrchestrator creates a new render orchestrator.
// Returns error if the configuration is incomplete.
func NewRenderOrchestrator(config *RenderConfig) (*RenderOrchestrator, error) {
	if config.Meta == nil {
		return nil, errors.New("invalid request metadata: missing")
	}
	if err := config.Meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request metadata: %w", err)
	}
	if config.Root == nil {
		return nil, fmt.Errorf("render %s: root node is required", config.Meta.RequestID)
	}
	if config.Destination == nil {
		return nil, fmt.Errorf("render %s: destination is required", config.Meta.RequestID)
	}
	if config.Format == nil {
		config.Format = html.New(html.Options{})
	}
	if config.AbortGrace <= 0 {
		config.AbortGrace = DefaultAbortGrace
	}

	logger := config.Logger
	if logger == nil {
		logger = log.NewLogger(config.Meta)
	}

	return &RenderOrchestrator{
		config: config,
		logger: logger,
	}, nil
}

// Execute executes the render end-to-end.
//
// Execution flow:
//  1. Run the engine request until it closes (ctx cancellation aborts it)
//  2. Write the outcome record, if storage is configured
//  3. Publish the notification, if an adapter is configured
//  4. Return result
//
// Persistence and publish failures are reported in the result; they never
// change the render outcome.
func (r *RenderOrchestrator) Execute(ctx context.Context) (*RenderResult, error) {
	cfg := r.config
	started := time.Now()

	r.logger.Info("starting render", map[string]any{
		"document": cfg.Meta.Document,
		"attempt":  cfg.Meta.Attempt,
	})

	req := engine.NewRequest(cfg.Root, guardDestination(cfg.Destination), cfg.Format, engine.Options{
		RequestID:            cfg.Meta.RequestID,
		ProgressiveChunkSize: cfg.ProgressiveChunkSize,
		Scheduler:            engine.NewTrampoline(),
		Logger:               r.logger,
		Collector:            cfg.Collector,
		OnError: func(err error) {
			r.logger.Warn("render error", map[string]any{"error": err.Error()})
		},
	})

	if cfg.AbortAfter > 0 {
		stop := req.AbortAfter(cfg.AbortAfter)
		defer stop()
	}

	outcome, err := req.Run(ctx, cfg.AbortGrace)
	if err != nil {
		r.logger.Error("render did not close", map[string]any{"error": err.Error()})
		outcome.Message = err.Error()
	}
	finished := time.Now()

	result := &RenderResult{
		Meta:     cfg.Meta,
		Outcome:  outcome,
		Started:  started,
		Finished: finished,
		Duration: finished.Sub(started),
		Metrics:  cfg.Collector.Snapshot(),
	}
	if c, ok := cfg.Destination.(chunkCounter); ok {
		result.Chunks = c.Chunks()
	}
	if e, ok := cfg.Destination.(errReporter); ok && e.Err() != nil {
		result.DestinationErr = e.Err()
		r.logger.Warn("destination write failed", map[string]any{"error": e.Err().Error()})
	}

	if cfg.Storage != nil {
		result.StorageErr = r.persist(ctx, result)
	}
	if cfg.Adapter != nil {
		result.PublishErr = r.publish(ctx, result)
	}

	r.logger.Info("render completed", map[string]any{
		"outcome":         outcome.Status,
		"client_rendered": outcome.ClientRendered,
		"reported_errors": outcome.ReportedErrors,
		"bytes_written":   result.Metrics.BytesWritten,
		"duration":        result.Duration.String(),
	})

	return result, nil
}

func (r *RenderOrchestrator) persist(ctx context.Context, result *RenderResult) error {
	cfg := r.config
	rec := lode.NewOutcomeRecord(cfg.StorageConfig, result.Outcome, result.Metrics, result.Chunks, result.Finished)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), PersistTimeout)
	defer cancel()
	if err := cfg.Storage.WriteOutcome(writeCtx, rec); err != nil {
		cfg.Collector.IncLodeWriteFailure()
		r.logger.Warn("outcome write failed", map[string]any{"error": err.Error()})
		return fmt.Errorf("write outcome: %w", err)
	}
	cfg.Collector.IncLodeWriteSuccess()
	return nil
}

func (r *RenderOrchestrator) publish(ctx context.Context, result *RenderResult) error {
	cfg := r.config
	event := adapter.NewRenderCompletedEvent(*cfg.Meta, result.Outcome, result.Metrics.BytesWritten,
		cfg.StoragePath, result.Started, result.Finished)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), PublishTimeout)
	defer cancel()
	if err := cfg.Adapter.Publish(pubCtx, event); err != nil {
		r.logger.Warn("notification publish failed", map[string]any{"error": err.Error()})
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
