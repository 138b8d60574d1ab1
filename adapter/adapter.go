// Package adapter defines the render notification boundary.
//
// Adapters publish a render-completed notification to a downstream system
// once a request has closed. The CLI and server own adapter lifecycle;
// users provide configuration only.
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/justapithecus/sluice/types"
)

// EventTypeRenderCompleted is the event_type of every notification.
const EventTypeRenderCompleted = "render_completed"

// RenderCompletedEvent is the payload published when a render closes.
type RenderCompletedEvent struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"` // always "render_completed"
	RequestID       string `json:"request_id"`
	Document        string `json:"document"`
	Outcome         string `json:"outcome"` // success, render_error, aborted
	Message         string `json:"message,omitempty"`
	StoragePath     string `json:"storage_path,omitempty"`
	Timestamp       string `json:"timestamp"` // RFC 3339
	ClientRendered  int    `json:"client_rendered"`
	ReportedErrors  int    `json:"reported_errors"`
	BytesWritten    int64  `json:"bytes_written"`
	DurationMs      int64  `json:"duration_ms"`
}

// NewRenderCompletedEvent builds the notification for a closed request.
func NewRenderCompletedEvent(meta types.RequestMeta, outcome types.RenderOutcome, bytesWritten int64, storagePath string, started, finished time.Time) *RenderCompletedEvent {
	return &RenderCompletedEvent{
		ContractVersion: types.Version,
		EventType:       EventTypeRenderCompleted,
		RequestID:       meta.RequestID,
		Document:        meta.Document,
		Outcome:         string(outcome.Status),
		Message:         outcome.Message,
		StoragePath:     storagePath,
		Timestamp:       finished.UTC().Format(time.RFC3339),
		ClientRendered:  outcome.ClientRendered,
		ReportedErrors:  outcome.ReportedErrors,
		BytesWritten:    bytesWritten,
		DurationMs:      finished.Sub(started).Milliseconds(),
	}
}

// Adapter publishes render completion events to a downstream system.
type Adapter interface {
	// Publish sends a render completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *RenderCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// BaseBackoff is the delay before the first retry. It doubles per retry.
var BaseBackoff = 500 * time.Millisecond

// Retry calls attempt up to 1+retries times with exponential backoff
// between attempts. It stops early when ctx is done or when permanent
// reports the error as non-retriable. name prefixes returned errors.
func Retry(ctx context.Context, name string, retries int, attempt func(ctx context.Context) error, permanent func(error) bool) error {
	var lastErr error
	attempts := 1 + retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		// No backoff before the first attempt.
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * BaseBackoff
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-timer.C:
			}
		}

		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}
		if permanent != nil && permanent(lastErr) {
			return fmt.Errorf("%s: non-retriable error: %w", name, lastErr)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
