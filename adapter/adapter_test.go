package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/justapithecus/sluice/types"
)

func init() {
	BaseBackoff = time.Millisecond
}

func TestNewRenderCompletedEvent(t *testing.T) {
	started := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	finished := started.Add(1500 * time.Millisecond)
	meta := types.RequestMeta{RequestID: "req-001", Document: "home.yaml", Attempt: 1}
	outcome := types.RenderOutcome{Status: types.OutcomeAborted, Message: "render aborted", ClientRendered: 2}

	e := NewRenderCompletedEvent(meta, outcome, 4096, "file:///data", started, finished)

	if e.EventType != EventTypeRenderCompleted {
		t.Errorf("EventType = %q, want %q", e.EventType, EventTypeRenderCompleted)
	}
	if e.Outcome != "aborted" || e.ClientRendered != 2 || e.BytesWritten != 4096 {
		t.Errorf("event = %+v", e)
	}
	if e.DurationMs != 1500 {
		t.Errorf("DurationMs = %d, want 1500", e.DurationMs)
	}
	if e.Timestamp != "2026-10-14T12:00:01Z" {
		t.Errorf("Timestamp = %q, want 2026-10-14T12:00:01Z", e.Timestamp)
	}
	if e.ContractVersion != types.Version {
		t.Errorf("ContractVersion = %q, want %q", e.ContractVersion, types.Version)
	}
}

func TestRetry(t *testing.T) {
	transient := errors.New("transient")
	fatal := errors.New("fatal")
	isFatal := func(err error) bool { return errors.Is(err, fatal) }

	tests := []struct {
		name      string
		retries   int
		failures  []error
		wantCalls int
		wantErr   error
	}{
		{"first attempt succeeds", 3, nil, 1, nil},
		{"succeeds after retries", 3, []error{transient, transient}, 3, nil},
		{"exhausts retries", 2, []error{transient, transient, transient}, 3, transient},
		{"permanent stops early", 5, []error{fatal}, 1, fatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(t.Context(), "test", tt.retries, func(context.Context) error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			}, isFatal)

			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("Retry() = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Retry() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	calls := 0
	err := Retry(ctx, "test", 3, func(context.Context) error { calls++; return nil }, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}
