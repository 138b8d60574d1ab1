package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/justapithecus/sluice/metrics"
	"github.com/justapithecus/sluice/types"
)

// RenderReport is the structured JSON report written by --report.
type RenderReport struct {
	RequestID  string              `json:"request_id"`
	Document   string              `json:"document"`
	Attempt    int                 `json:"attempt"`
	Outcome    types.OutcomeStatus `json:"outcome"`
	Message    string              `json:"message"`
	ExitCode   int                 `json:"exit_code"`
	DurationMs int64               `json:"duration_ms"`

	Boundaries *ReportBoundaries `json:"boundaries"`
	Output     *ReportOutput     `json:"output"`
	Metrics    *metrics.Snapshot `json:"metrics"`

	DestinationError string `json:"destination_error,omitempty"`
	StorageError     string `json:"storage_error,omitempty"`
	PublishError     string `json:"publish_error,omitempty"`
}

// ReportBoundaries holds suspense boundary counts in the report.
type ReportBoundaries struct {
	Created        int64 `json:"created"`
	ClientRendered int   `json:"client_rendered"`
	ReportedErrors int   `json:"reported_errors"`
}

// ReportOutput describes the bytes delivered to the destination.
type ReportOutput struct {
	Kind         string `json:"kind"`
	Chunks       int64  `json:"chunks"`
	BytesWritten int64  `json:"bytes_written"`
	FlushPasses  int64  `json:"flush_passes"`
}

// BuildRenderReport composes a RenderReport from a RenderResult.
// The outputKind names the destination (e.g. "stdout", "frames", "lode").
// The exitCode is the process exit code that will be returned to the caller.
func BuildRenderReport(result *RenderResult, outputKind string, exitCode int) *RenderReport {
	snap := result.Metrics
	report := &RenderReport{
		RequestID:  result.Meta.RequestID,
		Document:   result.Meta.Document,
		Attempt:    result.Meta.Attempt,
		Outcome:    result.Outcome.Status,
		Message:    result.Outcome.Message,
		ExitCode:   exitCode,
		DurationMs: result.Duration.Milliseconds(),
		Boundaries: &ReportBoundaries{
			Created:        snap.BoundariesCreated,
			ClientRendered: result.Outcome.ClientRendered,
			ReportedErrors: result.Outcome.ReportedErrors,
		},
		Output: &ReportOutput{
			Kind:         outputKind,
			Chunks:       result.Chunks,
			BytesWritten: snap.BytesWritten,
			FlushPasses:  snap.FlushPasses,
		},
		Metrics: &snap,
	}

	if result.DestinationErr != nil {
		report.DestinationError = result.DestinationErr.Error()
	}
	if result.StorageErr != nil {
		report.StorageError = result.StorageErr.Error()
	}
	if result.PublishErr != nil {
		report.PublishError = result.PublishErr.Error()
	}

	return report
}

// WriteRenderReport writes the report as JSON to the specified path.
// If path is "-", writes to stderr.
func WriteRenderReport(report *RenderReport, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}

	if path == "-" {
		if err := writeRenderReportTo(report, os.Stderr); err != nil {
			return fmt.Errorf("failed to write report to stderr: %w", err)
		}
		return nil
	}

	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// writeRenderReportTo writes report JSON to any writer (for testing).
func writeRenderReportTo(report *RenderReport, w io.Writer) error {
	data, err := marshalReport(report)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func marshalReport(report *RenderReport) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}
