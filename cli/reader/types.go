// Package reader provides the read-side data access layer for the sluice
// CLI.
//
// Read-only commands (inspect, list, stats) go through a Reader so they
// never depend on how renders were persisted.
package reader

import (
	"time"

	sluicelode "github.com/justapithecus/sluice/lode"
)

// RenderSummary describes one render. The render command prints it for a
// fresh render; inspect prints it for a persisted one.
type RenderSummary struct {
	RequestID      string    `json:"request_id" yaml:"request_id"`
	Document       string    `json:"document" yaml:"document"`
	Status         string    `json:"status" yaml:"status"`
	Message        string    `json:"message,omitempty" yaml:"message,omitempty"`
	ClientRendered int64     `json:"client_rendered" yaml:"client_rendered"`
	ReportedErrors int64     `json:"reported_errors" yaml:"reported_errors"`
	Chunks         int64     `json:"chunks" yaml:"chunks"`
	BytesWritten   int64     `json:"bytes_written" yaml:"bytes_written"`
	TasksCreated   int64     `json:"tasks_created" yaml:"tasks_created"`
	TasksAborted   int64     `json:"tasks_aborted" yaml:"tasks_aborted"`
	Output         string    `json:"output,omitempty" yaml:"output,omitempty"`
	Duration       string    `json:"duration,omitempty" yaml:"duration,omitempty"`
	CompletedAt    time.Time `json:"completed_at" yaml:"completed_at"`
}

// InspectRenderResponse is a persisted render with its reassembled HTML.
type InspectRenderResponse struct {
	Summary RenderSummary `json:"summary" yaml:"summary"`
	// HTML is omitted unless requested.
	HTML string `json:"html,omitempty" yaml:"html,omitempty"`
}

// ListRenderItem is one row of sluice inspect --list.
type ListRenderItem struct {
	RequestID    string    `json:"request_id" yaml:"request_id"`
	Document     string    `json:"document" yaml:"document"`
	Status       string    `json:"status" yaml:"status"`
	BytesWritten int64     `json:"bytes_written" yaml:"bytes_written"`
	CompletedAt  time.Time `json:"completed_at" yaml:"completed_at"`
}

// ListRendersOptions filters a render listing.
type ListRendersOptions struct {
	// Day is a YYYY-MM-DD partition; empty means every day.
	Day string
	// Status keeps only renders with this status.
	Status string
	// Limit caps the number of items; zero means no limit.
	Limit int
}

// RenderStats aggregates outcomes.
type RenderStats struct {
	Total          int   `json:"total" yaml:"total"`
	Succeeded      int   `json:"succeeded" yaml:"succeeded"`
	Failed         int   `json:"failed" yaml:"failed"`
	Aborted        int   `json:"aborted" yaml:"aborted"`
	ClientRendered int64 `json:"client_rendered" yaml:"client_rendered"`
	BytesWritten   int64 `json:"bytes_written" yaml:"bytes_written"`
}

// SummaryFromOutcome converts a persisted outcome record.
func SummaryFromOutcome(o sluicelode.OutcomeRecord) RenderSummary {
	return RenderSummary{
		RequestID:      o.RequestID,
		Document:       o.Document,
		Status:         o.Status,
		Message:        o.Message,
		ClientRendered: o.ClientRendered,
		ReportedErrors: o.ReportedErrors,
		Chunks:         o.Chunks,
		BytesWritten:   o.BytesWritten,
		TasksCreated:   o.TasksCreated,
		TasksAborted:   o.TasksAborted,
		CompletedAt:    o.CompletedAt,
	}
}
