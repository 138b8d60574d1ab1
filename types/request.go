// Package types defines the node model and shared domain types for the
// sluice rendering engine.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"fmt"
)

// RequestMeta identifies one render request in logs, metrics and
// persisted output.
type RequestMeta struct {
	// RequestID is the canonical request identifier. Must be unique.
	RequestID string
	// Document is the source document path or route being rendered.
	Document string
	// Attempt is the attempt number. Starts at 1.
	Attempt int
}

// Validate checks that the request identity is usable.
func (r *RequestMeta) Validate() error {
	if r.RequestID == "" {
		return errors.New("request_id must be non-empty")
	}
	if r.Attempt < 1 {
		return fmt.Errorf("attempt must be >= 1, got %d", r.Attempt)
	}
	return nil
}

// OutcomeStatus is the final status of a render request.
type OutcomeStatus string

const (
	// OutcomePending indicates the request has not finished.
	OutcomePending OutcomeStatus = "pending"
	// OutcomeSuccess indicates every task finished and the stream closed.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeRenderError indicates a fatal error terminated the stream.
	OutcomeRenderError OutcomeStatus = "render_error"
	// OutcomeAborted indicates the request was aborted by its caller.
	OutcomeAborted OutcomeStatus = "aborted"
)

// RenderOutcome is the final outcome of a render request.
type RenderOutcome struct {
	// Status is the outcome classification.
	Status OutcomeStatus `json:"status" yaml:"status"`
	// Message is a human-readable description.
	Message string `json:"message" yaml:"message"`
	// ClientRendered is the number of boundaries left for the client.
	ClientRendered int `json:"client_rendered" yaml:"client_rendered"`
	// ReportedErrors is the number of errors passed to the error hook.
	ReportedErrors int `json:"reported_errors" yaml:"reported_errors"`
}

// Terminal reports whether the outcome is final.
func (o RenderOutcome) Terminal() bool {
	return o.Status != OutcomePending && o.Status != ""
}
