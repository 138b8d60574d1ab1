// Package lode persists rendered output in a Lode dataset.
//
// Every destination flush becomes one chunk record; the request outcome
// is written as a single outcome record once the render closes. Records
// are Hive-partitioned by day, request_id and record_kind so a render can
// be reassembled or listed later.
package lode

import (
	"context"
	"time"
)

// DefaultDataset is the dataset ID used when none is configured.
const DefaultDataset = "sluice"

// DeriveDay computes the partition day from the render start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(startTime time.Time) string {
	return startTime.UTC().Format("2006-01-02")
}

// Config holds the partition identity of one render.
type Config struct {
	// Dataset is the Lode dataset ID.
	Dataset string
	// Document is the source document path or route.
	Document string
	// Day is the partition day (YYYY-MM-DD UTC).
	Day string
	// RequestID is the partition key for the render request.
	RequestID string
}

// Client abstracts the Lode storage client.
type Client interface {
	// WriteChunks writes a batch of output chunks. Must preserve order.
	WriteChunks(ctx context.Context, chunks []ChunkRecord) error
	// WriteOutcome writes the terminal record of a render.
	WriteOutcome(ctx context.Context, outcome OutcomeRecord) error
	// Close releases client resources.
	Close() error
}

// StubClient records writes without persisting.
type StubClient struct {
	Chunks   []ChunkRecord
	Outcomes []OutcomeRecord
	Closed   bool
	// Err, if set, is returned by every write.
	Err error
}

// NewStubClient creates a new stub client.
func NewStubClient() *StubClient {
	return &StubClient{}
}

// WriteChunks implements Client.
func (c *StubClient) WriteChunks(_ context.Context, chunks []ChunkRecord) error {
	if c.Err != nil {
		return c.Err
	}
	c.Chunks = append(c.Chunks, chunks...)
	return nil
}

// WriteOutcome implements Client.
func (c *StubClient) WriteOutcome(_ context.Context, outcome OutcomeRecord) error {
	if c.Err != nil {
		return c.Err
	}
	c.Outcomes = append(c.Outcomes, outcome)
	return nil
}

// Close implements Client.
func (c *StubClient) Close() error {
	c.Closed = true
	return nil
}

// Verify StubClient implements Client.
var _ Client = (*StubClient)(nil)
