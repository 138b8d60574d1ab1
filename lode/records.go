package lode

import (
	"fmt"
	"time"

	"github.com/justapithecus/sluice/metrics"
	"github.com/justapithecus/sluice/types"
)

// RecordKind discriminator values.
const (
	RecordKindChunk   = "chunk"
	RecordKindOutcome = "outcome"
)

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{"day", "request_id", "record_kind"}

// ChunkRecord is one flushed batch of rendered output.
type ChunkRecord struct {
	RequestID string `json:"request_id"`
	Seq       int64  `json:"seq"`
	Data      string `json:"data"`
	Day       string `json:"day"`
}

// OutcomeRecord is the terminal record of a render.
type OutcomeRecord struct {
	RequestID       string    `json:"request_id" yaml:"request_id"`
	Document        string    `json:"document" yaml:"document"`
	ContractVersion string    `json:"contract_version" yaml:"contract_version"`
	Status          string    `json:"status" yaml:"status"`
	Message         string    `json:"message,omitempty" yaml:"message,omitempty"`
	ClientRendered  int64     `json:"client_rendered" yaml:"client_rendered"`
	ReportedErrors  int64     `json:"reported_errors" yaml:"reported_errors"`
	Chunks          int64     `json:"chunks" yaml:"chunks"`
	BytesWritten    int64     `json:"bytes_written" yaml:"bytes_written"`
	TasksCreated    int64     `json:"tasks_created" yaml:"tasks_created"`
	TasksAborted    int64     `json:"tasks_aborted" yaml:"tasks_aborted"`
	CompletedAt     time.Time `json:"completed_at" yaml:"completed_at"`
	Day             string    `json:"day" yaml:"day"`
}

// NewOutcomeRecord builds the outcome record of a closed render.
func NewOutcomeRecord(cfg Config, outcome types.RenderOutcome, snap metrics.Snapshot, chunks int64, completedAt time.Time) OutcomeRecord {
	return OutcomeRecord{
		RequestID:       cfg.RequestID,
		Document:        cfg.Document,
		ContractVersion: types.Version,
		Status:          string(outcome.Status),
		Message:         outcome.Message,
		ClientRendered:  int64(outcome.ClientRendered),
		ReportedErrors:  int64(outcome.ReportedErrors),
		Chunks:          chunks,
		BytesWritten:    snap.BytesWritten,
		TasksCreated:    snap.TasksCreated,
		TasksAborted:    snap.TasksAborted,
		CompletedAt:     completedAt.UTC(),
		Day:             cfg.Day,
	}
}

// toChunkRecordMap converts a chunk to a map for Lode storage.
// Lode HiveLayout requires records as map[string]any.
func toChunkRecordMap(c ChunkRecord) map[string]any {
	return map[string]any{
		"record_kind": RecordKindChunk,
		"request_id":  c.RequestID,
		"seq":         c.Seq,
		"data":        c.Data,
		"day":         c.Day,
	}
}

func toOutcomeRecordMap(o OutcomeRecord) map[string]any {
	return map[string]any{
		"record_kind":      RecordKindOutcome,
		"request_id":       o.RequestID,
		"document":         o.Document,
		"contract_version": o.ContractVersion,
		"status":           o.Status,
		"message":          o.Message,
		"client_rendered":  o.ClientRendered,
		"reported_errors":  o.ReportedErrors,
		"chunks":           o.Chunks,
		"bytes_written":    o.BytesWritten,
		"tasks_created":    o.TasksCreated,
		"tasks_aborted":    o.TasksAborted,
		"completed_at":     o.CompletedAt.Format(time.RFC3339Nano),
		"day":              o.Day,
	}
}

// chunkFromMap decodes a chunk record read back through the JSONL codec.
func chunkFromMap(m map[string]any) ChunkRecord {
	return ChunkRecord{
		RequestID: toString(m["request_id"]),
		Seq:       toInt64(m["seq"]),
		Data:      toString(m["data"]),
		Day:       toString(m["day"]),
	}
}

func outcomeFromMap(m map[string]any) (OutcomeRecord, error) {
	o := OutcomeRecord{
		RequestID:       toString(m["request_id"]),
		Document:        toString(m["document"]),
		ContractVersion: toString(m["contract_version"]),
		Status:          toString(m["status"]),
		Message:         toString(m["message"]),
		ClientRendered:  toInt64(m["client_rendered"]),
		ReportedErrors:  toInt64(m["reported_errors"]),
		Chunks:          toInt64(m["chunks"]),
		BytesWritten:    toInt64(m["bytes_written"]),
		TasksCreated:    toInt64(m["tasks_created"]),
		TasksAborted:    toInt64(m["tasks_aborted"]),
		Day:             toString(m["day"]),
	}
	if ts := toString(m["completed_at"]); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return o, fmt.Errorf("outcome %s: completed_at: %w", o.RequestID, err)
		}
		o.CompletedAt = t
	}
	return o, nil
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toInt64 accepts the numeric types a codec may produce.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
