package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/justapithecus/sluice/types"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_RequestContext(t *testing.T) {
	var buf bytes.Buffer
	meta := &types.RequestMeta{RequestID: "req-001", Document: "page.yaml", Attempt: 1}
	l := NewLoggerWithWriter(meta, &buf)

	l.Info("boundary completed", map[string]any{"boundary": "B:0"})

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e["request_id"] != "req-001" {
		t.Errorf("request_id = %v, want req-001", e["request_id"])
	}
	if e["document"] != "page.yaml" {
		t.Errorf("document = %v, want page.yaml", e["document"])
	}
	if e["level"] != "info" {
		t.Errorf("level = %v, want info", e["level"])
	}
	if e["message"] != "boundary completed" {
		t.Errorf("message = %v", e["message"])
	}
	fields, ok := e["fields"].(map[string]any)
	if !ok || fields["boundary"] != "B:0" {
		t.Errorf("fields = %v, want boundary=B:0", e["fields"])
	}
}

func TestLogger_InfoLevelDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	meta := &types.RequestMeta{RequestID: "req-002", Attempt: 1}
	l := newLoggerWithWriter(meta, &buf, 0) // zapcore.InfoLevel

	l.Debug("hidden", nil)
	l.Warn("shown", nil)

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0]["level"] != "warn" {
		t.Errorf("level = %v, want warn", entries[0]["level"])
	}
	if _, ok := entries[0]["document"]; ok {
		t.Error("document field should be omitted when empty")
	}
}

func TestLogger_WithAndSugar(t *testing.T) {
	var buf bytes.Buffer
	meta := &types.RequestMeta{RequestID: "req-003", Attempt: 2}
	l := NewLoggerWithWriter(meta, &buf).With(map[string]any{"component": "flush"})

	l.Sugar().Infof("flushed %d segments", 3)

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0]["component"] != "flush" {
		t.Errorf("component = %v, want flush", entries[0]["component"])
	}
	if entries[0]["message"] != "flushed 3 segments" {
		t.Errorf("message = %v", entries[0]["message"])
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error("discarded", map[string]any{"x": 1})
	if err := l.Sync(); err != nil {
		t.Errorf("Sync() = %v", err)
	}
}
