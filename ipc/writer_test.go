package ipc

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/justapithecus/sluice/metrics"
)

func TestFrameWriter_OneChunkFramePerFlush(t *testing.T) {
	var stream bytes.Buffer
	c := metrics.NewCollector("html", "frames", "", "req-001")
	w := NewFrameWriter(&stream, "req-001", c)

	w.WriteChunk([]byte("<div>"))
	w.WriteChunk([]byte("a"))
	w.FlushBuffered()
	w.FlushBuffered() // empty batch writes nothing
	w.WriteChunk([]byte("</div>"))
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	dec := NewFrameDecoder(&stream)
	var frames []any
	for {
		payload, err := dec.ReadFrame()
		if err != nil {
			break
		}
		f, err := DecodeFrame(payload)
		if err != nil {
			t.Fatalf("DecodeFrame failed: %v", err)
		}
		frames = append(frames, f)
	}

	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	first := frames[0].(*ChunkFrame)
	if string(first.Data) != "<div>a" || first.Seq != 1 {
		t.Errorf("frames[0] = %+v, want seq 1 with <div>a", first)
	}
	end, ok := frames[2].(*EndFrame)
	if !ok {
		t.Fatalf("frames[2] = %T, want *EndFrame", frames[2])
	}
	if end.Seq != 3 || end.Chunks != 2 || end.Bytes != int64(len("<div>a</div>")) || end.Error != "" {
		t.Errorf("end frame = %+v", end)
	}

	snap := c.Snapshot()
	if snap.FramesWritten != 3 {
		t.Errorf("FramesWritten = %d, want 3", snap.FramesWritten)
	}
	if snap.BytesWritten != int64(len("<div>a</div>")) {
		t.Errorf("BytesWritten = %d, want %d", snap.BytesWritten, len("<div>a</div>"))
	}
}

func TestFrameWriter_CloseWithError(t *testing.T) {
	var stream bytes.Buffer
	w := NewFrameWriter(&stream, "req-001", nil)
	w.WriteChunk([]byte("partial"))
	if err := w.CloseWithError(errors.New("render aborted")); err != nil {
		t.Fatalf("CloseWithError failed: %v", err)
	}
	if err := w.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
	if w.WriteChunk([]byte("x")) {
		t.Error("WriteChunk after close = true")
	}

	var out bytes.Buffer
	end, err := Reassemble(&stream, &out)
	if err != nil {
		t.Fatalf("Reassemble failed: %v", err)
	}
	if out.String() != "partial" {
		t.Errorf("output = %q, want partial", out.String())
	}
	if end.Error != "render aborted" {
		t.Errorf("end.Error = %q, want render aborted", end.Error)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestFrameWriter_WriteError(t *testing.T) {
	w := NewFrameWriter(failingWriter{}, "req-001", nil)
	w.WriteChunk([]byte("x"))
	w.FlushBuffered()
	if w.Err() == nil {
		t.Fatal("Err() = nil, want write error")
	}
	if w.WriteChunk([]byte("y")) {
		t.Error("WriteChunk after failure = true, want false")
	}
	if err := w.Close(); err == nil || !strings.Contains(err.Error(), "broken pipe") {
		t.Errorf("Close = %v, want broken pipe", err)
	}
}

func TestReassemble(t *testing.T) {
	var stream bytes.Buffer
	w := NewFrameWriter(&stream, "req-001", nil)
	for _, part := range []string{"<p>", "one", "</p>"} {
		w.WriteChunk([]byte(part))
		w.FlushBuffered()
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	var out bytes.Buffer
	end, err := Reassemble(&stream, &out)
	if err != nil {
		t.Fatalf("Reassemble failed: %v", err)
	}
	if out.String() != "<p>one</p>" {
		t.Errorf("output = %q, want <p>one</p>", out.String())
	}
	if end.RequestID != "req-001" || end.Chunks != 3 {
		t.Errorf("end = %+v", end)
	}
}

func TestReassemble_Errors(t *testing.T) {
	tests := []struct {
		name   string
		frames []any
		kind   FrameErrorKind
	}{
		{
			name:   "missing end frame",
			frames: []any{&ChunkFrame{Type: ChunkType, RequestID: "r", Seq: 1}},
			kind:   FrameErrorPartial,
		},
		{
			name: "sequence gap",
			frames: []any{
				&ChunkFrame{Type: ChunkType, RequestID: "r", Seq: 1},
				&ChunkFrame{Type: ChunkType, RequestID: "r", Seq: 3},
			},
			kind: FrameErrorSequence,
		},
		{
			name: "interleaved request",
			frames: []any{
				&ChunkFrame{Type: ChunkType, RequestID: "r", Seq: 1},
				&EndFrame{Type: EndType, RequestID: "other", Seq: 2},
			},
			kind: FrameErrorSequence,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stream bytes.Buffer
			for _, f := range tt.frames {
				mustEncode(t, &stream, f)
			}
			_, err := Reassemble(&stream, &bytes.Buffer{})
			var frameErr *FrameError
			if !errors.As(err, &frameErr) {
				t.Fatalf("expected *FrameError, got %T (%v)", err, err)
			}
			if frameErr.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", frameErr.Kind, tt.kind)
			}
			if !frameErr.IsFatal() {
				t.Error("IsFatal() = false, want true")
			}
		})
	}
}
