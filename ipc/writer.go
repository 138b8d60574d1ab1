package ipc

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/justapithecus/sluice/metrics"
	"github.com/justapithecus/sluice/types"
)

// ErrClosed is returned by operations on a closed FrameWriter.
var ErrClosed = errors.New("frame writer closed")

// FrameWriter is a render destination that emits one chunk frame per
// flush and an end frame on close.
type FrameWriter struct {
	w         io.Writer
	requestID string
	collector *metrics.Collector

	pending bytes.Buffer
	seq     int64
	chunks  int64
	bytes   int64
	err     error
	closed  bool
}

// NewFrameWriter creates a FrameWriter stamping frames with requestID.
// collector may be nil.
func NewFrameWriter(w io.Writer, requestID string, collector *metrics.Collector) *FrameWriter {
	return &FrameWriter{w: w, requestID: requestID, collector: collector}
}

// BeginWriting implements engine.Destination.
func (f *FrameWriter) BeginWriting() {}

// CompleteWriting implements engine.Destination.
func (f *FrameWriter) CompleteWriting() {}

// WriteChunk buffers chunk until the next flush. It returns false once a
// frame could not be written.
func (f *FrameWriter) WriteChunk(chunk []byte) bool {
	if f.closed || f.err != nil {
		return false
	}
	f.pending.Write(chunk)
	return true
}

// FlushBuffered emits the pending batch as chunk frames.
func (f *FrameWriter) FlushBuffered() {
	if f.closed || f.err != nil {
		return
	}
	for f.pending.Len() > 0 {
		data := f.pending.Next(MaxChunkSize)
		f.seq++
		frame := &ChunkFrame{
			Type:            ChunkType,
			ContractVersion: types.FrameContractVersion,
			RequestID:       f.requestID,
			Seq:             f.seq,
			Data:            data,
		}
		if _, err := encodeFrame(f.w, frame); err != nil {
			f.err = err
			return
		}
		f.chunks++
		f.bytes += int64(len(data))
		f.collector.IncFrameWritten()
		f.collector.AddBytesWritten(len(data))
	}
	f.pending.Reset()
}

// Close flushes and writes a clean end frame.
func (f *FrameWriter) Close() error {
	return f.end(nil)
}

// CloseWithError flushes and writes an end frame carrying reason.
func (f *FrameWriter) CloseWithError(reason error) error {
	return f.end(reason)
}

func (f *FrameWriter) end(reason error) error {
	if f.closed {
		return ErrClosed
	}
	f.FlushBuffered()
	f.closed = true
	if f.err != nil {
		return f.err
	}

	f.seq++
	frame := &EndFrame{
		Type:            EndType,
		ContractVersion: types.FrameContractVersion,
		RequestID:       f.requestID,
		Seq:             f.seq,
		Chunks:          f.chunks,
		Bytes:           f.bytes,
	}
	if reason != nil {
		frame.Error = reason.Error()
	}
	if _, err := encodeFrame(f.w, frame); err != nil {
		f.err = err
		return err
	}
	f.collector.IncFrameWritten()
	return nil
}

// Chunks returns the number of chunk frames written.
func (f *FrameWriter) Chunks() int64 { return f.chunks }

// Err returns the first frame write error.
func (f *FrameWriter) Err() error { return f.err }

// Reassemble reads a frame stream from r and writes the carried output to
// w. It returns the end frame. A stream without an end frame is a fatal
// partial-stream error; out-of-order frames are fatal sequence errors.
func Reassemble(r io.Reader, w io.Writer) (*EndFrame, error) {
	dec := NewFrameDecoder(r)
	var (
		expect    int64 = 1
		requestID string
	)
	for {
		payload, err := dec.ReadFrame()
		if errors.Is(err, io.EOF) {
			return nil, &FrameError{Kind: FrameErrorPartial, Msg: "stream ended without an end frame"}
		}
		if err != nil {
			return nil, err
		}

		frame, err := DecodeFrame(payload)
		if err != nil {
			return nil, err
		}

		switch fr := frame.(type) {
		case *ChunkFrame:
			if err := checkSequence(fr.Seq, expect, fr.RequestID, &requestID); err != nil {
				return nil, err
			}
			if _, err := w.Write(fr.Data); err != nil {
				return nil, err
			}
		case *EndFrame:
			if err := checkSequence(fr.Seq, expect, fr.RequestID, &requestID); err != nil {
				return nil, err
			}
			return fr, nil
		}
		expect++
	}
}

func checkSequence(seq, expect int64, id string, requestID *string) error {
	if seq != expect {
		return &FrameError{Kind: FrameErrorSequence, Msg: fmt.Sprintf("frame out of sequence: got %d, want %d", seq, expect)}
	}
	if *requestID == "" {
		*requestID = id
	} else if id != *requestID {
		return &FrameError{Kind: FrameErrorSequence, Msg: fmt.Sprintf("frame for request %q inside stream of %q", id, *requestID)}
	}
	return nil
}
