package lode

import (
	"bytes"
	"context"
	"errors"

	"github.com/justapithecus/sluice/metrics"
)

// ErrClosed is returned by operations on a closed Destination.
var ErrClosed = errors.New("lode destination closed")

// Destination is a render destination that persists every flush batch as
// a chunk record.
//
// Writes are synchronous: FlushBuffered returns once the batch is stored.
// A failed write stops the destination; the engine sees backpressure and
// the error is reported by Err and Close.
type Destination struct {
	ctx       context.Context
	client    Client
	config    Config
	collector *metrics.Collector

	pending bytes.Buffer
	seq     int64
	err     error
	closed  bool
	// closeErr is the error the request closed with, if any.
	closeErr error
}

// NewDestination creates a Destination writing through client. ctx bounds
// every storage write. collector may be nil.
func NewDestination(ctx context.Context, client Client, cfg Config, collector *metrics.Collector) *Destination {
	return &Destination{ctx: ctx, client: client, config: cfg, collector: collector}
}

// BeginWriting implements engine.Destination.
func (d *Destination) BeginWriting() {}

// CompleteWriting implements engine.Destination.
func (d *Destination) CompleteWriting() {}

// WriteChunk buffers chunk until the next flush.
func (d *Destination) WriteChunk(chunk []byte) bool {
	if d.closed || d.err != nil {
		return false
	}
	d.pending.Write(chunk)
	return true
}

// FlushBuffered stores the pending batch as one chunk record.
func (d *Destination) FlushBuffered() {
	if d.closed || d.err != nil || d.pending.Len() == 0 {
		return
	}
	rec := ChunkRecord{
		RequestID: d.config.RequestID,
		Seq:       d.seq + 1,
		Data:      d.pending.String(),
		Day:       d.config.Day,
	}
	if err := d.client.WriteChunks(d.ctx, []ChunkRecord{rec}); err != nil {
		d.collector.IncLodeWriteFailure()
		d.err = err
		return
	}
	d.collector.IncLodeWriteSuccess()
	d.collector.AddBytesWritten(len(rec.Data))
	d.seq++
	d.pending.Reset()
}

// Close stores any pending batch and closes the destination. The client
// stays open for the outcome record.
func (d *Destination) Close() error {
	if d.closed {
		return ErrClosed
	}
	d.FlushBuffered()
	d.closed = true
	return d.err
}

// CloseWithError closes the destination, recording reason.
func (d *Destination) CloseWithError(reason error) error {
	d.closeErr = reason
	return d.Close()
}

// Chunks returns the number of chunk records stored.
func (d *Destination) Chunks() int64 { return d.seq }

// Err returns the first storage error.
func (d *Destination) Err() error { return d.err }

// CloseError returns the error passed to CloseWithError, if any.
func (d *Destination) CloseError() error { return d.closeErr }
