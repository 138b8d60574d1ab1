// Package destination provides byte sinks for render requests.
//
// Writer streams to any io.Writer through a buffer and reports
// backpressure once a batch exceeds its high-water mark. HTTP adds
// per-flush response flushing. Stub records everything for tests.
//
// All destinations satisfy engine.Destination; Writer and HTTP also
// satisfy engine.Drainer.
package destination

import (
	"bufio"
	"errors"
	"io"
	"net/http"

	"github.com/justapithecus/sluice/metrics"
)

// DefaultBufferSize is the write buffer size of a Writer.
const DefaultBufferSize = 4096

// ErrClosed is returned by operations on a closed destination.
var ErrClosed = errors.New("destination closed")

// WriterOptions configures a Writer.
type WriterOptions struct {
	// BufferSize defaults to DefaultBufferSize.
	BufferSize int
	// HighWaterMark is the number of bytes per flush batch after which
	// WriteChunk reports backpressure. Zero disables backpressure.
	HighWaterMark int
	// Collector records bytes written. Optional.
	Collector *metrics.Collector
	// Closer is closed with the destination. Optional.
	Closer io.Closer
}

// Writer is a buffered destination over an io.Writer.
type Writer struct {
	closer    io.Closer
	buf       *bufio.Writer
	flush     func() error
	hwm       int
	collector *metrics.Collector

	batch  int
	drain  []func()
	err    error
	closed bool
	// closeErr is the error the request closed with, if any.
	closeErr error
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer, opts WriterOptions) *Writer {
	size := opts.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Writer{
		closer:    opts.Closer,
		buf:       bufio.NewWriterSize(w, size),
		hwm:       opts.HighWaterMark,
		collector: opts.Collector,
	}
}

// NewHTTP creates a Writer over an HTTP response that flushes the
// response after every batch, so each flush reaches the client.
func NewHTTP(w http.ResponseWriter, opts WriterOptions) *Writer {
	d := NewWriter(w, opts)
	rc := http.NewResponseController(w)
	d.flush = rc.Flush
	return d
}

// BeginWriting implements engine.Destination.
func (d *Writer) BeginWriting() {}

// CompleteWriting implements engine.Destination.
func (d *Writer) CompleteWriting() {}

// WriteChunk buffers chunk. It returns false once the current batch has
// reached the high-water mark or the underlying writer failed.
func (d *Writer) WriteChunk(chunk []byte) bool {
	if d.closed || d.err != nil {
		return false
	}
	n, err := d.buf.Write(chunk)
	d.batch += n
	d.collector.AddBytesWritten(n)
	if err != nil {
		d.err = err
		return false
	}
	return d.hwm <= 0 || d.batch < d.hwm
}

// FlushBuffered writes buffered bytes to the underlying writer and
// notifies drain listeners.
func (d *Writer) FlushBuffered() {
	if d.closed {
		return
	}
	if err := d.buf.Flush(); err != nil && d.err == nil {
		d.err = err
	}
	// An empty batch leaves the response uncommitted.
	if d.flush != nil && d.err == nil && d.batch > 0 {
		if err := d.flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			d.err = err
		}
	}
	d.batch = 0

	if d.err != nil {
		// A failed writer never drains.
		return
	}
	listeners := d.drain
	d.drain = nil
	for _, fn := range listeners {
		fn()
	}
}

// OnDrain implements engine.Drainer. fn runs after the next successful
// FlushBuffered.
func (d *Writer) OnDrain(fn func()) {
	d.drain = append(d.drain, fn)
}

// Close flushes and closes the destination.
func (d *Writer) Close() error {
	if d.closed {
		return ErrClosed
	}
	d.FlushBuffered()
	d.closed = true
	d.drain = nil
	if d.closer != nil {
		if err := d.closer.Close(); err != nil && d.err == nil {
			d.err = err
		}
	}
	return d.err
}

// CloseWithError flushes and closes the destination, recording reason.
// Bytes already written remain valid; readers detect the failure through
// Err or, for HTTP, the truncated stream.
func (d *Writer) CloseWithError(reason error) error {
	d.closeErr = reason
	return d.Close()
}

// Err returns the first write error, or the error the destination was
// closed with.
func (d *Writer) Err() error {
	if d.err != nil {
		return d.err
	}
	return d.closeErr
}

// CloseError returns the error passed to CloseWithError, if any.
func (d *Writer) CloseError() error {
	return d.closeErr
}

// Closed reports whether the destination has been closed.
func (d *Writer) Closed() bool {
	return d.closed
}
