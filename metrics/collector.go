// Package metrics provides per-request render metrics collection.
//
// The Collector accumulates counters during a single render request. It is
// a leaf package with no internal dependencies: the engine, destinations,
// and storage layer increment it directly as work happens.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all render metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Task lifecycle
	TasksCreated   int64
	TasksCompleted int64
	TasksErrored   int64
	TasksAborted   int64
	TasksSuspended int64

	// Boundaries
	BoundariesCreated        int64
	BoundariesClientRendered int64

	// Flushing
	SegmentsFlushed   int64
	FlushPasses       int64
	BackpressureStops int64
	BytesWritten      int64

	// Errors passed to the error callback
	ErrorsReported int64

	// Transport / Storage
	FramesWritten    int64
	LodeWriteSuccess int64
	LodeWriteFailure int64

	// Dimensions (informational, set at construction)
	Format         string
	Destination    string
	StorageBackend string
	RequestID      string
}

// Collector accumulates metrics during a single request.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	tasksCreated   int64
	tasksCompleted int64
	tasksErrored   int64
	tasksAborted   int64
	tasksSuspended int64

	boundariesCreated        int64
	boundariesClientRendered int64

	segmentsFlushed   int64
	flushPasses       int64
	backpressureStops int64
	bytesWritten      int64

	errorsReported int64

	framesWritten    int64
	lodeWriteSuccess int64
	lodeWriteFailure int64

	// Dimensions
	format         string
	destination    string
	storageBackend string
	requestID      string
}

// NewCollector creates a Collector with dimension labels.
// storageBackend and requestID may be empty.
func NewCollector(format, destination, storageBackend, requestID string) *Collector {
	return &Collector{
		format:         format,
		destination:    destination,
		storageBackend: storageBackend,
		requestID:      requestID,
	}
}

func (c *Collector) add(field *int64, n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// --- Task lifecycle ---

// IncTaskCreated records a new unit of render work.
func (c *Collector) IncTaskCreated() {
	if c != nil {
		c.add(&c.tasksCreated, 1)
	}
}

// IncTaskCompleted records a task whose segment completed.
func (c *Collector) IncTaskCompleted() {
	if c != nil {
		c.add(&c.tasksCompleted, 1)
	}
}

// IncTaskErrored records a task that failed with a render error.
func (c *Collector) IncTaskErrored() {
	if c != nil {
		c.add(&c.tasksErrored, 1)
	}
}

// IncTaskAborted records a task cancelled by abort, hard or soft.
func (c *Collector) IncTaskAborted() {
	if c != nil {
		c.add(&c.tasksAborted, 1)
	}
}

// IncTaskSuspended records a retry that suspended again.
func (c *Collector) IncTaskSuspended() {
	if c != nil {
		c.add(&c.tasksSuspended, 1)
	}
}

// --- Boundaries ---

// IncBoundaryCreated records a new suspense boundary.
func (c *Collector) IncBoundaryCreated() {
	if c != nil {
		c.add(&c.boundariesCreated, 1)
	}
}

// IncBoundaryClientRendered records a boundary handed to the client.
func (c *Collector) IncBoundaryClientRendered() {
	if c != nil {
		c.add(&c.boundariesClientRendered, 1)
	}
}

// --- Flushing ---

// IncSegmentFlushed records a segment whose contents were written.
func (c *Collector) IncSegmentFlushed() {
	if c != nil {
		c.add(&c.segmentsFlushed, 1)
	}
}

// IncFlushPass records one drain of the completion queues.
func (c *Collector) IncFlushPass() {
	if c != nil {
		c.add(&c.flushPasses, 1)
	}
}

// IncBackpressureStop records a drain cut short by the destination.
func (c *Collector) IncBackpressureStop() {
	if c != nil {
		c.add(&c.backpressureStops, 1)
	}
}

// AddBytesWritten records bytes accepted by the destination.
func (c *Collector) AddBytesWritten(n int) {
	if c != nil {
		c.add(&c.bytesWritten, int64(n))
	}
}

// IncErrorReported records an error passed to the error callback.
func (c *Collector) IncErrorReported() {
	if c != nil {
		c.add(&c.errorsReported, 1)
	}
}

// --- Transport / Storage ---
// Lode counters are per-call, not per-record. A single batch persisted
// with N chunks counts as 1 success.

// IncFrameWritten records one IPC frame written.
func (c *Collector) IncFrameWritten() {
	if c != nil {
		c.add(&c.framesWritten, 1)
	}
}

// IncLodeWriteSuccess records a successful Lode write operation (per-call).
func (c *Collector) IncLodeWriteSuccess() {
	if c != nil {
		c.add(&c.lodeWriteSuccess, 1)
	}
}

// IncLodeWriteFailure records a failed Lode write operation (per-call).
func (c *Collector) IncLodeWriteFailure() {
	if c != nil {
		c.add(&c.lodeWriteFailure, 1)
	}
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		TasksCreated:   c.tasksCreated,
		TasksCompleted: c.tasksCompleted,
		TasksErrored:   c.tasksErrored,
		TasksAborted:   c.tasksAborted,
		TasksSuspended: c.tasksSuspended,

		BoundariesCreated:        c.boundariesCreated,
		BoundariesClientRendered: c.boundariesClientRendered,

		SegmentsFlushed:   c.segmentsFlushed,
		FlushPasses:       c.flushPasses,
		BackpressureStops: c.backpressureStops,
		BytesWritten:      c.bytesWritten,

		ErrorsReported: c.errorsReported,

		FramesWritten:    c.framesWritten,
		LodeWriteSuccess: c.lodeWriteSuccess,
		LodeWriteFailure: c.lodeWriteFailure,

		Format:         c.format,
		Destination:    c.destination,
		StorageBackend: c.storageBackend,
		RequestID:      c.requestID,
	}
}
