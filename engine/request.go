package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/justapithecus/sluice/log"
	"github.com/justapithecus/sluice/metrics"
	"github.com/justapithecus/sluice/types"
)

// DefaultProgressiveChunkSize is the completed-boundary size in bytes above
// which content is streamed out of line instead of inlined.
const DefaultProgressiveChunkSize = 12800

// Status is the flow state of a request.
type Status int

// Request states.
const (
	StatusBuffering Status = iota
	StatusFlowing
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusBuffering:
		return "buffering"
	case StatusFlowing:
		return "flowing"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures a Request. All fields are optional.
type Options struct {
	// RequestID identifies the request in logs and metrics. A UUIDv7 is
	// generated when empty.
	RequestID string
	// ProgressiveChunkSize defaults to DefaultProgressiveChunkSize.
	ProgressiveChunkSize int
	// Scheduler defaults to a new Trampoline.
	Scheduler Scheduler
	Logger    *log.Logger
	Collector *metrics.Collector

	// OnError observes every render error, including recovered ones.
	// Aborts are not reported.
	OnError func(err error)
	// OnCompleteAll fires once, when no task remains pending.
	OnCompleteAll func()
	// OnReadyToStream fires when the root content and every fallback
	// needed to emit it are complete.
	OnReadyToStream func()
}

// NewRequestID returns a time-ordered request identifier.
func NewRequestID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Request is one render of one tree into one destination.
//
// Methods may be called from any goroutine; they only schedule work on
// the request's Scheduler. Outcome is safe to read after Done is closed.
type Request struct {
	id                   string
	dest                 Destination
	format               Format
	sched                Scheduler
	logger               *log.Logger
	collector            *metrics.Collector
	progressiveChunkSize int

	onError         func(error)
	onCompleteAll   func()
	onReadyToStream func()

	status        Status
	fatalErr      error
	workScheduled bool
	flushing      bool
	completedAll  bool
	drainArmed    bool

	nextSegmentID        int
	allPendingTasks      int
	pendingRootTasks     int
	completedRootSegment *segment
	abortableTasks       *taskSet
	boundaries           []*boundary
	pingedTasks          []*task

	clientRenderedBoundaries []*boundary
	completedBoundaries      []*boundary
	partialBoundaries        []*boundary

	aborted        bool
	reportedErrors int
	clientRendered int
	outcome        types.RenderOutcome

	doneOnce sync.Once
	done     chan struct{}
}

// NewRequest creates a request that renders root into dest. Rendering
// starts with StartWork; bytes are delivered after StartFlowing.
func NewRequest(root types.Node, dest Destination, f Format, opts Options) *Request {
	r := &Request{
		id:                   opts.RequestID,
		dest:                 dest,
		format:               f,
		sched:                opts.Scheduler,
		logger:               opts.Logger,
		collector:            opts.Collector,
		progressiveChunkSize: opts.ProgressiveChunkSize,
		onError:              opts.OnError,
		onCompleteAll:        opts.OnCompleteAll,
		onReadyToStream:      opts.OnReadyToStream,
		status:               StatusBuffering,
		abortableTasks:       newTaskSet(),
		outcome:              types.RenderOutcome{Status: types.OutcomePending},
		done:                 make(chan struct{}),
	}
	if r.id == "" {
		r.id = NewRequestID()
	}
	if r.sched == nil {
		r.sched = NewTrampoline()
	}
	if r.logger == nil {
		r.logger = log.Nop()
	}
	if r.progressiveChunkSize <= 0 {
		r.progressiveChunkSize = DefaultProgressiveChunkSize
	}

	rootSegment := newSegment(0, nil, f.RootFormatContext())
	rootSegment.parentFlushed = true
	rootTask := r.createTask(root, nil, rootSegment, r.abortableTasks, nil, nil, nil)
	rootTask.queued = true
	r.pingedTasks = append(r.pingedTasks, rootTask)
	return r
}

// ID returns the request identifier.
func (r *Request) ID() string { return r.id }

// Done is closed when the request reaches the Closed state.
func (r *Request) Done() <-chan struct{} { return r.done }

// Outcome returns the terminal result of the request. Before Done is
// closed the status is pending and the value may be stale.
func (r *Request) Outcome() types.RenderOutcome { return r.outcome }

// StartWork schedules the first render pass.
func (r *Request) StartWork() {
	r.sched.Schedule(r.scheduleWork)
}

// StartFlowing marks the destination ready for bytes and flushes whatever
// is complete. Call it again to resume after backpressure.
func (r *Request) StartFlowing() {
	r.sched.Schedule(r.startFlowing)
}

func (r *Request) startFlowing() {
	if r.status == StatusClosed {
		return
	}
	r.status = StatusFlowing
	r.guard(r.flushCompletedQueues)
}

// Abort cancels all outstanding work. Pending root work closes the
// request with ErrAborted; pending boundary content is handed to the
// client. A no-op once the request is closed or has no pending work.
func (r *Request) Abort(reason error) {
	r.sched.Schedule(func() { r.abort(reason) })
}

// AbortAfter aborts the request if it has not closed within d. The
// returned function cancels the timer.
func (r *Request) AbortAfter(d time.Duration) (stop func() bool) {
	timer := time.AfterFunc(d, func() {
		r.Abort(fmt.Errorf("render exceeded %s", d))
	})
	return timer.Stop
}

// Run starts the request flowing and blocks until it closes. If ctx ends
// first the request is aborted with the context's cause, and Run keeps
// waiting for the close unless the grace period elapses. A non-positive
// grace waits indefinitely.
func (r *Request) Run(ctx context.Context, grace time.Duration) (types.RenderOutcome, error) {
	r.StartWork()
	r.StartFlowing()

	select {
	case <-r.done:
		return r.outcome, nil
	case <-ctx.Done():
	}

	r.Abort(context.Cause(ctx))
	if grace <= 0 {
		<-r.done
		return r.outcome, nil
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-r.done:
		return r.outcome, nil
	case <-timer.C:
		return types.RenderOutcome{Status: types.OutcomeAborted, Message: ErrAborted.Error()},
			fmt.Errorf("request %s did not close within %s of abort", r.id, grace)
	}
}

func (r *Request) abort(reason error) {
	if r.status == StatusClosed || r.allPendingTasks == 0 {
		return
	}
	r.aborted = true
	r.logger.Warn("aborting render", map[string]any{
		"pending_tasks": r.allPendingTasks,
		"reason":        errString(reason),
	})
	r.guard(func() {
		for _, t := range r.abortableTasks.drain() {
			r.abortTask(t, reason)
		}
		// Fallbacks of boundaries whose content already errored are not
		// reachable from any content task.
		for _, b := range r.boundaries {
			for _, t := range b.fallbackAbortableTasks.drain() {
				r.abortTask(t, reason)
			}
		}
		if r.status == StatusFlowing {
			r.flushCompletedQueues()
		}
	})
}

func (r *Request) performWork() {
	r.workScheduled = false
	if r.status == StatusClosed {
		return
	}
	r.guard(func() {
		n := len(r.pingedTasks)
		for i := 0; i < n && r.status != StatusClosed; i++ {
			r.retryTask(r.pingedTasks[i])
		}
		if r.status == StatusClosed {
			return
		}
		r.pingedTasks = append(r.pingedTasks[:0], r.pingedTasks[n:]...)
		if r.status == StatusFlowing {
			r.flushCompletedQueues()
		}
		if len(r.pingedTasks) > 0 {
			r.scheduleWork()
		}
	})
}

// guard runs fn and converts a panic into a fatal request error.
func (r *Request) guard(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			err := recoveredError(p)
			r.logger.Error("render panicked", map[string]any{"error": err.Error()})
			r.reportError(err)
			r.fatalError(err)
			// The panicking task may hold counts no path will release.
			r.completeAll()
		}
	}()
	fn()
}

func (r *Request) retryTask(t *task) {
	t.queued = false
	seg := t.blockedSegment
	if seg.status != SegmentPending {
		return
	}

	err := r.renderNodeDestructive(t, t.node)
	if err == nil {
		t.abortSet.delete(t)
		seg.status = SegmentCompleted
		r.collector.IncTaskCompleted()
		r.finishedTask(t.blockedBoundary, seg)
		return
	}
	if w, ok := types.AsWakeable(err); ok {
		r.collector.IncTaskSuspended()
		w.Then(t.ping)
		return
	}
	t.abortSet.delete(t)
	seg.status = SegmentErrored
	r.erroredTask(t.blockedBoundary, err)
}

func (r *Request) reportError(err error) {
	r.reportedErrors++
	r.collector.IncErrorReported()
	r.logger.Error("render error", map[string]any{"error": err.Error()})
	if r.onError != nil {
		r.onError(err)
	}
}

// fatalError closes the request because root content cannot be produced.
func (r *Request) fatalError(err error) {
	if r.status == StatusClosed {
		return
	}
	r.fatalErr = err
	r.outcome.Status = types.OutcomeRenderError
	r.outcome.Message = err.Error()
	r.closeWithError(err)
	r.releasePending()
}

func (r *Request) closeWithError(err error) {
	if r.status == StatusClosed {
		return
	}
	r.status = StatusClosed
	if r.outcome.Status == types.OutcomePending {
		if errors.Is(err, ErrAborted) {
			r.outcome.Status = types.OutcomeAborted
		} else {
			r.outcome.Status = types.OutcomeRenderError
		}
		r.outcome.Message = err.Error()
	}
	if cerr := r.dest.CloseWithError(err); cerr != nil {
		r.logger.Warn("destination close failed", map[string]any{"error": cerr.Error()})
	}
	r.finish()
}

func (r *Request) close() {
	r.status = StatusClosed
	if r.aborted {
		r.outcome.Status = types.OutcomeAborted
		r.outcome.Message = ErrAborted.Error()
	} else {
		r.outcome.Status = types.OutcomeSuccess
	}
	if err := r.dest.Close(); err != nil {
		r.logger.Warn("destination close failed", map[string]any{"error": err.Error()})
	}
	r.finish()
}

func (r *Request) finish() {
	r.outcome.ClientRendered = r.clientRendered
	r.outcome.ReportedErrors = r.reportedErrors
	r.pingedTasks = nil
	r.logger.Info("render closed", map[string]any{
		"status":          string(r.outcome.Status),
		"client_rendered": r.clientRendered,
		"errors":          r.reportedErrors,
	})
	r.doneOnce.Do(func() { close(r.done) })
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Status returns the current flow state. Like Outcome, it is only
// stable once Done is closed.
func (r *Request) Status() Status { return r.status }
