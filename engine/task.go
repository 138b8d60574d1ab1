package engine

import "github.com/justapithecus/sluice/types"

// task is a resumable unit of render work.
type task struct {
	node            types.Node
	ping            func()
	queued          bool
	blockedBoundary *boundary
	blockedSegment  *segment
	abortSet        *taskSet
	legacyContext   legacyContext
	context         *contextSnapshot
	// assignID is the boundary id to stamp on the first emitted instance.
	assignID *types.BoundaryID
}

func (r *Request) createTask(
	node types.Node,
	b *boundary,
	seg *segment,
	abortSet *taskSet,
	legacy legacyContext,
	ctx *contextSnapshot,
	assignID *types.BoundaryID,
) *task {
	r.allPendingTasks++
	if b == nil {
		r.pendingRootTasks++
	} else {
		b.pendingTasks++
	}

	t := &task{
		node:            node,
		blockedBoundary: b,
		blockedSegment:  seg,
		abortSet:        abortSet,
		legacyContext:   legacy,
		context:         ctx,
		assignID:        assignID,
	}
	t.ping = func() {
		r.sched.Schedule(func() { r.pingTask(t) })
	}
	abortSet.add(t)
	r.collector.IncTaskCreated()
	return t
}

func (r *Request) createBoundary(fallbackAbortSet *taskSet) *boundary {
	r.collector.IncBoundaryCreated()
	b := &boundary{
		id:                     r.format.CreateSuspenseBoundaryID(),
		rootSegmentID:          -1,
		fallbackAbortableTasks: fallbackAbortSet,
	}
	r.boundaries = append(r.boundaries, b)
	return b
}

// pingTask queues t for retry.
func (r *Request) pingTask(t *task) {
	if r.status == StatusClosed || t.queued {
		return
	}
	t.queued = true
	r.pingedTasks = append(r.pingedTasks, t)
	r.scheduleWork()
}

func (r *Request) scheduleWork() {
	if r.workScheduled {
		return
	}
	r.workScheduled = true
	r.sched.Schedule(r.performWork)
}

// spawnSuspendedTask splits the suspended remainder of t into a new
// segment and task that resume when w settles.
func (r *Request) spawnSuspendedTask(t *task, w types.Wakeable) {
	seg := t.blockedSegment
	child := newSegment(len(seg.chunks), nil, seg.formatContext)
	seg.children = append(seg.children, child)

	nt := r.createTask(t.node, t.blockedBoundary, child, t.abortSet, t.legacyContext, t.context, t.assignID)
	// The id now belongs to the spawned task.
	t.assignID = nil
	w.Then(nt.ping)
}

func (r *Request) finishedTask(b *boundary, seg *segment) {
	if b == nil {
		if seg.parentFlushed {
			if r.completedRootSegment != nil {
				panic(invariant("root segment completed twice"))
			}
			r.completedRootSegment = seg
		}
		r.pendingRootTasks--
		if r.pendingRootTasks == 0 && r.onReadyToStream != nil {
			r.onReadyToStream()
		}
	} else {
		r.decrementBoundaryPending(b)
		if seg.status == SegmentCompleted {
			b.byteSize += seg.byteSize()
		}
		switch {
		case b.forceClientRender:
			// Content will be rendered by the client.
		case b.pendingTasks == 0:
			if seg.parentFlushed && seg.status == SegmentCompleted {
				b.completedSegments = append(b.completedSegments, seg)
			}
			if b.parentFlushed {
				r.completedBoundaries = append(r.completedBoundaries, b)
			}
			for _, ft := range b.fallbackAbortableTasks.drain() {
				r.abortTaskSoft(ft)
			}
		default:
			if seg.parentFlushed && seg.status == SegmentCompleted {
				b.completedSegments = append(b.completedSegments, seg)
				if len(b.completedSegments) == 1 && b.parentFlushed {
					r.partialBoundaries = append(r.partialBoundaries, b)
				}
			}
		}
	}
	r.decrementAllPending()
}

func (r *Request) erroredTask(b *boundary, err error) {
	r.collector.IncTaskErrored()
	r.reportError(err)
	if b == nil {
		r.fatalError(err)
		r.pendingRootTasks--
		r.decrementAllPending()
		return
	}
	r.decrementBoundaryPending(b)
	if !b.forceClientRender {
		r.forceClientRender(b)
	}
	r.decrementAllPending()
}

func (r *Request) forceClientRender(b *boundary) {
	b.forceClientRender = true
	r.collector.IncBoundaryClientRendered()
	r.clientRendered++
	if b.parentFlushed {
		r.clientRenderedBoundaries = append(r.clientRenderedBoundaries, b)
	}
}

// abortTaskSoft cancels a fallback task that is no longer needed.
func (r *Request) abortTaskSoft(t *task) {
	r.collector.IncTaskAborted()
	t.blockedSegment.status = SegmentAborted
	r.finishedTask(t.blockedBoundary, t.blockedSegment)
}

// abortTask cancels t because the request is being aborted. Never
// reported through the error callback.
func (r *Request) abortTask(t *task, reason error) {
	r.collector.IncTaskAborted()
	t.blockedSegment.status = SegmentAborted
	b := t.blockedBoundary
	if b == nil {
		r.pendingRootTasks--
		r.closeWithError(abortError(reason))
	} else {
		r.decrementBoundaryPending(b)
		if !b.forceClientRender {
			r.forceClientRender(b)
		}
		for _, ft := range b.fallbackAbortableTasks.drain() {
			r.abortTask(ft, reason)
		}
	}
	r.decrementAllPending()
}

// releasePending drops every task a fatally closed request will never
// retry from the pending counts. Nothing is written for them.
func (r *Request) releasePending() {
	release := func(t *task) {
		r.collector.IncTaskAborted()
		t.blockedSegment.status = SegmentAborted
		if b := t.blockedBoundary; b == nil {
			r.pendingRootTasks--
		} else {
			b.pendingTasks--
		}
		r.allPendingTasks--
	}
	for _, t := range r.abortableTasks.drain() {
		release(t)
	}
	for _, b := range r.boundaries {
		for _, t := range b.fallbackAbortableTasks.drain() {
			release(t)
		}
	}
}

func (r *Request) decrementBoundaryPending(b *boundary) {
	b.pendingTasks--
	if b.pendingTasks < 0 {
		panic(invariant("boundary pending task count below zero"))
	}
}

func (r *Request) decrementAllPending() {
	r.allPendingTasks--
	if r.allPendingTasks < 0 {
		panic(invariant("pending task count below zero"))
	}
	if r.allPendingTasks == 0 {
		r.completeAll()
	}
}

func (r *Request) completeAll() {
	if r.completedAll {
		return
	}
	r.completedAll = true
	if r.onCompleteAll != nil {
		r.onCompleteAll()
	}
}
