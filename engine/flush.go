package engine

import "slices"

func (r *Request) allocSegmentID() int {
	id := r.nextSegmentID
	r.nextSegmentID++
	return id
}

// flushSubtree writes seg and its children, emitting placeholders for
// children that are still pending.
func (r *Request) flushSubtree(d Destination, seg *segment) bool {
	seg.parentFlushed = true
	switch seg.status {
	case SegmentPending:
		if seg.id == -1 {
			seg.id = r.allocSegmentID()
		}
		return r.format.WritePlaceholder(d, seg.id)
	case SegmentCompleted:
		seg.status = SegmentFlushed
		r.collector.IncSegmentFlushed()
		ok := true
		ci := 0
		for _, child := range seg.children {
			for ; ci < child.index; ci++ {
				d.WriteChunk(seg.chunks[ci])
			}
			ok = r.flushSegment(d, child)
		}
		for ; ci < len(seg.chunks); ci++ {
			ok = d.WriteChunk(seg.chunks[ci])
		}
		return ok
	case SegmentAborted:
		// The enclosing boundary is client rendered; nothing to emit.
		return true
	default:
		panic(invariant("segment in status %s cannot be flushed", seg.status))
	}
}

// flushSegment writes seg, wrapping it in boundary markers if it is the
// fallback slot of a suspense boundary.
func (r *Request) flushSegment(d Destination, seg *segment) bool {
	b := seg.boundary
	if b == nil {
		return r.flushSubtree(d, seg)
	}
	b.parentFlushed = true

	switch {
	case b.forceClientRender:
		r.format.WriteStartClientRenderedSuspenseBoundary(d)
		r.flushSubtree(d, seg)
		return r.format.WriteEndSuspenseBoundary(d)

	case b.pendingTasks > 0:
		if b.rootSegmentID == -1 {
			b.rootSegmentID = r.allocSegmentID()
		}
		if len(b.completedSegments) > 0 {
			r.partialBoundaries = append(r.partialBoundaries, b)
		}
		r.format.WriteStartPendingSuspenseBoundary(d, b.id)
		r.flushSubtree(d, seg)
		return r.format.WriteEndSuspenseBoundary(d)

	case b.byteSize > r.progressiveChunkSize:
		// Too large to inline; stream it out of line after the shell.
		if b.rootSegmentID == -1 {
			b.rootSegmentID = r.allocSegmentID()
		}
		r.completedBoundaries = append(r.completedBoundaries, b)
		r.format.WriteStartPendingSuspenseBoundary(d, b.id)
		r.flushSubtree(d, seg)
		return r.format.WriteEndSuspenseBoundary(d)

	default:
		r.format.WriteStartCompletedSuspenseBoundary(d)
		if len(b.completedSegments) != 1 {
			panic(invariant("completed boundary has %d root segments, want 1", len(b.completedSegments)))
		}
		content := b.completedSegments[0]
		b.completedSegments = nil
		r.flushSegment(d, content)
		return r.format.WriteEndSuspenseBoundary(d)
	}
}

func (r *Request) flushSegmentContainer(d Destination, seg *segment) bool {
	r.format.WriteStartSegment(d, seg.formatContext, seg.id)
	r.flushSegment(d, seg)
	return r.format.WriteEndSegment(d, seg.formatContext)
}

func (r *Request) flushPartiallyCompletedSegment(d Destination, b *boundary, seg *segment) bool {
	if seg.status == SegmentFlushed {
		// Inlined into its parent already.
		return true
	}
	if seg.id == -1 {
		// The content root; it is moved into place by the boundary
		// completion instruction.
		if b.rootSegmentID == -1 {
			panic(invariant("boundary content flushed before the boundary"))
		}
		seg.id = b.rootSegmentID
		return r.flushSegmentContainer(d, seg)
	}
	r.flushSegmentContainer(d, seg)
	return r.format.WriteCompletedSegmentInstruction(d, seg.id)
}

func (r *Request) flushClientRenderedBoundary(d Destination, b *boundary) bool {
	return r.format.WriteClientRenderBoundaryInstruction(d, b.id)
}

func (r *Request) flushCompletedBoundary(d Destination, b *boundary) bool {
	if b.forceClientRender {
		b.completedSegments = nil
		return true
	}
	for _, seg := range b.completedSegments {
		r.flushPartiallyCompletedSegment(d, b, seg)
	}
	b.completedSegments = nil
	return r.format.WriteCompletedBoundaryInstruction(d, b.id, b.rootSegmentID)
}

// flushPartialBoundary writes the completed segments of a still pending
// boundary. On backpressure the unwritten remainder stays queued on b.
func (r *Request) flushPartialBoundary(d Destination, b *boundary) bool {
	if b.forceClientRender {
		b.completedSegments = nil
		return true
	}
	for i, seg := range b.completedSegments {
		if !r.flushPartiallyCompletedSegment(d, b, seg) {
			b.completedSegments = slices.Delete(b.completedSegments, 0, i+1)
			return false
		}
	}
	b.completedSegments = nil
	return true
}

// drainBoundaries flushes queue in order. Boundaries appended while
// draining are flushed in the same pass. On backpressure the flushed
// prefix is removed and false is returned.
func (r *Request) drainBoundaries(d Destination, queue *[]*boundary, flush func(Destination, *boundary) bool) bool {
	for i := 0; i < len(*queue); i++ {
		if !flush(d, (*queue)[i]) {
			*queue = slices.Delete(*queue, 0, i+1)
			return false
		}
	}
	*queue = nil
	return true
}

// drainPartialBoundaries is drainBoundaries for partial boundaries: a
// boundary that stopped with segments left stays at the head.
func (r *Request) drainPartialBoundaries(d Destination) bool {
	for i := 0; i < len(r.partialBoundaries); i++ {
		b := r.partialBoundaries[i]
		if !r.flushPartialBoundary(d, b) {
			done := i
			if len(b.completedSegments) == 0 {
				done = i + 1
			}
			r.partialBoundaries = slices.Delete(r.partialBoundaries, 0, done)
			return false
		}
	}
	r.partialBoundaries = nil
	return true
}

// drainQueues writes everything that is ready, in priority order. It
// returns false if the destination requested backpressure.
func (r *Request) drainQueues(d Destination) bool {
	if root := r.completedRootSegment; root != nil && r.pendingRootTasks == 0 {
		r.completedRootSegment = nil
		if !r.flushSegment(d, root) {
			return false
		}
	}

	if !r.drainBoundaries(d, &r.clientRenderedBoundaries, r.flushClientRenderedBoundary) {
		return false
	}
	if !r.drainBoundaries(d, &r.completedBoundaries, r.flushCompletedBoundary) {
		return false
	}

	// Let the destination push out the higher priority instructions
	// before the partial content.
	d.CompleteWriting()
	d.BeginWriting()

	if !r.drainPartialBoundaries(d) {
		return false
	}
	// Large boundaries deferred while flushing partial content.
	return r.drainBoundaries(d, &r.completedBoundaries, r.flushCompletedBoundary)
}

func (r *Request) flushCompletedQueues() {
	if r.flushing || r.status == StatusClosed {
		return
	}
	r.flushing = true
	defer func() { r.flushing = false }()

	r.collector.IncFlushPass()
	d := r.dest
	d.BeginWriting()
	ok := r.drainQueues(d)
	d.CompleteWriting()
	if !ok {
		r.status = StatusBuffering
		r.collector.IncBackpressureStop()
		r.armDrain()
	}
	d.FlushBuffered()

	if r.allPendingTasks == 0 &&
		len(r.pingedTasks) == 0 &&
		r.completedRootSegment == nil &&
		len(r.clientRenderedBoundaries) == 0 &&
		len(r.completedBoundaries) == 0 &&
		len(r.partialBoundaries) == 0 {
		r.close()
	}
}

// armDrain resumes flowing when a Drainer destination reports drain.
func (r *Request) armDrain() {
	drainer, ok := r.dest.(Drainer)
	if !ok || r.drainArmed {
		return
	}
	r.drainArmed = true
	drainer.OnDrain(func() {
		r.sched.Schedule(func() {
			r.drainArmed = false
			if r.status == StatusBuffering {
				r.startFlowing()
			}
		})
	})
}
