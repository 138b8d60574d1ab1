package engine

import (
	"cmp"
	"slices"

	"github.com/justapithecus/sluice/types"
)

// SegmentStatus is the lifecycle state of a segment.
type SegmentStatus int

// Segment states. Only Pending is non-terminal.
const (
	SegmentPending SegmentStatus = iota
	SegmentCompleted
	SegmentFlushed
	SegmentAborted
	SegmentErrored
)

var segmentStatusNames = [...]string{
	SegmentPending:   "pending",
	SegmentCompleted: "completed",
	SegmentFlushed:   "flushed",
	SegmentAborted:   "aborted",
	SegmentErrored:   "errored",
}

func (s SegmentStatus) String() string {
	if s >= 0 && int(s) < len(segmentStatusNames) {
		return segmentStatusNames[s]
	}
	return "unknown"
}

// segment is an output buffer produced by exactly one task. Child
// segments are spliced into chunks at their index when flushed.
type segment struct {
	status SegmentStatus
	// id is assigned lazily when the segment is first referenced by a
	// placeholder; -1 until then.
	id            int
	index         int
	parentFlushed bool
	chunks        [][]byte
	children      []*segment
	formatContext types.FormatContext
	// boundary is set when this segment is the fallback slot of a
	// suspense boundary.
	boundary *boundary
}

func newSegment(index int, b *boundary, fc types.FormatContext) *segment {
	return &segment{
		status:        SegmentPending,
		id:            -1,
		index:         index,
		boundary:      b,
		formatContext: fc,
	}
}

// byteSize returns the encoded size of the segment's own chunks.
func (s *segment) byteSize() int {
	n := 0
	for _, c := range s.chunks {
		n += len(c)
	}
	return n
}

// boundary tracks the content of one suspense subtree.
type boundary struct {
	id *types.BoundaryID
	// rootSegmentID is the segment id of the content root, assigned when
	// the boundary is first emitted as pending; -1 until then.
	rootSegmentID     int
	forceClientRender bool
	parentFlushed     bool
	pendingTasks      int
	completedSegments []*segment
	byteSize          int
	// fallbackAbortableTasks are cancelled when the content completes.
	fallbackAbortableTasks *taskSet
}

// taskSet is an insertion-ordered set of tasks.
type taskSet struct {
	seq   uint64
	tasks map[*task]uint64
}

func newTaskSet() *taskSet {
	return &taskSet{tasks: make(map[*task]uint64)}
}

func (s *taskSet) add(t *task) {
	s.seq++
	s.tasks[t] = s.seq
}

func (s *taskSet) delete(t *task) {
	delete(s.tasks, t)
}

func (s *taskSet) len() int {
	return len(s.tasks)
}

// drain removes and returns all tasks in insertion order.
func (s *taskSet) drain() []*task {
	out := make([]*task, 0, len(s.tasks))
	for t := range s.tasks {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *task) int {
		return cmp.Compare(s.tasks[a], s.tasks[b])
	})
	clear(s.tasks)
	return out
}
