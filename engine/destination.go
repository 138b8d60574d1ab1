package engine

import "github.com/justapithecus/sluice/types"

// Destination is the byte sink of a render request.
//
// BeginWriting and CompleteWriting bracket a batch of writes; a
// destination may use them to coalesce output. WriteChunk returns false
// to request backpressure. FlushBuffered pushes any batched bytes to the
// underlying transport.
type Destination interface {
	types.ChunkWriter
	BeginWriting()
	CompleteWriting()
	FlushBuffered()
	Close() error
	CloseWithError(err error) error
}

// Drainer is implemented by destinations that can signal when a stopped
// write has drained. fn is invoked once, on any goroutine.
type Drainer interface {
	OnDrain(fn func())
}

// Format produces the concrete output encoding.
//
// Push methods append render output to a segment's chunk list and return
// the extended list. Write methods emit structural markers and client
// instructions directly to the destination and return its backpressure
// signal.
type Format interface {
	RootFormatContext() types.FormatContext
	ChildFormatContext(parent types.FormatContext, tag string, props types.Props) types.FormatContext
	CreateSuspenseBoundaryID() *types.BoundaryID

	PushStartInstance(target [][]byte, el *types.Element, fc types.FormatContext, assignID *types.BoundaryID) ([][]byte, error)
	PushEndInstance(target [][]byte, el *types.Element) [][]byte
	PushTextInstance(target [][]byte, text string, assignID *types.BoundaryID) [][]byte
	PushEmpty(target [][]byte, assignID *types.BoundaryID) [][]byte

	WritePlaceholder(w types.ChunkWriter, id int) bool
	WriteStartCompletedSuspenseBoundary(w types.ChunkWriter) bool
	WriteStartPendingSuspenseBoundary(w types.ChunkWriter, id *types.BoundaryID) bool
	WriteStartClientRenderedSuspenseBoundary(w types.ChunkWriter) bool
	WriteEndSuspenseBoundary(w types.ChunkWriter) bool
	WriteStartSegment(w types.ChunkWriter, fc types.FormatContext, id int) bool
	WriteEndSegment(w types.ChunkWriter, fc types.FormatContext) bool
	WriteCompletedSegmentInstruction(w types.ChunkWriter, id int) bool
	WriteCompletedBoundaryInstruction(w types.ChunkWriter, id *types.BoundaryID, contentSegmentID int) bool
	WriteClientRenderBoundaryInstruction(w types.ChunkWriter, id *types.BoundaryID) bool
}
