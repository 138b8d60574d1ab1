// Package engine implements the streaming render core.
//
// A Request walks a component tree and produces output through a Format
// into a Destination. Parts of the tree that wait on an unresolved
// dependency are split off into their own task and segment; bytes for
// everything that is ready are flushed immediately, and late content is
// delivered out of order together with patch instructions that move it
// into place.
//
// # Work units
//
// A task is a resumable unit of render work. It writes into exactly one
// segment, a buffer of output chunks with slots for child segments. A
// boundary groups the segments of a suspense subtree: while any of its
// tasks is pending, the boundary's fallback is emitted in its place.
//
// # Scheduling
//
// All mutation of a Request happens on callbacks run by its Scheduler,
// one at a time. Dependencies may settle on any goroutine; settling only
// schedules a retry. The Trampoline scheduler provides this serialization
// for concurrent callers; ManualScheduler is for deterministic tests.
//
// # Backpressure
//
// Destination.WriteChunk reporting false stops the current flush at the
// next unit boundary. The request stays in the Buffering state until the
// caller calls StartFlowing again, or the destination reports drain via
// the optional Drainer interface.
package engine
