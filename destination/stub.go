package destination

import "bytes"

// Stub records every call for inspection in tests.
type Stub struct {
	Chunks []string
	// StopAt lists 1-based write numbers that report backpressure.
	StopAt map[int]bool
	// StopWhen, if set, reports backpressure for chunks it matches.
	StopWhen func(chunk []byte) bool

	Begins    int
	Completes int
	Flushes   int
	Closed    bool
	CloseErr  error
	// Batches holds the output of each FlushBuffered call.
	Batches []string

	pending bytes.Buffer
}

// BeginWriting implements engine.Destination.
func (s *Stub) BeginWriting() { s.Begins++ }

// CompleteWriting implements engine.Destination.
func (s *Stub) CompleteWriting() { s.Completes++ }

// WriteChunk implements engine.Destination.
func (s *Stub) WriteChunk(chunk []byte) bool {
	s.Chunks = append(s.Chunks, string(chunk))
	s.pending.Write(chunk)
	if s.StopWhen != nil && s.StopWhen(chunk) {
		return false
	}
	return !s.StopAt[len(s.Chunks)]
}

// FlushBuffered implements engine.Destination.
func (s *Stub) FlushBuffered() {
	s.Flushes++
	if s.pending.Len() > 0 {
		s.Batches = append(s.Batches, s.pending.String())
		s.pending.Reset()
	}
}

// Close implements engine.Destination.
func (s *Stub) Close() error {
	if s.Closed {
		return ErrClosed
	}
	s.Closed = true
	return nil
}

// CloseWithError implements engine.Destination.
func (s *Stub) CloseWithError(err error) error {
	s.CloseErr = err
	return s.Close()
}

// String returns everything written so far.
func (s *Stub) String() string {
	var b bytes.Buffer
	for _, c := range s.Chunks {
		b.WriteString(c)
	}
	return b.String()
}

// Writes returns the number of WriteChunk calls.
func (s *Stub) Writes() int { return len(s.Chunks) }
