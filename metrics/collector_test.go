package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("html", "writer", "fs", "req-001")

	c.IncTaskCreated()
	c.IncTaskCreated()
	c.IncTaskCreated()
	c.IncTaskCompleted()
	c.IncTaskCompleted()
	c.IncTaskErrored()
	c.IncTaskAborted()
	c.IncTaskSuspended()
	c.IncTaskSuspended()
	c.IncBoundaryCreated()
	c.IncBoundaryClientRendered()
	c.IncSegmentFlushed()
	c.IncSegmentFlushed()
	c.IncFlushPass()
	c.IncBackpressureStop()
	c.AddBytesWritten(120)
	c.AddBytesWritten(8)
	c.IncErrorReported()
	c.IncFrameWritten()
	c.IncLodeWriteSuccess()
	c.IncLodeWriteSuccess()
	c.IncLodeWriteFailure()

	s := c.Snapshot()

	checks := []struct {
		name string
		got  int64
		want int64
	}{
		{"TasksCreated", s.TasksCreated, 3},
		{"TasksCompleted", s.TasksCompleted, 2},
		{"TasksErrored", s.TasksErrored, 1},
		{"TasksAborted", s.TasksAborted, 1},
		{"TasksSuspended", s.TasksSuspended, 2},
		{"BoundariesCreated", s.BoundariesCreated, 1},
		{"BoundariesClientRendered", s.BoundariesClientRendered, 1},
		{"SegmentsFlushed", s.SegmentsFlushed, 2},
		{"FlushPasses", s.FlushPasses, 1},
		{"BackpressureStops", s.BackpressureStops, 1},
		{"BytesWritten", s.BytesWritten, 128},
		{"ErrorsReported", s.ErrorsReported, 1},
		{"FramesWritten", s.FramesWritten, 1},
		{"LodeWriteSuccess", s.LodeWriteSuccess, 2},
		{"LodeWriteFailure", s.LodeWriteFailure, 1},
	}
	for _, tc := range checks {
		if tc.got != tc.want {
			t.Errorf("%s = %d, want %d", tc.name, tc.got, tc.want)
		}
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("html", "http", "s3", "req-42")
	s := c.Snapshot()

	if s.Format != "html" {
		t.Errorf("Format = %q, want %q", s.Format, "html")
	}
	if s.Destination != "http" {
		t.Errorf("Destination = %q, want %q", s.Destination, "http")
	}
	if s.StorageBackend != "s3" {
		t.Errorf("StorageBackend = %q, want %q", s.StorageBackend, "s3")
	}
	if s.RequestID != "req-42" {
		t.Errorf("RequestID = %q, want %q", s.RequestID, "req-42")
	}
}

func TestCollector_SnapshotImmutability(t *testing.T) {
	c := NewCollector("html", "writer", "", "req-001")
	c.IncTaskCreated()
	c.IncLodeWriteSuccess()

	s1 := c.Snapshot()

	c.IncTaskCompleted()
	c.IncLodeWriteSuccess()
	c.IncLodeWriteSuccess()

	if s1.TasksCompleted != 0 {
		t.Errorf("s1.TasksCompleted = %d, want 0 (snapshot should be frozen)", s1.TasksCompleted)
	}
	if s1.LodeWriteSuccess != 1 {
		t.Errorf("s1.LodeWriteSuccess = %d, want 1 (snapshot should be frozen)", s1.LodeWriteSuccess)
	}

	s2 := c.Snapshot()
	if s2.TasksCompleted != 1 {
		t.Errorf("s2.TasksCompleted = %d, want 1", s2.TasksCompleted)
	}
	if s2.LodeWriteSuccess != 3 {
		t.Errorf("s2.LodeWriteSuccess = %d, want 3", s2.LodeWriteSuccess)
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	// None of these should panic
	c.IncTaskCreated()
	c.IncTaskCompleted()
	c.IncTaskErrored()
	c.IncTaskAborted()
	c.IncTaskSuspended()
	c.IncBoundaryCreated()
	c.IncBoundaryClientRendered()
	c.IncSegmentFlushed()
	c.IncFlushPass()
	c.IncBackpressureStop()
	c.AddBytesWritten(10)
	c.IncErrorReported()
	c.IncFrameWritten()
	c.IncLodeWriteSuccess()
	c.IncLodeWriteFailure()

	s := c.Snapshot()
	if s.TasksCreated != 0 {
		t.Errorf("nil collector snapshot TasksCreated = %d, want 0", s.TasksCreated)
	}
	if s.Format != "" {
		t.Errorf("nil collector snapshot Format = %q, want empty", s.Format)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("html", "writer", "", "req-001")
	const goroutines = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				c.IncTaskCreated()
				c.AddBytesWritten(2)
				c.IncFrameWritten()
			}
		}()
	}

	wg.Wait()

	s := c.Snapshot()
	want := int64(goroutines * iterations)

	if s.TasksCreated != want {
		t.Errorf("TasksCreated = %d, want %d", s.TasksCreated, want)
	}
	if s.BytesWritten != 2*want {
		t.Errorf("BytesWritten = %d, want %d", s.BytesWritten, 2*want)
	}
	if s.FramesWritten != want {
		t.Errorf("FramesWritten = %d, want %d", s.FramesWritten, want)
	}
}

func TestCollector_ZeroValueSnapshot(t *testing.T) {
	c := NewCollector("html", "writer", "", "")
	s := c.Snapshot()

	if s.TasksCreated != 0 || s.TasksCompleted != 0 || s.TasksErrored != 0 || s.TasksAborted != 0 {
		t.Error("fresh collector should have zero task counters")
	}
	if s.SegmentsFlushed != 0 || s.FlushPasses != 0 || s.BytesWritten != 0 {
		t.Error("fresh collector should have zero flush counters")
	}
	if s.LodeWriteSuccess != 0 || s.LodeWriteFailure != 0 {
		t.Error("fresh collector should have zero Lode counters")
	}
}
