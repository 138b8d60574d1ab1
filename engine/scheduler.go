package engine

import "sync"

// Scheduler runs engine callbacks. Callbacks handed to one scheduler must
// never run concurrently with each other.
type Scheduler interface {
	Schedule(fn func())
}

// Trampoline runs callbacks in FIFO order on the calling goroutine.
// A callback scheduled while another runs is queued and executed by the
// goroutine already draining the queue, so nested scheduling never
// recurses. Safe for concurrent use.
type Trampoline struct {
	mu      sync.Mutex
	running bool
	queue   []func()
}

// NewTrampoline creates an idle Trampoline.
func NewTrampoline() *Trampoline {
	return &Trampoline{}
}

// Schedule implements Scheduler.
func (t *Trampoline) Schedule(fn func()) {
	t.mu.Lock()
	t.queue = append(t.queue, fn)
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.mu.Unlock()

	t.drain()
}

func (t *Trampoline) drain() {
	done := false
	// A panicking callback must not leave the trampoline marked running;
	// the remaining queue is drained by the next Schedule call.
	defer func() {
		if !done {
			t.mu.Lock()
			t.running = false
			t.mu.Unlock()
		}
	}()

	for {
		t.mu.Lock()
		if len(t.queue) == 0 {
			t.running = false
			t.mu.Unlock()
			done = true
			return
		}
		next := t.queue[0]
		t.queue[0] = nil
		t.queue = t.queue[1:]
		t.mu.Unlock()

		next()
	}
}

// ManualScheduler queues callbacks until RunPending is called.
// Intended for tests that step a request deterministically.
type ManualScheduler struct {
	mu    sync.Mutex
	queue []func()
}

// Schedule implements Scheduler.
func (m *ManualScheduler) Schedule(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()
}

// Pending returns the number of queued callbacks.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// RunNext runs the oldest queued callback. It reports false if the queue
// was empty.
func (m *ManualScheduler) RunNext() bool {
	m.mu.Lock()
	if len(m.queue) == 0 {
		m.mu.Unlock()
		return false
	}
	next := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	m.mu.Unlock()

	next()
	return true
}

// RunPending runs queued callbacks, including ones they schedule, until
// the queue is empty. It returns the number of callbacks run.
func (m *ManualScheduler) RunPending() int {
	n := 0
	for m.RunNext() {
		n++
	}
	return n
}
