package types

import (
	"errors"
	"sync"
)

// Wakeable is an in-flight dependency a render waits on. Then registers a
// callback invoked once the dependency settles; if it already settled the
// callback runs immediately. Then may be called more than once.
type Wakeable interface {
	Then(ping func())
}

// suspendError carries a Wakeable through the error return path.
type suspendError struct {
	wakeable Wakeable
}

func (e *suspendError) Error() string { return "render suspended on an unresolved dependency" }

// Suspend returns the error a component returns to signal that its output
// is not ready until w settles.
func Suspend(w Wakeable) error {
	return &suspendError{wakeable: w}
}

// AsWakeable reports whether err is a suspension and returns its dependency.
// Wrapped suspensions are recognized.
func AsWakeable(err error) (Wakeable, bool) {
	var se *suspendError
	if errors.As(err, &se) && se.wakeable != nil {
		return se.wakeable, true
	}
	return nil, false
}

// Deferred is a one-shot Wakeable resolved by its owner.
// Safe for concurrent use.
type Deferred struct {
	mu      sync.Mutex
	settled bool
	value   any
	err     error
	waiters []func()
}

// NewDeferred creates an unsettled Deferred.
func NewDeferred() *Deferred {
	return &Deferred{}
}

// Then implements Wakeable.
func (d *Deferred) Then(ping func()) {
	d.mu.Lock()
	if !d.settled {
		d.waiters = append(d.waiters, ping)
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	ping()
}

// Resolve settles d with a value. Later calls are ignored.
func (d *Deferred) Resolve(value any) {
	d.settle(value, nil)
}

// Reject settles d with an error. Later calls are ignored.
func (d *Deferred) Reject(err error) {
	d.settle(nil, err)
}

func (d *Deferred) settle(value any, err error) {
	d.mu.Lock()
	if d.settled {
		d.mu.Unlock()
		return
	}
	d.settled = true
	d.value = value
	d.err = err
	waiters := d.waiters
	d.waiters = nil
	d.mu.Unlock()

	for _, w := range waiters {
		w()
	}
}

// Settled reports whether d has been resolved or rejected.
func (d *Deferred) Settled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settled
}

// Result returns the settled value and error. Before settlement it returns
// a suspension on d, so a component can simply propagate the error:
//
//	v, err := d.Result()
//	if err != nil {
//		return nil, err
//	}
func (d *Deferred) Result() (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.settled {
		return nil, Suspend(d)
	}
	return d.value, d.err
}
