package runtime

import "github.com/justapithecus/sluice/engine"

// failedDestination keeps a request closing after its destination has
// failed. A failed destination never drains, so the engine would wait on
// backpressure forever; once Err reports a failure every later write is
// accepted and dropped instead.
type failedDestination struct {
	engine.Destination
	errs errReporter
}

// guardDestination wraps dest when it reports write errors.
func guardDestination(dest engine.Destination) engine.Destination {
	errs, ok := dest.(errReporter)
	if !ok {
		return dest
	}
	return &failedDestination{Destination: dest, errs: errs}
}

// WriteChunk implements engine.Destination.
func (d *failedDestination) WriteChunk(chunk []byte) bool {
	if d.Destination.WriteChunk(chunk) {
		return true
	}
	return d.errs.Err() != nil
}

// OnDrain implements engine.Drainer when the wrapped destination does.
func (d *failedDestination) OnDrain(fn func()) {
	if drainer, ok := d.Destination.(engine.Drainer); ok {
		drainer.OnDrain(fn)
	}
}
