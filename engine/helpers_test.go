package engine

import (
	"testing"

	"github.com/justapithecus/sluice/destination"
	"github.com/justapithecus/sluice/format/html"
	"github.com/justapithecus/sluice/types"
)

var _ Destination = (*destination.Stub)(nil)
var _ Destination = (*destination.Writer)(nil)
var _ Drainer = (*destination.Writer)(nil)
var _ Format = (*html.Format)(nil)

func newTestRequest(t *testing.T, root types.Node, opts Options) (*Request, *destination.Stub) {
	t.Helper()
	dest := &destination.Stub{}
	if opts.Scheduler == nil {
		opts.Scheduler = NewTrampoline()
	}
	if opts.RequestID == "" {
		opts.RequestID = t.Name()
	}
	return NewRequest(root, dest, html.New(html.Options{}), opts), dest
}

// waitFor returns a component that suspends until d resolves, then
// renders the resolved value as text.
func waitFor(name string, d *types.Deferred) *types.Component {
	return &types.Component{
		Name: name,
		Render: func(types.Scope, types.Props) (types.Node, error) {
			v, err := d.Result()
			if err != nil {
				return nil, err
			}
			if n, ok := v.(types.Node); ok {
				return n, nil
			}
			return types.Text(v.(string)), nil
		},
	}
}

func failing(name string, err error) *types.Component {
	return &types.Component{
		Name: name,
		Render: func(types.Scope, types.Props) (types.Node, error) {
			return nil, err
		},
	}
}

func suspense(fallback, children types.Node) *types.Suspense {
	return &types.Suspense{Fallback: fallback, Children: children}
}

// assertDrained checks the task accounting of a closed request.
func assertDrained(t *testing.T, r *Request) {
	t.Helper()
	if r.Status() != StatusClosed {
		t.Errorf("Status() = %s, want closed", r.Status())
	}
	if r.allPendingTasks != 0 {
		t.Errorf("allPendingTasks = %d, want 0", r.allPendingTasks)
	}
	if r.pendingRootTasks != 0 {
		t.Errorf("pendingRootTasks = %d, want 0", r.pendingRootTasks)
	}
	select {
	case <-r.Done():
	default:
		t.Error("Done() not closed")
	}
}
