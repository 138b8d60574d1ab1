package tree

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/justapithecus/sluice/types"
)

// Factory builds the node for one occurrence of a component in a
// document. It is called on every Document.Build, so state captured by
// the returned node is private to that build.
type Factory func(name string, props types.Props, children types.Node) (types.Node, error)

// Registry maps component names to factories.
// Registration is not safe for concurrent use with Build.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry holding the built-in components:
//
//   - delay: renders its children after props.ms milliseconds, or fails
//     with props.reject once the delay elapses
//   - fail: fails with props.message
//   - each: repeats its children props.count times
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("delay", delayFactory)
	r.Register("fail", failFactory)
	r.Register("each", eachFactory)
	return r
}

// Register adds or replaces a component factory.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// Names returns the registered component names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Static returns a factory for a component that always renders fn's
// output. Children from the document are passed through fn.
func Static(fn func(props types.Props, children types.Node) types.Node) Factory {
	return func(name string, props types.Props, children types.Node) (types.Node, error) {
		return &types.Component{
			Name:  name,
			Props: props,
			Render: func(_ types.Scope, p types.Props) (types.Node, error) {
				return fn(p, children), nil
			},
		}, nil
	}
}

func delayFactory(name string, props types.Props, children types.Node) (types.Node, error) {
	ms := props.Int("ms", 0)
	if ms < 0 {
		return nil, fmt.Errorf("ms must be >= 0, got %d", ms)
	}
	if children == nil {
		if s := props.String("text"); s != "" {
			children = types.Text(s)
		}
	}
	reject := props.String("reject")

	var (
		once sync.Once
		dep  *types.Deferred
	)
	start := func() {
		dep = types.NewDeferred()
		time.AfterFunc(time.Duration(ms)*time.Millisecond, func() {
			if reject != "" {
				dep.Reject(errors.New(reject))
				return
			}
			dep.Resolve(nil)
		})
	}

	return &types.Component{
		Name:  name,
		Props: props,
		Render: func(types.Scope, types.Props) (types.Node, error) {
			once.Do(start)
			if _, err := dep.Result(); err != nil {
				return nil, err
			}
			return children, nil
		},
	}, nil
}

func failFactory(name string, props types.Props, _ types.Node) (types.Node, error) {
	msg := props.String("message")
	if msg == "" {
		msg = "render failed"
	}
	return &types.Component{
		Name:  name,
		Props: props,
		Render: func(types.Scope, types.Props) (types.Node, error) {
			return nil, errors.New(msg)
		},
	}, nil
}

func eachFactory(_ string, props types.Props, children types.Node) (types.Node, error) {
	count := props.Int("count", 1)
	if count < 0 {
		return nil, fmt.Errorf("count must be >= 0, got %d", count)
	}
	return types.Iterable(func(yield func(types.Node) bool) {
		for range count {
			if !yield(children) {
				return
			}
		}
	}), nil
}
