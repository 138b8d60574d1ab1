package engine

import "github.com/justapithecus/sluice/types"

// contextSnapshot is an immutable stack of provided context values.
// Tasks capture a snapshot pointer, so resuming a task restores exactly
// the providers that were in scope when it was created.
type contextSnapshot struct {
	parent  *contextSnapshot
	context *types.Context
	value   any
}

func (s *contextSnapshot) push(c *types.Context, value any) *contextSnapshot {
	return &contextSnapshot{parent: s, context: c, value: value}
}

func (s *contextSnapshot) lookup(c *types.Context) any {
	for n := s; n != nil; n = n.parent {
		if n.context == c {
			return n.value
		}
	}
	return c.Default()
}

// legacyContext is the key-value context inherited by all descendants.
// Values are never mutated in place; with returns a copy.
type legacyContext map[string]any

func (l legacyContext) with(key string, value any) legacyContext {
	out := make(legacyContext, len(l)+1)
	for k, v := range l {
		out[k] = v
	}
	out[key] = value
	return out
}

// scope is the types.Scope handed to a rendering component.
type scope struct {
	task *task
	// child is the legacy context the component provides to its
	// descendants, nil if it provides none.
	child legacyContext
}

func (s *scope) Value(c *types.Context) any {
	return s.task.context.lookup(c)
}

func (s *scope) Legacy(key string) any {
	return s.task.legacyContext[key]
}

func (s *scope) ProvideLegacy(key string, value any) {
	if s.child == nil {
		s.child = s.task.legacyContext
	}
	s.child = s.child.with(key, value)
}
