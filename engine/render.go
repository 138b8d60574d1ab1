package engine

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/justapithecus/sluice/types"
)

// renderNode renders n, absorbing a suspension by splitting the rest of
// n into a new task. Any other error propagates with the task's context
// restored to what it was on entry.
func (r *Request) renderNode(t *task, n types.Node) error {
	seg := t.blockedSegment
	prevFormat := seg.formatContext
	prevLegacy := t.legacyContext
	prevContext := t.context

	err := r.renderNodeDestructive(t, n)
	if err == nil {
		return nil
	}

	if w, ok := types.AsWakeable(err); ok {
		r.spawnSuspendedTask(t, w)
		err = nil
	}
	seg.formatContext = prevFormat
	t.legacyContext = prevLegacy
	t.context = prevContext
	return err
}

// renderNodeDestructive renders n into the task's segment. On error the
// task's context is left as it was at the failure point so a suspended
// task can be resumed from there.
func (r *Request) renderNodeDestructive(t *task, n types.Node) error {
	t.node = n

	switch node := n.(type) {
	case nil:
		r.pushEmpty(t)
		return nil
	case types.Text:
		r.pushText(t, string(node))
		return nil
	case types.Number:
		r.pushText(t, node.String())
		return nil
	case types.Fragment:
		return r.renderChildren(t, node)
	case types.Iterable:
		if node == nil {
			r.pushEmpty(t)
			return nil
		}
		children := slices.Collect(iter.Seq[types.Node](node))
		return r.renderChildren(t, children)
	case *types.Element:
		if node == nil {
			r.pushEmpty(t)
			return nil
		}
		return r.renderHostElement(t, node)
	case *types.Component:
		if node == nil {
			r.pushEmpty(t)
			return nil
		}
		return r.renderComponent(t, node)
	case *types.Suspense:
		if node == nil {
			r.pushEmpty(t)
			return nil
		}
		return r.renderSuspenseBoundary(t, node)
	case *types.Provider:
		if node == nil {
			r.pushEmpty(t)
			return nil
		}
		if node.Context == nil {
			return errors.New("provider has no context")
		}
		prev := t.context
		t.context = prev.push(node.Context, node.Value)
		if err := r.renderNodeDestructive(t, node.Children); err != nil {
			return err
		}
		t.context = prev
		return nil
	case *types.Consumer:
		if node == nil {
			r.pushEmpty(t)
			return nil
		}
		if node.Context == nil || node.Render == nil {
			return errors.New("consumer needs a context and a render function")
		}
		return r.renderNodeDestructive(t, node.Render(t.context.lookup(node.Context)))
	case *types.Lazy:
		if node == nil {
			r.pushEmpty(t)
			return nil
		}
		if node.Load == nil {
			return errors.New("lazy node has no loader")
		}
		resolved, err := node.Load()
		if err != nil {
			return err
		}
		return r.renderNodeDestructive(t, resolved)
	default:
		return fmt.Errorf("unsupported node kind %s (%T)", n.Kind(), n)
	}
}

func (r *Request) pushEmpty(t *task) {
	seg := t.blockedSegment
	seg.chunks = r.format.PushEmpty(seg.chunks, t.assignID)
	t.assignID = nil
}

func (r *Request) pushText(t *task, text string) {
	seg := t.blockedSegment
	seg.chunks = r.format.PushTextInstance(seg.chunks, text, t.assignID)
	t.assignID = nil
}

func (r *Request) renderChildren(t *task, children []types.Node) error {
	if len(children) == 0 {
		r.pushEmpty(t)
		return nil
	}
	for _, child := range children {
		if err := r.renderNode(t, child); err != nil {
			return err
		}
	}
	return nil
}

func (r *Request) renderHostElement(t *task, el *types.Element) error {
	seg := t.blockedSegment
	chunks, err := r.format.PushStartInstance(seg.chunks, el, seg.formatContext, t.assignID)
	if err != nil {
		return err
	}
	seg.chunks = chunks
	t.assignID = nil

	prev := seg.formatContext
	seg.formatContext = r.format.ChildFormatContext(prev, el.Tag, el.Props)
	if err := r.renderNode(t, el.Children); err != nil {
		return err
	}
	seg.formatContext = prev
	seg.chunks = r.format.PushEndInstance(seg.chunks, el)
	return nil
}

func (r *Request) renderComponent(t *task, c *types.Component) error {
	if c.Render == nil {
		return fmt.Errorf("component %s has no render function", c.DisplayName())
	}

	sc := &scope{task: t}
	out, err := callComponent(c, sc)
	if err != nil {
		if _, ok := types.AsWakeable(err); ok {
			return err
		}
		return fmt.Errorf("render %s: %w", c.DisplayName(), err)
	}

	if sc.child == nil {
		return r.renderNodeDestructive(t, out)
	}
	prev := t.legacyContext
	t.legacyContext = sc.child
	if err := r.renderNodeDestructive(t, out); err != nil {
		return err
	}
	t.legacyContext = prev
	return nil
}

func callComponent(c *types.Component, sc *scope) (out types.Node, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, &PanicError{Component: c.DisplayName(), Value: p}
		}
	}()
	return c.Render(sc, c.Props)
}

func (r *Request) renderSuspenseBoundary(t *task, s *types.Suspense) error {
	parentBoundary := t.blockedBoundary
	parentSegment := t.blockedSegment

	// A boundary stamps no element of its own; an id owed by an ancestor
	// fallback is discharged here.
	r.pushEmpty(t)

	fallbackAbortSet := newTaskSet()
	b := r.createBoundary(fallbackAbortSet)
	boundarySegment := newSegment(len(parentSegment.chunks), b, parentSegment.formatContext)
	parentSegment.children = append(parentSegment.children, boundarySegment)

	content := newSegment(0, nil, parentSegment.formatContext)
	content.parentFlushed = true

	err := func() error {
		t.blockedBoundary = b
		t.blockedSegment = content
		defer func() {
			t.blockedBoundary = parentBoundary
			t.blockedSegment = parentSegment
		}()
		return r.renderNode(t, s.Children)
	}()

	if err == nil {
		content.status = SegmentCompleted
		b.completedSegments = append(b.completedSegments, content)
		b.byteSize += content.byteSize()
		if b.pendingTasks == 0 {
			return nil
		}
	} else {
		content.status = SegmentErrored
		r.reportError(err)
		r.forceClientRender(b)
	}

	fallbackTask := r.createTask(s.Fallback, parentBoundary, boundarySegment, fallbackAbortSet, t.legacyContext, t.context, b.id)
	fallbackTask.queued = true
	r.pingedTasks = append(r.pingedTasks, fallbackTask)
	return nil
}
