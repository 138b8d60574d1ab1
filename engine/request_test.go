package engine

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/justapithecus/sluice/destination"
	"github.com/justapithecus/sluice/format/html"
	"github.com/justapithecus/sluice/metrics"
	"github.com/justapithecus/sluice/types"
)

var elementID = regexp.MustCompile(`id="([^"]+)"`)

func newGolden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRender_SynchronousTree(t *testing.T) {
	var events []string
	root := types.El("div", types.Props{"className": "greeting"}, types.Text("hello "), types.Number(3))
	r, dest := newTestRequest(t, root, Options{
		OnReadyToStream: func() { events = append(events, "ready") },
		OnCompleteAll:   func() { events = append(events, "all") },
	})

	r.StartWork()
	if len(events) != 2 || events[0] != "ready" || events[1] != "all" {
		t.Errorf("events = %v, want [ready all]", events)
	}
	if dest.Writes() != 0 {
		t.Errorf("wrote %d chunks before StartFlowing, want 0", dest.Writes())
	}

	r.StartFlowing()
	if got, want := dest.String(), `<div class="greeting">hello 3</div>`; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if !dest.Closed || dest.CloseErr != nil {
		t.Errorf("Closed = %v, CloseErr = %v; want closed without error", dest.Closed, dest.CloseErr)
	}
	if o := r.Outcome(); o.Status != types.OutcomeSuccess {
		t.Errorf("Outcome().Status = %s, want success", o.Status)
	}
	assertDrained(t, r)
}

func TestRender_StreamsLateContent(t *testing.T) {
	d := types.NewDeferred()
	root := types.Fragment{
		types.El("main", nil, types.Text("shell")),
		suspense(types.Text("Loading"), types.El("section", nil, waitFor("Feed", d))),
	}
	r, dest := newTestRequest(t, root, Options{})

	r.StartWork()
	r.StartFlowing()

	wantShell := `<main>shell</main>` +
		`<!--$?--><template id="B:0"></template>Loading<!--/$-->` +
		`<div hidden id="S:0"><section><template id="P:1"></template></section></div>`
	if got := dest.String(); got != wantShell {
		t.Fatalf("shell =\n%s\nwant\n%s", got, wantShell)
	}
	if dest.Closed {
		t.Fatal("destination closed while content is pending")
	}

	// Nothing new to write.
	writes := dest.Writes()
	r.StartFlowing()
	if dest.Writes() != writes {
		t.Errorf("idle flush wrote %d chunks, want 0", dest.Writes()-writes)
	}

	d.Resolve("posts")

	newGolden(t).Assert(t, "late_content", []byte(dest.String()))
	if !dest.Closed {
		t.Error("destination not closed after all content streamed")
	}
	assertDrained(t, r)
}

func TestRender_ResolvedBeforeFlowingIsInlined(t *testing.T) {
	d := types.NewDeferred()
	root := types.Fragment{
		types.El("main", nil, types.Text("shell")),
		suspense(types.Text("Loading"), types.El("section", nil, waitFor("Feed", d))),
	}
	completed := false
	r, dest := newTestRequest(t, root, Options{OnCompleteAll: func() { completed = true }})

	r.StartWork()
	d.Resolve("posts")
	if !completed {
		t.Fatal("OnCompleteAll not called after last dependency resolved")
	}
	r.StartFlowing()

	want := `<main>shell</main><!--$--><section>posts</section><!--/$-->`
	if got := dest.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	assertDrained(t, r)
}

func TestRender_LargeBoundaryStreamsOutOfLine(t *testing.T) {
	root := suspense(types.Text("Loading"), types.El("p", nil, types.Text("0123456789")))
	r, dest := newTestRequest(t, root, Options{ProgressiveChunkSize: 8})

	r.StartWork()
	r.StartFlowing()

	newGolden(t).Assert(t, "large_boundary", []byte(dest.String()))
	assertDrained(t, r)
}

func TestRender_ContentErrorRendersFallbackForClient(t *testing.T) {
	dbDown := errors.New("db down")
	var reported []error
	root := suspense(types.Text("Loading"), failing("Broken", dbDown))
	r, dest := newTestRequest(t, root, Options{OnError: func(err error) { reported = append(reported, err) }})

	r.StartWork()
	r.StartFlowing()

	want := `<!--$!--><template id="B:0"></template>Loading<!--/$-->`
	if got := dest.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if len(reported) != 1 || !errors.Is(reported[0], dbDown) {
		t.Fatalf("reported = %v, want one error wrapping %v", reported, dbDown)
	}
	if !strings.Contains(reported[0].Error(), "render Broken") {
		t.Errorf("error %q should name the component", reported[0])
	}

	o := r.Outcome()
	if o.Status != types.OutcomeSuccess {
		t.Errorf("Outcome().Status = %s, want success", o.Status)
	}
	if o.ClientRendered != 1 || o.ReportedErrors != 1 {
		t.Errorf("ClientRendered = %d, ReportedErrors = %d; want 1, 1", o.ClientRendered, o.ReportedErrors)
	}
	assertDrained(t, r)
}

func TestRender_LateErrorSendsClientRenderInstruction(t *testing.T) {
	d := types.NewDeferred()
	root := suspense(types.Text("Loading"), waitFor("Feed", d))
	r, dest := newTestRequest(t, root, Options{})

	r.StartWork()
	r.StartFlowing()
	d.Reject(errors.New("upstream timeout"))

	out := dest.String()
	if !strings.Contains(out, `$RX("B:0")`) {
		t.Errorf("output %q has no client render instruction", out)
	}
	if strings.Contains(out, `$RC(`) {
		t.Errorf("output %q completes a client rendered boundary", out)
	}
	if o := r.Outcome(); o.Status != types.OutcomeSuccess || o.ClientRendered != 1 {
		t.Errorf("Outcome() = %+v, want success with 1 client rendered boundary", o)
	}
	assertDrained(t, r)
}

func TestRender_RootErrorIsFatal(t *testing.T) {
	boom := errors.New("boom")
	var reported, completed int
	root := types.El("div", nil, failing("Header", boom))
	r, dest := newTestRequest(t, root, Options{
		OnError:       func(error) { reported++ },
		OnCompleteAll: func() { completed++ },
	})

	r.StartWork()
	r.StartFlowing()

	if !errors.Is(dest.CloseErr, boom) {
		t.Errorf("CloseErr = %v, want %v", dest.CloseErr, boom)
	}
	if dest.Writes() != 0 {
		t.Errorf("wrote %q after fatal error", dest.String())
	}
	if reported != 1 {
		t.Errorf("OnError called %d times, want 1", reported)
	}
	o := r.Outcome()
	if o.Status != types.OutcomeRenderError {
		t.Errorf("Outcome().Status = %s, want render_error", o.Status)
	}
	if !strings.Contains(o.Message, "render Header: boom") {
		t.Errorf("Outcome().Message = %q", o.Message)
	}
	if completed != 1 {
		t.Errorf("OnCompleteAll called %d times, want 1", completed)
	}
	assertDrained(t, r)
}

func TestRender_SiblingBoundariesCompleteOutOfOrder(t *testing.T) {
	da, db, dc := types.NewDeferred(), types.NewDeferred(), types.NewDeferred()
	root := types.Fragment{
		suspense(types.Text("a…"), waitFor("A", da)),
		suspense(types.Text("b…"), waitFor("B", db)),
		suspense(types.Text("c…"), waitFor("C", dc)),
	}
	r, dest := newTestRequest(t, root, Options{})

	r.StartWork()
	r.StartFlowing()

	shell := dest.String()
	ia, ib, ic := strings.Index(shell, "a…"), strings.Index(shell, "b…"), strings.Index(shell, "c…")
	if ia < 0 || ia > ib || ib > ic {
		t.Fatalf("fallbacks out of document order in shell:\n%s", shell)
	}
	for i, id := range []string{"B:0", "B:1", "B:2"} {
		if n := strings.Count(shell, `<template id="`+id+`">`); n != 1 {
			t.Errorf("fallback %d: found %d templates for %s, want 1", i, n, id)
		}
	}

	db.Resolve("beta")
	afterB := dest.String()[len(shell):]
	if !strings.Contains(afterB, `>beta</div>`) || !strings.Contains(afterB, `$RC("B:1"`) {
		t.Errorf("second boundary not streamed on resolve:\n%s", afterB)
	}
	if strings.Contains(afterB, `$RC("B:0"`) || strings.Contains(afterB, `$RC("B:2"`) {
		t.Errorf("unresolved boundary completed:\n%s", afterB)
	}

	dc.Resolve("gamma")
	da.Resolve("alpha")

	out := dest.String()
	rc0, rc1, rc2 := strings.Index(out, `$RC("B:0"`), strings.Index(out, `$RC("B:1"`), strings.Index(out, `$RC("B:2"`)
	if rc0 < 0 || rc1 < 0 || rc2 < 0 {
		t.Fatalf("missing boundary completion:\n%s", out)
	}
	if !(rc1 < rc2 && rc2 < rc0) {
		t.Errorf("completions at %d, %d, %d; want B:1 then B:2 then B:0", rc1, rc2, rc0)
	}
	if i := strings.Index(out, `>alpha</div>`); i < rc2 || i > rc0 {
		t.Errorf("first boundary content at %d, want between %d and %d", i, rc2, rc0)
	}
	if n := strings.Count(out, "$RC=function"); n != 1 {
		t.Errorf("completion runtime sent %d times, want 1", n)
	}
	assertDrained(t, r)
}

func TestRender_PendingCountsConserved(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		// build returns the tree and the steps run after the shell is flowing.
		build func() (types.Node, func(r *Request))
	}{
		{
			name: "synchronous",
			build: func() (types.Node, func(*Request)) {
				return types.El("div", nil, types.Text("hello")), func(*Request) {}
			},
		},
		{
			name: "boundary error",
			build: func() (types.Node, func(*Request)) {
				return suspense(types.Text("…"), failing("Broken", boom)), func(*Request) {}
			},
		},
		{
			name: "late boundary error",
			build: func() (types.Node, func(*Request)) {
				d := types.NewDeferred()
				return suspense(types.Text("…"), waitFor("Feed", d)), func(*Request) { d.Reject(boom) }
			},
		},
		{
			name: "abort with two pending boundaries",
			build: func() (types.Node, func(*Request)) {
				d1, d2 := types.NewDeferred(), types.NewDeferred()
				root := types.Fragment{
					suspense(types.Text("one"), waitFor("One", d1)),
					suspense(types.Text("two"), waitFor("Two", d2)),
				}
				return root, func(r *Request) {
					r.Abort(errors.New("deadline"))
					d1.Resolve("late")
					d2.Resolve("late")
				}
			},
		},
		{
			name: "root error beside a pending boundary",
			build: func() (types.Node, func(*Request)) {
				d := types.NewDeferred()
				root := types.Fragment{
					suspense(types.Text("…"), waitFor("Feed", d)),
					failing("Header", boom),
				}
				return root, func(*Request) { d.Resolve("late") }
			},
		},
		{
			name: "root error after suspension",
			build: func() (types.Node, func(*Request)) {
				d := types.NewDeferred()
				root := types.Fragment{
					waitFor("Slow", d),
					suspense(types.Text("…"), types.Text("ready")),
				}
				return root, func(*Request) { d.Reject(boom) }
			},
		},
		{
			name: "cancelled fallback",
			build: func() (types.Node, func(*Request)) {
				fd, cd := types.NewDeferred(), types.NewDeferred()
				return suspense(waitFor("Spinner", fd), waitFor("Body", cd)), func(*Request) {
					cd.Resolve("body")
					fd.Resolve("spin")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completed := 0
			root, steps := tt.build()
			r, _ := newTestRequest(t, root, Options{OnCompleteAll: func() { completed++ }})

			r.StartWork()
			r.StartFlowing()
			steps(r)

			if completed != 1 {
				t.Errorf("OnCompleteAll called %d times, want 1", completed)
			}
			assertDrained(t, r)
			for i, b := range r.boundaries {
				if b.pendingTasks != 0 {
					t.Errorf("boundary %d pendingTasks = %d, want 0", i, b.pendingTasks)
				}
			}
		})
	}
}

func TestRender_BoundaryIDWrittenOnce(t *testing.T) {
	spin, feed := types.NewDeferred(), types.NewDeferred()
	inner := suspense(waitFor("Spinner", spin), waitFor("Feed", feed))
	root := suspense(types.Text("outer"), types.El("main", nil, inner))
	r, dest := newTestRequest(t, root, Options{})

	r.StartWork()
	r.StartFlowing()
	spin.Resolve(types.El("span", nil, types.Text("spin")))
	feed.Resolve("feed")

	seen := make(map[string]int)
	for _, m := range elementID.FindAllStringSubmatch(dest.String(), -1) {
		seen[m[1]]++
	}
	for id, n := range seen {
		if n > 1 {
			t.Errorf("id %q written %d times in\n%s", id, n, dest.String())
		}
	}
	if !strings.Contains(dest.String(), "feed") {
		t.Errorf("content not streamed:\n%s", dest.String())
	}
	assertDrained(t, r)
}

func TestRender_BackpressureResumesWithRemainder(t *testing.T) {
	sched := &ManualScheduler{}
	da, db, dc := types.NewDeferred(), types.NewDeferred(), types.NewDeferred()
	root := suspense(types.Text("…"), types.Fragment{
		waitFor("A", da), waitFor("B", db), waitFor("C", dc),
	})
	collector := metrics.NewCollector("html", "stub", "", "")
	r, dest := newTestRequest(t, root, Options{Scheduler: sched, Collector: collector})

	r.StartWork()
	sched.RunPending()
	r.StartFlowing()
	sched.RunPending()

	wantShell := `<!--$?--><template id="B:0"></template>…<!--/$-->` +
		`<div hidden id="S:0"><template id="P:1"></template><template id="P:2"></template><template id="P:3"></template></div>`
	if got := dest.String(); got != wantShell {
		t.Fatalf("shell =\n%s\nwant\n%s", got, wantShell)
	}

	stopped := false
	dest.StopWhen = func(chunk []byte) bool {
		if !stopped && string(chunk) == "</script>" {
			stopped = true
			return true
		}
		return false
	}
	da.Resolve("a")
	db.Resolve("b")
	sched.RunPending()

	if r.Status() != StatusBuffering {
		t.Fatalf("Status() = %s, want buffering after backpressure", r.Status())
	}
	out := dest.String()
	if !strings.Contains(out, `$RS("S:1","P:1")`) {
		t.Errorf("first segment not written before stop: %q", out)
	}
	if strings.Contains(out, `S:2`) {
		t.Errorf("second segment written past backpressure: %q", out)
	}

	before := dest.Writes()
	r.StartFlowing()
	sched.RunPending()
	resumed := strings.Join(dest.Chunks[before:], "")
	if want := `<div hidden id="S:2">b</div><script>$RS("S:2","P:2")</script>`; resumed != want {
		t.Errorf("resumed output = %q, want %q", resumed, want)
	}

	dc.Resolve("c")
	sched.RunPending()
	out = dest.String()
	if !strings.Contains(out, `$RS("S:3","P:3")`) || !strings.Contains(out, `$RC("B:0","S:0")`) {
		t.Errorf("final output missing completion instructions: %q", out)
	}
	if got := collector.Snapshot().BackpressureStops; got != 1 {
		t.Errorf("BackpressureStops = %d, want 1", got)
	}
	assertDrained(t, r)
}

func TestRender_DrainerResumesFlowing(t *testing.T) {
	sched := &ManualScheduler{}
	da, db := types.NewDeferred(), types.NewDeferred()
	root := types.Fragment{
		suspense(types.Text("L1"), waitFor("A", da)),
		suspense(types.Text("L2"), waitFor("B", db)),
	}
	var out bytes.Buffer
	collector := metrics.NewCollector("html", "writer", "", "")
	dest := destination.NewWriter(&out, destination.WriterOptions{HighWaterMark: 1})
	r := NewRequest(root, dest, html.New(html.Options{}), Options{Scheduler: sched, Collector: collector})

	r.StartWork()
	r.StartFlowing()
	sched.RunPending()
	da.Resolve("a")
	db.Resolve("b")
	sched.RunPending()

	if n := strings.Count(out.String(), "$RC("); n != 2 {
		t.Errorf("output has %d boundary completions, want 2:\n%s", n, out.String())
	}
	if !dest.Closed() {
		t.Error("destination not closed")
	}
	if collector.Snapshot().BackpressureStops == 0 {
		t.Error("expected at least one backpressure stop")
	}
	assertDrained(t, r)
}

func TestRender_ReadyToStreamStartsFlowing(t *testing.T) {
	d := types.NewDeferred()
	var r *Request
	root := suspense(types.Text("Loading"), waitFor("Feed", d))
	r, dest := newTestRequest(t, root, Options{
		OnReadyToStream: func() { r.StartFlowing() },
	})

	r.StartWork()
	if !strings.HasPrefix(dest.String(), `<!--$?-->`) {
		t.Fatalf("shell not streamed on ready: %q", dest.String())
	}
	d.Resolve("done")
	assertDrained(t, r)
}

func TestRender_NestedBoundaries(t *testing.T) {
	d1, d2 := types.NewDeferred(), types.NewDeferred()
	root := suspense(types.Text("outer"), types.Fragment{
		waitFor("A", d1),
		suspense(types.Text("inner"), waitFor("B", d2)),
	})
	r, dest := newTestRequest(t, root, Options{})

	r.StartWork()
	r.StartFlowing()
	d2.Resolve("b")
	if dest.Closed {
		t.Fatal("closed while outer content pending")
	}
	d1.Resolve("a")

	out := dest.String()
	if n := strings.Count(out, "$RC("); n != 2 {
		t.Errorf("output has %d boundary completions, want 2:\n%s", n, out)
	}
	if !strings.Contains(out, `$RC("B:0"`) || !strings.Contains(out, `$RC("B:1"`) {
		t.Errorf("output does not complete both boundaries:\n%s", out)
	}
	assertDrained(t, r)
}

func TestRender_CompletedContentCancelsFallback(t *testing.T) {
	fallbackDep, contentDep := types.NewDeferred(), types.NewDeferred()
	collector := metrics.NewCollector("html", "stub", "", "")
	root := suspense(waitFor("Spinner", fallbackDep), waitFor("Body", contentDep))
	r, dest := newTestRequest(t, root, Options{Collector: collector})

	r.StartWork()
	contentDep.Resolve("body")
	r.StartFlowing()

	if got, want := dest.String(), `<!--$-->body<!--/$-->`; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if got := collector.Snapshot().TasksAborted; got != 1 {
		t.Errorf("TasksAborted = %d, want 1", got)
	}
	assertDrained(t, r)

	// A late fallback dependency is ignored.
	fallbackDep.Resolve("spinner")
	if strings.Contains(dest.String(), "spinner") {
		t.Error("cancelled fallback was rendered")
	}
}

func TestRender_ContextSurvivesSuspension(t *testing.T) {
	theme := types.NewContext("theme", "light")
	d := types.NewDeferred()
	reader := &types.Component{
		Name: "Reader",
		Render: func(s types.Scope, _ types.Props) (types.Node, error) {
			v, err := d.Result()
			if err != nil {
				return nil, err
			}
			return types.Text(s.Value(theme).(string) + ":" + v.(string)), nil
		},
	}
	root := types.Fragment{
		&types.Provider{Context: theme, Value: "dark", Children: suspense(types.Text("…"), reader)},
		&types.Consumer{Context: theme, Render: func(v any) types.Node { return types.Text("|" + v.(string)) }},
	}
	r, dest := newTestRequest(t, root, Options{})

	r.StartWork()
	d.Resolve("x")
	r.StartFlowing()

	if got, want := dest.String(), `<!--$-->dark:x<!--/$-->|light`; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	assertDrained(t, r)
}

func TestRender_LegacyContextScopedToSubtree(t *testing.T) {
	child := &types.Component{
		Name: "Child",
		Render: func(s types.Scope, _ types.Props) (types.Node, error) {
			if v, ok := s.Legacy("locale").(string); ok {
				return types.Text(v), nil
			}
			return types.Text("none"), nil
		},
	}
	parent := &types.Component{
		Name: "Parent",
		Render: func(s types.Scope, _ types.Props) (types.Node, error) {
			s.ProvideLegacy("locale", "fr")
			return types.Fragment{child, types.Text("|")}, nil
		},
	}
	r, dest := newTestRequest(t, types.Fragment{parent, child}, Options{})

	r.StartWork()
	r.StartFlowing()

	if got, want := dest.String(), "fr|none"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRender_IterableAndLazy(t *testing.T) {
	items := types.Iterable(func(yield func(types.Node) bool) {
		for _, s := range []string{"a", "b"} {
			if !yield(types.El("li", nil, types.Text(s))) {
				return
			}
		}
	})
	d := types.NewDeferred()
	lazy := &types.Lazy{Load: func() (types.Node, error) {
		v, err := d.Result()
		if err != nil {
			return nil, err
		}
		return v.(types.Node), nil
	}}
	root := types.El("ul", nil, items, suspense(types.Text("…"), lazy))
	r, dest := newTestRequest(t, root, Options{})

	r.StartWork()
	d.Resolve(types.El("li", nil, types.Text("c")))
	r.StartFlowing()

	if got, want := dest.String(), `<ul><li>a</li><li>b</li><!--$--><li>c</li><!--/$--></ul>`; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestRender_ComponentPanicIsRecoverable(t *testing.T) {
	var reported error
	bad := &types.Component{
		Name:   "Bad",
		Render: func(types.Scope, types.Props) (types.Node, error) { panic("nil map") },
	}
	root := suspense(types.Text("fallback"), bad)
	r, dest := newTestRequest(t, root, Options{OnError: func(err error) { reported = err }})

	r.StartWork()
	r.StartFlowing()

	var pe *PanicError
	if !errors.As(reported, &pe) || pe.Component != "Bad" {
		t.Fatalf("reported = %v, want PanicError from Bad", reported)
	}
	if !strings.HasPrefix(dest.String(), "<!--$!-->") {
		t.Errorf("output = %q, want client rendered boundary", dest.String())
	}
	assertDrained(t, r)
}

func TestRender_InvalidElementIsRenderError(t *testing.T) {
	root := suspense(types.Text("fallback"), types.El("br", nil, types.Text("child")))
	r, dest := newTestRequest(t, root, Options{})

	r.StartWork()
	r.StartFlowing()

	if !strings.HasPrefix(dest.String(), "<!--$!-->") {
		t.Errorf("output = %q, want client rendered boundary", dest.String())
	}
	if o := r.Outcome(); o.ReportedErrors != 1 {
		t.Errorf("ReportedErrors = %d, want 1", o.ReportedErrors)
	}
}

func TestRender_SpawnedTaskKeepsBoundaryID(t *testing.T) {
	d := types.NewDeferred()
	// The fallback suspends before emitting anything, so the boundary id
	// travels with the spawned task.
	fallback := types.Fragment{waitFor("Spinner", d)}
	content := waitFor("Body", types.NewDeferred())
	r, dest := newTestRequest(t, suspense(fallback, content), Options{})

	r.StartWork()
	d.Resolve(types.El("i", nil, types.Text("spin")))
	r.StartFlowing()

	if got, want := dest.String(), `<!--$?--><i id="B:0">spin</i><!--/$-->`; !strings.HasPrefix(got, want) {
		t.Errorf("output = %q, want prefix %q", got, want)
	}
	r.Abort(nil)
	assertDrained(t, r)
}

// panickingDest panics on its first write.
type panickingDest struct {
	*destination.Stub
}

func (d panickingDest) WriteChunk([]byte) bool {
	panic("socket gone")
}

func TestRender_FlushPanicReleasesPendingWork(t *testing.T) {
	d := types.NewDeferred()
	completed := 0
	dest := panickingDest{Stub: &destination.Stub{}}
	root := suspense(types.Text("Loading"), waitFor("Feed", d))
	r := NewRequest(root, dest, html.New(html.Options{}), Options{
		Scheduler:     NewTrampoline(),
		RequestID:     t.Name(),
		OnCompleteAll: func() { completed++ },
	})

	r.StartWork()
	r.StartFlowing()

	if o := r.Outcome(); o.Status != types.OutcomeRenderError || !strings.Contains(o.Message, "socket gone") {
		t.Errorf("Outcome() = %+v, want render_error from the panic", o)
	}
	if dest.CloseErr == nil {
		t.Error("destination not closed with the panic")
	}
	if completed != 1 {
		t.Errorf("OnCompleteAll called %d times, want 1", completed)
	}
	assertDrained(t, r)

	d.Resolve("late")
	if completed != 1 {
		t.Errorf("OnCompleteAll called %d times after late resolve, want 1", completed)
	}
}

func TestRender_MalformedNodesAreRenderErrors(t *testing.T) {
	tests := []struct {
		name string
		node types.Node
		want string
	}{
		{"provider without context", &types.Provider{Value: 1, Children: types.Text("x")}, "provider has no context"},
		{"consumer without render", &types.Consumer{}, "consumer needs a context and a render function"},
		{"lazy without loader", &types.Lazy{}, "lazy node has no loader"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRequest(t, types.El("div", nil, tt.node), Options{})
			r.StartWork()
			r.StartFlowing()

			o := r.Outcome()
			if o.Status != types.OutcomeRenderError || o.Message != tt.want {
				t.Errorf("Outcome() = %+v, want render_error %q", o, tt.want)
			}
			assertDrained(t, r)
		})
	}
}
