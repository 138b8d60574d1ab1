package tree

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/justapithecus/sluice/destination"
	"github.com/justapithecus/sluice/engine"
	"github.com/justapithecus/sluice/format/html"
	"github.com/justapithecus/sluice/types"
)

// renderDoc renders a fresh build of doc and waits for the request to close.
func renderDoc(t *testing.T, doc *Document) (string, *engine.Request) {
	t.Helper()
	root, err := doc.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	dest := &destination.Stub{}
	r := engine.NewRequest(root, dest, html.New(html.Options{}), engine.Options{
		RequestID: t.Name(),
		Scheduler: engine.NewTrampoline(),
	})
	r.StartWork()
	r.StartFlowing()
	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("render did not complete")
	}
	return dest.String(), r
}

func TestDecode_NodeKinds(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"text", `root: hello`, "hello"},
		{"number", `root: 42`, "42"},
		{"null", `root: null`, ""},
		{"explicit text", `root: {text: 7}`, "7"},
		{"explicit number", `root: {number: 1.5}`, "1.5"},
		{"list", `root: [a, {element: br}, b]`, "a<br>b"},
		{"fragment", `root: {fragment: [x, y]}`, "xy"},
		{"element", `root: {element: p, props: {className: lead}, children: hi}`, `<p class="lead">hi</p>`},
		{"json", `{"root": {"element": "span", "children": ["a"]}}`, "<span>a</span>"},
		{"each", `root: {component: each, props: {count: 3}, children: {element: i}}`, "<i></i><i></i><i></i>"},
		{
			"provider and consumer",
			"contexts: {theme: light}\nroot:\n  - {consumer: theme, element: b}\n  - provider: theme\n    value: dark\n    children: {consumer: theme}\n",
			"<b>light</b>dark",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Decode([]byte(tt.doc), nil)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if got, _ := renderDoc(t, doc); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantPath string
		wantMsg  string
	}{
		{"no kind", `root: {props: {}}`, "root", "no kind key"},
		{"two kinds", `root: {text: a, element: p}`, "root", "more than one kind key"},
		{"bool", `root: [a, true]`, "root[1]", "unexpected boolean"},
		{"element without tag", `root: {element: ""}`, "root.element", "expected a tag name"},
		{"props not a map", `root: {element: p, props: [1]}`, "root.props", "expected a map"},
		{"undeclared context", `root: {consumer: theme}`, "root.consumer", `undeclared context "theme"`},
		{"suspense not a map", `root: {suspense: x}`, "root.suspense", "expected a map"},
		{"nested path", `root: {element: ul, children: [{element: li}, {number: x}]}`, "root.children[1].number", "expected a number"},
		{"bad delay", `root: {component: delay, props: {ms: -1}}`, "root", "ms must be >= 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc), nil)
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("error = %v, want *DecodeError", err)
			}
			if decodeErr.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", decodeErr.Path, tt.wantPath)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestDecode_UnknownComponent(t *testing.T) {
	_, err := Decode([]byte(`root: {component: Missing}`), nil)
	if !errors.Is(err, ErrUnknownComponent) {
		t.Fatalf("error = %v, want ErrUnknownComponent", err)
	}
	if !strings.Contains(err.Error(), `"Missing"`) {
		t.Errorf("error = %q, want the component name", err)
	}
}

func TestDecode_InvalidYAML(t *testing.T) {
	if _, err := Decode([]byte("root: [unclosed"), nil); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestDelay_StreamsLateContent(t *testing.T) {
	doc, err := Decode([]byte(`
root:
  - {element: h1, children: title}
  - suspense:
      fallback: Loading
      children:
        component: delay
        props: {ms: 5}
        children: {element: p, children: late}
`), nil)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	out, r := renderDoc(t, doc)
	if !strings.HasPrefix(out, "<h1>title</h1><!--$?-->") {
		t.Errorf("output = %q, want the shell with a pending boundary first", out)
	}
	if !strings.Contains(out, "<p>late</p>") {
		t.Errorf("output = %q, want late content", out)
	}
	if !strings.Contains(out, `$RC("B:0","S:`) {
		t.Errorf("output = %q, want a completed boundary instruction", out)
	}
	if o := r.Outcome(); o.Status != types.OutcomeSuccess {
		t.Errorf("Outcome().Status = %s, want success", o.Status)
	}
}

func TestDelay_RejectClientRendersBoundary(t *testing.T) {
	doc, err := Decode([]byte(`
root:
  suspense:
    fallback: Loading
    children: {component: delay, props: {ms: 20, reject: upstream down}}
`), nil)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	out, r := renderDoc(t, doc)
	if !strings.Contains(out, `$RX("B:0")`) {
		t.Errorf("output = %q, want client render instruction", out)
	}
	if o := r.Outcome(); o.ReportedErrors != 1 {
		t.Errorf("Outcome().ReportedErrors = %d, want 1", o.ReportedErrors)
	}
}

func TestFail_AtRootIsRenderError(t *testing.T) {
	doc, err := Decode([]byte(`root: {component: fail, props: {message: broken}}`), nil)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	_, r := renderDoc(t, doc)
	o := r.Outcome()
	if o.Status != types.OutcomeRenderError {
		t.Errorf("Outcome().Status = %s, want render_error", o.Status)
	}
	if !strings.Contains(o.Message, "broken") {
		t.Errorf("Outcome().Message = %q, want it to mention broken", o.Message)
	}
}

func TestBuild_IndependentState(t *testing.T) {
	doc, err := Decode([]byte(`root: {suspense: {fallback: "…", children: {component: delay, props: {ms: 1, text: ok}}}}`), nil)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	for i := range 2 {
		out, _ := renderDoc(t, doc)
		if !strings.Contains(out, "ok") {
			t.Errorf("render %d output = %q, want ok", i, out)
		}
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Greeting", Static(func(props types.Props, children types.Node) types.Node {
		return types.El("h2", nil, types.Text("Hi "+props.String("who")), children)
	}))

	want := []string{"Greeting", "delay", "each", "fail"}
	got := reg.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	doc, err := Decode([]byte(`root: {component: Greeting, props: {who: Ada}, children: "!"}`), reg)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if out, _ := renderDoc(t, doc); out != "<h2>Hi Ada!</h2>" {
		t.Errorf("output = %q, want <h2>Hi Ada!</h2>", out)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.yaml")
	if err := os.WriteFile(path, []byte("contexts: {lang: en}\nroot: {element: html}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if doc.Path != path {
		t.Errorf("Path = %q, want %q", doc.Path, path)
	}
	if names := doc.ContextNames(); len(names) != 1 || names[0] != "lang" {
		t.Errorf("ContextNames() = %v, want [lang]", names)
	}
	if c, ok := doc.Context("lang"); !ok || c.Default() != "en" {
		t.Errorf("Context(lang) = %v, %v; want default en", c, ok)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml"), nil); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Load(missing) error = %v, want not found", err)
	}
}
