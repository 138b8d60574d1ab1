package types //nolint:revive // types is a valid package name

import (
	"testing"
)

func TestNumber_String(t *testing.T) {
	tests := []struct {
		n    Number
		want string
	}{
		{0, "0"},
		{42, "42"},
		{-3, "-3"},
		{1.5, "1.5"},
		{0.1, "0.1"},
		{1e21, "1000000000000000000000"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.n.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	if got := KindSuspense.String(); got != "suspense" {
		t.Errorf("KindSuspense.String() = %q, want suspense", got)
	}
	if got := Kind(99).String(); got != "kind(99)" {
		t.Errorf("Kind(99).String() = %q, want kind(99)", got)
	}
}

func TestEl(t *testing.T) {
	if e := El("br", nil); e.Children != nil {
		t.Errorf("El with no children: Children = %v, want nil", e.Children)
	}
	if e := El("p", nil, Text("a")); e.Children != Text("a") {
		t.Errorf("El with one child: Children = %v, want Text(a)", e.Children)
	}
	e := El("ul", Props{"class": "x"}, Text("a"), Text("b"))
	frag, ok := e.Children.(Fragment)
	if !ok || len(frag) != 2 {
		t.Fatalf("El with two children: Children = %#v, want a two-node fragment", e.Children)
	}
	if e.Kind() != KindElement {
		t.Errorf("Kind() = %s, want element", e.Kind())
	}
}

func TestComponent_DisplayName(t *testing.T) {
	if got := (&Component{}).DisplayName(); got != "Anonymous" {
		t.Errorf("DisplayName() = %q, want Anonymous", got)
	}
	if got := (&Component{Name: "Feed"}).DisplayName(); got != "Feed" {
		t.Errorf("DisplayName() = %q, want Feed", got)
	}
}

func TestProps(t *testing.T) {
	p := Props{
		"b":     "two",
		"a":     1,
		"n":     float64(7),
		"s":     "12",
		"bad":   "x",
		"flag":  true,
		"off":   false,
		"other": 3.5,
	}

	keys := p.Keys()
	if keys[0] != "a" || keys[len(keys)-1] != "s" {
		t.Errorf("Keys() = %v, want sorted", keys)
	}
	if got := p.String("b"); got != "two" {
		t.Errorf("String(b) = %q, want two", got)
	}
	if got := p.String("other"); got != "3.5" {
		t.Errorf("String(other) = %q, want 3.5", got)
	}
	if got := p.String("missing"); got != "" {
		t.Errorf("String(missing) = %q, want empty", got)
	}

	ints := []struct {
		key  string
		want int
	}{
		{"a", 1},
		{"n", 7},
		{"s", 12},
		{"bad", -1},
		{"missing", -1},
	}
	for _, tt := range ints {
		if got := p.Int(tt.key, -1); got != tt.want {
			t.Errorf("Int(%s) = %d, want %d", tt.key, got, tt.want)
		}
	}

	if !p.Bool("flag") || p.Bool("off") || p.Bool("b") {
		t.Error("Bool() must be true only for a true bool")
	}
}

func TestContext(t *testing.T) {
	c := NewContext("theme", "light")
	if c.Name() != "theme" || c.Default() != "light" {
		t.Errorf("NewContext = (%q, %v), want (theme, light)", c.Name(), c.Default())
	}
}

func TestBoundaryID_AssignOnce(t *testing.T) {
	var nilID *BoundaryID
	if nilID.Formatted() != "" {
		t.Error("nil BoundaryID must format as empty")
	}

	id := &BoundaryID{}
	if id.Formatted() != "" {
		t.Errorf("Formatted() = %q before assignment", id.Formatted())
	}
	if got := id.Assign("B:0"); got != "B:0" {
		t.Errorf("Assign() = %q, want B:0", got)
	}
	if got := id.Assign("other"); got != "B:0" {
		t.Errorf("second Assign() = %q, want B:0", got)
	}

	if nilID.Emitted() || id.Emitted() {
		t.Error("Emitted() = true before MarkEmitted")
	}
	id.MarkEmitted()
	if !id.Emitted() {
		t.Error("Emitted() = false after MarkEmitted")
	}
}

func TestInsertionMode_String(t *testing.T) {
	if got := ModeTableBody.String(); got != "table_body" {
		t.Errorf("String() = %q, want table_body", got)
	}
	if got := InsertionMode(42).String(); got != "unknown" {
		t.Errorf("String() = %q, want unknown", got)
	}
}
