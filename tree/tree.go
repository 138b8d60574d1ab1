// Package tree loads render documents from YAML or JSON.
//
// A document is a root node plus optional context declarations:
//
//	contexts:
//	  theme: light
//	root:
//	  element: main
//	  children:
//	    - text: Hello
//	    - suspense:
//	        fallback: Loading
//	        children:
//	          component: delay
//	          props: {ms: 50}
//	          children: {element: p, children: late}
//
// A node is a string (text), a number, null (nothing), a list (fragment)
// or a map with exactly one kind key: text, number, element, fragment,
// suspense, provider, consumer or component. Components are looked up in a
// Registry when the document is built.
package tree

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/justapithecus/sluice/types"
)

// Document is a decoded render document. Build may be called any number
// of times; every call returns an independent tree with fresh component
// state.
type Document struct {
	// Path is the source path, or "" for documents decoded from memory.
	Path     string
	registry *Registry
	contexts map[string]*types.Context
	root     any
}

// rawDocument is the on-disk shape.
type rawDocument struct {
	Contexts map[string]any `yaml:"contexts"`
	Root     any            `yaml:"root"`
}

// Load reads and decodes the document at path.
func Load(path string, reg *Registry) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("document not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read document %q: %w", path, err)
	}
	doc, err := Decode(data, reg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// Decode parses a YAML or JSON document and validates it by building it
// once. A nil registry means NewRegistry().
func Decode(data []byte, reg *Registry) (*Document, error) {
	if reg == nil {
		reg = NewRegistry()
	}

	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}

	doc := &Document{
		registry: reg,
		contexts: make(map[string]*types.Context, len(raw.Contexts)),
		root:     raw.Root,
	}
	for name, def := range raw.Contexts {
		doc.contexts[name] = types.NewContext(name, def)
	}

	if _, err := doc.Build(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Context returns the declared context with the given name.
func (d *Document) Context(name string) (*types.Context, bool) {
	c, ok := d.contexts[name]
	return c, ok
}

// ContextNames returns the declared context names in sorted order.
func (d *Document) ContextNames() []string {
	names := make([]string, 0, len(d.contexts))
	for name := range d.contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build instantiates the node tree.
func (d *Document) Build() (types.Node, error) {
	return d.build(d.root, "root")
}

// nodeKinds lists the kind keys of a map node in precedence order.
var nodeKinds = []string{
	"text", "number", "element", "fragment",
	"suspense", "provider", "consumer", "component",
}

func (d *Document) build(v any, path string) (types.Node, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return types.Text(val), nil
	case bool:
		return nil, decodeErrorf(path, "unexpected boolean %t", val)
	case int:
		return types.Number(val), nil
	case int64:
		return types.Number(val), nil
	case uint64:
		return types.Number(val), nil
	case float64:
		return types.Number(val), nil
	case []any:
		return d.buildList(val, path)
	case map[string]any:
		return d.buildMap(val, path)
	default:
		return nil, decodeErrorf(path, "unsupported value of type %T", v)
	}
}

func (d *Document) buildList(items []any, path string) (types.Node, error) {
	nodes := make(types.Fragment, 0, len(items))
	for i, item := range items {
		n, err := d.build(item, path+"["+strconv.Itoa(i)+"]")
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (d *Document) buildMap(m map[string]any, path string) (types.Node, error) {
	var kinds []string
	for _, k := range nodeKinds {
		if _, ok := m[k]; ok {
			kinds = append(kinds, k)
		}
	}
	switch len(kinds) {
	case 0:
		return nil, decodeErrorf(path, "node has no kind key (one of %s)", strings.Join(nodeKinds, ", "))
	case 1:
	default:
		return nil, decodeErrorf(path, "node has more than one kind key: %s", strings.Join(kinds, ", "))
	}

	kind := kinds[0]
	switch kind {
	case "text":
		s, err := scalarString(m[kind], path+".text")
		if err != nil {
			return nil, err
		}
		return types.Text(s), nil

	case "number":
		n, ok := toFloat(m[kind])
		if !ok {
			return nil, decodeErrorf(path+".number", "expected a number, got %T", m[kind])
		}
		return types.Number(n), nil

	case "element":
		tag, ok := m[kind].(string)
		if !ok || tag == "" {
			return nil, decodeErrorf(path+".element", "expected a tag name")
		}
		props, err := propsOf(m["props"], path+".props")
		if err != nil {
			return nil, err
		}
		children, err := d.build(m["children"], path+".children")
		if err != nil {
			return nil, err
		}
		return &types.Element{Tag: tag, Props: props, Children: children}, nil

	case "fragment":
		items, ok := m[kind].([]any)
		if !ok && m[kind] != nil {
			return nil, decodeErrorf(path+".fragment", "expected a list, got %T", m[kind])
		}
		return d.buildList(items, path+".fragment")

	case "suspense":
		body, ok := m[kind].(map[string]any)
		if !ok {
			return nil, decodeErrorf(path+".suspense", "expected a map with fallback and children")
		}
		fallback, err := d.build(body["fallback"], path+".suspense.fallback")
		if err != nil {
			return nil, err
		}
		children, err := d.build(body["children"], path+".suspense.children")
		if err != nil {
			return nil, err
		}
		return &types.Suspense{Fallback: fallback, Children: children}, nil

	case "provider":
		ctx, err := d.contextOf(m[kind], path+".provider")
		if err != nil {
			return nil, err
		}
		children, err := d.build(m["children"], path+".children")
		if err != nil {
			return nil, err
		}
		return &types.Provider{Context: ctx, Value: m["value"], Children: children}, nil

	case "consumer":
		ctx, err := d.contextOf(m[kind], path+".consumer")
		if err != nil {
			return nil, err
		}
		tag, _ := m["element"].(string)
		return &types.Consumer{Context: ctx, Render: consumerRender(tag)}, nil

	default: // component
		name, ok := m[kind].(string)
		if !ok || name == "" {
			return nil, decodeErrorf(path+".component", "expected a component name")
		}
		factory, ok := d.registry.Lookup(name)
		if !ok {
			return nil, &DecodeError{Path: path + ".component", Msg: strconv.Quote(name), Err: ErrUnknownComponent}
		}
		props, err := propsOf(m["props"], path+".props")
		if err != nil {
			return nil, err
		}
		children, err := d.build(m["children"], path+".children")
		if err != nil {
			return nil, err
		}
		n, err := factory(name, props, children)
		if err != nil {
			return nil, &DecodeError{Path: path, Msg: "component " + strconv.Quote(name), Err: err}
		}
		return n, nil
	}
}

func (d *Document) contextOf(v any, path string) (*types.Context, error) {
	name, ok := v.(string)
	if !ok || name == "" {
		return nil, decodeErrorf(path, "expected a context name")
	}
	ctx, ok := d.contexts[name]
	if !ok {
		return nil, decodeErrorf(path, "undeclared context %q", name)
	}
	return ctx, nil
}

// consumerRender renders the consumed value as text, wrapped in tag when
// one is given.
func consumerRender(tag string) func(any) types.Node {
	return func(value any) types.Node {
		var n types.Node
		if value != nil {
			n = types.Text(fmt.Sprint(value))
		}
		if tag == "" {
			return n
		}
		return types.El(tag, nil, n)
	}
}

func propsOf(v any, path string) (types.Props, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return types.Props(p), nil
	default:
		return nil, decodeErrorf(path, "expected a map, got %T", v)
	}
}

func scalarString(v any, path string) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case int, int64, uint64, float64, bool:
		return fmt.Sprint(s), nil
	default:
		return "", decodeErrorf(path, "expected a scalar, got %T", v)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
