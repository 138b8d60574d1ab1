package types

import (
	"iter"
	"strconv"
)

// Kind discriminates the Node variants.
type Kind int

// Node kinds understood by the render dispatch.
const (
	KindEmpty Kind = iota
	KindText
	KindNumber
	KindFragment
	KindIterable
	KindElement
	KindComponent
	KindSuspense
	KindProvider
	KindConsumer
	KindLazy
)

var kindNames = [...]string{
	KindEmpty:     "empty",
	KindText:      "text",
	KindNumber:    "number",
	KindFragment:  "fragment",
	KindIterable:  "iterable",
	KindElement:   "element",
	KindComponent: "component",
	KindSuspense:  "suspense",
	KindProvider:  "provider",
	KindConsumer:  "consumer",
	KindLazy:      "lazy",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Node is a renderable value. The set of implementations is closed; a nil
// Node renders as nothing.
type Node interface {
	Kind() Kind
}

// Text is a text leaf. It is escaped by the format layer.
type Text string

// Kind implements Node.
func (Text) Kind() Kind { return KindText }

// Number is a numeric leaf, rendered in its shortest decimal form.
type Number float64

// Kind implements Node.
func (Number) Kind() Kind { return KindNumber }

// String formats the number the way it is emitted.
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// Fragment is an ordered list of sibling nodes.
type Fragment []Node

// Kind implements Node.
func (Fragment) Kind() Kind { return KindFragment }

// Iterable is a lazily produced sequence of sibling nodes. It is drained
// once when first rendered.
type Iterable iter.Seq[Node]

// Kind implements Node.
func (Iterable) Kind() Kind { return KindIterable }

// Element is a host element such as a div or an svg path.
type Element struct {
	Tag      string
	Props    Props
	Children Node
}

// Kind implements Node.
func (*Element) Kind() Kind { return KindElement }

// Scope exposes ambient render state to a component.
type Scope interface {
	// Value returns the nearest provided value for c, or its default.
	Value(c *Context) any
	// Legacy returns a keyed legacy context value.
	Legacy(key string) any
	// ProvideLegacy merges a keyed value into the legacy context seen by
	// this component's output.
	ProvideLegacy(key string, value any)
}

// ComponentFunc renders a composite node. Returning an error produced by
// Suspend signals that output is not ready yet; the engine retries the
// component once the dependency resolves.
type ComponentFunc func(s Scope, props Props) (Node, error)

// Component is a composite, user-defined node.
type Component struct {
	Name   string
	Render ComponentFunc
	Props  Props
}

// Kind implements Node.
func (*Component) Kind() Kind { return KindComponent }

// DisplayName returns Name or a placeholder for anonymous components.
func (c *Component) DisplayName() string {
	if c.Name == "" {
		return "Anonymous"
	}
	return c.Name
}

// Suspense is an async boundary: Children render when ready, Fallback is
// shown until then.
type Suspense struct {
	Fallback Node
	Children Node
}

// Kind implements Node.
func (*Suspense) Kind() Kind { return KindSuspense }

// Provider makes Value visible to Consumers of Context under Children.
type Provider struct {
	Context  *Context
	Value    any
	Children Node
}

// Kind implements Node.
func (*Provider) Kind() Kind { return KindProvider }

// Consumer renders a node from the nearest value of Context.
type Consumer struct {
	Context *Context
	Render  func(value any) Node
}

// Kind implements Node.
func (*Consumer) Kind() Kind { return KindConsumer }

// Lazy resolves its node on first render. Load may return a suspension.
type Lazy struct {
	Load func() (Node, error)
}

// Kind implements Node.
func (*Lazy) Kind() Kind { return KindLazy }

// El is shorthand for building an element.
func El(tag string, props Props, children ...Node) *Element {
	e := &Element{Tag: tag, Props: props}
	switch len(children) {
	case 0:
	case 1:
		e.Children = children[0]
	default:
		e.Children = Fragment(children)
	}
	return e
}
