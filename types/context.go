package types

// Context identifies a provider/consumer channel.
type Context struct {
	name         string
	defaultValue any
}

// NewContext creates a context with a default value used when no provider
// is in scope.
func NewContext(name string, defaultValue any) *Context {
	return &Context{name: name, defaultValue: defaultValue}
}

// Name returns the debug name of the context.
func (c *Context) Name() string { return c.name }

// Default returns the value consumers see without a provider.
func (c *Context) Default() any { return c.defaultValue }
