package types

import (
	"fmt"
	"sort"
	"strconv"
)

// Props are element attributes or component inputs.
type Props map[string]any

// Keys returns the prop names in sorted order.
func (p Props) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the prop as a string, or "" if absent.
func (p Props) String(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the prop as an int, or def if absent or not numeric.
func (p Props) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case uint64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Bool reports whether the prop is set to true.
func (p Props) Bool(key string) bool {
	v, ok := p[key].(bool)
	return ok && v
}
