package html

import (
	"errors"
	"fmt"
	stdhtml "html"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/justapithecus/sluice/types"
)

var (
	// ErrInvalidTag is returned for tag names that cannot be emitted safely.
	ErrInvalidTag = errors.New("invalid tag name")

	validTag  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9:._-]*$`)
	validAttr = regexp.MustCompile(`^[a-zA-Z_:][a-zA-Z0-9:._-]*$`)
)

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

// reservedProps are consumed by the engine or this package and never
// emitted as attributes.
var reservedProps = map[string]bool{
	"children":  true,
	"innerHTML": true,
	"key":       true,
	"ref":       true,
}

var attrAliases = map[string]string{
	"className": "class",
	"htmlFor":   "for",
}

// PushStartInstance appends the opening tag of el. If assignID is set the
// element carries the boundary id: an existing id prop is adopted,
// otherwise the generated id is added. An id already in the output is not
// stamped again.
func (f *Format) PushStartInstance(target [][]byte, el *types.Element, fc types.FormatContext, assignID *types.BoundaryID) ([][]byte, error) {
	if !validTag.MatchString(el.Tag) {
		return target, fmt.Errorf("%w: %q", ErrInvalidTag, el.Tag)
	}
	_, hasInner := el.Props["innerHTML"]
	if voidElements[el.Tag] && (el.Children != nil || hasInner) {
		return target, fmt.Errorf("<%s> is a void element and cannot have children", el.Tag)
	}
	if hasInner && el.Children != nil {
		return target, fmt.Errorf("<%s> cannot have both children and innerHTML", el.Tag)
	}

	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(el.Tag)

	if assignID != nil && !assignID.Emitted() {
		if own := el.Props.String("id"); own != "" {
			assignID.Assign(own)
		} else {
			writeAttr(&b, "id", f.boundaryID(assignID))
		}
		assignID.MarkEmitted()
	}

	for _, key := range el.Props.Keys() {
		if reservedProps[key] {
			continue
		}
		pushAttribute(&b, key, el.Props[key])
	}

	if el.Tag == "option" && fc.SelectedValue != "" {
		if v, ok := el.Props["value"]; ok && stringify(v) == fc.SelectedValue {
			b.WriteString(` selected=""`)
		}
	}
	b.WriteByte('>')

	if hasInner {
		b.WriteString(stringify(el.Props["innerHTML"]))
	}
	return append(target, []byte(b.String())), nil
}

// PushEndInstance appends the closing tag of el.
func (f *Format) PushEndInstance(target [][]byte, el *types.Element) [][]byte {
	if voidElements[el.Tag] {
		return target
	}
	return append(target, []byte("</"+el.Tag+">"))
}

// PushTextInstance appends escaped text. A pending boundary id is emitted
// as an empty template in front of it.
func (f *Format) PushTextInstance(target [][]byte, text string, assignID *types.BoundaryID) [][]byte {
	target = f.PushEmpty(target, assignID)
	if text == "" {
		return target
	}
	return append(target, []byte(stdhtml.EscapeString(text)))
}

// PushEmpty appends nothing unless a boundary id must be emitted.
func (f *Format) PushEmpty(target [][]byte, assignID *types.BoundaryID) [][]byte {
	if assignID == nil || assignID.Emitted() {
		return target
	}
	assignID.MarkEmitted()
	return append(target, []byte(`<template id="`+stdhtml.EscapeString(f.boundaryID(assignID))+`"></template>`))
}

func writeAttr(b *strings.Builder, name, value string) {
	b.WriteByte(' ')
	b.WriteString(name)
	b.WriteString(`="`)
	b.WriteString(stdhtml.EscapeString(value))
	b.WriteByte('"')
}

func pushAttribute(b *strings.Builder, key string, value any) {
	name := key
	if alias, ok := attrAliases[key]; ok {
		name = alias
	}
	if !validAttr.MatchString(name) {
		return
	}
	if value == nil || reflect.TypeOf(value).Kind() == reflect.Func {
		return
	}

	if name == "style" {
		if m, ok := value.(map[string]any); ok {
			if css := styleString(m); css != "" {
				writeAttr(b, name, css)
			}
			return
		}
	}

	if v, ok := value.(bool); ok {
		// aria-* and data-* keep explicit booleans.
		if strings.HasPrefix(name, "aria-") || strings.HasPrefix(name, "data-") {
			writeAttr(b, name, strconv.FormatBool(v))
			return
		}
		if v {
			b.WriteByte(' ')
			b.WriteString(name)
			b.WriteString(`=""`)
		}
		return
	}
	writeAttr(b, name, stringify(value))
}

func styleString(m map[string]any) string {
	keys := types.Props(m).Keys()
	var b strings.Builder
	for _, k := range keys {
		v := m[k]
		if v == nil {
			continue
		}
		s := stringify(v)
		if s == "" {
			continue
		}
		b.WriteString(hyphenate(k))
		b.WriteByte(':')
		b.WriteString(s)
		b.WriteByte(';')
	}
	return b.String()
}

// hyphenate turns a camelCase style name into its CSS property name.
func hyphenate(name string) string {
	if strings.HasPrefix(name, "--") {
		return name
	}
	var b strings.Builder
	for _, r := range name {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('-')
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
