// Package html encodes render output as streamed HTML.
//
// Boundaries are delimited by comment markers so the client can locate
// and patch them:
//
//	<!--$-->   completed boundary
//	<!--$?-->  pending boundary; fallback follows
//	<!--$!-->  boundary left for the client to render
//	<!--/$-->  end of any boundary
//
// Late segments arrive in hidden containers and are moved into place by
// small inline scripts. Each script runtime function is sent at most once
// per Format instance, so one Format must be used for exactly one request.
package html

import (
	"strconv"

	"github.com/justapithecus/sluice/types"
)

// Options configures a Format.
type Options struct {
	// IDPrefix is prepended to every generated element id. Use distinct
	// prefixes when several streams share one document.
	IDPrefix string
}

// Format implements engine.Format for HTML. Not safe for concurrent use.
type Format struct {
	placeholderPrefix string
	segmentPrefix     string
	boundaryPrefix    string

	nextBoundaryID int

	sentCompleteSegment  bool
	sentCompleteBoundary bool
	sentClientRender     bool
}

// New creates a Format for one request.
func New(opts Options) *Format {
	return &Format{
		placeholderPrefix: opts.IDPrefix + "P:",
		segmentPrefix:     opts.IDPrefix + "S:",
		boundaryPrefix:    opts.IDPrefix + "B:",
	}
}

// RootFormatContext returns the context of the document root.
func (f *Format) RootFormatContext() types.FormatContext {
	return types.FormatContext{Mode: types.ModeRoot}
}

// ChildFormatContext derives the context for the children of tag.
func (f *Format) ChildFormatContext(parent types.FormatContext, tag string, props types.Props) types.FormatContext {
	switch tag {
	case "select":
		selected := props.String("value")
		if selected == "" {
			selected = props.String("defaultValue")
		}
		return types.FormatContext{Mode: types.ModeHTML, SelectedValue: selected}
	case "svg":
		return types.FormatContext{Mode: types.ModeSVG}
	case "math":
		return types.FormatContext{Mode: types.ModeMathML}
	case "foreignObject":
		return types.FormatContext{Mode: types.ModeHTML}
	case "table":
		return types.FormatContext{Mode: types.ModeTable}
	case "thead", "tbody", "tfoot":
		return types.FormatContext{Mode: types.ModeTableBody}
	case "colgroup":
		return types.FormatContext{Mode: types.ModeColGroup}
	case "tr":
		return types.FormatContext{Mode: types.ModeTableRow}
	}
	if parent.Mode >= types.ModeTable || parent.Mode == types.ModeRoot {
		return types.FormatContext{Mode: types.ModeHTML}
	}
	return parent
}

// CreateSuspenseBoundaryID returns an unassigned boundary id. The id is
// formatted the first time it is emitted.
func (f *Format) CreateSuspenseBoundaryID() *types.BoundaryID {
	return &types.BoundaryID{}
}

// boundaryID returns the formatted id of b, assigning the next one if
// none has been emitted yet.
func (f *Format) boundaryID(b *types.BoundaryID) string {
	if s := b.Formatted(); s != "" {
		return s
	}
	s := f.boundaryPrefix + strconv.FormatInt(int64(f.nextBoundaryID), 16)
	f.nextBoundaryID++
	return b.Assign(s)
}

func (f *Format) segmentID(id int) string {
	return f.segmentPrefix + strconv.FormatInt(int64(id), 16)
}

func (f *Format) placeholderID(id int) string {
	return f.placeholderPrefix + strconv.FormatInt(int64(id), 16)
}
