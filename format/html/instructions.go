package html

import (
	"encoding/json"
	stdhtml "html"

	"github.com/justapithecus/sluice/types"
)

// Client runtime. $RS moves a segment into its placeholder, $RC replaces
// a pending boundary's fallback with its content, $RX flags a boundary
// for client rendering.
const (
	completeSegmentFunction = `$RS=function(s,p){s=document.getElementById(s);p=document.getElementById(p);` +
		`s.parentNode.removeChild(s);for(;s.firstChild;)p.parentNode.insertBefore(s.firstChild,p);` +
		`p.parentNode.removeChild(p)};`

	completeBoundaryFunction = `$RC=function(b,s){b=document.getElementById(b);s=document.getElementById(s);` +
		`s.parentNode.removeChild(s);if(!b)return;var m=b.previousSibling;` +
		`for(;m&&(m.nodeType!==8||m.data!=="$?");)m=m.previousSibling;if(!m)return;` +
		`var p=m.parentNode,n=m.nextSibling,d=0;for(;n;){if(n.nodeType===8){var t=n.data;` +
		`if(t==="/$"){if(d===0)break;d--}else if(t==="$"||t==="$?"||t==="$!")d++}` +
		`var x=n.nextSibling;p.removeChild(n);n=x}` +
		`for(;s.firstChild;)p.insertBefore(s.firstChild,n);m.data="$"};`

	clientRenderFunction = `$RX=function(b){b=document.getElementById(b);if(!b)return;var m=b.previousSibling;` +
		`for(;m&&(m.nodeType!==8||m.data!=="$?");)m=m.previousSibling;if(m)m.data="$!"};`
)

var (
	startCompletedBoundary      = []byte("<!--$-->")
	startPendingBoundary        = []byte("<!--$?-->")
	startClientRenderedBoundary = []byte("<!--$!-->")
	endBoundary                 = []byte("<!--/$-->")
	startScript                 = []byte("<script>")
	endScript                   = []byte("</script>")
)

// jsString quotes s as a script string literal. Angle brackets and
// ampersands come out escaped, so s cannot close the script element.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// WritePlaceholder marks where pending segment id will be inserted.
func (f *Format) WritePlaceholder(w types.ChunkWriter, id int) bool {
	return w.WriteChunk([]byte(`<template id="` + stdhtml.EscapeString(f.placeholderID(id)) + `"></template>`))
}

// WriteStartCompletedSuspenseBoundary opens a boundary whose content follows.
func (f *Format) WriteStartCompletedSuspenseBoundary(w types.ChunkWriter) bool {
	return w.WriteChunk(startCompletedBoundary)
}

// WriteStartPendingSuspenseBoundary opens a boundary whose fallback
// follows. If the fallback has not carried the boundary id, it is emitted
// here.
func (f *Format) WriteStartPendingSuspenseBoundary(w types.ChunkWriter, id *types.BoundaryID) bool {
	if id.Emitted() {
		return w.WriteChunk(startPendingBoundary)
	}
	id.MarkEmitted()
	w.WriteChunk(startPendingBoundary)
	return w.WriteChunk([]byte(`<template id="` + stdhtml.EscapeString(f.boundaryID(id)) + `"></template>`))
}

// WriteStartClientRenderedSuspenseBoundary opens a boundary the client
// must render itself.
func (f *Format) WriteStartClientRenderedSuspenseBoundary(w types.ChunkWriter) bool {
	return w.WriteChunk(startClientRenderedBoundary)
}

// WriteEndSuspenseBoundary closes any boundary.
func (f *Format) WriteEndSuspenseBoundary(w types.ChunkWriter) bool {
	return w.WriteChunk(endBoundary)
}

// WriteStartSegment opens the hidden container of a late segment. The
// container must be valid in the insertion mode of the segment's content.
func (f *Format) WriteStartSegment(w types.ChunkWriter, fc types.FormatContext, id int) bool {
	sid := stdhtml.EscapeString(f.segmentID(id))
	switch fc.Mode {
	case types.ModeSVG:
		return w.WriteChunk([]byte(`<svg aria-hidden="true" style="display:none" id="` + sid + `">`))
	case types.ModeMathML:
		return w.WriteChunk([]byte(`<math aria-hidden="true" style="display:none" id="` + sid + `">`))
	case types.ModeTable:
		return w.WriteChunk([]byte(`<table hidden id="` + sid + `">`))
	case types.ModeTableBody:
		return w.WriteChunk([]byte(`<table hidden><tbody id="` + sid + `">`))
	case types.ModeTableRow:
		return w.WriteChunk([]byte(`<table hidden><tr id="` + sid + `">`))
	case types.ModeColGroup:
		return w.WriteChunk([]byte(`<table hidden><colgroup id="` + sid + `">`))
	default:
		return w.WriteChunk([]byte(`<div hidden id="` + sid + `">`))
	}
}

// WriteEndSegment closes a container opened by WriteStartSegment.
func (f *Format) WriteEndSegment(w types.ChunkWriter, fc types.FormatContext) bool {
	switch fc.Mode {
	case types.ModeSVG:
		return w.WriteChunk([]byte(`</svg>`))
	case types.ModeMathML:
		return w.WriteChunk([]byte(`</math>`))
	case types.ModeTable:
		return w.WriteChunk([]byte(`</table>`))
	case types.ModeTableBody:
		return w.WriteChunk([]byte(`</tbody></table>`))
	case types.ModeTableRow:
		return w.WriteChunk([]byte(`</tr></table>`))
	case types.ModeColGroup:
		return w.WriteChunk([]byte(`</colgroup></table>`))
	default:
		return w.WriteChunk([]byte(`</div>`))
	}
}

// WriteCompletedSegmentInstruction moves segment id into its placeholder.
func (f *Format) WriteCompletedSegmentInstruction(w types.ChunkWriter, id int) bool {
	w.WriteChunk(startScript)
	if !f.sentCompleteSegment {
		f.sentCompleteSegment = true
		w.WriteChunk([]byte(completeSegmentFunction))
	}
	w.WriteChunk([]byte(`$RS(` + jsString(f.segmentID(id)) + `,` + jsString(f.placeholderID(id)) + `)`))
	return w.WriteChunk(endScript)
}

// WriteCompletedBoundaryInstruction replaces the fallback of boundary id
// with the content in segment contentSegmentID.
func (f *Format) WriteCompletedBoundaryInstruction(w types.ChunkWriter, id *types.BoundaryID, contentSegmentID int) bool {
	w.WriteChunk(startScript)
	if !f.sentCompleteBoundary {
		f.sentCompleteBoundary = true
		w.WriteChunk([]byte(completeBoundaryFunction))
	}
	w.WriteChunk([]byte(`$RC(` + jsString(f.boundaryID(id)) + `,` + jsString(f.segmentID(contentSegmentID)) + `)`))
	return w.WriteChunk(endScript)
}

// WriteClientRenderBoundaryInstruction flags boundary id for client
// rendering.
func (f *Format) WriteClientRenderBoundaryInstruction(w types.ChunkWriter, id *types.BoundaryID) bool {
	w.WriteChunk(startScript)
	if !f.sentClientRender {
		f.sentClientRender = true
		w.WriteChunk([]byte(clientRenderFunction))
	}
	w.WriteChunk([]byte(`$RX(` + jsString(f.boundaryID(id)) + `)`))
	return w.WriteChunk(endScript)
}
