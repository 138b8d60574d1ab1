package types

// InsertionMode is the markup nesting state that decides how content and
// segment containers are emitted.
type InsertionMode int

// Insertion modes tracked by the format layer.
const (
	ModeRoot InsertionMode = iota
	ModeHTML
	ModeSVG
	ModeMathML
	ModeTable
	ModeTableBody
	ModeTableRow
	ModeColGroup
)

var modeNames = [...]string{
	ModeRoot:      "root",
	ModeHTML:      "html",
	ModeSVG:       "svg",
	ModeMathML:    "mathml",
	ModeTable:     "table",
	ModeTableBody: "table_body",
	ModeTableRow:  "table_row",
	ModeColGroup:  "colgroup",
}

func (m InsertionMode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// FormatContext is the state needed to resume emission mid-subtree.
// It is a value type; children receive a derived copy.
type FormatContext struct {
	Mode InsertionMode
	// SelectedValue is the value of the enclosing select, if any.
	SelectedValue string
}

// BoundaryID names a suspense boundary for client patching. It is created
// with the boundary and formatted the first time it is emitted. The id is
// written to output at most once.
type BoundaryID struct {
	formatted string
	emitted   bool
}

// Formatted returns the emitted id, or "" if not yet assigned.
func (id *BoundaryID) Formatted() string {
	if id == nil {
		return ""
	}
	return id.formatted
}

// Assign fixes the emitted id. Only the first call has an effect; it
// returns the id in force afterwards.
func (id *BoundaryID) Assign(formatted string) string {
	if id.formatted == "" {
		id.formatted = formatted
	}
	return id.formatted
}

// Emitted reports whether the id has been written to output.
func (id *BoundaryID) Emitted() bool {
	return id != nil && id.emitted
}

// MarkEmitted records that the id has been written to output.
func (id *BoundaryID) MarkEmitted() {
	id.emitted = true
}

// ChunkWriter accepts encoded output. WriteChunk returns false when the
// receiver wants the producer to stop and wait before writing more; the
// chunk itself is still accepted.
type ChunkWriter interface {
	WriteChunk(chunk []byte) bool
}
