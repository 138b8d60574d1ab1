// Package render formats command results for the sluice CLI.
//
// Format selection:
//   - If output is a TTY, default to table
//   - If output is not a TTY, default to json
//   - --format always overrides the default
//   - Invalid formats are errors
//
// --no-color affects table output only. TUI mode uses its own styling.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/justapithecus/sluice/cli/reader"
	"github.com/justapithecus/sluice/cli/tui"
)

// Format represents an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string, returning an error for invalid formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	case "yaml":
		return FormatYAML, nil
	case "":
		return "", nil // Let caller decide default
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
}

// Renderer handles output formatting.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer creates a renderer on stdout from CLI context.
func NewRenderer(c *cli.Context) (*Renderer, error) {
	return NewRendererTo(c, os.Stdout)
}

// NewRendererTo creates a renderer on f. The TTY default is decided by f.
func NewRendererTo(c *cli.Context, f *os.File) (*Renderer, error) {
	format, err := ParseFormat(c.String("format"))
	if err != nil {
		return nil, err
	}
	if format == "" {
		if isTTY(f) {
			format = FormatTable
		} else {
			format = FormatJSON
		}
	}
	return &Renderer{
		format:  format,
		noColor: c.Bool("no-color"),
		out:     f,
	}, nil
}

// NewRendererWithWriter creates a renderer with a custom writer (for testing).
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{
		format:  format,
		noColor: noColor,
		out:     out,
	}
}

// Render outputs the data in the configured format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable:
		return r.renderTable(data)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// RenderTUI runs the TUI for viewType. TUI is opt-in and read-only.
func (r *Renderer) RenderTUI(viewType string, data any) error {
	if !tui.IsTUISupported(viewType) {
		return fmt.Errorf("--tui is not supported for %s", viewType)
	}
	return tui.Run(viewType, data)
}

func (r *Renderer) renderTable(data any) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)

	switch v := data.(type) {
	case *reader.RenderSummary:
		r.writeSummary(w, v)
	case *reader.InspectRenderResponse:
		r.writeSummary(w, &v.Summary)
		if v.HTML != "" {
			fmt.Fprintf(w, "\n%s\n", v.HTML)
		}
	case []reader.ListRenderItem:
		if len(v) == 0 {
			fmt.Fprintln(w, "(no results)")
			break
		}
		fmt.Fprintln(w, "REQUEST ID\tDOCUMENT\tSTATUS\tSIZE\tCOMPLETED")
		for _, item := range v {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				item.RequestID, item.Document, r.status(item.Status),
				bytesString(item.BytesWritten), timeString(item.CompletedAt))
		}
	case *reader.RenderStats:
		writeRows(w, [][2]string{
			{"total", humanize.Comma(int64(v.Total))},
			{"succeeded", humanize.Comma(int64(v.Succeeded))},
			{"aborted", humanize.Comma(int64(v.Aborted))},
			{"failed", humanize.Comma(int64(v.Failed))},
			{"client_rendered", humanize.Comma(v.ClientRendered)},
			{"bytes_written", bytesString(v.BytesWritten)},
		})
	case map[string]string:
		rows := make([][2]string, 0, len(v))
		for _, k := range slices.Sorted(maps.Keys(v)) {
			rows = append(rows, [2]string{k, v[k]})
		}
		writeRows(w, rows)
	default:
		// Anything else, e.g. version info, renders via its JSON shape.
		rows, err := jsonRows(data)
		if err != nil {
			return err
		}
		writeRows(w, rows)
	}

	return w.Flush()
}

func (r *Renderer) writeSummary(w io.Writer, s *reader.RenderSummary) {
	rows := [][2]string{
		{"request_id", s.RequestID},
		{"document", s.Document},
		{"status", r.status(s.Status)},
	}
	if s.Message != "" {
		rows = append(rows, [2]string{"message", s.Message})
	}
	rows = append(rows,
		[2]string{"bytes_written", bytesString(s.BytesWritten)},
		[2]string{"chunks", humanize.Comma(s.Chunks)},
		[2]string{"client_rendered", humanize.Comma(s.ClientRendered)},
		[2]string{"reported_errors", humanize.Comma(s.ReportedErrors)},
		[2]string{"tasks", fmt.Sprintf("%d created, %d aborted", s.TasksCreated, s.TasksAborted)},
	)
	if s.Output != "" {
		rows = append(rows, [2]string{"output", s.Output})
	}
	if s.Duration != "" {
		rows = append(rows, [2]string{"duration", s.Duration})
	}
	if !s.CompletedAt.IsZero() {
		rows = append(rows, [2]string{"completed_at", timeString(s.CompletedAt)})
	}
	writeRows(w, rows)
}

func (r *Renderer) status(s string) string {
	if r.noColor {
		return s
	}
	return tui.StatusStyle(s).Render(s)
}

func writeRows(w io.Writer, rows [][2]string) {
	for _, row := range rows {
		fmt.Fprintf(w, "%s:\t%s\n", row[0], row[1])
	}
}

// jsonRows flattens the top level of data's JSON encoding into rows.
func jsonRows(data any) ([][2]string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return [][2]string{{"value", string(raw)}}, nil
	}
	rows := make([][2]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		rows = append(rows, [2]string{k, fmt.Sprint(m[k])})
	}
	return rows, nil
}

func bytesString(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

func timeString(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339) + " (" + humanize.Time(t) + ")"
}

// isTTY returns true if the file is a TTY.
func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
