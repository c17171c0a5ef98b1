package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/lineprof/pkg"
	"github.com/ardnew/lineprof/profiler"
)

// ErrWrite indicates the report could not be written.
var ErrWrite = pkg.NewError("failed to write report")

// Widths of the cost columns in a listing.
const (
	costWidth  = 31
	allocWidth = 8
)

type styles struct {
	path   lipgloss.Style
	cpu    lipgloss.Style
	idle   lipgloss.Style
	calls  lipgloss.Style
	allocs lipgloss.Style
	rule   lipgloss.Style
	source lipgloss.Style
	note   lipgloss.Style
}

// newStyles returns styles rendered for the color capabilities of w.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)

	return styles{
		path:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		cpu:    r.NewStyle().Foreground(lipgloss.Color("2")),
		idle:   r.NewStyle().Foreground(lipgloss.Color("3")),
		calls:  r.NewStyle().Foreground(lipgloss.Color("4")),
		allocs: r.NewStyle().Foreground(lipgloss.Color("5")),
		rule:   r.NewStyle().Foreground(lipgloss.Color("8")),
		source: r.NewStyle().TabWidth(lipgloss.NoTabConversion),
		note:   r.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// Text writes a source listing of each file in res annotated with
// "cpu + idle (calls)" per line, followed by the file's summary.
func Text(w io.Writer, res *profiler.Result, opts ...Option) error {
	cfg := makeConfig(opts...)
	st := newStyles(w)

	paths := cfg.files
	if len(paths) == 0 {
		paths = res.Paths()
	}

	var b strings.Builder

	for _, path := range paths {
		f := res.File(path)
		if f == nil {
			continue
		}

		var src []string
		if cfg.source {
			src = readSource(path)
		}

		writeLines(&b, st, res.Capabilities, f, src, cfg.allLines)
		b.WriteByte('\n')
		writeSummary(&b, st, res.Capabilities, f)
		b.WriteByte('\n')
	}

	if a := res.Anomalies; a != (profiler.Anomalies{}) {
		b.WriteString(st.note.Render(fmt.Sprintf(
			"%d clamped readings, %d unmatched returns", a.Clamped, a.Unmatched,
		)))
		b.WriteByte('\n')
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return ErrWrite.Wrap(err)
	}

	return nil
}

// readSource returns the lines of path, or nil if it cannot be read.
func readSource(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var lines []string

	for line := range strings.Lines(string(data)) {
		lines = append(lines, strings.TrimRight(line, "\r\n"))
	}

	return lines
}

func writeLines(
	b *strings.Builder,
	st styles,
	caps profiler.Capabilities,
	f *profiler.File,
	src []string,
	allLines bool,
) {
	write := func(n int, rec profiler.LineRecord) {
		b.WriteString(formatCost(st, caps, rec))
		b.WriteString(st.rule.Render(" | "))

		if n <= len(src) {
			b.WriteString(st.source.Render(src[n-1]))
		} else {
			b.WriteString(st.rule.Render(fmt.Sprintf("line %d", n)))
		}

		b.WriteByte('\n')
	}

	if allLines && src != nil {
		for n := 1; n <= max(len(src), len(f.Lines)-1); n++ {
			write(n, f.Line(n))
		}

		return
	}

	for n, rec := range f.Records() {
		write(n, rec)
	}
}

// formatCost returns the fixed-width cost columns of rec, or blanks of the
// same width if rec is empty.
func formatCost(st styles, caps profiler.Capabilities, rec profiler.LineRecord) string {
	width := costWidth
	if caps.Allocs {
		width += allocWidth
	}

	if rec == (profiler.LineRecord{}) {
		return strings.Repeat(" ", width)
	}

	idle := rec.Wall - rec.CPU

	var b strings.Builder

	b.WriteString(st.cpu.Render(fmt.Sprintf("% 8.1fms", ms(rec.CPU))))
	b.WriteString(" + ")
	b.WriteString(st.idle.Render(fmt.Sprintf("% 8.1fms", ms(idle))))
	b.WriteString(" ")
	b.WriteString(st.calls.Render(fmt.Sprintf("(% 5d)", rec.Calls)))

	if caps.Allocs {
		b.WriteString(st.allocs.Render(fmt.Sprintf(" % 7d", rec.Allocs)))
	}

	return b.String()
}

func writeSummary(
	b *strings.Builder,
	st styles,
	caps profiler.Capabilities,
	f *profiler.File,
) {
	b.WriteString(st.path.Render(f.Path))
	b.WriteByte('\n')

	cpu := "cpu"
	if caps.ThreadCPU {
		cpu = "thread cpu"
	}

	row := func(c profiler.Cost, label string) {
		fmt.Fprintf(b, "  % 10.1fms", ms(c.Wall))

		if caps.CPU {
			b.WriteString(st.cpu.Render(fmt.Sprintf(" (% 10.1fms %s)", ms(c.CPU), cpu)))
		}

		if caps.Allocs {
			b.WriteString(st.allocs.Render(fmt.Sprintf(" % 7d objects", c.Allocs)))
		}

		b.WriteString(" " + label + "\n")
	}

	row(f.Summary.Exclusive(), "in this file")
	row(f.Summary.Total, "in this file + children")
	row(f.Summary.Child, "in children")
}
