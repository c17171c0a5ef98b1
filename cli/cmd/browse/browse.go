package browse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/lineprof/pkg"
	"github.com/ardnew/lineprof/profiler"
	"github.com/ardnew/lineprof/report"
)

// ErrEmpty indicates there are no profiled files to browse.
var ErrEmpty = pkg.NewError("no profiled files")

const (
	defaultWidth  = 80
	defaultHeight = 24
	filterPrompt  = "filter> "
	// chrome is the number of rows used by headers and hints.
	chrome = 3
)

// Styles.
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	costStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	selectedStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
)

type screen int

const (
	screenFiles screen = iota
	screenFile
)

// Run browses res until the user quits or ctx is done.
func Run(ctx context.Context, res *profiler.Result, opts ...Option) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	if res == nil || len(res.Files) == 0 {
		return ErrEmpty
	}

	m := newModel(ctx, res, makeConfig(opts...))

	m.cfg.logger.TraceContext(ctx, "browse start",
		slog.Int("files", len(m.paths)))

	_, err = tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()).Run()

	return err
}

// model is the Bubble Tea model for the browser.
type model struct {
	ctxFunc  func() context.Context
	res      *profiler.Result
	cfg      config
	paths    []string
	input    textinput.Model
	matches  fuzzy.Matches // current fuzzy match results
	page     viewport.Model
	open     string // path shown on screenFile
	cursor   int    // selected match
	offset   int    // first visible match
	width    int
	height   int
	screen   screen
	quitting bool
}

func newModel(ctx context.Context, res *profiler.Result, cfg config) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(filterPrompt)
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = defaultWidth - len(filterPrompt) - 2

	m := model{
		ctxFunc: func() context.Context { return ctx },
		res:     res,
		cfg:     cfg,
		paths:   res.Paths(),
		input:   ti,
		page:    viewport.New(defaultWidth, defaultHeight-chrome),
		width:   defaultWidth,
		height:  defaultHeight,
	}

	m.refresh()

	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.screen == screenFile {
			return m.handlePageKey(msg)
		}

		return m.handleListKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = msg.Width - len(filterPrompt) - 2
		m.page.Width = msg.Width
		m.page.Height = max(msg.Height-chrome, 1)
		m.scroll()

		return m, nil
	}

	var cmd tea.Cmd

	if m.screen == screenFiles {
		m.input, cmd = m.input.Update(msg)
	}

	return m, cmd
}

func (m model) handleListKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true

		return m, tea.Quit

	case tea.KeyEsc:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		m.input.SetValue("")
		m.refresh()

		return m, nil

	case tea.KeyEnter:
		if len(m.matches) == 0 {
			return m, nil
		}

		return m.openFile(m.matches[m.cursor].Str), nil

	case tea.KeyUp, tea.KeyCtrlP:
		m.cursor = max(m.cursor-1, 0)
		m.scroll()

		return m, nil

	case tea.KeyDown, tea.KeyCtrlN:
		m.cursor = min(m.cursor+1, max(len(m.matches)-1, 0))
		m.scroll()

		return m, nil
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)
	m.refresh()

	return m, cmd
}

func (m model) handlePageKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC, msg.String() == "q":
		m.quitting = true

		return m, tea.Quit

	case msg.Type == tea.KeyEsc, msg.Type == tea.KeyBackspace:
		m.screen = screenFiles
		m.open = ""

		return m, nil
	}

	var cmd tea.Cmd

	m.page, cmd = m.page.Update(msg)

	return m, cmd
}

// refresh recomputes the matches for the current filter text and keeps the
// selection in range.
func (m *model) refresh() {
	m.matches = report.Match(m.paths, strings.TrimSpace(m.input.Value()))
	m.cursor = min(m.cursor, max(len(m.matches)-1, 0))
	m.scroll()
}

// scroll keeps the selected match within the visible rows.
func (m *model) scroll() {
	rows := max(m.height-chrome, 1)

	switch {
	case m.cursor < m.offset:
		m.offset = m.cursor
	case m.cursor >= m.offset+rows:
		m.offset = m.cursor - rows + 1
	}

	m.offset = max(min(m.offset, len(m.matches)-rows), 0)
}

// openFile renders the listing of path into the page.
func (m model) openFile(path string) model {
	var b strings.Builder

	err := report.Text(&b, m.res,
		report.WithFiles(path),
		report.WithSource(m.cfg.source),
		report.WithAllLines(m.cfg.allLines),
	)
	if err != nil {
		m.cfg.logger.DebugContext(m.ctxFunc(), "render failed",
			slog.String("path", path),
			slog.Any("error", err))
	}

	m.page.SetContent(b.String())
	m.page.GotoTop()
	m.open = path
	m.screen = screenFile

	m.cfg.logger.TraceContext(m.ctxFunc(), "browse open",
		slog.String("path", path))

	return m
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	if m.screen == screenFile {
		return titleStyle.Render(m.open) + "\n" +
			m.page.View() + "\n" +
			hintStyle.Render("↑/↓ scroll · esc back · q quit")
	}

	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteByte('\n')

	rows := max(m.height-chrome, 1)
	end := min(m.offset+rows, len(m.matches))

	for i := m.offset; i < end; i++ {
		match := m.matches[i]
		f := m.res.File(match.Str)

		b.WriteString(costStyle.Render(fmt.Sprintf("% 10.1fms ",
			float64(f.Summary.Exclusive().Wall)/float64(time.Millisecond))))
		b.WriteString(renderMatch(match, i == m.cursor))
		b.WriteByte('\n')
	}

	b.WriteString(hintStyle.Render(fmt.Sprintf(
		"%d/%d files · ↑/↓ select · enter open · esc quit",
		len(m.matches), len(m.paths),
	)))

	return b.String()
}

// renderMatch renders a path with its matched characters highlighted.
func renderMatch(match fuzzy.Match, selected bool) string {
	baseStyle := suggestionStyle
	highlightStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("4")).
		Bold(true).
		Underline(true)

	if selected {
		baseStyle = selectedStyle
		highlightStyle = selectedStyle.Bold(true).Underline(true)
	}

	matched := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matched[idx] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		if matched[i] {
			b.WriteString(highlightStyle.Render(string(r)))
		} else {
			b.WriteString(baseStyle.Render(string(r)))
		}
	}

	return b.String()
}
