package browse

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/lineprof/filter"
	"github.com/ardnew/lineprof/log"
	"github.com/ardnew/lineprof/profiler"
	"github.com/ardnew/lineprof/replay"
)

const threeFiles = `
events:
  - {kind: line, file: src/alpha.go, line: 1, thread: 1, wall_us: 0}
  - {kind: line, file: src/beta.go, line: 4, thread: 1, wall_us: 1000}
  - {kind: line, file: lib/gamma.go, line: 9, thread: 1, wall_us: 3000}
  - {kind: return, thread: 1, wall_us: 6000}
`

func testModel(t *testing.T) model {
	t.Helper()

	tr, err := replay.Load(strings.NewReader(threeFiles))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	res, err := tr.Profile(context.Background(), filter.All(),
		profiler.WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}

	return newModel(context.Background(), res, makeConfig(
		WithLogger(log.Discard()),
		WithSource(false),
	))
}

func send(t *testing.T, m model, msgs ...tea.Msg) (model, tea.Cmd) {
	t.Helper()

	var cmd tea.Cmd

	for _, msg := range msgs {
		var next tea.Model

		next, cmd = m.Update(msg)

		var ok bool
		if m, ok = next.(model); !ok {
			t.Fatalf("Update returned %T", next)
		}
	}

	return m, cmd
}

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func matched(m model) []string {
	var paths []string
	for _, match := range m.matches {
		paths = append(paths, match.Str)
	}

	return paths
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}

	_, ok := cmd().(tea.QuitMsg)

	return ok
}

func TestModel_Filter(t *testing.T) {
	m := testModel(t)

	if got := matched(m); len(got) != 3 || got[0] != "lib/gamma.go" {
		t.Fatalf("initial matches = %v, want all paths sorted", got)
	}

	m, _ = send(t, m, runes("bet"))

	if got := matched(m); len(got) != 1 || got[0] != "src/beta.go" {
		t.Errorf("matches after \"bet\" = %v, want [src/beta.go]", got)
	}

	m, _ = send(t, m, key(tea.KeyEsc))

	if got := matched(m); len(got) != 3 {
		t.Errorf("matches after esc = %v, want all paths", got)
	}
}

func TestModel_Cursor_StaysInRange(t *testing.T) {
	m := testModel(t)

	m, _ = send(t, m, key(tea.KeyUp))
	if m.cursor != 0 {
		t.Errorf("cursor after up = %d, want 0", m.cursor)
	}

	m, _ = send(t, m, key(tea.KeyDown), key(tea.KeyDown), key(tea.KeyDown))
	if m.cursor != 2 {
		t.Errorf("cursor after 3 downs = %d, want 2", m.cursor)
	}

	m, _ = send(t, m, runes("alpha"))
	if m.cursor != 0 {
		t.Errorf("cursor after filtering = %d, want 0", m.cursor)
	}
}

func TestModel_OpenAndBack(t *testing.T) {
	m := testModel(t)

	m, _ = send(t, m, key(tea.KeyDown), key(tea.KeyEnter))

	if m.screen != screenFile || m.open != "src/alpha.go" {
		t.Fatalf("screen, open = %v, %q, want file screen for src/alpha.go", m.screen, m.open)
	}

	view := m.View()
	for _, want := range []string{"src/alpha.go", "line 1", "in this file"} {
		if !strings.Contains(view, want) {
			t.Errorf("file view missing %q:\n%s", want, view)
		}
	}

	m, _ = send(t, m, key(tea.KeyEsc))

	if m.screen != screenFiles || m.open != "" {
		t.Errorf("screen after esc = %v, want file list", m.screen)
	}
}

func TestModel_Quit(t *testing.T) {
	tests := []struct {
		name string
		msgs []tea.Msg
	}{
		{"ctrl+c", []tea.Msg{key(tea.KeyCtrlC)}},
		{"esc with empty filter", []tea.Msg{key(tea.KeyEsc)}},
		{"q on file screen", []tea.Msg{key(tea.KeyEnter), runes("q")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cmd := send(t, testModel(t), tt.msgs...)

			if !isQuit(cmd) {
				t.Errorf("last command is not quit")
			}

			if !m.quitting || m.View() != "" {
				t.Errorf("quitting = %v, view = %q", m.quitting, m.View())
			}
		})
	}
}

func TestModel_WindowSize_ScrollsSelection(t *testing.T) {
	m := testModel(t)

	// One visible row.
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 40, Height: chrome + 1})
	m, _ = send(t, m, key(tea.KeyDown), key(tea.KeyDown))

	if m.offset != 2 {
		t.Errorf("offset = %d, want 2", m.offset)
	}

	view := m.View()
	if !strings.Contains(view, "src/beta.go") || strings.Contains(view, "lib/gamma.go") {
		t.Errorf("view shows wrong rows:\n%s", view)
	}
}

func TestRun_Empty(t *testing.T) {
	if err := Run(context.Background(), nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("Run(nil) error = %v, want %v", err, ErrEmpty)
	}
}
