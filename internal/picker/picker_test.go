package picker

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nikbrunner/cortex/internal/model"
	"github.com/nikbrunner/cortex/internal/search"
)

func entries() []search.Entry {
	return []search.Entry{
		{Category: "Code", Bookmark: model.Bookmark{ID: 1, Title: "GitHub", URL: "https://github.com"}},
		{Category: "Code", Bookmark: model.Bookmark{ID: 2, Title: "GitLab", URL: "https://gitlab.com"}},
		{Category: "News", Bookmark: model.Bookmark{ID: 3, Title: "Hacker News", URL: "https://news.ycombinator.com"}},
	}
}

func update(p Picker, msg tea.Msg) (Picker, tea.Cmd) {
	m, cmd := p.Update(msg)
	return m.(Picker), cmd
}

func typeText(p Picker, s string) Picker {
	for _, r := range s {
		p, _ = update(p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return p
}

func TestPicker_InitialQueryFilters(t *testing.T) {
	p := New(entries(), "git")

	if len(p.results) != 2 {
		t.Fatalf("expected 2 results for 'git', got %d", len(p.results))
	}
	if p.cursor != 0 {
		t.Errorf("expected cursor at 0, got %d", p.cursor)
	}
}

func TestPicker_EmptyQueryListsAll(t *testing.T) {
	p := New(entries(), "")

	if len(p.results) != 3 {
		t.Errorf("expected all 3 entries, got %d", len(p.results))
	}
}

func TestPicker_TypingRefines(t *testing.T) {
	p := typeText(New(entries(), "git"), "la")

	if p.Query() != "gitla" {
		t.Errorf("expected query 'gitla', got %q", p.Query())
	}
	if len(p.results) != 1 || p.results[0].Entry.Bookmark.ID != 2 {
		t.Fatalf("expected only GitLab, got %+v", p.results)
	}

	p, _ = update(p, tea.KeyMsg{Type: tea.KeyBackspace})
	p, _ = update(p, tea.KeyMsg{Type: tea.KeyBackspace})
	if len(p.results) != 2 {
		t.Errorf("expected 2 results after backspace, got %d", len(p.results))
	}

	p, _ = update(p, tea.KeyMsg{Type: tea.KeyCtrlU})
	if p.Query() != "" || len(p.results) != 3 {
		t.Errorf("expected cleared query with all entries, got %q / %d", p.Query(), len(p.results))
	}
}

func TestPicker_TypingResetsCursor(t *testing.T) {
	p, _ := update(New(entries(), ""), tea.KeyMsg{Type: tea.KeyDown})
	if p.cursor != 1 {
		t.Fatalf("expected cursor at 1, got %d", p.cursor)
	}

	p = typeText(p, "h")
	if p.cursor != 0 {
		t.Errorf("expected cursor reset to 0, got %d", p.cursor)
	}
}

func TestPicker_Navigation(t *testing.T) {
	p := New(entries(), "")

	p, _ = update(p, tea.KeyMsg{Type: tea.KeyUp})
	if p.cursor != 0 {
		t.Errorf("expected cursor to stay at 0, got %d", p.cursor)
	}

	for _, k := range []tea.KeyType{tea.KeyDown, tea.KeyCtrlN, tea.KeyTab} {
		p, _ = update(p, tea.KeyMsg{Type: k})
	}
	if p.cursor != 2 {
		t.Errorf("expected cursor clamped at 2, got %d", p.cursor)
	}

	p, _ = update(p, tea.KeyMsg{Type: tea.KeyCtrlP})
	if p.cursor != 1 {
		t.Errorf("expected cursor at 1 after ctrl+p, got %d", p.cursor)
	}
}

func TestPicker_ScrollsWithCursor(t *testing.T) {
	p := New(entries(), "")
	// Room for exactly one result.
	p, _ = update(p, tea.WindowSizeMsg{Width: 80, Height: chromeLines + linesPerRow})

	p, _ = update(p, tea.KeyMsg{Type: tea.KeyDown})
	p, _ = update(p, tea.KeyMsg{Type: tea.KeyDown})
	if p.offset != 2 {
		t.Errorf("expected offset 2, got %d", p.offset)
	}

	view := p.View()
	if !strings.Contains(view, "Hacker News") || strings.Contains(view, "GitHub") {
		t.Errorf("expected only the third entry on screen, got:\n%s", view)
	}

	p, _ = update(p, tea.KeyMsg{Type: tea.KeyPgUp})
	if p.cursor != 1 || p.offset != 1 {
		t.Errorf("expected cursor and offset at 1, got %d/%d", p.cursor, p.offset)
	}
}

func TestPicker_Select(t *testing.T) {
	p, _ := update(New(entries(), "git"), tea.KeyMsg{Type: tea.KeyDown})

	p, cmd := update(p, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Error("expected quit command after selection")
	}

	got := p.Selected()
	if got == nil {
		t.Fatal("expected a selection")
	}
	if got.Category != "Code" {
		t.Errorf("expected category Code, got %q", got.Category)
	}
}

func TestPicker_EnterWithoutResults(t *testing.T) {
	p := typeText(New(entries(), ""), "zzzz")

	p, cmd := update(p, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("expected no quit when nothing matches")
	}
	if p.Selected() != nil {
		t.Error("expected nil selection")
	}
}

func TestPicker_Cancel(t *testing.T) {
	for _, msg := range []tea.KeyMsg{{Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}} {
		p, cmd := update(New(entries(), "git"), msg)

		if !p.Cancelled() {
			t.Errorf("%v: expected cancelled", msg)
		}
		if cmd == nil {
			t.Errorf("%v: expected quit command after cancel", msg)
		}
		if p.Selected() != nil {
			t.Errorf("%v: expected nil selection when cancelled", msg)
		}
	}
}

func TestPicker_QIsText(t *testing.T) {
	p, cmd := update(New(entries(), ""), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

	if p.Cancelled() || cmd != nil {
		t.Error("expected q to be typed, not to quit")
	}
	if p.Query() != "q" {
		t.Errorf("expected query 'q', got %q", p.Query())
	}
}

func TestPicker_View(t *testing.T) {
	view := New(entries(), "git").View()

	for _, want := range []string{"2/3", "[Code]", "https://gitlab.com", "Esc: cancel"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}

	empty := New(entries(), "zzzz").View()
	if !strings.Contains(empty, "no matches") {
		t.Errorf("expected 'no matches' in view, got:\n%s", empty)
	}
}

func TestHighlight_NoMatches(t *testing.T) {
	if got := highlight("Go", nil, normalStyle); !strings.Contains(got, "Go") {
		t.Errorf("expected plain title, got %q", got)
	}
}
