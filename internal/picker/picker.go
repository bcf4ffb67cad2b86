// Package picker is the interactive chooser behind `cortex search`. Typing
// refines the fuzzy query; the list follows.
package picker

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nikbrunner/cortex/internal/search"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Underline(true)

	categoryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true)
)

// linesPerRow is the height of one result: title line plus URL line.
const linesPerRow = 2

// chromeLines is the space taken by prompt, blank lines and footer.
const chromeLines = 4

// Picker selects one bookmark from a fuzzy-filtered list.
type Picker struct {
	entries []search.Entry
	results []search.Result
	query   string

	cursor int
	offset int

	chosen    *search.Entry
	cancelled bool

	width  int
	height int
}

// New creates a Picker over entries, pre-filtered by query.
func New(entries []search.Entry, query string) Picker {
	p := Picker{
		entries: entries,
		width:   80,
		height:  24,
	}
	p.setQuery(query)
	return p
}

func (p *Picker) setQuery(q string) {
	p.query = q
	if strings.TrimSpace(q) == "" {
		p.results = make([]search.Result, len(p.entries))
		for i, e := range p.entries {
			p.results[i] = search.Result{Entry: e}
		}
	} else {
		p.results = search.Fuzzy(p.entries, q)
	}
	p.cursor = 0
	p.offset = 0
}

// visibleRows is how many results fit the terminal.
func (p Picker) visibleRows() int {
	rows := (p.height - chromeLines) / linesPerRow
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (p *Picker) move(delta int) {
	if len(p.results) == 0 {
		return
	}
	p.cursor = min(max(p.cursor+delta, 0), len(p.results)-1)
	rows := p.visibleRows()
	switch {
	case p.cursor < p.offset:
		p.offset = p.cursor
	case p.cursor >= p.offset+rows:
		p.offset = p.cursor - rows + 1
	}
}

func (p Picker) Init() tea.Cmd {
	return nil
}

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.height = msg.Height
		p.move(0)
		return p, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			p.cancelled = true
			return p, tea.Quit
		case tea.KeyEnter:
			if len(p.results) == 0 {
				return p, nil
			}
			e := p.results[p.cursor].Entry
			p.chosen = &e
			return p, tea.Quit
		case tea.KeyDown, tea.KeyCtrlN, tea.KeyTab:
			p.move(1)
		case tea.KeyUp, tea.KeyCtrlP, tea.KeyShiftTab:
			p.move(-1)
		case tea.KeyPgDown:
			p.move(p.visibleRows())
		case tea.KeyPgUp:
			p.move(-p.visibleRows())
		case tea.KeyBackspace:
			if r := []rune(p.query); len(r) > 0 {
				p.setQuery(string(r[:len(r)-1]))
			}
		case tea.KeyCtrlU:
			p.setQuery("")
		case tea.KeySpace:
			p.setQuery(p.query + " ")
		case tea.KeyRunes:
			p.setQuery(p.query + string(msg.Runes))
		}
	}
	return p, nil
}

func (p Picker) View() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s%s\n\n",
		promptStyle.Render(">"),
		p.query,
		dimStyle.Render(fmt.Sprintf("  %d/%d", len(p.results), len(p.entries))))

	if len(p.results) == 0 {
		b.WriteString(dimStyle.Render("  no matches"))
		b.WriteString("\n")
	}

	end := min(p.offset+p.visibleRows(), len(p.results))
	for i := p.offset; i < end; i++ {
		r := p.results[i]
		marker, style := "  ", normalStyle
		if i == p.cursor {
			marker, style = "> ", selectedStyle
		}
		fmt.Fprintf(&b, "%s%s %s\n", marker,
			highlight(r.Entry.Bookmark.Title, r.MatchedIndexes, style),
			categoryStyle.Render("["+r.Entry.Category+"]"))
		fmt.Fprintf(&b, "   %s\n", dimStyle.Italic(true).Render(r.Entry.Bookmark.URL))
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("type to filter  ↑/↓: move  Enter: select  Esc: cancel"))
	return b.String()
}

// highlight renders title with the fuzzy-matched runes emphasized.
func highlight(title string, matched []int, base lipgloss.Style) string {
	if len(matched) == 0 {
		return base.Render(title)
	}
	hit := make(map[int]bool, len(matched))
	for _, i := range matched {
		hit[i] = true
	}

	var b strings.Builder
	for i, r := range title {
		if hit[i] {
			b.WriteString(matchStyle.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}
	return b.String()
}

// Query is the current filter text.
func (p Picker) Query() string {
	return p.query
}

// Selected returns the chosen entry, or nil when nothing was chosen.
func (p Picker) Selected() *search.Entry {
	return p.chosen
}

// Cancelled reports whether the user left with Esc or Ctrl+C.
func (p Picker) Cancelled() bool {
	return p.cancelled
}

// Run shows the picker on the terminal and returns the chosen entry, or nil
// when the user cancelled.
func Run(entries []search.Entry, query string, opts ...tea.ProgramOption) (*search.Entry, error) {
	final, err := tea.NewProgram(New(entries, query), opts...).Run()
	if err != nil {
		return nil, err
	}
	return final.(Picker).Selected(), nil
}
