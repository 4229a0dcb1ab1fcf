// Package tui provides the interactive Bubble Tea recall browser.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/trailhound-dev/trailhound/internal/cli"
	"github.com/trailhound-dev/trailhound/internal/model"
	"github.com/trailhound-dev/trailhound/internal/query"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// resultsMsg is sent when a search finishes.
type resultsMsg struct {
	term string
	hits []model.SearchHit
	err  error
}

var searchModes = []query.Mode{query.ModePhrase, query.ModeNatural, query.ModeRaw}

// App is the root Bubble Tea model for the recall browser.
type App struct {
	engine *query.Engine

	input   textinput.Model
	spin    spinner.Model
	modeIdx int

	hits      []model.SearchHit
	cursor    int
	searching bool
	lastTerm  string
	err       error

	width  int
	height int
	limit  int
}

var (
	appTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(cli.ColorAccent)
	modeStyle     = lipgloss.NewStyle().Foreground(cli.ColorOrange)
	selectedStyle = lipgloss.NewStyle().Foreground(cli.ColorText).Background(cli.ColorBorder)
	rowStyle      = lipgloss.NewStyle().Foreground(cli.ColorText)
	metaStyle     = lipgloss.NewStyle().Foreground(cli.ColorTextDim)
	errStyle      = lipgloss.NewStyle().Foreground(cli.ColorRed)
	helpStyle     = lipgloss.NewStyle().Foreground(cli.ColorTextDim)
)

// New returns a recall browser over the given read engine.
func New(engine *query.Engine, limit int) App {
	ti := textinput.New()
	ti.Placeholder = "search recorded history…"
	ti.CharLimit = 256
	ti.Width = 60
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	if limit < 1 {
		limit = 20
	}

	return App{engine: engine, input: ti, spin: sp, limit: limit}
}

// Run starts the browser and blocks until the user quits.
func Run(engine *query.Engine, limit int) error {
	_, err := tea.NewProgram(New(engine, limit), tea.WithAltScreen()).Run()
	return err
}

func (a App) Init() tea.Cmd {
	return textinput.Blink
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return a, tea.Quit
		case "tab":
			a.modeIdx = (a.modeIdx + 1) % len(searchModes)
			return a, nil
		case "enter":
			term := strings.TrimSpace(a.input.Value())
			if term == "" || a.searching {
				return a, nil
			}
			a.searching = true
			a.err = nil
			return a, tea.Batch(a.spin.Tick, a.search(term))
		case "up":
			if a.cursor > 0 {
				a.cursor--
			}
			return a, nil
		case "down":
			if a.cursor < len(a.hits)-1 {
				a.cursor++
			}
			return a, nil
		}

	case resultsMsg:
		a.searching = false
		a.lastTerm = msg.term
		a.err = msg.err
		a.hits = msg.hits
		a.cursor = 0
		return a, nil

	case spinner.TickMsg:
		if !a.searching {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a App) search(term string) tea.Cmd {
	mode := searchModes[a.modeIdx]
	engine := a.engine
	limit := a.limit
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hits, err := engine.Search(ctx, term, mode, limit)
		return resultsMsg{term: term, hits: hits, err: err}
	}
}

func (a App) View() string {
	var b strings.Builder

	b.WriteString("\n  ")
	b.WriteString(appTitleStyle.Render("trailhound recall"))
	b.WriteString("  ")
	b.WriteString(modeStyle.Render(fmt.Sprintf("[%s]", searchModes[a.modeIdx])))
	b.WriteString("\n\n  ")
	b.WriteString(a.input.View())
	b.WriteString("\n\n")

	switch {
	case a.searching:
		b.WriteString("  " + a.spin.View() + " searching…\n")
	case a.err != nil:
		b.WriteString("  " + errStyle.Render(a.err.Error()) + "\n")
	case a.lastTerm != "" && len(a.hits) == 0:
		b.WriteString("  " + metaStyle.Render("no matches for "+a.lastTerm) + "\n")
	default:
		b.WriteString(a.renderHits())
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("  enter search · tab mode · ↑/↓ select · esc quit"))
	b.WriteString("\n")

	return b.String()
}

func (a App) renderHits() string {
	var b strings.Builder
	width := a.width - 6
	if width < 40 {
		width = 40
	}

	for i, h := range a.hits {
		line := fmt.Sprintf("%-10s %-14s %s",
			h.Source,
			cli.FormatTimeAgo(h.Timestamp),
			cli.Ellipsize(h.Snippet, width-28),
		)
		if i == a.cursor {
			b.WriteString("  " + selectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + rowStyle.Render("  "+line) + "\n")
		}
	}

	if len(a.hits) > 0 && a.cursor < len(a.hits) {
		h := a.hits[a.cursor]
		b.WriteString("\n  " + metaStyle.Render(
			fmt.Sprintf("session %s · rank %.2f", cli.Ellipsize(h.SessionID, 20), h.Rank)) + "\n")
	}

	return b.String()
}
