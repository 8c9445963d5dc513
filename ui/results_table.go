package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/go-scripts/wordstat/pkg/common"
)

// ResultsTable is a scrollable view of a result table.
type ResultsTable struct {
	viewport    viewport.Model
	results     common.ResultTable
	placeholder string
	onlyMissing bool
	width       int
	height      int
	headerStyle lipgloss.Style
	cellStyle   lipgloss.Style
	style       lipgloss.Style
}

// NewResultsTable creates a view over results.
func NewResultsTable(results common.ResultTable, placeholder string) *ResultsTable {
	if placeholder == "" {
		placeholder = "N/A"
	}
	t := &ResultsTable{
		results:     results,
		placeholder: placeholder,
		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")),
		cellStyle: lipgloss.NewStyle().
			PaddingLeft(1).
			PaddingRight(1),
		style: borderStyle,
	}
	t.viewport = viewport.New(0, 0)
	t.refresh()
	return t
}

// SetSize updates the table dimensions.
func (t *ResultsTable) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.viewport.Width = max(width-4, 0)
	t.viewport.Height = max(height-6, 0)
	t.refresh()
}

// ToggleMissing switches between all rows and rows with a missing value.
func (t *ResultsTable) ToggleMissing() {
	t.onlyMissing = !t.onlyMissing
	t.refresh()
	t.viewport.GotoTop()
}

// Update handles scrolling keys.
func (t *ResultsTable) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			t.viewport.LineUp(1)
			return nil
		case "down", "j":
			t.viewport.LineDown(1)
			return nil
		case "pgup":
			t.viewport.HalfViewUp()
			return nil
		case "pgdown":
			t.viewport.HalfViewDown()
			return nil
		case "m":
			t.ToggleMissing()
			return nil
		}
	}

	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return cmd
}

// View renders the table.
func (t *ResultsTable) View() string {
	if len(t.results) == 0 {
		return t.style.Render(infoStyle.Render("No results"))
	}

	stats := fmt.Sprintf("Queries: %d | Found: %d of %d | Showing: %d",
		len(t.results),
		t.results.Found(),
		len(t.results)*len(common.Variants()),
		len(t.visible()),
	)
	body := t.viewport.View() + "\n" + infoStyle.Render(stats)
	if t.width > 0 {
		return t.style.Width(t.width - 2).Render(body)
	}
	return t.style.Render(body)
}

// Rows returns the plain text lines of the visible rows.
func (t *ResultsTable) Rows() []string {
	qw := t.queryWidth()
	var rows []string
	for _, res := range t.visible() {
		rows = append(rows, t.row(qw, res))
	}
	return rows
}

func (t *ResultsTable) visible() common.ResultTable {
	if !t.onlyMissing {
		return t.results
	}
	var out common.ResultTable
	for _, res := range t.results {
		for _, v := range common.Variants() {
			if !res.Get(v).Found() {
				out = append(out, res)
				break
			}
		}
	}
	return out
}

func (t *ResultsTable) queryWidth() int {
	w := 5
	for _, res := range t.results {
		w = max(w, runewidth.StringWidth(res.Query))
	}
	if t.width > 0 {
		w = min(w, max(t.width-3*14-10, 10))
	}
	return w
}

func (t *ResultsTable) row(qw int, res common.QueryResult) string {
	cells := []string{pad(truncate(res.Query, qw), qw)}
	for _, v := range common.Variants() {
		cells = append(cells, fmt.Sprintf("%12s", res.Get(v).Or(t.placeholder)))
	}
	return strings.Join(cells, " ")
}

func (t *ResultsTable) refresh() {
	qw := t.queryWidth()
	header := t.headerStyle.Render(fmt.Sprintf("%s %12s %12s %12s",
		pad("Query", qw), "Loose", "Exact", "Exact-Forced"))

	lines := []string{header}
	for _, res := range t.visible() {
		line := t.cellStyle.Render(t.row(qw, res))
		if res.Get(common.Loose).Found() && res.Get(common.Exact).Found() && res.Get(common.ExactForced).Found() {
			lines = append(lines, line)
			continue
		}
		lines = append(lines, missingStyle.Render(line))
	}
	t.viewport.SetContent(strings.Join(lines, "\n"))
}

func truncate(s string, w int) string {
	if runewidth.StringWidth(s) <= w {
		return s
	}
	return runewidth.Truncate(s, w, "...")
}

func pad(s string, w int) string {
	return runewidth.FillRight(s, w)
}
