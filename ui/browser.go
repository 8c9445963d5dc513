package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-scripts/wordstat/pkg/common"
)

// Browser is the interactive result viewer shown after a run.
type Browser struct {
	title  string
	table  *ResultsTable
	width  int
	height int
}

// NewBrowser creates the viewer model.
func NewBrowser(title string, results common.ResultTable, placeholder string) Browser {
	return Browser{
		title: title,
		table: NewResultsTable(results, placeholder),
	}
}

func (b Browser) Init() tea.Cmd {
	return nil
}

func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return b, tea.Quit
		}
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.table.SetSize(msg.Width, msg.Height-2)
		return b, nil
	}
	return b, b.table.Update(msg)
}

func (b Browser) View() string {
	help := helpStyle.Render("↑/↓ scroll • m missing only • q quit")
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(b.title),
		b.table.View(),
		help,
	)
}

// Browse runs the viewer until the user quits.
func Browse(title string, results common.ResultTable, placeholder string) error {
	p := tea.NewProgram(NewBrowser(title, results, placeholder), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running result browser: %w", err)
	}
	return nil
}
