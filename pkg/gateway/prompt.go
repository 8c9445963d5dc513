package gateway

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/tcnksm/go-input"
)

// Prompter asks the user a yes/no question.
type Prompter interface {
	Confirm(question string) bool
}

// ConsolePrompter asks on the terminal.
type ConsolePrompter struct {
	ui *input.UI
}

func NewConsolePrompter() *ConsolePrompter {
	return &ConsolePrompter{ui: input.DefaultUI()}
}

// NewPrompterUI asks through ui instead of the process terminal.
func NewPrompterUI(ui *input.UI) *ConsolePrompter {
	return &ConsolePrompter{ui: ui}
}

func (p *ConsolePrompter) Confirm(question string) bool {
	answer, err := p.ui.Ask(question+" (y/n)", &input.Options{
		Default:     "n",
		HideDefault: true,
	})
	if err != nil {
		return false
	}
	return IsYes(answer)
}

// IsYes accepts English and Russian affirmatives.
func IsYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "да", "д":
		return true
	}
	return false
}

// Countdown shows a spinner with the remaining seconds for d.
func Countdown(ctx context.Context, d time.Duration) error {
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Start()
	defer s.Stop()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for left := d; left > 0; left -= time.Second {
		s.Suffix = fmt.Sprintf(" waiting for login: %ds left", int(left.Round(time.Second).Seconds()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
