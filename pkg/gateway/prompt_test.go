package gateway

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tcnksm/go-input"
)

func TestIsYes(t *testing.T) {
	for _, answer := range []string{"y", "Y", "yes", " YES ", "да", "Да", "д"} {
		assert.True(t, IsYes(answer), answer)
	}
	for _, answer := range []string{"", "n", "no", "нет", "yep", "дa"} {
		assert.False(t, IsYes(answer), answer)
	}
}

func TestConsolePrompter(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"да\n", true},
		{"yes\n", true},
		{"нет\n", false},
		{"\n", false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.in), func(t *testing.T) {
			p := NewPrompterUI(&input.UI{Writer: io.Discard, Reader: strings.NewReader(tt.in)})
			assert.Equal(t, tt.want, p.Confirm("Retry authorization?"))
		})
	}
}

func TestCountdown(t *testing.T) {
	assert.NoError(t, Countdown(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := Countdown(ctx, 10*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
