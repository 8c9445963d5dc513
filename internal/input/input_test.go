package input

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"plain", "laptop\nred car\n", []string{"laptop", "red car"}},
		{"blank lines and padding", "\n  laptop  \n\n\t\nred car", []string{"laptop", "red car"}},
		{"crlf", "laptop\r\nred car\r\n", []string{"laptop", "red car"}},
		{"bom", "\ufeffкупить ноутбук\n", []string{"купить ноутбук"}},
		{"duplicates kept", "a\na\n", []string{"a", "a"}},
		// "й" as и + combining breve becomes the single precomposed rune.
		{"nfc", "\u0438\u0306\n", []string{"\u0439"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(strings.NewReader(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadEmpty(t *testing.T) {
	for _, in := range []string{"", "\n\n", "  \n\t\n", "\ufeff\n"} {
		_, err := Read(strings.NewReader(in))
		assert.ErrorIs(t, err, ErrNoQueries)
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queries.txt")
	require.NoError(t, os.WriteFile(path, []byte("laptop\n\nred car\n"), 0o644))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"laptop", "red car"}, got)

	_, err = ReadFile(filepath.Join(dir, "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorContains(t, err, "not found")

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = ReadFile(empty)
	assert.ErrorIs(t, err, ErrNoQueries)
}
