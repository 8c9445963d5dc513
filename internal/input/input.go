// Package input reads the query list.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrNoQueries is returned for an input without a single query.
var ErrNoQueries = errors.New("no queries in input")

const bom = "\ufeff"

// ReadFile reads queries from path.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("input file %s not found: %w", path, err)
		}
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	queries, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return queries, nil
}

// Read returns one query per non-blank line, trimmed and NFC-normalized,
// in input order. Duplicates are kept.
func Read(r io.Reader) ([]string, error) {
	var queries []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, bom)
			first = false
		}
		line = strings.TrimSpace(norm.NFC.String(line))
		if line == "" {
			continue
		}
		queries = append(queries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read queries: %w", err)
	}
	if len(queries) == 0 {
		return nil, ErrNoQueries
	}
	return queries, nil
}
