package writer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-scripts/wordstat/internal/queue"
	"github.com/go-scripts/wordstat/pkg/extract"
)

// PageDump saves the markup of every fetched page, for keeping the
// extraction rules current.
type PageDump struct {
	outputDir string
}

// NewPageDump creates outputDir if needed.
func NewPageDump(outputDir string) (*PageDump, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create dump directory: %w", err)
	}
	return &PageDump{outputDir: outputDir}, nil
}

// Dump writes <n>_<variant>_<query>.html.
func (d *PageDump) Dump(n int, job queue.Job, page extract.Page) error {
	name := fmt.Sprintf("%03d_%s_%s.html", n, job.Variant, sanitizeFilename(job.Query))
	path := filepath.Join(d.outputDir, name)

	if err := os.WriteFile(path, []byte(page.Markup), 0644); err != nil {
		return fmt.Errorf("failed to write page dump: %w", err)
	}
	return nil
}

// sanitizeFilename makes a query safe to use in a file name.
func sanitizeFilename(s string) string {
	unsafe := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", " ", "!"}
	for _, char := range unsafe {
		s = strings.ReplaceAll(s, char, "_")
	}

	runes := []rune(s)
	if len(runes) > 80 {
		s = string(runes[:80])
	}
	if s == "" {
		return "empty"
	}
	return s
}
