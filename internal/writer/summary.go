package writer

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-scripts/wordstat/pkg/common"
)

// WriteSummary writes table as JSON. Absent values are null.
func WriteSummary(path string, table common.ResultTable) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	if table == nil {
		table = common.ResultTable{}
	}
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(table); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	return file.Close()
}
