package ui

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/go-scripts/wordstat/pkg/common"
)

// RenderSummary prints the result table with a totals footer.
func RenderSummary(w io.Writer, results common.ResultTable, placeholder string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Query", "Loose", "Exact", "Exact-Forced"})
	for i, res := range results {
		t.AppendRow(table.Row{
			i + 1,
			res.Query,
			res.Loose.Or(placeholder),
			res.Exact.Or(placeholder),
			res.ExactForced.Or(placeholder),
		})
	}
	t.AppendFooter(table.Row{"", "Found",
		found(results, common.Loose),
		found(results, common.Exact),
		found(results, common.ExactForced),
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func found(results common.ResultTable, v common.Variant) string {
	n := 0
	for _, res := range results {
		if res.Get(v).Found() {
			n++
		}
	}
	return fmt.Sprintf("%d/%d", n, len(results))
}
