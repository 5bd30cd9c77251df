package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// SummaryRow is one line of the end-of-run table
type SummaryRow struct {
	Collection string
	Pages      int
	Items      int
	Written    int
	Skipped    int
	Failures   int
	Duration   time.Duration
	Status     string
}

var summaryHeader = []string{"COLLECTION", "PAGES", "ITEMS", "NEW", "SKIPPED", "LLM ERR", "TIME", "STATUS"}

const maxCollectionWidth = 28

// RenderSummaryTable writes rows as an aligned table. Column widths are
// measured in terminal cells so emoji and CJK collection names line up.
func RenderSummaryTable(w io.Writer, rows []SummaryRow) {
	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, summaryHeader)
	for _, r := range rows {
		cells = append(cells, []string{
			runewidth.Truncate(r.Collection, maxCollectionWidth, "…"),
			fmt.Sprint(r.Pages),
			fmt.Sprint(r.Items),
			fmt.Sprint(r.Written),
			fmt.Sprint(r.Skipped),
			fmt.Sprint(r.Failures),
			formatDuration(r.Duration),
			r.Status,
		})
	}

	widths := make([]int, len(summaryHeader))
	for _, row := range cells {
		for i, c := range row {
			if n := runewidth.StringWidth(c); n > widths[i] {
				widths[i] = n
			}
		}
	}

	for i, row := range cells {
		var b strings.Builder
		for j, c := range row {
			if j > 0 {
				b.WriteString("  ")
			}
			if j == len(row)-1 {
				b.WriteString(c)
				continue
			}
			b.WriteString(runewidth.FillRight(c, widths[j]))
		}
		line := b.String()
		if i == 0 {
			line = Dim(line)
		}
		fmt.Fprintln(w, line)
	}
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
