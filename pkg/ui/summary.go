package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"clubkit/pkg/report"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// RenderSummary renders the end-of-crawl totals as a table, followed by the
// reason the crawl stopped when it did not finish
func RenderSummary(r *report.Report) string {
	rows := [][]string{
		{"Pages completed", strconv.Itoa(r.PagesCompleted)},
		{"Last completed page", strconv.Itoa(r.LastCompletedPage)},
		{"Clubs processed", strconv.Itoa(r.RecordsProcessed)},
		{"Repeated clubs skipped", strconv.Itoa(r.DuplicatesSkipped)},
		{"Malformed rows", strconv.Itoa(r.RowErrors)},
		{"Files saved", strconv.Itoa(r.DownloadsSucceeded)},
		{"Files failed", strconv.Itoa(r.DownloadsFailed)},
		{"Unknown content types", strconv.Itoa(r.UnknownContentTypes)},
		{"Duration", formatDuration(r.Duration())},
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Crawl", "Total").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerCell
			case col == 1:
				return numberCell
			default:
				return cell
			}
		})

	var b strings.Builder
	b.WriteString(t.Render())
	b.WriteString("\n")

	switch {
	case r.Cancelled:
		b.WriteString(warningStyle.Render(fmt.Sprintf("Crawl cancelled after page %d", r.LastCompletedPage)))
	case !r.Success():
		b.WriteString(errorStyle.Render(fmt.Sprintf("Crawl failed after page %d: %s", r.LastCompletedPage, r.FatalError)))
	default:
		b.WriteString(successStyle.Render("Directory crawl complete"))
	}
	return b.String()
}

// PrintSummary prints RenderSummary to Output
func PrintSummary(r *report.Report) {
	fmt.Fprintln(Output, RenderSummary(r))
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
