// Package ui prints the crawler's terminal output: the banner, status lines,
// the per-page progress line and the final summary table, all styled with
// lipgloss.
package ui
