package ui

import (
	"fmt"
	"sync"
	"time"

	"clubkit/pkg/report"
)

// StatusTracker keeps the running totals shown after each page
type StatusTracker struct {
	mu         sync.Mutex
	Pages      int
	Clubs      int
	Downloaded int
	Failed     int
	StartTime  time.Time
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{StartTime: time.Now()}
}

// AddPage folds a finished page into the totals
func (st *StatusTracker) AddPage(p report.PageReport) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.Pages++
	st.Clubs += p.Records
	st.Downloaded += p.Downloaded
	st.Failed += p.DownloadsFailed
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.StartTime)
}

// GetDownloadRate returns the average number of files saved per minute
func (st *StatusTracker) GetDownloadRate() float64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.Downloaded) / elapsed
}

// PageLine formats the one-line status printed after a page
func (st *StatusTracker) PageLine(p report.PageReport) string {
	st.mu.Lock()
	defer st.mu.Unlock()

	line := fmt.Sprintf("%s page %d: %d clubs, %d files",
		successStyle.Render("[PAGE]"), p.Page, p.Records, p.Downloaded)
	if p.Duplicates > 0 {
		line += dimStyle.Render(fmt.Sprintf(" (%d repeated clubs skipped)", p.Duplicates))
	}
	if p.DownloadsFailed > 0 {
		line += " " + errorStyle.Render(fmt.Sprintf("%d failed", p.DownloadsFailed))
	}
	if p.RowErrors > 0 {
		line += " " + warningStyle.Render(fmt.Sprintf("%d bad rows", p.RowErrors))
	}
	return line + dimStyle.Render(fmt.Sprintf(" | total %d files", st.Downloaded))
}

// OnPage records the page and prints its status line. It matches the
// crawler's per-page callback.
func (st *StatusTracker) OnPage(p report.PageReport) {
	st.AddPage(p)
	fmt.Fprintln(Output, st.PageLine(p))
}
