package ui

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	errs "clubkit/pkg/errors"
	"clubkit/pkg/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Output
	Output = &buf
	t.Cleanup(func() { Output = prev })
	return &buf
}

func TestPrintHelpers(t *testing.T) {
	buf := captureOutput(t)

	PrintError("Crawl failed", "page 3")
	PrintWarning("No session cookies")
	PrintSuccess("Done")
	PrintInfo("Output", "/tmp/kit")

	out := buf.String()
	assert.Contains(t, out, "Crawl failed: page 3")
	assert.Contains(t, out, "No session cookies")
	assert.Contains(t, out, "Done")
	assert.Contains(t, out, "Output")
	assert.Contains(t, out, "/tmp/kit")
}

func TestStatusTrackerOnPage(t *testing.T) {
	buf := captureOutput(t)
	st := NewStatusTracker()

	st.OnPage(report.PageReport{Page: 1, Records: 98, Duplicates: 2, Downloaded: 150})
	st.OnPage(report.PageReport{Page: 2, Records: 40, Downloaded: 60, DownloadsFailed: 1, RowErrors: 1})

	assert.Equal(t, 2, st.Pages)
	assert.Equal(t, 138, st.Clubs)
	assert.Equal(t, 210, st.Downloaded)
	assert.Equal(t, 1, st.Failed)

	out := buf.String()
	assert.Contains(t, out, "page 1: 98 clubs, 150 files")
	assert.Contains(t, out, "2 repeated clubs skipped")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "1 bad rows")
	assert.Contains(t, out, "total 210 files")
}

func TestRenderSummary(t *testing.T) {
	r := report.New("next-disabled")
	r.AddPage(report.PageReport{Page: 1, Records: 100, Downloaded: 180, DownloadsFailed: 2})
	r.Finish(nil)

	out := RenderSummary(r)
	assert.Contains(t, out, "Pages completed")
	assert.Contains(t, out, "180")
	assert.Contains(t, out, "Directory crawl complete")
}

func TestRenderSummaryFailure(t *testing.T) {
	r := report.New("next-disabled")
	r.AddPage(report.PageReport{Page: 1})
	r.AddPage(report.PageReport{Page: 2})
	r.Finish(fmt.Errorf("crawl stopped after page 2: %w", errs.PageLoadTimeout(2, context.DeadlineExceeded)))

	out := RenderSummary(r)
	assert.Contains(t, out, "Crawl failed after page 2")

	cancelled := report.New("next-disabled")
	cancelled.Finish(context.Canceled)
	assert.Contains(t, RenderSummary(cancelled), "Crawl cancelled after page 0")
}

type recordingSender struct {
	titles []string
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	return nil
}

func TestNotifyCrawlFinished(t *testing.T) {
	captureOutput(t)
	sender := &recordingSender{}
	n := NewNotifierWithSender(sender)

	ok := report.New("max-page")
	ok.Finish(nil)
	n.NotifyCrawlFinished(ok)

	failed := report.New("max-page")
	failed.Finish(errs.Navigation("click next page", context.DeadlineExceeded))
	n.NotifyCrawlFinished(failed)

	require.Len(t, sender.titles, 2)
	assert.Equal(t, "Kit crawl complete", sender.titles[0])
	assert.Equal(t, "Kit crawl failed", sender.titles[1])
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "42s", formatDuration(42e9))
	assert.Equal(t, "2m5s", formatDuration(125e9))
	assert.Equal(t, "1h1m", formatDuration(3660e9))
}
