// Package report keeps the running tally of a crawl and writes it to
// crawl-report.json in the output root when the crawl ends. The file is for
// the operator; it is never read back to resume a crawl.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	errs "clubkit/pkg/errors"
	"clubkit/pkg/logger"
)

// FileName is the report's name inside the output root
const FileName = "crawl-report.json"

// PageReport is the tally of one results page
type PageReport struct {
	Page                int           `json:"page"`
	Records             int           `json:"records"`
	Duplicates          int           `json:"duplicates"`
	RowErrors           int           `json:"row_errors"`
	Downloaded          int           `json:"downloaded"`
	DownloadsFailed     int           `json:"downloads_failed"`
	UnknownContentTypes int           `json:"unknown_content_types"`
	Duration            time.Duration `json:"duration_ns"`
}

// Report is the summary of a whole crawl
type Report struct {
	StartedAt           time.Time    `json:"started_at"`
	FinishedAt          time.Time    `json:"finished_at"`
	Policy              string       `json:"completion_policy"`
	PagesCompleted      int          `json:"pages_completed"`
	LastCompletedPage   int          `json:"last_completed_page"`
	RecordsSeen         int          `json:"records_seen"`
	RecordsProcessed    int          `json:"records_processed"`
	DuplicatesSkipped   int          `json:"duplicates_skipped"`
	RowErrors           int          `json:"row_errors"`
	DownloadsSucceeded  int          `json:"downloads_succeeded"`
	DownloadsFailed     int          `json:"downloads_failed"`
	UnknownContentTypes int          `json:"unknown_content_types"`
	Cancelled           bool         `json:"cancelled"`
	FatalErrorType      string       `json:"fatal_error_type,omitempty"`
	FatalError          string       `json:"fatal_error,omitempty"`
	Pages               []PageReport `json:"pages"`
}

// New starts a report for a crawl using the given completion policy
func New(policy string) *Report {
	return &Report{StartedAt: time.Now(), Policy: policy}
}

// AddPage folds a completed page into the totals
func (r *Report) AddPage(p PageReport) {
	r.Pages = append(r.Pages, p)
	r.PagesCompleted++
	r.LastCompletedPage = p.Page
	r.RecordsSeen += p.Records + p.Duplicates
	r.RecordsProcessed += p.Records
	r.DuplicatesSkipped += p.Duplicates
	r.RowErrors += p.RowErrors
	r.DownloadsSucceeded += p.Downloaded
	r.DownloadsFailed += p.DownloadsFailed
	r.UnknownContentTypes += p.UnknownContentTypes
}

// Finish stamps the end time and records the error that ended the crawl, if any
func (r *Report) Finish(err error) {
	r.FinishedAt = time.Now()
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		r.Cancelled = true
	}
	r.FatalErrorType = string(errs.TypeOf(err))
	r.FatalError = err.Error()
}

// Success reports whether the crawl walked the whole directory
func (r *Report) Success() bool {
	return r.FatalError == ""
}

// Duration is the wall time of the crawl
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Writer saves reports into an output directory
type Writer struct {
	path   string
	logger logger.Logger
}

// NewWriter creates a writer targeting <outputDir>/crawl-report.json
func NewWriter(outputDir string, log logger.Logger) *Writer {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Writer{path: filepath.Join(outputDir, FileName), logger: log}
}

// Path returns where the report is written
func (w *Writer) Path() string {
	return w.path
}

// Save writes the report atomically
func (w *Writer) Save(r *Report) error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	tempPath := w.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary report file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync report file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close report file: %w", err)
	}

	if err := os.Rename(tempPath, w.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace report file: %w", err)
	}

	w.logger.DebugWithFields("Crawl report saved", map[string]interface{}{
		"path":            w.path,
		"pages_completed": r.PagesCompleted,
	})
	return nil
}
