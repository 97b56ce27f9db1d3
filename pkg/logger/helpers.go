package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogDownload logs the outcome of a single kit asset download
func LogDownload(l Logger, club string, index int, path string, err error) {
	fields := map[string]interface{}{
		"club":  club,
		"index": index,
	}
	if path != "" {
		fields["path"] = path
	}

	if err != nil {
		l.WithError(err).WarnWithFields("Kit download failed", fields)
		return
	}
	l.DebugWithFields("Kit download completed", fields)
}

// PageSummary is the per-page tally reported after a page's downloads settle
type PageSummary struct {
	Page            int
	Records         int
	Duplicates      int
	RowErrors       int
	Downloaded      int
	DownloadsFailed int
	Duration        time.Duration
}

// LogPageSummary logs the per-page tally
func LogPageSummary(l Logger, s PageSummary) {
	l.InfoWithFields("Page processed", map[string]interface{}{
		"page":             s.Page,
		"records":          s.Records,
		"duplicates":       s.Duplicates,
		"row_errors":       s.RowErrors,
		"downloaded":       s.Downloaded,
		"downloads_failed": s.DownloadsFailed,
		"duration":         s.Duration,
	})
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	scoped := l.WithField("component", component)
	if len(config) > 0 {
		scoped = scoped.WithFields(config)
	}
	scoped.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}

func (n *nopLogger) GetZerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
