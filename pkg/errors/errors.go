package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different types of errors that can occur during a crawl
type ErrorType string

const (
	ErrorTypeRowParse           ErrorType = "row_parse"
	ErrorTypeUnknownContentType ErrorType = "unknown_content_type"
	ErrorTypePageLoadTimeout    ErrorType = "page_load_timeout"
	ErrorTypeNavigation         ErrorType = "navigation"
	ErrorTypeAuthentication     ErrorType = "authentication"
	ErrorTypeDownload           ErrorType = "download"
	ErrorTypeConfig             ErrorType = "config"
)

// Error is a crawl error with type information and optional location context.
// Page and Row are 1-based; zero means unknown.
type Error struct {
	Type        ErrorType
	Message     string
	Page        int
	Row         int
	URL         string
	ContentType string
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s error: %s", e.Type, e.Message)
	if e.Page > 0 {
		fmt.Fprintf(&b, " (page %d)", e.Page)
	}
	if e.Row > 0 {
		fmt.Fprintf(&b, " (row %d)", e.Row)
	}
	if e.URL != "" {
		fmt.Fprintf(&b, " url=%s", e.URL)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsFatal reports whether an error type aborts the whole crawl.
// Row and file level errors are recovered locally.
func IsFatal(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypePageLoadTimeout, ErrorTypeNavigation, ErrorTypeAuthentication, ErrorTypeConfig:
		return true
	default:
		return false
	}
}

// Is reports whether err carries the given error type anywhere in its chain
func Is(err error, errorType ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == errorType
	}
	return false
}

// TypeOf returns the error type of err, or "" when err is not a typed crawl error
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

// RowParse reports a malformed table row. The row is skipped.
func RowParse(row int, msg string) *Error {
	return &Error{Type: ErrorTypeRowParse, Row: row, Message: msg}
}

// UnknownContentType reports an asset whose content type has no extension mapping
func UnknownContentType(contentType, url string) *Error {
	return &Error{
		Type:        ErrorTypeUnknownContentType,
		Message:     fmt.Sprintf("unknown content type %q", contentType),
		ContentType: contentType,
		URL:         url,
	}
}

// PageLoadTimeout reports a readiness poll that never converged.
// lastPage is the last page that was confirmed loaded.
func PageLoadTimeout(lastPage int, err error) *Error {
	return &Error{
		Type:    ErrorTypePageLoadTimeout,
		Message: "results page did not finish loading",
		Page:    lastPage,
		Err:     err,
	}
}

// Navigation reports a failed browser action
func Navigation(action string, err error) *Error {
	return &Error{Type: ErrorTypeNavigation, Message: action, Err: err}
}

// Authentication reports a failed login
func Authentication(msg string, err error) *Error {
	return &Error{Type: ErrorTypeAuthentication, Message: msg, Err: err}
}

// Download reports a failed fetch or write of a single asset
func Download(url string, err error) *Error {
	return &Error{Type: ErrorTypeDownload, Message: "asset download failed", URL: url, Err: err}
}
