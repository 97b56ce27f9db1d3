package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFatal(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		fatal     bool
	}{
		{ErrorTypeRowParse, false},
		{ErrorTypeUnknownContentType, false},
		{ErrorTypeDownload, false},
		{ErrorTypePageLoadTimeout, true},
		{ErrorTypeNavigation, true},
		{ErrorTypeAuthentication, true},
		{ErrorTypeConfig, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			assert.Equal(t, tt.fatal, IsFatal(tt.errorType))
		})
	}
}

func TestIsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("crawl aborted: %w", PageLoadTimeout(3, context.DeadlineExceeded))

	assert.True(t, Is(err, ErrorTypePageLoadTimeout))
	assert.False(t, Is(err, ErrorTypeNavigation))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, ErrorTypePageLoadTimeout, TypeOf(err))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
}

func TestErrorMessage(t *testing.T) {
	err := PageLoadTimeout(7, context.DeadlineExceeded)
	assert.Equal(t, "page_load_timeout error: results page did not finish loading (page 7): context deadline exceeded", err.Error())

	rowErr := RowParse(2, "missing kit column")
	assert.Equal(t, "row_parse error: missing kit column (row 2)", rowErr.Error())

	ctErr := UnknownContentType("text/html", "https://example.com/a")
	assert.Contains(t, ctErr.Error(), `unknown content type "text/html"`)
	assert.Contains(t, ctErr.Error(), "url=https://example.com/a")
}
