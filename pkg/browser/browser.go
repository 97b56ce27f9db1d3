// Package browser drives the headless Chrome session used to log in to the
// directory and step through its results pages.
package browser

import (
	"context"
	"errors"
	"strings"

	"clubkit/pkg/models"
)

// ErrNotFound is returned when a selector matches no element
var ErrNotFound = errors.New("element not found")

// Element is a queried DOM element: its rendered text and attributes
type Element struct {
	Text  string            `json:"text"`
	Attrs map[string]string `json:"attrs"`
}

// Attr returns the named attribute and whether it was present
func (e Element) Attr(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// HasClass reports whether the element's class list contains class
func (e Element) HasClass(class string) bool {
	for _, c := range strings.Fields(e.Attrs["class"]) {
		if c == class {
			return true
		}
	}
	return false
}

// Page is the set of browser operations the crawler needs. One goroutine
// drives a Page at a time.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	SelectOption(ctx context.Context, selector, value string) error
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	InnerHTML(ctx context.Context, selector string) (string, error)

	// WaitForResponse arms a listener for network responses whose URL
	// satisfies match, runs trigger, then blocks until a match is seen or
	// ctx ends. The listener is armed before trigger runs.
	WaitForResponse(ctx context.Context, match func(url string) bool, trigger func(ctx context.Context) error) error

	// Cookies exports the session cookies that apply to origin
	Cookies(ctx context.Context, origin string) ([]models.SessionCookie, error)
}
