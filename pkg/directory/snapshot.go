// Package directory holds the read side of the club kit results table: a
// snapshot of one loaded page and the row parser that turns it into records.
package directory

import (
	"net/url"

	"clubkit/pkg/models"
)

// Snapshot is the results table as it stood once a page was confirmed loaded.
// It is recomputed on every iteration and never persisted.
type Snapshot struct {
	Markup string
	State  models.PageState
}

// Records parses the snapshot's rows against the site origin
func (s Snapshot) Records(base *url.URL) ([]models.ClubKitRecord, []error) {
	return ParseRows(s.Markup, base)
}

// SameMarkup reports whether two snapshots show identical table contents
func (s Snapshot) SameMarkup(other Snapshot) bool {
	return s.Markup == other.Markup
}
