package models

import (
	"net/url"
	"strings"
)

// ClubKitRecord is one club row of the directory: the club name and its kit
// image links in on-page order. Records are immutable once built.
type ClubKitRecord struct {
	clubName     string
	kitImageURLs []*url.URL
}

// NewClubKitRecord builds a record, copying the URLs so later changes by the
// caller are not observed.
func NewClubKitRecord(clubName string, kitImageURLs []*url.URL) ClubKitRecord {
	urls := make([]*url.URL, len(kitImageURLs))
	for i, u := range kitImageURLs {
		c := *u
		urls[i] = &c
	}
	return ClubKitRecord{clubName: clubName, kitImageURLs: urls}
}

// ClubName is the decoded, trimmed club name. It is the dedup key.
func (r ClubKitRecord) ClubName() string {
	return r.clubName
}

// KitImageURLs returns copies of the record's absolute image URLs
func (r ClubKitRecord) KitImageURLs() []*url.URL {
	urls := make([]*url.URL, len(r.kitImageURLs))
	for i, u := range r.kitImageURLs {
		c := *u
		urls[i] = &c
	}
	return urls
}

// ImageCount returns the number of kit images on the record
func (r ClubKitRecord) ImageCount() int {
	return len(r.kitImageURLs)
}

// Targets expands the record into one download target per image
func (r ClubKitRecord) Targets() []DownloadTarget {
	targets := make([]DownloadTarget, len(r.kitImageURLs))
	for i := range r.kitImageURLs {
		targets[i] = DownloadTarget{Record: r, Index: i}
	}
	return targets
}

// PageState is the pagination view derived from a loaded results page.
// Both fields are 1-based; zero means no page has been confirmed yet.
type PageState struct {
	CurrentPage    int `json:"current_page"`
	MaxVisiblePage int `json:"max_visible_page"`
}

// OnLastPage reports whether the active page is the highest page shown
func (p PageState) OnLastPage() bool {
	return p.CurrentPage > 0 && p.CurrentPage >= p.MaxVisiblePage
}

// SessionCookie is a name/value pair captured from the browser after login
type SessionCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CookieHeader renders cookies as a raw Cookie header value
func CookieHeader(cookies []SessionCookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// DownloadTarget identifies exactly one output file: the Index-th image of Record
type DownloadTarget struct {
	Record ClubKitRecord
	Index  int
}

// URL returns the source URL of the target
func (t DownloadTarget) URL() *url.URL {
	c := *t.Record.kitImageURLs[t.Index]
	return &c
}

// Club returns the club name of the target's record
func (t DownloadTarget) Club() string {
	return t.Record.clubName
}
