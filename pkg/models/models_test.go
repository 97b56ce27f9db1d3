package models

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestClubKitRecordIsImmutable(t *testing.T) {
	urls := []*url.URL{mustURL(t, "https://example.com/a.jpg")}
	rec := NewClubKitRecord("Acme CC", urls)

	urls[0].Path = "/changed"
	assert.Equal(t, "/a.jpg", rec.KitImageURLs()[0].Path)

	got := rec.KitImageURLs()
	got[0].Path = "/mutated"
	assert.Equal(t, "/a.jpg", rec.KitImageURLs()[0].Path)
}

func TestTargetsPreserveOrder(t *testing.T) {
	rec := NewClubKitRecord("Acme CC", []*url.URL{
		mustURL(t, "https://example.com/front.jpg"),
		mustURL(t, "https://example.com/back.png"),
	})

	targets := rec.Targets()
	require.Len(t, targets, 2)
	assert.Equal(t, 0, targets[0].Index)
	assert.Equal(t, "/front.jpg", targets[0].URL().Path)
	assert.Equal(t, "/back.png", targets[1].URL().Path)
	assert.Equal(t, "Acme CC", targets[1].Club())
}

func TestRecordWithoutImages(t *testing.T) {
	rec := NewClubKitRecord("Empty CC", nil)
	assert.Equal(t, 0, rec.ImageCount())
	assert.Empty(t, rec.Targets())
}

func TestPageStateOnLastPage(t *testing.T) {
	assert.False(t, PageState{}.OnLastPage())
	assert.False(t, PageState{CurrentPage: 2, MaxVisiblePage: 5}.OnLastPage())
	assert.True(t, PageState{CurrentPage: 5, MaxVisiblePage: 5}.OnLastPage())
}

func TestCookieHeader(t *testing.T) {
	header := CookieHeader([]SessionCookie{
		{Name: "session", Value: "abc"},
		{Name: "csrf", Value: "x=y"},
	})
	assert.Equal(t, "session=abc; csrf=x=y", header)
	assert.Equal(t, "", CookieHeader(nil))
}
