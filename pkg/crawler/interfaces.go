package crawler

import (
	"context"

	"clubkit/internal/downloader"
	"clubkit/pkg/models"
	"clubkit/pkg/siteclient"
)

// CookieSink receives the session cookies captured after login
type CookieSink interface {
	SetCookies(cookies []models.SessionCookie)
}

// RecordDownloader downloads every kit image of a page's records and returns
// once they have all settled
type RecordDownloader interface {
	DownloadRecords(ctx context.Context, records []models.ClubKitRecord) downloader.BatchResult
}

// Ensure the concrete implementations satisfy the interfaces
var (
	_ RecordDownloader = (*downloader.KitDownloader)(nil)
	_ CookieSink       = (*siteclient.Client)(nil)
)
