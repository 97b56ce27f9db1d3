package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	errs "clubkit/pkg/errors"
	"clubkit/pkg/logger"
	"clubkit/pkg/models"
	"clubkit/pkg/siteclient"
	"clubkit/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kitServer(t *testing.T) *httptest.Server {
	t.Helper()
	types := map[string]string{
		"/img/a.jpg":  "image/jpeg",
		"/img/b.png":  "image/png",
		"/img/c.pdf":  "application/pdf",
		"/img/page":   "text/html; charset=utf-8",
		"/img/d.webp": "application/octet-stream",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct, ok := types[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.WriteString(w, "body:"+r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func record(t *testing.T, name, base string, paths ...string) models.ClubKitRecord {
	t.Helper()
	var urls []*url.URL
	for _, p := range paths {
		u, err := url.Parse(base + p)
		require.NoError(t, err)
		urls = append(urls, u)
	}
	return models.NewClubKitRecord(name, urls)
}

func newKitDownloader(t *testing.T, workers int) (*KitDownloader, *storage.Manager) {
	t.Helper()
	store, err := storage.NewManager(filepath.Join(t.TempDir(), "kit"))
	require.NoError(t, err)
	client := siteclient.New(siteclient.Options{Logger: logger.NewNopLogger()})
	d := New(client, store, Options{Workers: workers, Manifests: store, Logger: logger.NewNopLogger()})
	return d, store
}

func TestDownloadRecordWritesIndexedFiles(t *testing.T) {
	srv := kitServer(t)
	d, store := newKitDownloader(t, 4)

	batch := d.DownloadRecord(context.Background(), record(t, "Acme CC", srv.URL, "/img/a.jpg", "/img/b.png"))

	assert.Equal(t, 2, batch.Succeeded)
	assert.Equal(t, 0, batch.Failed)

	dir := filepath.Join(store.OutputDir(), "Acme CC")
	data, err := os.ReadFile(filepath.Join(dir, "0.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "body:/img/a.jpg", string(data))
	_, err = os.Stat(filepath.Join(dir, "1.png"))
	assert.NoError(t, err)
}

func TestUnknownContentTypeIsolatedPerFile(t *testing.T) {
	srv := kitServer(t)
	d, store := newKitDownloader(t, 2)

	batch := d.DownloadRecord(context.Background(),
		record(t, "Mixed CC", srv.URL, "/img/a.jpg", "/img/page", "/img/c.pdf", "/img/d.webp"))

	assert.Equal(t, 3, batch.Succeeded)
	assert.Equal(t, 1, batch.Failed)
	assert.Equal(t, 1, batch.UnknownContentTypes)

	dir := filepath.Join(store.OutputDir(), "Mixed CC")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"0.jpg", "2.pdf", "3.webp", storage.ManifestFileName}, names)

	for _, r := range batch.Results {
		if r.Target.Index == 1 {
			assert.True(t, errs.Is(r.Error, errs.ErrorTypeUnknownContentType))
			assert.Empty(t, r.Path)
		}
	}
}

func TestDownloadSameClubTwice(t *testing.T) {
	srv := kitServer(t)
	d, _ := newKitDownloader(t, 2)
	rec := record(t, "Acme CC", srv.URL, "/img/a.jpg", "/img/b.png")

	first := d.DownloadRecord(context.Background(), rec)
	second := d.DownloadRecord(context.Background(), rec)

	assert.Equal(t, 2, first.Succeeded)
	assert.Equal(t, 2, second.Succeeded)
	assert.Equal(t, 0, second.Failed)
}

func TestCollidingClubNamesGetSeparateDirectories(t *testing.T) {
	srv := kitServer(t)
	d, store := newKitDownloader(t, 3)

	batch := d.DownloadRecords(context.Background(), []models.ClubKitRecord{
		record(t, "Velo/Club", srv.URL, "/img/a.jpg"),
		record(t, "VeloClub", srv.URL, "/img/c.pdf", "/img/b.png"),
	})
	assert.Equal(t, 3, batch.Succeeded)

	first, err := storage.LoadManifest(filepath.Join(store.OutputDir(), "VeloClub"))
	require.NoError(t, err)
	assert.Equal(t, "Velo/Club", first.Club)
	require.Len(t, first.Files, 1)
	assert.Equal(t, "0.jpg", first.Files[0].File)

	second, err := storage.LoadManifest(filepath.Join(store.OutputDir(), "VeloClub (2)"))
	require.NoError(t, err)
	assert.Equal(t, "VeloClub", second.Club)
	require.Len(t, second.Files, 2)

	entries, err := os.ReadDir(filepath.Join(store.OutputDir(), "VeloClub (2)"))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"0.pdf", "1.png", storage.ManifestFileName}, names)
}

func TestManifestWritten(t *testing.T) {
	srv := kitServer(t)
	d, store := newKitDownloader(t, 2)

	d.DownloadRecord(context.Background(), record(t, "Acme CC", srv.URL, "/img/a.jpg", "/img/missing.jpg"))

	manifest, err := storage.LoadManifest(filepath.Join(store.OutputDir(), "Acme CC"))
	require.NoError(t, err)
	require.Len(t, manifest.Files, 2)
	assert.Equal(t, "0.jpg", manifest.Files[0].File)
	assert.Empty(t, manifest.Files[1].File)
	assert.Contains(t, manifest.Files[1].Error, "404")
}

func TestNoTargetsIsNoop(t *testing.T) {
	d, _ := newKitDownloader(t, 2)
	batch := d.DownloadRecords(context.Background(), []models.ClubKitRecord{models.NewClubKitRecord("Empty CC", nil)})
	assert.Empty(t, batch.Results)
}

// gaugeFetcher tracks how many fetches run at once
type gaugeFetcher struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
	delay    time.Duration
}

func (g *gaugeFetcher) Fetch(ctx context.Context, u *url.URL) (*siteclient.Asset, error) {
	g.calls.Add(1)
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		peak := g.peak.Load()
		if n <= peak || g.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	select {
	case <-time.After(g.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &siteclient.Asset{
		URL:         u.String(),
		ContentType: "image/jpeg",
		Extension:   ".jpg",
		Body:        io.NopCloser(strings.NewReader("x")),
	}, nil
}

// memStorage records saves without touching disk
type memStorage struct {
	mu    sync.Mutex
	saved []string
}

func (m *memStorage) SaveKitFile(club string, index int, ext string, r io.Reader) (string, int64, error) {
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return "", 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	path := fmt.Sprintf("%s/%d%s", club, index, ext)
	m.saved = append(m.saved, path)
	return path, n, nil
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	fetcher := &gaugeFetcher{delay: 5 * time.Millisecond}
	store := &memStorage{}
	d := New(fetcher, store, Options{Workers: 3, Logger: logger.NewNopLogger()})

	var records []models.ClubKitRecord
	for i := 0; i < 10; i++ {
		records = append(records, record(t, fmt.Sprintf("Club %d", i), "https://example.com", "/a.jpg", "/b.jpg"))
	}

	batch := d.DownloadRecords(context.Background(), records)

	assert.Equal(t, 20, batch.Succeeded)
	assert.Equal(t, int32(20), fetcher.calls.Load())
	assert.LessOrEqual(t, fetcher.peak.Load(), int32(3))
	assert.Len(t, store.saved, 20)
}

func TestDownloadRecordsCancelled(t *testing.T) {
	fetcher := &gaugeFetcher{delay: time.Second}
	d := New(fetcher, &memStorage{}, Options{Workers: 2, Logger: logger.NewNopLogger()})

	var records []models.ClubKitRecord
	for i := 0; i < 20; i++ {
		records = append(records, record(t, fmt.Sprintf("Club %d", i), "https://example.com", "/a.jpg"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	batch := d.DownloadRecords(ctx, records)

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 0, batch.Succeeded)
	assert.Less(t, int(fetcher.calls.Load()), 20)
}
