package crawler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"clubkit/internal/downloader"
	"clubkit/pkg/browser/browsertest"
	"clubkit/pkg/logger"
	"clubkit/pkg/report"
	"clubkit/pkg/retry"
	"clubkit/pkg/siteclient"
	"clubkit/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// kitSite serves kit images only to requests carrying the scripted session cookie
type kitSite struct {
	server    *httptest.Server
	refused   atomic.Int32
	requested atomic.Int32
}

func newKitSite(t *testing.T) *kitSite {
	t.Helper()
	types := map[string]string{
		"/kit/acme-1.jpg":     "image/jpeg",
		"/kit/acme-2.png":     "image/png",
		"/kit/acme-other.jpg": "image/jpeg",
		"/kit/beta.jpg":       "image/jpeg",
		"/kit/gamma.jpg":      "text/html",
		"/kit/delta.jpg":      "application/pdf",
		"/kit/fox.jpg":        "image/gif",
	}

	s := &kitSite{}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requested.Add(1)
		if r.Header.Get("Cookie") != "session=scripted" {
			s.refused.Add(1)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		ct, ok := types[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.WriteString(w, "kit:"+r.URL.Path)
	}))
	t.Cleanup(s.server.Close)
	return s
}

func TestCrawlDownloadsKitToDisk(t *testing.T) {
	site := newKitSite(t)
	log := logger.NewNopLogger()

	cfg := testConfig()
	cfg.Site.BaseURL = site.server.URL + "/"
	cfg.Output.BaseDirectory = filepath.Join(t.TempDir(), "kit")

	store, err := storage.NewManager(cfg.Output.BaseDirectory)
	require.NoError(t, err)
	client := siteclient.New(siteclient.Options{Timeout: 5 * time.Second, Logger: log})
	kits := downloader.New(client, store, downloader.Options{Workers: 3, Manifests: store, Logger: log})

	page := browsertest.NewScriptedPage(fivePages())
	c, err := New(Options{
		Config:     cfg,
		Page:       page,
		Client:     client,
		Downloader: kits,
		Logger:     log,
		Backoff:    &retry.ConstantBackoff{Delay: time.Millisecond},
	})
	require.NoError(t, err)

	rep, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, rep.PagesCompleted)
	assert.Equal(t, 5, rep.DownloadsSucceeded)
	assert.Equal(t, 1, rep.DownloadsFailed)
	assert.Equal(t, 1, rep.UnknownContentTypes)
	assert.Zero(t, site.refused.Load())
	// the repeated Acme and Delta rows were never fetched
	assert.Equal(t, int32(6), site.requested.Load())

	out := cfg.Output.BaseDirectory
	for _, f := range []string{
		"Acme CC/0.jpg",
		"Acme CC/1.png",
		"Beta RC/0.jpg",
		"Delta CC/0.pdf",
		"Foxtrot CC/0.gif",
	} {
		_, err := os.Stat(filepath.Join(out, f))
		assert.NoError(t, err, f)
	}

	data, err := os.ReadFile(filepath.Join(out, "Acme CC", "0.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "kit:/kit/acme-1.jpg", string(data))

	gamma, err := os.ReadDir(filepath.Join(out, "Gamma Wheelers"))
	require.NoError(t, err)
	for _, e := range gamma {
		assert.Equal(t, storage.ManifestFileName, e.Name())
	}

	manifest, err := storage.LoadManifest(filepath.Join(out, "Gamma Wheelers"))
	require.NoError(t, err)
	require.Len(t, manifest.Files, 1)
	assert.Contains(t, manifest.Files[0].Error, "text/html")

	w := report.NewWriter(out, log)
	require.NoError(t, w.Save(rep))
	_, err = os.Stat(filepath.Join(out, report.FileName))
	assert.NoError(t, err)
}
