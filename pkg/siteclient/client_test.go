package siteclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	errs "clubkit/pkg/errors"
	"clubkit/pkg/logger"
	"clubkit/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/jpeg", ".jpg"},
		{"image/png", ".png"},
		{"application/pdf", ".pdf"},
		{"image/x-ms-bmp", ".bmp"},
		{"image/gif", ".gif"},
		{"application/octet-stream", ".webp"},
		{"IMAGE/JPEG", ".jpg"},
		{"image/png; charset=binary", ".png"},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			ext, err := ExtensionFor(tt.contentType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ext)
		})
	}
}

func TestExtensionForUnknown(t *testing.T) {
	for _, ct := range []string{"text/html", "", "image/webp", "image/svg+xml", "garbage;;"} {
		ext, err := ExtensionFor(ct)
		assert.Empty(t, ext)
		assert.True(t, errs.Is(err, errs.ErrorTypeUnknownContentType), "content type %q", ct)
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/img/a.jpg", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "session=abc; csrf=xyz" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	})
	mux.HandleFunc("/img/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/img/ua", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte(r.UserAgent()))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient() *Client {
	c := New(Options{UserAgent: "clubkit-test", Logger: logger.NewNopLogger()})
	c.SetCookies([]models.SessionCookie{{Name: "session", Value: "abc"}, {Name: "csrf", Value: "xyz"}})
	return c
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestFetchSendsCookieHeader(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient()

	asset, err := c.Fetch(context.Background(), mustParse(t, srv.URL+"/img/a.jpg"))
	require.NoError(t, err)
	defer asset.Body.Close()

	assert.Equal(t, ".jpg", asset.Extension)
	body, err := io.ReadAll(asset.Body)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(body))
}

func TestFetchSendsUserAgent(t *testing.T) {
	srv := newTestServer(t)

	asset, err := newTestClient().Fetch(context.Background(), mustParse(t, srv.URL+"/img/ua"))
	require.NoError(t, err)
	defer asset.Body.Close()

	body, _ := io.ReadAll(asset.Body)
	assert.Equal(t, "clubkit-test", string(body))
}

func TestFetchUnknownContentType(t *testing.T) {
	srv := newTestServer(t)

	asset, err := newTestClient().Fetch(context.Background(), mustParse(t, srv.URL+"/img/page"))
	assert.Nil(t, asset)
	require.True(t, errs.Is(err, errs.ErrorTypeUnknownContentType))
	assert.Contains(t, err.Error(), "/img/page")
}

func TestFetchNonSuccessStatus(t *testing.T) {
	srv := newTestServer(t)
	c := New(Options{Logger: logger.NewNopLogger()})

	_, err := c.Fetch(context.Background(), mustParse(t, srv.URL+"/img/a.jpg"))
	assert.True(t, errs.Is(err, errs.ErrorTypeDownload))
	assert.Contains(t, err.Error(), "403")

	_, err = c.Fetch(context.Background(), mustParse(t, srv.URL+"/missing"))
	assert.True(t, errs.Is(err, errs.ErrorTypeDownload))
}

func TestFetchCancelled(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient().Fetch(ctx, mustParse(t, srv.URL+"/img/a.jpg"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchLogsResponseStatus(t *testing.T) {
	srv := newTestServer(t)
	log := logger.NewTestLogger()
	c := New(Options{Logger: log})
	c.SetCookies([]models.SessionCookie{{Name: "session", Value: "abc"}, {Name: "csrf", Value: "xyz"}})

	asset, err := c.Fetch(context.Background(), mustParse(t, srv.URL+"/img/a.jpg"))
	require.NoError(t, err)
	asset.Body.Close()

	_, err = c.Fetch(context.Background(), mustParse(t, srv.URL+"/missing"))
	require.Error(t, err)

	debug := log.GetMessagesByLevel("DEBUG")
	require.Len(t, debug, 2)
	assert.Equal(t, "request completed", debug[0].Message)
	assert.Equal(t, http.StatusOK, debug[0].Fields["status"])
	assert.Equal(t, "image/jpeg", debug[0].Fields["content_type"])
	assert.Equal(t, "siteclient", debug[0].Fields["component"])
	assert.Equal(t, http.StatusNotFound, debug[1].Fields["status"])
}
