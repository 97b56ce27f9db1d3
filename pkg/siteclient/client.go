// Package siteclient fetches kit assets from the directory site over HTTP,
// authenticated with the cookies captured from the browser session.
package siteclient

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"
	"time"

	errs "clubkit/pkg/errors"
	"clubkit/pkg/logger"
	"clubkit/pkg/models"

	"github.com/go-resty/resty/v2"
)

var extensions = map[string]string{
	"image/jpeg":               ".jpg",
	"image/png":                ".png",
	"application/pdf":          ".pdf",
	"image/x-ms-bmp":           ".bmp",
	"image/gif":                ".gif",
	"application/octet-stream": ".webp",
}

// ExtensionFor maps a declared content type to a file extension. Parameters
// such as charset are ignored and matching is case-insensitive. Any type
// outside the known set yields an unknown_content_type error.
func ExtensionFor(contentType string) (string, error) {
	if ext, ok := extensions[mediaType(contentType)]; ok {
		return ext, nil
	}
	return "", errs.UnknownContentType(contentType, "")
}

func mediaType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// Options configures a Client
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Logger    logger.Logger
}

// Client is shared read-only by all download workers once cookies are set
type Client struct {
	http   *resty.Client
	logger logger.Logger
}

// New creates a site client
func New(opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "siteclient")

	client := resty.New()
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	c := &Client{http: client, logger: log}
	client.OnError(c.onError)
	return c
}

// SetCookies attaches the session cookies as a raw Cookie header on every
// request. Call it once, before downloads start.
func (c *Client) SetCookies(cookies []models.SessionCookie) {
	if len(cookies) == 0 {
		return
	}
	c.http.SetHeader("Cookie", models.CookieHeader(cookies))
}

// Asset is an open response for one kit file. The caller must close Body.
type Asset struct {
	URL         string
	ContentType string
	Extension   string
	Body        io.ReadCloser
}

// Fetch issues an authenticated GET for u. Non-2xx responses and unmapped
// content types are returned as errors with the body already closed.
func (c *Client) Fetch(ctx context.Context, u *url.URL) (*Asset, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(u.String())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Download(u.String(), err)
	}

	// resty skips response middleware for unparsed bodies, so log here
	c.logger.DebugWithFields("request completed", map[string]interface{}{
		"url":          u.String(),
		"status":       res.StatusCode(),
		"content_type": res.Header().Get("Content-Type"),
	})

	body := res.RawBody()
	if res.IsError() || res.StatusCode() < 200 || res.StatusCode() > 299 {
		body.Close()
		return nil, errs.Download(u.String(), fmt.Errorf("unexpected status %s", res.Status()))
	}

	contentType := res.Header().Get("Content-Type")
	ext, err := ExtensionFor(contentType)
	if err != nil {
		body.Close()
		return nil, errs.UnknownContentType(contentType, u.String())
	}

	return &Asset{
		URL:         u.String(),
		ContentType: contentType,
		Extension:   ext,
		Body:        body,
	}, nil
}

func (c *Client) onError(req *resty.Request, err error) {
	c.logger.WithError(err).DebugWithFields("request failed", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL,
	})
}
