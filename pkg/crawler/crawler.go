package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"clubkit/pkg/browser"
	"clubkit/pkg/config"
	"clubkit/pkg/directory"
	errs "clubkit/pkg/errors"
	"clubkit/pkg/logger"
	"clubkit/pkg/models"
	"clubkit/pkg/pagination"
	"clubkit/pkg/report"
	"clubkit/pkg/retry"
)

// Options holds everything a crawl needs. Config, Page, Client and
// Downloader are required.
type Options struct {
	Config     *config.Config
	Page       browser.Page
	Client     CookieSink
	Downloader RecordDownloader
	Logger     logger.Logger
	// OnPage is called after each page's downloads have settled
	OnPage func(report.PageReport)
	// Backoff between login and readiness checks; defaults to exponential
	Backoff retry.BackoffStrategy
}

// Crawler orchestrates one crawl of the club kit directory
type Crawler struct {
	config     *config.Config
	page       browser.Page
	client     CookieSink
	downloader RecordDownloader
	logger     logger.Logger
	onPage     func(report.PageReport)
	backoff    retry.BackoffStrategy

	// club names already dispatched this run
	seen map[string]struct{}
}

// New creates a crawler
func New(opts Options) (*Crawler, error) {
	if opts.Config == nil {
		return nil, errors.New("crawler: config is required")
	}
	if opts.Page == nil {
		return nil, errors.New("crawler: browser page is required")
	}
	if opts.Client == nil {
		return nil, errors.New("crawler: site client is required")
	}
	if opts.Downloader == nil {
		return nil, errors.New("crawler: downloader is required")
	}

	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	backoff := opts.Backoff
	if backoff == nil {
		backoff = retry.DefaultExponentialBackoff()
	}

	return &Crawler{
		config:     opts.Config,
		page:       opts.Page,
		client:     opts.Client,
		downloader: opts.Downloader,
		logger:     log.WithField("component", "crawler"),
		onPage:     opts.OnPage,
		backoff:    backoff,
		seen:       make(map[string]struct{}),
	}, nil
}

// Run logs in and walks every page of the directory. The report is returned
// even when the crawl fails; a fatal error names the last completed page.
func (c *Crawler) Run(ctx context.Context) (*report.Report, error) {
	rep := report.New(c.config.Site.CompletionPolicy)

	logger.LogComponentStart(c.logger, "crawler", map[string]interface{}{
		"directory": c.config.Site.DirectoryURL,
		"policy":    c.config.Site.CompletionPolicy,
		"page_size": c.config.Site.PageSize,
	})

	err := c.crawl(ctx, rep)
	if err != nil {
		err = stoppedAfter(rep.LastCompletedPage, err)
		c.logger.WithError(err).ErrorWithFields("Crawl stopped", map[string]interface{}{
			"last_completed_page": rep.LastCompletedPage,
			"error_type":          string(errs.TypeOf(err)),
		})
	}
	rep.Finish(err)

	reason := "completed"
	if err != nil {
		reason = "failed"
	}
	logger.LogComponentStop(c.logger, "crawler", reason)
	return rep, err
}

func stoppedAfter(lastPage int, err error) error {
	if lastPage == 0 {
		return fmt.Errorf("crawl stopped before any page completed: %w", err)
	}
	return fmt.Errorf("crawl stopped after page %d: %w", lastPage, err)
}

func (c *Crawler) crawl(ctx context.Context, rep *report.Report) error {
	origin, err := c.config.SiteOrigin()
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	if err := c.login(ctx); err != nil {
		return err
	}
	if err := c.captureCookies(ctx, origin); err != nil {
		return err
	}

	opts := pagination.OptionsFromConfig(c.config.Site, c.logger)
	opts.Backoff = c.backoff
	ctl, err := pagination.New(c.page, opts)
	if err != nil {
		return err
	}

	for {
		snap, ok, err := ctl.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		pr := c.processPage(ctx, snap, origin)
		if err := ctx.Err(); err != nil {
			return err
		}
		rep.AddPage(pr)
		if c.onPage != nil {
			c.onPage(pr)
		}
	}

	c.logger.InfoWithFields("Directory exhausted", map[string]interface{}{
		"pages":     rep.PagesCompleted,
		"last_page": rep.LastCompletedPage,
	})
	return nil
}

// login opens the directory, submits the login form and waits until the
// results table controls are showing
func (c *Crawler) login(ctx context.Context) error {
	if err := c.config.ValidateCredentials(); err != nil {
		return errs.Authentication("missing credentials", err)
	}

	sel := c.config.Site.Selectors
	if err := c.page.Navigate(ctx, c.config.Site.DirectoryURL); err != nil {
		return errs.Navigation("open directory", err)
	}
	if err := c.page.Fill(ctx, sel.Username, c.config.Credentials.Username); err != nil {
		return errs.Authentication("fill username", err)
	}
	if err := c.page.Fill(ctx, sel.Password, c.config.Credentials.Password); err != nil {
		return errs.Authentication("fill password", err)
	}
	if err := c.page.Click(ctx, sel.LoginButton); err != nil {
		return errs.Authentication("submit login form", err)
	}

	err := retry.Do(func(ctx context.Context) error {
		controls, err := c.page.QueryAll(ctx, sel.PageSize)
		if err != nil {
			return err
		}
		if len(controls) == 0 {
			return retry.ErrNotReady
		}
		return nil
	}, &retry.Config{
		Timeout: c.config.Site.LoginTimeout,
		Backoff: c.backoff,
		RetryIf: retry.DefaultRetryIf,
		Context: ctx,
		Logger:  c.logger,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errs.Authentication("login did not reach the directory", err)
	}

	c.logger.InfoWithFields("Logged in", map[string]interface{}{
		"username": c.config.Credentials.Username,
	})
	return nil
}

func (c *Crawler) captureCookies(ctx context.Context, origin *url.URL) error {
	cookies, err := c.page.Cookies(ctx, origin.String())
	if err != nil {
		return errs.Authentication("read session cookies", err)
	}
	if len(cookies) == 0 {
		c.logger.Warn("No session cookies after login; downloads may be refused")
	}
	c.client.SetCookies(cookies)
	c.logger.DebugWithFields("Session cookies captured", map[string]interface{}{
		"count": len(cookies),
	})
	return nil
}

// processPage parses a ready page, drops clubs seen earlier in the run and
// waits for the remaining downloads
func (c *Crawler) processPage(ctx context.Context, snap directory.Snapshot, origin *url.URL) report.PageReport {
	start := time.Now()
	page := snap.State.CurrentPage
	log := c.logger.WithField("page", page)

	records, rowErrs := snap.Records(origin)
	for _, err := range rowErrs {
		log.WithError(err).Warn("Skipping malformed row")
	}

	fresh := c.dedup(records)
	if skipped := len(records) - len(fresh); skipped > 0 {
		log.DebugWithFields("Skipping clubs already downloaded", map[string]interface{}{
			"duplicates": skipped,
		})
	}

	batch := c.downloader.DownloadRecords(ctx, fresh)

	pr := report.PageReport{
		Page:                page,
		Records:             len(fresh),
		Duplicates:          len(records) - len(fresh),
		RowErrors:           len(rowErrs),
		Downloaded:          batch.Succeeded,
		DownloadsFailed:     batch.Failed,
		UnknownContentTypes: batch.UnknownContentTypes,
		Duration:            time.Since(start),
	}
	logger.LogPageSummary(c.logger, logger.PageSummary{
		Page:            pr.Page,
		Records:         pr.Records,
		Duplicates:      pr.Duplicates,
		RowErrors:       pr.RowErrors,
		Downloaded:      pr.Downloaded,
		DownloadsFailed: pr.DownloadsFailed,
		Duration:        pr.Duration,
	})
	return pr
}

// dedup keeps the first record per club name across the whole run
func (c *Crawler) dedup(records []models.ClubKitRecord) []models.ClubKitRecord {
	fresh := make([]models.ClubKitRecord, 0, len(records))
	for _, rec := range records {
		if _, ok := c.seen[rec.ClubName()]; ok {
			continue
		}
		c.seen[rec.ClubName()] = struct{}{}
		fresh = append(fresh, rec)
	}
	return fresh
}
