package pagination

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"clubkit/pkg/browser"
	"clubkit/pkg/config"
	"clubkit/pkg/directory"
	errs "clubkit/pkg/errors"
	"clubkit/pkg/logger"
	"clubkit/pkg/models"
	"clubkit/pkg/retry"
)

// State is a step of the pagination state machine
type State int

const (
	StateAwaitingPageLoad State = iota
	StatePageReady
	StateAdvancing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingPageLoad:
		return "awaiting_page_load"
	case StatePageReady:
		return "page_ready"
	case StateAdvancing:
		return "advancing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Options configures a Controller
type Options struct {
	Selectors     config.Selectors
	Policy        string
	PageSize      int
	SignalTimeout time.Duration
	LoadTimeout   time.Duration
	// Backoff between readiness reads; defaults to retry.DefaultExponentialBackoff
	Backoff retry.BackoffStrategy
	Logger  logger.Logger
}

// OptionsFromConfig builds controller options from the site configuration
func OptionsFromConfig(site config.SiteConfig, log logger.Logger) Options {
	return Options{
		Selectors:     site.Selectors,
		Policy:        site.CompletionPolicy,
		PageSize:      site.PageSize,
		SignalTimeout: site.SignalTimeout,
		LoadTimeout:   site.LoadTimeout,
		Logger:        log,
	}
}

// Controller walks the results table one page at a time. It decides when a
// page has finished loading, which page is showing, and when the directory
// is exhausted. It is driven from a single goroutine.
type Controller struct {
	page   browser.Page
	opts   Options
	logger logger.Logger

	state      State
	started    bool
	confirmed  models.PageState
	lastMarkup string
	lastPage   bool
	// preSelect is the default-size table read before the page size change
	preSelect string
}

// New creates a controller over page
func New(page browser.Page, opts Options) (*Controller, error) {
	if !config.ValidPolicy(opts.Policy) {
		return nil, fmt.Errorf("unknown completion policy %q", opts.Policy)
	}
	if opts.PageSize <= 0 {
		return nil, errors.New("page size must be positive")
	}
	if opts.SignalTimeout <= 0 || opts.LoadTimeout <= 0 {
		return nil, errors.New("signal and load timeouts must be positive")
	}
	if opts.Backoff == nil {
		opts.Backoff = retry.DefaultExponentialBackoff()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}

	return &Controller{
		page:   page,
		opts:   opts,
		logger: opts.Logger.WithFields(map[string]interface{}{"component": "pagination", "policy": opts.Policy}),
		state:  StateAwaitingPageLoad,
	}, nil
}

// State returns the controller's current state
func (c *Controller) State() State {
	return c.state
}

// LastConfirmed returns the last page that finished loading
func (c *Controller) LastConfirmed() models.PageState {
	return c.confirmed
}

// Next drives the state machine to the next ready page and returns its
// snapshot. The first call selects the page size, which loads page 1. ok is
// false once the directory is exhausted. Errors are fatal for the crawl.
func (c *Controller) Next(ctx context.Context) (snap directory.Snapshot, ok bool, err error) {
	var trigger func(context.Context) error
	var action string

	switch c.state {
	case StateDone:
		return directory.Snapshot{}, false, nil
	case StateAwaitingPageLoad:
		if c.started {
			return directory.Snapshot{}, false, errors.New("pagination: previous page load did not complete")
		}
		c.started = true
		pre, err := c.page.InnerHTML(ctx, c.opts.Selectors.ResultsTable)
		if err != nil {
			if ctx.Err() != nil {
				return directory.Snapshot{}, false, ctx.Err()
			}
			c.logger.WithError(err).Debug("No results table before page size change")
		}
		c.preSelect = pre
		action = "select page size"
		trigger = func(ctx context.Context) error {
			return c.page.SelectOption(ctx, c.opts.Selectors.PageSize, strconv.Itoa(c.opts.PageSize))
		}
	case StatePageReady:
		if c.lastPage {
			c.transition(StateDone)
			return directory.Snapshot{}, false, nil
		}
		c.transition(StateAdvancing)
		action = "click next page"
		trigger = func(ctx context.Context) error {
			return c.page.Click(ctx, c.opts.Selectors.NextPage)
		}
	default:
		return directory.Snapshot{}, false, fmt.Errorf("pagination: Next called in state %s", c.state)
	}

	c.transition(StateAwaitingPageLoad)

	if err := c.awaitSignal(ctx, action, trigger); err != nil {
		return directory.Snapshot{}, false, err
	}

	snap, err = c.pollReady(ctx)
	if err != nil {
		if errors.Is(err, retry.ErrTimeout) {
			if c.opts.Policy == config.PolicyMarkupUnchanged && c.confirmed.CurrentPage > 0 {
				c.logger.InfoWithFields("Table unchanged after advancing, directory exhausted", map[string]interface{}{
					"last_page": c.confirmed.CurrentPage,
				})
				c.transition(StateDone)
				return directory.Snapshot{}, false, nil
			}
			return directory.Snapshot{}, false, errs.PageLoadTimeout(c.confirmed.CurrentPage, err)
		}
		return directory.Snapshot{}, false, err
	}

	last, err := c.isLastPage(ctx, snap)
	if err != nil {
		return directory.Snapshot{}, false, err
	}

	c.confirmed = snap.State
	c.lastMarkup = snap.Markup
	c.lastPage = last
	c.transition(StatePageReady)

	c.logger.DebugWithFields("Page ready", map[string]interface{}{
		"page":      snap.State.CurrentPage,
		"max_page":  snap.State.MaxVisiblePage,
		"last_page": last,
	})
	return snap, true, nil
}

// awaitSignal runs trigger with a listener armed for the thumbnail request.
// A missing signal is not an error: pages without thumbnails never send one,
// and the readiness poll still guards the transition.
func (c *Controller) awaitSignal(ctx context.Context, action string, trigger func(context.Context) error) error {
	signalCtx, cancel := context.WithTimeout(ctx, c.opts.SignalTimeout)
	defer cancel()

	var triggerErr error
	err := c.page.WaitForResponse(signalCtx, c.isThumbnailRequest, func(context.Context) error {
		triggerErr = trigger(ctx)
		return triggerErr
	})

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if triggerErr != nil {
		return errs.Navigation(action, triggerErr)
	}
	if err != nil {
		c.logger.DebugWithFields("No thumbnail response seen", map[string]interface{}{
			"action":  action,
			"timeout": c.opts.SignalTimeout,
		})
	}
	return nil
}

func (c *Controller) isThumbnailRequest(url string) bool {
	return strings.Contains(url, c.opts.Selectors.ThumbnailFragment)
}

// pollReady reads the table until it shows a page other than the last
// confirmed one, bounded by the load timeout.
func (c *Controller) pollReady(ctx context.Context) (directory.Snapshot, error) {
	cfg := &retry.Config{
		Timeout: c.opts.LoadTimeout,
		Backoff: c.opts.Backoff,
		RetryIf: retry.DefaultRetryIf,
		Context: ctx,
		Logger:  c.logger,
	}

	return retry.DoWithResult(func(ctx context.Context) (directory.Snapshot, error) {
		links, err := c.page.QueryAll(ctx, c.opts.Selectors.PaginationLinks)
		if err != nil {
			return directory.Snapshot{}, fmt.Errorf("failed to read pagination: %w", err)
		}
		state := ParsePageState(links, c.opts.Selectors.ActiveClass)

		if c.opts.Policy == config.PolicyMarkupUnchanged {
			return c.readChangedMarkup(ctx, state)
		}

		if state.CurrentPage == 0 || state.CurrentPage == c.confirmed.CurrentPage {
			return directory.Snapshot{}, retry.ErrNotReady
		}

		markup, err := c.page.InnerHTML(ctx, c.opts.Selectors.ResultsTable)
		if err != nil {
			return directory.Snapshot{}, fmt.Errorf("failed to read results table: %w", err)
		}
		if !c.pageSizeApplied(markup, state) {
			return directory.Snapshot{}, retry.ErrNotReady
		}
		return directory.Snapshot{Markup: markup, State: state}, nil
	}, cfg)
}

// pageSizeApplied guards page 1, whose indicator already reads 1 before the
// page size change lands. The table counts as reloaded once it differs from
// the default-size table, already holds a full page, or is the only page.
func (c *Controller) pageSizeApplied(markup string, state models.PageState) bool {
	if c.confirmed.CurrentPage > 0 {
		return true
	}
	if strings.TrimSpace(markup) == "" {
		return false
	}
	return markup != c.preSelect ||
		state.MaxVisiblePage <= 1 ||
		directory.RowCount(markup) >= c.opts.PageSize
}

func (c *Controller) readChangedMarkup(ctx context.Context, state models.PageState) (directory.Snapshot, error) {
	markup, err := c.page.InnerHTML(ctx, c.opts.Selectors.ResultsTable)
	if err != nil {
		return directory.Snapshot{}, fmt.Errorf("failed to read results table: %w", err)
	}
	if strings.TrimSpace(markup) == "" {
		return directory.Snapshot{}, retry.ErrNotReady
	}
	if c.confirmed.CurrentPage > 0 && markup == c.lastMarkup {
		return directory.Snapshot{}, retry.ErrNotReady
	}
	if !c.pageSizeApplied(markup, state) {
		return directory.Snapshot{}, retry.ErrNotReady
	}
	if state.CurrentPage == 0 || state.CurrentPage == c.confirmed.CurrentPage {
		state.CurrentPage = c.confirmed.CurrentPage + 1
	}
	return directory.Snapshot{Markup: markup, State: state}, nil
}

// isLastPage applies the configured completion policy to a ready page
func (c *Controller) isLastPage(ctx context.Context, snap directory.Snapshot) (bool, error) {
	switch c.opts.Policy {
	case config.PolicyMaxPage:
		return snap.State.OnLastPage(), nil
	case config.PolicyNextDisabled:
		controls, err := c.page.QueryAll(ctx, c.opts.Selectors.NextPage)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return false, errs.Navigation("read next page control", err)
		}
		return NextDisabled(controls), nil
	default:
		// markup-unchanged decides after advancing
		return false, nil
	}
}

func (c *Controller) transition(to State) {
	if c.state == to {
		return
	}
	c.logger.DebugWithFields("Pagination state change", map[string]interface{}{
		"from": c.state.String(),
		"to":   to.String(),
	})
	c.state = to
}

// ParsePageState derives the active page and the highest visible page from
// the pagination links. Labels that are not page numbers are ignored. A zero
// CurrentPage means no numeric link carries the active class.
func ParsePageState(links []browser.Element, activeClass string) models.PageState {
	var state models.PageState
	for _, link := range links {
		n, err := strconv.Atoi(strings.TrimSpace(link.Text))
		if err != nil || n <= 0 {
			continue
		}
		if n > state.MaxVisiblePage {
			state.MaxVisiblePage = n
		}
		if state.CurrentPage == 0 && link.HasClass(activeClass) {
			state.CurrentPage = n
		}
	}
	return state
}

// NextDisabled reports whether the next page control is absent or disabled
func NextDisabled(controls []browser.Element) bool {
	if len(controls) == 0 {
		return true
	}
	next := controls[0]
	if next.HasClass("disabled") {
		return true
	}
	v, _ := next.Attr("aria-disabled")
	return strings.EqualFold(v, "true")
}
