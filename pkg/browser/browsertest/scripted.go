// Package browsertest provides a scripted in-memory directory site that
// implements browser.Page for tests.
package browsertest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"clubkit/pkg/browser"
	"clubkit/pkg/config"
	"clubkit/pkg/models"
)

// ScriptedPage simulates the paginated results table. The zero value is not
// usable; create one with NewScriptedPage.
type ScriptedPage struct {
	Selectors config.Selectors

	// StaleReads is how many pagination reads keep showing the previous
	// active page after a page change.
	StaleReads int
	// HideNextOnLast removes the next control on the last page instead of
	// marking it disabled.
	HideNextOnLast bool
	// AriaDisabledOnly marks the last page's next control with
	// aria-disabled="true" and no disabled class.
	AriaDisabledOnly bool
	// GrowingLabels shows page labels only up to two past the current page,
	// so the max visible page rises as the crawl advances.
	GrowingLabels bool
	// ClickErr is returned by clicks on the next control when set
	ClickErr error
	// RejectLogin keeps the login form showing whatever is submitted
	RejectLogin bool
	// SessionCookies are returned by Cookies
	SessionCookies []models.SessionCookie
	// PreSelectMarkup is the default-size table shown as page 1 until the
	// page size change takes effect
	PreSelectMarkup string
	// PageSizeDelay postpones the reload that follows a page size change
	PageSizeDelay time.Duration

	mu        sync.Mutex
	pages     []string
	current   int
	previous  int
	stale     int
	pageSize  string
	responses []string
	filled    map[string]string
	loggedIn  bool
	calls     []string
	pageLoads int
}

// NewScriptedPage creates a site whose results table shows pages[i] on page
// i+1, using the default site selectors.
func NewScriptedPage(pages []string) *ScriptedPage {
	return &ScriptedPage{
		Selectors:      config.DefaultConfig().Site.Selectors,
		SessionCookies: []models.SessionCookie{{Name: "session", Value: "scripted"}},
		pages:          pages,
		filled:         make(map[string]string),
	}
}

var _ browser.Page = (*ScriptedPage)(nil)

// Calls returns the operations performed so far, in order
func (p *ScriptedPage) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// CurrentPage returns the page the simulated table is showing
func (p *ScriptedPage) CurrentPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// PageLoads returns how many times a results page was loaded
func (p *ScriptedPage) PageLoads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pageLoads
}

// LoggedIn reports whether the login form was submitted with both fields
func (p *ScriptedPage) LoggedIn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loggedIn
}

// PageSize returns the value last selected in the page size control
func (p *ScriptedPage) PageSize() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pageSize
}

func (p *ScriptedPage) record(format string, args ...interface{}) {
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
}

// load switches the table to page n; callers hold the lock
func (p *ScriptedPage) load(n int) {
	p.previous = p.current
	p.current = n
	p.stale = p.StaleReads
	p.pageLoads++
	p.responses = append(p.responses, "https://www.britishcycling.org.uk/api/club_kits?page="+strconv.Itoa(n))
	if n > 0 && n <= len(p.pages) && strings.Contains(p.pages[n-1], p.Selectors.ThumbnailFragment) {
		p.responses = append(p.responses, "https://cdn.example.com/"+p.Selectors.ThumbnailFragment+"/thumb-"+strconv.Itoa(n)+".jpg")
	}
}

func (p *ScriptedPage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("navigate %s", url)
	return ctx.Err()
}

func (p *ScriptedPage) Fill(ctx context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("fill %s", selector)
	p.filled[selector] = value
	return ctx.Err()
}

func (p *ScriptedPage) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("click %s", selector)

	switch selector {
	case p.Selectors.LoginButton:
		p.loggedIn = !p.RejectLogin && p.filled[p.Selectors.Username] != "" && p.filled[p.Selectors.Password] != ""
		return nil
	case p.Selectors.NextPage:
		if p.ClickErr != nil {
			return p.ClickErr
		}
		last := p.current >= len(p.pages)
		if last && p.HideNextOnLast {
			return fmt.Errorf("%s: %w", selector, browser.ErrNotFound)
		}
		if !last {
			p.load(p.current + 1)
		}
		return nil
	}
	return fmt.Errorf("%s: %w", selector, browser.ErrNotFound)
}

func (p *ScriptedPage) SelectOption(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("select %s=%s", selector, value)

	if selector != p.Selectors.PageSize {
		return fmt.Errorf("%s: %w", selector, browser.ErrNotFound)
	}
	p.pageSize = value
	if len(p.pages) == 0 {
		return nil
	}
	if p.PageSizeDelay <= 0 {
		p.load(1)
		return nil
	}
	time.AfterFunc(p.PageSizeDelay, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.load(1)
	})
	return nil
}

func (p *ScriptedPage) QueryAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	switch selector {
	case p.Selectors.PaginationLinks:
		return p.paginationLinks(), nil
	case p.Selectors.NextPage:
		return p.nextControl(), nil
	case p.Selectors.PageSize:
		if !p.loggedIn {
			return nil, nil
		}
		return []browser.Element{{Text: "100", Attrs: map[string]string{"name": "club_kits_table_length"}}}, nil
	}
	return nil, nil
}

func (p *ScriptedPage) paginationLinks() []browser.Element {
	active := p.current
	if active == 0 && p.PreSelectMarkup != "" {
		active = 1
	}
	if p.stale > 0 {
		p.stale--
		active = p.previous
	}

	maxLabel := len(p.pages)
	if p.GrowingLabels && active+2 < maxLabel {
		maxLabel = active + 2
	}

	links := []browser.Element{{Text: "Previous", Attrs: map[string]string{"class": "button"}}}
	for i := 1; i <= maxLabel; i++ {
		class := "button"
		if i == active {
			class += " " + p.Selectors.ActiveClass
		}
		links = append(links, browser.Element{Text: strconv.Itoa(i), Attrs: map[string]string{"class": class}})
	}
	if maxLabel < len(p.pages) {
		links = append(links, browser.Element{Text: "…", Attrs: map[string]string{"class": "button"}})
	}
	return append(links, browser.Element{Text: "Next", Attrs: map[string]string{"class": "button"}})
}

func (p *ScriptedPage) nextControl() []browser.Element {
	current := p.current
	if current == 0 && p.PreSelectMarkup != "" {
		current = 1
	}
	last := current >= len(p.pages)
	attrs := map[string]string{"id": strings.TrimPrefix(p.Selectors.NextPage, "#"), "class": "paginate_button next"}
	if last {
		switch {
		case p.HideNextOnLast:
			return nil
		case p.AriaDisabledOnly:
			attrs["aria-disabled"] = "true"
		default:
			attrs["class"] += " disabled"
		}
	}
	return []browser.Element{{Text: "Next", Attrs: attrs}}
}

func (p *ScriptedPage) InnerHTML(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if selector != p.Selectors.ResultsTable {
		return "", fmt.Errorf("%s: %w", selector, browser.ErrNotFound)
	}
	if p.current == 0 {
		return p.PreSelectMarkup, nil
	}
	if p.current > len(p.pages) {
		return "", nil
	}
	return p.pages[p.current-1], nil
}

func (p *ScriptedPage) WaitForResponse(ctx context.Context, match func(url string) bool, trigger func(ctx context.Context) error) error {
	p.mu.Lock()
	p.responses = nil
	p.mu.Unlock()

	if err := trigger(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	seen := append([]string(nil), p.responses...)
	p.mu.Unlock()

	for _, u := range seen {
		if match(u) {
			return nil
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *ScriptedPage) Cookies(ctx context.Context, origin string) ([]models.SessionCookie, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("cookies %s", origin)
	return append([]models.SessionCookie(nil), p.SessionCookies...), ctx.Err()
}
