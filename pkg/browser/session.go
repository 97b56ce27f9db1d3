package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"clubkit/pkg/logger"
	"clubkit/pkg/models"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Options configures a browser session
type Options struct {
	Headless  bool
	UserAgent string
	Logger    logger.Logger
}

// Session is a Page backed by a chromedp-controlled Chrome tab
type Session struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	logger      logger.Logger
}

// NewSession launches Chrome and enables network events on a fresh tab.
// Close must be called to release the browser.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "browser")

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			log.Debug(fmt.Sprintf(format, args...))
		}),
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			log.Warn(fmt.Sprintf(format, args...))
		}),
	)

	s := &Session{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		logger:      log,
	}

	// The first Run allocates the browser and ties its lifetime to the
	// context it is given, so it must run on the tab context itself.
	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	log.InfoWithFields("Browser started", map[string]interface{}{
		"headless": opts.Headless,
	})
	return s, nil
}

// Close shuts down the tab and the browser process
func (s *Session) Close() {
	s.cancelTab()
	s.cancelAlloc()
}

// run executes actions on the tab, aborting them when ctx ends
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.DebugWithFields("Navigating", map[string]interface{}{"url": url})
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *Session) Fill(ctx context.Context, selector, value string) error {
	return s.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

// Click clicks the first element matching selector. It fails fast with
// ErrNotFound instead of waiting for the element to appear.
func (s *Session) Click(ctx context.Context, selector string) error {
	var exists bool
	if err := s.run(ctx, chromedp.Evaluate(
		fmt.Sprintf(`document.querySelector(%s) !== null`, jsString(selector)), &exists)); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s: %w", selector, ErrNotFound)
	}
	return s.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

const selectOptionJS = `(function(sel, value) {
	const el = document.querySelector(sel);
	if (!el) return false;
	el.value = value;
	el.dispatchEvent(new Event('change', { bubbles: true }));
	return true;
})(%s, %s)`

// SelectOption sets a select element's value and fires its change handler
func (s *Session) SelectOption(ctx context.Context, selector, value string) error {
	var found bool
	if err := s.run(ctx, chromedp.Evaluate(
		fmt.Sprintf(selectOptionJS, jsString(selector), jsString(value)), &found)); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s: %w", selector, ErrNotFound)
	}
	return nil
}

const queryAllJS = `Array.from(document.querySelectorAll(%s)).map(function(el) {
	const attrs = {};
	for (const a of el.attributes) attrs[a.name] = a.value;
	return { text: (el.innerText || el.textContent || '').trim(), attrs: attrs };
})`

// QueryAll returns every element matching selector. No match is not an error.
func (s *Session) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	var elements []Element
	if err := s.run(ctx, chromedp.Evaluate(fmt.Sprintf(queryAllJS, jsString(selector)), &elements)); err != nil {
		return nil, err
	}
	return elements, nil
}

func (s *Session) InnerHTML(ctx context.Context, selector string) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.InnerHTML(selector, &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *Session) WaitForResponse(ctx context.Context, match func(url string) bool, trigger func(ctx context.Context) error) error {
	listenCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	seen := make(chan struct{})
	var once sync.Once
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Response == nil {
			return
		}
		if match(resp.Response.URL) {
			once.Do(func() { close(seen) })
		}
	})

	if err := trigger(ctx); err != nil {
		return err
	}

	select {
	case <-seen:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Cookies(ctx context.Context, origin string) ([]models.SessionCookie, error) {
	var raw []*network.Cookie
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().WithUrls([]string{origin}).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to export cookies: %w", err)
	}

	cookies := make([]models.SessionCookie, 0, len(raw))
	for _, c := range raw {
		cookies = append(cookies, models.SessionCookie{Name: c.Name, Value: c.Value})
	}
	return cookies, nil
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
