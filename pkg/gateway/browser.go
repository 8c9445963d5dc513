package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/chromedp"

	"github.com/go-scripts/wordstat/pkg/common"
	"github.com/go-scripts/wordstat/pkg/extract"
)

// Settle waits after navigation, before the page is read.
const (
	settleAuthorized   = 500 * time.Millisecond
	settleUnauthorized = 5 * time.Second
)

// BrowserSession is the session strategy: one browser tab reused for every
// fetch so the login cookies survive between requests.
type BrowserSession struct {
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	lookup    common.LookupURL
	timeout   time.Duration
	countdown time.Duration
	skipRetry bool
	prompter  Prompter
	wait      func(ctx context.Context, d time.Duration) error

	state  common.SessionState
	logger *log.Logger
}

// newBrowserSession opens a tab on the allocator and starts the browser.
// On failure both contexts are released.
func newBrowserSession(name string, allocCtx context.Context, allocCancel context.CancelFunc, opts Options) (*BrowserSession, error) {
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// The first Run allocates the browser; it must not carry a timeout.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultOptions().FetchTimeout
	}
	return &BrowserSession{
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		lookup:      opts.Lookup,
		timeout:     timeout,
		countdown:   opts.Countdown,
		skipRetry:   opts.SkipRetryPrompt,
		prompter:    NewConsolePrompter(),
		wait:        Countdown,
		state:       common.SessionState{Authorized: false, Delay: UnauthorizedDelay},
		logger:      log.WithPrefix("browser").With("strategy", name),
	}, nil
}

func (s *BrowserSession) Fetch(ctx context.Context, formatted string) (extract.Page, error) {
	target := s.lookup.Build(formatted)
	s.logger.Debug("navigating", "url", target)

	snap, err := s.Open(ctx, target, s.settle())
	if err != nil {
		return extract.Page{}, err
	}
	return extract.Page{
		Mode:   extract.Rendered,
		URL:    snap.URL,
		Title:  snap.Title,
		Doc:    &browserDocument{session: s},
		Markup: snap.Markup,
	}, nil
}

// Open navigates the tab to target and reads it after settle.
func (s *BrowserSession) Open(ctx context.Context, target string, settle time.Duration) (Snapshot, error) {
	var snap Snapshot
	actx, cancel := s.actionContext(ctx)
	defer cancel()

	err := chromedp.Run(actx,
		chromedp.Navigate(target),
		s.capture(settle, &snap),
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("navigation to %s failed: %w", target, err)
	}
	return snap, nil
}

// Reload reloads the current page and reads it after settle.
func (s *BrowserSession) Reload(ctx context.Context, settle time.Duration) (Snapshot, error) {
	var snap Snapshot
	actx, cancel := s.actionContext(ctx)
	defer cancel()

	err := chromedp.Run(actx,
		chromedp.Reload(),
		s.capture(settle, &snap),
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reload failed: %w", err)
	}
	return snap, nil
}

func (s *BrowserSession) capture(settle time.Duration, snap *Snapshot) chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.WaitReady("body"),
		chromedp.Sleep(settle),
		chromedp.Title(&snap.Title),
		chromedp.Location(&snap.URL),
		chromedp.OuterHTML("html", &snap.Markup),
	}
}

// Authorize runs the interactive login check once and records the outcome
// in the session state.
func (s *BrowserSession) Authorize(ctx context.Context) bool {
	if s.state.Authorized {
		s.logger.Info("already authorized")
		return true
	}

	flow := &authFlow{
		probe:     s,
		prompter:  s.prompter,
		wait:      s.wait,
		testURL:   s.lookup.Build(authTestQuery),
		settle:    authSettle,
		countdown: s.countdown,
		skipRetry: s.skipRetry,
		logger:    s.logger,
	}
	ok := flow.run(ctx)

	s.state.Authorized = ok
	s.state.Delay = UnauthorizedDelay
	if ok {
		s.state.Delay = AuthorizedDelay
	}
	return ok
}

func (s *BrowserSession) State() common.SessionState { return s.state }

func (s *BrowserSession) Kind() Kind { return KindBrowser }

// Close shuts the tab and the browser down.
func (s *BrowserSession) Close() error {
	err := chromedp.Cancel(s.tabCtx)
	s.tabCancel()
	s.allocCancel()
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

func (s *BrowserSession) settle() time.Duration {
	if s.state.Authorized {
		return settleAuthorized
	}
	return settleUnauthorized
}

// actionContext bounds one batch of browser actions by the fetch timeout
// and by the caller's context. Deriving from the tab context keeps the
// browser alive when it expires.
func (s *BrowserSession) actionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	actx, cancel := context.WithTimeout(s.tabCtx, s.timeout)
	stop := context.AfterFunc(ctx, cancel)
	return actx, func() {
		stop()
		cancel()
	}
}
