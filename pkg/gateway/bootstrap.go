package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/chromedp/chromedp"
)

// errSkipped marks a constructor that has nothing to try with the given
// options.
var errSkipped = errors.New("not configured")

// constructor is one named way of starting a browser.
type constructor struct {
	name  string
	build func(opts Options) (Gateway, error)
}

// browserChain lists browser constructors in the order they are tried.
func browserChain() []constructor {
	return []constructor{
		{name: "default", build: openDefault},
		{name: "exec-path", build: openExecPath},
		{name: "local", build: openLocal},
		{name: "remote", build: openRemote},
	}
}

// Open returns the gateway selected by opts.Strategy. In auto mode a browser
// is preferred and the HTTP fetcher is the last resort.
func Open(opts Options) (Gateway, error) {
	return openWith(browserChain(), opts)
}

func openWith(chain []constructor, opts Options) (Gateway, error) {
	logger := log.WithPrefix("gateway")

	switch strings.ToLower(opts.Strategy) {
	case "http":
		logger.Info("using HTTP fetcher")
		return NewHTTPFetcher(opts), nil
	case "browser":
		return tryChain(logger, chain, opts)
	case "", "auto":
		gw, err := tryChain(logger, chain, opts)
		if err == nil {
			return gw, nil
		}
		logger.Warn("no browser available, falling back to HTTP fetcher; authorization is disabled", "err", err)
		return NewHTTPFetcher(opts).CheckFirstUse(), nil
	default:
		return nil, fmt.Errorf("unknown gateway strategy %q", opts.Strategy)
	}
}

func tryChain(logger *log.Logger, chain []constructor, opts Options) (Gateway, error) {
	var errs []error
	for _, c := range chain {
		gw, err := c.build(opts)
		if errors.Is(err, errSkipped) {
			logger.Debug("browser strategy skipped", "strategy", c.name)
			continue
		}
		if err != nil {
			logger.Warn("browser strategy failed", "strategy", c.name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			continue
		}
		logger.Info("browser started", "strategy", c.name)
		return gw, nil
	}
	if len(errs) == 0 {
		return nil, ErrNoBrowser
	}
	return nil, fmt.Errorf("%w: %w", ErrNoBrowser, errors.Join(errs...))
}

// execOptions are the flags every locally started browser gets.
func execOptions(opts Options) []chromedp.ExecAllocatorOption {
	flags := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("headless", opts.Headless),
		chromedp.UserAgent(opts.userAgent()),
	)
	if opts.ProfileDir != "" {
		flags = append(flags, chromedp.UserDataDir(opts.ProfileDir))
	}
	return flags
}

func openExec(name string, opts Options, extra ...chromedp.ExecAllocatorOption) (Gateway, error) {
	flags := append(execOptions(opts), extra...)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), flags...)
	s, err := newBrowserSession(name, allocCtx, allocCancel, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openDefault(opts Options) (Gateway, error) {
	return openExec("default", opts)
}

func openExecPath(opts Options) (Gateway, error) {
	if opts.ExecPath == "" {
		return nil, errSkipped
	}
	return openExec("exec-path", opts, chromedp.ExecPath(opts.ExecPath))
}

// openLocal tries browser binaries next to the working directory.
func openLocal(opts Options) (Gateway, error) {
	var errs []error
	for _, name := range opts.LocalBinaries {
		path, err := filepath.Abs(name)
		if err != nil {
			continue
		}
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			continue
		}
		gw, err := openExec("local", opts, chromedp.ExecPath(path))
		if err == nil {
			return gw, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", path, err))
	}
	if len(errs) == 0 {
		return nil, errSkipped
	}
	return nil, errors.Join(errs...)
}

// openRemote attaches to a running browser's DevTools endpoint.
func openRemote(opts Options) (Gateway, error) {
	if opts.RemoteURL == "" {
		return nil, errSkipped
	}
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), opts.RemoteURL)
	s, err := newBrowserSession("remote", allocCtx, allocCancel, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}
