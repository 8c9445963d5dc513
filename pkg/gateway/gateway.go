// Package gateway fetches Wordstat lookup pages, either through a long-lived
// browser tab or through a plain HTTP client.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/go-scripts/wordstat/pkg/common"
	"github.com/go-scripts/wordstat/pkg/extract"
)

var (
	// ErrUnavailable means the gateway cannot serve any request and the run
	// should stop.
	ErrUnavailable = errors.New("gateway unavailable")
	// ErrNoBrowser is returned when every browser constructor failed.
	ErrNoBrowser = errors.New("no browser could be started")
)

// Pacing between fetches.
const (
	AuthorizedDelay   = 500 * time.Millisecond
	UnauthorizedDelay = 2 * time.Second
)

// DefaultUserAgent is sent by both strategies.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Kind identifies the strategy behind a gateway.
type Kind int

const (
	KindBrowser Kind = iota
	KindHTTP
)

func (k Kind) String() string {
	if k == KindHTTP {
		return "http"
	}
	return "browser"
}

// Gateway returns the page for one formatted query.
type Gateway interface {
	Fetch(ctx context.Context, formatted string) (extract.Page, error)
	State() common.SessionState
	Kind() Kind
	Close() error
}

// Authorizer is implemented by gateways that hold a login session.
type Authorizer interface {
	Authorize(ctx context.Context) bool
}

// Options configures how gateways are built.
type Options struct {
	// Strategy is "auto", "browser" or "http".
	Strategy string
	Lookup   common.LookupURL

	UserAgent string

	// Browser strategy.
	Headless      bool
	ExecPath      string
	LocalBinaries []string
	RemoteURL     string
	ProfileDir    string
	FetchTimeout  time.Duration
	Countdown     time.Duration
	// SkipRetryPrompt proceeds unauthorized after one failed attempt.
	SkipRetryPrompt bool

	// HTTP strategy.
	HTTPTimeout      time.Duration
	CloudflareBypass bool
}

// DefaultOptions returns options for the public site.
func DefaultOptions() Options {
	return Options{
		Strategy:      "auto",
		Lookup:        common.NewLookupURL(common.DefaultBaseURL),
		UserAgent:     DefaultUserAgent,
		LocalBinaries: []string{"chrome", "chrome.exe", "chromium"},
		FetchTimeout:  60 * time.Second,
		Countdown:     10 * time.Second,
		HTTPTimeout:   15 * time.Second,
	}
}

func (o Options) userAgent() string {
	if o.UserAgent == "" {
		return DefaultUserAgent
	}
	return o.UserAgent
}
