package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"

	"github.com/go-scripts/wordstat/pkg/common"
	"github.com/go-scripts/wordstat/pkg/extract"
)

// HTTPFetcher is the stateless strategy. It never authorizes and always
// paces at UnauthorizedDelay.
type HTTPFetcher struct {
	client *resty.Client
	lookup common.LookupURL
	logger *log.Logger

	// checkFirst turns a transport failure on the first request into
	// ErrUnavailable.
	checkFirst bool
	firstOnce  sync.Once
	firstErr   error
}

// NewHTTPFetcher builds a fetcher from opts.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	client := resty.New()
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetHeader("User-Agent", opts.userAgent())
	client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.SetHeader("Accept-Language", "ru-RU,ru;q=0.8,en-US;q=0.5,en;q=0.3")
	client.SetHeader("Connection", "keep-alive")
	client.SetHeader("Upgrade-Insecure-Requests", "1")
	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = DefaultOptions().HTTPTimeout
	}
	client.SetTimeout(timeout)

	return &HTTPFetcher{
		client: client,
		lookup: opts.Lookup,
		logger: log.WithPrefix("http"),
	}
}

// CheckFirstUse makes the first transport failure fatal.
func (f *HTTPFetcher) CheckFirstUse() *HTTPFetcher {
	f.checkFirst = true
	return f
}

func (f *HTTPFetcher) Fetch(ctx context.Context, formatted string) (extract.Page, error) {
	target := f.lookup.Build(formatted)
	f.logger.Debug("fetching", "url", target)

	res, err := f.client.R().
		SetContext(ctx).
		Get(target)

	if f.checkFirst {
		f.firstOnce.Do(func() {
			if err != nil && ctx.Err() == nil {
				f.firstErr = fmt.Errorf("%w: %w", ErrUnavailable, err)
			}
		})
		if f.firstErr != nil {
			return extract.Page{}, f.firstErr
		}
	}
	if err != nil {
		return extract.Page{}, fmt.Errorf("request failed: %w", err)
	}
	if !res.IsSuccess() {
		err := &StatusError{URL: target, Code: res.StatusCode()}
		if isStatus(err, http.StatusForbidden) || isStatus(err, http.StatusTooManyRequests) {
			f.logger.Warn("request blocked, the site probably wants a captcha", "status", err.Code)
		}
		return extract.Page{}, err
	}

	page := extract.RawPage(res.String())
	page.URL = res.Request.URL
	return page, nil
}

func (f *HTTPFetcher) State() common.SessionState {
	return common.SessionState{Authorized: false, Delay: UnauthorizedDelay}
}

func (f *HTTPFetcher) Kind() Kind { return KindHTTP }

func (f *HTTPFetcher) Close() error { return nil }

// StatusError is a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

// isStatus reports whether err is a StatusError with the given code.
func isStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
