package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/wordstat/pkg/common"
	"github.com/go-scripts/wordstat/pkg/extract"
)

func testOptions(base string) Options {
	opts := DefaultOptions()
	opts.Lookup = common.NewLookupURL(base)
	return opts
}

func TestHTTPFetcherFetch(t *testing.T) {
	seen := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<div>за 01.01.2024 – 31.01.2024: 1 234</div>`))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(testOptions(srv.URL + "/"))
	page, err := f.Fetch(context.Background(), `"!red !car"`)
	require.NoError(t, err)

	assert.Equal(t, extract.Raw, page.Mode)
	assert.Nil(t, page.Doc)
	assert.Contains(t, page.Markup, "1 234")

	got := <-seen
	assert.Equal(t, `"!red !car"`, got.URL.Query().Get("words"))
	assert.Equal(t, "all", got.URL.Query().Get("region"))
	assert.Equal(t, "table", got.URL.Query().Get("view"))
	assert.Equal(t, DefaultUserAgent, got.Header.Get("User-Agent"))
	assert.Contains(t, got.Header.Get("Accept-Language"), "ru-RU")
	assert.Equal(t, "1", got.Header.Get("Upgrade-Insecure-Requests"))

	m := extract.New(extract.DefaultRules()).Extract(context.Background(), page)
	assert.Equal(t, common.Some(1234), m.Frequency)
}

func TestHTTPFetcherStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "captcha", http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(testOptions(srv.URL + "/")).CheckFirstUse()
	_, err := f.Fetch(context.Background(), "laptop")
	require.Error(t, err)
	assert.True(t, isStatus(err, http.StatusForbidden))
	// A response, even an error one, proves the transport works.
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestHTTPFetcherFirstUse(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL + "/"
	srv.Close()

	t.Run("fallback fetcher is unavailable", func(t *testing.T) {
		f := NewHTTPFetcher(testOptions(base)).CheckFirstUse()
		_, err := f.Fetch(context.Background(), "laptop")
		assert.ErrorIs(t, err, ErrUnavailable)
		_, err = f.Fetch(context.Background(), "laptop")
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("chosen fetcher reports plain errors", func(t *testing.T) {
		f := NewHTTPFetcher(testOptions(base))
		_, err := f.Fetch(context.Background(), "laptop")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnavailable)
	})
}

func TestHTTPFetcherLaterFailuresAreNotFatal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) > 1 {
			time.Sleep(200 * time.Millisecond)
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	opts := testOptions(srv.URL + "/")
	opts.HTTPTimeout = 50 * time.Millisecond
	f := NewHTTPFetcher(opts).CheckFirstUse()

	_, err := f.Fetch(context.Background(), "laptop")
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "laptop")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestHTTPFetcherState(t *testing.T) {
	f := NewHTTPFetcher(DefaultOptions())
	assert.Equal(t, common.SessionState{Authorized: false, Delay: 2 * time.Second}, f.State())
	assert.Equal(t, KindHTTP, f.Kind())
	assert.NoError(t, f.Close())

	var _ Gateway = f
	var _ Gateway = (*BrowserSession)(nil)
	var _ Authorizer = (*BrowserSession)(nil)
}
