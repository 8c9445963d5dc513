package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/wordstat/internal/queue"
	"github.com/go-scripts/wordstat/pkg/common"
	"github.com/go-scripts/wordstat/pkg/extract"
	"github.com/go-scripts/wordstat/pkg/gateway"
)

const rangeMarkup = `<html><body><div>за 01.01.2024 – 31.01.2024: 1 234</div></body></html>`

type fakeGateway struct {
	markup  string
	err     error
	state   common.SessionState
	fetched []string
	// failAt makes the n-th fetch (from 1) return failErr.
	failAt  int
	failErr error
	onFetch func(n int)
}

func (g *fakeGateway) Fetch(_ context.Context, formatted string) (extract.Page, error) {
	g.fetched = append(g.fetched, formatted)
	n := len(g.fetched)
	if g.onFetch != nil {
		g.onFetch(n)
	}
	if g.failAt == n {
		return extract.Page{}, g.failErr
	}
	if g.err != nil {
		return extract.Page{}, g.err
	}
	return extract.RenderedPage(g.markup)
}

func (g *fakeGateway) State() common.SessionState { return g.state }
func (g *fakeGateway) Kind() gateway.Kind         { return gateway.KindHTTP }
func (g *fakeGateway) Close() error               { return nil }

type authGateway struct {
	*fakeGateway
	ok    bool
	calls int
}

func (g *authGateway) Authorize(context.Context) bool {
	g.calls++
	g.state = common.SessionState{Authorized: g.ok, Delay: gateway.UnauthorizedDelay}
	if g.ok {
		g.state.Delay = gateway.AuthorizedDelay
	}
	return g.ok
}

func (g *authGateway) Kind() gateway.Kind { return gateway.KindBrowser }

type fakeClock struct {
	sleeps  []time.Duration
	onSleep func(n int)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	if c.onSleep != nil {
		c.onSleep(len(c.sleeps))
	}
	return ctx.Err()
}

func repeat(d time.Duration, n int) []time.Duration {
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = d
	}
	return out
}

func newRunner(gw gateway.Gateway, clock Clock, opts ...Option) *Runner {
	opts = append([]Option{WithClock(clock)}, opts...)
	return New(gw, extract.New(extract.DefaultRules()), opts...)
}

func TestRunEndToEnd(t *testing.T) {
	gw := &fakeGateway{markup: rangeMarkup, state: common.SessionState{Delay: gateway.UnauthorizedDelay}}
	clock := &fakeClock{}

	table, err := newRunner(gw, clock).Run(context.Background(), []string{"laptop", "red car"})
	require.NoError(t, err)

	want := common.ResultTable{
		{Query: "laptop", Loose: common.Some(1234), Exact: common.Some(1234), ExactForced: common.Some(1234)},
		{Query: "red car", Loose: common.Some(1234), Exact: common.Some(1234), ExactForced: common.Some(1234)},
	}
	if diff := cmp.Diff(want, table, cmp.AllowUnexported(common.Frequency{})); diff != "" {
		t.Errorf("table mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{`laptop`, `"laptop"`, `"!laptop"`, `red car`, `"red car"`, `"!red !car"`}, gw.fetched)
}

func TestRunAlwaysFailingGateway(t *testing.T) {
	gw := &fakeGateway{err: errors.New("connection reset"), state: common.SessionState{Delay: gateway.UnauthorizedDelay}}
	clock := &fakeClock{}
	queries := []string{"a", "b", "c"}

	table, err := newRunner(gw, clock).Run(context.Background(), queries)
	require.NoError(t, err)

	require.Len(t, table, len(queries))
	for i, res := range table {
		assert.Equal(t, queries[i], res.Query)
		for _, v := range common.Variants() {
			assert.False(t, res.Get(v).Found(), "%s %s", res.Query, v)
		}
	}
	assert.Len(t, gw.fetched, 9)
	assert.Len(t, clock.sleeps, 8)
}

func TestRunNothingOnPage(t *testing.T) {
	gw := &fakeGateway{markup: "<p>captcha</p>", state: common.SessionState{Delay: gateway.UnauthorizedDelay}}

	table, err := newRunner(gw, &fakeClock{}).Run(context.Background(), []string{"laptop"})
	require.NoError(t, err)
	assert.Equal(t, 0, table.Found())
}

func TestRunPacing(t *testing.T) {
	queries := []string{"laptop", "red car"}

	t.Run("authorized session", func(t *testing.T) {
		gw := &authGateway{fakeGateway: &fakeGateway{markup: rangeMarkup}, ok: true}
		clock := &fakeClock{}

		_, err := newRunner(gw, clock).Run(context.Background(), queries)
		require.NoError(t, err)
		assert.Equal(t, 1, gw.calls)
		assert.Equal(t, repeat(500*time.Millisecond, 5), clock.sleeps)
	})

	t.Run("unauthorized session", func(t *testing.T) {
		gw := &authGateway{fakeGateway: &fakeGateway{markup: rangeMarkup}, ok: false}
		clock := &fakeClock{}

		table, err := newRunner(gw, clock).Run(context.Background(), queries)
		require.NoError(t, err)
		assert.Equal(t, 1, gw.calls)
		assert.Equal(t, repeat(2*time.Second, 5), clock.sleeps)
		assert.Equal(t, 6, table.Found())
	})

	t.Run("stateless", func(t *testing.T) {
		f := gateway.NewHTTPFetcher(gateway.DefaultOptions())
		gw := &fakeGateway{markup: rangeMarkup, state: f.State()}
		clock := &fakeClock{}

		_, err := newRunner(gw, clock).Run(context.Background(), queries)
		require.NoError(t, err)
		assert.Equal(t, repeat(2*time.Second, 5), clock.sleeps)
	})
}

func TestRunStopsWhenUnavailable(t *testing.T) {
	gw := &fakeGateway{
		markup:  rangeMarkup,
		state:   common.SessionState{Delay: gateway.UnauthorizedDelay},
		failAt:  1,
		failErr: errors.Join(gateway.ErrUnavailable, errors.New("dial tcp: connection refused")),
	}

	table, err := newRunner(gw, &fakeClock{}).Run(context.Background(), []string{"laptop", "red car"})
	require.ErrorIs(t, err, gateway.ErrUnavailable)
	assert.Len(t, table, 2)
	assert.Equal(t, 0, table.Found())
	assert.Len(t, gw.fetched, 1)
}

func TestRunSingleFailureContinues(t *testing.T) {
	gw := &fakeGateway{
		markup:  rangeMarkup,
		state:   common.SessionState{Delay: gateway.UnauthorizedDelay},
		failAt:  2,
		failErr: &gateway.StatusError{URL: "https://wordstat.yandex.ru/", Code: 503},
	}

	table, err := newRunner(gw, &fakeClock{}).Run(context.Background(), []string{"laptop"})
	require.NoError(t, err)
	assert.Equal(t, common.Some(1234), table[0].Loose)
	assert.Equal(t, common.None(), table[0].Exact)
	assert.Equal(t, common.Some(1234), table[0].ExactForced)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw := &fakeGateway{markup: rangeMarkup, state: common.SessionState{Delay: gateway.UnauthorizedDelay}}
	clock := &fakeClock{onSleep: func(n int) {
		if n == 2 {
			cancel()
		}
	}}

	table, err := newRunner(gw, clock).Run(ctx, []string{"laptop", "red car"})
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, table, 2)
	assert.Equal(t, common.Some(1234), table[0].Loose)
	assert.Equal(t, common.Some(1234), table[0].Exact)
	assert.False(t, table[0].ExactForced.Found())
	assert.False(t, table[1].Loose.Found())
	assert.Len(t, gw.fetched, 2)
}

func TestRunCancelledDuringFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw := &fakeGateway{
		markup:  rangeMarkup,
		state:   common.SessionState{Delay: gateway.UnauthorizedDelay},
		failAt:  1,
		failErr: context.Canceled,
		onFetch: func(int) { cancel() },
	}

	table, err := newRunner(gw, &fakeClock{}).Run(ctx, []string{"laptop"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, table, 1)
	assert.Equal(t, 0, table.Found())
}

type recordingProgress struct {
	total    int
	started  []string
	advanced int
}

func (p *recordingProgress) SetTotal(total int) { p.total = total }
func (p *recordingProgress) Start(label string) { p.started = append(p.started, label) }
func (p *recordingProgress) Advance()           { p.advanced++ }

type recordingDumper struct {
	numbers []int
	jobs    []queue.Job
}

func (d *recordingDumper) Dump(n int, job queue.Job, _ extract.Page) error {
	d.numbers = append(d.numbers, n)
	d.jobs = append(d.jobs, job)
	return errors.New("disk full")
}

func TestRunReportsProgressAndDumps(t *testing.T) {
	gw := &fakeGateway{markup: rangeMarkup, state: common.SessionState{Delay: gateway.UnauthorizedDelay}}
	progress := &recordingProgress{}
	dumper := &recordingDumper{}

	table, err := newRunner(gw, &fakeClock{}, WithProgress(progress), WithDumper(dumper)).
		Run(context.Background(), []string{"laptop"})
	require.NoError(t, err)

	assert.Equal(t, 3, progress.total)
	assert.Equal(t, []string{"laptop (loose)", "laptop (exact)", "laptop (exact-forced)"}, progress.started)
	assert.Equal(t, 3, progress.advanced)

	// Dump failures never cost a result.
	assert.Equal(t, 3, table.Found())
	assert.Equal(t, []int{1, 2, 3}, dumper.numbers)
	assert.Equal(t, common.ExactForced, dumper.jobs[2].Variant)
}
