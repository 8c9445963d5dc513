package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/wordstat/pkg/common"
)

func rendered(t *testing.T, markup string) Page {
	t.Helper()
	p, err := RenderedPage(markup)
	require.NoError(t, err)
	return p
}

func TestExtractRendered(t *testing.T) {
	tests := []struct {
		name     string
		markup   string
		want     common.Frequency
		strategy Strategy
	}{
		{
			name:     "preview text with date range",
			markup:   `<div class="wordstat__content-preview-text">за 01.01.2024 – 31.01.2024: 1 234</div>`,
			want:     common.Some(1234),
			strategy: SelectorScan,
		},
		{
			name:     "selector falls back to last number",
			markup:   `<span class="wordstat__number">всего 12 345 показов</span>`,
			want:     common.Some(12345),
			strategy: SelectorScan,
		},
		{
			name:     "literal zero is a value",
			markup:   `<div class="wordstat__number">queries: 0</div>`,
			want:     common.Some(0),
			strategy: SelectorScan,
		},
		{
			name:     "heading with phrase",
			markup:   `<h2>Общее число запросов 7 500 000</h2>`,
			want:     common.Some(7500000),
			strategy: HeadingScan,
		},
		{
			name:     "heading without phrase is ignored",
			markup:   `<h2>Top 5</h2><p>nothing</p>`,
			want:     common.None(),
			strategy: StrategyNone,
		},
		{
			name:     "path scan on span with colon",
			markup:   `<section><span>Показов в месяц: 45 678</span></section>`,
			want:     common.Some(45678),
			strategy: PathScan,
		},
		{
			name:     "pattern scan takes last match",
			markup:   `<!-- число запросов за месяц: 10 --><!-- число запросов за год: 2 500 -->`,
			want:     common.Some(2500),
			strategy: PatternScan,
		},
		{
			name:     "numeric fallback above rendered threshold",
			markup:   `<p>1 050 users, then 3 000 000</p>`,
			want:     common.Some(1050),
			strategy: NumericFallback,
		},
		{
			name:     "nothing plausible",
			markup:   `<html><body><p>no data 42</p></body></html>`,
			want:     common.None(),
			strategy: StrategyNone,
		},
	}

	ex := New(DefaultRules())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ex.Extract(context.Background(), rendered(t, tt.markup))
			assert.Equal(t, tt.want, got.Frequency)
			assert.Equal(t, tt.strategy, got.Strategy)
		})
	}
}

func TestExtractRaw(t *testing.T) {
	tests := []struct {
		name     string
		markup   string
		want     common.Frequency
		strategy Strategy
	}{
		{
			name:     "date range pattern",
			markup:   `<div class="x">за 01.01.2024 – 31.01.2024: 98 765</div>`,
			want:     common.Some(98765),
			strategy: PatternScan,
		},
		{
			name:     "colon before closing div with zero",
			markup:   `<div class="stat">queries: 0</div>`,
			want:     common.Some(0),
			strategy: PatternScan,
		},
		{
			name:     "preview text attribute pattern is raw only",
			markup:   `<span class="wordstat__content-preview-text">итого: 3 210</span>`,
			want:     common.Some(3210),
			strategy: PatternScan,
		},
		{
			name:     "wordstat class element keeps every digit group",
			markup:   `<div class="wordstat-total">показов в 2024 году 3 210</div>`,
			want:     common.Some(3210),
			strategy: PatternScan,
		},
		{
			name:     "wordstat class element without separators is not split",
			markup:   `<div class="wordstat-total">13210</div><p>ids 1 000</p>`,
			want:     common.None(),
			strategy: StrategyNone,
		},
		{
			name:     "raw fallback ignores numbers up to 1000",
			markup:   `<p>ids 1 000 and 250 500</p>`,
			want:     common.Some(250500),
			strategy: NumericFallback,
		},
		{
			name:     "nothing plausible",
			markup:   `<p>1 000 and 999</p>`,
			want:     common.None(),
			strategy: StrategyNone,
		},
	}

	ex := New(DefaultRules())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ex.Extract(context.Background(), RawPage(tt.markup))
			assert.Equal(t, tt.want, got.Frequency)
			assert.Equal(t, tt.strategy, got.Strategy)
		})
	}
}

func TestStrategyOrderPrefersSelector(t *testing.T) {
	markup := `<html><body>
		<div class="wordstat__number">Показы: 5 000</div>
		<p>за 01.01.2024 – 31.01.2024: 9 999</p>
	</body></html>`

	ex := New(DefaultRules())
	got := ex.Extract(context.Background(), rendered(t, markup))
	assert.Equal(t, common.Some(5000), got.Frequency)
	assert.Equal(t, SelectorScan, got.Strategy)

	// The same page read as raw markup only has the pattern to go on.
	raw := ex.Extract(context.Background(), RawPage(markup))
	assert.Equal(t, common.Some(9999), raw.Frequency)
	assert.Equal(t, PatternScan, raw.Strategy)
}

func TestExplainRunsEveryStrategy(t *testing.T) {
	markup := `<div class="wordstat__number">Показы: 5 000</div><p>за 01.01.2024 – 31.01.2024: 9 999</p>`
	ex := New(DefaultRules())

	got := ex.Explain(context.Background(), rendered(t, markup))
	require.Len(t, got, 5)
	assert.Equal(t, SelectorScan, got[0].Strategy)
	assert.Equal(t, common.Some(5000), got[0].Frequency)
	assert.Equal(t, PatternScan, got[3].Strategy)
	assert.Equal(t, common.Some(9999), got[3].Frequency)

	raw := ex.Explain(context.Background(), RawPage(markup))
	require.Len(t, raw, 2)
	assert.Equal(t, PatternScan, raw[0].Strategy)
	assert.Equal(t, NumericFallback, raw[1].Strategy)
}

type brokenDocument struct{ calls int }

func (d *brokenDocument) Select(context.Context, string) ([]string, error) {
	d.calls++
	return nil, errors.New("tab crashed")
}

func (d *brokenDocument) SelectPath(context.Context, PathQuery) ([]string, error) {
	d.calls++
	return nil, errors.New("tab crashed")
}

func TestDocumentErrorsDoNotStopCascade(t *testing.T) {
	doc := &brokenDocument{}
	p := Page{Mode: Rendered, Doc: doc, Markup: `<div>число запросов за месяц: 4 321</div>`}

	got := New(DefaultRules()).Extract(context.Background(), p)
	assert.Equal(t, common.Some(4321), got.Frequency)
	assert.Equal(t, PatternScan, got.Strategy)

	rules := DefaultRules()
	assert.Equal(t, len(rules.Selectors)+1+len(rules.Paths), doc.calls)
}

func TestRenderedWithoutDocumentSkipsDOMStrategies(t *testing.T) {
	p := Page{Mode: Rendered, Markup: `<b>: 77</div>`}
	got := New(DefaultRules()).Extract(context.Background(), p)
	assert.Equal(t, common.Some(77), got.Frequency)
	assert.Equal(t, PatternScan, got.Strategy)
}

func TestCustomThresholds(t *testing.T) {
	rules := DefaultRules()
	rules.RawThreshold = 5000
	ex := New(rules)

	got := ex.Extract(context.Background(), RawPage(`<p>4 000 then 6 000</p>`))
	assert.Equal(t, common.Some(6000), got.Frequency)
}

func TestCompilePatterns(t *testing.T) {
	res, err := CompilePatterns([]string{`total: (\d+)`})
	require.NoError(t, err)
	require.Len(t, res, 1)

	_, err = CompilePatterns([]string{`total: \d+`})
	assert.ErrorContains(t, err, "no capture group")

	_, err = CompilePatterns([]string{`(`})
	assert.Error(t, err)
}
