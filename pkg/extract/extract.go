// Package extract pulls the query frequency out of a Wordstat page through
// an ordered cascade of heuristics. The first strategy to produce a value
// wins and later strategies never run.
package extract

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/go-scripts/wordstat/pkg/common"
)

// Strategy names one step of the cascade.
type Strategy int

const (
	StrategyNone Strategy = iota
	SelectorScan
	HeadingScan
	PathScan
	PatternScan
	NumericFallback
)

func (s Strategy) String() string {
	switch s {
	case SelectorScan:
		return "selector"
	case HeadingScan:
		return "heading"
	case PathScan:
		return "path"
	case PatternScan:
		return "pattern"
	case NumericFallback:
		return "numeric"
	default:
		return "none"
	}
}

// Match is a frequency together with the strategy that produced it.
type Match struct {
	Frequency common.Frequency
	Strategy  Strategy
}

type step struct {
	strategy     Strategy
	renderedOnly bool
	run          func(e *Extractor, ctx context.Context, p Page) common.Frequency
}

// cascade is the priority order. Order is the tie-break policy.
var cascade = []step{
	{strategy: SelectorScan, renderedOnly: true, run: (*Extractor).selectorScan},
	{strategy: HeadingScan, renderedOnly: true, run: (*Extractor).headingScan},
	{strategy: PathScan, renderedOnly: true, run: (*Extractor).pathScan},
	{strategy: PatternScan, run: (*Extractor).patternScan},
	{strategy: NumericFallback, run: (*Extractor).numericFallback},
}

// Extractor runs the cascade with one set of rules.
type Extractor struct {
	rules  Rules
	logger *log.Logger
}

// New returns an extractor for rules.
func New(rules Rules) *Extractor {
	lower := cases.Lower(language.Und)
	phrases := make([]string, len(rules.HeadingPhrases))
	for i, ph := range rules.HeadingPhrases {
		phrases[i] = lower.String(ph)
	}
	rules.HeadingPhrases = phrases

	return &Extractor{
		rules:  rules,
		logger: log.WithPrefix("extract"),
	}
}

// Extract returns the first value the cascade finds, or an absent
// frequency with StrategyNone.
func (e *Extractor) Extract(ctx context.Context, p Page) Match {
	for _, s := range cascade {
		if !s.applies(p) {
			continue
		}
		if f := s.run(e, ctx, p); f.Found() {
			e.logger.Debug("frequency found", "strategy", s.strategy, "value", f)
			return Match{Frequency: f, Strategy: s.strategy}
		}
	}
	e.logger.Debug("no frequency found", "mode", p.Mode, "url", p.URL)
	return Match{Frequency: common.None(), Strategy: StrategyNone}
}

// Explain runs every applicable strategy on its own, in cascade order.
func (e *Extractor) Explain(ctx context.Context, p Page) []Match {
	var out []Match
	for _, s := range cascade {
		if !s.applies(p) {
			continue
		}
		out = append(out, Match{Frequency: s.run(e, ctx, p), Strategy: s.strategy})
	}
	return out
}

func (s step) applies(p Page) bool {
	if !s.renderedOnly {
		return true
	}
	return p.Mode == Rendered && p.Doc != nil
}

func (e *Extractor) selectorScan(ctx context.Context, p Page) common.Frequency {
	for _, sel := range e.rules.Selectors {
		texts, err := p.Doc.Select(ctx, sel)
		if err != nil {
			e.logger.Debug("selector failed", "selector", sel, "err", err)
			continue
		}
		for _, text := range texts {
			if text == "" {
				continue
			}
			e.logger.Debug("selector candidate", "selector", sel, "text", text)
			if f := afterColon(text); f.Found() {
				return f
			}
			if f := lastNumber(text); f.Found() {
				return f
			}
		}
	}
	return common.None()
}

func (e *Extractor) headingScan(ctx context.Context, p Page) common.Frequency {
	if e.rules.HeadingSelector == "" {
		return common.None()
	}
	texts, err := p.Doc.Select(ctx, e.rules.HeadingSelector)
	if err != nil {
		e.logger.Debug("heading selector failed", "err", err)
		return common.None()
	}
	lower := cases.Lower(language.Und)
	for _, text := range texts {
		folded := lower.String(text)
		if !containsAny(folded, e.rules.HeadingPhrases) {
			continue
		}
		e.logger.Debug("heading candidate", "text", text)
		if f := lastNumber(text); f.Found() {
			return f
		}
	}
	return common.None()
}

func (e *Extractor) pathScan(ctx context.Context, p Page) common.Frequency {
	for _, path := range e.rules.Paths {
		texts, err := p.Doc.SelectPath(ctx, path)
		if err != nil {
			e.logger.Debug("path failed", "path", path.XPath(), "err", err)
			continue
		}
		for _, text := range texts {
			if !strings.Contains(text, ":") {
				continue
			}
			e.logger.Debug("path candidate", "path", path.XPath(), "text", text)
			if f := afterColon(text); f.Found() {
				return f
			}
		}
	}
	return common.None()
}

func (e *Extractor) patternScan(_ context.Context, p Page) common.Frequency {
	patterns := e.rules.Patterns
	if p.Mode == Raw {
		patterns = append(patterns[:len(patterns):len(patterns)], e.rules.RawPatterns...)
	}
	for _, re := range patterns {
		all := re.FindAllStringSubmatch(p.Markup, -1)
		if len(all) == 0 {
			continue
		}
		last := all[len(all)-1]
		if v, ok := ParseGrouped(last[1]); ok {
			e.logger.Debug("pattern matched", "pattern", re.String(), "matches", len(all))
			return common.Some(v)
		}
	}
	return common.None()
}

func (e *Extractor) numericFallback(_ context.Context, p Page) common.Frequency {
	threshold := e.rules.RenderedThreshold
	if p.Mode == Raw {
		threshold = e.rules.RawThreshold
	}
	return firstAbove(p.Markup, threshold)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
