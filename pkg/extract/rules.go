package extract

import (
	"fmt"
	"regexp"
)

// Rules holds everything site-specific the cascade matches against. The
// site markup changes without notice, so all of it is data.
type Rules struct {
	// Selectors are tried most specific first.
	Selectors []string
	// HeadingSelector finds title-like elements.
	HeadingSelector string
	// HeadingPhrases are matched against lowercased heading text.
	HeadingPhrases []string
	Paths          []PathQuery
	// Patterns scan page source in both modes; the number is capture group 1.
	Patterns []*regexp.Regexp
	// RawPatterns are tried after Patterns in raw mode only.
	RawPatterns []*regexp.Regexp
	// RenderedThreshold and RawThreshold bound the numeric fallback.
	RenderedThreshold uint64
	RawThreshold      uint64
}

// DefaultRules returns the rules for the current Wordstat markup.
func DefaultRules() Rules {
	return Rules{
		Selectors: []string{
			".wordstat__content-preview-text_last",
			".wordstat__content-preview-text",
			".wordstat__number",
			".wordstat-number",
			`[class*="wordstat__"]`,
			`[class*="preview-text"]`,
			".wordstat-table__row:first-child .wordstat-table__cell:nth-child(2)",
			".table__row:first-child .table__cell:nth-child(2)",
			`[data-testid="frequency"]`,
			".frequency",
			".stat-value",
		},
		HeadingSelector: `h1, h2, h3, .title, [class*="title"]`,
		HeadingPhrases: []string{
			"общее число запросов",
			"число запросов",
			"total number of queries",
			"number of queries",
		},
		Paths: []PathQuery{
			{Tag: "div", Contains: []string{":"}},
			{Tag: "span", Contains: []string{":"}},
			{Tag: "*", Contains: []string{"число запросов"}},
			{Tag: "*", Contains: []string{"–", ":"}},
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)за\s+\d{2}\.\d{2}\.\d{4}\s*[–—-]\s*\d{2}\.\d{2}\.\d{4}:` + groupSep + `*(` + grouped + `)`),
			regexp.MustCompile(`(?i)число запросов[^:]+:` + groupSep + `*(` + grouped + `)`),
			regexp.MustCompile(`(?i)общее число[^:]+:` + groupSep + `*(` + grouped + `)`),
			regexp.MustCompile(`(?i):` + groupSep + `*(` + grouped + `)</div>`),
		},
		RawPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)wordstat__content-preview-text[^>]*>[^<]*:` + groupSep + `*(` + grouped + `)`),
			// Whole number closing the text of any wordstat-classed element.
			regexp.MustCompile(`(?i)class="[^"]*wordstat[^"]*"[^>]*>(?:[^<]*?[^<\d])?(` + grouped + `)` + groupSep + `*<`),
		},
		RenderedThreshold: 100,
		RawThreshold:      1000,
	}
}

// CompilePatterns compiles source patterns. Each must have a capture group.
func CompilePatterns(sources []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(sources))
	for _, src := range sources {
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", src, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("pattern %q has no capture group", src)
		}
		out = append(out, re)
	}
	return out, nil
}
