package common

import (
	"net/url"
	"strings"
)

// ForceMarker pins the exact word form of a token.
const ForceMarker = "!"

// DefaultBaseURL is the Wordstat entry point.
const DefaultBaseURL = "https://wordstat.yandex.ru/"

// Format renders query for the given variant. Empty input is passed through.
func Format(query string, v Variant) string {
	query = strings.TrimSpace(query)

	switch v {
	case Exact:
		return `"` + query + `"`
	case ExactForced:
		words := strings.Fields(query)
		for i, w := range words {
			words[i] = ForceMarker + w
		}
		return `"` + strings.Join(words, " ") + `"`
	default:
		return query
	}
}

// FormatAll renders query for every variant in processing order.
func FormatAll(query string) []FormattedQuery {
	out := make([]FormattedQuery, 0, 3)
	for _, v := range Variants() {
		out = append(out, FormattedQuery{Variant: v, Text: Format(query, v)})
	}
	return out
}

// LookupURL builds lookup URLs against one base.
type LookupURL struct {
	Base   string
	Region string
	View   string
}

// NewLookupURL returns a builder with the site defaults.
func NewLookupURL(base string) LookupURL {
	if base == "" {
		base = DefaultBaseURL
	}
	return LookupURL{Base: base, Region: "all", View: "table"}
}

// Build returns the lookup URL for an already formatted query.
func (l LookupURL) Build(formatted string) string {
	region := l.Region
	if region == "" {
		region = "all"
	}
	view := l.View
	if view == "" {
		view = "table"
	}

	// url.Values.Encode sorts keys, which happens to match region, view, words.
	params := url.Values{}
	params.Set("region", region)
	params.Set("view", view)
	params.Set("words", formatted)

	sep := "?"
	if strings.Contains(l.Base, "?") {
		sep = "&"
	}
	return l.Base + sep + params.Encode()
}
