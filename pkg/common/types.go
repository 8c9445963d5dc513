package common

import (
	"encoding/json"
	"strconv"
	"time"
)

// Variant selects how a query is encoded for the site.
type Variant int

const (
	// Loose sends the phrase as typed.
	Loose Variant = iota
	// Exact wraps the phrase in quotes (phrase match).
	Exact
	// ExactForced quotes the phrase and pins every word form with "!".
	ExactForced
)

// Variants returns every variant in processing order.
func Variants() []Variant {
	return []Variant{Loose, Exact, ExactForced}
}

func (v Variant) String() string {
	switch v {
	case Loose:
		return "loose"
	case Exact:
		return "exact"
	case ExactForced:
		return "exact-forced"
	default:
		return "variant(" + strconv.Itoa(int(v)) + ")"
	}
}

// ParseVariant is the inverse of Variant.String.
func ParseVariant(s string) (Variant, bool) {
	for _, v := range Variants() {
		if v.String() == s {
			return v, true
		}
	}
	return 0, false
}

// FormattedQuery is a query rendered for one variant.
type FormattedQuery struct {
	Variant Variant
	Text    string
}

// Frequency is an optional non-negative count. The zero value is absent,
// which is distinct from a present zero.
type Frequency struct {
	value uint64
	ok    bool
}

// Some returns a present frequency.
func Some(v uint64) Frequency { return Frequency{value: v, ok: true} }

// None returns an absent frequency.
func None() Frequency { return Frequency{} }

// Get returns the value and whether it is present.
func (f Frequency) Get() (uint64, bool) { return f.value, f.ok }

// Found reports whether a value is present.
func (f Frequency) Found() bool { return f.ok }

// Or returns the value as text, or placeholder when absent.
func (f Frequency) Or(placeholder string) string {
	if !f.ok {
		return placeholder
	}
	return strconv.FormatUint(f.value, 10)
}

func (f Frequency) String() string { return f.Or("none") }

// MarshalJSON writes absent values as null.
func (f Frequency) MarshalJSON() ([]byte, error) {
	if !f.ok {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// UnmarshalJSON accepts null or a non-negative integer.
func (f *Frequency) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = None()
		return nil
	}
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Some(v)
	return nil
}

// QueryResult holds the three frequencies of one input query.
type QueryResult struct {
	Query       string    `json:"query"`
	Loose       Frequency `json:"loose"`
	Exact       Frequency `json:"exact"`
	ExactForced Frequency `json:"exact_forced"`
}

// NewQueryResult returns a result with every frequency absent.
func NewQueryResult(query string) QueryResult {
	return QueryResult{Query: query}
}

// Get returns the frequency recorded for v.
func (r QueryResult) Get(v Variant) Frequency {
	switch v {
	case Exact:
		return r.Exact
	case ExactForced:
		return r.ExactForced
	default:
		return r.Loose
	}
}

// Set records f for v.
func (r *QueryResult) Set(v Variant, f Frequency) {
	switch v {
	case Exact:
		r.Exact = f
	case ExactForced:
		r.ExactForced = f
	default:
		r.Loose = f
	}
}

// ResultTable is ordered like the input queries.
type ResultTable []QueryResult

// NewResultTable returns one empty result per query, in order.
func NewResultTable(queries []string) ResultTable {
	table := make(ResultTable, len(queries))
	for i, q := range queries {
		table[i] = NewQueryResult(q)
	}
	return table
}

// Found counts present frequencies across the table.
func (t ResultTable) Found() int {
	n := 0
	for _, r := range t {
		for _, v := range Variants() {
			if r.Get(v).Found() {
				n++
			}
		}
	}
	return n
}

// SessionState is owned by a gateway. Authorization writes it once; the
// runner only reads it.
type SessionState struct {
	Authorized bool
	Delay      time.Duration
}
