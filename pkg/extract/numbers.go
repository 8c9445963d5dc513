package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-scripts/wordstat/pkg/common"
)

// groupSep matches one thousands separator as the site renders it: a plain
// space, a no-break space or a thin space.
const groupSep = `[\s\p{Zs}]`

// grouped is one to three digits followed by any number of separated
// three-digit groups ("12 345").
const grouped = `\d{1,3}(?:` + groupSep + `\d{3})*`

var (
	colonNumber = regexp.MustCompile(`:` + groupSep + `*(` + grouped + `)`)
	anyNumber   = regexp.MustCompile(`\b(` + grouped + `)\b`)
	bigNumber   = regexp.MustCompile(`\b(\d{1,3}(?:` + groupSep + `\d{3})+)\b`)
)

// ParseGrouped converts a grouped-digits run into an integer. It fails on
// anything that is not digits and separators, or on overflow.
func ParseGrouped(s string) (uint64, bool) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.Is(unicode.Zs, r) {
			return -1
		}
		return r
	}, s)
	if digits == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FormatGrouped renders n with thousands separated by single spaces.
func FormatGrouped(n uint64) string {
	s := strconv.FormatUint(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// afterColon returns the number that follows the first ":" in text.
func afterColon(text string) common.Frequency {
	m := colonNumber.FindStringSubmatch(text)
	if m == nil {
		return common.None()
	}
	if v, ok := ParseGrouped(m[1]); ok {
		return common.Some(v)
	}
	return common.None()
}

// lastNumber returns the last grouped-digits run in text.
func lastNumber(text string) common.Frequency {
	all := anyNumber.FindAllStringSubmatch(text, -1)
	if len(all) == 0 {
		return common.None()
	}
	if v, ok := ParseGrouped(all[len(all)-1][1]); ok {
		return common.Some(v)
	}
	return common.None()
}

// firstAbove returns the first multi-group number strictly above threshold.
func firstAbove(text string, threshold uint64) common.Frequency {
	for _, m := range bigNumber.FindAllStringSubmatch(text, -1) {
		v, ok := ParseGrouped(m[1])
		if ok && v > threshold {
			return common.Some(v)
		}
	}
	return common.None()
}
