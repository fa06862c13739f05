package services

import (
	"regexp"
	"strconv"
)

var (
	// signed decimal immediately followed by '%', e.g. "+1.23%"
	decimalPercentRe = regexp.MustCompile(`([+-]?[0-9]+\.[0-9]+)%`)
	// signed integer, at most one whitespace character, then '%', e.g. "5 %".
	// The class matches the same characters as a Unicode-aware \s.
	integerPercentRe = regexp.MustCompile(`([+-]?[0-9]+)[\t\n\v\f\r\x{1c}-\x{1f}\x{85}\p{Z}]?%`)
)

// ExtractReturnPercent finds the first percentage in text. A decimal match
// wins over an integer match anywhere in the text; the integer form is only
// consulted when no decimal percentage exists. The sign is whatever the
// matched token carries, so an unsigned match is positive even when the
// surrounding words say "down". A first match too large for a float64 is
// reported as not found rather than falling through to a later token.
func ExtractReturnPercent(text string) (float64, bool) {
	for _, re := range []*regexp.Regexp{decimalPercentRe, integerPercentRe} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	return 0, false
}
