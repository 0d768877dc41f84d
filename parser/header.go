package parser

import (
	"regexp"
	"strconv"
)

// Result headers read "(148)" once settled or "(50/219)" while results are
// still streaming in; the final number is the full expected count.
var headerTotalRE = regexp.MustCompile(`\((?:\d+\s*/\s*)?(\d+)\)`)

// ParseResultTotal extracts the expected result total from the results
// header text. ok is false when the header carries no parenthesized count.
func ParseResultTotal(header string) (int, bool) {
	m := headerTotalRE.FindStringSubmatch(header)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
