package corpus

import (
	"regexp"
	"time"
)

const monthNames = `(January|February|March|April|May|June|July|August|September|October|November|December)`

// space also matches the no-break space RTF emits for \~.
const space = `[\s\x{00A0}]`

type datePattern struct {
	re     *regexp.Regexp
	layout string
	// normalize rewrites the submatches into the form layout expects.
	normalize func(m []string) string
}

// datePatterns are tried in priority order.
var datePatterns = []datePattern{
	{
		// 15 March 2021
		re:        regexp.MustCompile(`\b(\d{1,2})` + space + monthNames + space + `(19\d{2}|20\d{2})\b`),
		layout:    "2 January 2006",
		normalize: func(m []string) string { return m[1] + " " + m[2] + " " + m[3] },
	},
	{
		// March 15, 2021
		re:        regexp.MustCompile(`\b` + monthNames + space + `(\d{1,2}),` + space + `(19\d{2}|20\d{2})\b`),
		layout:    "January 2, 2006",
		normalize: func(m []string) string { return m[1] + " " + m[2] + ", " + m[3] },
	},
	{
		// 2021-03-15, 2021/03/15
		re:        regexp.MustCompile(`\b(19\d{2}|20\d{2})[-/](0[1-9]|1[0-2])[-/](0[1-9]|[12][0-9]|3[01])\b`),
		layout:    "2006-01-02",
		normalize: func(m []string) string { return m[1] + "-" + m[2] + "-" + m[3] },
	},
	{
		// 15-03-2021, 15/03/2021
		re:        regexp.MustCompile(`\b(\d{1,2})[-/](0[1-9]|1[0-2])[-/](19\d{2}|20\d{2})\b`),
		layout:    "2-01-2006",
		normalize: func(m []string) string { return m[1] + "-" + m[2] + "-" + m[3] },
	},
}

// ResolveDate returns the first calendar date found in text. Patterns are
// tried in priority order; for each only the first textual match counts,
// and a match that is not a real date (31 February) falls through to the
// next pattern.
func ResolveDate(text string) (time.Time, bool) {
	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		d, err := time.Parse(p.layout, p.normalize(m))
		if err != nil {
			continue
		}
		return d, true
	}
	return time.Time{}, false
}
