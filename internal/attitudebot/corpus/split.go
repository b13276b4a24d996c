// Package corpus turns a directory of archive exports into dated articles.
package corpus

import (
	"regexp"
	"strings"
)

// boundary is the line archive exports put after every article,
// e.g. "Document WSJ0000020210315eh3f0001x".
var boundary = regexp.MustCompile(`\nDocument [^\n]*\n`)

// SplitArticles splits plain text on document boundary lines. Spans are
// trimmed and empty spans dropped; text without a boundary yields a single
// span.
func SplitArticles(text string) []string {
	parts := boundary.Split(text, -1)
	articles := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			articles = append(articles, part)
		}
	}
	return articles
}
