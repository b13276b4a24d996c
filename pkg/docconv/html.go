package docconv

import (
	"strings"

	"golang.org/x/net/html"
)

var htmlSkipTags = map[string]bool{
	"script": true, "style": true, "nav": true, "footer": true,
	"noscript": true, "svg": true, "iframe": true, "head": true,
}

// HTMLToText converts an HTML archive export to plain text. Block elements
// become line breaks so that boundary lines such as "Document ABC123"
// stay on a line of their own.
func HTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	var sb strings.Builder
	extractTextFromNode(doc, &sb)
	return strings.TrimSpace(sb.String())
}

func extractTextFromNode(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode {
		if htmlSkipTags[n.Data] {
			return
		}
		switch n.Data {
		case "li":
			sb.WriteString("\n- ")
		case "br", "p", "div", "tr", "h1", "h2", "h3", "h4", "h5", "h6", "article", "section":
			sb.WriteString("\n")
		}
	}

	if n.Type == html.TextNode {
		text := strings.Join(strings.Fields(n.Data), " ")
		if text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractTextFromNode(c, sb)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "p", "div", "tr", "h1", "h2", "h3", "h4", "h5", "h6", "li", "article", "section":
			sb.WriteString("\n")
		}
	}
}
