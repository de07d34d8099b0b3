package content

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// HTMLParagraphs extracts block-level text from an HTML chapter body
func HTMLParagraphs(raw string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(strings.Map(func(r rune) rune {
				if r == '\n' || r == '\r' || r == '\t' {
					return ' '
				}
				return r
			}, n.Data))
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "head", "nav":
				return
			case "br":
				b.WriteByte('\n')
				return
			}
		}

		block := n.Type == html.ElementNode && isBlock(n.Data)
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte('\n')
		}
	}
	walk(doc)

	var out []string
	for _, p := range SplitParagraphs(b.String()) {
		out = append(out, collapseSpace(p))
	}
	return out, nil
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "blockquote", "pre", "section", "article",
		"h1", "h2", "h3", "h4", "h5", "h6", "tr", "dt", "dd", "figcaption", "hr":
		return true
	}
	return false
}

// collapseSpace folds runs of ASCII whitespace to one space
func collapseSpace(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '\f'
	}), " ")
}
