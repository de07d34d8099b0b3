package localbook

import (
	"fmt"
	"io"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/justyntemme/webby-pager/internal/content"
	"github.com/justyntemme/webby-pager/pkg/models"
)

// readEPUB loads every spine document that has text as a chapter
func (b *Book) readEPUB(path string) error {
	rc, err := epub.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return fmt.Errorf("no rootfiles found in epub")
	}
	book := rc.Rootfiles[0]
	if t := strings.TrimSpace(book.Metadata.Title); t != "" {
		b.info.Title = t
	}
	b.info.Author = strings.TrimSpace(book.Metadata.Creator)

	for i, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		r, err := ref.Item.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			continue
		}

		raw := string(data)
		paragraphs, err := content.HTMLParagraphs(raw)
		if err != nil || len(paragraphs) == 0 {
			continue
		}
		title := documentTitle(raw)
		if title == "" {
			title = fmt.Sprintf("Section %d", i+1)
		}
		b.sections = append(b.sections, section{
			title:       title,
			href:        ref.Item.HREF,
			content:     raw,
			contentType: models.ContentTypeBook,
			format:      models.FormatHTML,
		})
	}
	return nil
}

// documentTitle returns the first heading of an xhtml document, falling
// back to its <title>
func documentTitle(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return ""
	}
	var heading, title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if heading != "" {
			return
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.H1, atom.H2, atom.H3:
				heading = nodeText(n)
				return
			case atom.Title:
				if title == "" {
					title = nodeText(n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if heading != "" {
		return heading
	}
	return title
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
