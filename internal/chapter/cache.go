// Package chapter builds and holds ready-to-render chapters.
package chapter

import (
	"math"
	"strconv"

	"github.com/justyntemme/webby-pager/internal/layout"
	"github.com/justyntemme/webby-pager/internal/paginate"
	"github.com/justyntemme/webby-pager/internal/textmodel"
	"github.com/justyntemme/webby-pager/pkg/models"
)

// AnchorEnd paginates so the anchor page is the chapter's last page
const AnchorEnd = math.MaxInt

// Cache is one fully built chapter. Exactly one of the text payload
// (Model, Layout, Pages) or the manga payload (ImageURLs) is set. A Cache
// is never modified after it is built.
type Cache struct {
	ChapterIndex int
	ChapterKey   string
	Title        string
	ContentType  string
	Format       string
	RawContent   string

	Model           *textmodel.Model
	Layout          *textmodel.Snapshot
	Pages           []paginate.Page
	AnchorPageIndex int
	ParagraphStarts []int
	Spec            layout.Spec

	ImageURLs []string

	// Err is set on placeholder chapters whose body is an error message
	Err error
}

// Empty marks a slot that holds no chapter yet
var Empty = &Cache{ChapterIndex: -1}

// IsEmpty reports whether c is the empty sentinel or nil
func (c *Cache) IsEmpty() bool {
	return c == nil || c.ChapterIndex < 0
}

// IsManga reports whether the chapter is an image sequence
func (c *Cache) IsManga() bool {
	return c != nil && c.ContentType == models.ContentTypeComic
}

// Matches reports whether c was built for the given chapter identity
func (c *Cache) Matches(index int, key string) bool {
	return !c.IsEmpty() && c.ChapterIndex == index && c.ChapterKey == key
}

// PageCount returns the number of pages, or images for manga chapters
func (c *Cache) PageCount() int {
	switch {
	case c.IsEmpty():
		return 0
	case c.IsManga():
		return len(c.ImageURLs)
	default:
		return len(c.Pages)
	}
}

// Len returns the chapter's character length
func (c *Cache) Len() int {
	if c.IsEmpty() || c.Layout == nil {
		return 0
	}
	return c.Layout.Len()
}

// SentenceCount returns the number of sentences, or images for manga
func (c *Cache) SentenceCount() int {
	switch {
	case c.IsEmpty():
		return 0
	case c.IsManga():
		return len(c.ImageURLs)
	default:
		return len(c.ParagraphStarts)
	}
}

// Render returns the view data for page i
func (c *Cache) Render(i int) (models.PageRender, bool) {
	if c.IsEmpty() || c.IsManga() || i < 0 || i >= len(c.Pages) {
		return models.PageRender{}, false
	}
	p := c.Pages[i]
	r := models.PageRender{
		Range:         p.Range,
		YOffset:       p.YOffset,
		PageHeight:    p.ContentHeight,
		StartSentence: p.StartSentence,
	}
	r.Lines = c.LinesBetween(p.YOffset, p.YOffset+p.ContentHeight)
	return r, true
}

// LinesBetween returns the rendered lines whose top lies in [top, bottom)
func (c *Cache) LinesBetween(top, bottom float64) []models.RenderLine {
	if c.IsEmpty() || c.Layout == nil {
		return nil
	}
	lines := c.Layout.Lines()
	i := c.Layout.LineIndexAtY(top)
	if i < 0 {
		return nil
	}
	var out []models.RenderLine
	for ; i < len(lines) && lines[i].Y < bottom; i++ {
		l := lines[i]
		end := l.End
		if end > l.Start && c.Layout.Substring(end-1, end) == "\n" {
			end--
		}
		out = append(out, models.RenderLine{
			Text:  c.Layout.Substring(l.Start, end),
			Start: l.Start,
			End:   l.End,
			Y:     l.Y,
		})
	}
	return out
}

// Source returns the inputs the cache was built from
func (c *Cache) Source() Source {
	return Source{
		Index:       c.ChapterIndex,
		Key:         c.ChapterKey,
		Title:       c.Title,
		Raw:         c.RawContent,
		ContentType: c.ContentType,
		Format:      c.Format,
	}
}

// Source is a fetched chapter body plus its identity
type Source struct {
	Index       int
	Key         string
	Title       string
	Raw         string
	ContentType string
	Format      string
}

// Key returns the identity of a chapter within a book
func Key(bookID string, ch models.Chapter) string {
	if ch.Href != "" {
		return bookID + "/" + ch.Href
	}
	if ch.ID != "" {
		return bookID + "/" + ch.ID
	}
	return bookID + "/#" + strconv.Itoa(ch.Index)
}
