// Package paginate slices measured chapter text into screen pages around
// an anchor offset.
package paginate

import (
	"sort"

	"github.com/justyntemme/webby-pager/internal/layout"
	"github.com/justyntemme/webby-pager/pkg/models"
)

// epsilon absorbs float error when comparing accumulated line heights
const epsilon = 1e-9

// Document is the measured text a Paginate call reads
type Document interface {
	Len() int
	Lines() []layout.Line
	LineIndexAtOffset(offset int) int
	LineIndexAtY(y float64) int
	ParagraphStarts() []int
}

// Viewport is the page window in layout units
type Viewport struct {
	Height      float64
	TopInset    float64
	BottomInset float64
	Padding     float64
}

// ViewportFor derives the page window from layout settings
func ViewportFor(spec layout.Spec) Viewport {
	return Viewport{
		Height:      spec.ViewportHeight,
		TopInset:    spec.TopInset,
		BottomInset: spec.BottomInset,
		Padding:     spec.PagePadding,
	}
}

// Usable is the height a page's lines may occupy
func (v Viewport) Usable() float64 {
	return v.Height - v.TopInset - v.BottomInset - v.Padding
}

// Page is one screen of text
type Page struct {
	Range         models.TextRange
	YOffset       float64
	ContentHeight float64
	StartSentence int
}

// Result is a page list and the page holding the anchor
type Result struct {
	Pages           []Page
	AnchorPageIndex int
}

// Paginate slices doc into pages that cover it in both directions from
// anchor. Pages before the anchor line come first; AnchorPageIndex is
// their count. Paginate has no side effects and is safe to call
// concurrently on the same document.
func Paginate(doc Document, vp Viewport, anchor int) Result {
	lines := doc.Lines()
	if len(lines) == 0 || doc.Len() == 0 || vp.Height <= 0 {
		return Result{Pages: []Page{{}}}
	}

	anchor = max(0, min(anchor, doc.Len()-1))
	ai := doc.LineIndexAtOffset(anchor)
	if ai < 0 {
		return Result{Pages: []Page{{}}}
	}
	usable := vp.Usable()
	ps := doc.ParagraphStarts()

	backward := backwardPages(doc, lines, ai, usable, ps)
	forward := forwardPages(lines, ai, usable, ps)

	pages := make([]Page, 0, len(backward)+len(forward))
	pages = append(pages, backward...)
	pages = append(pages, forward...)
	return Result{Pages: pages, AnchorPageIndex: len(backward)}
}

// forwardPages fills pages downward from line i. A line taller than the
// window gets a page of its own.
func forwardPages(lines []layout.Line, i int, usable float64, ps []int) []Page {
	var pages []Page
	for i < len(lines) {
		top := lines[i].Y
		j := i
		for j+1 < len(lines) && lines[j+1].Bottom() <= top+usable+epsilon {
			j++
		}
		pages = append(pages, makePage(lines, i, j, ps))
		i = j + 1
	}
	return pages
}

// backwardPages slices pages upward ending just before line end. Each
// page starts at the first whole line at or below the probe point one
// window above the following page's top.
func backwardPages(doc Document, lines []layout.Line, end int, usable float64, ps []int) []Page {
	var pages []Page
	for end > 0 {
		probe := lines[end].Y - usable
		start := 0
		if probe > lines[0].Y+epsilon {
			start = doc.LineIndexAtY(probe)
			if lines[start].Y < probe-epsilon {
				start++
			}
		}
		if start >= end {
			start = end - 1
		}
		pages = append(pages, makePage(lines, start, end-1, ps))
		end = start
	}

	for l, r := 0, len(pages)-1; l < r; l, r = l+1, r-1 {
		pages[l], pages[r] = pages[r], pages[l]
	}
	return pages
}

func makePage(lines []layout.Line, first, last int, ps []int) Page {
	start := lines[first].Start
	return Page{
		Range:         models.TextRange{Location: start, Length: lines[last].End - start},
		YOffset:       lines[first].Y,
		ContentHeight: lines[last].Bottom() - lines[first].Y,
		StartSentence: SentenceAt(ps, start),
	}
}

// SentenceAt returns the last sentence whose start is at or before
// offset, or 0 when offset precedes every sentence.
func SentenceAt(paragraphStarts []int, offset int) int {
	i := sort.Search(len(paragraphStarts), func(i int) bool { return paragraphStarts[i] > offset })
	if i == 0 {
		return 0
	}
	return i - 1
}
