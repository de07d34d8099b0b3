// Package position converts between the ways a reader can say where it
// is in a chapter: character offset, sentence, page and scroll height.
//
// The character offset is the common coordinate. Every other form is
// mapped to and from it against one built chapter.
package position

import (
	"sort"
	"strconv"
	"time"

	"github.com/justyntemme/webby-pager/internal/chapter"
	"github.com/justyntemme/webby-pager/internal/paginate"
	"github.com/justyntemme/webby-pager/pkg/models"
)

// Viewpoint is what the screen currently shows, in the terms of the
// active read mode
type Viewpoint struct {
	PageIndex  int
	ScrollY    float64
	ImageIndex int
}

// Mapper answers position queries for one chapter. For manga chapters a
// sentence, a page and an offset are all the image index.
type Mapper struct {
	cache *chapter.Cache
	mode  models.ReadMode
}

// New creates a mapper over c
func New(c *chapter.Cache, mode models.ReadMode) Mapper {
	if c == nil {
		c = chapter.Empty
	}
	return Mapper{cache: c, mode: mode}
}

// Cache returns the chapter the mapper reads
func (m Mapper) Cache() *chapter.Cache { return m.cache }

// Mode returns the read mode the mapper places positions for
func (m Mapper) Mode() models.ReadMode { return m.mode }

func (m Mapper) text() bool {
	return !m.cache.IsEmpty() && !m.cache.IsManga() && m.cache.Layout != nil
}

func (m Mapper) imageIndex(i int) int {
	return clamp(i, 0, len(m.cache.ImageURLs)-1)
}

// SentenceIndex returns the last sentence starting at or before offset
func (m Mapper) SentenceIndex(offset int) int {
	if m.cache.IsManga() {
		return m.imageIndex(offset)
	}
	if len(m.cache.ParagraphStarts) == 0 {
		return 0
	}
	return paginate.SentenceAt(m.cache.ParagraphStarts, offset)
}

// PageIndex returns the page whose range holds offset. An offset on a
// page boundary belongs to the page starting there. Offsets outside
// every page resolve to the nearest page.
func (m Mapper) PageIndex(offset int) int {
	if m.cache.IsManga() {
		return m.imageIndex(offset)
	}
	pages := m.cache.Pages
	if len(pages) == 0 {
		return 0
	}
	i := sort.Search(len(pages), func(i int) bool { return pages[i].Range.Location > offset }) - 1
	if i < 0 {
		return 0
	}
	if pages[i].Range.Contains(offset) || i == len(pages)-1 {
		return i
	}
	if offset-pages[i].Range.End() < pages[i+1].Range.Location-offset {
		return i
	}
	return i + 1
}

// CharOffset returns the offset of intra characters into sentence,
// skipping its indent. intra is clamped to the sentence.
func (m Mapper) CharOffset(sentence, intra int) int {
	if m.cache.IsManga() {
		return m.imageIndex(sentence)
	}
	ps := m.cache.ParagraphStarts
	if !m.text() || len(ps) == 0 {
		return 0
	}
	s := clamp(sentence, 0, len(ps)-1)
	n := m.cache.Layout.SentenceLen(s)
	return ps[s] + m.cache.Layout.IndentLen() + clamp(intra, 0, n)
}

// SentenceRange returns the characters of sentence without its indent
func (m Mapper) SentenceRange(sentence int) models.TextRange {
	ps := m.cache.ParagraphStarts
	if !m.text() || len(ps) == 0 {
		return models.TextRange{}
	}
	s := clamp(sentence, 0, len(ps)-1)
	return models.TextRange{
		Location: ps[s] + m.cache.Layout.IndentLen(),
		Length:   m.cache.Layout.SentenceLen(s),
	}
}

// TitleRange returns the chapter title's characters, if it has one
func (m Mapper) TitleRange() (models.TextRange, bool) {
	if !m.text() || m.cache.Layout.TitleLen() == 0 {
		return models.TextRange{}, false
	}
	return models.TextRange{Location: 0, Length: m.cache.Layout.TitleLen()}, true
}

// ScrollYToOffset returns the first offset of the line at y
func (m Mapper) ScrollYToOffset(y float64) int {
	if !m.text() {
		return 0
	}
	return m.cache.Layout.YToOffset(y)
}

// OffsetToScrollY returns the top of the line holding offset
func (m Mapper) OffsetToScrollY(offset int) float64 {
	if !m.text() {
		return 0
	}
	return m.cache.Layout.OffsetToY(offset)
}

// PageOffset returns the first offset of page
func (m Mapper) PageOffset(page int) int {
	if m.cache.IsManga() {
		return m.imageIndex(page)
	}
	pages := m.cache.Pages
	if len(pages) == 0 {
		return 0
	}
	return pages[clamp(page, 0, len(pages)-1)].Range.Location
}

// OffsetAt returns the offset at the top of what vp shows
func (m Mapper) OffsetAt(vp Viewpoint) int {
	switch {
	case m.cache.IsManga():
		return m.imageIndex(vp.ImageIndex)
	case m.mode.Paged():
		return m.PageOffset(vp.PageIndex)
	default:
		return m.ScrollYToOffset(vp.ScrollY)
	}
}

// Viewpoint places offset on screen in every mode's terms
func (m Mapper) Viewpoint(offset int) Viewpoint {
	if m.cache.IsManga() {
		i := m.imageIndex(offset)
		return Viewpoint{PageIndex: i, ImageIndex: i}
	}
	return Viewpoint{
		PageIndex: m.PageIndex(offset),
		ScrollY:   m.OffsetToScrollY(offset),
	}
}

// Position describes offset as a reading position
func (m Mapper) Position(bookID string, offset int) models.ReadingPosition {
	pos := models.ReadingPosition{
		BookID:       bookID,
		ChapterIndex: m.cache.ChapterIndex,
		Chapter:      strconv.Itoa(max(m.cache.ChapterIndex, 0)),
		UpdatedAt:    time.Now(),
	}
	if m.cache.IsEmpty() {
		pos.ChapterIndex = 0
		return pos
	}
	if m.cache.IsManga() {
		i := m.imageIndex(offset)
		pos.SentenceIndex = i
		pos.CharOffset = i
		if n := len(m.cache.ImageURLs); n > 0 {
			pos.Position = float64(i) / float64(n)
		}
		return pos
	}

	n := m.cache.Len()
	offset = clamp(offset, 0, n)
	tts := m.ToTTS(offset)
	pos.SentenceIndex = tts.SentenceIndex
	pos.SentenceOffset = tts.SentenceOffset
	pos.CharOffset = offset
	if n > 0 {
		pos.Position = float64(offset) / float64(n)
	}
	return pos
}

// Capture returns the reading position for what vp shows
func (m Mapper) Capture(bookID string, vp Viewpoint) models.ReadingPosition {
	return m.Position(bookID, m.OffsetAt(vp))
}

// Locate maps a saved position back to an offset. Sentence coordinates
// win over the raw offset, which wins over the chapter fraction.
func (m Mapper) Locate(pos models.ReadingPosition) int {
	switch {
	case pos.SentenceIndex > 0 || pos.SentenceOffset > 0:
		return m.CharOffset(pos.SentenceIndex, pos.SentenceOffset)
	case pos.CharOffset > 0:
		if m.cache.IsManga() {
			return m.imageIndex(pos.CharOffset)
		}
		return clamp(pos.CharOffset, 0, m.cache.Len())
	case pos.Position > 0:
		if m.cache.IsManga() {
			return m.imageIndex(int(pos.Position * float64(len(m.cache.ImageURLs))))
		}
		return clamp(int(pos.Position*float64(m.cache.Len())), 0, m.cache.Len())
	}
	return 0
}

// ToTTS returns the speech position for offset. Offsets before the
// first sentence are in the title.
func (m Mapper) ToTTS(offset int) models.TTSPosition {
	p := models.TTSPosition{ChapterIndex: max(m.cache.ChapterIndex, 0)}
	if m.cache.IsManga() {
		p.SentenceIndex = m.imageIndex(offset)
		return p
	}
	ps := m.cache.ParagraphStarts
	if !m.text() || len(ps) == 0 {
		p.IsReadingTitle = m.text() && m.cache.Layout.TitleLen() > 0
		return p
	}
	if offset < ps[0] {
		p.IsReadingTitle = true
		return p
	}
	s := m.SentenceIndex(offset)
	p.SentenceIndex = s
	p.SentenceOffset = clamp(offset-ps[s]-m.cache.Layout.IndentLen(), 0, m.cache.Layout.SentenceLen(s))
	return p
}

// FromTTS returns the offset a speech position points at
func (m Mapper) FromTTS(p models.TTSPosition) int {
	if p.IsReadingTitle && !m.cache.IsManga() {
		return 0
	}
	return m.CharOffset(p.SentenceIndex, p.SentenceOffset)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
