package views

import (
	"context"
	"errors"
	"math"

	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/justyntemme/webby-pager/internal/chapter"
	"github.com/justyntemme/webby-pager/internal/config"
	"github.com/justyntemme/webby-pager/internal/layout"
	"github.com/justyntemme/webby-pager/internal/position"
	"github.com/justyntemme/webby-pager/internal/switcher"
	"github.com/justyntemme/webby-pager/pkg/models"
)

var errNoChapters = errors.New("book has no chapters")

// ReaderView displays book content a page or a scroll position at a time
type ReaderView struct {
	source Source
	config *config.Config
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc

	// Current book
	book *models.Book
	sess *session

	// Where the reader is. anchor is the character offset the view is
	// pinned to; page, scrollY and image follow it for the active mode.
	mode    models.ReadMode
	anchor  int
	page    int
	scrollY float64
	image   int

	// Placement for the next chapter that finishes loading
	landing switcher.Landing
	pending *models.ReadingPosition

	// Read-along cursor
	readAlong bool
	tts       models.TTSPosition

	// State
	opening   bool
	err       error
	statusMsg string
	showTOC   bool
	tocCursor int

	// Bookmarks
	showBookmarks  bool
	bookmarkCursor int

	// In-chapter search
	find finder

	spinner spinner.Model
	dots    paginator.Model

	// Dimensions
	width  int
	height int
}

// NewReaderView creates a new reader view
func NewReaderView(source Source, cfg *config.Config, log *zap.Logger) *ReaderView {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	dots := paginator.New()
	dots.Type = paginator.Dots

	return &ReaderView{
		source:  source,
		config:  cfg,
		log:     log.Named("reader"),
		ctx:     ctx,
		cancel:  cancel,
		mode:    cfg.Mode(),
		find:    newFinder(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		dots:    dots,
		width:   80,
		height:  24,
	}
}

// SetBook sets the current book to read
func (v *ReaderView) SetBook(book models.Book) {
	v.Leave()
	v.book = &book
	v.anchor = 0
	v.page = 0
	v.scrollY = 0
	v.image = 0
	v.pending = nil
	v.readAlong = false
	v.err = nil
	v.statusMsg = ""
	v.showTOC = false
	v.showBookmarks = false
	v.find.clear()
	v.find.editing = false
}

// Leave saves the position and stops loading the current book
func (v *ReaderView) Leave() {
	v.savePosition()
	v.closeSession()
}

// Close leaves the book and releases the view
func (v *ReaderView) Close() {
	v.Leave()
	v.cancel()
}

// Init implements View
func (v *ReaderView) Init() tea.Cmd {
	if v.book == nil || v.sess != nil {
		return nil
	}
	v.opening = true
	return tea.Batch(v.spinner.Tick, v.openBook())
}

// Update implements View
func (v *ReaderView) Update(msg tea.Msg) (View, tea.Cmd) {
	view, cmd := v.update(msg)
	v.syncDots()
	return view, cmd
}

// update dispatches messages to specialized handlers
func (v *ReaderView) update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		v.statusMsg = "" // Clear transient messages on any key
		return v.handleKeyMsg(msg)
	case bookOpenedMsg:
		return v.handleBookOpened(msg)
	case switchEventMsg:
		return v.handleSwitchEvent(msg)
	case readAlongTickMsg:
		if !v.readAlong || msg.sess != v.sess {
			return v, nil
		}
		return v, tea.Batch(v.advanceReadAlong(), v.readAlongTick())
	case spinner.TickMsg:
		if !v.busy() {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	}
	return v, nil
}

// handleKeyMsg dispatches key messages to mode-specific handlers
func (v *ReaderView) handleKeyMsg(msg tea.KeyMsg) (View, tea.Cmd) {
	if v.find.editing {
		return v.updateSearchInput(msg)
	}
	if v.showTOC {
		return v.updateTOC(msg)
	}
	if v.showBookmarks {
		return v.updateBookmarks(msg)
	}
	return v.handleReaderKeyMsg(msg)
}

// handleReaderKeyMsg handles key presses in the main reader view
func (v *ReaderView) handleReaderKeyMsg(msg tea.KeyMsg) (View, tea.Cmd) {
	if v.sess == nil {
		return v, nil
	}
	wasBusy := v.busy()
	var cmd tea.Cmd
	switch msg.String() {
	case "j", "down":
		cmd = v.step(1)
	case "k", "up":
		cmd = v.step(-1)
	case " ", "pgdown", "ctrl+d", "right":
		cmd = v.nextPage()
	case "pgup", "ctrl+u", "left":
		cmd = v.prevPage()
	case "g", "home":
		v.place(0)
	case "G", "end":
		v.placeEnd()
	case "n":
		if v.hasMatches() {
			v.stepMatch(1)
			break
		}
		cmd = v.crossChapter(1, switcher.LandStart)
	case "N":
		if v.hasMatches() {
			v.stepMatch(-1)
		}
	case "l":
		cmd = v.crossChapter(1, switcher.LandStart)
	case "p", "h":
		cmd = v.crossChapter(-1, switcher.LandStart)
	case "/":
		cmd = v.startSearch()
	case "esc":
		v.find.clear()
	case "t":
		v.showTOC = true
		v.tocCursor = v.sess.sw.Index()
	case "m":
		v.cycleMode()
	case "+", "=":
		v.adjustTextScale(config.TextScaleStep)
	case "-", "_":
		v.adjustTextScale(-config.TextScaleStep)
	case "0":
		v.setTextScale(config.DefaultTextScale)
	case "r":
		cmd = v.toggleReadAlong()
	case "B":
		v.addBookmark()
	case "b":
		v.showBookmarks = true
		v.bookmarkCursor = 0
	}
	if !wasBusy && v.busy() {
		cmd = tea.Batch(cmd, v.spinner.Tick)
	}
	return v, cmd
}

// updateTOC handles TOC navigation
func (v *ReaderView) updateTOC(msg tea.KeyMsg) (View, tea.Cmd) {
	chapters := v.chapters()
	switch msg.String() {
	case "esc", "t", "q":
		v.showTOC = false
	case "j", "down":
		if v.tocCursor < len(chapters)-1 {
			v.tocCursor++
		}
	case "k", "up":
		if v.tocCursor > 0 {
			v.tocCursor--
		}
	case "g", "home":
		v.tocCursor = 0
	case "G", "end":
		v.tocCursor = max(0, len(chapters)-1)
	case "enter":
		v.showTOC = false
		return v, v.jumpTo(v.tocCursor, 0, nil)
	}
	return v, nil
}

// updateBookmarks handles bookmarks list navigation
func (v *ReaderView) updateBookmarks(msg tea.KeyMsg) (View, tea.Cmd) {
	bookmarks := v.bookmarks()

	switch msg.String() {
	case "esc", "b", "q":
		v.showBookmarks = false
	case "j", "down":
		if v.bookmarkCursor < len(bookmarks)-1 {
			v.bookmarkCursor++
		}
	case "k", "up":
		if v.bookmarkCursor > 0 {
			v.bookmarkCursor--
		}
	case "g", "home":
		v.bookmarkCursor = 0
	case "G", "end":
		v.bookmarkCursor = max(0, len(bookmarks)-1)
	case "enter":
		if v.bookmarkCursor < len(bookmarks) {
			v.showBookmarks = false
			return v, v.goToBookmark(bookmarks[v.bookmarkCursor])
		}
	case "d", "x":
		if v.bookmarkCursor < len(bookmarks) {
			if err := v.config.DeleteBookmark(bookmarks[v.bookmarkCursor].ID); err != nil {
				v.statusMsg = "Failed to delete bookmark"
			}
			if v.bookmarkCursor >= len(bookmarks)-1 && v.bookmarkCursor > 0 {
				v.bookmarkCursor--
			}
		}
	}
	return v, nil
}

// SetSize implements View
func (v *ReaderView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.relayout()
	v.syncDots()
}

// CapturingInput implements InputCapturer
func (v *ReaderView) CapturingInput() bool {
	return v.showTOC || v.showBookmarks || v.find.editing
}

// busy reports whether the view is waiting for a chapter
func (v *ReaderView) busy() bool {
	return v.opening || (v.sess != nil && v.sess.sw.Loading())
}

// current returns the chapter on screen
func (v *ReaderView) current() *chapter.Cache {
	if v.sess == nil {
		return chapter.Empty
	}
	return v.sess.sw.Current()
}

func (v *ReaderView) chapters() []models.Chapter {
	if v.sess == nil {
		return nil
	}
	return v.sess.sw.Chapters()
}

func (v *ReaderView) mapper() position.Mapper {
	return position.New(v.current(), v.mode)
}

// syncDots keeps the collection-mode dots on the current page
func (v *ReaderView) syncDots() {
	n := v.current().PageCount()
	if n == 0 {
		return
	}
	v.dots.SetTotalPages(n)
	v.dots.Page = max(0, min(v.page, n-1))
}

// textHeight is the number of rows the page area has
func (v *ReaderView) textHeight() int {
	return max(v.height-3, 1)
}

// spec is the layout for the current window and text scale
func (v *ReaderView) spec() layout.Spec {
	return v.config.LayoutSpec(v.width, v.textHeight())
}

func (v *ReaderView) viewpoint() position.Viewpoint {
	return position.Viewpoint{PageIndex: v.page, ScrollY: v.scrollY, ImageIndex: v.image}
}

// maxScrollY is the lowest scroll position that still fills the screen
func (v *ReaderView) maxScrollY() float64 {
	c := v.current()
	if c.IsEmpty() || c.Layout == nil {
		return 0
	}
	return math.Max(0, c.Layout.Height()-float64(v.textHeight()))
}

// place pins the view to offset in every mode's terms
func (v *ReaderView) place(offset int) {
	m := v.mapper()
	c := m.Cache()
	if !c.IsManga() {
		offset = max(0, min(offset, c.Len()))
	}
	vp := m.Viewpoint(offset)
	v.anchor = offset
	v.page = vp.PageIndex
	v.image = vp.ImageIndex
	v.scrollY = math.Min(vp.ScrollY, v.maxScrollY())
}

// placeEnd shows the end of the chapter
func (v *ReaderView) placeEnd() {
	c := v.current()
	m := v.mapper()
	switch {
	case c.IsEmpty():
		return
	case c.IsManga():
		v.image = max(0, c.PageCount()-1)
		v.page = v.image
		v.anchor = v.image
	case v.mode.Paged():
		v.page = max(0, c.PageCount()-1)
		v.anchor = m.PageOffset(v.page)
		v.scrollY = math.Min(m.OffsetToScrollY(v.anchor), v.maxScrollY())
	default:
		v.scrollY = v.maxScrollY()
		v.anchor = m.ScrollYToOffset(v.scrollY)
		v.page = m.PageIndex(v.anchor)
	}
}

// land places the view in a chapter that was just installed
func (v *ReaderView) land() {
	defer v.syncReadAlong()
	if p := v.pending; p != nil {
		v.pending = nil
		v.place(v.mapper().Locate(*p))
		return
	}
	switch v.landing {
	case switcher.LandEnd:
		v.placeEnd()
	case switcher.LandAnchor:
		page := v.sess.sw.LandingPage(switcher.LandAnchor)
		v.place(v.mapper().PageOffset(page))
	default:
		v.place(0)
	}
}

// syncAnchor re-reads the anchor from what the screen shows
func (v *ReaderView) syncAnchor() {
	v.anchor = v.mapper().OffsetAt(v.viewpoint())
}

// step moves one line in scroll mode and one page otherwise
func (v *ReaderView) step(delta int) tea.Cmd {
	c := v.current()
	if c.IsManga() || v.mode.Paged() {
		if delta > 0 {
			return v.nextPage()
		}
		return v.prevPage()
	}
	return v.scrollBy(float64(delta) * c.Spec.LineHeight())
}

// scrollBy moves the scroll position, crossing into the neighbouring
// chapter when already at the edge
func (v *ReaderView) scrollBy(dy float64) tea.Cmd {
	maxY := v.maxScrollY()
	switch {
	case dy > 0 && v.scrollY >= maxY:
		return v.crossChapter(1, switcher.LandStart)
	case dy < 0 && v.scrollY <= 0:
		return v.crossChapter(-1, switcher.LandEnd)
	}
	v.scrollY = math.Max(0, math.Min(v.scrollY+dy, maxY))
	v.syncAnchor()
	v.page = v.mapper().PageIndex(v.anchor)
	return nil
}

// nextPage turns forward a screen, crossing chapters at the end
func (v *ReaderView) nextPage() tea.Cmd {
	c := v.current()
	switch {
	case c.IsEmpty():
		return nil
	case c.IsManga():
		if v.image < c.PageCount()-1 {
			v.image++
			v.syncAnchor()
			return nil
		}
	case v.mode.Paged():
		if v.page < c.PageCount()-1 {
			v.page++
			v.syncAnchor()
			return nil
		}
	default:
		if v.scrollY < v.maxScrollY() {
			return v.scrollBy(v.pageStep(c))
		}
	}
	return v.crossChapter(1, switcher.LandStart)
}

// prevPage turns back a screen, crossing chapters at the start
func (v *ReaderView) prevPage() tea.Cmd {
	c := v.current()
	switch {
	case c.IsEmpty():
		return nil
	case c.IsManga():
		if v.image > 0 {
			v.image--
			v.syncAnchor()
			return nil
		}
	case v.mode.Paged():
		if v.page > 0 {
			v.page--
			v.syncAnchor()
			return nil
		}
	default:
		if v.scrollY > 0 {
			return v.scrollBy(-v.pageStep(c))
		}
	}
	return v.crossChapter(-1, switcher.LandEnd)
}

// pageStep scrolls a screen less two lines of overlap
func (v *ReaderView) pageStep(c *chapter.Cache) float64 {
	lh := c.Spec.LineHeight()
	return math.Max(lh, float64(v.textHeight())-2*lh)
}

// crossChapter moves to the adjacent chapter. land overrides where a
// backward move lands; forward moves always start at the top.
func (v *ReaderView) crossChapter(delta int, land switcher.Landing) tea.Cmd {
	landing, err := v.sess.sw.Switch(v.sess.ctx, delta)
	switch {
	case errors.Is(err, switcher.ErrNoChapter):
		if delta > 0 {
			v.statusMsg = "End of book"
		} else {
			v.statusMsg = "Start of book"
		}
		v.readAlong = false
		return nil
	case errors.Is(err, switcher.ErrSwitchInProgress), errors.Is(err, switcher.ErrCoolingDown):
		return nil
	case err != nil:
		v.statusMsg = err.Error()
		return nil
	}
	if delta < 0 {
		landing = land
	}
	v.landing = landing
	v.pending = nil
	if !v.sess.sw.Loading() {
		v.land()
	}
	return nil
}

// jumpTo loads chapter index, landing on pos when given
func (v *ReaderView) jumpTo(index, anchor int, pos *models.ReadingPosition) tea.Cmd {
	if err := v.sess.sw.JumpTo(v.sess.ctx, index, anchor); err != nil {
		v.statusMsg = err.Error()
		return nil
	}
	v.landing = switcher.LandStart
	v.pending = pos
	return v.spinner.Tick
}

// cycleMode switches to the next read mode keeping the anchor in view
func (v *ReaderView) cycleMode() {
	v.mode = v.mode.Next()
	if err := v.config.SetReadMode(v.mode); err != nil {
		v.log.Warn("save read mode", zap.Error(err))
	}
	v.place(v.anchor)
}

// adjustTextScale changes text scale by delta
func (v *ReaderView) adjustTextScale(delta float64) {
	v.setTextScale(v.config.GetTextScale() + delta)
}

// setTextScale stores the scale and re-paginates around the anchor
func (v *ReaderView) setTextScale(scale float64) {
	if err := v.config.SetTextScale(scale); err != nil {
		v.log.Warn("save text scale", zap.Error(err))
	}
	v.relayout()
}

// relayout re-paginates every held chapter for the current window. The
// new pages arrive as a switch event; until then the old ones stay up.
func (v *ReaderView) relayout() {
	if v.sess == nil {
		return
	}
	spec := v.spec()
	if spec == v.sess.sw.Spec() {
		return
	}
	v.sess.sw.Relayout(v.sess.ctx, spec, v.anchor)
}

// toggleReadAlong starts or stops the read-along cursor
func (v *ReaderView) toggleReadAlong() tea.Cmd {
	v.readAlong = !v.readAlong
	if !v.readAlong {
		return nil
	}
	v.tts = v.mapper().ToTTS(v.anchor)
	v.showSentence()
	return v.readAlongTick()
}

// syncReadAlong restarts the cursor where a new chapter landed
func (v *ReaderView) syncReadAlong() {
	if v.readAlong {
		v.tts = v.mapper().ToTTS(v.anchor)
	}
}

// advanceReadAlong moves the cursor to the next sentence, turning pages
// and chapters as needed
func (v *ReaderView) advanceReadAlong() tea.Cmd {
	if v.sess == nil || v.sess.sw.Loading() {
		return nil
	}
	c := v.current()
	if c.IsEmpty() {
		return nil
	}
	next := v.tts
	switch {
	case next.ChapterIndex != c.ChapterIndex:
		next = v.mapper().ToTTS(v.anchor)
	case next.IsReadingTitle:
		next.IsReadingTitle = false
		next.SentenceIndex = 0
	default:
		next.SentenceIndex++
	}
	next.SentenceOffset = 0

	if next.SentenceIndex >= c.SentenceCount() {
		return v.crossChapter(1, switcher.LandStart)
	}
	v.tts = next
	v.showSentence()
	return nil
}

// showSentence brings the read-along sentence on screen
func (v *ReaderView) showSentence() {
	m := v.mapper()
	c := m.Cache()
	off := m.FromTTS(v.tts)
	v.anchor = off
	switch {
	case c.IsManga():
		v.image = m.SentenceIndex(off)
		v.page = v.image
	case v.mode.Paged():
		v.page = m.PageIndex(off)
	default:
		y := m.OffsetToScrollY(off)
		bottom := v.scrollY + float64(v.textHeight()) - c.Spec.LineHeight()
		if y < v.scrollY || y > bottom {
			v.scrollY = math.Min(y, v.maxScrollY())
		}
	}
}

// highlight returns the range the read-along cursor covers
func (v *ReaderView) highlight() (models.TextRange, bool) {
	if !v.readAlong {
		return models.TextRange{}, false
	}
	m := v.mapper()
	if m.Cache().IsManga() {
		return models.TextRange{}, false
	}
	if v.tts.IsReadingTitle {
		return m.TitleRange()
	}
	return m.SentenceRange(v.tts.SentenceIndex), true
}

// addBookmark adds a bookmark at the current position
func (v *ReaderView) addBookmark() {
	c := v.current()
	if v.book == nil || c.IsEmpty() || c.Err != nil {
		return
	}
	tts := v.mapper().ToTTS(v.anchor)
	err := v.config.AddBookmark(config.Bookmark{
		BookID:        v.book.ID,
		BookTitle:     v.book.Title,
		ChapterIndex:  c.ChapterIndex,
		ChapterTitle:  c.Title,
		CharOffset:    v.anchor,
		SentenceIndex: tts.SentenceIndex,
	})
	if err != nil {
		v.statusMsg = "Failed to add bookmark"
	} else {
		v.statusMsg = "Bookmark added"
	}
}

// bookmarks returns bookmarks for the current book
func (v *ReaderView) bookmarks() []config.Bookmark {
	if v.book == nil {
		return nil
	}
	return v.config.GetBookmarksForBook(v.book.ID)
}

// goToBookmark navigates to a bookmark
func (v *ReaderView) goToBookmark(bm config.Bookmark) tea.Cmd {
	if v.sess == nil {
		return nil
	}
	if bm.ChapterIndex == v.sess.sw.Index() && !v.sess.sw.Loading() && !v.current().IsEmpty() {
		v.place(bm.CharOffset)
		v.syncReadAlong()
		return nil
	}
	pos := &models.ReadingPosition{BookID: bm.BookID, ChapterIndex: bm.ChapterIndex, CharOffset: bm.CharOffset}
	return v.jumpTo(bm.ChapterIndex, bm.CharOffset, pos)
}
