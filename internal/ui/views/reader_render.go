package views

import (
	"fmt"
	"math"
	"path"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/justyntemme/webby-pager/internal/chapter"
	"github.com/justyntemme/webby-pager/internal/config"
	"github.com/justyntemme/webby-pager/internal/ui/styles"
	"github.com/justyntemme/webby-pager/pkg/models"
)

// View implements View
func (v *ReaderView) View() string {
	if v.book == nil {
		return styles.ErrorStyle.Render("No book selected")
	}
	if v.showTOC {
		return v.renderTOC()
	}
	if v.showBookmarks {
		return v.renderBookmarks()
	}

	var b strings.Builder
	b.WriteString(v.renderHeader() + "\n")

	var placeholder string
	switch {
	case v.err != nil:
		placeholder = styles.ErrorStyle.Render("Error: " + v.err.Error())
	case v.busy():
		placeholder = v.spinner.View() + styles.MutedText.Render(" Loading...")
	case v.current().IsEmpty():
		placeholder = styles.MutedText.Render("Nothing to show")
	}
	if placeholder != "" {
		b.WriteString(lipgloss.Place(v.width, v.textHeight(), lipgloss.Center, lipgloss.Center, placeholder))
	} else {
		b.WriteString(v.renderBody())
	}

	b.WriteString("\n" + v.renderFooter())
	return b.String()
}

// renderBody draws the rows of the current page or scroll window
func (v *ReaderView) renderBody() string {
	c := v.current()
	if c.IsManga() {
		return v.renderImage(c)
	}

	h := v.textHeight()
	rows := make([]string, h)

	var (
		lines []models.RenderLine
		top   float64
		inset float64
	)
	if v.mode.Paged() {
		r, ok := c.Render(v.page)
		if !ok {
			return strings.Join(rows, "\n")
		}
		lines, top, inset = r.Lines, r.YOffset, c.Spec.TopInset
	} else {
		top = v.scrollY
		lines = c.LinesBetween(top, top+float64(h))
	}

	pad := strings.Repeat(" ", max(0, (v.width-int(c.Spec.ContentWidth()))/2))
	hl, hasHL := v.highlight()
	searching := v.hasMatches()
	for _, l := range lines {
		row := int(math.Round(l.Y - top + inset))
		if row < 0 || row >= h {
			continue
		}
		text := l.Text
		switch {
		case searching:
			text = markLine(l, v.searchMarks(l))
		case hasHL:
			text = highlightLine(l, hl)
		}
		if c.Err != nil {
			text = styles.ChapterError.Render(text)
		}
		rows[row] = pad + text
	}
	return strings.Join(rows, "\n")
}

// highlightLine styles the part of l inside r
func highlightLine(l models.RenderLine, r models.TextRange) string {
	return markLine(l, []mark{{r: r, style: styles.Highlight}})
}

// renderImage shows which page of a manga chapter is current. Pages are
// listed, not drawn.
func (v *ReaderView) renderImage(c *chapter.Cache) string {
	n := c.PageCount()
	if n == 0 {
		return lipgloss.Place(v.width, v.textHeight(), lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render("This chapter has no images"))
	}
	name := path.Base(c.ImageURLs[v.image])
	box := styles.Dialog.Render(
		styles.DialogTitle.Render(fmt.Sprintf("Image %d of %d", v.image+1, n)) + "\n" +
			styles.BookTitle.Render(styles.TruncateText(name, max(10, v.width/2))) + "\n\n" +
			styles.Help.Render("←/→ turn pages"),
	)
	return lipgloss.Place(v.width, v.textHeight(), lipgloss.Center, lipgloss.Center, box)
}

// renderHeader renders the reader header with proper truncation
func (v *ReaderView) renderHeader() string {
	maxTitleWidth := max(10, v.width/3)
	title := styles.TruncateText(v.book.Title, maxTitleWidth)
	titlePart := styles.ReaderHeader.Render(" " + title + " ")

	chapters := v.chapters()
	chapterPart := ""
	if v.sess != nil && len(chapters) > 0 {
		i := v.sess.sw.Index()
		chapterTitle := styles.TruncateText(chapters[i].Title, 20)
		chapterPart = styles.Help.Render(fmt.Sprintf(" Ch %d/%d: %s ", i+1, len(chapters), chapterTitle))
	}

	chapterProgress := v.chapterProgress()
	bookProgress := v.bookProgress(chapterProgress)
	progressPart := styles.MutedText.Render("Ch:") + styles.ProgressBar(10, chapterProgress) +
		styles.MutedText.Render(" Book:") + styles.ProgressBar(10, bookProgress) +
		styles.ReaderProgress.Render(fmt.Sprintf(" %d%%", int(bookProgress*100)))

	return styles.Spread(titlePart+chapterPart, progressPart, v.width)
}

// chapterProgress is the fraction of the current chapter before the anchor
func (v *ReaderView) chapterProgress() float64 {
	c := v.current()
	switch {
	case c.IsEmpty():
		return 0
	case c.IsManga():
		return float64(v.image+1) / float64(max(1, c.PageCount()))
	case v.mode.Paged():
		return float64(v.page+1) / float64(max(1, c.PageCount()))
	}
	if maxY := v.maxScrollY(); maxY > 0 {
		return v.scrollY / maxY
	}
	return 1
}

// bookProgress weights each chapter equally
func (v *ReaderView) bookProgress(chapterProgress float64) float64 {
	n := len(v.chapters())
	if n == 0 || v.sess == nil {
		return 0
	}
	return (float64(v.sess.sw.Index()) + chapterProgress) / float64(n)
}

// renderFooter renders the reader footer with consistent styling
func (v *ReaderView) renderFooter() string {
	if v.find.editing {
		return styles.FooterBar.Width(v.width).Render(v.find.input.View() + "  " +
			styles.Help.Render("enter search • esc cancel"))
	}
	if v.statusMsg != "" {
		return styles.FooterBar.Width(v.width).Render(styles.SecondaryText.Render(v.statusMsg))
	}
	if c := v.current(); c.Err != nil {
		return styles.FooterBar.Width(v.width).Render(styles.ErrorStyle.Render("Chapter failed to load") +
			styles.Help.Render(" n/p to move on"))
	}
	if v.hasMatches() {
		return v.renderSearchStatus()
	}

	scaleStr := fmt.Sprintf("%.0f%%", v.config.GetTextScale()*100)
	readStr := "read"
	if v.readAlong {
		readStr = "stop"
	}
	help := []string{
		styles.HelpKey.Render("j/k") + styles.Help.Render(" move"),
		styles.HelpKey.Render("n/p") + styles.Help.Render(" chapter"),
		styles.HelpKey.Render("t") + styles.Help.Render(" toc"),
		styles.HelpKey.Render("/") + styles.Help.Render(" find"),
		styles.HelpKey.Render("b/B") + styles.Help.Render(" marks"),
		styles.HelpKey.Render("m") + styles.Help.Render(" "+v.mode.String()),
		styles.HelpKey.Render("+/-") + styles.Help.Render(" "+scaleStr),
		styles.HelpKey.Render("r") + styles.Help.Render(" "+readStr),
		styles.HelpKey.Render("q") + styles.Help.Render(" back"),
	}
	return styles.Spread(styles.FooterBar.Render(strings.Join(help, "  ")), v.pageIndicator(), v.width)
}

// pageIndicator shows dots in collection mode and a page count otherwise
func (v *ReaderView) pageIndicator() string {
	c := v.current()
	if c.IsEmpty() {
		return ""
	}
	n := c.PageCount()
	switch {
	case c.IsManga():
		return styles.MutedText.Render(fmt.Sprintf("%d/%d ", v.image+1, n))
	case v.mode == models.ReadModeCollection && n <= v.width/4:
		return v.dots.View() + " "
	case v.mode.Paged():
		return styles.MutedText.Render(fmt.Sprintf("%d/%d ", v.page+1, n))
	}
	return styles.MutedText.Render(fmt.Sprintf("%d%% ", int(v.chapterProgress()*100)))
}

// renderTOC renders the table of contents overlay
func (v *ReaderView) renderTOC() string {
	var b strings.Builder
	b.WriteString(styles.DialogTitle.Render("Table of Contents") + "\n\n")

	chapters := v.chapters()
	current := -1
	if v.sess != nil {
		current = v.sess.sw.Index()
	}

	maxVisible := max(1, v.height-8)
	offset := 0
	if v.tocCursor >= maxVisible {
		offset = v.tocCursor - maxVisible + 1
	}
	lineWidth := max(10, min(60, v.width-4)-10)

	for i := offset; i < min(offset+maxVisible, len(chapters)); i++ {
		line := styles.TruncateText(fmt.Sprintf("%d. %s", i+1, chapters[i].Title), lineWidth)
		switch {
		case i == v.tocCursor:
			b.WriteString(styles.ListItemSelected.Render("▸ "+line) + "\n")
		case i == current:
			b.WriteString(styles.BookAuthor.Render("  "+line+" (current)") + "\n")
		default:
			b.WriteString(styles.ListItem.Render("  "+line) + "\n")
		}
	}

	b.WriteString("\n" + styles.Help.Render("j/k navigate • enter select • esc close"))

	dialog := styles.Dialog.Width(min(60, v.width-4)).Render(b.String())
	return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, dialog)
}

// renderBookmarks renders the bookmarks overlay
func (v *ReaderView) renderBookmarks() string {
	var b strings.Builder
	b.WriteString(styles.DialogTitle.Render("Bookmarks") + "\n\n")

	bookmarks := v.bookmarks()
	if len(bookmarks) == 0 {
		b.WriteString(styles.MutedText.Render("No bookmarks for this book.\n\nPress B to add a bookmark."))
	} else {
		maxVisible := max(1, v.height-10)
		offset := 0
		if v.bookmarkCursor >= maxVisible {
			offset = v.bookmarkCursor - maxVisible + 1
		}
		for i := offset; i < min(offset+maxVisible, len(bookmarks)); i++ {
			line := bookmarkLabel(bookmarks[i])
			if i == v.bookmarkCursor {
				b.WriteString(styles.ListItemSelected.Render("▸ "+line) + "\n")
			} else {
				b.WriteString(styles.ListItem.Render("  "+line) + "\n")
			}
		}
	}

	b.WriteString("\n" + styles.Help.Render("j/k navigate • enter go • d delete • esc close"))

	dialog := styles.Dialog.Width(min(50, v.width-4)).Render(b.String())
	return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, dialog)
}

func bookmarkLabel(bm config.Bookmark) string {
	label := fmt.Sprintf("Ch %d", bm.ChapterIndex+1)
	if bm.ChapterTitle != "" {
		label += ": " + styles.TruncateText(bm.ChapterTitle, 20)
	}
	label = fmt.Sprintf("%s [¶%d]", label, bm.SentenceIndex+1)
	if !bm.CreatedAt.IsZero() {
		label += " " + styles.MutedText.Render(humanize.Time(bm.CreatedAt))
	}
	return label
}
