package views

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justyntemme/webby-pager/internal/chapter"
	"github.com/justyntemme/webby-pager/internal/ui/styles"
	"github.com/justyntemme/webby-pager/pkg/models"
)

// finder is the in-chapter search. Matches are character offsets into
// the text of the chapter named by key, so they survive relayouts.
type finder struct {
	input   textinput.Model
	editing bool
	query   string
	key     string
	matches []models.TextRange
	cur     int
}

func newFinder() finder {
	in := textinput.New()
	in.Prompt = "/"
	in.Placeholder = "search chapter"
	in.CharLimit = 100
	return finder{input: in}
}

// active reports whether f holds results for c
func (f *finder) active(c *chapter.Cache) bool {
	return f.query != "" && !c.IsEmpty() && f.key == c.ChapterKey
}

func (f *finder) clear() {
	f.query, f.key, f.matches, f.cur = "", "", nil, 0
}

// findAll returns the case-insensitive, non-overlapping matches of query
// in text
func findAll(text, query string) []models.TextRange {
	hay, needle := fold(text), fold(query)
	if len(needle) == 0 {
		return nil
	}
	var out []models.TextRange
	for i := 0; i+len(needle) <= len(hay); {
		if slices.Equal(hay[i:i+len(needle)], needle) {
			out = append(out, models.TextRange{Location: i, Length: len(needle)})
			i += len(needle)
			continue
		}
		i++
	}
	return out
}

// fold lower-cases s rune by rune so offsets stay aligned with s
func fold(s string) []rune {
	r := []rune(s)
	for i, c := range r {
		r[i] = unicode.ToLower(c)
	}
	return r
}

// startSearch opens the search prompt on the last query
func (v *ReaderView) startSearch() tea.Cmd {
	v.find.editing = true
	v.find.input.SetValue(v.find.query)
	v.find.input.CursorEnd()
	return v.find.input.Focus()
}

// updateSearchInput handles keys while the prompt is open
func (v *ReaderView) updateSearchInput(msg tea.KeyMsg) (View, tea.Cmd) {
	switch msg.String() {
	case "esc":
		v.find.editing = false
		v.find.input.Blur()
		return v, nil
	case "enter":
		v.find.editing = false
		v.find.input.Blur()
		v.executeSearch(strings.TrimSpace(v.find.input.Value()))
		return v, nil
	}
	var cmd tea.Cmd
	v.find.input, cmd = v.find.input.Update(msg)
	return v, cmd
}

// executeSearch finds query in the current chapter and shows the first
// match at or after the anchor
func (v *ReaderView) executeSearch(query string) {
	v.find.clear()
	c := v.current()
	if query == "" || c.IsEmpty() || c.IsManga() || c.Layout == nil {
		return
	}
	v.find.query = query
	v.find.key = c.ChapterKey
	v.find.matches = findAll(c.Layout.Text(), query)

	n := len(v.find.matches)
	if n == 0 {
		v.statusMsg = fmt.Sprintf("No matches for %q", query)
		return
	}
	v.find.cur = sort.Search(n, func(i int) bool {
		return v.find.matches[i].Location >= v.anchor
	}) % n
	v.showMatch()
}

// stepMatch moves to the next (+1) or previous (-1) match, wrapping
// around the chapter
func (v *ReaderView) stepMatch(delta int) {
	n := len(v.find.matches)
	if n == 0 {
		return
	}
	v.find.cur = (v.find.cur + delta + n) % n
	v.showMatch()
}

func (v *ReaderView) showMatch() {
	v.place(v.find.matches[v.find.cur].Location)
}

// hasMatches reports whether n/N should step through search results
func (v *ReaderView) hasMatches() bool {
	return v.find.active(v.current()) && len(v.find.matches) > 0
}

// mark styles one range of a rendered line
type mark struct {
	r     models.TextRange
	style lipgloss.Style
}

// searchMarks returns the matches that touch l, in order
func (v *ReaderView) searchMarks(l models.RenderLine) []mark {
	var marks []mark
	for i, m := range v.find.matches {
		if m.End() <= l.Start {
			continue
		}
		if m.Location >= l.End {
			break
		}
		style := styles.SearchMatch
		if i == v.find.cur {
			style = styles.SearchCurrent
		}
		marks = append(marks, mark{r: m, style: style})
	}
	return marks
}

// markLine styles the parts of l covered by marks. Marks must be sorted
// and must not overlap.
func markLine(l models.RenderLine, marks []mark) string {
	runes := []rune(l.Text)
	var b strings.Builder
	pos := 0
	for _, m := range marks {
		lo := max(m.r.Location, l.Start) - l.Start
		hi := min(m.r.End(), l.Start+len(runes)) - l.Start
		if lo >= hi || lo < pos {
			continue
		}
		b.WriteString(string(runes[pos:lo]))
		b.WriteString(m.style.Render(string(runes[lo:hi])))
		pos = hi
	}
	if pos == 0 {
		return l.Text
	}
	b.WriteString(string(runes[pos:]))
	return b.String()
}

// renderSearchStatus is the footer shown while results are displayed
func (v *ReaderView) renderSearchStatus() string {
	info := styles.SecondaryText.Render(fmt.Sprintf(" [%d/%d]", v.find.cur+1, len(v.find.matches)))
	help := styles.HelpKey.Render("n/N") + styles.Help.Render(" match") + "  " +
		styles.HelpKey.Render("esc") + styles.Help.Render(" clear")
	return styles.FooterBar.Width(v.width).Render(styles.BookAuthor.Render("/"+v.find.query) + info + "  " + help)
}
