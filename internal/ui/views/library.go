package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/justyntemme/webby-pager/internal/config"
	"github.com/justyntemme/webby-pager/internal/ui/styles"
	"github.com/justyntemme/webby-pager/pkg/models"
)

// libraryPageSize is how many books one server request asks for
const libraryPageSize = 50

// LibraryView lists the books a catalog offers
type LibraryView struct {
	catalog Catalog
	config  *config.Config

	books  []models.Book
	cursor int
	offset int // first visible row

	// Server pages. pages.Page is zero based; the API's is one based.
	pages paginator.Model

	loading bool
	seq     int // drops responses to superseded requests
	err     error

	searching bool
	search    textinput.Model
	recent    bool

	width  int
	height int
}

// NewLibraryView creates a library over catalog
func NewLibraryView(catalog Catalog, cfg *config.Config) *LibraryView {
	search := textinput.New()
	search.Placeholder = "Search books..."
	search.CharLimit = 100
	search.Width = 40

	pages := paginator.New()
	pages.Type = paginator.Arabic
	pages.PerPage = libraryPageSize
	pages.SetTotalPages(0)

	return &LibraryView{
		catalog: catalog,
		config:  cfg,
		pages:   pages,
		search:  search,
		width:   80,
		height:  24,
	}
}

type booksLoadedMsg struct {
	seq   int
	books []models.Book
	total int
	err   error
}

// Init implements View
func (v *LibraryView) Init() tea.Cmd {
	return v.load()
}

// Update implements View
func (v *LibraryView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if v.searching {
			return v, v.updateSearch(msg)
		}
		return v, v.handleKey(msg)

	case booksLoadedMsg:
		if msg.seq != v.seq {
			return v, nil
		}
		v.loading = false
		v.err = msg.err
		if msg.err != nil {
			return v, nil
		}
		v.books = msg.books
		v.pages.SetTotalPages(msg.total)
		v.cursor = min(v.cursor, max(0, len(v.books)-1))
		v.scrollToCursor()
	}
	return v, nil
}

func (v *LibraryView) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		v.searching = false
		v.search.Blur()
		return nil
	case "enter":
		v.searching = false
		v.search.Blur()
		v.pages.Page = 0
		return v.load()
	}
	var cmd tea.Cmd
	v.search, cmd = v.search.Update(msg)
	return cmd
}

func (v *LibraryView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "j", "down":
		v.moveCursor(1)
	case "k", "up":
		v.moveCursor(-1)
	case "g", "home":
		v.moveCursor(-len(v.books))
	case "G", "end":
		v.moveCursor(len(v.books))
	case "ctrl+d", "pgdown":
		v.moveCursor(v.rows() / 2)
	case "ctrl+u", "pgup":
		v.moveCursor(-v.rows() / 2)
	case "/":
		v.searching = true
		return v.search.Focus()
	case "enter":
		if v.cursor < len(v.books) {
			book := v.books[v.cursor]
			return func() tea.Msg { return OpenBookMsg{Book: book} }
		}
	case "n":
		if !v.pages.OnLastPage() {
			v.pages.NextPage()
			return v.load()
		}
	case "p":
		if v.pages.Page > 0 {
			v.pages.PrevPage()
			return v.load()
		}
	case "r":
		return v.load()
	case "R":
		v.recent = !v.recent
		v.pages.Page = 0
		v.cursor, v.offset = 0, 0
		return v.load()
	}
	return nil
}

// View implements View
func (v *LibraryView) View() string {
	var b strings.Builder
	b.WriteString(v.renderHeader() + "\n")
	if v.searching {
		b.WriteString(styles.InputFieldFocused.Render(v.search.View()) + "\n")
	}

	var notice string
	switch {
	case v.loading && len(v.books) == 0:
		notice = styles.MutedText.Render("Loading books...")
	case v.err != nil:
		notice = styles.ErrorStyle.Render("Error: " + v.err.Error())
	case len(v.books) == 0:
		notice = styles.MutedText.Render("No books found")
	}
	if notice != "" {
		b.WriteString(lipgloss.Place(v.width, v.height-4, lipgloss.Center, lipgloss.Center, notice))
		return b.String()
	}

	end := min(v.offset+v.rows(), len(v.books))
	for i := v.offset; i < end; i++ {
		b.WriteString(v.renderBook(v.books[i], i == v.cursor) + "\n")
	}
	b.WriteString("\n" + v.renderFooter())
	return b.String()
}

// SetSize implements View
func (v *LibraryView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.search.Width = max(10, min(40, width-10))
	v.scrollToCursor()
}

// CapturingInput implements InputCapturer
func (v *LibraryView) CapturingInput() bool {
	return v.searching
}

func (v *LibraryView) renderHeader() string {
	name := " Library "
	if v.recent {
		name = " Recently Read "
	}
	left := styles.TitleBar.Render(name)
	if q := v.search.Value(); q != "" {
		left += styles.SecondaryText.Render(fmt.Sprintf(" [Search: %s]", styles.TruncateText(q, 30)))
	}
	right := styles.Help.Render(" Page " + v.pages.View() + " ")
	if v.loading {
		right = styles.MutedText.Render(" loading… ") + right
	}
	return styles.Spread(left, right, v.width)
}

func (v *LibraryView) renderBook(book models.Book, selected bool) string {
	badge := styles.BadgeBook.Render("B")
	if book.IsComic() {
		badge = styles.BadgeComic.Render("C")
	}
	badge += " "

	var meta []string
	if book.Author != "" {
		meta = append(meta, book.Author)
	}
	if book.Series != "" {
		meta = append(meta, fmt.Sprintf("(%s)", book.Series))
	}
	line := book.Title
	if len(meta) > 0 {
		line += " - " + strings.Join(meta, " ")
	}

	size := ""
	if book.FileSize > 0 {
		size = " " + humanize.Bytes(uint64(book.FileSize))
	}
	line = styles.TruncateText(line, v.width-6-lipgloss.Width(badge)-len(size))

	if selected {
		return styles.ListItemSelected.Width(v.width).Render("▸ " + badge + line + size)
	}
	return styles.ListItem.Render("  "+badge+line) + styles.MutedText.Render(size)
}

func (v *LibraryView) renderFooter() string {
	keys := [][2]string{
		{"j/k", "nav"}, {"enter", "open"}, {"/", "search"},
		{"n/p", "page"}, {"R", "recent"}, {"q", "quit"},
	}
	help := make([]string, len(keys))
	for i, k := range keys {
		help[i] = styles.HelpKey.Render(k[0]) + styles.Help.Render(" "+k[1])
	}
	return styles.FooterBar.Render(strings.Join(help, "  "))
}

// load requests the current page. In recently-read mode the page is
// filtered down to recent books, most recent first.
func (v *LibraryView) load() tea.Cmd {
	v.loading = true
	v.seq++
	seq, page, query, recentMode := v.seq, v.pages.Page+1, v.search.Value(), v.recent
	var recent []string
	if recentMode && v.config != nil {
		recent = v.config.GetRecentlyReadIDs()
	}
	catalog := v.catalog

	return func() tea.Msg {
		resp, err := catalog.ListBooks(context.Background(), page, libraryPageSize, query)
		if err != nil {
			return booksLoadedMsg{seq: seq, err: err}
		}
		if !recentMode {
			return booksLoadedMsg{seq: seq, books: resp.Books, total: resp.Total}
		}
		books := orderByIDs(resp.Books, recent)
		return booksLoadedMsg{seq: seq, books: books, total: len(books)}
	}
}

// orderByIDs keeps the books named in ids, in that order
func orderByIDs(books []models.Book, ids []string) []models.Book {
	byID := make(map[string]models.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	out := make([]models.Book, 0, len(ids))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

func (v *LibraryView) moveCursor(delta int) {
	v.cursor = max(0, min(v.cursor+delta, len(v.books)-1))
	v.scrollToCursor()
}

// scrollToCursor keeps the cursor row on screen
func (v *LibraryView) scrollToCursor() {
	rows := v.rows()
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+rows {
		v.offset = v.cursor - rows + 1
	}
}

// rows is the number of book lines that fit
func (v *LibraryView) rows() int {
	n := v.height - 5
	if v.searching {
		n--
	}
	return max(n, 1)
}
