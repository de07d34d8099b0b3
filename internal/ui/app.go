package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/justyntemme/webby-pager/internal/config"
	"github.com/justyntemme/webby-pager/internal/ui/styles"
	"github.com/justyntemme/webby-pager/internal/ui/views"
	"github.com/justyntemme/webby-pager/pkg/models"
)

// App is the main application model
type App struct {
	config *config.Config
	log    *zap.Logger
	keys   KeyMap

	// Current view state
	currentView views.ViewType

	// Window dimensions
	width  int
	height int

	// View models. library is nil when a single book was opened directly.
	libraryView views.View
	readerView  *views.ReaderView

	// Error/status message
	err      error
	showHelp bool
}

// Options selects what the app shows first
type Options struct {
	// Catalog enables the library view
	Catalog views.Catalog
	// Book opens straight into the reader
	Book *models.Book
	Log  *zap.Logger
}

// NewApp creates a new application instance reading from source
func NewApp(cfg *config.Config, source views.Source, opts Options) *App {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	app := &App{
		config:      cfg,
		log:         opts.Log,
		keys:        DefaultKeyMap(),
		currentView: views.ViewLibrary,
		width:       80,
		height:      24,
		readerView:  views.NewReaderView(source, cfg, opts.Log),
	}
	if opts.Catalog != nil {
		app.libraryView = views.NewLibraryView(opts.Catalog, cfg)
	}
	if opts.Book != nil {
		app.openBook(*opts.Book)
	}
	return app
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.getCurrentView().Init(),
		tea.SetWindowTitle("webby-pager"),
	)
}

// Close saves the reading position and stops background loading
func (a *App) Close() {
	a.readerView.Close()
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.libraryView != nil {
			a.libraryView.SetSize(msg.Width, msg.Height)
		}
		a.readerView.SetSize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if c, ok := a.getCurrentView().(views.InputCapturer); ok && c.CapturingInput() && msg.String() != "ctrl+c" {
			break
		}
		switch {
		case key.Matches(msg, a.keys.Quit):
			// In the reader, go back to the library instead of quitting
			if a.currentView == views.ViewReader && a.libraryView != nil && msg.String() != "ctrl+c" {
				return a.switchView(views.ViewLibrary)
			}
			return a, tea.Quit

		case key.Matches(msg, a.keys.Help):
			a.showHelp = !a.showHelp
			return a, nil

		case key.Matches(msg, a.keys.Escape):
			if a.showHelp {
				a.showHelp = false
				return a, nil
			}
		}

	case views.OpenBookMsg:
		a.openBook(msg.Book)
		return a, a.readerView.Init()

	case views.ErrorMsg:
		a.err = msg.Err
		return a, nil

	case views.ClearErrorMsg:
		a.err = nil
		return a, nil

	case views.SwitchViewMsg:
		return a.switchView(msg.View)
	}

	// Delegate to current view
	var cmd tea.Cmd
	switch a.currentView {
	case views.ViewLibrary:
		if a.libraryView != nil {
			a.libraryView, cmd = a.libraryView.Update(msg)
		}
	case views.ViewReader:
		_, cmd = a.readerView.Update(msg)
	}
	return a, cmd
}

// openBook hands book to the reader and shows it
func (a *App) openBook(book models.Book) {
	if err := a.config.AddRecentlyRead(book.ID, book.Title); err != nil {
		a.log.Warn("save recently read", zap.Error(err))
	}
	a.readerView.SetBook(book)
	a.currentView = views.ViewReader
	a.err = nil
}

// View implements tea.Model
func (a *App) View() string {
	if a.showHelp {
		return a.renderHelp()
	}

	content := a.getCurrentView().View()
	if a.err != nil {
		errorBar := styles.ErrorStyle.Render("Error: " + a.err.Error())
		content = lipgloss.JoinVertical(lipgloss.Left, content, errorBar)
	}
	return content
}

// switchView changes the current view and initializes it
func (a *App) switchView(view views.ViewType) (*App, tea.Cmd) {
	if a.currentView == views.ViewReader && view != views.ViewReader {
		a.readerView.Leave()
	}
	a.currentView = view
	a.err = nil
	return a, a.getCurrentView().Init()
}

// getCurrentView returns the current view model
func (a *App) getCurrentView() views.View {
	if a.currentView == views.ViewLibrary && a.libraryView != nil {
		return a.libraryView
	}
	return a.readerView
}

// renderHelp renders the help overlay
func (a *App) renderHelp() string {
	var b strings.Builder
	b.WriteString(styles.DialogTitle.Render("Keyboard Shortcuts") + "\n\n")
	for _, section := range a.keys.helpSections() {
		b.WriteString(styles.HelpKey.Render(section.title) + "\n")
		for _, binding := range section.bindings {
			h := binding.Help()
			b.WriteString(fmt.Sprintf("  %-8s %s\n", h.Key, h.Desc))
		}
		b.WriteString("\n")
	}

	help := styles.Dialog.Width(min(60, a.width-2)).Render(strings.TrimRight(b.String(), "\n"))
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, help)
}
