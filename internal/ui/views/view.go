package views

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/justyntemme/webby-pager/internal/chapter"
	"github.com/justyntemme/webby-pager/pkg/models"
)

// ViewType represents different screens in the application
type ViewType int

const (
	ViewLibrary ViewType = iota
	ViewReader
)

// String returns the name of the view
func (v ViewType) String() string {
	switch v {
	case ViewLibrary:
		return "Library"
	case ViewReader:
		return "Reader"
	default:
		return "Unknown"
	}
}

// View is the interface that all views must implement
type View interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (View, tea.Cmd)
	View() string
	SetSize(width, height int)
}

// InputCapturer is a view that wants every key while a dialog or text
// field is open
type InputCapturer interface {
	CapturingInput() bool
}

// Source supplies a book's chapters and keeps its reading position.
// *api.Client and *LocalSource satisfy it.
type Source interface {
	chapter.Fetcher
	Chapters(ctx context.Context, book models.Book) ([]models.Chapter, error)
	LoadPosition(ctx context.Context, book models.Book) (*models.ReadingPosition, error)
	SavePosition(ctx context.Context, pos models.ReadingPosition) error
}

// Catalog lists the books a server offers
type Catalog interface {
	ListBooks(ctx context.Context, page, limit int, search string) (*models.BooksResponse, error)
}

// Message types for inter-view communication

// OpenBookMsg is sent when a book is selected to read
type OpenBookMsg struct {
	Book models.Book
}

// ErrorMsg is sent when an error occurs
type ErrorMsg struct {
	Err error
}

// ClearErrorMsg clears the current error
type ClearErrorMsg struct{}

// SwitchViewMsg requests a view switch
type SwitchViewMsg struct {
	View ViewType
}

// SendError creates an error message command
func SendError(err error) tea.Cmd {
	return func() tea.Msg {
		return ErrorMsg{Err: err}
	}
}

// ClearError creates a command to clear errors
func ClearError() tea.Cmd {
	return func() tea.Msg {
		return ClearErrorMsg{}
	}
}

// SwitchTo creates a command to switch views
func SwitchTo(view ViewType) tea.Cmd {
	return func() tea.Msg {
		return SwitchViewMsg{View: view}
	}
}
