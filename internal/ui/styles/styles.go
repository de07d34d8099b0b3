package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
)

// Palette. Adaptive colors keep the reader legible on light terminals.
var (
	primary    = lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#7C3AED"}
	secondary  = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#06B6D4"}
	success    = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#10B981"}
	warning    = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	danger     = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#EF4444"}
	muted      = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	background = lipgloss.AdaptiveColor{Light: "#F9FAFB", Dark: "#1F2937"}
	foreground = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"}
)

// bar is a bold strip of text on bg
func bar(bg lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(foreground).Background(bg).Padding(0, 1).Bold(true)
}

// badge is a one-letter content type marker
func badge(bg lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(background).Background(bg).Padding(0, 1).Bold(true)
}

func fg(c lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

var (
	TitleBar     = bar(primary)
	ReaderHeader = bar(primary)
	FooterBar    = fg(muted).Padding(0, 1)

	Help          = fg(muted)
	HelpKey       = fg(secondary).Bold(true)
	MutedText     = fg(muted)
	SecondaryText = fg(secondary)
	ErrorStyle    = fg(danger).Bold(true).Padding(0, 1)

	InputFieldFocused = fg(foreground).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primary).
				Padding(0, 1)

	ListItem         = fg(foreground).Padding(0, 2)
	ListItemSelected = bar(primary).Padding(0, 2)

	ReaderProgress = fg(secondary).Align(lipgloss.Right)

	// Highlight marks the sentence being read aloud
	Highlight = lipgloss.NewStyle().Foreground(background).Background(warning)

	// SearchMatch and SearchCurrent mark in-chapter search hits
	SearchMatch   = lipgloss.NewStyle().Foreground(foreground).Background(muted)
	SearchCurrent = lipgloss.NewStyle().Foreground(background).Background(warning).Bold(true)

	// ChapterError is the body of a chapter that failed to load
	ChapterError = fg(warning)

	Dialog = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(primary).
		Padding(1, 2)
	DialogTitle = fg(primary).Bold(true).MarginBottom(1)

	BookTitle  = fg(foreground).Bold(true)
	BookAuthor = fg(secondary)
	BadgeBook  = badge(success)
	BadgeComic = badge(warning)
)

// TruncateText shortens s to at most width cells, ending in an ellipsis
// when anything was cut
func TruncateText(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return truncate.StringWithTail(s, uint(width), "…")
}

// ProgressBar renders progress (0-1) as a bar of width cells using
// Unicode block characters
func ProgressBar(width int, progress float64) string {
	if width < 3 {
		width = 3
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	const (
		empty    = "░"
		filled   = "█"
		partials = "▏▎▍▌▋▊▉" // 1/8 to 7/8 filled
	)

	filledWidth := progress * float64(width)
	fullBlocks := int(filledWidth)
	remainder := filledWidth - float64(fullBlocks)

	var sb strings.Builder
	for i := 0; i < fullBlocks && i < width; i++ {
		sb.WriteString(filled)
	}
	if fullBlocks < width && remainder > 0 {
		if partialIndex := min(int(remainder*8), 7); partialIndex > 0 {
			sb.WriteRune([]rune(partials)[partialIndex-1])
			fullBlocks++
		}
	}
	for i := fullBlocks; i < width; i++ {
		sb.WriteString(empty)
	}
	return sb.String()
}

// Spread joins left and right with enough spaces to fill width
func Spread(left, right string, width int) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return left + strings.Repeat(" ", gap) + right
}
