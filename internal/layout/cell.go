package layout

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// CellEngine lays text out on a monospace cell grid. Line breaks follow
// Unicode line breaking (UAX #14); words wider than the line are split
// between grapheme clusters.
type CellEngine struct{}

var _ Engine = CellEngine{}

// Measure implements Engine
func (CellEngine) Measure(text []rune, blocks []Block, spec Spec) *Frame {
	width := spec.ContentWidth()
	maxCells := width / spec.Advance()
	if maxCells < 1 {
		maxCells = 1
	}
	lh := spec.LineHeight()

	var lines []Line
	y := 0.0
	for bi, b := range blocks {
		start, end := max(b.Start, 0), min(b.End, len(text))
		if end <= start {
			continue
		}
		body := end
		if text[end-1] == '\n' {
			body = end - 1
		}

		counts := wrap(string(text[start:body]), maxCells)
		pos := start
		for i, n := range counts {
			lineEnd := pos + n
			if i == len(counts)-1 {
				lineEnd = end
			}
			lines = append(lines, Line{Start: pos, End: lineEnd, Y: y, Height: lh, Block: bi})
			y += lh
			pos = lineEnd
		}
		y += spec.ParagraphSpacing
	}

	return NewFrame(lines, len(text), y, width)
}

// wrap greedily fills lines of at most maxCells cells and returns the rune
// count of each line. Trailing spaces may hang past the edge.
func wrap(s string, maxCells float64) []int {
	if s == "" {
		return []int{0}
	}

	var counts []int
	lineRunes, lineCells := 0, 0
	state := -1
	rest := s
	for len(rest) > 0 {
		var seg string
		var mustBreak bool
		seg, rest, mustBreak, state = uniseg.FirstLineSegmentInString(rest, state)

		visible := runewidth.StringWidth(strings.TrimRight(seg, " \t"))
		if lineRunes > 0 && float64(lineCells+visible) > maxCells {
			counts = append(counts, lineRunes)
			lineRunes, lineCells = 0, 0
		}

		if lineRunes == 0 && float64(visible) > maxCells {
			full, tailRunes, tailCells := splitGraphemes(seg, maxCells)
			counts = append(counts, full...)
			lineRunes, lineCells = tailRunes, tailCells
		} else {
			lineRunes += utf8.RuneCountInString(seg)
			lineCells += runewidth.StringWidth(seg)
		}

		if mustBreak && len(rest) > 0 {
			counts = append(counts, lineRunes)
			lineRunes, lineCells = 0, 0
		}
	}
	if lineRunes > 0 || len(counts) == 0 {
		counts = append(counts, lineRunes)
	}
	return counts
}

// splitGraphemes hard-breaks an overlong segment. It returns the rune
// counts of the filled lines plus the size of the unfinished tail.
func splitGraphemes(seg string, maxCells float64) (full []int, tailRunes, tailCells int) {
	state := -1
	for len(seg) > 0 {
		var cluster string
		var w int
		cluster, seg, w, state = uniseg.FirstGraphemeClusterInString(seg, state)
		if tailRunes > 0 && float64(tailCells+w) > maxCells {
			full = append(full, tailRunes)
			tailRunes, tailCells = 0, 0
		}
		tailRunes += utf8.RuneCountInString(cluster)
		tailCells += w
	}
	return full, tailRunes, tailCells
}
