// Package textmodel holds a chapter's measured text: the title and
// indented sentences joined into one document, plus line geometry.
//
// Character offsets throughout are rune indices into Snapshot.Text.
package textmodel

import (
	"sync/atomic"
	"unicode/utf8"

	"github.com/justyntemme/webby-pager/internal/layout"
)

// Model is a stable handle to the latest Snapshot of a chapter. Rebuild
// swaps in a complete new Snapshot; holders of the Model see the new
// measurement, holders of an old Snapshot keep a consistent view.
type Model struct {
	engine layout.Engine
	snap   atomic.Pointer[Snapshot]
}

// Build measures title and sentences with spec and returns a new Model
func Build(engine layout.Engine, title string, sentences []string, spec layout.Spec) *Model {
	m := &Model{engine: engine}
	m.snap.Store(measure(engine, title, sentences, spec))
	return m
}

// Rebuild replaces the measured text. The previous Snapshot is untouched.
func (m *Model) Rebuild(title string, sentences []string, spec layout.Spec) *Snapshot {
	s := measure(m.engine, title, sentences, spec)
	m.snap.Store(s)
	return s
}

// Snapshot returns the current measurement
func (m *Model) Snapshot() *Snapshot {
	return m.snap.Load()
}

// Snapshot is one immutable measurement of a chapter
type Snapshot struct {
	text            []rune
	titleLen        int
	indentLen       int
	sentenceLens    []int
	paragraphStarts []int
	frame           *layout.Frame
	spec            layout.Spec
}

func measure(engine layout.Engine, title string, sentences []string, spec layout.Spec) *Snapshot {
	indent := []rune(spec.Indent)
	s := &Snapshot{
		titleLen:        utf8.RuneCountInString(title),
		indentLen:       len(indent),
		sentenceLens:    make([]int, len(sentences)),
		paragraphStarts: make([]int, len(sentences)),
		spec:            spec,
	}

	var blocks []layout.Block
	if title != "" {
		s.text = append(s.text, []rune(title)...)
		if len(sentences) > 0 {
			s.text = append(s.text, '\n')
		}
		blocks = append(blocks, layout.Block{Start: 0, End: len(s.text)})
	}
	for i, sentence := range sentences {
		start := len(s.text)
		s.paragraphStarts[i] = start
		s.text = append(s.text, indent...)
		r := []rune(sentence)
		s.sentenceLens[i] = len(r)
		s.text = append(s.text, r...)
		if i < len(sentences)-1 {
			s.text = append(s.text, '\n')
		}
		blocks = append(blocks, layout.Block{Start: start, End: len(s.text)})
	}

	s.frame = engine.Measure(s.text, blocks, spec)
	return s
}

// Len returns the total character length
func (s *Snapshot) Len() int { return len(s.text) }

// Text returns the full measured text
func (s *Snapshot) Text() string { return string(s.text) }

// Substring returns text in [start, end), clamped to the document
func (s *Snapshot) Substring(start, end int) string {
	start = clamp(start, 0, len(s.text))
	end = clamp(end, start, len(s.text))
	return string(s.text[start:end])
}

// Title returns the chapter title
func (s *Snapshot) Title() string { return string(s.text[:s.titleLen]) }

// TitleLen returns the title length, excluding its newline
func (s *Snapshot) TitleLen() int { return s.titleLen }

// IndentLen returns the length of the paragraph indent
func (s *Snapshot) IndentLen() int { return s.indentLen }

// ParagraphStarts returns the offset of each sentence's indent. Callers
// must not modify the slice.
func (s *Snapshot) ParagraphStarts() []int { return s.paragraphStarts }

// SentenceCount returns the number of sentences
func (s *Snapshot) SentenceCount() int { return len(s.sentenceLens) }

// SentenceLen returns the length of sentence i, excluding indent and newline
func (s *Snapshot) SentenceLen(i int) int {
	if i < 0 || i >= len(s.sentenceLens) {
		return 0
	}
	return s.sentenceLens[i]
}

// Sentence returns the text of sentence i without its indent
func (s *Snapshot) Sentence(i int) string {
	if i < 0 || i >= len(s.sentenceLens) {
		return ""
	}
	start := s.paragraphStarts[i] + s.indentLen
	return string(s.text[start : start+s.sentenceLens[i]])
}

// Spec returns the layout settings the text was measured with
func (s *Snapshot) Spec() layout.Spec { return s.spec }

// Frame returns the line geometry
func (s *Snapshot) Frame() *layout.Frame { return s.frame }

// Lines returns the measured lines
func (s *Snapshot) Lines() []layout.Line { return s.frame.Lines() }

// Height returns the laid-out height
func (s *Snapshot) Height() float64 { return s.frame.Height() }

// LineIndexAtOffset returns the index of the line holding offset, or -1
func (s *Snapshot) LineIndexAtOffset(offset int) int { return s.frame.LineIndexAtOffset(offset) }

// LineIndexAtY returns the index of the line at y, or -1
func (s *Snapshot) LineIndexAtY(y float64) int { return s.frame.LineIndexAtY(y) }

// LineAtOffset returns the line containing offset
func (s *Snapshot) LineAtOffset(offset int) (layout.Line, bool) {
	i := s.frame.LineIndexAtOffset(offset)
	if i < 0 {
		return layout.Line{}, false
	}
	return s.frame.Lines()[i], true
}

// LineAtY returns the line at vertical position y
func (s *Snapshot) LineAtY(y float64) (layout.Line, bool) {
	i := s.frame.LineIndexAtY(y)
	if i < 0 {
		return layout.Line{}, false
	}
	return s.frame.Lines()[i], true
}

// LineStart snaps offset back to the start of its line
func (s *Snapshot) LineStart(offset int) int {
	l, ok := s.LineAtOffset(offset)
	if !ok {
		return 0
	}
	return l.Start
}

// OffsetToY returns the top of the line containing offset
func (s *Snapshot) OffsetToY(offset int) float64 {
	l, ok := s.LineAtOffset(offset)
	if !ok {
		return 0
	}
	return l.Y
}

// YToOffset returns the first offset of the line at y
func (s *Snapshot) YToOffset(y float64) int {
	l, ok := s.LineAtY(y)
	if !ok {
		return 0
	}
	return l.Start
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
