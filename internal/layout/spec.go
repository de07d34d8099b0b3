// Package layout measures chapter text into lines with vertical geometry.
//
// All units are abstract: a cell engine treats one terminal column as one
// unit of advance and one row as one unit of height at font size 1.
package layout

// DefaultIndent is prepended to every body paragraph.
const DefaultIndent = "　　"

// Spec is the explicit set of layout settings every build and pagination
// receives. It is a plain value; two equal Specs always produce the same
// layout for the same text.
type Spec struct {
	FontSize         float64
	LineSpacing      float64
	ParagraphSpacing float64
	SideMargin       float64
	TopInset         float64
	BottomInset      float64
	PagePadding      float64
	ViewportWidth    float64
	ViewportHeight   float64
	Indent           string
}

// DefaultSpec returns settings for an 80x24 terminal
func DefaultSpec() Spec {
	return Spec{
		FontSize:         1,
		LineSpacing:      0,
		ParagraphSpacing: 1,
		SideMargin:       2,
		ViewportWidth:    80,
		ViewportHeight:   20,
		Indent:           DefaultIndent,
	}
}

// LineHeight is the height of one laid-out line
func (s Spec) LineHeight() float64 {
	fs := s.FontSize
	if fs <= 0 {
		fs = 1
	}
	h := fs + s.LineSpacing
	if h <= 0 {
		h = fs
	}
	return h
}

// Advance is the width of one cell at the current font size
func (s Spec) Advance() float64 {
	if s.FontSize <= 0 {
		return 1
	}
	return s.FontSize
}

// ContentWidth is the width available to text after side margins
func (s Spec) ContentWidth() float64 {
	w := s.ViewportWidth - 2*s.SideMargin
	if w < s.Advance() {
		w = s.Advance()
	}
	return w
}

// UsableHeight is the vertical space one page may fill
func (s Spec) UsableHeight() float64 {
	return s.ViewportHeight - s.TopInset - s.BottomInset - s.PagePadding
}

// Block is a run of text laid out as one paragraph. End is exclusive and
// includes the paragraph's trailing newline, if any.
type Block struct {
	Start int
	End   int
}

// Line is one laid-out line. Start and End are character offsets; a
// paragraph's last line owns the paragraph's trailing newline.
type Line struct {
	Start  int
	End    int
	Y      float64
	Height float64
	Block  int
}

// Bottom is the Y just below the line
func (l Line) Bottom() float64 {
	return l.Y + l.Height
}

// Len is the number of characters on the line
func (l Line) Len() int {
	return l.End - l.Start
}

// Engine measures text into a Frame. Implementations must cover every
// character of every non-empty block with exactly one line, in order.
type Engine interface {
	Measure(text []rune, blocks []Block, spec Spec) *Frame
}
