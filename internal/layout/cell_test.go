package layout

import (
	"testing"
)

func narrowSpec(width float64) Spec {
	return Spec{FontSize: 1, ViewportWidth: width, ViewportHeight: 10}
}

func lineTexts(text []rune, f *Frame) []string {
	var out []string
	for _, l := range f.Lines() {
		out = append(out, string(text[l.Start:l.End]))
	}
	return out
}

func TestCellEngineWrap(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width float64
		want  []string
	}{
		{"fits", "hello", 10, []string{"hello"}},
		{"word wrap", "aaa bbb ccc", 7, []string{"aaa bbb ", "ccc"}},
		{"hard break", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"wide runes", "一二三四五", 4, []string{"一二", "三四", "五"}},
		{"empty", "", 5, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := []rune(tt.text)
			f := CellEngine{}.Measure(text, []Block{{Start: 0, End: len(text)}}, narrowSpec(tt.width))
			got := lineTexts(text, f)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d lines %q, want %q", len(got), got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCellEngineCoversText(t *testing.T) {
	parts := []string{"Title\n", "　　first paragraph that wraps a bit\n", "　　second one"}
	var text []rune
	var blocks []Block
	for _, p := range parts {
		start := len(text)
		text = append(text, []rune(p)...)
		blocks = append(blocks, Block{Start: start, End: len(text)})
	}
	spec := narrowSpec(12)
	spec.ParagraphSpacing = 1

	f := CellEngine{}.Measure(text, blocks, spec)
	lines := f.Lines()
	if lines[0].Start != 0 {
		t.Fatalf("first line starts at %d", lines[0].Start)
	}
	for i := 1; i < len(lines); i++ {
		if lines[i].Start != lines[i-1].End {
			t.Errorf("gap between line %d and %d", i-1, i)
		}
		if lines[i].Y < lines[i-1].Bottom() {
			t.Errorf("line %d overlaps line %d", i, i-1)
		}
	}
	if last := lines[len(lines)-1]; last.End != len(text) {
		t.Errorf("last line ends at %d, want %d", last.End, len(text))
	}
}

func TestFrameQueries(t *testing.T) {
	text := []rune("ab\ncd")
	spec := narrowSpec(10)
	spec.ParagraphSpacing = 1
	f := CellEngine{}.Measure(text, []Block{{0, 3}, {3, 5}}, spec)

	if got := f.Height(); got != 4 {
		t.Errorf("Height = %v, want 4", got)
	}

	offsets := map[int]int{0: 0, 2: 0, 3: 1, 4: 1, 99: 1}
	for off, want := range offsets {
		if got := f.LineIndexAtOffset(off); got != want {
			t.Errorf("LineIndexAtOffset(%d) = %d, want %d", off, got, want)
		}
	}

	ys := map[float64]int{-1: 0, 0: 0, 0.5: 0, 1.5: 1, 2: 1, 50: 1}
	for y, want := range ys {
		if got := f.LineIndexAtY(y); got != want {
			t.Errorf("LineIndexAtY(%v) = %d, want %d", y, got, want)
		}
	}

	empty := NewFrame(nil, 0, 0, 10)
	if empty.LineIndexAtOffset(0) != -1 || empty.LineIndexAtY(0) != -1 {
		t.Error("empty frame should report -1")
	}
}

func TestSpecDerived(t *testing.T) {
	s := Spec{FontSize: 2, LineSpacing: 0.5, SideMargin: 3, ViewportWidth: 20, ViewportHeight: 30, TopInset: 2, BottomInset: 1, PagePadding: 1}
	if got := s.LineHeight(); got != 2.5 {
		t.Errorf("LineHeight = %v", got)
	}
	if got := s.ContentWidth(); got != 14 {
		t.Errorf("ContentWidth = %v", got)
	}
	if got := s.UsableHeight(); got != 26 {
		t.Errorf("UsableHeight = %v", got)
	}

	var zero Spec
	if zero.LineHeight() != 1 || zero.Advance() != 1 {
		t.Error("zero font size should fall back to 1")
	}
}
