package layout

import "sort"

// Frame is the measured result of one Engine.Measure call. Lines are
// ordered by offset and by Y; queries binary search over them.
type Frame struct {
	lines  []Line
	length int
	height float64
	width  float64
}

// NewFrame wraps measured lines. height is the full laid-out height,
// including spacing after the last paragraph.
func NewFrame(lines []Line, length int, height, width float64) *Frame {
	return &Frame{lines: lines, length: length, height: height, width: width}
}

// Lines returns the measured lines. Callers must not modify the slice.
func (f *Frame) Lines() []Line { return f.lines }

// Len returns the number of characters measured
func (f *Frame) Len() int { return f.length }

// Height returns the laid-out height
func (f *Frame) Height() float64 { return f.height }

// Width returns the width the text was wrapped to
func (f *Frame) Width() float64 { return f.width }

// LineIndexAtOffset returns the index of the line containing offset.
// Offsets past the end map to the last line; -1 means no lines.
func (f *Frame) LineIndexAtOffset(offset int) int {
	n := len(f.lines)
	if n == 0 {
		return -1
	}
	i := sort.Search(n, func(i int) bool { return f.lines[i].End > offset })
	if i >= n {
		return n - 1
	}
	return i
}

// LineIndexAtY returns the index of the line whose box contains y. A y in
// the spacing between two lines maps to the following line.
func (f *Frame) LineIndexAtY(y float64) int {
	n := len(f.lines)
	if n == 0 {
		return -1
	}
	i := sort.Search(n, func(i int) bool { return f.lines[i].Bottom() > y })
	if i >= n {
		return n - 1
	}
	return i
}
