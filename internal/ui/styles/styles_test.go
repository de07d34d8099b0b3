package styles

import (
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits", "Chapter One", 20, "Chapter One"},
		{"exact", "abcde", 5, "abcde"},
		{"cut", "The Long Chapter Title", 10, "The Long …"},
		{"zero", "abc", 0, ""},
		{"one", "abc", 1, "…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateText(tt.in, tt.width); got != tt.want {
				t.Errorf("TruncateText(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
			}
		})
	}

	got := TruncateText("第一章 风起云涌的开始", 9)
	if w := runewidth.StringWidth(got); w > 9 {
		t.Errorf("wide text %q is %d cells", got, w)
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		progress float64
		want     string
	}{
		{0, "░░░░"},
		{1, "████"},
		{0.5, "██░░"},
		{-1, "░░░░"},
		{2, "████"},
	}
	for _, tt := range tests {
		if got := ProgressBar(4, tt.progress); got != tt.want {
			t.Errorf("ProgressBar(4, %v) = %q, want %q", tt.progress, got, tt.want)
		}
	}
	if got := runewidth.StringWidth(ProgressBar(10, 0.33)); got != 10 {
		t.Errorf("bar width = %d", got)
	}
}

func TestSpread(t *testing.T) {
	if got := Spread("ab", "cd", 8); got != "ab    cd" {
		t.Errorf("Spread = %q", got)
	}
	if got := Spread("abcdef", "gh", 4); got != "abcdefgh" {
		t.Errorf("Spread overflow = %q", got)
	}
}
