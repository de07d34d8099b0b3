package content

import (
	"reflect"
	"testing"

	"github.com/justyntemme/webby-pager/pkg/models"
)

func TestSplitParagraphs(t *testing.T) {
	got := SplitParagraphs("  first line\r\n\n　　second\n   \nthird  ")
	want := []string{"first line", "second", "third"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHTMLParagraphs(t *testing.T) {
	raw := `<html><head><title>x</title><style>p{}</style></head><body>
<h1>Chapter One</h1>
<p>Hello <b>bold</b>
   world.</p>
<div>line one<br/>line two</div>
<script>var a = 1;</script>
<ul><li>item</li></ul>
</body></html>`

	got, err := HTMLParagraphs(raw)
	if err != nil {
		t.Fatalf("HTMLParagraphs failed: %v", err)
	}
	want := []string{"Chapter One", "Hello bold world.", "line one", "line two", "item"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMarkdownParagraphs(t *testing.T) {
	raw := "# Title\n\nSome *emphasis* here\nand a soft break.\n\n- one\n- two\n\n```\ncode line\n```\n"
	got := MarkdownParagraphs(raw)
	want := []string{"Title", "Some emphasis here and a soft break.", "one", "two", "code line"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"plain text\nmore", models.FormatText},
		{"<p>para</p>", models.FormatHTML},
		{"<DIV class=x>para</DIV>", models.FormatHTML},
		{"a < b and c > d", models.FormatText},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.raw); got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizerRules(t *testing.T) {
	n, err := NewNormalizer([]ReplaceRule{
		{Pattern: "teh", Replacement: "the"},
		{Pattern: `\s*\(ads?\)`, Replacement: "", IsRegex: true},
		{Pattern: "SPLIT", Replacement: "\n"},
	})
	if err != nil {
		t.Fatalf("NewNormalizer failed: %v", err)
	}

	got := n.Sentences("teh cat (ad)\nfirstSPLITsecond", models.FormatText)
	want := []string{"the cat", "first", "second"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNormalizerBadRegex(t *testing.T) {
	if _, err := NewNormalizer([]ReplaceRule{{Pattern: "(", IsRegex: true}}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestNilNormalizer(t *testing.T) {
	var n *Normalizer
	got := n.Sentences("<p>a</p><p>b</p>", "")
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("got %q", got)
	}
}
