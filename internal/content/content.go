// Package content turns raw chapter bodies into the ordered sentence list
// a chapter is laid out from.
package content

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/justyntemme/webby-pager/pkg/models"
)

// ReplaceRule rewrites chapter text before it is split into sentences
type ReplaceRule struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	IsRegex     bool   `json:"is_regex"`
}

type compiledRule struct {
	rule ReplaceRule
	re   *regexp.Regexp
}

// Normalizer converts raw bodies of any supported format to sentences
type Normalizer struct {
	rules []compiledRule
}

// NewNormalizer compiles rules. A nil Normalizer is usable and applies no rules.
func NewNormalizer(rules []ReplaceRule) (*Normalizer, error) {
	n := &Normalizer{}
	for _, r := range rules {
		if r.Pattern == "" {
			continue
		}
		cr := compiledRule{rule: r}
		if r.IsRegex {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("compile replace rule %q: %w", r.Pattern, err)
			}
			cr.re = re
		}
		n.rules = append(n.rules, cr)
	}
	return n, nil
}

// Sentences returns the non-empty paragraphs of raw, interpreted as format.
// An empty format is sniffed from the content.
func (n *Normalizer) Sentences(raw, format string) []string {
	if format == "" {
		format = DetectFormat(raw)
	}

	var paragraphs []string
	switch format {
	case models.FormatHTML:
		p, err := HTMLParagraphs(raw)
		if err != nil {
			paragraphs = SplitParagraphs(raw)
		} else {
			paragraphs = p
		}
	case models.FormatMarkdown:
		paragraphs = MarkdownParagraphs(raw)
	default:
		paragraphs = SplitParagraphs(raw)
	}

	if n == nil || len(n.rules) == 0 {
		return paragraphs
	}
	return SplitParagraphs(n.Apply(strings.Join(paragraphs, "\n")))
}

// Apply runs every rule over text in order
func (n *Normalizer) Apply(text string) string {
	if n == nil {
		return text
	}
	for _, r := range n.rules {
		if r.re != nil {
			text = r.re.ReplaceAllString(text, r.rule.Replacement)
		} else {
			text = strings.ReplaceAll(text, r.rule.Pattern, r.rule.Replacement)
		}
	}
	return text
}

// SplitParagraphs splits text on line breaks, trims each paragraph,
// including full-width indentation, and drops blank ones.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimFunc(line, unicode.IsSpace)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

var htmlSniff = regexp.MustCompile(`(?i)<(p|div|br|html|body|h[1-6]|span|section)[\s>/]`)

// DetectFormat guesses the format of an untagged chapter body
func DetectFormat(raw string) string {
	head := raw
	if len(head) > 4096 {
		head = head[:4096]
	}
	if htmlSniff.MatchString(head) {
		return models.FormatHTML
	}
	return models.FormatText
}
