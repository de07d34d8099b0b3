package localbook

import (
	"regexp"
	"strings"

	"github.com/justyntemme/webby-pager/pkg/models"
)

// headingPatterns are the chapter title styles plain-text novels use
var headingPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"chinese", regexp.MustCompile(`^\s*第\s*[一二三四五六七八九十百千万零〇两\d]+\s*[章卷节回].*$`)},
	{"english", regexp.MustCompile(`(?i)^\s*chapter\s+(\d+|[ivxlcdm]+)\b.*$`)},
	{"markdown", regexp.MustCompile(`^\s*#{1,3}\s+\S.*$`)},
}

// detectHeading picks the heading style that matches most lines. At
// least two matches are needed.
func detectHeading(lines []string) *regexp.Regexp {
	var best *regexp.Regexp
	bestScore := 1
	for _, p := range headingPatterns {
		score := 0
		for _, line := range lines {
			if p.re.MatchString(line) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = p.re, score
		}
	}
	return best
}

// splitNovel splits text into chapters at heading lines. Text before the
// first heading becomes a preface; text with no headings is one chapter.
func splitNovel(text, name, format string) []section {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	heading := detectHeading(lines)
	if heading == nil {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []section{newSection(name, strings.TrimSpace(text), format)}
	}

	var out []section
	title := ""
	var body strings.Builder
	flush := func() {
		content := strings.TrimSpace(body.String())
		body.Reset()
		switch {
		case title != "":
			out = append(out, newSection(title, content, format))
		case content != "":
			out = append(out, newSection("Preface", content, format))
		}
	}

	for _, line := range lines {
		if heading.MatchString(line) {
			flush()
			title = cleanHeading(line)
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	flush()
	return out
}

func cleanHeading(line string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
}

func newSection(title, content, format string) section {
	return section{
		title:       title,
		content:     content,
		contentType: models.ContentTypeBook,
		format:      format,
	}
}
