package poem

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/versegrid/versegrid/internal/llm"
)

// ErrMalformed is wrapped by every validation failure of a generated poem.
var ErrMalformed = errors.New("malformed poem")

// Poem is a validated title and its body lines.
type Poem struct {
	Title string
	Lines []string
}

// Body joins the lines with newlines.
func (p Poem) Body() string {
	return strings.Join(p.Lines, "\n")
}

// Limits bounds the number of body lines.
type Limits struct {
	MinLines int `yaml:"min_lines"`
	MaxLines int `yaml:"max_lines"`
}

// DefaultLimits accepts one to eight lines.
func DefaultLimits() Limits {
	return Limits{MinLines: 1, MaxLines: 8}
}

var (
	titleMarker = regexp.MustCompile(`(?i)^[#*_\s]*title\s*[:：][*_\s]*(.*?)[*_\s]*$`)
	placeholder = regexp.MustCompile(`(?i)\[(your title[^\]]*|poem lines?[^\]]*|more poem lines?[^\]]*|\.\.\.|…)\]`)
)

// Parse extracts a poem from generated text. The text must contain a
// "Title:" line followed by the body. Blank lines are dropped from the body.
func Parse(text string, limits Limits) (Poem, error) {
	lines := strings.Split(strings.ReplaceAll(llm.StripCodeFences(text), "\r\n", "\n"), "\n")

	titleIdx := -1
	var title string
	for i, l := range lines {
		if m := titleMarker.FindStringSubmatch(strings.TrimSpace(l)); m != nil {
			titleIdx = i
			title = strings.TrimSpace(m[1])
			break
		}
	}
	if titleIdx < 0 {
		return Poem{}, fmt.Errorf("%w: missing title marker", ErrMalformed)
	}
	if title == "" {
		return Poem{}, fmt.Errorf("%w: empty title", ErrMalformed)
	}
	if placeholder.MatchString(title) {
		return Poem{}, fmt.Errorf("%w: placeholder title %q", ErrMalformed, title)
	}

	var body []string
	for _, l := range lines[titleIdx+1:] {
		l = strings.TrimRight(l, " \t")
		if strings.TrimSpace(l) == "" {
			continue
		}
		if placeholder.MatchString(l) {
			return Poem{}, fmt.Errorf("%w: placeholder line %q", ErrMalformed, strings.TrimSpace(l))
		}
		body = append(body, strings.TrimSpace(l))
	}

	if len(body) < limits.MinLines || (limits.MaxLines > 0 && len(body) > limits.MaxLines) {
		return Poem{}, fmt.Errorf("%w: %d lines, want %d-%d", ErrMalformed, len(body), limits.MinLines, limits.MaxLines)
	}
	return Poem{Title: title, Lines: body}, nil
}
