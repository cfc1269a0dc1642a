// Package spectest extracts examples from CommonMark-style specification
// files.
//
// An example is fenced by a line of 32 backticks followed by " example" and
// a closing line of 32 backticks. A line holding a single "." separates the
// markdown input from the expected HTML. Level-agnostic ATX headings outside
// examples name the section the following examples belong to.
package spectest

import (
	"bufio"
	"errors"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/md4c-json/specsplit/internal/textenc"
)

const (
	fence        = "````````````````````````````````"
	exampleFence = fence + " example"
	separator    = "."
	tabMarker    = "→"
)

var (
	headingRe = regexp.MustCompile(`^#+ `)
	markerRe  = regexp.MustCompile(`#+ `)
)

// Example is one test case. Field order is the key order of its JSON form.
type Example struct {
	Markdown   string   `json:"markdown"`
	HTML       string   `json:"html"`
	Example    int      `json:"example"`
	StartLine  int      `json:"start_line"`
	EndLine    int      `json:"end_line"`
	Section    string   `json:"section"`
	Extensions []string `json:"extensions,omitempty"`
}

type state int

const (
	stateText state = iota
	stateMarkdown
	stateHTML
)

// Parse reads r line by line and returns the examples in file order.
func Parse(r io.Reader) ([]Example, error) {
	br := bufio.NewReader(r)

	var (
		examples   []Example
		markdown   strings.Builder
		html       strings.Builder
		extensions []string
		section    string
		lineNumber int
		startLine  int
		st         = stateText
	)

	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if line == "" {
			break
		}

		lineNumber++
		l := strings.TrimFunc(line, isSpace)

		switch {
		case strings.HasPrefix(l, exampleFence):
			st = stateMarkdown
			extensions = strings.Fields(l[len(exampleFence):])
			if len(extensions) == 0 {
				extensions = nil
			}
		case l == fence:
			st = stateText
			examples = append(examples, Example{
				Markdown:   strings.ReplaceAll(markdown.String(), tabMarker, "\t"),
				HTML:       strings.ReplaceAll(html.String(), tabMarker, "\t"),
				Example:    len(examples) + 1,
				StartLine:  startLine,
				EndLine:    lineNumber,
				Section:    section,
				Extensions: extensions,
			})
			startLine = 0
			extensions = nil
			markdown.Reset()
			html.Reset()
		case l == separator:
			st = stateHTML
		case st == stateMarkdown:
			if startLine == 0 {
				startLine = lineNumber - 1
			}
			markdown.WriteString(line)
		case st == stateHTML:
			html.WriteString(line)
		case st == stateText && headingRe.MatchString(line):
			// Every marker run is removed, not only the leading one.
			section = strings.TrimFunc(markerRe.ReplaceAllString(line, ""), isSpace)
		}

		if err != nil {
			break
		}
	}

	return examples, nil
}

// ParseFile decodes path with mode and parses it.
func ParseFile(path string, mode textenc.Mode) ([]Example, error) {
	text, _, err := textenc.ReadFile(path, mode)
	if err != nil {
		return nil, err
	}
	return Parse(strings.NewReader(text))
}

// isSpace matches the characters Python's str.strip removes: Unicode white
// space plus the ASCII file, group, record and unit separators.
func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}
