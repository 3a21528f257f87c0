package crystal

import (
	"strings"
)

// Writer accumulates output lines at the current indentation level.
// It knows nothing about Crystal; emitters decide what the lines say.
type Writer struct {
	indentUnit    string
	commentPrefix string
	level         int
	lines         []string
}

// NewWriter returns a writer that indents nested blocks by indentUnit and
// starts comment lines with commentPrefix.
func NewWriter(indentUnit, commentPrefix string) *Writer {
	return &Writer{indentUnit: indentUnit, commentPrefix: commentPrefix}
}

// Puts appends each line at the current indentation. Empty strings are
// written as blank lines without trailing whitespace.
func (w *Writer) Puts(lines ...string) {
	prefix := strings.Repeat(w.indentUnit, w.level)
	for _, line := range lines {
		if line == "" {
			w.lines = append(w.lines, "")
			continue
		}
		w.lines = append(w.lines, prefix+line)
	}
}

// Blank appends an empty line unless the output is empty or already ends
// with one.
func (w *Writer) Blank() {
	if len(w.lines) == 0 || w.lines[len(w.lines)-1] == "" {
		return
	}
	w.lines = append(w.lines, "")
}

// Comment writes text as comment lines, one per line of text.
func (w *Writer) Comment(text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			w.Puts(strings.TrimRight(w.commentPrefix, " "))
			continue
		}
		w.Puts(w.commentPrefix + line)
	}
}

// Indent runs fn one level deeper. The previous level is restored when fn
// returns, fails or panics.
func (w *Writer) Indent(fn func() error) error {
	w.level++
	defer func() { w.level-- }()
	return fn()
}

// Block runs fn one level deeper, for bodies that cannot fail.
func (w *Writer) Block(fn func()) {
	w.level++
	defer func() { w.level-- }()
	fn()
}

// Level returns the current indentation depth.
func (w *Writer) Level() int {
	return w.level
}

// String returns the accumulated text. A non-empty result ends with a newline.
func (w *Writer) String() string {
	if len(w.lines) == 0 {
		return ""
	}
	return strings.Join(w.lines, "\n") + "\n"
}
