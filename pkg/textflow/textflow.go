// Package textflow accumulates formatted output while tracking its
// geometry: the width of the last line, the number of line breaks emitted so
// far and the preferred maximum width.
//
// A flow can be forked into a Measure that starts from the same geometry
// but writes nowhere, which lets a layout render a subtree speculatively,
// look at the result and throw it away.
package textflow

import (
	"strings"
)

// Flow is an append-only sink for formatted text.
type Flow interface {
	// Append writes literal text. Newlines inside text start a new line
	// without indentation.
	Append(text string)
	// AppendSpaces writes n spaces. Spaces at the start of a line are
	// dropped.
	AppendSpaces(n int)
	// AppendBreaks emits n line breaks; the next line starts at the current
	// indentation.
	AppendBreaks(n int)
	// ChangeIndentation adjusts the indentation level by delta units. The
	// level never drops below zero.
	ChangeIndentation(delta int)

	Height() int
	WidthOfLastLine() int
	PreferredMaxWidth() int
	IndentationLevel() int
	// AtLineStart reports whether nothing but indentation has been written
	// on the current line.
	AtLineStart() bool

	// Fork returns a continuation seeded with this flow's geometry. Writes
	// to the continuation never affect the receiver.
	Fork() Flow
}

// Options configures a flow.
type Options struct {
	// MaxWidth is the preferred maximum line width.
	MaxWidth int
	// Indent is the text of one indentation unit.
	Indent string
	// TabWidth is the distance between tab stops.
	TabWidth int
}

func (o Options) withDefaults() Options {
	if o.MaxWidth <= 0 {
		o.MaxWidth = 80
	}
	if o.TabWidth <= 0 {
		o.TabWidth = 4
	}
	return o
}

// Measure is a Flow that tracks geometry without keeping any text.
type Measure struct {
	opts Options

	level     int
	height    int
	width     int
	lineStart bool
}

var _ Flow = (*Measure)(nil)

// NewMeasure returns an empty measuring flow.
func NewMeasure(opts Options) *Measure {
	return &Measure{opts: opts.withDefaults(), lineStart: true}
}

func (m *Measure) indentWidth() int {
	col := 0
	for range m.level {
		col = Advance(col, m.opts.Indent, m.opts.TabWidth)
	}
	return col
}

func (m *Measure) Append(text string) {
	if text == "" {
		return
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i > 0 {
			m.height++
			m.width = 0
			m.lineStart = false
		}
		if line != "" {
			m.width = Advance(m.width, line, m.opts.TabWidth)
			m.lineStart = false
		}
	}
}

func (m *Measure) AppendSpaces(n int) {
	if n <= 0 || m.lineStart {
		return
	}
	m.width += n
}

func (m *Measure) AppendBreaks(n int) {
	if n <= 0 {
		return
	}
	m.height += n
	m.width = m.indentWidth()
	m.lineStart = true
}

func (m *Measure) ChangeIndentation(delta int) {
	m.level = max(0, m.level+delta)
}

func (m *Measure) Height() int            { return m.height }
func (m *Measure) WidthOfLastLine() int   { return m.width }
func (m *Measure) PreferredMaxWidth() int { return m.opts.MaxWidth }
func (m *Measure) IndentationLevel() int  { return m.level }
func (m *Measure) AtLineStart() bool      { return m.lineStart }

func (m *Measure) Fork() Flow {
	c := *m
	return &c
}

// Text is a Flow that keeps the emitted text.
type Text struct {
	Measure

	buf strings.Builder
	// pending is set after a break until the indentation of the new line
	// has been written.
	pending bool
}

var _ Flow = (*Text)(nil)

// NewText returns an empty text flow.
func NewText(opts Options) *Text {
	return &Text{Measure: *NewMeasure(opts)}
}

func (t *Text) writeIndent() {
	if !t.pending {
		return
	}
	t.pending = false
	for range t.level {
		t.buf.WriteString(t.opts.Indent)
	}
}

func (t *Text) Append(text string) {
	if text == "" {
		return
	}
	if text[0] != '\n' {
		t.writeIndent()
	}
	t.pending = false
	t.buf.WriteString(text)
	t.Measure.Append(text)
}

func (t *Text) AppendSpaces(n int) {
	if n <= 0 || t.lineStart {
		return
	}
	t.buf.WriteString(strings.Repeat(" ", n))
	t.Measure.AppendSpaces(n)
}

func (t *Text) AppendBreaks(n int) {
	if n <= 0 {
		return
	}
	t.buf.WriteString(strings.Repeat("\n", n))
	t.Measure.AppendBreaks(n)
	t.pending = true
}

// Fork returns a Measure; the continuation never keeps text.
func (t *Text) Fork() Flow {
	return t.Measure.Fork()
}

// String returns the text emitted so far.
func (t *Text) String() string {
	return t.buf.String()
}
