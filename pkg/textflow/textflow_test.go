package textflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextIndentation(t *testing.T) {
	f := NewText(Options{Indent: "  ", MaxWidth: 40})
	f.Append("define foo(")
	f.ChangeIndentation(1)
	f.AppendBreaks(1)
	f.Append("$a,")
	f.AppendBreaks(1)
	f.Append("$b")
	f.ChangeIndentation(-1)
	f.Append(")")
	f.AppendSpaces(1)
	f.Append("{}")

	assert.Equal(t, "define foo(\n  $a,\n  $b) {}", f.String())
	assert.Equal(t, 2, f.Height())
	assert.Equal(t, len("  $b) {}"), f.WidthOfLastLine())
	assert.Equal(t, 40, f.PreferredMaxWidth())
}

func TestBreakResetsWidthToIndent(t *testing.T) {
	f := NewText(Options{Indent: "\t", TabWidth: 8})
	f.Append("abc")
	f.ChangeIndentation(2)
	f.AppendBreaks(2)
	assert.Equal(t, 16, f.WidthOfLastLine())
	assert.True(t, f.AtLineStart())
	assert.Equal(t, 2, f.Height())

	// Indentation is only written once the line gets content.
	assert.Equal(t, "abc\n\n", f.String())
	f.Append("x")
	assert.Equal(t, "abc\n\n\t\tx", f.String())
	assert.Equal(t, 17, f.WidthOfLastLine())
}

func TestSpacesDroppedAtLineStart(t *testing.T) {
	f := NewText(Options{})
	f.AppendSpaces(3)
	f.Append("a")
	f.AppendBreaks(1)
	f.AppendSpaces(2)
	f.Append("b")
	assert.Equal(t, "a\nb", f.String())
}

func TestIndentationNeverNegative(t *testing.T) {
	f := NewMeasure(Options{})
	f.ChangeIndentation(-3)
	assert.Equal(t, 0, f.IndentationLevel())
	f.ChangeIndentation(2)
	assert.Equal(t, 2, f.IndentationLevel())
}

func TestHeightOnlyIncreases(t *testing.T) {
	f := NewMeasure(Options{Indent: "  "})
	prev := f.Height()
	for _, step := range []func(){
		func() { f.Append("abc") },
		func() { f.AppendBreaks(0) },
		func() { f.AppendBreaks(2) },
		func() { f.AppendSpaces(4) },
		func() { f.Append("x\ny\nz") },
		func() { f.ChangeIndentation(-1) },
	} {
		step()
		require.GreaterOrEqual(t, f.Height(), prev)
		prev = f.Height()
	}
	assert.Equal(t, 4, prev)
}

func TestEmbeddedNewlinesRestartAtColumnZero(t *testing.T) {
	f := NewText(Options{Indent: "    "})
	f.ChangeIndentation(1)
	f.AppendBreaks(1)
	f.Append("<<-EOT\nbody\nEOT")
	assert.Equal(t, "\n    <<-EOT\nbody\nEOT", f.String())
	assert.Equal(t, 3, f.Height())
	assert.Equal(t, 3, f.WidthOfLastLine())
}

func TestForkIsIndependent(t *testing.T) {
	f := NewText(Options{Indent: "  ", MaxWidth: 10})
	f.Append("hello")

	fork := f.Fork()
	assert.Equal(t, f.Height(), fork.Height())
	assert.Equal(t, f.WidthOfLastLine(), fork.WidthOfLastLine())
	assert.Equal(t, f.PreferredMaxWidth(), fork.PreferredMaxWidth())

	fork.Append(", world")
	fork.ChangeIndentation(1)
	fork.AppendBreaks(3)

	assert.Equal(t, "hello", f.String())
	assert.Equal(t, 0, f.Height())
	assert.Equal(t, 5, f.WidthOfLastLine())
	assert.Equal(t, 0, f.IndentationLevel())
	assert.Equal(t, 3, fork.Height())
	assert.Equal(t, 2, fork.WidthOfLastLine())

	// Forks of forks are independent too.
	again := fork.Fork()
	again.Append("abc")
	assert.Equal(t, 2, fork.WidthOfLastLine())
	assert.Equal(t, 5, again.WidthOfLastLine())
}

func TestWidths(t *testing.T) {
	assert.Equal(t, 2, StringWidth("日"))
	assert.Equal(t, 3, StringWidth("\x1b[1mabc\x1b[0m"))
	assert.Equal(t, 4, Advance(0, "\t", 4))
	assert.Equal(t, 8, Advance(2, "ab\t", 4))
	assert.Equal(t, 5, Advance(0, "\tx", 4))
}
