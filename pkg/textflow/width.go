package textflow

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// StringWidth returns the display width of s, ignoring ANSI escape
// sequences and accounting for wide characters. Tabs count as one column;
// use Advance when tab stops matter.
func StringWidth(s string) int {
	return ansi.StringWidth(s)
}

// Advance returns the column reached by writing text (without newlines)
// starting at column, expanding tabs to the next multiple of tabWidth.
func Advance(column int, text string, tabWidth int) int {
	if tabWidth <= 0 {
		tabWidth = 1
	}
	for i, seg := range strings.Split(text, "\t") {
		if i > 0 {
			column += tabWidth - column%tabWidth
		}
		column += ansi.StringWidth(seg)
	}
	return column
}
