package layout

import (
	"errors"
	"strings"

	"github.com/aureatesting/geppetto/pkg/dom"
	"github.com/aureatesting/geppetto/pkg/textflow"
)

// Format runs a pass over tree and returns the formatted text.
//
// Trailing whitespace is trimmed from every line, newlines are replaced by
// the context's line separator and the result ends in exactly one line
// separator, unless it is empty.
func Format(tree *dom.Tree, ctx *Context) (string, error) {
	if tree == nil || tree.Root() == dom.None {
		return "", errors.New("layout: empty tree")
	}
	p := NewPass(tree, ctx)
	return p.Run(), nil
}

// Run feeds the whole tree into a fresh text flow and post-processes the
// result.
func (p *Pass) Run() string {
	flow := textflow.NewText(textflow.Options{
		MaxWidth: p.ctx.MaxWidth,
		Indent:   p.ctx.Indent,
		TabWidth: p.ctx.TabWidth,
	})
	p.Sequence(p.tree.Root(), flow)
	return finish(flow.String(), p.ctx.LineSeparator)
}

func finish(s, sep string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	s = strings.TrimRight(strings.Join(lines, "\n"), "\n")
	if s == "" {
		return ""
	}
	if sep == "" {
		sep = "\n"
	}
	return strings.ReplaceAll(s+"\n", "\n", sep)
}
