package pp

import (
	"github.com/aureatesting/geppetto/pkg/dom"
)

// BuildDOM converts a parsed file into a DOM tree. Composite nodes get the
// syntax node's Kind as construct and the *Node itself as semantic value;
// leaves keep the role assigned by the parser.
//
// Whitespace and comments in front of a construct are placed in the
// enclosing node, so every composite starts with its first token.
func BuildDOM(f *File, opts dom.BuildOptions) (*dom.Tree, error) {
	b := &domBuilder{
		b:    dom.NewBuilder(f.Root.Kind, f.Root, opts),
		seen: map[*Token]bool{},
	}
	for _, c := range f.Root.Children {
		b.node(c)
	}
	if f.EOF != nil {
		b.trivia(f.EOF)
	}
	return b.b.Tree()
}

type domBuilder struct {
	b    *dom.Builder
	seen map[*Token]bool
}

func (b *domBuilder) trivia(tok *Token) {
	if b.seen[tok] {
		return
	}
	b.seen[tok] = true
	for _, tr := range tok.Leading {
		span := dom.Span{Offset: tr.Offset, Length: len(tr.Text)}
		if tr.Comment {
			b.b.Comment(tr.Text, span)
		} else {
			b.b.Whitespace(tr.Text, span)
		}
	}
}

func (b *domBuilder) node(n *Node) {
	if n.IsLeaf() {
		b.trivia(n.Token)
		b.b.Token(n.Role, n.Token.Text, dom.Span{Offset: n.Token.Offset, Length: len(n.Token.Text)})
		return
	}
	at := 0
	if first := n.FirstToken(); first != nil {
		b.trivia(first)
		at = first.Offset
	}
	b.b.Open(n.Kind, n, at)
	for _, c := range n.Children {
		b.node(c)
	}
	b.b.Close()
}
