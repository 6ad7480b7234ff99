package dom

import "fmt"

// BuildOptions configures a Builder.
type BuildOptions struct {
	// ImplyWhitespace inserts an empty whitespace leaf between two adjacent
	// tokens (or a comment and a token) that had no whitespace between them
	// in the source, so that every gap is a place a style can be attached.
	ImplyWhitespace bool
}

// Builder constructs a Tree in document order.
type Builder struct {
	opts  BuildOptions
	tree  *Tree
	stack []ID
	last  ID // last leaf added
	built bool
}

// NewBuilder returns a builder whose root composite has construct root.
func NewBuilder(root Construct, semantic any, opts BuildOptions) *Builder {
	b := &Builder{opts: opts, tree: &Tree{}, last: None}
	b.stack = append(b.stack, b.add(Node{
		Kind:      KindComposite,
		Construct: root,
		Semantic:  semantic,
		Parent:    None,
	}))
	return b
}

func (b *Builder) add(n Node) ID {
	if b.built {
		panic("dom: builder used after Tree()")
	}
	id := ID(len(b.tree.nodes))
	n.end = id
	if len(b.stack) > 0 {
		parent := b.stack[len(b.stack)-1]
		n.Parent = parent
		b.tree.nodes[parent].Children = append(b.tree.nodes[parent].Children, id)
	}
	b.tree.nodes = append(b.tree.nodes, n)
	if n.Kind != KindComposite {
		b.tree.leaves = append(b.tree.leaves, id)
		b.last = id
	}
	return id
}

// needsGap reports whether a leaf of kind k must be preceded by an implied
// whitespace leaf.
func (b *Builder) needsGap(k Kind) bool {
	if !b.opts.ImplyWhitespace || b.last == None || k == KindWhitespace {
		return false
	}
	return b.tree.nodes[b.last].Kind != KindWhitespace
}

func (b *Builder) gap(at int) {
	b.add(Node{Kind: KindWhitespace, Implied: true, Span: Span{Offset: at}})
}

// Open starts a composite node as a child of the current one and makes it
// current.
func (b *Builder) Open(c Construct, semantic any, at int) ID {
	// The gap in front of a construct belongs to the enclosing node so the
	// construct itself starts with its first token.
	if b.needsGap(KindToken) {
		b.gap(at)
	}
	id := b.add(Node{Kind: KindComposite, Construct: c, Semantic: semantic, Span: Span{Offset: at}})
	b.stack = append(b.stack, id)
	return id
}

// Close ends the current composite node.
func (b *Builder) Close() {
	if len(b.stack) <= 1 {
		panic("dom: Close without matching Open")
	}
	id := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	b.finish(id)
}

func (b *Builder) finish(id ID) {
	n := &b.tree.nodes[id]
	n.end = ID(len(b.tree.nodes) - 1)
	if last := b.tree.nodes[n.end].Span.End(); last > n.Span.Offset {
		n.Span.Length = last - n.Span.Offset
	}
}

// Token adds a token leaf.
func (b *Builder) Token(role Role, text string, span Span) ID {
	if b.needsGap(KindToken) {
		b.gap(span.Offset)
	}
	return b.add(Node{Kind: KindToken, Role: role, Text: text, Span: span})
}

// Whitespace adds a whitespace leaf. Whitespace directly following another
// whitespace leaf is merged into it.
func (b *Builder) Whitespace(text string, span Span) ID {
	if b.last != None {
		if prev := &b.tree.nodes[b.last]; prev.Kind == KindWhitespace && prev.Parent == b.stack[len(b.stack)-1] {
			if prev.Implied {
				prev.Implied = false
				prev.Span = span
			} else {
				prev.Span.Length = span.End() - prev.Span.Offset
			}
			prev.Text += text
			return b.last
		}
	}
	return b.add(Node{Kind: KindWhitespace, Text: text, Span: span})
}

// Comment adds a comment leaf.
func (b *Builder) Comment(text string, span Span) ID {
	if b.needsGap(KindComment) {
		b.gap(span.Offset)
	}
	return b.add(Node{Kind: KindComment, Text: text, Span: span})
}

// Tree finishes the root node and returns the tree. The builder must not be
// used afterwards.
func (b *Builder) Tree() (*Tree, error) {
	if len(b.stack) != 1 {
		return nil, fmt.Errorf("dom: %d unclosed composite nodes", len(b.stack)-1)
	}
	b.finish(b.stack[0])
	b.built = true
	return b.tree, nil
}
