// Package dom holds the document tree a formatting pass works on.
//
// A Tree is an arena of nodes stored in document (pre-)order, so a node's
// descendants occupy the contiguous ID range directly after it. Leaves carry
// literal text: tokens, comments and the whitespace between them. Composite
// nodes stand for a grammar construct and only group their children.
//
// The tree is read-only once built. Styles are not stored on nodes; a
// layout pass keeps them in a map keyed by ID.
package dom

import (
	"fmt"
	"iter"
	"sort"
	"strings"
)

// ID addresses a node within its Tree.
type ID int

// None is the ID of a missing node.
const None ID = -1

// Kind distinguishes composites from the different kinds of leaves.
type Kind uint8

const (
	KindComposite Kind = iota + 1
	KindToken
	KindWhitespace
	KindComment
)

func (k Kind) String() string {
	switch k {
	case KindComposite:
		return "composite"
	case KindToken:
		return "token"
	case KindWhitespace:
		return "whitespace"
	case KindComment:
		return "comment"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Construct identifies the grammar rule a composite node instantiates. The
// grammar package defines the concrete values; they must be comparable.
type Construct interface {
	String() string
}

// Role is the position a token plays within its enclosing construct. It is
// resolved once, when the tree is built, so layout code switches over a
// closed set instead of comparing grammar objects.
type Role uint8

const (
	RoleNone Role = iota
	RoleOpen
	RoleSeparator
	RoleEndSeparator
	RoleClose
	RoleAlign
	RoleColon
	RoleKeyword
	RoleName
	RoleVariable
	RoleOperator
	RoleLiteral
)

var roleNames = map[Role]string{
	RoleNone:         "none",
	RoleOpen:         "open",
	RoleSeparator:    "separator",
	RoleEndSeparator: "end-separator",
	RoleClose:        "close",
	RoleAlign:        "align-operator",
	RoleColon:        "colon",
	RoleKeyword:      "keyword",
	RoleName:         "name",
	RoleVariable:     "variable",
	RoleOperator:     "operator",
	RoleLiteral:      "literal",
}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Span locates a node in the source text, in bytes.
type Span struct {
	Offset int
	Length int
}

// End returns the offset just past the span.
func (s Span) End() int { return s.Offset + s.Length }

// Node is one position in the serialized output.
type Node struct {
	Kind      Kind
	Construct Construct // composites only
	Role      Role      // tokens only
	Text      string    // leaves only
	Span      Span

	// Implied marks whitespace that did not exist in the source and was
	// inserted by the builder between two adjacent tokens.
	Implied bool

	// Semantic is the syntax tree element the node was built from, if any.
	Semantic any

	Parent   ID
	Children []ID

	end ID // last descendant; equal to the node's own ID for leaves
}

// Tree is an arena of nodes in document order. The root has ID 0.
type Tree struct {
	nodes  []Node
	leaves []ID
}

// Root returns the ID of the root node, or None for an empty tree.
func (t *Tree) Root() ID {
	if len(t.nodes) == 0 {
		return None
	}
	return 0
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node with the given ID.
func (t *Tree) Node(id ID) *Node {
	return &t.nodes[id]
}

func (t *Tree) valid(id ID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

// Parent returns the parent of id, or None for the root.
func (t *Tree) Parent(id ID) ID {
	if !t.valid(id) {
		return None
	}
	return t.nodes[id].Parent
}

// Ancestor walks up n levels. Ancestor(id, 0) is id itself.
func (t *Tree) Ancestor(id ID, n int) ID {
	for ; n > 0 && id != None; n-- {
		id = t.Parent(id)
	}
	return id
}

// Children returns the ordered children of id.
func (t *Tree) Children(id ID) []ID {
	if !t.valid(id) {
		return nil
	}
	return t.nodes[id].Children
}

// IsLeaf reports whether id is a token, comment or whitespace node.
func (t *Tree) IsLeaf(id ID) bool {
	return t.valid(id) && t.nodes[id].Kind != KindComposite
}

// IsWhitespace reports whether id is a leaf holding only inter-token
// whitespace. It is false for None.
func (t *Tree) IsWhitespace(id ID) bool {
	return t.valid(id) && t.nodes[id].Kind == KindWhitespace
}

// IsComment reports whether id is a comment leaf.
func (t *Tree) IsComment(id ID) bool {
	return t.valid(id) && t.nodes[id].Kind == KindComment
}

// ConstructOf returns the construct of a composite, or nil.
func (t *Tree) ConstructOf(id ID) Construct {
	if !t.valid(id) {
		return nil
	}
	return t.nodes[id].Construct
}

// NextLeaf returns the first leaf after id's subtree in document order.
func (t *Tree) NextLeaf(id ID) ID {
	if !t.valid(id) {
		return None
	}
	end := t.nodes[id].end
	i := sort.Search(len(t.leaves), func(i int) bool { return t.leaves[i] > end })
	if i == len(t.leaves) {
		return None
	}
	return t.leaves[i]
}

// PreviousLeaf returns the last leaf before id in document order.
func (t *Tree) PreviousLeaf(id ID) ID {
	if !t.valid(id) {
		return None
	}
	i := sort.Search(len(t.leaves), func(i int) bool { return t.leaves[i] >= id })
	if i == 0 {
		return None
	}
	return t.leaves[i-1]
}

// FirstLeaf returns the first leaf within id's subtree.
func (t *Tree) FirstLeaf(id ID) ID {
	if !t.valid(id) {
		return None
	}
	i := sort.Search(len(t.leaves), func(i int) bool { return t.leaves[i] >= id })
	if i == len(t.leaves) || t.leaves[i] > t.nodes[id].end {
		return None
	}
	return t.leaves[i]
}

// LastLeaf returns the last leaf within id's subtree.
func (t *Tree) LastLeaf(id ID) ID {
	if !t.valid(id) {
		return None
	}
	end := t.nodes[id].end
	i := sort.Search(len(t.leaves), func(i int) bool { return t.leaves[i] > end })
	if i == 0 || t.leaves[i-1] < id {
		return None
	}
	return t.leaves[i-1]
}

// NextSibling returns the sibling following id, or None.
func (t *Tree) NextSibling(id ID) ID {
	p := t.Parent(id)
	if p == None {
		return None
	}
	end := t.nodes[id].end
	if next := end + 1; t.valid(next) && t.nodes[next].Parent == p {
		return next
	}
	return None
}

// PreviousSibling returns the sibling preceding id, or None.
func (t *Tree) PreviousSibling(id ID) ID {
	p := t.Parent(id)
	if p == None {
		return None
	}
	siblings := t.nodes[p].Children
	for i, c := range siblings {
		if c == id {
			if i == 0 {
				return None
			}
			return siblings[i-1]
		}
	}
	return None
}

// Walk yields id and every node below it in document order.
func (t *Tree) Walk(id ID) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		if !t.valid(id) {
			return
		}
		for n := id; n <= t.nodes[id].end; n++ {
			if !yield(n) {
				return
			}
		}
	}
}

// Leaves yields the leaves of id's subtree in document order.
func (t *Tree) Leaves(id ID) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		for n := range t.Walk(id) {
			if t.nodes[n].Kind != KindComposite && !yield(n) {
				return
			}
		}
	}
}

// Text returns the concatenated source text of id's leaves.
func (t *Tree) Text(id ID) string {
	var sb strings.Builder
	for n := range t.Leaves(id) {
		sb.WriteString(t.nodes[n].Text)
	}
	return sb.String()
}

// TokenText returns the concatenated text of the tokens below id, skipping
// whitespace and comments.
func (t *Tree) TokenText(id ID) string {
	var sb strings.Builder
	for n := range t.Leaves(id) {
		if t.nodes[n].Kind == KindToken {
			sb.WriteString(t.nodes[n].Text)
		}
	}
	return sb.String()
}

// Depth returns the number of ancestors of id.
func (t *Tree) Depth(id ID) int {
	d := 0
	for p := t.Parent(id); p != None; p = t.Parent(p) {
		d++
	}
	return d
}

// Dump writes an indented outline of the tree, one node per line. The
// annotate callback may append extra text to each line.
func (t *Tree) Dump(sb *strings.Builder, annotate func(ID) string) {
	for id := range t.Walk(t.Root()) {
		n := &t.nodes[id]
		sb.WriteString(strings.Repeat("  ", t.Depth(id)))
		switch n.Kind {
		case KindComposite:
			fmt.Fprintf(sb, "%d %v", id, n.Construct)
		case KindToken:
			fmt.Fprintf(sb, "%d %q %v", id, n.Text, n.Role)
		default:
			fmt.Fprintf(sb, "%d %v %q", id, n.Kind, n.Text)
			if n.Implied {
				sb.WriteString(" implied")
			}
		}
		if annotate != nil {
			if extra := annotate(id); extra != "" {
				sb.WriteString(" ")
				sb.WriteString(extra)
			}
		}
		sb.WriteString("\n")
	}
}
