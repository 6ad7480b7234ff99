package pp

import (
	"fmt"
	"strings"

	"github.com/aureatesting/geppetto/pkg/dom"
)

// Kind is the grammar construct a Node instantiates. It is used directly as
// the dom.Construct of the composite DOM nodes built from the tree.
type Kind int

const (
	// Leaf is the kind of nodes that wrap a single token.
	Leaf Kind = iota
	Manifest
	Block
	Definition
	HostClass
	NodeDefinition
	DefinitionArgumentList
	DefinitionArgument
	Resource
	ResourceBody
	AttributeOperation
	Assignment
	FunctionCall
	CallArguments
	Case
	CaseOption
	If
	Elsif
	Else
	Unless
	Selector
	SelectorBody
	Array
	Hash
	HashEntry
	Access
	AccessArguments
	Binary
	Relationship
	Unary
	Parenthesized
)

var kindNames = [...]string{
	Leaf:                   "Leaf",
	Manifest:               "Manifest",
	Block:                  "Block",
	Definition:             "Definition",
	HostClass:              "HostClass",
	NodeDefinition:         "NodeDefinition",
	DefinitionArgumentList: "DefinitionArgumentList",
	DefinitionArgument:     "DefinitionArgument",
	Resource:               "Resource",
	ResourceBody:           "ResourceBody",
	AttributeOperation:     "AttributeOperation",
	Assignment:             "Assignment",
	FunctionCall:           "FunctionCall",
	CallArguments:          "CallArguments",
	Case:                   "Case",
	CaseOption:             "CaseOption",
	If:                     "If",
	Elsif:                  "Elsif",
	Else:                   "Else",
	Unless:                 "Unless",
	Selector:               "Selector",
	SelectorBody:           "SelectorBody",
	Array:                  "Array",
	Hash:                   "Hash",
	HashEntry:              "HashEntry",
	Access:                 "Access",
	AccessArguments:        "AccessArguments",
	Binary:                 "Binary",
	Relationship:           "Relationship",
	Unary:                  "Unary",
	Parenthesized:          "Parenthesized",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

var _ dom.Construct = Kind(0)

// Node is a concrete syntax tree node. Leaves wrap one token and carry the
// role the token plays in its parent; composites hold their children in
// source order.
type Node struct {
	Kind     Kind
	Token    *Token
	Role     dom.Role
	Children []*Node
}

func leaf(tok *Token, role dom.Role) *Node {
	return &Node{Kind: Leaf, Token: tok, Role: role}
}

func composite(kind Kind, children ...*Node) *Node {
	return &Node{Kind: kind, Children: children}
}

func (n *Node) add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// IsLeaf reports whether n wraps a token.
func (n *Node) IsLeaf() bool { return n.Kind == Leaf }

// FirstToken returns the leftmost token below n, or nil for an empty
// composite.
func (n *Node) FirstToken() *Token {
	if n.IsLeaf() {
		return n.Token
	}
	for _, c := range n.Children {
		if t := c.FirstToken(); t != nil {
			return t
		}
	}
	return nil
}

// Find returns the first descendant of n (n included) of the given kind,
// in pre-order, or nil.
func (n *Node) Find(kind Kind) *Node {
	if n.Kind == kind {
		return n
	}
	for _, c := range n.Children {
		if f := c.Find(kind); f != nil {
			return f
		}
	}
	return nil
}

// String renders the tokens of n separated by single spaces. It is meant
// for debugging and tests.
func (n *Node) String() string {
	var parts []string
	var walk func(*Node)
	walk = func(n *Node) {
		if n.IsLeaf() {
			parts = append(parts, n.Token.Text)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

// File is a parsed manifest.
type File struct {
	Name   string
	Source string
	Root   *Node
	// EOF holds the trivia after the last token.
	EOF *Token
}
