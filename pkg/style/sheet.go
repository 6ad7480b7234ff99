package style

import (
	"github.com/aureatesting/geppetto/pkg/dom"
)

// Selector picks the DOM nodes a Rule applies to. Zero-valued fields match
// anything; all set fields must match.
type Selector struct {
	// Kind of the node.
	Kind dom.Kind
	// Construct of the node itself (composites).
	Construct dom.Construct
	// In is the construct of the node's parent.
	In dom.Construct
	// Role of the node (tokens).
	Role dom.Role
	// Text of the node (leaves).
	Text string
	// After must match the leaf directly before the node.
	After *Selector
	// Before must match the leaf directly after the node.
	Before *Selector
	// Where is an arbitrary extra test.
	Where func(t *dom.Tree, id dom.ID) bool
}

// Matches reports whether id satisfies the selector.
func (s *Selector) Matches(t *dom.Tree, id dom.ID) bool {
	if id == dom.None {
		return false
	}
	n := t.Node(id)
	if s.Kind != 0 && n.Kind != s.Kind {
		return false
	}
	if s.Construct != nil && n.Construct != s.Construct {
		return false
	}
	if s.In != nil && t.ConstructOf(n.Parent) != s.In {
		return false
	}
	if s.Role != dom.RoleNone && n.Role != s.Role {
		return false
	}
	if s.Text != "" && n.Text != s.Text {
		return false
	}
	if s.After != nil && !s.After.Matches(t, t.PreviousLeaf(id)) {
		return false
	}
	if s.Before != nil && !s.Before.Matches(t, t.NextLeaf(id)) {
		return false
	}
	if s.Where != nil && !s.Where(t, id) {
		return false
	}
	return true
}

// Rule assigns a style set to every node its selector matches.
type Rule struct {
	Name     string
	Selector Selector
	Styles   Set
}

// Sheet is an ordered list of rules. All rules matching a node contribute
// to its style; later rules override earlier ones on the same axis.
type Sheet struct {
	Rules []Rule
}

// NewSheet returns a sheet holding rules.
func NewSheet(rules ...Rule) *Sheet {
	return &Sheet{Rules: rules}
}

// Add appends rules; they take precedence over the existing ones.
func (s *Sheet) Add(rules ...Rule) *Sheet {
	s.Rules = append(s.Rules, rules...)
	return s
}

// Resolve computes the rule-based style of a node.
func (s *Sheet) Resolve(t *dom.Tree, id dom.ID) Set {
	var set Set
	if s == nil {
		return set
	}
	for i := range s.Rules {
		r := &s.Rules[i]
		if r.Selector.Matches(t, id) {
			set = set.Merge(r.Styles)
		}
	}
	return set
}

// ResolveAll computes the rule-based style of every node in the tree,
// indexed by ID.
func (s *Sheet) ResolveAll(t *dom.Tree) []Set {
	sets := make([]Set, t.Len())
	for id := range t.Walk(t.Root()) {
		sets[id] = s.Resolve(t, id)
	}
	return sets
}
