package layout

import (
	"github.com/aureatesting/geppetto/pkg/dom"
	"github.com/aureatesting/geppetto/pkg/style"
)

// StyleMap holds the style of every node of one tree: the rule-based base
// computed from the sheet, plus the sets construct layouts attach during the
// pass.
//
// A fork records its own attachments on top of its parent's and never
// writes through to it, so a speculative measurement can mark up a subtree
// and throw the result away with the fork.
type StyleMap struct {
	parent   *StyleMap
	base     []style.Set
	assigned map[dom.ID]style.Set
}

// NewStyleMap returns a map over the given base sets, indexed by node ID.
func NewStyleMap(base []style.Set) *StyleMap {
	return &StyleMap{base: base}
}

// Fork returns a child overlay.
func (m *StyleMap) Fork() *StyleMap {
	return &StyleMap{parent: m, base: m.base}
}

// Assigned returns the union of all sets attached to id through Add, on this
// map and its ancestors.
func (m *StyleMap) Assigned(id dom.ID) style.Set {
	var set style.Set
	if m.parent != nil {
		set = m.parent.Assigned(id)
	}
	if own, ok := m.assigned[id]; ok {
		set = set.Merge(own)
	}
	return set
}

// Effective returns the style the feeder applies to id.
func (m *StyleMap) Effective(id dom.ID) style.Set {
	var set style.Set
	if int(id) >= 0 && int(id) < len(m.base) {
		set = m.base[id]
	}
	return set.Merge(m.Assigned(id))
}

// Add unions set into the styles attached to id. Directives already present
// on other axes survive.
func (m *StyleMap) Add(id dom.ID, set style.Set) {
	if m.assigned == nil {
		m.assigned = map[dom.ID]style.Set{}
	}
	m.assigned[id] = m.assigned[id].Merge(set)
}
