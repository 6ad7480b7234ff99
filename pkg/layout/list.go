package layout

import (
	"fmt"

	"github.com/aureatesting/geppetto/pkg/cluster"
	"github.com/aureatesting/geppetto/pkg/dom"
	"github.com/aureatesting/geppetto/pkg/style"
	"github.com/aureatesting/geppetto/pkg/textflow"
)

// DefaultDispersion is the clustering threshold used when a ListLayout does
// not set one.
const DefaultDispersion = 20

// Predicate tests whether node n plays some part in the list construct list.
type Predicate func(t *dom.Tree, list, n dom.ID) bool

// Child matches tokens with the given role directly under the list node.
func Child(role dom.Role) Predicate {
	return func(t *dom.Tree, list, n dom.ID) bool {
		return t.Node(n).Kind == dom.KindToken && t.Node(n).Role == role && t.Parent(n) == list
	}
}

// Grandchild matches tokens with the given role inside an item of the list,
// optionally requiring the item to be one of the given constructs.
func Grandchild(role dom.Role, items ...dom.Construct) Predicate {
	return func(t *dom.Tree, list, n dom.ID) bool {
		if t.Node(n).Kind != dom.KindToken || t.Node(n).Role != role || t.Ancestor(n, 2) != list {
			return false
		}
		if len(items) == 0 {
			return true
		}
		item := t.ConstructOf(t.Parent(n))
		for _, c := range items {
			if c == item {
				return true
			}
		}
		return false
	}
}

// ListLayout lays out a delimited, separated list of items. If the list
// renders on the current line it is left alone; otherwise it is broken
// after the opening delimiter and after every separator, indented by one
// level, and designated operators inside the items are aligned.
//
// A trailing separator before the closing delimiter gets no break of its
// own.
type ListLayout struct {
	Name string

	Open      Predicate
	Separator Predicate
	Close     Predicate
	// Align selects operator tokens whose columns are lined up across
	// items. The width of the item text in front of each operator is
	// clustered, and every operator is padded to its cluster's maximum.
	Align Predicate

	// BreakBeforeClose also puts the closing delimiter on its own line.
	BreakBeforeClose bool
	// Trailing means the list has no closing delimiter of its own: the
	// dedent is attached to the whitespace following the list.
	Trailing bool
	// Dispersion is the alignment clustering threshold.
	Dispersion int
}

var _ Manager = (*ListLayout)(nil)

func (l *ListLayout) Format(p *Pass, _ style.Set, n dom.ID, flow textflow.Flow) bool {
	if !l.hasItems(p.Tree(), n) {
		return false
	}
	m, err := p.Measure(flow, n)
	if err != nil {
		p.Logger().Warn("layout fell back to default", "layout", l.Name, "node", n, "error", err)
		p.Report(Warning, n, fmt.Sprintf("%s: %v", l.Name, err))
		return false
	}
	if !m.Fits() {
		l.markup(p, n)
	}
	return false
}

// hasItems reports whether n holds at least one item, and its opening token
// if the layout has one. Lists without an opener have nowhere to break.
func (l *ListLayout) hasItems(t *dom.Tree, n dom.ID) bool {
	opened := l.Open == nil
	items := false
	for _, c := range t.Children(n) {
		if t.IsWhitespace(c) || t.IsComment(c) {
			continue
		}
		if l.Open != nil && l.Open(t, n, c) {
			opened = true
			continue
		}
		if l.Close != nil && l.Close(t, n, c) {
			continue
		}
		items = true
	}
	return opened && items
}

type alignSite struct {
	op    dom.ID
	width int
}

func (l *ListLayout) markup(p *Pass, n dom.ID) {
	t := p.Tree()
	dispersion := l.Dispersion
	if dispersion <= 0 {
		dispersion = DefaultDispersion
	}
	widths := cluster.New(dispersion)
	var sites []alignSite

	for id := range t.Walk(n) {
		if t.Node(id).Kind != dom.KindToken {
			continue
		}
		switch {
		case l.Open != nil && l.Open(t, n, id):
			l.styleGap(p, id, t.NextLeaf(id), style.WithStyles(style.OneLineBreak(), style.Indent{Count: 1}))
		case l.Separator != nil && l.Separator(t, n, id):
			l.styleGap(p, id, t.NextLeaf(id), style.WithStyles(style.OneLineBreak()))
		case l.Close != nil && l.Close(t, n, id):
			l.styleGap(p, id, t.PreviousLeaf(id), l.closeStyles())
		case l.Align != nil && l.Align(t, n, id):
			w := p.labelWidth(t.Ancestor(id, 1), id)
			widths.Add(w)
			sites = append(sites, alignSite{op: id, width: w})
		}
	}
	if l.Trailing {
		l.styleGap(p, n, t.NextLeaf(n), l.closeStyles())
	}
	for _, s := range sites {
		p.AddStyles(s.op, style.WithStyles(
			style.Align{Alignment: style.Right},
			style.Width{N: 1 + widths.ClusterMax(s.width) - s.width},
		))
	}
	p.Logger().Debug("list broken", "layout", l.Name, "node", n, "aligned", len(sites), "clusters", widths.Len())
}

func (l *ListLayout) closeStyles() style.Set {
	if l.BreakBeforeClose {
		return style.WithStyles(style.Dedent{Count: 1}, style.OneLineBreak())
	}
	return style.WithStyles(style.Dedent{Count: 1})
}

// styleGap attaches set to the whitespace leaf ws next to token at. Without
// a whitespace leaf there is no place to break and the styles are dropped.
func (l *ListLayout) styleGap(p *Pass, at, ws dom.ID, set style.Set) {
	if p.Tree().IsWhitespace(ws) {
		p.AddStyles(ws, set)
		return
	}
	p.Logger().Debug("no whitespace to style", "layout", l.Name, "node", at, "styles", set.String())
	p.Report(Info, at, fmt.Sprintf("%s: no whitespace next to %q", l.Name, p.Tree().Node(at).Text))
}

// labelWidth returns the rendered width of the part of item in front of op,
// as the feeder would emit it on one line.
func (p *Pass) labelWidth(item, op dom.ID) int {
	t := p.Tree()
	tabs := p.ctx.TabWidth
	width := 0
	pendingSpace := 0
	for id := range t.Leaves(item) {
		if id >= op {
			break
		}
		node := t.Node(id)
		if node.Kind == dom.KindWhitespace {
			pendingSpace = p.spacing(id, p.styles.Effective(id))
			continue
		}
		width = textflow.Advance(width+pendingSpace, node.Text, tabs)
		pendingSpace = 0
	}
	return width
}
