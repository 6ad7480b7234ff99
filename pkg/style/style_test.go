package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aureatesting/geppetto/pkg/dom"
)

func TestMergeKeepsOtherAxes(t *testing.T) {
	breaks := WithStyles(OneLineBreak())
	indent := WithStyles(Indent{Count: 1})

	merged := breaks.Merge(indent)
	lb, ok := merged.LineBreaks()
	require.True(t, ok)
	assert.Equal(t, OneLineBreak(), lb)
	assert.Equal(t, 1, merged.Indent())
	assert.Len(t, merged.Directives(), 2)

	// Receivers are values; neither input changed.
	assert.Equal(t, 0, breaks.Indent())
	_, ok = indent.LineBreaks()
	assert.False(t, ok)
}

func TestMergeSameAxisLaterWins(t *testing.T) {
	set := WithStyles(OneSpace()).Merge(WithStyles(NoSpace()))
	sp, ok := set.Spacing()
	require.True(t, ok)
	assert.Equal(t, 0, sp)

	set = WithStyles(Width{N: 3}, Width{N: 5})
	w, _ := set.Width()
	assert.Equal(t, 5, w)
}

func TestEmptySet(t *testing.T) {
	var set Set
	assert.True(t, set.IsEmpty())
	assert.Equal(t, "{}", set.String())
	_, ok := set.Align()
	assert.False(t, ok)
	assert.True(t, WithStyles(nil).IsEmpty())
	assert.False(t, WithStyles(Dedent{Count: 1}).IsEmpty())
}

func TestLineBreakCount(t *testing.T) {
	for _, tc := range []struct {
		lb       LineBreaks
		existing int
		want     int
	}{
		{OneLineBreak(), 0, 1},
		{OneLineBreak(), 3, 1},
		{NoLineBreak(), 2, 0},
		{Breaks(1, 1, 2), 0, 1},
		{Breaks(1, 1, 2), 2, 2},
		{Breaks(1, 1, 2), 5, 2},
		{Breaks(0, 0, 2), 0, 0},
		{Breaks(0, 0, 2), 1, 1},
	} {
		assert.Equal(t, tc.want, tc.lb.Count(tc.existing), "%s with %d", tc.lb, tc.existing)
	}
}

func TestString(t *testing.T) {
	set := WithStyles(Align{Alignment: Right}, Width{N: 4}, Indent{Count: 1}, OneLineBreak())
	assert.Equal(t, "{indent(1) line-break(1) align(right) width(4)}", set.String())
	assert.Equal(t, "line-break(1, min=1, max=2)", Breaks(1, 1, 2).String())
}

type construct string

func (c construct) String() string { return string(c) }

func TestSheetResolve(t *testing.T) {
	b := dom.NewBuilder(construct("Root"), nil, dom.BuildOptions{ImplyWhitespace: true})
	b.Open(construct("List"), nil, 0)
	open := b.Token(dom.RoleOpen, "(", dom.Span{Offset: 0, Length: 1})
	a := b.Token(dom.RoleName, "a", dom.Span{Offset: 1, Length: 1})
	b.Token(dom.RoleClose, ")", dom.Span{Offset: 2, Length: 1})
	b.Close()
	tree, err := b.Tree()
	require.NoError(t, err)
	gap := tree.NextLeaf(open)

	sheet := NewSheet(
		Rule{Name: "ws", Selector: Selector{Kind: dom.KindWhitespace}, Styles: WithStyles(OneSpace(), NoLineBreak())},
		Rule{Name: "after-open", Selector: Selector{
			Kind:  dom.KindWhitespace,
			In:    construct("List"),
			After: &Selector{Role: dom.RoleOpen},
		}, Styles: WithStyles(NoSpace())},
		Rule{Name: "never", Selector: Selector{Text: "zzz"}, Styles: WithStyles(Indent{Count: 9})},
	)

	set := sheet.Resolve(tree, gap)
	sp, _ := set.Spacing()
	assert.Equal(t, 0, sp)
	_, ok := set.LineBreaks()
	assert.True(t, ok, "directives from earlier rules survive")
	assert.Equal(t, 0, set.Indent())

	before := tree.PreviousLeaf(tree.LastLeaf(tree.Root()))
	sp, _ = sheet.Resolve(tree, before).Spacing()
	assert.Equal(t, 1, sp)

	assert.True(t, sheet.Resolve(tree, a).IsEmpty())

	all := sheet.ResolveAll(tree)
	assert.Len(t, all, tree.Len())
	assert.Equal(t, set, all[gap])

	var none *Sheet
	assert.True(t, none.Resolve(tree, gap).IsEmpty())
}

func TestSelectorWhere(t *testing.T) {
	b := dom.NewBuilder(construct("Root"), nil, dom.BuildOptions{})
	id := b.Token(dom.RoleName, "x", dom.Span{Offset: 0, Length: 1})
	tree, err := b.Tree()
	require.NoError(t, err)

	sel := Selector{Role: dom.RoleName, Where: func(t *dom.Tree, id dom.ID) bool {
		return t.Node(id).Text == "y"
	}}
	assert.False(t, sel.Matches(tree, id))
	sel.Text = "x"
	sel.Where = nil
	assert.True(t, sel.Matches(tree, id))
	assert.False(t, sel.Matches(tree, dom.None))
}
