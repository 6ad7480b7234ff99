package ppfmt

import (
	"github.com/iancoleman/strcase"

	"github.com/aureatesting/geppetto/pkg/dom"
	"github.com/aureatesting/geppetto/pkg/layout"
	"github.com/aureatesting/geppetto/pkg/pp"
	"github.com/aureatesting/geppetto/pkg/style"
)

// gap returns a rule for whitespace leaves matching sel.
func gap(name string, sel style.Selector, directives ...style.Directive) style.Rule {
	sel.Kind = dom.KindWhitespace
	return style.Rule{Name: name, Selector: sel, Styles: style.WithStyles(directives...)}
}

func token(role dom.Role, in dom.Construct) *style.Selector {
	return &style.Selector{Kind: dom.KindToken, Role: role, In: in}
}

func comment() *style.Selector {
	return &style.Selector{Kind: dom.KindComment}
}

// nextSibling matches nodes directly followed by a node of the given
// construct.
func nextSibling(c dom.Construct) func(*dom.Tree, dom.ID) bool {
	return func(t *dom.Tree, id dom.ID) bool {
		return t.ConstructOf(t.NextSibling(id)) == c
	}
}

// multiBody matches nodes inside a resource with more than one body.
func multiBody(t *dom.Tree, id dom.ID) bool {
	for _, c := range t.Children(t.Parent(id)) {
		if t.Node(c).Role == dom.RoleSeparator {
			return true
		}
	}
	return false
}

func documentStart(t *dom.Tree, id dom.ID) bool { return t.PreviousLeaf(id) == dom.None }
func documentEnd(t *dom.Tree, id dom.ID) bool   { return t.NextLeaf(id) == dom.None }

// braces returns the rules putting the statements between a construct's
// braces on their own indented lines. An empty pair of braces is closed up.
func braces(c pp.Kind) []style.Rule {
	name := strcase.ToKebab(c.String())
	return []style.Rule{
		gap(name+"-open", style.Selector{In: c, After: token(dom.RoleOpen, c)},
			style.Indent{Count: 1}, style.OneLineBreak()),
		gap(name+"-close", style.Selector{In: c, Before: token(dom.RoleClose, c)},
			style.Dedent{Count: 1}, style.OneLineBreak()),
		gap(name+"-empty", style.Selector{In: c, After: token(dom.RoleOpen, c), Before: token(dom.RoleClose, c)},
			style.NoLineBreak(), style.NoSpace()),
	}
}

// padded returns the rules for brace delimited lists written with a space
// inside the braces.
func padded(c pp.Kind) []style.Rule {
	name := strcase.ToKebab(c.String())
	return []style.Rule{
		gap(name+"-open", style.Selector{After: token(dom.RoleOpen, c)}, style.OneSpace()),
		gap(name+"-close", style.Selector{Before: token(dom.RoleClose, c)}, style.OneSpace()),
		gap(name+"-empty", style.Selector{After: token(dom.RoleOpen, c), Before: token(dom.RoleClose, c)}, style.NoSpace()),
	}
}

// DefaultSheet returns the style sheet for Puppet manifests. Tokens are
// separated by one space, delimiters hug their contents, statements go on
// lines of their own with at most one blank line between them, and comments
// keep their position relative to the surrounding code.
func DefaultSheet() *style.Sheet {
	sheet := style.NewSheet(
		gap("space", style.Selector{}, style.OneSpace()),
		gap("after-open", style.Selector{After: token(dom.RoleOpen, nil)}, style.NoSpace()),
		gap("before-close", style.Selector{Before: token(dom.RoleClose, nil)}, style.NoSpace()),
		gap("before-separator", style.Selector{Before: token(dom.RoleSeparator, nil)}, style.NoSpace()),
		gap("before-end-separator", style.Selector{Before: token(dom.RoleEndSeparator, nil)}, style.NoSpace()),
		gap("before-colon", style.Selector{Before: token(dom.RoleColon, nil)}, style.NoSpace()),
		gap("call", style.Selector{Before: token(dom.RoleOpen, pp.CallArguments)}, style.NoSpace()),
		gap("access", style.Selector{Before: token(dom.RoleOpen, pp.AccessArguments)}, style.NoSpace()),
		gap("unary", style.Selector{In: pp.Unary}, style.NoSpace()),
	)
	sheet.Add(padded(pp.Hash)...)
	sheet.Add(padded(pp.SelectorBody)...)
	sheet.Add(padded(pp.Resource)...)
	sheet.Add(
		gap("resource-separator", style.Selector{After: token(dom.RoleSeparator, pp.Resource)}, style.OneLineBreak()),
		gap("resource-bodies-open", style.Selector{After: token(dom.RoleOpen, pp.Resource), Where: multiBody},
			style.Indent{Count: 1}, style.OneLineBreak()),
		gap("resource-bodies-close", style.Selector{Before: token(dom.RoleClose, pp.Resource), Where: multiBody},
			style.Dedent{Count: 1}, style.OneLineBreak()),
		gap("manifest", style.Selector{In: pp.Manifest}, style.Breaks(1, 1, 2)),
		gap("block", style.Selector{In: pp.Block}, style.Breaks(1, 1, 2)),
		gap("case-option", style.Selector{In: pp.Case, Where: nextSibling(pp.CaseOption)}, style.Breaks(1, 1, 2)),
	)
	sheet.Add(braces(pp.Block)...)
	sheet.Add(braces(pp.Case)...)
	sheet.Add(
		gap("before-comment", style.Selector{Before: comment()}, style.Breaks(0, 0, 2)),
		gap("after-comment", style.Selector{After: comment()}, style.Breaks(1, 1, 2)),
		gap("document-start", style.Selector{Where: documentStart}, style.NoLineBreak(), style.NoSpace()),
		gap("document-end", style.Selector{Where: documentEnd}, style.NoLineBreak(), style.NoSpace()),
	)
	return sheet
}

// DefaultLayouts returns the construct layouts for Puppet manifests. Lists
// that do not fit on the current line are broken after the opening
// delimiter and every separator, and their operators are aligned in
// clusters of the given dispersion.
func DefaultLayouts(dispersion int) map[dom.Construct]layout.Manager {
	list := func(kind pp.Kind, align pp.Kind, breakBeforeClose bool) *layout.ListLayout {
		l := &layout.ListLayout{
			Name:             strcase.ToKebab(kind.String()),
			Open:             layout.Child(dom.RoleOpen),
			Separator:        layout.Child(dom.RoleSeparator),
			Close:            layout.Child(dom.RoleClose),
			BreakBeforeClose: breakBeforeClose,
			Dispersion:       dispersion,
		}
		if align != pp.Leaf {
			l.Align = layout.Grandchild(dom.RoleAlign, align)
		}
		return l
	}
	return map[dom.Construct]layout.Manager{
		pp.DefinitionArgumentList: list(pp.DefinitionArgumentList, pp.DefinitionArgument, false),
		pp.Hash:                   list(pp.Hash, pp.HashEntry, true),
		pp.SelectorBody:           list(pp.SelectorBody, pp.HashEntry, true),
		pp.Array:                  list(pp.Array, pp.Leaf, true),
		pp.CallArguments:          list(pp.CallArguments, pp.Leaf, true),
		pp.ResourceBody: &layout.ListLayout{
			Name:             strcase.ToKebab(pp.ResourceBody.String()),
			Open:             layout.Child(dom.RoleColon),
			Separator:        layout.Child(dom.RoleSeparator),
			Align:            layout.Grandchild(dom.RoleAlign, pp.AttributeOperation),
			BreakBeforeClose: true,
			Trailing:         true,
			Dispersion:       dispersion,
		},
	}
}
