package layout

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aureatesting/geppetto/pkg/dom"
	"github.com/aureatesting/geppetto/pkg/style"
	"github.com/aureatesting/geppetto/pkg/textflow"
)

// ErrMeasurement is returned by Pass.Measure when a speculative flow ends up
// with fewer lines than it started with.
var ErrMeasurement = errors.New("inconsistent measurement")

// Pass is one formatting pass over a tree. It feeds nodes in document order
// into a flow, applying each node's effective style.
type Pass struct {
	ctx    *Context
	tree   *dom.Tree
	styles *StyleMap

	// measured is shared by the pass and all its speculative forks.
	measured map[measureKey]Measurement
	// speculative passes render into a throwaway flow and report nothing.
	speculative bool
}

// NewPass prepares a pass, resolving the context's sheet against the tree.
func NewPass(tree *dom.Tree, ctx *Context) *Pass {
	return &Pass{
		ctx:      ctx,
		tree:     tree,
		styles:   NewStyleMap(ctx.Sheet.ResolveAll(tree)),
		measured: map[measureKey]Measurement{},
	}
}

func (p *Pass) Tree() *dom.Tree     { return p.tree }
func (p *Pass) Context() *Context   { return p.ctx }
func (p *Pass) StyleMap() *StyleMap { return p.styles }

// Styles returns the effective style of n.
func (p *Pass) Styles(n dom.ID) style.Set {
	return p.styles.Effective(n)
}

// AddStyles unions set into the styles of n.
func (p *Pass) AddStyles(n dom.ID, set style.Set) {
	p.styles.Add(n, set)
}

// Report sends a diagnostic to the context's issue acceptor. Speculative
// passes drop it.
func (p *Pass) Report(sev Severity, n dom.ID, msg string) {
	if p.ctx.Issues == nil || p.speculative {
		return
	}
	var span dom.Span
	if n != dom.None {
		span = p.tree.Node(n).Span
	}
	p.ctx.Issues.Accept(Issue{Severity: sev, Node: n, Span: span, Message: msg})
}

// Logger returns the context's logger, or a discarding one in a speculative
// pass.
func (p *Pass) Logger() *slog.Logger {
	if p.speculative {
		return discard
	}
	return p.ctx.logger()
}

var discard = slog.New(slog.DiscardHandler)

// Sequence feeds n and its subtree into flow.
func (p *Pass) Sequence(n dom.ID, flow textflow.Flow) {
	node := p.tree.Node(n)
	styles := p.styles.Effective(n)
	if d := styles.Indent() - styles.Dedent(); d != 0 {
		flow.ChangeIndentation(d)
	}
	switch node.Kind {
	case dom.KindComposite:
		if m := p.ctx.manager(node.Construct); m != nil && m.Format(p, styles, n, flow) {
			return
		}
		p.SequenceChildren(n, flow)
	case dom.KindWhitespace:
		p.whitespace(n, styles, flow)
	case dom.KindComment:
		flow.Append(node.Text)
	case dom.KindToken:
		p.token(n, styles, flow)
	}
}

// SequenceChildren feeds the children of n, but not n itself.
func (p *Pass) SequenceChildren(n dom.ID, flow textflow.Flow) {
	for _, c := range p.tree.Children(n) {
		p.Sequence(c, flow)
	}
}

func (p *Pass) verbatim(n dom.ID) bool {
	if p.ctx.PreserveWhitespace {
		return true
	}
	return p.ctx.Region != nil && !p.ctx.Region.Contains(p.tree.Node(n).Span)
}

func (p *Pass) whitespace(n dom.ID, styles style.Set, flow textflow.Flow) {
	node := p.tree.Node(n)
	if p.verbatim(n) {
		flow.Append(node.Text)
		return
	}
	if breaks := p.breaks(n, styles); breaks > 0 {
		flow.AppendBreaks(breaks)
		return
	}
	flow.AppendSpaces(p.spacing(n, styles))
}

// breaks returns the number of line breaks a whitespace leaf turns into.
func (p *Pass) breaks(n dom.ID, styles style.Set) int {
	existing := strings.Count(p.tree.Node(n).Text, "\n")
	breaks := 0
	if lb, ok := styles.LineBreaks(); ok {
		breaks = lb.Count(existing)
	}
	if breaks == 0 && p.afterLineComment(n) {
		breaks = 1
	}
	return breaks
}

// spacing returns the number of spaces a non-breaking whitespace leaf turns
// into.
func (p *Pass) spacing(n dom.ID, styles style.Set) int {
	if next := p.tree.NextLeaf(n); next != dom.None {
		ns := p.styles.Effective(next)
		if a, ok := ns.Align(); ok && a == style.Right {
			if w, ok := ns.Width(); ok {
				return w
			}
		}
	}
	if sp, ok := styles.Spacing(); ok {
		return sp
	}
	if p.tree.Node(n).Implied {
		return 0
	}
	return 1
}

func (p *Pass) afterLineComment(n dom.ID) bool {
	prev := p.tree.PreviousLeaf(n)
	return p.tree.IsComment(prev) && strings.HasPrefix(p.tree.Node(prev).Text, "#")
}

func (p *Pass) token(n dom.ID, styles style.Set, flow textflow.Flow) {
	text := p.tree.Node(n).Text
	w, ok := styles.Width()
	if !ok {
		flow.Append(text)
		return
	}
	align, _ := styles.Align()
	switch align {
	case style.Right:
		// Normally the gap is emitted by the whitespace in front.
		if !p.tree.IsWhitespace(p.tree.PreviousLeaf(n)) {
			flow.AppendSpaces(w)
		}
		flow.Append(text)
	default:
		flow.Append(text)
		flow.AppendSpaces(w - textflow.StringWidth(text))
	}
}

// Measurement is the outcome of a speculative render.
type Measurement struct {
	// HeightDelta is the number of line breaks the render added.
	HeightDelta int
	// Width is the width of the last line afterwards.
	Width int
	// MaxWidth is the flow's preferred maximum width.
	MaxWidth int
}

// Fits reports whether the render stayed on the line it started on and
// ended before the maximum width.
func (m Measurement) Fits() bool {
	return m.HeightDelta == 0 && m.Width < m.MaxWidth
}

// measureKey is the flow geometry a node's children are measured from. The
// subtree of a node is never marked up before its own layout has measured
// it, so the geometry alone determines the outcome.
type measureKey struct {
	node      dom.ID
	level     int
	width     int
	lineStart bool
	maxWidth  int
}

// Measure renders the children of n into a fork of flow, using a fork of the
// pass's styles, and reports the geometry. Neither flow nor the pass's
// styles are modified. Successful measurements are remembered for the rest of the pass,
// so nested layouts measure each subtree once per starting position.
func (p *Pass) Measure(flow textflow.Flow, n dom.ID) (Measurement, error) {
	key := measureKey{
		node:      n,
		level:     flow.IndentationLevel(),
		width:     flow.WidthOfLastLine(),
		lineStart: flow.AtLineStart(),
		maxWidth:  flow.PreferredMaxWidth(),
	}
	if m, ok := p.measured[key]; ok {
		return m, nil
	}
	fork := flow.Fork()
	start := flow.Height()
	spec := &Pass{
		ctx:         p.ctx,
		tree:        p.tree,
		styles:      p.styles.Fork(),
		measured:    p.measured,
		speculative: true,
	}
	spec.SequenceChildren(n, fork)
	m := Measurement{
		HeightDelta: fork.Height() - start,
		Width:       fork.WidthOfLastLine(),
		MaxWidth:    fork.PreferredMaxWidth(),
	}
	if m.HeightDelta < 0 {
		return m, fmt.Errorf("%w: height went from %d to %d", ErrMeasurement, start, fork.Height())
	}
	p.measured[key] = m
	return m, nil
}
