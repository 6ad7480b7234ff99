package layout

import (
	"fmt"
	"log/slog"

	"github.com/aureatesting/geppetto/pkg/dom"
	"github.com/aureatesting/geppetto/pkg/style"
	"github.com/aureatesting/geppetto/pkg/textflow"
)

// Region is a byte range of the source that formatting is restricted to.
type Region struct {
	Offset int
	Length int
}

// End returns the offset just past the region.
func (r Region) End() int { return r.Offset + r.Length }

// Contains reports whether a node's span touches the region.
func (r Region) Contains(s dom.Span) bool {
	if s.Length == 0 {
		return s.Offset >= r.Offset && s.Offset <= r.End()
	}
	return s.Offset < r.End() && s.End() > r.Offset
}

// Manager lays out one kind of construct. Format is called when the feeder
// reaches a node of that construct, with the node's effective styles and the
// flow at the node's position. It returns true if it emitted the node itself;
// false makes the feeder continue with the node's children as usual, picking
// up any styles the manager attached.
type Manager interface {
	Format(p *Pass, styles style.Set, n dom.ID, flow textflow.Flow) bool
}

// Context is the configuration of one formatting pass. It is read-only
// during the pass and may be shared by concurrent passes.
type Context struct {
	// Sheet assigns rule-based styles. A nil sheet formats with built-in
	// defaults only.
	Sheet *style.Sheet
	// Layouts maps constructs to their layout managers. Constructs without
	// an entry are laid out by the sheet alone.
	Layouts map[dom.Construct]Manager

	// Indent is one indentation unit.
	Indent string
	// TabWidth is the distance between tab stops used for width
	// measurement.
	TabWidth int
	// MaxWidth is the preferred maximum line width.
	MaxWidth int
	// LineSeparator replaces every emitted newline.
	LineSeparator string

	// Region restricts formatting to part of the source; whitespace
	// outside it keeps its original text. Nil formats everything.
	Region *Region
	// PreserveWhitespace keeps all source whitespace, overriding every
	// computed break and space.
	PreserveWhitespace bool

	// Issues receives layout diagnostics. May be nil.
	Issues IssueAcceptor
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (c *Context) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Context) manager(con dom.Construct) Manager {
	if con == nil || c.Layouts == nil {
		return nil
	}
	return c.Layouts[con]
}

// Severity ranks an Issue.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Issue is a layout diagnostic.
type Issue struct {
	Severity Severity
	Node     dom.ID
	Span     dom.Span
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s at offset %d: %s", i.Severity, i.Span.Offset, i.Message)
}

// IssueAcceptor receives diagnostics.
type IssueAcceptor interface {
	Accept(Issue)
}

// Issues collects diagnostics in a slice.
type Issues []Issue

func (is *Issues) Accept(i Issue) {
	*is = append(*is, i)
}
