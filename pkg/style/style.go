package style

import (
	"fmt"
	"strings"
)

// Alignment controls where a token sits inside a padded field.
type Alignment int

const (
	Left Alignment = iota
	Right
)

func (a Alignment) String() string {
	if a == Right {
		return "right"
	}
	return "left"
}

// Axis identifies the aspect of layout a Directive controls. Two directives
// on the same axis conflict; when sets are merged the later one wins.
type Axis int

const (
	AxisIndent Axis = iota
	AxisDedent
	AxisLineBreak
	AxisSpacing
	AxisAlignment
	AxisWidth

	numAxes
)

var axisNames = [numAxes]string{
	AxisIndent:    "indent",
	AxisDedent:    "dedent",
	AxisLineBreak: "line-break",
	AxisSpacing:   "spacing",
	AxisAlignment: "align",
	AxisWidth:     "width",
}

func (a Axis) String() string {
	if a < 0 || a >= numAxes {
		return fmt.Sprintf("axis(%d)", int(a))
	}
	return axisNames[a]
}

// Directive is a single formatting instruction attached to a DOM node.
type Directive interface {
	Axis() Axis
	String() string
}

// Indent raises the indentation level by Count units.
type Indent struct{ Count int }

// Dedent lowers the indentation level by Count units.
type Dedent struct{ Count int }

// LineBreaks asks for line breaks at a whitespace site. When the source
// whitespace already contained newlines their count is kept, clamped to
// [Min, Max]; otherwise Normal breaks are emitted.
type LineBreaks struct {
	Normal int
	Min    int
	Max    int
}

// Spacing sets the number of spaces emitted at a whitespace site that does
// not break.
type Spacing struct{ Count int }

// Align places a token left or right within the field set by Width.
type Align struct{ Alignment Alignment }

// Width pads a token. A right-aligned token is preceded by a gap of exactly
// N columns; a left-aligned token is followed by spaces up to a field of N
// columns.
type Width struct{ N int }

func (Indent) Axis() Axis     { return AxisIndent }
func (Dedent) Axis() Axis     { return AxisDedent }
func (LineBreaks) Axis() Axis { return AxisLineBreak }
func (Spacing) Axis() Axis    { return AxisSpacing }
func (Align) Axis() Axis      { return AxisAlignment }
func (Width) Axis() Axis      { return AxisWidth }

func (d Indent) String() string  { return fmt.Sprintf("indent(%d)", d.Count) }
func (d Dedent) String() string  { return fmt.Sprintf("dedent(%d)", d.Count) }
func (d Spacing) String() string { return fmt.Sprintf("spacing(%d)", d.Count) }
func (d Align) String() string   { return fmt.Sprintf("align(%s)", d.Alignment) }
func (d Width) String() string   { return fmt.Sprintf("width(%d)", d.N) }

func (d LineBreaks) String() string {
	if d.Min == d.Normal && d.Max == d.Normal {
		return fmt.Sprintf("line-break(%d)", d.Normal)
	}
	return fmt.Sprintf("line-break(%d, min=%d, max=%d)", d.Normal, d.Min, d.Max)
}

// Count returns the number of breaks to emit for a whitespace site whose
// source text contained existing newlines.
func (d LineBreaks) Count(existing int) int {
	if existing <= 0 {
		return d.Normal
	}
	return min(max(existing, d.Min), d.Max)
}

// OneLineBreak breaks exactly once, whatever the source had.
func OneLineBreak() LineBreaks { return LineBreaks{Normal: 1, Min: 1, Max: 1} }

// NoLineBreak joins the surrounding tokens on one line.
func NoLineBreak() LineBreaks { return LineBreaks{} }

// Breaks returns a clamped line break directive.
func Breaks(normal, minimum, maximum int) LineBreaks {
	return LineBreaks{Normal: normal, Min: minimum, Max: maximum}
}

// OneSpace separates tokens by a single space.
func OneSpace() Spacing { return Spacing{Count: 1} }

// NoSpace glues tokens together.
func NoSpace() Spacing { return Spacing{Count: 0} }

// Set is an immutable collection of directives with at most one directive
// per Axis.
type Set struct {
	d [numAxes]Directive
}

// WithStyles builds a set from directives; for repeated axes the last one
// given wins.
func WithStyles(directives ...Directive) Set {
	var s Set
	for _, d := range directives {
		if d == nil {
			continue
		}
		s.d[d.Axis()] = d
	}
	return s
}

// Merge returns the union of s and other. Directives in other replace those
// of s on the same axis; every other directive of s survives.
func (s Set) Merge(other Set) Set {
	for i, d := range other.d {
		if d != nil {
			s.d[i] = d
		}
	}
	return s
}

// Get returns the directive for an axis.
func (s Set) Get(a Axis) (Directive, bool) {
	d := s.d[a]
	return d, d != nil
}

// IsEmpty reports whether the set holds no directives.
func (s Set) IsEmpty() bool {
	for _, d := range s.d {
		if d != nil {
			return false
		}
	}
	return true
}

// Directives lists the directives in axis order.
func (s Set) Directives() []Directive {
	var ds []Directive
	for _, d := range s.d {
		if d != nil {
			ds = append(ds, d)
		}
	}
	return ds
}

func (s Set) Indent() int {
	if d, ok := s.d[AxisIndent].(Indent); ok {
		return d.Count
	}
	return 0
}

func (s Set) Dedent() int {
	if d, ok := s.d[AxisDedent].(Dedent); ok {
		return d.Count
	}
	return 0
}

func (s Set) LineBreaks() (LineBreaks, bool) {
	d, ok := s.d[AxisLineBreak].(LineBreaks)
	return d, ok
}

func (s Set) Spacing() (int, bool) {
	d, ok := s.d[AxisSpacing].(Spacing)
	return d.Count, ok
}

func (s Set) Align() (Alignment, bool) {
	d, ok := s.d[AxisAlignment].(Align)
	return d.Alignment, ok
}

func (s Set) Width() (int, bool) {
	d, ok := s.d[AxisWidth].(Width)
	return d.N, ok
}

func (s Set) String() string {
	ds := s.Directives()
	if len(ds) == 0 {
		return "{}"
	}
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = d.String()
	}
	return "{" + strings.Join(parts, " ") + "}"
}
