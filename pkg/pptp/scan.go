package pptp

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ScanService extracts metadata by scanning Ruby sources for the Puppet
// declaration forms (newfunction, create_function, newtype, newparam,
// newproperty, ensurable, desc, @doc, isnamevar) without running Ruby.
type ScanService struct{}

var _ RubyServices = ScanService{}

func (ScanService) FunctionInfo(path string) ([]FunctionInfo, error) {
	s, err := scanFile(path)
	if err != nil {
		return nil, err
	}
	return s.functions(), nil
}

func (ScanService) TypeInfo(path string) ([]TypeInfo, error) {
	s, err := scanFile(path)
	if err != nil {
		return nil, err
	}
	return s.types(false), nil
}

func (ScanService) TypeProperties(path string) ([]TypeInfo, error) {
	s, err := scanFile(path)
	if err != nil {
		return nil, err
	}
	return s.types(true), nil
}

type rbScanner struct {
	toks   []rbToken
	depths []int
}

func scanFile(path string) (*rbScanner, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}
	return scanSource(path, string(src))
}

func scanSource(path, src string) (*rbScanner, error) {
	toks, err := lexRuby(path, src)
	if err != nil {
		return nil, err
	}
	depths, err := blockDepths(path, toks)
	if err != nil {
		return nil, err
	}
	return &rbScanner{toks: toks, depths: depths}, nil
}

func (s *rbScanner) at(i int, kind rbKind, text string) bool {
	return i >= 0 && i < len(s.toks) && s.toks[i].kind == kind && s.toks[i].text == text
}

func (s *rbScanner) word(i int, text string) bool  { return s.at(i, rbWord, text) }
func (s *rbScanner) punct(i int, text string) bool { return s.at(i, rbPunct, text) }

// args collects the arguments of a call whose argument list starts at i,
// with or without parentheses. Symbols followed by => become named
// arguments; other symbols and strings are positional. It returns the
// index of the first token after the arguments.
func (s *rbScanner) args(i int) (positional []rbToken, named map[string]rbToken, end int) {
	named = map[string]rbToken{}
	parens := s.punct(i, "(")
	if parens {
		i++
	}
	depth := 0
	for ; i < len(s.toks); i++ {
		t := s.toks[i]
		if t.kind == rbPunct {
			switch t.text {
			case "(", "[", "{":
				if !parens && depth == 0 && t.text == "{" {
					return positional, named, i
				}
				depth++
				continue
			case ")", "]", "}":
				if depth == 0 {
					if parens && t.text == ")" {
						return positional, named, i + 1
					}
					return positional, named, i
				}
				depth--
				continue
			}
		}
		if !parens && depth == 0 && (t.first || s.word(i, "do")) {
			return positional, named, i
		}
		if depth > 0 {
			continue
		}
		switch {
		case t.kind == rbSymbol && s.punct(i+1, "=>") && i+2 < len(s.toks):
			named[t.text] = s.toks[i+2]
			i += 2
		case t.kind == rbSymbol || t.kind == rbString:
			positional = append(positional, t)
		}
	}
	return positional, named, i
}

// stringArg returns the string passed to a one-argument call such as desc
// whose name is at i.
func (s *rbScanner) stringArg(i int) (string, bool) {
	i++
	if s.punct(i, "(") {
		i++
	}
	if i < len(s.toks) && s.toks[i].kind == rbString {
		return cleanDoc(s.toks[i].text), true
	}
	return "", false
}

func (s *rbScanner) functions() []FunctionInfo {
	var out []FunctionInfo
	for i := 0; i < len(s.toks); i++ {
		switch {
		case s.word(i, "newfunction"):
			pos, named, end := s.args(i + 1)
			if len(pos) == 0 {
				continue
			}
			fn := FunctionInfo{Name: pos[0].text}
			if t, ok := named["type"]; ok {
				fn.RValue = t.text == "rvalue"
			}
			if t, ok := named["doc"]; ok && t.kind == rbString {
				fn.Documentation = cleanDoc(t.text)
			}
			out = append(out, fn)
			i = end - 1
		case s.word(i, "create_function") && s.punct(i-1, "."):
			pos, _, end := s.args(i + 1)
			if len(pos) == 0 {
				continue
			}
			out = append(out, FunctionInfo{Name: pos[0].text, RValue: true})
			i = end - 1
		}
	}
	return out
}

// chainedType returns the type name of a Puppet::Type.type(:name).newproperty
// chain whose method name is at i.
func (s *rbScanner) chainedType(i int) (string, bool) {
	if s.punct(i-1, ".") && s.punct(i-2, ")") && i-3 >= 0 && s.toks[i-3].kind == rbSymbol &&
		s.punct(i-4, "(") && s.word(i-5, "type") {
		return s.toks[i-3].text, true
	}
	return "", false
}

// types extracts newtype declarations, or with chained set, the
// parameters and properties added to existing types.
func (s *rbScanner) types(chained bool) []TypeInfo {
	var out []*TypeInfo
	var cur *TypeInfo
	typeDepth := -1

	// the entry whose block is open
	var entries *[]Entry
	entry := -1
	entryDepth := -1

	lookup := func(name string) *TypeInfo {
		for _, t := range out {
			if t.Name == name {
				return t
			}
		}
		t := &TypeInfo{Name: name}
		out = append(out, t)
		return t
	}

	for i := 0; i < len(s.toks); i++ {
		d := s.depths[i]
		tok := s.toks[i]
		switch {
		case !chained && s.word(i, "newtype"):
			pos, named, end := s.args(i + 1)
			if len(pos) == 0 {
				continue
			}
			cur = &TypeInfo{Name: pos[0].text}
			out = append(out, cur)
			if t, ok := named["doc"]; ok && t.kind == rbString {
				cur.Documentation = cleanDoc(t.text)
			}
			typeDepth = d
			entry = -1
			i = end - 1

		case s.word(i, "newparam") || s.word(i, "newproperty") || s.word(i, "ensurable"):
			var target *TypeInfo
			if chained {
				name, ok := s.chainedType(i)
				if !ok {
					continue
				}
				target = lookup(name)
			} else if cur != nil && d == typeDepth+1 {
				target = cur
			} else {
				continue
			}
			e := Entry{Name: "ensure"}
			end := i + 1
			if tok.text != "ensurable" {
				var pos []rbToken
				var named map[string]rbToken
				pos, named, end = s.args(i + 1)
				if len(pos) == 0 {
					continue
				}
				e.Name = pos[0].text
				if t, ok := named["namevar"]; ok && t.kind == rbWord && t.text == "true" {
					e.Required = true
				}
			}
			if tok.text == "newparam" {
				entries = &target.Parameters
			} else {
				entries = &target.Properties
			}
			*entries = append(*entries, e)
			entry = -1
			if s.word(end, "do") {
				entry = len(*entries) - 1
				entryDepth = d
				end++
			}
			i = end - 1

		case entry >= 0 && s.word(i, "end") && d == entryDepth+1:
			entry = -1

		case s.word(i, "desc"):
			doc, ok := s.stringArg(i)
			switch {
			case !ok:
			case entry >= 0 && d == entryDepth+1:
				(*entries)[entry].Documentation = doc
			case !chained && cur != nil && entry < 0 && d == typeDepth+1:
				cur.Documentation = doc
			}

		case !chained && cur != nil && tok.kind == rbWord && tok.text == "@doc" && d == typeDepth+1 && s.punct(i+1, "="):
			if i+2 < len(s.toks) && s.toks[i+2].kind == rbString {
				cur.Documentation = cleanDoc(s.toks[i+2].text)
			}

		case (s.word(i, "isnamevar") || s.word(i, "isrequired")) && entry >= 0 && d == entryDepth+1:
			(*entries)[entry].Required = true
		}
	}

	infos := make([]TypeInfo, len(out))
	for i, t := range out {
		infos[i] = *t
	}
	return infos
}
