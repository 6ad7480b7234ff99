package pptp

import (
	"fmt"
	"strings"
)

type rbKind int

const (
	rbWord rbKind = iota
	rbSymbol
	rbString
	rbRegexp
	rbNumber
	rbPunct
)

// rbToken is a Ruby token. Strings and symbols carry their unquoted value.
type rbToken struct {
	kind  rbKind
	text  string
	line  int
	first bool // first token on its line
}

type pendingHeredoc struct {
	tok    int
	id     string
	indent bool
}

// rbLexer splits Ruby source into just enough tokens to find Puppet
// declarations and check that blocks are balanced.
type rbLexer struct {
	file     string
	src      string
	pos      int
	line     int
	first    bool
	heredocs []pendingHeredoc
	toks     []rbToken
}

func lexRuby(file, src string) ([]rbToken, error) {
	l := &rbLexer{file: file, src: src, line: 1, first: true}
	for l.pos < len(l.src) {
		if err := l.next(); err != nil {
			return nil, err
		}
	}
	if len(l.heredocs) > 0 {
		h := l.heredocs[0]
		return nil, l.errorf(l.toks[h.tok].line, "unterminated heredoc %s", h.id)
	}
	return l.toks, nil
}

func (l *rbLexer) errorf(line int, format string, args ...any) error {
	return &SyntaxError{File: l.file, Line: line, Message: fmt.Sprintf(format, args...)}
}

func (l *rbLexer) peek(n int) byte {
	if l.pos+n < len(l.src) {
		return l.src[l.pos+n]
	}
	return 0
}

func (l *rbLexer) emit(kind rbKind, text string, line int) {
	l.toks = append(l.toks, rbToken{kind: kind, text: text, line: line, first: l.first})
	l.first = false
}

func (l *rbLexer) next() error {
	c := l.src[l.pos]
	switch {
	case c == '\n':
		l.pos++
		l.line++
		l.first = true
		return l.readHeredocs()
	case c == ' ' || c == '\t' || c == '\r':
		l.pos++
	case c == '\\' && l.peek(1) == '\n':
		l.pos += 2
		l.line++
	case c == '#':
		for l.pos < len(l.src) && l.src[l.pos] != '\n' {
			l.pos++
		}
	case l.first && strings.HasPrefix(l.src[l.pos:], "=begin"):
		return l.blockComment()
	case c == '"' || c == '\'' || c == '`':
		line := l.line
		l.pos++
		s, err := l.delimited(c, c, c != '\'')
		if err != nil {
			return err
		}
		l.emit(rbString, s, line)
	case c == ':':
		return l.colon()
	case c == '%' && l.percentLiteral():
		return l.percent()
	case c == '/' && l.valueExpected():
		return l.regexp()
	case c == '<' && l.peek(1) == '<' && l.heredocStart():
		return l.heredoc()
	case isRbIdentStart(c):
		l.word()
	case c >= '0' && c <= '9':
		l.number()
	case c == '=' && l.peek(1) == '>':
		l.pos += 2
		l.emit(rbPunct, "=>", l.line)
	default:
		l.pos++
		l.emit(rbPunct, string(c), l.line)
	}
	return nil
}

func isRbIdentStart(c byte) bool {
	return c == '_' || c == '@' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isRbIdent(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func (l *rbLexer) blockComment() error {
	line := l.line
	for {
		end := strings.IndexByte(l.src[l.pos:], '\n')
		if end < 0 {
			return l.errorf(line, "unterminated =begin comment")
		}
		text := l.src[l.pos : l.pos+end]
		l.pos += end + 1
		l.line++
		if strings.HasPrefix(text, "=end") {
			l.first = true
			return nil
		}
	}
}

// delimited reads a string body up to close. The opening delimiter has
// been consumed; nested open/close pairs are kept in the text.
func (l *rbLexer) delimited(open, close byte, interpolate bool) (string, error) {
	line := l.line
	depth := 0
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return "", l.errorf(line, "unterminated string")
		}
		c := l.src[l.pos]
		switch {
		case c == '\\' && l.pos+1 < len(l.src):
			e := l.src[l.pos+1]
			l.pos += 2
			if e == '\n' {
				l.line++
			}
			switch {
			case !interpolate && e != close && e != open && e != '\\':
				sb.WriteByte('\\')
				sb.WriteByte(e)
			case interpolate && e == 'n':
				sb.WriteByte('\n')
			case interpolate && e == 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(e)
			}
			continue
		case c == close && depth == 0:
			l.pos++
			return sb.String(), nil
		case c == close:
			depth--
		case c == open && open != close:
			depth++
		case c == '#' && interpolate && l.peek(1) == '{':
			start := l.pos
			if err := l.interpolation(); err != nil {
				return "", err
			}
			sb.WriteString(l.src[start:l.pos])
			continue
		case c == '\n':
			l.line++
		}
		sb.WriteByte(c)
		l.pos++
	}
}

func (l *rbLexer) interpolation() error {
	line := l.line
	l.pos += 2
	depth := 1
	for {
		if l.pos >= len(l.src) {
			return l.errorf(line, "unterminated interpolation")
		}
		c := l.src[l.pos]
		l.pos++
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return nil
			}
		case '"', '\'':
			if _, err := l.delimited(c, c, c == '"'); err != nil {
				return err
			}
		case '\n':
			l.line++
		}
	}
}

func (l *rbLexer) colon() error {
	switch c := l.peek(1); {
	case c == ':':
		l.pos += 2
		l.emit(rbPunct, "::", l.line)
	case c == '"' || c == '\'':
		line := l.line
		l.pos += 2
		s, err := l.delimited(c, c, c == '"')
		if err != nil {
			return err
		}
		l.emit(rbSymbol, s, line)
	case isRbIdentStart(c) && c != '$':
		start := l.pos + 1
		l.pos++
		for l.pos < len(l.src) && (isRbIdent(l.src[l.pos]) || l.src[l.pos] == '@') {
			l.pos++
		}
		if c := l.peek(0); c == '?' || c == '!' {
			l.pos++
		}
		l.emit(rbSymbol, strings.TrimLeft(l.src[start:l.pos], "@"), l.line)
	default:
		l.pos++
		l.emit(rbPunct, ":", l.line)
	}
	return nil
}

func closing(open byte) byte {
	switch open {
	case '{':
		return '}'
	case '(':
		return ')'
	case '[':
		return ']'
	case '<':
		return '>'
	}
	return open
}

func (l *rbLexer) percentLiteral() bool {
	c := l.peek(1)
	switch c {
	case 'q', 'Q', 'w', 'W', 'i', 'I':
		d := l.peek(2)
		return d != 0 && !isRbIdent(d) && d != ' ' && d != '\n'
	case '{', '(', '[', '<', '|', '!':
		return l.valueExpected()
	}
	return false
}

func (l *rbLexer) percent() error {
	line := l.line
	l.pos++
	interpolate := true
	switch l.src[l.pos] {
	case 'q', 'w', 'i':
		interpolate = false
		l.pos++
	case 'Q', 'W', 'I':
		l.pos++
	}
	open := l.src[l.pos]
	l.pos++
	s, err := l.delimited(open, closing(open), interpolate)
	if err != nil {
		return err
	}
	l.emit(rbString, s, line)
	return nil
}

// valueExpected reports whether the previous token leaves the lexer
// expecting an operand, which decides between division and a regexp.
func (l *rbLexer) valueExpected() bool {
	if len(l.toks) == 0 {
		return true
	}
	prev := l.toks[len(l.toks)-1]
	switch prev.kind {
	case rbWord:
		switch prev.text {
		case "if", "unless", "elsif", "when", "and", "or", "not", "return", "while", "until", "then":
			return true
		}
		return false
	case rbPunct:
		switch prev.text {
		case ")", "]", "}":
			return false
		}
		return true
	}
	return false
}

func (l *rbLexer) regexp() error {
	line := l.line
	l.pos++
	for {
		if l.pos >= len(l.src) || l.src[l.pos] == '\n' {
			return l.errorf(line, "unterminated regexp")
		}
		c := l.src[l.pos]
		l.pos++
		if c == '\\' {
			l.pos++
			continue
		}
		if c == '/' {
			break
		}
	}
	for l.pos < len(l.src) && l.src[l.pos] >= 'a' && l.src[l.pos] <= 'z' {
		l.pos++
	}
	l.emit(rbRegexp, "", line)
	return nil
}

func (l *rbLexer) heredocStart() bool {
	c := l.peek(2)
	if c == '-' || c == '~' {
		c = l.peek(3)
		return c == '"' || c == '\'' || isRbIdentStart(c)
	}
	return c == '"' || c == '\'' || c == '_' || c >= 'A' && c <= 'Z'
}

func (l *rbLexer) heredoc() error {
	l.pos += 2
	indent := false
	if c := l.src[l.pos]; c == '-' || c == '~' {
		indent = true
		l.pos++
	}
	var id string
	if c := l.src[l.pos]; c == '"' || c == '\'' {
		end := strings.IndexByte(l.src[l.pos+1:], c)
		if end < 0 {
			return l.errorf(l.line, "unterminated heredoc identifier")
		}
		id = l.src[l.pos+1 : l.pos+1+end]
		l.pos += end + 2
	} else {
		start := l.pos
		for l.pos < len(l.src) && isRbIdent(l.src[l.pos]) {
			l.pos++
		}
		id = l.src[start:l.pos]
	}
	l.emit(rbString, "", l.line)
	l.heredocs = append(l.heredocs, pendingHeredoc{tok: len(l.toks) - 1, id: id, indent: indent})
	return nil
}

// readHeredocs consumes the bodies of the heredocs started on the line
// just ended.
func (l *rbLexer) readHeredocs() error {
	for _, h := range l.heredocs {
		var body strings.Builder
		for {
			if l.pos >= len(l.src) {
				return l.errorf(l.toks[h.tok].line, "unterminated heredoc %s", h.id)
			}
			end := strings.IndexByte(l.src[l.pos:], '\n')
			var text string
			if end < 0 {
				text = l.src[l.pos:]
				l.pos = len(l.src)
			} else {
				text = l.src[l.pos : l.pos+end]
				l.pos += end + 1
				l.line++
			}
			term := strings.TrimRight(text, "\r")
			if h.indent {
				term = strings.TrimSpace(term)
			}
			if term == h.id {
				break
			}
			body.WriteString(text)
			body.WriteByte('\n')
		}
		l.toks[h.tok].text = body.String()
	}
	l.heredocs = nil
	return nil
}

func (l *rbLexer) word() {
	start := l.pos
	for l.pos < len(l.src) && (l.src[l.pos] == '@' || l.src[l.pos] == '$') {
		l.pos++
	}
	if l.src[start] == '$' && (l.pos >= len(l.src) || !isRbIdent(l.src[l.pos])) {
		// special globals such as $! or $0
		if l.pos < len(l.src) {
			l.pos++
		}
		l.emit(rbWord, l.src[start:l.pos], l.line)
		return
	}
	for l.pos < len(l.src) && isRbIdent(l.src[l.pos]) {
		l.pos++
	}
	if c := l.peek(0); (c == '?' || c == '!') && l.peek(1) != '=' {
		l.pos++
	}
	text := l.src[start:l.pos]
	// key: value hash syntax
	if l.peek(0) == ':' && l.peek(1) != ':' {
		if c := l.peek(1); c == ' ' || c == '\t' || c == '\n' || c == 0 {
			l.pos++
			l.emit(rbSymbol, text, l.line)
			l.emit(rbPunct, "=>", l.line)
			return
		}
	}
	l.emit(rbWord, text, l.line)
}

func (l *rbLexer) number() {
	start := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if isRbIdent(c) || c == '.' && l.peek(1) >= '0' && l.peek(1) <= '9' {
			l.pos++
			continue
		}
		break
	}
	l.emit(rbNumber, l.src[start:l.pos], l.line)
}

var rbOpeners = map[string]bool{
	"def": true, "class": true, "module": true, "begin": true, "case": true,
}

var rbConditionals = map[string]bool{
	"if": true, "unless": true, "while": true, "until": true, "for": true,
}

// blockDepths returns the block nesting depth in front of every token and
// checks that every block is closed by exactly one end.
func blockDepths(file string, toks []rbToken) ([]int, error) {
	depths := make([]int, len(toks))
	var open []int // line of each open block
	loopLine := -1
	for i, t := range toks {
		depths[i] = len(open)
		if t.kind != rbWord {
			continue
		}
		var prev *rbToken
		if i > 0 {
			prev = &toks[i-1]
		}
		if prev != nil && prev.kind == rbPunct && prev.text == "." {
			continue
		}
		switch {
		case t.text == "end":
			if len(open) == 0 {
				return nil, &SyntaxError{File: file, Line: t.line, Message: "unexpected end"}
			}
			open = open[:len(open)-1]
		case t.text == "do":
			if loopLine == t.line {
				loopLine = -1
				continue
			}
			open = append(open, t.line)
		case rbOpeners[t.text]:
			open = append(open, t.line)
		case rbConditionals[t.text] && (t.first || prev.kind == rbPunct && (prev.text == "=" || prev.text == "(" || prev.text == ";")):
			open = append(open, t.line)
			if t.text == "while" || t.text == "until" || t.text == "for" {
				loopLine = t.line
			}
		}
	}
	if len(open) > 0 {
		return nil, &SyntaxError{File: file, Line: open[len(open)-1], Message: "missing end"}
	}
	return depths, nil
}

// cleanDoc strips the indentation common to all lines and surrounding
// blank lines.
func cleanDoc(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	for i, line := range lines {
		if len(line) >= indent && indent > 0 {
			line = line[indent:]
		}
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
