package pp

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// SyntaxError reports malformed manifest source.
type SyntaxError struct {
	Name    string
	Line    int
	Column  int
	Offset  int
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Name, e.Line, e.Column, e.Message)
}

// Lexer scans manifest source into tokens. Whitespace and comments are not
// tokens; they are attached to the following token as leading trivia.
type Lexer struct {
	name   string
	src    string
	start  int // start of the current token
	cur    int
	line   int // 1-based
	lineAt int // offset of the current line

	// position of the current token
	tokLine int
	tokCol  int

	trivia []Trivia
	tokens []Token
}

// NewLexer returns a lexer over src. The name is used in error messages.
func NewLexer(name, src string) *Lexer {
	return &Lexer{name: name, src: src, line: 1}
}

func (l *Lexer) isAtEnd() bool { return l.cur >= len(l.src) }

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.src[l.cur]
}

func (l *Lexer) peekN(n int) byte {
	if l.cur+n >= len(l.src) {
		return 0
	}
	return l.src[l.cur+n]
}

func (l *Lexer) advance() byte {
	c := l.src[l.cur]
	l.cur++
	if c == '\n' {
		l.line++
		l.lineAt = l.cur
	}
	return c
}

func (l *Lexer) errAt(offset int, format string, args ...any) error {
	line, col := position(l.src, offset)
	return errors.WithStack(&SyntaxError{
		Name:    l.name,
		Line:    line,
		Column:  col,
		Offset:  offset,
		Message: fmt.Sprintf(format, args...),
	})
}

// position returns the 1-based line and column of offset.
func position(src string, offset int) (int, int) {
	offset = min(offset, len(src))
	line := 1 + strings.Count(src[:offset], "\n")
	col := offset - strings.LastIndexByte(src[:offset], '\n')
	return line, col
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isLower(b byte) bool { return (b >= 'a' && b <= 'z') || b == '_' }
func isUpper(b byte) bool { return b >= 'A' && b <= 'Z' }
func isWordChar(b byte) bool {
	return isLower(b) || isUpper(b) || isDigit(b)
}
func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

func (l *Lexer) addToken(tt TokenType) {
	l.tokens = append(l.tokens, Token{
		Type:    tt,
		Text:    l.src[l.start:l.cur],
		Offset:  l.start,
		Line:    l.tokLine,
		Col:     l.tokCol,
		Leading: l.trivia,
	})
	l.trivia = nil
}

// scanTrivia collects whitespace and comments up to the next token.
func (l *Lexer) scanTrivia() error {
	for !l.isAtEnd() {
		start := l.cur
		switch c := l.peek(); {
		case isSpace(c):
			for !l.isAtEnd() && isSpace(l.peek()) {
				l.advance()
			}
			l.trivia = append(l.trivia, Trivia{Text: l.src[start:l.cur], Offset: start})
		case c == '#':
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
			text := strings.TrimRight(l.src[start:l.cur], " \t\r")
			l.trivia = append(l.trivia, Trivia{Comment: true, Text: text, Offset: start})
			// Trailing blanks of the comment stay whitespace.
			if end := start + len(text); end < l.cur {
				l.trivia = append(l.trivia, Trivia{Text: l.src[end:l.cur], Offset: end})
			}
		case c == '/' && l.peekN(1) == '*':
			end := strings.Index(l.src[l.cur+2:], "*/")
			if end < 0 {
				return l.errAt(start, "unterminated comment")
			}
			for l.cur < start+2+end+2 {
				l.advance()
			}
			l.trivia = append(l.trivia, Trivia{Comment: true, Text: l.src[start:l.cur], Offset: start})
		default:
			return nil
		}
	}
	return nil
}

func (l *Lexer) scanString(quote byte) error {
	l.advance()
	for !l.isAtEnd() {
		c := l.advance()
		switch c {
		case '\\':
			if !l.isAtEnd() {
				l.advance()
			}
		case quote:
			return nil
		}
	}
	return l.errAt(l.start, "unterminated string")
}

func (l *Lexer) scanWord() {
	for !l.isAtEnd() {
		if isWordChar(l.peek()) {
			l.advance()
			continue
		}
		if l.peek() == ':' && l.peekN(1) == ':' && (isLower(l.peekN(2)) || isUpper(l.peekN(2))) {
			l.advance()
			l.advance()
			continue
		}
		return
	}
}

var operators = []struct {
	text string
	tt   TokenType
}{
	// Longest first.
	{"=>", FARROW}, {"+>", PARROW}, {"+=", APPEND}, {"==", EQ}, {"!=", NE},
	{"=~", MATCH}, {"!~", NOMATCH}, {"<=", LE}, {">=", GE},
	{"->", IN_EDGE}, {"~>", IN_NOTIF}, {"<-", OUT_EDGE}, {"<~", OUT_NOTIF},
	{"=", ASSIGN}, {"<", LT}, {">", GT}, {"+", PLUS}, {"-", MINUS},
	{"*", STAR}, {"/", SLASH}, {"%", PERCENT}, {"!", NOT},
	{"(", LPAREN}, {")", RPAREN}, {"[", LBRACK}, {"]", RBRACK},
	{"{", LBRACE}, {"}", RBRACE}, {",", COMMA}, {":", COLON}, {";", SEMI}, {"?", QMARK},
}

func (l *Lexer) mark() {
	l.start = l.cur
	l.tokLine = l.line
	l.tokCol = l.cur - l.lineAt + 1
}

func (l *Lexer) scanToken() error {
	l.mark()
	c := l.peek()
	switch {
	case c == '"' || c == '\'':
		if err := l.scanString(c); err != nil {
			return err
		}
		l.addToken(STRING)
	case c == '$':
		l.advance()
		if l.peek() == ':' && l.peekN(1) == ':' {
			l.advance()
			l.advance()
		}
		if !isWordChar(l.peek()) {
			return l.errAt(l.start, "expected variable name after '$'")
		}
		l.scanWord()
		l.addToken(VARIABLE)
	case isDigit(c):
		for !l.isAtEnd() && (isWordChar(l.peek()) || l.peek() == '.' && isDigit(l.peekN(1))) {
			l.advance()
		}
		l.addToken(NUMBER)
	case c == ':' && l.peekN(1) == ':' && (isLower(l.peekN(2)) || isUpper(l.peekN(2))):
		l.advance()
		l.advance()
		l.scanWord()
		l.addToken(NAME)
	case isLower(c):
		l.scanWord()
		if kw, ok := keywords[l.src[l.start:l.cur]]; ok {
			l.addToken(kw)
		} else {
			l.addToken(NAME)
		}
	case isUpper(c):
		l.scanWord()
		l.addToken(REF)
	default:
		for _, op := range operators {
			if strings.HasPrefix(l.src[l.cur:], op.text) {
				l.cur += len(op.text)
				l.addToken(op.tt)
				return nil
			}
		}
		return l.errAt(l.start, "unexpected character %q", c)
	}
	return nil
}

// Scan tokenizes the whole source. The last token is always EOF; its
// leading trivia is whatever follows the last real token.
func (l *Lexer) Scan() ([]Token, error) {
	for {
		if err := l.scanTrivia(); err != nil {
			return nil, err
		}
		if l.isAtEnd() {
			l.mark()
			l.addToken(EOF)
			return l.tokens, nil
		}
		if err := l.scanToken(); err != nil {
			return nil, err
		}
	}
}
