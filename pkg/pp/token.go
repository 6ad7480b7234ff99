package pp

import "fmt"

// TokenType is the lexical class of a token.
type TokenType int

const (
	EOF TokenType = iota
	ILLEGAL

	// Punctuation
	LPAREN
	RPAREN
	LBRACK
	RBRACK
	LBRACE
	RBRACE
	COMMA
	COLON
	SEMI
	QMARK

	// Operators
	ASSIGN    // "="
	APPEND    // "+="
	FARROW    // "=>"
	PARROW    // "+>"
	EQ        // "=="
	NE        // "!="
	MATCH     // "=~"
	NOMATCH   // "!~"
	LT        // "<"
	LE        // "<="
	GT        // ">"
	GE        // ">="
	PLUS      // "+"
	MINUS     // "-"
	STAR      // "*"
	SLASH     // "/"
	PERCENT   // "%"
	NOT       // "!"
	IN_EDGE   // "->"
	IN_NOTIF  // "~>"
	OUT_EDGE  // "<-"
	OUT_NOTIF // "<~"

	// Literals and identifiers
	NAME     // lower-case bare word, possibly qualified with "::"
	REF      // capitalized word: a type or resource reference
	VARIABLE // "$name"
	STRING   // single or double quoted, kept with its quotes
	NUMBER

	// Keywords
	AND
	OR
	IN
	CASE
	CLASS
	DEFAULT
	DEFINE
	ELSE
	ELSIF
	FALSE
	IF
	INHERITS
	NODE
	TRUE
	UNDEF
	UNLESS
)

var tokenNames = map[TokenType]string{
	EOF: "end of file", ILLEGAL: "illegal",
	LPAREN: "'('", RPAREN: "')'", LBRACK: "'['", RBRACK: "']'", LBRACE: "'{'", RBRACE: "'}'",
	COMMA: "','", COLON: "':'", SEMI: "';'", QMARK: "'?'",
	ASSIGN: "'='", APPEND: "'+='", FARROW: "'=>'", PARROW: "'+>'",
	EQ: "'=='", NE: "'!='", MATCH: "'=~'", NOMATCH: "'!~'",
	LT: "'<'", LE: "'<='", GT: "'>'", GE: "'>='",
	PLUS: "'+'", MINUS: "'-'", STAR: "'*'", SLASH: "'/'", PERCENT: "'%'", NOT: "'!'",
	IN_EDGE: "'->'", IN_NOTIF: "'~>'", OUT_EDGE: "'<-'", OUT_NOTIF: "'<~'",
	NAME: "name", REF: "type reference", VARIABLE: "variable", STRING: "string", NUMBER: "number",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	for kw, tt := range keywords {
		if tt == t {
			return "'" + kw + "'"
		}
	}
	return fmt.Sprintf("token(%d)", int(t))
}

var keywords = map[string]TokenType{
	"and":      AND,
	"or":       OR,
	"in":       IN,
	"case":     CASE,
	"class":    CLASS,
	"default":  DEFAULT,
	"define":   DEFINE,
	"else":     ELSE,
	"elsif":    ELSIF,
	"false":    FALSE,
	"if":       IF,
	"inherits": INHERITS,
	"node":     NODE,
	"true":     TRUE,
	"undef":    UNDEF,
	"unless":   UNLESS,
}

// isKeyword reports whether t is a reserved word. Keywords may still be
// used as attribute names in resource bodies.
func isKeyword(t TokenType) bool {
	return t >= AND && t <= UNLESS
}

// Trivia is hidden text between tokens.
type Trivia struct {
	Comment bool // false for whitespace
	Text    string
	Offset  int
}

// Token is a lexical token together with the hidden text in front of it.
type Token struct {
	Type    TokenType
	Text    string
	Offset  int
	Line    int // 1-based
	Col     int // 1-based, in bytes
	Leading []Trivia
}

// End returns the offset just past the token.
func (t *Token) End() int { return t.Offset + len(t.Text) }
