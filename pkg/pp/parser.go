package pp

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/aureatesting/geppetto/pkg/dom"
)

// statementFunctions may be called without parentheses at statement level.
var statementFunctions = map[string]bool{
	"include": true, "require": true, "contain": true, "realize": true,
	"tag": true, "notice": true, "warning": true, "fail": true,
	"err": true, "info": true, "debug": true, "alert": true,
	"crit": true, "emerg": true, "hiera_include": true,
}

type parser struct {
	name string
	toks []Token
	i    int
}

// Parse parses a whole manifest.
func Parse(name, src string) (*File, error) {
	p, err := newParser(name, src)
	if err != nil {
		return nil, err
	}
	root, err := p.manifest()
	if err != nil {
		return nil, err
	}
	return &File{Name: name, Source: src, Root: root, EOF: p.peek()}, nil
}

// ParseFragment parses src as a single construct of the given kind, such
// as a bare definition argument list. The result is wrapped in a Manifest.
func ParseFragment(kind Kind, src string) (*File, error) {
	p, err := newParser("", src)
	if err != nil {
		return nil, err
	}
	var n *Node
	switch kind {
	case Manifest:
		return Parse("", src)
	case DefinitionArgumentList:
		n, err = p.parameters()
	case Block:
		n, err = p.block()
	case ResourceBody:
		n, err = p.resourceBody()
	default:
		start := p.peek()
		n, err = p.expression(1)
		if err == nil && n.Kind != kind {
			err = p.errorf(start, "expected %s, found %s", kind, n.Kind)
		}
	}
	if err != nil {
		return nil, err
	}
	if !p.at(EOF) {
		return nil, p.errorf(p.peek(), "unexpected %s after %s", describe(p.peek()), kind)
	}
	return &File{Source: src, Root: composite(Manifest, n), EOF: p.peek()}, nil
}

func newParser(name, src string) (*parser, error) {
	toks, err := NewLexer(name, src).Scan()
	if err != nil {
		return nil, err
	}
	return &parser{name: name, toks: toks}, nil
}

func (p *parser) peek() *Token { return &p.toks[p.i] }

func (p *parser) peekAt(n int) *Token {
	return &p.toks[min(p.i+n, len(p.toks)-1)]
}

func (p *parser) next() *Token {
	t := &p.toks[p.i]
	if t.Type != EOF {
		p.i++
	}
	return t
}

func (p *parser) at(tts ...TokenType) bool {
	for _, tt := range tts {
		if p.peek().Type == tt {
			return true
		}
	}
	return false
}

func (p *parser) errorf(tok *Token, format string, args ...any) error {
	return errors.WithStack(&SyntaxError{
		Name:    p.name,
		Line:    tok.Line,
		Column:  tok.Col,
		Offset:  tok.Offset,
		Message: fmt.Sprintf(format, args...),
	})
}

func describe(t *Token) string {
	if t.Type == EOF {
		return "end of file"
	}
	return fmt.Sprintf("%q", t.Text)
}

func (p *parser) need(tt TokenType, role dom.Role) (*Node, error) {
	if !p.at(tt) {
		return nil, p.errorf(p.peek(), "expected %s, found %s", tt, describe(p.peek()))
	}
	return leaf(p.next(), role), nil
}

// attached reports whether the next token directly follows the previous
// one, without any whitespace or comment in between.
func (p *parser) attached() bool {
	return len(p.peek().Leading) == 0
}

func (p *parser) manifest() (*Node, error) {
	root := composite(Manifest)
	for !p.at(EOF) {
		st, err := p.statement()
		if err != nil {
			return nil, err
		}
		root.add(st)
	}
	return root, nil
}

func (p *parser) statement() (*Node, error) {
	st, err := p.bareStatement()
	if err != nil {
		return nil, err
	}
	if p.at(SEMI) && !st.IsLeaf() {
		st.add(leaf(p.next(), dom.RoleEndSeparator))
	}
	return st, nil
}

func (p *parser) bareStatement() (*Node, error) {
	t := p.peek()
	switch {
	case t.Type == DEFINE:
		return p.definition()
	case t.Type == CLASS && p.peekAt(1).Type != LBRACE:
		return p.hostClass()
	case t.Type == NODE:
		return p.nodeDefinition()
	case t.Type == CASE:
		return p.caseStatement()
	case t.Type == IF:
		return p.ifStatement()
	case t.Type == UNLESS:
		return p.unlessStatement()
	case (t.Type == NAME || t.Type == CLASS || t.Type == REF) && p.peekAt(1).Type == LBRACE:
		return p.resource()
	case t.Type == NAME && statementFunctions[t.Text] && startsExpression(p.peekAt(1)) && p.peekAt(1).Line == t.Line:
		return p.statementCall()
	}
	return p.expression(1)
}

func startsExpression(t *Token) bool {
	switch t.Type {
	case NAME, REF, VARIABLE, STRING, NUMBER, LBRACK, TRUE, FALSE, UNDEF, DEFAULT, NOT, MINUS:
		return true
	}
	return false
}

func (p *parser) definition() (*Node, error) {
	n := composite(Definition, leaf(p.next(), dom.RoleKeyword))
	name, err := p.need(NAME, dom.RoleName)
	if err != nil {
		return nil, err
	}
	n.add(name)
	if p.at(LPAREN) {
		args, err := p.parameters()
		if err != nil {
			return nil, err
		}
		n.add(args)
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return n.add(body), nil
}

func (p *parser) hostClass() (*Node, error) {
	n := composite(HostClass, leaf(p.next(), dom.RoleKeyword))
	name, err := p.need(NAME, dom.RoleName)
	if err != nil {
		return nil, err
	}
	n.add(name)
	if p.at(LPAREN) {
		args, err := p.parameters()
		if err != nil {
			return nil, err
		}
		n.add(args)
	}
	if p.at(INHERITS) {
		n.add(leaf(p.next(), dom.RoleKeyword))
		parent, err := p.need(NAME, dom.RoleName)
		if err != nil {
			return nil, err
		}
		n.add(parent)
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return n.add(body), nil
}

func (p *parser) nodeDefinition() (*Node, error) {
	n := composite(NodeDefinition, leaf(p.next(), dom.RoleKeyword))
	for {
		if !p.at(STRING, NAME, DEFAULT) {
			return nil, p.errorf(p.peek(), "expected node name, found %s", describe(p.peek()))
		}
		n.add(leaf(p.next(), dom.RoleLiteral))
		if !p.at(COMMA) {
			break
		}
		n.add(leaf(p.next(), dom.RoleSeparator))
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return n.add(body), nil
}

// list parses open item (',' item)* ','? close. A comma directly before
// the closing delimiter is an end separator.
func (p *parser) list(kind Kind, open, close TokenType, item func() (*Node, error)) (*Node, error) {
	o, err := p.need(open, dom.RoleOpen)
	if err != nil {
		return nil, err
	}
	n := composite(kind, o)
	for !p.at(close) {
		it, err := item()
		if err != nil {
			return nil, err
		}
		n.add(it)
		if !p.at(COMMA) {
			break
		}
		comma := p.next()
		role := dom.RoleSeparator
		if p.at(close) {
			role = dom.RoleEndSeparator
		}
		n.add(leaf(comma, role))
	}
	c, err := p.need(close, dom.RoleClose)
	if err != nil {
		return nil, err
	}
	return n.add(c), nil
}

func (p *parser) parameters() (*Node, error) {
	return p.list(DefinitionArgumentList, LPAREN, RPAREN, p.parameter)
}

func (p *parser) parameter() (*Node, error) {
	n := composite(DefinitionArgument)
	if p.at(REF) {
		typ, err := p.postfix()
		if err != nil {
			return nil, err
		}
		n.add(typ)
	}
	switch {
	case p.at(VARIABLE):
		n.add(leaf(p.next(), dom.RoleVariable))
	case p.at(NAME):
		n.add(leaf(p.next(), dom.RoleName))
	default:
		return nil, p.errorf(p.peek(), "expected parameter name, found %s", describe(p.peek()))
	}
	if p.at(ASSIGN, FARROW) {
		n.add(leaf(p.next(), dom.RoleAlign))
		value, err := p.expression(1)
		if err != nil {
			return nil, err
		}
		n.add(value)
	}
	return n, nil
}

func (p *parser) block() (*Node, error) {
	o, err := p.need(LBRACE, dom.RoleOpen)
	if err != nil {
		return nil, err
	}
	n := composite(Block, o)
	for !p.at(RBRACE) {
		if p.at(EOF) {
			return nil, p.errorf(p.peek(), "expected '}', found end of file")
		}
		st, err := p.statement()
		if err != nil {
			return nil, err
		}
		n.add(st)
	}
	return n.add(leaf(p.next(), dom.RoleClose)), nil
}

func (p *parser) caseStatement() (*Node, error) {
	n := composite(Case, leaf(p.next(), dom.RoleKeyword))
	subject, err := p.expression(1)
	if err != nil {
		return nil, err
	}
	o, err := p.need(LBRACE, dom.RoleOpen)
	if err != nil {
		return nil, err
	}
	n.add(subject, o)
	for !p.at(RBRACE) {
		opt, err := p.caseOption()
		if err != nil {
			return nil, err
		}
		n.add(opt)
	}
	return n.add(leaf(p.next(), dom.RoleClose)), nil
}

func (p *parser) caseOption() (*Node, error) {
	n := composite(CaseOption)
	for {
		v, err := p.expression(1)
		if err != nil {
			return nil, err
		}
		n.add(v)
		if !p.at(COMMA) {
			break
		}
		n.add(leaf(p.next(), dom.RoleSeparator))
	}
	colon, err := p.need(COLON, dom.RoleColon)
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return n.add(colon, body), nil
}

func (p *parser) conditional(kind Kind) (*Node, error) {
	n := composite(kind, leaf(p.next(), dom.RoleKeyword))
	cond, err := p.expression(1)
	if err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return n.add(cond, body), nil
}

func (p *parser) elseClause() (*Node, error) {
	n := composite(Else, leaf(p.next(), dom.RoleKeyword))
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	return n.add(body), nil
}

func (p *parser) ifStatement() (*Node, error) {
	n, err := p.conditional(If)
	if err != nil {
		return nil, err
	}
	for p.at(ELSIF) {
		elsif, err := p.conditional(Elsif)
		if err != nil {
			return nil, err
		}
		n.add(elsif)
	}
	if p.at(ELSE) {
		els, err := p.elseClause()
		if err != nil {
			return nil, err
		}
		n.add(els)
	}
	return n, nil
}

func (p *parser) unlessStatement() (*Node, error) {
	n, err := p.conditional(Unless)
	if err != nil {
		return nil, err
	}
	if p.at(ELSE) {
		els, err := p.elseClause()
		if err != nil {
			return nil, err
		}
		n.add(els)
	}
	return n, nil
}

func (p *parser) resource() (*Node, error) {
	n := composite(Resource, leaf(p.next(), dom.RoleName), leaf(p.next(), dom.RoleOpen))
	for !p.at(RBRACE) {
		body, err := p.resourceBody()
		if err != nil {
			return nil, err
		}
		n.add(body)
		if !p.at(SEMI) {
			break
		}
		semi := p.next()
		role := dom.RoleSeparator
		if p.at(RBRACE) {
			role = dom.RoleEndSeparator
		}
		n.add(leaf(semi, role))
	}
	c, err := p.need(RBRACE, dom.RoleClose)
	if err != nil {
		return nil, err
	}
	return n.add(c), nil
}

func (p *parser) atAttribute() bool {
	t := p.peek()
	if t.Type != NAME && t.Type != STAR && !isKeyword(t.Type) {
		return false
	}
	next := p.peekAt(1).Type
	return next == FARROW || next == PARROW
}

// resourceBody parses [title ':'] attribute (',' attribute)* ','?. Bodies
// without a title occur in resource defaults.
func (p *parser) resourceBody() (*Node, error) {
	n := composite(ResourceBody)
	if !p.atAttribute() {
		title, err := p.expression(1)
		if err != nil {
			return nil, err
		}
		colon, err := p.need(COLON, dom.RoleColon)
		if err != nil {
			return nil, err
		}
		n.add(title, colon)
	}
	for p.atAttribute() {
		attr := composite(AttributeOperation, leaf(p.next(), dom.RoleName), leaf(p.next(), dom.RoleAlign))
		value, err := p.expression(1)
		if err != nil {
			return nil, err
		}
		n.add(attr.add(value))
		if !p.at(COMMA) {
			break
		}
		comma := p.next()
		role := dom.RoleSeparator
		if p.at(RBRACE, SEMI, EOF) {
			role = dom.RoleEndSeparator
		}
		n.add(leaf(comma, role))
	}
	if !p.at(RBRACE, SEMI, EOF) {
		return nil, p.errorf(p.peek(), "expected attribute, found %s", describe(p.peek()))
	}
	return n, nil
}

func (p *parser) statementCall() (*Node, error) {
	name := leaf(p.next(), dom.RoleName)
	args := composite(CallArguments)
	for {
		arg, err := p.expression(1)
		if err != nil {
			return nil, err
		}
		args.add(arg)
		if !p.at(COMMA) {
			break
		}
		args.add(leaf(p.next(), dom.RoleSeparator))
	}
	return composite(FunctionCall, name, args), nil
}

type binaryOp struct {
	prec  int
	kind  Kind
	right bool
}

var binaryOps = map[TokenType]binaryOp{
	ASSIGN:    {1, Assignment, true},
	APPEND:    {1, Assignment, true},
	IN_EDGE:   {2, Relationship, false},
	IN_NOTIF:  {2, Relationship, false},
	OUT_EDGE:  {2, Relationship, false},
	OUT_NOTIF: {2, Relationship, false},
	OR:        {3, Binary, false},
	AND:       {4, Binary, false},
	EQ:        {5, Binary, false},
	NE:        {5, Binary, false},
	MATCH:     {5, Binary, false},
	NOMATCH:   {5, Binary, false},
	LT:        {5, Binary, false},
	LE:        {5, Binary, false},
	GT:        {5, Binary, false},
	GE:        {5, Binary, false},
	IN:        {6, Binary, false},
	PLUS:      {7, Binary, false},
	MINUS:     {7, Binary, false},
	STAR:      {8, Binary, false},
	SLASH:     {8, Binary, false},
	PERCENT:   {8, Binary, false},
}

// expression parses operators binding at least as tightly as minPrec.
func (p *parser) expression(minPrec int) (*Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := binaryOps[p.peek().Type]
		if !ok || op.prec < minPrec {
			return left, nil
		}
		tok := p.next()
		next := op.prec + 1
		if op.right {
			next = op.prec
		}
		right, err := p.expression(next)
		if err != nil {
			return nil, err
		}
		left = composite(op.kind, left, leaf(tok, dom.RoleOperator), right)
	}
}

func (p *parser) unary() (*Node, error) {
	if p.at(NOT, MINUS) {
		op := leaf(p.next(), dom.RoleOperator)
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return composite(Unary, op, operand), nil
	}
	return p.postfix()
}

func (p *parser) postfix() (*Node, error) {
	n, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.at(LBRACK) && p.attached():
			args, err := p.list(AccessArguments, LBRACK, RBRACK, p.expressionItem)
			if err != nil {
				return nil, err
			}
			n = composite(Access, n, args)
		case p.at(QMARK):
			q := leaf(p.next(), dom.RoleOperator)
			body, err := p.list(SelectorBody, LBRACE, RBRACE, p.hashEntry)
			if err != nil {
				return nil, err
			}
			n = composite(Selector, n, q, body)
		default:
			return n, nil
		}
	}
}

func (p *parser) expressionItem() (*Node, error) {
	return p.expression(1)
}

func (p *parser) hashEntry() (*Node, error) {
	key, err := p.expression(1)
	if err != nil {
		return nil, err
	}
	arrow, err := p.need(FARROW, dom.RoleAlign)
	if err != nil {
		return nil, err
	}
	value, err := p.expression(1)
	if err != nil {
		return nil, err
	}
	return composite(HashEntry, key, arrow, value), nil
}

func (p *parser) primary() (*Node, error) {
	t := p.peek()
	switch t.Type {
	case VARIABLE:
		return leaf(p.next(), dom.RoleVariable), nil
	case STRING, NUMBER, TRUE, FALSE, UNDEF, DEFAULT:
		return leaf(p.next(), dom.RoleLiteral), nil
	case NAME:
		name := leaf(p.next(), dom.RoleName)
		if p.at(LPAREN) && p.attached() {
			args, err := p.list(CallArguments, LPAREN, RPAREN, p.expressionItem)
			if err != nil {
				return nil, err
			}
			return composite(FunctionCall, name, args), nil
		}
		return name, nil
	case REF, CLASS:
		return leaf(p.next(), dom.RoleName), nil
	case LBRACK:
		return p.list(Array, LBRACK, RBRACK, p.expressionItem)
	case LBRACE:
		return p.list(Hash, LBRACE, RBRACE, p.hashEntry)
	case LPAREN:
		o := leaf(p.next(), dom.RoleOpen)
		inner, err := p.expression(1)
		if err != nil {
			return nil, err
		}
		c, err := p.need(RPAREN, dom.RoleClose)
		if err != nil {
			return nil, err
		}
		return composite(Parenthesized, o, inner, c), nil
	}
	return nil, p.errorf(t, "unexpected %s", describe(t))
}
