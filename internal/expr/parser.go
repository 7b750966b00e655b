package expr

import (
	"math"
	"strconv"
)

// maxDepth bounds nesting of parentheses, calls and unary operators.
const maxDepth = 64

type node interface {
	eval(st *evalState) (float64, error)
}

type numberNode struct{ v float64 }

type varNode struct {
	name string
	pos  int
}

type unaryNode struct {
	op byte
	x  node
}

type binaryNode struct {
	op   byte
	l, r node
	pos  int
}

type callNode struct {
	fn   *function
	args []node
	pos  int
}

type parser struct {
	src    string
	toks   []token
	i      int
	depth  int
	idents []string
	seen   map[string]bool
}

// Program is a parsed expression that can be evaluated many times against
// different scopes.
type Program struct {
	src    string
	root   node
	idents []string
}

// Parse compiles src into a Program. Calls to functions outside the
// whitelist and calls with the wrong number of arguments are rejected here,
// so a Program can only ever invoke whitelisted math functions.
func Parse(src string) (*Program, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks, seen: map[string]bool{}}
	if p.peek().kind == tokEOF {
		return nil, &SyntaxError{Pos: 0, Msg: "empty expression"}
	}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, &SyntaxError{Pos: t.pos, Msg: "unexpected " + strconv.Quote(t.text)}
	}
	return &Program{src: src, root: root, idents: p.idents}, nil
}

// Source returns the expression text the program was parsed from.
func (p *Program) Source() string { return p.src }

// Identifiers returns the distinct variable names referenced by the
// program, in order of first appearance. PI is not included.
func (p *Program) Identifiers() []string {
	out := make([]string, len(p.idents))
	copy(out, p.idents)
	return out
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) enter(pos int) error {
	p.depth++
	if p.depth > maxDepth {
		return &SyntaxError{Pos: pos, Msg: "expression nested too deeply"}
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

// expr := term (('+' | '-') term)*
func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: t.text[0], l: left, r: right, pos: t.pos}
	}
}

// term := unary (('*' | '/') unary)*
func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "*" && t.text != "/") {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: t.text[0], l: left, r: right, pos: t.pos}
	}
}

// unary := ('-' | '+') unary | power
func (p *parser) parseUnary() (node, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "-" || t.text == "+") {
		p.next()
		if err := p.enter(t.pos); err != nil {
			return nil, err
		}
		defer p.leave()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if t.text == "+" {
			return x, nil
		}
		return &unaryNode{op: '-', x: x}, nil
	}
	return p.parsePower()
}

// power := primary ('^' unary)?
func (p *parser) parsePower() (node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.kind != tokOp || t.text != "^" {
		return base, nil
	}
	p.next()
	if err := p.enter(t.pos); err != nil {
		return nil, err
	}
	defer p.leave()
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &binaryNode{op: '^', l: base, r: exp, pos: t.pos}, nil
}

// primary := number | ident | ident '(' args ')' | '(' expr ')'
func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return &numberNode{v: t.num}, nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.parseCall(t)
		}
		if t.text == constPI {
			return &numberNode{v: math.Pi}, nil
		}
		if _, ok := functions[t.text]; ok {
			return nil, &SyntaxError{Pos: t.pos, Msg: "function " + t.text + " used without arguments"}
		}
		if !p.seen[t.text] {
			p.seen[t.text] = true
			p.idents = append(p.idents, t.text)
		}
		return &varNode{name: t.text, pos: t.pos}, nil
	case tokLParen:
		if err := p.enter(t.pos); err != nil {
			return nil, err
		}
		defer p.leave()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if c := p.next(); c.kind != tokRParen {
			return nil, &SyntaxError{Pos: c.pos, Msg: "expected ')'"}
		}
		return inner, nil
	case tokEOF:
		return nil, &SyntaxError{Pos: t.pos, Msg: "unexpected end of expression"}
	default:
		return nil, &SyntaxError{Pos: t.pos, Msg: "unexpected " + strconv.Quote(t.text)}
	}
}

func (p *parser) parseCall(name token) (node, error) {
	fn, ok := functions[name.text]
	if !ok {
		return nil, &UndefinedFunctionError{Name: name.text, Pos: name.pos}
	}
	open := p.next()
	if err := p.enter(open.pos); err != nil {
		return nil, err
	}
	defer p.leave()

	var args []node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if c := p.next(); c.kind != tokRParen {
		return nil, &SyntaxError{Pos: c.pos, Msg: "expected ')' to close call to " + fn.name}
	}
	if len(args) < fn.minArgs || len(args) > fn.maxArgs {
		return nil, &ArityError{Fn: fn.name, Expected: fn.expected(), Got: len(args)}
	}
	return &callNode{fn: fn, args: args, pos: name.pos}, nil
}
