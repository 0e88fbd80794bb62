package parser

import (
	"strconv"

	"github.com/wippyai/noasync/errors"
	"github.com/wippyai/noasync/syntax/ast"
	"github.com/wippyai/noasync/syntax/internal/token"
)

type Parser struct {
	file   string
	tokens []token.Token
	pos    int
}

func New(tokens []token.Token, file string) *Parser {
	return &Parser{tokens: tokens, file: file}
}

func (p *Parser) Parse() (*ast.File, error) {
	f := &ast.File{Name: p.file}
	for {
		p.skipNewlines()
		if p.peek().Type == token.EOF {
			return f, nil
		}
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		f.Body = append(f.Body, s)
	}
}

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(n int) token.Token {
	if p.pos+n >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) next() token.Token {
	t := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

// accept consumes the next token if it is the operator or keyword v.
func (p *Parser) accept(v string) bool {
	if p.peek().Is(v) {
		p.pos++
		return true
	}
	return false
}

func (p *Parser) expect(v string) (token.Token, error) {
	t := p.next()
	if !t.Is(v) {
		return t, p.errorf(t, "expected '%s', got %s", v, t)
	}
	return t, nil
}

func (p *Parser) expectIdent() (token.Token, error) {
	t := p.next()
	if t.Type != token.Ident {
		return t, p.errorf(t, "expected identifier, got %s", t)
	}
	return t, nil
}

func (p *Parser) skipNewlines() {
	for p.peek().Type == token.Newline {
		p.pos++
	}
}

func (p *Parser) errorf(t token.Token, format string, args ...any) error {
	return errors.Syntax(p.file, t.Line, format, args...)
}

func pos(t token.Token) ast.Pos {
	return ast.Pos{Line: t.Line, Col: t.Col}
}

// endStmt consumes a statement terminator. A closing brace or end of input
// also ends a statement but is left in place.
func (p *Parser) endStmt() error {
	t := p.peek()
	switch {
	case t.Type == token.Newline:
		p.skipNewlines()
		return nil
	case t.Type == token.EOF, t.Is("}"):
		return nil
	}
	return p.errorf(t, "expected end of statement, got %s", t)
}

func (p *Parser) parseBlock() ([]ast.Stmt, error) {
	if _, err := p.expect("{"); err != nil {
		return nil, err
	}
	var body []ast.Stmt
	for {
		p.skipNewlines()
		t := p.peek()
		if t.Is("}") {
			p.pos++
			return body, nil
		}
		if t.Type == token.EOF {
			return nil, p.errorf(t, "unexpected end of input, missing '}'")
		}
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		body = append(body, s)
	}
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	t := p.peek()

	switch {
	case t.Is("@"):
		return p.parseDecorated()
	case t.Is("def"), t.Is("async"):
		return p.parseFuncDef(nil)
	case t.Is("class"):
		return p.parseClassDef(nil)
	case t.Is("if"):
		return p.parseIf()
	case t.Is("while"):
		p.pos++
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.While{Pos: pos(t), Cond: cond, Body: body}, nil
	case t.Is("for"):
		return p.parseFor()
	case t.Is("return"):
		p.pos++
		s := &ast.Return{Pos: pos(t)}
		if n := p.peek(); n.Type != token.Newline && n.Type != token.EOF && !n.Is("}") {
			v, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			s.Value = v
		}
		return s, p.endStmt()
	case t.Is("raise"):
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Raise{Pos: pos(t), Value: v}, p.endStmt()
	case t.Is("break"):
		p.pos++
		return &ast.Break{Pos: pos(t)}, p.endStmt()
	case t.Is("continue"):
		p.pos++
		return &ast.Continue{Pos: pos(t)}, p.endStmt()
	case t.Is("pass"):
		p.pos++
		return &ast.Pass{Pos: pos(t)}, p.endStmt()
	}

	return p.parseSimple()
}

func (p *Parser) parseSimple() (ast.Stmt, error) {
	t := p.peek()
	x, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	var s ast.Stmt
	switch op := p.peek(); {
	case op.Is("="):
		p.pos++
		if err := p.checkTarget(x, op); err != nil {
			return nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		s = &ast.Assign{Pos: pos(t), Target: x, Value: v}
	case op.Is("+="), op.Is("-="):
		p.pos++
		if err := p.checkTarget(x, op); err != nil {
			return nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		s = &ast.AugAssign{Pos: pos(t), Target: x, Op: op.Value[:1], Value: v}
	default:
		s = &ast.ExprStmt{Pos: pos(t), X: x}
	}
	return s, p.endStmt()
}

func (p *Parser) checkTarget(x ast.Expr, at token.Token) error {
	switch x.(type) {
	case *ast.Name, *ast.Attribute, *ast.Index:
		return nil
	}
	return p.errorf(at, "cannot assign to expression")
}

func (p *Parser) parseDecorated() (ast.Stmt, error) {
	var decorators []ast.Expr
	for p.accept("@") {
		d, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		decorators = append(decorators, d)
		if p.peek().Type != token.Newline {
			return nil, p.errorf(p.peek(), "expected newline after decorator")
		}
		p.skipNewlines()
	}

	switch t := p.peek(); {
	case t.Is("def"), t.Is("async"):
		return p.parseFuncDef(decorators)
	case t.Is("class"):
		return p.parseClassDef(decorators)
	default:
		return nil, p.errorf(t, "decorator must precede def or class, got %s", t)
	}
}

func (p *Parser) parseFuncDef(decorators []ast.Expr) (ast.Stmt, error) {
	start := p.peek()
	async := p.accept("async")
	if _, err := p.expect("def"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("("); err != nil {
		return nil, err
	}

	fn := &ast.FuncDef{Pos: pos(start), Name: name.Value, Decorators: decorators, Async: async}
	seen := map[string]bool{}
	for !p.peek().Is(")") {
		pt, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if seen[pt.Value] {
			return nil, p.errorf(pt, "duplicate parameter %q", pt.Value)
		}
		seen[pt.Value] = true
		param := &ast.Param{Pos: pos(pt), Name: pt.Value}
		if p.accept("=") {
			if param.Default, err = p.parseExpr(); err != nil {
				return nil, err
			}
		} else if n := len(fn.Params); n > 0 && fn.Params[n-1].Default != nil {
			return nil, p.errorf(pt, "parameter without default follows parameter with default")
		}
		fn.Params = append(fn.Params, param)
		if !p.accept(",") {
			break
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	if p.accept("->") {
		if fn.Returns, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if fn.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return fn, nil
}

func (p *Parser) parseClassDef(decorators []ast.Expr) (ast.Stmt, error) {
	start := p.next()
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	cls := &ast.ClassDef{Pos: pos(start), Name: name.Value, Decorators: decorators}
	if p.accept("(") {
		args, kws, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		cls.Bases, cls.Keywords = args, kws
	}
	if cls.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return cls, nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	start := p.next()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	s := &ast.If{Pos: pos(start), Cond: cond, Body: body}

	// else and elif may sit on the line after the closing brace
	save := p.pos
	p.skipNewlines()
	switch t := p.peek(); {
	case t.Is("elif"):
		elif, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		s.Else = []ast.Stmt{elif}
	case t.Is("else"):
		p.pos++
		if s.Else, err = p.parseBlock(); err != nil {
			return nil, err
		}
	default:
		p.pos = save
	}
	return s, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	start := p.next()
	target, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("in"); err != nil {
		return nil, err
	}
	iter, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.For{Pos: pos(start), Target: target.Value, Iter: iter, Body: body}, nil
}

// parseArgs parses call arguments after '(' up to and including ')'.
func (p *Parser) parseArgs() ([]ast.Expr, []*ast.Keyword, error) {
	var args []ast.Expr
	var kws []*ast.Keyword
	for !p.peek().Is(")") {
		t := p.peek()
		if t.Type == token.Ident && p.peekAt(1).Is("=") {
			p.pos += 2
			v, err := p.parseExpr()
			if err != nil {
				return nil, nil, err
			}
			for _, kw := range kws {
				if kw.Name == t.Value {
					return nil, nil, p.errorf(t, "keyword argument %q repeated", t.Value)
				}
			}
			kws = append(kws, &ast.Keyword{Pos: pos(t), Name: t.Value, Value: v})
		} else {
			if len(kws) > 0 {
				return nil, nil, p.errorf(t, "positional argument follows keyword argument")
			}
			v, err := p.parseExpr()
			if err != nil {
				return nil, nil, err
			}
			args = append(args, v)
		}
		if !p.accept(",") {
			break
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, nil, err
	}
	return args, kws, nil
}

func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.Expr, error) {
	x, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().Is("or") {
		t := p.next()
		y, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		x = &ast.BoolOp{Pos: pos(t), Op: "or", X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	x, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().Is("and") {
		t := p.next()
		y, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		x = &ast.BoolOp{Pos: pos(t), Op: "and", X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseNot() (ast.Expr, error) {
	if t := p.peek(); t.Is("not") {
		p.pos++
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Pos: pos(t), Op: "not", X: x}, nil
	}
	return p.parseCompare()
}

var compareOps = map[string]bool{"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true, "in": true}

func (p *Parser) parseCompare() (ast.Expr, error) {
	x, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if (t.Type == token.Op || t.Type == token.Keyword) && compareOps[t.Value] {
		p.pos++
		y, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		x = &ast.Compare{Pos: pos(t), Op: t.Value, X: x, Y: y}
		if n := p.peek(); (n.Type == token.Op || n.Type == token.Keyword) && compareOps[n.Value] {
			return nil, p.errorf(n, "chained comparisons are not supported")
		}
	}
	return x, nil
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	x, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for t := p.peek(); t.Is("+") || t.Is("-"); t = p.peek() {
		p.pos++
		y, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryOp{Pos: pos(t), Op: t.Value, X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseTerm() (ast.Expr, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for t := p.peek(); t.Is("*") || t.Is("/") || t.Is("//") || t.Is("%"); t = p.peek() {
		p.pos++
		y, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryOp{Pos: pos(t), Op: t.Value, X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	t := p.peek()
	switch {
	case t.Is("-"):
		p.pos++
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Pos: pos(t), Op: "-", X: x}, nil
	case t.Is("await"):
		p.pos++
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Await{Pos: pos(t), X: x}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch {
		case t.Is("("):
			p.pos++
			args, kws, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			x = &ast.Call{Pos: x.Position(), Func: x, Args: args, Keywords: kws}
		case t.Is("."):
			p.pos++
			name := p.next()
			if name.Type != token.Ident && name.Type != token.Keyword {
				return nil, p.errorf(name, "expected attribute name, got %s", name)
			}
			x = &ast.Attribute{Pos: x.Position(), X: x, Attr: name.Value}
		case t.Is("["):
			p.pos++
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect("]"); err != nil {
				return nil, err
			}
			x = &ast.Index{Pos: x.Position(), X: x, Index: idx}
		default:
			return x, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	t := p.next()
	switch t.Type {
	case token.Ident:
		return &ast.Name{Pos: pos(t), ID: t.Value}, nil
	case token.Int:
		v, err := strconv.ParseInt(t.Value, 10, 64)
		if err != nil {
			return nil, p.errorf(t, "invalid integer %s", t.Value)
		}
		return &ast.IntLit{Pos: pos(t), Value: v}, nil
	case token.Float:
		v, err := strconv.ParseFloat(t.Value, 64)
		if err != nil {
			return nil, p.errorf(t, "invalid float %s", t.Value)
		}
		return &ast.FloatLit{Pos: pos(t), Value: v}, nil
	case token.String:
		return &ast.StrLit{Pos: pos(t), Value: t.Value}, nil
	}

	switch {
	case t.Is("True"):
		return &ast.BoolLit{Pos: pos(t), Value: true}, nil
	case t.Is("False"):
		return &ast.BoolLit{Pos: pos(t), Value: false}, nil
	case t.Is("None"):
		return &ast.NoneLit{Pos: pos(t)}, nil
	case t.Is("("):
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		return x, nil
	case t.Is("["):
		list := &ast.ListLit{Pos: pos(t)}
		for !p.peek().Is("]") {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			list.Elts = append(list.Elts, e)
			if !p.accept(",") {
				break
			}
		}
		if _, err := p.expect("]"); err != nil {
			return nil, err
		}
		return list, nil
	case t.Is("{"):
		return p.parseDict(t)
	}

	return nil, p.errorf(t, "unexpected %s", t)
}

func (p *Parser) parseDict(open token.Token) (ast.Expr, error) {
	d := &ast.DictLit{Pos: pos(open)}
	for {
		p.skipNewlines()
		if p.peek().Is("}") {
			break
		}
		k, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		p.skipNewlines()
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		d.Keys = append(d.Keys, k)
		d.Values = append(d.Values, v)
		p.skipNewlines()
		if !p.accept(",") {
			break
		}
	}
	p.skipNewlines()
	if _, err := p.expect("}"); err != nil {
		return nil, err
	}
	return d, nil
}
