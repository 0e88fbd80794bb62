package printer

import (
	"strconv"
	"strings"

	"github.com/wippyai/noasync/syntax/ast"
)

const indentUnit = "    "

// precedence levels, loosest first
const (
	precOr = iota + 1
	precAnd
	precNot
	precCompare
	precAdditive
	precTerm
	precUnary
	precPostfix
	precAtom
)

type printer struct {
	b      strings.Builder
	indent int
}

// Print renders f as source text that parses back to an equivalent tree.
func Print(f *ast.File) string {
	var p printer
	for i, s := range f.Body {
		if i > 0 {
			if _, ok := s.(*ast.ClassDef); ok {
				p.b.WriteByte('\n')
			} else if _, ok := s.(*ast.FuncDef); ok {
				p.b.WriteByte('\n')
			}
		}
		p.stmt(s)
	}
	return p.b.String()
}

// Expr renders a single expression.
func Expr(e ast.Expr) string {
	var p printer
	p.expr(e, 0)
	return p.b.String()
}

func (p *printer) line(parts ...string) {
	p.b.WriteString(strings.Repeat(indentUnit, p.indent))
	for _, s := range parts {
		p.b.WriteString(s)
	}
	p.b.WriteByte('\n')
}

func (p *printer) startLine() {
	p.b.WriteString(strings.Repeat(indentUnit, p.indent))
}

func (p *printer) block(body []ast.Stmt) {
	p.b.WriteString("{\n")
	p.indent++
	for _, s := range body {
		p.stmt(s)
	}
	p.indent--
	p.startLine()
	p.b.WriteByte('}')
}

func (p *printer) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.FuncDef:
		for _, d := range s.Decorators {
			p.startLine()
			p.b.WriteByte('@')
			p.expr(d, precPostfix)
			p.b.WriteByte('\n')
		}
		p.startLine()
		if s.Async {
			p.b.WriteString("async ")
		}
		p.b.WriteString("def ")
		p.b.WriteString(s.Name)
		p.b.WriteByte('(')
		for i, param := range s.Params {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.b.WriteString(param.Name)
			if param.Default != nil {
				p.b.WriteByte('=')
				p.expr(param.Default, 0)
			}
		}
		p.b.WriteString(") ")
		if s.Returns != nil {
			p.b.WriteString("-> ")
			p.expr(s.Returns, 0)
			p.b.WriteByte(' ')
		}
		p.block(s.Body)
		p.b.WriteByte('\n')
	case *ast.ClassDef:
		for _, d := range s.Decorators {
			p.startLine()
			p.b.WriteByte('@')
			p.expr(d, precPostfix)
			p.b.WriteByte('\n')
		}
		p.startLine()
		p.b.WriteString("class ")
		p.b.WriteString(s.Name)
		if len(s.Bases) > 0 || len(s.Keywords) > 0 {
			p.b.WriteByte('(')
			p.args(s.Bases, s.Keywords)
			p.b.WriteByte(')')
		}
		p.b.WriteByte(' ')
		p.block(s.Body)
		p.b.WriteByte('\n')
	case *ast.Return:
		if s.Value == nil {
			p.line("return")
			return
		}
		p.startLine()
		p.b.WriteString("return ")
		p.expr(s.Value, 0)
		p.b.WriteByte('\n')
	case *ast.Assign:
		p.startLine()
		p.expr(s.Target, 0)
		p.b.WriteString(" = ")
		p.expr(s.Value, 0)
		p.b.WriteByte('\n')
	case *ast.AugAssign:
		p.startLine()
		p.expr(s.Target, 0)
		p.b.WriteString(" " + s.Op + "= ")
		p.expr(s.Value, 0)
		p.b.WriteByte('\n')
	case *ast.If:
		p.startLine()
		p.ifChain(s)
		p.b.WriteByte('\n')
	case *ast.While:
		p.startLine()
		p.b.WriteString("while ")
		p.expr(s.Cond, 0)
		p.b.WriteByte(' ')
		p.block(s.Body)
		p.b.WriteByte('\n')
	case *ast.For:
		p.startLine()
		p.b.WriteString("for " + s.Target + " in ")
		p.expr(s.Iter, 0)
		p.b.WriteByte(' ')
		p.block(s.Body)
		p.b.WriteByte('\n')
	case *ast.Break:
		p.line("break")
	case *ast.Continue:
		p.line("continue")
	case *ast.Pass:
		p.line("pass")
	case *ast.Raise:
		p.startLine()
		p.b.WriteString("raise ")
		p.expr(s.Value, 0)
		p.b.WriteByte('\n')
	case *ast.ExprStmt:
		p.startLine()
		p.expr(s.X, 0)
		p.b.WriteByte('\n')
	}
}

func (p *printer) ifChain(s *ast.If) {
	p.b.WriteString("if ")
	p.expr(s.Cond, 0)
	p.b.WriteByte(' ')
	p.block(s.Body)
	if len(s.Else) == 0 {
		return
	}
	if elif, ok := s.Else[0].(*ast.If); ok && len(s.Else) == 1 {
		p.b.WriteString(" el")
		p.ifChain(elif)
		return
	}
	p.b.WriteString(" else ")
	p.block(s.Else)
}

func (p *printer) args(args []ast.Expr, kws []*ast.Keyword) {
	for i, a := range args {
		if i > 0 {
			p.b.WriteString(", ")
		}
		p.expr(a, 0)
	}
	for i, kw := range kws {
		if i > 0 || len(args) > 0 {
			p.b.WriteString(", ")
		}
		p.b.WriteString(kw.Name)
		p.b.WriteByte('=')
		p.expr(kw.Value, 0)
	}
}

func exprPrec(e ast.Expr) int {
	switch e := e.(type) {
	case *ast.BoolOp:
		if e.Op == "or" {
			return precOr
		}
		return precAnd
	case *ast.UnaryOp:
		if e.Op == "not" {
			return precNot
		}
		return precUnary
	case *ast.Compare:
		return precCompare
	case *ast.BinaryOp:
		if e.Op == "+" || e.Op == "-" {
			return precAdditive
		}
		return precTerm
	case *ast.Await:
		return precUnary
	case *ast.Call, *ast.Attribute, *ast.Index:
		return precPostfix
	}
	return precAtom
}

func (p *printer) expr(e ast.Expr, min int) {
	if exprPrec(e) < min {
		p.b.WriteByte('(')
		p.expr(e, 0)
		p.b.WriteByte(')')
		return
	}

	switch e := e.(type) {
	case *ast.Name:
		p.b.WriteString(e.ID)
	case *ast.IntLit:
		p.b.WriteString(strconv.FormatInt(e.Value, 10))
	case *ast.FloatLit:
		s := strconv.FormatFloat(e.Value, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEn") {
			s += ".0"
		}
		p.b.WriteString(s)
	case *ast.StrLit:
		p.b.WriteString(Quote(e.Value))
	case *ast.BoolLit:
		if e.Value {
			p.b.WriteString("True")
		} else {
			p.b.WriteString("False")
		}
	case *ast.NoneLit:
		p.b.WriteString("None")
	case *ast.ListLit:
		p.b.WriteByte('[')
		for i, x := range e.Elts {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.expr(x, 0)
		}
		p.b.WriteByte(']')
	case *ast.DictLit:
		p.b.WriteByte('{')
		for i := range e.Keys {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.expr(e.Keys[i], 0)
			p.b.WriteString(": ")
			p.expr(e.Values[i], 0)
		}
		p.b.WriteByte('}')
	case *ast.Attribute:
		p.expr(e.X, precPostfix)
		p.b.WriteByte('.')
		p.b.WriteString(e.Attr)
	case *ast.Index:
		p.expr(e.X, precPostfix)
		p.b.WriteByte('[')
		p.expr(e.Index, 0)
		p.b.WriteByte(']')
	case *ast.Call:
		p.expr(e.Func, precPostfix)
		p.b.WriteByte('(')
		p.args(e.Args, e.Keywords)
		p.b.WriteByte(')')
	case *ast.Await:
		p.b.WriteString("await ")
		p.expr(e.X, precUnary)
	case *ast.UnaryOp:
		if e.Op == "not" {
			p.b.WriteString("not ")
			p.expr(e.X, precNot)
		} else {
			p.b.WriteString(e.Op)
			p.expr(e.X, precUnary)
		}
	case *ast.BoolOp:
		prec := exprPrec(e)
		p.expr(e.X, prec)
		p.b.WriteString(" " + e.Op + " ")
		p.expr(e.Y, prec+1)
	case *ast.Compare:
		p.expr(e.X, precAdditive)
		p.b.WriteString(" " + e.Op + " ")
		p.expr(e.Y, precAdditive)
	case *ast.BinaryOp:
		prec := exprPrec(e)
		p.expr(e.X, prec)
		p.b.WriteString(" " + e.Op + " ")
		p.expr(e.Y, prec+1)
	}
}

// Quote renders s as a double-quoted string literal.
func Quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case 0:
			b.WriteString(`\0`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
