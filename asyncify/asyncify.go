package asyncify

import (
	"strings"

	"github.com/wippyai/noasync/errors"
	"github.com/wippyai/noasync/syntax/ast"
)

// Config configures the transformation.
type Config struct {
	// Matcher classifies call names. When nil, Magic is used.
	Matcher NameMatcher
	// Magic is the prefix set used when Matcher is nil.
	Magic MagicNames
	// PromoteDunder allows promotion of __name__ functions. Off by default.
	PromoteDunder bool
}

func (c Config) matcher() NameMatcher {
	if c.Matcher != nil {
		return c.Matcher
	}
	if len(c.Magic) == 0 {
		return EffectiveMagic().Matcher()
	}
	return c.Magic.Matcher()
}

// Result is a rewritten tree plus a report of what changed.
type Result struct {
	File *ast.File
	// Promoted lists qualified names of functions made async, in source order.
	Promoted []string
	// Wrapped counts calls turned into suspension points.
	Wrapped int
	// WrappedIn counts them per enclosing def or class, by qualified name.
	// Module-level wraps are under "".
	WrappedIn map[string]int
}

// WrappedWithin counts the wraps inside scope, nested scopes included.
func (r *Result) WrappedWithin(scope string) int {
	n := 0
	for q, c := range r.WrappedIn {
		if q == scope || strings.HasPrefix(q, scope+".") {
			n += c
		}
	}
	return n
}

// Transform rewrites a deep copy of f. The input tree is left untouched.
//
// A function is promoted to async when its own body, nested blocks included
// but nested def and class bodies excluded, contains a magic call. Every
// magic call anywhere in the tree is wrapped in an await unless it is
// already awaited. Promotion is by name only: calling a promoted function
// through a non-magic name neither promotes nor wraps.
func Transform(f *ast.File, cfg Config) (*Result, error) {
	if f == nil {
		return nil, errors.InvalidInput(errors.PhaseTransform, "nil syntax tree")
	}
	t := &transformer{m: cfg.matcher(), dunder: cfg.PromoteDunder, wrappedIn: map[string]int{}}
	out := ast.CloneFile(f)
	out.Body = t.stmts(out.Body, "")
	return &Result{File: out, Promoted: t.promoted, Wrapped: t.wrapped, WrappedIn: t.wrappedIn}, nil
}

// ContainsMagicCall reports whether body holds a magic call outside any
// nested def or class.
func ContainsMagicCall(body []ast.Stmt, m NameMatcher) bool {
	found := false
	for _, s := range body {
		ast.Inspect(s, func(n ast.Node) bool {
			if found {
				return false
			}
			switch n := n.(type) {
			case *ast.FuncDef, *ast.ClassDef:
				return false
			case *ast.Call:
				if MatchCall(m, n) {
					found = true
					return false
				}
			}
			return true
		})
		if found {
			return true
		}
	}
	return false
}

// NeedsPromotion reports whether fn would be promoted under m.
func NeedsPromotion(fn *ast.FuncDef, m NameMatcher) bool {
	if fn.Async || ast.IsDunder(fn.Name) {
		return false
	}
	return ContainsMagicCall(fn.Body, m)
}

type transformer struct {
	m         NameMatcher
	wrappedIn map[string]int
	scope     string
	promoted  []string
	wrapped   int
	dunder    bool
}

func qualify(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}

func (t *transformer) stmts(list []ast.Stmt, scope string) []ast.Stmt {
	for _, s := range list {
		t.stmt(s, scope)
	}
	return list
}

func (t *transformer) stmt(s ast.Stmt, scope string) {
	t.scope = scope
	switch s := s.(type) {
	case *ast.FuncDef:
		name := qualify(scope, s.Name)
		if !s.Async && (t.dunder || !ast.IsDunder(s.Name)) && ContainsMagicCall(s.Body, t.m) {
			s.Async = true
			t.promoted = append(t.promoted, name)
		}
		for i, d := range s.Decorators {
			s.Decorators[i] = t.expr(d)
		}
		for _, p := range s.Params {
			if p.Default != nil {
				p.Default = t.expr(p.Default)
			}
		}
		t.stmts(s.Body, name)
	case *ast.ClassDef:
		for i, d := range s.Decorators {
			s.Decorators[i] = t.expr(d)
		}
		for i, b := range s.Bases {
			s.Bases[i] = t.expr(b)
		}
		for _, kw := range s.Keywords {
			kw.Value = t.expr(kw.Value)
		}
		t.stmts(s.Body, qualify(scope, s.Name))
	case *ast.Return:
		if s.Value != nil {
			s.Value = t.expr(s.Value)
		}
	case *ast.Assign:
		s.Target = t.expr(s.Target)
		s.Value = t.expr(s.Value)
	case *ast.AugAssign:
		s.Target = t.expr(s.Target)
		s.Value = t.expr(s.Value)
	case *ast.If:
		s.Cond = t.expr(s.Cond)
		t.stmts(s.Body, scope)
		t.stmts(s.Else, scope)
	case *ast.While:
		s.Cond = t.expr(s.Cond)
		t.stmts(s.Body, scope)
	case *ast.For:
		s.Iter = t.expr(s.Iter)
		t.stmts(s.Body, scope)
	case *ast.Raise:
		if s.Value != nil {
			s.Value = t.expr(s.Value)
		}
	case *ast.ExprStmt:
		s.X = t.expr(s.X)
	}
}

// expr rewrites e bottom-up and returns its replacement.
func (t *transformer) expr(e ast.Expr) ast.Expr {
	switch e := e.(type) {
	case *ast.Await:
		// the operand is already a suspension point
		if call, ok := e.X.(*ast.Call); ok {
			t.callParts(call)
			return e
		}
		e.X = t.expr(e.X)
		return e
	case *ast.Call:
		t.callParts(e)
		if MatchCall(t.m, e) {
			t.wrapped++
			t.wrappedIn[t.scope]++
			return &ast.Await{Pos: e.Pos, X: e}
		}
		return e
	case *ast.Attribute:
		e.X = t.expr(e.X)
	case *ast.Index:
		e.X = t.expr(e.X)
		e.Index = t.expr(e.Index)
	case *ast.BinaryOp:
		e.X = t.expr(e.X)
		e.Y = t.expr(e.Y)
	case *ast.UnaryOp:
		e.X = t.expr(e.X)
	case *ast.BoolOp:
		e.X = t.expr(e.X)
		e.Y = t.expr(e.Y)
	case *ast.Compare:
		e.X = t.expr(e.X)
		e.Y = t.expr(e.Y)
	case *ast.ListLit:
		for i, x := range e.Elts {
			e.Elts[i] = t.expr(x)
		}
	case *ast.DictLit:
		for i := range e.Keys {
			e.Keys[i] = t.expr(e.Keys[i])
			e.Values[i] = t.expr(e.Values[i])
		}
	}
	return e
}

func (t *transformer) callParts(call *ast.Call) {
	call.Func = t.expr(call.Func)
	for i, a := range call.Args {
		call.Args[i] = t.expr(a)
	}
	for _, kw := range call.Keywords {
		kw.Value = t.expr(kw.Value)
	}
}
