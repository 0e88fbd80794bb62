package interp

import (
	"context"
	"strings"

	"github.com/wippyai/noasync/errors"
	"github.com/wippyai/noasync/syntax"
	"github.com/wippyai/noasync/syntax/ast"
)

type ctrl uint8

const (
	ctrlNext ctrl = iota
	ctrlReturn
	ctrlBreak
	ctrlContinue
)

type (
	stmtFn func(ctx context.Context, fr *frame) (ctrl, any, error)
	exprFn func(ctx context.Context, fr *frame) (any, error)
)

// Unit is an executable form of a syntax tree.
type Unit struct {
	body []stmtFn
	File string
}

// Compile turns a tree into closures. file tags runtime errors and every
// function and class the unit defines; when empty the tree's own name is
// used.
func Compile(f *ast.File, file string) (*Unit, error) {
	if f == nil {
		return nil, errors.InvalidInput(errors.PhaseCompile, "nil syntax tree")
	}
	if file == "" {
		file = f.Name
	}
	c := &compiler{file: file}
	body, err := c.block(f.Body)
	if err != nil {
		return nil, err
	}
	return &Unit{File: file, body: body}, nil
}

// Exec runs every module-level statement of the unit in ns.
func (u *Unit) Exec(ctx context.Context, in *Interpreter, ns *Namespace) error {
	fr := &frame{ns: ns, in: in, file: u.File}
	_, _, err := runBlock(ctx, fr, u.body)
	return err
}

func runBlock(ctx context.Context, fr *frame, body []stmtFn) (ctrl, any, error) {
	for _, s := range body {
		c, v, err := s(ctx, fr)
		if err != nil || c != ctrlNext {
			return c, v, err
		}
	}
	return ctrlNext, nil, nil
}

type compiler struct {
	file  string
	scope []string
	loops int
	funcs int
}

func (c *compiler) errorf(pos ast.Pos, format string, args ...any) error {
	return errors.New(errors.PhaseCompile, errors.KindSyntax).
		At(c.file, pos.Line).Detail(format, args...).Build()
}

func (c *compiler) qualname(name string) string {
	if len(c.scope) == 0 {
		return name
	}
	return strings.Join(c.scope, ".") + "." + name
}

func (c *compiler) block(list []ast.Stmt) ([]stmtFn, error) {
	out := make([]stmtFn, 0, len(list))
	for _, s := range list {
		fn, err := c.stmt(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c.located(s.Position(), fn))
	}
	return out, nil
}

// located tags position-less runtime errors with the statement's line.
func (c *compiler) located(pos ast.Pos, s stmtFn) stmtFn {
	file, line := c.file, pos.Line
	return func(ctx context.Context, fr *frame) (ctrl, any, error) {
		k, v, err := s(ctx, fr)
		if err != nil {
			err = locate(err, file, line)
		}
		return k, v, err
	}
}

func locate(err error, file string, line int) error {
	e, ok := err.(*errors.Error)
	if !ok || e.Line > 0 {
		return err
	}
	cp := *e
	cp.File = file
	cp.Line = line
	return &cp
}

func (c *compiler) stmt(s ast.Stmt) (stmtFn, error) {
	switch s := s.(type) {
	case *ast.FuncDef:
		return c.funcDef(s)
	case *ast.ClassDef:
		return c.classDef(s)
	case *ast.Return:
		return c.returnStmt(s)
	case *ast.Assign:
		return c.assign(s)
	case *ast.AugAssign:
		return c.augAssign(s)
	case *ast.If:
		return c.ifStmt(s)
	case *ast.While:
		return c.whileStmt(s)
	case *ast.For:
		return c.forStmt(s)
	case *ast.Break:
		if c.loops == 0 {
			return nil, c.errorf(s.Pos, "'break' outside loop")
		}
		return func(context.Context, *frame) (ctrl, any, error) { return ctrlBreak, nil, nil }, nil
	case *ast.Continue:
		if c.loops == 0 {
			return nil, c.errorf(s.Pos, "'continue' not properly in loop")
		}
		return func(context.Context, *frame) (ctrl, any, error) { return ctrlContinue, nil, nil }, nil
	case *ast.Pass:
		return func(context.Context, *frame) (ctrl, any, error) { return ctrlNext, nil, nil }, nil
	case *ast.Raise:
		return c.raise(s)
	case *ast.ExprStmt:
		x, err := c.expr(s.X)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, fr *frame) (ctrl, any, error) {
			_, err := x(ctx, fr)
			return ctrlNext, nil, err
		}, nil
	}
	return nil, c.errorf(s.Position(), "unsupported statement %T", s)
}

func (c *compiler) exprs(list []ast.Expr) ([]exprFn, error) {
	out := make([]exprFn, len(list))
	for i, e := range list {
		fn, err := c.expr(e)
		if err != nil {
			return nil, err
		}
		out[i] = fn
	}
	return out, nil
}

func evalAll(ctx context.Context, fr *frame, list []exprFn) ([]any, error) {
	out := make([]any, len(list))
	for i, e := range list {
		v, err := e(ctx, fr)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *compiler) funcDef(s *ast.FuncDef) (stmtFn, error) {
	decorators, err := c.exprs(s.Decorators)
	if err != nil {
		return nil, err
	}
	params := make([]string, len(s.Params))
	var defaults []exprFn
	for i, p := range s.Params {
		params[i] = p.Name
		if p.Default != nil {
			d, err := c.expr(p.Default)
			if err != nil {
				return nil, err
			}
			defaults = append(defaults, d)
		}
	}
	var returns string
	if s.Returns != nil {
		returns = syntax.FormatExpr(s.Returns)
	}

	qualname := c.qualname(s.Name)
	saved := *c
	c.scope = append(append([]string(nil), c.scope...), s.Name)
	c.loops = 0
	c.funcs++
	body, err := c.block(s.Body)
	*c = saved
	if err != nil {
		return nil, err
	}

	name, file, line, async := s.Name, c.file, s.Line, s.Async
	return func(ctx context.Context, fr *frame) (ctrl, any, error) {
		decs, err := evalAll(ctx, fr, decorators)
		if err != nil {
			return ctrlNext, nil, err
		}
		defs, err := evalAll(ctx, fr, defaults)
		if err != nil {
			return ctrlNext, nil, err
		}
		var closure *Env
		if fr.env != nil {
			closure = fr.env.closure()
		}
		var v any = &Function{
			Name:     name,
			Qualname: qualname,
			Params:   params,
			Defaults: defs,
			Returns:  returns,
			File:     file,
			Line:     line,
			Async:    async,
			body:     body,
			globals:  fr.ns,
			closure:  closure,
			in:       fr.in,
		}
		for i := len(decs) - 1; i >= 0; i-- {
			if v, err = fr.in.Call(ctx, decs[i], []any{v}, nil); err != nil {
				return ctrlNext, nil, err
			}
		}
		fr.store(name, v)
		return ctrlNext, nil, nil
	}, nil
}

func (c *compiler) classDef(s *ast.ClassDef) (stmtFn, error) {
	decorators, err := c.exprs(s.Decorators)
	if err != nil {
		return nil, err
	}
	bases, err := c.exprs(s.Bases)
	if err != nil {
		return nil, err
	}
	kwNames := make([]string, len(s.Keywords))
	kwValues := make([]exprFn, len(s.Keywords))
	for i, kw := range s.Keywords {
		if kw.Name != "metaclass" {
			return nil, c.errorf(kw.Pos, "unsupported class keyword %q", kw.Name)
		}
		kwNames[i] = kw.Name
		if kwValues[i], err = c.expr(kw.Value); err != nil {
			return nil, err
		}
	}

	saved := *c
	c.scope = append(append([]string(nil), c.scope...), s.Name)
	c.loops = 0
	c.funcs = 0
	body, err := c.block(s.Body)
	*c = saved
	if err != nil {
		return nil, err
	}

	name, line := s.Name, s.Line
	return func(ctx context.Context, fr *frame) (ctrl, any, error) {
		decs, err := evalAll(ctx, fr, decorators)
		if err != nil {
			return ctrlNext, nil, err
		}
		var hooks []ClassHook
		var plain []any
		for _, d := range decs {
			if h, ok := d.(ClassHook); ok {
				hooks = append(hooks, h)
				continue
			}
			plain = append(plain, d)
		}

		baseVals, err := evalAll(ctx, fr, bases)
		if err != nil {
			return ctrlNext, nil, err
		}
		classes := make([]*Class, len(baseVals))
		for i, b := range baseVals {
			cls, ok := b.(*Class)
			if !ok {
				return ctrlNext, nil, errors.TypeMismatch(errors.PhaseExec, "class as base", TypeName(b))
			}
			classes[i] = cls
		}

		for i, kv := range kwValues {
			v, err := kv(ctx, fr)
			if err != nil {
				return ctrlNext, nil, err
			}
			h, ok := v.(ClassHook)
			if !ok {
				return ctrlNext, nil, errors.New(errors.PhaseExec, errors.KindUnsupported).
					Detail("%s=%s is not a class hook", kwNames[i], Repr(v)).Build()
			}
			hooks = append([]ClassHook{h}, hooks...)
		}

		env := &Env{vars: NewMembers(), parent: fr.env, class: true}
		cf := &frame{env: env, ns: fr.ns, in: fr.in, file: fr.file, fn: fr.fn}
		if _, _, err := runBlock(ctx, cf, body); err != nil {
			return ctrlNext, nil, err
		}

		spec := &ClassSpec{
			Name:      name,
			Bases:     classes,
			Members:   env.vars,
			Namespace: fr.ns,
			File:      fr.file,
			Line:      line,
		}
		cls, err := fr.in.defineClass(ctx, spec, hooks, plain)
		if err != nil {
			return ctrlNext, nil, err
		}
		fr.store(name, cls)
		return ctrlNext, nil, nil
	}, nil
}

func (c *compiler) returnStmt(s *ast.Return) (stmtFn, error) {
	if c.funcs == 0 {
		return nil, c.errorf(s.Pos, "'return' outside function")
	}
	if s.Value == nil {
		return func(context.Context, *frame) (ctrl, any, error) { return ctrlReturn, nil, nil }, nil
	}
	x, err := c.expr(s.Value)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, fr *frame) (ctrl, any, error) {
		v, err := x(ctx, fr)
		if err != nil {
			return ctrlNext, nil, err
		}
		return ctrlReturn, v, nil
	}, nil
}

// target compiles an assignment target into a store function.
func (c *compiler) target(t ast.Expr) (func(ctx context.Context, fr *frame, v any) error, error) {
	switch t := t.(type) {
	case *ast.Name:
		name := t.ID
		return func(_ context.Context, fr *frame, v any) error {
			fr.store(name, v)
			return nil
		}, nil
	case *ast.Attribute:
		obj, err := c.expr(t.X)
		if err != nil {
			return nil, err
		}
		attr := t.Attr
		return func(ctx context.Context, fr *frame, v any) error {
			o, err := obj(ctx, fr)
			if err != nil {
				return err
			}
			return SetAttr(o, attr, v)
		}, nil
	case *ast.Index:
		obj, err := c.expr(t.X)
		if err != nil {
			return nil, err
		}
		idx, err := c.expr(t.Index)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, fr *frame, v any) error {
			o, err := obj(ctx, fr)
			if err != nil {
				return err
			}
			i, err := idx(ctx, fr)
			if err != nil {
				return err
			}
			return SetIndex(o, i, v)
		}, nil
	}
	return nil, c.errorf(t.Position(), "cannot assign to %T", t)
}

func (c *compiler) assign(s *ast.Assign) (stmtFn, error) {
	store, err := c.target(s.Target)
	if err != nil {
		return nil, err
	}
	value, err := c.expr(s.Value)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, fr *frame) (ctrl, any, error) {
		v, err := value(ctx, fr)
		if err != nil {
			return ctrlNext, nil, err
		}
		return ctrlNext, nil, store(ctx, fr, v)
	}, nil
}

func (c *compiler) augAssign(s *ast.AugAssign) (stmtFn, error) {
	load, err := c.expr(s.Target)
	if err != nil {
		return nil, err
	}
	store, err := c.target(s.Target)
	if err != nil {
		return nil, err
	}
	value, err := c.expr(s.Value)
	if err != nil {
		return nil, err
	}
	op := s.Op
	return func(ctx context.Context, fr *frame) (ctrl, any, error) {
		cur, err := load(ctx, fr)
		if err != nil {
			return ctrlNext, nil, err
		}
		v, err := value(ctx, fr)
		if err != nil {
			return ctrlNext, nil, err
		}
		r, err := BinaryOp(op, cur, v)
		if err != nil {
			return ctrlNext, nil, err
		}
		return ctrlNext, nil, store(ctx, fr, r)
	}, nil
}

func (c *compiler) ifStmt(s *ast.If) (stmtFn, error) {
	cond, err := c.expr(s.Cond)
	if err != nil {
		return nil, err
	}
	body, err := c.block(s.Body)
	if err != nil {
		return nil, err
	}
	orelse, err := c.block(s.Else)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, fr *frame) (ctrl, any, error) {
		v, err := cond(ctx, fr)
		if err != nil {
			return ctrlNext, nil, err
		}
		if Truthy(v) {
			return runBlock(ctx, fr, body)
		}
		return runBlock(ctx, fr, orelse)
	}, nil
}

func (c *compiler) loopBody(list []ast.Stmt) ([]stmtFn, error) {
	c.loops++
	defer func() { c.loops-- }()
	return c.block(list)
}

func (c *compiler) whileStmt(s *ast.While) (stmtFn, error) {
	cond, err := c.expr(s.Cond)
	if err != nil {
		return nil, err
	}
	body, err := c.loopBody(s.Body)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, fr *frame) (ctrl, any, error) {
		for {
			if err := ctx.Err(); err != nil {
				return ctrlNext, nil, err
			}
			v, err := cond(ctx, fr)
			if err != nil {
				return ctrlNext, nil, err
			}
			if !Truthy(v) {
				return ctrlNext, nil, nil
			}
			k, r, err := runBlock(ctx, fr, body)
			switch {
			case err != nil:
				return ctrlNext, nil, err
			case k == ctrlBreak:
				return ctrlNext, nil, nil
			case k == ctrlReturn:
				return k, r, nil
			}
		}
	}, nil
}

func (c *compiler) forStmt(s *ast.For) (stmtFn, error) {
	iter, err := c.expr(s.Iter)
	if err != nil {
		return nil, err
	}
	body, err := c.loopBody(s.Body)
	if err != nil {
		return nil, err
	}
	target := s.Target
	return func(ctx context.Context, fr *frame) (ctrl, any, error) {
		v, err := iter(ctx, fr)
		if err != nil {
			return ctrlNext, nil, err
		}
		items, err := Iterate(v)
		if err != nil {
			return ctrlNext, nil, err
		}
		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return ctrlNext, nil, err
			}
			fr.store(target, item)
			k, r, err := runBlock(ctx, fr, body)
			switch {
			case err != nil:
				return ctrlNext, nil, err
			case k == ctrlBreak:
				return ctrlNext, nil, nil
			case k == ctrlReturn:
				return k, r, nil
			}
		}
		return ctrlNext, nil, nil
	}, nil
}

func (c *compiler) raise(s *ast.Raise) (stmtFn, error) {
	var value exprFn
	if s.Value != nil {
		var err error
		if value, err = c.expr(s.Value); err != nil {
			return nil, err
		}
	}
	return func(ctx context.Context, fr *frame) (ctrl, any, error) {
		var v any = "exception"
		if value != nil {
			var err error
			if v, err = value(ctx, fr); err != nil {
				return ctrlNext, nil, err
			}
		}
		return ctrlNext, nil, errors.New(errors.PhaseExec, errors.KindRaised).
			Value(v).Detail("%s", Str(v)).Build()
	}, nil
}
