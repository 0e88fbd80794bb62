package interp

import (
	"context"

	"github.com/wippyai/noasync/errors"
	"github.com/wippyai/noasync/syntax/ast"
)

func (c *compiler) expr(e ast.Expr) (exprFn, error) {
	switch e := e.(type) {
	case *ast.Name:
		id := e.ID
		return func(_ context.Context, fr *frame) (any, error) {
			if v, ok := fr.lookup(id); ok {
				return v, nil
			}
			return nil, errors.New(errors.PhaseExec, errors.KindNameError).
				Detail("name '%s' is not defined", id).Build()
		}, nil

	case *ast.Attribute:
		x, err := c.expr(e.X)
		if err != nil {
			return nil, err
		}
		attr := e.Attr
		return func(ctx context.Context, fr *frame) (any, error) {
			v, err := x(ctx, fr)
			if err != nil {
				return nil, err
			}
			return GetAttr(v, attr)
		}, nil

	case *ast.Index:
		x, err := c.expr(e.X)
		if err != nil {
			return nil, err
		}
		idx, err := c.expr(e.Index)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, fr *frame) (any, error) {
			v, err := x(ctx, fr)
			if err != nil {
				return nil, err
			}
			i, err := idx(ctx, fr)
			if err != nil {
				return nil, err
			}
			return GetIndex(v, i)
		}, nil

	case *ast.Call:
		return c.call(e)

	case *ast.Await:
		x, err := c.expr(e.X)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, fr *frame) (any, error) {
			v, err := x(ctx, fr)
			if err != nil {
				return nil, err
			}
			return fr.in.Await(ctx, v)
		}, nil

	case *ast.BinaryOp:
		x, y, err := c.pair(e.X, e.Y)
		if err != nil {
			return nil, err
		}
		op := e.Op
		return func(ctx context.Context, fr *frame) (any, error) {
			a, err := x(ctx, fr)
			if err != nil {
				return nil, err
			}
			b, err := y(ctx, fr)
			if err != nil {
				return nil, err
			}
			return BinaryOp(op, a, b)
		}, nil

	case *ast.Compare:
		x, y, err := c.pair(e.X, e.Y)
		if err != nil {
			return nil, err
		}
		op := e.Op
		return func(ctx context.Context, fr *frame) (any, error) {
			a, err := x(ctx, fr)
			if err != nil {
				return nil, err
			}
			b, err := y(ctx, fr)
			if err != nil {
				return nil, err
			}
			return Compare(op, a, b)
		}, nil

	case *ast.BoolOp:
		x, y, err := c.pair(e.X, e.Y)
		if err != nil {
			return nil, err
		}
		and := e.Op == "and"
		return func(ctx context.Context, fr *frame) (any, error) {
			a, err := x(ctx, fr)
			if err != nil {
				return nil, err
			}
			if Truthy(a) != and {
				return a, nil
			}
			return y(ctx, fr)
		}, nil

	case *ast.UnaryOp:
		x, err := c.expr(e.X)
		if err != nil {
			return nil, err
		}
		if e.Op == "not" {
			return func(ctx context.Context, fr *frame) (any, error) {
				v, err := x(ctx, fr)
				if err != nil {
					return nil, err
				}
				return !Truthy(v), nil
			}, nil
		}
		return func(ctx context.Context, fr *frame) (any, error) {
			v, err := x(ctx, fr)
			if err != nil {
				return nil, err
			}
			return Negate(v)
		}, nil

	case *ast.IntLit:
		return constant(e.Value), nil
	case *ast.FloatLit:
		return constant(e.Value), nil
	case *ast.StrLit:
		return constant(e.Value), nil
	case *ast.BoolLit:
		return constant(e.Value), nil
	case *ast.NoneLit:
		return constant(nil), nil

	case *ast.ListLit:
		elts, err := c.exprs(e.Elts)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, fr *frame) (any, error) {
			vs, err := evalAll(ctx, fr, elts)
			if err != nil {
				return nil, err
			}
			return &List{Elems: vs}, nil
		}, nil

	case *ast.DictLit:
		keys, err := c.exprs(e.Keys)
		if err != nil {
			return nil, err
		}
		values, err := c.exprs(e.Values)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, fr *frame) (any, error) {
			d := NewDict()
			for i := range keys {
				k, err := keys[i](ctx, fr)
				if err != nil {
					return nil, err
				}
				v, err := values[i](ctx, fr)
				if err != nil {
					return nil, err
				}
				if err := d.Set(k, v); err != nil {
					return nil, err
				}
			}
			return d, nil
		}, nil
	}
	return nil, c.errorf(e.Position(), "unsupported expression %T", e)
}

func constant(v any) exprFn {
	return func(context.Context, *frame) (any, error) { return v, nil }
}

func (c *compiler) pair(a, b ast.Expr) (exprFn, exprFn, error) {
	x, err := c.expr(a)
	if err != nil {
		return nil, nil, err
	}
	y, err := c.expr(b)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

func (c *compiler) call(e *ast.Call) (exprFn, error) {
	fn, err := c.expr(e.Func)
	if err != nil {
		return nil, err
	}
	args, err := c.exprs(e.Args)
	if err != nil {
		return nil, err
	}
	kwNames := make([]string, len(e.Keywords))
	kwValues := make([]exprFn, len(e.Keywords))
	for i, kw := range e.Keywords {
		kwNames[i] = kw.Name
		if kwValues[i], err = c.expr(kw.Value); err != nil {
			return nil, err
		}
	}
	return func(ctx context.Context, fr *frame) (any, error) {
		f, err := fn(ctx, fr)
		if err != nil {
			return nil, err
		}
		vs, err := evalAll(ctx, fr, args)
		if err != nil {
			return nil, err
		}
		var kwargs map[string]any
		if len(kwValues) > 0 {
			kwargs = make(map[string]any, len(kwValues))
			for i, kv := range kwValues {
				v, err := kv(ctx, fr)
				if err != nil {
					return nil, err
				}
				if _, dup := kwargs[kwNames[i]]; dup {
					return nil, errors.New(errors.PhaseExec, errors.KindTypeMismatch).
						Detail("keyword argument repeated: %s", kwNames[i]).Build()
				}
				kwargs[kwNames[i]] = v
			}
		}
		return fr.in.Call(ctx, f, vs, kwargs)
	}, nil
}
