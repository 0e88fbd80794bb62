package runtime

import (
	"context"
	"strings"

	"github.com/wippyai/noasync/asyncify"
	"github.com/wippyai/noasync/errors"
	"github.com/wippyai/noasync/interp"
	"github.com/wippyai/noasync/rewrite"
	"github.com/wippyai/noasync/syntax"
	"github.com/wippyai/noasync/syntax/ast"
)

// Module is an executed source file.
type Module struct {
	runtime  *Runtime
	ns       *interp.Namespace
	tree     *ast.File
	File     string
	Name     string
	rewrites []rewrite.Report
}

func (m *Module) Namespace() *interp.Namespace {
	return m.ns
}

// Get returns a module-level binding.
func (m *Module) Get(name string) (any, bool) {
	return m.ns.Get(name)
}

// Rewrites reports the classes rewritten while the module loaded.
func (m *Module) Rewrites() []rewrite.Report {
	return m.rewrites
}

// Func describes a function or method.
type Func struct {
	Name   string
	Params []string
	Async  bool
}

// Class describes a class defined by the module.
type Class struct {
	Name    string
	Methods []Func
	Line    int
}

func describe(fn *interp.Function) Func {
	return Func{Name: fn.Name, Params: fn.Params, Async: fn.Async}
}

// Classes lists the classes the file defines at module level, in
// definition order.
func (m *Module) Classes() []Class {
	var out []Class
	m.ns.Vars().Each(func(name string, v any) bool {
		cls, ok := v.(*interp.Class)
		if !ok || cls.File != m.File || cls.Name != name {
			return true
		}
		c := Class{Name: cls.Name, Line: cls.Line}
		cls.Members.Each(func(_ string, mv any) bool {
			if fn, ok := mv.(*interp.Function); ok {
				c.Methods = append(c.Methods, describe(fn))
			}
			return true
		})
		out = append(out, c)
		return true
	})
	return out
}

// Functions lists the module-level functions the file defines.
func (m *Module) Functions() []Func {
	var out []Func
	m.ns.Vars().Each(func(name string, v any) bool {
		if fn, ok := v.(*interp.Function); ok && fn.File == m.File && fn.Name == name {
			out = append(out, describe(fn))
		}
		return true
	})
	return out
}

// RewrittenSource renders the file as the hook rewrites it for class.
func (m *Module) RewrittenSource(class string) (string, error) {
	cls, ok := m.ns.Class(class)
	if !ok {
		return "", notFound("class", class)
	}
	magic, err := rewrite.ClassMagic(&interp.ClassSpec{
		Members: cls.Members,
		Name:    cls.Name,
		File:    cls.File,
		Line:    cls.Line,
	})
	if err != nil {
		return "", err
	}
	res, err := asyncify.Transform(m.tree, asyncify.Config{Magic: magic})
	if err != nil {
		return "", err
	}
	return syntax.Format(res.File), nil
}

// Call invokes a module-level function, or Class.method on an instance of
// Class created without arguments, and awaits the result.
func (m *Module) Call(ctx context.Context, name string, args ...any) (any, error) {
	v, err := m.start(ctx, name, args)
	if err != nil {
		return nil, err
	}
	return m.runtime.Await(ctx, v)
}

// start calls name without awaiting, returning what the call returned.
func (m *Module) start(ctx context.Context, name string, args []any) (any, error) {
	class, method, isMethod := strings.Cut(name, ".")
	if !isMethod {
		fn, ok := m.ns.Get(name)
		if !ok {
			return nil, notFound("function", name)
		}
		in, err := toValues(args)
		if err != nil {
			return nil, err
		}
		return m.runtime.in.Call(ctx, fn, in, nil)
	}
	inst, err := m.New(ctx, class)
	if err != nil {
		return nil, err
	}
	return inst.start(ctx, method, args)
}

// New creates an instance of class.
func (m *Module) New(ctx context.Context, class string, args ...any) (*Instance, error) {
	cls, ok := m.ns.Class(class)
	if !ok {
		return nil, notFound("class", class)
	}
	in, err := toValues(args)
	if err != nil {
		return nil, err
	}
	v, err := m.runtime.in.Call(ctx, cls, in, nil)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*interp.Instance)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseRuntime, "instance", interp.TypeName(v))
	}
	return &Instance{module: m, obj: obj}, nil
}
