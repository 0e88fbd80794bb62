package interp

import (
	"context"

	"github.com/wippyai/noasync/errors"
)

type Class struct {
	Members *Members
	Name    string
	File    string
	Bases   []*Class
	Line    int
}

// Lookup finds name on the class or its bases, depth first, left to right.
func (c *Class) Lookup(name string) (any, bool) {
	if v, ok := c.Members.Get(name); ok {
		return v, true
	}
	for _, b := range c.Bases {
		if v, ok := b.Lookup(name); ok {
			return v, true
		}
	}
	return nil, false
}

// IsSubclass reports whether c is other or derives from it.
func (c *Class) IsSubclass(other *Class) bool {
	if c == other {
		return true
	}
	for _, b := range c.Bases {
		if b.IsSubclass(other) {
			return true
		}
	}
	return false
}

type Instance struct {
	Class *Class
	Attrs *Members
}

// ClassSpec is a class under construction: the body has run but the class
// object does not exist yet. Hooks may replace entries in Members.
type ClassSpec struct {
	Members   *Members
	Namespace *Namespace
	Name      string
	File      string
	Bases     []*Class
	Line      int
}

// ClassHook intercepts class construction. It is installed on a class with
// a decorator or the metaclass keyword and runs once per class statement,
// before the class object is created.
type ClassHook interface {
	ConstructClass(ctx context.Context, in *Interpreter, spec *ClassSpec) error
}

// defineClass evaluates everything a class statement needs except its
// header expressions, which the caller has already resolved.
func (in *Interpreter) defineClass(ctx context.Context, spec *ClassSpec, hooks []ClassHook, decorators []any) (any, error) {
	for _, h := range hooks {
		if err := h.ConstructClass(ctx, in, spec); err != nil {
			return nil, err
		}
	}

	cls := &Class{
		Name:    spec.Name,
		Bases:   spec.Bases,
		Members: spec.Members,
		File:    spec.File,
		Line:    spec.Line,
	}

	var out any = cls
	for i := len(decorators) - 1; i >= 0; i-- {
		v, err := in.Call(ctx, decorators[i], []any{out}, nil)
		if err != nil {
			return nil, err
		}
		out = v
	}
	return out, nil
}

func (in *Interpreter) instantiate(ctx context.Context, c *Class, args []any, kwargs map[string]any) (any, error) {
	inst := &Instance{Class: c, Attrs: NewMembers()}
	init, ok := c.Lookup("__init__")
	if !ok {
		if len(args) > 0 || len(kwargs) > 0 {
			return nil, errors.New(errors.PhaseExec, errors.KindTypeMismatch).
				Detail("%s() takes no arguments", c.Name).Build()
		}
		return inst, nil
	}
	r, err := in.Call(ctx, bind(inst, init), args, kwargs)
	if err != nil {
		return nil, err
	}
	if r != nil {
		if co, ok := r.(*Coroutine); ok {
			// never awaited; mark so it is not mistaken for a live result
			co.started = true
			return nil, errors.New(errors.PhaseExec, errors.KindTypeMismatch).
				Detail("%s.__init__ must not be async", c.Name).Build()
		}
		return nil, errors.TypeMismatch(errors.PhaseExec, "None from __init__", TypeName(r))
	}
	return inst, nil
}

func bind(self, v any) any {
	if fn, ok := v.(*Function); ok {
		return &BoundMethod{Self: self, Func: fn}
	}
	return v
}

// IsInstance reports whether v is an instance of c or a subclass.
func IsInstance(v any, c *Class) bool {
	inst, ok := v.(*Instance)
	return ok && inst.Class.IsSubclass(c)
}
