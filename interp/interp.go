package interp

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/noasync/engine"
	"github.com/wippyai/noasync/errors"
)

// Interpreter holds the builtin scope and output streams shared by every
// namespace it executes.
type Interpreter struct {
	builtins *Members
	out      io.Writer
	log      *zap.Logger
}

type Option func(*Interpreter)

// WithStdout redirects print.
func WithStdout(w io.Writer) Option {
	return func(in *Interpreter) { in.out = w }
}

// WithLogger sets the logger behind the log builtin.
func WithLogger(l *zap.Logger) Option {
	return func(in *Interpreter) {
		if l != nil {
			in.log = l
		}
	}
}

func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		builtins: NewMembers(),
		out:      os.Stdout,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.registerBuiltins()
	return in
}

// Define binds a builtin name visible from every namespace.
func (in *Interpreter) Define(name string, v any) {
	in.builtins.Set(name, v)
}

// Builtin returns a builtin binding.
func (in *Interpreter) Builtin(name string) (any, bool) {
	return in.builtins.Get(name)
}

func (in *Interpreter) Logger() *zap.Logger { return in.log }

// Exec compiles and runs a tree in ns.
func (in *Interpreter) Exec(ctx context.Context, u *Unit, ns *Namespace) error {
	return u.Exec(ctx, in, ns)
}

// Call invokes a script or Go callable.
func (in *Interpreter) Call(ctx context.Context, fn any, args []any, kwargs map[string]any) (any, error) {
	switch f := fn.(type) {
	case *Function:
		return f.call(ctx, args, kwargs)
	case *BoundMethod:
		return f.Func.call(ctx, append([]any{f.Self}, args...), kwargs)
	case *Class:
		return in.instantiate(ctx, f, args, kwargs)
	case Callable:
		return f.Call(ctx, args, kwargs)
	}
	return nil, errors.New(errors.PhaseExec, errors.KindTypeMismatch).
		Detail("'%s' object is not callable", TypeName(fn)).Build()
}

// Await resolves v. Coroutines run inline on the calling task; tasks and
// pending operations suspend it. Any other value is its own result.
func (in *Interpreter) Await(ctx context.Context, v any) (any, error) {
	switch a := v.(type) {
	case *engine.Task:
		return engine.Await(ctx, a.Future())
	case Awaitable:
		return a.Await(ctx)
	}
	return v, nil
}

// Run drives v to completion on a fresh event loop. It must not be called
// from inside a running task.
func (in *Interpreter) Run(ctx context.Context, v any) (any, error) {
	if engine.InTask(ctx) {
		return nil, errors.New(errors.PhaseRuntime, errors.KindUnsupported).
			Detail("run() cannot be called from a running event loop").Build()
	}
	loop := engine.NewLoop()
	return loop.Run(ctx, func(ctx context.Context) (any, error) {
		return in.Await(ctx, v)
	})
}

// Spawn schedules v as a task on the loop running ctx.
func (in *Interpreter) Spawn(ctx context.Context, v any) (*engine.Task, error) {
	if t, ok := v.(*engine.Task); ok {
		return t, nil
	}
	loop := engine.GetLoop(ctx)
	if loop == nil || !engine.InTask(ctx) {
		return nil, errors.New(errors.PhaseRuntime, errors.KindAwaitOutsideTask).
			Detail("no running event loop").Build()
	}
	name := "task"
	switch a := v.(type) {
	case *Coroutine:
		name = a.Name
	case *Pending:
		name = a.Name
	}
	return loop.Spawn(name, func(ctx context.Context) (any, error) {
		return in.Await(ctx, v)
	}), nil
}

func (f *Function) bind(args []any, kwargs map[string]any) (*Env, error) {
	if len(args) > len(f.Params) {
		return nil, errors.New(errors.PhaseExec, errors.KindTypeMismatch).
			Detail("%s() takes %d positional arguments but %d were given", f.Name, len(f.Params), len(args)).Build()
	}
	env := newEnv(f.closure)
	for i, a := range args {
		env.vars.Set(f.Params[i], a)
	}

	if len(kwargs) > 0 {
		names := make([]string, 0, len(kwargs))
		for k := range kwargs {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			idx := -1
			for i, p := range f.Params {
				if p == k {
					idx = i
					break
				}
			}
			switch {
			case idx < 0:
				return nil, errors.New(errors.PhaseExec, errors.KindTypeMismatch).
					Detail("%s() got an unexpected keyword argument '%s'", f.Name, k).Build()
			case idx < len(args):
				return nil, errors.New(errors.PhaseExec, errors.KindTypeMismatch).
					Detail("%s() got multiple values for argument '%s'", f.Name, k).Build()
			}
			env.vars.Set(k, kwargs[k])
		}
	}

	firstDefault := len(f.Params) - len(f.Defaults)
	var missing []string
	for i, p := range f.Params {
		if env.vars.Has(p) {
			continue
		}
		if i >= firstDefault {
			env.vars.Set(p, f.Defaults[i-firstDefault])
			continue
		}
		missing = append(missing, "'"+p+"'")
	}
	if len(missing) > 0 {
		return nil, errors.New(errors.PhaseExec, errors.KindTypeMismatch).
			Detail("%s() missing required arguments: %s", f.Name, strings.Join(missing, ", ")).Build()
	}
	return env, nil
}

func (f *Function) call(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	env, err := f.bind(args, kwargs)
	if err != nil {
		return nil, err
	}
	if f.Async {
		return NewCoroutine(f.Qualname, func(ctx context.Context) (any, error) {
			return f.run(ctx, env)
		}), nil
	}
	return f.run(ctx, env)
}

func (f *Function) run(ctx context.Context, env *Env) (any, error) {
	fr := &frame{env: env, ns: f.globals, in: f.in, file: f.File, fn: f}
	_, v, err := runBlock(ctx, fr, f.body)
	if err != nil {
		if e, ok := err.(*errors.Error); ok && e.Path == nil {
			cp := *e
			cp.Path = strings.Split(f.Qualname, ".")
			err = &cp
		}
		return nil, err
	}
	return v, nil
}

// Globals returns the namespace the function resolves globals in.
func (f *Function) Globals() *Namespace { return f.globals }
