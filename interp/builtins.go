package interp

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/noasync/engine"
	"github.com/wippyai/noasync/errors"
)

func (in *Interpreter) builtin(name string, fn BuiltinFunc) {
	in.builtins.Set(name, &Builtin{Name: name, Fn: fn})
}

// simple registers a builtin that takes no keyword arguments.
func (in *Interpreter) simple(name string, min, max int, fn func(ctx context.Context, args []any) (any, error)) {
	in.builtin(name, func(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
		if len(kwargs) > 0 {
			return nil, errors.New(errors.PhaseExec, errors.KindTypeMismatch).
				Detail("%s() takes no keyword arguments", name).Build()
		}
		if max >= 0 {
			if err := arity(name, args, min, max); err != nil {
				return nil, err
			}
		} else if len(args) < min {
			return nil, errors.New(errors.PhaseExec, errors.KindTypeMismatch).
				Detail("%s() takes at least %d arguments (%d given)", name, min, len(args)).Build()
		}
		return fn(ctx, args)
	})
}

func (in *Interpreter) registerBuiltins() {
	in.builtin("print", func(_ context.Context, args []any, kwargs map[string]any) (any, error) {
		sep, end := " ", "\n"
		for k, v := range kwargs {
			s, ok := v.(string)
			switch {
			case k == "sep" && ok:
				sep = s
			case k == "end" && ok:
				end = s
			default:
				return nil, errors.New(errors.PhaseExec, errors.KindTypeMismatch).
					Detail("print() got an unexpected keyword argument '%s'", k).Build()
			}
		}
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = Str(a)
		}
		_, err := fmt.Fprint(in.out, strings.Join(parts, sep)+end)
		return nil, err
	})

	in.builtin("log", func(_ context.Context, args []any, kwargs map[string]any) (any, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = Str(a)
		}
		fields := make([]zap.Field, 0, len(kwargs))
		for k, v := range kwargs {
			fields = append(fields, zap.String(k, Str(v)))
		}
		in.log.Info(strings.Join(parts, " "), fields...)
		return nil, nil
	})

	in.simple("len", 1, 1, func(_ context.Context, args []any) (any, error) {
		n, err := Len(args[0])
		if err != nil {
			return nil, err
		}
		return n, nil
	})
	in.simple("str", 0, 1, func(_ context.Context, args []any) (any, error) {
		if len(args) == 0 {
			return "", nil
		}
		return Str(args[0]), nil
	})
	in.simple("repr", 1, 1, func(_ context.Context, args []any) (any, error) {
		return Repr(args[0]), nil
	})
	in.simple("bool", 0, 1, func(_ context.Context, args []any) (any, error) {
		return len(args) == 1 && Truthy(args[0]), nil
	})
	in.simple("int", 0, 1, func(_ context.Context, args []any) (any, error) {
		if len(args) == 0 {
			return int64(0), nil
		}
		return toInt(args[0])
	})
	in.simple("float", 0, 1, func(_ context.Context, args []any) (any, error) {
		if len(args) == 0 {
			return 0.0, nil
		}
		return toFloat(args[0])
	})
	in.simple("abs", 1, 1, func(_ context.Context, args []any) (any, error) {
		switch v := args[0].(type) {
		case int64:
			if v < 0 {
				return -v, nil
			}
			return v, nil
		case float64:
			return math.Abs(v), nil
		}
		return nil, errors.New(errors.PhaseExec, errors.KindTypeMismatch).
			Detail("bad operand type for abs(): '%s'", TypeName(args[0])).Build()
	})
	in.simple("min", 1, -1, func(_ context.Context, args []any) (any, error) {
		return extreme("min", "<", args)
	})
	in.simple("max", 1, -1, func(_ context.Context, args []any) (any, error) {
		return extreme("max", ">", args)
	})
	in.simple("range", 1, 3, func(_ context.Context, args []any) (any, error) {
		return rangeList(args)
	})
	in.simple("list", 0, 1, func(_ context.Context, args []any) (any, error) {
		if len(args) == 0 {
			return &List{}, nil
		}
		items, err := Iterate(args[0])
		if err != nil {
			return nil, err
		}
		return &List{Elems: items}, nil
	})
	in.simple("dict", 0, 0, func(context.Context, []any) (any, error) {
		return NewDict(), nil
	})
	in.simple("isinstance", 2, 2, func(_ context.Context, args []any) (any, error) {
		cls, ok := args[1].(*Class)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseExec, "class", TypeName(args[1]))
		}
		return IsInstance(args[0], cls), nil
	})
	in.simple("getattr", 2, 3, func(_ context.Context, args []any) (any, error) {
		name, err := stringArg("getattr", args[1])
		if err != nil {
			return nil, err
		}
		v, err := GetAttr(args[0], name)
		if err != nil && len(args) == 3 {
			return args[2], nil
		}
		return v, err
	})
	in.simple("hasattr", 2, 2, func(_ context.Context, args []any) (any, error) {
		name, err := stringArg("hasattr", args[1])
		if err != nil {
			return nil, err
		}
		_, err = GetAttr(args[0], name)
		return err == nil, nil
	})
	in.simple("setattr", 3, 3, func(_ context.Context, args []any) (any, error) {
		name, err := stringArg("setattr", args[1])
		if err != nil {
			return nil, err
		}
		return nil, SetAttr(args[0], name, args[2])
	})
	in.simple("type", 1, 1, func(_ context.Context, args []any) (any, error) {
		if inst, ok := args[0].(*Instance); ok {
			return inst.Class, nil
		}
		return TypeName(args[0]), nil
	})
	in.simple("iscoroutine", 1, 1, func(_ context.Context, args []any) (any, error) {
		_, ok := args[0].(*Coroutine)
		return ok, nil
	})
	in.simple("iscoroutinefunction", 1, 1, func(_ context.Context, args []any) (any, error) {
		switch f := args[0].(type) {
		case *Function:
			return f.Async, nil
		case *BoundMethod:
			return f.Func.Async, nil
		}
		return false, nil
	})

	in.registerAsyncBuiltins()
}

// registerAsyncBuiltins adds the event loop surface: run, spawn, gather,
// wait and sleep.
func (in *Interpreter) registerAsyncBuiltins() {
	in.simple("run", 1, 1, func(ctx context.Context, args []any) (any, error) {
		return in.Run(ctx, args[0])
	})

	spawn := func(ctx context.Context, args []any) (any, error) {
		t, err := in.Spawn(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	in.simple("spawn", 1, 1, spawn)
	in.simple("ensure_future", 1, 1, spawn)

	in.simple("gather", 0, -1, func(ctx context.Context, args []any) (any, error) {
		return in.gather(ctx, "gather", args)
	})
	in.simple("wait", 1, 1, func(ctx context.Context, args []any) (any, error) {
		items, err := Iterate(args[0])
		if err != nil {
			return nil, err
		}
		return in.gather(ctx, "wait", items)
	})

	in.simple("sleep", 1, 1, func(_ context.Context, args []any) (any, error) {
		secs, err := toFloat(args[0])
		if err != nil {
			return nil, err
		}
		d := time.Duration(secs.(float64) * float64(time.Second))
		return &Pending{Name: "sleep", Op: engine.SleepOp{D: d}}, nil
	})
}

// gather schedules every awaitable as a task right away and returns a
// coroutine resolving to their results in order.
func (in *Interpreter) gather(ctx context.Context, name string, items []any) (any, error) {
	tasks := make([]*engine.Task, len(items))
	for i, it := range items {
		t, err := in.Spawn(ctx, it)
		if err != nil {
			return nil, err
		}
		tasks[i] = t
	}
	return NewCoroutine(name, func(ctx context.Context) (any, error) {
		values, err := engine.Gather(ctx, tasks...)
		if err != nil {
			return nil, err
		}
		return &List{Elems: values}, nil
	}), nil
}

func toInt(v any) (any, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.InvalidInput(errors.PhaseExec, "cannot convert "+formatFloat(v)+" to integer")
		}
		return int64(v), nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(strings.ReplaceAll(v, "_", "")), 10, 64)
		if err != nil {
			return nil, errors.InvalidInput(errors.PhaseExec, "invalid literal for int(): "+quote(v))
		}
		return n, nil
	}
	return nil, errors.TypeMismatch(errors.PhaseExec, "number or string", TypeName(v))
}

func toFloat(v any) (any, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1.0, nil
		}
		return 0.0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, errors.InvalidInput(errors.PhaseExec, "could not convert string to float: "+quote(v))
		}
		return f, nil
	}
	return nil, errors.TypeMismatch(errors.PhaseExec, "number or string", TypeName(v))
}

func extreme(name, op string, args []any) (any, error) {
	items := args
	if len(args) == 1 {
		var err error
		if items, err = Iterate(args[0]); err != nil {
			return nil, err
		}
	}
	if len(items) == 0 {
		return nil, errors.InvalidInput(errors.PhaseExec, name+"() arg is an empty sequence")
	}
	best := items[0]
	for _, it := range items[1:] {
		better, err := Compare(op, it, best)
		if err != nil {
			return nil, err
		}
		if better.(bool) {
			best = it
		}
	}
	return best, nil
}

func rangeList(args []any) (any, error) {
	ints := make([]int64, len(args))
	for i, a := range args {
		n, ok := a.(int64)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseExec, "int", TypeName(a))
		}
		ints[i] = n
	}
	start, stop, step := int64(0), int64(0), int64(1)
	switch len(ints) {
	case 1:
		stop = ints[0]
	case 2:
		start, stop = ints[0], ints[1]
	case 3:
		start, stop, step = ints[0], ints[1], ints[2]
	}
	if step == 0 {
		return nil, errors.InvalidInput(errors.PhaseExec, "range() arg 3 must not be zero")
	}
	var out []any
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		out = append(out, i)
	}
	return &List{Elems: out}, nil
}
