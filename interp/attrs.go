package interp

import (
	"context"
	"strings"

	"github.com/wippyai/noasync/engine"
	"github.com/wippyai/noasync/errors"
)

func attributeError(v any, name string) error {
	return errors.New(errors.PhaseExec, errors.KindAttributeError).
		Detail("'%s' object has no attribute '%s'", TypeName(v), name).Build()
}

// GetAttr evaluates v.name. Functions found on a class are bound when read
// through an instance.
func GetAttr(v any, name string) (any, error) {
	switch o := v.(type) {
	case *Instance:
		if val, ok := o.Attrs.Get(name); ok {
			return val, nil
		}
		if val, ok := o.Class.Lookup(name); ok {
			return bind(o, val), nil
		}
		if name == "__class__" {
			return o.Class, nil
		}
	case *Class:
		if val, ok := o.Lookup(name); ok {
			return val, nil
		}
		if name == "__name__" {
			return o.Name, nil
		}
	case *Function:
		switch name {
		case "__name__":
			return o.Name, nil
		case "__qualname__":
			return o.Qualname, nil
		}
	case *BoundMethod:
		switch name {
		case "__self__":
			return o.Self, nil
		case "__func__":
			return o.Func, nil
		case "__name__":
			return o.Func.Name, nil
		}
	case *Coroutine:
		if name == "__name__" {
			return o.Name, nil
		}
	case *HostObject:
		val, ok, err := o.attr(name)
		if err != nil {
			return nil, err
		}
		if ok {
			return val, nil
		}
	case *engine.Task:
		if m := taskMethod(o, name); m != nil {
			return m, nil
		}
	case *List:
		if m := listMethod(o, name); m != nil {
			return m, nil
		}
	case *Dict:
		if m := dictMethod(o, name); m != nil {
			return m, nil
		}
	case string:
		if m := strMethod(o, name); m != nil {
			return m, nil
		}
	}
	return nil, attributeError(v, name)
}

// SetAttr evaluates v.name = x.
func SetAttr(v any, name string, x any) error {
	switch o := v.(type) {
	case *Instance:
		o.Attrs.Set(name, x)
		return nil
	case *Class:
		o.Members.Set(name, x)
		return nil
	}
	return errors.New(errors.PhaseExec, errors.KindAttributeError).
		Detail("cannot set attribute '%s' on '%s' object", name, TypeName(v)).Build()
}

func method(name string, fn func(args []any) (any, error)) *Builtin {
	return &Builtin{Name: name, Fn: func(_ context.Context, args []any, kwargs map[string]any) (any, error) {
		if len(kwargs) > 0 {
			return nil, errors.New(errors.PhaseExec, errors.KindTypeMismatch).
				Detail("%s() takes no keyword arguments", name).Build()
		}
		return fn(args)
	}}
}

func arity(name string, args []any, min, max int) error {
	if len(args) < min || len(args) > max {
		if min == max {
			return errors.New(errors.PhaseExec, errors.KindTypeMismatch).
				Detail("%s() takes %d arguments (%d given)", name, min, len(args)).Build()
		}
		return errors.New(errors.PhaseExec, errors.KindTypeMismatch).
			Detail("%s() takes %d to %d arguments (%d given)", name, min, max, len(args)).Build()
	}
	return nil
}

func stringArg(name string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.New(errors.PhaseExec, errors.KindTypeMismatch).
			Detail("%s() argument must be str, not %s", name, TypeName(v)).Build()
	}
	return s, nil
}

func listMethod(l *List, name string) *Builtin {
	switch name {
	case "append":
		return method(name, func(args []any) (any, error) {
			if err := arity(name, args, 1, 1); err != nil {
				return nil, err
			}
			l.Elems = append(l.Elems, args[0])
			return nil, nil
		})
	case "extend":
		return method(name, func(args []any) (any, error) {
			if err := arity(name, args, 1, 1); err != nil {
				return nil, err
			}
			items, err := Iterate(args[0])
			if err != nil {
				return nil, err
			}
			l.Elems = append(l.Elems, items...)
			return nil, nil
		})
	case "pop":
		return method(name, func(args []any) (any, error) {
			if err := arity(name, args, 0, 1); err != nil {
				return nil, err
			}
			if len(l.Elems) == 0 {
				return nil, errors.New(errors.PhaseExec, errors.KindIndexError).
					Detail("pop from empty list").Build()
			}
			var at any = int64(-1)
			if len(args) == 1 {
				at = args[0]
			}
			i, err := normIndex(at, len(l.Elems))
			if err != nil {
				return nil, err
			}
			v := l.Elems[i]
			l.Elems = append(l.Elems[:i], l.Elems[i+1:]...)
			return v, nil
		})
	case "index":
		return method(name, func(args []any) (any, error) {
			if err := arity(name, args, 1, 1); err != nil {
				return nil, err
			}
			for i, e := range l.Elems {
				if Equal(e, args[0]) {
					return int64(i), nil
				}
			}
			return nil, errors.New(errors.PhaseExec, errors.KindIndexError).
				Detail("%s is not in list", Repr(args[0])).Build()
		})
	}
	return nil
}

func dictMethod(d *Dict, name string) *Builtin {
	switch name {
	case "get":
		return method(name, func(args []any) (any, error) {
			if err := arity(name, args, 1, 2); err != nil {
				return nil, err
			}
			if v, ok := d.Get(args[0]); ok && hashable(args[0]) {
				return v, nil
			}
			if len(args) == 2 {
				return args[1], nil
			}
			return nil, nil
		})
	case "keys":
		return method(name, func(args []any) (any, error) {
			return &List{Elems: d.Keys()}, arity(name, args, 0, 0)
		})
	case "values":
		return method(name, func(args []any) (any, error) {
			out := make([]any, 0, d.Len())
			for _, k := range d.keys {
				out = append(out, d.m[k])
			}
			return &List{Elems: out}, arity(name, args, 0, 0)
		})
	case "items":
		return method(name, func(args []any) (any, error) {
			out := make([]any, 0, d.Len())
			for _, k := range d.keys {
				out = append(out, &List{Elems: []any{k, d.m[k]}})
			}
			return &List{Elems: out}, arity(name, args, 0, 0)
		})
	case "pop":
		return method(name, func(args []any) (any, error) {
			if err := arity(name, args, 1, 2); err != nil {
				return nil, err
			}
			v, ok := d.Get(args[0])
			if !ok {
				if len(args) == 2 {
					return args[1], nil
				}
				return nil, errors.New(errors.PhaseExec, errors.KindIndexError).
					Value(args[0]).Detail("key %s not found", Repr(args[0])).Build()
			}
			d.Delete(args[0])
			return v, nil
		})
	}
	return nil
}

func strMethod(s, name string) *Builtin {
	unary := func(f func(string) string) *Builtin {
		return method(name, func(args []any) (any, error) {
			return f(s), arity(name, args, 0, 0)
		})
	}
	switch name {
	case "upper":
		return unary(strings.ToUpper)
	case "lower":
		return unary(strings.ToLower)
	case "strip":
		return unary(strings.TrimSpace)
	case "startswith", "endswith":
		return method(name, func(args []any) (any, error) {
			if err := arity(name, args, 1, 1); err != nil {
				return nil, err
			}
			p, err := stringArg(name, args[0])
			if err != nil {
				return nil, err
			}
			if name == "startswith" {
				return strings.HasPrefix(s, p), nil
			}
			return strings.HasSuffix(s, p), nil
		})
	case "split":
		return method(name, func(args []any) (any, error) {
			if err := arity(name, args, 0, 1); err != nil {
				return nil, err
			}
			var parts []string
			if len(args) == 0 || args[0] == nil {
				parts = strings.Fields(s)
			} else {
				sep, err := stringArg(name, args[0])
				if err != nil {
					return nil, err
				}
				parts = strings.Split(s, sep)
			}
			out := make([]any, len(parts))
			for i, p := range parts {
				out[i] = p
			}
			return &List{Elems: out}, nil
		})
	case "join":
		return method(name, func(args []any) (any, error) {
			if err := arity(name, args, 1, 1); err != nil {
				return nil, err
			}
			items, err := Iterate(args[0])
			if err != nil {
				return nil, err
			}
			parts := make([]string, len(items))
			for i, it := range items {
				if parts[i], err = stringArg(name, it); err != nil {
					return nil, err
				}
			}
			return strings.Join(parts, s), nil
		})
	case "replace":
		return method(name, func(args []any) (any, error) {
			if err := arity(name, args, 2, 2); err != nil {
				return nil, err
			}
			old, err := stringArg(name, args[0])
			if err != nil {
				return nil, err
			}
			repl, err := stringArg(name, args[1])
			if err != nil {
				return nil, err
			}
			return strings.ReplaceAll(s, old, repl), nil
		})
	case "format":
		return method(name, func(args []any) (any, error) {
			var b strings.Builder
			rest := s
			for _, a := range args {
				i := strings.Index(rest, "{}")
				if i < 0 {
					break
				}
				b.WriteString(rest[:i])
				b.WriteString(Str(a))
				rest = rest[i+2:]
			}
			b.WriteString(rest)
			return b.String(), nil
		})
	}
	return nil
}

func taskMethod(t *engine.Task, name string) any {
	switch name {
	case "name":
		return t.Name
	case "done":
		return method(name, func(args []any) (any, error) {
			return t.Done(), arity(name, args, 0, 0)
		})
	case "result":
		return method(name, func(args []any) (any, error) {
			if err := arity(name, args, 0, 0); err != nil {
				return nil, err
			}
			if !t.Done() {
				return nil, errors.New(errors.PhaseRuntime, errors.KindUnsupported).
					Detail("result is not set").Build()
			}
			return t.Result()
		})
	}
	return nil
}
