package interp

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/wippyai/noasync/engine"
	"github.com/wippyai/noasync/errors"
)

// Script values are plain Go values where possible:
//
//	None   nil
//	bool   bool
//	int    int64
//	float  float64
//	str    string
//
// Everything else is one of the pointer types below.

type List struct {
	Elems []any
}

func NewList(elems ...any) *List { return &List{Elems: elems} }

// Dict is an insertion-ordered map with scalar keys.
type Dict struct {
	m    map[any]any
	keys []any
}

func NewDict() *Dict { return &Dict{m: make(map[any]any)} }

func (d *Dict) Get(k any) (any, bool) {
	v, ok := d.m[dictKey(k)]
	return v, ok
}

func (d *Dict) Set(k, v any) error {
	if !hashable(k) {
		return errors.TypeMismatch(errors.PhaseExec, "hashable key", TypeName(k))
	}
	k = dictKey(k)
	if _, ok := d.m[k]; !ok {
		d.keys = append(d.keys, k)
	}
	d.m[k] = v
	return nil
}

func (d *Dict) Delete(k any) {
	k = dictKey(k)
	if _, ok := d.m[k]; !ok {
		return
	}
	delete(d.m, k)
	for i, key := range d.keys {
		if key == k {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

func (d *Dict) Keys() []any { return append([]any(nil), d.keys...) }

func (d *Dict) Len() int { return len(d.keys) }

func hashable(k any) bool {
	switch k.(type) {
	case nil, bool, int64, float64, string:
		return true
	}
	return false
}

// dictKey folds integral floats onto ints so 1 and 1.0 address one entry.
func dictKey(k any) any {
	if f, ok := k.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return k
}

// Function is a compiled def.
type Function struct {
	globals  *Namespace
	closure  *Env
	in       *Interpreter
	body     []stmtFn
	Defaults []any
	Name     string
	Qualname string
	Returns  string
	File     string
	Params   []string
	Line     int
	Async    bool
}

// BoundMethod is a function with its receiver fixed.
type BoundMethod struct {
	Self any
	Func *Function
}

// BuiltinFunc is the Go signature of functions exposed to scripts.
type BuiltinFunc func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

type Builtin struct {
	Fn   BuiltinFunc
	Name string
}

// Callable is implemented by Go values scripts can call.
type Callable interface {
	Call(ctx context.Context, args []any, kwargs map[string]any) (any, error)
}

func (b *Builtin) Call(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	return b.Fn(ctx, args, kwargs)
}

// Awaitable is implemented by Go values that can be awaited.
type Awaitable interface {
	Await(ctx context.Context) (any, error)
}

// Coroutine is the pending result of calling an async function. It runs
// when first awaited and cannot be awaited twice.
type Coroutine struct {
	run     func(ctx context.Context) (any, error)
	Name    string
	started bool
}

// NewCoroutine wraps fn as a single-use awaitable.
func NewCoroutine(name string, fn func(ctx context.Context) (any, error)) *Coroutine {
	return &Coroutine{Name: name, run: fn}
}

func (c *Coroutine) Started() bool { return c.started }

func (c *Coroutine) Await(ctx context.Context) (any, error) {
	if c.started {
		return nil, errors.New(errors.PhaseRuntime, errors.KindReusedCoroutine).
			Detail("cannot reuse already awaited coroutine %s", c.Name).Build()
	}
	c.started = true
	return c.run(ctx)
}

// Pending is an operation that completes on the event loop. Awaiting it
// suspends the current task.
type Pending struct {
	Op   engine.PendingOp
	Name string
}

func (p *Pending) Await(ctx context.Context) (any, error) {
	return engine.Suspend(ctx, p.Op)
}

// TypeName returns the script-level type name of v.
func TypeName(v any) string {
	switch v := v.(type) {
	case nil:
		return "NoneType"
	case bool:
		return "bool"
	case int64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case *List:
		return "list"
	case *Dict:
		return "dict"
	case *Function:
		return "function"
	case *BoundMethod:
		return "method"
	case *Builtin, *HostFunc:
		return "builtin_function"
	case *Class:
		return "type"
	case *Instance:
		return v.Class.Name
	case *Coroutine:
		return "coroutine"
	case *Pending:
		return "pending"
	case *engine.Task:
		return "Task"
	case *HostObject:
		return v.typeName()
	}
	return reflect.TypeOf(v).String()
}

// Truthy reports the boolean value of v.
func Truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	case *List:
		return len(v.Elems) > 0
	case *Dict:
		return v.Len() > 0
	}
	return true
}

// Str renders v the way print does.
func Str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return Repr(v)
}

// Repr renders v with strings quoted.
func Repr(v any) string {
	switch v := v.(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatFloat(v)
	case string:
		return quote(v)
	case *List:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = Repr(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Dict:
		parts := make([]string, 0, v.Len())
		for _, k := range v.keys {
			parts = append(parts, Repr(k)+": "+Repr(v.m[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *Function:
		if v.Async {
			return "<async function " + v.Qualname + ">"
		}
		return "<function " + v.Qualname + ">"
	case *BoundMethod:
		return "<bound method " + v.Func.Qualname + ">"
	case *Builtin:
		return "<built-in function " + v.Name + ">"
	case *HostFunc:
		return "<built-in function " + v.Name + ">"
	case *Class:
		return "<class '" + v.Name + "'>"
	case *Instance:
		return "<" + v.Class.Name + " object>"
	case *Coroutine:
		return "<coroutine " + v.Name + ">"
	case *Pending:
		return "<pending " + v.Name + ">"
	case *engine.Task:
		return "<Task " + v.Name + ">"
	case *HostObject:
		return "<" + v.typeName() + " object>"
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprintf("%v", v)
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
