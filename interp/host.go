package interp

import (
	"context"
	"reflect"
	"strings"
	"unicode"

	"github.com/wippyai/noasync/engine"
	"github.com/wippyai/noasync/errors"
)

// AsyncMethods is implemented by Go values whose listed methods block on
// I/O. Scripts see those methods as awaitables that run on the event loop
// in the background. Names may be given in Go or script spelling.
type AsyncMethods interface {
	AsyncFunctions() []string
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// HostFunc exposes a Go function to scripts. A leading context.Context
// parameter receives the caller's context, or the loop's operation context
// for async functions. Results may be (), (T), (error) or (T, error).
type HostFunc struct {
	fn    reflect.Value
	Name  string
	Async bool
}

func NewHostFunc(name string, fn any, async bool) (*HostFunc, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, errors.New(errors.PhaseHost, errors.KindTypeMismatch).
			Path(name).Detail("handler must be a function, got %T", fn).Build()
	}
	if err := checkResults(rv.Type()); err != nil {
		return nil, errors.Registration(name, err)
	}
	return &HostFunc{Name: name, fn: rv, Async: async}, nil
}

func checkResults(t reflect.Type) error {
	switch t.NumOut() {
	case 0, 1:
		return nil
	case 2:
		if t.Out(1) == errorType {
			return nil
		}
	}
	return errors.Unsupported(errors.PhaseHost, "results must be (), (T), (error) or (T, error), got "+t.String())
}

func (h *HostFunc) Call(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	if len(kwargs) > 0 {
		return nil, errors.New(errors.PhaseHost, errors.KindTypeMismatch).
			Path(h.Name).Detail("host functions take no keyword arguments").Build()
	}
	in, takesCtx, err := h.convertArgs(args)
	if err != nil {
		return nil, err
	}
	if !h.Async {
		return h.invoke(ctx, in, takesCtx)
	}
	return &Pending{Name: h.Name, Op: engine.OpFunc(func(opCtx context.Context) (any, error) {
		return h.invoke(opCtx, in, takesCtx)
	})}, nil
}

func (h *HostFunc) convertArgs(args []any) ([]reflect.Value, bool, error) {
	t := h.fn.Type()
	first := 0
	takesCtx := t.NumIn() > 0 && t.In(0) == contextType
	if takesCtx {
		first = 1
	}
	fixed := t.NumIn() - first
	if t.IsVariadic() {
		fixed--
	}
	if len(args) < fixed || (!t.IsVariadic() && len(args) > fixed) {
		return nil, false, errors.New(errors.PhaseHost, errors.KindTypeMismatch).
			Path(h.Name).Detail("takes %d arguments (%d given)", fixed, len(args)).Build()
	}

	out := make([]reflect.Value, 0, len(args)+first)
	if takesCtx {
		out = append(out, reflect.Value{})
	}
	for i, a := range args {
		var pt reflect.Type
		if t.IsVariadic() && i >= fixed {
			pt = t.In(t.NumIn() - 1).Elem()
		} else {
			pt = t.In(i + first)
		}
		v, err := FromValue(a, pt)
		if err != nil {
			return nil, false, errors.New(errors.PhaseHost, errors.KindTypeMismatch).
				Path(h.Name).Cause(err).Detail("argument %d", i+1).Build()
		}
		out = append(out, v)
	}
	return out, takesCtx, nil
}

func (h *HostFunc) invoke(ctx context.Context, in []reflect.Value, takesCtx bool) (any, error) {
	if takesCtx {
		in = append([]reflect.Value(nil), in...)
		in[0] = reflect.ValueOf(&ctx).Elem()
	}
	outs := h.fn.Call(in)
	var err error
	if n := len(outs); n > 0 && outs[n-1].Type() == errorType {
		if e := outs[n-1]; !e.IsNil() {
			err = e.Interface().(error)
		}
		outs = outs[:n-1]
	}
	if err != nil {
		return nil, err
	}
	if len(outs) == 0 {
		return nil, nil
	}
	v, err := ToValue(outs[0])
	if err != nil {
		return nil, errors.New(errors.PhaseHost, errors.KindTypeMismatch).
			Path(h.Name).Cause(err).Detail("result").Build()
	}
	return v, nil
}

// HostObject exposes a Go value's exported methods and fields under
// snake_case names.
type HostObject struct {
	v       reflect.Value
	methods map[string]*HostFunc
}

// NewHostObject wraps v. A non-pointer struct is copied to the heap so
// pointer-receiver methods are reachable.
func NewHostObject(v any) *HostObject {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Struct {
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		rv = p
	}

	async := make(map[string]bool)
	if am, ok := rv.Interface().(AsyncMethods); ok {
		for _, name := range am.AsyncFunctions() {
			async[SnakeCase(name)] = true
		}
	}

	h := &HostObject{v: rv, methods: make(map[string]*HostFunc)}
	rt := rv.Type()
	for i := 0; i < rt.NumMethod(); i++ {
		m := rt.Method(i)
		if !m.IsExported() || m.Name == "AsyncFunctions" || m.Name == "Namespace" {
			continue
		}
		bound := rv.Method(i)
		if checkResults(bound.Type()) != nil {
			continue
		}
		name := SnakeCase(m.Name)
		h.methods[name] = &HostFunc{Name: name, fn: bound, Async: async[name]}
	}
	return h
}

// Value returns the wrapped Go value.
func (h *HostObject) Value() any { return h.v.Interface() }

// Methods returns the script names of the exposed methods.
func (h *HostObject) Methods() []string {
	out := make([]string, 0, len(h.methods))
	for name := range h.methods {
		out = append(out, name)
	}
	return out
}

func (h *HostObject) typeName() string {
	t := h.v.Type()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

func (h *HostObject) attr(name string) (any, bool, error) {
	if m, ok := h.methods[name]; ok {
		return m, true, nil
	}
	sv := h.v
	for sv.Kind() == reflect.Ptr || sv.Kind() == reflect.Interface {
		if sv.IsNil() {
			return nil, false, nil
		}
		sv = sv.Elem()
	}
	if sv.Kind() != reflect.Struct {
		return nil, false, nil
	}
	st := sv.Type()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.IsExported() && SnakeCase(f.Name) == name {
			v, err := ToValue(sv.Field(i))
			if err != nil {
				return nil, false, errors.New(errors.PhaseHost, errors.KindTypeMismatch).
					Path(h.typeName(), name).Cause(err).Build()
			}
			return v, true, nil
		}
	}
	return nil, false, nil
}

// ToValue converts a Go value to its script representation. Maps whose
// keys do not convert to None, bool, int, float or str are rejected.
func ToValue(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	if v.CanInterface() {
		switch x := v.Interface().(type) {
		case *List, *Dict, *Function, *BoundMethod, *Builtin, *Class, *Instance,
			*Coroutine, *Pending, *HostObject, *HostFunc, *engine.Task:
			return x, nil
		}
	}
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return string(v.Bytes()), nil
		}
		fallthrough
	case reflect.Array:
		out := make([]any, v.Len())
		for i := range out {
			e, err := ToValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return &List{Elems: out}, nil
	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		d := NewDict()
		iter := v.MapRange()
		for iter.Next() {
			k, err := ToValue(iter.Key())
			if err != nil {
				return nil, err
			}
			if !hashable(k) {
				return nil, errors.TypeMismatch(errors.PhaseHost, "hashable dict key", v.Type().Key().String())
			}
			e, err := ToValue(iter.Value())
			if err != nil {
				return nil, err
			}
			_ = d.Set(k, e)
		}
		sortDict(d)
		return d, nil
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		if v.Kind() == reflect.Interface {
			return ToValue(v.Elem())
		}
		return NewHostObject(v.Interface()), nil
	case reflect.Struct:
		return NewHostObject(v.Interface()), nil
	case reflect.Func:
		if v.IsNil() {
			return nil, nil
		}
		f, err := NewHostFunc("func", v.Interface(), false)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	return nil, errors.Unsupported(errors.PhaseHost, "Go value of kind "+v.Kind().String())
}

// sortDict orders string keys so map conversions are deterministic.
func sortDict(d *Dict) {
	keys := d.keys
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && Repr(keys[j]) < Repr(keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}

// FromValue converts a script value to the Go type t.
func FromValue(x any, t reflect.Type) (reflect.Value, error) {
	mismatch := func() (reflect.Value, error) {
		return reflect.Value{}, errors.TypeMismatch(errors.PhaseHost, t.String(), TypeName(x))
	}
	if x == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func:
			return reflect.Zero(t), nil
		}
		return mismatch()
	}
	if h, ok := x.(*HostObject); ok {
		if h.v.Type().AssignableTo(t) {
			return h.v, nil
		}
		if h.v.Kind() == reflect.Ptr && h.v.Elem().Type().AssignableTo(t) {
			return h.v.Elem(), nil
		}
	}

	switch t.Kind() {
	case reflect.Interface:
		rv := reflect.ValueOf(x)
		if rv.Type().Implements(t) {
			r := reflect.New(t).Elem()
			r.Set(rv)
			return r, nil
		}
	case reflect.Bool:
		if b, ok := x.(bool); ok {
			return reflect.ValueOf(b).Convert(t), nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, ok := x.(int64); ok {
			return reflect.ValueOf(n).Convert(t), nil
		}
	case reflect.Float32, reflect.Float64:
		switch n := x.(type) {
		case int64:
			return reflect.ValueOf(float64(n)).Convert(t), nil
		case float64:
			return reflect.ValueOf(n).Convert(t), nil
		}
	case reflect.String:
		if s, ok := x.(string); ok {
			return reflect.ValueOf(s).Convert(t), nil
		}
	case reflect.Slice:
		if s, ok := x.(string); ok && t.Elem().Kind() == reflect.Uint8 {
			return reflect.ValueOf([]byte(s)).Convert(t), nil
		}
		if l, ok := x.(*List); ok {
			out := reflect.MakeSlice(t, len(l.Elems), len(l.Elems))
			for i, e := range l.Elems {
				ev, err := FromValue(e, t.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				out.Index(i).Set(ev)
			}
			return out, nil
		}
	case reflect.Map:
		if d, ok := x.(*Dict); ok {
			out := reflect.MakeMapWithSize(t, d.Len())
			for _, k := range d.keys {
				kv, err := FromValue(k, t.Key())
				if err != nil {
					return reflect.Value{}, err
				}
				vv, err := FromValue(d.m[k], t.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				out.SetMapIndex(kv, vv)
			}
			return out, nil
		}
	}
	return mismatch()
}

// SnakeCase converts PascalCase to snake_case.
// Handles acronyms: GetHTTPURL -> get_http_url
func SnakeCase(s string) string {
	if len(s) == 0 {
		return ""
	}

	runes := []rune(s)
	var result strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if unicode.IsUpper(r) {
			acronymEnd := i + 1
			for acronymEnd < len(runes) && unicode.IsUpper(runes[acronymEnd]) {
				acronymEnd++
			}

			if acronymEnd > i+1 {
				// Last uppercase before lowercase starts next word, not part of acronym
				if acronymEnd < len(runes) && unicode.IsLower(runes[acronymEnd]) {
					acronymEnd--
				}
			}

			if i > 0 && runes[i-1] != '_' {
				result.WriteByte('_')
			}

			for j := i; j < acronymEnd; j++ {
				result.WriteRune(unicode.ToLower(runes[j]))
			}
			i = acronymEnd - 1
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
