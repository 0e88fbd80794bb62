package interp

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/wippyai/noasync/errors"
)

func opError(op string, x, y any) error {
	return errors.New(errors.PhaseExec, errors.KindTypeMismatch).
		Detail("unsupported operand types for %s: '%s' and '%s'", op, TypeName(x), TypeName(y)).Build()
}

func zeroDivision(what string) error {
	return errors.New(errors.PhaseExec, errors.KindZeroDivision).Detail("%s", what).Build()
}

// numbers widens a pair of numeric operands. Booleans count as ints.
func numbers(x, y any) (a, b int64, fa, fb float64, isFloat, ok bool) {
	toInt := func(v any) (int64, bool) {
		switch v := v.(type) {
		case int64:
			return v, true
		case bool:
			if v {
				return 1, true
			}
			return 0, true
		}
		return 0, false
	}
	ia, aInt := toInt(x)
	ib, bInt := toInt(y)
	if aInt && bInt {
		return ia, ib, 0, 0, false, true
	}
	toFloat := func(v any, i int64, isInt bool) (float64, bool) {
		if isInt {
			return float64(i), true
		}
		f, ok := v.(float64)
		return f, ok
	}
	fa, okA := toFloat(x, ia, aInt)
	fb, okB := toFloat(y, ib, bInt)
	if okA && okB {
		return 0, 0, fa, fb, true, true
	}
	return 0, 0, 0, 0, false, false
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && ((m < 0) != (b < 0)) {
		m += b
	}
	return m
}

// BinaryOp applies an arithmetic operator.
func BinaryOp(op string, x, y any) (any, error) {
	switch op {
	case "+":
		switch xv := x.(type) {
		case string:
			if yv, ok := y.(string); ok {
				return xv + yv, nil
			}
			return nil, opError(op, x, y)
		case *List:
			if yv, ok := y.(*List); ok {
				out := make([]any, 0, len(xv.Elems)+len(yv.Elems))
				return &List{Elems: append(append(out, xv.Elems...), yv.Elems...)}, nil
			}
			return nil, opError(op, x, y)
		}
	case "*":
		if r, ok := repeat(x, y); ok {
			return r, nil
		}
	}

	a, b, fa, fb, isFloat, ok := numbers(x, y)
	if !ok {
		return nil, opError(op, x, y)
	}
	if !isFloat {
		switch op {
		case "+":
			return a + b, nil
		case "-":
			return a - b, nil
		case "*":
			return a * b, nil
		case "/":
			if b == 0 {
				return nil, zeroDivision("division by zero")
			}
			return float64(a) / float64(b), nil
		case "//":
			if b == 0 {
				return nil, zeroDivision("integer division or modulo by zero")
			}
			return floorDiv(a, b), nil
		case "%":
			if b == 0 {
				return nil, zeroDivision("integer division or modulo by zero")
			}
			return floorMod(a, b), nil
		}
		return nil, opError(op, x, y)
	}
	switch op {
	case "+":
		return fa + fb, nil
	case "-":
		return fa - fb, nil
	case "*":
		return fa * fb, nil
	case "/":
		if fb == 0 {
			return nil, zeroDivision("float division by zero")
		}
		return fa / fb, nil
	case "//":
		if fb == 0 {
			return nil, zeroDivision("float floor division by zero")
		}
		return math.Floor(fa / fb), nil
	case "%":
		if fb == 0 {
			return nil, zeroDivision("float modulo")
		}
		m := math.Mod(fa, fb)
		if m != 0 && ((m < 0) != (fb < 0)) {
			m += fb
		}
		return m, nil
	}
	return nil, opError(op, x, y)
}

// repeat handles str*int and list*int in either order.
func repeat(x, y any) (any, bool) {
	seq, n := x, y
	if _, ok := x.(int64); ok {
		seq, n = y, x
	}
	count, ok := n.(int64)
	if !ok {
		return nil, false
	}
	if count < 0 {
		count = 0
	}
	switch s := seq.(type) {
	case string:
		return strings.Repeat(s, int(count)), true
	case *List:
		out := make([]any, 0, len(s.Elems)*int(count))
		for i := int64(0); i < count; i++ {
			out = append(out, s.Elems...)
		}
		return &List{Elems: out}, true
	}
	return nil, false
}

// Negate applies unary minus.
func Negate(v any) (any, error) {
	switch v := v.(type) {
	case int64:
		return -v, nil
	case float64:
		return -v, nil
	case bool:
		if v {
			return int64(-1), nil
		}
		return int64(0), nil
	}
	return nil, errors.New(errors.PhaseExec, errors.KindTypeMismatch).
		Detail("bad operand type for unary -: '%s'", TypeName(v)).Build()
}

// Equal is value equality: numbers across int and float, containers deeply,
// everything else by identity.
func Equal(x, y any) bool {
	if a, b, fa, fb, isFloat, ok := numbers(x, y); ok {
		if isFloat {
			return fa == fb
		}
		return a == b
	}
	switch xv := x.(type) {
	case nil:
		return y == nil
	case string:
		yv, ok := y.(string)
		return ok && xv == yv
	case *List:
		yv, ok := y.(*List)
		if !ok || len(xv.Elems) != len(yv.Elems) {
			return false
		}
		for i := range xv.Elems {
			if !Equal(xv.Elems[i], yv.Elems[i]) {
				return false
			}
		}
		return true
	case *Dict:
		yv, ok := y.(*Dict)
		if !ok || xv.Len() != yv.Len() {
			return false
		}
		for _, k := range xv.keys {
			v, ok := yv.Get(k)
			if !ok || !Equal(xv.m[k], v) {
				return false
			}
		}
		return true
	case *BoundMethod:
		yv, ok := y.(*BoundMethod)
		return ok && xv.Func == yv.Func && xv.Self == yv.Self
	}
	return x == y
}

// Compare applies a comparison or membership operator.
func Compare(op string, x, y any) (any, error) {
	switch op {
	case "==":
		return Equal(x, y), nil
	case "!=":
		return !Equal(x, y), nil
	case "in":
		ok, err := Contains(y, x)
		if err != nil {
			return nil, err
		}
		return ok, nil
	}

	var c int
	if a, b, fa, fb, isFloat, ok := numbers(x, y); ok {
		switch {
		case isFloat && fa < fb, !isFloat && a < b:
			c = -1
		case isFloat && fa > fb, !isFloat && a > b:
			c = 1
		}
	} else if sa, ok := x.(string); ok {
		sb, ok := y.(string)
		if !ok {
			return nil, opError(op, x, y)
		}
		c = strings.Compare(sa, sb)
	} else {
		return nil, opError(op, x, y)
	}

	switch op {
	case "<":
		return c < 0, nil
	case ">":
		return c > 0, nil
	case "<=":
		return c <= 0, nil
	case ">=":
		return c >= 0, nil
	}
	return nil, opError(op, x, y)
}

// Contains reports whether item is in container.
func Contains(container, item any) (bool, error) {
	switch c := container.(type) {
	case *List:
		for _, e := range c.Elems {
			if Equal(e, item) {
				return true, nil
			}
		}
		return false, nil
	case *Dict:
		if !hashable(item) {
			return false, nil
		}
		_, ok := c.Get(item)
		return ok, nil
	case string:
		s, ok := item.(string)
		if !ok {
			return false, errors.TypeMismatch(errors.PhaseExec, "string on left of 'in'", TypeName(item))
		}
		return strings.Contains(c, s), nil
	}
	return false, errors.New(errors.PhaseExec, errors.KindTypeMismatch).
		Detail("argument of type '%s' is not iterable", TypeName(container)).Build()
}

// Len returns the length of a sized value.
func Len(v any) (int64, error) {
	switch v := v.(type) {
	case string:
		return int64(utf8.RuneCountInString(v)), nil
	case *List:
		return int64(len(v.Elems)), nil
	case *Dict:
		return int64(v.Len()), nil
	}
	return 0, errors.New(errors.PhaseExec, errors.KindTypeMismatch).
		Detail("object of type '%s' has no len()", TypeName(v)).Build()
}

// Iterate returns a snapshot of v's items.
func Iterate(v any) ([]any, error) {
	switch v := v.(type) {
	case *List:
		return append([]any(nil), v.Elems...), nil
	case *Dict:
		return v.Keys(), nil
	case string:
		out := make([]any, 0, len(v))
		for _, r := range v {
			out = append(out, string(r))
		}
		return out, nil
	}
	return nil, errors.New(errors.PhaseExec, errors.KindTypeMismatch).
		Detail("'%s' object is not iterable", TypeName(v)).Build()
}

func normIndex(i any, n int) (int, error) {
	idx, ok := i.(int64)
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseExec, "integer index", TypeName(i))
	}
	if idx < 0 {
		idx += int64(n)
	}
	if idx < 0 || idx >= int64(n) {
		return 0, errors.New(errors.PhaseExec, errors.KindIndexError).
			Detail("index %d out of range", i).Build()
	}
	return int(idx), nil
}

// GetIndex evaluates v[i].
func GetIndex(v, i any) (any, error) {
	switch c := v.(type) {
	case *List:
		idx, err := normIndex(i, len(c.Elems))
		if err != nil {
			return nil, err
		}
		return c.Elems[idx], nil
	case *Dict:
		if !hashable(i) {
			return nil, errors.TypeMismatch(errors.PhaseExec, "hashable key", TypeName(i))
		}
		val, ok := c.Get(i)
		if !ok {
			return nil, errors.New(errors.PhaseExec, errors.KindIndexError).
				Value(i).Detail("key %s not found", Repr(i)).Build()
		}
		return val, nil
	case string:
		runes := []rune(c)
		idx, err := normIndex(i, len(runes))
		if err != nil {
			return nil, err
		}
		return string(runes[idx]), nil
	}
	return nil, errors.New(errors.PhaseExec, errors.KindTypeMismatch).
		Detail("'%s' object is not subscriptable", TypeName(v)).Build()
}

// SetIndex evaluates v[i] = x.
func SetIndex(v, i, x any) error {
	switch c := v.(type) {
	case *List:
		idx, err := normIndex(i, len(c.Elems))
		if err != nil {
			return err
		}
		c.Elems[idx] = x
		return nil
	case *Dict:
		return c.Set(i, x)
	}
	return errors.New(errors.PhaseExec, errors.KindTypeMismatch).
		Detail("'%s' object does not support item assignment", TypeName(v)).Build()
}
