package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseExec,
				Kind:   KindAttributeError,
				File:   "client.nas",
				Line:   12,
				Path:   []string{"Client", "fetch"},
				Detail: "no attribute",
			},
			contains: []string{"[exec]", "attribute_error", "client.nas:12", "Client.fetch", "no attribute"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseParse,
				Kind:  KindSyntax,
			},
			contains: []string{"[parse]", "syntax"},
		},
		{
			name: "line without file",
			err: &Error{
				Phase: PhaseParse,
				Kind:  KindSyntax,
				Line:  3,
			},
			contains: []string{"at line 3"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseRuntime,
				Kind:   KindDeadlock,
				Detail: "all tasks blocked",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[runtime]", "deadlock", "all tasks blocked", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindNotFound,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find cause in chain")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseConstruct,
		Kind:  KindNotFound,
		Path:  []string{"Foo"},
	}

	if !err.Is(&Error{Phase: PhaseConstruct, Kind: KindNotFound}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseExec, Kind: KindNotFound}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseConstruct, Kind: KindSyntax}) {
		t.Error("Is should not match different kind")
	}
	if !err.Is(&Error{Phase: PhaseConstruct}) {
		t.Error("Is should treat an empty kind as a wildcard")
	}
	if !err.Is(&Error{Kind: KindNotFound}) {
		t.Error("Is should treat an empty phase as a wildcard")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if !errors.Is(wrapped, &Error{Phase: PhaseConstruct, Kind: KindNotFound}) {
		t.Error("errors.Is should match through wrapping")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseExec, KindTypeMismatch).
		At("a.nas", 4).
		Path("Greeter", "hello").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "str", "int").
		Build()

	if err.Phase != PhaseExec {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseExec)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if err.File != "a.nas" || err.Line != 4 {
		t.Errorf("position = %s:%d, want a.nas:4", err.File, err.Line)
	}
	if len(err.Path) != 2 || err.Path[0] != "Greeter" || err.Path[1] != "hello" {
		t.Errorf("Path = %v, want [Greeter hello]", err.Path)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected str, got int" {
		t.Errorf("Detail = %v, want 'expected str, got int'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("Syntax", func(t *testing.T) {
		err := Syntax("x.nas", 7, "unexpected %q", "}")
		if err.Kind != KindSyntax || err.Phase != PhaseParse {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
		if err.Line != 7 || err.File != "x.nas" {
			t.Errorf("position = %s:%d", err.File, err.Line)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseConstruct, "class Foo")
		if err.Kind != KindNotFound {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNotFound)
		}
		if !strings.Contains(err.Detail, "class Foo") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(PhaseExec, "int", "str")
		if err.Detail != "expected int, got str" {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("Load", func(t *testing.T) {
		cause := errors.New("no such file")
		err := Load("missing.nas", cause)
		if err.Phase != PhaseLoad || !errors.Is(err, cause) {
			t.Errorf("unexpected load error %v", err)
		}
	})

	t.Run("Registration", func(t *testing.T) {
		err := Registration("duplicate host", nil)
		if err.Kind != KindRegistration || err.Phase != PhaseHost {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
	})
}

func TestPosition(t *testing.T) {
	inner := Syntax("inner.nas", 9, "bad")
	outer := Wrap(PhaseConstruct, KindSyntax, inner, "rewrite failed")
	file, line, ok := Position(fmt.Errorf("ctx: %w", outer))
	if !ok {
		t.Fatal("expected a position")
	}
	if file != "inner.nas" || line != 9 {
		t.Errorf("Position = %s:%d, want inner.nas:9", file, line)
	}

	if _, _, ok := Position(errors.New("plain")); ok {
		t.Error("plain error has no position")
	}
}
