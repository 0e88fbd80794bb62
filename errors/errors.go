package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseParse     Phase = "parse"     // source to syntax tree
	PhaseTransform Phase = "transform" // magic-call rewriting
	PhaseCompile   Phase = "compile"   // syntax tree to executable unit
	PhaseExec      Phase = "exec"      // script evaluation
	PhaseConstruct Phase = "construct" // class construction hook
	PhaseRuntime   Phase = "runtime"   // event loop and task scheduling
	PhaseHost      Phase = "host"      // host object registration and calls
	PhaseLoad      Phase = "load"      // source loading
)

// Kind categorizes the error
type Kind string

const (
	KindSyntax           Kind = "syntax"
	KindTypeMismatch     Kind = "type_mismatch"
	KindNotFound         Kind = "not_found"
	KindInvalidInput     Kind = "invalid_input"
	KindNameError        Kind = "name_error"
	KindAttributeError   Kind = "attribute_error"
	KindIndexError       Kind = "index_error"
	KindZeroDivision     Kind = "zero_division"
	KindUnsupported      Kind = "unsupported"
	KindAwaitOutsideTask Kind = "await_outside_task"
	KindReusedCoroutine  Kind = "reused_coroutine"
	KindRegistration     Kind = "registration"
	KindRaised           Kind = "raised"
	KindDeadlock         Kind = "deadlock"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	File   string
	Detail string
	Path   []string
	Line   int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.File != "" || e.Line > 0 {
		b.WriteString(" at ")
		if e.File != "" {
			b.WriteString(e.File)
		}
		if e.Line > 0 {
			if e.File != "" {
				b.WriteByte(':')
			} else {
				b.WriteString("line ")
			}
			b.WriteString(strconv.Itoa(e.Line))
		}
	}

	if len(e.Path) > 0 {
		b.WriteString(" in ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. An empty Phase or Kind in
// target matches any.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return (t.Phase == "" || e.Phase == t.Phase) && (t.Kind == "" || e.Kind == t.Kind)
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// At sets the source position
func (b *Builder) At(file string, line int) *Builder {
	b.err.File = file
	b.err.Line = line
	return b
}

// Path sets the qualified name path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Syntax creates a parse error at a source position
func Syntax(file string, line int, format string, args ...any) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindSyntax,
		File:   file,
		Line:   line,
		Detail: fmt.Sprintf(format, args...),
	}
}

// NotFound creates a not found error
func NotFound(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: what + " not found",
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, want, got string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Detail: fmt.Sprintf("expected %s, got %s", want, got),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Registration creates a host registration error
func Registration(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindRegistration,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a source loading error
func Load(file string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindNotFound,
		File:   file,
		Detail: "cannot read source",
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Position returns the innermost source position recorded in the chain.
func Position(err error) (file string, line int, ok bool) {
	for err != nil {
		if e, isErr := err.(*Error); isErr && e.Line > 0 {
			file, line, ok = e.File, e.Line, true
		}
		u, isWrapper := err.(interface{ Unwrap() error })
		if !isWrapper {
			break
		}
		err = u.Unwrap()
	}
	return file, line, ok
}
