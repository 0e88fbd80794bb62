// Package errors provides structured error types for the noasync runtime.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the source position, a qualified name path and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseExec, errors.KindAttributeError).
//		At("client.nas", 12).
//		Path("Client", "fetch").
//		Detail("object has no attribute %q", "sesion").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Syntax(file, line, "unexpected %s", tok)
//	err := errors.NotFound(errors.PhaseConstruct, "class Foo")
//
// All errors implement the standard error interface and support errors.Is/As.
// Two errors match under errors.Is when their Phase and Kind agree.
package errors
