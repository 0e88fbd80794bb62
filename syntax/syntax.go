package syntax

import (
	"github.com/wippyai/noasync/errors"
	"github.com/wippyai/noasync/syntax/ast"
	"github.com/wippyai/noasync/syntax/internal/parser"
	"github.com/wippyai/noasync/syntax/internal/printer"
	"github.com/wippyai/noasync/syntax/internal/token"
)

// Parse parses nas source. file names the source in diagnostics.
func Parse(source, file string) (*ast.File, error) {
	tokens, err := token.Tokenize(source)
	if err != nil {
		if e, ok := err.(*errors.Error); ok {
			e.File = file
		}
		return nil, err
	}
	return parser.New(tokens, file).Parse()
}

// Format renders a tree back to nas source.
func Format(f *ast.File) string {
	return printer.Print(f)
}

// FormatExpr renders a single expression.
func FormatExpr(e ast.Expr) string {
	return printer.Expr(e)
}
