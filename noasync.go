package noasync

import (
	"strings"

	"github.com/wippyai/noasync/asyncify"
	"github.com/wippyai/noasync/rewrite"
	"github.com/wippyai/noasync/runtime"
	"github.com/wippyai/noasync/syntax"
	"github.com/wippyai/noasync/syntax/ast"
)

// ClassRewrite is the rewrite a hooked class would trigger.
type ClassRewrite struct {
	Class string
	// Source is the whole file as rewritten for this class. It is empty
	// when Static is false.
	Source   string
	Magic    asyncify.MagicNames
	Promoted []string
	Line     int
	// Static is false when the magic member is not a literal and can only
	// be known by running the class body.
	Static bool
}

// Preview parses source and transforms it once per module-level class that
// uses the noasync hook. Nothing is executed.
func Preview(file, source string) ([]ClassRewrite, error) {
	tree, err := syntax.Parse(source, file)
	if err != nil {
		return nil, err
	}
	var out []ClassRewrite
	for _, s := range tree.Body {
		c, ok := s.(*ast.ClassDef)
		if !ok || !Hooked(c) {
			continue
		}
		cr := ClassRewrite{Class: c.Name, Line: c.Line}
		magic, ok := rewrite.StaticMagic(c)
		if !ok {
			out = append(out, cr)
			continue
		}
		res, err := asyncify.Transform(tree, asyncify.Config{Magic: magic})
		if err != nil {
			return nil, err
		}
		cr.Static = true
		cr.Magic = magic
		cr.Source = syntax.Format(res.File)
		prefix := c.Name + "."
		for _, p := range res.Promoted {
			if strings.HasPrefix(p, prefix) {
				cr.Promoted = append(cr.Promoted, p)
			}
		}
		out = append(out, cr)
	}
	return out, nil
}

// Hooked reports whether c names the noasync hook as its metaclass or
// one of its decorators.
func Hooked(c *ast.ClassDef) bool {
	for _, d := range c.Decorators {
		if isHook(d) {
			return true
		}
	}
	for _, kw := range c.Keywords {
		if kw.Name == "metaclass" && isHook(kw.Value) {
			return true
		}
	}
	return false
}

func isHook(e ast.Expr) bool {
	n, ok := e.(*ast.Name)
	if !ok {
		return false
	}
	for _, name := range runtime.HookNames {
		if n.ID == name {
			return true
		}
	}
	return false
}
