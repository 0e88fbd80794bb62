package rewrite

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/noasync/asyncify"
	"github.com/wippyai/noasync/errors"
	"github.com/wippyai/noasync/interp"
	"github.com/wippyai/noasync/syntax/ast"
)

// MagicAttr is the class member that configures magic prefixes.
const MagicAttr = "magic"

// Report describes one completed rewrite. Promoted and Wrapped count only
// the class's own members.
type Report struct {
	File     string
	Class    string
	Magic    asyncify.MagicNames
	Promoted []string
	Wrapped  int
	Duration time.Duration
}

// Hook rewrites the classes it is installed on. Install it as a decorator
// or as the metaclass of a class statement.
type Hook struct {
	Reader SourceReader
	// Cache is optional; without it every rewrite parses the file afresh.
	Cache *Cache
	// OnRewrite, when set, is called after each successful rewrite.
	OnRewrite func(Report)
}

// ConstructClass re-reads the file the class is defined in, promotes its
// magic-calling functions, re-runs the file in isolation and copies the
// members the rewrite changed over spec.Members. Other members keep the
// values the class body gave them.
//
// A class whose file is already being rewritten on ctx, or any class under
// Suppress, is left as written.
func (h *Hook) ConstructClass(ctx context.Context, in *interp.Interpreter, spec *interp.ClassSpec) error {
	if Guarded(ctx, spec.File) {
		debugf("skip %s in %s: guarded", spec.Name, spec.File)
		return nil
	}
	if h.Reader == nil {
		return errors.New(errors.PhaseConstruct, errors.KindInvalidInput).
			At(spec.File, spec.Line).
			Detail("no source reader for class %s", spec.Name).
			Build()
	}

	magic, err := ClassMagic(spec)
	if err != nil {
		return err
	}

	start := time.Now()
	src, err := h.Reader.ReadSource(spec.File)
	if err != nil {
		return err
	}
	tree, err := h.Cache.Parse(src, spec.File)
	if err != nil {
		return err
	}
	res, err := asyncify.Transform(tree, asyncify.Config{Magic: magic})
	if err != nil {
		return err
	}
	ns, err := Build(ctx, in, res.File, spec.File, spec.Namespace)
	if err != nil {
		return err
	}

	cls, ok := ns.Class(spec.Name)
	if !ok {
		return errors.New(errors.PhaseConstruct, errors.KindNotFound).
			At(spec.File, spec.Line).
			Detail("class %s not defined at module level after rewrite", spec.Name).
			Build()
	}
	for _, name := range changedMembers(res, spec.Name) {
		if v, ok := cls.Members.Get(name); ok {
			spec.Members.Set(name, v)
		}
	}

	report := Report{
		File:     spec.File,
		Class:    spec.Name,
		Magic:    magic,
		Promoted: ownPromoted(res.Promoted, spec.Name),
		Wrapped:  res.WrappedWithin(spec.Name),
		Duration: time.Since(start),
	}
	Logger().Info("class rewritten",
		zap.String("file", report.File),
		zap.String("class", report.Class),
		zap.Stringer("magic", report.Magic),
		zap.Strings("promoted", report.Promoted),
		zap.Int("wrapped", report.Wrapped),
		zap.Duration("duration", report.Duration),
	)
	if h.OnRewrite != nil {
		h.OnRewrite(report)
	}
	return nil
}

// ownPromoted keeps the promotions made inside class name. The whole file
// is transformed, so other classes show up in the result too.
func ownPromoted(promoted []string, class string) []string {
	var out []string
	for _, q := range promoted {
		if strings.HasPrefix(q, class+".") {
			out = append(out, q)
		}
	}
	return out
}

// changedMembers names the class members whose definitions the transform
// altered: promoted methods and methods holding a wrapped call, directly or
// in a nested def.
func changedMembers(res *asyncify.Result, class string) []string {
	prefix := class + "."
	seen := map[string]bool{}
	var out []string
	add := func(q string) {
		if !strings.HasPrefix(q, prefix) {
			return
		}
		name, _, _ := strings.Cut(q[len(prefix):], ".")
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, q := range res.Promoted {
		add(q)
	}
	for q := range res.WrappedIn {
		add(q)
	}
	return out
}

// ClassMagic reads the effective magic prefixes from a class body. The
// member may be absent, None, a str or a list of str.
func ClassMagic(spec *interp.ClassSpec) (asyncify.MagicNames, error) {
	v, _ := spec.Members.Get(MagicAttr)
	names, ok := magicValue(v)
	if !ok {
		return nil, errors.New(errors.PhaseConstruct, errors.KindTypeMismatch).
			At(spec.File, spec.Line).
			Path(spec.Name, MagicAttr).
			Detail("expected str or list of str, got %s", interp.TypeName(v)).
			Build()
	}
	return asyncify.EffectiveMagic(names...), nil
}

func magicValue(v any) ([]string, bool) {
	switch v := v.(type) {
	case nil:
		return nil, true
	case string:
		return []string{v}, true
	case *interp.List:
		out := make([]string, 0, len(v.Elems))
		for _, e := range v.Elems {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// StaticMagic reads the magic prefixes a class statement assigns with
// literals, without running it. ok is false when the value is not built
// from string literals.
func StaticMagic(c *ast.ClassDef) (names asyncify.MagicNames, ok bool) {
	var configured []string
	for _, s := range c.Body {
		a, isAssign := s.(*ast.Assign)
		if !isAssign {
			continue
		}
		if n, isName := a.Target.(*ast.Name); !isName || n.ID != MagicAttr {
			continue
		}
		switch v := a.Value.(type) {
		case *ast.StrLit:
			configured = []string{v.Value}
		case *ast.NoneLit:
			configured = nil
		case *ast.ListLit:
			configured = configured[:0]
			for _, e := range v.Elts {
				lit, isStr := e.(*ast.StrLit)
				if !isStr {
					return nil, false
				}
				configured = append(configured, lit.Value)
			}
		default:
			return nil, false
		}
	}
	return asyncify.EffectiveMagic(configured...), true
}
