package rewrite

import (
	"context"
	"path"
	"strings"

	"github.com/wippyai/noasync/interp"
	"github.com/wippyai/noasync/syntax/ast"
)

// RewritingFlag is bound to True in every namespace Build produces.
const RewritingFlag = "__rewriting__"

// Build compiles tree and runs every module-level statement of it in a new
// namespace seeded with a copy of base's bindings. The file is guarded for
// the duration, so classes it defines are constructed as the tree has them.
//
// The new namespace is never named __main__, which keeps the file's
// top-level entry blocks from running a second time.
func Build(ctx context.Context, in *interp.Interpreter, tree *ast.File, file string, base *interp.Namespace) (*interp.Namespace, error) {
	unit, err := interp.Compile(tree, file)
	if err != nil {
		return nil, err
	}

	name := ModuleName(file, base)
	var ns *interp.Namespace
	if base != nil {
		ns = base.Copy(name)
	} else {
		ns = interp.NewNamespace(name, file)
	}
	ns.Set(RewritingFlag, true)

	debugf("build %s as %s", file, name)
	if err := unit.Exec(WithGuard(ctx, file), in, ns); err != nil {
		return nil, err
	}
	return ns, nil
}

// ModuleName is the name a file's isolated namespace runs under: base's
// own name unless that is __main__, else the file's base name without
// extension.
func ModuleName(file string, base *interp.Namespace) string {
	if base != nil && base.Name != "" && base.Name != "__main__" {
		return base.Name
	}
	name := path.Base(strings.ReplaceAll(file, "\\", "/"))
	name = strings.TrimSuffix(name, path.Ext(name))
	if name == "" || name == "." || name == "/" || name == "__main__" {
		return "__module__"
	}
	return name
}
