package ast

// Inspect traverses the tree rooted at n in depth-first order. If f returns
// false the children of the current node are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}

	switch n := n.(type) {
	case *File:
		inspectStmts(n.Body, f)
	case *FuncDef:
		inspectExprs(n.Decorators, f)
		for _, p := range n.Params {
			if p.Default != nil {
				Inspect(p.Default, f)
			}
		}
		if n.Returns != nil {
			Inspect(n.Returns, f)
		}
		inspectStmts(n.Body, f)
	case *ClassDef:
		inspectExprs(n.Decorators, f)
		inspectExprs(n.Bases, f)
		for _, kw := range n.Keywords {
			Inspect(kw.Value, f)
		}
		inspectStmts(n.Body, f)
	case *Return:
		if n.Value != nil {
			Inspect(n.Value, f)
		}
	case *Assign:
		Inspect(n.Target, f)
		Inspect(n.Value, f)
	case *AugAssign:
		Inspect(n.Target, f)
		Inspect(n.Value, f)
	case *If:
		Inspect(n.Cond, f)
		inspectStmts(n.Body, f)
		inspectStmts(n.Else, f)
	case *While:
		Inspect(n.Cond, f)
		inspectStmts(n.Body, f)
	case *For:
		Inspect(n.Iter, f)
		inspectStmts(n.Body, f)
	case *Raise:
		if n.Value != nil {
			Inspect(n.Value, f)
		}
	case *ExprStmt:
		Inspect(n.X, f)
	case *Attribute:
		Inspect(n.X, f)
	case *Index:
		Inspect(n.X, f)
		Inspect(n.Index, f)
	case *Call:
		Inspect(n.Func, f)
		inspectExprs(n.Args, f)
		for _, kw := range n.Keywords {
			Inspect(kw.Value, f)
		}
	case *Await:
		Inspect(n.X, f)
	case *BinaryOp:
		Inspect(n.X, f)
		Inspect(n.Y, f)
	case *UnaryOp:
		Inspect(n.X, f)
	case *BoolOp:
		Inspect(n.X, f)
		Inspect(n.Y, f)
	case *Compare:
		Inspect(n.X, f)
		Inspect(n.Y, f)
	case *ListLit:
		inspectExprs(n.Elts, f)
	case *DictLit:
		for i := range n.Keys {
			Inspect(n.Keys[i], f)
			Inspect(n.Values[i], f)
		}
	}
}

func inspectStmts(list []Stmt, f func(Node) bool) {
	for _, s := range list {
		Inspect(s, f)
	}
}

func inspectExprs(list []Expr, f func(Node) bool) {
	for _, e := range list {
		Inspect(e, f)
	}
}
