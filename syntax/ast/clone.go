package ast

// CloneFile returns a deep copy of f. The copy shares no nodes with f.
func CloneFile(f *File) *File {
	if f == nil {
		return nil
	}
	return &File{Name: f.Name, Body: CloneStmts(f.Body)}
}

func CloneStmts(list []Stmt) []Stmt {
	if list == nil {
		return nil
	}
	out := make([]Stmt, len(list))
	for i, s := range list {
		out[i] = CloneStmt(s)
	}
	return out
}

func CloneExprs(list []Expr) []Expr {
	if list == nil {
		return nil
	}
	out := make([]Expr, len(list))
	for i, e := range list {
		out[i] = CloneExpr(e)
	}
	return out
}

func cloneKeywords(list []*Keyword) []*Keyword {
	if list == nil {
		return nil
	}
	out := make([]*Keyword, len(list))
	for i, kw := range list {
		out[i] = &Keyword{Pos: kw.Pos, Name: kw.Name, Value: CloneExpr(kw.Value)}
	}
	return out
}

func CloneStmt(s Stmt) Stmt {
	switch s := s.(type) {
	case nil:
		return nil
	case *FuncDef:
		params := make([]*Param, len(s.Params))
		for i, p := range s.Params {
			params[i] = &Param{Pos: p.Pos, Name: p.Name, Default: CloneExpr(p.Default)}
		}
		return &FuncDef{
			Pos:        s.Pos,
			Name:       s.Name,
			Params:     params,
			Body:       CloneStmts(s.Body),
			Decorators: CloneExprs(s.Decorators),
			Returns:    CloneExpr(s.Returns),
			Async:      s.Async,
		}
	case *ClassDef:
		return &ClassDef{
			Pos:        s.Pos,
			Name:       s.Name,
			Bases:      CloneExprs(s.Bases),
			Keywords:   cloneKeywords(s.Keywords),
			Body:       CloneStmts(s.Body),
			Decorators: CloneExprs(s.Decorators),
		}
	case *Return:
		return &Return{Pos: s.Pos, Value: CloneExpr(s.Value)}
	case *Assign:
		return &Assign{Pos: s.Pos, Target: CloneExpr(s.Target), Value: CloneExpr(s.Value)}
	case *AugAssign:
		return &AugAssign{Pos: s.Pos, Target: CloneExpr(s.Target), Op: s.Op, Value: CloneExpr(s.Value)}
	case *If:
		return &If{Pos: s.Pos, Cond: CloneExpr(s.Cond), Body: CloneStmts(s.Body), Else: CloneStmts(s.Else)}
	case *While:
		return &While{Pos: s.Pos, Cond: CloneExpr(s.Cond), Body: CloneStmts(s.Body)}
	case *For:
		return &For{Pos: s.Pos, Target: s.Target, Iter: CloneExpr(s.Iter), Body: CloneStmts(s.Body)}
	case *Break:
		return &Break{Pos: s.Pos}
	case *Continue:
		return &Continue{Pos: s.Pos}
	case *Pass:
		return &Pass{Pos: s.Pos}
	case *Raise:
		return &Raise{Pos: s.Pos, Value: CloneExpr(s.Value)}
	case *ExprStmt:
		return &ExprStmt{Pos: s.Pos, X: CloneExpr(s.X)}
	}
	panic("ast: unknown statement type")
}

func CloneExpr(e Expr) Expr {
	switch e := e.(type) {
	case nil:
		return nil
	case *Name:
		return &Name{Pos: e.Pos, ID: e.ID}
	case *Attribute:
		return &Attribute{Pos: e.Pos, X: CloneExpr(e.X), Attr: e.Attr}
	case *Index:
		return &Index{Pos: e.Pos, X: CloneExpr(e.X), Index: CloneExpr(e.Index)}
	case *Call:
		return &Call{Pos: e.Pos, Func: CloneExpr(e.Func), Args: CloneExprs(e.Args), Keywords: cloneKeywords(e.Keywords)}
	case *Await:
		return &Await{Pos: e.Pos, X: CloneExpr(e.X)}
	case *BinaryOp:
		return &BinaryOp{Pos: e.Pos, Op: e.Op, X: CloneExpr(e.X), Y: CloneExpr(e.Y)}
	case *UnaryOp:
		return &UnaryOp{Pos: e.Pos, Op: e.Op, X: CloneExpr(e.X)}
	case *BoolOp:
		return &BoolOp{Pos: e.Pos, Op: e.Op, X: CloneExpr(e.X), Y: CloneExpr(e.Y)}
	case *Compare:
		return &Compare{Pos: e.Pos, Op: e.Op, X: CloneExpr(e.X), Y: CloneExpr(e.Y)}
	case *IntLit:
		c := *e
		return &c
	case *FloatLit:
		c := *e
		return &c
	case *StrLit:
		c := *e
		return &c
	case *BoolLit:
		c := *e
		return &c
	case *NoneLit:
		return &NoneLit{Pos: e.Pos}
	case *ListLit:
		return &ListLit{Pos: e.Pos, Elts: CloneExprs(e.Elts)}
	case *DictLit:
		return &DictLit{Pos: e.Pos, Keys: CloneExprs(e.Keys), Values: CloneExprs(e.Values)}
	}
	panic("ast: unknown expression type")
}
