// Package ast declares the syntax tree of nas scripts.
package ast

// Pos is a 1-based source position.
type Pos struct {
	Line int
	Col  int
}

// Position returns p. Every node embeds a Pos.
func (p Pos) Position() Pos { return p }

type Node interface {
	Position() Pos
}

type Stmt interface {
	Node
	stmtNode()
}

type Expr interface {
	Node
	exprNode()
}

// File is a parsed source file.
type File struct {
	Name string
	Body []Stmt
}

func (f *File) Position() Pos { return Pos{Line: 1, Col: 1} }

// Param is a function parameter with an optional default.
type Param struct {
	Pos
	Default Expr
	Name    string
}

// Keyword is a name=value pair in a call or class header.
type Keyword struct {
	Pos
	Value Expr
	Name  string
}

// Statements

type FuncDef struct {
	Pos
	Returns    Expr
	Name       string
	Params     []*Param
	Body       []Stmt
	Decorators []Expr
	Async      bool
}

type ClassDef struct {
	Pos
	Name       string
	Bases      []Expr
	Keywords   []*Keyword
	Body       []Stmt
	Decorators []Expr
}

type Return struct {
	Pos
	Value Expr // nil for bare return
}

type Assign struct {
	Pos
	Target Expr
	Value  Expr
}

type AugAssign struct {
	Pos
	Target Expr
	Value  Expr
	Op     string // "+" or "-"
}

// If holds an optional else branch. An elif chain is an Else holding a single *If.
type If struct {
	Pos
	Cond Expr
	Body []Stmt
	Else []Stmt
}

type While struct {
	Pos
	Cond Expr
	Body []Stmt
}

type For struct {
	Pos
	Iter   Expr
	Target string
	Body   []Stmt
}

type Break struct{ Pos }

type Continue struct{ Pos }

type Pass struct{ Pos }

type Raise struct {
	Pos
	Value Expr
}

type ExprStmt struct {
	Pos
	X Expr
}

// Expressions

type Name struct {
	Pos
	ID string
}

type Attribute struct {
	Pos
	X    Expr
	Attr string
}

type Index struct {
	Pos
	X     Expr
	Index Expr
}

type Call struct {
	Pos
	Func     Expr
	Args     []Expr
	Keywords []*Keyword
}

type Await struct {
	Pos
	X Expr
}

type BinaryOp struct {
	Pos
	X  Expr
	Y  Expr
	Op string
}

type UnaryOp struct {
	Pos
	X  Expr
	Op string // "-" or "not"
}

type BoolOp struct {
	Pos
	X  Expr
	Y  Expr
	Op string // "and" or "or"
}

type Compare struct {
	Pos
	X  Expr
	Y  Expr
	Op string
}

type IntLit struct {
	Pos
	Value int64
}

type FloatLit struct {
	Pos
	Value float64
}

type StrLit struct {
	Pos
	Value string
}

type BoolLit struct {
	Pos
	Value bool
}

type NoneLit struct{ Pos }

type ListLit struct {
	Pos
	Elts []Expr
}

type DictLit struct {
	Pos
	Keys   []Expr
	Values []Expr
}

func (*FuncDef) stmtNode()   {}
func (*ClassDef) stmtNode()  {}
func (*Return) stmtNode()    {}
func (*Assign) stmtNode()    {}
func (*AugAssign) stmtNode() {}
func (*If) stmtNode()        {}
func (*While) stmtNode()     {}
func (*For) stmtNode()       {}
func (*Break) stmtNode()     {}
func (*Continue) stmtNode()  {}
func (*Pass) stmtNode()      {}
func (*Raise) stmtNode()     {}
func (*ExprStmt) stmtNode()  {}

func (*Name) exprNode()      {}
func (*Attribute) exprNode() {}
func (*Index) exprNode()     {}
func (*Call) exprNode()      {}
func (*Await) exprNode()     {}
func (*BinaryOp) exprNode()  {}
func (*UnaryOp) exprNode()   {}
func (*BoolOp) exprNode()    {}
func (*Compare) exprNode()   {}
func (*IntLit) exprNode()    {}
func (*FloatLit) exprNode()  {}
func (*StrLit) exprNode()    {}
func (*BoolLit) exprNode()   {}
func (*NoneLit) exprNode()   {}
func (*ListLit) exprNode()   {}
func (*DictLit) exprNode()   {}

// IsDunder reports whether name has the reserved __name__ form.
func IsDunder(name string) bool {
	return len(name) > 4 && name[:2] == "__" && name[len(name)-2:] == "__"
}

// FindClass returns the first top-level class named name.
func (f *File) FindClass(name string) *ClassDef {
	for _, s := range f.Body {
		if c, ok := s.(*ClassDef); ok && c.Name == name {
			return c
		}
	}
	return nil
}
