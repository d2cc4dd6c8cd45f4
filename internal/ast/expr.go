package ast

import (
	"prism/internal/source"
)

type ExprKind uint8

const (
	ExprInvalid ExprKind = iota
	ExprLeaf    // anything the scope core does not look inside
	ExprClosure
	ExprCaptureList
)

func (k ExprKind) String() string {
	switch k {
	case ExprLeaf:
		return "leaf"
	case ExprClosure:
		return "closure"
	case ExprCaptureList:
		return "capturelist"
	default:
		return "invalid"
	}
}

// CaptureEntry is one `[x = expr]` element of a capture list. The
// initializer evaluates in the scope enclosing the closure.
type CaptureEntry struct {
	Name     source.StringID
	NameSpan source.Span
	Init     ExprID
}

// Expr is the uniform expression record. The scope core only
// distinguishes closures and capture lists; everything else is a leaf
// whose Children are searched for nested closures.
type Expr struct {
	Kind ExprKind
	Span source.Span

	Children []ExprID // sub-expressions, for closure discovery

	// Closure.
	Params []Param
	InLoc  source.Pos // position of the `in` keyword; invalid if absent
	Body   StmtID     // brace statement

	// Capture list.
	Captures []CaptureEntry
	Closure  ExprID // the closure the captures belong to
}

type Exprs struct {
	Arena *Arena[Expr]
}

func NewExprs(capHint uint) *Exprs {
	return &Exprs{
		Arena: NewArena[Expr](capHint),
	}
}

func (e *Exprs) New(expr Expr) ExprID {
	return ExprID(e.Arena.Allocate(expr))
}

func (e *Exprs) Get(id ExprID) *Expr {
	return e.Arena.Get(uint32(id))
}
