package ast

import (
	"prism/internal/source"
)

type StmtKind uint8

const (
	StmtInvalid StmtKind = iota
	StmtBrace
	StmtIf
	StmtWhile
	StmtRepeatWhile
	StmtGuard
	StmtForEach
	StmtSwitch
	StmtCase
	StmtDoCatch
	StmtCatch
	StmtReturn
	StmtExpr
)

func (k StmtKind) String() string {
	switch k {
	case StmtBrace:
		return "brace"
	case StmtIf:
		return "if"
	case StmtWhile:
		return "while"
	case StmtRepeatWhile:
		return "repeatwhile"
	case StmtGuard:
		return "guard"
	case StmtForEach:
		return "foreach"
	case StmtSwitch:
		return "switch"
	case StmtCase:
		return "case"
	case StmtDoCatch:
		return "docatch"
	case StmtCatch:
		return "catch"
	case StmtReturn:
		return "return"
	case StmtExpr:
		return "expr"
	default:
		return "invalid"
	}
}

// CondClause is one element of an if/while/guard condition list:
// either a boolean expression, or a pattern with its initializer
// (`let x = expr`).
type CondClause struct {
	Span    source.Span
	Bool    ExprID
	Pattern PatternID
	Init    ExprID
}

// IsPattern reports whether the clause binds a pattern.
func (c CondClause) IsPattern() bool { return c.Pattern.IsValid() }

// Stmt is the uniform statement record; payload fields beyond the
// common header are populated per kind.
type Stmt struct {
	Kind StmtKind
	Span source.Span

	Clauses []CondClause // if / while / guard conditions
	Body    StmtID       // brace: then-branch, loop body, guard isn't this (see Else)
	Else    Node         // if: else brace or chained if; guard: the mandatory else brace
	Cases   []StmtID     // switch cases, do-catch catch clauses

	Pattern  PatternID   // for-each loop pattern, catch pattern
	Patterns []PatternID // case labels (one per comma-separated pattern)

	Subject  ExprID // for-each sequence, switch subject, repeat-while condition, catch guard
	WhereExp ExprID // for-each / case trailing where expression

	Nodes []Node // brace contents, in source order

	Operand ExprID // return value / bare expression statement
}

type Stmts struct {
	Arena *Arena[Stmt]
}

func NewStmts(capHint uint) *Stmts {
	return &Stmts{
		Arena: NewArena[Stmt](capHint),
	}
}

func (s *Stmts) New(stmt Stmt) StmtID {
	return StmtID(s.Arena.Allocate(stmt))
}

func (s *Stmts) Get(id StmtID) *Stmt {
	return s.Arena.Get(uint32(id))
}
