package ast

// NodeKind tags the payload of a Node handle.
type NodeKind uint8

const (
	NodeInvalid NodeKind = iota
	NodeDecl
	NodeStmt
	NodeExpr
)

// Node is a uniform handle over a declaration, statement, or
// expression. Brace contents and deferred scope work are sequences of
// these.
type Node struct {
	Kind NodeKind
	Decl DeclID
	Stmt StmtID
	Expr ExprID
}

// DeclNode wraps a declaration ID.
func DeclNode(id DeclID) Node { return Node{Kind: NodeDecl, Decl: id} }

// StmtNode wraps a statement ID.
func StmtNode(id StmtID) Node { return Node{Kind: NodeStmt, Stmt: id} }

// ExprNode wraps an expression ID.
func ExprNode(id ExprID) Node { return Node{Kind: NodeExpr, Expr: id} }

// IsValid reports whether the handle points at something.
func (n Node) IsValid() bool {
	switch n.Kind {
	case NodeDecl:
		return n.Decl.IsValid()
	case NodeStmt:
		return n.Stmt.IsValid()
	case NodeExpr:
		return n.Expr.IsValid()
	default:
		return false
	}
}
