package scope

import (
	"prism/internal/ast"
	"prism/internal/source"
)

// NodeID identifies a scope node inside its tree's arena.
type NodeID uint32

// NoNodeID marks the absence of a node reference.
const NoNodeID NodeID = 0

// IsValid reports whether the ID refers to an allocated node.
func (id NodeID) IsValid() bool { return id != NoNodeID }

// Node is one lexical scope. Nodes live in the owning Tree's arena;
// Parent and Children are arena references, never pointers.
type Node struct {
	Kind    Kind
	Portion Portion

	Parent   NodeID
	Children []NodeID // ordered by source range, non-overlapping

	// Redirect, when set, names the node whose innermost conditional
	// clause acts as this node's lookup parent (the guard-continuation
	// case).
	Redirect NodeID

	// Payload handles into the AST this node represents.
	Decl    ast.DeclID
	Stmt    ast.StmtID
	Expr    ast.ExprID
	Pattern ast.PatternID
	Index   uint32     // generic-parameter / pattern-entry / parameter index
	Vis     Visibility // visibility of names this node introduces

	// Region is the creator-computed childless range for split kinds
	// whose extent is not derivable from a single AST payload
	// (pattern-entry use, guard continuation, conditional clauses).
	Region source.Span

	// Lazy state. Guarded by the tree's mutation lock.
	deferred   []ast.Node
	regionEnd  uint32 // end of the deferred region, for brace-like expansion
	expanded   bool
	cached     source.Span
	cacheValid bool

	// ignored widens the range with AST content that forms no scope of
	// its own.
	ignored source.Span
}
