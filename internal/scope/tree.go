package scope

import (
	"fmt"
	"sync"

	"fortio.org/safecast"

	"prism/internal/ast"
	"prism/internal/source"
)

// Tree owns every scope node of one source file in a compact arena.
// Construction is single-threaded; afterwards the tree is read-only
// except for lazy expansion and range caching, both guarded by mu so
// concurrent lookups trigger each transition at most once.
type Tree struct {
	builder *ast.Builder
	astFile ast.FileID
	file    source.FileID

	mu    sync.Mutex
	nodes []Node // index 0 reserved for NoNodeID
	root  NodeID
}

// Build constructs the scope tree for one AST file. Top-level
// declarations become deferred work on the root; subtrees materialize
// on first range or lookup query.
func Build(builder *ast.Builder, astFile ast.FileID) (*Tree, error) {
	if builder == nil {
		return nil, fmt.Errorf("scope: nil AST builder")
	}
	file := builder.Files.Get(astFile)
	if file == nil {
		return nil, fmt.Errorf("scope: unknown AST file %d", astFile)
	}

	t := &Tree{
		builder: builder,
		astFile: astFile,
		file:    file.Span.File,
		nodes:   make([]Node, 1, 64),
	}

	root := t.newNode(Node{Kind: KindSourceFile})
	t.root = root

	rn := t.get(root)
	rn.Region = file.Span
	rn.regionEnd = file.Span.End
	rn.deferred = make([]ast.Node, 0, len(file.Decls))
	for _, d := range file.Decls {
		rn.deferred = append(rn.deferred, ast.DeclNode(d))
	}
	return t, nil
}

// Root returns the source-file node.
func (t *Tree) Root() NodeID { return t.root }

// File returns the source file the tree covers.
func (t *Tree) File() source.FileID { return t.file }

// Builder exposes the AST the tree was built from.
func (t *Tree) Builder() *ast.Builder { return t.builder }

// Len reports the number of materialized nodes.
func (t *Tree) Len() int { return len(t.nodes) - 1 }

// newNode allocates a node in the arena. Children are attached
// separately so creation order stays explicit.
func (t *Tree) newNode(n Node) NodeID {
	raw, err := safecast.Conv[uint32](len(t.nodes))
	if err != nil {
		panic(fmt.Errorf("scope arena overflow: %w", err))
	}
	id := NodeID(raw)
	t.nodes = append(t.nodes, n)
	return id
}

// get returns the node pointer or nil for an invalid ID.
func (t *Tree) get(id NodeID) *Node {
	if !id.IsValid() || int(id) >= len(t.nodes) {
		return nil
	}
	return &t.nodes[id]
}

// Get returns a copy of the node for inspection, reporting whether the
// ID is allocated. External callers never get arena pointers.
func (t *Tree) Get(id NodeID) (Node, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.get(id)
	if n == nil {
		return Node{}, false
	}
	return *n, true
}

// addChild appends child under parent and invalidates cached ranges up
// the ancestor chain, preserving the containment invariant without a
// full re-scan. Creation order must already be source order.
func (t *Tree) addChild(parent NodeID, child Node) NodeID {
	child.Parent = parent
	id := t.newNode(child)
	p := t.get(parent)
	p.Children = append(p.Children, id)
	t.clearRangeCacheUpward(parent)
	return id
}

// widenIgnored widens a node's ignored-content range. AST fragments
// that form no scope still count toward their parent's extent.
func (t *Tree) widenIgnored(id NodeID, sp source.Span) {
	if !sp.IsValid() {
		return
	}
	n := t.get(id)
	n.ignored = n.ignored.Cover(sp)
	t.clearRangeCacheUpward(id)
}

func (t *Tree) clearRangeCacheUpward(id NodeID) {
	for id.IsValid() {
		n := t.get(id)
		n.cacheValid = false
		id = n.Parent
	}
}

// Expanded reports whether the node's children have been materialized.
func (t *Tree) Expanded(id NodeID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.get(id)
	return n != nil && n.expanded
}

// Expand forces materialization of a node's children. It is the
// exported face of the idempotent expansion transition; repeated calls
// are no-ops.
func (t *Tree) Expand(id NodeID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expand(id)
}

// ExpandAll materializes the entire tree. Tooling only; lookups never
// need it.
func (t *Tree) ExpandAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	// The arena grows while expanding, so iterate by index.
	for id := NodeID(1); int(id) < len(t.nodes); id++ {
		t.expand(id)
	}
}

// decl is a shorthand accessor for a node's declaration payload.
func (t *Tree) decl(n *Node) *ast.Decl {
	return t.builder.Decls.Get(n.Decl)
}

func (t *Tree) stmt(n *Node) *ast.Stmt {
	return t.builder.Stmts.Get(n.Stmt)
}

func (t *Tree) expr(n *Node) *ast.Expr {
	return t.builder.Exprs.Get(n.Expr)
}
