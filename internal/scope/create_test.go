package scope

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"prism/internal/ast"
)

func TestBuildIsLazy(t *testing.T) {
	src := `let alpha = one
func work() { let beta = two }`
	f := newFxt(t, src)
	alpha := f.letStmt("alpha", 1, "one", 1)
	body := f.brace(f.between("{", 1, "}", 1), ast.DeclNode(f.letStmt("beta", 1, "two", 1)))
	work := f.fn("work", f.between("func", 1, "}", 1), nil, body)
	f.b.PushDecl(f.file, alpha)
	f.b.PushDecl(f.file, work)

	tr := f.build()
	if tr.Len() != 1 {
		t.Fatalf("fresh tree has %d nodes, want 1 (root only)", tr.Len())
	}
	if tr.Expanded(tr.Root()) {
		t.Fatalf("root expanded before any query")
	}

	tr.Expand(tr.Root())
	root, _ := tr.Get(tr.Root())
	if len(root.Children) != 2 {
		t.Fatalf("root has %d children, want decl+use pair", len(root.Children))
	}
	declNode, _ := tr.Get(root.Children[0])
	useNode, _ := tr.Get(root.Children[1])
	if declNode.Kind != KindPatternEntryDecl || useNode.Kind != KindPatternEntryUse {
		t.Fatalf("root children are %s/%s, want patternentrydecl/patternentryuse",
			declNode.Kind, useNode.Kind)
	}
	// The function behind the binding stays deferred until its region
	// is queried.
	for id := NodeID(1); id <= NodeID(tr.Len()); id++ {
		n, _ := tr.Get(id)
		if n.Kind == KindFunction {
			t.Fatalf("function scope materialized eagerly")
		}
	}

	// Resolving from inside the body materializes exactly the path.
	hit := mustResolve(t, tr, f, "alpha", f.pos("two", 1))
	if hit.Vis != VisTopLevel {
		t.Fatalf("alpha visibility %s, want toplevel", hit.Vis)
	}
	found := false
	for id := NodeID(1); id <= NodeID(tr.Len()); id++ {
		n, _ := tr.Get(id)
		if n.Kind == KindPureFunctionBody {
			found = true
		}
	}
	if !found {
		t.Fatalf("lookup inside the body did not materialize it")
	}
}

func TestPatternEntryLadder(t *testing.T) {
	src := `func work() {
    let item = seed
    let item = item
    use(item)
}`
	f := newFxt(t, src)
	first := f.letStmt("item", 1, "seed", 1)
	second := f.binding(
		f.between("let", 2, "item", 3),
		f.pattern(f.at("item", 2), "item"),
		f.leaf(f.at("item", 3)),
	)
	use := f.leaf(f.at("use(item)", 1))
	body := f.brace(f.between("{", 1, "}", 1),
		ast.DeclNode(first), ast.DeclNode(second), ast.ExprNode(use))
	f.b.PushDecl(f.file, f.fn("work", f.between("func", 1, "}", 1), nil, body))
	tr := f.build()

	// The shadowing initializer resolves outward to the first binding.
	hit := mustResolve(t, tr, f, "item", f.pos("item", 3))
	if hit.Decl != first {
		t.Fatalf("shadowing init resolved decl %d, want first binding %d", hit.Decl, first)
	}
	if hit.Vis != VisLocal {
		t.Fatalf("shadowing init visibility %s, want local", hit.Vis)
	}

	// After both bindings, the second one wins.
	hit = mustResolve(t, tr, f, "item", f.pos("item", 4))
	if hit.Decl != second {
		t.Fatalf("trailing use resolved decl %d, want second binding %d", hit.Decl, second)
	}

	// Before its declaration the name does not exist.
	mustNotResolve(t, tr, f, "item", f.pos("work", 1))
	mustNotResolve(t, tr, f, "seed", f.pos("seed", 1))
}

func TestGuardContinuation(t *testing.T) {
	src := `func work() {
    guard let top = lid else { spill() }
    finish(top)
}`
	f := newFxt(t, src)
	guard := f.b.Stmts.New(ast.Stmt{
		Kind: ast.StmtGuard,
		Span: f.between("guard", 1, "}", 1),
		Clauses: []ast.CondClause{{
			Span:    f.between("let", 1, "lid", 1),
			Pattern: f.pattern(f.at("top", 1), "top"),
			Init:    f.leaf(f.at("lid", 1)),
		}},
		Else: ast.StmtNode(f.brace(f.between("{", 2, "}", 1), ast.ExprNode(f.leaf(f.at("spill()", 1))))),
	})
	finish := f.leaf(f.at("finish(top)", 1))
	body := f.brace(f.between("{", 1, "}", 2), ast.StmtNode(guard), ast.ExprNode(finish))
	f.b.PushDecl(f.file, f.fn("work", f.between("func", 1, "}", 2), nil, body))
	tr := f.build()

	// Fallthrough code sees the guard binding.
	hit := mustResolve(t, tr, f, "top", f.pos("top", 2))
	if hit.Vis != VisLocal {
		t.Fatalf("guard binding visibility %s, want local", hit.Vis)
	}

	// The else branch does not.
	mustNotResolve(t, tr, f, "top", f.pos("spill()", 1))

	// The continuation node redirects to the guard statement.
	tr.ExpandAll()
	var use NodeID
	for id := NodeID(1); id <= NodeID(tr.Len()); id++ {
		if n, _ := tr.Get(id); n.Kind == KindGuardUse {
			use = id
		}
	}
	if !use.IsValid() {
		t.Fatalf("no continuation node materialized")
	}
	n, _ := tr.Get(use)
	if !n.Redirect.IsValid() {
		t.Fatalf("continuation node has no redirect")
	}
	if g, _ := tr.Get(n.Redirect); g.Kind != KindGuardStmt {
		t.Fatalf("redirect points at %s, want guardstmt", g.Kind)
	}
}

func TestCondClauseChain(t *testing.T) {
	src := `func work() {
    let opt = seed
    if let opt = opt, let twice = opt { body(twice) }
    tail(opt)
}`
	f := newFxt(t, src)
	outer := f.letStmt("opt", 1, "seed", 1)
	ifStmt := f.b.Stmts.New(ast.Stmt{
		Kind: ast.StmtIf,
		Span: f.between("if", 1, "}", 1),
		Clauses: []ast.CondClause{
			{
				Span:    f.between("let", 2, "opt", 3),
				Pattern: f.pattern(f.at("opt", 2), "opt"),
				Init:    f.leaf(f.at("opt", 3)),
			},
			{
				Span:    f.between("let", 3, "opt", 4),
				Pattern: f.pattern(f.at("twice", 1), "twice"),
				Init:    f.leaf(f.at("opt", 4)),
			},
		},
		Body: f.brace(f.between("{", 2, "}", 1), ast.ExprNode(f.leaf(f.at("body(twice)", 1)))),
	})
	tail := f.leaf(f.at("tail(opt)", 1))
	body := f.brace(f.between("{", 1, "}", 2),
		ast.DeclNode(outer), ast.StmtNode(ifStmt), ast.ExprNode(tail))
	f.b.PushDecl(f.file, f.fn("work", f.between("func", 1, "}", 2), nil, body))
	tr := f.build()

	// First clause initializer sees only the outer binding.
	hit := mustResolve(t, tr, f, "opt", f.pos("opt", 3))
	if hit.Decl != outer {
		t.Fatalf("first clause init resolved decl %d, want outer %d", hit.Decl, outer)
	}

	// Second clause initializer sees the first clause's binding.
	hit = mustResolve(t, tr, f, "opt", f.pos("opt", 4))
	if hit.Decl != ast.NoDeclID {
		t.Fatalf("second clause init resolved decl %d, want clause binding", hit.Decl)
	}

	// The body sees both; after the statement the bindings are gone.
	mustResolve(t, tr, f, "twice", f.pos("twice", 2))
	hit = mustResolve(t, tr, f, "opt", f.pos("opt", 5))
	if hit.Decl != outer {
		t.Fatalf("tail resolved decl %d, want outer %d", hit.Decl, outer)
	}
	mustNotResolve(t, tr, f, "twice", f.pos("opt", 5))
}

func TestTypeBodyExpansion(t *testing.T) {
	src := `struct Box {
    let stored = seedS
    func read() { take(stored) }
    func write() { put(stored) }
}`
	f := newFxt(t, src)
	box := f.nominal("Box", ast.FlavorStruct, f.between("struct", 1, "}", 3), f.between("{", 1, "}", 3))
	stored := f.letStmt("stored", 1, "seedS", 1)
	read := f.fn("read", f.between("func", 1, "}", 1), nil,
		f.brace(f.between("{", 2, "}", 1), ast.ExprNode(f.leaf(f.at("take(stored)", 1)))))
	write := f.fn("write", f.between("func", 2, "}", 2), nil,
		f.brace(f.between("{", 3, "}", 2), ast.ExprNode(f.leaf(f.at("put(stored)", 1)))))
	f.b.AddMember(box, stored)
	f.b.AddMember(box, read)
	f.b.AddMember(box, write)
	f.b.PushDecl(f.file, box)
	tr := f.build()

	tr.Expand(tr.Root())
	root, _ := tr.Get(tr.Root())
	whole := root.Children[0]
	wn, _ := tr.Get(whole)
	if wn.Kind != KindNominalType || wn.Portion != PortionWhole {
		t.Fatalf("first child is %s(%s), want nominaltype(whole)", wn.Kind, wn.Portion)
	}

	tr.Expand(whole)
	wn, _ = tr.Get(whole)
	if len(wn.Children) != 1 {
		t.Fatalf("whole node has %d children, want the body portion", len(wn.Children))
	}
	body := wn.Children[0]
	bn, _ := tr.Get(body)
	if bn.Kind != KindNominalType || bn.Portion != PortionBody {
		t.Fatalf("whole's child is %s(%s), want nominaltype(body)", bn.Kind, bn.Portion)
	}

	// Expanding the body portion drains the member declarations; it
	// must not re-run the whole-declaration rule on itself.
	tr.Expand(body)
	bn, _ = tr.Get(body)
	want := []Kind{KindPatternEntryDecl, KindFunction, KindFunction}
	if len(bn.Children) != len(want) {
		t.Fatalf("body has %d children, want %d member scopes", len(bn.Children), len(want))
	}
	for i, child := range bn.Children {
		cn, _ := tr.Get(child)
		if cn.Kind != want[i] {
			t.Fatalf("body child %d is %s, want %s", i, cn.Kind, want[i])
		}
		if cn.Portion != PortionWhole && (cn.Kind == KindNominalType || cn.Kind == KindExtension || cn.Kind == KindTypeAlias) {
			t.Fatalf("body child %d is a stray %s portion", i, cn.Portion)
		}
	}

	// Re-expanding is a no-op: no second body portion, no growth.
	count := tr.Len()
	tr.Expand(body)
	if tr.Len() != count {
		t.Fatalf("re-expanding the body grew the tree: %d -> %d", count, tr.Len())
	}

	// Both methods see the stored member even though the binding
	// precedes them in the member list.
	hit := mustResolve(t, tr, f, "stored", f.pos("take(stored)", 1))
	if hit.Decl != stored || hit.Vis != VisMemberOfCurrentNominal {
		t.Fatalf("read resolved decl=%d vis=%s, want stored member", hit.Decl, hit.Vis)
	}
	hit = mustResolve(t, tr, f, "stored", f.pos("put(stored)", 1))
	if hit.Decl != stored || hit.Vis != VisMemberOfCurrentNominal {
		t.Fatalf("write resolved decl=%d vis=%s, want stored member", hit.Decl, hit.Vis)
	}
}

func TestExpansionIdempotent(t *testing.T) {
	src := `struct Box {
    let stored = seedS
    func read() { take(stored) }
}`
	f := newFxt(t, src)
	box := f.nominal("Box", ast.FlavorStruct, f.between("struct", 1, "}", 2), f.between("{", 1, "}", 2))
	stored := f.letStmt("stored", 1, "seedS", 1)
	read := f.fn("read", f.between("func", 1, "}", 1), nil,
		f.brace(f.between("{", 2, "}", 1), ast.ExprNode(f.leaf(f.at("take(stored)", 1)))))
	f.b.AddMember(box, stored)
	f.b.AddMember(box, read)
	f.b.PushDecl(f.file, box)
	tr := f.build()

	tr.ExpandAll()
	count := tr.Len()
	var once bytes.Buffer
	if err := Dump(&once, tr, f.b.Strings); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	tr.ExpandAll()
	mustResolve(t, tr, f, "stored", f.pos("take(stored)", 1))
	var twice bytes.Buffer
	if err := Dump(&twice, tr, f.b.Strings); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	if tr.Len() != count {
		t.Fatalf("re-expansion grew the tree: %d -> %d nodes", count, tr.Len())
	}
	if diff := cmp.Diff(once.String(), twice.String()); diff != "" {
		t.Fatalf("tree changed across re-expansion (-first +second):\n%s", diff)
	}
}
