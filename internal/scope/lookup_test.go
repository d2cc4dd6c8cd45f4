package scope

import (
	"testing"

	"prism/internal/ast"
	"prism/internal/source"
)

func TestMemberLookupFromMethod(t *testing.T) {
	src := `struct Box<Item> {
    let stored = seedS
    func read() { take(stored) }
    struct Inner { func probe() { peek(stored) } }
}
let outer = seedO`
	f := newFxt(t, src)
	box := f.nominal("Box", ast.FlavorStruct, f.between("struct", 1, "}", 4), f.between("{", 1, "}", 4))
	f.b.Decls.Get(box).Generics = []ast.GenericParam{{
		Name: f.b.Ident("Item"), Span: f.at("Item", 1), NameSpan: f.at("Item", 1),
	}}
	stored := f.letStmt("stored", 1, "seedS", 1)
	read := f.fn("read", f.between("func", 1, "}", 1), nil,
		f.brace(f.between("{", 2, "}", 1), ast.ExprNode(f.leaf(f.at("take(stored)", 1)))))
	inner := f.nominal("Inner", ast.FlavorStruct, f.between("struct", 2, "}", 3), f.between("{", 3, "}", 3))
	probe := f.fn("probe", f.between("func", 2, "}", 2), nil,
		f.brace(f.between("{", 4, "}", 2), ast.ExprNode(f.leaf(f.at("peek(stored)", 1)))))
	f.b.AddMember(box, stored)
	f.b.AddMember(box, read)
	f.b.AddMember(box, inner)
	f.b.AddMember(inner, probe)
	f.b.PushDecl(f.file, box)
	f.b.PushDecl(f.file, f.letStmt("outer", 1, "seedO", 1))
	tr := f.build()

	// A method body sees the enclosing type's stored members and
	// generic parameters through implicit self.
	hit := mustResolve(t, tr, f, "stored", f.pos("stored", 2))
	if hit.Vis != VisMemberOfCurrentNominal {
		t.Fatalf("stored visibility %s, want member", hit.Vis)
	}
	if hit.Decl != stored {
		t.Fatalf("stored resolved decl %d, want %d", hit.Decl, stored)
	}
	hit = mustResolve(t, tr, f, "Item", f.pos("stored", 2))
	if hit.Vis != VisGenericParameter {
		t.Fatalf("Item visibility %s, want genericparam", hit.Vis)
	}

	// Methods also see top-level names past their own type.
	hit = mustResolve(t, tr, f, "outer", f.pos("stored", 2))
	if hit.Vis != VisTopLevel {
		t.Fatalf("outer visibility %s, want toplevel", hit.Vis)
	}

	// A nested type walls its members off from the outer type and
	// everything beyond it.
	mustNotResolve(t, tr, f, "stored", f.pos("stored", 3))
	mustNotResolve(t, tr, f, "outer", f.pos("stored", 3))
	hit = mustResolve(t, tr, f, "probe", f.pos("stored", 3))
	if hit.Vis != VisMemberOfCurrentNominal {
		t.Fatalf("probe visibility %s, want member", hit.Vis)
	}

	// Method bodies resolve the cascading-use question to false.
	_, _, state := lookupFirst(t, tr, f, "stored", f.pos("stored", 2))
	if state != CascadeKnownFalse {
		t.Fatalf("method body cascade %s, want non-cascading", state)
	}
	_, _, state = lookupFirst(t, tr, f, "outer", f.pos("seedO", 1))
	if state != CascadeKnownTrue {
		t.Fatalf("top-level cascade %s, want cascading", state)
	}
}

func TestExtensionSeesExtendedMembers(t *testing.T) {
	src := `struct Box { let stored = seedS }
extension Box { func read() { take(stored) } }`
	f := newFxt(t, src)
	box := f.nominal("Box", ast.FlavorStruct, f.between("struct", 1, "}", 1), f.between("{", 1, "}", 1))
	stored := f.letStmt("stored", 1, "seedS", 1)
	f.b.AddMember(box, stored)

	ext := f.b.Decls.New(ast.Decl{
		Kind:     ast.DeclExtension,
		Span:     f.between("extension", 1, "}", 3),
		Name:     f.b.Ident("Box"),
		Braces:   f.between("{", 2, "}", 3),
		Extended: box,
	})
	read := f.fn("read", f.between("func", 1, "}", 2), nil,
		f.brace(f.between("{", 3, "}", 2), ast.ExprNode(f.leaf(f.at("take(stored)", 1)))))
	f.b.AddMember(ext, read)
	f.b.PushDecl(f.file, box)
	f.b.PushDecl(f.file, ext)
	tr := f.build()

	hit := mustResolve(t, tr, f, "stored", f.pos("stored", 2))
	if hit.Decl != stored || hit.Vis != VisMemberOfCurrentNominal {
		t.Fatalf("extension method resolved decl=%d vis=%s, want extended member", hit.Decl, hit.Vis)
	}
}

func TestClosureScopes(t *testing.T) {
	src := `func work(seed: Int) {
    run { [boxed = seed] arg in use(arg, boxed, seed) }
}`
	f := newFxt(t, src)
	closureSpan := f.between("{", 2, "}", 1)
	closure := f.b.Exprs.New(ast.Expr{
		Kind:   ast.ExprClosure,
		Span:   closureSpan,
		Params: []ast.Param{{Name: f.b.Ident("arg"), Span: f.at("arg", 1), NameSpan: f.at("arg", 1)}},
		InLoc:  f.pos("in", 1),
		Body:   f.brace(f.at("use(arg, boxed, seed)", 1), ast.ExprNode(f.leaf(f.at("use(arg, boxed, seed)", 1)))),
	})
	captures := f.b.Exprs.New(ast.Expr{
		Kind:     ast.ExprCaptureList,
		Span:     closureSpan,
		Captures: []ast.CaptureEntry{{Name: f.b.Ident("boxed"), NameSpan: f.at("boxed", 1), Init: f.leaf(f.at("seed", 2))}},
		Closure:  closure,
	})
	call := f.b.Exprs.New(ast.Expr{
		Kind:     ast.ExprLeaf,
		Span:     f.between("run", 1, "}", 1),
		Children: []ast.ExprID{captures},
	})
	body := f.brace(f.between("{", 1, "}", 2), ast.ExprNode(call))
	f.b.PushDecl(f.file, f.fn("work",
		f.between("func", 1, "}", 2),
		[]ast.Param{{Name: f.b.Ident("seed"), Span: f.at("seed: Int", 1), NameSpan: f.at("seed", 1)}},
		body))
	tr := f.build()

	// Closure parameters and captures are visible in the body.
	hit := mustResolve(t, tr, f, "arg", f.pos("arg", 2))
	if hit.Vis != VisFunctionParameter || hit.Decl != ast.NoDeclID {
		t.Fatalf("arg resolved decl=%d vis=%s, want anonymous param", hit.Decl, hit.Vis)
	}
	hit = mustResolve(t, tr, f, "boxed", f.pos("boxed", 2))
	if hit.Vis != VisLocal || hit.Decl != ast.NoDeclID {
		t.Fatalf("boxed resolved decl=%d vis=%s, want capture", hit.Decl, hit.Vis)
	}

	// The enclosing function's parameter stays visible through the
	// closure split.
	hit = mustResolve(t, tr, f, "seed", f.pos("seed", 3))
	if hit.Vis != VisFunctionParameter {
		t.Fatalf("seed visibility %s, want param", hit.Vis)
	}

	// A capture initializer evaluates outside the closure: the
	// parameter list is not visible there.
	mustNotResolve(t, tr, f, "arg", f.pos("seed", 2))
	mustResolve(t, tr, f, "seed", f.pos("seed", 2))

	// Closure bodies resolve cascading use to false.
	_, _, state := lookupFirst(t, tr, f, "seed", f.pos("seed", 3))
	if state != CascadeKnownFalse {
		t.Fatalf("closure body cascade %s, want non-cascading", state)
	}
}

func TestGenericParamChainOrdering(t *testing.T) {
	src := `func combine<First, Second: First>(a: First, b: Second) { mix(a, b) }`
	f := newFxt(t, src)
	body := f.brace(f.between("{", 1, "}", 1), ast.ExprNode(f.leaf(f.at("mix(a, b)", 1))))
	fn := f.fn("combine", f.span(0, len(src)),
		[]ast.Param{
			{Name: f.b.Ident("a"), Span: f.at("a: First", 1), NameSpan: f.at("a", 1)},
			{Name: f.b.Ident("b"), Span: f.at("b: Second", 1), NameSpan: f.at("b", 1)},
		}, body)
	f.b.Decls.Get(fn).Generics = []ast.GenericParam{
		{Name: f.b.Ident("First"), Span: f.at("First", 1), NameSpan: f.at("First", 1), Inheritance: source.NoSpan},
		{Name: f.b.Ident("Second"), Span: f.between("Second", 1, "First", 2), NameSpan: f.at("Second", 1), Inheritance: f.at("First", 2)},
	}
	f.b.PushDecl(f.file, fn)
	tr := f.build()

	// The second parameter's bound sees the first parameter.
	hit := mustResolve(t, tr, f, "First", f.pos("First", 2))
	if hit.Vis != VisGenericParameter {
		t.Fatalf("First visibility %s, want genericparam", hit.Vis)
	}

	// Both parameters and both value parameters reach the body.
	mustResolve(t, tr, f, "Second", f.pos("mix(a, b)", 1))
	hit = mustResolve(t, tr, f, "b", f.pos("mix(a, b)", 1))
	if hit.Vis != VisFunctionParameter {
		t.Fatalf("b visibility %s, want param", hit.Vis)
	}
}

func TestForEachAndCatchBindings(t *testing.T) {
	src := `func work(rows: List) {
    for row in rows { emit(row) }
    do { step() } catch err { log(err) }
}`
	f := newFxt(t, src)
	forBody := f.brace(f.between("{", 2, "}", 1), ast.ExprNode(f.leaf(f.at("emit(row)", 1))))
	forStmt := f.b.Stmts.New(ast.Stmt{
		Kind:    ast.StmtForEach,
		Span:    f.between("for", 1, "}", 1),
		Pattern: f.pattern(f.at("row", 2), "row"),
		Subject: f.leaf(f.at("rows", 2)),
		Body:    forBody,
	})
	catchStmt := f.b.Stmts.New(ast.Stmt{
		Kind:    ast.StmtCatch,
		Span:    f.between("catch", 1, "}", 3),
		Pattern: f.pattern(f.at("err", 1), "err"),
		Body:    f.brace(f.between("{", 4, "}", 3), ast.ExprNode(f.leaf(f.at("log(err)", 1)))),
	})
	doStmt := f.b.Stmts.New(ast.Stmt{
		Kind:  ast.StmtDoCatch,
		Span:  f.between("do", 1, "}", 3),
		Body:  f.brace(f.between("{", 3, "}", 2), ast.ExprNode(f.leaf(f.at("step()", 1)))),
		Cases: []ast.StmtID{catchStmt},
	})
	body := f.brace(f.between("{", 1, "}", 4), ast.StmtNode(forStmt), ast.StmtNode(doStmt))
	f.b.PushDecl(f.file, f.fn("work", f.between("func", 1, "}", 4),
		[]ast.Param{{Name: f.b.Ident("rows"), Span: f.at("rows: List", 1), NameSpan: f.at("rows", 1)}},
		body))
	tr := f.build()

	// Loop variable in the loop body, not in the sequence expression.
	hit := mustResolve(t, tr, f, "row", f.pos("emit(row)", 1))
	if hit.Vis != VisLocal {
		t.Fatalf("row visibility %s, want local", hit.Vis)
	}
	hit = mustResolve(t, tr, f, "rows", f.pos("rows", 2))
	if hit.Vis != VisFunctionParameter {
		t.Fatalf("sequence rows visibility %s, want param", hit.Vis)
	}
	mustNotResolve(t, tr, f, "row", f.pos("rows", 2))

	// Catch binding in the handler, not in the do body.
	mustResolve(t, tr, f, "err", f.pos("log(err)", 1))
	mustNotResolve(t, tr, f, "err", f.pos("step()", 1))
}

func TestLocalTypeCascade(t *testing.T) {
	src := `func work() { struct Local { let held = seedL } }
struct Top { let kept = seedT }`
	f := newFxt(t, src)
	local := f.nominal("Local", ast.FlavorStruct, f.between("struct", 1, "}", 1), f.between("{", 2, "}", 1))
	f.b.AddMember(local, f.letStmt("held", 1, "seedL", 1))
	body := f.brace(f.between("{", 1, "}", 2), ast.DeclNode(local))
	f.b.PushDecl(f.file, f.fn("work", f.between("func", 1, "}", 2), nil, body))
	top := f.nominal("Top", ast.FlavorStruct, f.between("struct", 2, "}", 3), f.between("{", 3, "}", 3))
	f.b.AddMember(top, f.letStmt("kept", 1, "seedT", 1))
	f.b.PushDecl(f.file, top)
	tr := f.build()

	// A type declared inside a function body is as local as the body:
	// lookups seated in its declaration regions do not cascade.
	_, _, state := lookupFirst(t, tr, f, "ghost", f.pos("held", 1))
	if state != CascadeKnownFalse {
		t.Fatalf("local type body cascade %s, want non-cascading", state)
	}

	// The same region of a file-visible type cascades.
	_, _, state = lookupFirst(t, tr, f, "ghost", f.pos("kept", 1))
	if state != CascadeKnownTrue {
		t.Fatalf("top-level type body cascade %s, want cascading", state)
	}
}

func TestStartingContextPinsWalk(t *testing.T) {
	src := `struct Box { let stored = probe }
let probe = seedP`
	f := newFxt(t, src)
	box := f.nominal("Box", ast.FlavorStruct, f.between("struct", 1, "}", 1), f.between("{", 1, "}", 1))
	stored := f.letStmt("stored", 1, "probe", 1)
	f.b.AddMember(box, stored)
	f.b.PushDecl(f.file, box)
	probe := f.letStmt("probe", 2, "seedP", 1)
	f.b.PushDecl(f.file, probe)
	tr := f.build()

	// Member initializers cascade: they resolve against file-visible
	// state.
	c := &FirstMatchConsumer{Name: f.b.Strings.InternIdent("probe")}
	ctx := ast.InitializerContext(ast.ContextPatternInitializer, stored, 0)
	state := tr.Lookup(c.Name, f.pos("probe", 1), ctx, CascadeUnknown, c)
	hit, ok := c.Match()
	if !ok || hit.Decl != probe {
		t.Fatalf("member init lookup: ok=%v decl=%d, want %d", ok, hit.Decl, probe)
	}
	if state != CascadeKnownTrue {
		t.Fatalf("member init cascade %s, want cascading", state)
	}

	// An invalid position falls back to scanning for the context.
	c = &FirstMatchConsumer{Name: f.b.Strings.InternIdent("probe")}
	tr.Lookup(c.Name, source.NoPos, ctx, CascadeUnknown, c)
	if _, ok := c.Match(); !ok {
		t.Fatalf("context-only lookup found nothing")
	}
}

func TestCollectConsumerGathersAll(t *testing.T) {
	src := `func work(seed: Int) { let local = seed }`
	f := newFxt(t, src)
	body := f.brace(f.between("{", 1, "}", 1), ast.DeclNode(f.letStmt("local", 1, "seed", 2)))
	f.b.PushDecl(f.file, f.fn("work", f.span(0, len(src)),
		[]ast.Param{{Name: f.b.Ident("seed"), Span: f.at("seed: Int", 1), NameSpan: f.at("seed", 1)}},
		body))
	tr := f.build()

	c := &CollectConsumer{}
	tr.Lookup(source.NoStringID, f.pos("seed", 2), ast.NoContext, CascadeUnknown, c)
	var haveSeed, haveWork bool
	for _, hit := range c.Hits {
		switch hit.Name {
		case f.b.Strings.InternIdent("seed"):
			haveSeed = true
		case f.b.Strings.InternIdent("work"):
			haveWork = true
		}
	}
	if !haveSeed || !haveWork {
		t.Fatalf("collect missed bindings: seed=%v work=%v (%d hits)", haveSeed, haveWork, len(c.Hits))
	}
}
