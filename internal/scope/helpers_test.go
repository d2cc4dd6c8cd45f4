package scope

import (
	"strings"
	"testing"

	"prism/internal/ast"
	"prism/internal/source"
)

// fxt builds AST fixtures against a synthetic source text, so every
// span in the tree corresponds to real offsets.
type fxt struct {
	t    *testing.T
	src  string
	b    *ast.Builder
	fid  source.FileID
	file ast.FileID
}

func newFxt(t *testing.T, src string) *fxt {
	t.Helper()
	b := ast.NewBuilder(ast.Hints{}, nil)
	f := &fxt{t: t, src: src, b: b, fid: source.FileID(1)}
	f.file = b.NewFile(f.span(0, len(src)))
	return f
}

func (f *fxt) span(start, end int) source.Span {
	return source.Span{File: f.fid, Start: uint32(start), End: uint32(end)}
}

// at returns the span of the nth occurrence (1-based) of sub in the
// fixture text.
func (f *fxt) at(sub string, n int) source.Span {
	f.t.Helper()
	idx, from := -1, 0
	for i := 0; i < n; i++ {
		j := strings.Index(f.src[from:], sub)
		if j < 0 {
			f.t.Fatalf("occurrence %d of %q not in fixture", n, sub)
		}
		idx = from + j
		from = idx + len(sub)
	}
	return f.span(idx, idx+len(sub))
}

// between returns the span from the start of one marker to the end of
// another, for multi-token constructs.
func (f *fxt) between(fromSub string, fromN int, toSub string, toN int) source.Span {
	f.t.Helper()
	a := f.at(fromSub, fromN)
	b := f.at(toSub, toN)
	if b.End < a.Start {
		f.t.Fatalf("markers %q/%q out of order", fromSub, toSub)
	}
	return f.span(int(a.Start), int(b.End))
}

func (f *fxt) pos(sub string, n int) source.Pos {
	return f.at(sub, n).StartPos()
}

func (f *fxt) pattern(sp source.Span, names ...string) ast.PatternID {
	p := ast.Pattern{Span: sp}
	for _, name := range names {
		p.Names = append(p.Names, ast.BoundName{Name: f.b.Ident(name), Span: sp})
	}
	return f.b.Patterns.New(p)
}

func (f *fxt) leaf(sp source.Span) ast.ExprID {
	return f.b.Exprs.New(ast.Expr{Kind: ast.ExprLeaf, Span: sp})
}

func (f *fxt) brace(sp source.Span, nodes ...ast.Node) ast.StmtID {
	return f.b.Stmts.New(ast.Stmt{Kind: ast.StmtBrace, Span: sp, Nodes: nodes})
}

// binding builds a single-entry pattern binding declaration.
func (f *fxt) binding(sp source.Span, pattern ast.PatternID, init ast.ExprID) ast.DeclID {
	return f.b.Decls.New(ast.Decl{
		Kind:    ast.DeclPatternBinding,
		Span:    sp,
		Entries: []ast.PatternEntry{{Pattern: pattern, Init: init}},
	})
}

// letStmt is the common fixture shape: `let <name> = <init marker>`.
func (f *fxt) letStmt(name string, nameN int, initSub string, initN int) ast.DeclID {
	nameSpan := f.at(name, nameN)
	initSpan := f.at(initSub, initN)
	sp := f.span(int(nameSpan.Start)-4, int(initSpan.End)) // include "let "
	return f.binding(sp, f.pattern(nameSpan, name), f.leaf(initSpan))
}

func (f *fxt) fn(name string, sp source.Span, params []ast.Param, body ast.StmtID) ast.DeclID {
	return f.b.Decls.New(ast.Decl{
		Kind:   ast.DeclFunction,
		Span:   sp,
		Name:   f.b.Ident(name),
		Params: params,
		Body:   body,
	})
}

func (f *fxt) nominal(name string, flavor ast.NominalFlavor, sp, braces source.Span) ast.DeclID {
	return f.b.Decls.New(ast.Decl{
		Kind:   ast.DeclNominalType,
		Span:   sp,
		Name:   f.b.Ident(name),
		Flavor: flavor,
		Braces: braces,
	})
}

func (f *fxt) build() *Tree {
	f.t.Helper()
	tr, err := Build(f.b, f.file)
	if err != nil {
		f.t.Fatalf("Build: %v", err)
	}
	return tr
}

// lookupFirst runs a first-match lookup for name at pos.
func lookupFirst(t *testing.T, tr *Tree, f *fxt, name string, pos source.Pos) (Found, bool, CascadeState) {
	t.Helper()
	c := &FirstMatchConsumer{Name: f.b.Strings.InternIdent(name)}
	state := tr.Lookup(c.Name, pos, ast.NoContext, CascadeUnknown, c)
	found, ok := c.Match()
	return found, ok, state
}

// mustResolve asserts the lookup finds the name and returns the hit.
func mustResolve(t *testing.T, tr *Tree, f *fxt, name string, pos source.Pos) Found {
	t.Helper()
	found, ok, _ := lookupFirst(t, tr, f, name, pos)
	if !ok {
		t.Fatalf("lookup %q at %v: no match", name, pos)
	}
	return found
}

func mustNotResolve(t *testing.T, tr *Tree, f *fxt, name string, pos source.Pos) {
	t.Helper()
	if found, ok, _ := lookupFirst(t, tr, f, name, pos); ok {
		t.Fatalf("lookup %q at %v: unexpected match decl=%d vis=%s", name, pos, found.Decl, found.Vis)
	}
}
