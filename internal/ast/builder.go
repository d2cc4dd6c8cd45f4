package ast

import (
	"prism/internal/source"
)

// Hints provide optional capacity suggestions for the AST arenas.
type Hints struct{ Files, Decls, Stmts, Exprs, Patterns uint }

// Builder aggregates the AST arenas and the shared string interner.
type Builder struct {
	Files    *Files
	Decls    *Decls
	Stmts    *Stmts
	Exprs    *Exprs
	Patterns *Patterns

	Strings *source.Interner
}

// NewBuilder creates a builder. If strings is nil a fresh interner is
// allocated.
func NewBuilder(hints Hints, strings *source.Interner) *Builder {
	if hints.Files == 0 {
		hints.Files = 1 << 2
	}
	if hints.Decls == 0 {
		hints.Decls = 1 << 6
	}
	if hints.Stmts == 0 {
		hints.Stmts = 1 << 7
	}
	if hints.Exprs == 0 {
		hints.Exprs = 1 << 7
	}
	if hints.Patterns == 0 {
		hints.Patterns = 1 << 5
	}
	if strings == nil {
		strings = source.NewInterner()
	}
	return &Builder{
		Files:    NewFiles(hints.Files),
		Decls:    NewDecls(hints.Decls),
		Stmts:    NewStmts(hints.Stmts),
		Exprs:    NewExprs(hints.Exprs),
		Patterns: NewPatterns(hints.Patterns),
		Strings:  strings,
	}
}

// NewFile allocates a file record.
func (b *Builder) NewFile(sp source.Span) FileID {
	return b.Files.New(sp)
}

// PushDecl appends a top-level declaration to a file.
func (b *Builder) PushDecl(file FileID, decl DeclID) {
	f := b.Files.Get(file)
	f.Decls = append(f.Decls, decl)
	f.Span = f.Span.Cover(b.Decls.Get(decl).Span)
}

// AddMember appends a declaration to a nominal or extension body and
// marks member functions as methods.
func (b *Builder) AddMember(owner, member DeclID) {
	o := b.Decls.Get(owner)
	o.Members = append(o.Members, member)
	m := b.Decls.Get(member)
	if m.Kind == DeclFunction {
		m.Method = true
	}
}

// Ident interns an identifier.
func (b *Builder) Ident(name string) source.StringID {
	return b.Strings.InternIdent(name)
}

// Span returns the source range of any node handle, or NoSpan for an
// invalid handle.
func (b *Builder) Span(n Node) source.Span {
	switch n.Kind {
	case NodeDecl:
		if d := b.Decls.Get(n.Decl); d != nil {
			return d.Span
		}
	case NodeStmt:
		if s := b.Stmts.Get(n.Stmt); s != nil {
			return s.Span
		}
	case NodeExpr:
		if e := b.Exprs.Get(n.Expr); e != nil {
			return e.Span
		}
	}
	return source.NoSpan
}
