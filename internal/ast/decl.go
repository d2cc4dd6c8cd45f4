package ast

import (
	"prism/internal/source"
)

type DeclKind uint8

const (
	DeclInvalid DeclKind = iota
	DeclNominalType
	DeclExtension
	DeclTypeAlias
	DeclFunction
	DeclSubscript
	DeclPatternBinding
	DeclVar
	DeclTopLevelCode
)

func (k DeclKind) String() string {
	switch k {
	case DeclNominalType:
		return "nominal"
	case DeclExtension:
		return "extension"
	case DeclTypeAlias:
		return "typealias"
	case DeclFunction:
		return "function"
	case DeclSubscript:
		return "subscript"
	case DeclPatternBinding:
		return "patternbinding"
	case DeclVar:
		return "var"
	case DeclTopLevelCode:
		return "toplevelcode"
	default:
		return "invalid"
	}
}

// NominalFlavor distinguishes the nominal type declarations.
type NominalFlavor uint8

const (
	FlavorStruct NominalFlavor = iota
	FlavorClass
	FlavorEnum
	FlavorProtocol
)

func (f NominalFlavor) String() string {
	switch f {
	case FlavorStruct:
		return "struct"
	case FlavorClass:
		return "class"
	case FlavorEnum:
		return "enum"
	case FlavorProtocol:
		return "protocol"
	default:
		return "invalid"
	}
}

// GenericParam is one declared generic parameter. Inheritance covers
// the ": Bound" clause, where lookups for preceding parameters start.
type GenericParam struct {
	Name        source.StringID
	Span        source.Span
	NameSpan    source.Span
	Inheritance source.Span
}

// Param is one function/subscript/closure parameter. Default holds the
// default-value expression, if any.
type Param struct {
	Name     source.StringID
	Span     source.Span
	NameSpan source.Span
	Default  ExprID
}

// Decl is the uniform declaration record. Payload fields beyond the
// common header are populated per kind; unrelated ones stay zero.
type Decl struct {
	Kind DeclKind
	Span source.Span
	Name source.StringID

	// Nominal / extension / typealias / function / subscript.
	Flavor      NominalFlavor
	NameSpan    source.Span
	Generics    []GenericParam
	Inheritance source.Span // nominal ": Protos" clause
	Where       source.Span // trailing where clause
	Braces      source.Span // body braces, including the braces themselves
	Members     []DeclID    // nominal/extension body declarations

	// Extension only: the nominal being extended, once bound.
	Extended DeclID

	// Typealias only: the aliased type reference.
	Aliased source.Span

	// Function / subscript.
	Params []Param
	Result source.Span
	Body   StmtID // brace statement
	Method bool   // set when the function is a member of a nominal or extension

	// Subscript / var: accessor functions.
	Accessors []DeclID

	// Pattern binding.
	Entries []PatternEntry

	// Var.
	WrapperAttr source.Span // attached property-wrapper attribute, if any
}

// PatternEntry is one pattern of a (possibly multi-pattern) binding
// declaration: `let (a, b) = f(), c = g()` has two entries.
type PatternEntry struct {
	Pattern PatternID
	Init    ExprID
}

type Decls struct {
	Arena *Arena[Decl]
}

func NewDecls(capHint uint) *Decls {
	return &Decls{
		Arena: NewArena[Decl](capHint),
	}
}

func (d *Decls) New(decl Decl) DeclID {
	return DeclID(d.Arena.Allocate(decl))
}

func (d *Decls) Get(id DeclID) *Decl {
	return d.Arena.Get(uint32(id))
}
