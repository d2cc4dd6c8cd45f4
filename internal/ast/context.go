package ast

// ContextKind classifies declaration contexts.
type ContextKind uint8

const (
	ContextInvalid ContextKind = iota
	ContextFile
	ContextNominal
	ContextExtension
	ContextFunction
	ContextSubscript
	ContextClosure
	ContextPatternInitializer
	ContextDefaultArgument
	ContextTopLevelCode
)

func (k ContextKind) String() string {
	switch k {
	case ContextFile:
		return "file"
	case ContextNominal:
		return "nominal"
	case ContextExtension:
		return "extension"
	case ContextFunction:
		return "function"
	case ContextSubscript:
		return "subscript"
	case ContextClosure:
		return "closure"
	case ContextPatternInitializer:
		return "patterninit"
	case ContextDefaultArgument:
		return "defaultarg"
	case ContextTopLevelCode:
		return "toplevel"
	default:
		return "invalid"
	}
}

// Context identifies a declaration context: the currency for lookup
// starting points and implicit-self resolution. It is a comparable
// value; two handles to the same context compare equal.
type Context struct {
	Kind  ContextKind
	File  FileID
	Decl  DeclID
	Expr  ExprID // closures
	Index uint32 // pattern-entry or parameter index for initializer contexts
}

// NoContext is the absent context.
var NoContext = Context{}

// IsValid reports whether the context identifies something.
func (c Context) IsValid() bool { return c.Kind != ContextInvalid }

// FileContext builds the context of a whole source file.
func FileContext(file FileID) Context {
	return Context{Kind: ContextFile, File: file}
}

// DeclContext builds the context owned by a declaration.
func DeclContext(kind ContextKind, decl DeclID) Context {
	return Context{Kind: kind, Decl: decl}
}

// ClosureContext builds the context owned by a closure expression.
func ClosureContext(expr ExprID) Context {
	return Context{Kind: ContextClosure, Expr: expr}
}

// InitializerContext builds a pattern- or default-argument-initializer
// context for the given entry or parameter index.
func InitializerContext(kind ContextKind, decl DeclID, index uint32) Context {
	return Context{Kind: kind, Decl: decl, Index: index}
}
