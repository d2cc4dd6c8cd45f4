package scope

// Kind enumerates every scope-node variant. The set is closed: each
// value is a policy bundle selecting the node's range rule, local
// bindings, expansion rule, lookup limit, self forwarding, and
// cascading-use resolution.
type Kind uint8

const (
	KindInvalid Kind = iota

	// The root, one per source file.
	KindSourceFile

	// Generic type or extension nodes, further qualified by Portion.
	KindNominalType
	KindExtension
	KindTypeAlias

	// One node per generic parameter; parameter i nests inside
	// parameter i-1 so each sees only the preceding ones.
	KindGenericParam

	// Functions and their pieces.
	KindFunction
	KindFunctionParams
	KindMethodBody
	KindPureFunctionBody
	KindDefaultArgInit

	// Storage declarations.
	KindSubscript
	KindVar
	KindWrapperAttr

	// Pattern bindings: up to three nodes per entry.
	KindPatternEntryDecl
	KindPatternEntryInit
	KindPatternEntryUse

	// Conditional clauses of if/while/guard and their splits.
	KindCondClause
	KindCondInit
	KindCondPattern
	KindGuardUse

	// Closures.
	KindCaptureList
	KindWholeClosure
	KindClosureParams
	KindClosureBody

	KindTopLevelCode

	// Statements.
	KindIfStmt
	KindWhileStmt
	KindRepeatWhileStmt
	KindGuardStmt
	KindForEachStmt
	KindForEachPattern
	KindSwitchStmt
	KindCaseStmt
	KindDoCatchStmt
	KindCatchStmt
	KindBraceStmt

	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindSourceFile:
		return "sourcefile"
	case KindNominalType:
		return "nominaltype"
	case KindExtension:
		return "extension"
	case KindTypeAlias:
		return "typealias"
	case KindGenericParam:
		return "genericparam"
	case KindFunction:
		return "function"
	case KindFunctionParams:
		return "functionparams"
	case KindMethodBody:
		return "methodbody"
	case KindPureFunctionBody:
		return "purefunctionbody"
	case KindDefaultArgInit:
		return "defaultarginit"
	case KindSubscript:
		return "subscript"
	case KindVar:
		return "var"
	case KindWrapperAttr:
		return "wrapperattr"
	case KindPatternEntryDecl:
		return "patternentrydecl"
	case KindPatternEntryInit:
		return "patternentryinit"
	case KindPatternEntryUse:
		return "patternentryuse"
	case KindCondClause:
		return "condclause"
	case KindCondInit:
		return "condinit"
	case KindCondPattern:
		return "condpattern"
	case KindGuardUse:
		return "guarduse"
	case KindCaptureList:
		return "capturelist"
	case KindWholeClosure:
		return "wholeclosure"
	case KindClosureParams:
		return "closureparams"
	case KindClosureBody:
		return "closurebody"
	case KindTopLevelCode:
		return "toplevelcode"
	case KindIfStmt:
		return "ifstmt"
	case KindWhileStmt:
		return "whilestmt"
	case KindRepeatWhileStmt:
		return "repeatwhilestmt"
	case KindGuardStmt:
		return "guardstmt"
	case KindForEachStmt:
		return "foreachstmt"
	case KindForEachPattern:
		return "foreachpattern"
	case KindSwitchStmt:
		return "switchstmt"
	case KindCaseStmt:
		return "casestmt"
	case KindDoCatchStmt:
		return "docatchstmt"
	case KindCatchStmt:
		return "catchstmt"
	case KindBraceStmt:
		return "bracestmt"
	default:
		return "invalid"
	}
}

// IsPortioned reports whether the kind carries a Portion (the generic
// type / extension family).
func (k Kind) IsPortioned() bool {
	switch k {
	case KindNominalType, KindExtension, KindTypeAlias:
		return true
	default:
		return false
	}
}

// Portion selects which of the up-to-three lookup regions of a
// portioned declaration a node represents.
type Portion uint8

const (
	// PortionWhole covers the entire declaration.
	PortionWhole Portion = iota
	// PortionWhere covers the trailing where clause.
	PortionWhere
	// PortionBody covers the brace-enclosed member region.
	PortionBody
)

func (p Portion) String() string {
	switch p {
	case PortionWhole:
		return "whole"
	case PortionWhere:
		return "where"
	case PortionBody:
		return "body"
	default:
		return "invalid"
	}
}
