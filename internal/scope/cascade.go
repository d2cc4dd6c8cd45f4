package scope

// CascadeState is the tri-state cascading-use flag threaded through
// the outward lookup walk. It tells the caller whether to record the
// lookup result as a cascading dependency for incremental rebuilds;
// it carries no success/failure meaning.
type CascadeState uint8

const (
	// CascadeUnknown means no scope on the walk has resolved the
	// question yet.
	CascadeUnknown CascadeState = iota
	CascadeKnownTrue
	CascadeKnownFalse
)

func (s CascadeState) String() string {
	switch s {
	case CascadeKnownTrue:
		return "cascading"
	case CascadeKnownFalse:
		return "non-cascading"
	default:
		return "unknown"
	}
}

// Fold merges a node's contribution into the running state. Unknown
// absorbs the contribution; a known state persists: the innermost
// resolving scope decides.
func (s CascadeState) Fold(contribution CascadeState) CascadeState {
	if s != CascadeUnknown {
		return s
	}
	return contribution
}

// cascadeContribution is the per-kind resolution policy. Most kinds
// leave the inherited state alone; bodies of local constructs resolve
// it to false, file-visible regions resolve it to true.
func (t *Tree) cascadeContribution(n *Node) CascadeState {
	switch n.Kind {
	case KindMethodBody, KindPureFunctionBody,
		KindClosureParams, KindClosureBody,
		KindDefaultArgInit:
		return CascadeKnownFalse
	case KindPatternEntryInit:
		// Member and top-level initializers resolve against
		// file-visible state and cascade; local ones do not.
		if n.Vis == VisLocal {
			return CascadeKnownFalse
		}
		return CascadeKnownTrue
	case KindNominalType, KindExtension, KindTypeAlias:
		// By the declaration's context: declaration regions of a
		// file-visible type cascade, a type declared inside a body is
		// as local as the body around it. The walk skips the decl's
		// own portion and generic-parameter nodes first.
		cur := n.Parent
		for cur.IsValid() {
			p := t.get(cur)
			if p == nil {
				break
			}
			if (p.Kind == n.Kind || p.Kind == KindGenericParam) && p.Decl == n.Decl {
				cur = p.Parent
				continue
			}
			switch p.Kind {
			case KindMethodBody, KindPureFunctionBody, KindClosureBody:
				return CascadeKnownFalse
			case KindSourceFile, KindTopLevelCode,
				KindNominalType, KindExtension, KindTypeAlias:
				return CascadeKnownTrue
			}
			cur = p.Parent
		}
		return CascadeKnownTrue
	case KindTopLevelCode, KindSourceFile:
		return CascadeKnownTrue
	default:
		return CascadeUnknown
	}
}
