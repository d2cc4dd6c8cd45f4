package scope

import (
	"prism/internal/source"
)

// Range returns the minimal source range containing the node's own
// content, its ignored content, and its children's ranges, expanding
// the node itself first. Descendants stay unexpanded: their childless
// ranges already bound any deferred content, and appending children
// later invalidates cached ranges up the ancestor chain. Nodes that
// can never produce a range yield the invalid span, never a
// fabricated empty one.
func (t *Tree) Range(id NodeID) source.Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rangeOf(id)
}

// rangeOf expands the node and returns its cached range. Callers hold
// t.mu.
func (t *Tree) rangeOf(id NodeID) source.Span {
	if t.get(id) == nil {
		return source.NoSpan
	}
	t.expand(id)
	return t.cachedRange(id)
}

// cachedRange computes a node's range without expanding anything,
// memoizing the result.
func (t *Tree) cachedRange(id NodeID) source.Span {
	n := t.get(id)
	if n.cacheValid {
		return n.cached
	}

	sp := t.childlessRange(id)
	n = t.get(id)
	sp = sp.Cover(n.ignored)
	for _, child := range n.Children {
		sp = sp.Cover(t.cachedRange(child))
	}

	n = t.get(id)
	n.cached = sp
	n.cacheValid = true
	return sp
}

// uncachedRange is the read-only variant for the debug dump: no
// expansion, no cache writes.
func (t *Tree) uncachedRange(id NodeID) source.Span {
	n := t.get(id)
	if n == nil {
		return source.NoSpan
	}
	if n.cacheValid {
		return n.cached
	}
	sp := t.childlessRange(id).Cover(n.ignored)
	for _, child := range n.Children {
		sp = sp.Cover(t.uncachedRange(child))
	}
	return sp
}

// childlessRange derives the node's own extent from its payload,
// before children and ignored content widen it. Split kinds carry a
// creator-computed Region instead.
func (t *Tree) childlessRange(id NodeID) source.Span {
	n := t.get(id)
	if n.Region.IsValid() {
		return n.Region
	}

	switch n.Kind {
	case KindNominalType, KindExtension, KindTypeAlias:
		d := t.decl(n)
		if d == nil {
			return source.NoSpan
		}
		switch n.Portion {
		case PortionWhere:
			return d.Where
		case PortionBody:
			return d.Braces
		default:
			return d.Span
		}

	case KindFunction, KindSubscript, KindVar, KindTopLevelCode:
		if d := t.decl(n); d != nil {
			return d.Span
		}

	case KindPatternEntryDecl:
		var sp source.Span
		if p := t.builder.Patterns.Get(n.Pattern); p != nil {
			sp = sp.Cover(p.Span)
		}
		if e := t.builder.Exprs.Get(n.Expr); e != nil {
			sp = sp.Cover(e.Span)
		}
		return sp

	case KindIfStmt, KindWhileStmt, KindRepeatWhileStmt, KindGuardStmt,
		KindForEachStmt, KindSwitchStmt, KindCaseStmt, KindDoCatchStmt,
		KindCatchStmt, KindBraceStmt:
		if s := t.stmt(n); s != nil {
			return s.Span
		}

	case KindCaptureList, KindWholeClosure:
		if e := t.expr(n); e != nil {
			return e.Span
		}
	}
	return source.NoSpan
}

// HasValidRange reports whether the node resolves to a real range.
// An unpopulated placeholder does not.
func (t *Tree) HasValidRange(id NodeID) bool {
	return t.Range(id).IsValid()
}
