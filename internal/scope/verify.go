package scope

import (
	"fmt"

	"prism/internal/diag"
	"prism/internal/source"
)

// Verify checks the structural invariants over every materialized
// node: parent back-links, child ranges contained in the parent's
// range, and siblings ordered without overlap. It expands nothing;
// the tree is checked in whatever lazy state it is in. Violations go
// to the reporter; the return value reports whether any were found.
// Development and test tooling only.
func (t *Tree) Verify(r diag.Reporter) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	ok := true
	for id := NodeID(1); int(id) < len(t.nodes); id++ {
		n := t.get(id)

		if id != t.root && !n.Parent.IsValid() {
			ok = false
			diag.ReportError(r, diag.ScopeOrphanNode, t.uncachedRange(id),
				fmt.Sprintf("scope node %d (%s) has no parent", id, n.Kind)).Emit()
		}

		parentRange := t.uncachedRange(id)
		var prev source.Span
		var prevID NodeID
		for _, child := range n.Children {
			c := t.get(child)
			if c == nil {
				ok = false
				diag.ReportError(r, diag.ScopeError, parentRange,
					fmt.Sprintf("scope node %d references unallocated child %d", id, child)).Emit()
				continue
			}
			if c.Parent != id {
				ok = false
				diag.ReportError(r, diag.VerifyBadParentLink, t.uncachedRange(child),
					fmt.Sprintf("scope node %d (%s) links parent %d, listed under %d", child, c.Kind, c.Parent, id)).Emit()
			}

			childRange := t.uncachedRange(child)
			if !childRange.IsValid() {
				// Placeholder without content yet; nothing to order.
				continue
			}
			if parentRange.IsValid() && !parentRange.ContainsSpan(childRange) {
				ok = false
				diag.ReportError(r, diag.VerifyChildEscapes, childRange,
					fmt.Sprintf("scope node %d (%s) escapes parent %d (%s)", child, c.Kind, id, n.Kind)).
					WithNote(parentRange, "parent range").Emit()
			}
			if prev.IsValid() {
				switch {
				case prev.End > childRange.Start && childRange.End > prev.Start:
					ok = false
					diag.ReportError(r, diag.VerifySiblingsOverlap, childRange,
						fmt.Sprintf("scope node %d (%s) overlaps sibling %d", child, c.Kind, prevID)).
						WithNote(prev, "previous sibling").Emit()
				case !prev.Before(childRange) && prev.Start != childRange.Start:
					ok = false
					diag.ReportError(r, diag.VerifySiblingsOrder, childRange,
						fmt.Sprintf("scope node %d (%s) precedes sibling %d in source", child, c.Kind, prevID)).
						WithNote(prev, "previous sibling").Emit()
				}
			}
			prev = childRange
			prevID = child
		}
	}
	return ok
}
