package scope

import (
	"prism/internal/ast"
	"prism/internal/source"
)

// walkState threads the mutable lookup state through the outward walk.
type walkState struct {
	// haveSelf is set once the walk passes a scope that provides an
	// implicit self: a method body or a member initializer. The first
	// type reached after that offers its members as the current
	// nominal; every type beyond it offers them as outside members.
	haveSelf bool
	selfUsed bool

	// alreadyLooked marks the declaration whose generics-and-members
	// search already ran, so the Whole portion and the generic
	// parameter chain of the same declaration do not offer twice.
	alreadyLooked ast.DeclID

	cascade CascadeState
}

// Lookup resolves an unqualified name at pos. The walk starts at the
// innermost scope containing pos (expanding along the way), offers
// visible bindings to the consumer from innermost to outermost, and
// stops when the consumer reports done, at a lookup limit, or past
// the root. name narrows what is offered; NoStringID offers every
// visible binding, which is what the collecting consumers want.
//
// startingCtx, when valid, pins the walk to the innermost scope on
// the containment path owned by that context; a missing match falls
// back to the containment result. state seeds the cascading-use fold;
// the return value is the folded result, carrying no success meaning.
func (t *Tree) Lookup(name source.StringID, pos source.Pos, startingCtx ast.Context, state CascadeState, consumer Consumer) CascadeState {
	t.mu.Lock()
	defer t.mu.Unlock()

	start := t.findStartNode(pos, startingCtx)
	ws := walkState{cascade: state}

	for cur := start; cur.IsValid(); cur = t.lookupParentOf(cur) {
		t.expand(cur)
		n := t.get(cur)
		ws.cascade = ws.cascade.Fold(t.cascadeContribution(n))

		switch n.Kind {
		case KindMethodBody:
			ws.haveSelf = true
		case KindPatternEntryInit:
			if n.Vis == VisMemberOfCurrentNominal {
				ws.haveSelf = true
			}
		}

		if t.offerLocals(cur, name, consumer, &ws) {
			return ws.cascade
		}

		if isTypeKind(n.Kind) {
			n = t.get(cur)
			if n.Decl != ws.alreadyLooked {
				if t.offerSelfType(cur, name, consumer, &ws) {
					return ws.cascade
				}
			}
			// A type declared where nesting is illegal walls off the
			// outer scopes entirely.
			if n.Portion == PortionWhole && t.insideTypeScope(n.Parent) {
				return ws.cascade
			}
		}
	}
	return ws.cascade
}

func isTypeKind(k Kind) bool {
	return k == KindNominalType || k == KindExtension || k == KindTypeAlias
}

// findStartNode locates the innermost materializable scope containing
// pos, then honors startingCtx when one of the path's scopes owns it.
// With an invalid position the materialized nodes are scanned for the
// context instead; failing everything, the walk starts at the root.
func (t *Tree) findStartNode(pos source.Pos, startingCtx ast.Context) NodeID {
	if !pos.IsValid() {
		if startingCtx.IsValid() {
			for id := NodeID(1); int(id) < len(t.nodes); id++ {
				if t.nodeContext(t.get(id)) == startingCtx {
					return id
				}
			}
		}
		return t.root
	}

	deepest := t.root
descend:
	for {
		t.expand(deepest)
		n := t.get(deepest)
		for _, child := range n.Children {
			if t.cachedRange(child).Contains(pos) {
				deepest = child
				continue descend
			}
		}
		break
	}

	if startingCtx.IsValid() {
		for id := deepest; id.IsValid(); id = t.get(id).Parent {
			if t.nodeContext(t.get(id)) == startingCtx {
				return id
			}
		}
		// Mismatch recovery: keep the containment result.
	}
	return deepest
}

// lookupParentOf is the walk's parent relation. It differs from the
// tree parent in one place: a guard continuation resolves through the
// guard's innermost conditional clause, so code after the guard sees
// the guard's bindings.
func (t *Tree) lookupParentOf(id NodeID) NodeID {
	n := t.get(id)
	if n.Kind != KindGuardUse || !n.Redirect.IsValid() {
		return n.Parent
	}
	t.expand(n.Redirect)
	deepest := NoNodeID
	cur := n.Redirect
	for {
		next := NoNodeID
		for _, child := range t.get(cur).Children {
			k := t.get(child).Kind
			if k == KindCondClause || k == KindCondPattern {
				next = child
			}
		}
		if !next.IsValid() {
			break
		}
		deepest = next
		cur = next
	}
	if deepest.IsValid() {
		return deepest
	}
	return t.get(id).Parent
}

// insideTypeScope reports whether any ancestor starting at id is a
// type scope.
func (t *Tree) insideTypeScope(id NodeID) bool {
	for ; id.IsValid(); id = t.get(id).Parent {
		if isTypeKind(t.get(id).Kind) {
			return true
		}
	}
	return false
}

// offerLocals presents the bindings a single scope introduces.
// Returns true when the consumer is done.
func (t *Tree) offerLocals(id NodeID, name source.StringID, consumer Consumer, ws *walkState) bool {
	n := t.get(id)
	switch n.Kind {
	case KindSourceFile:
		// The file scope sees every top-level declaration regardless
		// of position; pattern ladders refine ordering below it.
		file := t.builder.Files.Get(t.astFile)
		if file == nil {
			return false
		}
		for _, declID := range file.Decls {
			if t.offerDeclNames(declID, name, VisTopLevel, consumer) {
				return true
			}
		}

	case KindGenericParam:
		if n.Decl == ws.alreadyLooked {
			return false
		}
		d := t.builder.Decls.Get(n.Decl)
		if d == nil || int(n.Index) >= len(d.Generics) {
			return false
		}
		return t.offer(consumer, name, d.Generics[n.Index].Name, n.Decl, VisGenericParameter)

	case KindFunctionParams:
		d := t.builder.Decls.Get(n.Decl)
		if d == nil {
			return false
		}
		for i := range d.Params {
			if t.offer(consumer, name, d.Params[i].Name, n.Decl, VisFunctionParameter) {
				return true
			}
		}

	case KindClosureParams:
		e := t.builder.Exprs.Get(n.Expr)
		if e == nil {
			return false
		}
		for i := range e.Params {
			if t.offer(consumer, name, e.Params[i].Name, ast.NoDeclID, VisFunctionParameter) {
				return true
			}
		}

	case KindCaptureList:
		e := t.builder.Exprs.Get(n.Expr)
		if e == nil {
			return false
		}
		for i := range e.Captures {
			if t.offer(consumer, name, e.Captures[i].Name, ast.NoDeclID, VisLocal) {
				return true
			}
		}

	case KindPatternEntryUse:
		return t.offerPatternNames(n.Pattern, name, n.Decl, n.Vis, consumer)

	case KindCondPattern:
		return t.offerPatternNames(n.Pattern, name, ast.NoDeclID, VisLocal, consumer)

	case KindForEachPattern:
		s := t.builder.Stmts.Get(n.Stmt)
		if s == nil {
			return false
		}
		return t.offerPatternNames(s.Pattern, name, ast.NoDeclID, VisLocal, consumer)

	case KindCaseStmt:
		s := t.builder.Stmts.Get(n.Stmt)
		if s == nil {
			return false
		}
		for _, p := range s.Patterns {
			if t.offerPatternNames(p, name, ast.NoDeclID, VisLocal, consumer) {
				return true
			}
		}

	case KindCatchStmt:
		s := t.builder.Stmts.Get(n.Stmt)
		if s == nil {
			return false
		}
		return t.offerPatternNames(s.Pattern, name, ast.NoDeclID, VisLocal, consumer)

	case KindBraceStmt, KindMethodBody, KindPureFunctionBody,
		KindClosureBody, KindTopLevelCode, KindGuardUse:
		// Local functions and types are visible in the whole brace.
		// var bindings stay positional through the pattern ladders.
		for _, child := range n.Children {
			c := t.get(child)
			if c.Kind == KindFunction || c.Kind == KindVar ||
				(isTypeKind(c.Kind) && c.Portion == PortionWhole) {
				if t.offerDeclName(c.Decl, name, VisLocal, consumer) {
					return true
				}
			}
		}
	}
	return false
}

// offerSelfType runs the generics-and-members search of a type scope:
// its generic parameters, its member names, and for extensions the
// extended nominal's members. The marker in ws keeps the search from
// repeating across the type's portions and its parameter chain.
func (t *Tree) offerSelfType(id NodeID, name source.StringID, consumer Consumer, ws *walkState) bool {
	n := t.get(id)
	d := t.builder.Decls.Get(n.Decl)
	if d == nil {
		return false
	}
	ws.alreadyLooked = n.Decl

	vis := VisMemberOfOutsideNominal
	if ws.haveSelf && !ws.selfUsed {
		vis = VisMemberOfCurrentNominal
		ws.selfUsed = true
	}

	for i := range d.Generics {
		if t.offer(consumer, name, d.Generics[i].Name, n.Decl, VisGenericParameter) {
			return true
		}
	}
	for _, m := range d.Members {
		if t.offerDeclNames(m, name, vis, consumer) {
			return true
		}
	}
	if n.Kind == KindExtension && d.Extended.IsValid() {
		if ext := t.builder.Decls.Get(d.Extended); ext != nil {
			for _, m := range ext.Members {
				if t.offerDeclNames(m, name, vis, consumer) {
					return true
				}
			}
		}
	}
	return false
}

// nodeContext maps a scope to the declaration context it belongs to,
// for starting-context matching. Generic parameter scopes answer for
// their holder.
func (t *Tree) nodeContext(n *Node) ast.Context {
	switch n.Kind {
	case KindSourceFile:
		return ast.FileContext(t.astFile)
	case KindNominalType, KindTypeAlias:
		return ast.DeclContext(ast.ContextNominal, n.Decl)
	case KindExtension:
		return ast.DeclContext(ast.ContextExtension, n.Decl)
	case KindFunction, KindFunctionParams, KindMethodBody, KindPureFunctionBody:
		return ast.DeclContext(ast.ContextFunction, n.Decl)
	case KindSubscript:
		return ast.DeclContext(ast.ContextSubscript, n.Decl)
	case KindGenericParam:
		d := t.builder.Decls.Get(n.Decl)
		if d == nil {
			return ast.NoContext
		}
		switch d.Kind {
		case ast.DeclFunction:
			return ast.DeclContext(ast.ContextFunction, n.Decl)
		case ast.DeclSubscript:
			return ast.DeclContext(ast.ContextSubscript, n.Decl)
		case ast.DeclExtension:
			return ast.DeclContext(ast.ContextExtension, n.Decl)
		default:
			return ast.DeclContext(ast.ContextNominal, n.Decl)
		}
	case KindDefaultArgInit:
		return ast.InitializerContext(ast.ContextDefaultArgument, n.Decl, n.Index)
	case KindPatternEntryInit:
		return ast.InitializerContext(ast.ContextPatternInitializer, n.Decl, n.Index)
	case KindWholeClosure, KindClosureParams, KindClosureBody:
		return ast.ClosureContext(n.Expr)
	case KindTopLevelCode:
		return ast.DeclContext(ast.ContextTopLevelCode, n.Decl)
	default:
		return ast.NoContext
	}
}

// offer feeds one binding to the consumer after the name filter.
func (t *Tree) offer(consumer Consumer, query, name source.StringID, decl ast.DeclID, vis Visibility) bool {
	if name == source.NoStringID {
		return false
	}
	if query != source.NoStringID && name != query {
		return false
	}
	return consumer.ConsumeName(name, decl, vis)
}

// offerDeclName offers a declaration's own name.
func (t *Tree) offerDeclName(declID ast.DeclID, query source.StringID, vis Visibility, consumer Consumer) bool {
	d := t.builder.Decls.Get(declID)
	if d == nil {
		return false
	}
	return t.offer(consumer, query, d.Name, declID, vis)
}

// offerDeclNames offers every name a declaration introduces: its own
// name, or for pattern bindings every bound name of every entry.
func (t *Tree) offerDeclNames(declID ast.DeclID, query source.StringID, vis Visibility, consumer Consumer) bool {
	d := t.builder.Decls.Get(declID)
	if d == nil {
		return false
	}
	if d.Kind == ast.DeclPatternBinding {
		for i := range d.Entries {
			if t.offerPatternNames(d.Entries[i].Pattern, query, declID, vis, consumer) {
				return true
			}
		}
		return false
	}
	return t.offer(consumer, query, d.Name, declID, vis)
}

func (t *Tree) offerPatternNames(patternID ast.PatternID, query source.StringID, decl ast.DeclID, vis Visibility, consumer Consumer) bool {
	p := t.builder.Patterns.Get(patternID)
	if p == nil {
		return false
	}
	for i := range p.Names {
		if t.offer(consumer, query, p.Names[i].Name, decl, vis) {
			return true
		}
	}
	return false
}
