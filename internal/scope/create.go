package scope

import (
	"prism/internal/ast"
	"prism/internal/source"
)

// expand runs the node's expansion rule once. Callers hold t.mu.
// Expansion of one node may eagerly attach grandchildren (clause
// chains, pattern-entry ladders) while leaving heavyweight subtrees
// (bodies, members) deferred behind their own nodes.
func (t *Tree) expand(id NodeID) {
	n := t.get(id)
	if n == nil || n.expanded {
		return
	}
	n.expanded = true

	switch n.Kind {
	case KindSourceFile:
		t.drainBraceLike(id, VisTopLevel)

	case KindBraceStmt, KindMethodBody, KindPureFunctionBody,
		KindTopLevelCode, KindPatternEntryUse, KindGuardUse:
		t.drainBraceLike(id, VisLocal)

	case KindNominalType, KindExtension, KindTypeAlias:
		// The three portions share the Kind; only the whole portion
		// runs the declaration expansion. The body portion drains its
		// deferred members, the where portion is a leaf.
		switch n.Portion {
		case PortionBody:
			t.drainBraceLike(id, n.Vis)
		case PortionWhere:
		default:
			t.expandPortioned(id)
		}

	case KindFunction:
		t.expandFunction(id)

	case KindSubscript:
		t.expandSubscript(id)

	case KindVar:
		t.expandVar(id)

	case KindPatternEntryDecl:
		t.expandPatternEntryDecl(id)

	case KindPatternEntryInit, KindCondInit, KindDefaultArgInit:
		n := t.get(id)
		t.createExprScopes(id, n.Expr)

	case KindIfStmt:
		t.expandIf(id)
	case KindWhileStmt:
		t.expandWhile(id)
	case KindRepeatWhileStmt:
		t.expandRepeatWhile(id)
	case KindGuardStmt:
		t.expandGuard(id)
	case KindForEachStmt:
		t.expandForEach(id)
	case KindForEachPattern:
		t.expandForEachPattern(id)
	case KindSwitchStmt:
		t.expandSwitch(id)
	case KindCaseStmt:
		t.expandCase(id)
	case KindDoCatchStmt:
		t.expandDoCatch(id)
	case KindCatchStmt:
		t.expandCatch(id)

	case KindCaptureList:
		t.expandCaptureList(id)
	case KindWholeClosure:
		t.expandWholeClosure(id)

	default:
		// Leaf kinds: generic params, where portions, closure params,
		// clause nodes, wrapper attributes. Their children, if any,
		// were attached eagerly by the parent's rule.
	}
}

// drainBraceLike is the deferred-node protocol shared by every scope
// that holds a statement sequence. Pattern bindings and guards consume
// the remaining nodes into their use/continuation scopes, so the
// bindings are visible exactly from their point of declaration on.
func (t *Tree) drainBraceLike(id NodeID, vis Visibility) {
	n := t.get(id)
	nodes := n.deferred
	regionEnd := n.regionEnd
	n.deferred = nil

	for i := 0; i < len(nodes); i++ {
		node := nodes[i]
		switch node.Kind {
		case ast.NodeDecl:
			d := t.builder.Decls.Get(node.Decl)
			if d == nil {
				continue
			}
			if d.Kind == ast.DeclPatternBinding {
				// Member bindings build no use scope, so the drain
				// continues; statement-level bindings hand the rest of
				// the sequence to their innermost use scope.
				if vis == VisMemberOfCurrentNominal {
					t.createPatternEntryScopes(id, node.Decl, vis, nil, regionEnd)
					continue
				}
				t.createPatternEntryScopes(id, node.Decl, vis, nodes[i+1:], regionEnd)
				return
			}
			t.createDeclScope(id, node.Decl, vis)
		case ast.NodeStmt:
			s := t.builder.Stmts.Get(node.Stmt)
			if s == nil {
				continue
			}
			if s.Kind == ast.StmtGuard {
				t.createStmtScope(id, node.Stmt)
				guard := t.lastChild(id)
				use := t.addChild(id, Node{
					Kind:     KindGuardUse,
					Stmt:     node.Stmt,
					Redirect: guard,
					Region:   source.Span{File: t.file, Start: s.Span.End, End: regionEnd},
				})
				u := t.get(use)
				u.deferred = append([]ast.Node(nil), nodes[i+1:]...)
				u.regionEnd = regionEnd
				return
			}
			t.createStmtScope(id, node.Stmt)
		case ast.NodeExpr:
			t.widenIgnored(id, t.builder.Span(node))
			t.createExprScopes(id, node.Expr)
		}
	}
}

// createDeclScope creates the scope node for one declaration, or folds
// a scope-less declaration into the parent's ignored range.
func (t *Tree) createDeclScope(parent NodeID, declID ast.DeclID, vis Visibility) {
	d := t.builder.Decls.Get(declID)
	switch d.Kind {
	case ast.DeclNominalType:
		t.addChild(parent, Node{Kind: KindNominalType, Portion: PortionWhole, Decl: declID})
	case ast.DeclExtension:
		t.addChild(parent, Node{Kind: KindExtension, Portion: PortionWhole, Decl: declID})
	case ast.DeclTypeAlias:
		t.addChild(parent, Node{Kind: KindTypeAlias, Portion: PortionWhole, Decl: declID})
	case ast.DeclFunction:
		t.addChild(parent, Node{Kind: KindFunction, Decl: declID})
	case ast.DeclSubscript:
		t.addChild(parent, Node{Kind: KindSubscript, Decl: declID})
	case ast.DeclVar:
		t.addChild(parent, Node{Kind: KindVar, Decl: declID})
	case ast.DeclTopLevelCode:
		id := t.addChild(parent, Node{Kind: KindTopLevelCode, Decl: declID})
		if body := t.builder.Stmts.Get(d.Body); body != nil {
			n := t.get(id)
			n.deferred = append([]ast.Node(nil), body.Nodes...)
			n.regionEnd = body.Span.End
		}
	case ast.DeclPatternBinding:
		// Reached only outside the brace-like drain (else-branches and
		// similar); no trailing region, so no use scope.
		t.createPatternEntryScopes(parent, declID, vis, nil, d.Span.End)
	default:
		t.widenIgnored(parent, d.Span)
	}
}

// createPatternEntryScopes builds the decl/initializer/use ladder for
// one pattern-binding declaration. Entry i+1 nests inside entry i's
// use scope, so later initializers see earlier bindings; remaining
// deferred nodes land in the innermost use scope.
func (t *Tree) createPatternEntryScopes(parent NodeID, declID ast.DeclID, vis Visibility, rest []ast.Node, regionEnd uint32) {
	d := t.builder.Decls.Get(declID)
	cur := parent
	for i := range d.Entries {
		entry := d.Entries[i]
		idx := uint32(i)

		t.addChild(cur, Node{
			Kind:    KindPatternEntryDecl,
			Decl:    declID,
			Pattern: entry.Pattern,
			Expr:    entry.Init,
			Index:   idx,
			Vis:     vis,
		})

		// Member bindings get no use scope: an initializer in a type
		// body must not see sibling members lexically.
		if vis == VisMemberOfCurrentNominal {
			continue
		}

		entryEnd := t.patternEntryEnd(entry)
		last := i == len(d.Entries)-1
		if last && len(rest) == 0 && regionEnd <= entryEnd {
			break
		}
		use := t.addChild(cur, Node{
			Kind:    KindPatternEntryUse,
			Decl:    declID,
			Pattern: entry.Pattern,
			Index:   idx,
			Vis:     vis,
			Region:  source.Span{File: t.file, Start: entryEnd, End: regionEnd},
		})
		if last {
			u := t.get(use)
			u.deferred = append([]ast.Node(nil), rest...)
			u.regionEnd = regionEnd
		}
		cur = use
	}
}

// patternEntryEnd returns where an entry's visible region begins: just
// past the initializer, or past the pattern when there is none.
func (t *Tree) patternEntryEnd(entry ast.PatternEntry) uint32 {
	if e := t.builder.Exprs.Get(entry.Init); e != nil {
		return e.Span.End
	}
	if p := t.builder.Patterns.Get(entry.Pattern); p != nil {
		return p.Span.End
	}
	return 0
}

// expandPatternEntryDecl attaches the initializer scope, split from
// the decl scope so `let a = a` resolves the right-hand side outward.
func (t *Tree) expandPatternEntryDecl(id NodeID) {
	n := t.get(id)
	if !n.Expr.IsValid() {
		return
	}
	e := t.builder.Exprs.Get(n.Expr)
	if e == nil {
		return
	}
	t.addChild(id, Node{
		Kind:    KindPatternEntryInit,
		Decl:    n.Decl,
		Pattern: n.Pattern,
		Expr:    n.Expr,
		Index:   n.Index,
		Vis:     n.Vis,
		Region:  e.Span,
	})
}

// expandPortioned builds the generic-parameter chain, where-clause
// portion, and body portion of a generic type or extension.
func (t *Tree) expandPortioned(id NodeID) {
	n := t.get(id)
	declID := n.Decl
	kind := n.Kind
	d := t.builder.Decls.Get(declID)

	cur := t.buildGenericParamChain(id, declID, d.Generics, d.Span.End)

	if d.Kind == ast.DeclTypeAlias {
		t.widenIgnored(id, d.Aliased)
		return
	}
	if d.Where.IsValid() {
		t.addChild(cur, Node{Kind: kind, Portion: PortionWhere, Decl: declID})
	}
	if d.Braces.IsValid() {
		body := t.addChild(cur, Node{Kind: kind, Portion: PortionBody, Decl: declID})
		b := t.get(body)
		b.Vis = VisMemberOfCurrentNominal
		b.deferred = make([]ast.Node, 0, len(d.Members))
		for _, m := range d.Members {
			b.deferred = append(b.deferred, ast.DeclNode(m))
		}
		b.regionEnd = d.Braces.End
	}
	if kind == KindNominalType && d.Inheritance.IsValid() {
		t.widenIgnored(id, d.Inheritance)
	}
}

// buildGenericParamChain nests one node per parameter so parameter i
// sees exactly the parameters before it.
func (t *Tree) buildGenericParamChain(parent NodeID, declID ast.DeclID, params []ast.GenericParam, declEnd uint32) NodeID {
	cur := parent
	for i := range params {
		cur = t.addChild(cur, Node{
			Kind:   KindGenericParam,
			Decl:   declID,
			Index:  uint32(i),
			Vis:    VisGenericParameter,
			Region: source.Span{File: t.file, Start: params[i].Span.Start, End: declEnd},
		})
	}
	return cur
}

func (t *Tree) expandFunction(id NodeID) {
	n := t.get(id)
	declID := n.Decl
	d := t.builder.Decls.Get(declID)

	cur := t.buildGenericParamChain(id, declID, d.Generics, d.Span.End)
	cur = t.buildParamScopes(cur, declID, d.Params, d.Span.End)
	t.buildFunctionBody(cur, declID, d)
}

// buildParamScopes creates the parameter scope (when there are
// parameters) with one default-argument-initializer child per
// defaulted parameter.
func (t *Tree) buildParamScopes(parent NodeID, declID ast.DeclID, params []ast.Param, declEnd uint32) NodeID {
	if len(params) == 0 {
		return parent
	}
	start := params[0].Span.Start
	paramsNode := t.addChild(parent, Node{
		Kind:   KindFunctionParams,
		Decl:   declID,
		Vis:    VisFunctionParameter,
		Region: source.Span{File: t.file, Start: start, End: declEnd},
	})
	for i := range params {
		if !params[i].Default.IsValid() {
			continue
		}
		e := t.builder.Exprs.Get(params[i].Default)
		if e == nil {
			continue
		}
		t.addChild(paramsNode, Node{
			Kind:   KindDefaultArgInit,
			Decl:   declID,
			Expr:   params[i].Default,
			Index:  uint32(i),
			Region: e.Span,
		})
	}
	return paramsNode
}

func (t *Tree) buildFunctionBody(parent NodeID, declID ast.DeclID, d *ast.Decl) {
	body := t.builder.Stmts.Get(d.Body)
	if body == nil {
		return
	}
	kind := KindPureFunctionBody
	if d.Method {
		kind = KindMethodBody
	}
	id := t.addChild(parent, Node{Kind: kind, Decl: declID, Region: body.Span})
	n := t.get(id)
	n.deferred = append([]ast.Node(nil), body.Nodes...)
	n.regionEnd = body.Span.End
}

func (t *Tree) expandSubscript(id NodeID) {
	n := t.get(id)
	declID := n.Decl
	d := t.builder.Decls.Get(declID)

	cur := t.buildGenericParamChain(id, declID, d.Generics, d.Span.End)
	cur = t.buildParamScopes(cur, declID, d.Params, d.Span.End)
	for _, acc := range d.Accessors {
		t.createDeclScope(cur, acc, VisLocal)
	}
}

func (t *Tree) expandVar(id NodeID) {
	n := t.get(id)
	declID := n.Decl
	d := t.builder.Decls.Get(declID)

	if d.WrapperAttr.IsValid() {
		t.addChild(id, Node{Kind: KindWrapperAttr, Decl: declID, Region: d.WrapperAttr})
	}
	for _, acc := range d.Accessors {
		t.createDeclScope(id, acc, VisLocal)
	}
}

// createStmtScope creates the scope node for one statement, or folds a
// scope-less statement into the parent's ignored range after fishing
// out any closures it contains.
func (t *Tree) createStmtScope(parent NodeID, stmtID ast.StmtID) {
	s := t.builder.Stmts.Get(stmtID)
	var kind Kind
	switch s.Kind {
	case ast.StmtBrace:
		kind = KindBraceStmt
	case ast.StmtIf:
		kind = KindIfStmt
	case ast.StmtWhile:
		kind = KindWhileStmt
	case ast.StmtRepeatWhile:
		kind = KindRepeatWhileStmt
	case ast.StmtGuard:
		kind = KindGuardStmt
	case ast.StmtForEach:
		kind = KindForEachStmt
	case ast.StmtSwitch:
		kind = KindSwitchStmt
	case ast.StmtDoCatch:
		kind = KindDoCatchStmt
	default:
		// return / bare expression: no scope of its own.
		t.widenIgnored(parent, s.Span)
		t.createExprScopes(parent, s.Operand)
		return
	}
	id := t.addChild(parent, Node{Kind: kind, Stmt: stmtID})
	if kind == KindBraceStmt {
		n := t.get(id)
		n.deferred = append([]ast.Node(nil), s.Nodes...)
		n.regionEnd = s.Span.End
	}
}

// buildCondChain nests one clause node per condition element, each
// inside the previous; pattern clauses split into an initializer
// sub-node and a binding sub-node. Returns the innermost node, which
// receives the construct's body.
func (t *Tree) buildCondChain(parent NodeID, stmtID ast.StmtID, clauses []ast.CondClause, chainEnd uint32) NodeID {
	cur := parent
	for i := range clauses {
		c := clauses[i]
		clause := t.addChild(cur, Node{
			Kind:   KindCondClause,
			Stmt:   stmtID,
			Index:  uint32(i),
			Region: source.Span{File: t.file, Start: c.Span.Start, End: chainEnd},
		})
		if !c.IsPattern() {
			if c.Bool.IsValid() {
				if e := t.builder.Exprs.Get(c.Bool); e != nil {
					t.widenIgnored(clause, e.Span)
				}
				t.createExprScopes(clause, c.Bool)
			}
			cur = clause
			continue
		}

		bindStart := c.Span.End
		if e := t.builder.Exprs.Get(c.Init); e != nil {
			t.addChild(clause, Node{
				Kind:   KindCondInit,
				Stmt:   stmtID,
				Expr:   c.Init,
				Index:  uint32(i),
				Region: e.Span,
			})
			bindStart = e.Span.End
		}
		cur = t.addChild(clause, Node{
			Kind:    KindCondPattern,
			Stmt:    stmtID,
			Pattern: c.Pattern,
			Index:   uint32(i),
			Vis:     VisLocal,
			Region:  source.Span{File: t.file, Start: bindStart, End: chainEnd},
		})
	}
	return cur
}

func (t *Tree) expandIf(id NodeID) {
	n := t.get(id)
	stmtID := n.Stmt
	s := t.builder.Stmts.Get(stmtID)

	chainEnd := s.Span.End
	if body := t.builder.Stmts.Get(s.Body); body != nil {
		chainEnd = body.Span.End
	}
	inner := t.buildCondChain(id, stmtID, s.Clauses, chainEnd)
	if s.Body.IsValid() {
		t.createStmtScope(inner, s.Body)
	}
	// The else branch hangs off the statement node itself: it sees no
	// condition bindings.
	s = t.builder.Stmts.Get(stmtID)
	if s.Else.IsValid() {
		t.createNodeScope(id, s.Else)
	}
}

func (t *Tree) expandWhile(id NodeID) {
	n := t.get(id)
	stmtID := n.Stmt
	s := t.builder.Stmts.Get(stmtID)

	chainEnd := s.Span.End
	if body := t.builder.Stmts.Get(s.Body); body != nil {
		chainEnd = body.Span.End
	}
	inner := t.buildCondChain(id, stmtID, s.Clauses, chainEnd)
	if s.Body.IsValid() {
		t.createStmtScope(inner, s.Body)
	}
}

func (t *Tree) expandRepeatWhile(id NodeID) {
	n := t.get(id)
	stmtID := n.Stmt
	s := t.builder.Stmts.Get(stmtID)

	if s.Body.IsValid() {
		t.createStmtScope(id, s.Body)
	}
	// The trailing condition evaluates outside the body scope.
	t.createExprScopes(id, s.Subject)
}

func (t *Tree) expandGuard(id NodeID) {
	n := t.get(id)
	stmtID := n.Stmt
	s := t.builder.Stmts.Get(stmtID)

	// Clause regions stop where the else begins: the else branch must
	// not nest inside the clause chain, it sees none of the bindings.
	chainEnd := s.Span.End
	if elseSpan := t.builder.Span(s.Else); elseSpan.IsValid() {
		chainEnd = elseSpan.Start
	}
	t.buildCondChain(id, stmtID, s.Clauses, chainEnd)
	s = t.builder.Stmts.Get(stmtID)
	if s.Else.IsValid() {
		t.createNodeScope(id, s.Else)
	}
}

func (t *Tree) expandForEach(id NodeID) {
	n := t.get(id)
	stmtID := n.Stmt
	s := t.builder.Stmts.Get(stmtID)

	// The sequence expression evaluates before the loop variable
	// exists.
	if e := t.builder.Exprs.Get(s.Subject); e != nil {
		t.widenIgnored(id, e.Span)
	}
	t.createExprScopes(id, s.Subject)

	s = t.builder.Stmts.Get(stmtID)
	body := t.builder.Stmts.Get(s.Body)
	if body == nil {
		return
	}
	start := body.Span.Start
	if e := t.builder.Exprs.Get(s.WhereExp); e != nil {
		start = e.Span.Start
	}
	t.addChild(id, Node{
		Kind:    KindForEachPattern,
		Stmt:    stmtID,
		Pattern: s.Pattern,
		Vis:     VisLocal,
		Region:  source.Span{File: t.file, Start: start, End: body.Span.End},
	})
}

func (t *Tree) expandForEachPattern(id NodeID) {
	n := t.get(id)
	stmtID := n.Stmt
	s := t.builder.Stmts.Get(stmtID)

	t.createExprScopes(id, s.WhereExp)
	if s.Body.IsValid() {
		t.createStmtScope(id, s.Body)
	}
}

func (t *Tree) expandSwitch(id NodeID) {
	n := t.get(id)
	stmtID := n.Stmt
	s := t.builder.Stmts.Get(stmtID)

	if e := t.builder.Exprs.Get(s.Subject); e != nil {
		t.widenIgnored(id, e.Span)
	}
	t.createExprScopes(id, s.Subject)

	s = t.builder.Stmts.Get(stmtID)
	for _, caseID := range s.Cases {
		t.addChild(id, Node{Kind: KindCaseStmt, Stmt: caseID, Vis: VisLocal})
	}
}

func (t *Tree) expandCase(id NodeID) {
	n := t.get(id)
	s := t.builder.Stmts.Get(n.Stmt)

	t.createExprScopes(id, s.WhereExp)
	if s.Body.IsValid() {
		t.createStmtScope(id, s.Body)
	}
}

func (t *Tree) expandDoCatch(id NodeID) {
	n := t.get(id)
	s := t.builder.Stmts.Get(n.Stmt)

	if s.Body.IsValid() {
		t.createStmtScope(id, s.Body)
	}
	s = t.builder.Stmts.Get(t.get(id).Stmt)
	for _, catchID := range s.Cases {
		t.addChild(id, Node{Kind: KindCatchStmt, Stmt: catchID, Vis: VisLocal})
	}
}

func (t *Tree) expandCatch(id NodeID) {
	n := t.get(id)
	s := t.builder.Stmts.Get(n.Stmt)

	t.createExprScopes(id, s.Subject)
	if s.Body.IsValid() {
		t.createStmtScope(id, s.Body)
	}
}

// createNodeScope dispatches a mixed handle (else branches).
func (t *Tree) createNodeScope(parent NodeID, node ast.Node) {
	switch node.Kind {
	case ast.NodeDecl:
		t.createDeclScope(parent, node.Decl, VisLocal)
	case ast.NodeStmt:
		t.createStmtScope(parent, node.Stmt)
	case ast.NodeExpr:
		t.widenIgnored(parent, t.builder.Span(node))
		t.createExprScopes(parent, node.Expr)
	}
}

// createExprScopes walks an expression for closures and capture
// lists; everything else is scope-free content.
func (t *Tree) createExprScopes(parent NodeID, exprID ast.ExprID) {
	e := t.builder.Exprs.Get(exprID)
	if e == nil {
		return
	}
	switch e.Kind {
	case ast.ExprCaptureList:
		t.addChild(parent, Node{Kind: KindCaptureList, Expr: exprID})
	case ast.ExprClosure:
		t.addChild(parent, Node{Kind: KindWholeClosure, Expr: exprID})
	default:
		for _, child := range e.Children {
			t.createExprScopes(parent, child)
		}
	}
}

func (t *Tree) expandCaptureList(id NodeID) {
	n := t.get(id)
	exprID := n.Expr
	e := t.builder.Exprs.Get(exprID)

	// Capture initializers evaluate in the enclosing scope, not the
	// closure's own scopes.
	for _, cap := range e.Captures {
		if !cap.Init.IsValid() {
			continue
		}
		if ie := t.builder.Exprs.Get(cap.Init); ie != nil {
			t.widenIgnored(id, ie.Span)
		}
		t.createExprScopes(id, cap.Init)
	}
	e = t.builder.Exprs.Get(exprID)
	if e.Closure.IsValid() {
		t.addChild(id, Node{Kind: KindWholeClosure, Expr: e.Closure})
	}
}

// expandWholeClosure splits the closure at its `in` keyword: the
// parameter scope covers the whole closure so the body nests inside
// it, the body scope starts at `in`.
func (t *Tree) expandWholeClosure(id NodeID) {
	n := t.get(id)
	exprID := n.Expr
	e := t.builder.Exprs.Get(exprID)

	bodyParent := id
	if len(e.Params) > 0 && e.InLoc.IsValid() {
		// Starts at the first parameter so a leading capture list
		// stays outside by containment.
		bodyParent = t.addChild(id, Node{
			Kind:   KindClosureParams,
			Expr:   exprID,
			Vis:    VisFunctionParameter,
			Region: source.Span{File: t.file, Start: e.Params[0].Span.Start, End: e.Span.End},
		})
	}

	e = t.builder.Exprs.Get(exprID)
	body := t.builder.Stmts.Get(e.Body)
	if body == nil {
		return
	}
	start := body.Span.Start
	if e.InLoc.IsValid() {
		start = e.InLoc.Offset
	}
	bodyID := t.addChild(bodyParent, Node{
		Kind:   KindClosureBody,
		Expr:   exprID,
		Region: source.Span{File: t.file, Start: start, End: e.Span.End},
	})
	bn := t.get(bodyID)
	bn.deferred = append([]ast.Node(nil), body.Nodes...)
	bn.regionEnd = body.Span.End
}

// lastChild returns the most recently attached child of a node.
func (t *Tree) lastChild(id NodeID) NodeID {
	n := t.get(id)
	if len(n.Children) == 0 {
		return NoNodeID
	}
	return n.Children[len(n.Children)-1]
}
