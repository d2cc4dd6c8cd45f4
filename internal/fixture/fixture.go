// Package fixture loads TOML-described AST files. The format names
// every record with a string ID and wires them by reference, so tests
// and the CLI can describe nontrivial files with explicit offsets
// without a full parser.
package fixture

import (
	"fmt"
	"os"
	"strings"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"

	"prism/internal/ast"
	"prism/internal/source"
)

// FixtureSchemaVersion is bumped when the file format changes shape.
const FixtureSchemaVersion = 1

// File is one loaded fixture: the builder holding its AST, the file
// handle scope trees are built from, and the file set resolving
// offsets to line/column.
type File struct {
	Builder *ast.Builder
	AST     ast.FileID
	Source  source.FileID
	Set     *source.FileSet
	Path    string
}

type rawFixture struct {
	Schema   int          `toml:"schema"`
	Path     string       `toml:"path"`
	Size     uint32       `toml:"size"`
	Text     string       `toml:"text"`
	Top      []string     `toml:"top"`
	Patterns []rawPattern `toml:"pattern"`
	Exprs    []rawExpr    `toml:"expr"`
	Stmts    []rawStmt    `toml:"stmt"`
	Decls    []rawDecl    `toml:"decl"`
}

type rawSpan []uint32

type rawName struct {
	Name string  `toml:"name"`
	Span rawSpan `toml:"span"`
}

type rawPattern struct {
	ID    string    `toml:"id"`
	Span  rawSpan   `toml:"span"`
	Names []rawName `toml:"names"`
}

type rawParam struct {
	Name     string  `toml:"name"`
	Span     rawSpan `toml:"span"`
	NameSpan rawSpan `toml:"name_span"`
	Default  string  `toml:"default"`
}

type rawCapture struct {
	Name string  `toml:"name"`
	Span rawSpan `toml:"span"`
	Init string  `toml:"init"`
}

type rawExpr struct {
	ID       string       `toml:"id"`
	Kind     string       `toml:"kind"`
	Span     rawSpan      `toml:"span"`
	Children []string     `toml:"children"`
	Params   []rawParam   `toml:"params"`
	In       *uint32      `toml:"in"`
	Body     string       `toml:"body"`
	Captures []rawCapture `toml:"captures"`
	Closure  string       `toml:"closure"`
}

type rawClause struct {
	Span    rawSpan `toml:"span"`
	Bool    string  `toml:"bool"`
	Pattern string  `toml:"pattern"`
	Init    string  `toml:"init"`
}

type rawStmt struct {
	ID       string      `toml:"id"`
	Kind     string      `toml:"kind"`
	Span     rawSpan     `toml:"span"`
	Clauses  []rawClause `toml:"clauses"`
	Body     string      `toml:"body"`
	Else     string      `toml:"else"`
	Cases    []string    `toml:"cases"`
	Pattern  string      `toml:"pattern"`
	Patterns []string    `toml:"patterns"`
	Subject  string      `toml:"subject"`
	Where    string      `toml:"where"`
	Nodes    []string    `toml:"nodes"`
	Operand  string      `toml:"operand"`
}

type rawGeneric struct {
	Name        string  `toml:"name"`
	Span        rawSpan `toml:"span"`
	NameSpan    rawSpan `toml:"name_span"`
	Inheritance rawSpan `toml:"inheritance"`
}

type rawEntry struct {
	Pattern string `toml:"pattern"`
	Init    string `toml:"init"`
}

type rawDecl struct {
	ID          string       `toml:"id"`
	Kind        string       `toml:"kind"`
	Name        string       `toml:"name"`
	Span        rawSpan      `toml:"span"`
	NameSpan    rawSpan      `toml:"name_span"`
	Generics    []rawGeneric `toml:"generics"`
	Inheritance rawSpan      `toml:"inheritance"`
	Where       rawSpan      `toml:"where"`
	Braces      rawSpan      `toml:"braces"`
	Members     []string     `toml:"members"`
	Extended    string       `toml:"extended"`
	Aliased     rawSpan      `toml:"aliased"`
	Params      []rawParam   `toml:"params"`
	Result      rawSpan      `toml:"result"`
	Body        string       `toml:"body"`
	Accessors   []string     `toml:"accessors"`
	Entries     []rawEntry   `toml:"entries"`
	Wrapper     rawSpan      `toml:"wrapper"`
}

// Load reads and links a fixture file from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	if f.Path == "" {
		f.Path = path
	}
	return f, nil
}

// Parse decodes and links fixture data.
func Parse(data []byte) (*File, error) {
	var raw rawFixture
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	if raw.Schema != FixtureSchemaVersion {
		return nil, fmt.Errorf("schema %d, want %d", raw.Schema, FixtureSchemaVersion)
	}
	if raw.Text != "" {
		n, err := safecast.Conv[uint32](len(raw.Text))
		if err != nil {
			return nil, fmt.Errorf("text too large: %w", err)
		}
		if raw.Size == 0 {
			raw.Size = n
		} else if raw.Size != n {
			return nil, fmt.Errorf("size %d does not match text length %d", raw.Size, n)
		}
	}
	if raw.Size == 0 {
		return nil, fmt.Errorf("missing size")
	}
	path := raw.Path
	if path == "" {
		path = "fixture"
	}
	content := []byte(raw.Text)
	if len(content) == 0 {
		// Offsets-only fixture: a blank backing buffer keeps line/column
		// resolution defined without forcing authors to inline the text.
		content = make([]byte, raw.Size)
	}
	set := source.NewFileSet()
	fid, err := set.Add(path, content)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", path, err)
	}
	ld := &linker{
		raw:      &raw,
		b:        ast.NewBuilder(ast.Hints{}, nil),
		fid:      fid,
		set:      set,
		patterns: map[string]ast.PatternID{},
		exprs:    map[string]ast.ExprID{},
		stmts:    map[string]ast.StmtID{},
		decls:    map[string]ast.DeclID{},
	}
	return ld.link()
}

type linker struct {
	raw *rawFixture
	b   *ast.Builder
	fid source.FileID
	set *source.FileSet

	patterns map[string]ast.PatternID
	exprs    map[string]ast.ExprID
	stmts    map[string]ast.StmtID
	decls    map[string]ast.DeclID
}

// link allocates every record first so references can point forward,
// then fills the payloads in a second pass and attaches members last,
// once every declaration knows its kind.
func (ld *linker) link() (*File, error) {
	for i := range ld.raw.Patterns {
		id := ld.raw.Patterns[i].ID
		if err := ld.checkID(id, "pattern"); err != nil {
			return nil, err
		}
		ld.patterns[id] = ld.b.Patterns.New(ast.Pattern{})
	}
	for i := range ld.raw.Exprs {
		id := ld.raw.Exprs[i].ID
		if err := ld.checkID(id, "expr"); err != nil {
			return nil, err
		}
		ld.exprs[id] = ld.b.Exprs.New(ast.Expr{})
	}
	for i := range ld.raw.Stmts {
		id := ld.raw.Stmts[i].ID
		if err := ld.checkID(id, "stmt"); err != nil {
			return nil, err
		}
		ld.stmts[id] = ld.b.Stmts.New(ast.Stmt{})
	}
	for i := range ld.raw.Decls {
		id := ld.raw.Decls[i].ID
		if err := ld.checkID(id, "decl"); err != nil {
			return nil, err
		}
		ld.decls[id] = ld.b.Decls.New(ast.Decl{})
	}

	for i := range ld.raw.Patterns {
		if err := ld.fillPattern(&ld.raw.Patterns[i]); err != nil {
			return nil, err
		}
	}
	for i := range ld.raw.Exprs {
		if err := ld.fillExpr(&ld.raw.Exprs[i]); err != nil {
			return nil, err
		}
	}
	for i := range ld.raw.Stmts {
		if err := ld.fillStmt(&ld.raw.Stmts[i]); err != nil {
			return nil, err
		}
	}
	for i := range ld.raw.Decls {
		if err := ld.fillDecl(&ld.raw.Decls[i]); err != nil {
			return nil, err
		}
	}
	for i := range ld.raw.Decls {
		raw := &ld.raw.Decls[i]
		for _, ref := range raw.Members {
			m, err := ld.declRef(ref)
			if err != nil {
				return nil, fmt.Errorf("decl %q: %w", raw.ID, err)
			}
			ld.b.AddMember(ld.decls[raw.ID], m)
		}
	}

	astFile := ld.b.NewFile(source.Span{File: ld.fid, Start: 0, End: ld.raw.Size})
	for _, ref := range ld.raw.Top {
		id, err := ld.declRef(ref)
		if err != nil {
			return nil, fmt.Errorf("top: %w", err)
		}
		ld.b.PushDecl(astFile, id)
	}
	return &File{Builder: ld.b, AST: astFile, Source: ld.fid, Set: ld.set, Path: ld.raw.Path}, nil
}

func (ld *linker) checkID(id, kind string) error {
	if id == "" {
		return fmt.Errorf("%s without id", kind)
	}
	if ld.known(id) {
		return fmt.Errorf("duplicate id %q", id)
	}
	return nil
}

func (ld *linker) known(id string) bool {
	_, p := ld.patterns[id]
	_, e := ld.exprs[id]
	_, s := ld.stmts[id]
	_, d := ld.decls[id]
	return p || e || s || d
}

func (ld *linker) span(sp rawSpan) (source.Span, error) {
	switch len(sp) {
	case 0:
		return source.NoSpan, nil
	case 2:
		if sp[1] < sp[0] || sp[1] > ld.raw.Size {
			return source.NoSpan, fmt.Errorf("span [%d,%d) out of bounds", sp[0], sp[1])
		}
		return source.Span{File: ld.fid, Start: sp[0], End: sp[1]}, nil
	default:
		return source.NoSpan, fmt.Errorf("span needs two offsets, got %d", len(sp))
	}
}

func (ld *linker) patternRef(ref string) (ast.PatternID, error) {
	if ref == "" {
		return ast.NoPatternID, nil
	}
	id, ok := ld.patterns[ref]
	if !ok {
		return ast.NoPatternID, fmt.Errorf("unknown pattern %q", ref)
	}
	return id, nil
}

func (ld *linker) exprRef(ref string) (ast.ExprID, error) {
	if ref == "" {
		return ast.NoExprID, nil
	}
	id, ok := ld.exprs[ref]
	if !ok {
		return ast.NoExprID, fmt.Errorf("unknown expr %q", ref)
	}
	return id, nil
}

func (ld *linker) stmtRef(ref string) (ast.StmtID, error) {
	if ref == "" {
		return ast.NoStmtID, nil
	}
	id, ok := ld.stmts[ref]
	if !ok {
		return ast.NoStmtID, fmt.Errorf("unknown stmt %q", ref)
	}
	return id, nil
}

func (ld *linker) declRef(ref string) (ast.DeclID, error) {
	if ref == "" {
		return ast.NoDeclID, nil
	}
	id, ok := ld.decls[ref]
	if !ok {
		return ast.NoDeclID, fmt.Errorf("unknown decl %q", ref)
	}
	return id, nil
}

// nodeRef resolves a "decl:x" / "stmt:x" / "expr:x" mixed reference.
func (ld *linker) nodeRef(ref string) (ast.Node, error) {
	kind, id, ok := strings.Cut(ref, ":")
	if !ok {
		return ast.Node{}, fmt.Errorf("node ref %q needs a kind prefix", ref)
	}
	switch kind {
	case "decl":
		d, err := ld.declRef(id)
		if err != nil {
			return ast.Node{}, err
		}
		return ast.DeclNode(d), nil
	case "stmt":
		s, err := ld.stmtRef(id)
		if err != nil {
			return ast.Node{}, err
		}
		return ast.StmtNode(s), nil
	case "expr":
		e, err := ld.exprRef(id)
		if err != nil {
			return ast.Node{}, err
		}
		return ast.ExprNode(e), nil
	default:
		return ast.Node{}, fmt.Errorf("node ref %q has unknown kind %q", ref, kind)
	}
}

func (ld *linker) fillPattern(raw *rawPattern) error {
	p := ld.b.Patterns.Get(ld.patterns[raw.ID])
	sp, err := ld.span(raw.Span)
	if err != nil {
		return fmt.Errorf("pattern %q: %w", raw.ID, err)
	}
	p.Span = sp
	for _, n := range raw.Names {
		nsp, err := ld.span(n.Span)
		if err != nil {
			return fmt.Errorf("pattern %q name %q: %w", raw.ID, n.Name, err)
		}
		p.Names = append(p.Names, ast.BoundName{Name: ld.b.Ident(n.Name), Span: nsp})
	}
	return nil
}

func (ld *linker) params(raws []rawParam) ([]ast.Param, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	out := make([]ast.Param, 0, len(raws))
	for _, rp := range raws {
		sp, err := ld.span(rp.Span)
		if err != nil {
			return nil, err
		}
		nsp, err := ld.span(rp.NameSpan)
		if err != nil {
			return nil, err
		}
		def, err := ld.exprRef(rp.Default)
		if err != nil {
			return nil, err
		}
		out = append(out, ast.Param{Name: ld.b.Ident(rp.Name), Span: sp, NameSpan: nsp, Default: def})
	}
	return out, nil
}

func (ld *linker) fillExpr(raw *rawExpr) error {
	e := ld.b.Exprs.Get(ld.exprs[raw.ID])
	wrap := func(err error) error { return fmt.Errorf("expr %q: %w", raw.ID, err) }

	sp, err := ld.span(raw.Span)
	if err != nil {
		return wrap(err)
	}
	e.Span = sp
	switch raw.Kind {
	case "", "leaf":
		e.Kind = ast.ExprLeaf
	case "closure":
		e.Kind = ast.ExprClosure
	case "capture":
		e.Kind = ast.ExprCaptureList
	default:
		return fmt.Errorf("expr %q: unknown kind %q", raw.ID, raw.Kind)
	}

	for _, ref := range raw.Children {
		child, err := ld.exprRef(ref)
		if err != nil {
			return wrap(err)
		}
		e.Children = append(e.Children, child)
	}
	if e.Params, err = ld.params(raw.Params); err != nil {
		return wrap(err)
	}
	if raw.In != nil {
		e.InLoc = source.Pos{File: ld.fid, Offset: *raw.In}
	}
	if e.Body, err = ld.stmtRef(raw.Body); err != nil {
		return wrap(err)
	}
	for _, rc := range raw.Captures {
		nsp, err := ld.span(rc.Span)
		if err != nil {
			return wrap(err)
		}
		init, err := ld.exprRef(rc.Init)
		if err != nil {
			return wrap(err)
		}
		e.Captures = append(e.Captures, ast.CaptureEntry{Name: ld.b.Ident(rc.Name), NameSpan: nsp, Init: init})
	}
	if e.Closure, err = ld.exprRef(raw.Closure); err != nil {
		return wrap(err)
	}
	return nil
}

var stmtKinds = map[string]ast.StmtKind{
	"brace":       ast.StmtBrace,
	"if":          ast.StmtIf,
	"while":       ast.StmtWhile,
	"repeatwhile": ast.StmtRepeatWhile,
	"guard":       ast.StmtGuard,
	"foreach":     ast.StmtForEach,
	"switch":      ast.StmtSwitch,
	"case":        ast.StmtCase,
	"docatch":     ast.StmtDoCatch,
	"catch":       ast.StmtCatch,
	"return":      ast.StmtReturn,
	"expr":        ast.StmtExpr,
}

func (ld *linker) fillStmt(raw *rawStmt) error {
	s := ld.b.Stmts.Get(ld.stmts[raw.ID])
	wrap := func(err error) error { return fmt.Errorf("stmt %q: %w", raw.ID, err) }

	kind, ok := stmtKinds[raw.Kind]
	if !ok {
		return fmt.Errorf("stmt %q: unknown kind %q", raw.ID, raw.Kind)
	}
	s.Kind = kind

	sp, err := ld.span(raw.Span)
	if err != nil {
		return wrap(err)
	}
	s.Span = sp

	for _, rc := range raw.Clauses {
		csp, err := ld.span(rc.Span)
		if err != nil {
			return wrap(err)
		}
		boolE, err := ld.exprRef(rc.Bool)
		if err != nil {
			return wrap(err)
		}
		pat, err := ld.patternRef(rc.Pattern)
		if err != nil {
			return wrap(err)
		}
		init, err := ld.exprRef(rc.Init)
		if err != nil {
			return wrap(err)
		}
		s.Clauses = append(s.Clauses, ast.CondClause{Span: csp, Bool: boolE, Pattern: pat, Init: init})
	}
	if s.Body, err = ld.stmtRef(raw.Body); err != nil {
		return wrap(err)
	}
	if raw.Else != "" {
		if s.Else, err = ld.nodeRef(raw.Else); err != nil {
			return wrap(err)
		}
	}
	for _, ref := range raw.Cases {
		c, err := ld.stmtRef(ref)
		if err != nil {
			return wrap(err)
		}
		s.Cases = append(s.Cases, c)
	}
	if s.Pattern, err = ld.patternRef(raw.Pattern); err != nil {
		return wrap(err)
	}
	for _, ref := range raw.Patterns {
		p, err := ld.patternRef(ref)
		if err != nil {
			return wrap(err)
		}
		s.Patterns = append(s.Patterns, p)
	}
	if s.Subject, err = ld.exprRef(raw.Subject); err != nil {
		return wrap(err)
	}
	if s.WhereExp, err = ld.exprRef(raw.Where); err != nil {
		return wrap(err)
	}
	for _, ref := range raw.Nodes {
		n, err := ld.nodeRef(ref)
		if err != nil {
			return wrap(err)
		}
		s.Nodes = append(s.Nodes, n)
	}
	if s.Operand, err = ld.exprRef(raw.Operand); err != nil {
		return wrap(err)
	}
	return nil
}

var declKinds = map[string]ast.DeclKind{
	"struct":    ast.DeclNominalType,
	"class":     ast.DeclNominalType,
	"enum":      ast.DeclNominalType,
	"protocol":  ast.DeclNominalType,
	"extension": ast.DeclExtension,
	"typealias": ast.DeclTypeAlias,
	"func":      ast.DeclFunction,
	"subscript": ast.DeclSubscript,
	"var":       ast.DeclVar,
	"binding":   ast.DeclPatternBinding,
	"toplevel":  ast.DeclTopLevelCode,
}

var nominalFlavors = map[string]ast.NominalFlavor{
	"struct":   ast.FlavorStruct,
	"class":    ast.FlavorClass,
	"enum":     ast.FlavorEnum,
	"protocol": ast.FlavorProtocol,
}

func (ld *linker) fillDecl(raw *rawDecl) error {
	declID := ld.decls[raw.ID]
	d := ld.b.Decls.Get(declID)
	wrap := func(err error) error { return fmt.Errorf("decl %q: %w", raw.ID, err) }

	kind, ok := declKinds[raw.Kind]
	if !ok {
		return fmt.Errorf("decl %q: unknown kind %q", raw.ID, raw.Kind)
	}
	d.Kind = kind
	if flavor, ok := nominalFlavors[raw.Kind]; ok {
		d.Flavor = flavor
	}
	if raw.Name != "" {
		d.Name = ld.b.Ident(raw.Name)
	}

	spans := []struct {
		dst *source.Span
		src rawSpan
	}{
		{&d.Span, raw.Span},
		{&d.NameSpan, raw.NameSpan},
		{&d.Inheritance, raw.Inheritance},
		{&d.Where, raw.Where},
		{&d.Braces, raw.Braces},
		{&d.Aliased, raw.Aliased},
		{&d.Result, raw.Result},
		{&d.WrapperAttr, raw.Wrapper},
	}
	for _, f := range spans {
		sp, err := ld.span(f.src)
		if err != nil {
			return wrap(err)
		}
		*f.dst = sp
	}

	for _, rg := range raw.Generics {
		gsp, err := ld.span(rg.Span)
		if err != nil {
			return wrap(err)
		}
		nsp, err := ld.span(rg.NameSpan)
		if err != nil {
			return wrap(err)
		}
		isp, err := ld.span(rg.Inheritance)
		if err != nil {
			return wrap(err)
		}
		d.Generics = append(d.Generics, ast.GenericParam{
			Name: ld.b.Ident(rg.Name), Span: gsp, NameSpan: nsp, Inheritance: isp,
		})
	}

	var err error
	if d.Params, err = ld.params(raw.Params); err != nil {
		return wrap(err)
	}
	if d.Body, err = ld.stmtRef(raw.Body); err != nil {
		return wrap(err)
	}
	if d.Extended, err = ld.declRef(raw.Extended); err != nil {
		return wrap(err)
	}
	for _, ref := range raw.Accessors {
		a, err := ld.declRef(ref)
		if err != nil {
			return wrap(err)
		}
		d.Accessors = append(d.Accessors, a)
	}
	for _, re := range raw.Entries {
		pat, err := ld.patternRef(re.Pattern)
		if err != nil {
			return wrap(err)
		}
		init, err := ld.exprRef(re.Init)
		if err != nil {
			return wrap(err)
		}
		d.Entries = append(d.Entries, ast.PatternEntry{Pattern: pat, Init: init})
	}

	return nil
}
