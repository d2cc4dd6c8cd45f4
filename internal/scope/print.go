package scope

import (
	"fmt"
	"io"
	"strings"

	"prism/internal/source"
)

// Printer dumps a scope tree to text format.
type Printer struct {
	w        io.Writer
	interner *source.Interner
	err      error
}

// NewPrinter creates a scope tree printer. The interner is optional;
// without one, names print as raw IDs.
func NewPrinter(w io.Writer, interner *source.Interner) *Printer {
	return &Printer{w: w, interner: interner}
}

// Dump writes the tree in its current lazy state: materialized nodes
// only, no expansion, no mutation.
func Dump(w io.Writer, t *Tree, interner *source.Interner) error {
	return NewPrinter(w, interner).PrintTree(t)
}

// PrintTree prints every materialized node, indented by depth.
func (p *Printer) PrintTree(t *Tree) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p.printNode(t, t.root, 0)
	return p.err
}

func (p *Printer) printNode(t *Tree, id NodeID, depth int) {
	n := t.get(id)
	if n == nil {
		return
	}

	label := n.Kind.String()
	if n.Kind.IsPortioned() {
		label = fmt.Sprintf("%s(%s)", label, n.Portion)
	}
	if p.interner != nil {
		if d := t.decl(n); d != nil {
			if name, ok := p.interner.Lookup(d.Name); ok {
				label = fmt.Sprintf("%s %q", label, name)
			}
		}
	}

	state := ""
	if !n.expanded {
		state = " unexpanded"
	}
	if len(n.deferred) > 0 {
		state += fmt.Sprintf(" deferred=%d", len(n.deferred))
	}

	p.printf("%s%s %s%s\n",
		strings.Repeat("  ", depth), label, p.rangeStr(t, id), state)

	for _, child := range n.Children {
		p.printNode(t, child, depth+1)
	}
}

func (p *Printer) rangeStr(t *Tree, id NodeID) string {
	sp := t.uncachedRange(id)
	if !sp.IsValid() {
		return "[-)"
	}
	return fmt.Sprintf("[%d,%d)", sp.Start, sp.End)
}

func (p *Printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
