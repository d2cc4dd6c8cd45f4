package scope

import (
	"prism/internal/ast"
	"prism/internal/source"
)

// Visibility classifies how a found declaration is visible at the
// lookup location.
type Visibility uint8

const (
	VisInvalid Visibility = iota
	VisLocal
	VisFunctionParameter
	VisGenericParameter
	VisMemberOfCurrentNominal
	VisMemberOfOutsideNominal
	VisTopLevel
)

func (v Visibility) String() string {
	switch v {
	case VisLocal:
		return "local"
	case VisFunctionParameter:
		return "param"
	case VisGenericParameter:
		return "genericparam"
	case VisMemberOfCurrentNominal:
		return "member"
	case VisMemberOfOutsideNominal:
		return "outsidemember"
	case VisTopLevel:
		return "toplevel"
	default:
		return "invalid"
	}
}

// Consumer receives visible declarations during lookup. Returning true
// stops the walk.
type Consumer interface {
	// ConsumeName reports one visible name. decl may be NoDeclID for
	// bindings that have no declaration record of their own (closure
	// parameters, capture entries).
	ConsumeName(name source.StringID, decl ast.DeclID, vis Visibility) bool
}

// Found is one recorded lookup hit.
type Found struct {
	Name source.StringID
	Decl ast.DeclID
	Vis  Visibility
}

// FirstMatchConsumer stops at the first declaration whose name equals
// Name, recording every hit along the way.
type FirstMatchConsumer struct {
	Name source.StringID
	Hits []Found
}

func (c *FirstMatchConsumer) ConsumeName(name source.StringID, decl ast.DeclID, vis Visibility) bool {
	if name != c.Name {
		return false
	}
	c.Hits = append(c.Hits, Found{Name: name, Decl: decl, Vis: vis})
	return true
}

// Match returns the first hit, if any.
func (c *FirstMatchConsumer) Match() (Found, bool) {
	if len(c.Hits) == 0 {
		return Found{}, false
	}
	return c.Hits[0], true
}

// CollectConsumer records every matching name without stopping the
// walk; with NoStringID it records everything visible.
type CollectConsumer struct {
	Name source.StringID
	Hits []Found
}

func (c *CollectConsumer) ConsumeName(name source.StringID, decl ast.DeclID, vis Visibility) bool {
	if c.Name != source.NoStringID && name != c.Name {
		return false
	}
	c.Hits = append(c.Hits, Found{Name: name, Decl: decl, Vis: vis})
	return false
}
