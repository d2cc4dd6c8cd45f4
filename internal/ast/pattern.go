package ast

import (
	"prism/internal/source"
)

// BoundName is one identifier introduced by a pattern.
type BoundName struct {
	Name source.StringID
	Span source.Span
}

// Pattern is a binding pattern reduced to what name lookup needs: its
// source range and the ordered names it introduces.
type Pattern struct {
	Span  source.Span
	Names []BoundName
}

type Patterns struct {
	Arena *Arena[Pattern]
}

func NewPatterns(capHint uint) *Patterns {
	return &Patterns{
		Arena: NewArena[Pattern](capHint),
	}
}

func (p *Patterns) New(pat Pattern) PatternID {
	return PatternID(p.Arena.Allocate(pat))
}

func (p *Patterns) Get(id PatternID) *Pattern {
	return p.Arena.Get(uint32(id))
}
