package source

import (
	"fmt"
)

// Pos is a single byte location in a source file.
type Pos struct {
	File   FileID
	Offset uint32
}

// NoPos marks the absence of a location.
var NoPos = Pos{}

// IsValid reports whether the position refers to a real file.
func (p Pos) IsValid() bool { return p.File.IsValid() }

// Before reports whether p precedes other. Positions in different
// files are not ordered.
func (p Pos) Before(other Pos) bool {
	return p.File == other.File && p.Offset < other.Offset
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.File, p.Offset)
}

// Span is a half-open byte range [Start, End) in a source file.
// The zero Span is the explicit "no range" value: queries that cannot
// produce a range return it instead of a fabricated empty range.
type Span struct {
	File  FileID
	Start uint32 // inclusive
	End   uint32 // exclusive
}

// NoSpan marks the absence of a source range.
var NoSpan = Span{}

// IsValid reports whether the span refers to a real file.
func (s Span) IsValid() bool { return s.File.IsValid() }

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// StartPos returns the span's first position.
func (s Span) StartPos() Pos { return Pos{File: s.File, Offset: s.Start} }

// EndPos returns the position just past the span.
func (s Span) EndPos() Pos { return Pos{File: s.File, Offset: s.End} }

// Cover widens s to include other. An invalid operand is ignored;
// covering from an invalid receiver adopts the operand.
func (s Span) Cover(other Span) Span {
	if !other.IsValid() {
		return s
	}
	if !s.IsValid() {
		return other
	}
	if s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

// Contains reports whether the position lies inside the span.
// The end position counts as inside: lookup locations at the very end
// of a construct still belong to it.
func (s Span) Contains(p Pos) bool {
	return s.IsValid() && s.File == p.File && s.Start <= p.Offset && p.Offset <= s.End
}

// ContainsSpan reports whether other is a subset (proper or improper) of s.
func (s Span) ContainsSpan(other Span) bool {
	return s.IsValid() && other.IsValid() && s.File == other.File &&
		s.Start <= other.Start && other.End <= s.End
}

// Before reports whether s ends at or before other starts.
func (s Span) Before(other Span) bool {
	return s.File == other.File && s.End <= other.Start
}
