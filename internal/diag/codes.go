package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Scope-tree construction.
	ScopeInfo          Code = 3000
	ScopeError         Code = 3001
	ScopeOrphanNode    Code = 3002
	ScopeDuplicateNode Code = 3003

	// Verification (development-time invariant checks).
	VerifyInfo            Code = 3100
	VerifyChildEscapes    Code = 3101
	VerifySiblingsOverlap Code = 3102
	VerifySiblingsOrder   Code = 3103
	VerifyInvalidRange    Code = 3104
	VerifyBadParentLink   Code = 3105
)

func (c Code) String() string {
	return fmt.Sprintf("P%04d", uint16(c))
}
