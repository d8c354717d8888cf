package ast

import (
	"fmt"

	"github.com/leapstack-labs/sqlfront/pkg/token"
)

// StructuralError reports structurally invalid input: a block left with
// unconsumed tokens, or a portable tree naming an unknown kind or missing a
// required slot. Path locates the offending tree element when the error
// comes from deserialization.
type StructuralError struct {
	Pos     token.Position
	Path    string
	Message string
}

func (e *StructuralError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("structural error at %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("structural error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}
