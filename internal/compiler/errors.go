package compiler

import (
	"fmt"

	"github.com/roach88/gqlgate/internal/ir"
)

// Template error codes (E200-E299)
const (
	ErrSyntax         = "E201" // token or grammar error
	ErrUnbalanced     = "E202" // unclosed brace, parenthesis or bracket
	ErrDanglingGate   = "E203" // gate comment not followed by a gatable node
	ErrMalformedGate  = "E204" // "@version" comment that does not parse
	ErrEmptyOperation = "E205" // every selection of an operation was pruned
	ErrNoOperations   = "E206" // no operation left in the document
	ErrInvalidOutput  = "E207" // emitted text failed to re-parse
	ErrUndefinedVar   = "E208" // gated-out variable still used by a surviving node
)

// TemplateError reports a malformed template. It is not retryable: the
// template itself has to be fixed.
type TemplateError struct {
	Operation string
	Code      string
	Message   string
	Pos       ir.Pos
}

func (e *TemplateError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Operation, e.Pos.Line, e.Pos.Column, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Operation, e.Code, e.Message)
}
