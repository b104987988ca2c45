package cli

import (
	"errors"

	"github.com/roach88/gqlgate/internal/catalog"
	"github.com/roach88/gqlgate/internal/compiler"
)

// Error code constants for command-level failures. Catalog (E0xx/E1xx) and
// template (E2xx) codes are passed through unchanged.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStore       = "E301" // Database open/read/write error
	ErrCodeNoQuery     = "E302" // No stored query for the requested triple
	ErrCodeBadVersion  = "E303" // Version argument does not parse
	ErrCodeWatch       = "E304" // File watcher error
)

// errorCode extracts an error code and message from an error.
func errorCode(err error) (string, string) {
	var terr *compiler.TemplateError
	if errors.As(err, &terr) {
		return terr.Code, terr.Error()
	}
	var lerr *catalog.LoadError
	if errors.As(err, &lerr) {
		return lerr.Code, lerr.Error()
	}
	return ErrCodeGeneric, err.Error()
}
