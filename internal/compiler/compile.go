package compiler

import (
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	gqlparser "github.com/vektah/gqlparser/v2/parser"

	"github.com/roach88/gqlgate/internal/ir"
	"github.com/roach88/gqlgate/internal/version"
)

// Result is a compiled query plus what was dropped to produce it.
type Result struct {
	Operation string
	Version   version.Version
	Query     string

	// Removed lists the paths of the topmost removed nodes, source order.
	Removed []string
	// Gates counts the gate comments found in the template.
	Gates int
}

// Compile resolves every version gate in src for v and returns the
// resulting query. It is a pure function; caching is the caller's concern.
func Compile(v version.Version, src, operation string) (*Result, error) {
	doc, err := Parse(operation, src)
	if err != nil {
		return nil, err
	}
	plan, err := Prune(operation, doc, v)
	if err != nil {
		return nil, err
	}

	query := Emit(doc, plan)
	if err := validateOutput(operation, query); err != nil {
		return nil, err
	}

	res := &Result{
		Operation: operation,
		Version:   v,
		Query:     query,
	}
	for _, n := range plan.Removed() {
		res.Removed = append(res.Removed, n.Path())
	}
	doc.Walk(func(n *ir.Node) bool {
		res.Gates += len(n.Gates)
		return true
	})
	return res, nil
}

// Strip removes the gate comments from src and nothing else.
func Strip(operation, src string) (string, error) {
	doc, err := Parse(operation, src)
	if err != nil {
		return "", err
	}
	return Emit(doc, &Plan{}), nil
}

// validateOutput re-parses the emitted text with an independent GraphQL
// parser.
func validateOutput(operation, query string) error {
	_, err := gqlparser.ParseQuery(&ast.Source{Name: operation, Input: query})
	if err == nil {
		return nil
	}

	te := &TemplateError{
		Operation: operation,
		Code:      ErrInvalidOutput,
		Message:   fmt.Sprintf("compiled query is not valid GraphQL: %v", err),
	}
	var gerr *gqlerror.Error
	if errors.As(err, &gerr) && len(gerr.Locations) > 0 {
		te.Pos = ir.Pos{Line: gerr.Locations[0].Line, Column: gerr.Locations[0].Column}
		te.Message = fmt.Sprintf("compiled query is not valid GraphQL: %s", gerr.Message)
	}
	return te
}
