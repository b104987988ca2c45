package ir

import (
	"strings"

	"github.com/roach88/gqlgate/internal/version"
)

// Kind identifies what a template node is.
type Kind int

const (
	KindOperation Kind = iota
	KindFragment
	KindField
	KindFragmentSpread
	KindInlineFragment
	KindVariable
)

func (k Kind) String() string {
	switch k {
	case KindOperation:
		return "operation"
	case KindFragment:
		return "fragment"
	case KindField:
		return "field"
	case KindFragmentSpread:
		return "fragment spread"
	case KindInlineFragment:
		return "inline fragment"
	case KindVariable:
		return "variable definition"
	}
	return "unknown"
}

// Span is a half-open byte range [Start, End) into the template source.
type Span struct {
	Start int
	End   int
}

// Valid reports whether the span covers any text.
func (s Span) Valid() bool {
	return s.End > s.Start
}

// Pos is a 1-based line and column.
type Pos struct {
	Line   int
	Column int
}

// GateComment is a "# @version ..." comment and the gates it declares.
type GateComment struct {
	Span  Span
	Pos   Pos
	Text  string
	Gates []version.Gate
}

// Node is one gatable element of a template: a definition, a selection or
// a variable definition.
type Node struct {
	Kind Kind

	// Name is the field name, fragment name, spread target, variable name
	// (without '$'), operation name, or inline fragment type condition.
	Name  string
	Alias string

	// OperationType is "query", "mutation" or "subscription" for operations.
	OperationType string

	// Span covers the node text, excluding leading gate comments.
	Span Span
	Pos  Pos

	Gates []GateComment

	// SelectionSet is the braces span; invalid for leaf fields, spreads and
	// variables.
	SelectionSet Span
	Selections   []*Node

	// Variables and VariableList are set on operations only.
	Variables    []*Node
	VariableList Span

	// VarRefs lists variables referenced by this node's own arguments and
	// directives, not those of its selections.
	VarRefs []string

	Parent *Node
}

// Gated reports whether any gate comment is attached.
func (n *Node) Gated() bool {
	return len(n.Gates) > 0
}

// AllGates flattens the gates of every attached comment.
func (n *Node) AllGates() []version.Gate {
	var out []version.Gate
	for _, c := range n.Gates {
		out = append(out, c.Gates...)
	}
	return out
}

// RemovalStart is where the node's text begins, including its gate comments.
func (n *Node) RemovalStart() int {
	if len(n.Gates) > 0 && n.Gates[0].Span.Start < n.Span.Start {
		return n.Gates[0].Span.Start
	}
	return n.Span.Start
}

// ResponseName is the alias if present, otherwise the name.
func (n *Node) ResponseName() string {
	if n.Alias != "" {
		return n.Alias
	}
	return n.Name
}

// Path renders a dotted location for diagnostics, e.g.
// "GetPullRequest.project.mergeRequest.draft".
func (n *Node) Path() string {
	var parts []string
	for cur := n; cur != nil; cur = cur.Parent {
		parts = append(parts, cur.label())
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

func (n *Node) label() string {
	switch n.Kind {
	case KindOperation:
		if n.Name == "" {
			return "(anonymous " + n.OperationType + ")"
		}
		return n.Name
	case KindFragment:
		return "fragment " + n.Name
	case KindFragmentSpread:
		return "..." + n.Name
	case KindInlineFragment:
		if n.Name == "" {
			return "..."
		}
		return "...on " + n.Name
	case KindVariable:
		return "$" + n.Name
	}
	return n.ResponseName()
}

// Walk visits n and every node beneath it, depth first, in source order.
// Returning false from fn skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, v := range n.Variables {
		v.Walk(fn)
	}
	for _, s := range n.Selections {
		s.Walk(fn)
	}
}

// Document is a parsed template.
type Document struct {
	Source      string
	Definitions []*Node
}

// Operations returns the operation definitions in source order.
func (d *Document) Operations() []*Node {
	var ops []*Node
	for _, def := range d.Definitions {
		if def.Kind == KindOperation {
			ops = append(ops, def)
		}
	}
	return ops
}

// Fragments indexes fragment definitions by name.
func (d *Document) Fragments() map[string]*Node {
	frags := make(map[string]*Node)
	for _, def := range d.Definitions {
		if def.Kind == KindFragment {
			frags[def.Name] = def
		}
	}
	return frags
}

// Walk visits every node of every definition.
func (d *Document) Walk(fn func(*Node) bool) {
	for _, def := range d.Definitions {
		def.Walk(fn)
	}
}
