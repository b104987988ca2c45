package compiler

import (
	"fmt"

	"github.com/roach88/gqlgate/internal/ir"
	"github.com/roach88/gqlgate/internal/version"
)

// Plan records which nodes of a document are dropped for one version.
type Plan struct {
	Version version.Version

	dead     map[*ir.Node]bool
	removed  []*ir.Node // topmost dead nodes, source order
	varLists []*ir.Node // operations whose whole variable list goes
}

// Removed returns the topmost removed nodes in source order.
func (pl *Plan) Removed() []*ir.Node {
	return pl.removed
}

// IsRemoved reports whether n itself was removed. Descendants of a removed
// node are not reported individually.
func (pl *Plan) IsRemoved(n *ir.Node) bool {
	return pl.dead[n]
}

// Prune evaluates every gate in doc against v and works out what has to go
// so that the remaining document stays well formed:
//
//   - nodes whose gates do not all hold;
//   - fields, inline fragments and fragment definitions left with an empty
//     selection set, cascading upward;
//   - spreads of removed fragments;
//   - fragment definitions that lost every reference;
//   - variable definitions that lost every use.
//
// An operation left without selections is a TemplateError, and so is a
// gated-out variable definition whose variable is still used.
func Prune(operation string, doc *ir.Document, v version.Version) (*Plan, error) {
	dead := make(map[*ir.Node]bool)
	doc.Walk(func(n *ir.Node) bool {
		if n.Gated() && !version.AllowAll(n.AllGates(), v) {
			dead[n] = true
		}
		return true
	})

	frags := doc.Fragments()
	for changed := true; changed; {
		changed = false
		doc.Walk(func(n *ir.Node) bool {
			if dead[n] {
				return false
			}
			switch n.Kind {
			case ir.KindFragmentSpread:
				if def, ok := frags[n.Name]; ok && dead[def] {
					dead[n] = true
					changed = true
				}
			case ir.KindField, ir.KindInlineFragment, ir.KindFragment:
				if len(n.Selections) > 0 && allDead(n.Selections, dead) {
					dead[n] = true
					changed = true
				}
			}
			return true
		})
	}

	var live []*ir.Node
	for _, op := range doc.Operations() {
		if dead[op] {
			continue
		}
		if allDead(op.Selections, dead) {
			return nil, &TemplateError{
				Operation: operation,
				Code:      ErrEmptyOperation,
				Message:   fmt.Sprintf("operation %s has no selections left for version %s", op.Path(), v),
				Pos:       op.Pos,
			}
		}
		live = append(live, op)
	}
	if len(live) == 0 {
		return nil, &TemplateError{
			Operation: operation,
			Code:      ErrNoOperations,
			Message:   fmt.Sprintf("no operation left for version %s", v),
		}
	}

	// Fragments that were spread somewhere in the template but are no
	// longer reachable from a surviving operation.
	spreadBefore := make(map[string]bool)
	doc.Walk(func(n *ir.Node) bool {
		if n.Kind == ir.KindFragmentSpread {
			spreadBefore[n.Name] = true
		}
		return true
	})
	reachable := make(map[string]bool)
	for _, op := range live {
		u := collectUsage(op, frags, dead)
		for name := range u.fragments {
			reachable[name] = true
		}
	}
	for name, def := range frags {
		if !dead[def] && spreadBefore[name] && !reachable[name] {
			dead[def] = true
		}
	}

	plan := &Plan{Version: v, dead: dead}

	for _, op := range live {
		if len(op.Variables) == 0 {
			continue
		}
		before := collectUsage(op, frags, nil).variables
		after := collectUsage(op, frags, dead).variables
		kept := 0
		for _, vd := range op.Variables {
			if dead[vd] && after[vd.Name] {
				return nil, &TemplateError{
					Operation: operation,
					Code:      ErrUndefinedVar,
					Message:   fmt.Sprintf("variable $%s is gated out for version %s but still used in %s", vd.Name, v, op.Path()),
					Pos:       vd.Pos,
				}
			}
			if !dead[vd] && before[vd.Name] && !after[vd.Name] {
				dead[vd] = true
			}
			if !dead[vd] {
				kept++
			}
		}
		if kept == 0 {
			plan.varLists = append(plan.varLists, op)
		}
	}

	doc.Walk(func(n *ir.Node) bool {
		if dead[n] {
			plan.removed = append(plan.removed, n)
			return false
		}
		return true
	})
	return plan, nil
}

func allDead(nodes []*ir.Node, dead map[*ir.Node]bool) bool {
	for _, n := range nodes {
		if !dead[n] {
			return false
		}
	}
	return true
}

type usage struct {
	variables map[string]bool
	fragments map[string]bool
}

// collectUsage gathers the variables and fragments reachable from root,
// following spreads into their definitions and skipping dead nodes.
func collectUsage(root *ir.Node, frags map[string]*ir.Node, dead map[*ir.Node]bool) usage {
	u := usage{variables: make(map[string]bool), fragments: make(map[string]bool)}

	var visit func(n *ir.Node)
	visit = func(n *ir.Node) {
		if dead[n] {
			return
		}
		for _, ref := range n.VarRefs {
			u.variables[ref] = true
		}
		if n.Kind == ir.KindFragmentSpread && !u.fragments[n.Name] {
			u.fragments[n.Name] = true
			if def, ok := frags[n.Name]; ok {
				visit(def)
			}
		}
		for _, s := range n.Selections {
			visit(s)
		}
	}
	visit(root)
	return u
}
