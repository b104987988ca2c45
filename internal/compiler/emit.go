package compiler

import (
	"sort"
	"strings"

	"github.com/roach88/gqlgate/internal/ir"
)

// cut is a byte range to drop from the template source.
type cut struct {
	start int
	end   int
	node  bool // drops a node, not just a gate comment
}

// Emit renders the document with the plan applied. The output is the
// template source with removed nodes and all gate comments spliced out;
// everything else, including ordinary comments and layout, is preserved.
func Emit(doc *ir.Document, plan *Plan) string {
	src := doc.Source

	var cuts []cut
	doc.Walk(func(n *ir.Node) bool {
		if plan.IsRemoved(n) {
			cuts = append(cuts, nodeCut(src, n))
			return false
		}
		for _, g := range n.Gates {
			cuts = append(cuts, cut{start: g.Span.Start, end: g.Span.End})
		}
		return true
	})
	for _, op := range plan.varLists {
		cuts = append(cuts, cut{start: op.VariableList.Start, end: op.VariableList.End, node: true})
	}
	if len(cuts) == 0 {
		return src
	}

	cuts = mergeCuts(src, cuts)

	var b strings.Builder
	b.Grow(len(src))
	last := 0
	for _, c := range cuts {
		start, end := expandCut(src, c)
		if start < last {
			start = last
		}
		if end <= start {
			continue
		}
		b.WriteString(src[last:start])
		last = end
	}
	b.WriteString(src[last:])
	return b.String()
}

// nodeCut covers the node, its gate comments, a trailing comma and a
// trailing comment on the node's last line. A trailing gate comment belongs
// to the next node and is left alone.
func nodeCut(src string, n *ir.Node) cut {
	c := cut{start: n.RemovalStart(), end: n.Span.End, node: true}
	j := c.end
	for j < len(src) && isHSpace(src[j]) {
		j++
	}
	if j < len(src) && src[j] == ',' {
		c.end = j + 1
		j = c.end
		for j < len(src) && isHSpace(src[j]) {
			j++
		}
	}
	if j < len(src) && src[j] == '#' {
		eol := len(src)
		if i := strings.IndexAny(src[j:], "\r\n"); i >= 0 {
			eol = j + i
		}
		text := strings.TrimLeft(src[j+1:eol], " \t")
		if !strings.HasPrefix(text, gateMarker) {
			c.end = eol
		}
	}
	return c
}

// mergeCuts sorts cuts and joins those that overlap or are separated only
// by whitespace. A node cut that ends right before a closing brace or
// parenthesis also takes the comma in front of it.
func mergeCuts(src string, cuts []cut) []cut {
	sort.Slice(cuts, func(i, j int) bool { return cuts[i].start < cuts[j].start })

	merged := []cut{cuts[0]}
	for _, c := range cuts[1:] {
		last := &merged[len(merged)-1]
		if c.start <= last.end || isBlank(src[last.end:c.start], true) {
			if c.end > last.end {
				last.end = c.end
			}
			last.node = last.node || c.node
			continue
		}
		merged = append(merged, c)
	}

	for i := range merged {
		c := &merged[i]
		if !c.node {
			continue
		}
		k := c.end
		for k < len(src) && isSpace(src[k]) {
			k++
		}
		if k < len(src) && src[k] != '}' && src[k] != ')' {
			continue
		}
		j := c.start
		for j > 0 && isSpace(src[j-1]) {
			j--
		}
		if j > 0 && src[j-1] == ',' && (i == 0 || merged[i-1].end <= j-1) {
			c.start = j - 1
		}
	}
	return merged
}

// expandCut widens a cut to whole lines when nothing else is left on them,
// and otherwise tidies the whitespace around it.
func expandCut(src string, c cut) (int, int) {
	ls := strings.LastIndexByte(src[:c.start], '\n') + 1
	le := len(src)
	if i := strings.IndexByte(src[c.end:], '\n'); i >= 0 {
		le = c.end + i
	}
	before := isBlank(src[ls:c.start], false)
	after := isBlank(src[c.end:le], false)

	switch {
	case before && after:
		if le < len(src) {
			return ls, le + 1
		}
		if ls > 0 {
			return ls - 1, le
		}
		return ls, le
	case after:
		s := c.start
		for s > ls && isHSpace(src[s-1]) {
			s--
		}
		return s, le
	default:
		// keep a single blank between what is left on either side
		s, e := c.start, c.end
		if s > ls && isHSpace(src[s-1]) {
			for s-1 > ls && isHSpace(src[s-2]) {
				s--
			}
			for e < le && isHSpace(src[e]) {
				e++
			}
		}
		return s, e
	}
}

func isHSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r'
}

func isSpace(c byte) bool {
	return isHSpace(c) || c == '\n'
}

func isBlank(s string, multiline bool) bool {
	for i := 0; i < len(s); i++ {
		if isHSpace(s[i]) || (multiline && s[i] == '\n') {
			continue
		}
		return false
	}
	return true
}
