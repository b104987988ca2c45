package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/gqlgate/internal/ir"
	"github.com/roach88/gqlgate/internal/version"
)

// gateMarker introduces a version gate inside a comment.
const gateMarker = "@version"

type parser struct {
	src       string
	operation string
	lines     lineIndex

	toks []token
	idx  int   // index of the current significant token
	cur  token // toks[idx]

	prevEnd int // end offset of the last consumed token

	// gates collected since the last consumed token, waiting for a node
	gates []ir.GateComment
}

// Parse parses a template into a Document. The operation name is used for
// error reporting only.
func Parse(operation, src string) (*ir.Document, error) {
	p := &parser{src: src, operation: operation, lines: newLineIndex(src)}

	toks, err := lex(src)
	if err != nil {
		var lerr *lexError
		if errors.As(err, &lerr) {
			return nil, p.errorAt(lerr.offset, lerr.code, lerr.message)
		}
		return nil, err
	}
	p.toks = toks
	p.idx = -1
	if err := p.skipComments(); err != nil {
		return nil, err
	}

	return p.parseDocument()
}

func (p *parser) errorAt(offset int, code, message string) *TemplateError {
	return &TemplateError{
		Operation: p.operation,
		Code:      code,
		Message:   message,
		Pos:       p.lines.pos(offset),
	}
}

func (p *parser) unexpected(want string) *TemplateError {
	if p.cur.kind == tokEOF {
		return p.errorAt(p.cur.start, ErrUnbalanced, fmt.Sprintf("expected %s, found end of template", want))
	}
	return p.errorAt(p.cur.start, ErrSyntax, fmt.Sprintf("expected %s, found %s", want, p.cur.describe()))
}

// skipComments moves to the next significant token, collecting gate
// comments on the way.
func (p *parser) skipComments() error {
	for {
		p.idx++
		tok := p.toks[p.idx]
		if tok.kind != tokComment {
			p.cur = tok
			return nil
		}
		gate, ok, err := p.parseGateComment(tok)
		if err != nil {
			return err
		}
		if ok {
			p.gates = append(p.gates, gate)
		}
	}
}

func (p *parser) parseGateComment(tok token) (ir.GateComment, bool, error) {
	text := strings.TrimLeft(tok.value, " \t")
	if !strings.HasPrefix(text, gateMarker) {
		return ir.GateComment{}, false, nil
	}
	body := text[len(gateMarker):]
	if body != "" && strings.IndexByte(" \t<>=!", body[0]) < 0 {
		// "@versioning" and friends are ordinary comments
		return ir.GateComment{}, false, nil
	}
	gates, err := version.ParseGates(body)
	if err != nil {
		return ir.GateComment{}, false, p.errorAt(tok.start, ErrMalformedGate, fmt.Sprintf("malformed version gate %q: %v", strings.TrimSpace(text), err))
	}
	return ir.GateComment{
		Span:  ir.Span{Start: tok.start, End: tok.end},
		Pos:   p.lines.pos(tok.start),
		Text:  "#" + tok.value,
		Gates: gates,
	}, true, nil
}

// advance consumes the current token. Gates still pending at this point
// precede something that cannot carry them.
func (p *parser) advance() error {
	if len(p.gates) > 0 {
		g := p.gates[0]
		return p.errorAt(g.Span.Start, ErrDanglingGate, fmt.Sprintf("version gate %q is not attached to a field, fragment or variable definition (found %s)", g.Text, p.cur.describe()))
	}
	if p.cur.kind == tokEOF {
		return p.unexpected("more input")
	}
	p.prevEnd = p.cur.end
	return p.skipComments()
}

// takeGates hands the pending gates to the node that starts at the
// current token.
func (p *parser) takeGates() []ir.GateComment {
	g := p.gates
	p.gates = nil
	return g
}

func (p *parser) peek(value string) bool {
	return p.cur.kind == tokPunct && p.cur.value == value
}

func (p *parser) peekName(value string) bool {
	return p.cur.kind == tokName && p.cur.value == value
}

func (p *parser) expect(value string) (token, error) {
	if !p.peek(value) {
		return token{}, p.unexpected(fmt.Sprintf("%q", value))
	}
	tok := p.cur
	return tok, p.advance()
}

func (p *parser) expectName() (string, error) {
	if p.cur.kind != tokName {
		return "", p.unexpected("name")
	}
	name := p.cur.value
	return name, p.advance()
}

func (p *parser) parseDocument() (*ir.Document, error) {
	doc := &ir.Document{Source: p.src}
	seen := make(map[string]bool)

	for p.cur.kind != tokEOF {
		if p.peek("}") {
			return nil, p.errorAt(p.cur.start, ErrUnbalanced, "unexpected '}' outside of a selection set")
		}
		gates := p.takeGates()
		def, err := p.parseDefinition(gates)
		if err != nil {
			return nil, err
		}
		if def.Kind == ir.KindFragment {
			if seen[def.Name] {
				return nil, p.errorAt(def.Span.Start, ErrSyntax, fmt.Sprintf("duplicate fragment %q", def.Name))
			}
			seen[def.Name] = true
		}
		doc.Definitions = append(doc.Definitions, def)
	}

	if len(p.gates) > 0 {
		g := p.gates[0]
		return nil, p.errorAt(g.Span.Start, ErrDanglingGate, fmt.Sprintf("version gate %q is not attached to a field, fragment or variable definition (found end of template)", g.Text))
	}
	if len(doc.Definitions) == 0 {
		return nil, &TemplateError{Operation: p.operation, Code: ErrNoOperations, Message: "template has no definitions"}
	}
	return doc, nil
}

func (p *parser) parseDefinition(gates []ir.GateComment) (*ir.Node, error) {
	switch {
	case p.peek("{"):
		return p.parseOperation(gates, true)
	case p.peekName("query"), p.peekName("mutation"), p.peekName("subscription"):
		return p.parseOperation(gates, false)
	case p.peekName("fragment"):
		return p.parseFragment(gates)
	}
	return nil, p.unexpected("query, mutation, subscription, fragment or '{'")
}

func (p *parser) newNode(kind ir.Kind, gates []ir.GateComment, parent *ir.Node) *ir.Node {
	return &ir.Node{
		Kind:   kind,
		Span:   ir.Span{Start: p.cur.start},
		Pos:    p.lines.pos(p.cur.start),
		Gates:  gates,
		Parent: parent,
	}
}

func (p *parser) parseOperation(gates []ir.GateComment, shorthand bool) (*ir.Node, error) {
	op := p.newNode(ir.KindOperation, gates, nil)
	op.OperationType = "query"

	if !shorthand {
		op.OperationType = p.cur.value
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind == tokName {
			op.Name = p.cur.value
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.peek("(") {
			if err := p.parseVariableDefinitions(op); err != nil {
				return nil, err
			}
		}
		if err := p.parseDirectives(&op.VarRefs); err != nil {
			return nil, err
		}
	}

	if err := p.parseSelectionSet(op); err != nil {
		return nil, err
	}
	op.Span.End = p.prevEnd
	return op, nil
}

func (p *parser) parseFragment(gates []ir.GateComment) (*ir.Node, error) {
	frag := p.newNode(ir.KindFragment, gates, nil)
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.peekName("on") {
		return nil, p.unexpected("fragment name")
	}
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	frag.Name = name

	if !p.peekName("on") {
		return nil, p.unexpected(`"on"`)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expectName(); err != nil {
		return nil, err
	}
	if err := p.parseDirectives(&frag.VarRefs); err != nil {
		return nil, err
	}
	if err := p.parseSelectionSet(frag); err != nil {
		return nil, err
	}
	frag.Span.End = p.prevEnd
	return frag, nil
}

func (p *parser) parseVariableDefinitions(op *ir.Node) error {
	open, err := p.expect("(")
	if err != nil {
		return err
	}
	for !p.peek(")") {
		if p.cur.kind == tokEOF {
			return p.errorAt(open.start, ErrUnbalanced, "unclosed variable definitions")
		}
		gates := p.takeGates()
		v := p.newNode(ir.KindVariable, gates, op)
		if _, err := p.expect("$"); err != nil {
			return err
		}
		name, err := p.expectName()
		if err != nil {
			return err
		}
		v.Name = name
		if _, err := p.expect(":"); err != nil {
			return err
		}
		if err := p.parseType(); err != nil {
			return err
		}
		if p.peek("=") {
			if err := p.advance(); err != nil {
				return err
			}
			var refs []string
			if err := p.parseValue(&refs); err != nil {
				return err
			}
			if len(refs) > 0 {
				return p.errorAt(v.Span.Start, ErrSyntax, fmt.Sprintf("default value of $%s must be constant", name))
			}
		}
		if err := p.parseDirectives(&v.VarRefs); err != nil {
			return err
		}
		v.Span.End = p.prevEnd
		op.Variables = append(op.Variables, v)
	}
	if len(op.Variables) == 0 {
		return p.errorAt(open.start, ErrSyntax, "empty variable definitions")
	}
	if _, err := p.expect(")"); err != nil {
		return err
	}
	op.VariableList = ir.Span{Start: open.start, End: p.prevEnd}
	return nil
}

func (p *parser) parseType() error {
	if p.peek("[") {
		open := p.cur
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.parseType(); err != nil {
			return err
		}
		if p.cur.kind == tokEOF {
			return p.errorAt(open.start, ErrUnbalanced, "unclosed list type")
		}
		if _, err := p.expect("]"); err != nil {
			return err
		}
	} else if _, err := p.expectName(); err != nil {
		return err
	}
	if p.peek("!") {
		return p.advance()
	}
	return nil
}

func (p *parser) parseSelectionSet(parent *ir.Node) error {
	open, err := p.expect("{")
	if err != nil {
		return err
	}
	for !p.peek("}") {
		if p.cur.kind == tokEOF {
			pos := p.lines.pos(open.start)
			return p.errorAt(open.start, ErrUnbalanced, fmt.Sprintf("unclosed selection set opened at line %d", pos.Line))
		}
		gates := p.takeGates()
		sel, err := p.parseSelection(gates, parent)
		if err != nil {
			return err
		}
		parent.Selections = append(parent.Selections, sel)
	}
	if _, err := p.expect("}"); err != nil {
		return err
	}
	if len(parent.Selections) == 0 {
		return p.errorAt(open.start, ErrSyntax, "empty selection set")
	}
	parent.SelectionSet = ir.Span{Start: open.start, End: p.prevEnd}
	return nil
}

func (p *parser) parseSelection(gates []ir.GateComment, parent *ir.Node) (*ir.Node, error) {
	if p.peek("...") {
		return p.parseFragmentSelection(gates, parent)
	}
	if p.cur.kind != tokName {
		return nil, p.unexpected("field or fragment spread")
	}

	field := p.newNode(ir.KindField, gates, parent)
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	field.Name = name
	if p.peek(":") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		field.Alias, field.Name = field.Name, name
	}
	if p.peek("(") {
		if err := p.parseArguments(&field.VarRefs); err != nil {
			return nil, err
		}
	}
	if err := p.parseDirectives(&field.VarRefs); err != nil {
		return nil, err
	}
	if p.peek("{") {
		if err := p.parseSelectionSet(field); err != nil {
			return nil, err
		}
	}
	field.Span.End = p.prevEnd
	return field, nil
}

func (p *parser) parseFragmentSelection(gates []ir.GateComment, parent *ir.Node) (*ir.Node, error) {
	node := p.newNode(ir.KindInlineFragment, gates, parent)
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.cur.kind == tokName && p.cur.value != "on" {
		node.Kind = ir.KindFragmentSpread
		node.Name = p.cur.value
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.parseDirectives(&node.VarRefs); err != nil {
			return nil, err
		}
		node.Span.End = p.prevEnd
		return node, nil
	}

	if p.peekName("on") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		typeName, err := p.expectName()
		if err != nil {
			return nil, err
		}
		node.Name = typeName
	}
	if err := p.parseDirectives(&node.VarRefs); err != nil {
		return nil, err
	}
	if err := p.parseSelectionSet(node); err != nil {
		return nil, err
	}
	node.Span.End = p.prevEnd
	return node, nil
}

func (p *parser) parseArguments(refs *[]string) error {
	open, err := p.expect("(")
	if err != nil {
		return err
	}
	count := 0
	for !p.peek(")") {
		if p.cur.kind == tokEOF {
			return p.errorAt(open.start, ErrUnbalanced, "unclosed argument list")
		}
		if _, err := p.expectName(); err != nil {
			return err
		}
		if _, err := p.expect(":"); err != nil {
			return err
		}
		if err := p.parseValue(refs); err != nil {
			return err
		}
		count++
	}
	if count == 0 {
		return p.errorAt(open.start, ErrSyntax, "empty argument list")
	}
	_, err = p.expect(")")
	return err
}

func (p *parser) parseDirectives(refs *[]string) error {
	for p.peek("@") {
		if err := p.advance(); err != nil {
			return err
		}
		if _, err := p.expectName(); err != nil {
			return err
		}
		if p.peek("(") {
			if err := p.parseArguments(refs); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *parser) parseValue(refs *[]string) error {
	switch {
	case p.peek("$"):
		if err := p.advance(); err != nil {
			return err
		}
		name, err := p.expectName()
		if err != nil {
			return err
		}
		*refs = append(*refs, name)
		return nil
	case p.peek("["):
		open := p.cur
		if err := p.advance(); err != nil {
			return err
		}
		for !p.peek("]") {
			if p.cur.kind == tokEOF {
				return p.errorAt(open.start, ErrUnbalanced, "unclosed list value")
			}
			if err := p.parseValue(refs); err != nil {
				return err
			}
		}
		return p.advance()
	case p.peek("{"):
		open := p.cur
		if err := p.advance(); err != nil {
			return err
		}
		for !p.peek("}") {
			if p.cur.kind == tokEOF {
				return p.errorAt(open.start, ErrUnbalanced, "unclosed object value")
			}
			if _, err := p.expectName(); err != nil {
				return err
			}
			if _, err := p.expect(":"); err != nil {
				return err
			}
			if err := p.parseValue(refs); err != nil {
				return err
			}
		}
		return p.advance()
	}

	switch p.cur.kind {
	case tokName, tokInt, tokFloat, tokString, tokBlockString:
		return p.advance()
	}
	return p.unexpected("value")
}
