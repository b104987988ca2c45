package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/gqlgate/internal/ir"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokPunct
	tokName
	tokInt
	tokFloat
	tokString
	tokBlockString
	tokComment
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of template"
	case tokPunct:
		return "punctuator"
	case tokName:
		return "name"
	case tokInt:
		return "integer"
	case tokFloat:
		return "float"
	case tokString, tokBlockString:
		return "string"
	case tokComment:
		return "comment"
	}
	return "token"
}

type token struct {
	kind  tokenKind
	value string
	start int
	end   int
}

func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return t.kind.String()
	case tokPunct, tokName:
		return fmt.Sprintf("%q", t.value)
	}
	return t.kind.String()
}

// lineIndex maps byte offsets to 1-based line and column.
type lineIndex []int

func newLineIndex(src string) lineIndex {
	idx := lineIndex{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (li lineIndex) pos(offset int) ir.Pos {
	line := sort.Search(len(li), func(i int) bool { return li[i] > offset }) - 1
	if line < 0 {
		line = 0
	}
	return ir.Pos{Line: line + 1, Column: offset - li[line] + 1}
}

// lexError is converted to a TemplateError by the parser.
type lexError struct {
	code    string
	message string
	offset  int
}

func (e *lexError) Error() string {
	return e.message
}

// lex splits a GraphQL executable document into tokens. Commas and
// whitespace are dropped; comments are kept so the parser can find gates.
func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ',':
			i++
		case strings.HasPrefix(src[i:], "\ufeff"):
			i += len("\ufeff")
		case c == '#':
			end := i
			for end < len(src) && src[end] != '\n' && src[end] != '\r' {
				end++
			}
			toks = append(toks, token{kind: tokComment, value: src[i+1 : end], start: i, end: end})
			i = end
		case strings.HasPrefix(src[i:], "..."):
			toks = append(toks, token{kind: tokPunct, value: "...", start: i, end: i + 3})
			i += 3
		case strings.IndexByte("!$&():=@[]{|}", c) >= 0:
			toks = append(toks, token{kind: tokPunct, value: string(c), start: i, end: i + 1})
			i++
		case isNameStart(c):
			end := i + 1
			for end < len(src) && isNameContinue(src[end]) {
				end++
			}
			toks = append(toks, token{kind: tokName, value: src[i:end], start: i, end: end})
			i = end
		case c == '-' || isDigit(c):
			tok, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = tok.end
		case strings.HasPrefix(src[i:], `"""`):
			tok, err := lexBlockString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = tok.end
		case c == '"':
			tok, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = tok.end
		default:
			return nil, &lexError{code: ErrSyntax, message: fmt.Sprintf("unexpected character %q", rune(c)), offset: i}
		}
	}
	toks = append(toks, token{kind: tokEOF, start: len(src), end: len(src)})
	return toks, nil
}

func lexNumber(src string, start int) (token, error) {
	i := start
	if src[i] == '-' {
		i++
	}
	digits := func() int {
		n := 0
		for i < len(src) && isDigit(src[i]) {
			i++
			n++
		}
		return n
	}
	if digits() == 0 {
		return token{}, &lexError{code: ErrSyntax, message: "invalid number", offset: start}
	}
	kind := tokInt
	if i < len(src) && src[i] == '.' {
		i++
		kind = tokFloat
		if digits() == 0 {
			return token{}, &lexError{code: ErrSyntax, message: "invalid number: expected digit after '.'", offset: start}
		}
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		i++
		kind = tokFloat
		if i < len(src) && (src[i] == '+' || src[i] == '-') {
			i++
		}
		if digits() == 0 {
			return token{}, &lexError{code: ErrSyntax, message: "invalid number: expected exponent digits", offset: start}
		}
	}
	if i < len(src) && (isNameStart(src[i]) || src[i] == '.') {
		return token{}, &lexError{code: ErrSyntax, message: fmt.Sprintf("invalid number: unexpected %q", rune(src[i])), offset: start}
	}
	return token{kind: kind, value: src[start:i], start: start, end: i}, nil
}

func lexString(src string, start int) (token, error) {
	i := start + 1
	for i < len(src) {
		switch src[i] {
		case '"':
			return token{kind: tokString, value: src[start+1 : i], start: start, end: i + 1}, nil
		case '\\':
			i += 2
		case '\n', '\r':
			return token{}, &lexError{code: ErrSyntax, message: "unterminated string", offset: start}
		default:
			i++
		}
	}
	return token{}, &lexError{code: ErrSyntax, message: "unterminated string", offset: start}
}

func lexBlockString(src string, start int) (token, error) {
	i := start + 3
	for i < len(src) {
		if strings.HasPrefix(src[i:], `\"""`) {
			i += 4
			continue
		}
		if strings.HasPrefix(src[i:], `"""`) {
			return token{kind: tokBlockString, value: src[start+3 : i], start: start, end: i + 3}, nil
		}
		i++
	}
	return token{}, &lexError{code: ErrSyntax, message: "unterminated block string", offset: start}
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameContinue(c byte) bool {
	return isNameStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
