package version

import (
	"fmt"
	"strings"
)

// Op is a gate comparison operator.
type Op string

const (
	OpGreaterEqual Op = ">="
	OpGreater      Op = ">"
	OpLessEqual    Op = "<="
	OpLess         Op = "<"
	OpEqual        Op = "=="
	OpNotEqual     Op = "!="
)

// operators in match order; two-character operators first.
var operators = []Op{OpGreaterEqual, OpLessEqual, OpEqual, OpNotEqual, OpGreater, OpLess}

// Gate is one version condition, e.g. ">= 14.0.0".
type Gate struct {
	Op      Op
	Version Version
}

func (g Gate) String() string {
	return fmt.Sprintf("%s %s", g.Op, g.Version)
}

// Allows reports whether v satisfies the gate.
func (g Gate) Allows(v Version) bool {
	c := v.Compare(g.Version)
	switch g.Op {
	case OpGreaterEqual:
		return c >= 0
	case OpGreater:
		return c > 0
	case OpLessEqual:
		return c <= 0
	case OpLess:
		return c < 0
	case OpEqual:
		return c == 0
	case OpNotEqual:
		return c != 0
	}
	return false
}

// AllowAll reports whether v satisfies every gate. An empty list allows
// every version.
func AllowAll(gates []Gate, v Version) bool {
	for _, g := range gates {
		if !g.Allows(v) {
			return false
		}
	}
	return true
}

// ParseGates parses one or more constraints separated by whitespace or
// commas, e.g. ">= 13.0, < 14". Gate versions must not carry a suffix.
func ParseGates(s string) ([]Gate, error) {
	rest := strings.TrimSpace(s)
	if rest == "" {
		return nil, fmt.Errorf("missing constraint")
	}

	var gates []Gate
	for rest != "" {
		op, ok := matchOp(rest)
		if !ok {
			return nil, fmt.Errorf("expected comparison operator at %q", rest)
		}
		rest = strings.TrimLeft(rest[len(op):], " \t")
		// a bare "=" is accepted as "=="
		if op == "=" {
			op = OpEqual
		}

		end := strings.IndexAny(rest, " \t,<>=!")
		if end < 0 {
			end = len(rest)
		}
		raw := rest[:end]
		if raw == "" {
			return nil, fmt.Errorf("missing version after %q", op)
		}
		v, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		if v.Suffix != "" {
			return nil, fmt.Errorf("gate version %q must not have a suffix", raw)
		}
		gates = append(gates, Gate{Op: op, Version: v})

		rest = strings.TrimLeft(rest[end:], " \t")
		if strings.HasPrefix(rest, ",") {
			rest = strings.TrimLeft(rest[1:], " \t")
			if rest == "" {
				return nil, fmt.Errorf("trailing comma")
			}
		}
	}
	return gates, nil
}

func matchOp(s string) (Op, bool) {
	for _, op := range operators {
		if strings.HasPrefix(s, string(op)) {
			return op, true
		}
	}
	if strings.HasPrefix(s, "=") {
		return "=", true
	}
	return "", false
}
