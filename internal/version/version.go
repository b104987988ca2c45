package version

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is a parsed server version.
type Version struct {
	Major int
	Minor int
	Patch int

	// Suffix holds anything after the numeric core, without the leading
	// '-' or '+' ("ee", "pre", "rc1+build.5").
	Suffix string

	original string
}

// Baseline is the version assumed when the server version is unknown.
// Only nodes whose gates hold for 0.0.0 survive against it.
var Baseline = Version{}

// ParseError reports a version string that could not be parsed.
type ParseError struct {
	Input   string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Input, e.Message)
}

// Parse parses a server version. Minor and patch default to 0 when absent.
// A leading "v" and surrounding whitespace are accepted.
func Parse(s string) (Version, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return Version{}, &ParseError{Input: s, Message: "empty version"}
	}
	body := strings.TrimPrefix(strings.TrimPrefix(in, "v"), "V")

	core, suffix := body, ""
	if i := strings.IndexAny(body, "-+"); i >= 0 {
		core, suffix = body[:i], body[i+1:]
		if suffix == "" {
			return Version{}, &ParseError{Input: s, Message: "empty suffix"}
		}
	}

	parts := strings.Split(core, ".")
	if len(parts) > 3 {
		return Version{}, &ParseError{Input: s, Message: "too many components"}
	}
	nums := [3]int{}
	for i, p := range parts {
		n, err := parseComponent(p)
		if err != nil {
			return Version{}, &ParseError{Input: s, Message: err.Error()}
		}
		nums[i] = n
	}

	return Version{
		Major:    nums[0],
		Minor:    nums[1],
		Patch:    nums[2],
		Suffix:   suffix,
		original: in,
	}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func parseComponent(p string) (int, error) {
	if p == "" {
		return 0, fmt.Errorf("empty component")
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-numeric component %q", p)
		}
	}
	n, err := strconv.Atoi(p)
	if err != nil {
		return 0, fmt.Errorf("component %q out of range", p)
	}
	return n, nil
}

// String returns the normalized numeric core, "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Original returns the input the version was parsed from, trimmed.
// Versions built without Parse return String().
func (v Version) Original() string {
	if v.original == "" {
		return v.String()
	}
	return v.original
}

// semver renders the numeric core in the form golang.org/x/mod/semver expects.
func (v Version) semver() string {
	return "v" + v.String()
}

// Compare returns -1, 0 or +1 comparing the numeric cores of v and w.
// Suffixes are ignored: "13.6.1-ee" and "13.6.1" compare equal.
func (v Version) Compare(w Version) int {
	return semver.Compare(v.semver(), w.semver())
}
