package harness

import (
	"fmt"
	"strings"
)

// evaluateExpect checks r against e and records every failure on r.
func evaluateExpect(r *Result, e Expect) {
	if e.Error != "" {
		switch r.ErrorCode {
		case e.Error:
		case "":
			r.AddError(fmt.Sprintf("expected template error %s, compilation succeeded", e.Error))
		default:
			r.AddError(fmt.Sprintf("expected template error %s, got %s", e.Error, r.ErrorCode))
		}
		return
	}

	if r.ErrorCode != "" {
		r.AddError(fmt.Sprintf("unexpected template error %s", r.ErrorCode))
		return
	}

	for _, s := range e.Contains {
		if !strings.Contains(r.Query, s) {
			r.AddError(fmt.Sprintf("query does not contain %q", s))
		}
	}
	for _, s := range e.Absent {
		if strings.Contains(r.Query, s) {
			r.AddError(fmt.Sprintf("query contains %q", s))
		}
	}

	removed := make(map[string]bool, len(r.Removed))
	for _, p := range r.Removed {
		removed[p] = true
	}
	for _, p := range e.Removed {
		if !removed[p] {
			r.AddError(fmt.Sprintf("%s was not removed", p))
		}
	}
}
