package harness

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	Pass bool `json:"pass"`

	// Query is the compiled query text. Empty when compilation failed.
	Query string `json:"query,omitempty"`

	// Removed lists the pruned node paths.
	Removed []string `json:"removed,omitempty"`

	// ErrorCode is the template error code when compilation failed.
	ErrorCode string `json:"error_code,omitempty"`

	// Errors contains failed check messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a check failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
