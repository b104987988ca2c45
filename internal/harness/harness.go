package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/gqlgate/internal/compiler"
	"github.com/roach88/gqlgate/internal/querybuilder"
	"github.com/roach88/gqlgate/internal/version"
)

const defaultIdentity = "harness"

// Harness runs scenarios. Each Run uses a fresh builder so scenarios never
// observe each other's cache.
type Harness struct {
	logger *slog.Logger
}

// New creates a Harness. A nil logger discards output.
func New(logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{logger: logger}
}

// Run executes a scenario with a discarding logger.
func Run(scenario *Scenario) (*Result, error) {
	return New(nil).Run(scenario)
}

// Run executes a scenario and returns the result. A returned error means
// the scenario could not run at all; failed checks are reported on the
// Result.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	if scenario == nil {
		return nil, errors.New("nil scenario")
	}

	identity := scenario.Identity
	if identity == "" {
		identity = defaultIdentity
	}
	b := querybuilder.New(identity, querybuilder.WithLogger(h.logger))

	result := NewResult()
	query, err := b.Build(scenario.Version, scenario.Template, scenario.Operation)
	if err != nil {
		var terr *compiler.TemplateError
		if !errors.As(err, &terr) {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		result.ErrorCode = terr.Code
	} else {
		result.Query = query
		result.Removed = removedPaths(scenario)
	}

	evaluateExpect(result, scenario.Expect)

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"operation", scenario.Operation,
		"version", scenario.Version,
		"pass", result.Pass,
	)
	return result, nil
}

// removedPaths recompiles outside the builder for diagnostics; the builder
// only hands out query text.
func removedPaths(s *Scenario) []string {
	v, err := version.Parse(s.Version)
	if err != nil {
		v = version.Baseline
	}
	res, err := compiler.Compile(v, s.Template, s.Operation)
	if err != nil {
		return nil
	}
	return res.Removed
}
