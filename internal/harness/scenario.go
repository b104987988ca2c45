package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines a template conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Template is the inline template text. Mutually exclusive with
	// TemplateFile.
	Template string `yaml:"template,omitempty"`

	// TemplateFile is a template path relative to the scenario file.
	TemplateFile string `yaml:"template_file,omitempty"`

	// Operation is the operation name passed to the builder.
	Operation string `yaml:"operation"`

	// Identity is the server identity. Defaults to "harness".
	Identity string `yaml:"identity,omitempty"`

	// Version is the target server version, passed verbatim so that
	// unparseable versions exercise the baseline fallback.
	Version string `yaml:"version"`

	// Expect states what the compiled query must look like.
	Expect Expect `yaml:"expect"`
}

// Expect lists the checks applied to a compiled query.
type Expect struct {
	// Contains lists substrings the query must contain.
	Contains []string `yaml:"contains,omitempty"`

	// Absent lists substrings the query must not contain.
	Absent []string `yaml:"absent,omitempty"`

	// Removed lists node paths that must be pruned (subset match).
	Removed []string `yaml:"removed,omitempty"`

	// Error is the expected template error code (e.g. "E203"). When set,
	// compilation must fail with exactly this code.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A template_file is read relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	if scenario.TemplateFile != "" {
		templatePath := scenario.TemplateFile
		if !filepath.IsAbs(templatePath) {
			templatePath = filepath.Join(filepath.Dir(path), templatePath)
		}
		text, err := os.ReadFile(templatePath)
		if err != nil {
			return nil, fmt.Errorf("invalid scenario: template file: %w", err)
		}
		scenario.Template = string(text)
	}

	return &scenario, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by file
// name. Subdirectories are not searched.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	seen := make(map[string]string)
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("%s: duplicate scenario name %q (also in %s)", name, s.Name, prev)
		}
		seen[s.Name] = name
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Template == "" && s.TemplateFile == "" {
		return fmt.Errorf("template or template_file is required")
	}
	if s.Template != "" && s.TemplateFile != "" {
		return fmt.Errorf("template and template_file are mutually exclusive")
	}

	if s.Operation == "" {
		return fmt.Errorf("operation is required")
	}

	if s.Version == "" {
		return fmt.Errorf("version is required")
	}

	e := s.Expect
	if len(e.Contains) == 0 && len(e.Absent) == 0 && len(e.Removed) == 0 && e.Error == "" {
		return fmt.Errorf("expect must list at least one check")
	}
	if e.Error != "" && (len(e.Contains) > 0 || len(e.Absent) > 0 || len(e.Removed) > 0) {
		return fmt.Errorf("expect.error cannot be combined with query checks")
	}

	return nil
}
