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

// Scenario defines a normalization test scenario: a list of input queries
// with their expected canonical forms or errors, plus assertions over the
// whole run.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Strict selects strict filter-operator checking for every case.
	Strict bool `yaml:"strict,omitempty"`

	// Cases are normalized in order.
	Cases []Case `yaml:"cases"`

	// Assertions validate the run as a whole.
	// Supported types: canonical, idempotent, equivalent, distinct, record_count
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Case is a single input query and its expected outcome.
type Case struct {
	// Name identifies the case within the scenario.
	Name string `yaml:"name"`

	// Input is the raw query document.
	Input yaml.Node `yaml:"input"`

	// Expect is the expected normalized query.
	// If empty, any successful output is accepted.
	Expect yaml.Node `yaml:"expect,omitempty"`

	// ExpectError names the expected failure instead of an output.
	ExpectError *ExpectError `yaml:"expect_error,omitempty"`
}

// ExpectError specifies expected failure behavior.
type ExpectError struct {
	// Code is the expected error code (e.g., "MALFORMED_QUERY").
	Code string `yaml:"code"`

	// Path is the expected dotted location of the offending node.
	// If empty, only the code is validated.
	Path string `yaml:"path,omitempty"`
}

// Assertion validates the run as a whole.
type Assertion struct {
	// Type specifies the assertion type:
	// - "canonical": successful outputs pass canoncheck
	// - "idempotent": re-normalizing outputs changes nothing
	// - "equivalent": listed cases share an output
	// - "distinct": listed cases have pairwise different outputs
	// - "record_count": recorder holds Count records
	Type string `yaml:"type"`

	// Cases restricts canonical and idempotent to the named cases, and
	// names the cases compared by equivalent and distinct.
	Cases []string `yaml:"cases,omitempty"`

	// Count is the expected number of records (used by record_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertCanonical   = "canonical"
	AssertIdempotent  = "idempotent"
	AssertEquivalent  = "equivalent"
	AssertDistinct    = "distinct"
	AssertRecordCount = "record_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarioFiles returns the .yaml and .yml files under dir, sorted.
// A non-empty filter is a glob matched against the file name without its
// extension.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}

	names := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if names[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate case name %q", i, c.Name)
		}
		names[c.Name] = true

		if c.Input.Kind == 0 {
			return fmt.Errorf("cases[%d]: input is required", i)
		}
		if c.Expect.Kind != 0 && c.ExpectError != nil {
			return fmt.Errorf("cases[%d]: expect and expect_error are mutually exclusive", i)
		}
		if c.ExpectError != nil && c.ExpectError.Code == "" {
			return fmt.Errorf("cases[%d].expect_error: code is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, names); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, cases map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	for _, name := range a.Cases {
		if !cases[name] {
			return fmt.Errorf("assertions[%d]: unknown case %q", index, name)
		}
	}

	switch a.Type {
	case AssertCanonical, AssertIdempotent:
	case AssertEquivalent, AssertDistinct:
		if len(a.Cases) < 2 {
			return fmt.Errorf("assertions[%d]: at least two cases are required for %s", index, a.Type)
		}
	case AssertRecordCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for record_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
