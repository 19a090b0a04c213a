package core

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Package is a language runtime dependency declared on a Scenario or Test,
// e.g. a NuGet/Maven/crates.io/pip package the generated program needs.
type Package struct {
	Name    string  `yaml:"name"`
	Version *string `yaml:"version,omitempty"`
}

// Dependency is structurally identical to Package; kept distinct because the
// originating scenario files use both names depending on context.
type Dependency struct {
	Name    string  `yaml:"name"`
	Version *string `yaml:"version,omitempty"`
}

// Scenario is the first YAML document in a scenario file: the program under
// measurement, plus scenario-wide defaults every Test may override.
type Scenario struct {
	Name            string       `yaml:"name"`
	Language        Language     `yaml:"language"`
	Description     *string      `yaml:"description,omitempty"`
	Code            *string      `yaml:"code,omitempty"`
	Origin          *string      `yaml:"origin,omitempty"`
	CompileOptions  []string     `yaml:"compile_options,omitempty"`
	RuntimeOptions  []string     `yaml:"runtime_options,omitempty"`
	Framework       *string      `yaml:"framework,omitempty"`
	Dependencies    []Dependency `yaml:"dependencides,omitempty"`
	Packages        []Package    `yaml:"packages,omitempty"`

	// Mode/Affinity/Niceness are scenario-wide defaults for how the driver
	// runs every test in this scenario; a Test may override any of them.
	Mode     *string `yaml:"mode,omitempty"`
	Affinity []int   `yaml:"affinity,omitempty"`
	Niceness *int    `yaml:"niceness,omitempty"`

	// target/source are never present in the YAML and are not set by this
	// package; build and exec paths are computed by the Scenario path methods.
	target string
	source string
}

// ErrMissingCode is returned by BuildTest when a Scenario has no code, or
// only blank code, to write out before building.
var ErrMissingCode = errors.New("core: scenario has no code")

// NotFoundError wraps os.ErrNotExist for scenario file lookups.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("core: scenario file not found: %s", e.Path) }
func (e *NotFoundError) Unwrap() error { return os.ErrNotExist }

// LoadScenario reads the first YAML document from path as a Scenario.
// Scenario files may contain additional documents (one per Test); those are
// read separately via IterateTests.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("core: open scenario %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("core: decode scenario %s: %w", path, err)
	}
	return &s, nil
}
