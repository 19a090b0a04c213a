package core

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Test is one invocation variant of a Scenario: its own arguments, build/run
// option overrides, and optional stdin/expected output fixtures.
type Test struct {
	Name           *string `yaml:"name,omitempty"`
	CompileOptions []string `yaml:"compile_options,omitempty"`
	RuntimeOptions []string `yaml:"runtime_options,omitempty"`
	Arguments      []string `yaml:"arguments,omitempty"`
	Dependencies   []Dependency `yaml:"dependencides,omitempty"`

	// Mode/Affinity/Niceness override the owning Scenario's defaults for
	// this test only.
	Mode     *string `yaml:"mode,omitempty"`
	Affinity []int   `yaml:"affinity,omitempty"`
	Niceness *int    `yaml:"niceness,omitempty"`

	// Stdin/ExpectedStdout are base64-encoded in YAML (scenario files are
	// plain text; arbitrary binary fixtures still need to round-trip).
	Stdin          []byte `yaml:"-"`
	ExpectedStdout []byte `yaml:"-"`
}

// rawTest mirrors Test's YAML shape; UnmarshalYAML/MarshalYAML decode through
// it so exported byte slices stay ordinary []byte in Go code while the wire
// format keeps carrying base64 text, matching the original fixture format.
type rawTest struct {
	Name           *string      `yaml:"name,omitempty"`
	CompileOptions []string     `yaml:"compile_options,omitempty"`
	RuntimeOptions []string     `yaml:"runtime_options,omitempty"`
	Arguments      []string     `yaml:"arguments,omitempty"`
	Dependencies   []Dependency `yaml:"dependencides,omitempty"`
	Mode           *string      `yaml:"mode,omitempty"`
	Affinity       []int        `yaml:"affinity,omitempty"`
	Niceness       *int         `yaml:"niceness,omitempty"`
	Stdin          *string      `yaml:"stdin,omitempty"`
	ExpectedStdout *string      `yaml:"expected_stdout,omitempty"`
}

func (t *Test) UnmarshalYAML(value *yaml.Node) error {
	var raw rawTest
	if err := value.Decode(&raw); err != nil {
		return err
	}
	t.Name = raw.Name
	t.CompileOptions = raw.CompileOptions
	t.RuntimeOptions = raw.RuntimeOptions
	t.Arguments = raw.Arguments
	t.Dependencies = raw.Dependencies
	t.Mode = raw.Mode
	t.Affinity = raw.Affinity
	t.Niceness = raw.Niceness
	if raw.Stdin != nil {
		b, err := base64.StdEncoding.DecodeString(*raw.Stdin)
		if err != nil {
			return fmt.Errorf("core: decode test stdin: %w", err)
		}
		t.Stdin = b
	}
	if raw.ExpectedStdout != nil {
		b, err := base64.StdEncoding.DecodeString(*raw.ExpectedStdout)
		if err != nil {
			return fmt.Errorf("core: decode test expected_stdout: %w", err)
		}
		t.ExpectedStdout = b
	}
	return nil
}

func (t Test) MarshalYAML() (interface{}, error) {
	raw := rawTest{
		Name:           t.Name,
		CompileOptions: t.CompileOptions,
		RuntimeOptions: t.RuntimeOptions,
		Arguments:      t.Arguments,
		Dependencies:   t.Dependencies,
		Mode:           t.Mode,
		Affinity:       t.Affinity,
		Niceness:       t.Niceness,
	}
	if t.Stdin != nil {
		s := base64.StdEncoding.EncodeToString(t.Stdin)
		raw.Stdin = &s
	}
	if t.ExpectedStdout != nil {
		s := base64.StdEncoding.EncodeToString(t.ExpectedStdout)
		raw.ExpectedStdout = &s
	}
	return raw, nil
}

// IterateTests reads every YAML document in path after the first (the
// Scenario document) as a Test.
func IterateTests(path string) ([]Test, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("core: open scenario %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)

	// Skip the Scenario document.
	var discard yaml.Node
	if err := dec.Decode(&discard); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("core: decode scenario document in %s: %w", path, err)
	}

	var tests []Test
	for {
		var t Test
		err := dec.Decode(&t)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("core: decode test document in %s: %w", path, err)
		}
		tests = append(tests, t)
	}
	return tests, nil
}
