package core

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestTest_YAMLRoundTrip(t *testing.T) {
	orig := Test{
		Name:           strPtr("baseline"),
		CompileOptions: []string{"-O2"},
		RuntimeOptions: []string{"--flag"},
		Arguments:      []string{"1", "2"},
		Mode:           strPtr("external"),
		Affinity:       []int{0, 1},
		Niceness:       intPtr(-5),
		Stdin:          []byte("hello\n"),
		ExpectedStdout: []byte("world\n"),
	}

	out, err := yaml.Marshal(orig)
	require.NoError(t, err)

	var got Test
	require.NoError(t, yaml.Unmarshal(out, &got))

	require.Equal(t, orig.Name, got.Name)
	require.Equal(t, orig.CompileOptions, got.CompileOptions)
	require.Equal(t, orig.RuntimeOptions, got.RuntimeOptions)
	require.Equal(t, orig.Arguments, got.Arguments)
	require.Equal(t, orig.Mode, got.Mode)
	require.Equal(t, orig.Affinity, got.Affinity)
	require.Equal(t, orig.Niceness, got.Niceness)
	require.Equal(t, orig.Stdin, got.Stdin)
	require.Equal(t, orig.ExpectedStdout, got.ExpectedStdout)
}

func TestTest_YAMLRoundTrip_NoOverrides(t *testing.T) {
	orig := Test{Arguments: []string{"x"}}

	out, err := yaml.Marshal(orig)
	require.NoError(t, err)

	var got Test
	require.NoError(t, yaml.Unmarshal(out, &got))

	require.Nil(t, got.Mode)
	require.Nil(t, got.Affinity)
	require.Nil(t, got.Niceness)
	require.Nil(t, got.Stdin)
	require.Nil(t, got.ExpectedStdout)
}

func TestIterateTests(t *testing.T) {
	path := writeTempScenarioFile(t, `
name: add
language: c
code: "int main(){return 0;}"
---
name: first
arguments: ["1", "2"]
---
name: second
mode: internal
affinity: [0]
`)

	tests, err := IterateTests(path)
	require.NoError(t, err)
	require.Len(t, tests, 2)
	require.Equal(t, "first", *tests[0].Name)
	require.Equal(t, []string{"1", "2"}, tests[0].Arguments)
	require.Equal(t, "second", *tests[1].Name)
	require.Equal(t, "internal", *tests[1].Mode)
	require.Equal(t, []int{0}, tests[1].Affinity)
}

func TestIterateTests_NoTestDocuments(t *testing.T) {
	path := writeTempScenarioFile(t, `
name: solo
language: python
`)
	tests, err := IterateTests(path)
	require.NoError(t, err)
	require.Empty(t, tests)
}

func writeTempScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := t.TempDir() + "/scenario.yaml"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
