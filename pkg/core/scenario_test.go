package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	path := writeTempScenarioFile(t, `
name: fib
language: rust
description: "recursive fibonacci"
code: "fn main() {}"
mode: internal
affinity: [0, 1]
niceness: -10
`)

	s, err := LoadScenario(path)
	require.NoError(t, err)
	require.Equal(t, "fib", s.Name)
	require.Equal(t, Rust, s.Language)
	require.NotNil(t, s.Description)
	require.Equal(t, "recursive fibonacci", *s.Description)
	require.NotNil(t, s.Mode)
	require.Equal(t, "internal", *s.Mode)
	require.Equal(t, []int{0, 1}, s.Affinity)
	require.NotNil(t, s.Niceness)
	require.Equal(t, -10, *s.Niceness)
}

func TestLoadScenario_NotFound(t *testing.T) {
	_, err := LoadScenario(t.TempDir() + "/missing.yaml")
	require.Error(t, err)
	var nfe *NotFoundError
	require.ErrorAs(t, err, &nfe)
}

func TestLoadScenario_NoOverrides(t *testing.T) {
	path := writeTempScenarioFile(t, `
name: plain
language: python
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)
	require.Nil(t, s.Mode)
	require.Nil(t, s.Affinity)
	require.Nil(t, s.Niceness)
}

func TestParseLanguage(t *testing.T) {
	for _, l := range SupportedLanguages() {
		got, err := ParseLanguage(string(l))
		require.NoError(t, err)
		require.Equal(t, l, got)
	}

	_, err := ParseLanguage("cobol")
	require.Error(t, err)
}
