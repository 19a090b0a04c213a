package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsUnderWorkingDirectory(t *testing.T) {
	require.NoError(t, os.Unsetenv(baseDirEnv))
	require.NoError(t, os.Unsetenv(libDirEnv))

	cfg, err := New()
	require.NoError(t, err)
	require.Contains(t, cfg.BaseDir, ".gl-work")
	require.Equal(t, cfg.BaseDir, cfg.LibDir)
}

func TestNew_RespectsEnv(t *testing.T) {
	require.NoError(t, os.Setenv(baseDirEnv, "/tmp/gl-base"))
	require.NoError(t, os.Setenv(libDirEnv, "/tmp/gl-lib"))
	defer os.Unsetenv(baseDirEnv)
	defer os.Unsetenv(libDirEnv)

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, "/tmp/gl-base", cfg.BaseDir)
	require.Equal(t, "/tmp/gl-lib", cfg.LibDir)
}

func TestConfig_ScenarioAndTestDir(t *testing.T) {
	cfg := &Config{BaseDir: "/work"}
	require.Equal(t, "/work/fib", cfg.ScenarioDir("fib"))
	require.Equal(t, "/work/fib/0", cfg.TestDir("fib", "0"))
}
