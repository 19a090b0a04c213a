// Package config resolves the handful of filesystem locations the driver and
// its child processes need to agree on: where the compiled signal libraries
// live, and where scenario working directories get created.
package config

import (
	"os"
	"path/filepath"
	"sync"
)

// Config holds paths shared across a measurement run.
type Config struct {
	// BaseDir is the root of scratch space the driver writes scenario/test
	// build artifacts under (<BaseDir>/build/<language>/<scenario>/<test>/...,
	// see core.Scenario.TestDir).
	BaseDir string

	// LibDir is where libiterations.so / libmeasurements.so are looked up
	// from, for linking and LD_LIBRARY_PATH purposes.
	LibDir string
}

const (
	baseDirEnv = "GL_BASE_DIR"
	libDirEnv  = "GL_LIB_DIR"
)

var (
	once   sync.Once
	global *Config
)

// New resolves a Config from the environment, falling back to sane defaults
// under the current working directory when the environment variables are
// unset. Unlike the original tool's compile-time GL_LIB_DIR, this is an
// ordinary environment variable: there is no Go equivalent of Rust's
// option_env! that survives a `go build` of a prebuilt binary distributed to
// another machine, so resolving it at process start is the idiomatic choice.
func New() (*Config, error) {
	base := os.Getenv(baseDirEnv)
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(wd, ".gl-work")
	}
	lib := os.Getenv(libDirEnv)
	if lib == "" {
		lib = base
	}
	return &Config{BaseDir: base, LibDir: lib}, nil
}

// Global returns a process-wide Config, initializing it from the environment
// on first call.
func Global() *Config {
	once.Do(func() {
		c, err := New()
		if err != nil {
			c = &Config{BaseDir: ".gl-work", LibDir: ".gl-work"}
		}
		global = c
	})
	return global
}

// ScenarioDir returns the scratch directory for a given scenario name.
func (c *Config) ScenarioDir(scenario string) string {
	return filepath.Join(c.BaseDir, scenario)
}

// TestDir returns the scratch directory for a given scenario/test pair.
func (c *Config) TestDir(scenario, test string) string {
	return filepath.Join(c.ScenarioDir(scenario), test)
}
