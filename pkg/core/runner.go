package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/PLEnergyDev/green-languages/pkg/config"
)

// ScenarioDir returns the build root for this scenario under cfg.BaseDir.
func (s *Scenario) ScenarioDir(cfg *config.Config) string {
	return filepath.Join(cfg.BaseDir, "build", string(s.Language), s.Name)
}

func (s *Scenario) testName(t *Test) string {
	if t.Name != nil {
		return *t.Name
	}
	return "unnamed"
}

// TestDir returns the per-test build/run directory.
func (s *Scenario) TestDir(cfg *config.Config, t *Test) string {
	return filepath.Join(s.ScenarioDir(cfg), s.testName(t))
}

func (s *Scenario) targetPath(cfg *config.Config, t *Test) string {
	return filepath.Join(s.TestDir(cfg, t), s.Language.TargetFile())
}

func (s *Scenario) sourcePath(cfg *config.Config) string {
	return filepath.Join(s.ScenarioDir(cfg), s.Language.SourceFile())
}

func (s *Scenario) stdoutPath(cfg *config.Config, t *Test) string {
	return filepath.Join(s.TestDir(cfg, t), "stdout.txt")
}

// TestExpectedStdoutPath is the per-test expected-output fixture location.
func (s *Scenario) TestExpectedStdoutPath(cfg *config.Config, t *Test) string {
	return filepath.Join(s.TestDir(cfg, t), "expected_stdout.txt")
}

// ScenarioExpectedStdoutPath is the scenario-wide fallback expected-output fixture.
func (s *Scenario) ScenarioExpectedStdoutPath(cfg *config.Config) string {
	return filepath.Join(s.ScenarioDir(cfg), "expected_stdout.txt")
}

func (s *Scenario) testStdinPath(cfg *config.Config, t *Test) string {
	return filepath.Join(s.TestDir(cfg, t), "stdin.txt")
}

func (s *Scenario) scenarioStdinPath(cfg *config.Config) string {
	return filepath.Join(s.ScenarioDir(cfg), "stdin.txt")
}

// withSignalEnv extends LIBRARY_PATH/LD_LIBRARY_PATH/CPATH so a child
// compiler or interpreter can find the signal libraries (libiterations,
// libmeasurements) without the caller needing its own shell environment set
// up.
func withSignalEnv(cmd *exec.Cmd, cfg *config.Config) {
	extend := func(name string) string {
		cur := os.Getenv(name)
		if cur == "" {
			return cfg.LibDir
		}
		return cfg.LibDir + ":" + cur
	}
	cmd.Env = append(os.Environ(),
		"LIBRARY_PATH="+extend("LIBRARY_PATH"),
		"LD_LIBRARY_PATH="+extend("LD_LIBRARY_PATH"),
		"CPATH="+extend("CPATH"),
	)
}

// ExecCommand resolves the argv used to run a built test.
func (s *Scenario) ExecCommand(cfg *config.Config, t *Test) ([]string, error) {
	target := s.targetPath(cfg, t)
	testDir := s.TestDir(cfg, t)

	switch s.Language {
	case C, Cpp:
		return []string{target}, nil
	case Cs:
		exePath := filepath.Join(testDir, "Program")
		if _, err := os.Stat(exePath); err != nil {
			return nil, fmt.Errorf("core: C# executable not found: %w", err)
		}
		return []string{exePath}, nil
	case Java:
		cp := cfg.LibDir + ":" + testDir
		return []string{"java", "--enable-native-access=ALL-UNNAMED", "-cp", cp, s.Language.TargetFile()}, nil
	case Rust:
		release := filepath.Join(testDir, "release", "program")
		debug := filepath.Join(testDir, "debug", "program")
		if _, err := os.Stat(release); err == nil {
			return []string{release}, nil
		}
		if _, err := os.Stat(debug); err == nil {
			return []string{debug}, nil
		}
		return nil, errors.New("core: rust executable not found")
	case Python:
		return []string{"python3", target}, nil
	case Ruby:
		return []string{"ruby", target}, nil
	default:
		return nil, fmt.Errorf("core: unsupported language %q", s.Language)
	}
}

// BuildCommand resolves the argv used to build a test, before per-test/
// per-scenario compile options are appended.
func (s *Scenario) BuildCommand(cfg *config.Config, t *Test) []string {
	scenarioDir := s.ScenarioDir(cfg)
	source := s.sourcePath(cfg)
	target := s.targetPath(cfg, t)
	testDir := s.TestDir(cfg, t)

	switch s.Language {
	case C:
		return []string{"gcc", source, "-o", target, "-lmeasurements"}
	case Cpp:
		return []string{"g++", source, "-o", target, "-lmeasurements"}
	case Cs:
		return []string{"dotnet", "build", scenarioDir, "-p:OutputType=Exe", "--output", testDir}
	case Java:
		cp := cfg.LibDir + ":" + testDir
		return []string{"javac", source, "-d", testDir, "-cp", cp}
	case Rust:
		toml := filepath.Join(scenarioDir, "Cargo.toml")
		return []string{"cargo", "build", "--manifest-path", toml, "--target-dir", testDir}
	case Python, Ruby:
		return nil
	default:
		return nil
	}
}

func splitOptions(opts []string) []string {
	var out []string
	for _, o := range opts {
		out = append(out, strings.Fields(o)...)
	}
	return out
}

func firstNonNil(a, b []string) []string {
	if a != nil {
		return a
	}
	return b
}

// BuildTest materializes scenario source and per-test fixtures on disk, then
// runs the language's build command. index is used as the fallback test name
// when t.Name is unset.
func (s *Scenario) BuildTest(cfg *config.Config, t *Test, index int) (Result, error) {
	if s.Code == nil || strings.TrimSpace(*s.Code) == "" {
		return Result{}, ErrMissingCode
	}

	if t.Name == nil {
		name := fmt.Sprintf("%d", index)
		t.Name = &name
	}

	testDir := s.TestDir(cfg, t)
	if err := os.MkdirAll(testDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("core: create test dir: %w", err)
	}
	if err := os.WriteFile(s.sourcePath(cfg), []byte(*s.Code), 0o644); err != nil {
		return Result{}, fmt.Errorf("core: write source: %w", err)
	}

	if s.Language == Cs {
		if err := s.prepareCsBuild(cfg, t); err != nil {
			return Result{}, err
		}
	}
	if s.Language == Rust {
		if err := s.prepareRustBuild(cfg, t); err != nil {
			return Result{}, err
		}
	}

	command := s.BuildCommand(cfg, t)
	if len(command) == 0 {
		// interpreted languages have no build step, but exec still expects
		// the script under the per-test directory
		data, err := os.ReadFile(s.sourcePath(cfg))
		if err != nil {
			return Result{}, fmt.Errorf("core: read source for copy: %w", err)
		}
		if err := os.WriteFile(s.targetPath(cfg, t), data, 0o755); err != nil {
			return Result{}, fmt.Errorf("core: stage interpreted script: %w", err)
		}
		if err := s.persistFixtures(cfg, t); err != nil {
			return Result{}, err
		}
		return Success(), nil
	}

	opts := firstNonNil(t.CompileOptions, s.CompileOptions)
	command = append(command, splitOptions(opts)...)

	cmd := exec.Command(command[0], command[1:]...)
	withSignalEnv(cmd, cfg)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	out, errOut := stdout.String(), stderr.String()
	var exitCode int
	if ee, ok := asExitError(runErr); ok {
		exitCode = ee.ExitCode()
	} else if runErr != nil {
		return Result{}, fmt.Errorf("core: run build command: %w", runErr)
	}

	if runErr == nil {
		if err := s.persistFixtures(cfg, t); err != nil {
			return Result{}, err
		}
		return SuccessWith(out, errOut), nil
	}
	return FailedWith(exitCode, out, errOut), nil
}

func (s *Scenario) persistFixtures(cfg *config.Config, t *Test) error {
	if t.Stdin != nil {
		if err := os.WriteFile(s.testStdinPath(cfg, t), t.Stdin, 0o644); err != nil {
			return fmt.Errorf("core: write test stdin: %w", err)
		}
	}
	if t.ExpectedStdout != nil {
		if err := os.WriteFile(s.TestExpectedStdoutPath(cfg, t), t.ExpectedStdout, 0o644); err != nil {
			return fmt.Errorf("core: write expected stdout: %w", err)
		}
	}
	return nil
}

func asExitError(err error) (*exec.ExitError, bool) {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// PrepareExecCmd builds (but does not start) the test's command, redirecting
// stdout to the test's stdout file and wiring stdin from the test's or
// scenario's stdin fixture, if any. extraEnv and extraFiles let a control
// channel transport add its own environment variables and inherited file
// descriptors (pipe ends) before the caller calls Start.
func (s *Scenario) PrepareExecCmd(cfg *config.Config, t *Test, extraEnv []string, extraFiles []*os.File) (*exec.Cmd, error) {
	if s.Language.IsCompiled() {
		if t.RuntimeOptions != nil || s.RuntimeOptions != nil {
			return nil, fmt.Errorf("core: runtime options are not supported for compiled language %q", s.Language)
		}
	}

	command, err := s.ExecCommand(cfg, t)
	if err != nil {
		return nil, err
	}

	runtimeOpts := firstNonNil(t.RuntimeOptions, s.RuntimeOptions)
	command = append(command, splitOptions(runtimeOpts)...)

	args := firstNonNil(t.Arguments, nil)
	command = append(command, splitOptions(args)...)

	outPath := s.stdoutPath(cfg, t)
	outFile, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("core: create stdout file: %w", err)
	}

	var stdin io.Reader
	testStdin := s.testStdinPath(cfg, t)
	scenarioStdin := s.scenarioStdinPath(cfg)
	switch {
	case fileExists(testStdin):
		f, err := os.Open(testStdin)
		if err != nil {
			return nil, err
		}
		stdin = f
	case fileExists(scenarioStdin):
		f, err := os.Open(scenarioStdin)
		if err != nil {
			return nil, err
		}
		stdin = f
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Stdout = outFile
	cmd.Stderr = new(bytes.Buffer)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	withSignalEnv(cmd, cfg)
	if len(extraEnv) > 0 {
		cmd.Env = append(cmd.Env, extraEnv...)
	}
	if len(extraFiles) > 0 {
		cmd.ExtraFiles = extraFiles
	}
	return cmd, nil
}

// ExecTestAsync starts the built test's process with no extra control
// channel plumbing. The caller owns the returned *exec.Cmd and must Wait it.
func (s *Scenario) ExecTestAsync(cfg *config.Config, t *Test) (*exec.Cmd, error) {
	cmd, err := s.PrepareExecCmd(cfg, t, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("core: spawn test: %w", err)
	}
	return cmd, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// VerifyTest compares the recorded stdout against the expected fixture,
// iterations times: the stdout file holds one concatenated copy of the
// program's output per iteration, and each must match byte-for-byte.
func (s *Scenario) VerifyTest(cfg *config.Config, t *Test, iterations int) (Result, error) {
	expectedPath := s.TestExpectedStdoutPath(cfg, t)
	if !fileExists(expectedPath) {
		expectedPath = s.ScenarioExpectedStdoutPath(cfg)
		if !fileExists(expectedPath) {
			return Success(), nil
		}
	}

	expected, err := os.ReadFile(expectedPath)
	if err != nil {
		return Result{}, fmt.Errorf("core: read expected stdout: %w", err)
	}

	f, err := os.Open(s.stdoutPath(cfg, t))
	if err != nil {
		return Result{}, fmt.Errorf("core: open recorded stdout: %w", err)
	}
	defer f.Close()

	buf := make([]byte, len(expected))
	for i := 0; i < iterations; i++ {
		_, err := io.ReadFull(f, buf)
		switch {
		case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
			return FailedWith(1, "", fmt.Sprintf(
				"test %q got unexpected stdout for iteration %d: output too short", s.testName(t), i+1)), nil
		case err != nil:
			return Result{}, fmt.Errorf("core: read recorded stdout: %w", err)
		}
		if !bytes.Equal(buf, expected) {
			return FailedWith(1, "", fmt.Sprintf(
				"test %q got unexpected stdout for iteration %d: content unequal", s.testName(t), i+1)), nil
		}
	}

	extra := make([]byte, 1)
	n, err := f.Read(extra)
	if err != nil && !errors.Is(err, io.EOF) {
		return Result{}, fmt.Errorf("core: read trailing stdout: %w", err)
	}
	if n > 0 {
		return FailedWith(1, "test has more output than expected", ""), nil
	}
	return Success(), nil
}

func (s *Scenario) prepareCsBuild(cfg *config.Config, t *Test) error {
	if s.Framework == nil {
		return errors.New("core: a .NET framework is required for C# scenarios")
	}
	deps := firstDeps(t.Dependencies, s.Dependencies)
	var depXML strings.Builder
	for _, d := range deps {
		version := "*"
		if d.Version != nil {
			version = *d.Version
		}
		fmt.Fprintf(&depXML, "<PackageReference Include=\"%s\" Version=\"%s\" />\n", d.Name, version)
	}
	content := fmt.Sprintf(`<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>%s</TargetFramework>
  </PropertyGroup>
  <ItemGroup>%s</ItemGroup>
</Project>`, *s.Framework, depXML.String())
	path := filepath.Join(s.ScenarioDir(cfg), "Program.csproj")
	return os.WriteFile(path, []byte(content), 0o644)
}

func (s *Scenario) prepareRustBuild(cfg *config.Config, t *Test) error {
	deps := firstDeps(t.Dependencies, s.Dependencies)
	var depTOML strings.Builder
	for _, d := range deps {
		version := "*"
		if d.Version != nil {
			version = *d.Version
		}
		fmt.Fprintf(&depTOML, "%s = %q\n", d.Name, version)
	}
	content := fmt.Sprintf(`[package]
name = "program"
version = "0.1.0"
edition = "2024"

[[bin]]
name = "program"
path = "main.rs"

[dependencies]
%s`, depTOML.String())
	path := filepath.Join(s.ScenarioDir(cfg), "Cargo.toml")
	return os.WriteFile(path, []byte(content), 0o644)
}

func firstDeps(a, b []Dependency) []Dependency {
	if a != nil {
		return a
	}
	return b
}
