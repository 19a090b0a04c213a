//go:build linux

// Package driver implements the measurement driver: given a Scenario and
// its Tests, it builds each test, spawns the child under the resolved
// measurement mode, drives the counter bundles and (where applicable) the
// control channel around the hot region, and appends one record per
// measured iteration to the output CSV.
package driver

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/PLEnergyDev/green-languages/pkg/config"
	"github.com/PLEnergyDev/green-languages/pkg/core"
	"github.com/PLEnergyDev/green-languages/pkg/counters"
	"github.com/PLEnergyDev/green-languages/pkg/logging"
	"github.com/PLEnergyDev/green-languages/pkg/record"
)

// readyTimeout bounds how long the driver waits for a child to announce
// READY before treating the channel as failed; it matches the signal
// library's own self-abort timeout so the two sides never disagree about
// liveness.
const readyTimeout = 60 * time.Second

// Defaults carries the CLI-level fallback mode/affinity/niceness applied
// when neither the Test nor its Scenario specifies one.
type Defaults struct {
	Mode     Mode
	Affinity []int
	Niceness int
}

// Driver runs every test of every scenario handed to it and appends their
// measurement records to one output CSV.
type Driver struct {
	cfg        *config.Config
	log        *zap.SugaredLogger
	bundleCfg  counters.Config
	iterations int
	sleep      time.Duration
	defaults   Defaults
	writer     *record.Writer
}

// New builds a Driver, opening (or creating) the output CSV up front so a
// misconfigured output path fails before any scenario work starts.
func New(cfg *config.Config, log *zap.SugaredLogger, bundleCfg counters.Config, iterations int, sleep time.Duration, outputPath string, defaults Defaults) (*Driver, error) {
	w, err := record.NewWriter(outputPath, canonicalCStateColumns())
	if err != nil {
		return nil, newError(OutputWriteFailed, "open output csv", err)
	}
	return &Driver{
		cfg:        cfg,
		log:        log,
		bundleCfg:  bundleCfg,
		iterations: iterations,
		sleep:      sleep,
		defaults:   defaults,
		writer:     w,
	}, nil
}

func (d *Driver) Close() error { return d.writer.Close() }

// RunScenarioFile loads one scenario file (one Scenario document followed by
// any number of Test documents) and processes every test in it. A fatal
// error (output-write failure, or a counter-open failure for an explicitly
// requested event) aborts the whole run; every other per-test error is
// logged and the driver moves on.
func (d *Driver) RunScenarioFile(path string) error {
	scenario, err := core.LoadScenario(path)
	if err != nil {
		return fmt.Errorf("driver: load scenario %s: %w", path, err)
	}
	tests, err := core.IterateTests(path)
	if err != nil {
		return fmt.Errorf("driver: load tests %s: %w", path, err)
	}

	for i := range tests {
		t := &tests[i]
		if derr := d.processTest(scenario, t, i); derr != nil {
			name := testName(t, i)
			ctx := logging.Context(d.log, string(scenario.Language), scenario.Name, name,
				string(d.resolveMode(scenario, t)), d.resolveNiceness(scenario, t), affinityString(d.resolveAffinity(scenario, t)))
			ctx.Errorw(derr.Error(), "kind", derr.Kind)
			if derr.Fatal() {
				return derr
			}
		}
	}
	return nil
}

func testName(t *core.Test, index int) string {
	if t.Name != nil {
		return *t.Name
	}
	return fmt.Sprintf("%d", index)
}

func (d *Driver) resolveMode(s *core.Scenario, t *core.Test) Mode {
	if t.Mode != nil {
		if m, err := ParseMode(*t.Mode); err == nil {
			return m
		}
	}
	if s.Mode != nil {
		if m, err := ParseMode(*s.Mode); err == nil {
			return m
		}
	}
	return d.defaults.Mode
}

func (d *Driver) resolveAffinity(s *core.Scenario, t *core.Test) []int {
	if t.Affinity != nil {
		return t.Affinity
	}
	if s.Affinity != nil {
		return s.Affinity
	}
	return d.defaults.Affinity
}

func (d *Driver) resolveNiceness(s *core.Scenario, t *core.Test) int {
	if t.Niceness != nil {
		return *t.Niceness
	}
	if s.Niceness != nil {
		return *s.Niceness
	}
	return d.defaults.Niceness
}

// processTest builds, measures, and verifies one test.
func (d *Driver) processTest(s *core.Scenario, t *core.Test, index int) *Error {
	mode := d.resolveMode(s, t)
	affinity := d.resolveAffinity(s, t)
	niceness := d.resolveNiceness(s, t)

	buildResult, err := s.BuildTest(d.cfg, t, index)
	if err != nil {
		return newError(BuildFailed, "build test", err)
	}
	name := testName(t, index)
	log := logging.Context(d.log, string(s.Language), s.Name, name, string(mode), niceness, affinityString(affinity))

	if !buildResult.Success {
		log.Errorw("build failed", "exit_code", buildResult.ExitCode, "stderr", buildResult.Stderr)
		return newError(BuildFailed, fmt.Sprintf("build exited with code %d", buildResult.ExitCode), nil)
	}

	if d.iterations == 0 {
		return nil
	}

	bundleCfg := d.bundleCfg
	bundleCfg.CPUs = affinity
	bundles, errs := counters.CreateBundles(bundleCfg)
	for _, e := range errs {
		log.Warnw("bundle unavailable", "error", e)
	}
	if kind, bad := explicitBundleFailure(bundleCfg, bundles); bad {
		closeBundles(bundles)
		return newError(kind, "an explicitly requested counter could not be opened", firstErr(errs))
	}
	defer closeBundles(bundles)

	var derr *Error
	switch mode {
	case Process:
		derr = d.runProcess(log, s, t, name, affinity, niceness, bundles)
	case External:
		derr = d.runExternal(log, s, t, name, affinity, niceness, bundles)
	case Internal:
		derr = d.runInternal(log, s, t, name, affinity, niceness, bundles)
	default:
		derr = newError(SpawnFailed, fmt.Sprintf("unknown mode %q", mode), nil)
	}
	if derr != nil {
		return derr
	}

	verifyIterations := 1
	if mode == Internal {
		verifyIterations = d.iterations
	}
	result, err := s.VerifyTest(d.cfg, t, verifyIterations)
	if err != nil {
		return newError(VerificationFailed, "verify stdout", err)
	}
	if !result.Success {
		log.Errorw("verification failed", "detail", result.Stdout+result.Stderr)
		return newError(VerificationFailed, result.Stdout+result.Stderr, nil)
	}
	return nil
}

// explicitBundleFailure reports whether a bundle the caller explicitly
// requested (via a true Config flag) failed to build at all, and which
// error kind that failure should surface as.
func explicitBundleFailure(cfg counters.Config, built []counters.Bundle) (ErrorKind, bool) {
	has := func(check func(counters.Bundle) bool) bool {
		for _, b := range built {
			if check(b) {
				return true
			}
		}
		return false
	}
	isRapl := func(b counters.Bundle) bool { _, ok := b.(*counters.RaplBundle); return ok }
	isCycles := func(b counters.Bundle) bool { _, ok := b.(*counters.CyclesBundle); return ok }
	isMisses := func(b counters.Bundle) bool { _, ok := b.(*counters.MissesBundle); return ok }
	isCState := func(b counters.Bundle) bool { _, ok := b.(*counters.CStateBundle); return ok }

	if cfg.Rapl && !has(isRapl) {
		return RaplUnavailable, true
	}
	if cfg.Cycles && !has(isCycles) {
		return CounterOpenFailed, true
	}
	if cfg.Misses && !has(isMisses) {
		return CounterOpenFailed, true
	}
	if cfg.CStates && !has(isCState) {
		return CounterOpenFailed, true
	}
	return "", false
}

func firstErr(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}
