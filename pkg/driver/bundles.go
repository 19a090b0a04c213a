//go:build linux

package driver

import (
	"fmt"
	"strings"

	"github.com/PLEnergyDev/green-languages/pkg/counters"
	"github.com/PLEnergyDev/green-languages/pkg/record"
)

// splitTime separates the always-present TimeBundle from the rest, so the
// caller can enforce the "enable Time last, disable Time first" ordering
// rule: the wall-clock window must bound every other counter's window,
// never the reverse.
func splitTime(bundles []counters.Bundle) (timeBundle counters.Bundle, rest []counters.Bundle) {
	for _, b := range bundles {
		if _, ok := b.(*counters.TimeBundle); ok {
			timeBundle = b
			continue
		}
		rest = append(rest, b)
	}
	return timeBundle, rest
}

func resetBundles(bundles []counters.Bundle) error {
	for _, b := range bundles {
		if err := b.Reset(); err != nil {
			return fmt.Errorf("driver: reset bundle: %w", err)
		}
	}
	return nil
}

func enableBundles(timeBundle counters.Bundle, rest []counters.Bundle) error {
	for _, b := range rest {
		if err := b.Enable(); err != nil {
			return fmt.Errorf("driver: enable bundle: %w", err)
		}
	}
	if timeBundle != nil {
		if err := timeBundle.Enable(); err != nil {
			return fmt.Errorf("driver: enable time bundle: %w", err)
		}
	}
	return nil
}

func disableBundles(timeBundle counters.Bundle, rest []counters.Bundle) error {
	if timeBundle != nil {
		if err := timeBundle.Disable(); err != nil {
			return fmt.Errorf("driver: disable time bundle: %w", err)
		}
	}
	for _, b := range rest {
		if err := b.Disable(); err != nil {
			return fmt.Errorf("driver: disable bundle: %w", err)
		}
	}
	return nil
}

func closeBundles(bundles []counters.Bundle) {
	for _, b := range bundles {
		_ = b.Close()
	}
}

// readBundles merges every bundle's Read() output into one record, setting
// Collected so absent columns stay blank in the CSV rather than reading as
// zero.
func readBundles(bundles []counters.Bundle, rec *record.Record) error {
	if rec.Collected == nil {
		rec.Collected = map[string]bool{}
	}
	if rec.CStateCoreResidency == nil {
		rec.CStateCoreResidency = map[string]float64{}
	}
	if rec.CStatePkgResidency == nil {
		rec.CStatePkgResidency = map[string]float64{}
	}
	for _, b := range bundles {
		values, err := b.Read()
		if err != nil {
			return fmt.Errorf("driver: read bundle: %w", err)
		}
		for name, v := range values {
			applyValue(rec, name, v)
		}
	}
	return nil
}

func applyValue(rec *record.Record, name string, v float64) {
	switch {
	case strings.HasSuffix(name, "_core_residency"):
		rec.CStateCoreResidency[name] = v
		rec.Collected[name] = true
		return
	case strings.HasSuffix(name, "_pkg_residency"):
		rec.CStatePkgResidency[name] = v
		rec.Collected[name] = true
		return
	}

	rec.Collected[name] = true
	switch name {
	case "time":
		rec.TimeUs = v
	case "pkg":
		rec.Pkg = v
	case "cores":
		rec.Cores = v
	case "gpu":
		rec.GPU = v
	case "ram":
		rec.RAM = v
	case "psys":
		rec.Psys = v
	case "cycles":
		rec.Cycles = v
	case "l1d_misses":
		rec.L1DMisses = v
	case "l1i_misses":
		rec.L1IMisses = v
	case "llc_misses":
		rec.LLCMisses = v
	case "branch_misses":
		rec.BranchMisses = v
	default:
		delete(rec.Collected, name) // unknown column, don't claim it
	}
}

// canonicalCStateColumns is the full set of residency columns a run might
// ever report, fixed up front so the CSV header stays identical across
// hosts that expose different C-states and across repeated runs to the same
// output file.
func canonicalCStateColumns() []string {
	cols := []string{}
	for _, x := range []int{1, 3, 6, 7} {
		cols = append(cols, fmt.Sprintf("c%d_core_residency", x))
	}
	for _, y := range []int{2, 3, 6, 8, 10} {
		cols = append(cols, fmt.Sprintf("c%d_pkg_residency", y))
	}
	return cols
}
