//go:build linux

package counters

// Bundle is a group of related counters sharing one reset/enable/disable/
// read lifecycle. The driver resets and enables every configured bundle
// immediately before a measured window, disables them all immediately
// after, then reads each one — mirroring the {reset, enable, disable, read}
// contract every counter in the original tool implements.
type Bundle interface {
	// Reset zeroes accumulated counts without changing the enabled state.
	Reset() error
	// Enable starts counting.
	Enable() error
	// Disable stops counting; Read is only meaningful after Disable.
	Disable() error
	// Read returns one value per column this bundle contributes to the
	// measurement record, keyed by column name.
	Read() (map[string]float64, error)
	// Close releases OS resources (perf fds, collectors). Safe to call
	// once all work with the bundle is done.
	Close() error
}

// Config selects which optional bundles a run should collect, mirroring
// the CLI's --rapl/--cycles/--misses/--cstates flags.
type Config struct {
	Time    bool
	Rapl    bool
	Cycles  bool
	Misses  bool
	CStates bool

	// CPUs restricts hardware counters to this logical CPU set. Empty
	// means "every online CPU".
	CPUs []int
}

// CreateBundles returns every bundle enabled by cfg, plus the always-on
// TimeBundle. Bundles that fail to initialize (hardware/kernel support
// missing) are left out of the returned list and their errors returned
// alongside it; CreateBundles itself never aborts, and what a failure means
// for the run is decided by the caller. Only the Time bundle is always built.
func CreateBundles(cfg Config) ([]Bundle, []error) {
	var bundles []Bundle
	var errs []error

	bundles = append(bundles, NewTimeBundle(cfg.Time))

	if cfg.Rapl {
		b, err := NewRaplBundle()
		if err != nil {
			errs = append(errs, err)
		} else {
			bundles = append(bundles, b)
		}
	}
	if cfg.Cycles {
		b, err := NewCyclesBundle(cfg.CPUs)
		if err != nil {
			errs = append(errs, err)
		} else {
			bundles = append(bundles, b)
		}
	}
	if cfg.Misses {
		b, err := NewMissesBundle(cfg.CPUs)
		if err != nil {
			errs = append(errs, err)
		} else {
			bundles = append(bundles, b)
		}
	}
	if cfg.CStates {
		b, err := NewCStateBundle(cfg.CPUs)
		if err != nil {
			errs = append(errs, err)
		} else {
			bundles = append(bundles, b)
		}
	}

	return bundles, errs
}
