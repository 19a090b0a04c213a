//go:build linux

package counters

import "time"

// TimeBundle measures wall-clock duration of the window in microseconds.
// It is always present: every other bundle's energy-per-second or
// residency-fraction columns are meaningless without it, and the driver's
// enable/disable ordering rule keeps Time outermost so its window always
// covers every other bundle's.
type TimeBundle struct {
	start     time.Time
	elapsedUs float64
	// report controls whether Read exposes the "time" column. The bundle
	// itself always enables/disables (it defines the outermost window for
	// every other bundle, per the enable-Time-last/disable-Time-first
	// rule) even when the CLI's --time flag wasn't passed.
	report bool
}

// NewTimeBundle constructs the bundle that always participates in window
// timing. report selects whether its value is surfaced as a "time" column
// (the CLI's --time flag) or only used internally to bound the window.
func NewTimeBundle(report bool) *TimeBundle { return &TimeBundle{report: report} }

func (b *TimeBundle) Reset() error  { b.elapsedUs = 0; return nil }
func (b *TimeBundle) Enable() error { b.start = time.Now(); return nil }
func (b *TimeBundle) Disable() error {
	b.elapsedUs = float64(time.Since(b.start).Microseconds())
	return nil
}
func (b *TimeBundle) Read() (map[string]float64, error) {
	if !b.report {
		return map[string]float64{}, nil
	}
	return map[string]float64{"time": b.elapsedUs}, nil
}
func (b *TimeBundle) Close() error { return nil }
