package driver

import "fmt"

// Mode selects which of the three cooperative protocols a test runs under.
type Mode string

const (
	// Process measures the entire lifetime of a freshly spawned child; the
	// child needs no awareness of the harness at all.
	Process Mode = "process"
	// External measures one cooperative window per spawned child: the
	// child calls start_measurement/end_measurement exactly once, then
	// exits.
	External Mode = "external"
	// Internal measures N cooperative windows inside one long-lived
	// child: the child loops, calling next_iteration/mark_end once per
	// window.
	Internal Mode = "internal"
)

// ParseMode validates a CLI/scenario mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Process, External, Internal:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("driver: unknown mode %q", s)
	}
}
