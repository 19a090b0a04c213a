//go:build linux

package driver

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// configureChild applies CPU affinity and scheduling niceness to a freshly
// spawned child. Failures are logged as warnings and never abort the
// measurement: the record still reports the affinity/niceness the operator
// requested, and a failed syscall here is visible in the logs rather than in
// silently-wrong counter scope.
func configureChild(log *zap.SugaredLogger, pid int, affinity []int, niceness int) {
	if len(affinity) > 0 {
		var set unix.CPUSet
		set.Zero()
		for _, cpu := range affinity {
			set.Set(cpu)
		}
		if err := unix.SchedSetaffinity(pid, &set); err != nil {
			log.Warnw("failed to set CPU affinity", "pid", pid, "affinity", affinity, "error", err)
		}
	}
	if niceness != 0 {
		if err := unix.Setpriority(unix.PRIO_PROCESS, pid, niceness); err != nil {
			log.Warnw("failed to set niceness", "pid", pid, "niceness", niceness, "error", err)
		}
	}
}

func affinityString(cpus []int) string {
	if len(cpus) == 0 {
		return ""
	}
	s := ""
	for i, c := range cpus {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%d", c)
	}
	return s
}
