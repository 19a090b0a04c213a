//go:build linux

// Package counters implements the Bundle abstraction: a uniform
// reset/enable/disable/read lifecycle over the heterogeneous hardware and
// software counters a measurement window can report. Every perf-backed
// bundle opens raw Linux perf_event file descriptors directly through
// golang.org/x/sys/unix rather than hand-rolling the syscall, matching how
// the rest of this module leans on that package for low-level Linux access.
package counters

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Stable perf_event_open ABI values from linux/perf_event.h. x/sys/unix
// exports the PerfEventAttr struct and the PerfEventOpen syscall wrapper
// but, unlike its PERF_EVENT_IOC_* ioctl numbers, does not re-export the
// event-type/config enums; they are part of the frozen uapi and safe to
// hardcode.
const (
	perfTypeHardware = 0
	perfTypeSoftware = 1
	perfTypeHWCache  = 3

	perfCountHWCPUCycles        = 0
	perfCountHWBranchMisses     = 5
	perfCountHWCacheL1D         = 0
	perfCountHWCacheL1I         = 1
	perfCountHWCacheLL          = 2
	perfCountHWCacheOpRead      = 0
	perfCountHWCacheResultMiss  = 1
)

func cacheConfig(cacheID, opID, resultID uint64) uint64 {
	return cacheID | (opID << 8) | (resultID << 16)
}

// openCounter opens a single perf_event counter, created disabled so the
// driver controls exactly when it starts counting.
func openCounter(typ uint32, config uint64, cpu, pid int) (int, error) {
	attr := unix.PerfEventAttr{
		Type:   typ,
		Size:   uint32(unsafe.Sizeof(unix.PerfEventAttr{})),
		Config: config,
		Bits:   unix.PerfBitDisabled | unix.PerfBitInherit,
	}
	fd, err := unix.PerfEventOpen(&attr, pid, cpu, -1, unix.PERF_FLAG_FD_CLOEXEC)
	if err != nil {
		return -1, fmt.Errorf("counters: perf_event_open(type=%d config=%#x cpu=%d): %w", typ, config, cpu, err)
	}
	return fd, nil
}

// pmuType reads the dynamically-assigned type number for a named PMU, e.g.
// "power" or "cstate_core", from sysfs.
func pmuType(name string) (uint32, error) {
	data, err := os.ReadFile(fmt.Sprintf("/sys/bus/event_source/devices/%s/type", name))
	if err != nil {
		return 0, fmt.Errorf("counters: pmu %q unavailable: %w", name, err)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("counters: parse pmu %q type: %w", name, err)
	}
	return uint32(n), nil
}

// pmuEventConfig reads a dynamic PMU's per-event config string (of the form
// "event=0x02") and returns the numeric config to pass to perf_event_open.
func pmuEventConfig(pmu, event string) (uint64, error) {
	data, err := os.ReadFile(fmt.Sprintf("/sys/bus/event_source/devices/%s/events/%s", pmu, event))
	if err != nil {
		return 0, fmt.Errorf("counters: pmu %q event %q unavailable: %w", pmu, event, err)
	}
	return parseEventConfig(strings.TrimSpace(string(data)))
}

// pmuEventScale reads the optional "<event>.scale" file a dynamic PMU event
// may publish: the multiplier to convert a raw count into its documented
// unit (Joules, for the power PMU). A missing scale file means 1.0.
func pmuEventScale(pmu, event string) float64 {
	data, err := os.ReadFile(fmt.Sprintf("/sys/bus/event_source/devices/%s/events/%s.scale", pmu, event))
	if err != nil {
		return 1.0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 1.0
	}
	return v
}

// parseEventConfig parses sysfs event description strings such as
// "event=0x02" or "event=0x3c,umask=0x01" into a single config value. Only
// the (common, single-term) "event=" term is needed by the PMUs this
// package opens.
func parseEventConfig(desc string) (uint64, error) {
	for _, term := range strings.Split(desc, ",") {
		kv := strings.SplitN(term, "=", 2)
		if len(kv) != 2 || kv[0] != "event" {
			continue
		}
		v := strings.TrimPrefix(kv[1], "0x")
		n, err := strconv.ParseUint(v, 16, 64)
		if err != nil {
			return 0, fmt.Errorf("counters: parse event config %q: %w", desc, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("counters: no event= term in %q", desc)
}

// dynamicPMUEvents lists every event file under a dynamic PMU's events/
// directory, used to discover which cstate residency counters this kernel
// actually exposes.
func dynamicPMUEvents(pmu string) ([]string, error) {
	entries, err := os.ReadDir(fmt.Sprintf("/sys/bus/event_source/devices/%s/events", pmu))
	if err != nil {
		return nil, fmt.Errorf("counters: list pmu %q events: %w", pmu, err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".scale") || strings.HasSuffix(e.Name(), ".unit") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func readCounter(fd int) (uint64, error) {
	buf := make([]byte, 8)
	n, err := unix.Read(fd, buf)
	if err != nil {
		return 0, fmt.Errorf("counters: read perf fd: %w", err)
	}
	if n != 8 {
		return 0, fmt.Errorf("counters: short perf read (%d bytes)", n)
	}
	return le64(buf), nil
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func enableCounter(fd int) error {
	return unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_ENABLE, 0)
}

func disableCounter(fd int) error {
	return unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_DISABLE, 0)
}

func resetCounter(fd int) error {
	return unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_RESET, 0)
}

// onlineCPUs returns the set of logical CPUs online on this host.
func onlineCPUs() ([]int, error) {
	data, err := os.ReadFile("/sys/devices/system/cpu/online")
	if err != nil {
		return nil, fmt.Errorf("counters: read online cpus: %w", err)
	}
	return parseCPUList(strings.TrimSpace(string(data)))
}

// parseCPUList parses Linux's "0-3,5,7-8" CPU list format.
func parseCPUList(s string) ([]int, error) {
	var cpus []int
	for _, part := range strings.Split(s, ",") {
		if part == "" {
			continue
		}
		if strings.Contains(part, "-") {
			bounds := strings.SplitN(part, "-", 2)
			lo, err := strconv.Atoi(bounds[0])
			if err != nil {
				return nil, err
			}
			hi, err := strconv.Atoi(bounds[1])
			if err != nil {
				return nil, err
			}
			for c := lo; c <= hi; c++ {
				cpus = append(cpus, c)
			}
		} else {
			c, err := strconv.Atoi(part)
			if err != nil {
				return nil, err
			}
			cpus = append(cpus, c)
		}
	}
	return cpus, nil
}

func resetAll(fds []int) error {
	for _, fd := range fds {
		if err := resetCounter(fd); err != nil {
			return err
		}
	}
	return nil
}

func enableAll(fds []int) error {
	for _, fd := range fds {
		if err := enableCounter(fd); err != nil {
			return err
		}
	}
	return nil
}

func disableAll(fds []int) error {
	for _, fd := range fds {
		if err := disableCounter(fd); err != nil {
			return err
		}
	}
	return nil
}

func sumCounters(fds []int) (uint64, error) {
	var total uint64
	for _, fd := range fds {
		v, err := readCounter(fd)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

func closeAll(fds []int) error {
	var firstErr error
	for _, fd := range fds {
		if err := unix.Close(fd); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// physicalCoreRepresentatives returns one logical CPU per physical core
// (the lowest-numbered sibling), used by per-core cstate events that would
// otherwise double count hyperthread siblings.
func physicalCoreRepresentatives(cpus []int) []int {
	seen := map[string]bool{}
	var reps []int
	for _, cpu := range cpus {
		data, err := os.ReadFile(fmt.Sprintf("/sys/devices/system/cpu/cpu%d/topology/core_id", cpu))
		key := strings.TrimSpace(string(data))
		if err != nil || key == "" {
			// topology unavailable: treat every logical CPU as its own core
			reps = append(reps, cpu)
			continue
		}
		if !seen[key] {
			seen[key] = true
			reps = append(reps, cpu)
		}
	}
	return reps
}
