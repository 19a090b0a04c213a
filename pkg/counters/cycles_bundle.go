//go:build linux

package counters

import "fmt"

// CyclesBundle sums PERF_COUNT_HW_CPU_CYCLES across every targeted logical
// CPU, giving total CPU cycles spent across all cores during the window.
type CyclesBundle struct {
	fds []int
}

func NewCyclesBundle(cpus []int) (*CyclesBundle, error) {
	if len(cpus) == 0 {
		var err error
		cpus, err = onlineCPUs()
		if err != nil {
			return nil, err
		}
	}

	fds := make([]int, 0, len(cpus))
	for _, cpu := range cpus {
		fd, err := openCounter(perfTypeHardware, perfCountHWCPUCycles, cpu, -1)
		if err != nil {
			closeAll(fds)
			return nil, fmt.Errorf("counters: cycles bundle: %w", err)
		}
		fds = append(fds, fd)
	}
	return &CyclesBundle{fds: fds}, nil
}

func (b *CyclesBundle) Reset() error { return resetAll(b.fds) }
func (b *CyclesBundle) Enable() error { return enableAll(b.fds) }
func (b *CyclesBundle) Disable() error { return disableAll(b.fds) }

func (b *CyclesBundle) Read() (map[string]float64, error) {
	total, err := sumCounters(b.fds)
	if err != nil {
		return nil, err
	}
	return map[string]float64{"cycles": float64(total)}, nil
}

func (b *CyclesBundle) Close() error { return closeAll(b.fds) }
