//go:build linux

package counters

import "fmt"

// MissesBundle sums L1 data, L1 instruction, and last-level cache
// read-misses, plus branch mispredictions, across every targeted CPU.
type MissesBundle struct {
	l1d, l1i, llc, branch []int
}

func NewMissesBundle(cpus []int) (*MissesBundle, error) {
	if len(cpus) == 0 {
		var err error
		cpus, err = onlineCPUs()
		if err != nil {
			return nil, err
		}
	}

	b := &MissesBundle{}
	open := func(cacheID uint64) ([]int, error) {
		config := cacheConfig(cacheID, perfCountHWCacheOpRead, perfCountHWCacheResultMiss)
		var fds []int
		for _, cpu := range cpus {
			fd, err := openCounter(perfTypeHWCache, config, cpu, -1)
			if err != nil {
				closeAll(fds)
				return nil, err
			}
			fds = append(fds, fd)
		}
		return fds, nil
	}

	var err error
	if b.l1d, err = open(perfCountHWCacheL1D); err != nil {
		return nil, fmt.Errorf("counters: misses bundle (l1d): %w", err)
	}
	if b.l1i, err = open(perfCountHWCacheL1I); err != nil {
		b.Close()
		return nil, fmt.Errorf("counters: misses bundle (l1i): %w", err)
	}
	if b.llc, err = open(perfCountHWCacheLL); err != nil {
		b.Close()
		return nil, fmt.Errorf("counters: misses bundle (llc): %w", err)
	}
	for _, cpu := range cpus {
		fd, err := openCounter(perfTypeHardware, perfCountHWBranchMisses, cpu, -1)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("counters: misses bundle (branch): %w", err)
		}
		b.branch = append(b.branch, fd)
	}
	return b, nil
}

func (b *MissesBundle) all() [][]int { return [][]int{b.l1d, b.l1i, b.llc, b.branch} }

func (b *MissesBundle) Reset() error {
	for _, fds := range b.all() {
		if err := resetAll(fds); err != nil {
			return err
		}
	}
	return nil
}

func (b *MissesBundle) Enable() error {
	for _, fds := range b.all() {
		if err := enableAll(fds); err != nil {
			return err
		}
	}
	return nil
}

func (b *MissesBundle) Disable() error {
	for _, fds := range b.all() {
		if err := disableAll(fds); err != nil {
			return err
		}
	}
	return nil
}

func (b *MissesBundle) Read() (map[string]float64, error) {
	l1d, err := sumCounters(b.l1d)
	if err != nil {
		return nil, err
	}
	l1i, err := sumCounters(b.l1i)
	if err != nil {
		return nil, err
	}
	llc, err := sumCounters(b.llc)
	if err != nil {
		return nil, err
	}
	branch, err := sumCounters(b.branch)
	if err != nil {
		return nil, err
	}
	return map[string]float64{
		"l1d_misses":    float64(l1d),
		"l1i_misses":    float64(l1i),
		"llc_misses":    float64(llc),
		"branch_misses": float64(branch),
	}, nil
}

func (b *MissesBundle) Close() error {
	var firstErr error
	for _, fds := range b.all() {
		if err := closeAll(fds); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
