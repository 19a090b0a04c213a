//go:build linux

package counters

import (
	"fmt"
	"strings"
)

const (
	cstateCorePMU = "cstate_core"
	cstatePkgPMU  = "cstate_pkg"
)

type cstateCounter struct {
	column string // e.g. "c6_core_residency" or "c2_pkg_residency"
	fd     int
}

// CStateBundle reads C-state residency counters: per-core events (summed
// across one representative logical CPU per physical core, to avoid
// double-counting hyperthread siblings) and per-package events (read once,
// pinned to CPU 0 — package C-states aren't per-core).
type CStateBundle struct {
	counters []cstateCounter
}

func NewCStateBundle(cpus []int) (*CStateBundle, error) {
	if len(cpus) == 0 {
		var err error
		cpus, err = onlineCPUs()
		if err != nil {
			return nil, err
		}
	}
	cores := physicalCoreRepresentatives(cpus)

	b := &CStateBundle{}

	if typ, err := pmuType(cstateCorePMU); err == nil {
		events, _ := dynamicPMUEvents(cstateCorePMU)
		for _, ev := range events {
			config, err := pmuEventConfig(cstateCorePMU, ev)
			if err != nil {
				continue
			}
			column := collapseResidencyKey(ev) + "_core_residency"
			for _, cpu := range cores {
				fd, err := openCounter(typ, config, cpu, -1)
				if err != nil {
					continue
				}
				b.counters = append(b.counters, cstateCounter{column: column, fd: fd})
			}
		}
	}

	if typ, err := pmuType(cstatePkgPMU); err == nil {
		events, _ := dynamicPMUEvents(cstatePkgPMU)
		for _, ev := range events {
			config, err := pmuEventConfig(cstatePkgPMU, ev)
			if err != nil {
				continue
			}
			fd, err := openCounter(typ, config, 0, -1)
			if err != nil {
				continue
			}
			column := collapseResidencyKey(ev) + "_pkg_residency"
			b.counters = append(b.counters, cstateCounter{column: column, fd: fd})
		}
	}

	if len(b.counters) == 0 {
		return nil, fmt.Errorf("counters: cstate bundle: no residency counters available")
	}
	return b, nil
}

// collapseResidencyKey turns a raw event file name like "c6-residency"
// (sometimes suffixed per-die, e.g. "c6-residency_3") into its canonical
// "c6" prefix, so a system with many dies still reports one c6_core_residency
// column rather than one per die.
func collapseResidencyKey(event string) string {
	name := event
	if i := strings.Index(name, "-residency"); i >= 0 {
		name = name[:i]
	}
	if i := strings.Index(name, "_"); i >= 0 {
		name = name[:i]
	}
	return name
}

func (b *CStateBundle) fds() []int {
	fds := make([]int, len(b.counters))
	for i, c := range b.counters {
		fds[i] = c.fd
	}
	return fds
}

func (b *CStateBundle) Reset() error   { return resetAll(b.fds()) }
func (b *CStateBundle) Enable() error  { return enableAll(b.fds()) }
func (b *CStateBundle) Disable() error { return disableAll(b.fds()) }

func (b *CStateBundle) Read() (map[string]float64, error) {
	out := map[string]float64{}
	for _, c := range b.counters {
		raw, err := readCounter(c.fd)
		if err != nil {
			return nil, fmt.Errorf("counters: cstate read %s: %w", c.column, err)
		}
		out[c.column] += float64(raw)
	}
	return out, nil
}

func (b *CStateBundle) Close() error { return closeAll(b.fds()) }
