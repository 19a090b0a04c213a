//go:build linux

package counters

import "fmt"

const raplPMU = "power"

// raplEvents pairs each energy event's column name with its sysfs event file
// name; RAPL domains vary by CPU generation, so any that this kernel
// doesn't expose are silently skipped rather than failing the bundle.
var raplEvents = []struct {
	column string
	event  string
}{
	{"pkg", "energy-pkg"},
	{"cores", "energy-cores"},
	{"gpu", "energy-gpu"},
	{"ram", "energy-ram"},
	{"psys", "energy-psys"},
}

type raplCounter struct {
	column string
	fd     int
	scale  float64
}

// RaplBundle reads RAPL (Running Average Power Limit) energy counters
// through the kernel's "power" perf PMU. RAPL domains are package-scoped,
// not per-core, so every counter is opened once, pinned to CPU 0.
type RaplBundle struct {
	counters []raplCounter
}

func NewRaplBundle() (*RaplBundle, error) {
	typ, err := pmuType(raplPMU)
	if err != nil {
		return nil, fmt.Errorf("counters: rapl bundle: %w", err)
	}

	b := &RaplBundle{}
	for _, ev := range raplEvents {
		config, err := pmuEventConfig(raplPMU, ev.event)
		if err != nil {
			continue // domain not present on this CPU
		}
		fd, err := openCounter(typ, config, 0, -1)
		if err != nil {
			continue
		}
		scale := pmuEventScale(raplPMU, ev.event)
		b.counters = append(b.counters, raplCounter{column: ev.column, fd: fd, scale: scale})
	}
	if len(b.counters) == 0 {
		return nil, fmt.Errorf("counters: rapl bundle: no energy domains available")
	}
	return b, nil
}

func (b *RaplBundle) fds() []int {
	fds := make([]int, len(b.counters))
	for i, c := range b.counters {
		fds[i] = c.fd
	}
	return fds
}

func (b *RaplBundle) Reset() error   { return resetAll(b.fds()) }
func (b *RaplBundle) Enable() error  { return enableAll(b.fds()) }
func (b *RaplBundle) Disable() error { return disableAll(b.fds()) }

func (b *RaplBundle) Read() (map[string]float64, error) {
	out := make(map[string]float64, len(b.counters))
	for _, c := range b.counters {
		raw, err := readCounter(c.fd)
		if err != nil {
			return nil, fmt.Errorf("counters: rapl read %s: %w", c.column, err)
		}
		out[c.column] = float64(raw) * c.scale
	}
	return out, nil
}

func (b *RaplBundle) Close() error { return closeAll(b.fds()) }
