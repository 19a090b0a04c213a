//go:build linux

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/PLEnergyDev/green-languages/pkg/config"
	"github.com/PLEnergyDev/green-languages/pkg/counters"
	"github.com/PLEnergyDev/green-languages/pkg/driver"
	"github.com/PLEnergyDev/green-languages/pkg/logging"
)

type opts struct {
	iterations int
	sleep      int

	rapl    bool
	cycles  bool
	misses  bool
	cstates bool
	time    bool

	affinity string
	niceness int
	output   string
	mode     string

	verbose bool
	quiet   bool
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "measure [scenario-file]...",
		Short: "Measure the runtime resource consumption of scenario programs",
		Long: `measure builds and runs scenario programs written in any supported source
language, isolating a hot region of execution to measure its energy, CPU
performance counters, cache misses, branch mispredictions, C-state
residencies, and wall-clock time, and appends one row per measured
iteration to a results CSV.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(o, args)
		},
	}

	root.Flags().IntVarP(&o.iterations, "iterations", "i", 1, "number of measurement iterations per test")
	root.Flags().IntVarP(&o.sleep, "sleep", "s", 0, "seconds to sleep between iterations")

	root.Flags().BoolVar(&o.rapl, "rapl", false, "collect RAPL energy domains")
	root.Flags().BoolVar(&o.cycles, "cycles", false, "collect CPU cycle counts")
	root.Flags().BoolVar(&o.misses, "misses", false, "collect cache-miss and branch-misprediction counts")
	root.Flags().BoolVar(&o.cstates, "cstates", false, "collect C-state residency counters")
	root.Flags().BoolVar(&o.time, "time", false, "collect wall-clock window duration")

	root.Flags().StringVar(&o.affinity, "affinity", "", "comma-separated CPU indices to pin the child (and counters) to")
	root.Flags().IntVar(&o.niceness, "niceness", 0, "scheduling niceness applied to the child")
	root.Flags().StringVarP(&o.output, "output", "o", "measurements.csv", "output CSV path")
	root.Flags().StringVar(&o.mode, "mode", "process", "default measurement mode: process, external, or internal")

	root.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "enable debug logging")
	root.Flags().BoolVarP(&o.quiet, "quiet", "q", false, "suppress info logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(o opts, scenarioPaths []string) error {
	if !o.rapl && !o.cycles && !o.misses && !o.cstates && !o.time {
		return fmt.Errorf("No events specified")
	}

	log, err := logging.New(o.verbose, o.quiet)
	if err != nil {
		return err
	}
	defer log.Sync()

	mode, err := driver.ParseMode(o.mode)
	if err != nil {
		return err
	}
	affinity, err := parseAffinity(o.affinity)
	if err != nil {
		return err
	}

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("resolve config: %w", err)
	}

	bundleCfg := counters.Config{
		Time:    o.time,
		Rapl:    o.rapl,
		Cycles:  o.cycles,
		Misses:  o.misses,
		CStates: o.cstates,
	}

	defaults := driver.Defaults{
		Mode:     mode,
		Affinity: affinity,
		Niceness: o.niceness,
	}

	d, err := driver.New(cfg, log, bundleCfg, o.iterations, time.Duration(o.sleep)*time.Second, o.output, defaults)
	if err != nil {
		return err
	}
	defer d.Close()

	var fatal error
	for _, path := range scenarioPaths {
		if err := d.RunScenarioFile(path); err != nil {
			log.Errorw("scenario run aborted", "path", path, "error", err)
			fatal = err
			break
		}
	}
	if fatal != nil {
		return fatal
	}
	return nil
}

func parseAffinity(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var cpus []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(part, "%d", &n); err != nil {
			return nil, fmt.Errorf("invalid affinity CPU %q: %w", part, err)
		}
		cpus = append(cpus, n)
	}
	return cpus, nil
}
