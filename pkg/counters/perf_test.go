//go:build linux

package counters

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCPUList(t *testing.T) {
	cases := map[string][]int{
		"0":       {0},
		"0-3":     {0, 1, 2, 3},
		"0,2,4":   {0, 2, 4},
		"0-1,3-4": {0, 1, 3, 4},
		"":        nil,
	}
	for in, want := range cases {
		got, err := parseCPUList(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestParseCPUList_Invalid(t *testing.T) {
	_, err := parseCPUList("x-1")
	require.Error(t, err)
}

func TestParseEventConfig(t *testing.T) {
	v, err := parseEventConfig("event=0x02")
	require.NoError(t, err)
	require.Equal(t, uint64(0x02), v)

	v, err = parseEventConfig("event=0x3c,umask=0x01")
	require.NoError(t, err)
	require.Equal(t, uint64(0x3c), v)
}

func TestParseEventConfig_Missing(t *testing.T) {
	_, err := parseEventConfig("umask=0x01")
	require.Error(t, err)
}

func TestCacheConfig(t *testing.T) {
	got := cacheConfig(perfCountHWCacheL1D, perfCountHWCacheOpRead, perfCountHWCacheResultMiss)
	require.Equal(t, uint64(perfCountHWCacheL1D)|uint64(perfCountHWCacheOpRead)<<8|uint64(perfCountHWCacheResultMiss)<<16, got)
}

func TestPhysicalCoreRepresentatives_FallsBackWhenTopologyMissing(t *testing.T) {
	// On a host/container without /sys/devices/system/cpu/cpuN/topology
	// (common in sandboxes), every logical CPU is treated as its own core
	// rather than erroring.
	reps := physicalCoreRepresentatives([]int{9001, 9002})
	require.ElementsMatch(t, []int{9001, 9002}, reps)
}
