//go:build linux

package driver

import (
	"testing"

	"github.com/PLEnergyDev/green-languages/pkg/record"
	"github.com/stretchr/testify/require"
)

func TestCanonicalCStateColumns_Stable(t *testing.T) {
	cols := canonicalCStateColumns()
	require.Equal(t, canonicalCStateColumns(), cols, "must be deterministic across calls")
	require.Contains(t, cols, "c1_core_residency")
	require.Contains(t, cols, "c10_pkg_residency")
}

func TestApplyValue_KnownColumns(t *testing.T) {
	rec := &record.Record{Collected: map[string]bool{}}
	applyValue(rec, "pkg", 3.5)
	applyValue(rec, "cycles", 42)

	require.True(t, rec.Collected["pkg"])
	require.Equal(t, 3.5, rec.Pkg)
	require.True(t, rec.Collected["cycles"])
	require.Equal(t, float64(42), rec.Cycles)
}

func TestApplyValue_CStateResidencyColumns(t *testing.T) {
	rec := &record.Record{
		Collected:           map[string]bool{},
		CStateCoreResidency: map[string]float64{},
		CStatePkgResidency:  map[string]float64{},
	}
	applyValue(rec, "c1_core_residency", 0.1)
	applyValue(rec, "c6_pkg_residency", 0.2)

	require.Equal(t, 0.1, rec.CStateCoreResidency["c1_core_residency"])
	require.Equal(t, 0.2, rec.CStatePkgResidency["c6_pkg_residency"])
	require.True(t, rec.Collected["c1_core_residency"])
	require.True(t, rec.Collected["c6_pkg_residency"])
}

func TestApplyValue_UnknownColumnNotClaimed(t *testing.T) {
	rec := &record.Record{Collected: map[string]bool{}}
	applyValue(rec, "not_a_real_column", 1.0)
	require.False(t, rec.Collected["not_a_real_column"])
}

func TestAffinityString(t *testing.T) {
	require.Equal(t, "", affinityString(nil))
	require.Equal(t, "0", affinityString([]int{0}))
	require.Equal(t, "0,1,3", affinityString([]int{0, 1, 3}))
}
