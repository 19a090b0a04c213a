//go:build linux

package counters

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeBundle_ReportGatesColumn(t *testing.T) {
	b := NewTimeBundle(false)
	require.NoError(t, b.Reset())
	require.NoError(t, b.Enable())
	time.Sleep(time.Millisecond)
	require.NoError(t, b.Disable())

	vals, err := b.Read()
	require.NoError(t, err)
	require.Empty(t, vals, "report=false must not expose a time column")
}

func TestTimeBundle_ReportTrue(t *testing.T) {
	b := NewTimeBundle(true)
	require.NoError(t, b.Reset())
	require.NoError(t, b.Enable())
	time.Sleep(time.Millisecond)
	require.NoError(t, b.Disable())

	vals, err := b.Read()
	require.NoError(t, err)
	require.Contains(t, vals, "time")
	require.Greater(t, vals["time"], 0.0)
}
