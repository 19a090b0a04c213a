package driver

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_Fatal(t *testing.T) {
	fatal := []ErrorKind{OutputWriteFailed, CounterOpenFailed, RaplUnavailable}
	nonFatal := []ErrorKind{BuildFailed, SpawnFailed, ControlChannelFailed, ChildExitedNonZero, VerificationFailed}

	for _, k := range fatal {
		e := newError(k, "x", nil)
		require.True(t, e.Fatal(), "kind %s should be fatal", k)
	}
	for _, k := range nonFatal {
		e := newError(k, "x", nil)
		require.False(t, e.Fatal(), "kind %s should not be fatal", k)
	}
}

func TestError_WrapsUnderlying(t *testing.T) {
	underlying := errors.New("boom")
	e := newError(SpawnFailed, "start child", underlying)

	require.ErrorIs(t, e, underlying)
	require.Contains(t, e.Error(), "boom")
	require.Contains(t, e.Error(), "spawn_failed")
}
