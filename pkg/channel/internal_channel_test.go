//go:build linux

package channel

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewInternalChannel_UniqueNamePerRun(t *testing.T) {
	c1, err := NewInternalChannel()
	require.NoError(t, err)
	defer c1.Close()

	name1 := os.Getenv(shmEnvName)
	require.True(t, strings.HasPrefix(name1, "gl-"))
	require.Contains(t, c1.Env(), shmEnvName+"="+name1)

	require.NoError(t, c1.Close())

	c2, err := NewInternalChannel()
	require.NoError(t, err)
	defer c2.Close()

	name2 := os.Getenv(shmEnvName)
	require.NotEqual(t, name1, name2, "each run must get a fresh shared-memory name")
}

func TestInternalChannel_SetIterationsResetsControlFlags(t *testing.T) {
	c, err := NewInternalChannel()
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.SetIterations(3))

	s := c.shm.state()
	require.Equal(t, int64(3), s.getIterations())
	require.False(t, s.isReady())
	require.False(t, s.getShouldStart())
	require.False(t, s.isMeasuring())
}
