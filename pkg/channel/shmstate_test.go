//go:build linux

package channel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestState() *shmState {
	return &shmState{data: make([]byte, shmStateSize)}
}

func TestShmState_ReadyMeasuringShouldStart(t *testing.T) {
	s := newTestState()

	require.False(t, s.isReady())
	s.setReady(true)
	require.True(t, s.isReady())
	s.setReady(false)
	require.False(t, s.isReady())

	require.False(t, s.isMeasuring())
	s.setMeasuring(true)
	require.True(t, s.isMeasuring())

	require.False(t, s.getShouldStart())
	s.setShouldStart(true)
	require.True(t, s.getShouldStart())
}

func TestShmState_DecrementIterations(t *testing.T) {
	s := newTestState()
	s.setIterations(2)

	prev, ok := s.decrementIterations()
	require.True(t, ok)
	require.Equal(t, int64(2), prev)
	require.Equal(t, int64(1), s.getIterations())

	prev, ok = s.decrementIterations()
	require.True(t, ok)
	require.Equal(t, int64(1), prev)
	require.Equal(t, int64(0), s.getIterations())

	_, ok = s.decrementIterations()
	require.False(t, ok, "decrementing an exhausted counter must report false")
}

func TestShmState_FieldsDoNotOverlap(t *testing.T) {
	s := newTestState()
	s.setMeasuring(true)
	s.setShouldStart(true)
	s.setIterations(7)
	s.setReady(true)

	require.True(t, s.isMeasuring())
	require.True(t, s.getShouldStart())
	require.Equal(t, int64(7), s.getIterations())
	require.True(t, s.isReady())
}
