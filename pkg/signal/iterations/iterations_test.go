//go:build linux

package iterations

import (
	"testing"
	"time"

	"github.com/PLEnergyDev/green-languages/pkg/channel"
	"github.com/stretchr/testify/require"
)

func TestNextIteration_ClaimsAndWaits(t *testing.T) {
	ch, err := channel.NewInternalChannel()
	require.NoError(t, err)
	defer ch.Close()

	require.NoError(t, ch.SetIterations(1))

	result := make(chan int32, 1)
	go func() { result <- NextIteration() }()

	require.NoError(t, ch.WaitForReady(2*time.Second))
	require.NoError(t, ch.Proceed())

	// WaitForDone races the child exactly as the driver does: it starts
	// polling right after Proceed, before the child has necessarily set
	// measuring true, and must not return until measuring has gone
	// true-then-false rather than just observing its still-false start value.
	done := make(chan error, 1)
	go func() { done <- ch.WaitForDone(2 * time.Second) }()

	require.EqualValues(t, 1, <-result)
	MarkEnd()
	require.NoError(t, <-done)
}

func TestNextIteration_ExhaustedCounter(t *testing.T) {
	ch, err := channel.NewInternalChannel()
	require.NoError(t, err)
	defer ch.Close()

	require.NoError(t, ch.SetIterations(0))

	require.EqualValues(t, 0, NextIteration())
}
