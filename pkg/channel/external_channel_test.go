//go:build linux

package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestExternalChannel_EnvReportsChildSideFDs(t *testing.T) {
	ch, err := NewExternalChannel()
	require.NoError(t, err)
	defer ch.Close()

	require.NoError(t, ch.SetIterations(1))

	env := ch.Env()
	require.Contains(t, env, "MEASUREMENT_CONTROL_FD=3")
	require.Contains(t, env, "MEASUREMENT_STATUS_FD=4")
	require.Contains(t, env, "MEASUREMENT_ITERATIONS=1")

	files := ch.ExtraFiles()
	require.Len(t, files, 2)
}

func TestExternalChannel_ReadyProceedDone(t *testing.T) {
	ch, err := NewExternalChannel()
	require.NoError(t, err)
	defer ch.Close()

	// Simulate the child: write a ready byte on its end of the status pipe,
	// then wait for the driver's proceed byte, then write a done byte.
	done := make(chan error, 1)
	go func() {
		if _, err := unix.Write(ch.statusWriteFD, []byte{1}); err != nil {
			done <- err
			return
		}
		buf := make([]byte, 1)
		if _, err := unix.Read(ch.controlReadFD, buf); err != nil {
			done <- err
			return
		}
		_, err := unix.Write(ch.statusWriteFD, []byte{1})
		done <- err
	}()

	require.NoError(t, ch.WaitForReady(2*time.Second))
	require.NoError(t, ch.Proceed())
	require.NoError(t, ch.WaitForDone(2*time.Second))
	require.NoError(t, <-done)
}

func TestExternalChannel_WaitForReady_Timeout(t *testing.T) {
	ch, err := NewExternalChannel()
	require.NoError(t, err)
	defer ch.Close()

	err = ch.WaitForReady(50 * time.Millisecond)
	require.Error(t, err)
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
}
