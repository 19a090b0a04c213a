//go:build linux

package measurements

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestStartEndMeasurement(t *testing.T) {
	var controlFDs, statusFDs [2]int
	require.NoError(t, unix.Pipe(controlFDs[:]))
	require.NoError(t, unix.Pipe(statusFDs[:]))
	defer func() {
		for _, fd := range []int{controlFDs[0], controlFDs[1], statusFDs[0], statusFDs[1]} {
			_ = unix.Close(fd)
		}
	}()

	// The child reads MEASUREMENT_CONTROL_FD as its control-read end and
	// MEASUREMENT_STATUS_FD as its status-write end, matching
	// ExternalChannel's (control-read, status-write) ExtraFiles ordering.
	require.NoError(t, os.Setenv(envControlFD, strconv.Itoa(controlFDs[0])))
	require.NoError(t, os.Setenv(envStatusFD, strconv.Itoa(statusFDs[1])))
	defer os.Unsetenv(envControlFD)
	defer os.Unsetenv(envStatusFD)

	// Reset package-level cached state so this test's fds are picked up.
	mu.Lock()
	state = nil
	mu.Unlock()

	done := make(chan bool, 1)
	go func() {
		buf := make([]byte, 1)
		if _, err := unix.Read(statusFDs[0], buf); err != nil {
			done <- false
			return
		}
		if _, err := unix.Write(controlFDs[1], []byte{1}); err != nil {
			done <- false
			return
		}
		done <- true
	}()

	require.EqualValues(t, 1, StartMeasurement())
	require.True(t, <-done)

	go func() {
		buf := make([]byte, 1)
		_, _ = unix.Read(statusFDs[0], buf)
	}()
	EndMeasurement()
}

func TestStartMeasurement_MissingEnv(t *testing.T) {
	require.NoError(t, os.Unsetenv(envControlFD))
	require.NoError(t, os.Unsetenv(envStatusFD))

	mu.Lock()
	state = nil
	mu.Unlock()

	require.EqualValues(t, 0, StartMeasurement())
}
