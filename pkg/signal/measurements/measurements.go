//go:build linux

// Package measurements implements the measured child's half of the
// pipe-based control protocol used by External mode. It is exercised
// through cmd/libmeasurements, a cgo c-shared build exported to C, Rust,
// C#, and Java (via JNI) test programs.
package measurements

import (
	"os"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	envControlFD = "MEASUREMENT_CONTROL_FD"
	envStatusFD  = "MEASUREMENT_STATUS_FD"
)

type childState struct {
	controlFD, statusFD int
}

var (
	mu    sync.Mutex
	state *childState
)

func initChild() *childState {
	controlFD, err := strconv.Atoi(os.Getenv(envControlFD))
	if err != nil {
		return nil
	}
	statusFD, err := strconv.Atoi(os.Getenv(envStatusFD))
	if err != nil {
		return nil
	}
	return &childState{controlFD: controlFD, statusFD: statusFD}
}

// StartMeasurement signals the driver that this process is about to enter
// its measured window and blocks until the driver releases it. It returns 1
// on success, 0 if the control channel is missing or broken.
func StartMeasurement() int32 {
	mu.Lock()
	defer mu.Unlock()

	if state == nil {
		state = initChild()
	}
	if state == nil {
		return 0
	}

	if n, err := unix.Write(state.statusFD, []byte{1}); err != nil || n != 1 {
		return 0
	}

	buf := make([]byte, 1)
	n, err := unix.Read(state.controlFD, buf)
	if err != nil || n != 1 {
		return 0
	}
	if buf[0] == 0 {
		return 0
	}
	return 1
}

// EndMeasurement signals the driver that the measured window has ended.
func EndMeasurement() {
	mu.Lock()
	defer mu.Unlock()

	if state == nil {
		return
	}
	_, _ = unix.Write(state.statusFD, []byte{1})
}
