//go:build linux

// Package iterations implements the measured child's half of the
// shared-memory control protocol used by Internal mode. It is exercised
// through cmd/libiterations, a cgo c-shared build that exports these
// functions to C, Rust, C#, and Java (via JNI) test programs.
package iterations

import (
	"time"

	"github.com/PLEnergyDev/green-languages/pkg/channel"
)

const startTimeout = 60 * time.Second

// NextIteration claims one cooperative window: it decrements the shared
// iteration counter, signals readiness, waits for the driver to release it,
// and marks the window as measuring. It returns 1 if a window was claimed
// and the caller should run its measured code path, or 0 if the counter was
// already exhausted, the shared region could not be opened, or the driver
// never responded within startTimeout.
func NextIteration() int32 {
	shm, err := channel.OpenSharedMemory()
	if err != nil {
		return 0
	}
	defer shm.Close()

	if ok := shm.ClaimIteration(); !ok {
		return 0
	}

	shm.SetReady(true)
	if !shm.WaitShouldStart(startTimeout) {
		return 0
	}

	shm.SetMeasuring(true)
	shm.SetShouldStart(false)
	return 1
}

// MarkEnd closes out the current window so the driver's WaitForDone unblocks.
func MarkEnd() {
	shm, err := channel.OpenSharedMemory()
	if err != nil {
		return
	}
	defer shm.Close()
	shm.SetMeasuring(false)
}
