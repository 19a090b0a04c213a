//go:build linux

package channel

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// shmEnvName names the environment variable carrying the per-run shared
// memory object name. Concurrent measure invocations on the same host must
// not collide over the well-known /dev/shm object, so InternalChannel
// generates a unique name per run and exports it here for both its own
// process and the spawned child to agree on.
const shmEnvName = "MEASUREMENT_SHM_NAME"

func resolveShmName() string {
	if v := os.Getenv(shmEnvName); v != "" {
		return v
	}
	return ShmName
}

func shmPath() string {
	return filepath.Join("/dev/shm", resolveShmName())
}

// SharedMemory is a POSIX shared-memory mapping backing the Internal-mode
// control channel. Linux's shm_open objects live under /dev/shm as ordinary
// tmpfs files, so plain file + mmap is the idiomatic Go substitute for the
// shm_open/mmap pair used elsewhere.
type SharedMemory struct {
	file *os.File
	data []byte
}

// CreateSharedMemory creates (or truncates) the backing file, maps it, and
// zero-initializes the control fields. Only the driver process calls this.
func CreateSharedMemory() (*SharedMemory, error) {
	_ = os.Remove(shmPath())

	f, err := os.OpenFile(shmPath(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("channel: create shared memory: %w", err)
	}
	if err := f.Truncate(shmStateSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("channel: truncate shared memory: %w", err)
	}

	sm, err := mapShared(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	for i := range sm.data {
		sm.data[i] = 0
	}
	return sm, nil
}

// OpenSharedMemory maps an already-created region. The measured child calls
// this to attach to the channel the driver created.
func OpenSharedMemory() (*SharedMemory, error) {
	f, err := os.OpenFile(shmPath(), os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("channel: open shared memory: %w", err)
	}
	return mapShared(f)
}

func mapShared(f *os.File) (*SharedMemory, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, shmStateSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("channel: mmap shared memory: %w", err)
	}
	return &SharedMemory{file: f, data: data}, nil
}

func (s *SharedMemory) state() *shmState { return &shmState{data: s.data} }

// ClaimIteration atomically decrements the shared counter and reports
// whether a window was available to claim. Called by the child.
func (s *SharedMemory) ClaimIteration() bool {
	_, ok := s.state().decrementIterations()
	return ok
}

// SetReady, SetShouldStart, and SetMeasuring flip the child-writable flags
// of the control protocol.
func (s *SharedMemory) SetReady(v bool)       { s.state().setReady(v) }
func (s *SharedMemory) SetShouldStart(v bool) { s.state().setShouldStart(v) }
func (s *SharedMemory) SetMeasuring(v bool)   { s.state().setMeasuring(v) }

// WaitShouldStart polls until the driver sets should_start, or timeout
// elapses, returning false on timeout.
func (s *SharedMemory) WaitShouldStart(timeout time.Duration) bool {
	state := s.state()
	deadline := time.Now().Add(timeout)
	for !state.getShouldStart() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(shmPollInterval)
	}
	return true
}

// Close unmaps the region and closes the file descriptor. It does not
// remove the backing file; call Unlink for that.
func (s *SharedMemory) Close() error {
	err := unix.Munmap(s.data)
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Unlink removes the backing /dev/shm object. Only the driver calls this,
// once the measured child has exited.
func Unlink() error {
	if err := os.Remove(shmPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("channel: unlink shared memory: %w", err)
	}
	return nil
}
