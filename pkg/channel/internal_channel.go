//go:build linux

package channel

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

const shmPollInterval = 100 * time.Microsecond

// InternalChannel drives the shared-memory protocol for Internal mode: a
// single child process loops through N cooperative windows, decrementing a
// shared counter itself via its signal library's NextIteration call.
type InternalChannel struct {
	shm  *SharedMemory
	name string
}

// NewInternalChannel picks a fresh per-run shared-memory object name (so
// concurrent measure invocations never collide on the same host), sets it
// in this process's environment so CreateSharedMemory resolves the same
// name, and creates and maps the backing region.
func NewInternalChannel() (*InternalChannel, error) {
	name := "gl-" + uuid.New().String()
	if err := os.Setenv(shmEnvName, name); err != nil {
		return nil, fmt.Errorf("channel: set shared memory name: %w", err)
	}
	shm, err := CreateSharedMemory()
	if err != nil {
		return nil, err
	}
	return &InternalChannel{shm: shm, name: name}, nil
}

func (c *InternalChannel) SetIterations(count int) error {
	s := c.shm.state()
	s.setIterations(int64(count))
	s.setShouldStart(false)
	s.setMeasuring(false)
	s.setReady(false)
	return nil
}

// Env exports this run's shared-memory object name so the child resolves
// the same region NewInternalChannel created.
func (c *InternalChannel) Env() []string {
	return []string{shmEnvName + "=" + c.name}
}

func (c *InternalChannel) WaitForReady(timeout time.Duration) error {
	return c.pollUntil(timeout, "ready", func(s *shmState) bool { return s.isReady() })
}

func (c *InternalChannel) Proceed() error {
	s := c.shm.state()
	s.setShouldStart(true)
	s.setReady(false)
	return nil
}

// WaitForDone blocks until the child's measured window has both started and
// ended. It first waits for the child to observe should_start and flip
// measuring to true, then waits for MarkEnd to flip it back to false — if it
// only waited on the latter, a call made before the child's poll loop even
// notices should_start would see measuring still at its initial false value
// and return immediately, capturing a near-zero window instead of the actual
// measured region.
func (c *InternalChannel) WaitForDone(timeout time.Duration) error {
	if err := c.pollUntil(timeout, "measurement start", func(s *shmState) bool { return s.isMeasuring() }); err != nil {
		return err
	}
	return c.pollUntil(timeout, "measurement end", func(s *shmState) bool { return !s.isMeasuring() })
}

func (c *InternalChannel) pollUntil(timeout time.Duration, stage string, done func(*shmState) bool) error {
	s := c.shm.state()
	deadline := time.Now().Add(timeout)
	for !done(s) {
		if timeout > 0 && time.Now().After(deadline) {
			return &TimeoutError{Stage: stage}
		}
		time.Sleep(shmPollInterval)
	}
	return nil
}

func (c *InternalChannel) Close() error {
	if err := c.shm.Close(); err != nil {
		return fmt.Errorf("channel: close internal channel: %w", err)
	}
	return Unlink()
}
