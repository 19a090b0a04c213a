//go:build linux

package channel

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

const (
	envControlFD   = "MEASUREMENT_CONTROL_FD"
	envStatusFD    = "MEASUREMENT_STATUS_FD"
	envIterations  = "MEASUREMENT_ITERATIONS"
	signalProceed  = 1
	signalAbort    = 0
)

// ExternalChannel drives the pipe-based protocol for External mode: a fresh
// child is spawned per window, and two pipes (control, status) are created
// for that one window only. Unlike InternalChannel, its child-visible state
// is entirely environment variables plus two file descriptors — there is
// nothing to name or look up.
type ExternalChannel struct {
	controlReadFD, controlWriteFD int
	statusReadFD, statusWriteFD   int
	iterations                    int
}

// NewExternalChannel allocates a fresh pipe pair. Call SetIterations (always
// 1 for External mode — one window per child) before spawning the child so
// Env() has something to report.
func NewExternalChannel() (*ExternalChannel, error) {
	var controlFDs, statusFDs [2]int
	if err := unix.Pipe(controlFDs[:]); err != nil {
		return nil, fmt.Errorf("channel: create control pipe: %w", err)
	}
	if err := unix.Pipe(statusFDs[:]); err != nil {
		unix.Close(controlFDs[0])
		unix.Close(controlFDs[1])
		return nil, fmt.Errorf("channel: create status pipe: %w", err)
	}
	return &ExternalChannel{
		controlReadFD:  controlFDs[0],
		controlWriteFD: controlFDs[1],
		statusReadFD:   statusFDs[0],
		statusWriteFD:  statusFDs[1],
	}, nil
}

func (c *ExternalChannel) SetIterations(count int) error {
	c.iterations = count
	return nil
}

// childControlFD/childStatusFD are the descriptor numbers the child sees
// these pipes under once exec.Cmd has relocated ExtraFiles: Go always
// starts numbering a child's inherited extra files at fd 3, in the order
// they appear in cmd.ExtraFiles, regardless of their fd numbers in the
// parent. ExtraFiles below must keep returning control-read then
// status-write for this to hold.
const (
	childControlFD = 3
	childStatusFD  = 4
)

// Env exposes the child's end of each pipe plus the iteration count, using
// the fd numbers the child will actually see post-exec (see childControlFD/
// childStatusFD), not the parent's fd numbers.
func (c *ExternalChannel) Env() []string {
	return []string{
		envControlFD + "=" + strconv.Itoa(childControlFD),
		envStatusFD + "=" + strconv.Itoa(childStatusFD),
		envIterations + "=" + strconv.Itoa(c.iterations),
	}
}

// ExtraFiles returns the read-end-of-control/write-end-of-status pair in
// the order they must be appended to exec.Cmd.ExtraFiles so the child's
// inherited descriptor numbers match what Env advertises.
func (c *ExternalChannel) ExtraFiles() []*os.File {
	return []*os.File{
		os.NewFile(uintptr(c.controlReadFD), "measurement-control"),
		os.NewFile(uintptr(c.statusWriteFD), "measurement-status"),
	}
}

func (c *ExternalChannel) WaitForReady(timeout time.Duration) error {
	return readByteWithTimeout(c.statusReadFD, timeout, "child ready")
}

func (c *ExternalChannel) Proceed() error {
	_, err := unix.Write(c.controlWriteFD, []byte{signalProceed})
	if err != nil {
		return fmt.Errorf("channel: signal proceed: %w", err)
	}
	return nil
}

func (c *ExternalChannel) WaitForDone(timeout time.Duration) error {
	return readByteWithTimeout(c.statusReadFD, timeout, "measurement done")
}

// Close sends an abort byte (in case the child is still polling) and closes
// the parent's ends of both pipes.
func (c *ExternalChannel) Close() error {
	_, _ = unix.Write(c.controlWriteFD, []byte{signalAbort})
	err1 := unix.Close(c.controlWriteFD)
	err2 := unix.Close(c.statusReadFD)
	_ = unix.Close(c.controlReadFD)
	_ = unix.Close(c.statusWriteFD)
	if err1 != nil {
		return err1
	}
	return err2
}

func readByteWithTimeout(fd int, timeout time.Duration, stage string) error {
	buf := make([]byte, 1)
	if timeout <= 0 {
		_, err := unix.Read(fd, buf)
		if err != nil {
			return fmt.Errorf("channel: read %s: %w", stage, err)
		}
		return nil
	}

	var fds unix.FdSet
	fds.Set(fd)
	tv := unix.NsecToTimeval(int64(timeout))
	n, err := unix.Select(fd+1, &fds, nil, nil, &tv)
	if err != nil {
		return fmt.Errorf("channel: select on %s: %w", stage, err)
	}
	if n == 0 {
		return &TimeoutError{Stage: stage}
	}
	_, err = unix.Read(fd, buf)
	if err != nil {
		return fmt.Errorf("channel: read %s: %w", stage, err)
	}
	return nil
}
