//go:build linux

package driver

import (
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/PLEnergyDev/green-languages/pkg/channel"
	"github.com/PLEnergyDev/green-languages/pkg/core"
	"github.com/PLEnergyDev/green-languages/pkg/counters"
	"github.com/PLEnergyDev/green-languages/pkg/record"
)

func exitCodeOf(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode(), nil
	}
	return 0, err
}

func newRecord(s *core.Scenario, name string, mode Mode, niceness int, affinity []int, iteration int) *record.Record {
	return &record.Record{
		Language:  string(s.Language),
		Scenario:  s.Name,
		Test:      name,
		Niceness:  niceness,
		Affinity:  affinityString(affinity),
		Mode:      string(mode),
		Iteration: iteration,
	}
}

func (d *Driver) emit(rec *record.Record, bundles []counters.Bundle) *Error {
	if err := readBundles(bundles, rec); err != nil {
		return newError(CounterOpenFailed, "read bundles", err)
	}
	rec.EndedUsEpoch = time.Now().UnixMicro()
	if err := d.writer.Write(rec); err != nil {
		return newError(OutputWriteFailed, "write record", err)
	}
	return nil
}

// runProcess implements the Process-mode state machine: the measurement
// window is the entire child lifetime, with no channel cooperation at all.
func (d *Driver) runProcess(log *zap.SugaredLogger, s *core.Scenario, t *core.Test, name string, affinity []int, niceness int, bundles []counters.Bundle) *Error {
	timeBundle, rest := splitTime(bundles)

	for i := 1; i <= d.iterations; i++ {
		cmd, err := s.PrepareExecCmd(d.cfg, t, nil, nil)
		if err != nil {
			return newError(SpawnFailed, "prepare command", err)
		}
		if err := cmd.Start(); err != nil {
			return newError(SpawnFailed, "start child", err)
		}
		configureChild(log, cmd.Process.Pid, affinity, niceness)

		if err := resetBundles(bundles); err != nil {
			_ = cmd.Process.Kill()
			return newError(CounterOpenFailed, "reset bundles", err)
		}
		if err := enableBundles(timeBundle, rest); err != nil {
			_ = cmd.Process.Kill()
			return newError(CounterOpenFailed, "enable bundles", err)
		}

		waitErr := cmd.Wait()

		if err := disableBundles(timeBundle, rest); err != nil {
			return newError(CounterOpenFailed, "disable bundles", err)
		}

		exitCode, err := exitCodeOf(waitErr)
		if err != nil {
			return newError(SpawnFailed, "wait for child", err)
		}
		if exitCode != 0 {
			log.Errorw(fmt.Sprintf("execution failed with exit code %d", exitCode))
			return newError(ChildExitedNonZero, fmt.Sprintf("execution failed with exit code %d", exitCode), nil)
		}

		rec := newRecord(s, name, Process, niceness, affinity, i)
		if derr := d.emit(rec, bundles); derr != nil {
			return derr
		}

		if d.sleep > 0 && i < d.iterations {
			time.Sleep(d.sleep)
		}
	}
	return nil
}

// runExternal implements the External-mode state machine: one cooperative
// window per spawned child, via a fresh pair of pipes per iteration.
func (d *Driver) runExternal(log *zap.SugaredLogger, s *core.Scenario, t *core.Test, name string, affinity []int, niceness int, bundles []counters.Bundle) *Error {
	timeBundle, rest := splitTime(bundles)

	for i := 1; i <= d.iterations; i++ {
		ch, err := channel.NewExternalChannel()
		if err != nil {
			return newError(ControlChannelFailed, "create external channel", err)
		}
		if err := ch.SetIterations(1); err != nil {
			_ = ch.Close()
			return newError(ControlChannelFailed, "set iterations", err)
		}

		cmd, err := s.PrepareExecCmd(d.cfg, t, ch.Env(), ch.ExtraFiles())
		if err != nil {
			_ = ch.Close()
			return newError(SpawnFailed, "prepare command", err)
		}
		if err := cmd.Start(); err != nil {
			_ = ch.Close()
			return newError(SpawnFailed, "start child", err)
		}
		configureChild(log, cmd.Process.Pid, affinity, niceness)

		if err := ch.WaitForReady(readyTimeout); err != nil {
			_ = ch.Close()
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return newError(ControlChannelFailed, "wait for ready", err)
		}

		if err := resetBundles(bundles); err != nil {
			_ = ch.Close()
			_ = cmd.Process.Kill()
			return newError(CounterOpenFailed, "reset bundles", err)
		}
		if err := enableBundles(timeBundle, rest); err != nil {
			_ = ch.Close()
			_ = cmd.Process.Kill()
			return newError(CounterOpenFailed, "enable bundles", err)
		}

		if err := ch.Proceed(); err != nil {
			return newError(ControlChannelFailed, "signal proceed", err)
		}

		if err := ch.WaitForDone(readyTimeout); err != nil {
			_ = disableBundles(timeBundle, rest)
			_ = ch.Close()
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return newError(ControlChannelFailed, "wait for done", err)
		}

		if err := disableBundles(timeBundle, rest); err != nil {
			_ = ch.Close()
			return newError(CounterOpenFailed, "disable bundles", err)
		}

		if err := ch.Close(); err != nil {
			log.Warnw("channel close failed", "error", err)
		}

		exitCode, err := exitCodeOf(cmd.Wait())
		if err != nil {
			return newError(SpawnFailed, "wait for child", err)
		}
		if exitCode != 0 {
			log.Errorw(fmt.Sprintf("execution failed with exit code %d", exitCode))
			return newError(ChildExitedNonZero, fmt.Sprintf("execution failed with exit code %d", exitCode), nil)
		}

		rec := newRecord(s, name, External, niceness, affinity, i)
		if derr := d.emit(rec, bundles); derr != nil {
			return derr
		}

		if d.sleep > 0 && i < d.iterations {
			time.Sleep(d.sleep)
		}
	}
	return nil
}

// runInternal implements the Internal-mode state machine: one long-lived
// child cooperates through N windows over the shared-memory transport.
func (d *Driver) runInternal(log *zap.SugaredLogger, s *core.Scenario, t *core.Test, name string, affinity []int, niceness int, bundles []counters.Bundle) *Error {
	timeBundle, rest := splitTime(bundles)

	ch, err := channel.NewInternalChannel()
	if err != nil {
		return newError(ControlChannelFailed, "create internal channel", err)
	}
	defer ch.Close()

	if err := ch.SetIterations(d.iterations); err != nil {
		return newError(ControlChannelFailed, "set iterations", err)
	}

	cmd, err := s.PrepareExecCmd(d.cfg, t, ch.Env(), nil)
	if err != nil {
		return newError(SpawnFailed, "prepare command", err)
	}
	if err := cmd.Start(); err != nil {
		return newError(SpawnFailed, "start child", err)
	}
	configureChild(log, cmd.Process.Pid, affinity, niceness)

	for i := 1; i <= d.iterations; i++ {
		if d.sleep > 0 && i > 1 {
			time.Sleep(d.sleep)
		}

		if err := ch.WaitForReady(readyTimeout); err != nil {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return newError(ControlChannelFailed, "wait for ready", err)
		}

		if err := resetBundles(bundles); err != nil {
			_ = cmd.Process.Kill()
			return newError(CounterOpenFailed, "reset bundles", err)
		}
		if err := enableBundles(timeBundle, rest); err != nil {
			_ = cmd.Process.Kill()
			return newError(CounterOpenFailed, "enable bundles", err)
		}

		if err := ch.Proceed(); err != nil {
			return newError(ControlChannelFailed, "signal proceed", err)
		}

		if err := ch.WaitForDone(readyTimeout); err != nil {
			_ = disableBundles(timeBundle, rest)
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return newError(ControlChannelFailed, "wait for done", err)
		}

		if err := disableBundles(timeBundle, rest); err != nil {
			return newError(CounterOpenFailed, "disable bundles", err)
		}

		rec := newRecord(s, name, Internal, niceness, affinity, i)
		if derr := d.emit(rec, bundles); derr != nil {
			return derr
		}
	}

	exitCode, err := exitCodeOf(cmd.Wait())
	if err != nil {
		return newError(SpawnFailed, "wait for child", err)
	}
	if exitCode != 0 {
		log.Errorw(fmt.Sprintf("execution failed with exit code %d", exitCode))
		return newError(ChildExitedNonZero, fmt.Sprintf("execution failed with exit code %d", exitCode), nil)
	}
	return nil
}
