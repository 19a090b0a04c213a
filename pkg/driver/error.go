package driver

import "fmt"

// ErrorKind classifies the failure modes the driver can surface for a single
// test. Most kinds are logged and move the run on to the next test; a
// handful are fatal to the whole run (see Error.Fatal).
type ErrorKind string

const (
	BuildFailed          ErrorKind = "build_failed"
	SpawnFailed          ErrorKind = "spawn_failed"
	CounterOpenFailed    ErrorKind = "counter_open_failed"
	RaplUnavailable      ErrorKind = "rapl_unavailable"
	ControlChannelFailed ErrorKind = "control_channel_failed"
	ChildExitedNonZero   ErrorKind = "child_exited_non_zero"
	VerificationFailed   ErrorKind = "verification_failed"
	OutputWriteFailed    ErrorKind = "output_write_failed"
)

// Error is a classified test/run failure. Kind drives both log formatting
// and the fatal/non-fatal propagation policy.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("driver: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("driver: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Fatal reports whether this error should abort the entire run rather than
// just the current test. Only output-write failures and counter-open
// failures for explicitly requested events are fatal; everything else is
// logged and the driver moves on to the next test.
func (e *Error) Fatal() bool {
	switch e.Kind {
	case OutputWriteFailed, CounterOpenFailed, RaplUnavailable:
		return true
	default:
		return false
	}
}
