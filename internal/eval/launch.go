package eval

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// StepError is a failure confined to one command: its file could not be
// opened, its program could not be found or could not be started. It is
// reported and the interpreter carries on.
type StepError struct {
	Step string
	Name string
	Err  error
}

func (e *StepError) Error() string {
	if e.Name == "" {
		return e.Step + ": " + e.Err.Error()
	}
	return e.Step + " " + e.Name + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error { return e.Err }

var errNotFound = errors.New("command not found")

// launch spawns argv as a single process. Foreground launches block until
// the process has terminated; background ones hand it to the reaper.
func (e *Engine) launch(argv []string, foreground bool, prep Preparation) error {
	streams := e.streams()
	if prep != nil {
		release, err := prep.Prepare(&streams)
		if err != nil {
			e.report(&StepError{Step: "redirect", Err: err})
			return nil
		}
		defer release()
	}
	pid, err := e.spawn(argv, streams, foreground)
	if err != nil {
		var se *StepError
		if errors.As(err, &se) {
			e.report(se)
			return nil
		}
		return err
	}
	if !foreground {
		e.Sig.Adopt(pid, strings.Join(argv, " "))
		e.Sig.Reap()
		return nil
	}
	return waitPID(pid)
}

func (e *Engine) streams() Streams {
	return Streams{
		Stdin:  e.Stdin.Fd(),
		Stdout: e.Stdout.Fd(),
		Stderr: e.Stderr.Fd(),
	}
}

// spawn forks and execs argv with st as its standard streams. Errors that
// belong to the command itself come back as *StepError; anything else means
// the fork could not happen.
func (e *Engine) spawn(argv []string, st Streams, foreground bool) (int, error) {
	path, err := lookPath(argv[0])
	if err != nil {
		return 0, &StepError{Step: "lookup", Name: argv[0], Err: err}
	}
	e.tracef("+ %s\n", strings.Join(argv, " "))
	pid, err := e.Sig.Spawn(foreground, func() (int, error) {
		return syscall.ForkExec(path, argv, &syscall.ProcAttr{
			Env:   os.Environ(),
			Files: st.files(),
		})
	})
	if err != nil {
		if spawnFailure(err) {
			return 0, fmt.Errorf("spawn %s: %w", argv[0], err)
		}
		return 0, &StepError{Step: "exec", Name: argv[0], Err: err}
	}
	return pid, nil
}

// spawnFailure reports whether err came from process creation rather than
// from replacing the child's image.
func spawnFailure(err error) bool {
	return errors.Is(err, unix.EAGAIN) ||
		errors.Is(err, unix.ENOMEM) ||
		errors.Is(err, unix.ENOSYS)
}

// waitPID blocks until pid terminates. A child that was already reaped
// elsewhere is not an error.
func waitPID(pid int) error {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, 0, nil)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ECHILD):
			return nil
		default:
			return fmt.Errorf("wait %d: %w", pid, err)
		}
	}
}
