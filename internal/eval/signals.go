package eval

import (
	"errors"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
)

// Dispositions owns how the interpreter and its children react to the
// interrupt signal and to child termination.
type Dispositions interface {
	// Install sets up the interpreter's dispositions.
	Install() error
	// Restore puts the defaults back. It is best effort.
	Restore()
	// Spawn calls start, which forks and execs one child, with the
	// dispositions that child must inherit in place.
	Spawn(foreground bool, start func() (int, error)) (int, error)
	// Adopt hands a background child to the reaper.
	Adopt(pid int, cmd string)
	// Reap collects background children that have already exited.
	Reap() int
}

var errInstalled = errors.New("signal dispositions already installed")

// SignalManager is the OS-backed Dispositions.
//
// While installed, interrupts are caught and dropped so they never stop the
// interpreter. Caught signals revert to their default action in an exec'd
// child, so a foreground child dies on interrupt as usual. Ignored signals
// stay ignored across exec, so background children are forked while the
// interrupt is ignored. Every child-termination notification triggers a
// non-blocking sweep of the reaper.
type SignalManager struct {
	Reaper *Reaper

	mu        sync.Mutex
	installed bool
	intc      chan os.Signal
	chldc     chan os.Signal
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewSignalManager returns a SignalManager with a fresh Reaper.
func NewSignalManager() *SignalManager {
	return &SignalManager{Reaper: NewReaper()}
}

func (m *SignalManager) Install() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.installed {
		return errInstalled
	}
	if m.Reaper == nil {
		m.Reaper = NewReaper()
	}
	m.intc = make(chan os.Signal, 1)
	m.chldc = make(chan os.Signal, 1)
	m.done = make(chan struct{})
	signal.Notify(m.intc, os.Interrupt)
	signal.Notify(m.chldc, unix.SIGCHLD)

	m.wg.Add(1)
	go m.loop(m.intc, m.chldc, m.done)
	m.installed = true
	return nil
}

func (m *SignalManager) loop(intc, chldc <-chan os.Signal, done <-chan struct{}) {
	defer m.wg.Done()
	for {
		select {
		case <-intc:
		case <-chldc:
			m.Reaper.Sweep()
		case <-done:
			return
		}
	}
}

func (m *SignalManager) Restore() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.installed {
		return
	}
	signal.Stop(m.intc)
	signal.Stop(m.chldc)
	signal.Reset(os.Interrupt, unix.SIGCHLD)
	close(m.done)
	m.wg.Wait()
	m.installed = false
}

func (m *SignalManager) Spawn(foreground bool, start func() (int, error)) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if foreground {
		return start()
	}
	signal.Ignore(os.Interrupt)
	defer func() {
		if m.installed {
			signal.Notify(m.intc, os.Interrupt)
		} else {
			signal.Reset(os.Interrupt)
		}
	}()
	return start()
}

func (m *SignalManager) Adopt(pid int, cmd string) {
	m.reaper().Adopt(pid, cmd)
}

func (m *SignalManager) Reap() int {
	return m.reaper().Sweep()
}

func (m *SignalManager) reaper() *Reaper {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Reaper == nil {
		m.Reaper = NewReaper()
	}
	return m.Reaper
}
