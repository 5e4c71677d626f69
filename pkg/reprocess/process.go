package reprocess

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// DefaultGrace is how long Stop waits after SIGTERM before killing.
const DefaultGrace = 5 * time.Second

// ErrAlreadyRunning is returned by Start while the child is running.
var ErrAlreadyRunning = errors.New("reprocessing already running")

// State is the lifecycle state of a Process.
type State int

// Process states.
const (
	NotStarted State = iota
	Running
	Terminated
	Exited
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	case Exited:
		return "exited"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Process supervises one child running a Command. A finished Process may be
// started again.
type Process struct {
	Command Command
	// Stdout and Stderr receive the child's output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
	// Grace is the SIGTERM to kill delay. Zero uses DefaultGrace.
	Grace  time.Duration
	Logger *slog.Logger

	mu       sync.Mutex
	state    State
	cmd      *exec.Cmd
	done     chan struct{}
	waitErr  error
	exitCode int
	stopping bool
}

// NewProcess returns a handle for command in the NotStarted state.
func NewProcess(command Command) *Process {
	return &Process{Command: command, exitCode: -1}
}

// Start launches the child. It fails with ErrAlreadyRunning while a previous
// child is still running and with xds.ErrNotFound when the reference file
// does not exist.
func (p *Process) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Running {
		return ErrAlreadyRunning
	}

	checkErr := p.Command.CheckReference()
	if checkErr != nil {
		return checkErr
	}

	cmd := exec.Command(p.Command.Script, p.Command.Args()...) //nolint:gosec // operator-supplied script.
	cmd.Stdout = p.Stdout
	cmd.Stderr = p.Stderr

	startErr := cmd.Start()
	if startErr != nil {
		return fmt.Errorf("start %s: %w", p.Command.Script, startErr)
	}

	p.cmd = cmd
	p.state = Running
	p.stopping = false
	p.waitErr = nil
	p.exitCode = -1
	p.done = make(chan struct{})

	p.logger().Info("reprocessing started", "pid", cmd.Process.Pid, "command", p.Command.String())

	go p.reap(cmd, p.done)

	return nil
}

func (p *Process) reap(cmd *exec.Cmd, done chan struct{}) {
	waitErr := cmd.Wait()

	p.mu.Lock()
	p.waitErr = waitErr
	p.exitCode = cmd.ProcessState.ExitCode()

	if p.stopping {
		p.state = Terminated
	} else {
		p.state = Exited
	}

	state := p.state
	code := p.exitCode
	p.mu.Unlock()

	p.logger().Info("reprocessing finished", "state", state.String(), "exit_code", code)
	close(done)
}

// Stop sends SIGTERM, waits up to the grace period, then kills the child and
// waits for it to exit. Stopping a child that is not running is a no-op.
func (p *Process) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.state != Running {
		p.mu.Unlock()

		return nil
	}

	p.stopping = true
	proc := p.cmd.Process
	done := p.done
	p.mu.Unlock()

	signalErr := proc.Signal(syscall.SIGTERM)
	if signalErr != nil && !errors.Is(signalErr, os.ErrProcessDone) {
		p.logger().Warn("SIGTERM failed, killing", "error", signalErr)

		return p.kill(ctx, proc, done)
	}

	timer := time.NewTimer(p.grace())
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		p.logger().Warn("reprocessing ignored SIGTERM, killing", "grace", p.grace())

		return p.kill(ctx, proc, done)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Process) kill(ctx context.Context, proc *os.Process, done chan struct{}) error {
	killErr := proc.Kill()
	if killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
		return fmt.Errorf("kill reprocessing: %w", killErr)
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until the child exits. It returns the child's exit error, if
// any; a child that was stopped returns nil.
func (p *Process) Wait(ctx context.Context) error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	if done == nil {
		return nil
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Terminated || p.waitErr == nil {
		return nil
	}

	return fmt.Errorf("reprocessing exited with code %d: %w", p.exitCode, p.waitErr)
}

// State returns the current lifecycle state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// ExitCode returns the child's exit code, or -1 while it has not exited or
// when it was ended by a signal.
func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.exitCode
}

func (p *Process) grace() time.Duration {
	if p.Grace <= 0 {
		return DefaultGrace
	}

	return p.Grace
}

func (p *Process) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}

	return slog.Default()
}
