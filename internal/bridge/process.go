package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const defaultGracefulTimeout = 5 * time.Second

// stdinWriter wraps a pipe writer. Lines are serialized by mu; Close does
// not take mu, so it also unblocks a write that is stuck on a full pipe.
type stdinWriter struct {
	mu        sync.Mutex
	writer    *os.File
	timeout   time.Duration
	closed    atomic.Bool
	closeOnce sync.Once
}

func newStdinWriter(w *os.File) *stdinWriter {
	return &stdinWriter{writer: w, timeout: defaultWriteTimeout}
}

func (sw *stdinWriter) WriteLine(line string) error {
	if sw.closed.Load() {
		return ErrClosed
	}
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.writer.SetWriteDeadline(time.Now().Add(sw.timeout))
	if _, err := sw.writer.WriteString(line + "\n"); err != nil {
		if sw.closed.Load() {
			return ErrClosed
		}
		return err
	}
	return nil
}

func (sw *stdinWriter) Close() {
	sw.closeOnce.Do(func() {
		sw.closed.Store(true)
		sw.writer.Close()
	})
}

// Process runs the decision process as a child. Its stdout lines are
// inbound, its stdin is outbound and its stderr is logged.
type Process struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdin  *stdinWriter
	stdout *os.File
	logger zerolog.Logger

	closing   atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	exitCode  int
}

// StartProcess spawns command with args. The child is killed when ctx is
// cancelled.
func StartProcess(ctx context.Context, command string, args []string, logger zerolog.Logger) (*Process, error) {
	binaryPath, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("decision process %q not found: %w", command, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, binaryPath, args...)

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	cmd.Stdin = stdinR

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		cancel()
		stdinR.Close()
		stdinW.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stdout = stdoutW

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		stdinR.Close()
		stdinW.Close()
		stdoutR.Close()
		stdoutW.Close()
		return nil, fmt.Errorf("start decision process: %w", err)
	}

	// The child holds its own copies now.
	stdinR.Close()
	stdoutW.Close()

	p := &Process{
		cmd:    cmd,
		cancel: cancel,
		stdin:  newStdinWriter(stdinW),
		stdout: stdoutR,
		logger: logger.With().Str("component", "bridge").Str("mode", "process").Int("pid", cmd.Process.Pid).Logger(),
		done:   make(chan struct{}),
	}
	p.logger.Info().Str("command", binaryPath).Msg("decision process started")

	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		err := scanLines(stderrPipe, func(line string) {
			p.logger.Warn().Str("stderr", line).Msg("decision process output")
		})
		if err != nil {
			p.logger.Error().Err(err).Msg("stderr scanner error")
		}
	}()

	go p.waitForExit(stderrDone)

	return p, nil
}

// waitForExit reaps the child once its stderr is drained.
func (p *Process) waitForExit(stderrDone <-chan struct{}) {
	<-stderrDone
	err := p.cmd.Wait()

	p.exitCode = 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			p.exitCode = exitErr.ExitCode()
		}
	}

	p.stdin.Close()
	p.logger.Info().Int("exit_code", p.exitCode).Msg("decision process exited")
	close(p.done)
}

// Listen forwards stdout lines to sink until the child exits or ctx is
// cancelled.
func (p *Process) Listen(ctx context.Context, sink func(string)) error {
	stop := context.AfterFunc(ctx, func() { p.Close() })
	defer stop()

	readErr := scanLines(p.stdout, sink)
	if p.closing.Load() || ctx.Err() != nil {
		return nil
	}

	<-p.done
	if readErr != nil {
		return fmt.Errorf("read decision process: %w", readErr)
	}
	return fmt.Errorf("%w: exit code %d", ErrProcessExited, p.exitCode)
}

// Write sends one line to the child's stdin.
func (p *Process) Write(line string) error {
	if err := p.stdin.WriteLine(line); err != nil {
		return fmt.Errorf("write to decision process: %w", err)
	}
	return nil
}

// Done is closed after the child has been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// ExitCode is valid once Done is closed.
func (p *Process) ExitCode() int {
	<-p.done
	return p.exitCode
}

// Close closes stdin and interrupts the child, killing it if it has not
// exited after a grace period.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		p.closing.Store(true)
		p.stdin.Close()
		if p.cmd.Process != nil {
			p.cmd.Process.Signal(os.Interrupt)
		}

		select {
		case <-p.done:
		case <-time.After(defaultGracefulTimeout):
			p.logger.Warn().Msg("decision process ignored interrupt, killing")
			p.cancel()
			<-p.done
		}
		p.cancel()
		p.stdout.Close()
	})
	return nil
}
