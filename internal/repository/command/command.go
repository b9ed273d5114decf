package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/oshokin/distpack/internal/domain/release"
)

const (
	// maxStderrInError caps how much stderr is copied into an error message.
	maxStderrInError = 2048

	// waitDelay bounds how long output pipes are drained after a killed process.
	waitDelay = 2 * time.Second
)

// Runner executes external commands in a fixed working directory.
type Runner struct {
	// Dir is the working directory of every command.
	Dir string
	// Timeout bounds a single invocation; zero means no extra bound.
	Timeout time.Duration
}

// Call describes one invocation.
type Call struct {
	// Name is the executable.
	Name string
	// Args are passed verbatim.
	Args []string
	// Stdin is optional input.
	Stdin io.Reader
}

// Completed is the outcome of a call that ran until the process exited.
type Completed struct {
	// Code is the exit status.
	Code int
	// Stdout is everything the process wrote to standard output.
	Stdout []byte
	// Stderr is everything the process wrote to standard error.
	Stderr []byte
}

// Output runs the call and returns stdout.
// A missing executable wraps release.ErrExternalToolMissing; a non-zero exit or timeout
// wraps release.ErrExternalToolFailure and carries the trimmed stderr.
func (r *Runner) Output(ctx context.Context, call Call) ([]byte, error) {
	done, err := r.run(ctx, call)
	if err != nil {
		return nil, err
	}

	return done.Stdout, nil
}

// Exit runs the call and reports the exit code instead of failing on a non-zero exit.
// Only a missing executable, a timeout or a start failure is returned as an error.
func (r *Runner) Exit(ctx context.Context, call Call) (*Completed, error) {
	done, err := r.run(ctx, call)
	if err != nil && done != nil {
		return done, nil
	}

	return done, err
}

// LookPath verifies that the executable can be found.
func LookPath(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%w: %s: %w", release.ErrExternalToolMissing, name, err)
	}

	return nil
}

// run returns a non-nil Completed together with the error when the process exited with a non-zero status.
func (r *Runner) run(ctx context.Context, call Call) (*Completed, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, call.Name, call.Args...)
	cmd.Dir = r.Dir
	cmd.Stdin = call.Stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	if err == nil {
		return &Completed{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
	}

	if errors.Is(err, exec.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s: %w", release.ErrExternalToolMissing, call.Name, err)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", release.ErrExternalToolFailure, describe(call), ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		done := &Completed{Code: exitErr.ExitCode(), Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

		return done, fmt.Errorf("%w: %s: exit status %d: %s",
			release.ErrExternalToolFailure, describe(call), exitErr.ExitCode(), trimStderr(stderr.String()))
	}

	return nil, fmt.Errorf("%w: %s: %w", release.ErrExternalToolFailure, describe(call), err)
}

// describe renders the command line for error messages.
func describe(call Call) string {
	return strings.TrimSpace(call.Name + " " + strings.Join(call.Args, " "))
}

func trimStderr(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderrInError {
		s = s[:maxStderrInError] + "..."
	}

	return s
}
