// Package engine stages simulation jobs and drives the external simulation
// engine as a bounded child process.
package engine

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// ExecResult captures the observable outcome of one subprocess invocation.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Executor runs the engine binary rooted at a job's working directory. It is
// a capability interface so tests can substitute a fake for the real binary.
type Executor interface {
	Run(ctx context.Context, workDir string, args []string) (ExecResult, error)
}

// LocalExecutor invokes the engine binary on the local machine.
type LocalExecutor struct {
	Bin string
}

// Run executes the binary with the working directory set to workDir. A
// context deadline kills the process; the context error is returned so the
// caller can distinguish timeout from startup failure. A nonzero exit is not
// an error here, it is reported through ExitCode.
func (e *LocalExecutor) Run(ctx context.Context, workDir string, args []string) (ExecResult, error) {
	cmd := exec.CommandContext(ctx, e.Bin, args...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := ExecResult{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		return res, err
	}
	return res, nil
}
