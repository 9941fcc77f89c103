package cmd

import (
	"errors"

	"github.com/corey/shodiff/internal/domain/baseline"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// exitError carries the process exit code for err.
type exitError struct {
	code int
	err  error
}

func (e exitError) Error() string { return e.err.Error() }

func (e exitError) Unwrap() error { return e.err }

// usageError marks err as a command-line mistake (exit 2).
func usageError(err error) error {
	return exitError{code: exitUsage, err: err}
}

// ExitCode maps err onto a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if baseline.IsUsageError(err) {
		return exitUsage
	}
	return exitFailure
}
