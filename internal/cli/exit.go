package cli

import (
	"errors"
	"fmt"
)

const (
	ExitCodeSuccess = 0
	// ExitCodeError covers usage, config and I/O failures.
	ExitCodeError            = 1
	ExitCodeCompileFailed    = 2
	ExitCodeValidationFailed = 3
)

// ExitError attaches a process exit code to an error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newExitError(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

// ExitCode maps an Execute error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCodeError
}
