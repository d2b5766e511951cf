package cmd

import (
	"errors"
	"fmt"
)

// Exit codes for hitsend CLI
const (
	// ExitSuccess indicates the request completed
	ExitSuccess = 0

	// ExitRequestFailed indicates the response was closed with an error
	ExitRequestFailed = 1

	// ExitConfigError indicates a configuration or storage error
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64

	// ExitCancelled indicates the request was interrupted
	ExitCancelled = 130
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitRequestFailed
}
