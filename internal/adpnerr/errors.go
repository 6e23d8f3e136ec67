package adpnerr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for the failure classes the pipeline distinguishes.
// NotFound is routine (the next source in a chain may still produce a value);
// the rest abort the current pipeline step.
var (
	ErrNotFound     = errors.New("not found")
	ErrParse        = errors.New("parse error")
	ErrAccessDenied = errors.New("access denied")
	ErrUpstream     = errors.New("upstream failure")
	ErrNotSupported = errors.New("command not supported")
)

// Exit codes surfaced at the CLI boundary. NotSupported is reserved so
// calling pipelines can branch on "did not understand" versus "ran and
// failed"; upstream collaborator status codes pass through unchanged.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitParse        = 2
	ExitNotFound     = 3
	ExitAccessDenied = 4
	ExitNotSupported = 64
)

// Wrap tags err with marker while adding component/operation context.
// The marker should be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrUpstream
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Upstream wraps a collaborator failure, preserving its status code for the
// exit-code mapping.
func Upstream(component, operation string, status int, err error) error {
	wrapped := Wrap(ErrUpstream, component, operation, fmt.Sprintf("status %d", status), err)
	return &statusError{err: wrapped, status: status}
}

type statusError struct {
	err    error
	status int
}

func (e *statusError) Error() string { return e.err.Error() }

func (e *statusError) Unwrap() error { return e.err }

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var se *statusError
	if errors.As(err, &se) && se.status > 0 {
		return se.status
	}
	switch {
	case errors.Is(err, ErrNotSupported):
		return ExitNotSupported
	case errors.Is(err, ErrAccessDenied):
		return ExitAccessDenied
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrParse):
		return ExitParse
	default:
		return ExitFailure
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
