// Package docker drives image build, tag and push operations against a local
// container daemon.
package docker

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrConnectionFailed is returned when the daemon is unreachable.
	ErrConnectionFailed = errors.New("docker connection failed")

	// ErrBuildFailed is returned when an image build ends with an error.
	ErrBuildFailed = errors.New("image build failed")

	// ErrPushFailed is returned when an image push is rejected.
	ErrPushFailed = errors.New("image push failed")
)

// BuildError carries the daemon's build failure together with a reference to
// the full build log. The log is surfaced verbatim, never truncated or
// partially swallowed.
type BuildError struct {
	Tag     string
	LogRef  string
	Message string
	Err     error
}

func (e *BuildError) Error() string {
	if e.LogRef != "" {
		return fmt.Sprintf("build %s: %s (full log: %s)", e.Tag, e.Message, e.LogRef)
	}
	return fmt.Sprintf("build %s: %s", e.Tag, e.Message)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
