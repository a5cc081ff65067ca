// Package gitfetch materializes working copies of source repositories.
package gitfetch

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrCloneFailed is returned when the repository cannot be cloned.
	ErrCloneFailed = errors.New("repository clone failed")

	// ErrInvalidURL is returned for an empty or malformed repository URL.
	ErrInvalidURL = errors.New("invalid repository URL")
)

// FetchError wraps clone failures with the repository and the underlying
// git output, which is the most actionable diagnostic available.
type FetchError struct {
	Op      string
	RepoURL string
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.RepoURL != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.RepoURL, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
