// Package registry authenticates against ECR and publishes built images.
package registry

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrAuthRejected is returned when registry authentication fails.
	ErrAuthRejected = errors.New("registry authentication rejected")

	// ErrPushRejected is returned when the registry rejects a push.
	ErrPushRejected = errors.New("image push rejected")

	// ErrIdentity is returned when the AWS account identity cannot be
	// resolved.
	ErrIdentity = errors.New("could not resolve AWS account identity")
)

// AuthError wraps registry authentication failures.
type AuthError struct {
	Op      string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// PublishError wraps push failures, keeping the registry's error payload
// intact.
type PublishError struct {
	Ref     string
	Message string
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("push %s: %s", e.Ref, e.Message)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
