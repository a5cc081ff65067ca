// Package terraform executes rendered infrastructure configurations through
// the terraform CLI.
package terraform

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrEngineFailed is returned when a terraform invocation exits
	// non-zero.
	ErrEngineFailed = errors.New("provisioning engine failed")

	// ErrNoWorkDir is returned when a config has not been materialized
	// into a working directory.
	ErrNoWorkDir = errors.New("infrastructure config has no working directory")
)

// ProvisioningError carries the engine's own diagnostic unmodified; it is
// the most actionable error available. Phase names the step of the engine
// state machine that failed.
type ProvisioningError struct {
	Phase      Phase
	Diagnostic string
	Err        error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("terraform %s: %s", e.Phase, e.Diagnostic)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}
