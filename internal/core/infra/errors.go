// Package infra renders embedded infrastructure templates into concrete,
// ready-to-execute configuration units.
package infra

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrUnknownTemplate is returned when the named template does not exist.
	ErrUnknownTemplate = errors.New("unknown infrastructure template")

	// ErrInvalidParams is the sentinel wrapped by ValidationError.
	ErrInvalidParams = errors.New("invalid template parameters")
)

// ValidationError reports a parameter set that does not exactly cover the
// template's declared variables. It enumerates every missing and unknown key
// so the operator can fix the call in one pass instead of discovering them
// one provisioning failure at a time.
type ValidationError struct {
	TemplateID string
	Missing    []string
	Unknown    []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing variables: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, fmt.Sprintf("unknown variables: %s", strings.Join(e.Unknown, ", ")))
	}
	return fmt.Sprintf("template %s: %s", e.TemplateID, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidParams
}
