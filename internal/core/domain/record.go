// Package domain holds the pure deployment model: state records and their
// status lifecycle, identity derivation, naming conventions, application
// profiles and target recognition. Nothing here performs I/O.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// Deployment Status
// =============================================================================

// DeploymentStatus is the lifecycle state of a deployment.
type DeploymentStatus string

const (
	StatusProvisioning DeploymentStatus = "provisioning"
	StatusActive       DeploymentStatus = "active"
	StatusFailed       DeploymentStatus = "failed"
	StatusDestroying   DeploymentStatus = "destroying"
	StatusDestroyed    DeploymentStatus = "destroyed"
)

var (
	// ErrInvalidTransition is returned when a status change is not allowed
	// by the lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrMissingImage is returned by Validate when a record has no image
	// reference.
	ErrMissingImage = errors.New("record has no image reference")

	// ErrMissingParams is returned by Validate when a record has no
	// infrastructure parameters.
	ErrMissingParams = errors.New("record has no infrastructure parameters")
)

// validTransitions is the deployment lifecycle. destroyed is terminal;
// a redeploy after destroy starts a new lifecycle under the same identifier.
//
// provisioning must stay recoverable: a process that dies mid-apply leaves
// the record at provisioning with possibly-orphaned infrastructure behind
// it, so both a redeploy and a destroy can pick such a record up.
var validTransitions = map[DeploymentStatus][]DeploymentStatus{
	StatusProvisioning: {StatusProvisioning, StatusActive, StatusFailed, StatusDestroying},
	StatusActive:       {StatusProvisioning, StatusDestroying},
	StatusFailed:       {StatusProvisioning, StatusDestroying},
	StatusDestroying:   {StatusDestroyed, StatusFailed},
	StatusDestroyed:    {},
}

// CanTransition reports whether a status change is allowed.
func CanTransition(from, to DeploymentStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// =============================================================================
// Deployment State Record
// =============================================================================

// StateRecord is the persistent record of one deployment: everything needed
// to report on it, redeploy it, or tear it down without fresh operator input.
type StateRecord struct {
	ID           string            `json:"id"`
	RepoURL      string            `json:"repo_url"`
	ServiceName  string            `json:"service_name"`
	ImageRef     string            `json:"image_ref"`
	TemplateID   string            `json:"template_id"`
	InfraParams  map[string]string `json:"infra_params"`
	WorkDir      string            `json:"work_dir"`
	Status       DeploymentStatus  `json:"status"`
	StatusDetail string            `json:"status_detail,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Transition moves the record to a new status, updating the timestamp. The
// record is unchanged when the transition is rejected.
func (r *StateRecord) Transition(to DeploymentStatus) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("%s -> %s: %w", r.Status, to, ErrInvalidTransition)
	}
	r.Status = to
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// Validate checks that the record carries everything a teardown needs.
func (r *StateRecord) Validate() error {
	if r.ImageRef == "" {
		return ErrMissingImage
	}
	if len(r.InfraParams) == 0 {
		return ErrMissingParams
	}
	return nil
}
