// Package engine drives the deployment pipeline: fetch, profile, build,
// publish, render, provision for deploy, and a reduced load-and-destroy
// sequence for teardown.
package engine

import "fmt"

// =============================================================================
// Stages
// =============================================================================

// Stage names a pipeline step for error reporting.
type Stage string

const (
	StageTarget   Stage = "target"
	StageIdentity Stage = "identity"
	StageFetch    Stage = "fetch"
	StageBuild    Stage = "build"
	StagePublish  Stage = "publish"
	StageRender   Stage = "render"
	StageApply    Stage = "apply"
	StageState    Stage = "state"
	StageDestroy  Stage = "destroy"
)

// StageError wraps a stage failure with the failing stage's name. The
// underlying error is reported verbatim; the pipeline never continues past
// its first failure.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
