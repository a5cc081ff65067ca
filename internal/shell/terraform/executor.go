package terraform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/slipway-sh/slipway/internal/core/infra"
)

// =============================================================================
// Phases
// =============================================================================

// Phase names a step of the engine state machine. Apply runs
// init -> plan -> apply; destroy runs init -> destroy.
type Phase string

const (
	PhaseInit    Phase = "init"
	PhasePlan    Phase = "plan"
	PhaseApply   Phase = "apply"
	PhaseDestroy Phase = "destroy"
	PhaseOutput  Phase = "output"
)

// =============================================================================
// Executor
// =============================================================================

// Outputs are the typed key/value results of an apply.
type Outputs map[string]string

// ServiceURL returns the service_url output, empty when absent.
func (o Outputs) ServiceURL() string {
	return o["service_url"]
}

// Executor applies and destroys materialized infrastructure configurations.
// Failed invocations are never retried here: infrastructure mutation retries
// are unsafe without operator confirmation.
type Executor struct {
	runner *Runner
	logger *slog.Logger
}

// NewExecutor creates an Executor driving the given terraform binary.
func NewExecutor(bin string, logger *slog.Logger) *Executor {
	return &Executor{
		runner: NewRunner(bin, logger),
		logger: logger.With("component", "executor"),
	}
}

// Apply provisions the configuration and returns the engine outputs.
func (e *Executor) Apply(ctx context.Context, cfg *infra.Config) (Outputs, error) {
	if cfg.WorkDir == "" {
		return nil, ErrNoWorkDir
	}

	if err := e.step(ctx, cfg.WorkDir, PhaseInit, "init", "-input=false", "-no-color"); err != nil {
		return nil, err
	}
	if err := e.step(ctx, cfg.WorkDir, PhasePlan, "plan", "-input=false", "-json", "-out=tfplan"); err != nil {
		return nil, err
	}
	if err := e.step(ctx, cfg.WorkDir, PhaseApply, "apply", "-input=false", "-json", "tfplan"); err != nil {
		return nil, err
	}

	return e.outputs(ctx, cfg.WorkDir)
}

// Destroy tears down the configuration's infrastructure.
func (e *Executor) Destroy(ctx context.Context, cfg *infra.Config) error {
	if cfg.WorkDir == "" {
		return ErrNoWorkDir
	}

	if err := e.step(ctx, cfg.WorkDir, PhaseInit, "init", "-input=false", "-no-color"); err != nil {
		return err
	}
	return e.step(ctx, cfg.WorkDir, PhaseDestroy, "destroy", "-input=false", "-auto-approve", "-json")
}

// step runs one engine phase, converting a non-zero exit into a
// ProvisioningError carrying the engine diagnostic unmodified.
func (e *Executor) step(ctx context.Context, dir string, phase Phase, args ...string) error {
	output, err := e.runner.run(ctx, dir, args...)
	if err != nil {
		return &ProvisioningError{
			Phase:      phase,
			Diagnostic: extractDiagnostic(output),
			Err:        ErrEngineFailed,
		}
	}
	e.logger.Info("phase succeeded", "phase", phase)
	return nil
}

// outputs reads and decodes `terraform output -json`.
func (e *Executor) outputs(ctx context.Context, dir string) (Outputs, error) {
	raw, err := e.runner.run(ctx, dir, "output", "-json")
	if err != nil {
		return nil, &ProvisioningError{
			Phase:      PhaseOutput,
			Diagnostic: extractDiagnostic(raw),
			Err:        ErrEngineFailed,
		}
	}
	outputs, err := parseOutputs(raw)
	if err != nil {
		return nil, &ProvisioningError{Phase: PhaseOutput, Diagnostic: err.Error(), Err: ErrEngineFailed}
	}
	return outputs, nil
}

// parseOutputs decodes the output -json document into flat string values.
func parseOutputs(raw string) (Outputs, error) {
	var decoded map[string]struct {
		Value any `json:"value"`
	}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("parse engine outputs: %w", err)
	}

	outputs := make(Outputs, len(decoded))
	for key, entry := range decoded {
		switch v := entry.Value.(type) {
		case string:
			outputs[key] = v
		default:
			encoded, _ := json.Marshal(v)
			outputs[key] = string(encoded)
		}
	}
	return outputs, nil
}
