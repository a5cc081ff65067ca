package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/slipway-sh/slipway/internal/core/domain"
	"github.com/slipway-sh/slipway/internal/core/profile"
	"github.com/slipway-sh/slipway/internal/engine"
	"github.com/slipway-sh/slipway/internal/shell/docker"
	"github.com/slipway-sh/slipway/internal/shell/gitfetch"
	"github.com/slipway-sh/slipway/internal/shell/registry"
	"github.com/slipway-sh/slipway/internal/shell/store"
	"github.com/slipway-sh/slipway/internal/shell/terraform"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess       = 0
	ExitConfigError   = 1
	ExitDatabaseError = 2
	ExitDockerError   = 3
	ExitCloudError    = 4
	ExitPipelineError = 5
)

// PipelineError carries the exit code of a wiring or pipeline failure.
type PipelineError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Pipeline
// =============================================================================

// Pipeline bundles the orchestrator with the connections it owns.
type Pipeline struct {
	Orchestrator *engine.Orchestrator

	store  store.Store
	docker *docker.Client
}

// NewPipeline connects every shell component and wires the orchestrator.
// region overrides the configured AWS region when non-empty.
func NewPipeline(ctx context.Context, cfg *Config, region string, logger *slog.Logger) (*Pipeline, error) {
	if region == "" {
		region = cfg.AWS.Region
	}

	st, err := store.NewSQLiteStore(cfg.State.DSN)
	if err != nil {
		return nil, &PipelineError{Op: "NewPipeline", Err: err, ExitCode: ExitDatabaseError}
	}

	dockerClient, err := docker.NewClient(cfg.Docker.Host, logger)
	if err != nil {
		st.Close()
		return nil, &PipelineError{Op: "NewPipeline", Err: err, ExitCode: ExitDockerError}
	}
	if err := dockerClient.Ping(ctx); err != nil {
		st.Close()
		dockerClient.Close()
		return nil, &PipelineError{Op: "NewPipeline", Err: err, ExitCode: ExitDockerError}
	}

	fetcher, err := gitfetch.NewFetcher(filepath.Join(cfg.Workspace.Root, "src"), logger)
	if err != nil {
		st.Close()
		dockerClient.Close()
		return nil, &PipelineError{Op: "NewPipeline", Err: err, ExitCode: ExitConfigError}
	}

	builder, err := docker.NewBuilder(dockerClient, filepath.Join(cfg.Workspace.Root, "build-logs"), logger)
	if err != nil {
		st.Close()
		dockerClient.Close()
		return nil, &PipelineError{Op: "NewPipeline", Err: err, ExitCode: ExitConfigError}
	}

	ecrClient, err := registry.NewECRClient(ctx, region, registry.Credentials{
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
	}, logger)
	if err != nil {
		st.Close()
		dockerClient.Close()
		return nil, &PipelineError{Op: "NewPipeline", Err: err, ExitCode: ExitCloudError}
	}

	publisher := registry.NewPublisher(dockerClient, ecrClient, logger)
	executor := terraform.NewExecutor(cfg.Infra.TerraformBin, logger)

	orch := engine.NewOrchestrator(
		fetcher,
		func(fsys fs.FS) domain.AppProfile { return profile.Detect(fsys) },
		builder,
		publisher,
		ecrClient,
		executor,
		st,
		filepath.Join(cfg.Workspace.Root, "infra"),
		logger,
	)

	return &Pipeline{
		Orchestrator: orch,
		store:        st,
		docker:       dockerClient,
	}, nil
}

// newStore opens the deployment state store on its own, for commands that
// do not need the rest of the pipeline.
func newStore(cfg *Config) (store.Store, error) {
	return store.NewSQLiteStore(cfg.State.DSN)
}

// Close releases the pipeline's connections.
func (p *Pipeline) Close() {
	_ = p.docker.Close()
	_ = p.store.Close()
}
