package engine

import (
	"context"
	"io/fs"

	"github.com/slipway-sh/slipway/internal/core/domain"
	"github.com/slipway-sh/slipway/internal/core/infra"
	"github.com/slipway-sh/slipway/internal/shell/gitfetch"
	"github.com/slipway-sh/slipway/internal/shell/terraform"
)

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// The orchestrator depends on narrow capability interfaces so the pipeline
// logic is testable against fakes without a daemon, a registry, or a
// provisioning engine.

// Fetcher materializes a working copy of a repository.
type Fetcher interface {
	Fetch(ctx context.Context, repoURL, ref string) (*gitfetch.Checkout, error)
	Cleanup(c *gitfetch.Checkout) error
}

// Profiler classifies a working copy.
type Profiler func(fsys fs.FS) domain.AppProfile

// Builder produces a locally tagged image from a working copy.
type Builder interface {
	Build(ctx context.Context, workDir string, profile domain.AppProfile, tag string) (*domain.BuildArtifact, error)
}

// Publisher pushes a build artifact to the image registry.
type Publisher interface {
	Publish(ctx context.Context, artifact domain.BuildArtifact, ecrRepoName string) (domain.ImageReference, error)
}

// Identity resolves the cloud account the pipeline operates in.
type Identity interface {
	AccountID(ctx context.Context) (string, error)
}

// Executor applies and destroys infrastructure configurations.
type Executor interface {
	Apply(ctx context.Context, cfg *infra.Config) (terraform.Outputs, error)
	Destroy(ctx context.Context, cfg *infra.Config) error
}
