package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slipway-sh/slipway/internal/core/domain"
)

// =============================================================================
// Publisher
// =============================================================================

// ImagePusher is the slice of the container daemon the publisher needs.
type ImagePusher interface {
	TagImage(ctx context.Context, source, target string) error
	PushImage(ctx context.Context, ref, registryAuth string) (digest string, err error)
}

// Authorizer is the slice of the registry client the publisher needs.
type Authorizer interface {
	Authorize(ctx context.Context) (*Authorization, error)
	EnsureRepository(ctx context.Context, name string) error
}

// Publisher pushes locally built images to ECR. Publishing is idempotent:
// re-pushing the same local tag to the same remote tag overwrites, since the
// registry addresses content by tag.
type Publisher struct {
	daemon ImagePusher
	auth   Authorizer
	logger *slog.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(daemon ImagePusher, auth Authorizer, logger *slog.Logger) *Publisher {
	return &Publisher{
		daemon: daemon,
		auth:   auth,
		logger: logger.With("component", "publisher"),
	}
}

// Publish authenticates, tags the artifact for the remote repository, and
// pushes it, returning the fully qualified image reference.
//
// Each step is a distinct failure point: authentication failures surface as
// AuthError, tag and push failures as PublishError with the registry's error
// payload intact.
func (p *Publisher) Publish(ctx context.Context, artifact domain.BuildArtifact, ecrRepoName string) (domain.ImageReference, error) {
	authz, err := p.auth.Authorize(ctx)
	if err != nil {
		return domain.ImageReference{}, err
	}

	if err := p.auth.EnsureRepository(ctx, ecrRepoName); err != nil {
		return domain.ImageReference{}, err
	}

	tag := localTagVersion(artifact.LocalTag)
	remoteRef := fmt.Sprintf("%s/%s:%s", authz.RegistryURI, ecrRepoName, tag)

	if err := p.daemon.TagImage(ctx, artifact.LocalTag, remoteRef); err != nil {
		return domain.ImageReference{}, &PublishError{Ref: remoteRef, Message: err.Error(), Err: ErrPushRejected}
	}

	p.logger.Info("pushing image", "ref", remoteRef)
	digest, err := p.daemon.PushImage(ctx, remoteRef, authz.Encoded())
	if err != nil {
		return domain.ImageReference{}, &PublishError{Ref: remoteRef, Message: err.Error(), Err: ErrPushRejected}
	}

	ref := domain.ImageReference{
		RegistryURI: authz.RegistryURI,
		Repository:  ecrRepoName,
		Tag:         tag,
		Digest:      digest,
	}
	p.logger.Info("image published", "ref", ref.String())
	return ref, nil
}

// localTagVersion extracts the version part of a local image tag.
func localTagVersion(localTag string) string {
	if i := strings.LastIndex(localTag, ":"); i >= 0 {
		return localTag[i+1:]
	}
	return "latest"
}
