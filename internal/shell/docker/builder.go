package docker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/slipway-sh/slipway/internal/core/domain"
)

// =============================================================================
// Image Builder
// =============================================================================

// Builder turns a working copy into a locally tagged image. When the working
// copy has no Dockerfile, one is synthesized from the application profile
// before building.
type Builder struct {
	client *Client
	logDir string
	logger *slog.Logger
}

// NewBuilder creates a Builder that writes full build logs under logDir.
func NewBuilder(client *Client, logDir string, logger *slog.Logger) (*Builder, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create build log directory: %w", err)
	}
	return &Builder{
		client: client,
		logDir: logDir,
		logger: logger.With("component", "builder"),
	}, nil
}

// Build produces a locally tagged image from workDir.
//
// Any non-zero build result surfaces as a BuildError carrying the reference
// to the verbatim build log.
func (b *Builder) Build(ctx context.Context, workDir string, profile domain.AppProfile, tag string) (*domain.BuildArtifact, error) {
	if !profile.HasDockerfile {
		b.logger.Info("synthesizing Dockerfile", "runtime", profile.Runtime, "port", profile.ListenPort)
		dockerfile := SynthesizeDockerfile(profile)
		if err := os.WriteFile(filepath.Join(workDir, "Dockerfile"), []byte(dockerfile), 0o644); err != nil {
			return nil, &BuildError{Tag: tag, Message: "write synthesized Dockerfile: " + err.Error(), Err: err}
		}
	}

	logRef := filepath.Join(b.logDir, "build-"+uuid.NewString()[:8]+".log")
	var log strings.Builder

	b.logger.Info("building image", "tag", tag, "dir", workDir)
	buildErr := b.client.buildImage(ctx, workDir, tag, func(line string) {
		log.WriteString(line)
		log.WriteString("\n")
		b.logger.Debug("build", "line", line)
	})

	if werr := os.WriteFile(logRef, []byte(log.String()), 0o644); werr != nil {
		b.logger.Warn("could not persist build log", "path", logRef, "error", werr)
		logRef = ""
	}

	if buildErr != nil {
		return nil, &BuildError{
			Tag:     tag,
			LogRef:  logRef,
			Message: buildErr.Error(),
			Err:     ErrBuildFailed,
		}
	}

	b.logger.Info("image built", "tag", tag, "log", logRef)
	return &domain.BuildArtifact{LocalTag: tag, BuildLogRef: logRef}, nil
}
