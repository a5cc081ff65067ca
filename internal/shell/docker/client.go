package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
)

// =============================================================================
// Docker Client
// =============================================================================

// Client wraps the Docker SDK for the image operations the pipeline needs:
// build, tag and push.
type Client struct {
	cli    *client.Client
	logger *slog.Logger
}

// NewClient creates a Docker client. If host is empty, the default Docker
// host from the environment is used.
func NewClient(host string, logger *slog.Logger) (*Client, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return &Client{
		cli:    cli,
		logger: logger.With("component", "docker"),
	}, nil
}

// Ping checks that the daemon is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.cli.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.cli.Close()
}

// =============================================================================
// Image Operations
// =============================================================================

// buildImage runs a daemon build of dir tagged as tag, streaming every build
// line through onLine. The returned error carries the daemon's message.
func (c *Client) buildImage(ctx context.Context, dir, tag string, onLine func(string)) error {
	buildCtx, err := archive.TarWithOptions(dir, &archive.TarOptions{})
	if err != nil {
		return fmt.Errorf("create build context: %w", err)
	}
	defer buildCtx.Close()

	resp, err := c.cli.ImageBuild(ctx, buildCtx, build.ImageBuildOptions{
		Tags:        []string{tag},
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := drainStream(resp.Body, onLine); err != nil {
		return err
	}
	return nil
}

// TagImage applies target as an additional tag on source.
func (c *Client) TagImage(ctx context.Context, source, target string) error {
	if err := c.cli.ImageTag(ctx, source, target); err != nil {
		return fmt.Errorf("tag %s as %s: %w", source, target, err)
	}
	return nil
}

// PushImage pushes ref using the given base64-encoded registry auth and
// returns the digest reported by the registry, when present.
func (c *Client) PushImage(ctx context.Context, ref, registryAuth string) (string, error) {
	reader, err := c.cli.ImagePush(ctx, ref, image.PushOptions{RegistryAuth: registryAuth})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPushFailed, err)
	}
	defer reader.Close()

	digest, err := drainStream(reader, func(line string) {
		c.logger.Debug("push", "line", line)
	})
	if err != nil {
		// The registry's error payload is the actionable part; keep it intact.
		return "", fmt.Errorf("%w: %v", ErrPushFailed, err)
	}
	return digest, nil
}

// ImageExists reports whether the daemon has an image with the given tag.
func (c *Client) ImageExists(ctx context.Context, tag string) (bool, error) {
	_, err := c.cli.ImageInspect(ctx, tag)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

var _ io.Closer = (*Client)(nil)
