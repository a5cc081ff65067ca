package gitfetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// =============================================================================
// Fetcher
// =============================================================================

// Fetcher clones repositories into run-scoped working directories under a
// common workspace root.
type Fetcher struct {
	root   string
	logger *slog.Logger
}

// Checkout is a materialized working copy of a repository.
type Checkout struct {
	Dir        string
	CommitHash string // short (7-char) HEAD commit hash
}

// NewFetcher ensures the workspace root exists and returns a Fetcher.
func NewFetcher(root string, logger *slog.Logger) (*Fetcher, error) {
	if root == "" {
		return nil, fmt.Errorf("workspace root cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	return &Fetcher{
		root:   root,
		logger: logger.With("component", "gitfetch"),
	}, nil
}

// Fetch clones repoURL at ref into a fresh directory scoped to this pipeline
// run. An empty ref means the repository's default branch.
//
// A single clone attempt is made; transient network failures surface to the
// caller, since re-invoking Fetch is cheap and idempotent.
func (f *Fetcher) Fetch(ctx context.Context, repoURL, ref string) (*Checkout, error) {
	if strings.TrimSpace(repoURL) == "" {
		return nil, &FetchError{Op: "Fetch", Message: "repository URL cannot be empty", Err: ErrInvalidURL}
	}

	dir := filepath.Join(f.root, "src-"+uuid.NewString()[:8])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &FetchError{Op: "Fetch", RepoURL: repoURL, Message: err.Error(), Err: err}
	}

	args := []string{"clone", "--depth", "1"}
	if ref != "" {
		args = append(args, "--branch", ref)
	}
	args = append(args, repoURL, dir)

	f.logger.Info("cloning repository", "repo_url", repoURL, "ref", ref, "dir", dir)

	cmd := exec.CommandContext(ctx, "git", args...)
	// Never prompt for credentials; missing auth is a reportable failure.
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	if output, err := cmd.CombinedOutput(); err != nil {
		_ = os.RemoveAll(dir)
		return nil, &FetchError{
			Op:      "Fetch",
			RepoURL: repoURL,
			Message: strings.TrimSpace(string(output)),
			Err:     ErrCloneFailed,
		}
	}

	hash, err := headCommit(ctx, dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, &FetchError{Op: "Fetch", RepoURL: repoURL, Message: err.Error(), Err: ErrCloneFailed}
	}

	f.logger.Info("repository cloned", "repo_url", repoURL, "commit", hash)
	return &Checkout{Dir: dir, CommitHash: hash}, nil
}

// Cleanup removes a checkout's working directory. Only directories under the
// fetcher's workspace root are removed.
func (f *Fetcher) Cleanup(c *Checkout) error {
	if c == nil || c.Dir == "" {
		return nil
	}
	rel, err := filepath.Rel(f.root, c.Dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("refusing to remove path outside workspace root: %s", c.Dir)
	}
	return os.RemoveAll(c.Dir)
}

// headCommit resolves the short HEAD commit hash of a working copy.
func headCommit(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "--short=7", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD commit: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}
