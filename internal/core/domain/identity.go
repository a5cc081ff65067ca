package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// =============================================================================
// Deployment Identity
// =============================================================================

// DeriveDeploymentID derives the stable identifier of a deployment from the
// triple that defines it. The same triple always yields the same identifier,
// which is how a redeploy finds its existing record.
//
// Fields are joined with a NUL separator so distinct triples can never
// concatenate to the same input.
func DeriveDeploymentID(repoURL, ecrRepoName, awsRegion string) string {
	h := sha256.Sum256([]byte(repoURL + "\x00" + ecrRepoName + "\x00" + awsRegion))
	return hex.EncodeToString(h[:])[:16]
}

// =============================================================================
// Service Naming
// =============================================================================

// ServiceName mints the cloud service name for a deployment:
// "auto-deployed-<slug>", where the slug comes from the repository URL tail,
// falling back to the registry repository name.
func ServiceName(repoURL, ecrRepoName string) string {
	slug := RepoSlug(repoURL)
	if slug == "" {
		slug = Slugify(ecrRepoName)
	}
	return "auto-deployed-" + slug
}

// RepoSlug extracts a slug from the tail of a repository URL. Both
// https://host/org/name.git and git@host:org/name.git forms are handled.
func RepoSlug(repoURL string) string {
	tail := repoURL
	if i := strings.LastIndexAny(tail, "/:"); i >= 0 {
		tail = tail[i+1:]
	}
	tail = strings.TrimSuffix(tail, ".git")
	return Slugify(tail)
}
