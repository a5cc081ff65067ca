package domain

import (
	"fmt"
	"time"
)

// =============================================================================
// Build Artifact
// =============================================================================

// BuildArtifact is the result of a local image build. It is owned by a single
// pipeline run and is discarded after the image has been published.
type BuildArtifact struct {
	LocalTag    string `json:"local_tag"`
	BuildLogRef string `json:"build_log_ref"`
}

// =============================================================================
// Image Reference
// =============================================================================

// ImageReference is the fully qualified identifier of a pushed image.
// Once produced it is referentially stable for the lifetime of the
// deployment.
type ImageReference struct {
	RegistryURI string `json:"registry_uri"`
	Repository  string `json:"repository"`
	Tag         string `json:"tag"`
	Digest      string `json:"digest,omitempty"`
}

// String returns the registry/repository:tag[@digest] form.
func (r ImageReference) String() string {
	ref := fmt.Sprintf("%s/%s:%s", r.RegistryURI, r.Repository, r.Tag)
	if r.Digest != "" {
		ref += "@" + r.Digest
	}
	return ref
}

// =============================================================================
// Tagging Convention
// =============================================================================

// ImageTag composes the local tag for a build.
//
// Pattern: <ecrRepoName>:<commitHash>, with a UTC timestamp tag when no
// commit hash is available.
//
// Example:
//
//	ImageTag("demo", "abc1234") // returns "demo:abc1234"
func ImageTag(ecrRepoName, commitHash string) string {
	tag := commitHash
	if tag == "" {
		tag = time.Now().UTC().Format("20060102-150405")
	}
	return fmt.Sprintf("%s:%s", ecrRepoName, tag)
}
