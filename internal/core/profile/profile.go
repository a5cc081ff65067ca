// Package profile classifies an application working copy into an AppProfile.
//
// Classification is deliberately rule-based: an ordered list of pure
// detection rules is evaluated against the working copy and the first rule
// that claims the tree wins. New framework detections are added by appending
// a rule, not by growing a conditional.
package profile

import (
	"io/fs"

	"github.com/slipway-sh/slipway/internal/core/domain"
)

// =============================================================================
// Rules
// =============================================================================

// Rule is a single framework detection. Detect inspects the working copy
// read-only and reports whether it recognizes the application.
type Rule struct {
	Name   string
	Detect func(fsys fs.FS) (domain.AppProfile, bool)
}

// rules are evaluated in priority order; first match wins. Flask is checked
// before generic Python so a Flask app is never classified as a bare script.
var rules = []Rule{
	flaskRule,
	nodeRule,
	pythonRule,
}

// =============================================================================
// Detection
// =============================================================================

// Detect inspects a working copy and produces its AppProfile.
//
// Detection is idempotent and side-effect-free: the filesystem is only read,
// never written, and profiling the same tree twice yields an identical
// profile. A tree no rule recognizes yields RuntimeUnknown with the default
// port, which is a valid profile, not an error; the image builder falls back
// to a generic containerization strategy for it.
func Detect(fsys fs.FS) domain.AppProfile {
	hasDockerfile := fileExists(fsys, "Dockerfile")

	for _, rule := range rules {
		if p, ok := rule.Detect(fsys); ok {
			p.HasDockerfile = hasDockerfile
			if p.ListenPort == 0 {
				p.ListenPort = domain.DefaultListenPort
			}
			return p
		}
	}

	return domain.AppProfile{
		Runtime:       domain.RuntimeUnknown,
		ListenPort:    domain.DefaultListenPort,
		HasDockerfile: hasDockerfile,
	}
}

// =============================================================================
// Filesystem Helpers
// =============================================================================

// skippedDirs are never descended into during detection.
var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
}

// walkFiles visits every regular file in the tree, skipping dependency and
// VCS directories. The visit callback returns true to stop the walk early.
func walkFiles(fsys fs.FS, visit func(path string) bool) {
	_ = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if visit(path) {
			return fs.SkipAll
		}
		return nil
	})
}

func fileExists(fsys fs.FS, path string) bool {
	info, err := fs.Stat(fsys, path)
	return err == nil && !info.IsDir()
}

func readFile(fsys fs.FS, path string) (string, bool) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return "", false
	}
	return string(data), true
}
