package profile

import (
	"encoding/json"
	"io/fs"
	"path"
	"strings"

	"github.com/slipway-sh/slipway/internal/core/domain"
)

// =============================================================================
// Flask Rule
// =============================================================================

// flaskRule recognizes Flask applications by their import statement and
// derives the gunicorn entrypoint (<module.path>:app) from the file that
// creates the application object.
var flaskRule = Rule{
	Name: "python-flask",
	Detect: func(fsys fs.FS) (domain.AppProfile, bool) {
		entry := ""
		walkFiles(fsys, func(p string) bool {
			if !strings.HasSuffix(p, ".py") {
				return false
			}
			content, ok := readFile(fsys, p)
			if !ok {
				return false
			}
			if strings.Contains(content, "from flask import Flask") ||
				strings.Contains(content, "import flask") {
				entry = gunicornEntrypoint(p)
				return true
			}
			return false
		})
		if entry == "" {
			// A Flask dependency without a detectable import still counts,
			// with the conventional app:app entrypoint.
			if reqs, ok := readFile(fsys, "requirements.txt"); ok &&
				strings.Contains(strings.ToLower(reqs), "flask") {
				entry = "app:app"
			}
		}
		if entry == "" {
			return domain.AppProfile{}, false
		}
		return domain.AppProfile{
			Runtime:    domain.RuntimePythonFlask,
			EntryPoint: entry,
			ListenPort: domain.DefaultListenPort,
		}, true
	},
}

// gunicornEntrypoint converts a source path to a gunicorn module reference.
//
// Example:
//
//	gunicornEntrypoint("app.py")         // returns "app:app"
//	gunicornEntrypoint("src/web/app.py") // returns "src.web.app:app"
func gunicornEntrypoint(p string) string {
	module := strings.TrimSuffix(p, ".py")
	module = strings.ReplaceAll(module, "/", ".")
	return module + ":app"
}

// =============================================================================
// Node Rule
// =============================================================================

// nodeRule recognizes Node.js applications by their package manifest. The
// entry point comes from the manifest's main field, falling back to the
// conventional filenames.
var nodeRule = Rule{
	Name: "node",
	Detect: func(fsys fs.FS) (domain.AppProfile, bool) {
		raw, ok := readFile(fsys, "package.json")
		if !ok {
			return domain.AppProfile{}, false
		}

		var manifest struct {
			Main string `json:"main"`
		}
		// A malformed manifest still identifies a Node project.
		_ = json.Unmarshal([]byte(raw), &manifest)

		entry := manifest.Main
		if entry == "" || !fileExists(fsys, entry) {
			entry = ""
			for _, candidate := range []string{"server.js", "index.js", "app.js"} {
				if fileExists(fsys, candidate) {
					entry = candidate
					break
				}
			}
		}
		// A manifest with no resolvable entry file would synthesize an
		// image whose CMD fails only at container start; not claiming the
		// tree surfaces that at profile time instead.
		if entry == "" {
			return domain.AppProfile{}, false
		}
		return domain.AppProfile{
			Runtime:    domain.RuntimeNode,
			EntryPoint: entry,
			ListenPort: domain.DefaultListenPort,
		}, true
	},
}

// =============================================================================
// Generic Python Rule
// =============================================================================

// pythonRule recognizes Python applications that are not Flask: a
// requirements manifest or a conventional entry script at the root.
var pythonRule = Rule{
	Name: "python-generic",
	Detect: func(fsys fs.FS) (domain.AppProfile, bool) {
		entry := ""
		for _, candidate := range []string{"main.py", "app.py", "run.py"} {
			if fileExists(fsys, candidate) {
				entry = candidate
				break
			}
		}
		if entry == "" && fileExists(fsys, "requirements.txt") {
			// Any root-level script will do as the entry point.
			walkFiles(fsys, func(p string) bool {
				if path.Dir(p) == "." && strings.HasSuffix(p, ".py") {
					entry = p
					return true
				}
				return false
			})
		}
		if entry == "" {
			return domain.AppProfile{}, false
		}
		return domain.AppProfile{
			Runtime:    domain.RuntimePythonGeneric,
			EntryPoint: entry,
			ListenPort: domain.DefaultListenPort,
		}, true
	},
}
