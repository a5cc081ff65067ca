package docker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slipway-sh/slipway/internal/core/domain"
)

// =============================================================================
// Dockerfile Synthesis Tests
// =============================================================================

func TestSynthesizeDockerfile_Flask(t *testing.T) {
	df := SynthesizeDockerfile(domain.AppProfile{
		Runtime:    domain.RuntimePythonFlask,
		EntryPoint: "src.web.app:app",
		ListenPort: 8080,
	})

	assert.Contains(t, df, "gunicorn")
	assert.Contains(t, df, `"0.0.0.0:8080"`)
	assert.Contains(t, df, "src.web.app:app")
	assert.Contains(t, df, "EXPOSE 8080")
}

func TestSynthesizeDockerfile_FlaskWithoutRequirementsManifest(t *testing.T) {
	df := SynthesizeDockerfile(domain.AppProfile{
		Runtime:    domain.RuntimePythonFlask,
		EntryPoint: "app:app",
		ListenPort: 8080,
	})

	// A Flask repo recognized by import scan alone may carry no
	// requirements.txt; the build must not depend on one existing.
	assert.Contains(t, df, "if [ -f requirements.txt ]")
	assert.NotContains(t, df, "COPY requirements.txt")
	assert.Contains(t, df, "pip install --no-cache-dir gunicorn")
}

func TestSynthesizeDockerfile_FlaskDefaultEntrypoint(t *testing.T) {
	df := SynthesizeDockerfile(domain.AppProfile{
		Runtime:    domain.RuntimePythonFlask,
		ListenPort: 8080,
	})
	assert.Contains(t, df, `"app:app"`)
}

func TestSynthesizeDockerfile_PythonGeneric(t *testing.T) {
	df := SynthesizeDockerfile(domain.AppProfile{
		Runtime:    domain.RuntimePythonGeneric,
		EntryPoint: "worker.py",
		ListenPort: 8080,
	})

	assert.Contains(t, df, `CMD ["python", "worker.py"]`)
	assert.Contains(t, df, "requirements.txt")
}

func TestSynthesizeDockerfile_Node(t *testing.T) {
	df := SynthesizeDockerfile(domain.AppProfile{
		Runtime:    domain.RuntimeNode,
		EntryPoint: "server.js",
		ListenPort: 3000,
	})

	assert.Contains(t, df, "node:20-alpine")
	assert.Contains(t, df, `CMD ["node", "server.js"]`)
	assert.Contains(t, df, "EXPOSE 3000")
}

func TestSynthesizeDockerfile_UnknownFallsBackToStatic(t *testing.T) {
	df := SynthesizeDockerfile(domain.AppProfile{
		Runtime:    domain.RuntimeUnknown,
		ListenPort: 8080,
	})

	assert.Contains(t, df, "http.server")
	assert.Contains(t, df, "EXPOSE 8080")
}
