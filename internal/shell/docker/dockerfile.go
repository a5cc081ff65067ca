package docker

import (
	"fmt"

	"github.com/slipway-sh/slipway/internal/core/domain"
)

// =============================================================================
// Dockerfile Synthesis
// =============================================================================

// SynthesizeDockerfile produces a containerization descriptor for a working
// copy that does not carry its own. The strategy is templated per runtime
// kind; nothing beyond the profile is inferred here.
func SynthesizeDockerfile(profile domain.AppProfile) string {
	switch profile.Runtime {
	case domain.RuntimePythonFlask:
		entry := profile.EntryPoint
		if entry == "" {
			entry = "app:app"
		}
		return fmt.Sprintf(flaskDockerfile, profile.ListenPort, profile.ListenPort, entry)
	case domain.RuntimePythonGeneric:
		entry := profile.EntryPoint
		if entry == "" {
			entry = "main.py"
		}
		return fmt.Sprintf(pythonDockerfile, profile.ListenPort, entry)
	case domain.RuntimeNode:
		entry := profile.EntryPoint
		if entry == "" {
			entry = "index.js"
		}
		return fmt.Sprintf(nodeDockerfile, profile.ListenPort, entry)
	default:
		// Generic fallback: serve the tree as static content. An unknown
		// runtime is a valid profile, not a build failure.
		return fmt.Sprintf(staticDockerfile, profile.ListenPort, profile.ListenPort)
	}
}

// Flask detection can fire on an import scan alone, so the requirements
// install is guarded; gunicorn is installed regardless since it is the
// entrypoint.
const flaskDockerfile = `FROM python:3.11-slim
WORKDIR /app
COPY . .
RUN if [ -f requirements.txt ]; then pip install --no-cache-dir -r requirements.txt; fi \
 && pip install --no-cache-dir gunicorn
EXPOSE %d
CMD ["gunicorn", "--bind", "0.0.0.0:%d", "%s"]
`

const pythonDockerfile = `FROM python:3.11-slim
WORKDIR /app
COPY . .
RUN if [ -f requirements.txt ]; then pip install --no-cache-dir -r requirements.txt; fi
EXPOSE %d
CMD ["python", "%s"]
`

const nodeDockerfile = `FROM node:20-alpine
WORKDIR /app
COPY package*.json ./
RUN npm install --omit=dev
COPY . .
EXPOSE %d
CMD ["node", "%s"]
`

const staticDockerfile = `FROM python:3.11-slim
WORKDIR /app
COPY . .
EXPOSE %d
CMD ["python", "-m", "http.server", "%d"]
`
