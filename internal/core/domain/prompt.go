package domain

import (
	"errors"
	"strings"
)

// =============================================================================
// Deployment Target Recognition
// =============================================================================

var (
	// ErrUnsupportedTarget is returned when the prompt does not name a
	// supported deployment target.
	ErrUnsupportedTarget = errors.New("deployment target not supported")
)

// Target is the deployment destination recognized from an operator prompt.
type Target struct {
	Cloud       string      // only "aws" is recognized
	RuntimeHint RuntimeKind // optional runtime named in the prompt
}

// runtimeKeywords maps prompt keywords to runtime hints, checked in order so
// the most specific keyword wins.
var runtimeKeywords = []struct {
	keyword string
	runtime RuntimeKind
}{
	{"flask", RuntimePythonFlask},
	{"python", RuntimePythonGeneric},
	{"node", RuntimeNode},
	{"express", RuntimeNode},
}

// RecognizeTarget interprets a natural-language prompt against the fixed set
// of supported deployment targets. The prompt must name a supported cloud;
// a runtime keyword, when present, becomes a hint for the profiler.
//
// This is deliberately a keyword check, not language understanding: the
// supported target matrix is small and fixed.
func RecognizeTarget(prompt string) (Target, error) {
	lower := strings.ToLower(prompt)
	if !strings.Contains(lower, "aws") {
		return Target{}, ErrUnsupportedTarget
	}
	t := Target{Cloud: "aws"}
	for _, rk := range runtimeKeywords {
		if strings.Contains(lower, rk.keyword) {
			t.RuntimeHint = rk.runtime
			break
		}
	}
	return t, nil
}
