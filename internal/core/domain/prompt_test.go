package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// RecognizeTarget Tests
// =============================================================================

func TestRecognizeTarget_FlaskOnAWS(t *testing.T) {
	target, err := RecognizeTarget("Deploy this Flask app to AWS please")
	require.NoError(t, err)

	assert.Equal(t, "aws", target.Cloud)
	assert.Equal(t, RuntimePythonFlask, target.RuntimeHint)
}

func TestRecognizeTarget_NoRuntimeHint(t *testing.T) {
	target, err := RecognizeTarget("put this on aws")
	require.NoError(t, err)

	assert.Equal(t, "aws", target.Cloud)
	assert.Empty(t, target.RuntimeHint)
}

func TestRecognizeTarget_UnsupportedCloud(t *testing.T) {
	_, err := RecognizeTarget("deploy my flask app to azure")
	assert.ErrorIs(t, err, ErrUnsupportedTarget)
}

func TestRecognizeTarget_EmptyPrompt(t *testing.T) {
	_, err := RecognizeTarget("")
	assert.ErrorIs(t, err, ErrUnsupportedTarget)
}

func TestRecognizeTarget_TableDriven(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		runtime RuntimeKind
	}{
		{"flask wins over python", "python flask service on AWS", RuntimePythonFlask},
		{"plain python", "a python script for aws", RuntimePythonGeneric},
		{"node", "node backend on aws", RuntimeNode},
		{"express maps to node", "an express API on AWS", RuntimeNode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := RecognizeTarget(tt.prompt)
			require.NoError(t, err)
			assert.Equal(t, tt.runtime, target.RuntimeHint)
		})
	}
}
