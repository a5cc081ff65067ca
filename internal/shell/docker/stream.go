package docker

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// =============================================================================
// Daemon Stream Decoding
// =============================================================================

// streamMessage is one line of the daemon's JSON progress stream, shared by
// build and push responses.
type streamMessage struct {
	Stream      string `json:"stream"`
	Status      string `json:"status"`
	ID          string `json:"id"`
	Error       string `json:"error"`
	ErrorDetail struct {
		Message string `json:"message"`
	} `json:"errorDetail"`
	Aux json.RawMessage `json:"aux"`
}

// pushResult is the aux payload of a completed push.
type pushResult struct {
	Tag    string `json:"Tag"`
	Digest string `json:"Digest"`
}

func (m *streamMessage) errorMessage() string {
	if m.ErrorDetail.Message != "" {
		return m.ErrorDetail.Message
	}
	return m.Error
}

func (m *streamMessage) line() string {
	if m.Stream != "" {
		return strings.TrimRight(m.Stream, "\n")
	}
	if m.Status != "" {
		if m.ID != "" {
			return m.ID + ": " + m.Status
		}
		return m.Status
	}
	return ""
}

// drainStream decodes a daemon progress stream, invoking onLine for every
// renderable line. It returns the digest reported in an aux payload (pushes
// only) and the first error message in the stream, if any.
func drainStream(r io.Reader, onLine func(string)) (digest string, err error) {
	decoder := json.NewDecoder(r)
	for {
		var msg streamMessage
		if derr := decoder.Decode(&msg); derr != nil {
			if derr == io.EOF {
				return digest, nil
			}
			return digest, fmt.Errorf("decode daemon stream: %w", derr)
		}

		if errMsg := msg.errorMessage(); errMsg != "" {
			return digest, fmt.Errorf("%s", errMsg)
		}

		if len(msg.Aux) > 0 {
			var res pushResult
			if json.Unmarshal(msg.Aux, &res) == nil && res.Digest != "" {
				digest = res.Digest
			}
		}

		if line := msg.line(); line != "" && onLine != nil {
			onLine(line)
		}
	}
}
