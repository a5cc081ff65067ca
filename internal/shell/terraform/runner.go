package terraform

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// =============================================================================
// CLI Runner
// =============================================================================

// Runner executes terraform CLI invocations in a configuration's working
// directory, streaming output lines to the logger as they arrive.
type Runner struct {
	bin    string
	logger *slog.Logger
}

// NewRunner creates a Runner for the given terraform binary. An empty bin
// means "terraform" resolved from PATH.
func NewRunner(bin string, logger *slog.Logger) *Runner {
	if bin == "" {
		bin = "terraform"
	}
	return &Runner{
		bin:    bin,
		logger: logger.With("component", "terraform"),
	}
}

// run executes one terraform command with stdout and stderr interleaved,
// returning the full output. The output is returned even on failure so
// diagnostics can be extracted from it.
func (r *Runner) run(ctx context.Context, dir string, args ...string) (string, error) {
	r.logger.Info("executing terraform", "args", strings.Join(args, " "), "dir", dir)

	cmd := exec.CommandContext(ctx, r.bin, args...)
	cmd.Dir = dir

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return "", fmt.Errorf("start %s: %w", r.bin, err)
	}

	var output strings.Builder
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			output.WriteString(line)
			output.WriteString("\n")
			r.logger.Debug("terraform", "line", line)
		}
	}()

	err := cmd.Wait()
	pw.Close()
	<-done

	return output.String(), err
}
