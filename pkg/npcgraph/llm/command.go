package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	npcerrors "github.com/randalmurphal/npcgraph/pkg/npcgraph/errors"
)

// Command implements Generator by running a local model CLI.
// The prompt is passed with -p and the reply is read from stdout.
type Command struct {
	path     string
	baseArgs []string
	model    string
	workdir  string
	timeout  time.Duration
}

// CommandOption configures Command.
type CommandOption func(*Command)

// NewCommand creates a command-line generator.
// Assumes "claude" is available in PATH unless overridden with WithCommandPath.
func NewCommand(opts ...CommandOption) *Command {
	c := &Command{
		path:    "claude",
		timeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithCommandPath sets the binary to run.
func WithCommandPath(path string) CommandOption {
	return func(c *Command) {
		if path != "" {
			c.path = path
		}
	}
}

// WithBaseArgs sets arguments placed before the generated ones.
func WithBaseArgs(args ...string) CommandOption {
	return func(c *Command) { c.baseArgs = args }
}

// WithCommandModel sets the default model.
func WithCommandModel(model string) CommandOption {
	return func(c *Command) { c.model = model }
}

// WithWorkdir sets the working directory for the command.
func WithWorkdir(dir string) CommandOption {
	return func(c *Command) { c.workdir = dir }
}

// WithCommandTimeout bounds a single invocation.
func WithCommandTimeout(d time.Duration) CommandOption {
	return func(c *Command) { c.timeout = d }
}

// Generate implements Generator.
func (c *Command) Generate(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.path, c.buildArgs(req)...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// Check for context expiry first
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &npcerrors.TimeoutError{Operation: c.path, Duration: c.timeout}
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		errMsg := strings.TrimSpace(stderr.String())
		if isRetryableError(errMsg) {
			return "", &npcerrors.RateLimitError{Provider: c.path}
		}
		if errMsg == "" {
			errMsg = err.Error()
		}
		return "", &npcerrors.ProviderError{Provider: c.path, Message: errMsg}
	}

	return strings.TrimSpace(stdout.String()), nil
}

// buildArgs constructs CLI arguments from a request.
func (c *Command) buildArgs(req Request) []string {
	args := append([]string{}, c.baseArgs...)
	args = append(args, "--print")

	if req.System != "" {
		args = append(args, "--system-prompt", req.System)
	}

	// Model priority: request > generator default
	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	if model != "" {
		args = append(args, "--model", model)
	}

	// The CLI takes a single prompt, so earlier turns are folded in as context
	var prompt strings.Builder
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleUser:
			prompt.WriteString(msg.Content)
			prompt.WriteString("\n")
		case RoleAssistant, RoleTool:
			if prompt.Len() > 0 {
				fmt.Fprintf(&prompt, "\n%s: %s\n\nUser: ", roleLabel(msg.Role), msg.Content)
			}
		}
	}

	if p := strings.TrimSpace(prompt.String()); p != "" {
		args = append(args, "-p", p)
	}
	return args
}

func roleLabel(r Role) string {
	if r == RoleTool {
		return "Tool"
	}
	return "Assistant"
}

// isRetryableError checks if an error message indicates a transient error.
func isRetryableError(errMsg string) bool {
	errLower := strings.ToLower(errMsg)
	return strings.Contains(errLower, "rate limit") ||
		strings.Contains(errLower, "timeout") ||
		strings.Contains(errLower, "overloaded") ||
		strings.Contains(errLower, "503") ||
		strings.Contains(errLower, "529")
}
