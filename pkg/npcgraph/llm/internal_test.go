package llm

import (
	"context"
	"errors"
	"testing"

	npcerrors "github.com/randalmurphal/npcgraph/pkg/npcgraph/errors"
	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

// Internal tests for private functions

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name     string
		cmd      *Command
		req      Request
		contains []string
		excludes []string
	}{
		{
			name:     "basic request",
			cmd:      NewCommand(),
			req:      Prompt("", "Hello"),
			contains: []string{"--print", "-p", "Hello"},
			excludes: []string{"--system-prompt", "--model"},
		},
		{
			name:     "with system prompt",
			cmd:      NewCommand(),
			req:      Prompt("You are Bram the innkeeper", "Hi"),
			contains: []string{"--system-prompt", "You are Bram the innkeeper"},
		},
		{
			name:     "model from generator",
			cmd:      NewCommand(WithCommandModel("sonnet")),
			req:      Prompt("", "Test"),
			contains: []string{"--model", "sonnet"},
		},
		{
			name:     "model from request overrides generator",
			cmd:      NewCommand(WithCommandModel("default-model")),
			req:      Request{Model: "request-model", Messages: []Message{{Role: RoleUser, Content: "x"}}},
			contains: []string{"request-model"},
			excludes: []string{"default-model"},
		},
		{
			name:     "base args come first",
			cmd:      NewCommand(WithBaseArgs("-c", "script")),
			req:      Prompt("", "x"),
			contains: []string{"-c", "script"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.cmd.buildArgs(tt.req)
			for _, want := range tt.contains {
				assert.Contains(t, args, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, args, unwanted)
			}
		})
	}
}

func TestBuildArgs_FoldsHistory(t *testing.T) {
	args := NewCommand().buildArgs(Request{Messages: []Message{
		{Role: RoleUser, Content: "Who runs the bridge?"},
		{Role: RoleAssistant, Content: "The toll guards."},
		{Role: RoleUser, Content: "Are they honest?"},
	}})

	prompt := args[len(args)-1]
	assert.Contains(t, prompt, "Who runs the bridge?")
	assert.Contains(t, prompt, "Assistant: The toll guards.")
	assert.Contains(t, prompt, "Are they honest?")
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"Rate limit exceeded", true},
		{"request timeout", true},
		{"server overloaded", true},
		{"HTTP 503", true},
		{"error 529", true},
		{"invalid API key", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.msg))
		})
	}
}

func TestClassifyGenAIError(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		err       error
		retryable bool
		check     func(t *testing.T, err error)
	}{
		{
			name:      "429 is rate limited",
			err:       genai.APIError{Code: 429, Message: "quota"},
			retryable: true,
			check: func(t *testing.T, err error) {
				var rl *npcerrors.RateLimitError
				assert.True(t, errors.As(err, &rl))
			},
		},
		{
			name:      "503 is rate limited",
			err:       genai.APIError{Code: 503},
			retryable: true,
		},
		{
			name:      "504 is a timeout",
			err:       genai.APIError{Code: 504},
			retryable: true,
			check: func(t *testing.T, err error) {
				var te *npcerrors.TimeoutError
				assert.True(t, errors.As(err, &te))
			},
		},
		{
			name:      "403 is permanent",
			err:       genai.APIError{Code: 403, Message: "denied"},
			retryable: false,
			check: func(t *testing.T, err error) {
				var pe *npcerrors.ProviderError
				if assert.True(t, errors.As(err, &pe)) {
					assert.Equal(t, 403, pe.StatusCode)
					assert.Equal(t, "denied", pe.Message)
				}
			},
		},
		{
			name:      "deadline is a timeout",
			err:       context.DeadlineExceeded,
			retryable: true,
		},
		{
			name:      "cancellation passes through",
			err:       context.Canceled,
			retryable: false,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, context.Canceled)
			},
		},
		{
			name:      "unknown is permanent",
			err:       errors.New("dial tcp: refused"),
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyGenAIError(ctx, tt.err)
			assert.Equal(t, tt.retryable, npcerrors.IsRetryable(got))
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}

func TestToContents(t *testing.T) {
	contents := toContents([]Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "well met"},
		{Role: RoleTool, Content: "3"},
		{Role: RoleUser, Content: "   "},
	})

	if assert.Len(t, contents, 3) {
		assert.Equal(t, genai.RoleUser, contents[0].Role)
		assert.Equal(t, genai.RoleModel, contents[1].Role)
		assert.Equal(t, genai.RoleUser, contents[2].Role)
		assert.Equal(t, "[tool] 3", contents[2].Parts[0].Text)
	}
}
