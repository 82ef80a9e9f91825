package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	npcerrors "github.com/randalmurphal/npcgraph/pkg/npcgraph/errors"
	"google.golang.org/genai"
)

// DefaultGenAIModel is used when neither the generator nor the request names a model.
const DefaultGenAIModel = "gemini-2.5-flash"

// GenAI implements Generator on the Google GenAI SDK.
type GenAI struct {
	client      *genai.Client
	model       string
	temperature float64
}

// GenAIOption configures GenAI.
type GenAIOption func(*GenAI)

// WithGenAIModel sets the default model.
func WithGenAIModel(model string) GenAIOption {
	return func(g *GenAI) {
		if model != "" {
			g.model = model
		}
	}
}

// WithGenAITemperature sets the default sampling temperature.
func WithGenAITemperature(t float64) GenAIOption {
	return func(g *GenAI) { g.temperature = t }
}

// NewGenAI creates a generator backed by the Gemini API.
func NewGenAI(ctx context.Context, apiKey string, opts ...GenAIOption) (*GenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai: create client: %w", err)
	}
	return NewGenAIFromClient(client, opts...), nil
}

// NewGenAIFromClient wraps an existing SDK client.
func NewGenAIFromClient(client *genai.Client, opts ...GenAIOption) *GenAI {
	g := &GenAI{
		client:      client,
		model:       DefaultGenAIModel,
		temperature: 0.7,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate implements Generator.
func (g *GenAI) Generate(ctx context.Context, req Request) (string, error) {
	model := g.model
	if req.Model != "" {
		model = req.Model
	}

	temp := g.temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temp)),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, toContents(req.Messages), cfg)
	if err != nil {
		return "", classifyGenAIError(ctx, err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// toContents maps messages onto SDK contents. Gemini only knows user and
// model turns, so tool and system messages are sent as user text.
func toContents(msgs []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		switch m.Role {
		case RoleAssistant:
			out = append(out, genai.NewContentFromText(m.Content, genai.RoleModel))
		case RoleUser:
			out = append(out, genai.NewContentFromText(m.Content, genai.RoleUser))
		default:
			out = append(out, genai.NewContentFromText("["+string(m.Role)+"] "+m.Content, genai.RoleUser))
		}
	}
	return out
}

// classifyGenAIError maps SDK failures onto the retry taxonomy.
func classifyGenAIError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &npcerrors.TimeoutError{Operation: "genai generate"}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			return &npcerrors.RateLimitError{Provider: "genai"}
		case http.StatusGatewayTimeout, http.StatusRequestTimeout:
			return &npcerrors.TimeoutError{Operation: "genai generate"}
		default:
			return &npcerrors.ProviderError{Provider: "genai", StatusCode: apiErr.Code, Message: apiErr.Message}
		}
	}
	return &npcerrors.ProviderError{Provider: "genai", Message: err.Error()}
}
