package genai

import (
	"context"

	"github.com/openai/openai-go"

	"tock/pkg/engine"
	"tock/pkg/protocol"
)

// OpenAIOptions configures the OpenAI adapter. Fields mirror a minimal
// subset of Chat Completion parameters.
type OpenAIOptions struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// OpenAIGenerator talks to the OpenAI Chat Completions API.
type OpenAIGenerator struct {
	client *openai.Client
	opts   OpenAIOptions
}

var _ engine.Generator = (*OpenAIGenerator)(nil)

// NewOpenAI creates an adapter using the official client.
func NewOpenAI(optFns ...func(o *OpenAIOptions)) *OpenAIGenerator {
	client := openai.NewClient()
	return NewOpenAIFromClient(&client, optFns...)
}

// NewOpenAIFromClient creates an adapter from an existing client.
func NewOpenAIFromClient(client *openai.Client, optFns ...func(o *OpenAIOptions)) *OpenAIGenerator {
	opts := OpenAIOptions{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &OpenAIGenerator{client: client, opts: opts}
}

// GeneratePlan renders the prompt and returns the first choice's content.
func (g *OpenAIGenerator) GeneratePlan(ctx context.Context, req engine.PlanRequest) (protocol.Plan, error) {
	system, user := buildPrompt(req)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.opts.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature:         openai.Float(g.opts.Temperature),
		MaxCompletionTokens: openai.Int(g.opts.MaxCompletionTokens),
	})
	if err != nil {
		return protocol.Plan{}, &protocol.CollaboratorError{Collaborator: "generation", Err: err}
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	return protocol.Plan{
		Content:    content,
		ModelUsed:  g.opts.Model,
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}
