package genai

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"tock/pkg/engine"
	"tock/pkg/protocol"
)

// AnthropicOptions configures the Anthropic adapter. Extend via functional
// options to preserve stability.
type AnthropicOptions struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// AnthropicGenerator talks to the Anthropic Messages API.
type AnthropicGenerator struct {
	client *anthropic.Client
	opts   AnthropicOptions
}

var _ engine.Generator = (*AnthropicGenerator)(nil)

func defaultAnthropicOptions() AnthropicOptions {
	return AnthropicOptions{
		Model:       anthropic.ModelClaude3_5Haiku20241022,
		Temperature: 0.7,
		MaxTokens:   1024,
	}
}

// NewAnthropic creates an adapter using the official client.
func NewAnthropic(optFns ...func(o *AnthropicOptions)) *AnthropicGenerator {
	opts := defaultAnthropicOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)
	return &AnthropicGenerator{client: &client, opts: opts}
}

// NewAnthropicFromClient creates an adapter from an existing client.
func NewAnthropicFromClient(client *anthropic.Client, optFns ...func(o *AnthropicOptions)) *AnthropicGenerator {
	opts := defaultAnthropicOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &AnthropicGenerator{client: client, opts: opts}
}

// GeneratePlan renders the prompt, calls the Messages API, and returns the
// concatenated text blocks.
func (g *AnthropicGenerator) GeneratePlan(ctx context.Context, req engine.PlanRequest) (protocol.Plan, error) {
	system, user := buildPrompt(req)

	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       g.opts.Model,
		MaxTokens:   g.opts.MaxTokens,
		Temperature: anthropic.Float(g.opts.Temperature),
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return protocol.Plan{}, &protocol.CollaboratorError{Collaborator: "generation", Err: err}
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return protocol.Plan{
		Content:    b.String(),
		ModelUsed:  string(g.opts.Model),
		TokensUsed: int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
	}, nil
}
