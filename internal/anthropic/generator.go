// Package anthropic adapts the Anthropic Messages API to compaction.TextGenerator.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/makalah-ai/contextgov/compaction"
)

const (
	DefaultModel     = "claude-3-5-haiku-20241022"
	DefaultMaxTokens = 1024
)

// ErrEmptyResponse is returned when the model returned no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Generator runs single non-streaming completions for the summarizer.
type Generator struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithModel sets the model used for generation.
func WithModel(model string) GeneratorOption {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithMaxTokens caps the response length.
func WithMaxTokens(n int) GeneratorOption {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens = int64(n)
		}
	}
}

// NewGenerator creates a Generator backed by client.
func NewGenerator(client *anthropic.Client, opts ...GeneratorOption) *Generator {
	g := &Generator{
		client:    client,
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Model returns the configured model.
func (g *Generator) Model() string {
	return g.model
}

// Generate implements compaction.TextGenerator.
func (g *Generator) Generate(ctx context.Context, req compaction.GenerateRequest) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	message, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("messages.new: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	if text.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return text.String(), nil
}

var _ compaction.TextGenerator = (*Generator)(nil)
