package compaction

import (
	"context"
	"fmt"
	"strings"

	"github.com/makalah-ai/contextgov/types"
)

// GenerateRequest is a single non-streaming text-generation call.
type GenerateRequest struct {
	// System is the system instruction.
	System string

	// Prompt is the user content.
	Prompt string
}

// TextGenerator is the external text-generation collaborator used by P3.
// Implementations choose the model.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GeneratorFunc adapts a function to TextGenerator.
type GeneratorFunc func(ctx context.Context, req GenerateRequest) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return f(ctx, req)
}

// Summarizer compresses a block of messages into a short digest through a
// TextGenerator.
type Summarizer struct {
	generator TextGenerator
}

// NewSummarizer creates a new Summarizer backed by generator.
func NewSummarizer(generator TextGenerator) *Summarizer {
	return &Summarizer{generator: generator}
}

// Summarize sends the messages, rendered as "[role]: content" lines, to the
// generator with prompt as the system instruction and returns the trimmed
// response.
func (s *Summarizer) Summarize(ctx context.Context, messages []types.Message, prompt string) (string, error) {
	if s == nil || s.generator == nil {
		return "", ErrNoGenerator
	}
	if len(messages) == 0 {
		return "", ErrNoMessagesToSummarize
	}

	text, err := s.generator.Generate(ctx, GenerateRequest{
		System: prompt,
		Prompt: FormatConversation(messages),
	})
	if err != nil {
		return "", NewCompactionError("Summarize", fmt.Errorf("%w: %w", ErrSummarizationFailed, err)).
			WithContext("messages", len(messages))
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", NewCompactionError("Summarize", fmt.Errorf("%w: empty response from summarizer", ErrSummarizationFailed)).
			WithContext("messages", len(messages))
	}
	return text, nil
}

// FormatConversation renders messages as "[role]: content" lines.
func FormatConversation(messages []types.Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, fmt.Sprintf("[%s]: %s", msg.Role, msg.Content.Text()))
	}
	return strings.Join(lines, "\n")
}
