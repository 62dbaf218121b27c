package compaction

import (
	"github.com/makalah-ai/contextgov/types"
)

// CharsPerToken is the fixed character-to-token ratio of the estimator.
const CharsPerToken = 4

// EstimateTokens approximates the token count of messages: the UTF-16 length
// of every plain-text content, summed and divided by CharsPerToken, rounded
// up. Multi-part content contributes 0.
func EstimateTokens(messages []types.Message) int {
	return ApproximateTokens(TotalChars(messages))
}

// TotalChars sums the UTF-16 length of every plain-text content.
func TotalChars(messages []types.Message) int {
	total := 0
	for _, msg := range messages {
		total += msg.Content.Length()
	}
	return total
}

// ApproximateTokens converts a character count into tokens, rounding up.
func ApproximateTokens(chars int) int {
	if chars <= 0 {
		return 0
	}
	return (chars + CharsPerToken - 1) / CharsPerToken
}

// EstimateTextTokens approximates the token count of a single string.
func EstimateTextTokens(text string) int {
	return ApproximateTokens(types.UTF16Len(text))
}

func underThreshold(messages []types.Message, threshold int) bool {
	return EstimateTokens(messages) < threshold
}
