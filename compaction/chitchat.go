package compaction

import (
	"strings"

	"github.com/makalah-ai/contextgov/types"
)

// IsChitchat reports whether msg is a low-information user utterance such as
// "ok" or "lanjut": a plain-text user message whose raw length does not exceed
// maxLength, whose trimmed length is below shortLength, and which carries no
// question or exclamation mark.
func IsChitchat(msg types.Message, shortLength, maxLength int) bool {
	if msg.Role != types.RoleUser || !msg.Content.IsPlain() {
		return false
	}
	if msg.Content.Length() > maxLength {
		return false
	}
	text := strings.TrimSpace(msg.Content.String())
	if types.UTF16Len(text) >= shortLength {
		return false
	}
	return !strings.ContainsAny(text, "?!")
}

// StripChitchat returns messages without chitchat, using the default
// lengths. Order is preserved and the input is not modified.
func StripChitchat(messages []types.Message) []types.Message {
	return stripChitchat(messages, DefaultChitchatShortLength, DefaultChitchatMaxLength)
}

func stripChitchat(messages []types.Message, shortLength, maxLength int) []types.Message {
	out := make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		if !IsChitchat(msg, shortLength, maxLength) {
			out = append(out, msg)
		}
	}
	return out
}
