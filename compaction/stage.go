package compaction

import (
	"fmt"
	"strings"

	"github.com/makalah-ai/contextgov/paper"
	"github.com/makalah-ai/contextgov/types"
)

// ExcludeStageMessages folds one completed stage out of messages. Starting at
// the first message whose id equals boundary.FirstMessageID, every following
// non-system message is dropped (including messages without an id, such as
// tool calls) up to and including the message whose id equals
// boundary.LastMessageID. System messages are always kept. If the first id
// never appears the result equals the input.
func ExcludeStageMessages(messages []types.Message, boundary paper.StageMessageBoundary, idOf types.MessageIDExtractor) []types.Message {
	if idOf == nil {
		idOf = types.MessageID
	}

	const (
		before = iota
		inside
		after
	)
	state := before

	out := make([]types.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.IsSystem() {
			out = append(out, msg)
			continue
		}

		id := idOf(msg)
		if state == before && id != "" && id == boundary.FirstMessageID {
			state = inside
		}
		if state == inside {
			if id != "" && id == boundary.LastMessageID {
				state = after
			}
			continue
		}
		out = append(out, msg)
	}
	return out
}

// DigestHeader is the first line of the synthetic stage digest message.
func DigestHeader(compactedStages int) string {
	return fmt.Sprintf("[CONTEXT COMPACTION: %d tahap sebelumnya di-compact]", compactedStages)
}

const digestFooter = "Detail tersimpan di stageData. Pesan asli tetap ada di database."

// BuildStageDigest builds the system message summarizing the decisions of
// compacted stages from the non-superseded digest entries. It returns false
// when no compacted stage has an entry, so nothing is ever fabricated.
func BuildStageDigest(digest []paper.MemoryEntry, compactedStages []paper.StageID) (types.Message, bool) {
	if len(compactedStages) == 0 {
		return types.Message{}, false
	}

	compacted := make(map[paper.StageID]bool, len(compactedStages))
	for _, s := range compactedStages {
		compacted[s] = true
	}

	var lines []string
	for _, entry := range paper.ActiveDigest(digest) {
		if compacted[entry.Stage] {
			lines = append(lines, fmt.Sprintf("- %s: %s", entry.Stage.Label(), entry.Decision))
		}
	}
	if len(lines) == 0 {
		return types.Message{}, false
	}

	content := DigestHeader(len(compactedStages)) + "\n" + strings.Join(lines, "\n") + "\n\n" + digestFooter
	return types.NewText(types.RoleSystem, content), true
}

// InsertAfterSystem returns messages with msg inserted at the index equal to
// the number of system messages, so it follows the leading system prompt.
func InsertAfterSystem(messages []types.Message, msg types.Message) []types.Message {
	systemCount := 0
	for _, m := range messages {
		if m.IsSystem() {
			systemCount++
		}
	}

	out := make([]types.Message, 0, len(messages)+1)
	out = append(out, messages[:systemCount]...)
	out = append(out, msg)
	out = append(out, messages[systemCount:]...)
	return out
}
