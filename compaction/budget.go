package compaction

import (
	"github.com/makalah-ai/contextgov/types"
)

// BudgetResult reports how a conversation's size relates to the context window.
type BudgetResult struct {
	TotalTokens         int  `json:"totalTokens"`
	Threshold           int  `json:"threshold"`
	CompactionThreshold int  `json:"compactionThreshold"`
	WarnThreshold       int  `json:"warnThreshold"`
	ContextWindow       int  `json:"contextWindow"`
	ShouldCompact       bool `json:"shouldCompact"`
	ShouldPrune         bool `json:"shouldPrune"`
	ShouldWarn          bool `json:"shouldWarn"`
}

// CheckBudget compares totalChars against the thresholds of contextWindow.
// A non-positive window falls back to DefaultContextWindow, and a
// non-positive pruneRatio to DefaultPruneRatio.
func CheckBudget(totalChars, contextWindow int, pruneRatio float64) BudgetResult {
	if contextWindow <= 0 {
		contextWindow = DefaultContextWindow
	}
	if pruneRatio <= 0 {
		pruneRatio = DefaultPruneRatio
	}

	compactionThreshold := int(float64(contextWindow) * DefaultThresholdRatio)
	threshold := int(float64(contextWindow) * pruneRatio)
	warnThreshold := int(float64(contextWindow) * DefaultWarnRatio)
	totalTokens := ApproximateTokens(totalChars)

	return BudgetResult{
		TotalTokens:         totalTokens,
		Threshold:           threshold,
		CompactionThreshold: compactionThreshold,
		WarnThreshold:       warnThreshold,
		ContextWindow:       contextWindow,
		ShouldCompact:       totalTokens > compactionThreshold,
		ShouldPrune:         totalTokens > threshold,
		ShouldWarn:          totalTokens > warnThreshold,
	}
}

// PruneMessages is the last-resort brute prune: it keeps every system message
// and the keepLastN most recent non-system messages, in original order.
func PruneMessages(messages []types.Message, keepLastN int) []types.Message {
	if keepLastN <= 0 {
		keepLastN = DefaultKeepLastN
	}

	conversation := 0
	for _, msg := range messages {
		if !msg.IsSystem() {
			conversation++
		}
	}
	if conversation <= keepLastN {
		return append([]types.Message(nil), messages...)
	}

	drop := conversation - keepLastN
	out := make([]types.Message, 0, len(messages)-drop)
	for _, msg := range messages {
		if !msg.IsSystem() && drop > 0 {
			drop--
			continue
		}
		out = append(out, msg)
	}
	return out
}
